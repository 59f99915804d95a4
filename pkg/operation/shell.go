package operation

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/fontgraph/build/pkg/artifact"
	"github.com/fontgraph/build/pkg/bgerr"
)

// RunShell runs command through a POSIX shell, capturing stdout and stderr
// separately and returning an ExecResult with the process's exit status.
// This is the helper operations use to shell out to external font
// compilers, fixers, subsetters, and compressors.
func RunShell(ctx context.Context, dir string, command string) (ExecResult, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	if dir != "" {
		cmd.Dir = dir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := ExecResult{
		Stdout: stdout.Bytes(),
		Stderr: stderr.Bytes(),
	}

	if err == nil {
		result.ExitCode = 0
		return result, nil
	}

	if exitErr, ok := err.(*exec.ExitError); ok {
		result.ExitCode = exitErr.ExitCode()
		return result, bgerr.Newf(bgerr.Build, "command exited %d: %s", result.ExitCode, command)
	}

	result.ExitCode = -1
	return result, bgerr.Wrapf(err, bgerr.Other, "launch command: %s", command)
}

// ShellOp is an Operation that runs a fixed shell command template against
// its first input's filename and writes its first output's filename,
// substituting {{in}} and {{out}} in the command string. It is the engine's
// built-in way to wrap an external font-production tool (a compiler, a
// fixer, a subsetter, a compressor) without the engine needing to know
// anything about that tool beyond its command line.
type ShellOp struct {
	Base

	Name        string
	Command     string // may reference {{in}} and {{out}}
	InKinds     []DataKind
	OutKinds    []DataKind
	Desc        string
	WorkDir     string
}

func NewShellOp(name, command string, inKinds, outKinds []DataKind, description string) *ShellOp {
	return &ShellOp{Name: name, Command: command, InKinds: inKinds, OutKinds: outKinds, Desc: description}
}

func (s *ShellOp) Shortname() string { return s.Name }

func (s *ShellOp) Identifier() string { return DefaultIdentifier(s.Name, &s.Base) }

func (s *ShellOp) InputKinds() []DataKind { return s.InKinds }

func (s *ShellOp) OutputKinds() []DataKind { return s.OutKinds }

func (s *ShellOp) Description() string { return s.Desc }

func (s *ShellOp) Execute(ctx context.Context, inputs, outputs []*artifact.Artifact) (ExecResult, error) {
	if len(inputs) == 0 {
		return ExecResult{}, bgerr.New(bgerr.WrongInputs, s.Name+": missing input slot 0")
	}
	if len(outputs) == 0 {
		return ExecResult{}, bgerr.New(bgerr.WrongOutputs, s.Name+": missing output slot 0")
	}

	inPath, err := inputs[0].ToFilename()
	if err != nil {
		return ExecResult{}, bgerr.Wrap(err, bgerr.WrongInputs, s.Name+": materialize input filename")
	}
	outPath, err := outputs[0].ToFilename()
	if err != nil {
		return ExecResult{}, bgerr.Wrap(err, bgerr.WrongOutputs, s.Name+": materialize output filename")
	}

	cmd := strings.ReplaceAll(s.Command, "{{in}}", inPath)
	cmd = strings.ReplaceAll(cmd, "{{out}}", outPath)
	cmd = strings.ReplaceAll(cmd, "{{args}}", s.Args)

	result, err := RunShell(ctx, s.WorkDir, cmd)
	if err != nil {
		return result, err
	}
	return result, nil
}
