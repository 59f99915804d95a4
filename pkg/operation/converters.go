package operation

import (
	"context"

	"github.com/fontgraph/build/pkg/artifact"
	"github.com/fontgraph/build/pkg/bgerr"
)

// ConverterKindPathToBytes and ConverterKindBytesToPath are the stable
// shortnames used to detect and reuse an existing converter node: if the
// current node already has an outgoing edge into a converter of the
// required type, that node is reused instead of inserting a new one.
const (
	ConverterKindPathToBytes = "conv:Path->Bytes"
	ConverterKindBytesToPath = "conv:Bytes->Path"
)

// PathToBytesConverter reads a file's contents into an in-memory byte buffer.
type PathToBytesConverter struct {
	Base
}

func NewPathToBytesConverter() *PathToBytesConverter { return &PathToBytesConverter{} }

func (c *PathToBytesConverter) Shortname() string { return ConverterKindPathToBytes }

func (c *PathToBytesConverter) Identifier() string { return ConverterKindPathToBytes }

func (c *PathToBytesConverter) InputKinds() []DataKind { return []DataKind{Path} }

func (c *PathToBytesConverter) OutputKinds() []DataKind { return []DataKind{Bytes} }

func (c *PathToBytesConverter) Description() string { return "read file into bytes" }

func (c *PathToBytesConverter) Hidden() bool { return true }

func (c *PathToBytesConverter) Execute(ctx context.Context, inputs, outputs []*artifact.Artifact) (ExecResult, error) {
	if len(inputs) == 0 {
		return ExecResult{}, bgerr.New(bgerr.WrongInputs, "Path->Bytes: missing input slot 0")
	}
	if len(outputs) == 0 {
		return ExecResult{}, bgerr.New(bgerr.WrongOutputs, "Path->Bytes: missing output slot 0")
	}
	b, err := inputs[0].ToBytes()
	if err != nil {
		return ExecResult{}, bgerr.Wrap(err, bgerr.WrongInputs, "Path->Bytes: read input")
	}
	outputs[0].SetBytes(b)
	return ExecResult{ExitCode: 0}, nil
}

// BytesToPathConverter materializes an in-memory byte buffer into a temp file.
type BytesToPathConverter struct {
	Base
}

func NewBytesToPathConverter() *BytesToPathConverter { return &BytesToPathConverter{} }

func (c *BytesToPathConverter) Shortname() string { return ConverterKindBytesToPath }

func (c *BytesToPathConverter) Identifier() string { return ConverterKindBytesToPath }

func (c *BytesToPathConverter) InputKinds() []DataKind { return []DataKind{Bytes} }

func (c *BytesToPathConverter) OutputKinds() []DataKind { return []DataKind{Path} }

func (c *BytesToPathConverter) Description() string { return "write bytes to a temp file" }

func (c *BytesToPathConverter) Hidden() bool { return true }

func (c *BytesToPathConverter) Execute(ctx context.Context, inputs, outputs []*artifact.Artifact) (ExecResult, error) {
	if len(inputs) == 0 {
		return ExecResult{}, bgerr.New(bgerr.WrongInputs, "Bytes->Path: missing input slot 0")
	}
	if len(outputs) == 0 {
		return ExecResult{}, bgerr.New(bgerr.WrongOutputs, "Bytes->Path: missing output slot 0")
	}
	b, err := inputs[0].ToBytes()
	if err != nil {
		return ExecResult{}, bgerr.Wrap(err, bgerr.WrongInputs, "Bytes->Path: read input")
	}
	outputs[0].SetBytes(b)
	if _, err := outputs[0].ToFilename(); err != nil {
		return ExecResult{}, bgerr.Wrap(err, bgerr.WrongOutputs, "Bytes->Path: materialize output")
	}
	return ExecResult{ExitCode: 0}, nil
}
