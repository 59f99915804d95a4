// Package operation declares the Operation contract: the polymorphic unit of
// work that BuildGraph nodes wrap, plus the DataKind vocabulary operations
// use to declare their input/output slot types.
package operation

import (
	"context"
	"fmt"
	"sort"

	"github.com/fontgraph/build/pkg/artifact"
)

// DataKind is the declared logical type of an operation's input or output slot.
type DataKind int

const (
	// Any is a wildcard that matches any other kind without triggering conversion.
	Any DataKind = iota
	Path
	Bytes
	SourceFont
	BinaryFont
)

func (k DataKind) String() string {
	switch k {
	case Any:
		return "Any"
	case Path:
		return "Path"
	case Bytes:
		return "Bytes"
	case SourceFont:
		return "SourceFont"
	case BinaryFont:
		return "BinaryFont"
	default:
		return "Unknown"
	}
}

// ExecResult is a standard process-output-like result: exit status plus
// captured stdout/stderr, matching a process's exit status contract.
type ExecResult struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Success reports whether the result represents a successful execution.
func (r ExecResult) Success() bool {
	return r.ExitCode == 0
}

// Operation is the capability interface every BuildGraph node (other than
// the Source/Sink sentinels) wraps. Equality of operations for graph
// coalescing purposes is by Identifier().
type Operation interface {
	// Shortname is a stable human name, used in logs and converter-node reuse.
	Shortname() string

	// Identifier is the stable machine identity including parameters.
	// Two operations with equal identifiers are interchangeable for
	// coalescing. Defaults to Shortname() when an operation has no parameters.
	Identifier() string

	// InputKinds declares the kind of each input slot, in order.
	InputKinds() []DataKind

	// OutputKinds declares the kind of each output slot, in order.
	OutputKinds() []DataKind

	// Execute synchronously produces results: it reads from inputs and
	// writes to outputs (via SetContents/SetBytes/SetFontSource), returning
	// an ExecResult describing how an external process (if any) behaved.
	Execute(ctx context.Context, inputs []*artifact.Artifact, outputs []*artifact.Artifact) (ExecResult, error)

	// Description is a one-line human description for user output.
	Description() string

	// Hidden reports whether the orchestrator should skip announcing
	// execution of this node (used for inserted converters).
	Hidden() bool

	// SetArgs configures the operation from a free-form argument string.
	SetArgs(args string)

	// SetExtra configures the operation from a string-keyed parameter map.
	SetExtra(extra map[string]interface{})
}

// Base provides default implementations of the configuration and metadata
// methods so concrete operations need only embed it and implement
// Shortname, Identifier, InputKinds, OutputKinds, Execute, and Description.
type Base struct {
	Args  string
	Extra map[string]interface{}
}

func (b *Base) SetArgs(args string) { b.Args = args }

func (b *Base) SetExtra(extra map[string]interface{}) { b.Extra = extra }

func (b *Base) Hidden() bool { return false }

// DefaultIdentifier builds an Identifier from a shortname and its configured
// args/extra, so two differently-parameterized instances of the same
// operation type do not coalesce.
func DefaultIdentifier(shortname string, b *Base) string {
	if b.Args == "" && len(b.Extra) == 0 {
		return shortname
	}
	id := shortname
	if b.Args != "" {
		id += "?" + b.Args
	}
	keys := make([]string, 0, len(b.Extra))
	for k := range b.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		id += fmt.Sprintf("&%s=%v", k, b.Extra[k])
	}
	return id
}
