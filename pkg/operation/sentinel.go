package operation

import (
	"context"

	"github.com/fontgraph/build/pkg/artifact"
)

// Sentinel implements the Source and Sink pseudo-operations: both execute as
// no-ops returning a successful empty result, existing only so the graph has
// uniform in/out-edge semantics for externals queries.
type Sentinel struct {
	Base
	Name string
}

func NewSource() *Sentinel { return &Sentinel{Name: "Source"} }

func NewSink(label string) *Sentinel { return &Sentinel{Name: "Sink(" + label + ")"} }

func (s *Sentinel) Shortname() string { return s.Name }

func (s *Sentinel) Identifier() string { return s.Name }

func (s *Sentinel) InputKinds() []DataKind { return []DataKind{Any} }

func (s *Sentinel) OutputKinds() []DataKind { return []DataKind{Any} }

func (s *Sentinel) Description() string { return s.Name }

func (s *Sentinel) Hidden() bool { return true }

func (s *Sentinel) Execute(ctx context.Context, inputs, outputs []*artifact.Artifact) (ExecResult, error) {
	return ExecResult{ExitCode: 0}, nil
}
