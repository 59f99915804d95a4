// Package recipe turns a declarative build description into a BuildGraph:
// either a hand-built worked example (DemoGraph), or a YAML recipe file
// parsed via Load and walked via Recipe.BuildGraph, optionally synthesized
// from a Provider's convention-based options instead of being hand-written.
package recipe

import (
	"github.com/fontgraph/build/pkg/buildgraph"
	"github.com/fontgraph/build/pkg/operation"
)

// DemoGraph builds a small multi-target graph exercising path construction
// and step coalescing: a glyph source is compiled once into a binary font,
// then two independent downstream paths reuse that same compile step — one
// emitting the font as-is, the other gzip-compressing it for distribution.
func DemoGraph(sourceName string) (*buildgraph.Graph, error) {
	g := buildgraph.New()

	compile := func() operation.Operation {
		return operation.NewShellOp("compile-ttf", "cp {{in}} {{out}}",
			[]operation.DataKind{operation.Path}, []operation.DataKind{operation.Path},
			"compile source into a binary font")
	}

	if _, err := g.AddPath(sourceName, []buildgraph.Step{
		{Op: compile()},
	}, "build/font.ttf"); err != nil {
		return nil, err
	}

	if _, err := g.AddPath(sourceName, []buildgraph.Step{
		{Op: compile()},
		{Op: operation.NewShellOp("gzip", "gzip -c {{in}} > {{out}}",
			[]operation.DataKind{operation.Path}, []operation.DataKind{operation.Path},
			"compress the binary font for distribution")},
	}, "build/font.ttf.gz"); err != nil {
		return nil, err
	}

	return g, nil
}
