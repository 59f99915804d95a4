package buildgraph

import (
	"os"
	"testing"

	"github.com/fontgraph/build/pkg/operation"
)

func TestNewGraphHasOnlySource(t *testing.T) {
	g := New()

	if len(g.Nodes()) != 1 {
		t.Fatalf("expected 1 node (Source) in a fresh graph, got %d", len(g.Nodes()))
	}
	if g.Node(g.SourceID()).Kind != NodeSource {
		t.Error("expected the single node to be NodeSource")
	}
}

func TestSinksReturnsLeafNodes(t *testing.T) {
	g := New()
	if _, err := g.AddPath("font.glyphs", []Step{
		{Op: operation.NewShellOp("compile-ttf", "cp {{in}} {{out}}", []operation.DataKind{operation.Path}, []operation.DataKind{operation.Path}, "compile")},
	}, "build/font.ttf"); err != nil {
		t.Fatalf("AddPath() error = %v", err)
	}

	sinks := g.Sinks()
	if len(sinks) != 1 {
		t.Fatalf("expected 1 sink, got %d", len(sinks))
	}
	if g.Node(sinks[0]).Kind != NodeSink {
		t.Error("expected the sink node to have Kind NodeSink")
	}
}

func TestEnsureDirectoriesCreatesSinkParent(t *testing.T) {
	g := New()
	dir := t.TempDir()
	target := dir + "/nested/font.ttf"

	if _, err := g.AddPath("font.glyphs", []Step{
		{Op: operation.NewShellOp("compile-ttf", "cp {{in}} {{out}}", []operation.DataKind{operation.Path}, []operation.DataKind{operation.Path}, "compile")},
	}, target); err != nil {
		t.Fatalf("AddPath() error = %v", err)
	}

	if err := g.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories() error = %v", err)
	}

	if _, err := os.Stat(dir + "/nested"); err != nil {
		t.Errorf("expected directory %s/nested to exist, stat error = %v", dir, err)
	}
}

func TestTargetNodeLookup(t *testing.T) {
	g := New()
	nodes, err := g.AddPath("font.glyphs", []Step{
		{Op: operation.NewShellOp("compile-ttf", "cp {{in}} {{out}}", []operation.DataKind{operation.Path}, []operation.DataKind{operation.Path}, "compile")},
	}, "build/font.ttf")
	if err != nil {
		t.Fatalf("AddPath() error = %v", err)
	}

	got, ok := g.TargetNode("build/font.ttf")
	if !ok {
		t.Fatal("expected build/font.ttf to be a registered target")
	}
	if got != nodes[len(nodes)-1] {
		t.Errorf("TargetNode() = %d, want %d (the last operation node)", got, nodes[len(nodes)-1])
	}

	if _, ok := g.TargetNode("build/missing.ttf"); ok {
		t.Error("expected an unregistered target to not be found")
	}
}
