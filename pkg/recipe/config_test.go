package recipe

import (
	"os"
	"path/filepath"
	"testing"
)

func writeRecipeFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "recipe.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write recipe file: %v", err)
	}
	return path
}

func TestLoadExplicitRecipe(t *testing.T) {
	path := writeRecipeFile(t, `
Nunito.designspace:
  - source: "Nunito.glyphs"
  - operation: "glyphs2ufo"
`)

	r, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(r) != 1 {
		t.Fatalf("expected 1 target, got %d", len(r))
	}
	chain, ok := r["Nunito.designspace"]
	if !ok {
		t.Fatal("expected target \"Nunito.designspace\" to be present")
	}
	if len(chain) != 2 || chain[0].Source != "Nunito.glyphs" || chain[1].Operation != "glyphs2ufo" {
		t.Errorf("unexpected chain: %+v", chain)
	}
}

func TestRecipeBuildGraphWiresNeeds(t *testing.T) {
	r := Recipe{
		"build/base.ttf": Target{
			{Source: "base.glyphs"},
			{Operation: "fontc"},
			{Operation: "fix"},
		},
		"build/instrumented.ttf": Target{
			{Source: "extra.glyphs"},
			{Operation: "fontc", Needs: []string{"build/base.ttf"}},
		},
	}

	g, err := r.BuildGraph(nil)
	if err != nil {
		t.Fatalf("BuildGraph() error = %v", err)
	}

	if len(g.Sinks()) != 2 {
		t.Errorf("expected 2 sinks, got %d", len(g.Sinks()))
	}

	baseProducer, ok := g.TargetNode("build/base.ttf")
	if !ok {
		t.Fatal("expected build/base.ttf to be a registered target")
	}

	instrumented, ok := g.TargetNode("build/instrumented.ttf")
	if !ok {
		t.Fatal("expected build/instrumented.ttf to be a registered target")
	}

	var wired bool
	for _, e := range g.InEdges(instrumented) {
		if e.From == baseProducer {
			wired = true
		}
	}
	if !wired {
		t.Error("expected build/instrumented.ttf's node to have an incoming edge from build/base.ttf's producer")
	}
}

func TestBuildGraphRejectsUnknownOperation(t *testing.T) {
	r := Recipe{
		"build/out.ttf": Target{
			{Source: "source.glyphs"},
			{Operation: "does-not-exist"},
		},
	}

	if _, err := r.BuildGraph(nil); err == nil {
		t.Error("expected an error for an unknown operation name")
	}
}

func TestBuildGraphRejectsMissingSourceStep(t *testing.T) {
	r := Recipe{
		"build/out.ttf": Target{
			{Operation: "fontc"},
		},
	}

	if _, err := r.BuildGraph(nil); err == nil {
		t.Error("expected an error when the first step is not a source step")
	}
}
