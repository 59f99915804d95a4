package recipe

import (
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/fontgraph/build/pkg/bgerr"
	"github.com/fontgraph/build/pkg/buildgraph"
	"github.com/fontgraph/build/pkg/operation"
)

// Step is one entry in a target's build chain: either a source step (Source
// non-empty, naming the file the chain starts from) or an operation step
// (Operation non-empty, naming an entry in a Registry).
type Step struct {
	Source    string   `koanf:"source"`
	Operation string   `koanf:"operation"`
	Args      string   `koanf:"args"`
	InputFile string   `koanf:"input_file"`
	Needs     []string `koanf:"needs"`
}

// Target is the ordered chain of steps that builds one named output. The
// first step must be a source step.
type Target []Step

// Recipe maps a declared target name to the chain of steps that builds it,
// the on-disk shape of a recipe file.
type Recipe map[string]Target

// Registry maps an operation name, as it appears in a Step.Operation field,
// to a constructor for the Operation it represents.
type Registry map[string]func(args string) operation.Operation

// DefaultRegistry returns the built-in operation names a recipe file may
// reference. buildStat is intentionally absent: it reads every sibling
// instance of a variable font family at once to compute a shared STAT
// table, which doesn't fit the engine's per-node single-input/single-output
// execution model.
func DefaultRegistry() Registry {
	return Registry{
		"glyphs2ufo":    func(string) operation.Operation { return operation.NewGlyphs2UFOOp() },
		"fontc":         func(string) operation.Operation { return operation.NewFontcOp() },
		"fix":           func(string) operation.Operation { return operation.NewFixOp() },
		"compress":      func(string) operation.Operation { return operation.NewCompressOp() },
		"buildstatic":   func(string) operation.Operation { return operation.NewBuildStaticOp() },
		"buildvariable": func(string) operation.Operation { return operation.NewBuildVariableOp() },
		"subset":        func(string) operation.Operation { return operation.NewSubsetOp() },
	}
}

// Load reads a YAML recipe file at path into a Recipe.
func Load(path string) (Recipe, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, bgerr.Wrapf(err, bgerr.InvalidRecipe, "load recipe file %s", path)
	}

	var r Recipe
	if err := k.Unmarshal("", &r); err != nil {
		return nil, bgerr.Wrapf(err, bgerr.InvalidRecipe, "parse recipe file %s", path)
	}
	return r, nil
}

// BuildGraph walks every target in the recipe and constructs the
// corresponding BuildGraph, coalescing shared sub-paths and wiring
// cross-target "needs" dependencies exactly as AddPath/AddDependency
// already do for hand-built graphs.
func (r Recipe) BuildGraph(reg Registry) (*buildgraph.Graph, error) {
	if reg == nil {
		reg = DefaultRegistry()
	}

	g := buildgraph.New()

	type pendingNeed struct {
		node  buildgraph.NodeID
		needs []string
	}
	var pending []pendingNeed

	for target, chain := range r {
		if len(chain) == 0 {
			return nil, bgerr.Newf(bgerr.InvalidRecipe, "target %q has no steps", target)
		}
		if chain[0].Source == "" {
			return nil, bgerr.Newf(bgerr.InvalidRecipe, "first step for target %q must be a source step", target)
		}
		sourceName := chain[0].Source

		var steps []buildgraph.Step
		var needsByIndex [][]string
		for _, s := range chain[1:] {
			ctor, ok := reg[s.Operation]
			if !ok {
				return nil, bgerr.Newf(bgerr.InvalidRecipe, "target %q: unknown operation %q", target, s.Operation)
			}
			op := ctor(s.Args)
			op.SetArgs(s.Args)

			var override *string
			if s.InputFile != "" {
				f := s.InputFile
				override = &f
			}
			steps = append(steps, buildgraph.Step{Op: op, InputOverride: override})
			needsByIndex = append(needsByIndex, s.Needs)
		}

		nodes, err := g.AddPath(sourceName, steps, target)
		if err != nil {
			return nil, bgerr.Wrapf(err, bgerr.InvalidRecipe, "target %q", target)
		}

		for i, needs := range needsByIndex {
			if len(needs) > 0 {
				pending = append(pending, pendingNeed{node: nodes[i], needs: needs})
			}
		}
	}

	// Wire cross-target dependencies only after every target's own path has
	// been constructed, so a "needs" reference to a target declared later in
	// the recipe still resolves. Input slot 0 is reserved for the primary
	// chain input; each named dependency claims the next slot.
	for _, p := range pending {
		for i, needTarget := range p.needs {
			if err := g.AddDependency(needTarget, p.node, i+1); err != nil {
				return nil, bgerr.Wrapf(err, bgerr.InvalidRecipe, "needs %q", needTarget)
			}
		}
	}

	return g, nil
}
