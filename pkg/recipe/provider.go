package recipe

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Provider synthesizes a default Recipe from a small, convention-driven
// options struct, sparing a font family from hand-writing every target's
// step chain. Load never consults a Provider; a generated Recipe is walked
// with BuildGraph exactly like one read from a file.
type Provider interface {
	GenerateRecipe() (Recipe, error)
}

// GoogleFontsOptions configures GoogleFontsProvider. OutputDir and its
// per-format subdirectories follow the conventional Google Fonts repository
// layout (variable/, ttf/, woff/ beneath OutputDir).
type GoogleFontsOptions struct {
	Sources       []string
	OutputDir     string
	BuildVariable bool
	BuildStatic   bool
	Compress      bool
}

// GoogleFontsProvider synthesizes one target per source per requested
// output format: a variable font under OutputDir/variable, a static
// instance under OutputDir/ttf, and (if both BuildStatic and Compress are
// set) a WOFF2 under OutputDir/woff built from the static instance.
type GoogleFontsProvider struct {
	opts GoogleFontsOptions
}

// NewGoogleFontsProvider returns a provider for the given options, applying
// the same directory defaults as a bare recipe with no output customization.
func NewGoogleFontsProvider(opts GoogleFontsOptions) *GoogleFontsProvider {
	if opts.OutputDir == "" {
		opts.OutputDir = "../fonts"
	}
	return &GoogleFontsProvider{opts: opts}
}

func (p *GoogleFontsProvider) GenerateRecipe() (Recipe, error) {
	r := make(Recipe)
	o := p.opts

	for _, source := range o.Sources {
		base := baseName(source)
		ufoStep := Step{Operation: "glyphs2ufo"}

		if o.BuildVariable {
			target := fmt.Sprintf("%s/variable/%s-VF.ttf", o.OutputDir, base)
			r[target] = Target{
				{Source: source},
				ufoStep,
				{Operation: "buildvariable"},
				{Operation: "fix"},
			}
		}

		if o.BuildStatic {
			staticTarget := fmt.Sprintf("%s/ttf/%s.ttf", o.OutputDir, base)
			r[staticTarget] = Target{
				{Source: source},
				ufoStep,
				{Operation: "buildstatic"},
				{Operation: "fix"},
			}

			if o.Compress {
				woffTarget := fmt.Sprintf("%s/woff/%s.woff2", o.OutputDir, base)
				r[woffTarget] = Target{
					{Source: source},
					ufoStep,
					{Operation: "buildstatic"},
					{Operation: "fix"},
					{Operation: "compress"},
				}
			}
		}
	}

	return r, nil
}

// NotoFontsOptions configures NotoProvider.
type NotoFontsOptions struct {
	Sources []string
}

// NotoProvider exists to hold the Noto family's project-specific recipe
// conventions. Unimplemented upstream as well: Noto's build conventions
// vary enough per-script that no single convention-based recipe has been
// written for it yet, so this returns an empty Recipe rather than guessing.
type NotoProvider struct {
	opts NotoFontsOptions
}

func NewNotoProvider(opts NotoFontsOptions) *NotoProvider {
	return &NotoProvider{opts: opts}
}

func (p *NotoProvider) GenerateRecipe() (Recipe, error) {
	return Recipe{}, nil
}

func baseName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}
