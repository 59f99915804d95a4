package recipe

import "testing"

func TestGoogleFontsProviderGeneratesVariableAndStaticTargets(t *testing.T) {
	p := NewGoogleFontsProvider(GoogleFontsOptions{
		Sources:       []string{"Nunito.glyphs"},
		BuildVariable: true,
		BuildStatic:   true,
		Compress:      true,
	})

	r, err := p.GenerateRecipe()
	if err != nil {
		t.Fatalf("GenerateRecipe() error = %v", err)
	}

	want := []string{
		"../fonts/variable/Nunito-VF.ttf",
		"../fonts/ttf/Nunito.ttf",
		"../fonts/woff/Nunito.woff2",
	}
	for _, target := range want {
		chain, ok := r[target]
		if !ok {
			t.Errorf("expected target %q in generated recipe, got %v", target, keysOf(r))
			continue
		}
		if chain[0].Source != "Nunito.glyphs" {
			t.Errorf("target %q: expected first step to source Nunito.glyphs, got %+v", target, chain[0])
		}
	}
}

func TestGoogleFontsProviderDefaultsOutputDir(t *testing.T) {
	p := NewGoogleFontsProvider(GoogleFontsOptions{Sources: []string{"a.glyphs"}, BuildStatic: true})
	r, err := p.GenerateRecipe()
	if err != nil {
		t.Fatalf("GenerateRecipe() error = %v", err)
	}
	if _, ok := r["../fonts/ttf/a.ttf"]; !ok {
		t.Errorf("expected default output dir ../fonts, got %v", keysOf(r))
	}
}

func TestNotoProviderReturnsEmptyRecipe(t *testing.T) {
	p := NewNotoProvider(NotoFontsOptions{Sources: []string{"NotoSans.glyphs"}})
	r, err := p.GenerateRecipe()
	if err != nil {
		t.Fatalf("GenerateRecipe() error = %v", err)
	}
	if len(r) != 0 {
		t.Errorf("expected an empty recipe, got %d targets", len(r))
	}
}

func keysOf(r Recipe) []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	return keys
}
