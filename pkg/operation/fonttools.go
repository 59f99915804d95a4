package operation

// This file provides the concrete, named font-production operations a
// recipe author plugs into a path: converting a source into UFOs,
// compiling static and variable binaries, running the post-build fixer,
// subsetting, and compressing for web delivery. The engine itself only
// ever sees these through the Operation interface; each is a thin
// ShellOp wrapping the external tool that actually does the work.

// NewGlyphs2UFOOp converts a Glyphs source into a UFO/designspace tree via
// fontmake, the first step of most Google Fonts build pipelines.
func NewGlyphs2UFOOp() *ShellOp {
	return NewShellOp("Glyphs2UFO",
		"fontmake -o ufo --instance-dir instance_ufo -g {{in}} {{args}}",
		[]DataKind{Path}, []DataKind{Path},
		"convert a Glyphs source to UFO/designspace")
}

// NewBuildStaticOp compiles a single static instance from a UFO or
// designspace source via fontmake, flattening and decomposing transformed
// components so the result renders correctly in engines with limited
// composite-glyph support.
func NewBuildStaticOp() *ShellOp {
	return NewShellOp("BuildStatic",
		"fontmake -o ttf -u {{in}} --filter FlattenComponentsFilter "+
			"--filter DecomposeTransformedComponentsFilter --output-path {{out}} {{args}}",
		[]DataKind{Path}, []DataKind{Path},
		"build a static font instance")
}

// NewBuildVariableOp compiles a variable font from a designspace source via
// fontmake, with the same component-flattening filters as NewBuildStaticOp.
func NewBuildVariableOp() *ShellOp {
	return NewShellOp("BuildVariable",
		"fontmake -o variable -m {{in}} --filter FlattenComponentsFilter "+
			"--filter DecomposeTransformedComponentsFilter --output-path {{out}} {{args}}",
		[]DataKind{Path}, []DataKind{Path},
		"build a variable font")
}

// NewFontcOp compiles a source directly to a binary font via fontc, the
// Rust font compiler, as an alternative engine to fontmake.
func NewFontcOp() *ShellOp {
	return NewShellOp("Fontc", "fontc {{in}} -o {{out}} {{args}}",
		[]DataKind{Path}, []DataKind{Path},
		"compile a binary font with fontc")
}

// NewFixOp runs gftools-fix-font over a compiled binary, applying Google
// Fonts' standard post-build repairs (e.g. missing OS/2 fields, DSIG table).
func NewFixOp() *ShellOp {
	return NewShellOp("Fix", "gftools-fix-font {{in}} -o {{out}} {{args}}",
		[]DataKind{Path}, []DataKind{Path},
		"apply standard post-build font repairs")
}

// NewSubsetOp produces a subset binary using fonttools' pyftsubset, keeping
// only the glyphs and codepoints named in args (e.g. "--unicodes=U+0000-00FF").
func NewSubsetOp() *ShellOp {
	return NewShellOp("Subset", "pyftsubset {{in}} --output-file={{out}} {{args}}",
		[]DataKind{Path}, []DataKind{Path},
		"produce a codepoint/glyph subset of a binary font")
}

// NewCompressOp produces a WOFF2 web font from a binary font via the
// reference woff2_compress tool, which writes its output alongside the
// input with a fixed extension; the wrapping shell command relocates it to
// the requested output path.
func NewCompressOp() *ShellOp {
	return NewShellOp("Compress",
		`tmp=$(mktemp -u --suffix=.ttf); cp {{in}} "$tmp" && woff2_compress "$tmp" && mv "${tmp%.ttf}.woff2" {{out}}; rm -f "$tmp"`,
		[]DataKind{Path}, []DataKind{Path},
		"compress a binary font to WOFF2 for web delivery")
}
