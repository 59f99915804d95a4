package artifact

import (
	"os"
	"testing"
)

type fakeFontSource struct {
	payload string
}

func (f *fakeFontSource) Serialize() ([]byte, error) {
	return []byte(f.payload), nil
}

func TestNewNamedFile(t *testing.T) {
	a := NewNamedFile("build/font.ttf")

	if a.Kind() != KindNamedFile {
		t.Errorf("Kind() = %v, want KindNamedFile", a.Kind())
	}

	path, ok := a.NamedFilePath()
	if !ok || path != "build/font.ttf" {
		t.Errorf("NamedFilePath() = (%q, %v), want (\"build/font.ttf\", true)", path, ok)
	}
}

func TestToFilenameMaterializesTemporaryFile(t *testing.T) {
	a := NewTemporaryFile()

	path, err := a.ToFilename()
	if err != nil {
		t.Fatalf("ToFilename() error = %v", err)
	}
	defer os.Remove(path)

	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected materialized temp file at %s, stat error = %v", path, err)
	}

	// Invariant I3: a second call returns the same path without recreating it.
	again, err := a.ToFilename()
	if err != nil {
		t.Fatalf("second ToFilename() error = %v", err)
	}
	if again != path {
		t.Errorf("ToFilename() not stable across calls: %s != %s", again, path)
	}
}

func TestToFilenameMaterializesBytes(t *testing.T) {
	a := NewBytes([]byte("hello"))

	path, err := a.ToFilename()
	if err != nil {
		t.Fatalf("ToFilename() error = %v", err)
	}
	defer os.Remove(path)

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile(%s) error = %v", path, err)
	}
	if string(got) != "hello" {
		t.Errorf("file contents = %q, want %q", got, "hello")
	}

	// Bytes kind transitions to TemporaryFile once materialized.
	if a.Kind() != KindTemporaryFile {
		t.Errorf("Kind() after materialization = %v, want KindTemporaryFile", a.Kind())
	}
}

func TestToBytesFromNamedFile(t *testing.T) {
	f, err := os.CreateTemp("", "fontgraph-test-*.txt")
	if err != nil {
		t.Fatalf("CreateTemp() error = %v", err)
	}
	defer os.Remove(f.Name())
	if _, err := f.WriteString("contents"); err != nil {
		t.Fatalf("WriteString() error = %v", err)
	}
	f.Close()

	a := NewNamedFile(f.Name())
	b, err := a.ToBytes()
	if err != nil {
		t.Fatalf("ToBytes() error = %v", err)
	}
	if string(b) != "contents" {
		t.Errorf("ToBytes() = %q, want %q", b, "contents")
	}
}

func TestToBytesFromFontSource(t *testing.T) {
	a := NewFontSource(&fakeFontSource{payload: "glyphs"})

	b, err := a.ToBytes()
	if err != nil {
		t.Fatalf("ToBytes() error = %v", err)
	}
	if string(b) != "glyphs" {
		t.Errorf("ToBytes() = %q, want %q", b, "glyphs")
	}
}

func TestSetContentsOnNamedFileWritesThroughToPath(t *testing.T) {
	f, err := os.CreateTemp("", "fontgraph-test-*.txt")
	if err != nil {
		t.Fatalf("CreateTemp() error = %v", err)
	}
	defer os.Remove(f.Name())
	f.Close()

	a := NewNamedFile(f.Name())
	if err := a.SetContents([]byte("updated")); err != nil {
		t.Fatalf("SetContents() error = %v", err)
	}

	got, err := os.ReadFile(f.Name())
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(got) != "updated" {
		t.Errorf("file contents = %q, want %q", got, "updated")
	}
	if a.Kind() != KindNamedFile {
		t.Errorf("Kind() after SetContents on a NamedFile = %v, want KindNamedFile", a.Kind())
	}
}

func TestEqualNamedFile(t *testing.T) {
	a := NewNamedFile("build/font.ttf")
	b := NewNamedFile("build/font.ttf")
	c := NewNamedFile("build/other.ttf")

	if !a.Equal(b) {
		t.Error("expected two NamedFiles with the same path to be Equal")
	}
	if a.Equal(c) {
		t.Error("expected NamedFiles with different paths to not be Equal")
	}
}

func TestEqualDifferentKinds(t *testing.T) {
	a := NewNamedFile("build/font.ttf")
	b := NewBytes([]byte("build/font.ttf"))

	if a.Equal(b) {
		t.Error("expected artifacts of different Kind to never be Equal, regardless of payload")
	}
}

func TestEqualInMemoryBytes(t *testing.T) {
	a := NewBytes([]byte("same"))
	b := NewBytes([]byte("same"))
	c := NewBytes([]byte("different"))

	if !a.Equal(b) {
		t.Error("expected InMemoryBytes with equal payloads to be Equal")
	}
	if a.Equal(c) {
		t.Error("expected InMemoryBytes with different payloads to not be Equal")
	}
}

func TestReleaseRemovesTempFile(t *testing.T) {
	a := NewTemporaryFile()
	path, err := a.ToFilename()
	if err != nil {
		t.Fatalf("ToFilename() error = %v", err)
	}

	a.Release()

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected temp file %s to be removed after Release(), stat error = %v", path, err)
	}
}

func TestRetainDelaysRemovalUntilAllRefsReleased(t *testing.T) {
	a := NewTemporaryFile()
	path, err := a.ToFilename()
	if err != nil {
		t.Fatalf("ToFilename() error = %v", err)
	}

	a.Retain()
	a.Release() // first release: handle still retained once more

	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected temp file to survive the first Release() after a Retain(), stat error = %v", err)
	}

	a.Release() // second release: refcount reaches zero

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected temp file to be removed after the matching Release(), stat error = %v", err)
	}
}
