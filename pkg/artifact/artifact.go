// Package artifact implements the polymorphic, reference-counted handle for
// data flowing along BuildGraph edges: a named file, an unnamed temporary
// file materialized on demand, raw in-memory bytes, or a rich in-memory
// domain object (e.g. a parsed font source).
package artifact

import (
	"fmt"
	"os"
	"sync"

	"github.com/fontgraph/build/pkg/bgerr"
)

// Kind identifies which variant an Artifact's contents currently hold.
type Kind int

const (
	// KindNamedFile is an externally meaningful filesystem path, durable across runs.
	KindNamedFile Kind = iota
	// KindTemporaryFile is a path in the system temp location, created lazily.
	KindTemporaryFile
	// KindInMemoryBytes is a raw byte buffer that never touches disk unless requested.
	KindInMemoryBytes
	// KindInMemoryObject is a richer in-memory structure, e.g. a parsed font source.
	KindInMemoryObject
)

func (k Kind) String() string {
	switch k {
	case KindNamedFile:
		return "NamedFile"
	case KindTemporaryFile:
		return "TemporaryFile"
	case KindInMemoryBytes:
		return "InMemoryBytes"
	case KindInMemoryObject:
		return "InMemoryObject"
	default:
		return "Unknown"
	}
}

// FontSource stands in for "a rich in-memory domain object" — concrete font
// source parsing is an external collaborator; only the serialization contract
// that lets such an object flow through an Artifact is in scope here.
type FontSource interface {
	Serialize() ([]byte, error)
}

// tempHandle owns a temp file's lifetime. It is reference-counted because the
// same Artifact may be observed (and released) by more than one holder once
// an owning Run completes; the file is removed only when the last reference
// drops, and only after readers are done — in practice, at the end of an
// orchestrator run (see pkg/orchestrator).
type tempHandle struct {
	path string

	mu   sync.Mutex
	refs int
}

func newTempHandle(path string) *tempHandle {
	return &tempHandle{path: path, refs: 1}
}

func (h *tempHandle) retain() *tempHandle {
	h.mu.Lock()
	h.refs++
	h.mu.Unlock()
	return h
}

// release decrements the refcount and removes the backing file once it hits
// zero, reporting whether it did so.
func (h *tempHandle) release() bool {
	h.mu.Lock()
	h.refs--
	drop := h.refs <= 0
	h.mu.Unlock()
	if drop {
		os.Remove(h.path)
	}
	return drop
}

// state is the immutable-per-transition payload behind the Artifact's mutex.
type state struct {
	kind Kind

	path   string // KindNamedFile, or KindTemporaryFile once materialized
	handle *tempHandle

	bytes  []byte     // KindInMemoryBytes
	object FontSource // KindInMemoryObject
}

// Artifact is a thread-safe, reference-counted cell holding one variant of
// content. Multiple holders share the same Artifact value (by pointer); a
// materialization transition (e.g. bytes -> temp file) mutates the shared
// state in place so every holder observes it (invariant I2).
type Artifact struct {
	mu sync.Mutex
	s  state
}

// NewNamedFile creates an Artifact referring to an externally meaningful path.
func NewNamedFile(path string) *Artifact {
	return &Artifact{s: state{kind: KindNamedFile, path: path}}
}

// NewTemporaryFile creates an unmaterialized temporary-file Artifact; the
// backing file is created lazily on first call to ToFilename.
func NewTemporaryFile() *Artifact {
	return &Artifact{s: state{kind: KindTemporaryFile}}
}

// NewBytes creates an Artifact holding raw in-memory bytes.
func NewBytes(b []byte) *Artifact {
	return &Artifact{s: state{kind: KindInMemoryBytes, bytes: b}}
}

// NewFontSource creates an Artifact holding a rich in-memory domain object.
func NewFontSource(obj FontSource) *Artifact {
	return &Artifact{s: state{kind: KindInMemoryObject, object: obj}}
}

// Kind returns the Artifact's current content variant.
func (a *Artifact) Kind() Kind {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.s.kind
}

// IsNamedFile reports whether the Artifact is currently a NamedFile.
func (a *Artifact) IsNamedFile() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.s.kind == KindNamedFile
}

// NamedFilePath returns the path if the Artifact is a NamedFile, else "",false.
func (a *Artifact) NamedFilePath() (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.s.kind == KindNamedFile {
		return a.s.path, true
	}
	return "", false
}

// ToFilename returns a filesystem path whose contents are this Artifact's
// data, materializing one if necessary (I3): a NamedFile returns its path
// directly; a materialized TemporaryFile returns its handle's path; an
// unmaterialized TemporaryFile creates a system temp file and retains its
// handle; InMemoryBytes creates a temp file, writes the bytes, and rewrites
// the cell into a TemporaryFile. InMemoryObject has no filename path.
func (a *Artifact) ToFilename() (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch a.s.kind {
	case KindNamedFile:
		return a.s.path, nil

	case KindTemporaryFile:
		if a.s.handle != nil {
			return a.s.handle.path, nil
		}
		f, err := os.CreateTemp("", "fontgraph-*.tmp")
		if err != nil {
			return "", bgerr.Wrap(err, bgerr.Other, "create temp file")
		}
		path := f.Name()
		f.Close()
		a.s.handle = newTempHandle(path)
		a.s.path = path
		return path, nil

	case KindInMemoryBytes:
		f, err := os.CreateTemp("", "fontgraph-*.tmp")
		if err != nil {
			return "", bgerr.Wrap(err, bgerr.Other, "create temp file")
		}
		path := f.Name()
		if _, err := f.Write(a.s.bytes); err != nil {
			f.Close()
			os.Remove(path)
			return "", bgerr.Wrap(err, bgerr.Other, "write temp file contents")
		}
		f.Close()
		a.s.kind = KindTemporaryFile
		a.s.handle = newTempHandle(path)
		a.s.path = path
		a.s.bytes = nil
		return path, nil

	default:
		return "", bgerr.Newf(bgerr.Other, "artifact kind %s has no filename", a.s.kind)
	}
}

// ToBytes reads the underlying storage as a byte slice. For a domain object
// it serializes via the object's declared serialization.
func (a *Artifact) ToBytes() ([]byte, error) {
	a.mu.Lock()
	kind := a.s.kind
	switch kind {
	case KindInMemoryBytes:
		b := a.s.bytes
		a.mu.Unlock()
		return b, nil
	case KindNamedFile:
		path := a.s.path
		a.mu.Unlock()
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, bgerr.Wrap(err, bgerr.Other, "read artifact file")
		}
		return b, nil
	case KindTemporaryFile:
		path := a.s.path
		a.mu.Unlock()
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, bgerr.Wrap(err, bgerr.Other, "read artifact temp file")
		}
		return b, nil
	case KindInMemoryObject:
		obj := a.s.object
		a.mu.Unlock()
		b, err := obj.Serialize()
		if err != nil {
			return nil, bgerr.Wrap(err, bgerr.Other, "serialize font source")
		}
		return b, nil
	default:
		a.mu.Unlock()
		return nil, bgerr.Newf(bgerr.Other, "unknown artifact kind %d", kind)
	}
}

// SetContents writes bytes to the Artifact: if it is a NamedFile, the bytes
// are written to that path; otherwise the cell is rewritten to InMemoryBytes.
func (a *Artifact) SetContents(b []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.s.kind == KindNamedFile {
		if err := os.WriteFile(a.s.path, b, 0o644); err != nil {
			return bgerr.Wrap(err, bgerr.Other, "write artifact named file")
		}
		return nil
	}

	a.releaseHandleLocked()
	a.s.kind = KindInMemoryBytes
	a.s.bytes = b
	a.s.object = nil
	return nil
}

// SetBytes unconditionally rewrites the cell to InMemoryBytes.
func (a *Artifact) SetBytes(b []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.releaseHandleLocked()
	a.s.kind = KindInMemoryBytes
	a.s.bytes = b
	a.s.object = nil
}

// SetFontSource rewrites the cell to hold a rich in-memory domain object.
func (a *Artifact) SetFontSource(obj FontSource) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.releaseHandleLocked()
	a.s.kind = KindInMemoryObject
	a.s.object = obj
	a.s.bytes = nil
}

// ToFontSource returns the domain object if this Artifact currently holds one.
func (a *Artifact) ToFontSource() (FontSource, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.s.kind == KindInMemoryObject {
		return a.s.object, true
	}
	return nil, false
}

// releaseHandleLocked drops this Artifact's reference to its current temp
// handle, if any. Caller must hold a.mu.
func (a *Artifact) releaseHandleLocked() {
	if a.s.handle != nil {
		a.s.handle.release()
		a.s.handle = nil
	}
}

// Equal implements invariant I1: two Artifacts compare equal iff their
// current contents variant and payload are equal.
func (a *Artifact) Equal(other *Artifact) bool {
	if a == other {
		return true
	}
	if a == nil || other == nil {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	other.mu.Lock()
	defer other.mu.Unlock()

	if a.s.kind != other.s.kind {
		return false
	}
	switch a.s.kind {
	case KindNamedFile:
		return a.s.path == other.s.path
	case KindTemporaryFile:
		if a.s.handle == nil && other.s.handle == nil {
			return true
		}
		if a.s.handle == nil || other.s.handle == nil {
			return false
		}
		return a.s.handle.path == other.s.handle.path
	case KindInMemoryBytes:
		return string(a.s.bytes) == string(other.s.bytes)
	case KindInMemoryObject:
		return a.s.object == other.s.object
	default:
		return false
	}
}

// Release drops this Artifact's reference to any temp file it owns. It is
// safe to call more than once and is a no-op for non-temp-file artifacts.
// The orchestrator calls this for every Artifact it touched once a run
// completes, implementing invariant I4 (deletion after all readers finish).
func (a *Artifact) Release() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.s.handle != nil && a.s.handle.release() {
		a.s.handle = nil
	}
}

// String renders a short human label, used by graph rendering (§4.1.5).
func (a *Artifact) String() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch a.s.kind {
	case KindNamedFile:
		return fmt.Sprintf("file:%s", a.s.path)
	case KindTemporaryFile:
		if a.s.handle != nil {
			return fmt.Sprintf("tmp:%s", a.s.handle.path)
		}
		return "tmp:<unmaterialized>"
	case KindInMemoryBytes:
		return fmt.Sprintf("bytes:%dB", len(a.s.bytes))
	case KindInMemoryObject:
		return "object:<font-source>"
	default:
		return "artifact:<unknown>"
	}
}

// Retain extends the lifetime of this Artifact's temp handle, if any, by
// another owner. Used when an Artifact's handle must outlive a single
// orchestrator Release pass (e.g. deliberately kept across multiple runs).
func (a *Artifact) Retain() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.s.handle != nil {
		a.s.handle.retain()
	}
}
