package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/fontgraph/build/pkg/logging"
)

// ChangeType classifies a detected source file change.
type ChangeType int

const (
	// ChangeTypeDesignspace covers *.designspace files, which enumerate an
	// entire source family and so require rebuilding every target derived
	// from it.
	ChangeTypeDesignspace ChangeType = iota
	// ChangeTypeGlyphSource covers *.glyphs and *.ufo source edits.
	ChangeTypeGlyphSource
	// ChangeTypeOther covers any other tracked file (feature files, etc.).
	ChangeTypeOther
)

// ChangeEvent represents a batch of file system changes of the same type.
type ChangeEvent struct {
	Type      ChangeType
	Paths     []string
	Timestamp time.Time
}

// FileWatcher watches a font source tree for edits to glyph sources,
// designspace files, and UFO directories.
type FileWatcher struct {
	watcher   *fsnotify.Watcher
	workspace string
	events    chan ChangeEvent
	done      chan struct{}
	mu        sync.Mutex
}

// NewFileWatcher creates a new file system watcher rooted at workspace.
func NewFileWatcher(workspace string) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	fw := &FileWatcher{
		watcher:   watcher,
		workspace: workspace,
		events:    make(chan ChangeEvent, 100),
		done:      make(chan struct{}),
	}

	return fw, nil
}

// Start begins watching for file changes.
func (fw *FileWatcher) Start(ctx context.Context) error {
	if err := fw.watchSourceDirs(); err != nil {
		logging.Warn("failed to watch source directories", "error", err)
	}

	logging.Info("started watching workspace", "path", fw.workspace)

	go fw.processEvents(ctx)

	return nil
}

// watchSourceDirs walks the workspace and adds every directory containing a
// tracked source file (.glyphs, .designspace, or a .ufo package directory)
// to the underlying fsnotify watcher. fsnotify watches are non-recursive, so
// each relevant directory must be registered individually.
func (fw *FileWatcher) watchSourceDirs() error {
	dirs := make(map[string]bool)

	err := filepath.Walk(fw.workspace, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip files we can't access
		}

		if info.IsDir() && strings.HasSuffix(info.Name(), ".ufo") {
			dirs[path] = true
			return filepath.SkipDir
		}

		if !info.IsDir() && isTrackedSource(path) {
			dirs[filepath.Dir(path)] = true
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk workspace: %w", err)
	}

	for dir := range dirs {
		if err := fw.watcher.Add(dir); err != nil {
			logging.Warn("failed to watch directory", "path", dir, "error", err)
		}
	}

	logging.Info("monitoring directories for source changes", "count", len(dirs))
	return nil
}

func isTrackedSource(path string) bool {
	switch {
	case strings.HasSuffix(path, ".glyphs"):
		return true
	case strings.HasSuffix(path, ".designspace"):
		return true
	case strings.HasSuffix(path, ".fea"):
		return true
	case strings.Contains(path, ".ufo"+string(filepath.Separator)):
		return true
	default:
		return false
	}
}

func classify(path string) ChangeType {
	switch {
	case strings.HasSuffix(path, ".designspace"):
		return ChangeTypeDesignspace
	case strings.HasSuffix(path, ".glyphs"), strings.Contains(path, ".ufo"+string(filepath.Separator)):
		return ChangeTypeGlyphSource
	default:
		return ChangeTypeOther
	}
}

// processEvents batches raw fsnotify events by ChangeType and flushes them
// on a short idle timer, so a save-storm from an editor collapses into one
// ChangeEvent per type instead of one per file.
func (fw *FileWatcher) processEvents(ctx context.Context) {
	batches := map[ChangeType][]string{}

	flushTimer := time.NewTimer(100 * time.Millisecond)
	flushTimer.Stop()

	flush := func() {
		for _, t := range []ChangeType{ChangeTypeDesignspace, ChangeTypeGlyphSource, ChangeTypeOther} {
			if paths := batches[t]; len(paths) > 0 {
				fw.events <- ChangeEvent{Type: t, Paths: paths, Timestamp: time.Now()}
				delete(batches, t)
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			fw.watcher.Close()
			close(fw.events)
			close(fw.done)
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if isTrackedSource(event.Name) {
				t := classify(event.Name)
				batches[t] = append(batches[t], event.Name)
				flushTimer.Reset(100 * time.Millisecond)
			}

		case <-flushTimer.C:
			flush()

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("watcher error", "error", err)
		}
	}
}

// Events returns the channel of change events.
func (fw *FileWatcher) Events() <-chan ChangeEvent {
	return fw.events
}

// Stop stops the file watcher.
func (fw *FileWatcher) Stop() error {
	close(fw.done)
	return fw.watcher.Close()
}
