// Command fontgraphd demonstrates the build graph engine end to end: it
// loads a YAML recipe (or, without --recipe, constructs a small demo
// graph), runs it through the orchestrator, and
// optionally serves a live status dashboard and watches the workspace for
// source changes.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/spf13/pflag"

	"github.com/fontgraph/build/pkg/buildgraph"
	"github.com/fontgraph/build/pkg/config"
	"github.com/fontgraph/build/pkg/logging"
	"github.com/fontgraph/build/pkg/orchestrator"
	"github.com/fontgraph/build/pkg/recipe"
	"github.com/fontgraph/build/pkg/watcher"
	"github.com/fontgraph/build/pkg/web"
)

func main() {
	fs := pflag.NewFlagSet("fontgraphd", pflag.ExitOnError)
	fs.String("workspace", ".", "Path to the workspace root")
	fs.Bool("web", false, "Start the status dashboard instead of exiting after the build")
	fs.Int("port", 8080, "Port for the status dashboard (only used with --web)")
	fs.Bool("watch", false, "Watch the workspace for source changes and rebuild automatically")
	fs.Bool("open", true, "Automatically open a browser when starting the dashboard")
	fs.Int64("jobs", 4, "Maximum number of operations to execute concurrently")
	recipePath := fs.String("recipe", "", "Path to a YAML recipe file (defaults to the built-in demo graph)")
	fs.Parse(os.Args[1:])

	cfg, err := config.Load(fs)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	runner := newBuildRunner(cfg.Workspace, cfg.JobLimit, *recipePath)

	if !cfg.WebMode {
		if err := runner.Run(context.Background(), "manual run"); err != nil {
			log.Fatalf("build failed: %v", err)
		}
		return
	}

	server := web.NewServer()
	runner.reporter = server

	url := fmt.Sprintf("http://localhost:%d", cfg.Port)
	fmt.Printf("Starting status dashboard on %s\n", url)

	go func() {
		if err := server.Start(cfg.Port); err != nil {
			log.Fatalf("dashboard failed: %v", err)
		}
	}()

	time.Sleep(500 * time.Millisecond)
	if cfg.OpenBrowser {
		openBrowser(url)
	}

	ctx := context.Background()
	go func() {
		if err := runner.Run(ctx, "initial build"); err != nil {
			log.Printf("initial build failed: %v", err)
		}
		if cfg.Watch {
			startFileWatcher(ctx, cfg.Workspace, runner)
		}
	}()

	select {}
}

// buildRunner constructs the build graph and drives it through the
// orchestrator, serializing concurrent runs and reporting to an optional
// dashboard.
type buildRunner struct {
	workspace  string
	jobLimit   int64
	recipePath string
	reporter   orchestrator.Reporter

	mu sync.Mutex
}

func newBuildRunner(workspace string, jobLimit int64, recipePath string) *buildRunner {
	return &buildRunner{workspace: workspace, jobLimit: jobLimit, recipePath: recipePath}
}

func (r *buildRunner) Run(ctx context.Context, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	logging.Info("starting build", "reason", reason)

	g, err := r.buildGraph()
	if err != nil {
		return err
	}

	if srv, ok := r.reporter.(interface{ SetGraph(*buildgraph.Graph) }); ok {
		srv.SetGraph(g)
	}

	if err := g.EnsureDirectories(); err != nil {
		return err
	}

	err = orchestrator.Run(ctx, g, orchestrator.Options{
		JobLimit: r.jobLimit,
		Reporter: r.reporter,
	})
	if err != nil {
		logging.Error("build failed", "error", err)
		return err
	}

	logging.Info("build complete")
	return nil
}

// buildGraph loads a user-authored YAML recipe when one was configured,
// falling back to the built-in demo graph otherwise.
func (r *buildRunner) buildGraph() (*buildgraph.Graph, error) {
	if r.recipePath == "" {
		return recipe.DemoGraph("source/font.glyphs")
	}

	rec, err := recipe.Load(r.recipePath)
	if err != nil {
		return nil, err
	}
	return rec.BuildGraph(nil)
}

func startFileWatcher(ctx context.Context, workspace string, runner *buildRunner) {
	logging.Info("starting file watcher")

	fw, err := watcher.NewFileWatcher(workspace)
	if err != nil {
		logging.Error("create file watcher", "error", err)
		return
	}
	if err := fw.Start(ctx); err != nil {
		logging.Error("start file watcher", "error", err)
		return
	}

	debouncer := watcher.NewDebouncer(fw.Events(), 1500*time.Millisecond, 10*time.Second)
	debouncer.Start(ctx)

	logging.Info("file watcher active")

	go func() {
		for event := range debouncer.Output() {
			analysis := watcher.AnalyzeChanges(event)
			reason := formatReason(event, analysis)
			logging.Info("change detected, rebuilding", "reason", reason, "files", len(event.Paths))
			if err := runner.Run(ctx, reason); err != nil {
				logging.Error("rebuild failed", "error", err)
			}
		}
	}()
}

func formatReason(event watcher.ChangeEvent, analysis *watcher.ChangeAnalysis) string {
	if analysis.NeedFullRebuild {
		return "designspace changed, full rebuild"
	}
	switch event.Type {
	case watcher.ChangeTypeGlyphSource:
		return "glyph source changed"
	default:
		return "source files changed"
	}
}

func openBrowser(url string) {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
		args = []string{url}
	case "linux":
		cmd = "xdg-open"
		args = []string{url}
	case "windows":
		cmd = "cmd"
		args = []string{"/c", "start", url}
	default:
		logging.Warn("cannot open browser on platform", "os", runtime.GOOS)
		return
	}

	if err := exec.Command(cmd, args...).Start(); err != nil {
		logging.Warn("failed to open browser", "error", err)
	}
}
