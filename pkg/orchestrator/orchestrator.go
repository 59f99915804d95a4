// Package orchestrator implements the async engine that walks a completed
// BuildGraph from its sinks backward, triggers each node exactly once,
// awaits its in-edges, and executes it under a global concurrency permit.
package orchestrator

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/fontgraph/build/pkg/artifact"
	"github.com/fontgraph/build/pkg/bgerr"
	"github.com/fontgraph/build/pkg/buildgraph"
	"github.com/fontgraph/build/pkg/logging"
	"github.com/fontgraph/build/pkg/operation"
)

// Reporter receives build lifecycle notifications. All methods may be
// called concurrently from multiple goroutines. A nil Reporter disables
// reporting. See pkg/web for an SSE-backed implementation.
type Reporter interface {
	NodeTriggered(runID string, node *buildgraph.Node)
	NodeStarted(runID string, node *buildgraph.Node)
	NodeFinished(runID string, node *buildgraph.Node, err error)
	RunComplete(runID string, err error)
}

// Options configures a Run.
type Options struct {
	// JobLimit bounds the number of concurrent Operation.Execute calls.
	JobLimit int64
	// SkipCycleCheck disables the optional O(V+E) acyclicity guard.
	SkipCycleCheck bool
	// Reporter, if non-nil, receives lifecycle notifications.
	Reporter Reporter
}

// nodeFuture is a cloneable handle to a single node's in-flight or completed
// build. Its entry-or-insert into runContext.futures is the sole
// deduplication point: concurrent trigger() calls for the same node all
// observe the same *nodeFuture.
type nodeFuture struct {
	done chan struct{}
	err  error
}

func newNodeFuture() *nodeFuture {
	return &nodeFuture{done: make(chan struct{})}
}

func (f *nodeFuture) wait(ctx context.Context) error {
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *nodeFuture) resolve(err error) {
	f.err = err
	close(f.done)
}

type runContext struct {
	graph    *buildgraph.Graph
	sem      *semaphore.Weighted
	reporter Reporter
	runID    string

	mu       sync.Mutex
	futures  map[buildgraph.NodeID]*nodeFuture
	consoleMu sync.Mutex
}

// Run is the orchestrator's single entry point. It consumes graph
// read-only for scheduling; Artifacts on edges are mutated internally as
// operations materialize or produce data. On return, every Artifact this
// run touched has had its temp-file reference released (invariant I4).
func Run(ctx context.Context, g *buildgraph.Graph, opts Options) error {
	if opts.JobLimit <= 0 {
		opts.JobLimit = 1
	}

	if !opts.SkipCycleCheck {
		if cyc := g.DetectCycles(); len(cyc) > 0 {
			return bgerr.Newf(bgerr.InvalidRecipe, "graph contains %d cycle(s), e.g. involving node %d", len(cyc), cyc[0][0])
		}
	}

	rc := &runContext{
		graph:    g,
		sem:      semaphore.NewWeighted(opts.JobLimit),
		reporter: opts.Reporter,
		runID:    uuid.NewString(),
		futures:  make(map[buildgraph.NodeID]*nodeFuture),
	}

	// A plain errgroup.Group (not WithContext) is used here deliberately: its
	// zero value still collects the first returned error from eg.Wait(), but
	// does not derive a cancelable context. An already-triggered sibling
	// node must keep running to natural completion after another sibling
	// fails, not be aborted mid-flight — the job-limit semaphore below is
	// acquired against the caller's own ctx, never one canceled by a
	// sibling's error.
	var eg errgroup.Group
	for _, sink := range g.Sinks() {
		sink := sink
		eg.Go(func() error {
			return rc.trigger(ctx, sink)
		})
	}

	err := eg.Wait()
	g.ReleaseArtifacts()

	if rc.reporter != nil {
		rc.reporter.RunComplete(rc.runID, err)
	}
	return err
}

// trigger registers a shared future for node exactly once, spawning its
// build on the first registration, then awaits it.
func (rc *runContext) trigger(ctx context.Context, node buildgraph.NodeID) error {
	rc.mu.Lock()
	f, exists := rc.futures[node]
	if !exists {
		f = newNodeFuture()
		rc.futures[node] = f
		if rc.reporter != nil {
			rc.reporter.NodeTriggered(rc.runID, rc.graph.Node(node))
		}
		go rc.spawnBuild(ctx, node, f)
	}
	rc.mu.Unlock()

	return f.wait(ctx)
}

// spawnBuild awaits node's in-edges, then executes it under the semaphore.
func (rc *runContext) spawnBuild(ctx context.Context, id buildgraph.NodeID, f *nodeFuture) {
	n := rc.graph.Node(id)
	if n == nil {
		f.resolve(bgerr.Newf(bgerr.Other, "node %d not found", id))
		return
	}

	outputs := rc.collectOutputs(id)
	inputs, err := rc.awaitInputs(ctx, id)
	if err != nil {
		f.resolve(err)
		return
	}

	err = rc.execute(ctx, n, inputs, outputs)
	f.resolve(err)
}

// collectOutputs builds the outputs vector indexed by output_slot: for each
// slot, the artifact of the (unique) outgoing edge tagged that slot. The
// vector is sized to max_slot+1; broadcast guarantees every edge sharing a
// slot carries the same Artifact.
func (rc *runContext) collectOutputs(id buildgraph.NodeID) []*artifact.Artifact {
	edges := rc.graph.OutEdges(id)
	maxSlot := -1
	for _, e := range edges {
		if e.OutputSlot > maxSlot {
			maxSlot = e.OutputSlot
		}
	}
	if maxSlot < 0 {
		return nil
	}
	outputs := make([]*artifact.Artifact, maxSlot+1)
	for _, e := range edges {
		if outputs[e.OutputSlot] == nil {
			outputs[e.OutputSlot] = e.Output
		}
	}
	return outputs
}

// awaitInputs triggers every predecessor concurrently, waits for all of
// them, and returns their artifacts indexed by the edge's slot (which
// doubles as the consumer's input-slot index).
func (rc *runContext) awaitInputs(ctx context.Context, id buildgraph.NodeID) ([]*artifact.Artifact, error) {
	edges := rc.graph.InEdges(id)
	if len(edges) == 0 {
		return nil, nil
	}

	maxSlot := -1
	for _, e := range edges {
		if e.OutputSlot > maxSlot {
			maxSlot = e.OutputSlot
		}
	}
	inputs := make([]*artifact.Artifact, maxSlot+1)
	for _, e := range edges {
		if inputs[e.OutputSlot] == nil {
			inputs[e.OutputSlot] = e.Output
		}
	}

	// Same reasoning as in Run: a plain errgroup.Group, so one predecessor's
	// failure doesn't cancel a sibling predecessor that's already executing.
	var eg errgroup.Group
	for _, e := range edges {
		e := e
		eg.Go(func() error {
			return rc.trigger(ctx, e.From)
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return inputs, nil
}

// execute runs the node's operation under the job-limit semaphore. Permits
// serialize only the body of Execute; graph traversal, future awaiting, and
// Artifact materialization above run without permits.
func (rc *runContext) execute(ctx context.Context, n *buildgraph.Node, inputs, outputs []*artifact.Artifact) error {
	if err := rc.sem.Acquire(ctx, 1); err != nil {
		return bgerr.Wrap(err, bgerr.Other, "acquire job permit")
	}
	defer rc.sem.Release(1)

	if rc.reporter != nil {
		rc.reporter.NodeStarted(rc.runID, n)
	}
	if !n.Op.Hidden() {
		rc.logStart(n)
	}

	result, err := n.Op.Execute(ctx, inputs, outputs)
	if err == nil && !result.Success() {
		err = bgerr.Newf(bgerr.Build, "%s exited %d", n.Op.Shortname(), result.ExitCode)
	}
	if err != nil && len(result.Stdout)+len(result.Stderr) > 0 {
		rc.logFailureOutput(n, result)
	}

	if rc.reporter != nil {
		rc.reporter.NodeFinished(rc.runID, n, err)
	}
	return err
}

func (rc *runContext) logStart(n *buildgraph.Node) {
	rc.consoleMu.Lock()
	defer rc.consoleMu.Unlock()
	logging.Info("build step", "op", n.Op.Shortname(), "description", n.Op.Description())
}

func (rc *runContext) logFailureOutput(n *buildgraph.Node, result operation.ExecResult) {
	rc.consoleMu.Lock()
	defer rc.consoleMu.Unlock()
	logging.Error("build step failed",
		"op", n.Op.Shortname(),
		"exitCode", result.ExitCode,
		"stdout", string(result.Stdout),
		"stderr", string(result.Stderr),
	)
}
