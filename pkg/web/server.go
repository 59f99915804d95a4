package web

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/mux"

	"github.com/fontgraph/build/pkg/buildgraph"
	"github.com/fontgraph/build/pkg/logging"
	"github.com/fontgraph/build/pkg/pubsub"
)

//go:embed static/*
var staticFiles embed.FS

// Server is a small status dashboard: it serves the current build graph as
// DOT, a JSON summary of its node/edge/target counts, and streams node
// lifecycle events over SSE as the orchestrator
// runs. It implements orchestrator.Reporter directly so a daemon can wire
// its Options.Reporter straight to a *Server.
type Server struct {
	router    *mux.Router
	publisher *pubsub.SSEPublisher

	mu    sync.RWMutex
	graph *buildgraph.Graph
}

// NewServer creates a web server with its routes wired.
func NewServer() *Server {
	pub := pubsub.NewSSEPublisher()

	// build_status: buffer a short backlog so a dashboard that connects
	// mid-run still sees the most recent transitions.
	pub.ConfigureTopic("build_status", pubsub.TopicConfig{
		BufferSize: 50,
		ReplayAll:  true,
	})
	// graph: only the latest snapshot matters to a new subscriber.
	pub.ConfigureTopic("graph", pubsub.TopicConfig{
		BufferSize: 1,
		ReplayAll:  false,
	})

	s := &Server{
		router:    mux.NewRouter(),
		publisher: pub,
	}
	s.setupRoutes()
	return s
}

// SetGraph stores the graph to serve from /api/graph and /api/graph.dot, and
// publishes a fresh summary to subscribers of the "graph" topic.
func (s *Server) SetGraph(g *buildgraph.Graph) {
	s.mu.Lock()
	s.graph = g
	s.mu.Unlock()

	summary := pubsub.GraphSummary{
		Nodes:   len(g.Nodes()),
		Targets: targetCount(g),
	}
	for _, n := range g.Nodes() {
		summary.Edges += len(g.OutEdges(n.ID))
	}
	if err := s.publisher.Publish("graph", "updated", summary); err != nil {
		logging.Warn("publish graph summary", "error", err)
	}
}

func targetCount(g *buildgraph.Graph) int {
	count := 0
	for _, n := range g.Nodes() {
		if n.Kind == buildgraph.NodeSink {
			count++
		}
	}
	return count
}

// NodeTriggered implements orchestrator.Reporter.
func (s *Server) NodeTriggered(runID string, node *buildgraph.Node) {
	s.publishNodeEvent("node_triggered", runID, node, nil)
}

// NodeStarted implements orchestrator.Reporter.
func (s *Server) NodeStarted(runID string, node *buildgraph.Node) {
	s.publishNodeEvent("node_started", runID, node, nil)
}

// NodeFinished implements orchestrator.Reporter.
func (s *Server) NodeFinished(runID string, node *buildgraph.Node, err error) {
	s.publishNodeEvent("node_finished", runID, node, err)
}

// RunComplete implements orchestrator.Reporter.
func (s *Server) RunComplete(runID string, err error) {
	status := pubsub.BuildStatus{RunID: runID, State: "succeeded", Message: "run complete"}
	if err != nil {
		status.State = "failed"
		status.Message = err.Error()
	}
	if pubErr := s.publisher.Publish("build_status", "run_complete", status); pubErr != nil {
		logging.Warn("publish build status", "error", pubErr)
	}
}

func (s *Server) publishNodeEvent(eventType, runID string, node *buildgraph.Node, err error) {
	ev := pubsub.NodeEvent{RunID: runID, NodeID: int64(node.ID)}
	if node.Op != nil {
		ev.Shortname = node.Op.Shortname()
		ev.Description = node.Op.Description()
	}
	if err != nil {
		ev.Error = err.Error()
	}
	if pubErr := s.publisher.Publish("build_status", eventType, ev); pubErr != nil {
		logging.Warn("publish node event", "error", pubErr)
	}
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/api/subscribe/build_status", s.handleSubscribe("build_status")).Methods("GET")
	s.router.HandleFunc("/api/subscribe/graph", s.handleSubscribe("graph")).Methods("GET")
	s.router.HandleFunc("/api/graph", s.handleGraphJSON).Methods("GET", "HEAD")
	s.router.HandleFunc("/api/graph.dot", s.handleGraphDOT).Methods("GET")

	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		log.Fatal(err)
	}
	s.router.PathPrefix("/").Handler(http.FileServer(http.FS(staticFS)))
}

func (s *Server) handleSubscribe(topic string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("Access-Control-Allow-Origin", "*")

		fmt.Fprintf(w, ": connected\n\n")
		if flusher, ok := w.(http.Flusher); ok {
			flusher.Flush()
		}

		sub, err := s.publisher.Subscribe(r.Context(), topic)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		defer sub.Close()

		for event := range sub.Events() {
			if err := pubsub.WriteSSE(w, event); err != nil {
				logging.Warn("write sse event", "error", err)
				return
			}
			if flusher, ok := w.(http.Flusher); ok {
				flusher.Flush()
			}
		}
	}
}

func (s *Server) handleGraphJSON(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	g := s.graph
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	if g == nil {
		json.NewEncoder(w).Encode(pubsub.GraphSummary{})
		return
	}

	summary := pubsub.GraphSummary{Nodes: len(g.Nodes()), Targets: targetCount(g)}
	for _, n := range g.Nodes() {
		summary.Edges += len(g.OutEdges(n.ID))
	}
	json.NewEncoder(w).Encode(summary)
}

func (s *Server) handleGraphDOT(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	g := s.graph
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "text/vnd.graphviz")
	if g == nil {
		http.Error(w, "graph not available", http.StatusServiceUnavailable)
		return
	}
	fmt.Fprint(w, g.RenderDOT())
}

// Start starts the web server on the specified port.
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	logging.Info("starting web server", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}
