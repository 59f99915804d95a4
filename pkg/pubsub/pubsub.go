package pubsub

import (
	"context"
	"encoding/json"
)

// Event represents a pub/sub event
type Event struct {
	Topic   string          `json:"topic"`   // Subscription topic (e.g., "build_status", "graph")
	Type    string          `json:"type"`    // Event type (e.g., "node_triggered", "node_started", "node_finished", "run_complete")
	Data    json.RawMessage `json:"data"`    // Event payload
	Version int             `json:"version"` // Version number for ordering
}

// Subscription represents a client subscription to a topic
type Subscription interface {
	// Topic returns the subscription topic
	Topic() string

	// Events returns a channel for receiving events
	Events() <-chan Event

	// Close closes the subscription
	Close() error
}

// Publisher manages pub/sub subscriptions and event publishing
type Publisher interface {
	// Subscribe creates a new subscription to a topic
	// Context cancellation will close the subscription
	Subscribe(ctx context.Context, topic string) (Subscription, error)

	// Publish sends an event to all subscribers of a topic
	Publish(topic string, eventType string, data interface{}) error

	// Close shuts down the publisher and all subscriptions
	Close() error
}

// BuildStatus represents the overall state of a single orchestrator Run.
type BuildStatus struct {
	RunID   string `json:"run_id"`
	State   string `json:"state"`   // running, succeeded, failed
	Message string `json:"message"` // Human-readable status message
}

// NodeEvent reports a single node lifecycle transition within a run,
// published on the "build_status" topic as nodes are triggered, started,
// and finished by the orchestrator.
type NodeEvent struct {
	RunID       string `json:"run_id"`
	NodeID      int64  `json:"node_id"`
	Shortname   string `json:"shortname"`
	Description string `json:"description"`
	Error       string `json:"error,omitempty"`
}

// GraphSummary represents a snapshot of the build graph's shape, published
// on the "graph" topic whenever a recipe finishes construction.
type GraphSummary struct {
	Nodes   int `json:"nodes"`
	Edges   int `json:"edges"`
	Targets int `json:"targets"`
}
