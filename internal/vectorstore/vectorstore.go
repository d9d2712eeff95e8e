// Package vectorstore defines the narrow contract Berry has with its backing
// vector database: scalar-only metadata, get/delete by ID, predicate listing
// and a capped similarity query. Swapping backends means reimplementing only
// this interface.
package vectorstore

import "context"

// Record is the wire shape handed to a backend. Metadata values must be
// string, float64 or bool; set-valued domain fields arrive here already
// JSON-encoded by the storage adapter.
type Record struct {
	ID       string
	Content  string
	Metadata map[string]interface{}
}

// Store is the sole point of contact with a vector backend.
//
// Get returns model.ErrNotFound (wrapped) when the ID is absent. Connectivity
// failures wrap model.ErrBackendUnavailable and are never conflated with an
// empty result set.
type Store interface {
	// Upsert writes or overwrites a record and its embedded content.
	Upsert(ctx context.Context, rec Record) error
	// Get fetches one record by ID.
	Get(ctx context.Context, id string) (*Record, error)
	// Delete removes a record by ID. Deleting an absent ID is not an error.
	Delete(ctx context.Context, id string) error
	// List returns up to limit records matching where, in backend order.
	List(ctx context.Context, where *Where, limit int) ([]Record, error)
	// Query runs a similarity search over record content, pre-filtered by
	// where, returning up to limit records ranked best-first. vec is an
	// optional embedding of query; backends may ignore it.
	Query(ctx context.Context, query string, vec []float32, where *Where, limit int) ([]Record, error)
}

// HealthPinger is optionally implemented by a Store to expose a liveness
// probe. Returns nil when healthy.
type HealthPinger interface {
	HealthPing(ctx context.Context) error
}
