package ports

import "context"

// SessionStore is a keyed document store for challenge session state.
// Values are serialized as JSON; callers pass the concrete aggregate to
// read into or write from, which keeps the store generic across the
// payment session and instrument session document types.
type SessionStore interface {
	// Get reads the document stored under id into out.
	// Returns a not-found domain error when no document exists.
	Get(ctx context.Context, id string, out any) error

	// Create stores a new document under id. Fails on conflict.
	Create(ctx context.Context, id string, v any) error

	// Update replaces the document stored under id.
	Update(ctx context.Context, id string, v any) error

	// Upsert stores the document under id, replacing any existing one.
	Upsert(ctx context.Context, id string, v any) error
}
