// Package cache implements the offline cache controller: versioned cache
// generations, the install/activate lifecycle, and the per-request-class
// fetch policies applied in front of the static content origin.
package cache

import "context"

// Entry is one cached response.
type Entry struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Store persists cache generations. Exactly one generation is live at a
// time; activation reclaims every other one.
type Store interface {
	// Open creates the generation if it does not exist yet.
	Open(ctx context.Context, generation string) error

	// Put stores or replaces the entry for a URL inside a generation.
	Put(ctx context.Context, generation, url string, e *Entry) error

	// Get returns the cached entry for a URL, or nil if none exists. It
	// returns an error only for store failures, not for cache misses.
	Get(ctx context.Context, generation, url string) (*Entry, error)

	// Generations lists every generation currently held by the store.
	Generations(ctx context.Context) ([]string, error)

	// Delete removes a whole generation and everything in it.
	Delete(ctx context.Context, generation string) error
}
