package session

import "context"

// Store holds per-conversation sessions keyed by an opaque identifier.
// Sessions are ephemeral: any session untouched for longer than the
// configured timeout is evicted, and its identifier is treated as
// unknown afterwards.
type Store interface {
	// GetOrCreate returns the session for id, refreshing its
	// last-activity timestamp. An empty, unknown or expired id yields a
	// brand-new session under a freshly generated identifier.
	GetOrCreate(ctx context.Context, id string) (*Session, error)

	// Get returns the session for id or ErrNotFound.
	Get(ctx context.Context, id string) (*Session, error)

	// Save persists the session after a turn.
	Save(ctx context.Context, s *Session) error

	// Reset restores a session to fresh defaults, preserving its
	// identifier and clearing history. Unknown ids are a silent no-op.
	Reset(ctx context.Context, id string) error

	// Stats reports active session and message counts.
	Stats(ctx context.Context) (Stats, error)

	// Close releases any resources held by the store.
	Close() error
}
