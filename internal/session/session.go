// Package session tracks live composer sessions. A session exists while
// its registry entry has not expired; every request against it slides the
// expiry forward.
package session

import (
	"context"
	"time"
)

// Store is the registry backend. Entries carry a TTL; Touch extends it,
// Lookup checks liveness without extending.
type Store interface {
	// SaveSession registers a new session id with the given TTL.
	SaveSession(ctx context.Context, sessionID string, ttl time.Duration) error
	// TouchSession extends a live session's TTL and reports whether the
	// session was still alive.
	TouchSession(ctx context.Context, sessionID string, ttl time.Duration) (bool, error)
	// LookupSession reports whether the session is alive without
	// extending its TTL.
	LookupSession(ctx context.Context, sessionID string) (bool, error)
	// RevokeSession removes a session. Revoking an unknown id is not an
	// error.
	RevokeSession(ctx context.Context, sessionID string) error
	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
	// Close releases backend resources.
	Close() error
}
