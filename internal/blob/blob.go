// Package blob stores attachment bytes outside the composer state. Keys
// are namespaced per session so a whole session's files can be released
// at once.
package blob

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key has no stored object.
var ErrNotFound = errors.New("blob not found")

// Store is the attachment byte store.
type Store interface {
	// Put stores data under key with the given content type.
	Put(ctx context.Context, key string, data []byte, contentType string) error
	// Get returns the bytes stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete removes one object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// DeletePrefix removes every object whose key starts with prefix.
	DeletePrefix(ctx context.Context, prefix string) error
	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
}

// Key builds the storage key for one attachment.
func Key(sessionID, fileID string) string {
	return sessionID + "/" + fileID
}

// SessionPrefix is the key prefix shared by all of a session's attachments.
func SessionPrefix(sessionID string) string {
	return sessionID + "/"
}
