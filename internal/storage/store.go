// Package storage persists session documents. The whole document is the
// transactional unit: writers read a version, mutate a copy, and swap it back
// with a compare-and-set, so every mutation is serialized against a single
// writer without in-process locks.
package storage

import (
	"context"
	"errors"

	"github.com/quipdeck/quipdeck/internal/game/session"
)

// ErrVersionConflict is returned by CompareAndSet when another writer got
// there first. The engine retries the whole read-modify-write transparently.
var ErrVersionConflict = errors.New("storage: session version conflict")

// SessionStore is the persistence contract for session documents.
type SessionStore interface {
	// Get returns the document, or nil when the id is unknown. The stored
	// version travels inside the document.
	Get(ctx context.Context, id string) (*session.Session, error)

	// CompareAndSet writes s if the stored document still carries version
	// expected. expected == 0 means "must not exist yet" (create).
	CompareAndSet(ctx context.Context, id string, expected int64, s *session.Session) error

	// Delete removes the document. Unknown ids are not an error.
	Delete(ctx context.Context, id string) error
}
