package testutil

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/quipdeck/quipdeck/internal/game/session"
	"github.com/quipdeck/quipdeck/internal/storage"
)

// MemoryStore is an in-process storage.SessionStore with the same
// compare-and-set contract as the Redis store. Documents are kept as JSON so
// readers and writers never share memory.
type MemoryStore struct {
	mu   sync.Mutex
	docs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string][]byte)}
}

func (ms *MemoryStore) Get(_ context.Context, id string) (*session.Session, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	data, ok := ms.docs[id]
	if !ok {
		return nil, nil
	}
	var s session.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (ms *MemoryStore) CompareAndSet(_ context.Context, id string, expected int64, s *session.Session) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	data, ok := ms.docs[id]
	if !ok {
		if expected != 0 {
			return storage.ErrVersionConflict
		}
	} else {
		var cur struct {
			Version int64 `json:"version"`
		}
		if err := json.Unmarshal(data, &cur); err != nil {
			return err
		}
		if cur.Version != expected {
			return storage.ErrVersionConflict
		}
	}

	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}
	ms.docs[id] = payload
	return nil
}

func (ms *MemoryStore) Delete(_ context.Context, id string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	delete(ms.docs, id)
	return nil
}
