package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quipdeck/quipdeck/internal/game/session"
)

const (
	sessionKeyPrefix = "quipdeck:session:"

	// DefaultSessionTTL is how long an untouched session survives before the
	// store reclaims it.
	DefaultSessionTTL = 24 * time.Hour
)

// RedisStore keeps each session as one JSON document under one key. The
// compare-and-set runs as a WATCH/MULTI optimistic transaction, so a
// concurrent writer fails the swap instead of clobbering it.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a store. A non-positive ttl falls back to
// DefaultSessionTTL.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

// Get implements SessionStore.
func (rs *RedisStore) Get(ctx context.Context, id string) (*session.Session, error) {
	data, err := rs.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var s session.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &s, nil
}

// CompareAndSet implements SessionStore.
func (rs *RedisStore) CompareAndSet(ctx context.Context, id string, expected int64, s *session.Session) error {
	key := sessionKey(id)

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
			if expected != 0 {
				return ErrVersionConflict
			}
		case err != nil:
			return err
		default:
			var cur struct {
				Version int64 `json:"version"`
			}
			if err := json.Unmarshal(data, &cur); err != nil {
				return fmt.Errorf("decode session %s: %w", id, err)
			}
			if cur.Version != expected {
				return ErrVersionConflict
			}
		}

		payload, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("encode session %s: %w", id, err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, rs.ttl)
			return nil
		})
		return err
	}

	err := rs.client.Watch(ctx, txf, key)
	if errors.Is(err, redis.TxFailedErr) {
		// The key changed between WATCH and EXEC.
		return ErrVersionConflict
	}
	return err
}

// Delete implements SessionStore.
func (rs *RedisStore) Delete(ctx context.Context, id string) error {
	return rs.client.Del(ctx, sessionKey(id)).Err()
}
