// Package engine exposes the session operations behind the storage layer's
// single-writer discipline. Every mutating call is a read-modify-write over
// the whole session document, swapped back with a compare-and-set and retried
// transparently on a write conflict. Nothing here waits, schedules, or times
// out: clients observe progress by re-polling, and polling never mutates.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/quipdeck/quipdeck/internal/apperrors"
	"github.com/quipdeck/quipdeck/internal/catalog"
	"github.com/quipdeck/quipdeck/internal/game/session"
	"github.com/quipdeck/quipdeck/internal/storage"
)

const (
	sessionCodeLength = 6
	sessionCodeChars  = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	// casAttempts bounds the transparent retry of a conflicted write.
	casAttempts = 8
)

// ErrNotModified signals that the caller's cached version is still current.
// Conditional reads use it to skip rehydration; it is not a failure.
var ErrNotModified = errors.New("engine: session not modified")

// Engine orchestrates sessions over a store and a card catalog.
type Engine struct {
	store   storage.SessionStore
	catalog catalog.Catalog
	now     func() time.Time
}

func New(store storage.SessionStore, cat catalog.Catalog) *Engine {
	return &Engine{
		store:   store,
		catalog: cat,
		now:     time.Now,
	}
}

// CreateSession resolves the card filter once, fixes the session's pool for
// its whole lifetime, and persists the new document in the waiting state.
// It returns the session and the creator's player id.
func (e *Engine) CreateSession(ctx context.Context, creatorName string, settings session.Settings, filter catalog.Filter) (*session.Session, string, error) {
	sel, err := e.catalog.Select(filter)
	if err != nil {
		if errors.Is(err, catalog.ErrNoPrompts) || errors.Is(err, catalog.ErrNoResponses) {
			return nil, "", apperrors.ErrEmptySelection
		}
		return nil, "", err
	}

	creatorID := uuid.NewString()
	now := e.now().UTC()

	for attempt := 0; attempt < casAttempts; attempt++ {
		s, err := session.New(newSessionCode(), settings, sel, creatorID, creatorName, uuid.NewString(), now)
		if err != nil {
			return nil, "", err
		}
		s.Version = 1
		err = e.store.CompareAndSet(ctx, s.ID, 0, s)
		if errors.Is(err, storage.ErrVersionConflict) {
			// Code collision; roll a new one.
			continue
		}
		if err != nil {
			return nil, "", err
		}
		return s, creatorID, nil
	}
	return nil, "", fmt.Errorf("create session: could not allocate a free code")
}

// Join adds a player and returns their id.
func (e *Engine) Join(ctx context.Context, sessionID, name string) (*session.Session, string, error) {
	playerID := uuid.NewString()
	s, err := e.update(ctx, sessionID, func(s *session.Session) error {
		return s.AddPlayer(playerID, name, e.now().UTC())
	})
	if err != nil {
		return nil, "", err
	}
	return s, playerID, nil
}

// State returns the current document. When ifVersion matches the stored
// version the engine reports ErrNotModified instead, without rehydrating.
func (e *Engine) State(ctx context.Context, sessionID string, ifVersion int64) (*session.Session, error) {
	s, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, apperrors.ErrSessionNotFound
	}
	if ifVersion != 0 && s.Version == ifVersion {
		return nil, ErrNotModified
	}
	return s, nil
}

// Start begins the game on behalf of the creator.
func (e *Engine) Start(ctx context.Context, sessionID, playerID string) (*session.Session, error) {
	return e.update(ctx, sessionID, func(s *session.Session) error {
		return s.Start(playerID, e.now().UTC())
	})
}

// Submit records a player's answer for the current round.
func (e *Engine) Submit(ctx context.Context, sessionID, playerID string, cardIDs []string) (*session.Session, error) {
	return e.update(ctx, sessionID, func(s *session.Session) error {
		return s.Submit(playerID, cardIDs)
	})
}

// PickWinner lets the czar score the round.
func (e *Engine) PickWinner(ctx context.Context, sessionID, playerID, winnerID string) (*session.Session, error) {
	return e.update(ctx, sessionID, func(s *session.Session) error {
		return s.PickWinner(playerID, winnerID)
	})
}

// VoteSkipCzar casts a skip vote against the sitting czar.
func (e *Engine) VoteSkipCzar(ctx context.Context, sessionID, playerID string) (*session.Session, error) {
	return e.update(ctx, sessionID, func(s *session.Session) error {
		return s.VoteSkipCzar(playerID)
	})
}

// ForceEarlyReview moves a partially submitted round to judgment.
func (e *Engine) ForceEarlyReview(ctx context.Context, sessionID, playerID string) (*session.Session, error) {
	return e.update(ctx, sessionID, func(s *session.Session) error {
		return s.ForceEarlyReview(playerID)
	})
}

// SetNextCzar confirms the next czar while the rotation is unlocked.
func (e *Engine) SetNextCzar(ctx context.Context, sessionID, playerID, czarID string) (*session.Session, error) {
	return e.update(ctx, sessionID, func(s *session.Session) error {
		return s.SetNextCzar(playerID, czarID)
	})
}

// PlaceSkippedPlayer seats a late joiner before a named neighbor.
func (e *Engine) PlaceSkippedPlayer(ctx context.Context, sessionID, playerID, skippedID, beforeID string) (*session.Session, error) {
	return e.update(ctx, sessionID, func(s *session.Session) error {
		return s.PlaceSkippedPlayer(playerID, skippedID, beforeID)
	})
}

// RemovePlayer removes targetID on behalf of the host.
func (e *Engine) RemovePlayer(ctx context.Context, sessionID, playerID, targetID string) (*session.Session, error) {
	return e.update(ctx, sessionID, func(s *session.Session) error {
		return s.RemovePlayer(playerID, targetID)
	})
}

// TransferHost hands the creator flag over, optionally removing the caller.
func (e *Engine) TransferHost(ctx context.Context, sessionID, playerID, newHostID string, leave bool) (*session.Session, error) {
	return e.update(ctx, sessionID, func(s *session.Session) error {
		return s.TransferHost(playerID, newHostID, leave)
	})
}

// LeaveGame removes the calling player.
func (e *Engine) LeaveGame(ctx context.Context, sessionID, playerID string) (*session.Session, error) {
	return e.update(ctx, sessionID, func(s *session.Session) error {
		return s.LeaveGame(playerID)
	})
}

// TogglePause flips the caller's paused flag.
func (e *Engine) TogglePause(ctx context.Context, sessionID, playerID string) (*session.Session, error) {
	return e.update(ctx, sessionID, func(s *session.Session) error {
		return s.TogglePause(playerID)
	})
}

// RefreshHand swaps the caller's whole hand for a fresh deal.
func (e *Engine) RefreshHand(ctx context.Context, sessionID, playerID string) (*session.Session, error) {
	return e.update(ctx, sessionID, func(s *session.Session) error {
		return s.RefreshHand(playerID)
	})
}

// update runs one read-modify-write cycle against the session document and
// retries it from a fresh read whenever the compare-and-set loses the race.
// The mutation callback sees a private copy, so a rejected or conflicted
// attempt leaves nothing behind.
func (e *Engine) update(ctx context.Context, sessionID string, mutate func(*session.Session) error) (*session.Session, error) {
	for attempt := 0; attempt < casAttempts; attempt++ {
		s, err := e.store.Get(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if s == nil {
			return nil, apperrors.ErrSessionNotFound
		}

		if err := mutate(s); err != nil {
			return nil, err
		}

		expected := s.Version
		s.Version = expected + 1
		s.UpdatedAt = e.bumpUpdatedAt(s.UpdatedAt)

		err = e.store.CompareAndSet(ctx, sessionID, expected, s)
		if errors.Is(err, storage.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("session %s: %w after %d attempts", sessionID, storage.ErrVersionConflict, casAttempts)
}

// bumpUpdatedAt keeps the last-modified marker strictly monotonic even under
// coarse clocks.
func (e *Engine) bumpUpdatedAt(prev time.Time) time.Time {
	now := e.now().UTC()
	if !now.After(prev) {
		return prev.Add(time.Millisecond)
	}
	return now
}

func newSessionCode() string {
	code := make([]byte, sessionCodeLength)
	for i := range code {
		code[i] = sessionCodeChars[rand.IntN(len(sessionCodeChars))]
	}
	return string(code)
}
