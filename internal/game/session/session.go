// Package session implements the per-session orchestration core: the session
// lifecycle, the round state machine, and membership churn over the czar
// rotation. All methods mutate the document synchronously and check every
// precondition before the first mutation, so a failed call changes nothing.
// Serialization against concurrent writers is the storage layer's job.
package session

import (
	"strings"
	"time"

	"github.com/quipdeck/quipdeck/internal/apperrors"
	"github.com/quipdeck/quipdeck/internal/catalog"
	"github.com/quipdeck/quipdeck/internal/game/card"
	"github.com/quipdeck/quipdeck/internal/game/order"
)

// New creates a session in the waiting state over a fixed card selection.
// randoID is used only when settings enable the rando player.
func New(id string, settings Settings, sel *catalog.Selection, creatorID, creatorName, randoID string, now time.Time) (*Session, error) {
	if !settings.Valid() {
		return nil, apperrors.ErrInvalidSettings
	}
	creatorName = strings.TrimSpace(creatorName)
	if creatorName == "" {
		return nil, apperrors.ErrInvalidName
	}

	promptIDs := make([]string, len(sel.Prompts))
	picks := make(map[string]int, len(sel.Prompts))
	for i, p := range sel.Prompts {
		promptIDs[i] = p.ID
		picks[p.ID] = p.Pick
	}

	s := &Session{
		ID:          id,
		Settings:    settings,
		State:       StateWaiting,
		Prompts:     card.NewPool(promptIDs),
		Responses:   card.NewPool(sel.ResponseIDs()),
		PromptPicks: picks,
		Players: []Player{{
			ID:        creatorID,
			Name:      creatorName,
			Hand:      []string{},
			IsCreator: true,
			JoinedAt:  now,
		}},
		PlayerOrder:   []string{},
		Skipped:       SkippedPlayers{IDs: []string{}, Names: []string{}},
		Submissions:   []Submission{},
		SkipCzarVotes: []string{},
		RoundHistory:  []Round{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if settings.RandoEnabled {
		s.Players = append(s.Players, Player{
			ID:       randoID,
			Name:     RandoName,
			Hand:     []string{},
			IsRando:  true,
			JoinedAt: now,
		})
	}
	return s, nil
}

// AddPlayer joins a player. Before the game starts this is a plain append;
// while the game runs a late joiner is dealt a hand and parked in the skipped
// list until the host seats them, which also unlocks the rotation.
func (s *Session) AddPlayer(id, name string, now time.Time) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return apperrors.ErrInvalidName
	}
	if s.State == StateFinished {
		return apperrors.ErrFinished
	}
	if s.State == StatePlaying && !s.Settings.AllowLateJoin {
		return apperrors.ErrLateJoinDisabled
	}
	if len(s.Players) >= s.Settings.MaxPlayers {
		return apperrors.ErrSessionFull
	}
	for i := range s.Players {
		if strings.EqualFold(s.Players[i].Name, name) {
			return apperrors.ErrNameTaken
		}
	}

	p := Player{ID: id, Name: name, Hand: []string{}, JoinedAt: now}
	if s.State == StatePlaying {
		p.Hand = s.Responses.DrawCards(s.Settings.HandSize)
		s.Skipped.IDs = append(s.Skipped.IDs, id)
		s.Skipped.Names = append(s.Skipped.Names, name)
		s.OrderLocked = false
	}
	s.Players = append(s.Players, p)
	return nil
}

// Start transitions waiting -> playing: shuffles both piles once, fixes the
// rotation from join order, seats the first czar, and begins round one.
func (s *Session) Start(requesterID string, now time.Time) error {
	switch s.State {
	case StatePlaying:
		return apperrors.ErrAlreadyStarted
	case StateFinished:
		return apperrors.ErrFinished
	}
	requester := s.Player(requesterID)
	if requester == nil {
		return apperrors.ErrPlayerNotFound
	}
	if !requester.IsCreator {
		return apperrors.ErrNotCreator
	}
	active := 0
	for i := range s.Players {
		if !s.Players[i].IsPaused {
			active++
		}
	}
	if active < 3 {
		return apperrors.ErrTooFewPlayers
	}

	s.Prompts.Shuffle()
	s.Responses.Shuffle()

	s.PlayerOrder = make([]string, len(s.Players))
	for i := range s.Players {
		s.PlayerOrder[i] = s.Players[i].ID
	}
	s.OrderLocked = true
	s.State = StatePlaying

	first := s.PlayerOrder[0]
	if s.czarExcluded(first) {
		rot := order.New(s.PlayerOrder)
		next, err := rot.Next(first, s.czarExcluded)
		if err != nil {
			return err
		}
		first = next
	}
	s.beginRound(first)
	return nil
}

// RemovePlayer removes targetID on behalf of the host.
func (s *Session) RemovePlayer(requesterID, targetID string) error {
	requester := s.Player(requesterID)
	if requester == nil {
		return apperrors.ErrPlayerNotFound
	}
	if !requester.IsCreator && requesterID != targetID {
		return apperrors.ErrNotCreator
	}
	return s.removePlayer(targetID)
}

// LeaveGame removes the calling player.
func (s *Session) LeaveGame(playerID string) error {
	return s.removePlayer(playerID)
}

func (s *Session) removePlayer(id string) error {
	if s.State == StateFinished {
		return apperrors.ErrFinished
	}
	target := s.Player(id)
	if target == nil {
		return apperrors.ErrPlayerNotFound
	}

	wasCreator := target.IsCreator
	wasCzar := s.State == StatePlaying && id == s.CurrentCzarID

	// The replacement czar is computed while the leaving player still holds
	// their seat, so rotation continues from that position.
	var nextCzar string
	if wasCzar && s.RoundState != RoundJudged {
		next, err := s.nextCzar(id)
		if err != nil {
			next = ""
		}
		nextCzar = next
	}

	if s.State == StatePlaying {
		// Conservation: the hand and any pending submission return to the
		// response discard pile.
		s.Responses.DiscardCards(target.Hand...)
		target.Hand = []string{}
		s.withdrawSubmission(id)
		s.removeSkipVote(id)

		rot := order.New(s.PlayerOrder)
		rot.Remove(id)
		s.PlayerOrder = rot.IDs()
		s.removeSkipped(id)
	}

	for i := range s.Players {
		if s.Players[i].ID == id {
			s.Players = append(s.Players[:i], s.Players[i+1:]...)
			break
		}
	}

	if wasCreator {
		s.assignFallbackHost()
	}

	if s.State != StatePlaying {
		return nil
	}
	if s.checkEnd() {
		return nil
	}
	if wasCzar && s.RoundState != RoundJudged {
		if nextCzar == "" {
			s.finish(EndTooFewPlayers)
			return nil
		}
		s.abortRound(nextCzar)
		return nil
	}
	// Removing the last skipped player re-locks the order; a round judged
	// while the seat was pending advances now instead of waiting for a
	// confirmation that can no longer be given.
	if s.OrderLocked && s.RoundState == RoundJudged {
		s.advanceRound()
		return nil
	}
	s.autosubmitRando()
	s.recheckReady()
	return nil
}

// TogglePause flips the caller's paused flag. Pausing the sitting czar aborts
// the round the same way a successful skip vote does.
func (s *Session) TogglePause(playerID string) error {
	if s.State == StateFinished {
		return apperrors.ErrFinished
	}
	p := s.Player(playerID)
	if p == nil {
		return apperrors.ErrPlayerNotFound
	}
	if p.IsRando {
		return apperrors.ErrRandoAction
	}

	p.IsPaused = !p.IsPaused
	if s.State != StatePlaying {
		return nil
	}

	if p.IsPaused {
		if s.checkEnd() {
			return nil
		}
		if playerID == s.CurrentCzarID && s.RoundState != RoundJudged {
			next, err := s.nextCzar(playerID)
			if err != nil {
				s.finish(EndTooFewPlayers)
				return nil
			}
			s.abortRound(next)
			return nil
		}
	}
	s.autosubmitRando()
	s.recheckReady()
	return nil
}

// TransferHost moves the creator flag to newHostID; with leave set the
// outgoing host is removed in the same call.
func (s *Session) TransferHost(requesterID, newHostID string, leave bool) error {
	if s.State == StateFinished {
		return apperrors.ErrFinished
	}
	requester := s.Player(requesterID)
	if requester == nil {
		return apperrors.ErrPlayerNotFound
	}
	if !requester.IsCreator {
		return apperrors.ErrNotCreator
	}
	newHost := s.Player(newHostID)
	if newHost == nil {
		return apperrors.ErrPlayerNotFound
	}
	if newHost.IsRando {
		return apperrors.ErrRandoAction
	}

	requester.IsCreator = false
	newHost.IsCreator = true
	if leave {
		return s.removePlayer(requesterID)
	}
	return nil
}

// PlaceSkippedPlayer seats a late joiner immediately before beforeID. The
// host names the seat explicitly; guessing one would break the sit-next-to-a-
// named-neighbor contract. When the skipped list empties the order locks.
func (s *Session) PlaceSkippedPlayer(requesterID, skippedID, beforeID string) error {
	if s.State != StatePlaying {
		if s.State == StateFinished {
			return apperrors.ErrFinished
		}
		return apperrors.ErrNotStarted
	}
	requester := s.Player(requesterID)
	if requester == nil {
		return apperrors.ErrPlayerNotFound
	}
	if !requester.IsCreator {
		return apperrors.ErrNotCreator
	}
	if !s.IsSkipped(skippedID) {
		return apperrors.ErrPlayerNotSkipped
	}

	rot := order.New(s.PlayerOrder)
	if err := rot.InsertBefore(skippedID, beforeID); err != nil {
		return err
	}
	s.PlayerOrder = rot.IDs()
	s.removeSkipped(skippedID)
	// Re-locking while a judged round awaits confirmation: the next czar is
	// determined by the rotation again, so the round advances on its own.
	if s.OrderLocked && s.RoundState == RoundJudged {
		s.advanceRound()
	}
	return nil
}

func (s *Session) removeSkipped(id string) {
	for i, sid := range s.Skipped.IDs {
		if sid == id {
			s.Skipped.IDs = append(s.Skipped.IDs[:i], s.Skipped.IDs[i+1:]...)
			s.Skipped.Names = append(s.Skipped.Names[:i], s.Skipped.Names[i+1:]...)
			break
		}
	}
	if len(s.Skipped.IDs) == 0 && s.State == StatePlaying {
		s.OrderLocked = true
	}
}

// assignFallbackHost keeps exactly one creator: the earliest-joined remaining
// human inherits the flag when the host leaves without transferring it.
func (s *Session) assignFallbackHost() {
	var oldest *Player
	for i := range s.Players {
		p := &s.Players[i]
		if p.IsRando {
			continue
		}
		if oldest == nil || p.JoinedAt.Before(oldest.JoinedAt) {
			oldest = p
		}
	}
	if oldest != nil {
		oldest.IsCreator = true
	}
}

func (s *Session) nextCzar(after string) (string, error) {
	rot := order.New(s.PlayerOrder)
	return rot.Next(after, s.czarExcluded)
}
