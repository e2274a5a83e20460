package session

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quipdeck/quipdeck/internal/apperrors"
	"github.com/quipdeck/quipdeck/internal/catalog"
)

var testTime = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func testSelection(prompts, pick, responses int) *catalog.Selection {
	sel := &catalog.Selection{}
	for i := 0; i < prompts; i++ {
		sel.Prompts = append(sel.Prompts, catalog.PromptCard{
			ID:   fmt.Sprintf("p%d", i),
			Text: fmt.Sprintf("prompt %d", i),
			Pick: pick,
		})
	}
	for i := 0; i < responses; i++ {
		sel.Responses = append(sel.Responses, catalog.ResponseCard{
			ID:   fmt.Sprintf("r%d", i),
			Text: fmt.Sprintf("response %d", i),
		})
	}
	return sel
}

func testSettings() Settings {
	return Settings{MaxPlayers: 8, MaxScore: 3, HandSize: 2, AllowLateJoin: true}
}

// newTestSession creates and starts a session with the given player names;
// the first name is the creator and the first czar.
func newTestSession(t *testing.T, settings Settings, sel *catalog.Selection, names ...string) *Session {
	t.Helper()
	s, err := New("QUIP42", settings, sel, "id-"+names[0], names[0], "id-rando", testTime)
	require.NoError(t, err)
	for i, name := range names[1:] {
		require.NoError(t, s.AddPlayer("id-"+name, name, testTime.Add(time.Duration(i+1)*time.Second)))
	}
	require.NoError(t, s.Start("id-"+names[0], testTime.Add(time.Minute)))
	require.Equal(t, StatePlaying, s.State)
	return s
}

// submitFromHand submits the first n cards of the player's current hand.
func submitFromHand(t *testing.T, s *Session, playerID string, n int) []string {
	t.Helper()
	p := s.Player(playerID)
	require.NotNil(t, p)
	require.GreaterOrEqual(t, len(p.Hand), n)
	cards := append([]string{}, p.Hand[:n]...)
	require.NoError(t, s.Submit(playerID, cards))
	return cards
}

// assertResponseConservation checks that every response card is in exactly
// one of draw, discard, a hand, or a pending submission.
func assertResponseConservation(t *testing.T, s *Session, total int) {
	t.Helper()
	seen := map[string]int{}
	for _, id := range s.Responses.Draw {
		seen[id]++
	}
	for _, id := range s.Responses.Discard {
		seen[id]++
	}
	for i := range s.Players {
		for _, id := range s.Players[i].Hand {
			seen[id]++
		}
	}
	for _, sub := range s.Submissions {
		for _, id := range sub.CardIDs {
			seen[id]++
		}
	}
	require.Len(t, seen, total, "response cards lost")
	for id, n := range seen {
		require.Equal(t, 1, n, "response card %s duplicated", id)
	}
}

// assertPromptConservation checks the prompt pool against consumed rounds.
func assertPromptConservation(t *testing.T, s *Session, total int) {
	t.Helper()
	inPlay := 0
	if s.CurrentPrompt != "" {
		inPlay = 1
	}
	consumed := len(s.RoundHistory)
	assert.Equal(t, total, s.Prompts.Size()+inPlay+consumed)
}

func TestNew_InvalidSettings(t *testing.T) {
	t.Parallel()

	_, err := New("X", Settings{MaxPlayers: 2, MaxScore: 3, HandSize: 2}, testSelection(5, 1, 20), "c", "alice", "rando", testTime)
	assert.ErrorIs(t, err, apperrors.ErrInvalidSettings)

	_, err = New("X", testSettings(), testSelection(5, 1, 20), "c", "  ", "rando", testTime)
	assert.ErrorIs(t, err, apperrors.ErrInvalidName)
}

func TestNew_RandoTakesASeat(t *testing.T) {
	t.Parallel()

	settings := testSettings()
	settings.RandoEnabled = true
	s, err := New("X", settings, testSelection(5, 1, 20), "c", "alice", "id-rando", testTime)
	require.NoError(t, err)

	require.Len(t, s.Players, 2)
	rando := s.Rando()
	require.NotNil(t, rando)
	assert.Equal(t, RandoName, rando.Name)
	assert.False(t, rando.IsCreator)
}

func TestStart_Preconditions(t *testing.T) {
	t.Parallel()

	s, err := New("X", testSettings(), testSelection(5, 1, 20), "id-alice", "alice", "rando", testTime)
	require.NoError(t, err)
	require.NoError(t, s.AddPlayer("id-bob", "bob", testTime))

	// Too few players.
	assert.ErrorIs(t, s.Start("id-alice", testTime), apperrors.ErrTooFewPlayers)

	require.NoError(t, s.AddPlayer("id-carol", "carol", testTime))

	// Only the creator starts.
	assert.ErrorIs(t, s.Start("id-bob", testTime), apperrors.ErrNotCreator)

	require.NoError(t, s.Start("id-alice", testTime))
	assert.Equal(t, StatePlaying, s.State)
	assert.True(t, s.OrderLocked)
	assert.Equal(t, []string{"id-alice", "id-bob", "id-carol"}, s.PlayerOrder)
	assert.Equal(t, "id-alice", s.CurrentCzarID)
	assert.Equal(t, 1, s.CurrentRound)

	// Double start.
	assert.ErrorIs(t, s.Start("id-alice", testTime), apperrors.ErrAlreadyStarted)
}

func TestAddPlayer_WaitingRules(t *testing.T) {
	t.Parallel()

	settings := testSettings()
	settings.MaxPlayers = 3
	s, err := New("X", settings, testSelection(5, 1, 20), "id-alice", "alice", "rando", testTime)
	require.NoError(t, err)

	assert.ErrorIs(t, s.AddPlayer("id-x", "ALICE", testTime), apperrors.ErrNameTaken)
	assert.ErrorIs(t, s.AddPlayer("id-x", "", testTime), apperrors.ErrInvalidName)

	require.NoError(t, s.AddPlayer("id-bob", "bob", testTime))
	require.NoError(t, s.AddPlayer("id-carol", "carol", testTime))
	assert.ErrorIs(t, s.AddPlayer("id-dave", "dave", testTime), apperrors.ErrSessionFull)
}

func TestLateJoin_SkippedUntilPlaced(t *testing.T) {
	t.Parallel()

	total := 40
	s := newTestSession(t, testSettings(), testSelection(10, 1, total), "alice", "bob", "carol")
	require.True(t, s.OrderLocked)

	require.NoError(t, s.AddPlayer("id-dave", "dave", testTime.Add(2*time.Minute)))

	assert.False(t, s.OrderLocked)
	assert.Equal(t, []string{"id-dave"}, s.Skipped.IDs)
	assert.Equal(t, []string{"dave"}, s.Skipped.Names)
	assert.NotContains(t, s.PlayerOrder, "id-dave")
	assert.Len(t, s.Player("id-dave").Hand, s.Settings.HandSize, "late joiner is dealt a hand immediately")
	assertResponseConservation(t, s, total)

	// Rotation never lands on a skipped player.
	cur := s.CurrentCzarID
	for i := 0; i < 10; i++ {
		next, err := s.nextCzar(cur)
		require.NoError(t, err)
		assert.NotEqual(t, "id-dave", next)
		cur = next
	}

	// Placement is the host's call.
	assert.ErrorIs(t, s.PlaceSkippedPlayer("id-bob", "id-dave", "id-carol"), apperrors.ErrNotCreator)
	assert.ErrorIs(t, s.PlaceSkippedPlayer("id-alice", "id-carol", "id-bob"), apperrors.ErrPlayerNotSkipped)
	assert.ErrorIs(t, s.PlaceSkippedPlayer("id-alice", "id-dave", "id-nope"), apperrors.ErrUnknownBefore)

	require.NoError(t, s.PlaceSkippedPlayer("id-alice", "id-dave", "id-carol"))
	assert.True(t, s.OrderLocked)
	assert.Empty(t, s.Skipped.IDs)
	assert.Equal(t, []string{"id-alice", "id-bob", "id-dave", "id-carol"}, s.PlayerOrder)

	// On the next rotation the new player takes the czar seat in turn.
	next, err := s.nextCzar("id-bob")
	require.NoError(t, err)
	assert.Equal(t, "id-dave", next)
}

func TestLateJoin_Disabled(t *testing.T) {
	t.Parallel()

	settings := testSettings()
	settings.AllowLateJoin = false
	s := newTestSession(t, settings, testSelection(10, 1, 40), "alice", "bob", "carol")

	assert.ErrorIs(t, s.AddPlayer("id-dave", "dave", testTime), apperrors.ErrLateJoinDisabled)
}

func TestRemovePlayer_DiscardsHandAndSubmission(t *testing.T) {
	t.Parallel()

	total := 40
	s := newTestSession(t, testSettings(), testSelection(10, 1, total), "alice", "bob", "carol", "dave")

	cards := submitFromHand(t, s, "id-bob", 1)
	require.NoError(t, s.RemovePlayer("id-alice", "id-bob"))

	assert.Nil(t, s.Player("id-bob"))
	assert.NotContains(t, s.PlayerOrder, "id-bob")
	assert.Empty(t, s.Submissions, "pending submission withdrawn")
	assert.Contains(t, s.Responses.Discard, cards[0])
	assertResponseConservation(t, s, total)
	assert.Equal(t, StatePlaying, s.State)
}

func TestRemovePlayer_CzarLeavingAbortsRound(t *testing.T) {
	t.Parallel()

	s := newTestSession(t, testSettings(), testSelection(10, 1, 40), "alice", "bob", "carol", "dave")
	require.Equal(t, "id-alice", s.CurrentCzarID)
	submitFromHand(t, s, "id-bob", 1)

	require.NoError(t, s.LeaveGame("id-alice"))

	assert.Equal(t, StatePlaying, s.State)
	assert.Equal(t, "id-bob", s.CurrentCzarID, "rotation continues from the seat after the leaver")
	assert.Equal(t, 2, s.CurrentRound, "round was aborted and restarted")
	assert.Empty(t, s.Submissions)
	assert.Empty(t, s.RoundHistory, "aborted rounds never reach history")

	// The host flag moved to the earliest remaining player.
	creator := s.Creator()
	require.NotNil(t, creator)
	assert.Equal(t, "id-bob", creator.ID)
}

func TestRemovePlayer_DownToOneEndsSession(t *testing.T) {
	t.Parallel()

	s := newTestSession(t, testSettings(), testSelection(10, 1, 40), "alice", "bob", "carol")

	require.NoError(t, s.LeaveGame("id-carol"))
	require.Equal(t, StatePlaying, s.State)

	require.NoError(t, s.LeaveGame("id-bob"))
	assert.Equal(t, StateFinished, s.State)
	assert.Equal(t, EndTooFewPlayers, s.EndReason)
}

func TestTogglePause_CzarPauseAbortsRound(t *testing.T) {
	t.Parallel()

	s := newTestSession(t, testSettings(), testSelection(10, 1, 40), "alice", "bob", "carol")

	require.NoError(t, s.TogglePause("id-alice"))
	assert.True(t, s.Player("id-alice").IsPaused)
	assert.Equal(t, "id-bob", s.CurrentCzarID)
	assert.Equal(t, 2, s.CurrentRound)

	// Unpausing keeps the current round untouched.
	require.NoError(t, s.TogglePause("id-alice"))
	assert.False(t, s.Player("id-alice").IsPaused)
	assert.Equal(t, 2, s.CurrentRound)
}

func TestTogglePause_CompletesReadyCheck(t *testing.T) {
	t.Parallel()

	s := newTestSession(t, testSettings(), testSelection(10, 1, 40), "alice", "bob", "carol")

	submitFromHand(t, s, "id-bob", 1)
	require.Equal(t, RoundCollecting, s.RoundState)

	// The only other expected submitter pauses: the round is ready.
	require.NoError(t, s.TogglePause("id-carol"))
	assert.Equal(t, RoundReady, s.RoundState)
}

func TestTogglePause_TooFewActiveEndsSession(t *testing.T) {
	t.Parallel()

	s := newTestSession(t, testSettings(), testSelection(10, 1, 40), "alice", "bob", "carol")

	require.NoError(t, s.TogglePause("id-bob"))
	require.Equal(t, StatePlaying, s.State)

	require.NoError(t, s.TogglePause("id-carol"))
	assert.Equal(t, StateFinished, s.State)
	assert.Equal(t, EndTooFewPlayers, s.EndReason)
}

func TestTransferHost(t *testing.T) {
	t.Parallel()

	s := newTestSession(t, testSettings(), testSelection(10, 1, 40), "alice", "bob", "carol")

	assert.ErrorIs(t, s.TransferHost("id-bob", "id-carol", false), apperrors.ErrNotCreator)

	require.NoError(t, s.TransferHost("id-alice", "id-bob", false))
	assert.False(t, s.Player("id-alice").IsCreator)
	assert.True(t, s.Player("id-bob").IsCreator)

	// Exactly one creator at any time.
	creators := 0
	for i := range s.Players {
		if s.Players[i].IsCreator {
			creators++
		}
	}
	assert.Equal(t, 1, creators)
}

func TestTransferHost_CombinedWithLeave(t *testing.T) {
	t.Parallel()

	s := newTestSession(t, testSettings(), testSelection(10, 1, 40), "alice", "bob", "carol", "dave")

	require.NoError(t, s.TransferHost("id-alice", "id-carol", true))
	assert.Nil(t, s.Player("id-alice"))
	creator := s.Creator()
	require.NotNil(t, creator)
	assert.Equal(t, "id-carol", creator.ID)
	// The leaving host was czar, so the round restarted under the next seat.
	assert.Equal(t, "id-bob", s.CurrentCzarID)
}
