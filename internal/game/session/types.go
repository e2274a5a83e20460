package session

import (
	"time"

	"github.com/quipdeck/quipdeck/internal/game/card"
)

// State is the session lifecycle state.
type State string

const (
	StateWaiting  State = "waiting"
	StatePlaying  State = "playing"
	StateFinished State = "finished"
)

// RoundState is the current round's position in the submit/judge cycle.
type RoundState string

const (
	RoundCollecting RoundState = "collecting_submissions"
	RoundReady      RoundState = "ready_for_judgment"
	RoundJudged     RoundState = "judged"
)

// EndReason records why a session transitioned to finished.
type EndReason string

const (
	EndMaxScore      EndReason = "max_score_reached"
	EndNoPromptCards EndReason = "no_prompt_cards_left"
	EndTooFewPlayers EndReason = "too_few_players"
)

// RandoName is the display name of the built-in random player.
const RandoName = "Rando"

// Settings are fixed at session creation.
type Settings struct {
	MaxPlayers    int  `json:"max_players"`
	MaxScore      int  `json:"max_score"`
	HandSize      int  `json:"hand_size"`
	RandoEnabled  bool `json:"rando_enabled"`
	AllowLateJoin bool `json:"allow_late_join"`
}

// Valid reports whether the settings describe a playable session.
func (s Settings) Valid() bool {
	return s.MaxPlayers >= 3 && s.MaxScore >= 1 && s.HandSize >= 1
}

// Player is one participant. Rando is a player like any other except that it
// never judges and the engine submits on its behalf.
type Player struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Score     int       `json:"score"`
	Hand      []string  `json:"hand"`
	IsCreator bool      `json:"is_creator"`
	IsPaused  bool      `json:"is_paused"`
	IsRando   bool      `json:"is_rando"`
	JoinedAt  time.Time `json:"joined_at"`
}

// Submission is one player's accepted answer for the current round,
// immutable once recorded.
type Submission struct {
	PlayerID string   `json:"player_id"`
	CardIDs  []string `json:"card_ids"`
}

// Round is a resolved round as kept in the session history.
type Round struct {
	Number       int          `json:"number"`
	PromptCardID string       `json:"prompt_card_id"`
	Submissions  []Submission `json:"submissions"`
	WinnerID     string       `json:"winner_id"`
}

// SkippedPlayers lists late joiners awaiting an explicit seat from the host.
// Names are carried alongside ids so the host can be shown who is waiting
// without hydrating the full player list.
type SkippedPlayers struct {
	IDs   []string `json:"ids"`
	Names []string `json:"names"`
}

// Session is the whole game document: players, piles, rotation, and the
// current round, persisted and swapped as one transactional unit under a
// single writer.
type Session struct {
	ID       string   `json:"id"`
	Settings Settings `json:"settings"`
	State    State    `json:"state"`

	Prompts     card.Pool      `json:"prompts"`
	Responses   card.Pool      `json:"responses"`
	PromptPicks map[string]int `json:"prompt_picks"`

	Players     []Player       `json:"players"`
	PlayerOrder []string       `json:"player_order"`
	Skipped     SkippedPlayers `json:"skipped_players"`
	OrderLocked bool           `json:"order_locked"`

	CurrentRound  int          `json:"current_round"`
	RoundState    RoundState   `json:"round_state"`
	CurrentCzarID string       `json:"current_czar_id"`
	CurrentPrompt string       `json:"current_prompt_card_id"`
	Submissions   []Submission `json:"submissions"`
	SkipCzarVotes []string     `json:"skip_czar_votes"`
	RoundHistory  []Round      `json:"round_history"`

	EndReason EndReason `json:"end_reason,omitempty"`
	WinnerID  string    `json:"winner_id,omitempty"`

	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Player returns the player with the given id.
func (s *Session) Player(id string) *Player {
	for i := range s.Players {
		if s.Players[i].ID == id {
			return &s.Players[i]
		}
	}
	return nil
}

// Creator returns the session host, or nil when none is flagged.
func (s *Session) Creator() *Player {
	for i := range s.Players {
		if s.Players[i].IsCreator {
			return &s.Players[i]
		}
	}
	return nil
}

// Rando returns the built-in random player, or nil when disabled.
func (s *Session) Rando() *Player {
	for i := range s.Players {
		if s.Players[i].IsRando {
			return &s.Players[i]
		}
	}
	return nil
}

// IsSkipped reports whether id is awaiting seat placement.
func (s *Session) IsSkipped(id string) bool {
	for _, sid := range s.Skipped.IDs {
		if sid == id {
			return true
		}
	}
	return false
}

// HasSubmitted reports whether id has an accepted submission this round.
func (s *Session) HasSubmitted(id string) bool {
	for _, sub := range s.Submissions {
		if sub.PlayerID == id {
			return true
		}
	}
	return false
}

// RequiredPicks is the current prompt's required response-card count.
func (s *Session) RequiredPicks() int {
	if n, ok := s.PromptPicks[s.CurrentPrompt]; ok {
		return n
	}
	return 1
}

// expectedSubmitters are the players the round waits on: everyone who is not
// the czar, not paused, and not awaiting seat placement. Rando is included;
// its submission is produced by the engine itself.
func (s *Session) expectedSubmitters() []string {
	var out []string
	for i := range s.Players {
		p := &s.Players[i]
		if p.ID == s.CurrentCzarID || p.IsPaused || s.IsSkipped(p.ID) {
			continue
		}
		out = append(out, p.ID)
	}
	return out
}

func (s *Session) allExpectedSubmitted() bool {
	for _, id := range s.expectedSubmitters() {
		if !s.HasSubmitted(id) {
			return false
		}
	}
	return true
}

// activeHumans counts non-paused, non-rando players; the session cannot
// continue below two of them.
func (s *Session) activeHumans() int {
	n := 0
	for i := range s.Players {
		if !s.Players[i].IsPaused && !s.Players[i].IsRando {
			n++
		}
	}
	return n
}

// czarExcluded reports whether id may not take the czar seat: rando never
// judges, skipped players are outside the rotation, paused players are not
// at the table.
func (s *Session) czarExcluded(id string) bool {
	p := s.Player(id)
	if p == nil {
		return true
	}
	return p.IsRando || p.IsPaused || s.IsSkipped(id)
}
