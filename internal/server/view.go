package server

import (
	"time"

	"github.com/quipdeck/quipdeck/internal/game/session"
)

// sessionView is the wire shape of a session as one player is allowed to see
// it: hands other than the viewer's are reduced to counts, and submitted
// cards stay hidden until the round reaches judgment.
type sessionView struct {
	ID       string           `json:"id"`
	Settings session.Settings `json:"settings"`
	State    session.State    `json:"state"`

	Players     []playerView           `json:"players"`
	PlayerOrder []string               `json:"player_order"`
	Skipped     session.SkippedPlayers `json:"skipped_players"`
	OrderLocked bool                   `json:"order_locked"`

	CurrentRound     int                  `json:"current_round"`
	RoundState       session.RoundState   `json:"round_state,omitempty"`
	CurrentCzarID    string               `json:"current_czar_id,omitempty"`
	CurrentPrompt    string               `json:"current_prompt_card_id,omitempty"`
	RequiredPicks    int                  `json:"required_picks,omitempty"`
	SubmittedPlayers []string             `json:"submitted_players"`
	Submissions      []session.Submission `json:"submissions,omitempty"`
	SkipCzarVotes    int                  `json:"skip_czar_votes"`
	RoundHistory     []session.Round      `json:"round_history"`

	PromptCardsLeft   int `json:"prompt_cards_left"`
	ResponseCardsLeft int `json:"response_cards_left"`

	Hand []string `json:"hand"`

	EndReason session.EndReason `json:"end_reason,omitempty"`
	WinnerID  string            `json:"winner_id,omitempty"`

	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type playerView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Score     int    `json:"score"`
	HandCount int    `json:"hand_count"`
	IsCreator bool   `json:"is_creator"`
	IsPaused  bool   `json:"is_paused"`
	IsRando   bool   `json:"is_rando"`
}

func viewFor(s *session.Session, viewerID string) *sessionView {
	v := &sessionView{
		ID:                s.ID,
		Settings:          s.Settings,
		State:             s.State,
		PlayerOrder:       s.PlayerOrder,
		Skipped:           s.Skipped,
		OrderLocked:       s.OrderLocked,
		CurrentRound:      s.CurrentRound,
		RoundState:        s.RoundState,
		CurrentCzarID:     s.CurrentCzarID,
		CurrentPrompt:     s.CurrentPrompt,
		SkipCzarVotes:     len(s.SkipCzarVotes),
		RoundHistory:      s.RoundHistory,
		PromptCardsLeft:   s.Prompts.Size(),
		ResponseCardsLeft: s.Responses.Size(),
		EndReason:         s.EndReason,
		WinnerID:          s.WinnerID,
		Version:           s.Version,
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         s.UpdatedAt,
	}

	if s.State == session.StatePlaying {
		v.RequiredPicks = s.RequiredPicks()
	}

	for i := range s.Players {
		p := &s.Players[i]
		v.Players = append(v.Players, playerView{
			ID:        p.ID,
			Name:      p.Name,
			Score:     p.Score,
			HandCount: len(p.Hand),
			IsCreator: p.IsCreator,
			IsPaused:  p.IsPaused,
			IsRando:   p.IsRando,
		})
		if p.ID == viewerID {
			v.Hand = append([]string(nil), p.Hand...)
		}
	}

	// Everyone sees who has answered; the cards themselves stay hidden while
	// the round is still collecting.
	for _, sub := range s.Submissions {
		v.SubmittedPlayers = append(v.SubmittedPlayers, sub.PlayerID)
	}
	if s.RoundState == session.RoundReady || s.RoundState == session.RoundJudged {
		v.Submissions = s.Submissions
	}

	return v
}
