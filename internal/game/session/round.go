package session

import (
	"math/rand/v2"
	"slices"

	"github.com/quipdeck/quipdeck/internal/apperrors"
)

// skipVoteThreshold is the number of distinct skip votes that aborts a round.
const skipVoteThreshold = 2

// beginRound draws the next prompt, clears per-round state, and tops up every
// unpaused player's hand. A prompt shortfall after reshuffle ends the game.
func (s *Session) beginRound(czarID string) {
	drawn := s.Prompts.DrawCards(1)
	if len(drawn) == 0 {
		s.finish(EndNoPromptCards)
		return
	}
	s.CurrentRound++
	s.CurrentCzarID = czarID
	s.CurrentPrompt = drawn[0]
	s.Submissions = []Submission{}
	s.SkipCzarVotes = []string{}
	s.RoundState = RoundCollecting
	s.topUpHands()
	s.autosubmitRando()
}

// topUpHands refills every unpaused player's hand to the configured size.
// An undersupplied pool deals what it has; the shortfall is soft.
func (s *Session) topUpHands() {
	for i := range s.Players {
		p := &s.Players[i]
		if p.IsPaused {
			continue
		}
		if need := s.Settings.HandSize - len(p.Hand); need > 0 {
			p.Hand = append(p.Hand, s.Responses.DrawCards(need)...)
		}
	}
}

// Submit records playerID's answer for the current round. Every precondition
// is checked before the first mutation; the cards leave the hand and are held
// by the submission until the round resolves, so they cannot be redrawn
// mid-round.
func (s *Session) Submit(playerID string, cardIDs []string) error {
	if err := s.requirePlaying(); err != nil {
		return err
	}
	p := s.Player(playerID)
	if p == nil {
		return apperrors.ErrPlayerNotFound
	}
	if p.IsRando {
		return apperrors.ErrRandoAction
	}
	if playerID == s.CurrentCzarID {
		return apperrors.ErrCzarSubmit
	}
	if p.IsPaused {
		return apperrors.ErrPlayerPaused
	}
	if s.RoundState != RoundCollecting {
		return apperrors.ErrNotCollecting
	}
	if s.HasSubmitted(playerID) {
		return apperrors.ErrAlreadySubmitted
	}
	if len(cardIDs) != s.RequiredPicks() {
		return apperrors.ErrWrongCardCount
	}
	seen := make(map[string]bool, len(cardIDs))
	for _, id := range cardIDs {
		if seen[id] {
			return apperrors.ErrDuplicateCards
		}
		seen[id] = true
		if !slices.Contains(p.Hand, id) {
			return apperrors.ErrCardsNotInHand
		}
	}

	s.acceptSubmission(p, cardIDs)
	s.autosubmitRando()
	s.recheckReady()
	return nil
}

func (s *Session) acceptSubmission(p *Player, cardIDs []string) {
	for _, id := range cardIDs {
		i := slices.Index(p.Hand, id)
		p.Hand = slices.Delete(p.Hand, i, i+1)
	}
	s.Submissions = append(s.Submissions, Submission{
		PlayerID: p.ID,
		CardIDs:  slices.Clone(cardIDs),
	})
}

// autosubmitRando submits a uniformly random subset of rando's hand whenever
// rando is active, not the czar, and has not submitted yet. It runs at the
// end of every mutation that touches submission state; reads stay pure.
func (s *Session) autosubmitRando() {
	if s.State != StatePlaying || s.RoundState != RoundCollecting {
		return
	}
	r := s.Rando()
	if r == nil || r.IsPaused || r.ID == s.CurrentCzarID || s.HasSubmitted(r.ID) {
		return
	}
	need := s.RequiredPicks()
	if len(r.Hand) < need {
		// Low pool: rando sits the round out rather than submitting short.
		return
	}
	picks := make([]string, 0, need)
	for _, i := range rand.Perm(len(r.Hand))[:need] {
		picks = append(picks, r.Hand[i])
	}
	s.acceptSubmission(r, picks)
}

// recheckReady promotes the round to judgment once every expected player has
// submitted. The transition is one-way.
func (s *Session) recheckReady() {
	if s.State != StatePlaying || s.RoundState != RoundCollecting {
		return
	}
	if len(s.Submissions) > 0 && s.allExpectedSubmitted() {
		s.RoundState = RoundReady
	}
}

// VoteSkipCzar adds a deduplicated skip vote; the second distinct vote aborts
// the round. The table unblocks itself, there is no server timeout.
func (s *Session) VoteSkipCzar(playerID string) error {
	if err := s.requirePlaying(); err != nil {
		return err
	}
	p := s.Player(playerID)
	if p == nil {
		return apperrors.ErrPlayerNotFound
	}
	if p.IsRando {
		return apperrors.ErrRandoAction
	}
	if s.RoundState == RoundJudged {
		return apperrors.ErrCzarNotPending
	}

	if !slices.Contains(s.SkipCzarVotes, playerID) {
		s.SkipCzarVotes = append(s.SkipCzarVotes, playerID)
	}
	if len(s.SkipCzarVotes) < skipVoteThreshold {
		return nil
	}

	next, err := s.nextCzar(s.CurrentCzarID)
	if err != nil {
		s.finish(EndTooFewPlayers)
		return nil
	}
	s.abortRound(next)
	return nil
}

// abortRound throws the round away: submitted cards and the prompt go to
// their discard piles (not back to hands) and a fresh round starts under
// nextCzarID.
func (s *Session) abortRound(nextCzarID string) {
	for _, sub := range s.Submissions {
		s.Responses.DiscardCards(sub.CardIDs...)
	}
	s.Submissions = []Submission{}
	s.SkipCzarVotes = []string{}
	s.Prompts.DiscardCards(s.CurrentPrompt)
	s.CurrentPrompt = ""
	if s.checkEnd() {
		return
	}
	s.beginRound(nextCzarID)
}

// ForceEarlyReview lets the czar judge with whatever submissions exist.
// Unlike a skip vote it still produces a winner.
func (s *Session) ForceEarlyReview(requesterID string) error {
	if err := s.requirePlaying(); err != nil {
		return err
	}
	if requesterID != s.CurrentCzarID {
		return apperrors.ErrNotCzar
	}
	if s.RoundState != RoundCollecting {
		return apperrors.ErrNotCollecting
	}
	if len(s.Submissions) == 0 {
		return apperrors.ErrNoSubmissions
	}
	if s.allExpectedSubmitted() {
		return apperrors.ErrAllSubmitted
	}
	s.RoundState = RoundReady
	return nil
}

// PickWinner scores the round. Submitted response cards (winner's and
// losers') move to the discard pile, the summary is appended to history, and
// the next round starts automatically when the rotation is locked; otherwise
// the table confirms the next czar via SetNextCzar.
func (s *Session) PickWinner(czarID, winnerID string) error {
	if err := s.requirePlaying(); err != nil {
		return err
	}
	if czarID != s.CurrentCzarID {
		return apperrors.ErrNotCzar
	}
	if s.RoundState != RoundReady {
		return apperrors.ErrNotReady
	}
	if winnerID == czarID {
		return apperrors.ErrCzarWinner
	}
	winner := s.Player(winnerID)
	if winner == nil || !s.HasSubmitted(winnerID) {
		return apperrors.ErrWinnerNotFound
	}

	winner.Score++
	s.RoundHistory = append(s.RoundHistory, Round{
		Number:       s.CurrentRound,
		PromptCardID: s.CurrentPrompt,
		Submissions:  cloneSubmissions(s.Submissions),
		WinnerID:     winnerID,
	})
	for _, sub := range s.Submissions {
		s.Responses.DiscardCards(sub.CardIDs...)
	}
	s.Submissions = []Submission{}
	s.SkipCzarVotes = []string{}
	// The prompt is consumed: it lives on only in the history record, so the
	// prompt pool shrinks by one per judged round and the game can end on
	// prompt exhaustion.
	s.CurrentPrompt = ""
	s.RoundState = RoundJudged

	if winner.Score >= s.Settings.MaxScore {
		s.finish(EndMaxScore)
		return nil
	}
	if !s.OrderLocked {
		// Seat placement pending: the next czar needs explicit confirmation.
		return nil
	}
	s.advanceRound()
	return nil
}

// SetNextCzar confirms the next czar while the rotation is unlocked. The
// outgoing czar or the host names them; the next round starts immediately.
func (s *Session) SetNextCzar(requesterID, czarID string) error {
	if err := s.requirePlaying(); err != nil {
		return err
	}
	if s.OrderLocked || s.RoundState != RoundJudged {
		return apperrors.ErrCzarNotPending
	}
	requester := s.Player(requesterID)
	if requester == nil {
		return apperrors.ErrPlayerNotFound
	}
	if requesterID != s.CurrentCzarID && !requester.IsCreator {
		return apperrors.ErrNotCzar
	}
	if s.czarExcluded(czarID) {
		return apperrors.ErrUnknownCzar
	}
	if s.checkEnd() {
		return nil
	}
	s.beginRound(czarID)
	return nil
}

// advanceRound re-checks the end conditions and rotates the czar into a new
// round. Called after a judged round when the rotation is locked.
func (s *Session) advanceRound() {
	if s.checkEnd() {
		return
	}
	next, err := s.nextCzar(s.CurrentCzarID)
	if err != nil {
		s.finish(EndTooFewPlayers)
		return
	}
	s.beginRound(next)
}

// RefreshHand discards the caller's whole hand and deals a fresh one. Not
// available once the player has submitted this round.
func (s *Session) RefreshHand(playerID string) error {
	if err := s.requirePlaying(); err != nil {
		return err
	}
	p := s.Player(playerID)
	if p == nil {
		return apperrors.ErrPlayerNotFound
	}
	if p.IsRando {
		return apperrors.ErrRandoAction
	}
	if p.IsPaused {
		return apperrors.ErrPlayerPaused
	}
	if s.HasSubmitted(playerID) {
		return apperrors.ErrAlreadySubmitted
	}

	s.Responses.DiscardCards(p.Hand...)
	p.Hand = s.Responses.DrawCards(s.Settings.HandSize)
	return nil
}

// checkEnd applies the terminal conditions; the first match finishes the
// session and freezes the document.
func (s *Session) checkEnd() bool {
	if s.State != StatePlaying {
		return true
	}
	for i := range s.Players {
		if s.Players[i].Score >= s.Settings.MaxScore {
			s.finish(EndMaxScore)
			return true
		}
	}
	if s.Prompts.Exhausted() {
		s.finish(EndNoPromptCards)
		return true
	}
	if s.activeHumans() < 2 {
		s.finish(EndTooFewPlayers)
		return true
	}
	return false
}

func (s *Session) finish(reason EndReason) {
	s.State = StateFinished
	s.EndReason = reason
	s.WinnerID = s.leaderID()
}

// leaderID resolves the session winner: highest score, ties broken by who
// reached that score first. Scores change one at a time, so the round history
// always orders tied players.
func (s *Session) leaderID() string {
	top := 0
	for i := range s.Players {
		if s.Players[i].Score > top {
			top = s.Players[i].Score
		}
	}
	if top == 0 {
		return ""
	}
	tally := map[string]int{}
	for _, r := range s.RoundHistory {
		if r.WinnerID == "" {
			continue
		}
		tally[r.WinnerID]++
		if tally[r.WinnerID] == top {
			return r.WinnerID
		}
	}
	// Removed winners leave gaps in the tally; fall back to current scores.
	for i := range s.Players {
		if s.Players[i].Score == top {
			return s.Players[i].ID
		}
	}
	return ""
}

func (s *Session) requirePlaying() error {
	switch s.State {
	case StateWaiting:
		return apperrors.ErrNotStarted
	case StateFinished:
		return apperrors.ErrFinished
	}
	return nil
}

func (s *Session) withdrawSubmission(id string) {
	for i, sub := range s.Submissions {
		if sub.PlayerID == id {
			s.Responses.DiscardCards(sub.CardIDs...)
			s.Submissions = append(s.Submissions[:i], s.Submissions[i+1:]...)
			return
		}
	}
}

func (s *Session) removeSkipVote(id string) {
	for i, v := range s.SkipCzarVotes {
		if v == id {
			s.SkipCzarVotes = append(s.SkipCzarVotes[:i], s.SkipCzarVotes[i+1:]...)
			return
		}
	}
}

func cloneSubmissions(subs []Submission) []Submission {
	out := make([]Submission, len(subs))
	for i, sub := range subs {
		out[i] = Submission{PlayerID: sub.PlayerID, CardIDs: slices.Clone(sub.CardIDs)}
	}
	return out
}
