package apperrors

import "errors"

// Kind classifies a GameError for transport-layer mapping.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindUnauthorized
	KindValidation
	KindConflict
	KindPoolExhausted
)

// GameError is a coded engine error shared by all session operations.
type GameError struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *GameError) Error() string {
	return e.Message
}

// IsKind reports whether err is a GameError of the given kind.
func IsKind(err error, kind Kind) bool {
	var ge *GameError
	if errors.As(err, &ge) {
		return ge.Kind == kind
	}
	return false
}

// Predefined errors
var (
	ErrSessionNotFound = &GameError{Kind: KindNotFound, Code: "session_not_found", Message: "session not found"}
	ErrPlayerNotFound  = &GameError{Kind: KindNotFound, Code: "player_not_found", Message: "player not found"}

	ErrNotCreator  = &GameError{Kind: KindUnauthorized, Code: "not_creator", Message: "only the session creator may do this"}
	ErrNotCzar     = &GameError{Kind: KindUnauthorized, Code: "not_czar", Message: "only the current czar may do this"}
	ErrCzarSubmit  = &GameError{Kind: KindUnauthorized, Code: "czar_submit", Message: "the czar does not submit response cards"}
	ErrCzarWinner  = &GameError{Kind: KindConflict, Code: "czar_winner", Message: "the czar cannot be picked as winner"}
	ErrRandoAction = &GameError{Kind: KindUnauthorized, Code: "rando_action", Message: "rando is not driven externally"}

	ErrInvalidSettings  = &GameError{Kind: KindValidation, Code: "invalid_settings", Message: "malformed session settings"}
	ErrInvalidName      = &GameError{Kind: KindValidation, Code: "invalid_name", Message: "player name must not be empty"}
	ErrEmptySelection   = &GameError{Kind: KindValidation, Code: "empty_selection", Message: "card filter matches no playable decks"}
	ErrNameTaken        = &GameError{Kind: KindValidation, Code: "name_taken", Message: "player name already in use"}
	ErrWrongCardCount   = &GameError{Kind: KindValidation, Code: "wrong_card_count", Message: "submission size does not match the prompt"}
	ErrDuplicateCards   = &GameError{Kind: KindValidation, Code: "duplicate_cards", Message: "submission contains duplicate cards"}
	ErrCardsNotInHand   = &GameError{Kind: KindValidation, Code: "cards_not_in_hand", Message: "submitted cards are not all in hand"}
	ErrUnknownCzar      = &GameError{Kind: KindValidation, Code: "unknown_czar", Message: "requested czar is not eligible"}
	ErrUnknownBefore    = &GameError{Kind: KindConflict, Code: "unknown_before_player", Message: "placement target is not in the rotation"}
	ErrPlayerNotSkipped = &GameError{Kind: KindConflict, Code: "player_not_skipped", Message: "player is not awaiting placement"}

	ErrSessionFull      = &GameError{Kind: KindConflict, Code: "session_full", Message: "session is full"}
	ErrAlreadyStarted   = &GameError{Kind: KindConflict, Code: "already_started", Message: "session has already started"}
	ErrNotStarted       = &GameError{Kind: KindConflict, Code: "not_started", Message: "session has not started"}
	ErrFinished         = &GameError{Kind: KindConflict, Code: "finished", Message: "session has finished"}
	ErrTooFewPlayers    = &GameError{Kind: KindConflict, Code: "too_few_players", Message: "not enough players to start"}
	ErrLateJoinDisabled = &GameError{Kind: KindConflict, Code: "late_join_disabled", Message: "session does not allow late joins"}
	ErrAlreadySubmitted = &GameError{Kind: KindConflict, Code: "already_submitted", Message: "player has already submitted this round"}
	ErrNotCollecting    = &GameError{Kind: KindConflict, Code: "not_collecting", Message: "round is not collecting submissions"}
	ErrNotReady         = &GameError{Kind: KindConflict, Code: "not_ready", Message: "round is not ready for judgment"}
	ErrWinnerNotFound   = &GameError{Kind: KindConflict, Code: "winner_not_found", Message: "winner did not submit this round"}
	ErrNoSubmissions    = &GameError{Kind: KindConflict, Code: "no_submissions", Message: "no submissions to review"}
	ErrAllSubmitted     = &GameError{Kind: KindConflict, Code: "all_submitted", Message: "every expected submission is already in"}
	ErrCzarNotPending   = &GameError{Kind: KindConflict, Code: "czar_not_pending", Message: "next czar is not awaiting confirmation"}
	ErrPlayerPaused     = &GameError{Kind: KindConflict, Code: "player_paused", Message: "player is paused"}
	ErrEmptyOrder       = &GameError{Kind: KindConflict, Code: "empty_order", Message: "player order is empty"}
	ErrNoEligibleCzar   = &GameError{Kind: KindConflict, Code: "no_eligible_czar", Message: "no player is eligible to be czar"}

	ErrPoolExhausted = &GameError{Kind: KindPoolExhausted, Code: "pool_exhausted", Message: "card pool cannot satisfy the draw"}
)
