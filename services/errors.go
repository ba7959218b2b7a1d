package services

import "errors"

// Sentinel errors shared across services and the HTTP error mapping.
var (
	// Not-found
	ErrTournamentNotFound  = errors.New("tournament not found")
	ErrMatchNotFound       = errors.New("match not found")
	ErrQueueEntryNotFound  = errors.New("queue entry not found")
	ErrSkillNotFound       = errors.New("player skill record not found")
	ErrGameNotFound        = errors.New("game not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrParticipantNotFound = errors.New("participant registration not found")
	ErrReportNotFound      = errors.New("match result report not found")

	// Conflicts
	ErrRegistrationConflict    = errors.New("user is already registered for this tournament")
	ErrBracketAlreadyGenerated = errors.New("bracket has already been generated for this tournament")
	ErrAlreadyQueued           = errors.New("user already has a waiting queue entry for this game")
	ErrTournamentNameConflict  = errors.New("tournament name already exists")
	ErrDuplicateReport         = errors.New("reporter already has a pending report for this match")

	// Invalid state
	ErrRegistrationNotOpen      = errors.New("tournament registration is not open")
	ErrRegistrationStillOpen    = errors.New("tournament registration has not closed yet")
	ErrWithdrawClosed           = errors.New("withdrawal is no longer possible for this tournament")
	ErrMatchAlreadyCompleted    = errors.New("match has already been completed")
	ErrPlayersNotAssigned       = errors.New("match does not have both players assigned yet")
	ErrQueueEntryNotWaiting     = errors.New("queue entry is not in a waiting state")
	ErrTournamentNotCancellable = errors.New("tournament can no longer be cancelled")
	ErrNoDisputeToResolve       = errors.New("match has no dispute to resolve")

	// Forbidden
	ErrNotMatchParticipant = errors.New("user is not a participant of this match")
	ErrQueueEntryForbidden = errors.New("queue entry belongs to another user")
	ErrNotOrganizer        = errors.New("only the organizer or an admin can perform this action")

	// Bad request
	ErrDrawNotAllowed            = errors.New("draw results are not allowed")
	ErrInvalidScore              = errors.New("scores must be non-negative")
	ErrInsufficientParticipants  = errors.New("not enough participants to generate a bracket")
	ErrTournamentFull            = errors.New("tournament registration is full")
	ErrInsufficientFunds         = errors.New("coin balance does not cover the entry fee")
	ErrTournamentInvalidRegDates = errors.New("registration window must close before the tournament starts")
	ErrTournamentInvalidCapacity = errors.New("tournament max participants must be at least 2")

	// Transient
	ErrTransientConflict = errors.New("operation conflicted with a concurrent update, retry")
)
