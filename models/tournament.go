package models

import "time"

// TournamentStatus mirrors the tournament_status ENUM in the database.
type TournamentStatus string

const (
	TournamentUpcoming           TournamentStatus = "UPCOMING"
	TournamentRegistrationOpen   TournamentStatus = "REGISTRATION_OPEN"
	TournamentRegistrationClosed TournamentStatus = "REGISTRATION_CLOSED"
	TournamentInProgress         TournamentStatus = "IN_PROGRESS"
	TournamentCompleted          TournamentStatus = "COMPLETED"
	TournamentCancelled          TournamentStatus = "CANCELLED"
)

// IsTerminal reports whether no further status transition is allowed.
func (s TournamentStatus) IsTerminal() bool {
	return s == TournamentCompleted || s == TournamentCancelled
}

// TournamentFormat mirrors the tournament_format ENUM. Only single elimination
// is implemented; the column exists so other formats can be added without a
// schema change.
type TournamentFormat string

const (
	FormatSingleElimination TournamentFormat = "SINGLE_ELIMINATION"
)

// Tournament represents a competitive event with a registration window
// followed by a play window.
type Tournament struct {
	ID                int              `json:"id" db:"id"`
	GameID            int              `json:"game_id" db:"game_id"`
	OrganizerID       int              `json:"organizer_id" db:"organizer_id"`
	Name              string           `json:"name" db:"name"`
	Description       *string          `json:"description,omitempty" db:"description"`
	Rules             *string          `json:"rules,omitempty" db:"rules"`
	Format            TournamentFormat `json:"format" db:"format"`
	Status            TournamentStatus `json:"status" db:"status"`
	RegistrationStart time.Time        `json:"registration_start" db:"registration_start"`
	RegistrationEnd   time.Time        `json:"registration_end" db:"registration_end"`
	StartDate         time.Time        `json:"start_date" db:"start_date"`
	EndDate           *time.Time       `json:"end_date,omitempty" db:"end_date"`
	MaxParticipants   int              `json:"max_participants" db:"max_participants"`
	EntryFee          int64            `json:"entry_fee" db:"entry_fee"`
	PrizePool         int64            `json:"prize_pool" db:"prize_pool"`
	CreatedAt         time.Time        `json:"created_at" db:"created_at"`

	// Related entities, loaded on demand.
	Participants []TournamentParticipant `json:"participants,omitempty" db:"-"`
	Matches      []TournamentMatch       `json:"matches,omitempty" db:"-"`
}
