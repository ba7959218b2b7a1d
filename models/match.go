package models

import "time"

// MatchStatus mirrors the match_status ENUM in the database.
type MatchStatus string

const (
	MatchScheduled MatchStatus = "SCHEDULED"
	MatchCompleted MatchStatus = "COMPLETED"
)

// TournamentMatch is one node of a single-elimination bracket tree.
//
// Rounds are numbered from the final: round 1 is the final, round 2 the
// semifinals, and so on. Round r holds 2^(r-1) matches, numbered from 1.
// Matches 2k-1 and 2k of round r feed match k of round r-1; which slot the
// winner lands in is precomputed at seeding time and stored in WinnerToSlot,
// so completion never has to re-derive it from matchNumber parity.
type TournamentMatch struct {
	ID           int  `json:"id" db:"id"`
	TournamentID int  `json:"tournament_id" db:"tournament_id"`
	Round        int  `json:"round" db:"round"`
	MatchNumber  int  `json:"match_number" db:"match_number"`
	Player1ID    *int `json:"player1_id,omitempty" db:"player1_id"`
	Player2ID    *int `json:"player2_id,omitempty" db:"player2_id"`
	WinnerID     *int `json:"winner_id,omitempty" db:"winner_id"`
	Player1Score *int `json:"player1_score,omitempty" db:"player1_score"`
	Player2Score *int `json:"player2_score,omitempty" db:"player2_score"`

	Status MatchStatus `json:"status" db:"status"`

	PreviousMatch1ID *int `json:"previous_match1_id,omitempty" db:"previous_match1_id"`
	PreviousMatch2ID *int `json:"previous_match2_id,omitempty" db:"previous_match2_id"`
	NextMatchID      *int `json:"next_match_id,omitempty" db:"next_match_id"`
	WinnerToSlot     *int `json:"winner_to_slot,omitempty" db:"winner_to_slot"`

	ScheduledTime time.Time  `json:"scheduled_time" db:"scheduled_time"`
	CompletedTime *time.Time `json:"completed_time,omitempty" db:"completed_time"`
	AdminNotes    *string    `json:"admin_notes,omitempty" db:"admin_notes"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}

// IsFinal reports whether this match is the root of the bracket tree.
func (m *TournamentMatch) IsFinal() bool {
	return m.Round == 1 && m.MatchNumber == 1
}

// IsBye reports whether exactly one player slot is filled.
func (m *TournamentMatch) IsBye() bool {
	return (m.Player1ID == nil) != (m.Player2ID == nil)
}

// HasPlayer reports whether userID occupies one of the two player slots.
func (m *TournamentMatch) HasPlayer(userID int) bool {
	return (m.Player1ID != nil && *m.Player1ID == userID) ||
		(m.Player2ID != nil && *m.Player2ID == userID)
}
