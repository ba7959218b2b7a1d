package models

import "time"

// TournamentParticipant is a user's registration in a tournament.
// (tournament_id, user_id) is unique. Rank stays NULL until the tournament
// completes; only the finalists receive ranks 1 and 2.
type TournamentParticipant struct {
	ID           int       `json:"id" db:"id"`
	TournamentID int       `json:"tournament_id" db:"tournament_id"`
	UserID       int       `json:"user_id" db:"user_id"`
	Rank         *int      `json:"rank,omitempty" db:"rank"`
	CreatedAt    time.Time `json:"registered_at" db:"created_at"`
}
