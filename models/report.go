package models

import "time"

// ReportStatus mirrors the report_status ENUM in the database.
type ReportStatus string

const (
	ReportPending  ReportStatus = "PENDING"
	ReportApproved ReportStatus = "APPROVED"
	ReportDisputed ReportStatus = "DISPUTED"
	ReportResolved ReportStatus = "RESOLVED"
)

// MatchResultReport is one player's submission of a match outcome.
//
// Scores are always stored oriented as (player1Score, player2Score) of the
// match, regardless of which side the reporter played, so two reports can be
// compared directly. Reports are never mutated individually; status changes
// are applied in bulk per match.
type MatchResultReport struct {
	ID           int          `json:"id" db:"id"`
	MatchID      int          `json:"match_id" db:"match_id"`
	ReporterID   int          `json:"reporter_id" db:"reporter_id"`
	Player1Score int          `json:"player1_score" db:"player1_score"`
	Player2Score int          `json:"player2_score" db:"player2_score"`
	Evidence     *string      `json:"evidence,omitempty" db:"evidence"`
	Status       ReportStatus `json:"status" db:"status"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
}
