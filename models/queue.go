package models

import "time"

// QueueStatus mirrors the queue_status ENUM in the database.
type QueueStatus string

const (
	QueueWaiting   QueueStatus = "WAITING"
	QueueMatched   QueueStatus = "MATCHED"
	QueueCancelled QueueStatus = "CANCELLED"
)

// QueueEntry is a user's pending request to be paired into a ranked session.
// Rating is captured at enqueue time so band matching does not chase a moving
// target. A user has at most one WAITING entry per game.
type QueueEntry struct {
	ID            int         `json:"id" db:"id"`
	UserID        int         `json:"user_id" db:"user_id"`
	GameID        int         `json:"game_id" db:"game_id"`
	Rating        int         `json:"rating" db:"rating"`
	Status        QueueStatus `json:"status" db:"status"`
	JoinedAt      time.Time   `json:"joined_at" db:"joined_at"`
	MatchedAt     *time.Time  `json:"matched_at,omitempty" db:"matched_at"`
	GameSessionID *string     `json:"game_session_id,omitempty" db:"game_session_id"`
}
