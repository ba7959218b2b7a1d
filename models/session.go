package models

import "time"

// SessionStatus mirrors the session_status ENUM in the database.
type SessionStatus string

const (
	SessionActive   SessionStatus = "ACTIVE"
	SessionFinished SessionStatus = "FINISHED"
)

// GameSession is an ad-hoc play session created by the queue matcher when two
// waiting players are paired. Session IDs are UUIDs because sessions are
// created concurrently by multiple service instances.
type GameSession struct {
	ID        string        `json:"id" db:"id"`
	GameID    int           `json:"game_id" db:"game_id"`
	Status    SessionStatus `json:"status" db:"status"`
	PlayerIDs []int         `json:"player_ids" db:"-"`
	StartedAt time.Time     `json:"started_at" db:"started_at"`
}
