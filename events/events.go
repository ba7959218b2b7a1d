// Package events defines the domain events emitted after committed state
// transitions and the publishers that carry them. Delivery is at-most-once:
// a publish failure is logged by the caller and never rolls anything back.
package events

import (
	"context"
	"time"
)

type Type string

const (
	TypeMatchCompleted      Type = "MATCH_COMPLETED"
	TypeTournamentCompleted Type = "TOURNAMENT_COMPLETED"
	TypeTournamentCancelled Type = "TOURNAMENT_CANCELLED"
	TypeQueueMatched        Type = "QUEUE_MATCHED"
	TypeLevelUp             Type = "LEVEL_UP"
)

// Event is the envelope put on the wire. Payload is one of the *Payload
// structs below, matching Type.
type Event struct {
	Type       Type      `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

type MatchCompletedPayload struct {
	TournamentID int  `json:"tournament_id"`
	MatchID      int  `json:"match_id"`
	WinnerID     int  `json:"winner_id"`
	LoserID      *int `json:"loser_id,omitempty"`
	Round        int  `json:"round"`
}

type TournamentCompletedPayload struct {
	TournamentID int `json:"tournament_id"`
	WinnerID     int `json:"winner_id"`
	RunnerUpID   int `json:"runner_up_id"`
}

type TournamentCancelledPayload struct {
	TournamentID int `json:"tournament_id"`
}

type QueueMatchedPayload struct {
	GameID    int    `json:"game_id"`
	SessionID string `json:"session_id"`
	PlayerIDs []int  `json:"player_ids"`
}

type LevelUpPayload struct {
	UserID   int `json:"user_id"`
	GameID   int `json:"game_id"`
	OldLevel int `json:"old_level"`
	NewLevel int `json:"new_level"`
}

func New(t Type, payload any) Event {
	return Event{Type: t, OccurredAt: time.Now().UTC(), Payload: payload}
}

// Publisher delivers events to interested parties. Implementations must not
// block on slow consumers.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Event) error { return nil }

// NewNop returns a publisher that discards everything.
func NewNop() Publisher { return nopPublisher{} }

type fanout struct {
	sinks []Publisher
}

// NewFanout publishes each event to every sink, returning the first error
// after all sinks were attempted.
func NewFanout(sinks ...Publisher) Publisher {
	return &fanout{sinks: sinks}
}

func (f *fanout) Publish(ctx context.Context, e Event) error {
	var firstErr error
	for _, sink := range f.sinks {
		if err := sink.Publish(ctx, e); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
