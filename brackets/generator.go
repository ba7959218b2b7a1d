package brackets

import (
	"context"
	"time"
)

// GenerateParams carries everything the seeder needs: the confirmed
// participant user IDs and the start of the tournament's play window.
type GenerateParams struct {
	ParticipantIDs []int
	StartTime      time.Time
}

// Generator seeds a bracket structure in memory. Persisting the produced
// matches is the caller's job.
type Generator interface {
	Generate(ctx context.Context, params GenerateParams) (*Bracket, error)
	Name() string
}
