// Package rating implements the Elo update applied after rated matches.
package rating

import (
	"math"

	"github.com/safak-senal-61/websachat-arena/models"
)

// KFactor controls how far a single result moves a rating.
const KFactor = 32

// Outcome is the actual score of the rated player.
type Outcome float64

const (
	Win  Outcome = 1
	Loss Outcome = 0
	Draw Outcome = 0.5
)

// Delta describes how one outcome moved a player's rating.
type Delta struct {
	OldRating int
	NewRating int
	Change    int
}

// Expected returns the probability of the player beating the opponent given
// their current ratings.
func Expected(playerRating, opponentRating int) float64 {
	return 1 / (1 + math.Pow(10, float64(opponentRating-playerRating)/400))
}

// Apply computes the player's rating change against an opponent. The change
// is rounded to the nearest point, so an upset moves both ratings by the same
// magnitude in opposite directions.
func Apply(playerRating, opponentRating int, outcome Outcome) Delta {
	expected := Expected(playerRating, opponentRating)
	change := int(math.Round(KFactor * (float64(outcome) - expected)))
	return Delta{
		OldRating: playerRating,
		NewRating: playerRating + change,
		Change:    change,
	}
}

// Record applies one outcome to a skill record. With an opponent rating the
// Elo delta moves Rating and Level; without one, an unrated context, only the
// game counters move and the returned delta carries no change.
func Record(skill *models.PlayerSkill, opponentRating *int, outcome Outcome) Delta {
	skill.GamesPlayed++
	switch outcome {
	case Win:
		skill.Wins++
	case Loss:
		skill.Losses++
	case Draw:
		skill.Draws++
	}

	if opponentRating == nil {
		return Delta{OldRating: skill.Rating, NewRating: skill.Rating}
	}

	delta := Apply(skill.Rating, *opponentRating, outcome)
	skill.Rating = delta.NewRating
	skill.Level = models.LevelForRating(skill.Rating)
	return delta
}
