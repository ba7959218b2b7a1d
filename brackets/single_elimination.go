package brackets

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// ErrInsufficientParticipants is returned when fewer than two participants
// are available for seeding.
var ErrInsufficientParticipants = errors.New("at least 2 participants are required to seed a bracket")

// SeededMatch is one node of the generated tree, positions expressed as
// indexes into Bracket.Matches so the structure survives persistence in any
// order.
//
// Rounds count from the final: round 1 is the final and the entry round is
// Bracket.Rounds. Matches 2k-1 and 2k of round r feed match k of round r-1.
type SeededMatch struct {
	Round       int
	MatchNumber int

	Player1ID *int
	Player2ID *int

	// Completed byes carry their winner out of seeding.
	Completed bool
	WinnerID  *int

	ScheduledTime time.Time

	// NextIndex / WinnerSlot describe where this match's winner goes;
	// NextIndex is -1 for the final. Prev1Index/Prev2Index are the feeders,
	// -1 for entry-round matches.
	NextIndex  int
	WinnerSlot int
	Prev1Index int
	Prev2Index int
}

// Bracket is the full seeded structure: 2^Rounds - 1 matches.
type Bracket struct {
	Rounds  int
	Matches []*SeededMatch
}

type singleEliminationGenerator struct {
	shuffle func(n int, swap func(i, j int))
}

// NewSingleEliminationGenerator returns the seeder for single-elimination
// brackets with uniform random seeding.
func NewSingleEliminationGenerator() Generator {
	return &singleEliminationGenerator{shuffle: rand.Shuffle}
}

func (g *singleEliminationGenerator) Name() string {
	return "SINGLE_ELIMINATION"
}

func (g *singleEliminationGenerator) Generate(_ context.Context, params GenerateParams) (*Bracket, error) {
	n := len(params.ParticipantIDs)
	if n < 2 {
		return nil, ErrInsufficientParticipants
	}

	permuted := make([]int, n)
	copy(permuted, params.ParticipantIDs)
	g.shuffle(n, func(i, j int) {
		permuted[i], permuted[j] = permuted[j], permuted[i]
	})

	rounds := int(math.Ceil(math.Log2(float64(n))))
	firstRoundMatches := 1 << uint(rounds-1)

	bracket := &Bracket{
		Rounds:  rounds,
		Matches: make([]*SeededMatch, 0, 2*firstRoundMatches-1),
	}

	// Index of match m (0-based) in round r within bracket.Matches. Rounds
	// are laid out final-first: round r starts at 2^(r-1)-1.
	indexOf := func(round, m int) int {
		return (1 << uint(round-1)) - 1 + m
	}

	for round := 1; round <= rounds; round++ {
		matchesInRound := 1 << uint(round-1)
		// The entry round plays first; each later stage is a day further out.
		scheduled := params.StartTime.AddDate(0, 0, rounds-round)

		for m := 0; m < matchesInRound; m++ {
			sm := &SeededMatch{
				Round:         round,
				MatchNumber:   m + 1,
				ScheduledTime: scheduled,
				NextIndex:     -1,
				Prev1Index:    -1,
				Prev2Index:    -1,
			}
			if round > 1 {
				sm.NextIndex = indexOf(round-1, m/2)
				sm.WinnerSlot = m%2 + 1
			}
			if round < rounds {
				sm.Prev1Index = indexOf(round+1, 2*m)
				sm.Prev2Index = indexOf(round+1, 2*m+1)
			}
			bracket.Matches = append(bracket.Matches, sm)
		}
	}

	// Entry-round pairing: permuted[i] versus permuted[n-1-i]. Opponent
	// indexes below firstRoundMatches are player1 seats themselves, so those
	// pairings are byes; this assigns every participant exactly one seat.
	for m := 0; m < firstRoundMatches; m++ {
		sm := bracket.Matches[indexOf(rounds, m)]
		p1 := permuted[m]
		sm.Player1ID = &p1

		if opponent := n - 1 - m; opponent >= firstRoundMatches {
			p2 := permuted[opponent]
			sm.Player2ID = &p2
		} else {
			sm.Completed = true
			sm.WinnerID = &p1
		}
	}

	g.advanceCompleted(bracket)
	return bracket, nil
}

// advanceCompleted pushes winners of matches completed at seeding time (byes)
// into their next-round slots, completing further byes as they appear. Each
// pass propagates every settled winner before any match is judged, so a match
// whose feeders both finished is never mistaken for a bye while one of the
// deliveries is still pending. Each pass either fills a slot or completes a
// match, so the loop terminates.
func (g *singleEliminationGenerator) advanceCompleted(bracket *Bracket) {
	for {
		progressed := false

		for _, sm := range bracket.Matches {
			if !sm.Completed || sm.NextIndex < 0 {
				continue
			}
			next := bracket.Matches[sm.NextIndex]
			if sm.WinnerSlot == 1 {
				if next.Player1ID == nil {
					next.Player1ID = sm.WinnerID
					progressed = true
				}
			} else if next.Player2ID == nil {
				next.Player2ID = sm.WinnerID
				progressed = true
			}
		}

		// A match is itself a bye only when every feeder has finished and
		// delivered, and still just one seat is occupied.
		for _, sm := range bracket.Matches {
			if sm.Completed {
				continue
			}
			if g.feedersDone(bracket, sm) && (sm.Player1ID == nil) != (sm.Player2ID == nil) {
				sm.Completed = true
				if sm.Player1ID != nil {
					sm.WinnerID = sm.Player1ID
				} else {
					sm.WinnerID = sm.Player2ID
				}
				progressed = true
			}
		}

		if !progressed {
			return
		}
	}
}

func (g *singleEliminationGenerator) feedersDone(bracket *Bracket, sm *SeededMatch) bool {
	for _, idx := range []int{sm.Prev1Index, sm.Prev2Index} {
		if idx >= 0 && !bracket.Matches[idx].Completed {
			return false
		}
	}
	return true
}
