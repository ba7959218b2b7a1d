package brackets

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// identity keeps seeding deterministic in tests.
func newTestGenerator() *singleEliminationGenerator {
	return &singleEliminationGenerator{shuffle: func(n int, swap func(i, j int)) {}}
}

func participantIDs(n int) []int {
	ids := make([]int, n)
	for i := range ids {
		ids[i] = i + 1
	}
	return ids
}

func TestGenerate_TooFewParticipants(t *testing.T) {
	g := newTestGenerator()

	_, err := g.Generate(context.Background(), GenerateParams{ParticipantIDs: []int{7}})
	assert.ErrorIs(t, err, ErrInsufficientParticipants)

	_, err = g.Generate(context.Background(), GenerateParams{})
	assert.ErrorIs(t, err, ErrInsufficientParticipants)
}

func TestGenerate_FullTree(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		n           int
		wantRounds  int
		wantMatches int
		wantByes    int
	}{
		{n: 2, wantRounds: 1, wantMatches: 1, wantByes: 0},
		{n: 3, wantRounds: 2, wantMatches: 3, wantByes: 1},
		{n: 5, wantRounds: 3, wantMatches: 7, wantByes: 3},
		{n: 7, wantRounds: 3, wantMatches: 7, wantByes: 1},
		{n: 8, wantRounds: 3, wantMatches: 7, wantByes: 0},
		{n: 16, wantRounds: 4, wantMatches: 15, wantByes: 0},
	}

	for _, tc := range cases {
		g := newTestGenerator()
		bracket, err := g.Generate(context.Background(), GenerateParams{
			ParticipantIDs: participantIDs(tc.n),
			StartTime:      start,
		})
		require.NoError(t, err, "n=%d", tc.n)

		assert.Equal(t, tc.wantRounds, bracket.Rounds, "n=%d", tc.n)
		assert.Len(t, bracket.Matches, tc.wantMatches, "n=%d", tc.n)

		byes := 0
		finals := 0
		for _, sm := range bracket.Matches {
			if sm.NextIndex < 0 {
				finals++
				assert.Equal(t, 1, sm.Round, "n=%d: only round 1 has no next match", tc.n)
				assert.Equal(t, 1, sm.MatchNumber, "n=%d", tc.n)
			}
			if sm.Round == bracket.Rounds && sm.Player2ID == nil {
				byes++
				assert.True(t, sm.Completed, "n=%d: byes complete at seeding", tc.n)
				require.NotNil(t, sm.WinnerID, "n=%d", tc.n)
				assert.Equal(t, *sm.Player1ID, *sm.WinnerID, "n=%d: bye winner is the sole player", tc.n)
			}
		}
		assert.Equal(t, 1, finals, "n=%d: exactly one final", tc.n)
		assert.Equal(t, tc.wantByes, byes, "n=%d", tc.n)
	}
}

func TestGenerate_EveryParticipantSeatedOnce(t *testing.T) {
	for _, n := range []int{2, 3, 5, 6, 7, 9, 12, 16} {
		g := newTestGenerator()
		bracket, err := g.Generate(context.Background(), GenerateParams{
			ParticipantIDs: participantIDs(n),
			StartTime:      time.Now(),
		})
		require.NoError(t, err, "n=%d", n)

		seen := make(map[int]int)
		for _, sm := range bracket.Matches {
			if sm.Round != bracket.Rounds {
				continue
			}
			if sm.Player1ID != nil {
				seen[*sm.Player1ID]++
			}
			if sm.Player2ID != nil {
				seen[*sm.Player2ID]++
			}
		}

		assert.Len(t, seen, n, "n=%d: all participants seated", n)
		for id, count := range seen {
			assert.Equal(t, 1, count, "n=%d: participant %d seated once", n, id)
		}
	}
}

func TestGenerate_ByeWinnersAdvance(t *testing.T) {
	// Five entrants over eight slots: three byes, and their winners must
	// already sit in their second-round slots.
	g := newTestGenerator()
	bracket, err := g.Generate(context.Background(), GenerateParams{
		ParticipantIDs: participantIDs(5),
		StartTime:      time.Now(),
	})
	require.NoError(t, err)

	for _, sm := range bracket.Matches {
		if sm.Round != bracket.Rounds || !sm.Completed {
			continue
		}
		next := bracket.Matches[sm.NextIndex]
		if sm.WinnerSlot == 1 {
			require.NotNil(t, next.Player1ID)
			assert.Equal(t, *sm.WinnerID, *next.Player1ID)
		} else {
			require.NotNil(t, next.Player2ID)
			assert.Equal(t, *sm.WinnerID, *next.Player2ID)
		}
	}

	// No cascade here: second-round matches either wait on a played entry
	// match or received two bye winners, so nothing above the entry round
	// completes.
	for _, sm := range bracket.Matches {
		if sm.Round < bracket.Rounds {
			assert.False(t, sm.Completed, "round %d match %d", sm.Round, sm.MatchNumber)
		}
	}
}

func TestGenerate_SiblingByeWinnersMeetInPlayableMatch(t *testing.T) {
	// With five entrants the last two entry matches are both byes and feed
	// the same second-round match. That match receives both winners and must
	// stay SCHEDULED; neither player may be eliminated without playing.
	g := newTestGenerator()
	bracket, err := g.Generate(context.Background(), GenerateParams{
		ParticipantIDs: participantIDs(5),
		StartTime:      time.Now(),
	})
	require.NoError(t, err)

	var meeting *SeededMatch
	for _, sm := range bracket.Matches {
		if sm.Round == 2 && sm.MatchNumber == 2 {
			meeting = sm
		}
	}
	require.NotNil(t, meeting)

	require.NotNil(t, meeting.Player1ID)
	require.NotNil(t, meeting.Player2ID)
	assert.Equal(t, 3, *meeting.Player1ID)
	assert.Equal(t, 4, *meeting.Player2ID)
	assert.False(t, meeting.Completed)
	assert.Nil(t, meeting.WinnerID)

	// Same invariant across every bracket size with adjacent byes: a match
	// completes at seeding only when exactly one seat is occupied.
	for _, n := range []int{5, 6, 9, 10, 11, 13} {
		g := newTestGenerator()
		bracket, err := g.Generate(context.Background(), GenerateParams{
			ParticipantIDs: participantIDs(n),
			StartTime:      time.Now(),
		})
		require.NoError(t, err, "n=%d", n)

		for _, sm := range bracket.Matches {
			if sm.Completed {
				assert.True(t, (sm.Player1ID == nil) != (sm.Player2ID == nil),
					"n=%d: round %d match %d completed with both seats filled", n, sm.Round, sm.MatchNumber)
			}
		}
	}
}

func TestGenerate_ScheduleSpacing(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	g := newTestGenerator()
	bracket, err := g.Generate(context.Background(), GenerateParams{
		ParticipantIDs: participantIDs(8),
		StartTime:      start,
	})
	require.NoError(t, err)

	for _, sm := range bracket.Matches {
		want := start.AddDate(0, 0, bracket.Rounds-sm.Round)
		assert.True(t, sm.ScheduledTime.Equal(want),
			"round %d scheduled at %s, want %s", sm.Round, sm.ScheduledTime, want)
	}
}

func TestGenerate_FeedLinksConsistent(t *testing.T) {
	g := newTestGenerator()
	bracket, err := g.Generate(context.Background(), GenerateParams{
		ParticipantIDs: participantIDs(16),
		StartTime:      time.Now(),
	})
	require.NoError(t, err)

	for i, sm := range bracket.Matches {
		if sm.NextIndex < 0 {
			continue
		}
		next := bracket.Matches[sm.NextIndex]
		assert.Equal(t, sm.Round-1, next.Round)
		assert.Equal(t, (sm.MatchNumber+1)/2, next.MatchNumber)
		if sm.MatchNumber%2 == 1 {
			assert.Equal(t, 1, sm.WinnerSlot)
			assert.Equal(t, i, next.Prev1Index)
		} else {
			assert.Equal(t, 2, sm.WinnerSlot)
			assert.Equal(t, i, next.Prev2Index)
		}
	}
}

func TestGenerate_ShuffleIsUsed(t *testing.T) {
	reversed := &singleEliminationGenerator{shuffle: func(n int, swap func(i, j int)) {
		for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
			swap(i, j)
		}
	}}

	bracket, err := reversed.Generate(context.Background(), GenerateParams{
		ParticipantIDs: participantIDs(4),
		StartTime:      time.Now(),
	})
	require.NoError(t, err)

	first := bracket.Matches[1]
	require.NotNil(t, first.Player1ID)
	assert.Equal(t, 4, *first.Player1ID)
}
