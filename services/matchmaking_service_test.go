package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safak-senal-61/websachat-arena/events"
	"github.com/safak-senal-61/websachat-arena/leaderboard"
	"github.com/safak-senal-61/websachat-arena/models"
)

type matchmakingFixture struct {
	queue     *fakeQueueRepo
	sessions  *fakeSessionRepo
	skills    *fakeSkillRepo
	games     *fakeGameRepo
	tx        *fakeTransactor
	publisher *capturePublisher
	cache     *fakeCache
	svc       MatchmakingService
}

func newMatchmakingFixture() *matchmakingFixture {
	f := &matchmakingFixture{
		queue:     newFakeQueueRepo(),
		sessions:  newFakeSessionRepo(),
		skills:    newFakeSkillRepo(),
		games:     newFakeGameRepo(1),
		tx:        &fakeTransactor{},
		publisher: &capturePublisher{},
		cache:     newFakeCache(),
	}
	f.svc = NewMatchmakingService(
		f.queue, f.sessions, f.skills, f.games,
		f.tx, f.publisher, f.cache, 3, testLogger(),
	)
	return f
}

func TestJoinQueue_WaitsWhenQueueIsEmpty(t *testing.T) {
	f := newMatchmakingFixture()
	f.skills.seed(1, 1, 1200)

	result, err := f.svc.JoinQueue(context.Background(), 1, 1)
	require.NoError(t, err)
	require.NotNil(t, result.Entry)
	assert.Nil(t, result.Session)
	assert.Equal(t, models.QueueWaiting, result.Entry.Status)
	assert.Equal(t, 1200, result.Entry.Rating)
	assert.Empty(t, f.publisher.published)
}

func TestJoinQueue_DefaultsRatingForNewPlayers(t *testing.T) {
	f := newMatchmakingFixture()

	result, err := f.svc.JoinQueue(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultRating, result.Entry.Rating)
}

func TestJoinQueue_PairsWithinBand(t *testing.T) {
	f := newMatchmakingFixture()
	f.skills.seed(1, 1, 1000)
	waiting := f.queue.seedWaiting(2, 1, 1150, time.Now().Add(-time.Minute))

	result, err := f.svc.JoinQueue(context.Background(), 1, 1)
	require.NoError(t, err)
	require.NotNil(t, result.Session)
	assert.Equal(t, models.QueueMatched, result.Entry.Status)
	assert.ElementsMatch(t, []int{1, 2}, result.Session.PlayerIDs)
	assert.Equal(t, models.SessionActive, result.Session.Status)
	assert.NotEmpty(t, result.Session.ID)

	// The candidate's entry was claimed onto the same session.
	stored, err := f.queue.GetByID(context.Background(), waiting.ID)
	require.NoError(t, err)
	assert.Equal(t, models.QueueMatched, stored.Status)
	require.NotNil(t, stored.GameSessionID)
	assert.Equal(t, result.Session.ID, *stored.GameSessionID)

	matched := f.publisher.byType(events.TypeQueueMatched)
	require.Len(t, matched, 1)
	payload, ok := matched[0].Payload.(events.QueueMatchedPayload)
	require.True(t, ok)
	assert.Equal(t, result.Session.ID, payload.SessionID)
}

func TestJoinQueue_IgnoresOutOfBandOpponents(t *testing.T) {
	f := newMatchmakingFixture()
	f.skills.seed(1, 1, 1000)
	f.queue.seedWaiting(2, 1, 1201, time.Now())
	f.queue.seedWaiting(3, 1, 799, time.Now())

	result, err := f.svc.JoinQueue(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Nil(t, result.Session)
	assert.Equal(t, models.QueueWaiting, result.Entry.Status)
}

func TestJoinQueue_PrefersHighestRatingThenOldest(t *testing.T) {
	f := newMatchmakingFixture()
	f.skills.seed(1, 1, 1000)
	f.queue.seedWaiting(2, 1, 1050, time.Now().Add(-time.Hour))
	older := f.queue.seedWaiting(3, 1, 1150, time.Now().Add(-2*time.Hour))
	f.queue.seedWaiting(4, 1, 1150, time.Now().Add(-time.Hour))

	result, err := f.svc.JoinQueue(context.Background(), 1, 1)
	require.NoError(t, err)
	require.NotNil(t, result.Session)
	assert.Contains(t, result.Session.PlayerIDs, older.UserID)
}

func TestJoinQueue_LostClaimFallsToNextCandidate(t *testing.T) {
	f := newMatchmakingFixture()
	f.skills.seed(1, 1, 1000)
	contested := f.queue.seedWaiting(2, 1, 1150, time.Now().Add(-time.Hour))
	fallback := f.queue.seedWaiting(3, 1, 1100, time.Now().Add(-time.Hour))
	f.queue.claimLost[contested.ID] = true

	result, err := f.svc.JoinQueue(context.Background(), 1, 1)
	require.NoError(t, err)
	require.NotNil(t, result.Session)
	assert.ElementsMatch(t, []int{1, fallback.UserID}, result.Session.PlayerIDs)

	// The contested entry was left untouched for the matcher that won it.
	stored, err := f.queue.GetByID(context.Background(), contested.ID)
	require.NoError(t, err)
	assert.Equal(t, models.QueueWaiting, stored.Status)
	assert.Nil(t, stored.GameSessionID)

	matched := f.publisher.byType(events.TypeQueueMatched)
	require.Len(t, matched, 1)
}

func TestJoinQueue_StaysWaitingWhenEveryClaimIsLost(t *testing.T) {
	f := newMatchmakingFixture()
	f.skills.seed(1, 1, 1000)
	for userID := 2; userID <= 5; userID++ {
		e := f.queue.seedWaiting(userID, 1, 1000+userID, time.Now().Add(-time.Hour))
		f.queue.claimLost[e.ID] = true
	}

	// claimAttempts is 3: the matcher gives up before reaching the fourth
	// candidate and the new entry stays WAITING.
	result, err := f.svc.JoinQueue(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Nil(t, result.Session)
	assert.Equal(t, models.QueueWaiting, result.Entry.Status)
	assert.Nil(t, result.Entry.GameSessionID)
	assert.Empty(t, f.publisher.published)

	for _, e := range f.queue.entries {
		assert.NotEqual(t, models.QueueMatched, e.Status)
	}
}

func TestJoinQueue_Guards(t *testing.T) {
	f := newMatchmakingFixture()

	_, err := f.svc.JoinQueue(context.Background(), 1, 99)
	assert.ErrorIs(t, err, ErrGameNotFound)

	f.queue.seedWaiting(1, 1, 1000, time.Now())
	_, err = f.svc.JoinQueue(context.Background(), 1, 1)
	assert.ErrorIs(t, err, ErrAlreadyQueued)
}

func TestLeaveQueue(t *testing.T) {
	f := newMatchmakingFixture()
	entry := f.queue.seedWaiting(1, 1, 1000, time.Now())

	require.NoError(t, f.svc.LeaveQueue(context.Background(), entry.ID, 1))
	stored, err := f.queue.GetByID(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, models.QueueCancelled, stored.Status)

	// Already cancelled.
	err = f.svc.LeaveQueue(context.Background(), entry.ID, 1)
	assert.ErrorIs(t, err, ErrQueueEntryNotWaiting)

	err = f.svc.LeaveQueue(context.Background(), 999, 1)
	assert.ErrorIs(t, err, ErrQueueEntryNotFound)

	other := f.queue.seedWaiting(2, 1, 1000, time.Now())
	err = f.svc.LeaveQueue(context.Background(), other.ID, 1)
	assert.ErrorIs(t, err, ErrQueueEntryForbidden)
}

func TestCheckQueueStatus(t *testing.T) {
	f := newMatchmakingFixture()
	f.skills.seed(1, 1, 1000)
	f.queue.seedWaiting(2, 1, 1000, time.Now())

	joined, err := f.svc.JoinQueue(context.Background(), 1, 1)
	require.NoError(t, err)
	require.NotNil(t, joined.Session)

	status, err := f.svc.CheckQueueStatus(context.Background(), joined.Entry.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.QueueMatched, status.Entry.Status)
	require.NotNil(t, status.Session)
	assert.Equal(t, joined.Session.ID, status.Session.ID)

	_, err = f.svc.CheckQueueStatus(context.Background(), joined.Entry.ID, 2)
	assert.ErrorIs(t, err, ErrQueueEntryForbidden)

	_, err = f.svc.CheckQueueStatus(context.Background(), 999, 1)
	assert.ErrorIs(t, err, ErrQueueEntryNotFound)
}

func TestExpireStaleEntries(t *testing.T) {
	f := newMatchmakingFixture()
	stale := f.queue.seedWaiting(1, 1, 1000, time.Now().Add(-time.Hour))
	fresh := f.queue.seedWaiting(2, 1, 1000, time.Now().Add(-time.Minute))

	expired, err := f.svc.ExpireStaleEntries(context.Background(), 30*time.Minute)
	require.NoError(t, err)
	assert.EqualValues(t, 1, expired)

	staleStored, _ := f.queue.GetByID(context.Background(), stale.ID)
	freshStored, _ := f.queue.GetByID(context.Background(), fresh.ID)
	assert.Equal(t, models.QueueCancelled, staleStored.Status)
	assert.Equal(t, models.QueueWaiting, freshStored.Status)
}

func TestGetLeaderboard_ServedFromCache(t *testing.T) {
	f := newMatchmakingFixture()
	f.cache.pages[1] = []leaderboard.Entry{
		{Rank: 1, UserID: 5, Rating: 1400},
		{Rank: 2, UserID: 6, Rating: 1300},
	}

	page, err := f.svc.GetLeaderboard(context.Background(), 1, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Entries, 2)
	assert.Equal(t, 5, page.Entries[0].UserID)
}

func TestGetLeaderboard_FallsBackToDatabase(t *testing.T) {
	f := newMatchmakingFixture()
	f.skills.seed(5, 1, 1400)
	f.skills.seed(6, 1, 1300)
	f.skills.seed(7, 1, 1500)

	page, err := f.svc.GetLeaderboard(context.Background(), 1, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Entries, 2)
	assert.Equal(t, 7, page.Entries[0].UserID)
	assert.Equal(t, 1, page.Entries[0].Rank)
	assert.Equal(t, 5, page.Entries[1].UserID)

	// The fallback rewarms the cache.
	assert.Equal(t, 1500, f.cache.ratings["1/7"])
	assert.Equal(t, 1400, f.cache.ratings["1/5"])
}

func TestGetLeaderboard_CacheErrorFallsBack(t *testing.T) {
	f := newMatchmakingFixture()
	f.cache.err = errors.New("redis down")
	f.skills.seed(5, 1, 1400)

	page, err := f.svc.GetLeaderboard(context.Background(), 1, 10, 0)
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, 5, page.Entries[0].UserID)
}

func TestGetLeaderboard_UnknownGame(t *testing.T) {
	f := newMatchmakingFixture()
	_, err := f.svc.GetLeaderboard(context.Background(), 99, 10, 0)
	assert.ErrorIs(t, err, ErrGameNotFound)
}

func TestGetPlayerSkill(t *testing.T) {
	f := newMatchmakingFixture()
	f.skills.seed(1, 1, 1234)

	skill, err := f.svc.GetPlayerSkill(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 1234, skill.Rating)

	_, err = f.svc.GetPlayerSkill(context.Background(), 2, 1)
	assert.ErrorIs(t, err, ErrSkillNotFound)
}

func TestListPlayerSkills(t *testing.T) {
	f := newMatchmakingFixture()
	f.skills.seed(1, 1, 1000)
	f.skills.seed(1, 2, 1100)
	f.skills.seed(2, 1, 900)

	skills, err := f.svc.ListPlayerSkills(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, skills, 2)
	assert.Equal(t, 1, skills[0].GameID)
	assert.Equal(t, 2, skills[1].GameID)
}
