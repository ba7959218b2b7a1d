package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/safak-senal-61/websachat-arena/events"
	"github.com/safak-senal-61/websachat-arena/leaderboard"
	"github.com/safak-senal-61/websachat-arena/models"
	"github.com/safak-senal-61/websachat-arena/repositories"
)

// In-memory fakes for the repository layer. The fakes ignore the SQLExecutor
// argument: the fake transactor below invokes the closure with a nil executor
// and repositories treat nil as "use your own handle".

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeTransactor struct {
	beginErr error
	calls    int
}

func (f *fakeTransactor) WithinTx(_ context.Context, fn func(exec repositories.SQLExecutor) error) error {
	f.calls++
	if f.beginErr != nil {
		return f.beginErr
	}
	return fn(nil)
}

type capturePublisher struct {
	published []events.Event
	err       error
}

func (p *capturePublisher) Publish(_ context.Context, e events.Event) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, e)
	return nil
}

func (p *capturePublisher) byType(t events.Type) []events.Event {
	var out []events.Event
	for _, e := range p.published {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type fakeCache struct {
	ratings map[string]int // "gameID/userID" -> rating
	pages   map[int][]leaderboard.Entry
	err     error
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		ratings: make(map[string]int),
		pages:   make(map[int][]leaderboard.Entry),
	}
}

func (c *fakeCache) SetRating(_ context.Context, gameID, userID, rating int) error {
	if c.err != nil {
		return c.err
	}
	c.ratings[fmt.Sprintf("%d/%d", gameID, userID)] = rating
	return nil
}

func (c *fakeCache) GetPage(_ context.Context, gameID, offset, limit int) ([]leaderboard.Entry, error) {
	if c.err != nil {
		return nil, c.err
	}
	page := c.pages[gameID]
	if offset >= len(page) {
		return []leaderboard.Entry{}, nil
	}
	end := offset + limit
	if end > len(page) {
		end = len(page)
	}
	return page[offset:end], nil
}

func (c *fakeCache) Count(_ context.Context, gameID int) (int64, error) {
	if c.err != nil {
		return 0, c.err
	}
	return int64(len(c.pages[gameID])), nil
}

type fakeGameRepo struct {
	games map[int]*models.Game
}

func newFakeGameRepo(ids ...int) *fakeGameRepo {
	r := &fakeGameRepo{games: make(map[int]*models.Game)}
	for _, id := range ids {
		r.games[id] = &models.Game{ID: id, Name: fmt.Sprintf("game-%d", id)}
	}
	return r
}

func (r *fakeGameRepo) GetByID(_ context.Context, id int) (*models.Game, error) {
	g, ok := r.games[id]
	if !ok {
		return nil, repositories.ErrGameNotFound
	}
	return g, nil
}

type fakeTournamentRepo struct {
	nextID      int
	tournaments map[int]*models.Tournament
}

func newFakeTournamentRepo() *fakeTournamentRepo {
	return &fakeTournamentRepo{nextID: 1, tournaments: make(map[int]*models.Tournament)}
}

func (r *fakeTournamentRepo) add(t *models.Tournament) *models.Tournament {
	t.ID = r.nextID
	r.nextID++
	r.tournaments[t.ID] = t
	return t
}

func (r *fakeTournamentRepo) Create(_ context.Context, _ repositories.SQLExecutor, t *models.Tournament) error {
	for _, existing := range r.tournaments {
		if existing.Name == t.Name {
			return repositories.ErrTournamentNameConflict
		}
	}
	t.CreatedAt = time.Now()
	r.add(t)
	return nil
}

func (r *fakeTournamentRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Tournament, error) {
	t, ok := r.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	copied := *t
	return &copied, nil
}

func (r *fakeTournamentRepo) List(_ context.Context, filter repositories.TournamentFilter) ([]*models.Tournament, int, error) {
	out := make([]*models.Tournament, 0)
	for _, t := range r.tournaments {
		if filter.GameID != nil && t.GameID != *filter.GameID {
			continue
		}
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		copied := *t
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (r *fakeTournamentRepo) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, id int, from, to models.TournamentStatus) error {
	t, ok := r.tournaments[id]
	if !ok || t.Status != from {
		return repositories.ErrTournamentStatusStale
	}
	t.Status = to
	return nil
}

func (r *fakeTournamentRepo) SetCompleted(_ context.Context, _ repositories.SQLExecutor, id int, endDate time.Time) error {
	t, ok := r.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.Status = models.TournamentCompleted
	t.EndDate = &endDate
	return nil
}

func (r *fakeTournamentRepo) ListDueForStatusChange(_ context.Context, now time.Time) ([]*models.Tournament, error) {
	out := make([]*models.Tournament, 0)
	for _, t := range r.tournaments {
		due := (t.Status == models.TournamentUpcoming && !t.RegistrationStart.After(now)) ||
			(t.Status == models.TournamentRegistrationOpen && !t.RegistrationEnd.After(now))
		if due {
			copied := *t
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeParticipantRepo struct {
	nextID       int
	participants []*models.TournamentParticipant
}

func newFakeParticipantRepo() *fakeParticipantRepo {
	return &fakeParticipantRepo{nextID: 1}
}

func (r *fakeParticipantRepo) Create(_ context.Context, _ repositories.SQLExecutor, p *models.TournamentParticipant) error {
	for _, existing := range r.participants {
		if existing.TournamentID == p.TournamentID && existing.UserID == p.UserID {
			return repositories.ErrParticipantConflict
		}
	}
	p.ID = r.nextID
	r.nextID++
	p.CreatedAt = time.Now()
	r.participants = append(r.participants, p)
	return nil
}

func (r *fakeParticipantRepo) FindByTournamentAndUser(_ context.Context, _ repositories.SQLExecutor, tournamentID, userID int) (*models.TournamentParticipant, error) {
	for _, p := range r.participants {
		if p.TournamentID == tournamentID && p.UserID == userID {
			copied := *p
			return &copied, nil
		}
	}
	return nil, repositories.ErrParticipantNotFound
}

func (r *fakeParticipantRepo) ListByTournament(_ context.Context, tournamentID int) ([]*models.TournamentParticipant, error) {
	out := make([]*models.TournamentParticipant, 0)
	for _, p := range r.participants {
		if p.TournamentID == tournamentID {
			copied := *p
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeParticipantRepo) ListRankedByTournament(_ context.Context, tournamentID int) ([]*models.TournamentParticipant, error) {
	out := make([]*models.TournamentParticipant, 0)
	for _, p := range r.participants {
		if p.TournamentID == tournamentID && p.Rank != nil {
			copied := *p
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return *out[i].Rank < *out[j].Rank })
	return out, nil
}

func (r *fakeParticipantRepo) CountByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) (int, error) {
	count := 0
	for _, p := range r.participants {
		if p.TournamentID == tournamentID {
			count++
		}
	}
	return count, nil
}

func (r *fakeParticipantRepo) Delete(_ context.Context, _ repositories.SQLExecutor, tournamentID, userID int) error {
	for i, p := range r.participants {
		if p.TournamentID == tournamentID && p.UserID == userID {
			r.participants = append(r.participants[:i], r.participants[i+1:]...)
			return nil
		}
	}
	return repositories.ErrParticipantNotFound
}

func (r *fakeParticipantRepo) SetRank(_ context.Context, _ repositories.SQLExecutor, tournamentID, userID, rank int) error {
	for _, p := range r.participants {
		if p.TournamentID == tournamentID && p.UserID == userID {
			set := rank
			p.Rank = &set
			return nil
		}
	}
	return repositories.ErrParticipantNotFound
}

type fakeMatchRepo struct {
	nextID  int
	matches map[int]*models.TournamentMatch
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{nextID: 1, matches: make(map[int]*models.TournamentMatch)}
}

func (r *fakeMatchRepo) add(m *models.TournamentMatch) *models.TournamentMatch {
	m.ID = r.nextID
	r.nextID++
	r.matches[m.ID] = m
	return m
}

func (r *fakeMatchRepo) Create(_ context.Context, _ repositories.SQLExecutor, m *models.TournamentMatch) error {
	m.CreatedAt = time.Now()
	r.add(m)
	return nil
}

func (r *fakeMatchRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.TournamentMatch, error) {
	m, ok := r.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	copied := *m
	return &copied, nil
}

func (r *fakeMatchRepo) GetByIDForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.TournamentMatch, error) {
	return r.GetByID(ctx, exec, id)
}

func (r *fakeMatchRepo) ListByTournament(_ context.Context, tournamentID int, round *int, status *models.MatchStatus) ([]*models.TournamentMatch, error) {
	out := make([]*models.TournamentMatch, 0)
	for _, m := range r.matches {
		if m.TournamentID != tournamentID {
			continue
		}
		if round != nil && m.Round != *round {
			continue
		}
		if status != nil && m.Status != *status {
			continue
		}
		copied := *m
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Round != out[j].Round {
			return out[i].Round > out[j].Round
		}
		return out[i].MatchNumber < out[j].MatchNumber
	})
	return out, nil
}

func (r *fakeMatchRepo) ListByUser(_ context.Context, userID int, status *models.MatchStatus, limit, offset int) ([]*models.TournamentMatch, int, error) {
	out := make([]*models.TournamentMatch, 0)
	for _, m := range r.matches {
		if !m.HasPlayer(userID) {
			continue
		}
		if status != nil && m.Status != *status {
			continue
		}
		copied := *m
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	total := len(out)
	if offset >= total {
		return []*models.TournamentMatch{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return out[offset:end], total, nil
}

func (r *fakeMatchRepo) CountByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) (int, error) {
	count := 0
	for _, m := range r.matches {
		if m.TournamentID == tournamentID {
			count++
		}
	}
	return count, nil
}

func (r *fakeMatchRepo) Complete(_ context.Context, _ repositories.SQLExecutor, id int, p1Score, p2Score, winnerID int, completedAt time.Time, adminNotes *string) error {
	m, ok := r.matches[id]
	if !ok || m.Status != models.MatchScheduled {
		return repositories.ErrMatchNotOpen
	}
	m.Player1Score = &p1Score
	m.Player2Score = &p2Score
	m.WinnerID = &winnerID
	m.Status = models.MatchCompleted
	m.CompletedTime = &completedAt
	if adminNotes != nil {
		m.AdminNotes = adminNotes
	}
	return nil
}

func (r *fakeMatchRepo) SetNextMatchLink(_ context.Context, _ repositories.SQLExecutor, id int, nextMatchID, winnerToSlot int) error {
	m, ok := r.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.NextMatchID = &nextMatchID
	m.WinnerToSlot = &winnerToSlot
	return nil
}

func (r *fakeMatchRepo) SetPlayerSlot(_ context.Context, _ repositories.SQLExecutor, id, slot, playerID int) error {
	m, ok := r.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	set := playerID
	switch slot {
	case 1:
		m.Player1ID = &set
	case 2:
		m.Player2ID = &set
	default:
		return repositories.ErrMatchSlotTaken
	}
	return nil
}

type fakeReportRepo struct {
	nextID  int
	reports []*models.MatchResultReport
}

func newFakeReportRepo() *fakeReportRepo {
	return &fakeReportRepo{nextID: 1}
}

func (r *fakeReportRepo) Create(_ context.Context, _ repositories.SQLExecutor, rep *models.MatchResultReport) error {
	rep.ID = r.nextID
	r.nextID++
	rep.CreatedAt = time.Now()
	r.reports = append(r.reports, rep)
	return nil
}

func (r *fakeReportRepo) FindPendingByMatchAndReporter(_ context.Context, _ repositories.SQLExecutor, matchID, reporterID int) (*models.MatchResultReport, error) {
	for i := len(r.reports) - 1; i >= 0; i-- {
		rep := r.reports[i]
		if rep.MatchID == matchID && rep.ReporterID == reporterID && rep.Status == models.ReportPending {
			copied := *rep
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeReportRepo) ListByMatch(_ context.Context, _ repositories.SQLExecutor, matchID int) ([]*models.MatchResultReport, error) {
	out := make([]*models.MatchResultReport, 0)
	for _, rep := range r.reports {
		if rep.MatchID == matchID {
			copied := *rep
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeReportRepo) CountByMatchAndStatus(_ context.Context, _ repositories.SQLExecutor, matchID int, status models.ReportStatus) (int, error) {
	count := 0
	for _, rep := range r.reports {
		if rep.MatchID == matchID && rep.Status == status {
			count++
		}
	}
	return count, nil
}

func (r *fakeReportRepo) UpdateStatusByMatch(_ context.Context, _ repositories.SQLExecutor, matchID int, status models.ReportStatus) error {
	for _, rep := range r.reports {
		if rep.MatchID == matchID {
			rep.Status = status
		}
	}
	return nil
}

type fakeSkillRepo struct {
	nextID int
	skills map[string]*models.PlayerSkill // "userID/gameID"
}

func newFakeSkillRepo() *fakeSkillRepo {
	return &fakeSkillRepo{nextID: 1, skills: make(map[string]*models.PlayerSkill)}
}

func skillKey(userID, gameID int) string { return fmt.Sprintf("%d/%d", userID, gameID) }

func (r *fakeSkillRepo) seed(userID, gameID, ratingValue int) *models.PlayerSkill {
	s := models.NewPlayerSkill(userID, gameID)
	s.Rating = ratingValue
	s.ID = r.nextID
	r.nextID++
	r.skills[skillKey(userID, gameID)] = s
	return s
}

func (r *fakeSkillRepo) GetOrCreate(_ context.Context, _ repositories.SQLExecutor, userID, gameID int) (*models.PlayerSkill, error) {
	if s, ok := r.skills[skillKey(userID, gameID)]; ok {
		copied := *s
		return &copied, nil
	}
	s := models.NewPlayerSkill(userID, gameID)
	s.ID = r.nextID
	r.nextID++
	r.skills[skillKey(userID, gameID)] = s
	copied := *s
	return &copied, nil
}

func (r *fakeSkillRepo) Get(_ context.Context, userID, gameID int) (*models.PlayerSkill, error) {
	s, ok := r.skills[skillKey(userID, gameID)]
	if !ok {
		return nil, repositories.ErrSkillNotFound
	}
	copied := *s
	return &copied, nil
}

func (r *fakeSkillRepo) ListByUser(_ context.Context, userID int) ([]*models.PlayerSkill, error) {
	out := make([]*models.PlayerSkill, 0)
	for _, s := range r.skills {
		if s.UserID == userID {
			copied := *s
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GameID < out[j].GameID })
	return out, nil
}

func (r *fakeSkillRepo) Update(_ context.Context, _ repositories.SQLExecutor, s *models.PlayerSkill) error {
	stored, ok := r.skills[skillKey(s.UserID, s.GameID)]
	if !ok {
		return repositories.ErrSkillNotFound
	}
	*stored = *s
	return nil
}

func (r *fakeSkillRepo) ListByGameOrderedByRating(_ context.Context, gameID, limit, offset int) ([]*models.PlayerSkill, int, error) {
	out := make([]*models.PlayerSkill, 0)
	for _, s := range r.skills {
		if s.GameID == gameID {
			copied := *s
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rating != out[j].Rating {
			return out[i].Rating > out[j].Rating
		}
		return out[i].ID < out[j].ID
	})
	total := len(out)
	if offset >= total {
		return []*models.PlayerSkill{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return out[offset:end], total, nil
}

type fakeQueueRepo struct {
	nextID  int
	entries map[int]*models.QueueEntry
	// claimLost entries stay WAITING but refuse the claim, as if another
	// matcher's transaction won the compare-and-swap first.
	claimLost map[int]bool
}

func newFakeQueueRepo() *fakeQueueRepo {
	return &fakeQueueRepo{
		nextID:    1,
		entries:   make(map[int]*models.QueueEntry),
		claimLost: make(map[int]bool),
	}
}

func (r *fakeQueueRepo) seedWaiting(userID, gameID, ratingValue int, joinedAt time.Time) *models.QueueEntry {
	e := &models.QueueEntry{
		ID:       r.nextID,
		UserID:   userID,
		GameID:   gameID,
		Rating:   ratingValue,
		Status:   models.QueueWaiting,
		JoinedAt: joinedAt,
	}
	r.nextID++
	r.entries[e.ID] = e
	return e
}

func (r *fakeQueueRepo) Create(_ context.Context, _ repositories.SQLExecutor, e *models.QueueEntry) error {
	e.ID = r.nextID
	r.nextID++
	e.JoinedAt = time.Now()
	stored := *e
	r.entries[e.ID] = &stored
	return nil
}

func (r *fakeQueueRepo) GetByID(_ context.Context, id int) (*models.QueueEntry, error) {
	e, ok := r.entries[id]
	if !ok {
		return nil, repositories.ErrQueueEntryNotFound
	}
	copied := *e
	return &copied, nil
}

func (r *fakeQueueRepo) FindWaitingByUserAndGame(_ context.Context, _ repositories.SQLExecutor, userID, gameID int) (*models.QueueEntry, error) {
	for _, e := range r.entries {
		if e.UserID == userID && e.GameID == gameID && e.Status == models.QueueWaiting {
			copied := *e
			return &copied, nil
		}
	}
	return nil, repositories.ErrQueueEntryNotFound
}

func (r *fakeQueueRepo) FindCandidates(_ context.Context, _ repositories.SQLExecutor, gameID, userID, ratingValue, band, limit int, excludeIDs []int) ([]*models.QueueEntry, error) {
	excluded := make(map[int]bool, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = true
	}

	out := make([]*models.QueueEntry, 0)
	for _, e := range r.entries {
		if e.GameID != gameID || e.UserID == userID || e.Status != models.QueueWaiting {
			continue
		}
		if e.Rating < ratingValue-band || e.Rating > ratingValue+band {
			continue
		}
		if excluded[e.ID] {
			continue
		}
		copied := *e
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rating != out[j].Rating {
			return out[i].Rating > out[j].Rating
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeQueueRepo) Claim(_ context.Context, _ repositories.SQLExecutor, id int, sessionID string, matchedAt time.Time) (bool, error) {
	e, ok := r.entries[id]
	if !ok || e.Status != models.QueueWaiting || r.claimLost[id] {
		return false, nil
	}
	e.Status = models.QueueMatched
	e.GameSessionID = &sessionID
	e.MatchedAt = &matchedAt
	return true, nil
}

func (r *fakeQueueRepo) Cancel(_ context.Context, _ repositories.SQLExecutor, id int) error {
	e, ok := r.entries[id]
	if !ok || e.Status != models.QueueWaiting {
		return repositories.ErrQueueEntryNotFound
	}
	e.Status = models.QueueCancelled
	return nil
}

func (r *fakeQueueRepo) CancelStale(_ context.Context, _ repositories.SQLExecutor, olderThan time.Time) (int64, error) {
	var count int64
	for _, e := range r.entries {
		if e.Status == models.QueueWaiting && e.JoinedAt.Before(olderThan) {
			e.Status = models.QueueCancelled
			count++
		}
	}
	return count, nil
}

type fakeSessionRepo struct {
	sessions map[string]*models.GameSession
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*models.GameSession)}
}

func (r *fakeSessionRepo) Create(_ context.Context, _ repositories.SQLExecutor, s *models.GameSession) error {
	s.StartedAt = time.Now()
	stored := *s
	r.sessions[s.ID] = &stored
	return nil
}

func (r *fakeSessionRepo) GetByID(_ context.Context, id string) (*models.GameSession, error) {
	s, ok := r.sessions[id]
	if !ok {
		return nil, repositories.ErrSessionNotFound
	}
	copied := *s
	return &copied, nil
}

type fakeWalletRepo struct {
	coins        map[int]int64
	diamonds     map[int]int64
	transactions []*models.Transaction
}

func newFakeWalletRepo() *fakeWalletRepo {
	return &fakeWalletRepo{coins: make(map[int]int64), diamonds: make(map[int]int64)}
}

func (r *fakeWalletRepo) GetUser(_ context.Context, _ repositories.SQLExecutor, id int) (*models.User, error) {
	coins, ok := r.coins[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	return &models.User{ID: id, Coins: coins, Diamonds: r.diamonds[id]}, nil
}

func (r *fakeWalletRepo) DebitCoins(_ context.Context, _ repositories.SQLExecutor, userID int, amount int64) error {
	balance, ok := r.coins[userID]
	if !ok || balance < amount {
		return repositories.ErrInsufficientCoins
	}
	r.coins[userID] = balance - amount
	return nil
}

func (r *fakeWalletRepo) CreditCoins(_ context.Context, _ repositories.SQLExecutor, userID int, amount int64) error {
	r.coins[userID] += amount
	return nil
}

func (r *fakeWalletRepo) CreditDiamonds(_ context.Context, _ repositories.SQLExecutor, userID int, amount int64) error {
	r.diamonds[userID] += amount
	return nil
}

func (r *fakeWalletRepo) AppendTransaction(_ context.Context, _ repositories.SQLExecutor, tx *models.Transaction) error {
	tx.ID = len(r.transactions) + 1
	tx.CreatedAt = time.Now()
	r.transactions = append(r.transactions, tx)
	return nil
}

func (r *fakeWalletRepo) ledgerByType(t models.TransactionType) []*models.Transaction {
	var out []*models.Transaction
	for _, tx := range r.transactions {
		if tx.Type == t {
			out = append(out, tx)
		}
	}
	return out
}
