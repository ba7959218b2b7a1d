package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/safak-senal-61/websachat-arena/events"
	"github.com/safak-senal-61/websachat-arena/leaderboard"
	"github.com/safak-senal-61/websachat-arena/models"
	"github.com/safak-senal-61/websachat-arena/rating"
	"github.com/safak-senal-61/websachat-arena/repositories"
)

// ReportResolution tells the reporter what their submission led to.
type ReportResolution string

const (
	// ResolutionPending means the opponent has not reported yet.
	ResolutionPending ReportResolution = "PENDING_OPPONENT"
	// ResolutionCompleted means both reports agreed and the match settled.
	ResolutionCompleted ReportResolution = "COMPLETED"
	// ResolutionDisputed means the reports contradict each other.
	ResolutionDisputed ReportResolution = "DISPUTED"
)

// ReportResultInput is a player's view of the outcome: their own score first.
// The service reorients it to the match's player1/player2 axis.
type ReportResultInput struct {
	MatchID       int
	ReporterID    int
	OwnScore      int
	OpponentScore int
	Evidence      *string
}

type ReportOutcome struct {
	Resolution ReportResolution          `json:"resolution"`
	Report     *models.MatchResultReport `json:"report"`
	Match      *models.TournamentMatch   `json:"match"`
}

type ResolveDisputeInput struct {
	MatchID      int
	WinnerID     int
	Player1Score int
	Player2Score int
	AdminNotes   *string
}

type OverrideResultInput struct {
	MatchID      int
	WinnerID     int
	Player1Score int
	Player2Score int
	AdminNotes   *string
}

type MatchService interface {
	GetByID(ctx context.Context, id int) (*models.TournamentMatch, error)
	ListByTournament(ctx context.Context, tournamentID int, round *int, status *models.MatchStatus) ([]*models.TournamentMatch, error)
	ListByUser(ctx context.Context, userID int, status *models.MatchStatus, limit, offset int) ([]*models.TournamentMatch, int, error)
	ListReports(ctx context.Context, matchID int) ([]*models.MatchResultReport, error)
	// ReportResult records one player's result submission and, when the
	// opponent already reported, either settles the match (agreement) or marks
	// both reports disputed (contradiction).
	ReportResult(ctx context.Context, input ReportResultInput) (*ReportOutcome, error)
	// ResolveDispute lets an admin settle a disputed match with a final result.
	ResolveDispute(ctx context.Context, input ResolveDisputeInput) (*models.TournamentMatch, error)
	// OverrideResult lets an admin settle any open match regardless of reports.
	OverrideResult(ctx context.Context, input OverrideResultInput) (*models.TournamentMatch, error)
}

type matchService struct {
	matchRepo       repositories.MatchRepository
	reportRepo      repositories.ReportRepository
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	skillRepo       repositories.SkillRepository
	walletRepo      repositories.WalletRepository
	tx              repositories.Transactor
	publisher       events.Publisher
	cache           leaderboard.Cache
	logger          *slog.Logger
}

func NewMatchService(
	matchRepo repositories.MatchRepository,
	reportRepo repositories.ReportRepository,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	skillRepo repositories.SkillRepository,
	walletRepo repositories.WalletRepository,
	tx repositories.Transactor,
	publisher events.Publisher,
	cache leaderboard.Cache,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		matchRepo:       matchRepo,
		reportRepo:      reportRepo,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		skillRepo:       skillRepo,
		walletRepo:      walletRepo,
		tx:              tx,
		publisher:       publisher,
		cache:           cache,
		logger:          logger,
	}
}

func (s *matchService) GetByID(ctx context.Context, id int) (*models.TournamentMatch, error) {
	m, err := s.matchRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return m, nil
}

func (s *matchService) ListByTournament(ctx context.Context, tournamentID int, round *int, status *models.MatchStatus) ([]*models.TournamentMatch, error) {
	return s.matchRepo.ListByTournament(ctx, tournamentID, round, status)
}

func (s *matchService) ListByUser(ctx context.Context, userID int, status *models.MatchStatus, limit, offset int) ([]*models.TournamentMatch, int, error) {
	return s.matchRepo.ListByUser(ctx, userID, status, limit, offset)
}

func (s *matchService) ListReports(ctx context.Context, matchID int) ([]*models.MatchResultReport, error) {
	if _, err := s.GetByID(ctx, matchID); err != nil {
		return nil, err
	}
	return s.reportRepo.ListByMatch(ctx, nil, matchID)
}

func (s *matchService) ReportResult(ctx context.Context, input ReportResultInput) (*ReportOutcome, error) {
	if input.OwnScore < 0 || input.OpponentScore < 0 {
		return nil, ErrInvalidScore
	}
	if input.OwnScore == input.OpponentScore {
		return nil, ErrDrawNotAllowed
	}

	outcome := &ReportOutcome{}
	var effects *settlementEffects

	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		effects = nil

		m, err := s.lockOpenMatch(ctx, exec, input.MatchID)
		if err != nil {
			return err
		}
		if !m.HasPlayer(input.ReporterID) {
			return ErrNotMatchParticipant
		}

		// Reorient the reporter's (own, opponent) scores onto the match axis.
		p1Score, p2Score := input.OwnScore, input.OpponentScore
		opponentID := *m.Player1ID
		if *m.Player1ID == input.ReporterID {
			opponentID = *m.Player2ID
		} else {
			p1Score, p2Score = input.OpponentScore, input.OwnScore
		}

		own, err := s.reportRepo.FindPendingByMatchAndReporter(ctx, exec, m.ID, input.ReporterID)
		if err != nil {
			return err
		}
		if own != nil {
			return ErrDuplicateReport
		}

		report := &models.MatchResultReport{
			MatchID:      m.ID,
			ReporterID:   input.ReporterID,
			Player1Score: p1Score,
			Player2Score: p2Score,
			Evidence:     input.Evidence,
			Status:       models.ReportPending,
		}
		if err := s.reportRepo.Create(ctx, exec, report); err != nil {
			return err
		}
		outcome.Report = report
		outcome.Match = m

		theirs, err := s.reportRepo.FindPendingByMatchAndReporter(ctx, exec, m.ID, opponentID)
		if err != nil {
			return err
		}
		if theirs == nil {
			outcome.Resolution = ResolutionPending
			return nil
		}

		if theirs.Player1Score != p1Score || theirs.Player2Score != p2Score {
			outcome.Resolution = ResolutionDisputed
			return s.reportRepo.UpdateStatusByMatch(ctx, exec, m.ID, models.ReportDisputed)
		}

		if err := s.reportRepo.UpdateStatusByMatch(ctx, exec, m.ID, models.ReportApproved); err != nil {
			return err
		}
		winnerID := *m.Player1ID
		if p2Score > p1Score {
			winnerID = *m.Player2ID
		}
		effects, err = s.completeMatch(ctx, exec, m, p1Score, p2Score, winnerID, nil)
		if err != nil {
			return err
		}
		outcome.Resolution = ResolutionCompleted
		return nil
	})
	if err != nil {
		return nil, translateTxError(err)
	}

	s.applyPostCommitEffects(ctx, effects)
	return outcome, nil
}

func (s *matchService) ResolveDispute(ctx context.Context, input ResolveDisputeInput) (*models.TournamentMatch, error) {
	var result *models.TournamentMatch
	var effects *settlementEffects

	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		effects = nil

		m, err := s.lockOpenMatch(ctx, exec, input.MatchID)
		if err != nil {
			return err
		}

		disputed, err := s.reportRepo.CountByMatchAndStatus(ctx, exec, m.ID, models.ReportDisputed)
		if err != nil {
			return err
		}
		if disputed == 0 {
			return ErrNoDisputeToResolve
		}

		if err := validateFinalScore(m, input.WinnerID, input.Player1Score, input.Player2Score); err != nil {
			return err
		}
		if err := s.reportRepo.UpdateStatusByMatch(ctx, exec, m.ID, models.ReportResolved); err != nil {
			return err
		}

		effects, err = s.completeMatch(ctx, exec, m, input.Player1Score, input.Player2Score, input.WinnerID, input.AdminNotes)
		if err != nil {
			return err
		}
		result = m
		return nil
	})
	if err != nil {
		return nil, translateTxError(err)
	}

	s.applyPostCommitEffects(ctx, effects)
	return result, nil
}

func (s *matchService) OverrideResult(ctx context.Context, input OverrideResultInput) (*models.TournamentMatch, error) {
	var result *models.TournamentMatch
	var effects *settlementEffects

	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		effects = nil

		m, err := s.lockOpenMatch(ctx, exec, input.MatchID)
		if err != nil {
			return err
		}
		if err := validateFinalScore(m, input.WinnerID, input.Player1Score, input.Player2Score); err != nil {
			return err
		}

		// Any outstanding reports are superseded by the override.
		if err := s.reportRepo.UpdateStatusByMatch(ctx, exec, m.ID, models.ReportResolved); err != nil {
			return err
		}

		effects, err = s.completeMatch(ctx, exec, m, input.Player1Score, input.Player2Score, input.WinnerID, input.AdminNotes)
		if err != nil {
			return err
		}
		result = m
		return nil
	})
	if err != nil {
		return nil, translateTxError(err)
	}

	s.applyPostCommitEffects(ctx, effects)
	return result, nil
}

// lockOpenMatch loads the match under FOR UPDATE and verifies it can still be
// completed: SCHEDULED with both players assigned.
func (s *matchService) lockOpenMatch(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.TournamentMatch, error) {
	m, err := s.matchRepo.GetByIDForUpdate(ctx, exec, id)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	if m.Status != models.MatchScheduled {
		return nil, ErrMatchAlreadyCompleted
	}
	if m.Player1ID == nil || m.Player2ID == nil {
		return nil, ErrPlayersNotAssigned
	}
	return m, nil
}

// validateFinalScore checks an admin-supplied result: the winner must occupy a
// slot and the scores must agree with the declared winner.
func validateFinalScore(m *models.TournamentMatch, winnerID, p1Score, p2Score int) error {
	if p1Score < 0 || p2Score < 0 {
		return ErrInvalidScore
	}
	if p1Score == p2Score {
		return ErrDrawNotAllowed
	}
	if !m.HasPlayer(winnerID) {
		return ErrNotMatchParticipant
	}
	winnerIsPlayer1 := *m.Player1ID == winnerID
	if winnerIsPlayer1 != (p1Score > p2Score) {
		return ErrInvalidScore
	}
	return nil
}

// ratingRefresh is a leaderboard-cache update owed after commit.
type ratingRefresh struct {
	gameID int
	userID int
	rating int
}

// settlementEffects are the side effects a completed match owes the outside
// world. They are collected inside the transaction and applied only after the
// commit succeeds.
type settlementEffects struct {
	events    []events.Event
	refreshes []ratingRefresh
}

// completeMatch performs the single settlement of a match: the conditional
// status flip, rating updates for both players, winner advancement, and, for
// the final, tournament completion with ranks and the prize payout. The
// conditional update in matchRepo.Complete is what makes all of this
// exactly-once under concurrent submissions.
func (s *matchService) completeMatch(ctx context.Context, exec repositories.SQLExecutor, m *models.TournamentMatch, p1Score, p2Score, winnerID int, adminNotes *string) (*settlementEffects, error) {
	now := time.Now()

	if err := s.matchRepo.Complete(ctx, exec, m.ID, p1Score, p2Score, winnerID, now, adminNotes); err != nil {
		if errors.Is(err, repositories.ErrMatchNotOpen) {
			return nil, ErrMatchAlreadyCompleted
		}
		return nil, err
	}
	m.Player1Score = &p1Score
	m.Player2Score = &p2Score
	m.WinnerID = &winnerID
	m.Status = models.MatchCompleted
	m.CompletedTime = &now

	loserID := *m.Player1ID
	if loserID == winnerID {
		loserID = *m.Player2ID
	}

	t, err := s.tournamentRepo.GetByID(ctx, exec, m.TournamentID)
	if err != nil {
		return nil, err
	}

	effects := &settlementEffects{
		events: []events.Event{events.New(events.TypeMatchCompleted, events.MatchCompletedPayload{
			TournamentID: m.TournamentID,
			MatchID:      m.ID,
			WinnerID:     winnerID,
			LoserID:      &loserID,
			Round:        m.Round,
		})},
	}

	if err := s.applyRatings(ctx, exec, t.GameID, winnerID, loserID, effects); err != nil {
		return nil, err
	}

	if m.NextMatchID != nil && m.WinnerToSlot != nil {
		if err := s.matchRepo.SetPlayerSlot(ctx, exec, *m.NextMatchID, *m.WinnerToSlot, winnerID); err != nil {
			return nil, err
		}
	}

	if m.IsFinal() {
		if err := s.settleTournament(ctx, exec, t, winnerID, loserID, now, effects); err != nil {
			return nil, err
		}
	}
	return effects, nil
}

// applyRatings moves both players' ratings and records, and queues the cache
// refreshes and any level-up events.
func (s *matchService) applyRatings(ctx context.Context, exec repositories.SQLExecutor, gameID, winnerID, loserID int, effects *settlementEffects) error {
	winnerSkill, err := s.skillRepo.GetOrCreate(ctx, exec, winnerID, gameID)
	if err != nil {
		return err
	}
	loserSkill, err := s.skillRepo.GetOrCreate(ctx, exec, loserID, gameID)
	if err != nil {
		return err
	}

	// Ratings and levels as they stood before the result, captured before
	// Record mutates either side.
	winnerRating, loserRating := winnerSkill.Rating, loserSkill.Rating
	winnerLevel, loserLevel := winnerSkill.Level, loserSkill.Level

	rating.Record(winnerSkill, &loserRating, rating.Win)
	rating.Record(loserSkill, &winnerRating, rating.Loss)

	for _, moved := range []struct {
		skill    *models.PlayerSkill
		oldLevel int
	}{
		{winnerSkill, winnerLevel},
		{loserSkill, loserLevel},
	} {
		if err := s.skillRepo.Update(ctx, exec, moved.skill); err != nil {
			return err
		}
		if moved.skill.Level > moved.oldLevel {
			effects.events = append(effects.events, events.New(events.TypeLevelUp, events.LevelUpPayload{
				UserID:   moved.skill.UserID,
				GameID:   gameID,
				OldLevel: moved.oldLevel,
				NewLevel: moved.skill.Level,
			}))
		}
		effects.refreshes = append(effects.refreshes, ratingRefresh{
			gameID: gameID,
			userID: moved.skill.UserID,
			rating: moved.skill.Rating,
		})
	}
	return nil
}

// settleTournament closes out the event once the final settles: COMPLETED
// status, ranks 1 and 2, and the diamond prize with its ledger row. All of it
// rides the same transaction as the match flip, so a retry can never pay the
// prize twice.
func (s *matchService) settleTournament(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament, winnerID, runnerUpID int, now time.Time, effects *settlementEffects) error {
	if err := s.tournamentRepo.SetCompleted(ctx, exec, t.ID, now); err != nil {
		return err
	}
	if err := s.participantRepo.SetRank(ctx, exec, t.ID, winnerID, 1); err != nil {
		return err
	}
	if err := s.participantRepo.SetRank(ctx, exec, t.ID, runnerUpID, 2); err != nil {
		return err
	}

	if t.PrizePool > 0 {
		if err := s.walletRepo.CreditDiamonds(ctx, exec, winnerID, t.PrizePool); err != nil {
			return err
		}
		err := s.walletRepo.AppendTransaction(ctx, exec, &models.Transaction{
			UserID:            winnerID,
			Type:              models.TransactionTournamentPrize,
			Amount:            t.PrizePool,
			Currency:          models.CurrencyDiamond,
			RelatedEntityID:   t.ID,
			RelatedEntityType: "tournament",
		})
		if err != nil {
			return err
		}
	}

	effects.events = append(effects.events, events.New(events.TypeTournamentCompleted,
		events.TournamentCompletedPayload{
			TournamentID: t.ID,
			WinnerID:     winnerID,
			RunnerUpID:   runnerUpID,
		}))
	return nil
}

// applyPostCommitEffects publishes events and refreshes the leaderboard cache
// after a successful commit. Failures here are logged and dropped: the state
// transition already happened.
func (s *matchService) applyPostCommitEffects(ctx context.Context, effects *settlementEffects) {
	if effects == nil {
		return
	}
	for _, e := range effects.events {
		if err := s.publisher.Publish(ctx, e); err != nil {
			s.logger.Warn("failed to publish event", "type", e.Type, "error", err)
		}
	}
	for _, r := range effects.refreshes {
		if err := s.cache.SetRating(ctx, r.gameID, r.userID, r.rating); err != nil {
			s.logger.Warn("failed to refresh leaderboard cache",
				"game_id", r.gameID, "user_id", r.userID, "error", err)
		}
	}
}
