package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/safak-senal-61/websachat-arena/brackets"
	"github.com/safak-senal-61/websachat-arena/events"
	"github.com/safak-senal-61/websachat-arena/models"
	"github.com/safak-senal-61/websachat-arena/repositories"
)

// CreateTournamentInput carries everything an organizer supplies when opening
// a tournament.
type CreateTournamentInput struct {
	GameID            int
	OrganizerID       int
	Name              string
	Description       *string
	Rules             *string
	RegistrationStart time.Time
	RegistrationEnd   time.Time
	StartDate         time.Time
	MaxParticipants   int
	EntryFee          int64
	PrizePool         int64
}

type TournamentService interface {
	Create(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error)
	List(ctx context.Context, filter repositories.TournamentFilter) ([]*models.Tournament, int, error)
	GetDetail(ctx context.Context, id int) (*models.Tournament, error)
	Register(ctx context.Context, tournamentID, userID int) (*models.TournamentParticipant, error)
	Withdraw(ctx context.Context, tournamentID, userID int) error
	GenerateBracket(ctx context.Context, tournamentID, actorID int, isAdmin bool) ([]*models.TournamentMatch, error)
	Cancel(ctx context.Context, tournamentID, actorID int, isAdmin bool) error
	ListParticipants(ctx context.Context, tournamentID int) ([]*models.TournamentParticipant, error)
	Standings(ctx context.Context, tournamentID int) ([]*models.TournamentParticipant, error)
	// AutoUpdateStatusesByDates advances tournaments whose registration window
	// boundaries have passed. Called by the scheduler loop.
	AutoUpdateStatusesByDates(ctx context.Context) (int, error)
}

type tournamentService struct {
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	matchRepo       repositories.MatchRepository
	gameRepo        repositories.GameRepository
	walletRepo      repositories.WalletRepository
	tx              repositories.Transactor
	generator       brackets.Generator
	publisher       events.Publisher
	logger          *slog.Logger
}

func NewTournamentService(
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	matchRepo repositories.MatchRepository,
	gameRepo repositories.GameRepository,
	walletRepo repositories.WalletRepository,
	tx repositories.Transactor,
	generator brackets.Generator,
	publisher events.Publisher,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		matchRepo:       matchRepo,
		gameRepo:        gameRepo,
		walletRepo:      walletRepo,
		tx:              tx,
		generator:       generator,
		publisher:       publisher,
		logger:          logger,
	}
}

func (s *tournamentService) Create(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error) {
	if !input.RegistrationStart.Before(input.RegistrationEnd) {
		return nil, ErrTournamentInvalidRegDates
	}
	if input.RegistrationEnd.After(input.StartDate) {
		return nil, ErrTournamentInvalidRegDates
	}
	if input.MaxParticipants < 2 {
		return nil, ErrTournamentInvalidCapacity
	}

	if _, err := s.gameRepo.GetByID(ctx, input.GameID); err != nil {
		if errors.Is(err, repositories.ErrGameNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("failed to verify game %d: %w", input.GameID, err)
	}

	status := models.TournamentUpcoming
	if !time.Now().Before(input.RegistrationStart) {
		status = models.TournamentRegistrationOpen
	}

	t := &models.Tournament{
		GameID:            input.GameID,
		OrganizerID:       input.OrganizerID,
		Name:              input.Name,
		Description:       input.Description,
		Rules:             input.Rules,
		Format:            models.FormatSingleElimination,
		Status:            status,
		RegistrationStart: input.RegistrationStart,
		RegistrationEnd:   input.RegistrationEnd,
		StartDate:         input.StartDate,
		MaxParticipants:   input.MaxParticipants,
		EntryFee:          input.EntryFee,
		PrizePool:         input.PrizePool,
	}

	if err := s.tournamentRepo.Create(ctx, nil, t); err != nil {
		switch {
		case errors.Is(err, repositories.ErrTournamentGameInvalid):
			return nil, ErrGameNotFound
		case errors.Is(err, repositories.ErrTournamentNameConflict):
			return nil, ErrTournamentNameConflict
		}
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}
	return t, nil
}

func (s *tournamentService) List(ctx context.Context, filter repositories.TournamentFilter) ([]*models.Tournament, int, error) {
	return s.tournamentRepo.List(ctx, filter)
}

// GetDetail loads a tournament with its participants and matches fetched
// concurrently.
func (s *tournamentService) GetDetail(ctx context.Context, id int) (*models.Tournament, error) {
	t, err := s.getTournament(ctx, nil, id)
	if err != nil {
		return nil, err
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		participants, err := s.participantRepo.ListByTournament(gCtx, id)
		if err != nil {
			return fmt.Errorf("failed to load participants for tournament %d: %w", id, err)
		}
		t.Participants = make([]models.TournamentParticipant, len(participants))
		for i, p := range participants {
			t.Participants[i] = *p
		}
		return nil
	})

	g.Go(func() error {
		matches, err := s.matchRepo.ListByTournament(gCtx, id, nil, nil)
		if err != nil {
			return fmt.Errorf("failed to load matches for tournament %d: %w", id, err)
		}
		t.Matches = make([]models.TournamentMatch, len(matches))
		for i, m := range matches {
			t.Matches[i] = *m
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *tournamentService) Register(ctx context.Context, tournamentID, userID int) (*models.TournamentParticipant, error) {
	participant := &models.TournamentParticipant{TournamentID: tournamentID, UserID: userID}

	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.getTournament(ctx, exec, tournamentID)
		if err != nil {
			return err
		}
		if t.Status != models.TournamentRegistrationOpen {
			return ErrRegistrationNotOpen
		}

		count, err := s.participantRepo.CountByTournament(ctx, exec, tournamentID)
		if err != nil {
			return err
		}
		if count >= t.MaxParticipants {
			return ErrTournamentFull
		}

		if err := s.participantRepo.Create(ctx, exec, participant); err != nil {
			if errors.Is(err, repositories.ErrParticipantConflict) {
				return ErrRegistrationConflict
			}
			return err
		}

		if t.EntryFee > 0 {
			if err := s.walletRepo.DebitCoins(ctx, exec, userID, t.EntryFee); err != nil {
				switch {
				case errors.Is(err, repositories.ErrInsufficientCoins):
					return ErrInsufficientFunds
				case errors.Is(err, repositories.ErrUserNotFound):
					return ErrUserNotFound
				}
				return err
			}
			return s.walletRepo.AppendTransaction(ctx, exec, &models.Transaction{
				UserID:            userID,
				Type:              models.TransactionTournamentEntry,
				Amount:            t.EntryFee,
				Currency:          models.CurrencyCoin,
				RelatedEntityID:   tournamentID,
				RelatedEntityType: "tournament",
			})
		}
		return nil
	})
	if err != nil {
		return nil, translateTxError(err)
	}
	return participant, nil
}

func (s *tournamentService) Withdraw(ctx context.Context, tournamentID, userID int) error {
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.getTournament(ctx, exec, tournamentID)
		if err != nil {
			return err
		}
		if t.Status != models.TournamentUpcoming && t.Status != models.TournamentRegistrationOpen {
			return ErrWithdrawClosed
		}

		if _, err := s.participantRepo.FindByTournamentAndUser(ctx, exec, tournamentID, userID); err != nil {
			if errors.Is(err, repositories.ErrParticipantNotFound) {
				return ErrParticipantNotFound
			}
			return err
		}
		if err := s.participantRepo.Delete(ctx, exec, tournamentID, userID); err != nil {
			return err
		}

		if t.EntryFee > 0 {
			return s.refundEntryFee(ctx, exec, t, userID)
		}
		return nil
	})
	return translateTxError(err)
}

func (s *tournamentService) GenerateBracket(ctx context.Context, tournamentID, actorID int, isAdmin bool) ([]*models.TournamentMatch, error) {
	var created []*models.TournamentMatch

	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.getTournament(ctx, exec, tournamentID)
		if err != nil {
			return err
		}
		if !isAdmin && t.OrganizerID != actorID {
			return ErrNotOrganizer
		}
		switch t.Status {
		case models.TournamentRegistrationClosed:
		case models.TournamentUpcoming, models.TournamentRegistrationOpen:
			return ErrRegistrationStillOpen
		default:
			return ErrBracketAlreadyGenerated
		}

		existing, err := s.matchRepo.CountByTournament(ctx, exec, tournamentID)
		if err != nil {
			return err
		}
		if existing > 0 {
			return ErrBracketAlreadyGenerated
		}

		participants, err := s.participantRepo.ListByTournament(ctx, tournamentID)
		if err != nil {
			return err
		}
		ids := make([]int, len(participants))
		for i, p := range participants {
			ids[i] = p.UserID
		}

		bracket, err := s.generator.Generate(ctx, brackets.GenerateParams{
			ParticipantIDs: ids,
			StartTime:      t.StartDate,
		})
		if err != nil {
			if errors.Is(err, brackets.ErrInsufficientParticipants) {
				return ErrInsufficientParticipants
			}
			return fmt.Errorf("failed to generate bracket for tournament %d: %w", tournamentID, err)
		}

		created, err = s.persistBracket(ctx, exec, t, bracket)
		if err != nil {
			return err
		}

		return s.tournamentRepo.UpdateStatus(ctx, exec, tournamentID,
			models.TournamentRegistrationClosed, models.TournamentInProgress)
	})
	if err != nil {
		return nil, translateTxError(err)
	}
	return created, nil
}

// persistBracket writes the seeded tree in two passes: entry round first so
// previous-match IDs are known at insert time, then next-match links once
// every row exists.
func (s *tournamentService) persistBracket(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament, bracket *brackets.Bracket) ([]*models.TournamentMatch, error) {
	now := time.Now()
	dbMatches := make([]*models.TournamentMatch, len(bracket.Matches))

	for idx := len(bracket.Matches) - 1; idx >= 0; idx-- {
		sm := bracket.Matches[idx]
		m := &models.TournamentMatch{
			TournamentID:  t.ID,
			Round:         sm.Round,
			MatchNumber:   sm.MatchNumber,
			Player1ID:     sm.Player1ID,
			Player2ID:     sm.Player2ID,
			Status:        models.MatchScheduled,
			ScheduledTime: sm.ScheduledTime,
		}
		if sm.Completed {
			m.Status = models.MatchCompleted
			m.WinnerID = sm.WinnerID
			m.CompletedTime = &now
		}
		if sm.Prev1Index >= 0 {
			m.PreviousMatch1ID = &dbMatches[sm.Prev1Index].ID
		}
		if sm.Prev2Index >= 0 {
			m.PreviousMatch2ID = &dbMatches[sm.Prev2Index].ID
		}

		if err := s.matchRepo.Create(ctx, exec, m); err != nil {
			return nil, err
		}
		dbMatches[idx] = m
	}

	for idx, sm := range bracket.Matches {
		if sm.NextIndex < 0 {
			continue
		}
		m := dbMatches[idx]
		next := dbMatches[sm.NextIndex]
		if err := s.matchRepo.SetNextMatchLink(ctx, exec, m.ID, next.ID, sm.WinnerSlot); err != nil {
			return nil, err
		}
		m.NextMatchID = &next.ID
		slot := sm.WinnerSlot
		m.WinnerToSlot = &slot
	}
	return dbMatches, nil
}

func (s *tournamentService) Cancel(ctx context.Context, tournamentID, actorID int, isAdmin bool) error {
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		t, err := s.getTournament(ctx, exec, tournamentID)
		if err != nil {
			return err
		}
		if !isAdmin && t.OrganizerID != actorID {
			return ErrNotOrganizer
		}
		if t.Status.IsTerminal() {
			return ErrTournamentNotCancellable
		}

		if err := s.tournamentRepo.UpdateStatus(ctx, exec, tournamentID, t.Status, models.TournamentCancelled); err != nil {
			return err
		}

		if t.EntryFee > 0 {
			participants, err := s.participantRepo.ListByTournament(ctx, tournamentID)
			if err != nil {
				return err
			}
			for _, p := range participants {
				if err := s.refundEntryFee(ctx, exec, t, p.UserID); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return translateTxError(err)
	}

	if pubErr := s.publisher.Publish(ctx, events.New(events.TypeTournamentCancelled,
		events.TournamentCancelledPayload{TournamentID: tournamentID})); pubErr != nil {
		s.logger.Warn("failed to publish tournament cancelled event",
			"tournament_id", tournamentID, "error", pubErr)
	}
	return nil
}

func (s *tournamentService) refundEntryFee(ctx context.Context, exec repositories.SQLExecutor, t *models.Tournament, userID int) error {
	if err := s.walletRepo.CreditCoins(ctx, exec, userID, t.EntryFee); err != nil {
		return err
	}
	return s.walletRepo.AppendTransaction(ctx, exec, &models.Transaction{
		UserID:            userID,
		Type:              models.TransactionTournamentRefund,
		Amount:            t.EntryFee,
		Currency:          models.CurrencyCoin,
		RelatedEntityID:   t.ID,
		RelatedEntityType: "tournament",
	})
}

func (s *tournamentService) ListParticipants(ctx context.Context, tournamentID int) ([]*models.TournamentParticipant, error) {
	if _, err := s.getTournament(ctx, nil, tournamentID); err != nil {
		return nil, err
	}
	return s.participantRepo.ListByTournament(ctx, tournamentID)
}

// Standings returns the ranked participants (winner first). Empty until the
// tournament completes.
func (s *tournamentService) Standings(ctx context.Context, tournamentID int) ([]*models.TournamentParticipant, error) {
	if _, err := s.getTournament(ctx, nil, tournamentID); err != nil {
		return nil, err
	}
	return s.participantRepo.ListRankedByTournament(ctx, tournamentID)
}

func (s *tournamentService) AutoUpdateStatusesByDates(ctx context.Context) (int, error) {
	now := time.Now()
	due, err := s.tournamentRepo.ListDueForStatusChange(ctx, now)
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, t := range due {
		var target models.TournamentStatus
		switch {
		case t.Status == models.TournamentUpcoming && !t.RegistrationStart.After(now):
			target = models.TournamentRegistrationOpen
		case t.Status == models.TournamentRegistrationOpen && !t.RegistrationEnd.After(now):
			target = models.TournamentRegistrationClosed
		default:
			continue
		}

		err := s.tournamentRepo.UpdateStatus(ctx, nil, t.ID, t.Status, target)
		if err != nil {
			// Somebody else already moved it; nothing lost.
			if errors.Is(err, repositories.ErrTournamentStatusStale) {
				continue
			}
			return updated, err
		}
		s.logger.Info("tournament status advanced",
			"tournament_id", t.ID, "from", t.Status, "to", target)
		updated++
	}
	return updated, nil
}

func (s *tournamentService) getTournament(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, exec, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to load tournament %d: %w", id, err)
	}
	return t, nil
}

