package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/safak-senal-61/websachat-arena/events"
	"github.com/safak-senal-61/websachat-arena/leaderboard"
	"github.com/safak-senal-61/websachat-arena/models"
	"github.com/safak-senal-61/websachat-arena/repositories"
)

// RatingBand is how far (in rating points, both directions) the matcher looks
// for an opponent.
const RatingBand = 200

// QueueJoinResult is what JoinQueue hands back: the caller's entry, plus the
// session when an opponent was found immediately.
type QueueJoinResult struct {
	Entry   *models.QueueEntry  `json:"entry"`
	Session *models.GameSession `json:"session,omitempty"`
}

// LeaderboardPage is one page of rating standings for a game.
type LeaderboardPage struct {
	Entries []leaderboard.Entry `json:"entries"`
	Total   int                 `json:"total"`
	Limit   int                 `json:"limit"`
	Offset  int                 `json:"offset"`
}

type MatchmakingService interface {
	// JoinQueue enqueues the user for a game and immediately tries to pair
	// them with a waiting opponent inside the same transaction.
	JoinQueue(ctx context.Context, userID, gameID int) (*QueueJoinResult, error)
	LeaveQueue(ctx context.Context, entryID, userID int) error
	CheckQueueStatus(ctx context.Context, entryID, userID int) (*QueueJoinResult, error)
	// ExpireStaleEntries cancels WAITING entries older than ttl. Called by the
	// scheduler loop.
	ExpireStaleEntries(ctx context.Context, ttl time.Duration) (int64, error)
	GetLeaderboard(ctx context.Context, gameID, limit, offset int) (*LeaderboardPage, error)
	GetPlayerSkill(ctx context.Context, userID, gameID int) (*models.PlayerSkill, error)
	ListPlayerSkills(ctx context.Context, userID int) ([]*models.PlayerSkill, error)
}

type matchmakingService struct {
	queueRepo     repositories.QueueRepository
	sessionRepo   repositories.SessionRepository
	skillRepo     repositories.SkillRepository
	gameRepo      repositories.GameRepository
	tx            repositories.Transactor
	publisher     events.Publisher
	cache         leaderboard.Cache
	claimAttempts int
	logger        *slog.Logger
}

func NewMatchmakingService(
	queueRepo repositories.QueueRepository,
	sessionRepo repositories.SessionRepository,
	skillRepo repositories.SkillRepository,
	gameRepo repositories.GameRepository,
	tx repositories.Transactor,
	publisher events.Publisher,
	cache leaderboard.Cache,
	claimAttempts int,
	logger *slog.Logger,
) MatchmakingService {
	if claimAttempts < 1 {
		claimAttempts = 1
	}
	return &matchmakingService{
		queueRepo:     queueRepo,
		sessionRepo:   sessionRepo,
		skillRepo:     skillRepo,
		gameRepo:      gameRepo,
		tx:            tx,
		publisher:     publisher,
		cache:         cache,
		claimAttempts: claimAttempts,
		logger:        logger,
	}
}

func (s *matchmakingService) JoinQueue(ctx context.Context, userID, gameID int) (*QueueJoinResult, error) {
	if _, err := s.gameRepo.GetByID(ctx, gameID); err != nil {
		if errors.Is(err, repositories.ErrGameNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, err
	}

	result := &QueueJoinResult{}

	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		result.Entry, result.Session = nil, nil

		existing, err := s.queueRepo.FindWaitingByUserAndGame(ctx, exec, userID, gameID)
		if err != nil && !errors.Is(err, repositories.ErrQueueEntryNotFound) {
			return err
		}
		if existing != nil {
			return ErrAlreadyQueued
		}

		skill, err := s.skillRepo.GetOrCreate(ctx, exec, userID, gameID)
		if err != nil {
			return err
		}

		entry := &models.QueueEntry{
			UserID: userID,
			GameID: gameID,
			Rating: skill.Rating,
			Status: models.QueueWaiting,
		}
		if err := s.queueRepo.Create(ctx, exec, entry); err != nil {
			return err
		}
		result.Entry = entry

		session, err := s.tryPair(ctx, exec, entry)
		if err != nil {
			return err
		}
		result.Session = session
		return nil
	})
	if err != nil {
		return nil, translateTxError(err)
	}

	if result.Session != nil {
		e := events.New(events.TypeQueueMatched, events.QueueMatchedPayload{
			GameID:    gameID,
			SessionID: result.Session.ID,
			PlayerIDs: result.Session.PlayerIDs,
		})
		if pubErr := s.publisher.Publish(ctx, e); pubErr != nil {
			s.logger.Warn("failed to publish queue matched event",
				"session_id", result.Session.ID, "error", pubErr)
		}
	}
	return result, nil
}

// tryPair claims the best candidate in the rating band via compare-and-swap.
// A candidate that another matcher grabbed first just costs one attempt; after
// claimAttempts losses the entry stays WAITING for a later joiner to find.
func (s *matchmakingService) tryPair(ctx context.Context, exec repositories.SQLExecutor, entry *models.QueueEntry) (*models.GameSession, error) {
	attempted := make([]int, 0, s.claimAttempts)

	for len(attempted) < s.claimAttempts {
		candidates, err := s.queueRepo.FindCandidates(ctx, exec,
			entry.GameID, entry.UserID, entry.Rating, RatingBand,
			s.claimAttempts-len(attempted), attempted)
		if err != nil {
			return nil, err
		}
		if len(candidates) == 0 {
			return nil, nil
		}

		for _, candidate := range candidates {
			if len(attempted) >= s.claimAttempts {
				return nil, nil
			}
			attempted = append(attempted, candidate.ID)

			now := time.Now()
			sessionID := uuid.NewString()

			claimed, err := s.queueRepo.Claim(ctx, exec, candidate.ID, sessionID, now)
			if err != nil {
				return nil, err
			}
			if !claimed {
				continue
			}
			if _, err := s.queueRepo.Claim(ctx, exec, entry.ID, sessionID, now); err != nil {
				return nil, err
			}
			entry.Status = models.QueueMatched
			entry.MatchedAt = &now
			entry.GameSessionID = &sessionID

			session := &models.GameSession{
				ID:        sessionID,
				GameID:    entry.GameID,
				Status:    models.SessionActive,
				PlayerIDs: []int{candidate.UserID, entry.UserID},
			}
			if err := s.sessionRepo.Create(ctx, exec, session); err != nil {
				return nil, err
			}
			return session, nil
		}
	}
	return nil, nil
}

func (s *matchmakingService) LeaveQueue(ctx context.Context, entryID, userID int) error {
	entry, err := s.getOwnedEntry(ctx, entryID, userID)
	if err != nil {
		return err
	}
	if entry.Status != models.QueueWaiting {
		return ErrQueueEntryNotWaiting
	}

	// The cancel is conditional on WAITING, so losing a race with a matcher
	// surfaces as not-waiting rather than un-matching the entry.
	if err := s.queueRepo.Cancel(ctx, nil, entryID); err != nil {
		if errors.Is(err, repositories.ErrQueueEntryNotFound) {
			return ErrQueueEntryNotWaiting
		}
		return err
	}
	return nil
}

func (s *matchmakingService) CheckQueueStatus(ctx context.Context, entryID, userID int) (*QueueJoinResult, error) {
	entry, err := s.getOwnedEntry(ctx, entryID, userID)
	if err != nil {
		return nil, err
	}

	result := &QueueJoinResult{Entry: entry}
	if entry.Status == models.QueueMatched && entry.GameSessionID != nil {
		session, err := s.sessionRepo.GetByID(ctx, *entry.GameSessionID)
		if err != nil {
			return nil, err
		}
		result.Session = session
	}
	return result, nil
}

func (s *matchmakingService) getOwnedEntry(ctx context.Context, entryID, userID int) (*models.QueueEntry, error) {
	entry, err := s.queueRepo.GetByID(ctx, entryID)
	if err != nil {
		if errors.Is(err, repositories.ErrQueueEntryNotFound) {
			return nil, ErrQueueEntryNotFound
		}
		return nil, err
	}
	if entry.UserID != userID {
		return nil, ErrQueueEntryForbidden
	}
	return entry, nil
}

func (s *matchmakingService) ExpireStaleEntries(ctx context.Context, ttl time.Duration) (int64, error) {
	expired, err := s.queueRepo.CancelStale(ctx, nil, time.Now().Add(-ttl))
	if err != nil {
		return 0, err
	}
	if expired > 0 {
		s.logger.Info("expired stale queue entries", "count", expired)
	}
	return expired, nil
}

// GetLeaderboard serves standings from the Redis cache and falls back to
// Postgres when the cache is empty or unavailable, rewarming it as it goes.
func (s *matchmakingService) GetLeaderboard(ctx context.Context, gameID, limit, offset int) (*LeaderboardPage, error) {
	if _, err := s.gameRepo.GetByID(ctx, gameID); err != nil {
		if errors.Is(err, repositories.ErrGameNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, err
	}

	entries, cacheErr := s.cache.GetPage(ctx, gameID, offset, limit)
	if cacheErr == nil && len(entries) > 0 {
		total, err := s.cache.Count(ctx, gameID)
		if err == nil {
			return &LeaderboardPage{
				Entries: entries,
				Total:   int(total),
				Limit:   limit,
				Offset:  offset,
			}, nil
		}
		cacheErr = err
	}
	if cacheErr != nil {
		s.logger.Warn("leaderboard cache unavailable, falling back to database",
			"game_id", gameID, "error", cacheErr)
	}

	skills, total, err := s.skillRepo.ListByGameOrderedByRating(ctx, gameID, limit, offset)
	if err != nil {
		return nil, err
	}

	page := &LeaderboardPage{
		Entries: make([]leaderboard.Entry, len(skills)),
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	}
	for i, skill := range skills {
		page.Entries[i] = leaderboard.Entry{
			Rank:   offset + i + 1,
			UserID: skill.UserID,
			Rating: skill.Rating,
		}
		if warmErr := s.cache.SetRating(ctx, gameID, skill.UserID, skill.Rating); warmErr != nil {
			s.logger.Warn("failed to rewarm leaderboard cache",
				"game_id", gameID, "user_id", skill.UserID, "error", warmErr)
		}
	}
	return page, nil
}

func (s *matchmakingService) GetPlayerSkill(ctx context.Context, userID, gameID int) (*models.PlayerSkill, error) {
	skill, err := s.skillRepo.Get(ctx, userID, gameID)
	if err != nil {
		if errors.Is(err, repositories.ErrSkillNotFound) {
			return nil, ErrSkillNotFound
		}
		return nil, err
	}
	return skill, nil
}

func (s *matchmakingService) ListPlayerSkills(ctx context.Context, userID int) ([]*models.PlayerSkill, error) {
	return s.skillRepo.ListByUser(ctx, userID)
}
