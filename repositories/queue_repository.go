package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/safak-senal-61/websachat-arena/models"
)

// intArray converts ids to the representation lib/pq can bind to = ANY($n).
func intArray(ids []int) interface{} {
	converted := make([]int64, len(ids))
	for i, id := range ids {
		converted[i] = int64(id)
	}
	return pq.Array(converted)
}

var ErrQueueEntryNotFound = errors.New("matchmaking queue entry not found")

type QueueRepository interface {
	Create(ctx context.Context, exec SQLExecutor, e *models.QueueEntry) error
	GetByID(ctx context.Context, id int) (*models.QueueEntry, error)
	FindWaitingByUserAndGame(ctx context.Context, exec SQLExecutor, userID, gameID int) (*models.QueueEntry, error)
	// FindCandidates returns WAITING entries for gameID within ±band of
	// rating, excluding the given user and any already-attempted entry IDs,
	// best rating first and oldest first within equal ratings.
	FindCandidates(ctx context.Context, exec SQLExecutor, gameID, userID, rating, band, limit int, excludeIDs []int) ([]*models.QueueEntry, error)
	// Claim transitions an entry WAITING -> MATCHED only if it is still
	// WAITING, reporting whether this caller won the race.
	Claim(ctx context.Context, exec SQLExecutor, id int, sessionID string, matchedAt time.Time) (bool, error)
	Cancel(ctx context.Context, exec SQLExecutor, id int) error
	CancelStale(ctx context.Context, exec SQLExecutor, olderThan time.Time) (int64, error)
}

type postgresQueueRepository struct {
	db *sql.DB
}

func NewPostgresQueueRepository(db *sql.DB) QueueRepository {
	return &postgresQueueRepository{db: db}
}

const queueColumns = `id, user_id, game_id, rating, status, joined_at, matched_at, game_session_id`

func scanQueueEntry(row interface{ Scan(...interface{}) error }, e *models.QueueEntry) error {
	return row.Scan(
		&e.ID, &e.UserID, &e.GameID, &e.Rating,
		&e.Status, &e.JoinedAt, &e.MatchedAt, &e.GameSessionID,
	)
}

func (r *postgresQueueRepository) Create(ctx context.Context, exec SQLExecutor, e *models.QueueEntry) error {
	if exec == nil {
		exec = r.db
	}
	query := `
		INSERT INTO matchmaking_queue (user_id, game_id, rating, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, joined_at`

	err := exec.QueryRowContext(ctx, query, e.UserID, e.GameID, e.Rating, e.Status).
		Scan(&e.ID, &e.JoinedAt)
	if err != nil {
		return fmt.Errorf("failed to create queue entry: %w", err)
	}
	return nil
}

func (r *postgresQueueRepository) GetByID(ctx context.Context, id int) (*models.QueueEntry, error) {
	query := `SELECT ` + queueColumns + ` FROM matchmaking_queue WHERE id = $1`
	e := &models.QueueEntry{}
	if err := scanQueueEntry(r.db.QueryRowContext(ctx, query, id), e); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrQueueEntryNotFound
		}
		return nil, fmt.Errorf("failed to scan queue entry %d: %w", id, err)
	}
	return e, nil
}

func (r *postgresQueueRepository) FindWaitingByUserAndGame(ctx context.Context, exec SQLExecutor, userID, gameID int) (*models.QueueEntry, error) {
	if exec == nil {
		exec = r.db
	}
	query := `SELECT ` + queueColumns + `
		FROM matchmaking_queue
		WHERE user_id = $1 AND game_id = $2 AND status = $3
		LIMIT 1`

	e := &models.QueueEntry{}
	err := scanQueueEntry(exec.QueryRowContext(ctx, query, userID, gameID, models.QueueWaiting), e)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrQueueEntryNotFound
		}
		return nil, fmt.Errorf("failed to scan waiting queue entry: %w", err)
	}
	return e, nil
}

func (r *postgresQueueRepository) FindCandidates(ctx context.Context, exec SQLExecutor, gameID, userID, rating, band, limit int, excludeIDs []int) ([]*models.QueueEntry, error) {
	if exec == nil {
		exec = r.db
	}
	query := `SELECT ` + queueColumns + `
		FROM matchmaking_queue
		WHERE game_id = $1
		  AND user_id <> $2
		  AND status = $3
		  AND rating BETWEEN $4 AND $5
		  AND NOT (id = ANY($6))
		ORDER BY rating DESC, joined_at ASC
		LIMIT $7`

	if excludeIDs == nil {
		excludeIDs = []int{}
	}
	rows, err := exec.QueryContext(ctx, query,
		gameID, userID, models.QueueWaiting,
		rating-band, rating+band, intArray(excludeIDs), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query queue candidates: %w", err)
	}
	defer rows.Close()

	entries := make([]*models.QueueEntry, 0)
	for rows.Next() {
		var e models.QueueEntry
		if scanErr := scanQueueEntry(rows, &e); scanErr != nil {
			return nil, fmt.Errorf("failed to scan candidate row: %w", scanErr)
		}
		entries = append(entries, &e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during candidate rows iteration: %w", err)
	}
	return entries, nil
}

func (r *postgresQueueRepository) Claim(ctx context.Context, exec SQLExecutor, id int, sessionID string, matchedAt time.Time) (bool, error) {
	if exec == nil {
		exec = r.db
	}
	query := `
		UPDATE matchmaking_queue
		SET status = $1, game_session_id = $2, matched_at = $3
		WHERE id = $4 AND status = $5`

	result, err := exec.ExecContext(ctx, query,
		models.QueueMatched, sessionID, matchedAt, id, models.QueueWaiting)
	if err != nil {
		return false, fmt.Errorf("failed to claim queue entry %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check claim result: %w", err)
	}
	return affected == 1, nil
}

func (r *postgresQueueRepository) Cancel(ctx context.Context, exec SQLExecutor, id int) error {
	if exec == nil {
		exec = r.db
	}
	query := `UPDATE matchmaking_queue SET status = $1 WHERE id = $2 AND status = $3`
	result, err := exec.ExecContext(ctx, query, models.QueueCancelled, id, models.QueueWaiting)
	if err != nil {
		return fmt.Errorf("failed to cancel queue entry %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrQueueEntryNotFound)
}

func (r *postgresQueueRepository) CancelStale(ctx context.Context, exec SQLExecutor, olderThan time.Time) (int64, error) {
	if exec == nil {
		exec = r.db
	}
	query := `UPDATE matchmaking_queue SET status = $1 WHERE status = $2 AND joined_at < $3`
	result, err := exec.ExecContext(ctx, query, models.QueueCancelled, models.QueueWaiting, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to cancel stale queue entries: %w", err)
	}
	return result.RowsAffected()
}
