package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safak-senal-61/websachat-arena/models"
)

var ErrSessionNotFound = errors.New("game session not found")

type SessionRepository interface {
	Create(ctx context.Context, exec SQLExecutor, s *models.GameSession) error
	GetByID(ctx context.Context, id string) (*models.GameSession, error)
}

type postgresSessionRepository struct {
	db *sql.DB
}

func NewPostgresSessionRepository(db *sql.DB) SessionRepository {
	return &postgresSessionRepository{db: db}
}

func (r *postgresSessionRepository) Create(ctx context.Context, exec SQLExecutor, s *models.GameSession) error {
	if exec == nil {
		exec = r.db
	}

	query := `INSERT INTO game_sessions (id, game_id, status) VALUES ($1, $2, $3) RETURNING started_at`
	if err := exec.QueryRowContext(ctx, query, s.ID, s.GameID, s.Status).Scan(&s.StartedAt); err != nil {
		return fmt.Errorf("failed to create game session: %w", err)
	}

	for _, playerID := range s.PlayerIDs {
		insert := `INSERT INTO game_session_players (session_id, user_id) VALUES ($1, $2)`
		if _, err := exec.ExecContext(ctx, insert, s.ID, playerID); err != nil {
			return fmt.Errorf("failed to add player %d to session %s: %w", playerID, s.ID, err)
		}
	}
	return nil
}

func (r *postgresSessionRepository) GetByID(ctx context.Context, id string) (*models.GameSession, error) {
	query := `SELECT id, game_id, status, started_at FROM game_sessions WHERE id = $1`

	s := &models.GameSession{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&s.ID, &s.GameID, &s.Status, &s.StartedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to scan game session %s: %w", id, err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id FROM game_session_players WHERE session_id = $1 ORDER BY user_id ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query session players: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var userID int
		if scanErr := rows.Scan(&userID); scanErr != nil {
			return nil, fmt.Errorf("failed to scan session player row: %w", scanErr)
		}
		s.PlayerIDs = append(s.PlayerIDs, userID)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during session player rows iteration: %w", err)
	}
	return s, nil
}
