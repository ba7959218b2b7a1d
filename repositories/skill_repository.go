package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/safak-senal-61/websachat-arena/models"
)

var ErrSkillNotFound = errors.New("player skill record not found")

type SkillRepository interface {
	// GetOrCreate loads the skill record for (userID, gameID), lazily
	// inserting the default record on first use.
	GetOrCreate(ctx context.Context, exec SQLExecutor, userID, gameID int) (*models.PlayerSkill, error)
	Get(ctx context.Context, userID, gameID int) (*models.PlayerSkill, error)
	ListByUser(ctx context.Context, userID int) ([]*models.PlayerSkill, error)
	Update(ctx context.Context, exec SQLExecutor, s *models.PlayerSkill) error
	ListByGameOrderedByRating(ctx context.Context, gameID, limit, offset int) ([]*models.PlayerSkill, int, error)
}

type postgresSkillRepository struct {
	db *sql.DB
}

func NewPostgresSkillRepository(db *sql.DB) SkillRepository {
	return &postgresSkillRepository{db: db}
}

const skillColumns = `id, user_id, game_id, rating, games_played, wins, losses, draws, level, updated_at`

func scanSkill(row interface{ Scan(...interface{}) error }, s *models.PlayerSkill) error {
	return row.Scan(
		&s.ID, &s.UserID, &s.GameID, &s.Rating,
		&s.GamesPlayed, &s.Wins, &s.Losses, &s.Draws,
		&s.Level, &s.UpdatedAt,
	)
}

func (r *postgresSkillRepository) GetOrCreate(ctx context.Context, exec SQLExecutor, userID, gameID int) (*models.PlayerSkill, error) {
	if exec == nil {
		exec = r.db
	}

	s := &models.PlayerSkill{}
	query := `SELECT ` + skillColumns + ` FROM player_skills WHERE user_id = $1 AND game_id = $2`
	err := scanSkill(exec.QueryRowContext(ctx, query, userID, gameID), s)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to scan player skill: %w", err)
	}

	created := models.NewPlayerSkill(userID, gameID)
	insert := `
		INSERT INTO player_skills (user_id, game_id, rating, games_played, wins, losses, draws, level)
		VALUES ($1, $2, $3, 0, 0, 0, 0, $4)
		RETURNING id, updated_at`
	err = exec.QueryRowContext(ctx, insert, userID, gameID, created.Rating, created.Level).
		Scan(&created.ID, &created.UpdatedAt)
	if err != nil {
		// Another transaction may have created the row in between.
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			s = &models.PlayerSkill{}
			if scanErr := scanSkill(exec.QueryRowContext(ctx, query, userID, gameID), s); scanErr != nil {
				return nil, fmt.Errorf("failed to reload player skill after conflict: %w", scanErr)
			}
			return s, nil
		}
		return nil, fmt.Errorf("failed to create player skill: %w", err)
	}
	return created, nil
}

func (r *postgresSkillRepository) Get(ctx context.Context, userID, gameID int) (*models.PlayerSkill, error) {
	s := &models.PlayerSkill{}
	query := `SELECT ` + skillColumns + ` FROM player_skills WHERE user_id = $1 AND game_id = $2`
	if err := scanSkill(r.db.QueryRowContext(ctx, query, userID, gameID), s); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSkillNotFound
		}
		return nil, fmt.Errorf("failed to scan player skill: %w", err)
	}
	return s, nil
}

func (r *postgresSkillRepository) ListByUser(ctx context.Context, userID int) ([]*models.PlayerSkill, error) {
	query := `SELECT ` + skillColumns + ` FROM player_skills WHERE user_id = $1 ORDER BY game_id ASC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query skills for user %d: %w", userID, err)
	}
	defer rows.Close()

	skills := make([]*models.PlayerSkill, 0)
	for rows.Next() {
		var s models.PlayerSkill
		if scanErr := scanSkill(rows, &s); scanErr != nil {
			return nil, fmt.Errorf("failed to scan skill row: %w", scanErr)
		}
		skills = append(skills, &s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during skill rows iteration: %w", err)
	}
	return skills, nil
}

func (r *postgresSkillRepository) Update(ctx context.Context, exec SQLExecutor, s *models.PlayerSkill) error {
	query := `
		UPDATE player_skills
		SET rating = $1, games_played = $2, wins = $3, losses = $4, draws = $5,
		    level = $6, updated_at = now()
		WHERE id = $7`

	result, err := exec.ExecContext(ctx, query,
		s.Rating, s.GamesPlayed, s.Wins, s.Losses, s.Draws, s.Level, s.ID)
	if err != nil {
		return fmt.Errorf("failed to update player skill %d: %w", s.ID, err)
	}
	return checkAffectedRows(result, ErrSkillNotFound)
}

func (r *postgresSkillRepository) ListByGameOrderedByRating(ctx context.Context, gameID, limit, offset int) ([]*models.PlayerSkill, int, error) {
	query := `SELECT ` + skillColumns + `, count(*) OVER()
		FROM player_skills
		WHERE game_id = $1
		ORDER BY rating DESC, id ASC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, gameID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query leaderboard for game %d: %w", gameID, err)
	}
	defer rows.Close()

	total := 0
	skills := make([]*models.PlayerSkill, 0)
	for rows.Next() {
		var s models.PlayerSkill
		if scanErr := rows.Scan(
			&s.ID, &s.UserID, &s.GameID, &s.Rating,
			&s.GamesPlayed, &s.Wins, &s.Losses, &s.Draws,
			&s.Level, &s.UpdatedAt, &total,
		); scanErr != nil {
			return nil, 0, fmt.Errorf("failed to scan leaderboard row: %w", scanErr)
		}
		skills = append(skills, &s)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error during leaderboard rows iteration: %w", err)
	}
	return skills, total, nil
}
