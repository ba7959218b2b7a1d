package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safak-senal-61/websachat-arena/models"
)

var ErrGameNotFound = errors.New("game not found")

type GameRepository interface {
	GetByID(ctx context.Context, id int) (*models.Game, error)
}

type postgresGameRepository struct {
	db *sql.DB
}

func NewPostgresGameRepository(db *sql.DB) GameRepository {
	return &postgresGameRepository{db: db}
}

func (r *postgresGameRepository) GetByID(ctx context.Context, id int) (*models.Game, error) {
	g := &models.Game{}
	err := r.db.QueryRowContext(ctx, `SELECT id, name FROM games WHERE id = $1`, id).
		Scan(&g.ID, &g.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("failed to scan game %d: %w", id, err)
	}
	return g, nil
}
