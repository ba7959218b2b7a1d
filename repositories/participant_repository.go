package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/safak-senal-61/websachat-arena/models"
)

var (
	ErrParticipantNotFound = errors.New("tournament participant not found")
	ErrParticipantConflict = errors.New("user is already registered for this tournament")
)

type ParticipantRepository interface {
	Create(ctx context.Context, exec SQLExecutor, p *models.TournamentParticipant) error
	FindByTournamentAndUser(ctx context.Context, exec SQLExecutor, tournamentID, userID int) (*models.TournamentParticipant, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.TournamentParticipant, error)
	ListRankedByTournament(ctx context.Context, tournamentID int) ([]*models.TournamentParticipant, error)
	CountByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error)
	Delete(ctx context.Context, exec SQLExecutor, tournamentID, userID int) error
	SetRank(ctx context.Context, exec SQLExecutor, tournamentID, userID, rank int) error
}

type postgresParticipantRepository struct {
	db *sql.DB
}

func NewPostgresParticipantRepository(db *sql.DB) ParticipantRepository {
	return &postgresParticipantRepository{db: db}
}

func (r *postgresParticipantRepository) Create(ctx context.Context, exec SQLExecutor, p *models.TournamentParticipant) error {
	if exec == nil {
		exec = r.db
	}
	query := `
		INSERT INTO tournament_participants (tournament_id, user_id)
		VALUES ($1, $2)
		RETURNING id, created_at`

	err := exec.QueryRowContext(ctx, query, p.TournamentID, p.UserID).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrParticipantConflict
		}
		return fmt.Errorf("failed to create participant: %w", err)
	}
	return nil
}

func (r *postgresParticipantRepository) FindByTournamentAndUser(ctx context.Context, exec SQLExecutor, tournamentID, userID int) (*models.TournamentParticipant, error) {
	if exec == nil {
		exec = r.db
	}
	query := `
		SELECT id, tournament_id, user_id, rank, created_at
		FROM tournament_participants
		WHERE tournament_id = $1 AND user_id = $2`

	p := &models.TournamentParticipant{}
	err := exec.QueryRowContext(ctx, query, tournamentID, userID).Scan(
		&p.ID, &p.TournamentID, &p.UserID, &p.Rank, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to scan participant: %w", err)
	}
	return p, nil
}

func (r *postgresParticipantRepository) ListByTournament(ctx context.Context, tournamentID int) ([]*models.TournamentParticipant, error) {
	query := `
		SELECT id, tournament_id, user_id, rank, created_at
		FROM tournament_participants
		WHERE tournament_id = $1
		ORDER BY created_at ASC, id ASC`
	return r.list(ctx, query, tournamentID)
}

func (r *postgresParticipantRepository) ListRankedByTournament(ctx context.Context, tournamentID int) ([]*models.TournamentParticipant, error) {
	query := `
		SELECT id, tournament_id, user_id, rank, created_at
		FROM tournament_participants
		WHERE tournament_id = $1 AND rank IS NOT NULL
		ORDER BY rank ASC`
	return r.list(ctx, query, tournamentID)
}

func (r *postgresParticipantRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.TournamentParticipant, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query participants: %w", err)
	}
	defer rows.Close()

	participants := make([]*models.TournamentParticipant, 0)
	for rows.Next() {
		var p models.TournamentParticipant
		if scanErr := rows.Scan(&p.ID, &p.TournamentID, &p.UserID, &p.Rank, &p.CreatedAt); scanErr != nil {
			return nil, fmt.Errorf("failed to scan participant row: %w", scanErr)
		}
		participants = append(participants, &p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during participant rows iteration: %w", err)
	}
	return participants, nil
}

func (r *postgresParticipantRepository) CountByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error) {
	if exec == nil {
		exec = r.db
	}
	var count int
	query := `SELECT count(*) FROM tournament_participants WHERE tournament_id = $1`
	if err := exec.QueryRowContext(ctx, query, tournamentID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count participants: %w", err)
	}
	return count, nil
}

func (r *postgresParticipantRepository) Delete(ctx context.Context, exec SQLExecutor, tournamentID, userID int) error {
	if exec == nil {
		exec = r.db
	}
	query := `DELETE FROM tournament_participants WHERE tournament_id = $1 AND user_id = $2`
	result, err := exec.ExecContext(ctx, query, tournamentID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete participant: %w", err)
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

func (r *postgresParticipantRepository) SetRank(ctx context.Context, exec SQLExecutor, tournamentID, userID, rank int) error {
	query := `UPDATE tournament_participants SET rank = $1 WHERE tournament_id = $2 AND user_id = $3`
	result, err := exec.ExecContext(ctx, query, rank, tournamentID, userID)
	if err != nil {
		return fmt.Errorf("failed to set participant rank: %w", err)
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}
