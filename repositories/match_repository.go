package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/safak-senal-61/websachat-arena/models"
)

var (
	ErrMatchNotFound  = errors.New("tournament match not found")
	ErrMatchNotOpen   = errors.New("match is not in a completable state")
	ErrMatchSlotTaken = errors.New("next match slot is invalid")
)

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, m *models.TournamentMatch) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.TournamentMatch, error)
	// GetByIDForUpdate locks the match row for the duration of the enclosing
	// transaction so concurrent report submissions serialize on it.
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.TournamentMatch, error)
	ListByTournament(ctx context.Context, tournamentID int, round *int, status *models.MatchStatus) ([]*models.TournamentMatch, error)
	ListByUser(ctx context.Context, userID int, status *models.MatchStatus, limit, offset int) ([]*models.TournamentMatch, int, error)
	CountByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error)
	// Complete transitions a match to COMPLETED. The update is conditional on
	// the row still being SCHEDULED; ErrMatchNotOpen on zero affected rows is
	// what makes settlement exactly-once.
	Complete(ctx context.Context, exec SQLExecutor, id int, p1Score, p2Score, winnerID int, completedAt time.Time, adminNotes *string) error
	SetNextMatchLink(ctx context.Context, exec SQLExecutor, id int, nextMatchID, winnerToSlot int) error
	SetPlayerSlot(ctx context.Context, exec SQLExecutor, id, slot, playerID int) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

const matchColumns = `id, tournament_id, round, match_number, player1_id, player2_id,
	winner_id, player1_score, player2_score, status,
	previous_match1_id, previous_match2_id, next_match_id, winner_to_slot,
	scheduled_time, completed_time, admin_notes, created_at`

func scanMatch(row interface{ Scan(...interface{}) error }, m *models.TournamentMatch) error {
	return row.Scan(
		&m.ID,
		&m.TournamentID,
		&m.Round,
		&m.MatchNumber,
		&m.Player1ID,
		&m.Player2ID,
		&m.WinnerID,
		&m.Player1Score,
		&m.Player2Score,
		&m.Status,
		&m.PreviousMatch1ID,
		&m.PreviousMatch2ID,
		&m.NextMatchID,
		&m.WinnerToSlot,
		&m.ScheduledTime,
		&m.CompletedTime,
		&m.AdminNotes,
		&m.CreatedAt,
	)
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, m *models.TournamentMatch) error {
	if exec == nil {
		exec = r.db
	}
	query := `
		INSERT INTO tournament_matches
			(tournament_id, round, match_number, player1_id, player2_id, winner_id,
			 player1_score, player2_score, status,
			 previous_match1_id, previous_match2_id, next_match_id, winner_to_slot,
			 scheduled_time, completed_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at`

	err := exec.QueryRowContext(ctx, query,
		m.TournamentID,
		m.Round,
		m.MatchNumber,
		m.Player1ID,
		m.Player2ID,
		m.WinnerID,
		m.Player1Score,
		m.Player2Score,
		m.Status,
		m.PreviousMatch1ID,
		m.PreviousMatch2ID,
		m.NextMatchID,
		m.WinnerToSlot,
		m.ScheduledTime,
		m.CompletedTime,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create match: %w", err)
	}
	return nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.TournamentMatch, error) {
	return r.get(ctx, exec, id, false)
}

func (r *postgresMatchRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.TournamentMatch, error) {
	return r.get(ctx, exec, id, true)
}

func (r *postgresMatchRepository) get(ctx context.Context, exec SQLExecutor, id int, forUpdate bool) (*models.TournamentMatch, error) {
	if exec == nil {
		exec = r.db
	}
	query := `SELECT ` + matchColumns + ` FROM tournament_matches WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	m := &models.TournamentMatch{}
	if err := scanMatch(exec.QueryRowContext(ctx, query, id), m); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match %d: %w", id, err)
	}
	return m, nil
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, tournamentID int, round *int, status *models.MatchStatus) ([]*models.TournamentMatch, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + matchColumns + ` FROM tournament_matches WHERE tournament_id = $1`)

	args := []interface{}{tournamentID}
	placeholder := 2

	if round != nil {
		queryBuilder.WriteString(" AND round = $" + strconv.Itoa(placeholder))
		args = append(args, *round)
		placeholder++
	}
	if status != nil {
		queryBuilder.WriteString(" AND status = $" + strconv.Itoa(placeholder))
		args = append(args, *status)
	}

	// Deepest round first: bracket display order.
	queryBuilder.WriteString(" ORDER BY round DESC, match_number ASC")

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	matches := make([]*models.TournamentMatch, 0)
	for rows.Next() {
		var m models.TournamentMatch
		if scanErr := scanMatch(rows, &m); scanErr != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", scanErr)
		}
		matches = append(matches, &m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match rows iteration: %w", err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) ListByUser(ctx context.Context, userID int, status *models.MatchStatus, limit, offset int) ([]*models.TournamentMatch, int, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + matchColumns + `, count(*) OVER()
		FROM tournament_matches
		WHERE (player1_id = $1 OR player2_id = $1)`)

	args := []interface{}{userID}
	placeholder := 2

	if status != nil {
		queryBuilder.WriteString(" AND status = $" + strconv.Itoa(placeholder))
		args = append(args, *status)
		placeholder++
	}

	queryBuilder.WriteString(" ORDER BY scheduled_time DESC, id DESC")
	queryBuilder.WriteString(" LIMIT $" + strconv.Itoa(placeholder))
	args = append(args, limit)
	placeholder++
	queryBuilder.WriteString(" OFFSET $" + strconv.Itoa(placeholder))
	args = append(args, offset)

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query matches for user %d: %w", userID, err)
	}
	defer rows.Close()

	total := 0
	matches := make([]*models.TournamentMatch, 0)
	for rows.Next() {
		var m models.TournamentMatch
		if scanErr := rows.Scan(
			&m.ID, &m.TournamentID, &m.Round, &m.MatchNumber, &m.Player1ID, &m.Player2ID,
			&m.WinnerID, &m.Player1Score, &m.Player2Score, &m.Status,
			&m.PreviousMatch1ID, &m.PreviousMatch2ID, &m.NextMatchID, &m.WinnerToSlot,
			&m.ScheduledTime, &m.CompletedTime, &m.AdminNotes, &m.CreatedAt, &total,
		); scanErr != nil {
			return nil, 0, fmt.Errorf("failed to scan user match row: %w", scanErr)
		}
		matches = append(matches, &m)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error during user match rows iteration: %w", err)
	}
	return matches, total, nil
}

func (r *postgresMatchRepository) CountByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error) {
	if exec == nil {
		exec = r.db
	}
	var count int
	query := `SELECT count(*) FROM tournament_matches WHERE tournament_id = $1`
	if err := exec.QueryRowContext(ctx, query, tournamentID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count matches: %w", err)
	}
	return count, nil
}

func (r *postgresMatchRepository) Complete(ctx context.Context, exec SQLExecutor, id int, p1Score, p2Score, winnerID int, completedAt time.Time, adminNotes *string) error {
	if exec == nil {
		exec = r.db
	}
	query := `
		UPDATE tournament_matches
		SET player1_score = $1, player2_score = $2, winner_id = $3,
		    status = $4, completed_time = $5, admin_notes = COALESCE($6, admin_notes)
		WHERE id = $7 AND status = $8`

	result, err := exec.ExecContext(ctx, query,
		p1Score, p2Score, winnerID, models.MatchCompleted, completedAt, adminNotes,
		id, models.MatchScheduled)
	if err != nil {
		return fmt.Errorf("failed to complete match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotOpen)
}

func (r *postgresMatchRepository) SetNextMatchLink(ctx context.Context, exec SQLExecutor, id int, nextMatchID, winnerToSlot int) error {
	if exec == nil {
		exec = r.db
	}
	query := `UPDATE tournament_matches SET next_match_id = $1, winner_to_slot = $2 WHERE id = $3`
	result, err := exec.ExecContext(ctx, query, nextMatchID, winnerToSlot, id)
	if err != nil {
		return fmt.Errorf("failed to link match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) SetPlayerSlot(ctx context.Context, exec SQLExecutor, id, slot, playerID int) error {
	if exec == nil {
		exec = r.db
	}
	var query string
	switch slot {
	case 1:
		query = `UPDATE tournament_matches SET player1_id = $1 WHERE id = $2`
	case 2:
		query = `UPDATE tournament_matches SET player2_id = $1 WHERE id = $2`
	default:
		return fmt.Errorf("%w: slot %d", ErrMatchSlotTaken, slot)
	}
	result, err := exec.ExecContext(ctx, query, playerID, id)
	if err != nil {
		return fmt.Errorf("failed to set player slot on match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}
