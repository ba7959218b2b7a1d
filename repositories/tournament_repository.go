package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/safak-senal-61/websachat-arena/models"
)

var (
	ErrTournamentNotFound     = errors.New("tournament not found")
	ErrTournamentGameInvalid  = errors.New("tournament references an unknown game")
	ErrTournamentStatusStale  = errors.New("tournament status changed concurrently")
	ErrTournamentNameConflict = errors.New("tournament name already in use")
)

// TournamentFilter narrows ListTournaments. Nil fields are ignored.
type TournamentFilter struct {
	GameID *int
	Status *models.TournamentStatus
	Limit  int
	Offset int
}

type TournamentRepository interface {
	Create(ctx context.Context, exec SQLExecutor, t *models.Tournament) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	List(ctx context.Context, filter TournamentFilter) ([]*models.Tournament, int, error)
	// UpdateStatus transitions a tournament from one status to another and
	// fails with ErrTournamentStatusStale when the row is no longer in the
	// expected status, so concurrent transitions cannot double-apply.
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, from, to models.TournamentStatus) error
	SetCompleted(ctx context.Context, exec SQLExecutor, id int, endDate time.Time) error
	// ListDueForStatusChange returns tournaments whose window boundaries have
	// passed but whose status has not caught up yet.
	ListDueForStatusChange(ctx context.Context, now time.Time) ([]*models.Tournament, error)
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

const tournamentColumns = `id, game_id, organizer_id, name, description, rules, format, status,
	registration_start, registration_end, start_date, end_date,
	max_participants, entry_fee, prize_pool, created_at`

func scanTournament(row interface{ Scan(...interface{}) error }, t *models.Tournament) error {
	return row.Scan(
		&t.ID,
		&t.GameID,
		&t.OrganizerID,
		&t.Name,
		&t.Description,
		&t.Rules,
		&t.Format,
		&t.Status,
		&t.RegistrationStart,
		&t.RegistrationEnd,
		&t.StartDate,
		&t.EndDate,
		&t.MaxParticipants,
		&t.EntryFee,
		&t.PrizePool,
		&t.CreatedAt,
	)
}

func (r *postgresTournamentRepository) Create(ctx context.Context, exec SQLExecutor, t *models.Tournament) error {
	if exec == nil {
		exec = r.db
	}
	query := `
		INSERT INTO tournaments
			(game_id, organizer_id, name, description, rules, format, status,
			 registration_start, registration_end, start_date,
			 max_participants, entry_fee, prize_pool)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at`

	err := exec.QueryRowContext(ctx, query,
		t.GameID,
		t.OrganizerID,
		t.Name,
		t.Description,
		t.Rules,
		t.Format,
		t.Status,
		t.RegistrationStart,
		t.RegistrationEnd,
		t.StartDate,
		t.MaxParticipants,
		t.EntryFee,
		t.PrizePool,
	).Scan(&t.ID, &t.CreatedAt)

	return r.handleTournamentError(err)
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	if exec == nil {
		exec = r.db
	}
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1`

	t := &models.Tournament{}
	if err := scanTournament(exec.QueryRowContext(ctx, query, id), t); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to scan tournament %d: %w", id, err)
	}
	return t, nil
}

func (r *postgresTournamentRepository) List(ctx context.Context, filter TournamentFilter) ([]*models.Tournament, int, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + tournamentColumns + `, count(*) OVER() FROM tournaments WHERE 1=1`)

	args := []interface{}{}
	placeholder := 1

	if filter.GameID != nil {
		queryBuilder.WriteString(" AND game_id = $" + strconv.Itoa(placeholder))
		args = append(args, *filter.GameID)
		placeholder++
	}
	if filter.Status != nil {
		queryBuilder.WriteString(" AND status = $" + strconv.Itoa(placeholder))
		args = append(args, *filter.Status)
		placeholder++
	}

	queryBuilder.WriteString(" ORDER BY start_date ASC, id ASC")
	queryBuilder.WriteString(" LIMIT $" + strconv.Itoa(placeholder))
	args = append(args, filter.Limit)
	placeholder++
	queryBuilder.WriteString(" OFFSET $" + strconv.Itoa(placeholder))
	args = append(args, filter.Offset)

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query tournaments: %w", err)
	}
	defer rows.Close()

	total := 0
	tournaments := make([]*models.Tournament, 0)
	for rows.Next() {
		var t models.Tournament
		if scanErr := rows.Scan(
			&t.ID, &t.GameID, &t.OrganizerID, &t.Name, &t.Description, &t.Rules,
			&t.Format, &t.Status, &t.RegistrationStart, &t.RegistrationEnd,
			&t.StartDate, &t.EndDate, &t.MaxParticipants, &t.EntryFee,
			&t.PrizePool, &t.CreatedAt, &total,
		); scanErr != nil {
			return nil, 0, fmt.Errorf("failed to scan tournament row: %w", scanErr)
		}
		tournaments = append(tournaments, &t)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error during tournament rows iteration: %w", err)
	}
	return tournaments, total, nil
}

func (r *postgresTournamentRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, from, to models.TournamentStatus) error {
	if exec == nil {
		exec = r.db
	}
	query := `UPDATE tournaments SET status = $1 WHERE id = $2 AND status = $3`
	result, err := exec.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return fmt.Errorf("failed to update tournament %d status: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentStatusStale)
}

func (r *postgresTournamentRepository) SetCompleted(ctx context.Context, exec SQLExecutor, id int, endDate time.Time) error {
	query := `UPDATE tournaments SET status = $1, end_date = $2 WHERE id = $3`
	result, err := exec.ExecContext(ctx, query, models.TournamentCompleted, endDate, id)
	if err != nil {
		return fmt.Errorf("failed to complete tournament %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) ListDueForStatusChange(ctx context.Context, now time.Time) ([]*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + `
		FROM tournaments
		WHERE (status = $1 AND registration_start <= $3)
		   OR (status = $2 AND registration_end <= $3)
		ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query,
		models.TournamentUpcoming, models.TournamentRegistrationOpen, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query due tournaments: %w", err)
	}
	defer rows.Close()

	tournaments := make([]*models.Tournament, 0)
	for rows.Next() {
		var t models.Tournament
		if scanErr := scanTournament(rows, &t); scanErr != nil {
			return nil, fmt.Errorf("failed to scan due tournament row: %w", scanErr)
		}
		tournaments = append(tournaments, &t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during due tournament rows iteration: %w", err)
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) handleTournamentError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Constraint {
		case "tournaments_game_id_fkey":
			return ErrTournamentGameInvalid
		case "tournaments_name_key":
			return ErrTournamentNameConflict
		}
	}
	return err
}
