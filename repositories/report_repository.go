package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safak-senal-61/websachat-arena/models"
)

var ErrReportNotFound = errors.New("match result report not found")

type ReportRepository interface {
	Create(ctx context.Context, exec SQLExecutor, rep *models.MatchResultReport) error
	// FindPendingByMatchAndReporter returns the opponent's (or reporter's own)
	// PENDING report, nil when there is none.
	FindPendingByMatchAndReporter(ctx context.Context, exec SQLExecutor, matchID, reporterID int) (*models.MatchResultReport, error)
	ListByMatch(ctx context.Context, exec SQLExecutor, matchID int) ([]*models.MatchResultReport, error)
	CountByMatchAndStatus(ctx context.Context, exec SQLExecutor, matchID int, status models.ReportStatus) (int, error)
	// UpdateStatusByMatch moves every report of a match to status at once;
	// reports are superseded in bulk, never edited one by one.
	UpdateStatusByMatch(ctx context.Context, exec SQLExecutor, matchID int, status models.ReportStatus) error
}

type postgresReportRepository struct {
	db *sql.DB
}

func NewPostgresReportRepository(db *sql.DB) ReportRepository {
	return &postgresReportRepository{db: db}
}

func (r *postgresReportRepository) Create(ctx context.Context, exec SQLExecutor, rep *models.MatchResultReport) error {
	if exec == nil {
		exec = r.db
	}
	query := `
		INSERT INTO match_result_reports
			(match_id, reporter_id, player1_score, player2_score, evidence, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := exec.QueryRowContext(ctx, query,
		rep.MatchID,
		rep.ReporterID,
		rep.Player1Score,
		rep.Player2Score,
		rep.Evidence,
		rep.Status,
	).Scan(&rep.ID, &rep.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create match result report: %w", err)
	}
	return nil
}

func (r *postgresReportRepository) FindPendingByMatchAndReporter(ctx context.Context, exec SQLExecutor, matchID, reporterID int) (*models.MatchResultReport, error) {
	if exec == nil {
		exec = r.db
	}
	query := `
		SELECT id, match_id, reporter_id, player1_score, player2_score, evidence, status, created_at
		FROM match_result_reports
		WHERE match_id = $1 AND reporter_id = $2 AND status = $3
		ORDER BY created_at DESC
		LIMIT 1`

	rep := &models.MatchResultReport{}
	err := exec.QueryRowContext(ctx, query, matchID, reporterID, models.ReportPending).Scan(
		&rep.ID, &rep.MatchID, &rep.ReporterID, &rep.Player1Score, &rep.Player2Score,
		&rep.Evidence, &rep.Status, &rep.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan pending report: %w", err)
	}
	return rep, nil
}

func (r *postgresReportRepository) ListByMatch(ctx context.Context, exec SQLExecutor, matchID int) ([]*models.MatchResultReport, error) {
	if exec == nil {
		exec = r.db
	}
	query := `
		SELECT id, match_id, reporter_id, player1_score, player2_score, evidence, status, created_at
		FROM match_result_reports
		WHERE match_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := exec.QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports for match %d: %w", matchID, err)
	}
	defer rows.Close()

	reports := make([]*models.MatchResultReport, 0)
	for rows.Next() {
		var rep models.MatchResultReport
		if scanErr := rows.Scan(
			&rep.ID, &rep.MatchID, &rep.ReporterID, &rep.Player1Score, &rep.Player2Score,
			&rep.Evidence, &rep.Status, &rep.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan report row: %w", scanErr)
		}
		reports = append(reports, &rep)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during report rows iteration: %w", err)
	}
	return reports, nil
}

func (r *postgresReportRepository) CountByMatchAndStatus(ctx context.Context, exec SQLExecutor, matchID int, status models.ReportStatus) (int, error) {
	if exec == nil {
		exec = r.db
	}
	var count int
	query := `SELECT count(*) FROM match_result_reports WHERE match_id = $1 AND status = $2`
	if err := exec.QueryRowContext(ctx, query, matchID, status).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count reports: %w", err)
	}
	return count, nil
}

func (r *postgresReportRepository) UpdateStatusByMatch(ctx context.Context, exec SQLExecutor, matchID int, status models.ReportStatus) error {
	query := `UPDATE match_result_reports SET status = $1 WHERE match_id = $2`
	if _, err := exec.ExecContext(ctx, query, status, matchID); err != nil {
		return fmt.Errorf("failed to update report statuses for match %d: %w", matchID, err)
	}
	return nil
}
