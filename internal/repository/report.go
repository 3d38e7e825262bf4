package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"campus-events/internal/model"
	"campus-events/internal/pkg/db"
)

// ErrReportNotFound is returned when a report row cannot be located.
var ErrReportNotFound = errors.New("report not found")

const reportColumns = `
	id, reporter_id, reported_id, event_id, reason, details, status, created_at
`

// ReportRepository handles user report persistence.
type ReportRepository struct {
	db db.DBTX
}

// NewReportRepository creates a new ReportRepository instance.
func NewReportRepository(dbtx db.DBTX) *ReportRepository {
	return &ReportRepository{db: dbtx}
}

// WithTx returns a repository bound to the given transaction.
func (r *ReportRepository) WithTx(dbtx db.DBTX) *ReportRepository {
	return &ReportRepository{db: dbtx}
}

func scanReport(row pgx.Row) (*model.UserReport, error) {
	var rep model.UserReport
	err := row.Scan(
		&rep.ID,
		&rep.ReporterID,
		&rep.ReportedID,
		&rep.EventID,
		&rep.Reason,
		&rep.Details,
		&rep.Status,
		&rep.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rep, nil
}

// Create stores a new report in pending state.
func (r *ReportRepository) Create(ctx context.Context, reporterID, reportedID uuid.UUID, eventID *uuid.UUID, reason string, details *string) (*model.UserReport, error) {
	const query = `
		INSERT INTO user_reports (reporter_id, reported_id, event_id, reason, details, status, created_at)
		VALUES ($1, $2, $3, $4, $5, 'pending', NOW())
		RETURNING ` + reportColumns

	rep, err := scanReport(r.db.QueryRow(ctx, query, reporterID, reportedID, eventID, reason, details))
	if err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}

	return rep, nil
}

// GetByID retrieves a report by ID.
func (r *ReportRepository) GetByID(ctx context.Context, id int64) (*model.UserReport, error) {
	const query = `SELECT ` + reportColumns + ` FROM user_reports WHERE id = $1`

	rep, err := scanReport(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	return rep, nil
}

// ListByStatus returns reports in the given moderation state, oldest first.
func (r *ReportRepository) ListByStatus(ctx context.Context, status string, limit int) ([]*model.UserReport, error) {
	const query = `
		SELECT ` + reportColumns + `
		FROM user_reports
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, status, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var reps []*model.UserReport
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reps = append(reps, rep)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reports: %w", err)
	}

	return reps, nil
}

// SetStatus transitions a report's moderation state. The trust-score
// deduction was applied at creation and is not touched here.
func (r *ReportRepository) SetStatus(ctx context.Context, id int64, status string) error {
	const query = `UPDATE user_reports SET status = $2 WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to set report status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrReportNotFound
	}

	return nil
}

// CountAgainst returns the number of reports filed against a user.
func (r *ReportRepository) CountAgainst(ctx context.Context, userID uuid.UUID) (int, error) {
	const query = `SELECT COUNT(*) FROM user_reports WHERE reported_id = $1`

	var count int
	if err := r.db.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count reports: %w", err)
	}

	return count, nil
}
