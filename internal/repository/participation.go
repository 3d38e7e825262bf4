package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"campus-events/internal/model"
	"campus-events/internal/pkg/db"
)

// Participation errors.
var (
	ErrNotRegistered = errors.New("no registration for this event")
	ErrAlreadyJoined = errors.New("already joined this event")
)

const participationColumns = `
	id, event_id, user_id, status, payment_status, qr_scanned, check_in_time, created_at
`

// ParticipationRepository handles the (event, user) pairing rows.
type ParticipationRepository struct {
	db db.DBTX
}

// NewParticipationRepository creates a new ParticipationRepository instance.
func NewParticipationRepository(dbtx db.DBTX) *ParticipationRepository {
	return &ParticipationRepository{db: dbtx}
}

// WithTx returns a repository bound to the given transaction.
func (r *ParticipationRepository) WithTx(dbtx db.DBTX) *ParticipationRepository {
	return &ParticipationRepository{db: dbtx}
}

func scanParticipation(row pgx.Row) (*model.Participation, error) {
	var p model.Participation
	err := row.Scan(
		&p.ID,
		&p.EventID,
		&p.UserID,
		&p.Status,
		&p.PaymentStatus,
		&p.QRScanned,
		&p.CheckInTime,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts an approved participation. The unique (event_id, user_id)
// constraint turns a concurrent double-join into ErrAlreadyJoined.
func (r *ParticipationRepository) Create(ctx context.Context, eventID, userID uuid.UUID, paymentStatus string) (*model.Participation, error) {
	const query = `
		INSERT INTO participations (event_id, user_id, status, payment_status, qr_scanned, created_at)
		VALUES ($1, $2, 'approved', $3, FALSE, NOW())
		RETURNING ` + participationColumns

	p, err := scanParticipation(r.db.QueryRow(ctx, query, eventID, userID, paymentStatus))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadyJoined
		}
		return nil, fmt.Errorf("failed to create participation: %w", err)
	}

	return p, nil
}

// Get retrieves the participation for an (event, user) pair.
// Returns ErrNotRegistered if there is none.
func (r *ParticipationRepository) Get(ctx context.Context, eventID, userID uuid.UUID) (*model.Participation, error) {
	const query = `
		SELECT ` + participationColumns + `
		FROM participations
		WHERE event_id = $1 AND user_id = $2
	`

	p, err := scanParticipation(r.db.QueryRow(ctx, query, eventID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotRegistered
		}
		return nil, fmt.Errorf("failed to get participation: %w", err)
	}

	return p, nil
}

// GetForUpdate retrieves a participation and locks its row. Check-in uses
// this so two concurrent scans of the same ticket serialize.
func (r *ParticipationRepository) GetForUpdate(ctx context.Context, eventID, userID uuid.UUID) (*model.Participation, error) {
	const query = `
		SELECT ` + participationColumns + `
		FROM participations
		WHERE event_id = $1 AND user_id = $2
		FOR UPDATE
	`

	p, err := scanParticipation(r.db.QueryRow(ctx, query, eventID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotRegistered
		}
		return nil, fmt.Errorf("failed to lock participation: %w", err)
	}

	return p, nil
}

// FindByUserPrefix resolves a participant of an event whose user ID starts
// with the given prefix. Ticket access keys embed only the first segment of
// the user ID.
func (r *ParticipationRepository) FindByUserPrefix(ctx context.Context, eventID uuid.UUID, userPrefix string) (*model.Participation, error) {
	const query = `
		SELECT ` + participationColumns + `
		FROM participations
		WHERE event_id = $1 AND user_id::text LIKE $2 || '%'
		FOR UPDATE
	`

	p, err := scanParticipation(r.db.QueryRow(ctx, query, eventID, userPrefix))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotRegistered
		}
		return nil, fmt.Errorf("failed to find participant by ticket: %w", err)
	}

	return p, nil
}

// CountApproved returns the number of approved participants for an event.
// Callers racing on capacity must hold the event row lock first.
func (r *ParticipationRepository) CountApproved(ctx context.Context, eventID uuid.UUID) (int, error) {
	const query = `
		SELECT COUNT(*) FROM participations
		WHERE event_id = $1 AND status = 'approved'
	`

	var count int
	if err := r.db.QueryRow(ctx, query, eventID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count participants: %w", err)
	}

	return count, nil
}

// MarkCheckedIn sets qr_scanned and the check-in time exactly once. The
// qr_scanned guard in the WHERE clause makes repeated calls no-ops.
func (r *ParticipationRepository) MarkCheckedIn(ctx context.Context, id int64, at time.Time) (bool, error) {
	const query = `
		UPDATE participations
		SET qr_scanned = TRUE, check_in_time = $2
		WHERE id = $1 AND qr_scanned = FALSE
	`

	tag, err := r.db.Exec(ctx, query, id, at)
	if err != nil {
		return false, fmt.Errorf("failed to mark check-in: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// SetPaymentStatus updates the payment marker on a participation.
func (r *ParticipationRepository) SetPaymentStatus(ctx context.Context, id int64, status string) error {
	const query = `UPDATE participations SET payment_status = $2 WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to set payment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotRegistered
	}

	return nil
}

// Delete removes the participation row. Leave is a hard delete; attendance
// history is not retained.
func (r *ParticipationRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM participations WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete participation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotRegistered
	}

	return nil
}

// ListPaidByEvent returns participations still marked paid, locked for the
// refund fan-out. Rows already refunded are skipped, which is what makes
// re-running a partially failed cancellation safe.
func (r *ParticipationRepository) ListPaidByEvent(ctx context.Context, eventID uuid.UUID) ([]*model.Participation, error) {
	const query = `
		SELECT ` + participationColumns + `
		FROM participations
		WHERE event_id = $1 AND payment_status = 'paid'
		ORDER BY id
		FOR UPDATE
	`

	rows, err := r.db.Query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list paid participants: %w", err)
	}
	defer rows.Close()

	var parts []*model.Participation
	for rows.Next() {
		p, err := scanParticipation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participation: %w", err)
		}
		parts = append(parts, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating participations: %w", err)
	}

	return parts, nil
}

// ListByEvent returns all participations for an event.
func (r *ParticipationRepository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]*model.Participation, error) {
	const query = `
		SELECT ` + participationColumns + `
		FROM participations
		WHERE event_id = $1
		ORDER BY id
	`

	rows, err := r.db.Query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	var parts []*model.Participation
	for rows.Next() {
		p, err := scanParticipation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participation: %w", err)
		}
		parts = append(parts, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating participations: %w", err)
	}

	return parts, nil
}
