package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"campus-events/internal/model"
	"campus-events/internal/pkg/db"
)

const eventColumns = `
	id, host_id, title, description, date, city, category,
	capacity, deposit_amount, price, status, session_token, created_at
`

// EventRepository handles event data persistence.
type EventRepository struct {
	db db.DBTX
}

// NewEventRepository creates a new EventRepository instance.
func NewEventRepository(dbtx db.DBTX) *EventRepository {
	return &EventRepository{db: dbtx}
}

// WithTx returns a repository bound to the given transaction.
func (r *EventRepository) WithTx(dbtx db.DBTX) *EventRepository {
	return &EventRepository{db: dbtx}
}

func scanEvent(row pgx.Row) (*model.Event, error) {
	var e model.Event
	err := row.Scan(
		&e.ID,
		&e.HostID,
		&e.Title,
		&e.Description,
		&e.Date,
		&e.City,
		&e.Category,
		&e.Capacity,
		&e.DepositAmount,
		&e.Price,
		&e.Status,
		&e.SessionToken,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// NewEvent carries the fields needed to create an event. The session token
// is generated by the service and never changes afterwards.
type NewEvent struct {
	HostID        uuid.UUID
	Title         string
	Description   string
	Date          time.Time
	City          *string
	Category      *string
	Capacity      int
	DepositAmount decimal.Decimal
	Price         decimal.Decimal
	SessionToken  string
}

// Create inserts a new event in ACTIVE state.
func (r *EventRepository) Create(ctx context.Context, e NewEvent) (*model.Event, error) {
	const query = `
		INSERT INTO events (id, host_id, title, description, date, city, category,
		                    capacity, deposit_amount, price, status, session_token, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 'ACTIVE', $11, NOW())
		RETURNING ` + eventColumns

	event, err := scanEvent(r.db.QueryRow(ctx, query,
		uuid.New(), e.HostID, e.Title, e.Description, e.Date, e.City, e.Category,
		e.Capacity, e.DepositAmount, e.Price, e.SessionToken,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	return event, nil
}

// GetByID retrieves an event by ID.
// Returns ErrEventNotFound if the event does not exist.
func (r *EventRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	const query = `SELECT ` + eventColumns + ` FROM events WHERE id = $1`

	event, err := scanEvent(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	return event, nil
}

// GetByIDForUpdate retrieves an event and locks its row for the remainder
// of the transaction. Join and cancel use this so capacity checks and the
// refund fan-out cannot race.
func (r *EventRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	const query = `SELECT ` + eventColumns + ` FROM events WHERE id = $1 FOR UPDATE`

	event, err := scanEvent(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to lock event: %w", err)
	}

	return event, nil
}

// List returns events ordered by start time. Cancelled events are excluded,
// and events that started more than 24 hours ago are hidden unless showPast
// is set.
func (r *EventRepository) List(ctx context.Context, city, category *string, showPast bool, limit int) ([]*model.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE status <> 'CANCELLED'`
	args := []any{}
	i := 1

	if !showPast {
		query += " AND date >= NOW() - INTERVAL '24 hours'"
	}
	if city != nil {
		query += fmt.Sprintf(" AND city = $%d", i)
		args = append(args, *city)
		i++
	}
	if category != nil {
		query += fmt.Sprintf(" AND category = $%d", i)
		args = append(args, *category)
		i++
	}
	query += fmt.Sprintf(" ORDER BY date ASC LIMIT $%d", i)
	args = append(args, limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []*model.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return events, nil
}

// SetStatus transitions the event to a new lifecycle state.
func (r *EventRepository) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	const query = `UPDATE events SET status = $2 WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to set event status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEventNotFound
	}

	return nil
}

// ListByUser returns events the user hosts or participates in.
func (r *EventRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.Event, error) {
	const query = `
		SELECT ` + eventColumns + `
		FROM events
		WHERE host_id = $1
		   OR id IN (SELECT event_id FROM participations WHERE user_id = $1)
		ORDER BY date ASC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user events: %w", err)
	}
	defer rows.Close()

	var events []*model.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return events, nil
}
