package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"campus-events/internal/model"
	"campus-events/internal/moderation"
	"campus-events/internal/pkg/db"
	"campus-events/internal/repository"
)

// EventService handles event creation and discovery.
type EventService struct {
	pool   *db.Pool
	users  *repository.UserRepository
	events *repository.EventRepository
}

// NewEventService creates an EventService.
func NewEventService(pool *db.Pool) *EventService {
	return &EventService{
		pool:   pool,
		users:  repository.NewUserRepository(pool),
		events: repository.NewEventRepository(pool),
	}
}

// CreateEventInput carries the caller-supplied event fields.
type CreateEventInput struct {
	Title         string
	Description   string
	Date          time.Time
	City          *string
	Category      *string
	Capacity      int
	DepositAmount decimal.Decimal
	Price         decimal.Decimal
}

// Create creates an event. Hosting requires both identity and student
// verification; title and description pass the moderation gate. The QR
// session token is generated here and never rotated.
func (s *EventService) Create(ctx context.Context, hostID uuid.UUID, in CreateEventInput) (*model.Event, error) {
	host, err := s.users.GetByID(ctx, hostID)
	if err != nil {
		return nil, err
	}
	if !host.IsVerified || !host.IsStudentVerified {
		return nil, ErrNotEligible
	}

	if !in.Date.After(time.Now()) {
		return nil, ErrEventStarted
	}

	for _, text := range []string{in.Title, in.Description} {
		if ok, why := moderation.Check(text, host.TrustScore); !ok {
			return nil, &ModerationError{Reason: why}
		}
	}

	if in.Capacity <= 0 {
		in.Capacity = 10
	}
	if in.DepositAmount.Sign() < 0 {
		in.DepositAmount = decimal.Zero
	}
	if in.Price.Sign() < 0 {
		in.Price = decimal.Zero
	}

	event, err := s.events.Create(ctx, repository.NewEvent{
		HostID:        hostID,
		Title:         in.Title,
		Description:   in.Description,
		Date:          in.Date,
		City:          in.City,
		Category:      in.Category,
		Capacity:      in.Capacity,
		DepositAmount: in.DepositAmount,
		Price:         in.Price,
		SessionToken:  uuid.New().String(),
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("event_id", event.ID.String()).
		Str("host_id", hostID.String()).
		Msg("event created")

	return event, nil
}

// Get returns a single event.
func (s *EventService) Get(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	return s.events.GetByID(ctx, id)
}

// List returns upcoming events, optionally filtered by city and category.
// Cancelled events and events older than a day are hidden unless showPast is
// set.
func (s *EventService) List(ctx context.Context, city, category *string, showPast bool, limit int) ([]*model.Event, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.events.List(ctx, city, category, showPast, limit)
}

// ListMine returns events the user hosts or participates in.
func (s *EventService) ListMine(ctx context.Context, userID uuid.UUID) ([]*model.Event, error) {
	return s.events.ListByUser(ctx, userID)
}
