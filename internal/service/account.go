package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"campus-events/internal/model"
	"campus-events/internal/moderation"
	"campus-events/internal/notify"
	"campus-events/internal/pkg/db"
	"campus-events/internal/repository"
)

// AccountService handles registration and profile management.
type AccountService struct {
	pool     *db.Pool
	users    *repository.UserRepository
	notifs   *repository.NotificationRepository
	notifier *notify.Notifier
}

// NewAccountService creates an AccountService.
func NewAccountService(pool *db.Pool) *AccountService {
	return &AccountService{
		pool:     pool,
		users:    repository.NewUserRepository(pool),
		notifs:   repository.NewNotificationRepository(pool),
		notifier: notify.New(pool),
	}
}

// Register creates a new account. New users start at the neutral trust
// score with an empty wallet and get a welcome notification.
func (s *AccountService) Register(ctx context.Context, email, fullName string, phoneNumber, city *string) (*model.User, error) {
	user, err := s.users.Create(ctx, email, fullName, phoneNumber, city)
	if err != nil {
		return nil, err
	}

	s.notifier.Send(ctx, user.ID,
		"Hoş geldin!",
		"Hesabın oluşturuldu. Etkinliklere katılmak için e-posta ve telefon doğrulamasını tamamla.",
		notify.TypeSystem)

	log.Info().Str("user_id", user.ID.String()).Msg("user registered")

	return user, nil
}

// Get returns a user's profile.
func (s *AccountService) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return s.users.GetByID(ctx, id)
}

// UpdateProfile applies a partial profile update through the explicit field
// whitelist. A non-empty bio passes the moderation gate first.
func (s *AccountService) UpdateProfile(ctx context.Context, id uuid.UUID, upd repository.ProfileUpdate) (*model.User, error) {
	if upd.Bio != nil {
		user, err := s.users.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok, why := moderation.CheckOptional(*upd.Bio, user.TrustScore); !ok {
			return nil, &ModerationError{Reason: why}
		}
	}

	return s.users.UpdateProfile(ctx, id, upd)
}

// Notifications returns the user's notifications, newest first.
func (s *AccountService) Notifications(ctx context.Context, userID uuid.UUID, limit int) ([]*model.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.notifs.ListByUser(ctx, userID, limit)
}

// MarkNotificationRead flags one of the user's notifications as read.
func (s *AccountService) MarkNotificationRead(ctx context.Context, id int64, userID uuid.UUID) error {
	return s.notifs.MarkRead(ctx, id, userID)
}
