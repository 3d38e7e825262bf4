// Package notify delivers in-app notifications. Delivery is fire-and-forget:
// a failed insert is logged and swallowed, never propagated, so a
// notification problem cannot roll back the ledger mutation it accompanies.
package notify

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"campus-events/internal/pkg/db"
	"campus-events/internal/repository"
)

// Notification types.
const (
	TypeSystem      = "system"
	TypeEvent       = "event"
	TypeWallet      = "wallet"
	TypeMarketplace = "marketplace"
)

// Notifier writes notification rows for users.
type Notifier struct {
	repo *repository.NotificationRepository
}

// New creates a Notifier.
func New(dbtx db.DBTX) *Notifier {
	return &Notifier{repo: repository.NewNotificationRepository(dbtx)}
}

// WithTx returns a Notifier bound to the given transaction. Use this when
// the notification must commit atomically with the mutation it describes,
// such as the refund fan-out.
func (n *Notifier) WithTx(dbtx db.DBTX) *Notifier {
	return &Notifier{repo: n.repo.WithTx(dbtx)}
}

// Send records a notification. Errors are logged, not returned.
func (n *Notifier) Send(ctx context.Context, userID uuid.UUID, title, message, notifType string) {
	if _, err := n.repo.Create(ctx, userID, title, message, notifType); err != nil {
		log.Warn().
			Err(err).
			Str("user_id", userID.String()).
			Str("type", notifType).
			Msg("failed to deliver notification")
	}
}
