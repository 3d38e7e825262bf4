package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"campus-events/internal/model"
	"campus-events/internal/pkg/db"
)

const notificationColumns = `
	id, user_id, title, message, type, is_read, created_at
`

// NotificationRepository handles notification persistence.
type NotificationRepository struct {
	db db.DBTX
}

// NewNotificationRepository creates a new NotificationRepository instance.
func NewNotificationRepository(dbtx db.DBTX) *NotificationRepository {
	return &NotificationRepository{db: dbtx}
}

// WithTx returns a repository bound to the given transaction.
func (r *NotificationRepository) WithTx(dbtx db.DBTX) *NotificationRepository {
	return &NotificationRepository{db: dbtx}
}

func scanNotification(row pgx.Row) (*model.Notification, error) {
	var n model.Notification
	err := row.Scan(
		&n.ID,
		&n.UserID,
		&n.Title,
		&n.Message,
		&n.Type,
		&n.IsRead,
		&n.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// Create stores a notification for a user.
func (r *NotificationRepository) Create(ctx context.Context, userID uuid.UUID, title, message, notifType string) (*model.Notification, error) {
	const query = `
		INSERT INTO notifications (user_id, title, message, type, is_read, created_at)
		VALUES ($1, $2, $3, $4, FALSE, NOW())
		RETURNING ` + notificationColumns

	n, err := scanNotification(r.db.QueryRow(ctx, query, userID, title, message, notifType))
	if err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	return n, nil
}

// ListByUser returns a user's notifications, newest first.
func (r *NotificationRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*model.Notification, error) {
	const query = `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifs []*model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifs = append(notifs, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}

	return notifs, nil
}

// MarkRead flags a notification as read. Scoped to the owner so one user
// cannot mark another's notifications.
func (r *NotificationRepository) MarkRead(ctx context.Context, id int64, userID uuid.UUID) error {
	const query = `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`

	if _, err := r.db.Exec(ctx, query, id, userID); err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}

	return nil
}
