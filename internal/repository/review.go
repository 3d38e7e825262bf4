package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"campus-events/internal/model"
	"campus-events/internal/pkg/db"
)

const reviewColumns = `
	id, reviewer_id, reviewed_id, event_id, rating, comment, created_at
`

// ReviewRepository handles user review persistence.
type ReviewRepository struct {
	db db.DBTX
}

// NewReviewRepository creates a new ReviewRepository instance.
func NewReviewRepository(dbtx db.DBTX) *ReviewRepository {
	return &ReviewRepository{db: dbtx}
}

// WithTx returns a repository bound to the given transaction.
func (r *ReviewRepository) WithTx(dbtx db.DBTX) *ReviewRepository {
	return &ReviewRepository{db: dbtx}
}

func scanReview(row pgx.Row) (*model.UserReview, error) {
	var rev model.UserReview
	err := row.Scan(
		&rev.ID,
		&rev.ReviewerID,
		&rev.ReviewedID,
		&rev.EventID,
		&rev.Rating,
		&rev.Comment,
		&rev.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rev, nil
}

// Create stores a new review.
func (r *ReviewRepository) Create(ctx context.Context, reviewerID, reviewedID uuid.UUID, eventID *uuid.UUID, rating int, comment *string) (*model.UserReview, error) {
	const query = `
		INSERT INTO user_reviews (reviewer_id, reviewed_id, event_id, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING ` + reviewColumns

	rev, err := scanReview(r.db.QueryRow(ctx, query, reviewerID, reviewedID, eventID, rating, comment))
	if err != nil {
		return nil, fmt.Errorf("failed to create review: %w", err)
	}

	return rev, nil
}

// ListForUser returns reviews received by a user, newest first.
func (r *ReviewRepository) ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]*model.UserReview, error) {
	const query = `
		SELECT ` + reviewColumns + `
		FROM user_reviews
		WHERE reviewed_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	var revs []*model.UserReview
	for rows.Next() {
		rev, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		revs = append(revs, rev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reviews: %w", err)
	}

	return revs, nil
}

// AverageRating returns the mean rating received by a user, or 0 when the
// user has no reviews.
func (r *ReviewRepository) AverageRating(ctx context.Context, userID uuid.UUID) (float64, error) {
	const query = `
		SELECT COALESCE(AVG(rating), 0)
		FROM user_reviews
		WHERE reviewed_id = $1
	`

	var avg float64
	if err := r.db.QueryRow(ctx, query, userID).Scan(&avg); err != nil {
		return 0, fmt.Errorf("failed to compute average rating: %w", err)
	}

	return avg, nil
}
