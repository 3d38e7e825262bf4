package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"campus-events/internal/ledger"
	"campus-events/internal/metrics"
	"campus-events/internal/model"
	"campus-events/internal/moderation"
	"campus-events/internal/pkg/db"
	"campus-events/internal/repository"
	"campus-events/internal/trust"
)

// DisciplineService handles reports and reviews, the two caller-initiated
// trust-score mutations.
type DisciplineService struct {
	pool    *db.Pool
	users   *repository.UserRepository
	reports *repository.ReportRepository
	reviews *repository.ReviewRepository
	ledger  *ledger.Ledger
	metrics *metrics.Metrics
}

// NewDisciplineService creates a DisciplineService.
func NewDisciplineService(pool *db.Pool, m *metrics.Metrics) *DisciplineService {
	return &DisciplineService{
		pool:    pool,
		users:   repository.NewUserRepository(pool),
		reports: repository.NewReportRepository(pool),
		reviews: repository.NewReviewRepository(pool),
		ledger:  ledger.New(pool),
		metrics: m,
	}
}

// ReportResult reports the stored report and the reported user's new score.
type ReportResult struct {
	Report        *model.UserReport
	ReportedScore int
	Deduction     int
}

// Report files a complaint against another user. The trust deduction is
// applied immediately when the report is stored; later moderation changes
// the report's status only, never the score.
func (s *DisciplineService) Report(ctx context.Context, reporterID, reportedID uuid.UUID, eventID *uuid.UUID, reason string, details *string) (*ReportResult, error) {
	if reporterID == reportedID {
		return nil, ErrSelfReport
	}

	reporter, err := s.users.GetByID(ctx, reporterID)
	if err != nil {
		return nil, err
	}

	if details != nil {
		if ok, why := moderation.CheckOptional(*details, reporter.TrustScore); !ok {
			return nil, &ModerationError{Reason: why}
		}
	}

	var result ReportResult
	result.Deduction = trust.ReportDeduction(reason)

	err = s.pool.InTx(ctx, func(tx pgx.Tx) error {
		if _, err := s.users.WithTx(tx).GetByID(ctx, reportedID); err != nil {
			return err
		}

		report, err := s.reports.WithTx(tx).Create(ctx, reporterID, reportedID, eventID, reason, details)
		if err != nil {
			return err
		}

		score, err := s.ledger.WithTx(tx).AdjustTrust(ctx, reportedID, -result.Deduction)
		if err != nil {
			return err
		}

		result.Report = report
		result.ReportedScore = score
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.TrustAdjustments.Inc()

	log.Info().
		Str("reporter_id", reporterID.String()).
		Str("reported_id", reportedID.String()).
		Str("reason", reason).
		Int("deduction", result.Deduction).
		Msg("user reported")

	return &result, nil
}

// ReviewResult reports the stored review and the reviewed user's new score.
type ReviewResult struct {
	Review        *model.UserReview
	ReviewedScore int
	ScoreChange   int
}

// Review leaves a 1-5 rating for another user. The score moves by
// (rating - 3) * 2, so a 3 is neutral.
func (s *DisciplineService) Review(ctx context.Context, reviewerID, reviewedID uuid.UUID, eventID *uuid.UUID, rating int, comment *string) (*ReviewResult, error) {
	if reviewerID == reviewedID {
		return nil, ErrSelfReview
	}
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}

	reviewer, err := s.users.GetByID(ctx, reviewerID)
	if err != nil {
		return nil, err
	}

	if comment != nil {
		if ok, why := moderation.CheckOptional(*comment, reviewer.TrustScore); !ok {
			return nil, &ModerationError{Reason: why}
		}
	}

	var result ReviewResult
	result.ScoreChange = trust.ReviewDelta(rating)

	err = s.pool.InTx(ctx, func(tx pgx.Tx) error {
		if _, err := s.users.WithTx(tx).GetByID(ctx, reviewedID); err != nil {
			return err
		}

		review, err := s.reviews.WithTx(tx).Create(ctx, reviewerID, reviewedID, eventID, rating, comment)
		if err != nil {
			return err
		}

		score, err := s.ledger.WithTx(tx).AdjustTrust(ctx, reviewedID, result.ScoreChange)
		if err != nil {
			return err
		}

		result.Review = review
		result.ReviewedScore = score
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.TrustAdjustments.Inc()

	return &result, nil
}

// PendingReports lists reports awaiting moderation, oldest first.
func (s *DisciplineService) PendingReports(ctx context.Context, limit int) ([]*model.UserReport, error) {
	return s.reports.ListByStatus(ctx, model.ReportStatusPending, limit)
}

// ResolveReport marks a report handled. The deduction applied at filing
// time stands either way.
func (s *DisciplineService) ResolveReport(ctx context.Context, reportID int64) error {
	return s.reports.SetStatus(ctx, reportID, model.ReportStatusResolved)
}

// DismissReport marks a report rejected without reversing the deduction.
func (s *DisciplineService) DismissReport(ctx context.Context, reportID int64) error {
	return s.reports.SetStatus(ctx, reportID, model.ReportStatusDismissed)
}

// ReviewsFor lists reviews received by a user.
func (s *DisciplineService) ReviewsFor(ctx context.Context, userID uuid.UUID, limit int) ([]*model.UserReview, error) {
	return s.reviews.ListForUser(ctx, userID, limit)
}
