package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"campus-events/internal/ledger"
	"campus-events/internal/metrics"
	"campus-events/internal/model"
	"campus-events/internal/notify"
	"campus-events/internal/pkg/db"
	"campus-events/internal/pkg/lock"
	"campus-events/internal/repository"
	"campus-events/internal/trust"
)

// ticketPrefix is the leading marker of participant access keys. The key
// format is TICKET_<event8>_<user8>, using the first ID segment of each.
const ticketPrefix = "TICKET"

// ParticipationService drives the join / check-in / leave / cancel
// lifecycle. Every mutation runs in one transaction; the event row lock
// serializes capacity checks and the refund fan-out.
type ParticipationService struct {
	pool     *db.Pool
	users    *repository.UserRepository
	events   *repository.EventRepository
	parts    *repository.ParticipationRepository
	ledger   *ledger.Ledger
	notifier *notify.Notifier
	locks    *lock.KeyedLock
	metrics  *metrics.Metrics
}

// NewParticipationService creates a ParticipationService.
func NewParticipationService(pool *db.Pool, locks *lock.KeyedLock, m *metrics.Metrics) *ParticipationService {
	return &ParticipationService{
		pool:     pool,
		users:    repository.NewUserRepository(pool),
		events:   repository.NewEventRepository(pool),
		parts:    repository.NewParticipationRepository(pool),
		ledger:   ledger.New(pool),
		notifier: notify.New(pool),
		locks:    locks,
		metrics:  m,
	}
}

// JoinResult reports the outcome of joining an event.
type JoinResult struct {
	Participation *model.Participation
	WalletBalance decimal.Decimal
	EventStatus   string
	DepositTaken  bool
}

// Join registers the user for the event, escrowing the deposit when one is
// set. Capacity is checked under the event row lock, so concurrent joins at
// the last seat admit exactly one.
func (s *ParticipationService) Join(ctx context.Context, eventID, userID uuid.UUID) (*JoinResult, error) {
	var result JoinResult

	err := s.locks.WithLock("event:"+eventID.String(), func() error {
		return s.pool.InTx(ctx, func(tx pgx.Tx) error {
			event, err := s.events.WithTx(tx).GetByIDForUpdate(ctx, eventID)
			if err != nil {
				return err
			}
			if event.Status == model.EventStatusCancelled {
				return ErrEventCancelled
			}
			if !event.Date.After(time.Now()) {
				return ErrEventStarted
			}
			if event.HostID == userID {
				return ErrOwnEvent
			}

			count, err := s.parts.WithTx(tx).CountApproved(ctx, eventID)
			if err != nil {
				return err
			}
			if count >= event.Capacity {
				return ErrEventFull
			}

			paymentStatus := model.PaymentPending
			var balance decimal.Decimal
			if event.DepositAmount.Sign() > 0 {
				balance, err = s.ledger.WithTx(tx).Debit(ctx, userID, event.DepositAmount)
				if err != nil {
					return err
				}
				paymentStatus = model.PaymentPaid
				result.DepositTaken = true
			} else {
				// No deposit to escrow; report the balance as it stands.
				user, err := s.users.WithTx(tx).GetByID(ctx, userID)
				if err != nil {
					return err
				}
				balance = user.WalletBalance
			}

			p, err := s.parts.WithTx(tx).Create(ctx, eventID, userID, paymentStatus)
			if err != nil {
				return err
			}

			status := event.Status
			if count+1 >= event.Capacity {
				status = model.EventStatusFull
				if err := s.events.WithTx(tx).SetStatus(ctx, eventID, status); err != nil {
					return err
				}
			}

			result.Participation = p
			result.WalletBalance = balance
			result.EventStatus = status
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if result.DepositTaken {
		s.metrics.WalletDebits.Inc()
	}

	log.Info().
		Str("event_id", eventID.String()).
		Str("user_id", userID.String()).
		Bool("deposit_taken", result.DepositTaken).
		Msg("user joined event")

	return &result, nil
}

// CheckInResult reports the outcome of a check-in.
type CheckInResult struct {
	TrustScore       int
	AlreadyCheckedIn bool
}

// CheckIn records attendance via the event's QR session token. The first
// scan awards the trust bonus; repeated scans are no-ops that report the
// unchanged score.
func (s *ParticipationService) CheckIn(ctx context.Context, eventID, userID uuid.UUID, sessionToken string) (*CheckInResult, error) {
	var result CheckInResult

	err := s.pool.InTx(ctx, func(tx pgx.Tx) error {
		event, err := s.events.WithTx(tx).GetByID(ctx, eventID)
		if err != nil {
			return err
		}
		if event.SessionToken != sessionToken {
			return ErrInvalidTicket
		}

		p, err := s.parts.WithTx(tx).GetForUpdate(ctx, eventID, userID)
		if err != nil {
			return err
		}

		if p.QRScanned {
			user, err := s.users.WithTx(tx).GetByID(ctx, userID)
			if err != nil {
				return err
			}
			result.AlreadyCheckedIn = true
			result.TrustScore = user.TrustScore
			return nil
		}

		return s.applyCheckIn(ctx, tx, p.ID, userID, &result)
	})
	if err != nil {
		return nil, err
	}

	if !result.AlreadyCheckedIn {
		s.metrics.CheckIns.Inc()
		s.metrics.TrustAdjustments.Inc()
	}

	return &result, nil
}

// Ticket returns the participant's access key for the event. The key embeds
// the first segment of the event and user IDs.
func (s *ParticipationService) Ticket(ctx context.Context, eventID, userID uuid.UUID) (string, error) {
	if _, err := s.parts.Get(ctx, eventID, userID); err != nil {
		return "", err
	}

	return fmt.Sprintf("%s_%s_%s", ticketPrefix, idSegment(eventID), idSegment(userID)), nil
}

// ValidateTicket lets the event host check a participant in from their
// access key. A key that was already used returns ErrAlreadyUsed instead of
// the idempotent success a self check-in gets; the host needs to know a
// ticket is being presented twice.
func (s *ParticipationService) ValidateTicket(ctx context.Context, eventID, hostID uuid.UUID, accessKey string) (*CheckInResult, error) {
	userSegment, err := parseTicket(accessKey, eventID)
	if err != nil {
		return nil, err
	}

	var result CheckInResult

	err = s.pool.InTx(ctx, func(tx pgx.Tx) error {
		event, err := s.events.WithTx(tx).GetByID(ctx, eventID)
		if err != nil {
			return err
		}
		if event.HostID != hostID {
			return ErrForbidden
		}

		p, err := s.parts.WithTx(tx).FindByUserPrefix(ctx, eventID, userSegment)
		if err != nil {
			return err
		}
		if p.QRScanned {
			return ErrAlreadyUsed
		}

		return s.applyCheckIn(ctx, tx, p.ID, p.UserID, &result)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.CheckIns.Inc()
	s.metrics.TrustAdjustments.Inc()

	return &result, nil
}

// applyCheckIn marks the participation scanned and awards the bonus. The
// caller holds the participation row lock.
func (s *ParticipationService) applyCheckIn(ctx context.Context, tx pgx.Tx, participationID int64, userID uuid.UUID, result *CheckInResult) error {
	flipped, err := s.parts.WithTx(tx).MarkCheckedIn(ctx, participationID, time.Now())
	if err != nil {
		return err
	}
	if !flipped {
		return ErrAlreadyUsed
	}

	score, err := s.ledger.WithTx(tx).AdjustTrust(ctx, userID, trust.CheckInBonus)
	if err != nil {
		return err
	}

	result.TrustScore = score
	return nil
}

// LeaveResult reports the outcome of leaving an event.
type LeaveResult struct {
	Penalty       int
	PenaltyTag    string
	Refunded      bool
	TrustScore    int
	WalletBalance decimal.Decimal
}

// Leave withdraws the user from the event. Leaving close to the start time
// costs trust; the escrowed deposit comes back only when more than 24 hours
// remain. The registration row is removed entirely.
func (s *ParticipationService) Leave(ctx context.Context, eventID, userID uuid.UUID) (*LeaveResult, error) {
	var result LeaveResult

	err := s.locks.WithLock("event:"+eventID.String(), func() error {
		return s.pool.InTx(ctx, func(tx pgx.Tx) error {
			event, err := s.events.WithTx(tx).GetByIDForUpdate(ctx, eventID)
			if err != nil {
				return err
			}

			p, err := s.parts.WithTx(tx).GetForUpdate(ctx, eventID, userID)
			if err != nil {
				return err
			}

			hoursLeft := time.Until(event.Date).Hours()

			if p.PaymentStatus == model.PaymentPaid && trust.LeaveRefundable(hoursLeft) {
				balance, err := s.ledger.WithTx(tx).Credit(ctx, userID, event.DepositAmount)
				if err != nil {
					return err
				}
				result.Refunded = true
				result.WalletBalance = balance
			}

			penalty, tag := trust.LeavePenalty(hoursLeft)
			if penalty > 0 {
				score, err := s.ledger.WithTx(tx).AdjustTrust(ctx, userID, -penalty)
				if err != nil {
					return err
				}
				result.Penalty = penalty
				result.PenaltyTag = tag
				result.TrustScore = score

				s.notifier.WithTx(tx).Send(ctx, userID,
					"Güven puanı düştü",
					fmt.Sprintf("%s: etkinlikten ayrıldığınız için %d puan düşüldü", tag, penalty),
					notify.TypeSystem)
			}

			// Fill in whichever figures no mutation produced.
			if !result.Refunded || penalty == 0 {
				user, err := s.users.WithTx(tx).GetByID(ctx, userID)
				if err != nil {
					return err
				}
				if !result.Refunded {
					result.WalletBalance = user.WalletBalance
				}
				if penalty == 0 {
					result.TrustScore = user.TrustScore
				}
			}

			if err := s.parts.WithTx(tx).Delete(ctx, p.ID); err != nil {
				return err
			}

			// Leaving frees a seat; flip FULL back to ACTIVE.
			if event.Status == model.EventStatusFull {
				return s.events.WithTx(tx).SetStatus(ctx, eventID, model.EventStatusActive)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if result.Refunded {
		s.metrics.WalletCredits.Inc()
	}
	if result.Penalty > 0 {
		s.metrics.LeavePenalties.Inc()
		s.metrics.TrustAdjustments.Inc()
	}

	log.Info().
		Str("event_id", eventID.String()).
		Str("user_id", userID.String()).
		Int("penalty", result.Penalty).
		Bool("refunded", result.Refunded).
		Msg("user left event")

	return &result, nil
}

// CancelResult reports the outcome of cancelling an event.
type CancelResult struct {
	RefundedCount int
}

// Cancel cancels the event and refunds every escrowed deposit: credit the
// participant, flip their payment status, append a refund transaction and
// notify them, all in one transaction. Participants already refunded are
// skipped, so a cancellation interrupted mid-way can be re-run safely.
func (s *ParticipationService) Cancel(ctx context.Context, eventID, hostID uuid.UUID) (*CancelResult, error) {
	var result CancelResult

	err := s.locks.WithLock("event:"+eventID.String(), func() error {
		return s.pool.InTx(ctx, func(tx pgx.Tx) error {
			event, err := s.events.WithTx(tx).GetByIDForUpdate(ctx, eventID)
			if err != nil {
				return err
			}
			if event.HostID != hostID {
				return ErrForbidden
			}

			paid, err := s.parts.WithTx(tx).ListPaidByEvent(ctx, eventID)
			if err != nil {
				return err
			}

			l := s.ledger.WithTx(tx)
			notifier := s.notifier.WithTx(tx)
			desc := fmt.Sprintf("İade: %s iptal edildi", event.Title)

			for _, p := range paid {
				if _, err := l.Credit(ctx, p.UserID, event.DepositAmount); err != nil {
					return err
				}
				if err := s.parts.WithTx(tx).SetPaymentStatus(ctx, p.ID, model.PaymentRefunded); err != nil {
					return err
				}
				if _, err := l.RecordTransaction(ctx, p.UserID, event.DepositAmount, model.TxTypeRefund, model.PaymentRefunded, &desc); err != nil {
					return err
				}
				notifier.Send(ctx, p.UserID, "Etkinlik iptal edildi", desc, notify.TypeEvent)
				result.RefundedCount++
			}

			return s.events.WithTx(tx).SetStatus(ctx, eventID, model.EventStatusCancelled)
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RefundFanouts.Inc()
	s.metrics.RefundsIssued.Add(float64(result.RefundedCount))

	log.Info().
		Str("event_id", eventID.String()).
		Int("refunded", result.RefundedCount).
		Msg("event cancelled")

	return &result, nil
}

// Participants lists the registrations for an event. Host only.
func (s *ParticipationService) Participants(ctx context.Context, eventID, callerID uuid.UUID) ([]*model.Participation, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.HostID != callerID {
		return nil, ErrForbidden
	}

	return s.parts.ListByEvent(ctx, eventID)
}

// idSegment returns the first hyphen-delimited segment of a UUID.
func idSegment(id uuid.UUID) string {
	return strings.SplitN(id.String(), "-", 2)[0]
}

// parseTicket extracts the user segment from an access key, verifying the
// prefix and that the key was issued for this event.
func parseTicket(accessKey string, eventID uuid.UUID) (string, error) {
	parts := strings.Split(accessKey, "_")
	if len(parts) != 3 || parts[0] != ticketPrefix {
		return "", ErrInvalidTicket
	}
	if parts[1] != idSegment(eventID) {
		return "", ErrInvalidTicket
	}
	return parts[2], nil
}
