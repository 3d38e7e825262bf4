package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"campus-events/internal/ledger"
	"campus-events/internal/metrics"
	"campus-events/internal/otp"
	"campus-events/internal/pkg/db"
	"campus-events/internal/provider"
	"campus-events/internal/repository"
	"campus-events/internal/trust"
)

// VerificationService runs the four verification channels. Each is gated by
// its flag on the user row, so the bonus lands exactly once, and every
// external check fails closed: a provider error never mutates the score.
type VerificationService struct {
	pool     *db.Pool
	users    *repository.UserRepository
	ledger   *ledger.Ledger
	otp      *otp.Store
	email    provider.EmailSender
	sms      provider.SMSSender
	identity provider.IdentityVerifier
	student  provider.StudentVerifier
	metrics  *metrics.Metrics
}

// NewVerificationService creates a VerificationService.
func NewVerificationService(
	pool *db.Pool,
	otpStore *otp.Store,
	email provider.EmailSender,
	sms provider.SMSSender,
	identity provider.IdentityVerifier,
	student provider.StudentVerifier,
	m *metrics.Metrics,
) *VerificationService {
	return &VerificationService{
		pool:     pool,
		users:    repository.NewUserRepository(pool),
		ledger:   ledger.New(pool),
		otp:      otpStore,
		email:    email,
		sms:      sms,
		identity: identity,
		student:  student,
		metrics:  m,
	}
}

// VerificationResult reports the new trust score after a completed channel.
type VerificationResult struct {
	TrustScore int
	Bonus      int
}

// SendEmailOTP issues a one-time code and emails it to the user's address.
func (s *VerificationService) SendEmailOTP(ctx context.Context, userID uuid.UUID) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.IsEmailVerified {
		return ErrAlreadyVerified
	}

	code, err := s.otp.Issue(ctx, otp.ChannelEmail, userID)
	if err != nil {
		return err
	}

	body := fmt.Sprintf("Doğrulama kodunuz: %s", code)
	if err := s.email.Send(ctx, user.Email, "E-posta doğrulama", body); err != nil {
		log.Warn().Err(err).Str("user_id", userID.String()).Msg("email otp delivery failed")
		return fmt.Errorf("%w: %v", ErrExternalService, err)
	}

	return nil
}

// ConfirmEmailOTP verifies the submitted code and awards the email bonus.
func (s *VerificationService) ConfirmEmailOTP(ctx context.Context, userID uuid.UUID, code string) (*VerificationResult, error) {
	if err := s.otp.Verify(ctx, otp.ChannelEmail, userID, code); err != nil {
		return nil, err
	}

	return s.awardFlagBonus(ctx, userID, trust.EmailBonus, otp.ChannelEmail)
}

// SendPhoneOTP issues a one-time code and texts it to the user's phone.
func (s *VerificationService) SendPhoneOTP(ctx context.Context, userID uuid.UUID) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.IsPhoneVerified {
		return ErrAlreadyVerified
	}
	if user.PhoneNumber == nil || *user.PhoneNumber == "" {
		return ErrMissingPhone
	}

	code, err := s.otp.Issue(ctx, otp.ChannelPhone, userID)
	if err != nil {
		return err
	}

	msg := fmt.Sprintf("Doğrulama kodunuz: %s", code)
	if err := s.sms.Send(ctx, *user.PhoneNumber, msg); err != nil {
		log.Warn().Err(err).Str("user_id", userID.String()).Msg("sms otp delivery failed")
		return fmt.Errorf("%w: %v", ErrExternalService, err)
	}

	return nil
}

// ConfirmPhoneOTP verifies the submitted code and awards the phone bonus.
func (s *VerificationService) ConfirmPhoneOTP(ctx context.Context, userID uuid.UUID, code string) (*VerificationResult, error) {
	if err := s.otp.Verify(ctx, otp.ChannelPhone, userID, code); err != nil {
		return nil, err
	}

	return s.awardFlagBonus(ctx, userID, trust.PhoneBonus, otp.ChannelPhone)
}

// VerifyStudent validates a student document barcode with the issuing
// authority and awards the student bonus.
func (s *VerificationService) VerifyStudent(ctx context.Context, userID uuid.UUID, barcode string) (*VerificationResult, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.IsStudentVerified {
		return nil, ErrAlreadyVerified
	}

	ok, err := s.student.Verify(ctx, barcode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExternalService, err)
	}
	if !ok {
		return nil, ErrVerificationRejected
	}

	var result VerificationResult
	err = s.pool.InTx(ctx, func(tx pgx.Tx) error {
		flipped, err := s.users.WithTx(tx).MarkStudentVerified(ctx, userID, barcode)
		if err != nil {
			return err
		}
		if !flipped {
			return ErrAlreadyVerified
		}

		score, err := s.ledger.WithTx(tx).AdjustTrust(ctx, userID, trust.StudentBonus)
		if err != nil {
			return err
		}

		result.TrustScore = score
		result.Bonus = trust.StudentBonus
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.TrustAdjustments.Inc()
	return &result, nil
}

// VerifyIdentity validates the national identity fields against the civil
// registry. Success sets the trust score to exactly 100; this is the only
// path allowed to bypass the incremental clamp.
func (s *VerificationService) VerifyIdentity(ctx context.Context, userID uuid.UUID, nationalID, firstName, lastName string, birthYear int) (*VerificationResult, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.IsVerified {
		return nil, ErrAlreadyVerified
	}

	ok, err := s.identity.Verify(ctx, nationalID, firstName, lastName, birthYear)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExternalService, err)
	}
	if !ok {
		return nil, ErrVerificationRejected
	}

	var result VerificationResult
	err = s.pool.InTx(ctx, func(tx pgx.Tx) error {
		flipped, err := s.users.WithTx(tx).MarkIdentityVerified(ctx, userID, nationalID)
		if err != nil {
			return err
		}
		if !flipped {
			return ErrAlreadyVerified
		}

		score, err := s.ledger.WithTx(tx).SetTrustCeiling(ctx, userID)
		if err != nil {
			return err
		}

		result.TrustScore = score
		result.Bonus = score - user.TrustScore
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.TrustAdjustments.Inc()

	log.Info().Str("user_id", userID.String()).Msg("identity verified, trust score set to ceiling")

	return &result, nil
}

// awardFlagBonus flips the channel's verification flag and applies its
// one-time bonus in one transaction. The flag is the dedup guard.
func (s *VerificationService) awardFlagBonus(ctx context.Context, userID uuid.UUID, bonus int, channel otp.Channel) (*VerificationResult, error) {
	var result VerificationResult

	err := s.pool.InTx(ctx, func(tx pgx.Tx) error {
		users := s.users.WithTx(tx)

		var flipped bool
		var err error
		switch channel {
		case otp.ChannelEmail:
			flipped, err = users.MarkEmailVerified(ctx, userID)
		case otp.ChannelPhone:
			flipped, err = users.MarkPhoneVerified(ctx, userID)
		default:
			return errors.New("unknown verification channel")
		}
		if err != nil {
			return err
		}
		if !flipped {
			return ErrAlreadyVerified
		}

		score, err := s.ledger.WithTx(tx).AdjustTrust(ctx, userID, bonus)
		if err != nil {
			return err
		}

		result.TrustScore = score
		result.Bonus = bonus
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.TrustAdjustments.Inc()
	return &result, nil
}
