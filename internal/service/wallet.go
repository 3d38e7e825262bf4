package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"campus-events/internal/ledger"
	"campus-events/internal/metrics"
	"campus-events/internal/model"
	"campus-events/internal/pkg/db"
	"campus-events/internal/pkg/lock"
	"campus-events/internal/provider"
	"campus-events/internal/repository"
)

// WalletService handles top-ups, withdrawals and transaction history.
type WalletService struct {
	pool        *db.Pool
	users       *repository.UserRepository
	txs         *repository.TransactionRepository
	ledger      *ledger.Ledger
	gateway     provider.PaymentGateway
	callbackURL string
	locks       *lock.KeyedLock
	metrics     *metrics.Metrics
}

// NewWalletService creates a WalletService. callbackURL is where the payment
// gateway posts the 3DS result.
func NewWalletService(pool *db.Pool, gateway provider.PaymentGateway, callbackURL string, locks *lock.KeyedLock, m *metrics.Metrics) *WalletService {
	return &WalletService{
		pool:        pool,
		users:       repository.NewUserRepository(pool),
		txs:         repository.NewTransactionRepository(pool),
		ledger:      ledger.New(pool),
		gateway:     gateway,
		callbackURL: callbackURL,
		locks:       locks,
		metrics:     m,
	}
}

// TopUpInit reports a started top-up: the challenge page for the client and
// the conversation ID the callback will carry.
type TopUpInit struct {
	ConversationID string
	HTMLContent    string
}

// InitiateTopUp starts a 3DS card payment into the wallet. A pending
// transaction row is written before the gateway is called, so the eventual
// callback always has something to resolve. A gateway failure leaves the row
// pending; the balance is untouched until the callback confirms.
func (s *WalletService) InitiateTopUp(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, card provider.CardDetails) (*TopUpInit, error) {
	if amount.Sign() <= 0 {
		return nil, ledger.ErrInvalidAmount
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	conversationID := uuid.New().String()
	desc := "Cüzdan yükleme (3DS bekleniyor)"
	if _, err := s.txs.CreatePendingTopUp(ctx, userID, amount, conversationID, desc); err != nil {
		return nil, err
	}

	init, err := s.gateway.Initiate3DS(ctx, conversationID, amount, card, s.callbackURL)
	if err != nil {
		log.Warn().Err(err).Str("conversation_id", conversationID).Msg("3ds initiation failed")
		return nil, fmt.Errorf("%w: %v", ErrExternalService, err)
	}

	return &TopUpInit{
		ConversationID: init.ConversationID,
		HTMLContent:    init.HTMLContent,
	}, nil
}

// TopUpResult reports a confirmed top-up.
type TopUpResult struct {
	WalletBalance decimal.Decimal
	Amount        decimal.Decimal
}

// ConfirmTopUp handles the gateway's 3DS callback. Success flips the pending
// row to paid and credits the wallet in one transaction; the conditional
// flip makes a replayed callback a no-op. A failure callback leaves the row
// pending and the balance untouched.
func (s *WalletService) ConfirmTopUp(ctx context.Context, conversationID string, success bool) (*TopUpResult, error) {
	pending, err := s.txs.GetByConversationID(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	if !success {
		log.Warn().Str("conversation_id", conversationID).Msg("3ds payment failed")
		return nil, ErrPaymentFailed
	}

	var result TopUpResult
	result.Amount = pending.Amount

	err = s.locks.WithLock("user:"+pending.UserID.String(), func() error {
		return s.pool.InTx(ctx, func(tx pgx.Tx) error {
			flipped, err := s.txs.WithTx(tx).MarkPaid(ctx, pending.ID, "Cüzdan yükleme")
			if err != nil {
				return err
			}
			if !flipped {
				// Callback replay; the credit already happened.
				user, err := s.users.WithTx(tx).GetByID(ctx, pending.UserID)
				if err != nil {
					return err
				}
				result.WalletBalance = user.WalletBalance
				return nil
			}

			balance, err := s.ledger.WithTx(tx).Credit(ctx, pending.UserID, pending.Amount)
			if err != nil {
				return err
			}
			result.WalletBalance = balance
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.WalletCredits.Inc()

	log.Info().
		Str("user_id", pending.UserID.String()).
		Str("conversation_id", conversationID).
		Str("amount", pending.Amount.String()).
		Msg("top-up confirmed")

	return &result, nil
}

// WithdrawResult reports a completed withdrawal.
type WithdrawResult struct {
	WalletBalance decimal.Decimal
}

// Withdraw debits the wallet and records the payout.
func (s *WalletService) Withdraw(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*WithdrawResult, error) {
	var result WithdrawResult

	err := s.locks.WithLock("user:"+userID.String(), func() error {
		return s.pool.InTx(ctx, func(tx pgx.Tx) error {
			balance, err := s.ledger.WithTx(tx).Debit(ctx, userID, amount)
			if err != nil {
				return err
			}

			desc := "Bakiye çekimi"
			if _, err := s.ledger.WithTx(tx).RecordTransaction(ctx, userID, amount, model.TxTypePayment, model.PaymentPaid, &desc); err != nil {
				return err
			}

			result.WalletBalance = balance
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.WalletDebits.Inc()

	return &result, nil
}

// Balance returns the user's current wallet balance.
func (s *WalletService) Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return user.WalletBalance, nil
}

// History returns the user's transaction log, newest first.
func (s *WalletService) History(ctx context.Context, userID uuid.UUID, limit int) ([]*model.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.txs.ListByUser(ctx, userID, limit)
}
