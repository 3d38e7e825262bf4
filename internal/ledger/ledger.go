// Package ledger owns every mutation of the two per-user account fields,
// wallet_balance and trust_score, plus the append-only transaction log.
// Route handlers and services never touch these columns directly; the
// clamping and no-overdraft rules live here and nowhere else.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"campus-events/internal/model"
	"campus-events/internal/pkg/db"
)

// Ledger errors.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrUserNotFound      = errors.New("user not found")
	ErrInvalidAmount     = errors.New("invalid amount: must be positive")
)

// Ledger applies bounded, auditable mutations to a user's wallet balance
// and trust score. All methods take a DBTX so they compose into the
// caller's transaction; a debit and its paired credit or transaction row
// must share one tx.
type Ledger struct {
	db db.DBTX
}

// New creates a Ledger bound to a pool or transaction.
func New(dbtx db.DBTX) *Ledger {
	return &Ledger{db: dbtx}
}

// WithTx returns a Ledger bound to the given transaction.
func (l *Ledger) WithTx(dbtx db.DBTX) *Ledger {
	return &Ledger{db: dbtx}
}

// Debit decreases the user's balance by amount. The balance check and the
// update are one statement, so two concurrent debits can never overdraw.
// Returns the new balance.
func (l *Ledger) Debit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.Sign() <= 0 {
		return decimal.Zero, ErrInvalidAmount
	}

	const query = `
		UPDATE users
		SET wallet_balance = wallet_balance - $2, updated_at = NOW()
		WHERE id = $1 AND wallet_balance >= $2
		RETURNING wallet_balance
	`

	var balance decimal.Decimal
	err := l.db.QueryRow(ctx, query, userID, amount).Scan(&balance)
	if err != nil {
		if isNoRows(err) {
			// Either the user is missing or the balance is short;
			// disambiguate so callers get the right error.
			exists, exErr := l.userExists(ctx, userID)
			if exErr != nil {
				return decimal.Zero, exErr
			}
			if !exists {
				return decimal.Zero, ErrUserNotFound
			}
			return decimal.Zero, ErrInsufficientFunds
		}
		return decimal.Zero, fmt.Errorf("failed to debit wallet: %w", err)
	}

	return balance, nil
}

// Credit increases the user's balance by amount. There is no upper bound.
// Returns the new balance.
func (l *Ledger) Credit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.Sign() <= 0 {
		return decimal.Zero, ErrInvalidAmount
	}

	const query = `
		UPDATE users
		SET wallet_balance = wallet_balance + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING wallet_balance
	`

	var balance decimal.Decimal
	err := l.db.QueryRow(ctx, query, userID, amount).Scan(&balance)
	if err != nil {
		if isNoRows(err) {
			return decimal.Zero, ErrUserNotFound
		}
		return decimal.Zero, fmt.Errorf("failed to credit wallet: %w", err)
	}

	return balance, nil
}

// AdjustTrust applies delta to the user's trust score, clamped to [0,100]
// in the same statement. The ledger does not deduplicate: callers that
// grant one-time bonuses must guard with their own flag (is_email_verified
// and friends) before calling. Returns the new score.
func (l *Ledger) AdjustTrust(ctx context.Context, userID uuid.UUID, delta int) (int, error) {
	const query = `
		UPDATE users
		SET trust_score = LEAST(100, GREATEST(0, trust_score + $2)), updated_at = NOW()
		WHERE id = $1
		RETURNING trust_score
	`

	var score int
	err := l.db.QueryRow(ctx, query, userID, delta).Scan(&score)
	if err != nil {
		if isNoRows(err) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("failed to adjust trust score: %w", err)
	}

	return score, nil
}

// SetTrustCeiling sets the trust score to exactly 100. Only the
// national-identity verification path may bypass the clamp this way.
func (l *Ledger) SetTrustCeiling(ctx context.Context, userID uuid.UUID) (int, error) {
	const query = `
		UPDATE users
		SET trust_score = 100, updated_at = NOW()
		WHERE id = $1
		RETURNING trust_score
	`

	var score int
	err := l.db.QueryRow(ctx, query, userID).Scan(&score)
	if err != nil {
		if isNoRows(err) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("failed to set trust ceiling: %w", err)
	}

	return score, nil
}

// RecordTransaction appends an immutable ledger row. Every debit or credit
// tied to a semantic event (top-up, purchase, refund) must be paired with
// one of these in the same transaction.
func (l *Ledger) RecordTransaction(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, txType, status string, description *string) (*model.Transaction, error) {
	const query = `
		INSERT INTO transactions (user_id, amount, transaction_type, status, description, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, user_id, amount, status, transaction_type, description, conversation_id, created_at
	`

	var tx model.Transaction
	err := l.db.QueryRow(ctx, query, userID, amount, txType, status, description).Scan(
		&tx.ID,
		&tx.UserID,
		&tx.Amount,
		&tx.Status,
		&tx.Type,
		&tx.Description,
		&tx.ConversationID,
		&tx.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record transaction: %w", err)
	}

	return &tx, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func (l *Ledger) userExists(ctx context.Context, userID uuid.UUID) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`

	var exists bool
	if err := l.db.QueryRow(ctx, query, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return exists, nil
}
