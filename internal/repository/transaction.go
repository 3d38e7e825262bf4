package repository

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

// ErrTransactionNotFound is returned when a ledger row cannot be located.
var ErrTransactionNotFound = errors.New("transaction not found")

const transactionColumns = `
	id, user_id, amount, status, transaction_type, description, conversation_id, created_at
`

// TransactionRepository handles the append-only transaction log. Inserts go
// through ledger.RecordTransaction; this repository covers reads and the
// single allowed mutation, status transitions on pending top-ups.
type TransactionRepository struct {
	db db.DBTX
}

// NewTransactionRepository creates a new TransactionRepository instance.
func NewTransactionRepository(dbtx db.DBTX) *TransactionRepository {
	return &TransactionRepository{db: dbtx}
}

// WithTx returns a repository bound to the given transaction.
func (r *TransactionRepository) WithTx(dbtx db.DBTX) *TransactionRepository {
	return &TransactionRepository{db: dbtx}
}

func scanTransaction(row pgx.Row) (*model.Transaction, error) {
	var tx model.Transaction
	err := row.Scan(
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
		return nil, err
	}
	return &tx, nil
}

// CreatePendingTopUp records a wallet top-up awaiting 3DS confirmation.
// The conversation ID ties the row to the payment provider's session so the
// callback and a later reconciliation pass can resolve it.
func (r *TransactionRepository) CreatePendingTopUp(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, conversationID, description string) (*model.Transaction, error) {
	const query = `
		INSERT INTO transactions (user_id, amount, transaction_type, status, description, conversation_id, created_at)
		VALUES ($1, $2, 'deposit', 'pending', $3, $4, NOW())
		RETURNING ` + transactionColumns

	tx, err := scanTransaction(r.db.QueryRow(ctx, query, userID, amount, description, conversationID))
	if err != nil {
		return nil, fmt.Errorf("failed to create pending top-up: %w", err)
	}

	return tx, nil
}

// GetByConversationID locates a pending top-up by its provider session.
func (r *TransactionRepository) GetByConversationID(ctx context.Context, conversationID string) (*model.Transaction, error) {
	const query = `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE conversation_id = $1
	`

	tx, err := scanTransaction(r.db.QueryRow(ctx, query, conversationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return tx, nil
}

// MarkPaid transitions a pending row to paid. Returns false when the row
// was not pending, so a replayed callback cannot credit twice.
func (r *TransactionRepository) MarkPaid(ctx context.Context, id int64, description string) (bool, error) {
	const query = `
		UPDATE transactions
		SET status = 'paid', description = $2
		WHERE id = $1 AND status = 'pending'
	`

	tag, err := r.db.Exec(ctx, query, id, description)
	if err != nil {
		return false, fmt.Errorf("failed to mark transaction paid: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// ListByUser retrieves a user's transactions, newest first.
func (r *TransactionRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*model.Transaction, error) {
	const query = `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txs []*model.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return txs, nil
}

// ListByUserAndType retrieves a user's transactions filtered by type.
func (r *TransactionRepository) ListByUserAndType(ctx context.Context, userID uuid.UUID, txType string, limit int) ([]*model.Transaction, error) {
	const query = `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = $1 AND transaction_type = $2
		ORDER BY created_at DESC
		LIMIT $3
	`

	rows, err := r.db.Query(ctx, query, userID, txType, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txs []*model.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return txs, nil
}
