// Tests use testcontainers-go to spin up a PostgreSQL container and are
// skipped when Docker is not available.
package ledger

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"campus-events/internal/model"
)

func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	return cmd.Run() == nil
}

func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	poolConfig, err := pgxpool.ParseConfig(connStr)
	require.NoError(t, err)
	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	require.NoError(t, err)

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			email VARCHAR(255) NOT NULL UNIQUE,
			trust_score INT NOT NULL DEFAULT 50,
			wallet_balance NUMERIC(10,2) NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT chk_trust_score CHECK (trust_score BETWEEN 0 AND 100),
			CONSTRAINT chk_wallet_balance CHECK (wallet_balance >= 0)
		);

		CREATE TABLE IF NOT EXISTS transactions (
			id BIGSERIAL PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			amount NUMERIC(10,2) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			transaction_type VARCHAR(20) NOT NULL,
			description TEXT,
			conversation_id VARCHAR(64),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	require.NoError(t, err)

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return pool, cleanup
}

func seedUser(t *testing.T, pool *pgxpool.Pool, balance int64, score int) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO users (id, email, trust_score, wallet_balance) VALUES ($1, $2, $3, $4)`,
		id, id.String()+"@uni.edu", score, decimal.NewFromInt(balance))
	require.NoError(t, err)
	return id
}

func TestLedger_DebitAndCredit(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	l := New(pool)
	ctx := context.Background()
	user := seedUser(t, pool, 100, 50)

	balance, err := l.Debit(ctx, user, decimal.NewFromInt(30))
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(70)), "balance after debit: %s", balance)

	balance, err = l.Credit(ctx, user, decimal.NewFromInt(15))
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(85)), "balance after credit: %s", balance)
}

func TestLedger_DebitInsufficientFunds(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	l := New(pool)
	ctx := context.Background()
	user := seedUser(t, pool, 20, 50)

	_, err := l.Debit(ctx, user, decimal.NewFromInt(21))
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	// The failed debit must not touch the balance.
	var balance decimal.Decimal
	require.NoError(t, pool.QueryRow(ctx, `SELECT wallet_balance FROM users WHERE id = $1`, user).Scan(&balance))
	assert.True(t, balance.Equal(decimal.NewFromInt(20)), "balance changed on failed debit: %s", balance)
}

func TestLedger_DebitMissingUser(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	l := New(pool)
	ctx := context.Background()

	_, err := l.Debit(ctx, uuid.New(), decimal.NewFromInt(10))
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestLedger_InvalidAmounts(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	l := New(pool)
	ctx := context.Background()
	user := seedUser(t, pool, 100, 50)

	_, err := l.Debit(ctx, user, decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = l.Credit(ctx, user, decimal.NewFromInt(-5))
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestLedger_AdjustTrustClamps(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	l := New(pool)
	ctx := context.Background()

	low := seedUser(t, pool, 0, 3)
	score, err := l.AdjustTrust(ctx, low, -10)
	require.NoError(t, err)
	assert.Equal(t, 0, score)

	high := seedUser(t, pool, 0, 97)
	score, err = l.AdjustTrust(ctx, high, 10)
	require.NoError(t, err)
	assert.Equal(t, 100, score)

	mid := seedUser(t, pool, 0, 50)
	score, err = l.AdjustTrust(ctx, mid, 5)
	require.NoError(t, err)
	assert.Equal(t, 55, score)
}

func TestLedger_SetTrustCeiling(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	l := New(pool)
	ctx := context.Background()
	user := seedUser(t, pool, 0, 12)

	score, err := l.SetTrustCeiling(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 100, score)
}

func TestLedger_RecordTransaction(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	l := New(pool)
	ctx := context.Background()
	user := seedUser(t, pool, 0, 50)

	desc := "Etkinlik iptali - depozito iadesi"
	tx, err := l.RecordTransaction(ctx, user, decimal.NewFromInt(50), model.TxTypeRefund, model.PaymentRefunded, &desc)
	require.NoError(t, err)
	assert.Equal(t, model.TxTypeRefund, tx.Type)
	assert.Equal(t, model.PaymentRefunded, tx.Status)
	require.NotNil(t, tx.Description)
	assert.Equal(t, desc, *tx.Description)
	assert.True(t, tx.Amount.Equal(decimal.NewFromInt(50)))
}

// TestLedger_ConcurrentDebitsNeverOverdraw drives parallel debits against one
// wallet and checks the conditional update admits only what the balance
// covers.
func TestLedger_ConcurrentDebitsNeverOverdraw(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	l := New(pool)
	ctx := context.Background()
	user := seedUser(t, pool, 100, 50)

	const workers = 10
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func() {
			_, err := l.Debit(ctx, user, decimal.NewFromInt(30))
			results <- err
		}()
	}

	succeeded := 0
	for i := 0; i < workers; i++ {
		if err := <-results; err == nil {
			succeeded++
		} else {
			require.ErrorIs(t, err, ErrInsufficientFunds)
		}
	}

	// 100 / 30 admits exactly three debits.
	assert.Equal(t, 3, succeeded)

	var balance decimal.Decimal
	require.NoError(t, pool.QueryRow(ctx, `SELECT wallet_balance FROM users WHERE id = $1`, user).Scan(&balance))
	assert.True(t, balance.Equal(decimal.NewFromInt(10)), "final balance: %s", balance)
}
