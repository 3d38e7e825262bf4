// Tests use testcontainers-go to spin up a PostgreSQL container and are
// skipped when Docker is not available. They drive the participation
// lifecycle through the real service code, escrow and refund fan-out
// included.
package service

import (
	"context"
	"os/exec"
	"sync"
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

	"campus-events/internal/metrics"
	"campus-events/internal/model"
	"campus-events/internal/pkg/db"
	"campus-events/internal/pkg/lock"
	"campus-events/internal/repository"
)

func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	return cmd.Run() == nil
}

// promauto registers into the default registry, so the metrics set is
// created once for the whole test binary.
var (
	testMetricsOnce sync.Once
	testMetrics     *metrics.Metrics
)

func serviceTestMetrics() *metrics.Metrics {
	testMetricsOnce.Do(func() { testMetrics = metrics.New() })
	return testMetrics
}

func setupServiceDB(t *testing.T) (*db.Pool, func()) {
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
			full_name VARCHAR(100) NOT NULL DEFAULT '',
			phone_number VARCHAR(20),
			city VARCHAR(50),
			bio TEXT,
			trust_score INT NOT NULL DEFAULT 50,
			wallet_balance NUMERIC(10,2) NOT NULL DEFAULT 0,
			is_verified BOOLEAN NOT NULL DEFAULT FALSE,
			is_student_verified BOOLEAN NOT NULL DEFAULT FALSE,
			is_email_verified BOOLEAN NOT NULL DEFAULT FALSE,
			is_phone_verified BOOLEAN NOT NULL DEFAULT FALSE,
			student_document_barcode VARCHAR(100),
			national_id VARCHAR(11),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT chk_users_wallet_balance CHECK (wallet_balance >= 0)
		);

		CREATE TABLE IF NOT EXISTS events (
			id UUID PRIMARY KEY,
			host_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			title VARCHAR(200) NOT NULL,
			description TEXT NOT NULL,
			date TIMESTAMPTZ NOT NULL,
			city VARCHAR(50),
			category VARCHAR(50),
			capacity INT NOT NULL,
			deposit_amount NUMERIC(10,2) NOT NULL DEFAULT 0,
			price NUMERIC(10,2) NOT NULL DEFAULT 0,
			status VARCHAR(20) NOT NULL DEFAULT 'ACTIVE',
			session_token VARCHAR(64) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS participations (
			id BIGSERIAL PRIMARY KEY,
			event_id UUID NOT NULL REFERENCES events(id) ON DELETE CASCADE,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			status VARCHAR(20) NOT NULL DEFAULT 'approved',
			payment_status VARCHAR(20) NOT NULL DEFAULT 'pending',
			qr_scanned BOOLEAN NOT NULL DEFAULT FALSE,
			check_in_time TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT uq_participations_event_user UNIQUE (event_id, user_id)
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

		CREATE TABLE IF NOT EXISTS notifications (
			id BIGSERIAL PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			title VARCHAR(200) NOT NULL,
			message TEXT NOT NULL,
			type VARCHAR(30) NOT NULL,
			is_read BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	require.NoError(t, err)

	wrapped := &db.Pool{Pool: pool}

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return wrapped, cleanup
}

func seedServiceUser(t *testing.T, pool *db.Pool, balance int64) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO users (id, email, full_name, wallet_balance) VALUES ($1, $2, 'Test User', $3)`,
		id, id.String()+"@uni.edu", decimal.NewFromInt(balance))
	require.NoError(t, err)
	return id
}

func seedServiceEvent(t *testing.T, pool *db.Pool, hostID uuid.UUID, deposit int64) *model.Event {
	t.Helper()
	event, err := repository.NewEventRepository(pool).Create(context.Background(), repository.NewEvent{
		HostID:        hostID,
		Title:         "Kampüs buluşması",
		Description:   "Test etkinliği",
		Date:          time.Now().Add(48 * time.Hour),
		Capacity:      10,
		DepositAmount: decimal.NewFromInt(deposit),
		Price:         decimal.Zero,
		SessionToken:  uuid.New().String(),
	})
	require.NoError(t, err)
	return event
}

func walletBalance(t *testing.T, pool *db.Pool, userID uuid.UUID) decimal.Decimal {
	t.Helper()
	var balance decimal.Decimal
	require.NoError(t, pool.QueryRow(context.Background(),
		`SELECT wallet_balance FROM users WHERE id = $1`, userID).Scan(&balance))
	return balance
}

func TestParticipationService_JoinFreeEventReportsBalance(t *testing.T) {
	pool, cleanup := setupServiceDB(t)
	defer cleanup()

	svc := NewParticipationService(pool, lock.New(), serviceTestMetrics())
	ctx := context.Background()

	host := seedServiceUser(t, pool, 0)
	joiner := seedServiceUser(t, pool, 40)
	event := seedServiceEvent(t, pool, host, 0)

	result, err := svc.Join(ctx, event.ID, joiner)
	require.NoError(t, err)

	assert.False(t, result.DepositTaken)
	assert.Equal(t, model.PaymentPending, result.Participation.PaymentStatus)
	// No money moved, but the response still carries the real balance.
	assert.True(t, result.WalletBalance.Equal(decimal.NewFromInt(40)),
		"reported balance %s, want 40", result.WalletBalance)
}

func TestParticipationService_JoinEscrowsDeposit(t *testing.T) {
	pool, cleanup := setupServiceDB(t)
	defer cleanup()

	svc := NewParticipationService(pool, lock.New(), serviceTestMetrics())
	ctx := context.Background()

	host := seedServiceUser(t, pool, 0)
	joiner := seedServiceUser(t, pool, 100)
	event := seedServiceEvent(t, pool, host, 60)

	result, err := svc.Join(ctx, event.ID, joiner)
	require.NoError(t, err)

	assert.True(t, result.DepositTaken)
	assert.Equal(t, model.PaymentPaid, result.Participation.PaymentStatus)
	assert.True(t, result.WalletBalance.Equal(decimal.NewFromInt(40)),
		"reported balance %s, want 40", result.WalletBalance)
	assert.True(t, walletBalance(t, pool, joiner).Equal(decimal.NewFromInt(40)))
}

func TestParticipationService_LeaveWithoutRefundReportsBalance(t *testing.T) {
	pool, cleanup := setupServiceDB(t)
	defer cleanup()

	svc := NewParticipationService(pool, lock.New(), serviceTestMetrics())
	ctx := context.Background()

	host := seedServiceUser(t, pool, 0)
	joiner := seedServiceUser(t, pool, 30)
	event := seedServiceEvent(t, pool, host, 0)

	_, err := svc.Join(ctx, event.ID, joiner)
	require.NoError(t, err)

	// More than 24h out: no penalty, and nothing was escrowed to refund.
	result, err := svc.Leave(ctx, event.ID, joiner)
	require.NoError(t, err)

	assert.False(t, result.Refunded)
	assert.Zero(t, result.Penalty)
	assert.Equal(t, 50, result.TrustScore)
	assert.True(t, result.WalletBalance.Equal(decimal.NewFromInt(30)),
		"reported balance %s, want 30", result.WalletBalance)
}

func TestParticipationService_CancelRefundFanout(t *testing.T) {
	pool, cleanup := setupServiceDB(t)
	defer cleanup()

	svc := NewParticipationService(pool, lock.New(), serviceTestMetrics())
	ctx := context.Background()

	host := seedServiceUser(t, pool, 0)
	alice := seedServiceUser(t, pool, 50)
	bob := seedServiceUser(t, pool, 50)
	event := seedServiceEvent(t, pool, host, 50)

	for _, joiner := range []uuid.UUID{alice, bob} {
		_, err := svc.Join(ctx, event.ID, joiner)
		require.NoError(t, err)
		assert.True(t, walletBalance(t, pool, joiner).IsZero())
	}

	result, err := svc.Cancel(ctx, event.ID, host)
	require.NoError(t, err)
	assert.Equal(t, 2, result.RefundedCount)

	events := repository.NewEventRepository(pool)
	got, err := events.GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EventStatusCancelled, got.Status)

	for _, joiner := range []uuid.UUID{alice, bob} {
		assert.True(t, walletBalance(t, pool, joiner).Equal(decimal.NewFromInt(50)),
			"deposit not returned to %s", joiner)

		p, err := repository.NewParticipationRepository(pool).Get(ctx, event.ID, joiner)
		require.NoError(t, err)
		assert.Equal(t, model.PaymentRefunded, p.PaymentStatus)

		var count int
		require.NoError(t, pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM transactions WHERE user_id = $1 AND transaction_type = $2 AND status = $3`,
			joiner, model.TxTypeRefund, model.PaymentRefunded).Scan(&count))
		assert.Equal(t, 1, count, "expected one refund row for %s", joiner)
	}

	// Re-driving the cancellation must not credit anyone twice.
	again, err := svc.Cancel(ctx, event.ID, host)
	require.NoError(t, err)
	assert.Zero(t, again.RefundedCount)

	for _, joiner := range []uuid.UUID{alice, bob} {
		assert.True(t, walletBalance(t, pool, joiner).Equal(decimal.NewFromInt(50)))

		var count int
		require.NoError(t, pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM transactions WHERE user_id = $1 AND transaction_type = $2`,
			joiner, model.TxTypeRefund).Scan(&count))
		assert.Equal(t, 1, count)
	}
}
