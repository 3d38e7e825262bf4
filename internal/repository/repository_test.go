// Tests use testcontainers-go to spin up a PostgreSQL container and are
// skipped when Docker is not available.
package repository

import (
	"context"
	"os/exec"
	"testing"
	"time"

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

// checkDockerAvailable checks if Docker is available and running.
func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	return cmd.Run() == nil
}

// setupTestDB creates a PostgreSQL container and returns a connection pool.
// Skips the test if Docker is not available.
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

	require.NoError(t, applySchema(ctx, pool))

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return pool, cleanup
}

// applySchema creates the tables the repository tests need.
func applySchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			email VARCHAR(255) NOT NULL UNIQUE,
			full_name VARCHAR(100) NOT NULL,
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
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
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

		CREATE TABLE IF NOT EXISTS marketplace_items (
			id BIGSERIAL PRIMARY KEY,
			owner_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			title VARCHAR(200) NOT NULL,
			description TEXT NOT NULL,
			price NUMERIC(10,2) NOT NULL,
			category VARCHAR(50),
			status VARCHAR(20) NOT NULL DEFAULT 'active',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	return err
}

func createTestUser(t *testing.T, repo *UserRepository, email string) *model.User {
	t.Helper()
	user, err := repo.Create(context.Background(), email, "Test User", nil, nil)
	require.NoError(t, err)
	return user
}

func createTestEvent(t *testing.T, repo *EventRepository, host *model.User, deposit int64) *model.Event {
	t.Helper()
	event, err := repo.Create(context.Background(), NewEvent{
		HostID:        host.ID,
		Title:         "Test Event",
		Description:   "An event for testing",
		Date:          time.Now().Add(48 * time.Hour),
		Capacity:      10,
		DepositAmount: decimal.NewFromInt(deposit),
		Price:         decimal.Zero,
		SessionToken:  "token-1234",
	})
	require.NoError(t, err)
	return event
}

// ============================================================================
// UserRepository Tests
// ============================================================================

func TestUserRepository_Create(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewUserRepository(pool)
	ctx := context.Background()

	user, err := repo.Create(ctx, "alice@uni.edu", "Alice", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "alice@uni.edu", user.Email)
	assert.Equal(t, 50, user.TrustScore) // Initial trust score
	assert.True(t, user.WalletBalance.IsZero())
	assert.False(t, user.IsVerified)
	assert.False(t, user.CreatedAt.IsZero())
}

func TestUserRepository_Create_DuplicateEmail(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewUserRepository(pool)
	ctx := context.Background()

	_, err := repo.Create(ctx, "bob@uni.edu", "Bob", nil, nil)
	require.NoError(t, err)

	_, err = repo.Create(ctx, "bob@uni.edu", "Bob Again", nil, nil)
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestUserRepository_VerificationFlagFlipsOnce(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewUserRepository(pool)
	ctx := context.Background()
	user := createTestUser(t, repo, "carol@uni.edu")

	flipped, err := repo.MarkEmailVerified(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, flipped)

	// Second attempt: flag already set, no flip, no error.
	flipped, err = repo.MarkEmailVerified(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, flipped)

	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, got.IsEmailVerified)
}

func TestUserRepository_MarkStudentVerifiedStoresBarcode(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewUserRepository(pool)
	ctx := context.Background()
	user := createTestUser(t, repo, "dave@uni.edu")

	flipped, err := repo.MarkStudentVerified(ctx, user.ID, "BARCODE-42")
	require.NoError(t, err)
	assert.True(t, flipped)

	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, got.IsStudentVerified)
	require.NotNil(t, got.StudentDocumentBarcode)
	assert.Equal(t, "BARCODE-42", *got.StudentDocumentBarcode)
}

func TestUserRepository_UpdateProfilePartial(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewUserRepository(pool)
	ctx := context.Background()
	user := createTestUser(t, repo, "erin@uni.edu")

	city := "Ankara"
	got, err := repo.UpdateProfile(ctx, user.ID, ProfileUpdate{City: &city})
	require.NoError(t, err)
	require.NotNil(t, got.City)
	assert.Equal(t, "Ankara", *got.City)
	assert.Equal(t, user.FullName, got.FullName) // untouched
}

// ============================================================================
// EventRepository Tests
// ============================================================================

func TestEventRepository_CreateAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	users := NewUserRepository(pool)
	events := NewEventRepository(pool)
	ctx := context.Background()

	host := createTestUser(t, users, "host@uni.edu")
	event := createTestEvent(t, events, host, 50)

	got, err := events.GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EventStatusActive, got.Status)
	assert.Equal(t, "token-1234", got.SessionToken)
	assert.True(t, got.DepositAmount.Equal(decimal.NewFromInt(50)))
}

func TestEventRepository_ListHidesCancelled(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	users := NewUserRepository(pool)
	events := NewEventRepository(pool)
	ctx := context.Background()

	host := createTestUser(t, users, "host2@uni.edu")
	e1 := createTestEvent(t, events, host, 0)
	e2 := createTestEvent(t, events, host, 0)

	require.NoError(t, events.SetStatus(ctx, e2.ID, model.EventStatusCancelled))

	list, err := events.List(ctx, nil, nil, false, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, e1.ID, list[0].ID)
}

// ============================================================================
// ParticipationRepository Tests
// ============================================================================

func TestParticipationRepository_UniquePerEventUser(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	users := NewUserRepository(pool)
	events := NewEventRepository(pool)
	parts := NewParticipationRepository(pool)
	ctx := context.Background()

	host := createTestUser(t, users, "host3@uni.edu")
	joiner := createTestUser(t, users, "joiner@uni.edu")
	event := createTestEvent(t, events, host, 0)

	_, err := parts.Create(ctx, event.ID, joiner.ID, model.PaymentPending)
	require.NoError(t, err)

	_, err = parts.Create(ctx, event.ID, joiner.ID, model.PaymentPending)
	assert.ErrorIs(t, err, ErrAlreadyJoined)

	count, err := parts.CountApproved(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestParticipationRepository_MarkCheckedInIdempotent(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	users := NewUserRepository(pool)
	events := NewEventRepository(pool)
	parts := NewParticipationRepository(pool)
	ctx := context.Background()

	host := createTestUser(t, users, "host4@uni.edu")
	joiner := createTestUser(t, users, "joiner2@uni.edu")
	event := createTestEvent(t, events, host, 0)

	p, err := parts.Create(ctx, event.ID, joiner.ID, model.PaymentPending)
	require.NoError(t, err)

	flipped, err := parts.MarkCheckedIn(ctx, p.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, flipped)

	flipped, err = parts.MarkCheckedIn(ctx, p.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, flipped)

	got, err := parts.Get(ctx, event.ID, joiner.ID)
	require.NoError(t, err)
	assert.True(t, got.QRScanned)
	assert.NotNil(t, got.CheckInTime)
}

func TestParticipationRepository_DeleteRemovesRow(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	users := NewUserRepository(pool)
	events := NewEventRepository(pool)
	parts := NewParticipationRepository(pool)
	ctx := context.Background()

	host := createTestUser(t, users, "host5@uni.edu")
	joiner := createTestUser(t, users, "joiner3@uni.edu")
	event := createTestEvent(t, events, host, 0)

	p, err := parts.Create(ctx, event.ID, joiner.ID, model.PaymentPaid)
	require.NoError(t, err)

	require.NoError(t, parts.Delete(ctx, p.ID))

	_, err = parts.Get(ctx, event.ID, joiner.ID)
	assert.ErrorIs(t, err, ErrNotRegistered)
}

// ============================================================================
// TransactionRepository Tests
// ============================================================================

func TestTransactionRepository_PendingTopUpFlipsOnce(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	users := NewUserRepository(pool)
	txs := NewTransactionRepository(pool)
	ctx := context.Background()

	user := createTestUser(t, users, "frank@uni.edu")

	pending, err := txs.CreatePendingTopUp(ctx, user.ID, decimal.NewFromInt(100), "conv-1", "top-up")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPending, pending.Status)

	got, err := txs.GetByConversationID(ctx, "conv-1")
	require.NoError(t, err)
	assert.Equal(t, pending.ID, got.ID)

	flipped, err := txs.MarkPaid(ctx, pending.ID, "done")
	require.NoError(t, err)
	assert.True(t, flipped)

	// Replayed callback: the row is no longer pending.
	flipped, err = txs.MarkPaid(ctx, pending.ID, "done again")
	require.NoError(t, err)
	assert.False(t, flipped)
}

// ============================================================================
// MarketplaceRepository Tests
// ============================================================================

func TestMarketplaceRepository_StatusTransitions(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	users := NewUserRepository(pool)
	items := NewMarketplaceRepository(pool)
	ctx := context.Background()

	owner := createTestUser(t, users, "grace@uni.edu")

	item, err := items.Create(ctx, owner.ID, "Ders kitabı", "Az kullanılmış", decimal.NewFromInt(75), nil)
	require.NoError(t, err)
	assert.Equal(t, model.ItemStatusActive, item.Status)

	require.NoError(t, items.SetStatus(ctx, item.ID, model.ItemStatusSold))

	got, err := items.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ItemStatusSold, got.Status)

	list, err := items.ListActive(ctx, nil, 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}
