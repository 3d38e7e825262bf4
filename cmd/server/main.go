// Package main is the entry point for the campus events API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"campus-events/internal/config"
	"campus-events/internal/handler"
	"campus-events/internal/metrics"
	"campus-events/internal/otp"
	"campus-events/internal/pkg/db"
	"campus-events/internal/pkg/lock"
	"campus-events/internal/provider"
	"campus-events/internal/service"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	// Run database migrations
	if err := runMigrations(ctx, dbPool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize Redis for the OTP store
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()

	otpStore := otp.NewStore(redisClient, cfg.OTP.TTL, cfg.OTP.Digits)

	// Initialize outbound providers
	p := &cfg.Providers
	gateway := provider.NewHTTPPaymentGateway(p.PaymentBaseURL, p.PaymentAPIKey, p.PaymentSecret, p.RequestTimeout)
	smsSender := provider.NewHTTPSMSSender(p.SMSAPIURL, p.SMSAPIKey, p.SMSSenderTitle, p.RequestTimeout)
	emailSender := provider.NewSMTPEmailSender(p.SMTPHost, p.SMTPPort, p.SMTPUser, p.SMTPPassword)
	identityVerifier := provider.NewNVIIdentityVerifier(p.IdentityURL, p.RequestTimeout)
	studentVerifier := provider.NewHTTPStudentVerifier(p.StudentDocURL, p.RequestTimeout)

	// Initialize shared infrastructure
	keyedLock := lock.New()
	m := metrics.New()

	// Initialize services
	accounts := service.NewAccountService(dbPool)
	events := service.NewEventService(dbPool)
	participation := service.NewParticipationService(dbPool, keyedLock, m)
	discipline := service.NewDisciplineService(dbPool, m)
	verification := service.NewVerificationService(dbPool, otpStore, emailSender, smsSender, identityVerifier, studentVerifier, m)
	callbackURL := "http://localhost" + cfg.Server.Addr + "/api/v1/wallet/topup/callback"
	wallet := service.NewWalletService(dbPool, gateway, callbackURL, keyedLock, m)
	marketplace := service.NewMarketplaceService(dbPool, keyedLock, m)

	// Assemble the router
	router := handler.NewRouter(handler.Handlers{
		Account:       handler.NewAccountHandler(accounts),
		Event:         handler.NewEventHandler(events),
		Participation: handler.NewParticipationHandler(participation),
		Wallet:        handler.NewWalletHandler(wallet),
		Marketplace:   handler.NewMarketplaceHandler(marketplace),
		Discipline:    handler.NewDisciplineHandler(discipline),
		Verification:  handler.NewVerificationHandler(verification),
	}, dbPool, cfg.Server.RequestTimeout)

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("Server is starting...")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
	log.Info().Msg("Server stopped gracefully")
}

// runMigrations executes database migrations.
func runMigrations(ctx context.Context, pool *db.Pool) error {
	log.Info().Msg("Running database migrations...")

	// Migration 1: Create users table
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
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT chk_users_trust_score CHECK (trust_score >= 0 AND trust_score <= 100),
			CONSTRAINT chk_users_wallet_balance CHECK (wallet_balance >= 0)
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 1: users table created")

	// Migration 2: Create events table
	_, err = pool.Exec(ctx, `
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
		CREATE INDEX IF NOT EXISTS idx_events_date ON events(date);
		CREATE INDEX IF NOT EXISTS idx_events_city_category ON events(city, category);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 2: events table created")

	// Migration 3: Create participations table
	_, err = pool.Exec(ctx, `
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
		CREATE INDEX IF NOT EXISTS idx_participations_user ON participations(user_id);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 3: participations table created")

	// Migration 4: Create transactions table
	_, err = pool.Exec(ctx, `
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
		CREATE INDEX IF NOT EXISTS idx_transactions_user_time ON transactions(user_id, created_at DESC);
		CREATE UNIQUE INDEX IF NOT EXISTS uq_transactions_conversation ON transactions(conversation_id) WHERE conversation_id IS NOT NULL;
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 4: transactions table created")

	// Migration 5: Create reports and reviews tables
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS user_reports (
			id BIGSERIAL PRIMARY KEY,
			reporter_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			reported_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			event_id UUID REFERENCES events(id) ON DELETE SET NULL,
			reason VARCHAR(50) NOT NULL,
			details TEXT,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_user_reports_status ON user_reports(status, created_at);

		CREATE TABLE IF NOT EXISTS user_reviews (
			id BIGSERIAL PRIMARY KEY,
			reviewer_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			reviewed_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			event_id UUID REFERENCES events(id) ON DELETE SET NULL,
			rating INT NOT NULL CHECK (rating >= 1 AND rating <= 5),
			comment TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_user_reviews_reviewed ON user_reviews(reviewed_id, created_at DESC);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 5: user_reports and user_reviews tables created")

	// Migration 6: Create notifications table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS notifications (
			id BIGSERIAL PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			title VARCHAR(200) NOT NULL,
			message TEXT NOT NULL,
			type VARCHAR(30) NOT NULL,
			is_read BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_notifications_user_time ON notifications(user_id, created_at DESC);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 6: notifications table created")

	// Migration 7: Create marketplace_items table
	_, err = pool.Exec(ctx, `
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
		CREATE INDEX IF NOT EXISTS idx_marketplace_items_status ON marketplace_items(status, created_at DESC);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 7: marketplace_items table created")

	log.Info().Msg("All migrations completed successfully")
	return nil
}
