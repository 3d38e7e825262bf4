// Package otp stores short-lived one-time verification codes in Redis.
// Codes are single-use: a successful verification consumes the key, so a
// replayed confirmation cannot grant a second bonus.
package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// OTP errors.
var (
	ErrCodeMismatch = errors.New("verification code does not match")
	ErrCodeExpired  = errors.New("verification code expired or never sent")
)

// Channel identifies which verification flow a code belongs to. Email and
// phone codes for the same user live under separate keys.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelPhone Channel = "phone"
)

// Store issues and verifies one-time codes backed by Redis with a TTL.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	digits int
}

// NewStore creates an OTP store. digits controls code length; ttl controls
// how long an issued code stays valid.
func NewStore(client *redis.Client, ttl time.Duration, digits int) *Store {
	return &Store{client: client, ttl: ttl, digits: digits}
}

func key(channel Channel, userID uuid.UUID) string {
	return fmt.Sprintf("otp:%s:%s", channel, userID)
}

// Issue generates a fresh numeric code for the user and channel, replacing
// any previous code, and stores it with the configured TTL.
func (s *Store) Issue(ctx context.Context, channel Channel, userID uuid.UUID) (string, error) {
	code, err := s.generate()
	if err != nil {
		return "", err
	}

	if err := s.client.Set(ctx, key(channel, userID), code, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store verification code: %w", err)
	}

	return code, nil
}

// Verify checks the submitted code and consumes it on success. A wrong code
// leaves the stored one in place so the user can retry until the TTL runs
// out.
func (s *Store) Verify(ctx context.Context, channel Channel, userID uuid.UUID, code string) error {
	k := key(channel, userID)

	stored, err := s.client.Get(ctx, k).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCodeExpired
		}
		return fmt.Errorf("failed to load verification code: %w", err)
	}

	if stored != code {
		return ErrCodeMismatch
	}

	if err := s.client.Del(ctx, k).Err(); err != nil {
		return fmt.Errorf("failed to consume verification code: %w", err)
	}

	return nil
}

// generate produces a zero-padded numeric code using crypto/rand.
func (s *Store) generate() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < s.digits; i++ {
		max.Mul(max, big.NewInt(10))
	}

	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("failed to generate verification code: %w", err)
	}

	return fmt.Sprintf("%0*d", s.digits, n), nil
}
