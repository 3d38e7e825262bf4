// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"campus-events/internal/model"
	"campus-events/internal/pkg/db"
)

// isUniqueViolation reports whether err is a unique-constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Common errors for repository operations.
var (
	ErrUserNotFound  = errors.New("user not found")
	ErrEmailTaken    = errors.New("email already registered")
	ErrEventNotFound = errors.New("event not found")
)

const userColumns = `
	id, email, full_name, phone_number, city, bio,
	trust_score, wallet_balance,
	is_verified, is_student_verified, is_email_verified, is_phone_verified,
	student_document_barcode, national_id, created_at, updated_at
`

// UserRepository handles user data persistence.
type UserRepository struct {
	db db.DBTX
}

// NewUserRepository creates a new UserRepository instance.
func NewUserRepository(dbtx db.DBTX) *UserRepository {
	return &UserRepository{db: dbtx}
}

// WithTx returns a repository bound to the given transaction.
func (r *UserRepository) WithTx(dbtx db.DBTX) *UserRepository {
	return &UserRepository{db: dbtx}
}

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.FullName,
		&u.PhoneNumber,
		&u.City,
		&u.Bio,
		&u.TrustScore,
		&u.WalletBalance,
		&u.IsVerified,
		&u.IsStudentVerified,
		&u.IsEmailVerified,
		&u.IsPhoneVerified,
		&u.StudentDocumentBarcode,
		&u.NationalID,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create registers a new account. New users start at trust score 50 with an
// empty wallet.
func (r *UserRepository) Create(ctx context.Context, email, fullName string, phoneNumber, city *string) (*model.User, error) {
	const query = `
		INSERT INTO users (id, email, full_name, phone_number, city, trust_score, wallet_balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 50, 0, NOW(), NOW())
		RETURNING ` + userColumns

	user, err := scanUser(r.db.QueryRow(ctx, query, uuid.New(), email, fullName, phoneNumber, city))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// GetByID retrieves a user by ID.
// Returns ErrUserNotFound if the user does not exist.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// GetByEmail retrieves a user by email address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	user, err := scanUser(r.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return user, nil
}

// Exists checks if a user with the given ID exists.
func (r *UserRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}

	return exists, nil
}

// ProfileUpdate is the explicit whitelist of caller-updatable profile
// fields. Anything not listed here cannot be mutated through the generic
// profile endpoint.
type ProfileUpdate struct {
	FullName    *string
	PhoneNumber *string
	City        *string
	Bio         *string
}

// UpdateProfile applies a partial profile update. Nil fields are left
// untouched.
func (r *UserRepository) UpdateProfile(ctx context.Context, id uuid.UUID, upd ProfileUpdate) (*model.User, error) {
	const query = `
		UPDATE users
		SET full_name    = COALESCE($2, full_name),
		    phone_number = COALESCE($3, phone_number),
		    city         = COALESCE($4, city),
		    bio          = COALESCE($5, bio),
		    updated_at   = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	user, err := scanUser(r.db.QueryRow(ctx, query, id, upd.FullName, upd.PhoneNumber, upd.City, upd.Bio))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return user, nil
}

// MarkEmailVerified sets the email verification flag. Returns whether the
// flag flipped (false means it was already set, so no bonus is due).
func (r *UserRepository) MarkEmailVerified(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.setFlag(ctx, id, "is_email_verified")
}

// MarkPhoneVerified sets the phone verification flag.
func (r *UserRepository) MarkPhoneVerified(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.setFlag(ctx, id, "is_phone_verified")
}

// MarkStudentVerified sets the student verification flag and stores the
// validated document barcode.
func (r *UserRepository) MarkStudentVerified(ctx context.Context, id uuid.UUID, barcode string) (bool, error) {
	return r.setFlagWith(ctx, id, "is_student_verified", "student_document_barcode", barcode)
}

// MarkIdentityVerified sets the national-identity verification flag and
// stores the national ID number.
func (r *UserRepository) MarkIdentityVerified(ctx context.Context, id uuid.UUID, nationalID string) (bool, error) {
	return r.setFlagWith(ctx, id, "is_verified", "national_id", nationalID)
}

// setFlag flips a boolean column from false to true. The WHERE clause makes
// the flip observable: zero rows updated means the flag was already set (or
// the user is missing, disambiguated below).
func (r *UserRepository) setFlag(ctx context.Context, id uuid.UUID, column string) (bool, error) {
	query := fmt.Sprintf(`
		UPDATE users
		SET %s = TRUE, updated_at = NOW()
		WHERE id = $1 AND %s = FALSE
	`, column, column)

	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to set %s: %w", column, err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	exists, err := r.Exists(ctx, id)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, ErrUserNotFound
	}
	return false, nil
}

func (r *UserRepository) setFlagWith(ctx context.Context, id uuid.UUID, column, extraColumn, extraValue string) (bool, error) {
	query := fmt.Sprintf(`
		UPDATE users
		SET %s = TRUE, %s = $2, updated_at = NOW()
		WHERE id = $1 AND %s = FALSE
	`, column, extraColumn, column)

	tag, err := r.db.Exec(ctx, query, id, extraValue)
	if err != nil {
		return false, fmt.Errorf("failed to set %s: %w", column, err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	exists, err := r.Exists(ctx, id)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, ErrUserNotFound
	}
	return false, nil
}
