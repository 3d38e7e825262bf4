// Package model defines the data models for the campus events platform.
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// User represents a platform account. TrustScore is clamped to [0,100]
// everywhere except the national-identity verification path, which sets it
// to 100 directly. WalletBalance never goes below zero.
type User struct {
	ID                     uuid.UUID       `db:"id" json:"id"`
	Email                  string          `db:"email" json:"email"`
	FullName               string          `db:"full_name" json:"full_name"`
	PhoneNumber            *string         `db:"phone_number" json:"phone_number"`
	City                   *string         `db:"city" json:"city"`
	Bio                    *string         `db:"bio" json:"bio"`
	TrustScore             int             `db:"trust_score" json:"trust_score"`
	WalletBalance          decimal.Decimal `db:"wallet_balance" json:"wallet_balance"`
	IsVerified             bool            `db:"is_verified" json:"is_verified"`
	IsStudentVerified      bool            `db:"is_student_verified" json:"is_student_verified"`
	IsEmailVerified        bool            `db:"is_email_verified" json:"is_email_verified"`
	IsPhoneVerified        bool            `db:"is_phone_verified" json:"is_phone_verified"`
	StudentDocumentBarcode *string         `db:"student_document_barcode" json:"-"`
	NationalID             *string         `db:"national_id" json:"-"`
	CreatedAt              time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time       `db:"updated_at" json:"updated_at"`
}

// Event represents a hosted event. SessionToken is the QR check-in secret,
// generated once at creation and never rotated.
type Event struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	HostID        uuid.UUID       `db:"host_id" json:"host_id"`
	Title         string          `db:"title" json:"title"`
	Description   string          `db:"description" json:"description"`
	Date          time.Time       `db:"date" json:"date"`
	City          *string         `db:"city" json:"city"`
	Category      *string         `db:"category" json:"category"`
	Capacity      int             `db:"capacity" json:"capacity"`
	DepositAmount decimal.Decimal `db:"deposit_amount" json:"deposit_amount"`
	Price         decimal.Decimal `db:"price" json:"price"`
	Status        string          `db:"status" json:"status"`
	SessionToken  string          `db:"session_token" json:"-"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// Participation is the unique (event, user) pairing. The row is deleted when
// the user leaves; check-in sets QRScanned exactly once.
type Participation struct {
	ID            int64      `db:"id" json:"id"`
	EventID       uuid.UUID  `db:"event_id" json:"event_id"`
	UserID        uuid.UUID  `db:"user_id" json:"user_id"`
	Status        string     `db:"status" json:"status"`
	PaymentStatus string     `db:"payment_status" json:"payment_status"`
	QRScanned     bool       `db:"qr_scanned" json:"qr_scanned"`
	CheckInTime   *time.Time `db:"check_in_time" json:"check_in_time"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// Transaction is an append-only ledger entry. Rows are never mutated after
// creation except for status transitions on the same row (pending -> paid).
type Transaction struct {
	ID             int64           `db:"id" json:"id"`
	UserID         uuid.UUID       `db:"user_id" json:"user_id"`
	Amount         decimal.Decimal `db:"amount" json:"amount"`
	Status         string          `db:"status" json:"status"`
	Type           string          `db:"transaction_type" json:"transaction_type"`
	Description    *string         `db:"description" json:"description"`
	ConversationID *string         `db:"conversation_id" json:"conversation_id"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

// UserReport records a complaint about another user. The trust-score
// deduction happens at creation time and is not reversed by moderation.
type UserReport struct {
	ID         int64      `db:"id" json:"id"`
	ReporterID uuid.UUID  `db:"reporter_id" json:"reporter_id"`
	ReportedID uuid.UUID  `db:"reported_id" json:"reported_id"`
	EventID    *uuid.UUID `db:"event_id" json:"event_id"`
	Reason     string     `db:"reason" json:"reason"`
	Details    *string    `db:"details" json:"details"`
	Status     string     `db:"status" json:"status"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

// UserReview is a 1-5 rating left for another user after an interaction.
type UserReview struct {
	ID         int64      `db:"id" json:"id"`
	ReviewerID uuid.UUID  `db:"reviewer_id" json:"reviewer_id"`
	ReviewedID uuid.UUID  `db:"reviewed_id" json:"reviewed_id"`
	EventID    *uuid.UUID `db:"event_id" json:"event_id"`
	Rating     int        `db:"rating" json:"rating"`
	Comment    *string    `db:"comment" json:"comment"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

// Notification is a fire-and-forget system message to a user.
type Notification struct {
	ID        int64     `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Title     string    `db:"title" json:"title"`
	Message   string    `db:"message" json:"message"`
	Type      string    `db:"type" json:"type"`
	IsRead    bool      `db:"is_read" json:"is_read"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// MarketplaceItem is a listing that can be bought with wallet balance.
type MarketplaceItem struct {
	ID          int64           `db:"id" json:"id"`
	OwnerID     uuid.UUID       `db:"owner_id" json:"owner_id"`
	Title       string          `db:"title" json:"title"`
	Description string          `db:"description" json:"description"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Category    *string         `db:"category" json:"category"`
	Status      string          `db:"status" json:"status"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// Event lifecycle states. ACTIVE <-> FULL flips with capacity changes;
// CANCELLED is terminal.
const (
	EventStatusActive    = "ACTIVE"
	EventStatusFull      = "FULL"
	EventStatusCancelled = "CANCELLED"
	EventStatusCompleted = "COMPLETED"
)

// Participation states.
const (
	ParticipantApproved = "approved"
	ParticipantBanned   = "banned"
	ParticipantWaitlist = "waitlist"
)

// Payment states shared by participations and transactions.
const (
	PaymentPending  = "pending"
	PaymentPaid     = "paid"
	PaymentRefunded = "refunded"
)

// Transaction types for categorizing money movements.
const (
	TxTypeDeposit = "deposit" // money entering the wallet (top-up, sale proceeds)
	TxTypePayment = "payment" // money leaving the wallet (purchase, withdraw)
	TxTypeRefund  = "refund"  // escrow deposit returned on event cancellation
)

// Report reason codes and moderation workflow states.
const (
	ReportReasonNoShow     = "noshow"
	ReportReasonHarassment = "harassment"

	ReportStatusPending   = "pending"
	ReportStatusResolved  = "resolved"
	ReportStatusDismissed = "dismissed"
)

// Marketplace listing states.
const (
	ItemStatusActive  = "active"
	ItemStatusSold    = "sold"
	ItemStatusDeleted = "deleted"
)
