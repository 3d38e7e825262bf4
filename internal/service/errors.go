// Package service implements the business operations on top of the ledger
// and repositories. Every multi-step mutation runs inside a single database
// transaction.
package service

import (
	"errors"
	"fmt"
)

// Service-level errors.
var (
	ErrEventCancelled  = errors.New("event is cancelled")
	ErrEventFull       = errors.New("event is full")
	ErrEventStarted    = errors.New("event has already started")
	ErrOwnEvent        = errors.New("host cannot join their own event")
	ErrForbidden       = errors.New("not allowed to perform this action")
	ErrInvalidTicket   = errors.New("ticket is not valid for this event")
	ErrAlreadyUsed     = errors.New("ticket has already been used")
	ErrSelfReview      = errors.New("cannot review yourself")
	ErrSelfReport      = errors.New("cannot report yourself")
	ErrInvalidRating   = errors.New("rating must be between 1 and 5")
	ErrAlreadyVerified = errors.New("verification already completed")
	ErrNotEligible     = errors.New("identity and student verification required")
	ErrExternalService = errors.New("external service failed")
	ErrMissingPhone    = errors.New("no phone number on profile")
	ErrPaymentFailed   = errors.New("payment was not completed")
	ErrItemUnavailable = errors.New("item is not available for purchase")
	ErrOwnItem         = errors.New("cannot buy your own item")

	// ErrVerificationRejected means the upstream answered and said no, as
	// opposed to ErrExternalService, which means it did not answer at all.
	ErrVerificationRejected = errors.New("verification rejected by provider")
)

// ModerationError is returned when user-submitted text fails the moderation
// gate. The reason is safe to show to the caller.
type ModerationError struct {
	Reason string
}

func (e *ModerationError) Error() string {
	return fmt.Sprintf("content rejected: %s", e.Reason)
}
