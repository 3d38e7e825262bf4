// Package provider wraps outbound third-party services behind narrow
// interfaces. Every call carries the context and a client-level timeout so a
// hung upstream cannot stall a request or leave a ledger mutation ambiguous.
package provider

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// ErrProviderUnavailable is returned when an upstream cannot be reached or
// answers with a transport-level failure. Callers must fail closed: no score
// or balance mutation on this error.
var ErrProviderUnavailable = errors.New("provider unavailable")

// CardDetails carries the payment card fields for a 3DS initiation. The
// values are forwarded to the gateway and never persisted.
type CardDetails struct {
	HolderName  string
	Number      string
	ExpireMonth string
	ExpireYear  string
	CVC         string
}

// ThreeDSInit is the result of starting a 3DS payment: the HTML challenge
// page to hand to the client and the conversation ID that ties the eventual
// callback back to our pending transaction.
type ThreeDSInit struct {
	ConversationID string
	HTMLContent    string
}

// PaymentGateway initiates card payments with a 3DS challenge.
type PaymentGateway interface {
	Initiate3DS(ctx context.Context, conversationID string, amount decimal.Decimal, card CardDetails, callbackURL string) (*ThreeDSInit, error)
}

// SMSSender delivers a text message to a phone number.
type SMSSender interface {
	Send(ctx context.Context, phoneNumber, message string) error
}

// EmailSender delivers an email.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// IdentityVerifier checks a national identity number against the civil
// registry.
type IdentityVerifier interface {
	Verify(ctx context.Context, nationalID, firstName, lastName string, birthYear int) (bool, error)
}

// StudentVerifier checks a student document barcode against the issuing
// authority.
type StudentVerifier interface {
	Verify(ctx context.Context, barcode string) (bool, error)
}

// newHTTPClient builds the shared client used by the HTTP-backed providers.
func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
