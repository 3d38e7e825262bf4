package provider

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// HTTPPaymentGateway talks to the card payment provider's REST API.
type HTTPPaymentGateway struct {
	client  *http.Client
	baseURL string
	apiKey  string
	secret  string
}

// NewHTTPPaymentGateway creates a payment gateway client.
func NewHTTPPaymentGateway(baseURL, apiKey, secret string, timeout time.Duration) *HTTPPaymentGateway {
	return &HTTPPaymentGateway{
		client:  newHTTPClient(timeout),
		baseURL: baseURL,
		apiKey:  apiKey,
		secret:  secret,
	}
}

type threeDSRequest struct {
	ConversationID string      `json:"conversationId"`
	Price          string      `json:"price"`
	Currency       string      `json:"currency"`
	CallbackURL    string      `json:"callbackUrl"`
	Card           cardPayload `json:"paymentCard"`
}

type cardPayload struct {
	HolderName  string `json:"cardHolderName"`
	Number      string `json:"cardNumber"`
	ExpireMonth string `json:"expireMonth"`
	ExpireYear  string `json:"expireYear"`
	CVC         string `json:"cvc"`
}

type threeDSResponse struct {
	Status         string `json:"status"`
	ConversationID string `json:"conversationId"`
	HTMLContent    string `json:"threeDSHtmlContent"`
	ErrorMessage   string `json:"errorMessage"`
}

// Initiate3DS starts a 3DS payment. The returned HTML content is the base64
// challenge page the gateway expects the client to render.
func (g *HTTPPaymentGateway) Initiate3DS(ctx context.Context, conversationID string, amount decimal.Decimal, card CardDetails, callbackURL string) (*ThreeDSInit, error) {
	body, err := json.Marshal(threeDSRequest{
		ConversationID: conversationID,
		Price:          amount.StringFixed(2),
		Currency:       "TRY",
		CallbackURL:    callbackURL,
		Card: cardPayload{
			HolderName:  card.HolderName,
			Number:      card.Number,
			ExpireMonth: card.ExpireMonth,
			ExpireYear:  card.ExpireYear,
			CVC:         card.CVC,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode payment request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/payment/3dsecure/initialize", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build payment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", g.authHeader(body))

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrProviderUnavailable, err)
	}

	var out threeDSResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrProviderUnavailable, err)
	}

	if out.Status != "success" {
		return nil, fmt.Errorf("payment initiation rejected: %s", out.ErrorMessage)
	}

	return &ThreeDSInit{
		ConversationID: out.ConversationID,
		HTMLContent:    out.HTMLContent,
	}, nil
}

// authHeader signs the request body with the API secret.
func (g *HTTPPaymentGateway) authHeader(body []byte) string {
	mac := hmac.New(sha256.New, []byte(g.secret))
	mac.Write(body)
	sig := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return fmt.Sprintf("APIKEY %s:%s", g.apiKey, sig)
}
