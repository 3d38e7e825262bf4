package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/smtp"
	"time"
)

// HTTPSMSSender delivers texts through the SMS provider's REST API.
type HTTPSMSSender struct {
	client      *http.Client
	url         string
	apiKey      string
	senderTitle string
}

// NewHTTPSMSSender creates an SMS sender client.
func NewHTTPSMSSender(url, apiKey, senderTitle string, timeout time.Duration) *HTTPSMSSender {
	return &HTTPSMSSender{
		client:      newHTTPClient(timeout),
		url:         url,
		apiKey:      apiKey,
		senderTitle: senderTitle,
	}
}

type smsRequest struct {
	To      string `json:"to"`
	From    string `json:"from"`
	Message string `json:"message"`
}

// Send delivers a text message to the given phone number.
func (s *HTTPSMSSender) Send(ctx context.Context, phoneNumber, message string) error {
	body, err := json.Marshal(smsRequest{
		To:      phoneNumber,
		From:    s.senderTitle,
		Message: message,
	})
	if err != nil {
		return fmt.Errorf("failed to encode sms request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode)
	}

	return nil
}

// SMTPEmailSender delivers email over plain SMTP with auth.
type SMTPEmailSender struct {
	host     string
	port     int
	user     string
	password string
}

// NewSMTPEmailSender creates an email sender.
func NewSMTPEmailSender(host string, port int, user, password string) *SMTPEmailSender {
	return &SMTPEmailSender{host: host, port: port, user: user, password: password}
}

// Send delivers an email. The context is accepted for interface symmetry;
// net/smtp does not support cancellation mid-send.
func (s *SMTPEmailSender) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s",
		s.user, to, subject, body)

	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	auth := smtp.PlainAuth("", s.user, s.password, s.host)

	if err := smtp.SendMail(addr, auth, s.user, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	return nil
}
