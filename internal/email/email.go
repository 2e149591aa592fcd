// Package email delivers transactional mail. Production uses Resend; local
// development logs the message body instead.
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const resendEndpoint = "https://api.resend.com/emails"

// Sender delivers one email.
type Sender interface {
	Send(ctx context.Context, to, subject, html string) error
}

// ResendSender sends through the Resend HTTP API.
type ResendSender struct {
	apiKey  string
	from    string
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

func NewResendSender(apiKey, from string, logger zerolog.Logger) *ResendSender {
	return &ResendSender{
		apiKey:  apiKey,
		from:    from,
		baseURL: resendEndpoint,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger.With().Str("service", "ResendSender").Logger(),
	}
}

func (s *ResendSender) Send(ctx context.Context, to, subject, html string) error {
	requestBody := map[string]any{
		"from":    s.from,
		"to":      []string{to},
		"subject": subject,
		"html":    html,
	}
	bodyJSON, err := json.Marshal(requestBody)
	if err != nil {
		return fmt.Errorf("failed to marshal email body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(bodyJSON))
	if err != nil {
		return fmt.Errorf("failed to create email request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		s.logger.Error().Int("status", resp.StatusCode).Str("to", to).Msg("Email delivery failed")
		return fmt.Errorf("email delivery failed: HTTP %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// ConsoleSender logs the email instead of delivering it. Used when no Resend
// key is configured.
type ConsoleSender struct {
	logger zerolog.Logger
}

func NewConsoleSender(logger zerolog.Logger) *ConsoleSender {
	return &ConsoleSender{logger: logger.With().Str("service", "ConsoleSender").Logger()}
}

func (s *ConsoleSender) Send(ctx context.Context, to, subject, html string) error {
	s.logger.Info().Str("to", to).Str("subject", subject).Str("html", html).Msg("Console email")
	return nil
}
