package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"taskboard-backend/pkg/config"
)

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// ResendSender delivers mail through the Resend HTTP API.
type ResendSender struct {
	apiKey string
	from   string
	url    string
	client *http.Client
}

func NewResendSender(cfg config.EmailConfig) *ResendSender {
	url := cfg.ResendURL
	if url == "" {
		url = "https://api.resend.com/emails"
	}
	return &ResendSender{
		apiKey: cfg.ResendAPIKey,
		from:   cfg.FromEmail,
		url:    url,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *ResendSender) Send(ctx context.Context, msg Message) error {
	body := resendRequest{
		From:    s.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTML,
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("resend API error: status %d", resp.StatusCode)
	}
	return nil
}
