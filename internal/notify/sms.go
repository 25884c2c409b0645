package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrSMSDisabled signals that SMS delivery is disabled via configuration.
var ErrSMSDisabled = errors.New("sms: delivery disabled")

// SMSSender defines behaviour for sending text messages.
type SMSSender interface {
	Send(ctx context.Context, to, message string) error
}

// GatewaySettings capture the runtime configuration for the HTTP SMS gateway.
type GatewaySettings struct {
	Enabled bool
	URL     string
	APIKey  string
	Sender  string
	Timeout time.Duration
}

type gatewaySender struct {
	cfg    GatewaySettings
	client *http.Client
}

// NewGatewaySender builds an SMSSender that posts messages to a provider
// webhook as JSON.
func NewGatewaySender(cfg GatewaySettings) (SMSSender, error) {
	if cfg.Enabled && strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("sms: gateway url is required when enabled")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &gatewaySender{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type gatewayPayload struct {
	To      string `json:"to"`
	From    string `json:"from,omitempty"`
	Message string `json:"message"`
}

func (s *gatewaySender) Send(ctx context.Context, to, message string) error {
	if !s.cfg.Enabled {
		return ErrSMSDisabled
	}

	to = strings.TrimSpace(to)
	if to == "" {
		return errors.New("sms: recipient is required")
	}

	body, err := json.Marshal(gatewayPayload{To: to, From: s.cfg.Sender, Message: message})
	if err != nil {
		return fmt.Errorf("sms: encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("sms: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sms: post message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("sms: gateway returned status %d", resp.StatusCode)
	}
	return nil
}
