package feedback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kpauljoseph/ankix/pkg/logger"
)

const (
	DefaultEndpoint = "https://api.emailjs.com/api/v1.0/email/send"
	defaultTimeout  = 10 * time.Second
)

type Sender interface {
	Send(ctx context.Context, message string) error
}

type EmailJSConfig struct {
	Endpoint   string
	ServiceID  string
	TemplateID string
	PublicKey  string
	PrivateKey string
}

// EmailJS delivers feedback through the EmailJS REST API using a template
// with a single "message" parameter.
type EmailJS struct {
	cfg    EmailJSConfig
	client *http.Client
	logger *logger.Logger
}

type sendRequest struct {
	ServiceID      string            `json:"service_id"`
	TemplateID     string            `json:"template_id"`
	UserID         string            `json:"user_id"`
	AccessToken    string            `json:"accessToken,omitempty"`
	TemplateParams map[string]string `json:"template_params"`
}

func NewEmailJS(cfg EmailJSConfig, log *logger.Logger) *EmailJS {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	return &EmailJS{
		cfg: cfg,
		client: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: log,
	}
}

func (e *EmailJS) Send(ctx context.Context, message string) error {
	reqBody, err := json.Marshal(sendRequest{
		ServiceID:   e.cfg.ServiceID,
		TemplateID:  e.cfg.TemplateID,
		UserID:      e.cfg.PublicKey,
		AccessToken: e.cfg.PrivateKey,
		TemplateParams: map[string]string{
			"message": message,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.Endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach email service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("email service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	e.logger.Debug("Feedback email sent (%d chars)", len(message))
	return nil
}
