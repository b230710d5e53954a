package service

import (
	"context"
	"fmt"
	"time"

	"caseflow-data/internal/config"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// WebhookNotifier posts lifecycle events to an external endpoint (e.g. a
// messaging bridge). All calls are best-effort; the save pipeline logs
// failures and moves on.
type WebhookNotifier struct {
	client *resty.Client
	url    string
	logger *zap.Logger
}

// NewWebhookNotifier returns nil when the webhook is disabled, which callers
// treat as "no notifier".
func NewWebhookNotifier(cfg *config.WebhookConfig, logger *zap.Logger) *WebhookNotifier {
	if cfg == nil || !cfg.Enabled || cfg.URL == "" {
		return nil
	}

	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(2 * time.Second).
		SetHeader("Content-Type", "application/json")
	if cfg.Token != "" {
		client.SetHeader("Authorization", "Bearer "+cfg.Token)
	}

	return &WebhookNotifier{
		client: client,
		url:    cfg.URL,
		logger: logger,
	}
}

// IntakeCompleted notifies that a client finished their intake form.
func (n *WebhookNotifier) IntakeCompleted(ctx context.Context, clientID string, at time.Time) error {
	resp, err := n.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"event":        "intake.completed",
			"client_id":    clientID,
			"completed_at": at.UTC().Format(time.RFC3339),
		}).
		Post(n.url)
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	if resp.StatusCode() >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode())
	}

	n.logger.Debug("webhook delivered",
		zap.String("event", "intake.completed"),
		zap.String("client_id", clientID),
	)
	return nil
}
