package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/voltbridge/voltbridge/internal/config"
	ierr "github.com/voltbridge/voltbridge/internal/errors"
	"github.com/voltbridge/voltbridge/internal/logger"
	"github.com/voltbridge/voltbridge/internal/types"
	"github.com/hashicorp/go-retryablehttp"
)

// Event names published by the settlement core.
const (
	EventSessionClosed            = "session.closed"
	EventSessionSettled           = "session.settled"
	EventSessionDisputed          = "session.disputed"
	EventPayoutStatementIssued    = "payout_statement.issued"
	EventPayoutStatementPaid      = "payout_statement.paid"
	EventPayoutStatementCancelled = "payout_statement.cancelled"
)

// Envelope is the wire shape of an outbound webhook.
type Envelope struct {
	ID          string          `json:"id"`
	EventName   string          `json:"event_name"`
	TenantID    string          `json:"tenant_id"`
	WorkspaceID string          `json:"workspace_id"`
	Timestamp   time.Time       `json:"timestamp"`
	Payload     json.RawMessage `json:"payload"`
}

// Publisher delivers settlement events to the configured endpoint. Delivery
// is best effort; publish failures never abort the triggering operation.
type Publisher interface {
	Publish(ctx context.Context, eventName string, payload interface{}) error
}

type httpPublisher struct {
	cfg    config.WebhookConfig
	client *retryablehttp.Client
	log    *logger.Logger
}

// NewPublisher returns the HTTP publisher, or a no-op one when webhooks are
// disabled in config.
func NewPublisher(cfg *config.Configuration, log *logger.Logger) Publisher {
	if !cfg.Webhook.Enabled || cfg.Webhook.Endpoint == "" {
		return NewNoopPublisher()
	}

	client := retryablehttp.NewClient()
	client.RetryMax = cfg.Webhook.MaxRetry
	client.HTTPClient.Timeout = cfg.Webhook.Timeout
	client.Logger = log.GetRetryableHTTPLogger()

	return &httpPublisher{cfg: cfg.Webhook, client: client, log: log}
}

func (p *httpPublisher) Publish(ctx context.Context, eventName string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to serialize webhook payload").
			Mark(ierr.ErrInternal)
	}

	envelope := Envelope{
		ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_WEBHOOK_EVENT),
		EventName:   eventName,
		TenantID:    types.GetTenantID(ctx),
		WorkspaceID: types.GetWorkspaceID(ctx),
		Timestamp:   time.Now().UTC(),
		Payload:     data,
	}

	body, err := json.Marshal(envelope)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to serialize webhook envelope").
			Mark(ierr.ErrInternal)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, "POST", p.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to build webhook request").
			Mark(ierr.ErrHTTPClient)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.cfg.Secret != "" {
		req.Header.Set("X-Webhook-Secret", p.cfg.Secret)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Webhook delivery failed").
			WithReportableDetails(map[string]interface{}{
				"event_name": eventName,
			}).
			Mark(ierr.ErrHTTPClient)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return ierr.NewErrorf("webhook endpoint returned %d", resp.StatusCode).
			WithHint("Webhook endpoint rejected the event").
			WithReportableDetails(map[string]interface{}{
				"event_name":  eventName,
				"status_code": resp.StatusCode,
			}).
			Mark(ierr.ErrHTTPClient)
	}

	p.log.Debugw("published webhook event", "event_name", eventName, "id", envelope.ID)
	return nil
}

type noopPublisher struct{}

// NewNoopPublisher returns a publisher that drops every event.
func NewNoopPublisher() Publisher {
	return &noopPublisher{}
}

func (n *noopPublisher) Publish(ctx context.Context, eventName string, payload interface{}) error {
	return nil
}
