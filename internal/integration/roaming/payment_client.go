package roaming

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/voltbridge/voltbridge/internal/config"
	"github.com/voltbridge/voltbridge/internal/domain/payment"
	ierr "github.com/voltbridge/voltbridge/internal/errors"
	"github.com/voltbridge/voltbridge/internal/logger"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/shopspring/decimal"
)

const paymentRetryMax = 3

// PaymentClient implements payment.Gateway over the external gateway's HTTP
// API. Transient failures are retried by the underlying client; a final
// failure surfaces to the caller, which records it as session state.
type PaymentClient struct {
	baseURL string
	apiKey  string
	client  *retryablehttp.Client
	log     *logger.Logger
}

func NewPaymentClient(cfg *config.Configuration, log *logger.Logger) payment.Gateway {
	client := retryablehttp.NewClient()
	client.RetryMax = paymentRetryMax
	client.HTTPClient.Timeout = cfg.Payment.Timeout
	client.Logger = log.GetRetryableHTTPLogger()

	return &PaymentClient{
		baseURL: cfg.Payment.GatewayURL,
		apiKey:  cfg.Payment.APIKey,
		client:  client,
		log:     log,
	}
}

func (c *PaymentClient) CreateHold(ctx context.Context, endUserID string, amount decimal.Decimal, currency string) (*payment.HoldResult, error) {
	var resp createHoldResponse
	err := c.post(ctx, "/v1/holds", createHoldRequest{
		EndUserID:   endUserID,
		AmountCents: toCents(amount),
		Currency:    currency,
	}, &resp)
	if err != nil {
		return nil, err
	}

	return &payment.HoldResult{
		PaymentIntentID: resp.PaymentIntentID,
		Status:          resp.Status,
		AmountCents:     resp.AmountCents,
		Amount:          fromCents(resp.AmountCents),
		Currency:        resp.Currency,
	}, nil
}

func (c *PaymentClient) CapturePayment(ctx context.Context, sessionID string, amount decimal.Decimal) (*payment.CaptureResult, error) {
	var resp capturePaymentResponse
	err := c.post(ctx, "/v1/captures", capturePaymentRequest{
		SessionID:   sessionID,
		AmountCents: toCents(amount),
	}, &resp)
	if err != nil {
		return nil, err
	}

	return &payment.CaptureResult{
		AmountCents: resp.AmountCents,
		Amount:      fromCents(resp.AmountCents),
	}, nil
}

func (c *PaymentClient) post(ctx context.Context, path string, body any, out any) error {
	payloadBytes, err := json.Marshal(body)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to serialize gateway request").
			Mark(ierr.ErrInternal)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payloadBytes))
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to build gateway request").
			Mark(ierr.ErrInternal)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Payment gateway is unreachable").
			Mark(ierr.ErrHTTPClient)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to read gateway response").
			Mark(ierr.ErrHTTPClient)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return ierr.NewError(fmt.Sprintf("payment gateway returned status %d", resp.StatusCode)).
			WithHint("Payment gateway rejected the request").
			WithReportableDetails(map[string]interface{}{
				"status_code": resp.StatusCode,
				"path":        path,
			}).
			Mark(ierr.ErrHTTPClient)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return ierr.WithError(err).
			WithHint("Payment gateway returned an unparseable response").
			Mark(ierr.ErrHTTPClient)
	}
	return nil
}
