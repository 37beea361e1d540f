package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

// HoldResult is the gateway's response to a hold (pre-authorization) request.
type HoldResult struct {
	PaymentIntentID string          `json:"payment_intent_id"`
	Status          string          `json:"status"`
	AmountCents     int64           `json:"amount_cents"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
}

// CaptureResult is the gateway's response to capturing a previously placed hold.
type CaptureResult struct {
	AmountCents int64           `json:"amount_cents"`
	Amount      decimal.Decimal `json:"amount"`
}

// Gateway is the external payment collaborator. Both operations are fallible
// and are not retried inline; callers record failures as session state instead
// of propagating them.
type Gateway interface {
	CreateHold(ctx context.Context, endUserID string, amount decimal.Decimal, currency string) (*HoldResult, error)
	CapturePayment(ctx context.Context, sessionID string, amount decimal.Decimal) (*CaptureResult, error)
}
