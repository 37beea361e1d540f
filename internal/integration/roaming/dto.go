package roaming

import (
	"github.com/shopspring/decimal"
)

// createHoldRequest is the gateway's pre-authorization payload. Amounts travel
// as minor units (cents) on the wire.
type createHoldRequest struct {
	EndUserID   string `json:"end_user_id"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
}

type createHoldResponse struct {
	PaymentIntentID string `json:"payment_intent_id"`
	Status          string `json:"status"`
	AmountCents     int64  `json:"amount_cents"`
	Currency        string `json:"currency"`
}

type capturePaymentRequest struct {
	SessionID   string `json:"session_id"`
	AmountCents int64  `json:"amount_cents"`
}

type capturePaymentResponse struct {
	Status      string `json:"status"`
	AmountCents int64  `json:"amount_cents"`
}

// tariffResponse is the clearinghouse's active-tariff record for a station.
type tariffResponse struct {
	BasePricePerKwh  decimal.Decimal `json:"base_price_per_kwh"`
	PricePerMinute   decimal.Decimal `json:"price_per_minute"`
	SessionStartFee  decimal.Decimal `json:"session_start_fee"`
	IdleFeePerMinute decimal.Decimal `json:"idle_fee_per_minute"`
	MsFeePercent     decimal.Decimal `json:"ms_fee_percent"`
	Currency         string          `json:"currency"`
}

var centsFactor = decimal.NewFromInt(100)

func toCents(amount decimal.Decimal) int64 {
	return amount.Mul(centsFactor).Round(0).IntPart()
}

func fromCents(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Div(centsFactor)
}
