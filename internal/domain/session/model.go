package session

import (
	"time"

	"github.com/voltbridge/voltbridge/internal/domain/tariff"
	"github.com/voltbridge/voltbridge/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// ChargingSession is the central financial record of the platform. It is
// created at session start, mutated at close (billing), at clearing
// reconciliation (clearing fields) and at payout generation (claim linkage),
// and never deleted.
type ChargingSession struct {
	ID          string `json:"id"`
	WorkspaceID string `json:"workspace_id"`
	StationID   string `json:"station_id"`
	StationName string `json:"station_name,omitempty"`
	ConnectorID string `json:"connector_id,omitempty"`
	EndUserID   string `json:"end_user_id,omitempty"`

	SessionStatus types.SessionStatus `json:"session_status"`

	// HubjectSessionID is the roaming counterpart id and the idempotency key
	// for sessions that originate from or feed the clearinghouse. Unique when
	// present.
	HubjectSessionID *string `json:"hubject_session_id,omitempty"`

	// Telemetry
	StartTime       time.Time       `json:"start_time"`
	EndTime         *time.Time      `json:"end_time,omitempty"`
	MeterStart      *int64          `json:"meter_start,omitempty"`
	MeterStop       *int64          `json:"meter_stop,omitempty"`
	EnergyKwh       decimal.Decimal `json:"energy_kwh"`
	DurationSeconds int64           `json:"duration_seconds"`
	IdleSeconds     int64           `json:"idle_seconds"`

	// TariffSnapshot is frozen at creation. Never mutated, never re-resolved.
	TariffSnapshot *tariff.Snapshot `json:"tariff_snapshot,omitempty"`

	// Billing
	BillingStatus       types.BillingStatus `json:"billing_status"`
	GrossAmount         decimal.Decimal     `json:"gross_amount"`
	MsFeeAmount         decimal.Decimal     `json:"ms_fee_amount"`
	SubCpoEarningAmount decimal.Decimal     `json:"sub_cpo_earning_amount"`
	Currency            string              `json:"currency"`
	BilledAt            *time.Time          `json:"billed_at,omitempty"`
	BillingError        *string             `json:"billing_error,omitempty"`
	BillingRecord       []byte              `json:"billing_record,omitempty"`

	// Roaming / clearing
	RoamingType        types.RoamingType    `json:"roaming_type"`
	RoamingProvider    string               `json:"roaming_provider,omitempty"`
	ClearingStatus     types.ClearingStatus `json:"clearing_status"`
	ClearingReference  *string              `json:"clearing_reference,omitempty"`
	DisputeReason      *string              `json:"dispute_reason,omitempty"`
	RoamingGrossAmount *decimal.Decimal     `json:"roaming_gross_amount,omitempty"`
	RoamingNetAmount   *decimal.Decimal     `json:"roaming_net_amount,omitempty"`
	SettledAt          *time.Time           `json:"settled_at,omitempty"`

	// Payment (owned by the payment gateway, only recorded here)
	PaymentStatus   types.PaymentStatus `json:"payment_status"`
	PaymentIntentID *string             `json:"payment_intent_id,omitempty"`
	PaymentError    *string             `json:"payment_error,omitempty"`
	PaidAt          *time.Time          `json:"paid_at,omitempty"`

	// PayoutStatementID is nil until the session is claimed by exactly one
	// payout statement.
	PayoutStatementID *string `json:"payout_statement_id,omitempty"`

	types.BaseModel
}

// IsClaimedBy reports whether the session is linked to the given statement.
func (s *ChargingSession) IsClaimedBy(statementID string) bool {
	return s.PayoutStatementID != nil && *s.PayoutStatementID == statementID
}

// IsUnclaimed reports whether the session is free for payout claiming.
func (s *ChargingSession) IsUnclaimed() bool {
	return s.PayoutStatementID == nil
}

// Copy returns a deep copy, used by the in-memory stores so callers can never
// alias stored state.
func (s *ChargingSession) Copy() *ChargingSession {
	if s == nil {
		return nil
	}
	out := *s
	out.HubjectSessionID = copyPtr(s.HubjectSessionID)
	out.EndTime = copyPtr(s.EndTime)
	out.MeterStart = copyPtr(s.MeterStart)
	out.MeterStop = copyPtr(s.MeterStop)
	out.BilledAt = copyPtr(s.BilledAt)
	out.BillingError = copyPtr(s.BillingError)
	out.ClearingReference = copyPtr(s.ClearingReference)
	out.DisputeReason = copyPtr(s.DisputeReason)
	out.RoamingGrossAmount = copyPtr(s.RoamingGrossAmount)
	out.RoamingNetAmount = copyPtr(s.RoamingNetAmount)
	out.SettledAt = copyPtr(s.SettledAt)
	out.PaymentIntentID = copyPtr(s.PaymentIntentID)
	out.PaymentError = copyPtr(s.PaymentError)
	out.PaidAt = copyPtr(s.PaidAt)
	out.PayoutStatementID = copyPtr(s.PayoutStatementID)
	if s.TariffSnapshot != nil {
		snap := *s.TariffSnapshot
		out.TariffSnapshot = &snap
	}
	if s.BillingRecord != nil {
		out.BillingRecord = append([]byte(nil), s.BillingRecord...)
	}
	return &out
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	return lo.ToPtr(*p)
}
