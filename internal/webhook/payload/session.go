package payload

import (
	"time"

	"github.com/voltbridge/voltbridge/internal/domain/session"
	"github.com/voltbridge/voltbridge/internal/types"
	"github.com/shopspring/decimal"
)

// SessionEventPayload is the webhook body for session lifecycle events.
type SessionEventPayload struct {
	SessionID        string               `json:"session_id"`
	WorkspaceID      string               `json:"workspace_id"`
	HubjectSessionID *string              `json:"hubject_session_id,omitempty"`
	RoamingType      types.RoamingType    `json:"roaming_type"`
	SessionStatus    types.SessionStatus  `json:"session_status"`
	BillingStatus    types.BillingStatus  `json:"billing_status"`
	ClearingStatus   types.ClearingStatus `json:"clearing_status"`
	EnergyKwh        decimal.Decimal      `json:"energy_kwh"`
	GrossAmount      decimal.Decimal      `json:"gross_amount"`
	Currency         string               `json:"currency"`
	DisputeReason    *string              `json:"dispute_reason,omitempty"`
	OccurredAt       time.Time            `json:"occurred_at"`
}

// NewSessionEventPayload builds the webhook payload for a session event.
func NewSessionEventPayload(s *session.ChargingSession) SessionEventPayload {
	return SessionEventPayload{
		SessionID:        s.ID,
		WorkspaceID:      s.WorkspaceID,
		HubjectSessionID: s.HubjectSessionID,
		RoamingType:      s.RoamingType,
		SessionStatus:    s.SessionStatus,
		BillingStatus:    s.BillingStatus,
		ClearingStatus:   s.ClearingStatus,
		EnergyKwh:        s.EnergyKwh,
		GrossAmount:      s.GrossAmount,
		Currency:         s.Currency,
		DisputeReason:    s.DisputeReason,
		OccurredAt:       time.Now().UTC(),
	}
}
