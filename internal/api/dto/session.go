package dto

import (
	"context"
	"time"

	"github.com/voltbridge/voltbridge/internal/domain/clearing"
	"github.com/voltbridge/voltbridge/internal/domain/session"
	"github.com/voltbridge/voltbridge/internal/domain/tariff"
	ierr "github.com/voltbridge/voltbridge/internal/errors"
	"github.com/voltbridge/voltbridge/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// CreateInboundSessionRequest starts a session for an external driver charging
// at a local station. Idempotent on HubjectSessionID.
type CreateInboundSessionRequest struct {
	HubjectSessionID string    `json:"hubject_session_id" validate:"required"`
	StationID        string    `json:"station_id" validate:"required"`
	StationName      string    `json:"station_name,omitempty"`
	ConnectorID      string    `json:"connector_id,omitempty"`
	EndUserID        string    `json:"end_user_id,omitempty"`
	StartTime        time.Time `json:"start_time"`
	MeterStart       *int64    `json:"meter_start,omitempty"`

	// Tariff is an optional pre-resolved tariff. When absent the active
	// tariff is resolved through the tariff collaborator.
	Tariff *tariff.Snapshot `json:"tariff,omitempty"`
}

func (r *CreateInboundSessionRequest) Validate() error {
	if r.HubjectSessionID == "" {
		return ierr.NewError("hubject_session_id is required").
			WithHint("Roaming session id is required").
			Mark(ierr.ErrValidation)
	}
	if r.StationID == "" {
		return ierr.NewError("station_id is required").
			WithHint("Station ID is required").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ToSession converts the request into a new ACTIVE inbound session with the
// resolved tariff frozen in. Inbound roaming sessions clear financially
// through the roaming partner, so payment starts at NONE.
func (r *CreateInboundSessionRequest) ToSession(ctx context.Context, provider string, snapshot tariff.Snapshot) *session.ChargingSession {
	startTime := r.StartTime
	if startTime.IsZero() {
		startTime = time.Now().UTC()
	}
	return &session.ChargingSession{
		ID:               types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SESSION),
		WorkspaceID:      types.GetWorkspaceID(ctx),
		StationID:        r.StationID,
		StationName:      r.StationName,
		ConnectorID:      r.ConnectorID,
		EndUserID:        r.EndUserID,
		SessionStatus:    types.SessionStatusActive,
		HubjectSessionID: lo.ToPtr(r.HubjectSessionID),
		StartTime:        startTime,
		MeterStart:       r.MeterStart,
		TariffSnapshot:   lo.ToPtr(snapshot),
		BillingStatus:    types.BillingStatusNotBilled,
		Currency:         snapshot.Currency,
		RoamingType:      types.RoamingTypeInbound,
		RoamingProvider:  provider,
		ClearingStatus:   types.ClearingStatusPending,
		PaymentStatus:    types.PaymentStatusNone,
		BaseModel:        types.GetDefaultBaseModel(ctx),
	}
}

// CloseInboundSessionRequest closes an inbound session from local telemetry.
type CloseInboundSessionRequest struct {
	SessionID   string     `json:"session_id" validate:"required"`
	MeterStop   int64      `json:"meter_stop"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	IdleSeconds int64      `json:"idle_seconds,omitempty"`
}

func (r *CloseInboundSessionRequest) Validate() error {
	if r.SessionID == "" {
		return ierr.NewError("session_id is required").
			WithHint("Session ID is required").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// CreateOutboundSessionRequest starts a session for a local driver charging at
// an external station. Idempotent on HubjectSessionID.
type CreateOutboundSessionRequest struct {
	HubjectSessionID string    `json:"hubject_session_id" validate:"required"`
	ExternalStation  string    `json:"external_station,omitempty"`
	EndUserID        string    `json:"end_user_id" validate:"required"`
	StartTime        time.Time `json:"start_time"`

	// EstimatedAmount is the payment hold placed at creation.
	EstimatedAmount decimal.Decimal `json:"estimated_amount"`
	Currency        string          `json:"currency,omitempty"`

	// Tariff is optional for outbound sessions; the CDR is authoritative at
	// close time.
	Tariff *tariff.Snapshot `json:"tariff,omitempty"`
}

func (r *CreateOutboundSessionRequest) Validate() error {
	if r.HubjectSessionID == "" {
		return ierr.NewError("hubject_session_id is required").
			WithHint("Roaming session id is required").
			Mark(ierr.ErrValidation)
	}
	if r.EndUserID == "" {
		return ierr.NewError("end_user_id is required").
			WithHint("End user ID is required").
			Mark(ierr.ErrValidation)
	}
	if r.EstimatedAmount.IsNegative() {
		return ierr.NewError("estimated_amount must not be negative").
			WithHint("Estimated amount must be zero or positive").
			Mark(ierr.ErrValidation)
	}
	return nil
}

func (r *CreateOutboundSessionRequest) ToSession(ctx context.Context, provider string) *session.ChargingSession {
	startTime := r.StartTime
	if startTime.IsZero() {
		startTime = time.Now().UTC()
	}
	currency := r.Currency
	if currency == "" {
		currency = types.DefaultCurrency
	}
	s := &session.ChargingSession{
		ID:               types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SESSION),
		WorkspaceID:      types.GetWorkspaceID(ctx),
		StationID:        r.ExternalStation,
		EndUserID:        r.EndUserID,
		SessionStatus:    types.SessionStatusActive,
		HubjectSessionID: lo.ToPtr(r.HubjectSessionID),
		StartTime:        startTime,
		BillingStatus:    types.BillingStatusNotBilled,
		Currency:         currency,
		RoamingType:      types.RoamingTypeOutbound,
		RoamingProvider:  provider,
		ClearingStatus:   types.ClearingStatusPending,
		PaymentStatus:    types.PaymentStatusNone,
		BaseModel:        types.GetDefaultBaseModel(ctx),
	}
	if r.Tariff != nil {
		s.TariffSnapshot = lo.ToPtr(r.Tariff.WithDefaults())
	}
	return s
}

// CloseOutboundSessionRequest closes an outbound session. The CDR, not local
// telemetry, is authoritative for energy and duration: the charging happened
// on a station outside the platform's observation.
type CloseOutboundSessionRequest struct {
	SessionID string       `json:"session_id" validate:"required"`
	Cdr       clearing.CDR `json:"cdr"`
	EndTime   *time.Time   `json:"end_time,omitempty"`
}

func (r *CloseOutboundSessionRequest) Validate() error {
	if r.SessionID == "" {
		return ierr.NewError("session_id is required").
			WithHint("Session ID is required").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// SessionResponse wraps a session for API responses.
type SessionResponse struct {
	*session.ChargingSession
}

// ListSessionsResponse is the paginated session list.
type ListSessionsResponse struct {
	Items      []*SessionResponse       `json:"items"`
	Pagination types.PaginationResponse `json:"pagination"`
}
