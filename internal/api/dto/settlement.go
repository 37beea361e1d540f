package dto

import (
	"time"

	"github.com/voltbridge/voltbridge/internal/domain/clearing"
	"github.com/voltbridge/voltbridge/internal/domain/session"
	ierr "github.com/voltbridge/voltbridge/internal/errors"
)

// ReconcileSettlementRequest submits a settlement envelope for a known session.
type ReconcileSettlementRequest struct {
	SessionID         string       `json:"session_id" validate:"required"`
	CounterpartID     string       `json:"counterpart_id" validate:"required"`
	CdrData           clearing.CDR `json:"cdr_data"`
	ClearingReference string       `json:"clearing_reference,omitempty"`
	SettledAt         time.Time    `json:"settled_at"`
}

func (r *ReconcileSettlementRequest) Validate() error {
	if r.SessionID == "" {
		return ierr.NewError("session_id is required").
			WithHint("Session ID is required").
			Mark(ierr.ErrValidation)
	}
	if r.CounterpartID == "" {
		return ierr.NewError("counterpart_id is required").
			WithHint("Settlement counterpart id is required").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ToEnvelope converts the request into the domain settlement envelope.
func (r *ReconcileSettlementRequest) ToEnvelope() clearing.SettlementEnvelope {
	settledAt := r.SettledAt
	if settledAt.IsZero() {
		settledAt = time.Now().UTC()
	}
	return clearing.SettlementEnvelope{
		CounterpartID:     r.CounterpartID,
		CdrData:           r.CdrData,
		ClearingReference: r.ClearingReference,
		SettledAt:         settledAt,
	}
}

// MatchCdrRequest submits a CDR keyed only by its roaming counterpart id; the
// owning session is located by that id.
type MatchCdrRequest struct {
	HubjectSessionID  string       `json:"hubject_session_id" validate:"required"`
	CdrData           clearing.CDR `json:"cdr_data"`
	ClearingReference string       `json:"clearing_reference,omitempty"`
	SettledAt         time.Time    `json:"settled_at"`
}

func (r *MatchCdrRequest) Validate() error {
	if r.HubjectSessionID == "" {
		return ierr.NewError("hubject_session_id is required").
			WithHint("Roaming session id is required").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// SettlementResponse reports the reconciliation outcome.
type SettlementResponse struct {
	Session *session.ChargingSession `json:"session"`
	Report  clearing.MatchReport     `json:"report"`
}
