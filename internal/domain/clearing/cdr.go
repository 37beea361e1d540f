package clearing

import (
	"time"

	ierr "github.com/voltbridge/voltbridge/internal/errors"
	"github.com/shopspring/decimal"
)

// CDR is the Charge Detail Record: the authoritative settlement payload the
// roaming clearinghouse supplies for a completed session. Fetching it is an
// upstream concern; this core only consumes it.
type CDR struct {
	EnergyKwh         decimal.Decimal  `json:"energy_kwh"`
	DurationSeconds   int64            `json:"duration_seconds"`
	GrossAmount       decimal.Decimal  `json:"gross_amount"`
	NetAmount         *decimal.Decimal `json:"net_amount,omitempty"`
	Currency          string           `json:"currency"`
	StartTime         time.Time        `json:"start_time"`
	ClearingReference string           `json:"clearing_reference,omitempty"`
}

// SettlementEnvelope wraps a CDR with the identifiers needed to reconcile it
// against the locally recorded session.
type SettlementEnvelope struct {
	// CounterpartID must equal the session's stored hubject session id.
	CounterpartID     string    `json:"counterpart_id"`
	CdrData           CDR       `json:"cdr_data"`
	ClearingReference string    `json:"clearing_reference"`
	SettledAt         time.Time `json:"settled_at"`
}

func (e SettlementEnvelope) Validate() error {
	if e.CounterpartID == "" {
		return ierr.NewError("settlement counterpart id is required").
			WithHint("Settlement envelope must reference a roaming session id").
			Mark(ierr.ErrValidation)
	}
	return nil
}
