package tariff

import (
	"encoding/json"

	ierr "github.com/voltbridge/voltbridge/internal/errors"
	"github.com/voltbridge/voltbridge/internal/types"
	"github.com/shopspring/decimal"
)

// SnapshotVersion is the current snapshot schema version. Bump on any shape
// change so historical blobs can be told apart on read.
const SnapshotVersion = 1

// Snapshot is the frozen copy of the pricing rules in effect when a session
// began. It is captured once at session creation and never re-read or mutated
// afterwards; all later billing of the session uses this copy regardless of
// live tariff changes.
type Snapshot struct {
	Version          int             `json:"version"`
	BasePricePerKwh  decimal.Decimal `json:"base_price_per_kwh"`
	PricePerMinute   decimal.Decimal `json:"price_per_minute"`
	SessionStartFee  decimal.Decimal `json:"session_start_fee"`
	IdleFeePerMinute decimal.Decimal `json:"idle_fee_per_minute"`
	MsFeePercent     decimal.Decimal `json:"ms_fee_percent"`
	Currency         string          `json:"currency"`
}

// WithDefaults returns a copy with every absent field replaced by its default.
// This is the single defaulting boundary: zero prices stay zero, an empty
// currency becomes EUR. Callers downstream never default again.
func (s Snapshot) WithDefaults() Snapshot {
	out := s
	if out.Version == 0 {
		out.Version = SnapshotVersion
	}
	if out.Currency == "" {
		out.Currency = types.DefaultCurrency
	}
	return out
}

// Validate rejects snapshots that could corrupt historical recomputation.
func (s Snapshot) Validate() error {
	if s.Version <= 0 || s.Version > SnapshotVersion {
		return ierr.NewError("unsupported tariff snapshot version").
			WithHint("Tariff snapshot version is not recognized").
			WithReportableDetails(map[string]interface{}{
				"version": s.Version,
			}).
			Mark(ierr.ErrValidation)
	}
	if s.Currency == "" {
		return ierr.NewError("tariff snapshot currency is empty").
			WithHint("Tariff snapshot must carry a currency").
			Mark(ierr.ErrValidation)
	}
	if s.MsFeePercent.IsNegative() || s.MsFeePercent.GreaterThan(decimal.NewFromInt(100)) {
		return ierr.NewError("platform fee percent out of range").
			WithHint("Platform fee percent must be between 0 and 100").
			WithReportableDetails(map[string]interface{}{
				"ms_fee_percent": s.MsFeePercent.String(),
			}).
			Mark(ierr.ErrValidation)
	}
	for _, p := range []decimal.Decimal{s.BasePricePerKwh, s.PricePerMinute, s.SessionStartFee, s.IdleFeePerMinute} {
		if p.IsNegative() {
			return ierr.NewError("tariff price component is negative").
				WithHint("Tariff prices must not be negative").
				Mark(ierr.ErrValidation)
		}
	}
	return nil
}

// Marshal serializes the snapshot to the opaque blob persisted on the session.
func (s Snapshot) Marshal() ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to serialize tariff snapshot").
			Mark(ierr.ErrInternal)
	}
	return data, nil
}

// UnmarshalSnapshot parses and schema-validates a persisted snapshot blob.
func UnmarshalSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, ierr.WithError(err).
			WithHint("Stored tariff snapshot is not valid JSON").
			Mark(ierr.ErrValidation)
	}
	if err := s.Validate(); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}
