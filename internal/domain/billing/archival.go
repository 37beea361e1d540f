package billing

import (
	"encoding/json"
	"time"

	ierr "github.com/voltbridge/voltbridge/internal/errors"
	"github.com/voltbridge/voltbridge/internal/types"
)

// ArchivalRecord is the audit snapshot of a billing computation: the full
// breakdown plus the owning session's id and status at computation time.
type ArchivalRecord struct {
	ID            string              `json:"id"`
	SessionID     string              `json:"session_id"`
	SessionStatus types.SessionStatus `json:"session_status"`
	Breakdown     Breakdown           `json:"breakdown"`
	ComputedAt    time.Time           `json:"computed_at"`
}

// NewArchivalRecord captures a breakdown into an archival record.
func NewArchivalRecord(sessionID string, sessionStatus types.SessionStatus, breakdown Breakdown) ArchivalRecord {
	return ArchivalRecord{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_BILLING_RECORD),
		SessionID:     sessionID,
		SessionStatus: sessionStatus,
		Breakdown:     breakdown,
		ComputedAt:    time.Now().UTC(),
	}
}

// Marshal serializes the record to the opaque blob stored on the session.
func (r ArchivalRecord) Marshal() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to serialize billing archival record").
			WithReportableDetails(map[string]interface{}{
				"session_id": r.SessionID,
			}).
			Mark(ierr.ErrInternal)
	}
	return data, nil
}
