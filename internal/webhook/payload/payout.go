package payload

import (
	"time"

	"github.com/voltbridge/voltbridge/internal/domain/payout"
	"github.com/voltbridge/voltbridge/internal/types"
	"github.com/shopspring/decimal"
)

// PayoutStatementEventPayload is the webhook body for statement lifecycle events.
type PayoutStatementEventPayload struct {
	StatementID     string                      `json:"statement_id"`
	WorkspaceID     string                      `json:"workspace_id"`
	StatementStatus types.PayoutStatementStatus `json:"statement_status"`
	PeriodStart     time.Time                   `json:"period_start"`
	PeriodEnd       time.Time                   `json:"period_end"`
	TotalSessions   int                         `json:"total_sessions"`
	TotalEarning    decimal.Decimal             `json:"total_earning"`
	Currency        string                      `json:"currency"`
	OccurredAt      time.Time                   `json:"occurred_at"`
}

// NewPayoutStatementEventPayload builds the webhook payload for a statement event.
func NewPayoutStatementEventPayload(st *payout.Statement) PayoutStatementEventPayload {
	return PayoutStatementEventPayload{
		StatementID:     st.ID,
		WorkspaceID:     st.WorkspaceID,
		StatementStatus: st.StatementStatus,
		PeriodStart:     st.PeriodStart,
		PeriodEnd:       st.PeriodEnd,
		TotalSessions:   st.TotalSessions,
		TotalEarning:    st.TotalEarning,
		Currency:        st.Currency,
		OccurredAt:      time.Now().UTC(),
	}
}
