package payout

import (
	"time"

	"github.com/voltbridge/voltbridge/internal/domain/session"
	"github.com/voltbridge/voltbridge/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Statement is a period-scoped aggregation of settled sessions payable to a
// Sub-CPO. Unique per (workspace, period_start, period_end).
type Statement struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspace_id"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`

	StatementStatus types.PayoutStatementStatus `json:"statement_status"`

	TotalSessions     int             `json:"total_sessions"`
	TotalEnergyKwh    decimal.Decimal `json:"total_energy_kwh"`
	TotalGrossAmount  decimal.Decimal `json:"total_gross_amount"`
	TotalMsFeeAmount  decimal.Decimal `json:"total_ms_fee_amount"`
	TotalEarning      decimal.Decimal `json:"total_earning"`
	Currency          string          `json:"currency"`

	IssuedAt         *time.Time       `json:"issued_at,omitempty"`
	PaidAt           *time.Time       `json:"paid_at,omitempty"`
	PaymentReference *string          `json:"payment_reference,omitempty"`
	PaidAmount       *decimal.Decimal `json:"paid_amount,omitempty"`

	LineItems []*LineItem `json:"line_items,omitempty"`

	types.BaseModel
}

// LineItem is the denormalized snapshot of one claimed session. Immutable
// once written except on full regeneration of a DRAFT statement.
type LineItem struct {
	ID          string `json:"id"`
	StatementID string `json:"statement_id"`
	SessionID   string `json:"session_id"`

	SessionStartTime    time.Time       `json:"session_start_time"`
	StationLabel        string          `json:"station_label"`
	EnergyKwh           decimal.Decimal `json:"energy_kwh"`
	GrossAmount         decimal.Decimal `json:"gross_amount"`
	MsFeeAmount         decimal.Decimal `json:"ms_fee_amount"`
	SubCpoEarningAmount decimal.Decimal `json:"sub_cpo_earning_amount"`
	Currency            string          `json:"currency"`

	types.BaseModel
}

// NewLineItemFromSession denormalizes a claimed session into a line item.
func NewLineItemFromSession(statementID string, s *session.ChargingSession, base types.BaseModel) *LineItem {
	label := s.StationName
	if label == "" {
		label = s.StationID
	}
	return &LineItem{
		ID:                  types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYOUT_LINE_ITEM),
		StatementID:         statementID,
		SessionID:           s.ID,
		SessionStartTime:    s.StartTime,
		StationLabel:        label,
		EnergyKwh:           s.EnergyKwh,
		GrossAmount:         s.GrossAmount,
		MsFeeAmount:         s.MsFeeAmount,
		SubCpoEarningAmount: s.SubCpoEarningAmount,
		Currency:            s.Currency,
		BaseModel:           base,
	}
}

// Copy returns a deep copy, used by the in-memory stores.
func (st *Statement) Copy() *Statement {
	if st == nil {
		return nil
	}
	out := *st
	out.IssuedAt = copyPtr(st.IssuedAt)
	out.PaidAt = copyPtr(st.PaidAt)
	out.PaymentReference = copyPtr(st.PaymentReference)
	out.PaidAmount = copyPtr(st.PaidAmount)
	out.LineItems = lo.Map(st.LineItems, func(li *LineItem, _ int) *LineItem {
		item := *li
		return &item
	})
	return &out
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	return lo.ToPtr(*p)
}
