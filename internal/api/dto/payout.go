package dto

import (
	"time"

	"github.com/voltbridge/voltbridge/internal/domain/payout"
	ierr "github.com/voltbridge/voltbridge/internal/errors"
	"github.com/voltbridge/voltbridge/internal/types"
	"github.com/shopspring/decimal"
)

// GeneratePayoutStatementRequest aggregates eligible sessions of the period
// into a statement, either as a pure preview (dry_run) or committed.
type GeneratePayoutStatementRequest struct {
	PeriodStart time.Time                  `json:"period_start" validate:"required"`
	PeriodEnd   time.Time                  `json:"period_end" validate:"required"`
	Mode        types.PayoutGenerationMode `json:"mode" validate:"required"`
}

func (r *GeneratePayoutStatementRequest) Validate() error {
	if r.PeriodStart.IsZero() || r.PeriodEnd.IsZero() {
		return ierr.NewError("period bounds are required").
			WithHint("Both period_start and period_end are required").
			Mark(ierr.ErrValidation)
	}
	if !r.PeriodStart.Before(r.PeriodEnd) {
		return ierr.NewError("period_start must precede period_end").
			WithHint("Statement period is empty or inverted").
			WithReportableDetails(map[string]interface{}{
				"period_start": r.PeriodStart,
				"period_end":   r.PeriodEnd,
			}).
			Mark(ierr.ErrValidation)
	}
	return r.Mode.Validate()
}

// MarkPayoutPaidRequest records payment of an issued statement.
type MarkPayoutPaidRequest struct {
	PaymentReference string           `json:"payment_reference" validate:"required"`
	PaidAt           *time.Time       `json:"paid_at,omitempty"`
	PaidAmount       *decimal.Decimal `json:"paid_amount,omitempty"`
}

func (r *MarkPayoutPaidRequest) Validate() error {
	if r.PaymentReference == "" {
		return ierr.NewError("payment_reference is required").
			WithHint("Payment reference is required").
			Mark(ierr.ErrValidation)
	}
	if r.PaidAmount != nil && r.PaidAmount.IsNegative() {
		return ierr.NewError("paid_amount must not be negative").
			WithHint("Paid amount must be zero or positive").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// PayoutStatementResponse wraps a statement for API responses.
type PayoutStatementResponse struct {
	*payout.Statement
}

// PayoutPreview is the dry-run result: full totals plus a capped sample of
// line items. Nothing is persisted.
type PayoutPreview struct {
	WorkspaceID      string             `json:"workspace_id"`
	PeriodStart      time.Time          `json:"period_start"`
	PeriodEnd        time.Time          `json:"period_end"`
	TotalSessions    int                `json:"total_sessions"`
	TotalEnergyKwh   decimal.Decimal    `json:"total_energy_kwh"`
	TotalGrossAmount decimal.Decimal    `json:"total_gross_amount"`
	TotalMsFeeAmount decimal.Decimal    `json:"total_ms_fee_amount"`
	TotalEarning     decimal.Decimal    `json:"total_earning"`
	Currency         string             `json:"currency"`
	Preview          []*payout.LineItem `json:"preview"`
}

// GeneratePayoutStatementResponse carries either the committed statement or
// the dry-run preview, depending on the requested mode.
type GeneratePayoutStatementResponse struct {
	Mode      types.PayoutGenerationMode `json:"mode"`
	Statement *payout.Statement          `json:"statement,omitempty"`
	Preview   *PayoutPreview             `json:"preview,omitempty"`
}

// ListPayoutStatementsResponse is the paginated statement list.
type ListPayoutStatementsResponse struct {
	Items      []*PayoutStatementResponse `json:"items"`
	Pagination types.PaginationResponse   `json:"pagination"`
}
