package types

import (
	"time"

	ierr "github.com/voltbridge/voltbridge/internal/errors"
	"github.com/samber/lo"
)

const (
	filterDefaultLimit = 50
	filterMaxLimit     = 1000
)

// QueryFilter carries the common pagination and sorting knobs.
type QueryFilter struct {
	Limit  *int    `json:"limit,omitempty" form:"limit"`
	Offset *int    `json:"offset,omitempty" form:"offset"`
	Status *Status `json:"status,omitempty" form:"status"`
	Sort   *string `json:"sort,omitempty" form:"sort"`
	Order  *string `json:"order,omitempty" form:"order"`
}

// NewDefaultQueryFilter returns a filter with the standard page size.
func NewDefaultQueryFilter() *QueryFilter {
	return &QueryFilter{
		Limit:  lo.ToPtr(filterDefaultLimit),
		Offset: lo.ToPtr(0),
		Status: lo.ToPtr(StatusPublished),
		Sort:   lo.ToPtr("created_at"),
		Order:  lo.ToPtr("desc"),
	}
}

// NewNoLimitQueryFilter returns a filter without pagination, for aggregation
// passes that must see every matching row.
func NewNoLimitQueryFilter() *QueryFilter {
	return &QueryFilter{
		Status: lo.ToPtr(StatusPublished),
		Sort:   lo.ToPtr("created_at"),
		Order:  lo.ToPtr("desc"),
	}
}

func (f *QueryFilter) GetLimit() int {
	if f == nil || f.Limit == nil {
		return filterDefaultLimit
	}
	return *f.Limit
}

func (f *QueryFilter) GetOffset() int {
	if f == nil || f.Offset == nil {
		return 0
	}
	return *f.Offset
}

func (f *QueryFilter) GetStatus() Status {
	if f == nil || f.Status == nil {
		return StatusPublished
	}
	return *f.Status
}

func (f *QueryFilter) GetSort() string {
	if f == nil || f.Sort == nil {
		return "created_at"
	}
	return *f.Sort
}

func (f *QueryFilter) GetOrder() string {
	if f == nil || f.Order == nil {
		return "desc"
	}
	return *f.Order
}

func (f *QueryFilter) IsUnlimited() bool {
	return f != nil && f.Limit == nil
}

func (f *QueryFilter) Validate() error {
	if f == nil {
		return nil
	}
	if f.Limit != nil && (*f.Limit < 0 || *f.Limit > filterMaxLimit) {
		return ierr.NewError("limit out of range").
			WithHint("Limit must be between 0 and 1000").
			WithReportableDetails(map[string]interface{}{
				"limit": *f.Limit,
			}).
			Mark(ierr.ErrValidation)
	}
	if f.Offset != nil && *f.Offset < 0 {
		return ierr.NewError("offset must not be negative").
			WithHint("Offset must be zero or positive").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ChargingSessionFilter narrows session queries. All fields are conjunctive.
type ChargingSessionFilter struct {
	*QueryFilter

	WorkspaceID     string          `json:"workspace_id,omitempty" form:"workspace_id"`
	SessionStatus   *SessionStatus  `json:"session_status,omitempty" form:"session_status"`
	BillingStatus   *BillingStatus  `json:"billing_status,omitempty" form:"billing_status"`
	ClearingStatus  *ClearingStatus `json:"clearing_status,omitempty" form:"clearing_status"`
	RoamingType     *RoamingType    `json:"roaming_type,omitempty" form:"roaming_type"`
	BilledAfter     *time.Time      `json:"billed_after,omitempty" form:"billed_after"`
	BilledBefore    *time.Time      `json:"billed_before,omitempty" form:"billed_before"`
	PayoutStatement *string         `json:"payout_statement_id,omitempty" form:"payout_statement_id"`
}

func NewChargingSessionFilter() *ChargingSessionFilter {
	return &ChargingSessionFilter{QueryFilter: NewDefaultQueryFilter()}
}

func (f *ChargingSessionFilter) Validate() error {
	if f == nil {
		return nil
	}
	if err := f.QueryFilter.Validate(); err != nil {
		return err
	}
	if f.BilledAfter != nil && f.BilledBefore != nil && f.BilledBefore.Before(*f.BilledAfter) {
		return ierr.NewError("billed_before must not precede billed_after").
			WithHint("Billing period range is inverted").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// PayoutStatementFilter narrows statement queries.
type PayoutStatementFilter struct {
	*QueryFilter

	WorkspaceID     string                 `json:"workspace_id,omitempty" form:"workspace_id"`
	StatementStatus *PayoutStatementStatus `json:"statement_status,omitempty" form:"statement_status"`
	PeriodStart     *time.Time             `json:"period_start,omitempty" form:"period_start"`
	PeriodEnd       *time.Time             `json:"period_end,omitempty" form:"period_end"`
}

func NewPayoutStatementFilter() *PayoutStatementFilter {
	return &PayoutStatementFilter{QueryFilter: NewDefaultQueryFilter()}
}

func (f *PayoutStatementFilter) Validate() error {
	if f == nil {
		return nil
	}
	return f.QueryFilter.Validate()
}

// PaginationResponse echoes the applied pagination back to API clients.
type PaginationResponse struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
}
