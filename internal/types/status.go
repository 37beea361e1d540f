package types

import (
	ierr "github.com/voltbridge/voltbridge/internal/errors"
)

// SessionStatus is the operational lifecycle of a charging session.
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "ACTIVE"
	SessionStatusCompleted SessionStatus = "COMPLETED"
	SessionStatusFaulted   SessionStatus = "FAULTED"
)

// BillingStatus tracks whether a session's financial breakdown has been computed.
type BillingStatus string

const (
	BillingStatusNotBilled    BillingStatus = "NOT_BILLED"
	BillingStatusBilled       BillingStatus = "BILLED"
	BillingStatusBillingError BillingStatus = "BILLING_ERROR"
)

// ClearingStatus tracks reconciliation against the roaming clearinghouse.
// PENDING is the initial state at session close; SETTLED and DISPUTED are
// reached only through settlement reconciliation.
type ClearingStatus string

const (
	ClearingStatusPending  ClearingStatus = "PENDING"
	ClearingStatusSettled  ClearingStatus = "SETTLED"
	ClearingStatusDisputed ClearingStatus = "DISPUTED"
)

// PaymentStatus mirrors the external payment gateway's view of a session.
// The gateway owns hold/capture; this core only records outcomes.
type PaymentStatus string

const (
	PaymentStatusNone     PaymentStatus = "NONE"
	PaymentStatusHold     PaymentStatus = "HOLD"
	PaymentStatusCaptured PaymentStatus = "CAPTURED"
	PaymentStatusFailed   PaymentStatus = "FAILED"
)

// RoamingType classifies how a session relates to the roaming partner.
type RoamingType string

const (
	// RoamingTypeNone is a plain local session.
	RoamingTypeNone RoamingType = "NONE"
	// RoamingTypeInbound is an external driver charging at a local station.
	RoamingTypeInbound RoamingType = "INBOUND"
	// RoamingTypeOutbound is a local driver charging at an external station.
	RoamingTypeOutbound RoamingType = "OUTBOUND"
)

// PayoutStatementStatus is the statement lifecycle. PAID and CANCELLED are terminal.
type PayoutStatementStatus string

const (
	PayoutStatementStatusDraft     PayoutStatementStatus = "DRAFT"
	PayoutStatementStatusIssued    PayoutStatementStatus = "ISSUED"
	PayoutStatementStatusPaid      PayoutStatementStatus = "PAID"
	PayoutStatementStatusCancelled PayoutStatementStatus = "CANCELLED"
)

// PayoutGenerationMode selects between a pure preview and a committed generation.
type PayoutGenerationMode string

const (
	PayoutGenerationModeDryRun PayoutGenerationMode = "dry_run"
	PayoutGenerationModeCommit PayoutGenerationMode = "commit"
)

func (m PayoutGenerationMode) Validate() error {
	switch m {
	case PayoutGenerationModeDryRun, PayoutGenerationModeCommit:
		return nil
	default:
		return ierr.NewError("invalid payout generation mode").
			WithHint("Mode must be one of: dry_run, commit").
			WithReportableDetails(map[string]interface{}{
				"mode": string(m),
			}).
			Mark(ierr.ErrValidation)
	}
}
