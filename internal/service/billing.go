package service

import (
	"context"

	"github.com/voltbridge/voltbridge/internal/domain/billing"
	"github.com/voltbridge/voltbridge/internal/domain/session"
	"github.com/voltbridge/voltbridge/internal/domain/tariff"
	ierr "github.com/voltbridge/voltbridge/internal/errors"
	"github.com/voltbridge/voltbridge/internal/types"
	"github.com/shopspring/decimal"
)

// BillingService computes and archives billing breakdowns for sessions.
type BillingService interface {
	// Calculate runs the pure calculator under a frozen tariff snapshot.
	Calculate(in billing.Input, snapshot tariff.Snapshot) billing.Breakdown

	// BillSession computes the breakdown for a session from its own telemetry
	// and frozen snapshot, stamps the billing fields and the archival record
	// onto the session, and returns the breakdown. The session is not
	// persisted here; the caller owns the write.
	BillSession(ctx context.Context, s *session.ChargingSession) (billing.Breakdown, error)
}

type billingService struct {
	ServiceParams
}

func NewBillingService(params ServiceParams) BillingService {
	return &billingService{ServiceParams: params}
}

func (svc *billingService) Calculate(in billing.Input, snapshot tariff.Snapshot) billing.Breakdown {
	return billing.Calculate(in, snapshot)
}

func (svc *billingService) BillSession(ctx context.Context, s *session.ChargingSession) (billing.Breakdown, error) {
	if s.TariffSnapshot == nil {
		return billing.Breakdown{}, ierr.NewError("session has no tariff snapshot").
			WithHint("Session was created without a frozen tariff and cannot be billed").
			WithReportableDetails(map[string]interface{}{
				"session_id": s.ID,
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	snapshot := s.TariffSnapshot.WithDefaults()
	if err := snapshot.Validate(); err != nil {
		return billing.Breakdown{}, err
	}

	in := billing.Input{
		EnergyKwh:       clampNonNegative(s.EnergyKwh),
		DurationSeconds: clampNonNegativeInt(s.DurationSeconds),
		IdleSeconds:     clampNonNegativeInt(s.IdleSeconds),
	}
	breakdown := billing.Calculate(in, snapshot)

	record := billing.NewArchivalRecord(s.ID, s.SessionStatus, breakdown)
	blob, err := record.Marshal()
	if err != nil {
		return billing.Breakdown{}, err
	}

	s.GrossAmount = breakdown.GrossAmount
	s.MsFeeAmount = breakdown.MsFeeAmount
	s.SubCpoEarningAmount = breakdown.SubCpoEarningAmount
	s.Currency = breakdown.Currency
	s.BillingStatus = types.BillingStatusBilled
	s.BillingRecord = blob

	svc.Logger.WithContext(ctx).Debugw("billed session",
		"session_id", s.ID,
		"gross_amount", breakdown.GrossAmount.String(),
		"ms_fee_amount", breakdown.MsFeeAmount.String(),
		"currency", breakdown.Currency,
	)
	return breakdown, nil
}

func clampNonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func clampNonNegativeInt(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
