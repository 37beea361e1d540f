package payout

import (
	"testing"
	"time"

	"github.com/voltbridge/voltbridge/internal/domain/session"
	"github.com/voltbridge/voltbridge/internal/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
)

func TestEligible(t *testing.T) {
	periodStart := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	billedAt := periodStart.Add(72 * time.Hour)

	base := func() *session.ChargingSession {
		return &session.ChargingSession{
			ID:            "sess_1",
			SessionStatus: types.SessionStatusCompleted,
			BillingStatus: types.BillingStatusBilled,
			BilledAt:      lo.ToPtr(billedAt),
			RoamingType:   types.RoamingTypeNone,
			PaymentStatus: types.PaymentStatusCaptured,
			PaidAt:        lo.ToPtr(billedAt.Add(time.Minute)),
		}
	}

	t.Run("captured local session in period is eligible", func(t *testing.T) {
		assert.True(t, Eligible(base(), periodStart, periodEnd, ""))
	})

	t.Run("settled inbound session is eligible", func(t *testing.T) {
		s := base()
		s.RoamingType = types.RoamingTypeInbound
		s.PaymentStatus = types.PaymentStatusNone
		s.PaidAt = nil
		s.ClearingStatus = types.ClearingStatusSettled
		s.SettledAt = lo.ToPtr(billedAt)
		assert.True(t, Eligible(s, periodStart, periodEnd, ""))
	})

	t.Run("outbound sessions are never eligible", func(t *testing.T) {
		s := base()
		s.RoamingType = types.RoamingTypeOutbound
		s.ClearingStatus = types.ClearingStatusSettled
		s.SettledAt = lo.ToPtr(billedAt)
		assert.False(t, Eligible(s, periodStart, periodEnd, ""))
	})

	t.Run("active or faulted sessions are excluded", func(t *testing.T) {
		s := base()
		s.SessionStatus = types.SessionStatusActive
		assert.False(t, Eligible(s, periodStart, periodEnd, ""))
		s.SessionStatus = types.SessionStatusFaulted
		assert.False(t, Eligible(s, periodStart, periodEnd, ""))
	})

	t.Run("unbilled and billing-error sessions are excluded", func(t *testing.T) {
		s := base()
		s.BillingStatus = types.BillingStatusNotBilled
		assert.False(t, Eligible(s, periodStart, periodEnd, ""))
		s.BillingStatus = types.BillingStatusBillingError
		assert.False(t, Eligible(s, periodStart, periodEnd, ""))
	})

	t.Run("billed_at bounds are start inclusive end exclusive", func(t *testing.T) {
		s := base()
		s.BilledAt = lo.ToPtr(periodStart)
		assert.True(t, Eligible(s, periodStart, periodEnd, ""))

		s.BilledAt = lo.ToPtr(periodEnd)
		assert.False(t, Eligible(s, periodStart, periodEnd, ""))

		s.BilledAt = lo.ToPtr(periodStart.Add(-time.Second))
		assert.False(t, Eligible(s, periodStart, periodEnd, ""))
	})

	t.Run("uncaptured local sessions are excluded", func(t *testing.T) {
		s := base()
		s.PaymentStatus = types.PaymentStatusHold
		assert.False(t, Eligible(s, periodStart, periodEnd, ""))
		s.PaymentStatus = types.PaymentStatusFailed
		assert.False(t, Eligible(s, periodStart, periodEnd, ""))
	})

	t.Run("inbound pending or disputed clearing is excluded", func(t *testing.T) {
		s := base()
		s.RoamingType = types.RoamingTypeInbound
		s.ClearingStatus = types.ClearingStatusPending
		assert.False(t, Eligible(s, periodStart, periodEnd, ""))
		s.ClearingStatus = types.ClearingStatusDisputed
		assert.False(t, Eligible(s, periodStart, periodEnd, ""))
	})

	t.Run("claims are exclusive but re-pullable by the owning statement", func(t *testing.T) {
		s := base()
		s.PayoutStatementID = lo.ToPtr("ps_other")
		assert.False(t, Eligible(s, periodStart, periodEnd, ""))
		assert.False(t, Eligible(s, periodStart, periodEnd, "ps_mine"))
		assert.True(t, Eligible(s, periodStart, periodEnd, "ps_other"))
	})
}
