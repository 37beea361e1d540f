package payout

import (
	"time"

	"github.com/voltbridge/voltbridge/internal/domain/session"
	"github.com/voltbridge/voltbridge/internal/types"
)

// Eligible is the single payout eligibility predicate. A session can be
// claimed by the statement covering [periodStart, periodEnd) when:
//
//   - it is COMPLETED and BILLED, with billed_at inside the period;
//   - it is not OUTBOUND roaming (the operator earns nothing there);
//   - a local session has been captured and paid through the gateway, or an
//     inbound roaming session has been settled by the clearinghouse;
//   - it is unclaimed, or already claimed by the statement being regenerated
//     (so editing a DRAFT can re-pull its own sessions).
//
// statementID may be empty for a fresh statement or a dry run.
func Eligible(s *session.ChargingSession, periodStart, periodEnd time.Time, statementID string) bool {
	if s.SessionStatus != types.SessionStatusCompleted {
		return false
	}
	if s.BillingStatus != types.BillingStatusBilled || s.BilledAt == nil {
		return false
	}
	if s.BilledAt.Before(periodStart) || !s.BilledAt.Before(periodEnd) {
		return false
	}

	switch s.RoamingType {
	case types.RoamingTypeOutbound:
		return false
	case types.RoamingTypeNone:
		if s.PaymentStatus != types.PaymentStatusCaptured || s.PaidAt == nil {
			return false
		}
	case types.RoamingTypeInbound:
		if s.ClearingStatus != types.ClearingStatusSettled || s.SettledAt == nil {
			return false
		}
	default:
		return false
	}

	if s.PayoutStatementID != nil && (statementID == "" || *s.PayoutStatementID != statementID) {
		return false
	}
	return true
}
