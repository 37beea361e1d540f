package clearing

import (
	"fmt"

	"github.com/voltbridge/voltbridge/internal/domain/session"
	"github.com/shopspring/decimal"
)

// Verification tolerances. A CDR matches the local session only if every
// field is within its tolerance.
var (
	ToleranceEnergyKwh       = decimal.RequireFromString("0.1")
	ToleranceDurationSeconds = decimal.NewFromInt(60)
	ToleranceGrossAmount     = decimal.RequireFromString("0.01")
	ToleranceStartSeconds    = decimal.NewFromInt(300)
)

// FieldDiff is the per-field comparison result between the local session and
// the external CDR.
type FieldDiff struct {
	Field     string          `json:"field"`
	Local     decimal.Decimal `json:"local"`
	External  decimal.Decimal `json:"external"`
	Diff      decimal.Decimal `json:"diff"`
	Tolerance decimal.Decimal `json:"tolerance"`
	Pass      bool            `json:"pass"`
}

// MatchReport is the full outcome of a CDR verification.
type MatchReport struct {
	Match      bool        `json:"match"`
	Diffs      []FieldDiff `json:"diffs"`
	Mismatches []string    `json:"mismatches"`
}

// VerifyCdrMatch compares energy, duration, gross amount and start time
// between the locally recorded session and the externally supplied CDR.
func VerifyCdrMatch(s *session.ChargingSession, cdr CDR) MatchReport {
	diffs := []FieldDiff{
		fieldDiff("energy_kwh", s.EnergyKwh, cdr.EnergyKwh, ToleranceEnergyKwh),
		fieldDiff("duration_seconds",
			decimal.NewFromInt(s.DurationSeconds),
			decimal.NewFromInt(cdr.DurationSeconds),
			ToleranceDurationSeconds),
		fieldDiff("gross_amount", s.GrossAmount, cdr.GrossAmount, ToleranceGrossAmount),
		fieldDiff("start_time",
			decimal.NewFromInt(s.StartTime.Unix()),
			decimal.NewFromInt(cdr.StartTime.Unix()),
			ToleranceStartSeconds),
	}

	report := MatchReport{Match: true, Diffs: diffs}
	for _, d := range diffs {
		if !d.Pass {
			report.Match = false
			report.Mismatches = append(report.Mismatches, fmt.Sprintf(
				"%s mismatch: local %s vs external %s (diff %s exceeds tolerance %s)",
				d.Field, d.Local.String(), d.External.String(), d.Diff.String(), d.Tolerance.String(),
			))
		}
	}
	return report
}

func fieldDiff(field string, local, external, tolerance decimal.Decimal) FieldDiff {
	diff := local.Sub(external).Abs()
	return FieldDiff{
		Field:     field,
		Local:     local,
		External:  external,
		Diff:      diff,
		Tolerance: tolerance,
		Pass:      diff.LessThanOrEqual(tolerance),
	}
}

// Amounts is the clearing money resolved from a CDR.
type Amounts struct {
	GrossAmount decimal.Decimal `json:"gross_amount"`
	NetAmount   decimal.Decimal `json:"net_amount"`
	FeeAmount   decimal.Decimal `json:"fee_amount"`
}

// CalculateClearingAmounts resolves the settled amounts for a session. The
// external record is authoritative when present; a zero external gross falls
// back to the session's own gross, and a missing net defaults to the gross.
// Fees are the gross/net difference.
func CalculateClearingAmounts(s *session.ChargingSession, cdr CDR) Amounts {
	gross := cdr.GrossAmount
	if gross.IsZero() {
		gross = s.GrossAmount
	}

	net := gross
	if cdr.NetAmount != nil {
		net = *cdr.NetAmount
	}

	return Amounts{
		GrossAmount: gross,
		NetAmount:   net,
		FeeAmount:   gross.Sub(net),
	}
}
