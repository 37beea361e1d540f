package billing

import (
	"github.com/voltbridge/voltbridge/internal/domain/tariff"
	"github.com/voltbridge/voltbridge/internal/types"
	"github.com/shopspring/decimal"
)

var (
	sixty    = decimal.NewFromInt(60)
	thousand = decimal.NewFromInt(1000)
	hundred  = decimal.NewFromInt(100)
)

// Input is the telemetry fed into the calculator. Callers are responsible for
// clamping negative or garbage telemetry before calling; the calculator is
// total over its input domain.
type Input struct {
	EnergyKwh       decimal.Decimal
	DurationSeconds int64
	IdleSeconds     int64
}

// Breakdown is the cents-accurate financial result of a session. Every
// component is rounded half-up to the cent before summing so floating-point
// drift from the raw telemetry is never inherited by the totals.
//
// Invariants, by construction:
//
//	GrossAmount = EnergyAmount + TimeAmount + SessionStartFeeAmount + IdleAmount
//	GrossAmount = MsFeeAmount + SubCpoEarningAmount
type Breakdown struct {
	EnergyAmount          decimal.Decimal `json:"energy_amount"`
	TimeAmount            decimal.Decimal `json:"time_amount"`
	SessionStartFeeAmount decimal.Decimal `json:"session_start_fee_amount"`
	IdleAmount            decimal.Decimal `json:"idle_amount"`
	GrossAmount           decimal.Decimal `json:"gross_amount"`
	MsFeeAmount           decimal.Decimal `json:"ms_fee_amount"`
	SubCpoEarningAmount   decimal.Decimal `json:"sub_cpo_earning_amount"`
	Currency              string          `json:"currency"`
}

// Calculate converts telemetry into a financial breakdown under a frozen
// tariff snapshot. Pure: no I/O, no side effects, no error paths.
func Calculate(in Input, snapshot tariff.Snapshot) Breakdown {
	snapshot = snapshot.WithDefaults()

	energyAmount := types.RoundToCents(in.EnergyKwh.Mul(snapshot.BasePricePerKwh))

	durationMinutes := decimal.NewFromInt(in.DurationSeconds).Div(sixty)
	timeAmount := types.RoundToCents(durationMinutes.Mul(snapshot.PricePerMinute))

	sessionStartFeeAmount := types.RoundToCents(snapshot.SessionStartFee)

	idleMinutes := decimal.NewFromInt(in.IdleSeconds).Div(sixty)
	idleAmount := types.RoundToCents(idleMinutes.Mul(snapshot.IdleFeePerMinute))

	gross := types.RoundToCents(
		energyAmount.Add(timeAmount).Add(sessionStartFeeAmount).Add(idleAmount),
	)

	msFee := types.RoundToCents(gross.Mul(snapshot.MsFeePercent).Div(hundred))

	// Derived, not independently rounded, so gross = fee + earning holds exactly.
	earning := gross.Sub(msFee)

	return Breakdown{
		EnergyAmount:          energyAmount,
		TimeAmount:            timeAmount,
		SessionStartFeeAmount: sessionStartFeeAmount,
		IdleAmount:            idleAmount,
		GrossAmount:           gross,
		MsFeeAmount:           msFee,
		SubCpoEarningAmount:   earning,
		Currency:              snapshot.Currency,
	}
}

// EnergyFromMeterDelta converts raw meter readings into kWh. Charge points
// report energy in watt-hours, so the delta is divided by 1000. A stop reading
// below the start reading is clamped to zero.
func EnergyFromMeterDelta(meterStart, meterStop int64) decimal.Decimal {
	if meterStop <= meterStart {
		return decimal.Zero
	}
	return decimal.NewFromInt(meterStop - meterStart).Div(thousand)
}
