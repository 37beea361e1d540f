package billing

import (
	"testing"

	"github.com/voltbridge/voltbridge/internal/domain/tariff"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func standardSnapshot() tariff.Snapshot {
	return tariff.Snapshot{
		Version:          tariff.SnapshotVersion,
		BasePricePerKwh:  decimal.RequireFromString("0.45"),
		PricePerMinute:   decimal.Zero,
		SessionStartFee:  decimal.RequireFromString("0.20"),
		IdleFeePerMinute: decimal.Zero,
		MsFeePercent:     decimal.NewFromInt(15),
		Currency:         "EUR",
	}
}

func TestCalculate(t *testing.T) {
	t.Run("standard session", func(t *testing.T) {
		// 10 kWh at 0.45/kWh plus a 0.20 start fee, 15% marketplace fee.
		b := Calculate(Input{
			EnergyKwh:       decimal.NewFromInt(10),
			DurationSeconds: 1200,
		}, standardSnapshot())

		assert.True(t, b.EnergyAmount.Equal(decimal.RequireFromString("4.50")), "energy: %s", b.EnergyAmount)
		assert.True(t, b.TimeAmount.IsZero(), "time: %s", b.TimeAmount)
		assert.True(t, b.SessionStartFeeAmount.Equal(decimal.RequireFromString("0.20")))
		assert.True(t, b.IdleAmount.IsZero())
		assert.True(t, b.GrossAmount.Equal(decimal.RequireFromString("4.70")), "gross: %s", b.GrossAmount)
		assert.True(t, b.MsFeeAmount.Equal(decimal.RequireFromString("0.71")), "fee: %s", b.MsFeeAmount)
		assert.True(t, b.SubCpoEarningAmount.Equal(decimal.RequireFromString("3.99")), "earning: %s", b.SubCpoEarningAmount)
		assert.Equal(t, "EUR", b.Currency)
	})

	t.Run("time and idle components", func(t *testing.T) {
		snapshot := standardSnapshot()
		snapshot.PricePerMinute = decimal.RequireFromString("0.05")
		snapshot.IdleFeePerMinute = decimal.RequireFromString("0.10")

		b := Calculate(Input{
			EnergyKwh:       decimal.RequireFromString("7.333"),
			DurationSeconds: 1830, // 30.5 min
			IdleSeconds:     90,   // 1.5 min
		}, snapshot)

		// 7.333 * 0.45 = 3.29985 -> 3.30
		assert.True(t, b.EnergyAmount.Equal(decimal.RequireFromString("3.30")), "energy: %s", b.EnergyAmount)
		// 30.5 * 0.05 = 1.525 -> 1.53 (half up)
		assert.True(t, b.TimeAmount.Equal(decimal.RequireFromString("1.53")), "time: %s", b.TimeAmount)
		// 1.5 * 0.10 = 0.15
		assert.True(t, b.IdleAmount.Equal(decimal.RequireFromString("0.15")))
		assert.True(t, b.GrossAmount.Equal(decimal.RequireFromString("5.18")), "gross: %s", b.GrossAmount)
	})

	t.Run("components sum to gross and fee plus earning equals gross", func(t *testing.T) {
		snapshot := standardSnapshot()
		snapshot.PricePerMinute = decimal.RequireFromString("0.07")
		snapshot.IdleFeePerMinute = decimal.RequireFromString("0.13")
		snapshot.MsFeePercent = decimal.RequireFromString("12.5")

		inputs := []Input{
			{EnergyKwh: decimal.RequireFromString("0.001"), DurationSeconds: 1},
			{EnergyKwh: decimal.RequireFromString("23.456"), DurationSeconds: 5432, IdleSeconds: 321},
			{EnergyKwh: decimal.RequireFromString("99.999"), DurationSeconds: 86400, IdleSeconds: 3600},
		}
		for _, in := range inputs {
			b := Calculate(in, snapshot)
			componentSum := b.EnergyAmount.Add(b.TimeAmount).
				Add(b.SessionStartFeeAmount).Add(b.IdleAmount)
			assert.True(t, b.GrossAmount.Equal(componentSum),
				"gross %s != component sum %s", b.GrossAmount, componentSum)
			assert.True(t, b.GrossAmount.Equal(b.MsFeeAmount.Add(b.SubCpoEarningAmount)),
				"gross %s != fee %s + earning %s", b.GrossAmount, b.MsFeeAmount, b.SubCpoEarningAmount)
		}
	})

	t.Run("zero telemetry still charges the start fee", func(t *testing.T) {
		b := Calculate(Input{}, standardSnapshot())
		assert.True(t, b.GrossAmount.Equal(decimal.RequireFromString("0.20")))
		assert.True(t, b.MsFeeAmount.Equal(decimal.RequireFromString("0.03")))
		assert.True(t, b.SubCpoEarningAmount.Equal(decimal.RequireFromString("0.17")))
	})

	t.Run("defaults applied to an empty snapshot", func(t *testing.T) {
		b := Calculate(Input{EnergyKwh: decimal.NewFromInt(5)}, tariff.Snapshot{})
		assert.Equal(t, "EUR", b.Currency)
		assert.True(t, b.GrossAmount.IsZero())
	})

	t.Run("recalculating a rounded breakdown is a no-op", func(t *testing.T) {
		snapshot := standardSnapshot()
		in := Input{EnergyKwh: decimal.RequireFromString("13.337"), DurationSeconds: 2711}
		first := Calculate(in, snapshot)
		second := Calculate(in, snapshot)
		assert.True(t, first.GrossAmount.Equal(second.GrossAmount))
		assert.True(t, first.MsFeeAmount.Equal(second.MsFeeAmount))
		assert.True(t, first.SubCpoEarningAmount.Equal(second.SubCpoEarningAmount))
	})
}

func TestEnergyFromMeterDelta(t *testing.T) {
	assert.True(t, EnergyFromMeterDelta(1000, 11000).Equal(decimal.NewFromInt(10)))
	assert.True(t, EnergyFromMeterDelta(0, 1).Equal(decimal.RequireFromString("0.001")))
	assert.True(t, EnergyFromMeterDelta(500, 500).IsZero())
	// A stop reading behind the start reading is treated as zero energy.
	assert.True(t, EnergyFromMeterDelta(9000, 4000).IsZero())
}
