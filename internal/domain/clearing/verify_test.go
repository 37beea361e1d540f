package clearing

import (
	"testing"
	"time"

	"github.com/voltbridge/voltbridge/internal/domain/session"
	"github.com/voltbridge/voltbridge/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func localSession(start time.Time) *session.ChargingSession {
	return &session.ChargingSession{
		ID:              "sess_local",
		EnergyKwh:       decimal.NewFromInt(10),
		DurationSeconds: 1200,
		GrossAmount:     decimal.RequireFromString("4.70"),
		Currency:        "EUR",
		StartTime:       start,
		ClearingStatus:  types.ClearingStatusPending,
	}
}

func TestVerifyCdrMatch(t *testing.T) {
	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	t.Run("all fields within tolerance", func(t *testing.T) {
		report := VerifyCdrMatch(localSession(start), CDR{
			EnergyKwh:       decimal.RequireFromString("10.05"),
			DurationSeconds: 1250,
			GrossAmount:     decimal.RequireFromString("4.71"),
			StartTime:       start.Add(4 * time.Minute),
		})
		assert.True(t, report.Match)
		assert.Empty(t, report.Mismatches)
		assert.Len(t, report.Diffs, 4)
	})

	t.Run("energy outside tolerance", func(t *testing.T) {
		report := VerifyCdrMatch(localSession(start), CDR{
			EnergyKwh:       decimal.RequireFromString("10.25"),
			DurationSeconds: 1200,
			GrossAmount:     decimal.RequireFromString("4.70"),
			StartTime:       start,
		})
		assert.False(t, report.Match)
		assert.Len(t, report.Mismatches, 1)
		assert.Contains(t, report.Mismatches[0], "energy_kwh")
	})

	t.Run("tolerance boundaries are inclusive", func(t *testing.T) {
		report := VerifyCdrMatch(localSession(start), CDR{
			EnergyKwh:       decimal.RequireFromString("10.1"),
			DurationSeconds: 1260,
			GrossAmount:     decimal.RequireFromString("4.69"),
			StartTime:       start.Add(5 * time.Minute),
		})
		assert.True(t, report.Match, "mismatches: %v", report.Mismatches)
	})

	t.Run("multiple mismatches are all reported", func(t *testing.T) {
		report := VerifyCdrMatch(localSession(start), CDR{
			EnergyKwh:       decimal.NewFromInt(12),
			DurationSeconds: 2000,
			GrossAmount:     decimal.NewFromInt(6),
			StartTime:       start.Add(time.Hour),
		})
		assert.False(t, report.Match)
		assert.Len(t, report.Mismatches, 4)
	})
}

func TestCalculateClearingAmounts(t *testing.T) {
	s := localSession(time.Now().UTC())

	t.Run("cdr gross is authoritative and net defaults to gross", func(t *testing.T) {
		a := CalculateClearingAmounts(s, CDR{GrossAmount: decimal.RequireFromString("4.80")})
		assert.True(t, a.GrossAmount.Equal(decimal.RequireFromString("4.80")))
		assert.True(t, a.NetAmount.Equal(a.GrossAmount))
		assert.True(t, a.FeeAmount.IsZero())
	})

	t.Run("zero cdr gross falls back to the session gross", func(t *testing.T) {
		a := CalculateClearingAmounts(s, CDR{})
		assert.True(t, a.GrossAmount.Equal(decimal.RequireFromString("4.70")))
	})

	t.Run("explicit net yields a clearing fee", func(t *testing.T) {
		a := CalculateClearingAmounts(s, CDR{
			GrossAmount: decimal.RequireFromString("4.80"),
			NetAmount:   lo.ToPtr(decimal.RequireFromString("4.56")),
		})
		assert.True(t, a.NetAmount.Equal(decimal.RequireFromString("4.56")))
		assert.True(t, a.FeeAmount.Equal(decimal.RequireFromString("0.24")))
	})
}
