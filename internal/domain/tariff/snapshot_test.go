package tariff

import (
	"testing"

	ierr "github.com/voltbridge/voltbridge/internal/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSnapshot() Snapshot {
	return Snapshot{
		Version:         SnapshotVersion,
		BasePricePerKwh: decimal.RequireFromString("0.45"),
		SessionStartFee: decimal.RequireFromString("0.20"),
		MsFeePercent:    decimal.NewFromInt(15),
		Currency:        "EUR",
	}
}

func TestSnapshotWithDefaults(t *testing.T) {
	s := Snapshot{}.WithDefaults()
	assert.Equal(t, SnapshotVersion, s.Version)
	assert.Equal(t, "EUR", s.Currency)
	assert.True(t, s.BasePricePerKwh.IsZero())

	// Present values are untouched.
	s = validSnapshot()
	s.Currency = "SEK"
	assert.Equal(t, "SEK", s.WithDefaults().Currency)
}

func TestSnapshotValidate(t *testing.T) {
	assert.NoError(t, validSnapshot().Validate())

	t.Run("version", func(t *testing.T) {
		s := validSnapshot()
		s.Version = 0
		assert.True(t, ierr.IsValidation(s.Validate()))
		s.Version = SnapshotVersion + 1
		assert.True(t, ierr.IsValidation(s.Validate()))
	})

	t.Run("currency required", func(t *testing.T) {
		s := validSnapshot()
		s.Currency = ""
		assert.True(t, ierr.IsValidation(s.Validate()))
	})

	t.Run("fee percent range", func(t *testing.T) {
		s := validSnapshot()
		s.MsFeePercent = decimal.NewFromInt(-1)
		assert.True(t, ierr.IsValidation(s.Validate()))
		s.MsFeePercent = decimal.NewFromInt(101)
		assert.True(t, ierr.IsValidation(s.Validate()))
		s.MsFeePercent = decimal.NewFromInt(100)
		assert.NoError(t, s.Validate())
	})

	t.Run("negative prices rejected", func(t *testing.T) {
		s := validSnapshot()
		s.IdleFeePerMinute = decimal.RequireFromString("-0.01")
		assert.True(t, ierr.IsValidation(s.Validate()))
	})
}

func TestSnapshotRoundTrip(t *testing.T) {
	original := validSnapshot()
	original.PricePerMinute = decimal.RequireFromString("0.05")

	blob, err := original.Marshal()
	require.NoError(t, err)

	restored, err := UnmarshalSnapshot(blob)
	require.NoError(t, err)
	assert.Equal(t, original.Version, restored.Version)
	assert.Equal(t, original.Currency, restored.Currency)
	assert.True(t, original.BasePricePerKwh.Equal(restored.BasePricePerKwh))
	assert.True(t, original.PricePerMinute.Equal(restored.PricePerMinute))
	assert.True(t, original.MsFeePercent.Equal(restored.MsFeePercent))
}

func TestUnmarshalSnapshotRejectsBadBlobs(t *testing.T) {
	_, err := UnmarshalSnapshot([]byte("not json"))
	assert.True(t, ierr.IsValidation(err))

	// Valid JSON but failing schema validation.
	_, err = UnmarshalSnapshot([]byte(`{"version":99,"currency":"EUR"}`))
	assert.True(t, ierr.IsValidation(err))
}
