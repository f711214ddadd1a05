package decimal_test

import (
	"testing"

	dec "github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/peppol-connector/internal/decimal"
)

func TestFromString(t *testing.T) {
	d, err := decimal.FromString("123456.78")
	require.NoError(t, err)
	assert.True(t, d.Equal(dec.RequireFromString("123456.78")))

	_, err = decimal.FromString("not-a-number")
	require.Error(t, err)
}

func TestMustFromString(t *testing.T) {
	d := decimal.MustFromString("999.99")
	assert.True(t, d.Equal(dec.RequireFromString("999.99")))

	assert.Panics(t, func() {
		decimal.MustFromString("invalid")
	})
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1000", "1000.00"},
		{"1250.5", "1250.50"},
		{"0", "0.00"},
		{"-12.345", "-12.35"},
		{"0.005", "0.01"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, decimal.FormatAmount(dec.RequireFromString(tt.in)))
		})
	}
}

func TestFormatQuantity(t *testing.T) {
	assert.Equal(t, "1", decimal.FormatQuantity(dec.RequireFromString("1.000")))
	assert.Equal(t, "2.5", decimal.FormatQuantity(dec.RequireFromString("2.50")))
	assert.Equal(t, "19", decimal.FormatQuantity(dec.NewFromInt(19)))
}

func TestWithinTolerance(t *testing.T) {
	assert.True(t, decimal.WithinTolerance(dec.RequireFromString("100.00"), dec.RequireFromString("100.01")))
	assert.True(t, decimal.WithinTolerance(dec.RequireFromString("100.01"), dec.RequireFromString("100.00")))
	assert.False(t, decimal.WithinTolerance(dec.RequireFromString("100.00"), dec.RequireFromString("100.02")))
	assert.False(t, decimal.WithinTolerance(dec.RequireFromString("1000"), dec.RequireFromString("999")))
}

func TestPercentage(t *testing.T) {
	result := decimal.Percentage(dec.NewFromInt(1000), dec.NewFromInt(25))
	assert.True(t, result.Equal(dec.NewFromInt(250)))

	result = decimal.Percentage(dec.RequireFromString("99.99"), dec.NewFromInt(19))
	assert.True(t, result.Equal(dec.RequireFromString("19.00")), result.String())
}

func TestRound2(t *testing.T) {
	assert.True(t, decimal.Round2(dec.RequireFromString("2.345")).Equal(dec.RequireFromString("2.35")))
}

func TestSum(t *testing.T) {
	values := []dec.Decimal{
		dec.NewFromInt(100),
		dec.NewFromInt(200),
		dec.RequireFromString("0.50"),
	}
	result := decimal.Sum(values)
	assert.True(t, result.Equal(dec.RequireFromString("300.50")))

	assert.True(t, decimal.Sum(nil).IsZero())
}

func TestIsPositive(t *testing.T) {
	assert.True(t, decimal.IsPositive(dec.NewFromInt(1)))
	assert.False(t, decimal.IsPositive(dec.Zero))
	assert.False(t, decimal.IsPositive(dec.NewFromInt(-1)))
}

func TestIsNonNegative(t *testing.T) {
	assert.True(t, decimal.IsNonNegative(dec.NewFromInt(1)))
	assert.True(t, decimal.IsNonNegative(dec.Zero))
	assert.False(t, decimal.IsNonNegative(dec.NewFromInt(-1)))
}
