package types

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestUnitResolver(t *testing.T) {
	r := UnitResolver{Decimals: 6}

	// Below 10^5 the amount is display tokens.
	require.False(t, r.IsRaw(decimal.RequireFromString("100")))
	require.Equal(t, RawAmount(100_000_000), r.ToRaw(decimal.RequireFromString("100")))
	require.Equal(t, RawAmount(500_000), r.ToRaw(decimal.RequireFromString("0.5")))

	// At or above the threshold the amount passes through as raw.
	require.True(t, r.IsRaw(decimal.RequireFromString("100000")))
	require.Equal(t, RawAmount(100_000), r.ToRaw(decimal.RequireFromString("100000")))
	require.Equal(t, RawAmount(105_000_000), r.ToRaw(decimal.RequireFromString("105000000")))

	require.Equal(t, RawAmount(0), r.ToRaw(decimal.Zero))
	require.Equal(t, RawAmount(0), r.ToRaw(decimal.RequireFromString("-5")))

	require.True(t, decimal.RequireFromString("105").Equal(r.ToDisplay(105_000_000)))
}

func TestUnitResolverClampsOverflow(t *testing.T) {
	r := UnitResolver{Decimals: 12}

	// Raw passthrough beyond the uint64 range clamps instead of wrapping.
	huge := decimal.RequireFromString("99999999999999999999999999")
	require.Equal(t, RawAmount(math.MaxUint64), r.ToRaw(huge))

	// Display-scale amount whose shift overflows clamps too.
	belowThreshold := decimal.RequireFromString("99999999999")
	require.True(t, belowThreshold.LessThan(decimal.New(1, 11)))
	require.Equal(t, RawAmount(math.MaxUint64), r.ToRaw(belowThreshold))

	// The boundary value itself still converts exactly.
	max := decimal.NewFromUint64(math.MaxUint64)
	require.Equal(t, RawAmount(math.MaxUint64), r.ToRaw(max))
}

func TestRawAmountDisplay(t *testing.T) {
	require.True(t, decimal.RequireFromString("1.5").Equal(RawAmount(1_500_000_000).Display(9)))
	require.True(t, decimal.RequireFromString("42").Equal(RawAmount(42).Display(0)))
}
