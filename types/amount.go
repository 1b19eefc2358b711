package types

import (
	"math"

	"github.com/shopspring/decimal"
)

// RawAmount is a token quantity in the smallest indivisible denomination
// (the integer amount stored in an SPL token account).
type RawAmount uint64

// Display converts a raw amount to its human-scaled equivalent for the
// given decimals count.
func (a RawAmount) Display(decimals int) decimal.Decimal {
	return decimal.NewFromUint64(uint64(a)).Shift(int32(-decimals))
}

// Decimal returns the raw amount as an untagged decimal.
func (a RawAmount) Decimal() decimal.Decimal {
	return decimal.NewFromUint64(uint64(a))
}

// UnitResolver disambiguates amounts whose unit depends on the call site:
// the same numeric field is populated in display tokens by some callers
// and in raw units by others.
//
// The rule is magnitude based: anything at or above 10^(decimals-1) is
// assumed to already be raw. Large display amounts on low-decimal mints
// get misread by this rule; callers that can tag their units should use
// RawAmount directly and skip the resolver.
type UnitResolver struct {
	Decimals int
}

func (r UnitResolver) threshold() decimal.Decimal {
	if r.Decimals < 1 {
		return decimal.New(1, 0)
	}
	return decimal.New(1, int32(r.Decimals-1))
}

// IsRaw reports whether the amount is treated as already being raw units.
func (r UnitResolver) IsRaw(amount decimal.Decimal) bool {
	return amount.GreaterThanOrEqual(r.threshold())
}

// ToRaw resolves an ambiguous amount into raw units. Display-scale
// amounts are shifted up by the configured decimals; amounts over the
// threshold pass through unscaled. Fractional raw results truncate, and
// anything past the uint64 range clamps to the maximum raw value rather
// than wrapping.
func (r UnitResolver) ToRaw(amount decimal.Decimal) RawAmount {
	if amount.Sign() <= 0 {
		return 0
	}
	if r.IsRaw(amount) {
		return clampRaw(amount)
	}
	return clampRaw(amount.Shift(int32(r.Decimals)))
}

func clampRaw(amount decimal.Decimal) RawAmount {
	i := amount.BigInt()
	if !i.IsUint64() {
		return RawAmount(math.MaxUint64)
	}
	return RawAmount(i.Uint64())
}

// ToDisplay converts raw units to display tokens.
func (r UnitResolver) ToDisplay(amount RawAmount) decimal.Decimal {
	return amount.Display(r.Decimals)
}
