package pricing

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// BasisPointsPerWhole is the basis-point value of 100%.
const BasisPointsPerWhole = 10000

// ErrAmountOverflow is returned when an amount does not fit in int64 cents.
var ErrAmountOverflow = errors.New("amount exceeds the supported range")

var (
	maxCents = decimal.NewFromInt(math.MaxInt64)
	minCents = decimal.NewFromInt(math.MinInt64)
)

// ModifierType selects how a modifier value is applied.
type ModifierType string

const (
	// Fixed values are signed integer cents.
	Fixed ModifierType = "FIXED"
	// Percentage values are signed basis points of the base price.
	Percentage ModifierType = "PERCENTAGE"
)

// ParseModifierType validates a stored or submitted modifier type.
func ParseModifierType(raw string) (ModifierType, error) {
	switch t := ModifierType(raw); t {
	case Fixed, Percentage:
		return t, nil
	default:
		return "", fmt.Errorf("unknown modifier type %q", raw)
	}
}

// Modifier is a price adjustment attached to an option choice. Negative values are discounts.
type Modifier struct {
	Type  ModifierType `json:"type"`
	Value int64        `json:"value"`
	Label string       `json:"label"`
}

// ModifierBreakdown records what one modifier contributed to a price.
type ModifierBreakdown struct {
	Label         string       `json:"label"`
	Type          ModifierType `json:"type"`
	OriginalValue int64        `json:"originalValue"`
	AppliedCents  int64        `json:"appliedAmountCents"`
}

// Result groups the base price, the per-modifier breakdown and the final total.
// TotalCents is always derived from the other two.
type Result struct {
	BaseCents  int64               `json:"basePriceCents"`
	Modifiers  []ModifierBreakdown `json:"modifiers"`
	TotalCents int64               `json:"totalCents"`
}

// ModifierAmount returns the cents a modifier adds to basePriceCents. Percentages
// round toward positive infinity for both signs, so -149.85 becomes -149. The
// product is computed exactly and saturates at the int64 range. A modifier of any
// other type contributes nothing.
func ModifierAmount(basePriceCents int64, m Modifier) int64 {
	switch m.Type {
	case Fixed:
		return m.Value
	case Percentage:
		amount := decimal.NewFromInt(basePriceCents).
			Mul(decimal.NewFromInt(m.Value)).
			Div(decimal.NewFromInt(BasisPointsPerWhole)).
			Ceil()
		return clampCents(amount)
	default:
		return 0
	}
}

// CalculateWithOptions applies modifiers to a base price. Every modifier is computed
// from the unmodified base, and the total is floored at zero only after summing.
// The sum is exact; a total beyond the int64 range saturates.
func CalculateWithOptions(basePriceCents int64, modifiers []Modifier) Result {
	breakdown := make([]ModifierBreakdown, len(modifiers))
	total := decimal.NewFromInt(basePriceCents)
	for i, m := range modifiers {
		applied := ModifierAmount(basePriceCents, m)
		breakdown[i] = ModifierBreakdown{
			Label:         m.Label,
			Type:          m.Type,
			OriginalValue: m.Value,
			AppliedCents:  applied,
		}
		total = total.Add(decimal.NewFromInt(applied))
	}

	return Result{
		BaseCents:  basePriceCents,
		Modifiers:  breakdown,
		TotalCents: clampCents(decimal.Max(total, decimal.Zero)),
	}
}

// ToCents converts a matrix price in currency units to integer cents, rounding half
// away from zero. Prices beyond the int64 cent range saturate.
func ToCents(units decimal.Decimal) int64 {
	return clampCents(units.Shift(2).Round(0))
}

// FromCents converts integer cents back to currency units.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// LineTotal multiplies a unit price by a quantity, failing with ErrAmountOverflow
// instead of wrapping.
func LineTotal(unitCents, quantity int64) (int64, error) {
	total := decimal.NewFromInt(unitCents).Mul(decimal.NewFromInt(quantity))
	if total.GreaterThan(maxCents) || total.LessThan(minCents) {
		return 0, fmt.Errorf("%d x %d cents: %w", quantity, unitCents, ErrAmountOverflow)
	}
	return total.IntPart(), nil
}

func clampCents(d decimal.Decimal) int64 {
	switch {
	case d.GreaterThan(maxCents):
		return math.MaxInt64
	case d.LessThan(minCents):
		return math.MinInt64
	default:
		return d.IntPart()
	}
}
