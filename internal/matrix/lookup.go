package matrix

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// ValidateDimensions checks request inputs before a lookup. Width and height must be
// finite and positive and are checked first. CalculatePrice does not call it.
func ValidateDimensions(width, height, quantity float64) error {
	if !(width > 0) || !(height > 0) || math.IsInf(width, 0) || math.IsInf(height, 0) {
		return &DimensionError{Message: MsgDimensionsNotPositive}
	}
	if !(quantity > 0) || math.IsInf(quantity, 0) || quantity != math.Trunc(quantity) {
		return &DimensionError{Message: MsgQuantityNotInteger}
	}
	return nil
}

// CalculatePrice returns the unit price for the requested dimensions. Each axis rounds
// up to the nearest breakpoint and clamps to the largest one when the request exceeds
// the grid. There is no interpolation between cells.
func CalculatePrice(width, height float64, m Data) (decimal.Decimal, error) {
	wPos, err := resolvePosition(m.WidthBreakpoints, width)
	if err != nil {
		return decimal.Zero, fmt.Errorf("resolve width: %w", err)
	}
	hPos, err := resolvePosition(m.HeightBreakpoints, height)
	if err != nil {
		return decimal.Zero, fmt.Errorf("resolve height: %w", err)
	}

	price, ok := m.Cells[CellKey{Width: wPos, Height: hPos}]
	if !ok {
		return decimal.Zero, &MissingCellError{WidthPosition: wPos, HeightPosition: hPos}
	}
	return price, nil
}

// resolvePosition picks the smallest breakpoint whose value is >= v, or the largest
// breakpoint when v exceeds them all.
func resolvePosition(bps []Breakpoint, v float64) (int, error) {
	if len(bps) == 0 {
		return 0, ErrNoBreakpoints
	}

	ceil, last := -1, 0
	for i, bp := range bps {
		if bp.Value >= v && (ceil < 0 || bp.Value < bps[ceil].Value) {
			ceil = i
		}
		if bp.Value > bps[last].Value {
			last = i
		}
	}
	if ceil < 0 {
		return bps[last].Position, nil
	}
	return bps[ceil].Position, nil
}
