package matrix

import (
	"github.com/shopspring/decimal"
)

// Axis names the dimension a breakpoint belongs to.
type Axis string

const (
	AxisWidth  Axis = "width"
	AxisHeight Axis = "height"
)

// Valid reports whether a is a known axis.
func (a Axis) Valid() bool {
	return a == AxisWidth || a == AxisHeight
}

// Breakpoint is one threshold of the pricing grid along a single axis.
// Positions are dense and zero-based in ascending value order.
type Breakpoint struct {
	Axis     Axis    `json:"axis"`
	Position int     `json:"position"`
	Value    float64 `json:"value"`
}

// CellKey addresses a grid cell by its width and height positions.
type CellKey struct {
	Width  int
	Height int
}

// Cell is the stored price for one width/height position pair.
type Cell struct {
	WidthPosition  int             `json:"widthPosition"`
	HeightPosition int             `json:"heightPosition"`
	Price          decimal.Decimal `json:"price"`
}

// Data is the lookup shape of a price matrix. Prices are currency units, not cents.
type Data struct {
	WidthBreakpoints  []Breakpoint
	HeightBreakpoints []Breakpoint
	Cells             map[CellKey]decimal.Decimal
}

// DimensionRange is the span covered by a matrix's breakpoints.
type DimensionRange struct {
	MinWidth  float64 `json:"minWidth"`
	MaxWidth  float64 `json:"maxWidth"`
	MinHeight float64 `json:"minHeight"`
	MaxHeight float64 `json:"maxHeight"`
}

// NewData builds Data from breakpoint slices and a cell list. A later cell with the
// same position pair replaces an earlier one.
func NewData(widths, heights []Breakpoint, cells []Cell) Data {
	m := make(map[CellKey]decimal.Decimal, len(cells))
	for _, c := range cells {
		m[CellKey{Width: c.WidthPosition, Height: c.HeightPosition}] = c.Price
	}
	return Data{
		WidthBreakpoints:  widths,
		HeightBreakpoints: heights,
		Cells:             m,
	}
}

// Breakpoints turns ascending values into position-numbered breakpoints on axis.
func Breakpoints(axis Axis, values []float64) []Breakpoint {
	out := make([]Breakpoint, len(values))
	for i, v := range values {
		out[i] = Breakpoint{Axis: axis, Position: i, Value: v}
	}
	return out
}

// CellList returns the cells ordered by height position, then width position.
func (d Data) CellList() []Cell {
	out := make([]Cell, 0, len(d.Cells))
	for h := range d.HeightBreakpoints {
		for w := range d.WidthBreakpoints {
			if price, ok := d.Cells[CellKey{Width: w, Height: h}]; ok {
				out = append(out, Cell{WidthPosition: w, HeightPosition: h, Price: price})
			}
		}
	}
	return out
}

// Range returns the min and max breakpoint values per axis, zero for an empty axis.
func (d Data) Range() DimensionRange {
	var r DimensionRange
	r.MinWidth, r.MaxWidth = axisRange(d.WidthBreakpoints)
	r.MinHeight, r.MaxHeight = axisRange(d.HeightBreakpoints)
	return r
}

func axisRange(bps []Breakpoint) (float64, float64) {
	if len(bps) == 0 {
		return 0, 0
	}
	lo, hi := bps[0].Value, bps[0].Value
	for _, bp := range bps[1:] {
		if bp.Value < lo {
			lo = bp.Value
		}
		if bp.Value > hi {
			hi = bp.Value
		}
	}
	return lo, hi
}
