package matrix

import (
	"errors"
	"fmt"
)

// Stable validation messages returned by ValidateDimensions.
const (
	MsgDimensionsNotPositive = "Width and height must be positive numbers"
	MsgQuantityNotInteger    = "Quantity must be a positive integer"
)

// ErrNoBreakpoints is returned when a matrix axis has no breakpoints to resolve against.
var ErrNoBreakpoints = errors.New("matrix has no breakpoints")

// DimensionError reports a rejected width, height or quantity.
type DimensionError struct {
	Message string
}

func (e *DimensionError) Error() string {
	return e.Message
}

// MissingCellError reports that the resolved position pair has no stored price.
// It signals a data integrity problem in the matrix, not bad input.
type MissingCellError struct {
	WidthPosition  int
	HeightPosition int
}

func (e *MissingCellError) Error() string {
	return fmt.Sprintf("No price found for position (%d, %d)", e.WidthPosition, e.HeightPosition)
}
