// Package matrix resolves a unit price from a width × height breakpoint grid.
//
// A request is priced by rounding each dimension up to the next breakpoint on its
// axis and reading the cell at the resulting position pair. Requests below the
// smallest breakpoint use the smallest; requests above the largest are clamped to it.
// Missing cells are errors, never defaults.
package matrix
