// Package csvmatrix imports a pricing grid from "width,height,price" CSV text.
//
// Row problems are collected and reported while the remaining rows are still
// imported; only whole-file problems (size, syntax, no data) abort the parse.
package csvmatrix

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/matrixprice/internal/matrix"
)

// MaxContentBytes is the largest CSV body Parse accepts.
const MaxContentBytes = 1 << 20

const expectedColumns = 3

const (
	msgTooLarge = "CSV file must be under 1MB"
	msgEmpty    = "CSV file is empty or contains only headers"
)

// RowError is a problem found on one CSV line. Line is 1-based and counts the
// header row; file-level failures use line 0.
type RowError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// Result is the outcome of parsing a matrix CSV. Widths and Heights are ascending
// and their indexes are the breakpoint positions Cells refers to.
type Result struct {
	Success   bool
	Widths    []float64
	Heights   []float64
	Cells     map[matrix.CellKey]decimal.Decimal
	Errors    []RowError
	TotalRows int
	ValidRows int
}

// MatrixData converts the parse result to the lookup shape.
func (r Result) MatrixData() matrix.Data {
	return matrix.Data{
		WidthBreakpoints:  matrix.Breakpoints(matrix.AxisWidth, r.Widths),
		HeightBreakpoints: matrix.Breakpoints(matrix.AxisHeight, r.Heights),
		Cells:             r.Cells,
	}
}

type dimensionPair struct {
	width  float64
	height float64
}

// Parse reads CSV content into a sorted, deduplicated matrix. A row repeating an
// earlier width/height pair replaces its price.
func Parse(content string) Result {
	if len(content) > MaxContentBytes {
		return failed(msgTooLarge)
	}

	records, err := readRecords(strings.TrimPrefix(content, "\ufeff"))
	if err != nil {
		return failed(fmt.Sprintf("CSV parsing error: %v", err))
	}
	if len(records) == 0 {
		return failed(msgEmpty)
	}

	start := 0
	if isHeader(records[0]) {
		start = 1
	}
	if start >= len(records) {
		return failed(msgEmpty)
	}

	res := Result{
		Errors:    []RowError{},
		TotalRows: len(records) - start,
	}
	prices := make(map[dimensionPair]decimal.Decimal)
	widthSet := make(map[float64]struct{})
	heightSet := make(map[float64]struct{})

	for i := start; i < len(records); i++ {
		pair, price, msg := parseRow(records[i])
		if msg != "" {
			res.Errors = append(res.Errors, RowError{Line: i + 1, Message: msg})
			continue
		}
		widthSet[pair.width] = struct{}{}
		heightSet[pair.height] = struct{}{}
		prices[pair] = price
		res.ValidRows++
	}

	res.Widths = sortedKeys(widthSet)
	res.Heights = sortedKeys(heightSet)
	res.Cells = positionCells(prices, res.Widths, res.Heights)
	res.Success = res.ValidRows > 0
	return res
}

func failed(msg string) Result {
	return Result{
		Widths:  []float64{},
		Heights: []float64{},
		Cells:   map[matrix.CellKey]decimal.Decimal{},
		Errors:  []RowError{{Line: 0, Message: msg}},
	}
}

func readRecords(content string) ([][]string, error) {
	r := csv.NewReader(strings.NewReader(content))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var records [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}
		// Whitespace-only lines count as blank.
		if len(rec) == 1 && rec[0] == "" {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func isHeader(row []string) bool {
	for _, cell := range row {
		lower := strings.ToLower(cell)
		if strings.Contains(lower, "width") || strings.Contains(lower, "height") || strings.Contains(lower, "price") {
			return true
		}
	}
	return false
}

// parseRow validates fields in width, height, price order and reports the first
// failure only.
func parseRow(row []string) (dimensionPair, decimal.Decimal, string) {
	if len(row) != expectedColumns {
		return dimensionPair{}, decimal.Zero, fmt.Sprintf("expected %d columns, got %d", expectedColumns, len(row))
	}

	width, ok := parsePositive(row[0])
	if !ok {
		return dimensionPair{}, decimal.Zero, "width must be a positive number"
	}
	height, ok := parsePositive(row[1])
	if !ok {
		return dimensionPair{}, decimal.Zero, "height must be a positive number"
	}
	price, ok := parsePrice(row[2])
	if !ok {
		return dimensionPair{}, decimal.Zero, "price must be a non-negative number"
	}
	return dimensionPair{width: width, height: height}, price, ""
}

func parseFinite(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func parsePositive(raw string) (float64, bool) {
	v, ok := parseFinite(raw)
	if !ok || v <= 0 {
		return 0, false
	}
	return v, true
}

// parsePrice keeps the exact decimal text so 99.99 stays 99.99.
func parsePrice(raw string) (decimal.Decimal, bool) {
	if _, ok := parseFinite(raw); !ok {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.Sign() < 0 {
		return decimal.Zero, false
	}
	return d, true
}

func sortedKeys(set map[float64]struct{}) []float64 {
	out := make([]float64, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}

func positionCells(prices map[dimensionPair]decimal.Decimal, widths, heights []float64) map[matrix.CellKey]decimal.Decimal {
	widthIdx := indexOf(widths)
	heightIdx := indexOf(heights)

	cells := make(map[matrix.CellKey]decimal.Decimal, len(prices))
	for pair, price := range prices {
		cells[matrix.CellKey{Width: widthIdx[pair.width], Height: heightIdx[pair.height]}] = price
	}
	return cells
}

func indexOf(values []float64) map[float64]int {
	idx := make(map[float64]int, len(values))
	for i, v := range values {
		idx[v] = i
	}
	return idx
}
