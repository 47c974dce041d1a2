package main

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/Simplici0/matrixprice/internal/matrix"
	"github.com/Simplici0/matrixprice/internal/options"
	"github.com/Simplici0/matrixprice/internal/pricing"
	"github.com/Simplici0/matrixprice/internal/store"
)

type dimensionsView struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Unit   string  `json:"unit"`
}

type matrixView struct {
	ID             string                `json:"id"`
	Name           string                `json:"name"`
	DimensionRange matrix.DimensionRange `json:"dimensionRange"`
}

type priceResponse struct {
	ProductID  string          `json:"productId"`
	Price      decimal.Decimal `json:"price"`
	PriceCents int64           `json:"priceCents"`
	Currency   string          `json:"currency"`
	Dimensions dimensionsView  `json:"dimensions"`
	Quantity   int64           `json:"quantity"`
	Total      decimal.Decimal `json:"total"`
	TotalCents int64           `json:"totalCents"`
	Matrix     matrixView      `json:"matrix"`
}

// maxQuantity bounds a single line so quantities convert to int64 exactly.
const maxQuantity = 1_000_000

const amountTooLarge = "Total exceeds the supported amount"

// quoteInput is the request every price computation starts from.
type quoteInput struct {
	Width    float64
	Height   float64
	Quantity float64
}

// unitPrice resolves the base unit price for productID. Problems are written to w
// and reported through ok=false.
func (s *server) unitPrice(w http.ResponseWriter, r *http.Request, productID string, in quoteInput) (store.ProductMatrix, int64, bool) {
	if err := matrix.ValidateDimensions(in.Width, in.Height, in.Quantity); err != nil {
		writeProblem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return store.ProductMatrix{}, 0, false
	}
	if in.Quantity > maxQuantity {
		writeProblem(w, http.StatusBadRequest, "Validation Failed", matrix.MsgQuantityNotInteger)
		return store.ProductMatrix{}, 0, false
	}

	pm, err := s.store.LookupProductMatrix(r.Context(), productID, s.cfg.StoreID)
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Not Found", "No price matrix assigned to this product")
		return store.ProductMatrix{}, 0, false
	}
	if err != nil {
		s.serverError(w, r, "failed to load product matrix", err)
		return store.ProductMatrix{}, 0, false
	}

	price, err := matrix.CalculatePrice(in.Width, in.Height, pm.Data)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "price lookup failed",
			"product_id", productID, "matrix_id", pm.MatrixID,
			"width", in.Width, "height", in.Height, "error", err)
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "Failed to calculate price")
		return store.ProductMatrix{}, 0, false
	}
	return pm, pricing.ToCents(price), true
}

func (s *server) handlePrice(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	q := r.URL.Query()

	fieldErrors := map[string][]string{}
	width := parseNumberParam(q.Get("width"), "width", true, fieldErrors)
	height := parseNumberParam(q.Get("height"), "height", true, fieldErrors)
	quantity := parseNumberParam(q.Get("quantity"), "quantity", false, fieldErrors)
	if q.Get("quantity") == "" {
		quantity = 1
	}
	if len(fieldErrors) > 0 {
		writeFieldProblem(w, http.StatusBadRequest, "Validation Failed",
			"Request parameters failed validation", fieldErrors)
		return
	}

	in := quoteInput{Width: width, Height: height, Quantity: quantity}
	pm, unitCents, ok := s.unitPrice(w, r, productID, in)
	if !ok {
		return
	}

	qty := int64(in.Quantity)
	totalCents, err := pricing.LineTotal(unitCents, qty)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Validation Failed", amountTooLarge)
		return
	}
	writeJSON(w, http.StatusOK, priceResponse{
		ProductID:  productID,
		Price:      pricing.FromCents(unitCents),
		PriceCents: unitCents,
		Currency:   s.cfg.Currency,
		Dimensions: dimensionsView{Width: in.Width, Height: in.Height, Unit: s.cfg.Unit},
		Quantity:   qty,
		Total:      pricing.FromCents(totalCents),
		TotalCents: totalCents,
		Matrix:     matrixView{ID: pm.MatrixID, Name: pm.MatrixName, DimensionRange: pm.Range},
	})
}

// parseNumberParam records a field error for a missing or malformed number.
func parseNumberParam(raw, field string, required bool, fieldErrors map[string][]string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if required {
			fieldErrors[field] = append(fieldErrors[field], field+" is required")
		}
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		fieldErrors[field] = append(fieldErrors[field], field+" must be a number")
		return 0
	}
	return v
}

func (s *server) handleOptions(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")

	groups, err := s.store.ProductOptionGroups(r.Context(), productID, s.cfg.StoreID)
	if errors.Is(err, options.ErrProductNotFound) {
		groups = []options.Group{}
	} else if err != nil {
		s.serverError(w, r, "failed to load option groups", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"optionGroups": groups})
}

func (s *server) serverError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	s.logger.ErrorContext(r.Context(), msg, "error", err, "path", r.URL.Path)
	writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred")
}
