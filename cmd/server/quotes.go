package main

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/Simplici0/matrixprice/internal/options"
	"github.com/Simplici0/matrixprice/internal/pricing"
	"github.com/Simplici0/matrixprice/internal/store"
)

type createQuoteRequest struct {
	Width      float64             `json:"width"`
	Height     float64             `json:"height"`
	Quantity   *float64            `json:"quantity"`
	Selections []options.Selection `json:"selections"`
}

type quoteResponse struct {
	ID             string          `json:"id"`
	ProductID      string          `json:"productId"`
	CreatedAt      time.Time       `json:"createdAt,omitzero"`
	Dimensions     dimensionsView  `json:"dimensions"`
	Quantity       int64           `json:"quantity"`
	Currency       string          `json:"currency"`
	Breakdown      pricing.Result  `json:"breakdown"`
	UnitPrice      decimal.Decimal `json:"unitPrice"`
	UnitPriceCents int64           `json:"unitPriceCents"`
	Total          decimal.Decimal `json:"total"`
	TotalCents     int64           `json:"totalCents"`
}

func (s *server) handleCreateQuote(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")

	var req createQuoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Bad Request", "Invalid JSON body: "+err.Error())
		return
	}
	in := quoteInput{Width: req.Width, Height: req.Height, Quantity: 1}
	if req.Quantity != nil {
		in.Quantity = *req.Quantity
	}

	_, baseCents, ok := s.unitPrice(w, r, productID, in)
	if !ok {
		return
	}

	validation, err := options.Validate(r.Context(), s.store, productID, req.Selections, s.cfg.StoreID)
	var selErr *options.SelectionError
	if errors.As(err, &selErr) {
		writeProblem(w, http.StatusBadRequest, "Invalid Option Selection", selErr.Message)
		return
	}
	if err != nil {
		s.serverError(w, r, "failed to validate selections", err)
		return
	}

	breakdown := pricing.CalculateWithOptions(baseCents, validation.Modifiers())
	qty := int64(in.Quantity)
	totalCents, err := pricing.LineTotal(breakdown.TotalCents, qty)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Validation Failed", amountTooLarge)
		return
	}
	q := store.Quote{
		StoreID:        s.cfg.StoreID,
		ProductID:      productID,
		Width:          in.Width,
		Height:         in.Height,
		Quantity:       qty,
		UnitPriceCents: breakdown.TotalCents,
		TotalCents:     totalCents,
		Breakdown:      breakdown,
	}
	id, err := s.store.SaveQuote(r.Context(), q)
	if err != nil {
		s.serverError(w, r, "failed to save quote", err)
		return
	}
	q.ID = id

	s.logger.InfoContext(r.Context(), "quote created",
		"quote_id", id, "product_id", productID, "total_cents", q.TotalCents)
	writeJSON(w, http.StatusCreated, s.quoteView(q))
}

func (s *server) handleListQuotes(w http.ResponseWriter, r *http.Request) {
	productID := strings.TrimSpace(r.URL.Query().Get("productId"))

	quotes, err := s.store.ListQuotes(r.Context(), s.cfg.StoreID, productID)
	if err != nil {
		s.serverError(w, r, "failed to list quotes", err)
		return
	}

	views := make([]quoteResponse, 0, len(quotes))
	for _, q := range quotes {
		views = append(views, s.quoteView(q))
	}
	writeJSON(w, http.StatusOK, map[string]any{"quotes": views})
}

func (s *server) quoteView(q store.Quote) quoteResponse {
	return quoteResponse{
		ID:             q.ID,
		ProductID:      q.ProductID,
		CreatedAt:      q.CreatedAt,
		Dimensions:     dimensionsView{Width: q.Width, Height: q.Height, Unit: s.cfg.Unit},
		Quantity:       q.Quantity,
		Currency:       s.cfg.Currency,
		Breakdown:      q.Breakdown,
		UnitPrice:      pricing.FromCents(q.UnitPriceCents),
		UnitPriceCents: q.UnitPriceCents,
		Total:          pricing.FromCents(q.TotalCents),
		TotalCents:     q.TotalCents,
	}
}
