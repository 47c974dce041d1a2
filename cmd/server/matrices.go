package main

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Simplici0/matrixprice/internal/csvmatrix"
	"github.com/Simplici0/matrixprice/internal/matrix"
	"github.com/Simplici0/matrixprice/internal/options"
	"github.com/Simplici0/matrixprice/internal/pricing"
	"github.com/Simplici0/matrixprice/internal/store"
)

// importReport is the JSON form of a CSV parse result.
type importReport struct {
	MatrixID  string               `json:"matrixId,omitempty"`
	Success   bool                 `json:"success"`
	Widths    []float64            `json:"widths"`
	Heights   []float64            `json:"heights"`
	Cells     []matrix.Cell        `json:"cells"`
	Errors    []csvmatrix.RowError `json:"errors"`
	TotalRows int                  `json:"totalRows"`
	ValidRows int                  `json:"validRows"`
}

func newImportReport(res csvmatrix.Result) importReport {
	report := importReport{
		Success:   res.Success,
		Widths:    res.Widths,
		Heights:   res.Heights,
		Cells:     res.MatrixData().CellList(),
		Errors:    res.Errors,
		TotalRows: res.TotalRows,
		ValidRows: res.ValidRows,
	}
	if report.Widths == nil {
		report.Widths = []float64{}
	}
	if report.Heights == nil {
		report.Heights = []float64{}
	}
	if report.Errors == nil {
		report.Errors = []csvmatrix.RowError{}
	}
	return report
}

// readUpload returns the CSV text from a multipart "file" field or the raw body.
// At most one byte past the parser limit is read so oversized uploads still fail
// the size check.
func readUpload(r *http.Request) (string, error) {
	var src io.Reader = r.Body
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(csvmatrix.MaxContentBytes); err != nil {
			return "", fmt.Errorf("parse multipart form: %w", err)
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			return "", fmt.Errorf("read form file: %w", err)
		}
		defer file.Close()
		src = file
	}

	body, err := io.ReadAll(io.LimitReader(src, csvmatrix.MaxContentBytes+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	return string(body), nil
}

// handleImportMatrix parses an uploaded CSV. Without a name the report is a
// preview; with one, a successful parse is saved as a new matrix.
func (s *server) handleImportMatrix(w http.ResponseWriter, r *http.Request) {
	content, err := readUpload(r)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	res := csvmatrix.Parse(content)
	report := newImportReport(res)
	if !res.Success {
		writeJSON(w, http.StatusUnprocessableEntity, report)
		return
	}

	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		writeJSON(w, http.StatusOK, report)
		return
	}

	id, err := s.store.CreateMatrix(r.Context(), s.cfg.StoreID, name, res.MatrixData())
	if err != nil {
		s.serverError(w, r, "failed to create matrix", err)
		return
	}
	report.MatrixID = id
	s.logger.InfoContext(r.Context(), "matrix imported",
		"matrix_id", id, "name", name, "valid_rows", res.ValidRows, "row_errors", len(res.Errors))
	writeJSON(w, http.StatusCreated, report)
}

func (s *server) handleReplaceMatrixGrid(w http.ResponseWriter, r *http.Request) {
	matrixID := chi.URLParam(r, "matrixID")

	content, err := readUpload(r)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	res := csvmatrix.Parse(content)
	report := newImportReport(res)
	if !res.Success {
		writeJSON(w, http.StatusUnprocessableEntity, report)
		return
	}

	err = s.store.ReplaceMatrixGrid(r.Context(), s.cfg.StoreID, matrixID, res.MatrixData())
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Not Found", "Matrix not found")
		return
	}
	if err != nil {
		s.serverError(w, r, "failed to replace matrix grid", err)
		return
	}
	report.MatrixID = matrixID
	writeJSON(w, http.StatusOK, report)
}

func (s *server) handleListMatrices(w http.ResponseWriter, r *http.Request) {
	matrices, err := s.store.ListMatrices(r.Context(), s.cfg.StoreID)
	if err != nil {
		s.serverError(w, r, "failed to list matrices", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"matrices": matrices})
}

type upsertProductRequest struct {
	Title string `json:"title"`
}

func (s *server) handleUpsertProduct(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")

	var req upsertProductRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Bad Request", "Invalid JSON body: "+err.Error())
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeFieldProblem(w, http.StatusBadRequest, "Validation Failed", "Request body failed validation",
			map[string][]string{"title": {"title is required"}})
		return
	}

	err := s.store.UpsertProduct(r.Context(), store.Product{ID: productID, StoreID: s.cfg.StoreID, Title: req.Title})
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Not Found", "Product not found or not authorized")
		return
	}
	if err != nil {
		s.serverError(w, r, "failed to upsert product", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": productID, "title": req.Title})
}

type assignMatrixRequest struct {
	MatrixID string `json:"matrixId"`
}

func (s *server) handleAssignMatrix(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")

	var req assignMatrixRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Bad Request", "Invalid JSON body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.MatrixID) == "" {
		writeFieldProblem(w, http.StatusBadRequest, "Validation Failed", "Request body failed validation",
			map[string][]string{"matrixId": {"matrixId is required"}})
		return
	}

	err := s.store.AssignMatrix(r.Context(), s.cfg.StoreID, productID, req.MatrixID)
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Not Found", "Product or matrix not found")
		return
	}
	if err != nil {
		s.serverError(w, r, "failed to assign matrix", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"productId": productID, "matrixId": req.MatrixID})
}

type choiceRequest struct {
	Label         string `json:"label"`
	ModifierType  string `json:"modifierType"`
	ModifierValue int64  `json:"modifierValue"`
	IsDefault     bool   `json:"isDefault"`
}

type createOptionGroupRequest struct {
	Name        string          `json:"name"`
	Requirement string          `json:"requirement"`
	Choices     []choiceRequest `json:"choices"`
}

// group converts the request, collecting every field problem.
func (req createOptionGroupRequest) group() (options.Group, map[string][]string) {
	fieldErrors := map[string][]string{}
	g := options.Group{Name: strings.TrimSpace(req.Name)}
	if g.Name == "" {
		fieldErrors["name"] = append(fieldErrors["name"], "name is required")
	}

	req.Requirement = strings.ToUpper(strings.TrimSpace(req.Requirement))
	if req.Requirement == "" {
		req.Requirement = string(options.Optional)
	}
	requirement, err := options.ParseRequirement(req.Requirement)
	if err != nil {
		fieldErrors["requirement"] = append(fieldErrors["requirement"], err.Error())
	}
	g.Requirement = requirement

	if len(req.Choices) == 0 {
		fieldErrors["choices"] = append(fieldErrors["choices"], "at least one choice is required")
	}
	for i, c := range req.Choices {
		key := fmt.Sprintf("choices[%d]", i)
		label := strings.TrimSpace(c.Label)
		if label == "" {
			fieldErrors[key] = append(fieldErrors[key], "label is required")
		}
		mt, err := pricing.ParseModifierType(strings.ToUpper(strings.TrimSpace(c.ModifierType)))
		if err != nil {
			fieldErrors[key] = append(fieldErrors[key], err.Error())
		}
		g.Choices = append(g.Choices, options.Choice{
			Label:         label,
			ModifierType:  mt,
			ModifierValue: c.ModifierValue,
			IsDefault:     c.IsDefault,
		})
	}
	return g, fieldErrors
}

func (s *server) handleCreateOptionGroup(w http.ResponseWriter, r *http.Request) {
	var req createOptionGroupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Bad Request", "Invalid JSON body: "+err.Error())
		return
	}

	g, fieldErrors := req.group()
	if len(fieldErrors) > 0 {
		writeFieldProblem(w, http.StatusBadRequest, "Validation Failed", describeFields(fieldErrors), fieldErrors)
		return
	}

	created, err := s.store.CreateOptionGroup(r.Context(), s.cfg.StoreID, g)
	if err != nil {
		s.serverError(w, r, "failed to create option group", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

type assignOptionGroupRequest struct {
	SortOrder int `json:"sortOrder"`
}

func (s *server) handleAssignOptionGroup(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	groupID := chi.URLParam(r, "groupID")

	var req assignOptionGroupRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
			writeProblem(w, http.StatusBadRequest, "Bad Request", "Invalid JSON body: "+err.Error())
			return
		}
	}

	err := s.store.AssignOptionGroup(r.Context(), s.cfg.StoreID, productID, groupID, req.SortOrder)
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Not Found", "Product or option group not found")
		return
	}
	if err != nil {
		s.serverError(w, r, "failed to assign option group", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"productId": productID, "optionGroupId": groupID, "sortOrder": req.SortOrder})
}

// describeFields renders field errors as a stable one-line detail.
func describeFields(fieldErrors map[string][]string) string {
	keys := make([]string, 0, len(fieldErrors))
	for k := range fieldErrors {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(fieldErrors[k], ", "))
	}
	return strings.Join(parts, "; ")
}
