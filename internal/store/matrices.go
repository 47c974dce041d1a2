package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Simplici0/matrixprice/internal/matrix"
)

// MatrixSummary describes a stored matrix without its grid.
type MatrixSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	WidthCount  int    `json:"widthCount"`
	HeightCount int    `json:"heightCount"`
	CellCount   int    `json:"cellCount"`
}

// ProductMatrix is the matrix assigned to a product, ready for price lookup.
type ProductMatrix struct {
	MatrixID     string
	MatrixName   string
	ProductTitle string
	Data         matrix.Data
	Range        matrix.DimensionRange
}

// CreateMatrix stores a new matrix and its grid, returning the generated ID.
func (s *Store) CreateMatrix(ctx context.Context, storeID, name string, data matrix.Data) (string, error) {
	id := uuid.NewString()
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO matrices (id, store_id, name) VALUES (?, ?, ?)
		`, id, storeID, name); err != nil {
			return fmt.Errorf("insert matrix: %w", err)
		}
		return writeGrid(ctx, tx, id, data)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// ReplaceMatrixGrid swaps the breakpoints and cells of an existing matrix.
func (s *Store) ReplaceMatrixGrid(ctx context.Context, storeID, matrixID string, data matrix.Data) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE matrices SET updated_at = CURRENT_TIMESTAMP WHERE id = ? AND store_id = ?
		`, matrixID, storeID)
		if err != nil {
			return fmt.Errorf("touch matrix: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("touch matrix: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("matrix %s: %w", matrixID, ErrNotFound)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM cells WHERE matrix_id = ?`, matrixID); err != nil {
			return fmt.Errorf("delete cells: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM breakpoints WHERE matrix_id = ?`, matrixID); err != nil {
			return fmt.Errorf("delete breakpoints: %w", err)
		}
		return writeGrid(ctx, tx, matrixID, data)
	})
}

func writeGrid(ctx context.Context, tx *sql.Tx, matrixID string, data matrix.Data) error {
	bpStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO breakpoints (matrix_id, axis, position, value) VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare breakpoint insert: %w", err)
	}
	defer bpStmt.Close()

	for _, axis := range [][]matrix.Breakpoint{data.WidthBreakpoints, data.HeightBreakpoints} {
		for _, bp := range axis {
			if _, err := bpStmt.ExecContext(ctx, matrixID, string(bp.Axis), bp.Position, bp.Value); err != nil {
				return fmt.Errorf("insert %s breakpoint %d: %w", bp.Axis, bp.Position, err)
			}
		}
	}

	cellStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cells (matrix_id, width_position, height_position, price) VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare cell insert: %w", err)
	}
	defer cellStmt.Close()

	for _, c := range data.CellList() {
		if _, err := cellStmt.ExecContext(ctx, matrixID, c.WidthPosition, c.HeightPosition, c.Price.String()); err != nil {
			return fmt.Errorf("insert cell (%d, %d): %w", c.WidthPosition, c.HeightPosition, err)
		}
	}
	return nil
}

// ListMatrices returns the store's matrices, newest first.
func (s *Store) ListMatrices(ctx context.Context, storeID string) ([]MatrixSummary, error) {
	rows, err := s.conn().QueryContext(ctx, `
		SELECT
			m.id,
			m.name,
			(SELECT COUNT(*) FROM breakpoints b WHERE b.matrix_id = m.id AND b.axis = 'width'),
			(SELECT COUNT(*) FROM breakpoints b WHERE b.matrix_id = m.id AND b.axis = 'height'),
			(SELECT COUNT(*) FROM cells c WHERE c.matrix_id = m.id)
		FROM matrices m
		WHERE m.store_id = ?
		ORDER BY datetime(m.created_at) DESC, m.id
	`, storeID)
	if err != nil {
		return nil, fmt.Errorf("query matrices: %w", err)
	}
	defer rows.Close()

	matrices := make([]MatrixSummary, 0)
	for rows.Next() {
		var m MatrixSummary
		if err := rows.Scan(&m.ID, &m.Name, &m.WidthCount, &m.HeightCount, &m.CellCount); err != nil {
			return nil, fmt.Errorf("scan matrix: %w", err)
		}
		matrices = append(matrices, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate matrices: %w", err)
	}
	return matrices, nil
}

// AssignMatrix attaches a matrix to a product, replacing any previous assignment.
// Both must belong to storeID.
func (s *Store) AssignMatrix(ctx context.Context, storeID, productID, matrixID string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		ok, err := s.productExists(ctx, tx, productID, storeID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("product %s: %w", productID, ErrNotFound)
		}

		var owned bool
		if err := tx.QueryRowContext(ctx, `
			SELECT EXISTS(SELECT 1 FROM matrices WHERE id = ? AND store_id = ?)
		`, matrixID, storeID).Scan(&owned); err != nil {
			return fmt.Errorf("check matrix ownership: %w", err)
		}
		if !owned {
			return fmt.Errorf("matrix %s: %w", matrixID, ErrNotFound)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO product_matrices (product_id, matrix_id) VALUES (?, ?)
			ON CONFLICT(product_id) DO UPDATE SET matrix_id = excluded.matrix_id
		`, productID, matrixID); err != nil {
			return fmt.Errorf("assign matrix: %w", err)
		}
		return nil
	})
}

// LookupProductMatrix loads the matrix assigned to a product. ErrNotFound covers
// both an unassigned product and a matrix owned by another store.
func (s *Store) LookupProductMatrix(ctx context.Context, productID, storeID string) (ProductMatrix, error) {
	var pm ProductMatrix
	err := s.conn().QueryRowContext(ctx, `
		SELECT m.id, m.name, p.title
		FROM product_matrices pm
		JOIN matrices m ON m.id = pm.matrix_id
		JOIN products p ON p.id = pm.product_id
		WHERE pm.product_id = ? AND m.store_id = ?
	`, productID, storeID).Scan(&pm.MatrixID, &pm.MatrixName, &pm.ProductTitle)
	if errors.Is(err, sql.ErrNoRows) {
		return ProductMatrix{}, fmt.Errorf("matrix for product %s: %w", productID, ErrNotFound)
	}
	if err != nil {
		return ProductMatrix{}, fmt.Errorf("query product matrix: %w", err)
	}

	data, err := s.loadMatrixData(ctx, pm.MatrixID)
	if err != nil {
		return ProductMatrix{}, err
	}
	pm.Data = data
	pm.Range = data.Range()
	return pm, nil
}

// loadMatrixData rebuilds the lookup shape: breakpoints split by axis and ordered
// by position, cells keyed by position pair.
func (s *Store) loadMatrixData(ctx context.Context, matrixID string) (matrix.Data, error) {
	rows, err := s.conn().QueryContext(ctx, `
		SELECT axis, position, value
		FROM breakpoints
		WHERE matrix_id = ?
		ORDER BY axis, position
	`, matrixID)
	if err != nil {
		return matrix.Data{}, fmt.Errorf("query breakpoints: %w", err)
	}
	defer rows.Close()

	data := matrix.Data{
		WidthBreakpoints:  []matrix.Breakpoint{},
		HeightBreakpoints: []matrix.Breakpoint{},
		Cells:             map[matrix.CellKey]decimal.Decimal{},
	}
	for rows.Next() {
		var bp matrix.Breakpoint
		var axis string
		if err := rows.Scan(&axis, &bp.Position, &bp.Value); err != nil {
			return matrix.Data{}, fmt.Errorf("scan breakpoint: %w", err)
		}
		bp.Axis = matrix.Axis(axis)
		switch bp.Axis {
		case matrix.AxisWidth:
			data.WidthBreakpoints = append(data.WidthBreakpoints, bp)
		case matrix.AxisHeight:
			data.HeightBreakpoints = append(data.HeightBreakpoints, bp)
		}
	}
	if err := rows.Err(); err != nil {
		return matrix.Data{}, fmt.Errorf("iterate breakpoints: %w", err)
	}

	cellRows, err := s.conn().QueryContext(ctx, `
		SELECT width_position, height_position, price
		FROM cells
		WHERE matrix_id = ?
	`, matrixID)
	if err != nil {
		return matrix.Data{}, fmt.Errorf("query cells: %w", err)
	}
	defer cellRows.Close()

	for cellRows.Next() {
		var key matrix.CellKey
		var price decimal.Decimal
		if err := cellRows.Scan(&key.Width, &key.Height, &price); err != nil {
			return matrix.Data{}, fmt.Errorf("scan cell: %w", err)
		}
		data.Cells[key] = price
	}
	if err := cellRows.Err(); err != nil {
		return matrix.Data{}, fmt.Errorf("iterate cells: %w", err)
	}

	return data, nil
}
