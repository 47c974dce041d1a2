package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Simplici0/matrixprice/internal/csvmatrix"
	"github.com/Simplici0/matrixprice/internal/db"
	"github.com/Simplici0/matrixprice/internal/matrix"
	"github.com/Simplici0/matrixprice/internal/migrations"
	"github.com/Simplici0/matrixprice/internal/options"
	"github.com/Simplici0/matrixprice/internal/pricing"
)

const testStore = "store-1"

func newTestStore(t *testing.T) *Store {
	t.Helper()

	ctx := context.Background()
	database, err := db.Open(ctx, filepath.Join(t.TempDir(), "store-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	_, err = migrations.Up(ctx, database)
	require.NoError(t, err)

	return New(database)
}

func seedMatrixProduct(t *testing.T, s *Store) string {
	t.Helper()
	ctx := context.Background()

	parsed := csvmatrix.Parse("width,height,price\n300,200,10\n600,200,15\n300,400,25\n600,400,30\n")
	require.True(t, parsed.Success)

	matrixID, err := s.CreateMatrix(ctx, testStore, "Blinds", parsed.MatrixData())
	require.NoError(t, err)
	require.NoError(t, s.UpsertProduct(ctx, Product{ID: "prod-1", StoreID: testStore, Title: "Roller blind"}))
	require.NoError(t, s.AssignMatrix(ctx, testStore, "prod-1", matrixID))
	return matrixID
}

func TestLookupProductMatrix_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	matrixID := seedMatrixProduct(t, s)

	pm, err := s.LookupProductMatrix(context.Background(), "prod-1", testStore)
	require.NoError(t, err)
	require.Equal(t, matrixID, pm.MatrixID)
	require.Equal(t, "Blinds", pm.MatrixName)
	require.Equal(t, "Roller blind", pm.ProductTitle)
	require.Equal(t, matrix.DimensionRange{MinWidth: 300, MaxWidth: 600, MinHeight: 200, MaxHeight: 400}, pm.Range)

	require.Len(t, pm.Data.WidthBreakpoints, 2)
	require.Equal(t, matrix.AxisWidth, pm.Data.WidthBreakpoints[0].Axis)
	require.Equal(t, 1, pm.Data.HeightBreakpoints[1].Position)
	require.Len(t, pm.Data.Cells, 4)

	price, err := matrix.CalculatePrice(450, 201, pm.Data)
	require.NoError(t, err)
	require.True(t, price.Equal(decimal.NewFromInt(30)))
}

func TestLookupProductMatrix_OtherStoreIsNotFound(t *testing.T) {
	s := newTestStore(t)
	seedMatrixProduct(t, s)

	_, err := s.LookupProductMatrix(context.Background(), "prod-1", "store-2")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = s.LookupProductMatrix(context.Background(), "missing", testStore)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreateMatrix_PreservesDecimalPrices(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	parsed := csvmatrix.Parse("100,200,10.00\n100,200,99.99\n")
	matrixID, err := s.CreateMatrix(ctx, testStore, "Exact", parsed.MatrixData())
	require.NoError(t, err)

	data, err := s.loadMatrixData(ctx, matrixID)
	require.NoError(t, err)
	require.Equal(t, "99.99", data.Cells[matrix.CellKey{}].String())
}

func TestReplaceMatrixGrid(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	matrixID := seedMatrixProduct(t, s)

	replacement := csvmatrix.Parse("500,500,77\n").MatrixData()
	require.NoError(t, s.ReplaceMatrixGrid(ctx, testStore, matrixID, replacement))

	pm, err := s.LookupProductMatrix(ctx, "prod-1", testStore)
	require.NoError(t, err)
	require.Len(t, pm.Data.Cells, 1)
	require.Equal(t, 500.0, pm.Data.WidthBreakpoints[0].Value)

	err = s.ReplaceMatrixGrid(ctx, "store-2", matrixID, replacement)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestInTx_RollsBackEveryWrite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.InTx(ctx, func(tx *Store) error {
		parsed := csvmatrix.Parse("100,100,5\n")
		matrixID, err := tx.CreateMatrix(ctx, testStore, "Draft", parsed.MatrixData())
		require.NoError(t, err)
		require.NoError(t, tx.UpsertProduct(ctx, Product{ID: "prod-tx", StoreID: testStore, Title: "Draft"}))
		require.NoError(t, tx.AssignMatrix(ctx, testStore, "prod-tx", matrixID))

		pm, err := tx.LookupProductMatrix(ctx, "prod-tx", testStore)
		require.NoError(t, err)
		require.Equal(t, matrixID, pm.MatrixID)
		return boom
	})
	require.ErrorIs(t, err, boom)

	list, err := s.ListMatrices(ctx, testStore)
	require.NoError(t, err)
	require.Empty(t, list)

	_, err = s.LookupProductMatrix(ctx, "prod-tx", testStore)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestInTx_Commits(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InTx(ctx, func(tx *Store) error {
		return tx.UpsertProduct(ctx, Product{ID: "prod-tx", StoreID: testStore, Title: "Kept"})
	}))

	groups, err := s.ProductOptionGroups(ctx, "prod-tx", testStore)
	require.NoError(t, err)
	require.Empty(t, groups)
}

func TestListMatrices(t *testing.T) {
	s := newTestStore(t)
	seedMatrixProduct(t, s)

	list, err := s.ListMatrices(context.Background(), testStore)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, MatrixSummary{ID: list[0].ID, Name: "Blinds", WidthCount: 2, HeightCount: 2, CellCount: 4}, list[0])

	other, err := s.ListMatrices(context.Background(), "store-2")
	require.NoError(t, err)
	require.Empty(t, other)
}

func TestAssignMatrix_RejectsForeignRecords(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	matrixID := seedMatrixProduct(t, s)

	require.NoError(t, s.UpsertProduct(ctx, Product{ID: "prod-2", StoreID: "store-2"}))

	err := s.AssignMatrix(ctx, "store-2", "prod-2", matrixID)
	require.ErrorIs(t, err, ErrNotFound)

	err = s.AssignMatrix(ctx, testStore, "prod-2", matrixID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpsertProduct_OtherStoreConflict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertProduct(ctx, Product{ID: "prod-1", StoreID: testStore, Title: "A"}))
	require.NoError(t, s.UpsertProduct(ctx, Product{ID: "prod-1", StoreID: testStore, Title: "B"}))

	err := s.UpsertProduct(ctx, Product{ID: "prod-1", StoreID: "store-2", Title: "C"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestProductOptionGroups(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedMatrixProduct(t, s)

	glass, err := s.CreateOptionGroup(ctx, testStore, options.Group{
		Name:        "Glass",
		Requirement: options.Required,
		Choices: []options.Choice{
			{Label: "Clear", ModifierType: pricing.Fixed, ModifierValue: 0, IsDefault: true},
			{Label: "Tempered", ModifierType: pricing.Fixed, ModifierValue: 500},
		},
	})
	require.NoError(t, err)
	require.NotEmpty(t, glass.ID)
	require.NotEmpty(t, glass.Choices[1].ID)

	finish, err := s.CreateOptionGroup(ctx, testStore, options.Group{
		Name:        "Finish",
		Requirement: options.Optional,
	})
	require.NoError(t, err)

	require.NoError(t, s.AssignOptionGroup(ctx, testStore, "prod-1", finish.ID, 1))
	require.NoError(t, s.AssignOptionGroup(ctx, testStore, "prod-1", glass.ID, 0))

	groups, err := s.ProductOptionGroups(ctx, "prod-1", testStore)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	require.Equal(t, glass, groups[0])
	require.Equal(t, "Finish", groups[1].Name)
	require.Empty(t, groups[1].Choices)
}

func TestProductOptionGroups_UnknownProduct(t *testing.T) {
	s := newTestStore(t)

	_, err := s.ProductOptionGroups(context.Background(), "nope", testStore)
	require.True(t, errors.Is(err, options.ErrProductNotFound))
}

func TestProductOptionGroups_ProductWithoutGroups(t *testing.T) {
	s := newTestStore(t)
	seedMatrixProduct(t, s)

	groups, err := s.ProductOptionGroups(context.Background(), "prod-1", testStore)
	require.NoError(t, err)
	require.NotNil(t, groups)
	require.Empty(t, groups)
}

func TestProductOptionGroups_FeedsValidator(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedMatrixProduct(t, s)

	g, err := s.CreateOptionGroup(ctx, testStore, options.Group{
		Name:        "Coating",
		Requirement: options.Required,
		Choices:     []options.Choice{{Label: "UV", ModifierType: pricing.Percentage, ModifierValue: 1000}},
	})
	require.NoError(t, err)
	require.NoError(t, s.AssignOptionGroup(ctx, testStore, "prod-1", g.ID, 0))

	v, err := options.Validate(ctx, s, "prod-1", []options.Selection{{GroupID: g.ID, ChoiceID: g.Choices[0].ID}}, testStore)
	require.NoError(t, err)
	require.Equal(t, int64(1100), pricing.CalculateWithOptions(1000, v.Modifiers()).TotalCents)
}

func TestSaveAndListQuotes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	breakdown := pricing.CalculateWithOptions(1000, []pricing.Modifier{{Type: pricing.Percentage, Value: 1000, Label: "UV"}})
	id, err := s.SaveQuote(ctx, Quote{
		StoreID:        testStore,
		ProductID:      "prod-1",
		Width:          450,
		Height:         300,
		Quantity:       2,
		UnitPriceCents: breakdown.TotalCents,
		TotalCents:     breakdown.TotalCents * 2,
		Breakdown:      breakdown,
	})
	require.NoError(t, err)

	_, err = s.SaveQuote(ctx, Quote{StoreID: testStore, ProductID: "prod-2", Quantity: 1, Breakdown: pricing.CalculateWithOptions(5, nil)})
	require.NoError(t, err)

	all, err := s.ListQuotes(ctx, testStore, "")
	require.NoError(t, err)
	require.Len(t, all, 2)

	filtered, err := s.ListQuotes(ctx, testStore, "prod-1")
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	require.Equal(t, id, filtered[0].ID)
	require.Equal(t, int64(2200), filtered[0].TotalCents)
	require.Equal(t, breakdown, filtered[0].Breakdown)
	require.False(t, filtered[0].CreatedAt.IsZero())

	none, err := s.ListQuotes(ctx, "store-2", "")
	require.NoError(t, err)
	require.Empty(t, none)
}
