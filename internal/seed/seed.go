package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/Simplici0/matrixprice/internal/csvmatrix"
	"github.com/Simplici0/matrixprice/internal/options"
	"github.com/Simplici0/matrixprice/internal/pricing"
	"github.com/Simplici0/matrixprice/internal/store"
)

const (
	DemoProductID    = "demo-roller-blind"
	demoProductTitle = "Roller blind (demo)"
	demoMatrixName   = "Roller blinds"
)

// demoMatrixCSV is a 3x3 grid priced in currency units.
const demoMatrixCSV = `width,height,price
30,50,19.90
60,50,29.90
90,50,39.90
30,100,34.90
60,100,49.90
90,100,64.90
30,150,49.90
60,150,69.90
90,150,89.90
`

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
}

// Run seeds a demo product with a matrix and option groups for storeID in one
// transaction. It is idempotent: a product that already has a matrix or groups is
// left alone.
func Run(ctx context.Context, st *store.Store, storeID string) (Stats, error) {
	stats := Stats{}

	err := st.InTx(ctx, func(tx *store.Store) error {
		if err := ensureMatrix(ctx, tx, storeID, &stats); err != nil {
			return err
		}
		return ensureOptionGroups(ctx, tx, storeID, &stats)
	})
	if err != nil {
		return Stats{}, err
	}

	return stats, nil
}

func ensureMatrix(ctx context.Context, st *store.Store, storeID string, stats *Stats) error {
	_, err := st.LookupProductMatrix(ctx, DemoProductID, storeID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("check demo matrix: %w", err)
	}

	parsed := csvmatrix.Parse(demoMatrixCSV)
	if !parsed.Success || len(parsed.Errors) > 0 {
		return fmt.Errorf("parse demo matrix: %+v", parsed.Errors)
	}

	if err := st.UpsertProduct(ctx, store.Product{ID: DemoProductID, StoreID: storeID, Title: demoProductTitle}); err != nil {
		return fmt.Errorf("insert demo product: %w", err)
	}
	stats.Inserts++

	matrixID, err := st.CreateMatrix(ctx, storeID, demoMatrixName, parsed.MatrixData())
	if err != nil {
		return fmt.Errorf("insert demo matrix: %w", err)
	}
	stats.Inserts++

	if err := st.AssignMatrix(ctx, storeID, DemoProductID, matrixID); err != nil {
		return fmt.Errorf("assign demo matrix: %w", err)
	}
	stats.Inserts++
	return nil
}

func ensureOptionGroups(ctx context.Context, st *store.Store, storeID string, stats *Stats) error {
	existing, err := st.ProductOptionGroups(ctx, DemoProductID, storeID)
	if err != nil {
		return fmt.Errorf("check demo option groups: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	groups := []options.Group{
		{
			Name:        "Fabric",
			Requirement: options.Required,
			Choices: []options.Choice{
				{Label: "Standard", ModifierType: pricing.Fixed, ModifierValue: 0, IsDefault: true},
				{Label: "Blackout", ModifierType: pricing.Percentage, ModifierValue: 1500},
				{Label: "Economy", ModifierType: pricing.Percentage, ModifierValue: -1000},
			},
		},
		{
			Name:        "Mounting kit",
			Requirement: options.Optional,
			Choices: []options.Choice{
				{Label: "Ceiling brackets", ModifierType: pricing.Fixed, ModifierValue: 450},
				{Label: "Wall brackets", ModifierType: pricing.Fixed, ModifierValue: 350},
			},
		},
	}

	for i, g := range groups {
		created, err := st.CreateOptionGroup(ctx, storeID, g)
		if err != nil {
			return fmt.Errorf("insert option group %q: %w", g.Name, err)
		}
		stats.Inserts++

		if err := st.AssignOptionGroup(ctx, storeID, DemoProductID, created.ID, i); err != nil {
			return fmt.Errorf("assign option group %q: %w", g.Name, err)
		}
		stats.Inserts++
	}
	return nil
}
