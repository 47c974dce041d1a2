package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/Simplici0/matrixprice/internal/options"
	"github.com/Simplici0/matrixprice/internal/pricing"
)

// CreateOptionGroup stores a group and its choices. Empty IDs are generated; the
// stored group is returned.
func (s *Store) CreateOptionGroup(ctx context.Context, storeID string, g options.Group) (options.Group, error) {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	choices := make([]options.Choice, len(g.Choices))
	copy(choices, g.Choices)
	g.Choices = choices

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO option_groups (id, store_id, name, requirement) VALUES (?, ?, ?, ?)
		`, g.ID, storeID, g.Name, string(g.Requirement)); err != nil {
			return fmt.Errorf("insert option group: %w", err)
		}

		for i := range g.Choices {
			c := &g.Choices[i]
			if c.ID == "" {
				c.ID = uuid.NewString()
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO option_choices (id, group_id, label, modifier_type, modifier_value, is_default, sort_order)
				VALUES (?, ?, ?, ?, ?, ?, ?)
			`, c.ID, g.ID, c.Label, string(c.ModifierType), c.ModifierValue, c.IsDefault, i); err != nil {
				return fmt.Errorf("insert option choice %q: %w", c.Label, err)
			}
		}
		return nil
	})
	if err != nil {
		return options.Group{}, err
	}
	return g, nil
}

// AssignOptionGroup attaches a group to a product at the given display position.
func (s *Store) AssignOptionGroup(ctx context.Context, storeID, productID, groupID string, sortOrder int) error {
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
			SELECT EXISTS(SELECT 1 FROM option_groups WHERE id = ? AND store_id = ?)
		`, groupID, storeID).Scan(&owned); err != nil {
			return fmt.Errorf("check option group ownership: %w", err)
		}
		if !owned {
			return fmt.Errorf("option group %s: %w", groupID, ErrNotFound)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO product_option_groups (product_id, group_id, sort_order) VALUES (?, ?, ?)
			ON CONFLICT(product_id, group_id) DO UPDATE SET sort_order = excluded.sort_order
		`, productID, groupID, sortOrder); err != nil {
			return fmt.Errorf("assign option group: %w", err)
		}
		return nil
	})
}

// ProductOptionGroups returns the groups assigned to a product with their choices,
// in assignment order. An unknown product, or one owned by another store, yields
// options.ErrProductNotFound; a known product without groups yields an empty slice.
func (s *Store) ProductOptionGroups(ctx context.Context, productID, storeID string) ([]options.Group, error) {
	ok, err := s.productExists(ctx, s.conn(), productID, storeID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, options.ErrProductNotFound
	}

	rows, err := s.conn().QueryContext(ctx, `
		SELECT g.id, g.name, g.requirement, c.id, c.label, c.modifier_type, c.modifier_value, c.is_default
		FROM product_option_groups pog
		JOIN option_groups g ON g.id = pog.group_id AND g.store_id = ?
		LEFT JOIN option_choices c ON c.group_id = g.id
		WHERE pog.product_id = ?
		ORDER BY pog.sort_order, g.id, c.sort_order, c.id
	`, storeID, productID)
	if err != nil {
		return nil, fmt.Errorf("query option groups: %w", err)
	}
	defer rows.Close()

	groups := make([]options.Group, 0)
	for rows.Next() {
		var (
			groupID, name, requirement string
			choiceID, label, modType   sql.NullString
			modValue                   sql.NullInt64
			isDefault                  sql.NullBool
		)
		if err := rows.Scan(&groupID, &name, &requirement, &choiceID, &label, &modType, &modValue, &isDefault); err != nil {
			return nil, fmt.Errorf("scan option group: %w", err)
		}

		if len(groups) == 0 || groups[len(groups)-1].ID != groupID {
			req, err := options.ParseRequirement(requirement)
			if err != nil {
				return nil, fmt.Errorf("option group %s: %w", groupID, err)
			}
			groups = append(groups, options.Group{ID: groupID, Name: name, Requirement: req, Choices: []options.Choice{}})
		}
		if !choiceID.Valid {
			continue
		}

		mt, err := pricing.ParseModifierType(modType.String)
		if err != nil {
			return nil, fmt.Errorf("option choice %s: %w", choiceID.String, err)
		}
		g := &groups[len(groups)-1]
		g.Choices = append(g.Choices, options.Choice{
			ID:            choiceID.String,
			Label:         label.String,
			ModifierType:  mt,
			ModifierValue: modValue.Int64,
			IsDefault:     isDefault.Bool,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate option groups: %w", err)
	}
	return groups, nil
}

var _ options.GroupSource = (*Store)(nil)
