// Package options models option groups attached to products and validates a
// shopper's choices against them.
package options

import (
	"context"
	"errors"
	"fmt"

	"github.com/Simplici0/matrixprice/internal/pricing"
)

// Requirement says whether a group needs a selection.
type Requirement string

const (
	Required Requirement = "REQUIRED"
	Optional Requirement = "OPTIONAL"
)

// ParseRequirement validates a stored or submitted requirement value.
func ParseRequirement(raw string) (Requirement, error) {
	switch r := Requirement(raw); r {
	case Required, Optional:
		return r, nil
	default:
		return "", fmt.Errorf("unknown requirement %q", raw)
	}
}

// Choice is one selectable value in a group together with its price modifier.
type Choice struct {
	ID            string               `json:"id"`
	Label         string               `json:"label"`
	ModifierType  pricing.ModifierType `json:"modifierType"`
	ModifierValue int64                `json:"modifierValue"`
	IsDefault     bool                 `json:"isDefault"`
}

// Modifier returns the price modifier the choice applies.
func (c Choice) Modifier() pricing.Modifier {
	return pricing.Modifier{Type: c.ModifierType, Value: c.ModifierValue, Label: c.Label}
}

// Group is a named set of choices assigned to a product.
type Group struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Requirement Requirement `json:"requirement"`
	Choices     []Choice    `json:"choices"`
}

// Selection picks one choice from one group.
type Selection struct {
	GroupID  string `json:"optionGroupId"`
	ChoiceID string `json:"choiceId"`
}

// ErrProductNotFound is returned by a GroupSource when the product is unknown or
// belongs to another store.
var ErrProductNotFound = errors.New("product not found")

// GroupSource supplies the option groups assigned to a product.
type GroupSource interface {
	ProductOptionGroups(ctx context.Context, productID, storeID string) ([]Group, error)
}
