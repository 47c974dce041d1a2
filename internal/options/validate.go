package options

import (
	"context"
	"errors"
	"fmt"

	"github.com/Simplici0/matrixprice/internal/pricing"
)

// Kind identifies which selection rule failed.
type Kind int

const (
	KindProductNotFound Kind = iota + 1
	KindGroupNotAssigned
	KindChoiceNotInGroup
	KindDuplicateGroup
	KindRequiredMissing
)

func (k Kind) String() string {
	switch k {
	case KindProductNotFound:
		return "product_not_found"
	case KindGroupNotAssigned:
		return "group_not_assigned"
	case KindChoiceNotInGroup:
		return "choice_not_in_group"
	case KindDuplicateGroup:
		return "duplicate_group"
	case KindRequiredMissing:
		return "required_missing"
	default:
		return "unknown"
	}
}

// SelectionError is the first rule a set of selections violated.
type SelectionError struct {
	Kind    Kind
	Message string
}

func (e *SelectionError) Error() string {
	return e.Message
}

// Validation is a successful validation: the product's groups and the chosen
// choices in selection order.
type Validation struct {
	Groups   []Group
	Selected []Choice
}

// Modifiers returns the price modifiers of the selected choices in selection order.
func (v Validation) Modifiers() []pricing.Modifier {
	mods := make([]pricing.Modifier, len(v.Selected))
	for i, c := range v.Selected {
		mods[i] = c.Modifier()
	}
	return mods
}

// Validate checks selections against the product's groups. Rules are applied in
// order across all selections and the first violation is returned as a
// *SelectionError: product lookup, group assignment, choice membership, one choice
// per group, then required groups. Errors from src other than ErrProductNotFound
// are returned wrapped.
func Validate(ctx context.Context, src GroupSource, productID string, selections []Selection, storeID string) (Validation, error) {
	groups, err := src.ProductOptionGroups(ctx, productID, storeID)
	if errors.Is(err, ErrProductNotFound) {
		return Validation{}, &SelectionError{Kind: KindProductNotFound, Message: "Product not found or not authorized"}
	}
	if err != nil {
		return Validation{}, fmt.Errorf("load option groups: %w", err)
	}

	byID := make(map[string]Group, len(groups))
	choices := make(map[string]map[string]Choice, len(groups))
	for _, g := range groups {
		byID[g.ID] = g
		cs := make(map[string]Choice, len(g.Choices))
		for _, c := range g.Choices {
			cs[c.ID] = c
		}
		choices[g.ID] = cs
	}

	for _, s := range selections {
		if _, ok := byID[s.GroupID]; !ok {
			return Validation{}, &SelectionError{
				Kind:    KindGroupNotAssigned,
				Message: fmt.Sprintf("Option group %q is not assigned to this product", s.GroupID),
			}
		}
	}

	selected := make([]Choice, 0, len(selections))
	for _, s := range selections {
		c, ok := choices[s.GroupID][s.ChoiceID]
		if !ok {
			return Validation{}, &SelectionError{
				Kind:    KindChoiceNotInGroup,
				Message: fmt.Sprintf("Choice %q does not belong to option group %q", s.ChoiceID, groupName(byID[s.GroupID])),
			}
		}
		selected = append(selected, c)
	}

	seen := make(map[string]struct{}, len(selections))
	for _, s := range selections {
		if _, dup := seen[s.GroupID]; dup {
			return Validation{}, &SelectionError{
				Kind:    KindDuplicateGroup,
				Message: fmt.Sprintf("Multiple selections for option group %q (only one allowed)", groupName(byID[s.GroupID])),
			}
		}
		seen[s.GroupID] = struct{}{}
	}

	for _, g := range groups {
		if g.Requirement != Required {
			continue
		}
		if _, ok := seen[g.ID]; !ok {
			return Validation{}, &SelectionError{
				Kind:    KindRequiredMissing,
				Message: fmt.Sprintf("Required option group %q must have a selection", g.Name),
			}
		}
	}

	return Validation{Groups: groups, Selected: selected}, nil
}

func groupName(g Group) string {
	if g.Name != "" {
		return g.Name
	}
	return g.ID
}
