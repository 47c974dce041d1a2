package options

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Simplici0/matrixprice/internal/pricing"
)

type stubSource struct {
	groups map[string][]Group
	err    error
}

func (s stubSource) ProductOptionGroups(_ context.Context, productID, storeID string) ([]Group, error) {
	if s.err != nil {
		return nil, s.err
	}
	if storeID != "store-1" {
		return nil, ErrProductNotFound
	}
	groups, ok := s.groups[productID]
	if !ok {
		return nil, ErrProductNotFound
	}
	return groups, nil
}

func fixtureSource() stubSource {
	return stubSource{groups: map[string][]Group{
		"prod-1": {
			{
				ID:          "glass",
				Name:        "Glass",
				Requirement: Required,
				Choices: []Choice{
					{ID: "clear", Label: "Clear", ModifierType: pricing.Fixed, ModifierValue: 0, IsDefault: true},
					{ID: "tempered", Label: "Tempered", ModifierType: pricing.Fixed, ModifierValue: 500},
				},
			},
			{
				ID:          "finish",
				Name:        "Finish",
				Requirement: Optional,
				Choices: []Choice{
					{ID: "matte", Label: "Matte", ModifierType: pricing.Percentage, ModifierValue: 1000},
					{ID: "economy", Label: "Economy", ModifierType: pricing.Percentage, ModifierValue: -1500},
				},
			},
		},
		"prod-empty": {},
	}}
}

func requireSelectionError(t *testing.T, err error, kind Kind, contains string) {
	t.Helper()
	var selErr *SelectionError
	require.ErrorAs(t, err, &selErr)
	require.Equal(t, kind, selErr.Kind, "message: %s", selErr.Message)
	require.Contains(t, selErr.Message, contains)
}

func TestValidate_Valid(t *testing.T) {
	v, err := Validate(context.Background(), fixtureSource(), "prod-1", []Selection{
		{GroupID: "finish", ChoiceID: "matte"},
		{GroupID: "glass", ChoiceID: "tempered"},
	}, "store-1")

	require.NoError(t, err)
	require.Len(t, v.Groups, 2)
	require.Equal(t, []pricing.Modifier{
		{Type: pricing.Percentage, Value: 1000, Label: "Matte"},
		{Type: pricing.Fixed, Value: 500, Label: "Tempered"},
	}, v.Modifiers())
}

func TestValidate_OptionalGroupMayBeOmitted(t *testing.T) {
	v, err := Validate(context.Background(), fixtureSource(), "prod-1", []Selection{
		{GroupID: "glass", ChoiceID: "clear"},
	}, "store-1")

	require.NoError(t, err)
	require.Len(t, v.Selected, 1)
}

func TestValidate_ProductWithoutGroups(t *testing.T) {
	v, err := Validate(context.Background(), fixtureSource(), "prod-empty", nil, "store-1")

	require.NoError(t, err)
	require.Empty(t, v.Modifiers())
}

func TestValidate_UnknownProduct(t *testing.T) {
	_, err := Validate(context.Background(), fixtureSource(), "nope", nil, "store-1")
	requireSelectionError(t, err, KindProductNotFound, "not found or not authorized")
}

func TestValidate_OtherStore(t *testing.T) {
	_, err := Validate(context.Background(), fixtureSource(), "prod-1", nil, "store-2")
	requireSelectionError(t, err, KindProductNotFound, "not found or not authorized")
}

func TestValidate_GroupNotAssigned(t *testing.T) {
	_, err := Validate(context.Background(), fixtureSource(), "prod-1", []Selection{
		{GroupID: "glass", ChoiceID: "clear"},
		{GroupID: "frame", ChoiceID: "oak"},
	}, "store-1")
	requireSelectionError(t, err, KindGroupNotAssigned, `"frame" is not assigned to this product`)
}

func TestValidate_ChoiceNotInGroup(t *testing.T) {
	_, err := Validate(context.Background(), fixtureSource(), "prod-1", []Selection{
		{GroupID: "glass", ChoiceID: "matte"},
	}, "store-1")
	requireSelectionError(t, err, KindChoiceNotInGroup, `does not belong to option group "Glass"`)
}

func TestValidate_DuplicateGroup(t *testing.T) {
	_, err := Validate(context.Background(), fixtureSource(), "prod-1", []Selection{
		{GroupID: "glass", ChoiceID: "clear"},
		{GroupID: "glass", ChoiceID: "tempered"},
	}, "store-1")
	requireSelectionError(t, err, KindDuplicateGroup, "only one allowed")
}

func TestValidate_RequiredMissing(t *testing.T) {
	_, err := Validate(context.Background(), fixtureSource(), "prod-1", []Selection{
		{GroupID: "finish", ChoiceID: "matte"},
	}, "store-1")
	requireSelectionError(t, err, KindRequiredMissing, `"Glass" must have a selection`)
}

func TestValidate_RuleOrder(t *testing.T) {
	tests := []struct {
		name       string
		selections []Selection
		want       Kind
	}{
		{
			name: "assignment checked across all selections before membership",
			selections: []Selection{
				{GroupID: "glass", ChoiceID: "bogus"},
				{GroupID: "frame", ChoiceID: "oak"},
			},
			want: KindGroupNotAssigned,
		},
		{
			name: "membership checked before duplicates",
			selections: []Selection{
				{GroupID: "glass", ChoiceID: "clear"},
				{GroupID: "glass", ChoiceID: "clear"},
				{GroupID: "finish", ChoiceID: "bogus"},
			},
			want: KindChoiceNotInGroup,
		},
		{
			name: "duplicates checked before required groups",
			selections: []Selection{
				{GroupID: "finish", ChoiceID: "matte"},
				{GroupID: "finish", ChoiceID: "economy"},
			},
			want: KindDuplicateGroup,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(context.Background(), fixtureSource(), "prod-1", tt.selections, "store-1")
			var selErr *SelectionError
			require.ErrorAs(t, err, &selErr)
			require.Equal(t, tt.want, selErr.Kind)
		})
	}
}

func TestValidate_SourceFailure(t *testing.T) {
	boom := errors.New("db down")
	_, err := Validate(context.Background(), stubSource{err: boom}, "prod-1", nil, "store-1")

	require.ErrorIs(t, err, boom)
	var selErr *SelectionError
	require.False(t, errors.As(err, &selErr))
}

func TestParseRequirement(t *testing.T) {
	r, err := ParseRequirement("OPTIONAL")
	require.NoError(t, err)
	require.Equal(t, Optional, r)

	_, err = ParseRequirement("maybe")
	require.Error(t, err)
}
