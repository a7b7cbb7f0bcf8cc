package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEdges(t *testing.T) {
	v := NewSelectionValidator()

	tests := []struct {
		name   string
		config string
		edges  []EdgeSelection
		valid  bool
	}{
		{"one edge two perks", EdgeConfigOneEdgeTwoPerks,
			[]EdgeSelection{{EdgeID: "arsenal", Perks: []string{"exotics", "untraceable"}}}, true},
		{"one edge one perk", EdgeConfigOneEdgeTwoPerks,
			[]EdgeSelection{{EdgeID: "arsenal", Perks: []string{"exotics"}}}, false},
		{"two edges one perk each", EdgeConfigTwoEdgesOnePerk,
			[]EdgeSelection{{EdgeID: "arsenal", Perks: []string{"exotics"}}, {EdgeID: "fleet", Perks: []string{"armor"}}}, true},
		{"two edges under 1e2p", EdgeConfigOneEdgeTwoPerks,
			[]EdgeSelection{{EdgeID: "arsenal", Perks: []string{"exotics", "untraceable"}}, {EdgeID: "fleet"}}, false},
		{"nothing selected", EdgeConfigTwoEdgesOnePerk, nil, false},
		{"unknown config", "3e0p", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := v.ValidateEdges(tt.config, tt.edges)
			assert.Equal(t, tt.valid, report.Valid)
			if !tt.valid {
				assert.NotEmpty(t, report.Violations)
			}
		})
	}
}

func TestIncompleteSelectionIsRetained(t *testing.T) {
	c := NewCharacter("Ada")
	require.NoError(t, c.AddEdge("arsenal"))
	require.NoError(t, c.AddPerk("arsenal", "exotics"))

	assert.False(t, c.Selection().Valid)
	assert.Equal(t, []EdgeSelection{{EdgeID: "arsenal", Perks: []string{"exotics"}}}, c.Edges)

	require.NoError(t, c.AddPerk("arsenal", "untraceable"))
	assert.True(t, c.Selection().Valid)
}

func TestDotBudget(t *testing.T) {
	existing := []DottedTrait{{Type: "Contacts", Dots: 3}, {Type: "Resources", Dots: 3}}

	assert.NoError(t, AdvantageBudget.CheckAdd(existing, DottedTrait{Type: "Allies", Dots: 1}))
	assert.ErrorIs(t, AdvantageBudget.CheckAdd(existing, DottedTrait{Type: "Allies", Dots: 2}), ErrDotBudgetExceeded)
	assert.ErrorIs(t, AdvantageBudget.CheckAdd(existing, DottedTrait{Type: "Allies", Dots: 0}), ErrOutOfRange)
	assert.ErrorIs(t, FlawBudget.CheckAdd(nil, DottedTrait{Type: "Enemy", Dots: 3}), ErrDotBudgetExceeded)
	assert.ErrorIs(t, FlawBudget.Check([]DottedTrait{{Type: "Enemy", Dots: 2}, {Type: "Addiction", Dots: 1}}), ErrDotBudgetExceeded)
	assert.Equal(t, 6, AdvantageBudget.Sum(existing))
}
