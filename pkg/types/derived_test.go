package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecomputeRaisesCapacity(t *testing.T) {
	c := NewCharacter("Ada")
	calc := NewDerivedAttributeCalculator()

	require.NoError(t, c.SetAttribute("stamina", 4))
	assert.Equal(t, []string{"health_max"}, calc.Recompute(c, "stamina"))
	assert.Equal(t, 7, c.Health.Max)

	require.NoError(t, c.SetAttribute("composure", 3))
	require.NoError(t, c.SetAttribute("resolve", 3))
	assert.Equal(t, []string{"willpower_max"}, calc.Recompute(c, "composure", "resolve"))
	assert.Equal(t, 6, c.Willpower.Max)
}

func TestRecomputeNeverLowers(t *testing.T) {
	c := NewCharacter("Ada")
	c.Health.Max = 9
	calc := NewDerivedAttributeCalculator()

	require.NoError(t, c.SetAttribute("stamina", 2))
	assert.Empty(t, calc.Recompute(c, "stamina"))
	assert.Equal(t, 9, c.Health.Max)
}

func TestRecomputeIgnoresUnrelated(t *testing.T) {
	c := NewCharacter("Ada")
	require.NoError(t, c.SetAttribute("stamina", 5))
	calc := NewDerivedAttributeCalculator()

	assert.Empty(t, calc.Recompute(c, "wits"))
	assert.Equal(t, 6, c.Health.Max)
	assert.Equal(t, []string{"health_max"}, calc.Recompute(c))
	assert.Equal(t, 8, c.Health.Max)
}
