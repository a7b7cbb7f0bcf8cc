package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuggestEdge(t *testing.T) {
	assert.Nil(t, SuggestEdge("arsenal"))
	assert.Nil(t, SuggestEdge("  "))
	assert.Equal(t, "arsenal", SuggestEdge("arsenl")[0])
	assert.Equal(t, "library", SuggestEdge("Libary")[0])
	assert.Empty(t, SuggestEdge("teleportation"))
}

func TestSuggestPerk(t *testing.T) {
	assert.Equal(t, []string{"armor"}, SuggestPerk("fleet", "armour"))
	assert.Nil(t, SuggestPerk("no-such-edge", "armor"))

	info, ok := LookupEdge("fleet")
	assert.True(t, ok)
	assert.Equal(t, "Fleet", info.Name)
}

func TestSuggestField(t *testing.T) {
	assert.Contains(t, SuggestField("strenght"), "strength")
	assert.Nil(t, SuggestField("strength"))
	assert.Empty(t, SuggestField("zzzzzzzzzzzz"))
}
