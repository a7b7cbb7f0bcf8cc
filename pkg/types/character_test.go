package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCharacterDefaults(t *testing.T) {
	c := NewCharacter("Ada")

	assert.Equal(t, 6, c.Health.Max)
	assert.Equal(t, 5, c.Willpower.Max)
	assert.Equal(t, 7, c.Humanity.Current)
	assert.Equal(t, EdgeConfigOneEdgeTwoPerks, c.EdgeConfig)
	assert.Len(t, c.Attributes, len(Attributes))
	assert.Len(t, c.Skills, len(Skills))
	assert.NoError(t, c.Validate())
}

func TestCloneIsDeep(t *testing.T) {
	c := NewCharacter("Ada")
	require.NoError(t, c.AddEdge("arsenal"))
	require.NoError(t, c.AddPerk("arsenal", "exotics"))
	require.NoError(t, c.SetSkill("firearms", 2))
	require.NoError(t, c.AddSpecialty("firearms", "Sniping"))

	cp := c.Clone()
	require.NoError(t, cp.AddPerk("arsenal", "untraceable"))
	require.NoError(t, cp.SetAttribute("wits", 4))
	require.NoError(t, cp.AddSpecialty("firearms", "Pistols"))

	assert.Equal(t, []string{"exotics"}, c.Edges[0].Perks)
	assert.Equal(t, 1, c.Attributes["wits"])
	assert.Equal(t, []string{"Sniping"}, c.Specialties["firearms"])
	assert.Nil(t, NewCharacter("Bo").Clone().Edges)
}

func TestTouchstoneLimit(t *testing.T) {
	c := NewCharacter("Ada")
	for _, name := range []string{"Mara", "Old church", "Jun"} {
		require.NoError(t, c.AddTouchstone(Touchstone{Name: name}))
	}

	err := c.AddTouchstone(Touchstone{Name: "Fourth"})
	assert.ErrorIs(t, err, ErrCollectionFull)
	assert.Len(t, c.Touchstones, MaxTouchstones)

	require.NoError(t, c.RemoveTouchstone(1))
	assert.Equal(t, "Jun", c.Touchstones[1].Name)
	assert.ErrorIs(t, c.RemoveTouchstone(5), ErrOutOfRange)
}

func TestSpecialties(t *testing.T) {
	c := NewCharacter("Ada")

	assert.ErrorIs(t, c.AddSpecialty("occult", "Ghosts"), ErrSpecialtyLimit)
	require.NoError(t, c.SetSkill("occult", 1))
	require.NoError(t, c.AddSpecialty("occult", "Ghosts"))
	assert.ErrorIs(t, c.AddSpecialty("occult", "Ghosts"), ErrDuplicateSelection)
	assert.ErrorIs(t, c.SetSkill("occult", 0), ErrSpecialtyLimit)

	require.NoError(t, c.RemoveSpecialty("occult", "Ghosts"))
	assert.NotContains(t, c.Specialties, "occult")
	assert.ErrorIs(t, c.AddSpecialty("juggling", "Clubs"), ErrUnknownTrait)
}

func TestTraitSetters(t *testing.T) {
	c := NewCharacter("Ada")

	assert.ErrorIs(t, c.SetAttribute("strength", 0), ErrOutOfRange)
	assert.ErrorIs(t, c.SetAttribute("luck", 3), ErrUnknownTrait)
	assert.ErrorIs(t, c.SetSkill("brawl", 6), ErrOutOfRange)
	assert.ErrorIs(t, c.SetGauge("danger", 21), ErrOutOfRange)
	assert.ErrorIs(t, c.SetGauge("dread", 2), ErrUnknownTrait)
	require.NoError(t, c.SetGauge("desperation", 12))
	assert.Equal(t, 12, c.Desperation)

	field, err := c.SetPortrait("face", "/portraits/a.png")
	require.NoError(t, err)
	assert.Equal(t, "portrait_face", field)
	assert.Equal(t, "/portraits/a.png", c.Text["portrait_face"])
	_, err = c.SetPortrait("feet", "/portraits/b.png")
	assert.ErrorIs(t, err, ErrInvalidPortrait)

	_, err = c.SetPortrait("body", "/portraits/c.png")
	require.NoError(t, err)
	assert.Equal(t, []string{"/portraits/c.png", "/portraits/a.png"}, c.PortraitURLs())
	assert.Empty(t, NewCharacter("Bo").PortraitURLs())
}

func TestEdgeSelectionMutators(t *testing.T) {
	c := NewCharacter("Ada")

	assert.ErrorIs(t, c.AddPerk("fleet", "armor"), ErrUnknownSelection)
	require.NoError(t, c.AddEdge("fleet"))
	assert.ErrorIs(t, c.AddEdge("fleet"), ErrDuplicateSelection)
	require.NoError(t, c.AddPerk("fleet", "armor"))
	assert.ErrorIs(t, c.AddPerk("fleet", "armor"), ErrDuplicateSelection)
	require.NoError(t, c.RemovePerk("fleet", "armor"))
	assert.ErrorIs(t, c.RemovePerk("fleet", "armor"), ErrUnknownSelection)
	require.NoError(t, c.RemoveEdge("fleet"))
	assert.Empty(t, c.Edges)

	assert.ErrorIs(t, c.SetEdgeConfig("3e3p"), ErrInvalidEdgeConfig)
	require.NoError(t, c.SetEdgeConfig(EdgeConfigTwoEdgesOnePerk))
}
