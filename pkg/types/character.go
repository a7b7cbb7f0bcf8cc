package types

import (
	"fmt"
	"slices"
	"time"
)

// Attribute names, in sheet order. Attributes range 1..5.
var Attributes = []string{
	"strength", "dexterity", "stamina",
	"charisma", "manipulation", "composure",
	"intelligence", "wits", "resolve",
}

// Skill names, in sheet order. Skills range 0..5. drive_skill avoids a clash
// with the Drive text field.
var Skills = []string{
	"athletics", "brawl", "craft", "drive_skill", "firearms", "larceny", "melee", "stealth", "survival",
	"animal_ken", "etiquette", "insight", "intimidation", "leadership", "performance", "persuasion", "streetwise", "subterfuge",
	"academics", "awareness", "finance", "investigation", "medicine", "occult", "politics", "science", "technology",
}

// Trait ranges.
const (
	AttributeMin = 1
	AttributeMax = 5
	SkillMin     = 0
	SkillMax     = 5
)

// Collection limits.
const (
	MaxTouchstones = 3
	MaxTraitDots   = 5
)

// Portrait slots and the text field each one fills.
var PortraitSlots = map[string]string{
	"face":    "portrait_face",
	"body":    "portrait_body",
	"hobby_1": "portrait_hobby_1",
	"hobby_2": "portrait_hobby_2",
	"hobby_3": "portrait_hobby_3",
	"hobby_4": "portrait_hobby_4",
}

// Touchstone is a person or place anchoring the character.
type Touchstone struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Conviction  string `json:"conviction"`
}

// DottedTrait is an advantage or a flaw.
type DottedTrait struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Dots        int    `json:"dots"`
}

// EdgeSelection is a chosen edge and the perks chosen under it.
type EdgeSelection struct {
	EdgeID string   `json:"edge_id"`
	Perks  []string `json:"perks"`
}

// Equipment is a carried item.
type Equipment struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Character is the in-memory character record. An editing session owns it
// exclusively until it is synchronized.
type Character struct {
	ID      string
	OwnerID string
	Name    string

	// Text holds the free-text header fields keyed by wire name.
	Text map[string]string

	Attributes  map[string]int
	Skills      map[string]int
	Specialties map[string][]string

	Health    BoxTracker
	Willpower BoxTracker
	Humanity  HumanityTracker

	Danger           int
	Desperation      int
	InDespair        bool
	CreationComplete bool
	EdgeConfig       string

	Ledger Ledger

	Touchstones []Touchstone
	Advantages  []DottedTrait
	Flaws       []DottedTrait
	Edges       []EdgeSelection
	Equipment   []Equipment

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewCharacter returns an unsaved character with sheet defaults.
func NewCharacter(name string) *Character {
	c := &Character{
		Name:        name,
		Text:        make(map[string]string),
		Attributes:  make(map[string]int, len(Attributes)),
		Skills:      make(map[string]int, len(Skills)),
		Specialties: make(map[string][]string),
		Health:      BoxTracker{Max: 6},
		Willpower:   BoxTracker{Max: 5},
		Humanity:    HumanityTracker{Current: 7},
		EdgeConfig:  EdgeConfigOneEdgeTwoPerks,
	}
	for _, a := range Attributes {
		c.Attributes[a] = AttributeMin
	}
	for _, s := range Skills {
		c.Skills[s] = SkillMin
	}
	return c
}

// Clone returns a deep copy of c.
func (c *Character) Clone() *Character {
	out := *c
	out.Text = cloneMap(c.Text)
	out.Attributes = cloneMap(c.Attributes)
	out.Skills = cloneMap(c.Skills)
	out.Specialties = make(map[string][]string, len(c.Specialties))
	for k, v := range c.Specialties {
		out.Specialties[k] = slices.Clone(v)
	}
	out.Ledger = c.Ledger.clone()
	out.Touchstones = slices.Clone(c.Touchstones)
	out.Advantages = slices.Clone(c.Advantages)
	out.Flaws = slices.Clone(c.Flaws)
	if c.Edges != nil {
		out.Edges = make([]EdgeSelection, len(c.Edges))
		for i, e := range c.Edges {
			out.Edges[i] = EdgeSelection{EdgeID: e.EdgeID, Perks: slices.Clone(e.Perks)}
		}
	}
	out.Equipment = slices.Clone(c.Equipment)
	return &out
}

func cloneMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// SetAttribute sets an attribute rating.
func (c *Character) SetAttribute(name string, v int) error {
	if !slices.Contains(Attributes, name) {
		return fmt.Errorf("%w: attribute %q", ErrUnknownTrait, name)
	}
	if v < AttributeMin || v > AttributeMax {
		return fmt.Errorf("%w: %s %d not in %d..%d", ErrOutOfRange, name, v, AttributeMin, AttributeMax)
	}
	c.Attributes[name] = v
	return nil
}

// SetSkill sets a skill rating. Lowering a skill below its specialty count
// is rejected; remove specialties first.
func (c *Character) SetSkill(name string, v int) error {
	if !slices.Contains(Skills, name) {
		return fmt.Errorf("%w: skill %q", ErrUnknownTrait, name)
	}
	if v < SkillMin || v > SkillMax {
		return fmt.Errorf("%w: %s %d not in %d..%d", ErrOutOfRange, name, v, SkillMin, SkillMax)
	}
	if len(c.Specialties[name]) > v {
		return fmt.Errorf("%w: %s has %d specialties", ErrSpecialtyLimit, name, len(c.Specialties[name]))
	}
	c.Skills[name] = v
	return nil
}

// AddSpecialty adds a specialty label to a skill. A skill holds at most as
// many specialties as its rating.
func (c *Character) AddSpecialty(skill, label string) error {
	if !slices.Contains(Skills, skill) {
		return fmt.Errorf("%w: skill %q", ErrUnknownTrait, skill)
	}
	if label == "" {
		return ErrInvalidName
	}
	if slices.Contains(c.Specialties[skill], label) {
		return fmt.Errorf("%w: specialty %q", ErrDuplicateSelection, label)
	}
	if len(c.Specialties[skill]) >= c.Skills[skill] {
		return fmt.Errorf("%w: %s rated %d", ErrSpecialtyLimit, skill, c.Skills[skill])
	}
	c.Specialties[skill] = append(c.Specialties[skill], label)
	return nil
}

// RemoveSpecialty removes a specialty label from a skill.
func (c *Character) RemoveSpecialty(skill, label string) error {
	i := slices.Index(c.Specialties[skill], label)
	if i < 0 {
		return fmt.Errorf("%w: specialty %q", ErrUnknownSelection, label)
	}
	c.Specialties[skill] = slices.Delete(c.Specialties[skill], i, i+1)
	if len(c.Specialties[skill]) == 0 {
		delete(c.Specialties, skill)
	}
	return nil
}

// SetGauge sets danger or desperation.
func (c *Character) SetGauge(name string, v int) error {
	if err := ValidateGauge(v); err != nil {
		return err
	}
	switch name {
	case "danger":
		c.Danger = v
	case "desperation":
		c.Desperation = v
	default:
		return fmt.Errorf("%w: gauge %q", ErrUnknownTrait, name)
	}
	return nil
}

// SetPortrait stores an asset URL in a portrait slot.
func (c *Character) SetPortrait(slot, url string) (string, error) {
	field, ok := PortraitSlots[slot]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidPortrait, slot)
	}
	c.Text[field] = url
	return field, nil
}

// PortraitURLs returns the URLs stored in the portrait slots, skipping
// empty slots, in slot field order.
func (c *Character) PortraitURLs() []string {
	fields := make([]string, 0, len(PortraitSlots))
	for _, field := range PortraitSlots {
		fields = append(fields, field)
	}
	slices.Sort(fields)
	var urls []string
	for _, field := range fields {
		if url := c.Text[field]; url != "" {
			urls = append(urls, url)
		}
	}
	return urls
}

// AddTouchstone appends a touchstone. The fourth insertion is rejected.
func (c *Character) AddTouchstone(t Touchstone) error {
	if t.Name == "" {
		return ErrInvalidName
	}
	if len(c.Touchstones) >= MaxTouchstones {
		return fmt.Errorf("%w: at most %d touchstones", ErrCollectionFull, MaxTouchstones)
	}
	c.Touchstones = append(c.Touchstones, t)
	return nil
}

// RemoveTouchstone removes the touchstone at index i.
func (c *Character) RemoveTouchstone(i int) error {
	if i < 0 || i >= len(c.Touchstones) {
		return fmt.Errorf("%w: touchstone %d", ErrOutOfRange, i)
	}
	c.Touchstones = slices.Delete(c.Touchstones, i, i+1)
	return nil
}

// AddAdvantage appends an advantage, rejecting it if the advantage dot
// budget would be exceeded.
func (c *Character) AddAdvantage(t DottedTrait) error {
	if err := AdvantageBudget.CheckAdd(c.Advantages, t); err != nil {
		return err
	}
	c.Advantages = append(c.Advantages, t)
	return nil
}

// AddFlaw appends a flaw, rejecting it if the flaw dot budget would be
// exceeded.
func (c *Character) AddFlaw(t DottedTrait) error {
	if err := FlawBudget.CheckAdd(c.Flaws, t); err != nil {
		return err
	}
	c.Flaws = append(c.Flaws, t)
	return nil
}

// RemoveAdvantage removes the advantage at index i.
func (c *Character) RemoveAdvantage(i int) error {
	if i < 0 || i >= len(c.Advantages) {
		return fmt.Errorf("%w: advantage %d", ErrOutOfRange, i)
	}
	c.Advantages = slices.Delete(c.Advantages, i, i+1)
	return nil
}

// RemoveFlaw removes the flaw at index i.
func (c *Character) RemoveFlaw(i int) error {
	if i < 0 || i >= len(c.Flaws) {
		return fmt.Errorf("%w: flaw %d", ErrOutOfRange, i)
	}
	c.Flaws = slices.Delete(c.Flaws, i, i+1)
	return nil
}

// AddEquipment appends an item.
func (c *Character) AddEquipment(e Equipment) error {
	if e.Name == "" {
		return ErrInvalidName
	}
	c.Equipment = append(c.Equipment, e)
	return nil
}

// RemoveEquipment removes the item at index i.
func (c *Character) RemoveEquipment(i int) error {
	if i < 0 || i >= len(c.Equipment) {
		return fmt.Errorf("%w: equipment %d", ErrOutOfRange, i)
	}
	c.Equipment = slices.Delete(c.Equipment, i, i+1)
	return nil
}

// SetEdgeConfig switches between the edge budget shapes. Existing
// selections are kept; the selection report flags any mismatch.
func (c *Character) SetEdgeConfig(config string) error {
	if _, ok := EdgeRules[config]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidEdgeConfig, config)
	}
	c.EdgeConfig = config
	return nil
}

// AddEdge selects an edge with no perks.
func (c *Character) AddEdge(edgeID string) error {
	if edgeID == "" {
		return ErrInvalidName
	}
	if c.edgeIndex(edgeID) >= 0 {
		return fmt.Errorf("%w: edge %q", ErrDuplicateSelection, edgeID)
	}
	c.Edges = append(c.Edges, EdgeSelection{EdgeID: edgeID})
	return nil
}

// RemoveEdge deselects an edge together with its perks.
func (c *Character) RemoveEdge(edgeID string) error {
	i := c.edgeIndex(edgeID)
	if i < 0 {
		return fmt.Errorf("%w: edge %q", ErrUnknownSelection, edgeID)
	}
	c.Edges = slices.Delete(c.Edges, i, i+1)
	return nil
}

// AddPerk selects a perk under an already selected edge.
func (c *Character) AddPerk(edgeID, perkID string) error {
	i := c.edgeIndex(edgeID)
	if i < 0 {
		return fmt.Errorf("%w: edge %q", ErrUnknownSelection, edgeID)
	}
	if perkID == "" {
		return ErrInvalidName
	}
	if slices.Contains(c.Edges[i].Perks, perkID) {
		return fmt.Errorf("%w: perk %q", ErrDuplicateSelection, perkID)
	}
	c.Edges[i].Perks = append(c.Edges[i].Perks, perkID)
	return nil
}

// RemovePerk deselects a perk.
func (c *Character) RemovePerk(edgeID, perkID string) error {
	i := c.edgeIndex(edgeID)
	if i < 0 {
		return fmt.Errorf("%w: edge %q", ErrUnknownSelection, edgeID)
	}
	j := slices.Index(c.Edges[i].Perks, perkID)
	if j < 0 {
		return fmt.Errorf("%w: perk %q", ErrUnknownSelection, perkID)
	}
	c.Edges[i].Perks = slices.Delete(c.Edges[i].Perks, j, j+1)
	return nil
}

func (c *Character) edgeIndex(edgeID string) int {
	return slices.IndexFunc(c.Edges, func(e EdgeSelection) bool { return e.EdgeID == edgeID })
}
