package types

import "slices"

// healthBase is added to stamina to form the health baseline.
const healthBase = 3

// Derivation ties a tracker capacity to a formula over attributes.
type Derivation struct {
	Field   string
	Sources []string
	Formula func(attrs map[string]int) int
	Tracker func(c *Character) *BoxTracker
}

// Derivations lists the capacities recomputed from attributes.
var Derivations = []Derivation{
	{
		Field:   "health_max",
		Sources: []string{"stamina"},
		Formula: func(a map[string]int) int { return a["stamina"] + healthBase },
		Tracker: func(c *Character) *BoxTracker { return &c.Health },
	},
	{
		Field:   "willpower_max",
		Sources: []string{"composure", "resolve"},
		Formula: func(a map[string]int) int { return a["composure"] + a["resolve"] },
		Tracker: func(c *Character) *BoxTracker { return &c.Willpower },
	},
}

// DerivedAttributeCalculator raises dependent capacities when their source
// attributes go up. It never lowers a capacity: bonuses from edges and perks
// may have pushed it above the formula.
type DerivedAttributeCalculator struct {
	derivations []Derivation
}

// NewDerivedAttributeCalculator returns a calculator over Derivations.
func NewDerivedAttributeCalculator() DerivedAttributeCalculator {
	return DerivedAttributeCalculator{derivations: Derivations}
}

// Recompute applies max(current, formula) to every derivation that reads
// one of changed (all derivations when changed is empty) and returns the
// fields whose capacity rose.
func (d DerivedAttributeCalculator) Recompute(c *Character, changed ...string) []string {
	var raised []string
	for _, dv := range d.derivations {
		if len(changed) > 0 && !readsAny(dv.Sources, changed) {
			continue
		}
		if dv.Tracker(c).Raise(dv.Formula(c.Attributes)) {
			raised = append(raised, dv.Field)
		}
	}
	return raised
}

func readsAny(sources, changed []string) bool {
	for _, s := range changed {
		if slices.Contains(sources, s) {
			return true
		}
	}
	return false
}
