package types

import "fmt"

// Edge configurations.
const (
	EdgeConfigOneEdgeTwoPerks = "1e2p"
	EdgeConfigTwoEdgesOnePerk = "2e1p"
)

// EdgeRule is one row of the edge budget table.
type EdgeRule struct {
	Edges        int
	PerksPerEdge int
}

// EdgeRules maps each edge configuration to its budget.
var EdgeRules = map[string]EdgeRule{
	EdgeConfigOneEdgeTwoPerks: {Edges: 1, PerksPerEdge: 2},
	EdgeConfigTwoEdgesOnePerk: {Edges: 2, PerksPerEdge: 1},
}

// SelectionReport is advisory: an invalid selection is flagged for display
// and never blocks further editing.
type SelectionReport struct {
	Valid      bool     `json:"valid"`
	Violations []string `json:"violations,omitempty"`
}

// SelectionValidator checks edge and perk selections against a rule table.
type SelectionValidator struct {
	Rules map[string]EdgeRule
}

// NewSelectionValidator returns a validator over EdgeRules.
func NewSelectionValidator() SelectionValidator {
	return SelectionValidator{Rules: EdgeRules}
}

// ValidateEdges reports whether edges match the budget of config exactly.
func (v SelectionValidator) ValidateEdges(config string, edges []EdgeSelection) SelectionReport {
	rule, ok := v.Rules[config]
	if !ok {
		return SelectionReport{Violations: []string{fmt.Sprintf("unknown edge configuration %q", config)}}
	}
	var violations []string
	if len(edges) != rule.Edges {
		violations = append(violations, fmt.Sprintf("%s requires %d edge(s), have %d", config, rule.Edges, len(edges)))
	}
	for _, e := range edges {
		if len(e.Perks) != rule.PerksPerEdge {
			violations = append(violations, fmt.Sprintf("edge %s requires %d perk(s), have %d", e.EdgeID, rule.PerksPerEdge, len(e.Perks)))
		}
	}
	return SelectionReport{Valid: len(violations) == 0, Violations: violations}
}

// Selection reports the character's edge selection against its
// configuration.
func (c *Character) Selection() SelectionReport {
	return NewSelectionValidator().ValidateEdges(c.EdgeConfig, c.Edges)
}

// DotBudget caps the total dots of a dotted trait group.
type DotBudget struct {
	Group string
	Max   int
}

// Dot budgets for advantages and flaws.
var (
	AdvantageBudget = DotBudget{Group: "advantages", Max: 7}
	FlawBudget      = DotBudget{Group: "flaws", Max: 2}
)

// Sum returns the total dots in traits.
func (b DotBudget) Sum(traits []DottedTrait) int {
	n := 0
	for _, t := range traits {
		n += t.Dots
	}
	return n
}

// CheckAdd rejects t if adding it to existing would exceed the budget.
func (b DotBudget) CheckAdd(existing []DottedTrait, t DottedTrait) error {
	if t.Type == "" {
		return ErrInvalidName
	}
	if t.Dots < 1 || t.Dots > MaxTraitDots {
		return fmt.Errorf("%w: %d dots not in 1..%d", ErrOutOfRange, t.Dots, MaxTraitDots)
	}
	if sum := b.Sum(existing) + t.Dots; sum > b.Max {
		return fmt.Errorf("%w: %s would total %d of %d", ErrDotBudgetExceeded, b.Group, sum, b.Max)
	}
	return nil
}

// Check validates an entire group, as hydrated from storage.
func (b DotBudget) Check(traits []DottedTrait) error {
	for _, t := range traits {
		if t.Type == "" {
			return ErrInvalidName
		}
		if t.Dots < 1 || t.Dots > MaxTraitDots {
			return fmt.Errorf("%w: %d dots not in 1..%d", ErrOutOfRange, t.Dots, MaxTraitDots)
		}
	}
	if sum := b.Sum(traits); sum > b.Max {
		return fmt.Errorf("%w: %s total %d of %d", ErrDotBudgetExceeded, b.Group, sum, b.Max)
	}
	return nil
}
