package types

import "fmt"

// TrackerBound is the number of boxes a tracker displays. Indices past the
// bound are hidden and cannot be clicked.
const TrackerBound = 10

// Box states resolved by the trackers.
const (
	BoxEmpty       = "empty"
	BoxFilled      = "filled"
	BoxSuperficial = "superficial"
	BoxAggravated  = "aggravated"
	BoxStained     = "stained"
	BoxHidden      = "hidden"
)

// BoxTracker models health and willpower: max boxes of capacity, of which
// Superficial and Aggravated are damaged. The invariant
// Superficial+Aggravated <= Max holds after every method.
type BoxTracker struct {
	Max         int `json:"max"`
	Superficial int `json:"superficial"`
	Aggravated  int `json:"aggravated"`
}

// Usable returns the undamaged box count.
func (t BoxTracker) Usable() int {
	return t.Max - t.Superficial - t.Aggravated
}

// State resolves the box at 1-based index i.
func (t BoxTracker) State(i int) string {
	switch {
	case i < 1 || i > TrackerBound:
		return BoxHidden
	case i <= t.Usable():
		return BoxFilled
	case i <= t.Max-t.Aggravated:
		return BoxSuperficial
	case i <= t.Max:
		return BoxAggravated
	default:
		return BoxEmpty
	}
}

// Boxes returns the state of every displayed box, index 1 first.
func (t BoxTracker) Boxes() []string {
	out := make([]string, TrackerBound)
	for i := range out {
		out[i] = t.State(i + 1)
	}
	return out
}

// Cycle applies one click at index i and returns the state the click
// resolved against. A click advances exactly one damage tier:
//
//	empty       -> capacity extends to i
//	filled      -> one more superficial
//	superficial -> superficial becomes aggravated
//	aggravated  -> one aggravated is healed
//
// Healing aggravated damage never lowers Max, on health and willpower alike;
// an extension is only undone through SetMax.
func (t *BoxTracker) Cycle(i int) (string, error) {
	state := t.State(i)
	switch state {
	case BoxHidden:
		return state, fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	case BoxEmpty:
		t.Max = i
	case BoxFilled:
		if t.Superficial+t.Aggravated < t.Max {
			t.Superficial++
		}
	case BoxSuperficial:
		t.Superficial--
		t.Aggravated++
	case BoxAggravated:
		t.Aggravated--
	}
	return state, nil
}

// SetMax sets the capacity explicitly. It fails without mutating when max is
// outside 1..TrackerBound or below the damage already taken.
func (t *BoxTracker) SetMax(max int) error {
	if max < 1 || max > TrackerBound {
		return fmt.Errorf("%w: max %d not in 1..%d", ErrOutOfRange, max, TrackerBound)
	}
	if t.Superficial+t.Aggravated > max {
		return fmt.Errorf("%w: max %d below damage %d", ErrOutOfRange, max, t.Superficial+t.Aggravated)
	}
	t.Max = max
	return nil
}

// Raise lifts Max to n if n is larger, clamped to TrackerBound. It reports
// whether Max changed. Raise never lowers the capacity.
func (t *BoxTracker) Raise(n int) bool {
	if n > TrackerBound {
		n = TrackerBound
	}
	if n <= t.Max {
		return false
	}
	t.Max = n
	return true
}

// Validate checks the tracker invariants.
func (t BoxTracker) Validate() error {
	if t.Max < 1 || t.Max > TrackerBound {
		return fmt.Errorf("%w: max %d not in 1..%d", ErrOutOfRange, t.Max, TrackerBound)
	}
	if t.Superficial < 0 || t.Aggravated < 0 {
		return fmt.Errorf("%w: negative damage", ErrOutOfRange)
	}
	if t.Superficial+t.Aggravated > t.Max {
		return fmt.Errorf("%w: damage %d exceeds max %d", ErrOutOfRange, t.Superficial+t.Aggravated, t.Max)
	}
	return nil
}

// HumanityMax is the upper bound of the humanity track.
const HumanityMax = 10

// HumanityTracker is the three-state variant: Current plays the role of
// capacity and Stained marks the topmost Current boxes.
type HumanityTracker struct {
	Current int `json:"current"`
	Stained int `json:"stained"`
}

// State resolves the box at 1-based index i.
func (h HumanityTracker) State(i int) string {
	switch {
	case i < 1 || i > HumanityMax:
		return BoxHidden
	case i <= h.Current-h.Stained:
		return BoxFilled
	case i <= h.Current:
		return BoxStained
	default:
		return BoxEmpty
	}
}

// Boxes returns the state of every humanity box, index 1 first.
func (h HumanityTracker) Boxes() []string {
	out := make([]string, HumanityMax)
	for i := range out {
		out[i] = h.State(i + 1)
	}
	return out
}

// Cycle applies one click at index i. Clicking a filled box moves the stain
// line down by one, clicking a stained box moves it back up, and clicking an
// empty box raises Current to i and clears every stain.
func (h *HumanityTracker) Cycle(i int) (string, error) {
	state := h.State(i)
	switch state {
	case BoxHidden:
		return state, fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
	case BoxFilled:
		if h.Stained < h.Current {
			h.Stained++
		}
	case BoxStained:
		h.Stained--
	case BoxEmpty:
		h.Current = i
		h.Stained = 0
	}
	return state, nil
}

// Validate checks Stained <= Current <= HumanityMax.
func (h HumanityTracker) Validate() error {
	if h.Current < 0 || h.Current > HumanityMax {
		return fmt.Errorf("%w: humanity %d not in 0..%d", ErrOutOfRange, h.Current, HumanityMax)
	}
	if h.Stained < 0 || h.Stained > h.Current {
		return fmt.Errorf("%w: stains %d exceed humanity %d", ErrOutOfRange, h.Stained, h.Current)
	}
	return nil
}

// Gauge bounds for danger and desperation.
const (
	GaugeMin = 0
	GaugeMax = 20
)

// Gauge display levels.
const (
	GaugeNominal  = "nominal"
	GaugeCaution  = "caution"
	GaugeCritical = "critical"
)

// ClassifyGauge maps a danger or desperation value to its display level.
func ClassifyGauge(v int) string {
	switch {
	case v > 15:
		return GaugeCritical
	case v > 10:
		return GaugeCaution
	default:
		return GaugeNominal
	}
}

// ValidateGauge checks v is within GaugeMin..GaugeMax.
func ValidateGauge(v int) error {
	if v < GaugeMin || v > GaugeMax {
		return fmt.Errorf("%w: gauge %d not in %d..%d", ErrOutOfRange, v, GaugeMin, GaugeMax)
	}
	return nil
}
