package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"sort"
	"strconv"
	"strings"
)

// fieldDef registers one wire field. Every persisted field appears here
// exactly once; nothing is populated by name matching.
type fieldDef struct {
	name       string
	kind       string
	collection bool
	derived    bool
	ledger     bool
	get        func(c *Character) any
	set        func(c *Character, v any) error
}

// Field kinds.
const (
	KindText       = "text"
	KindInt        = "int"
	KindBool       = "bool"
	KindCollection = "collection"
)

// textField is a free-text header field with an optional length cap.
type textField struct {
	name string
	max  int
}

// TextFields lists the free-text header fields. A max of 0 means unbounded.
var textFields = []textField{
	{"cell", 100}, {"chronicle", 100}, {"creed", 50}, {"drive", 50},
	{"desire", 0}, {"ambition", 0}, {"age", 50}, {"blood_type", 10},
	{"pronouns", 50}, {"origin", 100}, {"alias", 100},
	{"first_encounter", 0}, {"history", 0}, {"notes", 0}, {"current_mission", 0},
	{"portrait_face", 500}, {"portrait_body", 500},
	{"portrait_hobby_1", 500}, {"portrait_hobby_2", 500}, {"portrait_hobby_3", 500}, {"portrait_hobby_4", 500},
}

const nameMaxLen = 100

var (
	fieldDefs  []fieldDef
	fieldIndex map[string]int
)

func init() {
	fieldDefs = buildFieldDefs()
	fieldIndex = make(map[string]int, len(fieldDefs))
	for i, d := range fieldDefs {
		fieldIndex[d.name] = i
	}
}

func buildFieldDefs() []fieldDef {
	defs := []fieldDef{
		{
			name: "name",
			kind: KindText,
			get:  func(c *Character) any { return c.Name },
			set: func(c *Character, v any) error {
				s, err := toText(v, nameMaxLen)
				if err != nil {
					return err
				}
				c.Name = s
				return nil
			},
		},
	}
	for _, tf := range textFields {
		defs = append(defs, fieldDef{
			name: tf.name,
			kind: KindText,
			get:  func(c *Character) any { return c.Text[tf.name] },
			set: func(c *Character, v any) error {
				s, err := toText(v, tf.max)
				if err != nil {
					return err
				}
				c.Text[tf.name] = s
				return nil
			},
		})
	}
	for _, a := range Attributes {
		defs = append(defs, intField(a, AttributeMin, AttributeMax,
			func(c *Character) int { return c.Attributes[a] },
			func(c *Character, n int) { c.Attributes[a] = n }))
	}
	for _, s := range Skills {
		defs = append(defs, intField(s, SkillMin, SkillMax,
			func(c *Character) int { return c.Skills[s] },
			func(c *Character, n int) { c.Skills[s] = n }))
	}
	defs = append(defs,
		boxField("health_max", 1, TrackerBound, func(c *Character) *int { return &c.Health.Max }),
		boxField("health_superficial", 0, TrackerBound, func(c *Character) *int { return &c.Health.Superficial }),
		boxField("health_aggravated", 0, TrackerBound, func(c *Character) *int { return &c.Health.Aggravated }),
		boxField("willpower_max", 1, TrackerBound, func(c *Character) *int { return &c.Willpower.Max }),
		boxField("willpower_superficial", 0, TrackerBound, func(c *Character) *int { return &c.Willpower.Superficial }),
		boxField("willpower_aggravated", 0, TrackerBound, func(c *Character) *int { return &c.Willpower.Aggravated }),
		boxField("humanity_current", 0, HumanityMax, func(c *Character) *int { return &c.Humanity.Current }),
		boxField("humanity_stained", 0, HumanityMax, func(c *Character) *int { return &c.Humanity.Stained }),
		boxField("danger_current", GaugeMin, GaugeMax, func(c *Character) *int { return &c.Danger }),
		boxField("desperation_current", GaugeMin, GaugeMax, func(c *Character) *int { return &c.Desperation }),
		boolField("in_despair", func(c *Character) *bool { return &c.InDespair }),
		boolField("creation_complete", func(c *Character) *bool { return &c.CreationComplete }),
		fieldDef{
			name: "edge_config",
			kind: KindText,
			get:  func(c *Character) any { return c.EdgeConfig },
			set: func(c *Character, v any) error {
				s, err := toText(v, 0)
				if err != nil {
					return err
				}
				if _, ok := EdgeRules[s]; !ok {
					return fmt.Errorf("must be %s or %s", EdgeConfigOneEdgeTwoPerks, EdgeConfigTwoEdgesOnePerk)
				}
				c.EdgeConfig = s
				return nil
			},
		},
		fieldDef{
			name:   "exp_total",
			kind:   KindInt,
			ledger: true,
			get:  func(c *Character) any { return c.Ledger.Total() },
			set: func(c *Character, v any) error {
				n, err := toBoundedInt(v, 0, math.MaxInt32)
				if err != nil {
					return err
				}
				c.Ledger.total = n
				return nil
			},
		},
		fieldDef{
			name:   "exp_spent",
			kind:   KindInt,
			ledger: true,
			get:  func(c *Character) any { return c.Ledger.Spent() },
			set: func(c *Character, v any) error {
				n, err := toBoundedInt(v, 0, math.MaxInt32)
				if err != nil {
					return err
				}
				c.Ledger.spent = n
				return nil
			},
		},
		fieldDef{
			name:    "exp_available",
			kind:    KindInt,
			derived: true,
			get:     func(c *Character) any { return c.Ledger.Available() },
		},
		collectionField("xp_log",
			func(c *Character) any { return c.Ledger.Entries() },
			func(c *Character, entries []LedgerEntry) error {
				for i, e := range entries {
					if err := validateEntry(e); err != nil {
						return fmt.Errorf("entry %d: %w", i, err)
					}
				}
				c.Ledger.entries = entries
				return nil
			}),
		collectionField("skill_specialties",
			func(c *Character) any {
				out := make(map[string][]string, len(c.Specialties))
				for k, v := range c.Specialties {
					out[k] = slices.Clone(v)
				}
				return out
			},
			func(c *Character, m map[string][]string) error {
				for skill := range m {
					if !slices.Contains(Skills, skill) {
						return fmt.Errorf("unknown skill %q", skill)
					}
				}
				if m == nil {
					m = make(map[string][]string)
				}
				c.Specialties = m
				return nil
			}),
		collectionField("touchstones",
			func(c *Character) any { return slices.Clone(c.Touchstones) },
			func(c *Character, ts []Touchstone) error { c.Touchstones = ts; return nil }),
		collectionField("advantages",
			func(c *Character) any { return slices.Clone(c.Advantages) },
			func(c *Character, ts []DottedTrait) error { c.Advantages = ts; return nil }),
		collectionField("flaws",
			func(c *Character) any { return slices.Clone(c.Flaws) },
			func(c *Character, ts []DottedTrait) error { c.Flaws = ts; return nil }),
		collectionField("edges",
			func(c *Character) any { return c.Clone().Edges },
			func(c *Character, es []EdgeSelection) error { c.Edges = es; return nil }),
		collectionField("equipment",
			func(c *Character) any { return slices.Clone(c.Equipment) },
			func(c *Character, es []Equipment) error { c.Equipment = es; return nil }),
	)
	return defs
}

func intField(name string, lo, hi int, get func(*Character) int, put func(*Character, int)) fieldDef {
	return fieldDef{
		name: name,
		kind: KindInt,
		get:  func(c *Character) any { return get(c) },
		set: func(c *Character, v any) error {
			n, err := toBoundedInt(v, lo, hi)
			if err != nil {
				return err
			}
			put(c, n)
			return nil
		},
	}
}

func boxField(name string, lo, hi int, ref func(*Character) *int) fieldDef {
	return intField(name, lo, hi,
		func(c *Character) int { return *ref(c) },
		func(c *Character, n int) { *ref(c) = n })
}

func boolField(name string, ref func(*Character) *bool) fieldDef {
	return fieldDef{
		name: name,
		kind: KindBool,
		get:  func(c *Character) any { return *ref(c) },
		set: func(c *Character, v any) error {
			b, ok := v.(bool)
			if !ok {
				return fmt.Errorf("expected boolean, got %T", v)
			}
			*ref(c) = b
			return nil
		},
	}
}

func collectionField[T any](name string, get func(*Character) any, put func(*Character, T) error) fieldDef {
	return fieldDef{
		name:       name,
		kind:       KindCollection,
		collection: true,
		get:        get,
		set: func(c *Character, v any) error {
			var out T
			if err := decodeStrict(v, &out); err != nil {
				return err
			}
			return put(c, out)
		},
	}
}

// decodeStrict converts a typed or JSON-decoded value into dst, rejecting
// unknown keys.
func decodeStrict(v any, dst any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding value: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("malformed collection: %w", err)
	}
	return nil
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("expected integer, got %v", n)
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("expected integer, got %q", n.String())
		}
		return int(i), nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}

func toBoundedInt(v any, lo, hi int) (int, error) {
	n, err := toInt(v)
	if err != nil {
		return 0, err
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("must be between %d and %d", lo, hi)
	}
	return n, nil
}

func toText(v any, max int) (string, error) {
	s, ok := v.(string)
	if !ok {
		if v == nil {
			return "", nil
		}
		return "", fmt.Errorf("expected string, got %T", v)
	}
	if max > 0 && len(s) > max {
		return "", fmt.Errorf("must be at most %d characters", max)
	}
	return s, nil
}

// FieldNames returns every registered wire field name in registry order.
func FieldNames() []string {
	names := make([]string, len(fieldDefs))
	for i, d := range fieldDefs {
		names[i] = d.name
	}
	return names
}

// IsField reports whether name is a registered wire field.
func IsField(name string) bool {
	_, ok := fieldIndex[name]
	return ok
}

// IsCollection reports whether name is a composite field that is always
// transmitted whole.
func IsCollection(name string) bool {
	i, ok := fieldIndex[name]
	return ok && fieldDefs[i].collection
}

// FieldKind returns the kind of a registered field, or "" if name is not
// registered.
func FieldKind(name string) string {
	i, ok := fieldIndex[name]
	if !ok {
		return ""
	}
	return fieldDefs[i].kind
}

// IsDerived reports whether name is computed from other fields and ignored
// on Apply apart from a consistency check.
func IsDerived(name string) bool {
	i, ok := fieldIndex[name]
	return ok && fieldDefs[i].derived
}

// IsLedgerField reports whether name is a ledger total. Ledger totals move
// only through ledger entries; Apply accepts them solely to restore a stored
// record.
func IsLedgerField(name string) bool {
	i, ok := fieldIndex[name]
	return ok && fieldDefs[i].ledger
}

// ParseFieldValue converts a command-line string into the Go value Apply
// expects for a scalar field.
func ParseFieldValue(name, raw string) (any, error) {
	if IsLedgerField(name) || IsDerived(name) {
		return nil, fmt.Errorf("%w: %s", ErrReadOnlyField, name)
	}
	switch FieldKind(name) {
	case KindText:
		return raw, nil
	case KindInt:
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("%s: expected integer, got %q", name, raw)
		}
		return n, nil
	case KindBool:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("%s: expected true or false, got %q", name, raw)
		}
		return b, nil
	case KindCollection:
		return nil, fmt.Errorf("%w: %s is a collection", ErrUnknownField, name)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
}

// Fields renders the full snapshot of c keyed by wire name. Collection values
// are copies.
func (c *Character) Fields() map[string]any {
	out := make(map[string]any, len(fieldDefs))
	for _, d := range fieldDefs {
		out[d.name] = d.get(c)
	}
	return out
}

// FieldsFor renders the named fields only. Unknown names are skipped.
func (c *Character) FieldsFor(names []string) map[string]any {
	out := make(map[string]any, len(names))
	for _, name := range names {
		i, ok := fieldIndex[name]
		if !ok {
			continue
		}
		out[name] = fieldDefs[i].get(c)
	}
	return out
}

// Apply writes a full or partial field map onto c, converting and
// range-checking each value, then validates the whole record. On failure it
// returns a *ValidationError listing every offending field; c may be
// partially written, so callers apply onto a Clone when they need rollback.
func (c *Character) Apply(fields map[string]any) error {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []FieldError
	for _, name := range names {
		i, ok := fieldIndex[name]
		if !ok {
			errs = append(errs, FieldError{Field: name, Message: ErrUnknownField.Error()})
			continue
		}
		d := fieldDefs[i]
		if d.derived {
			continue
		}
		if err := d.set(c, fields[name]); err != nil {
			errs = append(errs, FieldError{Field: name, Message: err.Error()})
		}
	}
	if v, ok := fields["exp_available"]; ok {
		n, err := toInt(v)
		switch {
		case err != nil:
			errs = append(errs, FieldError{Field: "exp_available", Message: err.Error()})
		case n != c.Ledger.Available():
			errs = append(errs, FieldError{
				Field:   "exp_available",
				Message: fmt.Sprintf("must equal exp_total - exp_spent (%d)", c.Ledger.Available()),
			})
		}
	}
	if len(errs) == 0 {
		errs = c.check()
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

// Validate checks every cross-field invariant of the record.
func (c *Character) Validate() error {
	if errs := c.check(); len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func (c *Character) check() []FieldError {
	var errs []FieldError
	add := func(field string, err error) {
		if err != nil {
			errs = append(errs, FieldError{Field: field, Message: err.Error()})
		}
	}
	if c.Name == "" {
		add("name", fmt.Errorf("is required"))
	}
	add("health_superficial", c.Health.Validate())
	add("willpower_superficial", c.Willpower.Validate())
	add("humanity_stained", c.Humanity.Validate())
	if c.Ledger.Spent() > c.Ledger.Total() {
		add("exp_spent", fmt.Errorf("spent %d exceeds total %d", c.Ledger.Spent(), c.Ledger.Total()))
	}
	for skill, labels := range c.Specialties {
		if len(labels) > c.Skills[skill] {
			add("skill_specialties", fmt.Errorf("%w: %s rated %d has %d", ErrSpecialtyLimit, skill, c.Skills[skill], len(labels)))
		}
	}
	if len(c.Touchstones) > MaxTouchstones {
		add("touchstones", fmt.Errorf("%w: at most %d", ErrCollectionFull, MaxTouchstones))
	}
	for _, t := range c.Touchstones {
		if t.Name == "" || len(t.Name) > nameMaxLen {
			add("touchstones", ErrInvalidName)
			break
		}
	}
	add("advantages", AdvantageBudget.Check(c.Advantages))
	add("flaws", FlawBudget.Check(c.Flaws))
	seen := make(map[string]bool, len(c.Edges))
	for _, e := range c.Edges {
		if e.EdgeID == "" || seen[e.EdgeID] {
			add("edges", fmt.Errorf("%w: edge %q", ErrDuplicateSelection, e.EdgeID))
			break
		}
		seen[e.EdgeID] = true
		if len(e.Perks) != len(uniq(e.Perks)) {
			add("edges", fmt.Errorf("%w: perk under %q", ErrDuplicateSelection, e.EdgeID))
			break
		}
	}
	for _, e := range c.Equipment {
		if e.Name == "" {
			add("equipment", ErrInvalidName)
			break
		}
	}
	sort.SliceStable(errs, func(i, j int) bool { return errs[i].Field < errs[j].Field })
	return errs
}

func uniq(s []string) []string {
	out := slices.Clone(s)
	slices.Sort(out)
	return slices.Compact(out)
}

// Hydrate builds a character from a stored field map. Fields absent from the
// map keep their NewCharacter defaults.
func Hydrate(id string, fields map[string]any) (*Character, error) {
	c := NewCharacter("")
	c.ID = id
	if err := c.Apply(fields); err != nil {
		return nil, err
	}
	return c, nil
}
