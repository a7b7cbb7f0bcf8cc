// Package editor is the editing session for one character. Every mutation
// runs against the in-memory record, reports the wire fields it touched to
// the autosave engine and schedules a synchronization. Mutations that fail
// leave the record untouched and trigger nothing.
package editor

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/mesh-intelligence/charsheet/internal/autosave"
	"github.com/mesh-intelligence/charsheet/pkg/types"
)

// Tracker names accepted by Cycle.
const (
	TrackerHealth    = "health"
	TrackerWillpower = "willpower"
	TrackerHumanity  = "humanity"
)

var ledgerFields = []string{"exp_total", "exp_spent", "exp_available", "xp_log"}

// Editor owns one character for the length of an editing session.
type Editor struct {
	mu     sync.Mutex
	c      *types.Character
	calc   types.DerivedAttributeCalculator
	assets types.AssetStore
	engine *autosave.Engine
	logger *slog.Logger
}

// Options configures an Editor.
type Options struct {
	Store  types.Store
	Assets types.AssetStore
	Access types.Access
	Sync   autosave.Config
	Logger *slog.Logger
}

// New starts a session over c. A character without an ID is created on the
// first synchronization.
func New(c *types.Character, opts Options) *Editor {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ed := &Editor{
		c:      c,
		calc:   types.NewDerivedAttributeCalculator(),
		assets: opts.Assets,
		logger: logger,
	}
	ed.engine = autosave.New(opts.Store, ed, opts.Access, opts.Sync, logger)
	return ed
}

// Open loads a stored character and starts a session over it.
func Open(ctx context.Context, id string, opts Options) (*Editor, error) {
	c, err := opts.Store.Get(ctx, opts.Access, id)
	if err != nil {
		return nil, err
	}
	return New(c, opts), nil
}

// Snapshot returns a deep copy of the record.
func (ed *Editor) Snapshot() *types.Character {
	ed.mu.Lock()
	defer ed.mu.Unlock()
	return ed.c.Clone()
}

// SetID records the identity assigned by the first successful create.
func (ed *Editor) SetID(id string) {
	ed.mu.Lock()
	defer ed.mu.Unlock()
	ed.c.ID = id
}

// ID returns the store identity, or "" while the character is unsaved.
func (ed *Editor) ID() string { return ed.engine.ID() }

// Status returns the save indicator.
func (ed *Editor) Status() autosave.Status { return ed.engine.Status() }

// LastError returns the error of the last failed synchronization.
func (ed *Editor) LastError() error { return ed.engine.LastError() }

// Dirty returns the fields not yet confirmed by the store.
func (ed *Editor) Dirty() []string { return ed.engine.Dirty() }

// OnStatus registers a save indicator listener.
func (ed *Editor) OnStatus(fn func(autosave.Status)) { ed.engine.OnStatus(fn) }

// Flush synchronizes pending changes now.
func (ed *Editor) Flush(ctx context.Context) error { return ed.engine.Flush(ctx) }

// Close flushes pending changes and ends the session.
func (ed *Editor) Close(ctx context.Context) error { return ed.engine.Close(ctx) }

// Retry re-attempts a failed synchronization without a new edit.
func (ed *Editor) Retry(ctx context.Context) error { return ed.engine.Flush(ctx) }

// Selection reports the edge selection against the configured budget.
func (ed *Editor) Selection() types.SelectionReport {
	ed.mu.Lock()
	defer ed.mu.Unlock()
	return ed.c.Selection()
}

// mutate runs fn under the record lock and forwards the touched fields to
// the engine. The engine is only called after the lock is released.
func (ed *Editor) mutate(fn func(c *types.Character) ([]string, error)) error {
	ed.mu.Lock()
	fields, err := fn(ed.c)
	ed.mu.Unlock()
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		return nil
	}
	ed.engine.RecordChange(fields...)
	ed.engine.ScheduleSync()
	return nil
}

// SetField writes one scalar field by wire name. The value goes through the
// same conversion and validation the store applies. Ledger totals move only
// through ProposeLedgerChange.
func (ed *Editor) SetField(name string, value any) error {
	if types.IsCollection(name) {
		return fmt.Errorf("%w: %s cannot be set directly", types.ErrUnknownField, name)
	}
	if types.IsDerived(name) || types.IsLedgerField(name) {
		return fmt.Errorf("%w: %s", types.ErrReadOnlyField, name)
	}
	return ed.mutate(func(c *types.Character) ([]string, error) {
		next := c.Clone()
		if err := next.Apply(map[string]any{name: value}); err != nil {
			return nil, err
		}
		*c = *next
		fields := []string{name}
		if slices.Contains(types.Attributes, name) {
			fields = append(fields, ed.calc.Recompute(c, name)...)
		}
		return fields, nil
	})
}

// SetName renames the character.
func (ed *Editor) SetName(name string) error {
	return ed.SetField("name", name)
}

// SetAttribute sets an attribute and raises any capacity derived from it.
func (ed *Editor) SetAttribute(name string, v int) error {
	return ed.mutate(func(c *types.Character) ([]string, error) {
		if err := c.SetAttribute(name, v); err != nil {
			return nil, err
		}
		return append([]string{name}, ed.calc.Recompute(c, name)...), nil
	})
}

// SetSkill sets a skill rating.
func (ed *Editor) SetSkill(name string, v int) error {
	return ed.mutate(func(c *types.Character) ([]string, error) {
		if err := c.SetSkill(name, v); err != nil {
			return nil, err
		}
		return []string{name}, nil
	})
}

// AddSpecialty adds a specialty under a skill.
func (ed *Editor) AddSpecialty(skill, label string) error {
	return ed.mutate(func(c *types.Character) ([]string, error) {
		return []string{"skill_specialties"}, c.AddSpecialty(skill, label)
	})
}

// RemoveSpecialty removes a specialty from a skill.
func (ed *Editor) RemoveSpecialty(skill, label string) error {
	return ed.mutate(func(c *types.Character) ([]string, error) {
		return []string{"skill_specialties"}, c.RemoveSpecialty(skill, label)
	})
}

// Cycle clicks box i of the named tracker and returns the state the click
// resolved against.
func (ed *Editor) Cycle(tracker string, i int) (string, error) {
	var state string
	err := ed.mutate(func(c *types.Character) ([]string, error) {
		var err error
		switch tracker {
		case TrackerHealth:
			state, err = c.Health.Cycle(i)
		case TrackerWillpower:
			state, err = c.Willpower.Cycle(i)
		case TrackerHumanity:
			state, err = c.Humanity.Cycle(i)
			return []string{"humanity_current", "humanity_stained"}, err
		default:
			return nil, fmt.Errorf("%w: tracker %q", types.ErrUnknownTrait, tracker)
		}
		return []string{tracker + "_max", tracker + "_superficial", tracker + "_aggravated"}, err
	})
	return state, err
}

// SetTrackerMax sets the capacity of health or willpower directly.
func (ed *Editor) SetTrackerMax(tracker string, max int) error {
	return ed.mutate(func(c *types.Character) ([]string, error) {
		switch tracker {
		case TrackerHealth:
			return []string{"health_max"}, c.Health.SetMax(max)
		case TrackerWillpower:
			return []string{"willpower_max"}, c.Willpower.SetMax(max)
		default:
			return nil, fmt.Errorf("%w: tracker %q", types.ErrUnknownTrait, tracker)
		}
	})
}

// SetGauge sets danger or desperation and returns its display level.
func (ed *Editor) SetGauge(name string, v int) (string, error) {
	err := ed.mutate(func(c *types.Character) ([]string, error) {
		return []string{name + "_current"}, c.SetGauge(name, v)
	})
	if err != nil {
		return "", err
	}
	return types.ClassifyGauge(v), nil
}

// ProposeLedgerChange adds or spends experience. A rejected proposal, such
// as a spend beyond the available experience, changes nothing and sends
// nothing.
func (ed *Editor) ProposeLedgerChange(kind string, amount int, reason string) (types.LedgerResult, error) {
	var res types.LedgerResult
	err := ed.mutate(func(c *types.Character) ([]string, error) {
		var err error
		res, err = c.Ledger.Propose(kind, amount, reason)
		return ledgerFields, err
	})
	return res, err
}

// AddTouchstone appends a touchstone.
func (ed *Editor) AddTouchstone(t types.Touchstone) error {
	return ed.mutate(func(c *types.Character) ([]string, error) {
		return []string{"touchstones"}, c.AddTouchstone(t)
	})
}

// RemoveTouchstone removes the touchstone at index i.
func (ed *Editor) RemoveTouchstone(i int) error {
	return ed.mutate(func(c *types.Character) ([]string, error) {
		return []string{"touchstones"}, c.RemoveTouchstone(i)
	})
}

// AddAdvantage appends an advantage within the dot budget.
func (ed *Editor) AddAdvantage(t types.DottedTrait) error {
	return ed.mutate(func(c *types.Character) ([]string, error) {
		return []string{"advantages"}, c.AddAdvantage(t)
	})
}

// RemoveAdvantage removes the advantage at index i.
func (ed *Editor) RemoveAdvantage(i int) error {
	return ed.mutate(func(c *types.Character) ([]string, error) {
		return []string{"advantages"}, c.RemoveAdvantage(i)
	})
}

// AddFlaw appends a flaw within the dot budget.
func (ed *Editor) AddFlaw(t types.DottedTrait) error {
	return ed.mutate(func(c *types.Character) ([]string, error) {
		return []string{"flaws"}, c.AddFlaw(t)
	})
}

// RemoveFlaw removes the flaw at index i.
func (ed *Editor) RemoveFlaw(i int) error {
	return ed.mutate(func(c *types.Character) ([]string, error) {
		return []string{"flaws"}, c.RemoveFlaw(i)
	})
}

// AddEquipment appends an item.
func (ed *Editor) AddEquipment(e types.Equipment) error {
	return ed.mutate(func(c *types.Character) ([]string, error) {
		return []string{"equipment"}, c.AddEquipment(e)
	})
}

// RemoveEquipment removes the item at index i.
func (ed *Editor) RemoveEquipment(i int) error {
	return ed.mutate(func(c *types.Character) ([]string, error) {
		return []string{"equipment"}, c.RemoveEquipment(i)
	})
}

// SetEdgeConfig switches the edge budget and returns the resulting
// selection report.
func (ed *Editor) SetEdgeConfig(config string) (types.SelectionReport, error) {
	return ed.selection("edge_config", func(c *types.Character) error { return c.SetEdgeConfig(config) })
}

// AddEdge selects an edge. Incomplete selections are kept and flagged in the
// returned report.
func (ed *Editor) AddEdge(edgeID string) (types.SelectionReport, error) {
	return ed.selection("edges", func(c *types.Character) error { return c.AddEdge(edgeID) })
}

// RemoveEdge deselects an edge and its perks.
func (ed *Editor) RemoveEdge(edgeID string) (types.SelectionReport, error) {
	return ed.selection("edges", func(c *types.Character) error { return c.RemoveEdge(edgeID) })
}

// AddPerk selects a perk under a selected edge.
func (ed *Editor) AddPerk(edgeID, perkID string) (types.SelectionReport, error) {
	return ed.selection("edges", func(c *types.Character) error { return c.AddPerk(edgeID, perkID) })
}

// RemovePerk deselects a perk.
func (ed *Editor) RemovePerk(edgeID, perkID string) (types.SelectionReport, error) {
	return ed.selection("edges", func(c *types.Character) error { return c.RemovePerk(edgeID, perkID) })
}

func (ed *Editor) selection(field string, fn func(c *types.Character) error) (types.SelectionReport, error) {
	var report types.SelectionReport
	err := ed.mutate(func(c *types.Character) ([]string, error) {
		if err := fn(c); err != nil {
			return nil, err
		}
		report = c.Selection()
		return []string{field}, nil
	})
	return report, err
}

// AttachPortrait uploads an image through the asset store and stores the
// returned URL verbatim in the slot's field. The image it replaces is
// removed from the asset store.
func (ed *Editor) AttachPortrait(ctx context.Context, slot, name string, data []byte) (string, error) {
	if _, ok := types.PortraitSlots[slot]; !ok {
		return "", fmt.Errorf("%w: %q", types.ErrInvalidPortrait, slot)
	}
	if ed.assets == nil {
		return "", fmt.Errorf("%w: no asset store configured", types.ErrInvalidAsset)
	}
	url, err := ed.assets.Put(ctx, name, data)
	if err != nil {
		return "", err
	}
	var previous string
	err = ed.mutate(func(c *types.Character) ([]string, error) {
		previous = c.Text[types.PortraitSlots[slot]]
		field, err := c.SetPortrait(slot, url)
		return []string{field}, err
	})
	if err != nil {
		ed.dropAsset(ctx, url)
		return "", err
	}
	if previous != "" && previous != url {
		ed.dropAsset(ctx, previous)
	}
	ed.logger.Debug("portrait attached", "slot", slot, "url", url)
	return url, nil
}

// dropAsset removes an asset that no field references any more. Failures
// are logged; the file is left behind.
func (ed *Editor) dropAsset(ctx context.Context, url string) {
	if err := ed.assets.Delete(ctx, url); err != nil {
		ed.logger.Warn("removing portrait", "url", url, "error", err)
	}
}
