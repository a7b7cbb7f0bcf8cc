// Editing commands. Each opens the character, applies one mutation and
// closes the session, which synchronizes the change before returning.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/charsheet/internal/editor"
	"github.com/mesh-intelligence/charsheet/pkg/types"
)

// errUsage reports a malformed action argument.
var errUsage = errors.New("invalid usage")

func action(got string, allowed ...string) error {
	for _, a := range allowed {
		if got == a {
			return nil
		}
	}
	return fmt.Errorf("%w: action must be one of %s, got %q", errUsage, strings.Join(allowed, ", "), got)
}

func didYouMean(err error, hints []string) error {
	if len(hints) == 0 {
		return err
	}
	return fmt.Errorf("%w (did you mean %s?)", err, strings.Join(hints, ", "))
}

func newSetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <id> <field> <value>",
		Short: "Set a scalar field by wire name",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			field, raw := args[1], args[2]
			if !types.IsField(field) {
				return didYouMean(fmt.Errorf("%w: %q", types.ErrUnknownField, field), types.SuggestField(field))
			}
			v, err := types.ParseFieldValue(field, raw)
			if err != nil {
				return err
			}
			return a.edit(cmd, args[0], func(ed *editor.Editor) (outcome, error) {
				return outcome{Message: fmt.Sprintf("%s = %v", field, v)}, ed.SetField(field, v)
			})
		},
	}
}

func newAttrCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "attr <id> <attribute> <value>",
		Short: "Set an attribute; derived capacities follow",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseInt("value", args[2])
			if err != nil {
				return err
			}
			return a.edit(cmd, args[0], func(ed *editor.Editor) (outcome, error) {
				if err := ed.SetAttribute(args[1], v); err != nil {
					return outcome{}, err
				}
				snap := ed.Snapshot()
				return outcome{
					Message: fmt.Sprintf("%s = %d (health %d, willpower %d)", args[1], v, snap.Health.Max, snap.Willpower.Max),
					Result:  map[string]int{args[1]: v, "health_max": snap.Health.Max, "willpower_max": snap.Willpower.Max},
				}, nil
			})
		},
	}
}

func newSkillCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "skill <id> <skill> <value>",
		Short: "Set a skill rating",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseInt("value", args[2])
			if err != nil {
				return err
			}
			return a.edit(cmd, args[0], func(ed *editor.Editor) (outcome, error) {
				return outcome{Message: fmt.Sprintf("%s = %d", args[1], v)}, ed.SetSkill(args[1], v)
			})
		},
	}
}

func newSpecialtyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "specialty <id> add|remove <skill> <label>",
		Short: "Add or remove a skill specialty",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := action(args[1], "add", "remove"); err != nil {
				return err
			}
			skill, label := args[2], args[3]
			return a.edit(cmd, args[0], func(ed *editor.Editor) (outcome, error) {
				if args[1] == "add" {
					return outcome{Message: "added " + label}, ed.AddSpecialty(skill, label)
				}
				return outcome{Message: "removed " + label}, ed.RemoveSpecialty(skill, label)
			})
		},
	}
}

func newCycleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cycle <id> health|willpower|humanity <index>",
		Short: "Click a tracker box",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			tracker := args[1]
			if err := action(tracker, editor.TrackerHealth, editor.TrackerWillpower, editor.TrackerHumanity); err != nil {
				return err
			}
			i, err := parseInt("index", args[2])
			if err != nil {
				return err
			}
			return a.edit(cmd, args[0], func(ed *editor.Editor) (outcome, error) {
				state, err := ed.Cycle(tracker, i)
				if err != nil {
					return outcome{}, err
				}
				snap := ed.Snapshot()
				boxes := snap.Humanity.Boxes()
				switch tracker {
				case editor.TrackerHealth:
					boxes = snap.Health.Boxes()
				case editor.TrackerWillpower:
					boxes = snap.Willpower.Boxes()
				}
				return outcome{
					Message: fmt.Sprintf("%s box %d was %s: %s", tracker, i, state, renderBoxes(boxes)),
					Result:  map[string]any{"clicked": state, "boxes": boxes},
				}, nil
			})
		},
	}
}

func newGaugeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "gauge <id> danger|desperation <value>",
		Short: "Set the danger or desperation gauge",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := action(args[1], "danger", "desperation"); err != nil {
				return err
			}
			v, err := parseInt("value", args[2])
			if err != nil {
				return err
			}
			return a.edit(cmd, args[0], func(ed *editor.Editor) (outcome, error) {
				level, err := ed.SetGauge(args[1], v)
				if err != nil {
					return outcome{}, err
				}
				return outcome{
					Message: fmt.Sprintf("%s = %d %s", args[1], v, gaugeColor(level)),
					Result:  map[string]any{"value": v, "level": level},
				}, nil
			})
		},
	}
}

func newXPCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "xp <id> add|spend <amount> <reason>",
		Short: "Add or spend experience",
		Args:  cobra.MinimumNArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := action(args[1], types.LedgerAdd, types.LedgerSpend); err != nil {
				return err
			}
			amount, err := parseInt("amount", args[2])
			if err != nil {
				return err
			}
			reason := strings.Join(args[3:], " ")
			return a.edit(cmd, args[0], func(ed *editor.Editor) (outcome, error) {
				res, err := ed.ProposeLedgerChange(args[1], amount, reason)
				if err != nil {
					return outcome{}, err
				}
				return outcome{
					Message: fmt.Sprintf("%d total, %d spent, %d available", res.Total, res.Spent, res.Available),
					Result:  res,
				}, nil
			})
		},
	}
}

func newEdgeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "edge <id> add|remove|config <value>",
		Short: "Select edges or change the edge configuration",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := action(args[1], "add", "remove", "config"); err != nil {
				return err
			}
			value := args[2]
			if args[1] == "add" {
				if _, ok := types.LookupEdge(value); !ok {
					hint := "not in the edge catalog"
					if s := types.SuggestEdge(value); len(s) > 0 {
						hint += "; did you mean " + strings.Join(s, ", ") + "?"
					}
					a.logger.Warn(hint, "edge", value)
				}
			}
			return a.edit(cmd, args[0], func(ed *editor.Editor) (outcome, error) {
				var (
					report types.SelectionReport
					err    error
				)
				switch args[1] {
				case "add":
					report, err = ed.AddEdge(value)
				case "remove":
					report, err = ed.RemoveEdge(value)
				default:
					report, err = ed.SetEdgeConfig(value)
				}
				if err != nil {
					return outcome{}, err
				}
				return outcome{Message: reportMessage(report), Result: report}, nil
			})
		},
	}
}

func newPerkCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "perk <id> add|remove <edge> <perk>",
		Short: "Select or drop a perk under an edge",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := action(args[1], "add", "remove"); err != nil {
				return err
			}
			edgeID, perkID := args[2], args[3]
			return a.edit(cmd, args[0], func(ed *editor.Editor) (outcome, error) {
				var (
					report types.SelectionReport
					err    error
				)
				if args[1] == "add" {
					report, err = ed.AddPerk(edgeID, perkID)
				} else {
					report, err = ed.RemovePerk(edgeID, perkID)
				}
				if err != nil {
					return outcome{}, didYouMean(err, types.SuggestPerk(edgeID, perkID))
				}
				return outcome{Message: reportMessage(report), Result: report}, nil
			})
		},
	}
}

// newTraitCmd builds the advantage and flaw commands.
func newTraitCmd(a *app, kind string) *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   kind + " <id> add <name> <dots> | remove <index>",
		Short: "Add or remove a " + kind,
		Args:  cobra.RangeArgs(3, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := action(args[1], "add", "remove"); err != nil {
				return err
			}
			if args[1] == "remove" {
				i, err := parseInt("index", args[2])
				if err != nil {
					return err
				}
				return a.edit(cmd, args[0], func(ed *editor.Editor) (outcome, error) {
					if kind == "flaw" {
						return outcome{Message: "removed"}, ed.RemoveFlaw(i)
					}
					return outcome{Message: "removed"}, ed.RemoveAdvantage(i)
				})
			}
			if len(args) != 4 {
				return fmt.Errorf("%w: add needs a name and dots", errUsage)
			}
			n, err := parseInt("dots", args[3])
			if err != nil {
				return err
			}
			t := types.DottedTrait{Type: args[2], Description: description, Dots: n}
			return a.edit(cmd, args[0], func(ed *editor.Editor) (outcome, error) {
				if kind == "flaw" {
					return outcome{Message: "added " + t.Type}, ed.AddFlaw(t)
				}
				return outcome{Message: "added " + t.Type}, ed.AddAdvantage(t)
			})
		},
	}
	cmd.Flags().StringVar(&description, "description", "", kind+" description")
	return cmd
}

func newTouchstoneCmd(a *app) *cobra.Command {
	var description, conviction string
	cmd := &cobra.Command{
		Use:   "touchstone <id> add <name> | remove <index>",
		Short: "Add or remove a touchstone",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := action(args[1], "add", "remove"); err != nil {
				return err
			}
			if args[1] == "remove" {
				i, err := parseInt("index", args[2])
				if err != nil {
					return err
				}
				return a.edit(cmd, args[0], func(ed *editor.Editor) (outcome, error) {
					return outcome{Message: "removed"}, ed.RemoveTouchstone(i)
				})
			}
			t := types.Touchstone{Name: args[2], Description: description, Conviction: conviction}
			return a.edit(cmd, args[0], func(ed *editor.Editor) (outcome, error) {
				return outcome{Message: "added " + t.Name}, ed.AddTouchstone(t)
			})
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "touchstone description")
	cmd.Flags().StringVar(&conviction, "conviction", "", "conviction tied to the touchstone")
	return cmd
}

func newEquipmentCmd(a *app) *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "equipment <id> add <name> | remove <index>",
		Short: "Add or remove carried equipment",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := action(args[1], "add", "remove"); err != nil {
				return err
			}
			if args[1] == "remove" {
				i, err := parseInt("index", args[2])
				if err != nil {
					return err
				}
				return a.edit(cmd, args[0], func(ed *editor.Editor) (outcome, error) {
					return outcome{Message: "removed"}, ed.RemoveEquipment(i)
				})
			}
			e := types.Equipment{Name: args[2], Description: description}
			return a.edit(cmd, args[0], func(ed *editor.Editor) (outcome, error) {
				return outcome{Message: "added " + e.Name}, ed.AddEquipment(e)
			})
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "item description")
	return cmd
}

func newPortraitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "portrait <id> <slot> <file>",
		Short: "Upload an image into a portrait slot",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			slot, path := args[1], args[2]
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read image: %w", err)
			}
			return a.edit(cmd, args[0], func(ed *editor.Editor) (outcome, error) {
				url, err := ed.AttachPortrait(ctxOf(cmd), slot, filepath.Base(path), data)
				if err != nil {
					return outcome{}, err
				}
				return outcome{Message: slot + " = " + url, Result: map[string]string{"url": url}}, nil
			})
		},
	}
}
