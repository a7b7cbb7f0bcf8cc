// Character lifecycle commands: new, list, show.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/charsheet/internal/editor"
	"github.com/mesh-intelligence/charsheet/pkg/types"
)

func newNewCmd(a *app) *cobra.Command {
	var (
		name      string
		chronicle string
	)
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a character",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, dataDir, err := a.attachBackend()
			if err != nil {
				return err
			}
			defer backend.Detach()

			ed := editor.New(types.NewCharacter(""), a.editorOptions(backend, dataDir))
			return a.finish(cmd, ed, func(ed *editor.Editor) (outcome, error) {
				if err := ed.SetName(name); err != nil {
					return outcome{}, err
				}
				if chronicle != "" {
					if err := ed.SetField("chronicle", chronicle); err != nil {
						return outcome{}, err
					}
				}
				return outcome{Message: "created " + name}, nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "character name")
	cmd.Flags().StringVar(&chronicle, "chronicle", "", "chronicle the character plays in")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List characters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, _, err := a.attachBackend()
			if err != nil {
				return err
			}
			defer backend.Detach()

			list, err := backend.List(ctxOf(cmd), a.access())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if a.flags.jsonMode {
				if list == nil {
					list = []types.Summary{}
				}
				return printJSON(w, list)
			}
			if len(list) == 0 {
				fmt.Fprintln(w, "no characters")
				return nil
			}
			for _, s := range list {
				fmt.Fprintf(w, "%s  %-24s %s\n", s.ID, s.Name, color.HiBlackString(s.Chronicle))
			}
			return nil
		},
	}
}

func newShowCmd(a *app) *cobra.Command {
	var asYAML bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Display a character sheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, _, err := a.attachBackend()
			if err != nil {
				return err
			}
			defer backend.Detach()

			c, err := backend.Get(ctxOf(cmd), a.access(), args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			switch {
			case a.flags.jsonMode:
				return printJSON(w, sheet(c))
			case asYAML:
				return printYAML(w, sheet(c))
			default:
				printSheet(w, c)
				return nil
			}
		},
	}
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "export the sheet as YAML")
	return cmd
}

func ctxOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// sheet is the export view: the wire fields plus identity.
func sheet(c *types.Character) map[string]any {
	out := c.Fields()
	out["id"] = c.ID
	out["owner_id"] = c.OwnerID
	return out
}

// printYAML exports v through its JSON form so field names match the wire
// names.
func printYAML(w io.Writer, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return sysErr(fmt.Errorf("marshal JSON: %w", err))
	}
	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return sysErr(fmt.Errorf("unmarshal JSON: %w", err))
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return sysErr(fmt.Errorf("marshal YAML: %w", err))
	}
	return enc.Close()
}

var boxGlyph = map[string]string{
	types.BoxEmpty:       "[ ]",
	types.BoxFilled:      "[o]",
	types.BoxSuperficial: "[/]",
	types.BoxAggravated:  "[X]",
	types.BoxStained:     "[s]",
}

func renderBoxes(states []string) string {
	var b strings.Builder
	for _, s := range states {
		if g, ok := boxGlyph[s]; ok {
			b.WriteString(g)
		}
	}
	return b.String()
}

func printSheet(w io.Writer, c *types.Character) {
	bold := color.New(color.Bold)
	bold.Fprintln(w, c.Name)
	fmt.Fprintf(w, "ID:        %s\n", c.ID)
	fmt.Fprintf(w, "Owner:     %s\n", c.OwnerID)
	if ch := c.Text["chronicle"]; ch != "" {
		fmt.Fprintf(w, "Chronicle: %s\n", ch)
	}
	fmt.Fprintf(w, "Updated:   %s\n", c.UpdatedAt.Format("2006-01-02 15:04:05"))

	fmt.Fprintln(w, "\nAttributes:")
	for _, name := range types.Attributes {
		fmt.Fprintf(w, "  %-14s %s\n", name, dots(c.Attributes[name]))
	}
	fmt.Fprintln(w, "\nSkills:")
	for _, name := range types.Skills {
		v := c.Skills[name]
		if v == 0 && len(c.Specialties[name]) == 0 {
			continue
		}
		line := fmt.Sprintf("  %-14s %s", name, dots(v))
		if sp := c.Specialties[name]; len(sp) > 0 {
			line += color.HiBlackString(" (" + strings.Join(sp, ", ") + ")")
		}
		fmt.Fprintln(w, line)
	}

	fmt.Fprintln(w, "\nTrackers:")
	fmt.Fprintf(w, "  health         %s\n", renderBoxes(c.Health.Boxes()))
	fmt.Fprintf(w, "  willpower      %s\n", renderBoxes(c.Willpower.Boxes()))
	fmt.Fprintf(w, "  humanity       %s\n", renderBoxes(c.Humanity.Boxes()))
	fmt.Fprintf(w, "  danger         %d %s\n", c.Danger, gaugeColor(types.ClassifyGauge(c.Danger)))
	fmt.Fprintf(w, "  desperation    %d %s\n", c.Desperation, gaugeColor(types.ClassifyGauge(c.Desperation)))
	if c.InDespair {
		fmt.Fprintln(w, "  "+color.RedString("in despair"))
	}

	fmt.Fprintf(w, "\nExperience: %d total, %d spent, %d available\n", c.Ledger.Total(), c.Ledger.Spent(), c.Ledger.Available())

	if len(c.Edges) > 0 {
		fmt.Fprintf(w, "\nEdges (%s):\n", c.EdgeConfig)
		for _, e := range c.Edges {
			fmt.Fprintf(w, "  %s %s\n", e.EdgeID, color.HiBlackString(strings.Join(e.Perks, ", ")))
		}
		fmt.Fprintln(w, "  "+reportMessage(c.Selection()))
	}
	printTraits(w, "Advantages", c.Advantages)
	printTraits(w, "Flaws", c.Flaws)
	if len(c.Touchstones) > 0 {
		fmt.Fprintln(w, "\nTouchstones:")
		for i, t := range c.Touchstones {
			fmt.Fprintf(w, "  %d. %s %s\n", i, t.Name, color.HiBlackString(t.Conviction))
		}
	}
	if len(c.Equipment) > 0 {
		fmt.Fprintln(w, "\nEquipment:")
		for i, e := range c.Equipment {
			fmt.Fprintf(w, "  %d. %s\n", i, e.Name)
		}
	}
}

func printTraits(w io.Writer, title string, traits []types.DottedTrait) {
	if len(traits) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s:\n", title)
	for i, t := range traits {
		fmt.Fprintf(w, "  %d. %-20s %s\n", i, t.Type, dots(t.Dots))
	}
}

func dots(n int) string {
	if n <= 0 {
		return "-"
	}
	return strings.Repeat("●", n)
}
