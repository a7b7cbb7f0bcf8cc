// Root command for the charsheet CLI.
package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/charsheet/internal/paths"
	"github.com/mesh-intelligence/charsheet/pkg/types"
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir   string
	dataDir     string
	jsonMode    bool
	storyteller bool
}

// app is the state shared by one invocation's commands.
type app struct {
	flags    rootFlags
	settings settings
	logger   *slog.Logger
}

// newRootCmd creates the top-level "charsheet" command with global flags
// and all subcommands registered.
func newRootCmd() *cobra.Command {
	a := &app{logger: slog.Default()}

	root := &cobra.Command{
		Use:           "charsheet",
		Short:         "Character sheets with autosave",
		Long:          "Charsheet creates and edits tabletop character sheets.\nEvery edit is validated and synchronized with the local store.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.load(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	pf.StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: platform data dir)")
	pf.BoolVar(&a.flags.jsonMode, "json", false, "output as JSON")
	pf.BoolVar(&a.flags.storyteller, "storyteller", false, "act in storyteller mode (all characters)")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(a),
		newNewCmd(a),
		newListCmd(a),
		newShowCmd(a),
		newDeleteCmd(a),
		newSetCmd(a),
		newAttrCmd(a),
		newSkillCmd(a),
		newSpecialtyCmd(a),
		newCycleCmd(a),
		newGaugeCmd(a),
		newXPCmd(a),
		newEdgeCmd(a),
		newPerkCmd(a),
		newTraitCmd(a, "advantage"),
		newTraitCmd(a, "flaw"),
		newTouchstoneCmd(a),
		newEquipmentCmd(a),
		newPortraitCmd(a),
	)
	return root
}

// load resolves the configuration directory, reads config.yaml and builds
// the logger.
func (a *app) load(cmd *cobra.Command) error {
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return sysErr(err)
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return sysErr(err)
	}
	s, err := resolveSettings(v)
	if err != nil {
		return err
	}
	a.settings = s
	a.logger = newLogger(cmd.ErrOrStderr(), s.LogLevel, s.LogFormat)
	return nil
}

// access returns the caller identity for store calls.
func (a *app) access() types.Access {
	if a.flags.storyteller || a.settings.Mode == types.ModeStoryteller {
		return types.Storyteller(a.settings.User)
	}
	return types.Owner(a.settings.User)
}

// resolveDataDir returns the data directory following the precedence chain
// --data-dir > CHARSHEET_DATA_DIR > config.yaml data_dir > platform default.
func (a *app) resolveDataDir() (string, error) {
	return paths.ResolveDataDir(a.flags.dataDir, a.settings.DataDir)
}
