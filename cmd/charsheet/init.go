package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/charsheet/internal/paths"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize charsheet storage",
		Long:  "Create configuration and data directories, then initialize the storage backend.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, err := paths.ResolveConfigDir(a.flags.configDir)
			if err != nil {
				return sysErr(err)
			}
			backend, dataDir, err := a.attachBackend()
			if err != nil {
				return err
			}
			if err := backend.Detach(); err != nil {
				return sysErr(fmt.Errorf("finalize storage: %w", err))
			}
			// config.yaml already exists from PersistentPreRunE; pin the
			// data directory only when it was created without one.
			if a.settings.DataDir == "" {
				if err := pinDataDir(filepath.Join(configDir, configFileExt), dataDir); err != nil {
					return sysErr(err)
				}
			}

			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]string{
					"config_dir": configDir,
					"data_dir":   dataDir,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "charsheet initialized\nconfig: %s\ndata:   %s\n", configDir, dataDir)
			return nil
		},
	}
}
