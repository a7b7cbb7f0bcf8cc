// Delete command for the charsheet CLI.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/charsheet/internal/assets"
)

// deleteResult is the JSON shape printed after a delete.
type deleteResult struct {
	ID        string   `json:"id"`
	Status    string   `json:"status"`
	Portraits []string `json:"portraits_removed,omitempty"`
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a character, its experience log and its portraits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, dataDir, err := a.attachBackend()
			if err != nil {
				return err
			}
			defer backend.Detach()

			ctx := ctxOf(cmd)
			access := a.access()
			c, err := backend.Get(ctx, access, args[0])
			if err != nil {
				return err
			}
			if err := backend.Delete(ctx, access, c.ID); err != nil {
				return err
			}

			res := deleteResult{ID: c.ID, Status: "deleted"}
			files := assets.NewFileStore(dataDir, a.logger)
			for _, url := range c.PortraitURLs() {
				if err := files.Delete(ctx, url); err != nil {
					a.logger.Warn("removing portrait", "id", c.ID, "url", url, "error", err)
					continue
				}
				res.Portraits = append(res.Portraits, url)
			}

			w := cmd.OutOrStdout()
			if a.flags.jsonMode {
				return printJSON(w, res)
			}
			fmt.Fprintf(w, "deleted %s (%s)\n", c.Name, c.ID)
			return nil
		},
	}
}
