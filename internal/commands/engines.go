package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newEnginesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "engines",
		Short: "List the configured engines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range a.cfg.Engines {
				marker := " "
				if name == a.cfg.DefaultEngine {
					marker = "*"
				}
				fmt.Fprintf(a.deps.Stdout, "%s %s\n", marker, name)
			}

			bridgeURL := a.cfg.Bridge.URL
			if bridgeURL == "" {
				bridgeURL = "not configured"
			}
			fmt.Fprintf(a.deps.Stdout, "\nbridge: %s\n", bridgeURL)
			return nil
		},
	}
}
