package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show store statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, closer, err := openMemory(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = closer() }()

			stats, err := m.Stats(cmd.Context())
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, headerStyle.Render("Engram Store Statistics"))
			fmt.Fprintf(w, "%s %d\n", dimStyle.Render("episodes:"), stats.EpisodeCount)
			fmt.Fprintf(w, "%s %d\n", dimStyle.Render("total bytes:"), stats.TotalBytes)
			fmt.Fprintf(w, "%s %s\n", dimStyle.Render("backing path:"), stats.BackingPath)
			return nil
		},
	}
	return cmd
}
