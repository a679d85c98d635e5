package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHourlySummaryCmd() *cobra.Command {
	var (
		hours          int
		markSuperseded bool
	)

	cmd := &cobra.Command{
		Use:   "hourly-summary",
		Short: "Roll up the trailing window of episodes into a single summary episode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, closer, err := openMemory(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = closer() }()

			ep, err := m.HourlySummary(cmd.Context(), hours, markSuperseded)
			if err != nil {
				return err
			}
			if ep == nil {
				fmt.Fprintln(cmd.OutOrStdout(), dimStyle.Render("nothing to summarize"))
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\n", ep.ID, ep.Text)
			return nil
		},
	}

	cmd.Flags().IntVar(&hours, "hours", 1, "trailing window size, in hours")
	cmd.Flags().BoolVar(&markSuperseded, "mark-superseded", false, "mark rolled-up episodes as superseded by the summary")
	return cmd
}
