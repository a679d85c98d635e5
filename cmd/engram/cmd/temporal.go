package cmd

import (
	"github.com/spf13/cobra"

	"github.com/engramhq/engram/internal/memory"
)

func newTemporalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "temporal <query>",
		Short: "Recall episodes within a natural-language time range",
		Long:  `Recognizes a fixed set of phrases (yesterday, last week, this week, last month, this month, today) anchored to now.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, closer, err := openMemory(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = closer() }()

			eps, err := m.Temporal(cmd.Context(), args[0], memory.RecallOptions{})
			if err != nil {
				return err
			}
			printEpisodes(cmd, eps)
			return nil
		},
	}
	return cmd
}
