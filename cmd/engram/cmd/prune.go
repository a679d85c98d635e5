package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/engramhq/engram/internal/memory"
)

func newPruneCmd() *cobra.Command {
	var (
		keep          int
		maxAgeDays    int
		minImportance float64
	)

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Forget low-importance, aged episodes beyond the retention policy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, closer, err := openMemory(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = closer() }()

			opts := memory.PruneOptions{Keep: keep, MaxAgeDays: maxAgeDays}
			if cmd.Flags().Changed("min-importance") {
				opts.MinImportance = &minImportance
			}

			result, err := m.Prune(cmd.Context(), opts)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "pruned %d episode(s), kept %d\n", len(result.Pruned), result.Kept)
			for _, id := range result.Pruned {
				fmt.Fprintf(w, "  - %s\n", id)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&keep, "keep", 0, "always-retained top-N episodes (0 => config default)")
	cmd.Flags().IntVar(&maxAgeDays, "max-age-days", 0, "age past which a low-importance episode is eligible (0 => config default)")
	cmd.Flags().Float64Var(&minImportance, "min-importance", 0, "effective-importance floor below which an aged episode is pruned (default: config default)")

	return cmd
}
