package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/engramhq/engram/internal/memory"
)

func newInjectCmd() *cobra.Command {
	var (
		excludeTags  []string
		priorityTags []string
		recentLimit  int
		maxTokens    int
	)

	cmd := &cobra.Command{
		Use:   "inject <query>",
		Short: "Build a compact prompt-injection block (relevant + recent memories)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, closer, err := openMemory(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = closer() }()

			out, err := m.InjectContext(cmd.Context(), args[0], memory.InjectOptions{
				ExcludeTags:  excludeTags,
				PriorityTags: priorityTags,
				RecentLimit:  recentLimit,
				MaxTokens:    maxTokens,
			})
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&excludeTags, "exclude-tags", nil, "drop episodes carrying any of these tags")
	cmd.Flags().StringSliceVar(&priorityTags, "priority-tags", nil, "boost episodes carrying any of these tags")
	cmd.Flags().IntVar(&recentLimit, "recent-limit", 0, "recency fallback count (0 => default 10)")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "approximate token budget (0 => default 2000)")
	return cmd
}
