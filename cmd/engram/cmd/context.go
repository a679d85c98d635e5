package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newContextCmd() *cobra.Command {
	var maxTokens int

	cmd := &cobra.Command{
		Use:   "context <query>",
		Short: "Build a formatted context block from the top matches for a query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, closer, err := openMemory(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = closer() }()

			out, err := m.BuildContext(cmd.Context(), args[0], maxTokens)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().IntVar(&maxTokens, "max-tokens", 1000, "approximate token budget for the context block")
	return cmd
}
