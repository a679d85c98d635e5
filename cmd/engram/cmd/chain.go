package cmd

import (
	"github.com/spf13/cobra"

	engerrors "github.com/engramhq/engram/internal/errors"
)

func newChainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chain <id>",
		Short: "Show the full oldest-to-newest supersession chain an episode belongs to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, closer, err := openMemory(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = closer() }()

			chain, err := m.SupersessionChain(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(chain) == 0 {
				return engerrors.NotFound("episode not found: "+args[0], nil)
			}
			printEpisodes(cmd, chain)
			return nil
		},
	}
	return cmd
}
