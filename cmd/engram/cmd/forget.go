package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	engerrors "github.com/engramhq/engram/internal/errors"
)

func newForgetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forget <id>",
		Short: "Delete an episode by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, closer, err := openMemory(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = closer() }()

			deleted, err := m.Forget(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !deleted {
				return engerrors.NotFound("episode not found: "+args[0], nil)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "forgot %s\n", args[0])
			return nil
		},
	}
	return cmd
}
