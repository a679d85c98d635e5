package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	engerrors "github.com/engramhq/engram/internal/errors"
	"github.com/engramhq/engram/internal/integrity"
	"github.com/engramhq/engram/internal/store"
)

func newVerifyCmd() *cobra.Command {
	var root string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify the current store still proves into a previously recorded Merkle root",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if root == "" {
				return engerrors.UsageError("--root is required", nil)
			}

			s := store.NewLocalStore(storePath)
			if err := s.Init(cmd.Context()); err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			eps, err := s.GetAllEpisodes(cmd.Context())
			if err != nil {
				return err
			}

			snap, err := integrity.CreateSnapshot(eps, time.Now().UnixMilli())
			if err != nil {
				return err
			}

			if snap.Root != root {
				return engerrors.IntegrityFailure(fmt.Sprintf("store root %s does not match recorded root %s", snap.Root, root), nil)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "ok: store matches root %s (%d episodes)\n", root, snap.EpisodeCount)
			return nil
		},
	}

	cmd.Flags().StringVar(&root, "root", "", "the recorded Merkle root to verify against")
	return cmd
}
