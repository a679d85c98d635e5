package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	engerrors "github.com/engramhq/engram/internal/errors"
	"github.com/engramhq/engram/internal/integrity"
	"github.com/engramhq/engram/internal/store"
)

func newSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Write a Merkle-anchored integrity snapshot of the current store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
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

			data, err := json.MarshalIndent(snap, "", "  ")
			if err != nil {
				return engerrors.TransportError("marshal snapshot", err)
			}

			path := filepath.Join(s.AnchorsDir(), fmt.Sprintf("snapshot-%d.json", snap.Timestamp))
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return engerrors.TransportError("write snapshot: "+path, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "root %s\nepisodes %d\nwritten to %s\n", snap.Root, snap.EpisodeCount, path)
			return nil
		},
	}
	return cmd
}
