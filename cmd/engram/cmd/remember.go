package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/engramhq/engram/internal/analyzer"
	"github.com/engramhq/engram/internal/memory"
)

func newRememberCmd() *cobra.Command {
	var (
		epType     string
		tags       []string
		importance float64
		supersedes []string
		chunkMode  string
	)

	cmd := &cobra.Command{
		Use:   "remember <text>",
		Short: "Store a new episode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, closer, err := openMemory(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = closer() }()

			eps, err := m.Remember(cmd.Context(), args[0], memory.RememberOptions{
				Type:       epType,
				Tags:       tags,
				Importance: importance,
				Supersedes: supersedes,
				ChunkMode:  analyzer.Mode(chunkMode),
			})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "remembered %d episode(s):\n", len(eps))
			for _, ep := range eps {
				fmt.Fprintf(w, "  %s (%s) [%s]\n", ep.ID, ep.Type, strings.Join(ep.Tags, ","))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&epType, "type", "fact", "episode type")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "comma-separated tags")
	cmd.Flags().Float64Var(&importance, "importance", 0, "importance in [0,1], 0 => default 0.5")
	cmd.Flags().StringSliceVar(&supersedes, "supersedes", nil, "ids this episode supersedes")
	cmd.Flags().StringVar(&chunkMode, "chunk-mode", "", "chunk mode: paragraph, sentence, fixed (default: config)")

	return cmd
}
