package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/engramhq/engram/internal/store"
)

func newRecentCmd() *cobra.Command {
	var n int

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List the most recently created episodes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, closer, err := openMemory(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = closer() }()

			eps, err := m.GetRecent(cmd.Context(), n)
			if err != nil {
				return err
			}
			printEpisodes(cmd, eps)
			return nil
		},
	}

	cmd.Flags().IntVar(&n, "n", 10, "number of episodes to list")
	return cmd
}

func printEpisodes(cmd *cobra.Command, eps []*store.Episode) {
	w := cmd.OutOrStdout()
	if len(eps) == 0 {
		fmt.Fprintln(w, dimStyle.Render("no episodes"))
		return
	}
	for _, ep := range eps {
		fmt.Fprintf(w, "%s (%s) [%s]\n", ep.ID, ep.Type, strings.Join(ep.Tags, ","))
		fmt.Fprintf(w, "    %s\n", truncateForDisplay(ep.Text, 160))
	}
}
