package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/engramhq/engram/internal/memory"
)

func newRecallCmd() *cobra.Command {
	var (
		tags              []string
		epType            string
		limit             int
		includeSuperseded bool
		noSynonyms        bool
	)

	cmd := &cobra.Command{
		Use:   "recall <query>",
		Short: "Search episodic memory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, closer, err := openMemory(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = closer() }()

			opts := memory.RecallOptions{
				Tags:              tags,
				Type:              epType,
				Limit:             limit,
				IncludeSuperseded: includeSuperseded,
			}
			if noSynonyms {
				f := false
				opts.UseSynonyms = &f
			}

			results, err := m.Recall(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			printRecallResults(cmd, results)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&tags, "tags", nil, "filter to episodes carrying all of these tags")
	cmd.Flags().StringVar(&epType, "type", "", "filter to this episode type")
	cmd.Flags().IntVar(&limit, "limit", 0, "max results (0 => config default)")
	cmd.Flags().BoolVar(&includeSuperseded, "include-superseded", false, "include superseded episodes")
	cmd.Flags().BoolVar(&noSynonyms, "no-synonyms", false, "disable synonym query expansion")

	return cmd
}

func printRecallResults(cmd *cobra.Command, results []*memory.RecallResult) {
	w := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintln(w, dimStyle.Render("no results"))
		return
	}

	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%d result(s)", len(results))))
	for _, r := range results {
		fmt.Fprintf(w, "%s %.3f  %s (%s) [%s]\n", scoreBar(r.Score, 10), r.Score, r.Episode.ID, r.Episode.Type, strings.Join(r.Episode.Tags, ","))
		fmt.Fprintf(w, "    %s\n", truncateForDisplay(r.Episode.Text, 160))
	}
}

func truncateForDisplay(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "…"
}
