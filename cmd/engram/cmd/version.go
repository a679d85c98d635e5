package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/engramhq/engram/pkg/version"
)

func newVersionCmd() *cobra.Command {
	var short bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show engram version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			switch {
			case jsonOutput:
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(version.GetInfo())
			case short:
				fmt.Fprintln(w, version.Short())
			default:
				fmt.Fprintln(w, version.String())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&short, "short", false, "print only the version number")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print build info as JSON")
	return cmd
}
