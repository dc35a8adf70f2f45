// Command briefmectl inspects a BriefMe database from the command line.
//
//	briefmectl export --db data/briefme.db --user <userID>
//	briefmectl responses --db data/briefme.db --briefing <briefingID>
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var dbPath string

	root := &cobra.Command{
		Use:           "briefmectl",
		Short:         "Inspect BriefMe briefings and responses",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dbPath, "db", "data/briefme.db", "path to the SQLite database")

	// export
	var userID string
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Print a user's briefing collection as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.Context(), dbPath, userID, cmd.OutOrStdout())
		},
	}
	exportCmd.Flags().StringVarP(&userID, "user", "u", "", "owner user ID (required)")
	_ = exportCmd.MarkFlagRequired("user")
	root.AddCommand(exportCmd)

	// responses
	var briefingID string
	responsesCmd := &cobra.Command{
		Use:   "responses",
		Short: "Print a briefing's responses as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResponses(cmd.Context(), dbPath, briefingID, cmd.OutOrStdout())
		},
	}
	responsesCmd.Flags().StringVarP(&briefingID, "briefing", "b", "", "briefing ID (required)")
	_ = responsesCmd.MarkFlagRequired("briefing")
	root.AddCommand(responsesCmd)

	return root
}
