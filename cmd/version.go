package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/matheuskafuri/newsdesk/internal/update"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "newsdesk %s (commit: %s, built: %s)\n", version, commit, date)

		ctx, cancel := context.WithTimeout(cmd.Context(), 3*time.Second)
		defer cancel()
		if res := update.NewChecker().Check(ctx, version); res != nil {
			fmt.Fprintf(out, "A newer release is available: %s\n", res.LatestVersion)
		}
	},
}
