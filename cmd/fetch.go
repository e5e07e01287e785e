package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matheuskafuri/newsdesk/internal/feed"
	"github.com/matheuskafuri/newsdesk/internal/termui"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Run one ingestion pass and print what was stored",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, _, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		report, err := feed.NewIngestor(db, nil, cfg).FetchAndStore(cmd.Context())
		fmt.Fprint(cmd.OutOrStdout(), termui.RenderReport(report))
		if err != nil {
			return fmt.Errorf("storing articles: %w", err)
		}
		return nil
	},
}
