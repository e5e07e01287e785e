package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/matheuskafuri/newsdesk/internal/store"
	"github.com/matheuskafuri/newsdesk/internal/termui"
)

const defaultListWidth = 100

var (
	flagListDate  string
	flagListPage  int
	flagListLimit int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print stored articles, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagListPage < 1 {
			return fmt.Errorf("invalid --page %d: must be at least 1", flagListPage)
		}
		if flagListDate != "" {
			if err := validateDate(flagListDate); err != nil {
				return err
			}
		}

		db, _, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		limit := flagListLimit
		if limit <= 0 {
			limit = cfg.GetPageSize()
		}
		page, err := db.ListArticles(cmd.Context(), store.ListOpts{
			Limit:  limit,
			Offset: (flagListPage - 1) * limit,
			Date:   flagListDate,
		})
		if err != nil {
			return fmt.Errorf("listing articles: %w", err)
		}

		fmt.Fprint(cmd.OutOrStdout(), termui.RenderArticles(page, terminalWidth()))
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show database statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, dbPath, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		count, size, err := db.Stats(cmd.Context(), dbPath)
		if err != nil {
			return fmt.Errorf("reading stats: %w", err)
		}
		page, err := db.ListArticles(cmd.Context(), store.ListOpts{Limit: 1})
		if err != nil {
			return fmt.Errorf("reading dates: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Database: %s\n", dbPath)
		fmt.Fprintf(out, "Articles: %d\n", count)
		fmt.Fprintf(out, "Size: %s\n", formatBytes(size))
		if first, last, ok := dateRange(page.Dates); ok {
			fmt.Fprintf(out, "Days: %d (%s to %s)\n", len(page.Dates), first, last)
		}
		names := cfg.FeedNames()
		fmt.Fprintf(out, "Feeds: %d enabled", len(names))
		if len(names) > 0 {
			fmt.Fprintf(out, " (%s)", strings.Join(names, ", "))
		}
		fmt.Fprintln(out)
		if !db.Strict() {
			fmt.Fprintln(out, "Warning: duplicate sources present, uniqueness is not enforced")
		}
		return nil
	},
}

func init() {
	listCmd.Flags().StringVar(&flagListDate, "date", "", "only show one day (YYYY-MM-DD)")
	listCmd.Flags().IntVar(&flagListPage, "page", 1, "page number, starting at 1")
	listCmd.Flags().IntVar(&flagListLimit, "limit", 0, "articles per page (default: page_size from config)")
}

func validateDate(s string) error {
	if _, err := time.Parse(store.DateLayout, s); err != nil {
		return fmt.Errorf("invalid --date %q: want YYYY-MM-DD", s)
	}
	return nil
}

// dateRange expects days newest first, as the store returns them.
func dateRange(days []string) (first, last string, ok bool) {
	if len(days) == 0 {
		return "", "", false
	}
	return days[len(days)-1], days[0], true
}

func terminalWidth() int {
	if n, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && n > 0 {
		return n
	}
	return defaultListWidth
}

func formatBytes(b int64) string {
	switch {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
