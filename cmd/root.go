package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/matheuskafuri/newsdesk/internal/config"
	"github.com/matheuskafuri/newsdesk/internal/logger"
	"github.com/matheuskafuri/newsdesk/internal/store"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	flagConfig string
	flagDB     string
)

// cfg is loaded once per invocation before any command runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "newsdesk",
	Short: "Self-hosted news headline desk",
	Long: `newsdesk polls a list of RSS/Atom feeds, keeps every new headline in a local
SQLite database and serves a dashboard for browsing and labelling them.

Running newsdesk with no subcommand is the same as "newsdesk serve".`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) { logger.Sync() },
	RunE:              runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "path to the SQLite database (overrides config and "+config.EnvDatabase+")")
	addServeFlags(rootCmd)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(versionCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	// A missing .env is the normal case.
	_ = godotenv.Load()

	c, err := config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg = c

	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
	}); err != nil {
		return fmt.Errorf("initialising logger: %w", err)
	}
	return nil
}

func databasePath() string {
	if flagDB != "" {
		return flagDB
	}
	return cfg.DatabasePath()
}

func openStore() (*store.Store, string, error) {
	path := databasePath()
	db, err := store.Open(path)
	if err != nil {
		return nil, path, fmt.Errorf("opening database: %w", err)
	}
	if !db.Strict() {
		logger.Warnw("database holds duplicate sources, running without the uniqueness guarantee", "path", path)
	}
	return db, path, nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}
