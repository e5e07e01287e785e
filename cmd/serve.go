package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/matheuskafuri/newsdesk/internal/browser"
	"github.com/matheuskafuri/newsdesk/internal/feed"
	"github.com/matheuskafuri/newsdesk/internal/logger"
	"github.com/matheuskafuri/newsdesk/internal/scheduler"
	"github.com/matheuskafuri/newsdesk/internal/web"
)

const shutdownTimeout = 10 * time.Second

var (
	flagAddr string
	flagOpen bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Ingest feeds on a schedule and serve the dashboard",
	RunE:  runServe,
}

func init() {
	addServeFlags(serveCmd)
}

func addServeFlags(c *cobra.Command) {
	c.Flags().StringVar(&flagAddr, "addr", "", "listen address (overrides config and NEWSDESK_ADDR)")
	c.Flags().BoolVar(&flagOpen, "open", false, "open the dashboard in a browser once listening")
}

func runServe(cmd *cobra.Command, args []string) error {
	db, dbPath, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := flagAddr
	if addr == "" {
		addr = cfg.ListenAddr()
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	logger.Infow("dashboard listening", "addr", ln.Addr().String(), "db", dbPath)

	if flagOpen {
		if u, err := browser.DashboardURL(addr); err != nil {
			logger.Warnw("cannot build dashboard url", "error", err)
		} else if err := browser.Open(u); err != nil {
			logger.Warnw("cannot open browser", "url", u, "error", err)
		}
	}

	return serve(ctx, db, feed.NewIngestor(db, nil, cfg), ln)
}

// serve runs the initial ingestion, the scheduler and the dashboard on ln
// until ctx is cancelled. Ingestion errors are logged and never stop it.
func serve(ctx context.Context, articles web.Articles, ingestor web.Refresher, ln net.Listener) error {
	// Requests queue on the bound listener until the first run is done.
	report, err := ingestor.FetchAndStore(ctx)
	if err != nil {
		logger.Warnw("initial ingestion failed", "run", report.RunID, "error", err)
	} else {
		logger.Infow("initial ingestion done", "run", report.RunID, "stored", report.StoredCount(), "failed", report.FailedCount())
	}

	sched := scheduler.New("ingest", cfg.RefreshDuration(), func(ctx context.Context) error {
		_, err := ingestor.FetchAndStore(ctx)
		return err
	})
	if err := sched.Start(ctx); err != nil {
		ln.Close()
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer sched.Stop()
	logger.Infow("ingestion scheduled", "every", sched.Interval().String())

	srv, err := web.New(articles, ingestor, cfg.GetPageSize())
	if err != nil {
		ln.Close()
		return err
	}
	httpSrv := &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Infow("shutting down")
	sched.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
