package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matheuskafuri/newsdesk/internal/classify"
	"github.com/matheuskafuri/newsdesk/internal/config"
	"github.com/matheuskafuri/newsdesk/internal/logger"
	"github.com/matheuskafuri/newsdesk/internal/store"
)

// Store is the slice of the article store the ingestor writes through.
type Store interface {
	ExistsBySource(ctx context.Context, source string) (bool, error)
	InsertArticle(ctx context.Context, a store.Article) (int64, error)
}

// FeedReport describes what one ingestion run did with one feed.
type FeedReport struct {
	Feed      config.Feed
	Fetched   int
	Stored    []string // headlines
	Skipped   int
	Malformed int
	Err       error
}

// Report is the outcome of one ingestion run.
type Report struct {
	RunID    string
	Started  time.Time
	Duration time.Duration
	Feeds    []FeedReport
}

func (r Report) StoredCount() int {
	n := 0
	for _, f := range r.Feeds {
		n += len(f.Stored)
	}
	return n
}

func (r Report) FailedCount() int {
	n := 0
	for _, f := range r.Feeds {
		if f.Err != nil {
			n++
		}
	}
	return n
}

type Ingestor struct {
	store   Store
	fetcher Fetcher
	feeds   []config.Feed
	limit   int
	timeout time.Duration
	now     func() time.Time
}

// NewIngestor builds an ingestor over the enabled feeds of cfg. A nil fetcher
// selects an RSSFetcher bounded by the configured fetch timeout.
func NewIngestor(s Store, fetcher Fetcher, cfg *config.Config) *Ingestor {
	timeout := cfg.FetchTimeoutDuration()
	if fetcher == nil {
		fetcher = NewRSSFetcher(timeout)
	}
	return &Ingestor{
		store:   s,
		fetcher: fetcher,
		feeds:   cfg.EnabledFeeds(),
		limit:   cfg.GetEntriesPerFeed(),
		timeout: timeout,
		now:     time.Now,
	}
}

type fetchResult struct {
	entries []Entry
	err     error
}

// FetchAndStore runs one ingestion pass over every configured feed.
//
// Feeds are downloaded concurrently, each under its own timeout; a feed that
// fails is logged and recorded in the report without affecting the others.
// Entries are then stored feed by feed in configuration order, so the first
// occurrence of a link wins. Only a store failure aborts the run.
func (i *Ingestor) FetchAndStore(ctx context.Context) (Report, error) {
	start := time.Now()
	report := Report{RunID: uuid.NewString(), Started: i.now()}
	log := logger.L.With("run", report.RunID)
	log.Infow("ingestion run started", "feeds", len(i.feeds))

	results := i.fetchAll(ctx)

	for idx, f := range i.feeds {
		fr := FeedReport{Feed: f, Err: results[idx].err}
		if fr.Err != nil {
			log.Warnw("feed fetch failed", "feed", f.Name, "url", f.URL, "error", fr.Err)
			report.Feeds = append(report.Feeds, fr)
			continue
		}

		entries := results[idx].entries
		if len(entries) > i.limit {
			entries = entries[:i.limit]
		}
		fr.Fetched = len(entries)

		if err := i.storeEntries(ctx, f, entries, &fr, log); err != nil {
			report.Feeds = append(report.Feeds, fr)
			report.Duration = time.Since(start)
			log.Errorw("ingestion run aborted", "feed", f.Name, "error", err)
			return report, err
		}

		log.Infow("feed processed",
			"feed", f.Name,
			"fetched", fr.Fetched,
			"stored", len(fr.Stored),
			"skipped", fr.Skipped,
			"malformed", fr.Malformed)
		report.Feeds = append(report.Feeds, fr)
	}

	report.Duration = time.Since(start)
	log.Infow("ingestion run complete",
		"stored", report.StoredCount(),
		"failed_feeds", report.FailedCount(),
		"duration", report.Duration)
	return report, nil
}

func (i *Ingestor) fetchAll(ctx context.Context) []fetchResult {
	results := make([]fetchResult, len(i.feeds))
	var wg sync.WaitGroup
	for idx, f := range i.feeds {
		wg.Add(1)
		go func(idx int, f config.Feed) {
			defer wg.Done()
			results[idx] = i.fetchOne(ctx, f)
		}(idx, f)
	}
	wg.Wait()
	return results
}

func (i *Ingestor) fetchOne(ctx context.Context, f config.Feed) (res fetchResult) {
	defer func() {
		if r := recover(); r != nil {
			res = fetchResult{err: fmt.Errorf("fetching %s: panic: %v", f.Name, r)}
		}
	}()

	fctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	entries, err := i.fetcher.Fetch(fctx, f.URL)
	if err == nil && fctx.Err() != nil {
		err = fctx.Err()
	}
	return fetchResult{entries: entries, err: err}
}

func (i *Ingestor) storeEntries(ctx context.Context, f config.Feed, entries []Entry, fr *FeedReport, log *zap.SugaredLogger) error {
	for _, e := range entries {
		// Without a link there is nothing to deduplicate on.
		if e.Link == "" || e.Title == "" {
			fr.Malformed++
			continue
		}

		exists, err := i.store.ExistsBySource(ctx, e.Link)
		if err != nil {
			return fmt.Errorf("feed %s: %w", f.Name, err)
		}
		if exists {
			fr.Skipped++
			log.Debugw("entry already stored", "feed", f.Name, "source", e.Link)
			continue
		}

		category := f.Category
		if category == "" {
			category = string(classify.Classify(e.Title))
		}

		_, err = i.store.InsertArticle(ctx, store.Article{
			Headline:  e.Title,
			Source:    e.Link,
			Timestamp: i.now(),
			Category:  category,
		})
		if errors.Is(err, store.ErrDuplicateSource) {
			// Another run stored it between the check and the insert.
			fr.Skipped++
			continue
		}
		if err != nil {
			return fmt.Errorf("feed %s: %w", f.Name, err)
		}
		fr.Stored = append(fr.Stored, e.Title)
		log.Infow("stored", "feed", f.Name, "headline", e.Title)
	}
	return nil
}
