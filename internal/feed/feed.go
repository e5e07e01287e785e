package feed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mmcdole/gofeed"
)

const userAgent = "newsdesk/1.0 (+https://github.com/matheuskafuri/newsdesk)"

// Entry is the part of a feed item newsdesk cares about.
type Entry struct {
	Title string
	Link  string
}

// Fetcher retrieves the entries of one feed, in the feed's own order.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]Entry, error)
}

type RSSFetcher struct {
	client *resty.Client
	parser *gofeed.Parser
}

// NewRSSFetcher returns a fetcher whose requests give up after timeout.
func NewRSSFetcher(timeout time.Duration) *RSSFetcher {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8")
	return &RSSFetcher{client: client, parser: gofeed.NewParser()}
}

func (f *RSSFetcher) Fetch(ctx context.Context, url string) ([]Entry, error) {
	resp, err := f.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetching %s: unexpected status %s", url, resp.Status())
	}

	parsed, err := f.parser.ParseString(string(resp.Body()))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", url, err)
	}

	entries := make([]Entry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item == nil {
			continue
		}
		link := strings.TrimSpace(item.Link)
		if link == "" && len(item.Links) > 0 {
			link = strings.TrimSpace(item.Links[0])
		}
		entries = append(entries, Entry{
			Title: strings.Join(strings.Fields(item.Title), " "),
			Link:  link,
		})
	}
	return entries, nil
}
