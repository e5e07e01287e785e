package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const testRSSFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Test World</title>
    <link>https://example.com</link>
    <description>A test RSS feed</description>
    <item>
      <title>  Summit opens
        in Geneva </title>
      <link>https://example.com/news/1</link>
      <pubDate>Mon, 01 Jan 2024 08:00:00 +0000</pubDate>
    </item>
    <item>
      <title>Markets rally</title>
      <link>https://example.com/news/2</link>
    </item>
    <item>
      <title>No link here</title>
    </item>
  </channel>
</rss>`

const testAtomFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Atom Desk</title>
  <entry>
    <title>Atom story</title>
    <link href="https://example.com/atom/1"/>
    <updated>2024-01-01T09:00:00Z</updated>
  </entry>
</feed>`

func serve(status int, body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
}

func TestRSSFetcherParsesRSS(t *testing.T) {
	srv := serve(http.StatusOK, testRSSFeed)
	defer srv.Close()

	entries, err := NewRSSFetcher(5*time.Second).Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Title != "Summit opens in Geneva" {
		t.Errorf("expected collapsed title, got %q", entries[0].Title)
	}
	if entries[0].Link != "https://example.com/news/1" {
		t.Errorf("unexpected link %q", entries[0].Link)
	}
	if entries[2].Link != "" {
		t.Errorf("expected empty link for linkless item, got %q", entries[2].Link)
	}
}

func TestRSSFetcherParsesAtom(t *testing.T) {
	srv := serve(http.StatusOK, testAtomFeed)
	defer srv.Close()

	entries, err := NewRSSFetcher(5*time.Second).Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(entries) != 1 || entries[0].Link != "https://example.com/atom/1" || entries[0].Title != "Atom story" {
		t.Errorf("unexpected atom entries: %+v", entries)
	}
}

func TestRSSFetcherHTTPError(t *testing.T) {
	srv := serve(http.StatusInternalServerError, "boom")
	defer srv.Close()

	if _, err := NewRSSFetcher(5*time.Second).Fetch(context.Background(), srv.URL); err == nil {
		t.Error("expected error for 500 response")
	}
}

func TestRSSFetcherMalformedDocument(t *testing.T) {
	srv := serve(http.StatusOK, "this is not a feed")
	defer srv.Close()

	if _, err := NewRSSFetcher(5*time.Second).Fetch(context.Background(), srv.URL); err == nil {
		t.Error("expected parse error")
	}
}

func TestRSSFetcherTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	start := time.Now()
	_, err := NewRSSFetcher(100*time.Millisecond).Fetch(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if time.Since(start) > 5*time.Second {
		t.Errorf("timeout not honoured, took %v", time.Since(start))
	}
}

func TestRSSFetcherSendsUserAgent(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
		fmt.Fprint(w, testAtomFeed)
	}))
	defer srv.Close()

	if _, err := NewRSSFetcher(5*time.Second).Fetch(context.Background(), srv.URL); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !strings.HasPrefix(got, "newsdesk/") {
		t.Errorf("expected newsdesk user agent, got %q", got)
	}
}
