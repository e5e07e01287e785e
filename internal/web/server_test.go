package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/matheuskafuri/newsdesk/internal/feed"
	"github.com/matheuskafuri/newsdesk/internal/logger"
	"github.com/matheuskafuri/newsdesk/internal/store"
)

var fixedNow = time.Date(2024, 1, 2, 15, 0, 0, 0, time.Local)

type fakeRefresher struct {
	calls int
	err   error
}

func (f *fakeRefresher) FetchAndStore(ctx context.Context) (feed.Report, error) {
	f.calls++
	return feed.Report{RunID: "test"}, f.err
}

type brokenArticles struct{}

func (brokenArticles) ListArticles(context.Context, store.ListOpts) (store.Page, error) {
	return store.Page{}, errors.New("disk I/O error")
}

func (brokenArticles) UpdateClassification(context.Context, int64, string, string) error {
	return errors.New("disk I/O error")
}

func newTestServer(t *testing.T, articles Articles, refresher Refresher) *httptest.Server {
	t.Helper()
	srv, err := New(articles, refresher, 10)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	srv.now = func() time.Time { return fixedNow }
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func seededStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "web.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	// Oldest first, so the newest story also has the highest id.
	for i := 0; i < 25; i++ {
		_, err := s.InsertArticle(ctx, store.Article{
			Headline:  fmt.Sprintf("Today story %02d", i),
			Source:    fmt.Sprintf("https://news.test/today/%d", i),
			Timestamp: fixedNow.Add(-time.Duration(24-i) * time.Minute),
			Category:  "World",
		})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	_, err = s.InsertArticle(ctx, store.Article{
		Headline:  "Yesterday story",
		Source:    "https://news.test/yesterday",
		Timestamp: fixedNow.AddDate(0, 0, -1),
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return s
}

func noRedirect() *http.Client {
	return &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestDashboardDefaultsToToday(t *testing.T) {
	ts := newTestServer(t, seededStore(t), &fakeRefresher{})

	status, body := get(t, ts.URL+"/")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if !strings.Contains(body, "25 article(s)") || !strings.Contains(body, "page 1 of 3") {
		t.Errorf("expected today's 25 articles over 3 pages in body")
	}
	if !strings.Contains(body, "Today story 24") || !strings.Contains(body, "Today story 15") {
		t.Error("expected the ten newest articles on page 1")
	}
	if strings.Contains(body, "Today story 14") {
		t.Error("page 1 must stop at ten rows")
	}
	if strings.Contains(body, "Yesterday story") {
		t.Error("yesterday's article must not appear under today's filter")
	}
	if !strings.Contains(body, `value="2024-01-01"`) {
		t.Error("expected yesterday offered in the date filter")
	}
	if !strings.Contains(body, `href="/page/2?date=2024-01-02"`) {
		t.Error("expected link to page 2 keeping the date")
	}
}

func TestDashboardLastPage(t *testing.T) {
	ts := newTestServer(t, seededStore(t), &fakeRefresher{})

	status, body := get(t, ts.URL+"/page/3?date=2024-01-02")
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if got := strings.Count(body, `action="/classify/`); got != 5 {
		t.Errorf("expected 5 rows on page 3, got %d", got)
	}
	if strings.Contains(body, "Older &rarr;") {
		t.Error("last page must not link further")
	}
}

func TestDashboardDateFilter(t *testing.T) {
	ts := newTestServer(t, seededStore(t), &fakeRefresher{})

	_, body := get(t, ts.URL+"/?date=2024-01-01")
	if !strings.Contains(body, "Yesterday story") || !strings.Contains(body, "1 article(s)") {
		t.Error("expected only yesterday's article")
	}
	if !strings.Contains(body, "Unclassified") {
		t.Error("expected NULL category shown as Unclassified")
	}

	_, body = get(t, ts.URL+"/?date=all")
	if !strings.Contains(body, "26 article(s)") {
		t.Error("expected every article with date=all")
	}
}

func TestDashboardBadInput(t *testing.T) {
	ts := newTestServer(t, seededStore(t), &fakeRefresher{})

	tests := []struct {
		path string
		want int
	}{
		{"/page/0", http.StatusNotFound},
		{"/page/abc", http.StatusNotFound},
		{"/?date=01-02-2024", http.StatusBadRequest},
		{"/page/4", http.StatusNotFound},
		{"/page/922337203685477590", http.StatusNotFound},
		{"/page/99999999999999999999", http.StatusNotFound},
		{"/page/3", http.StatusOK},
		{"/page/2?date=2023-06-01", http.StatusNotFound},
		{"/?date=2023-06-01", http.StatusOK},
	}
	for _, tt := range tests {
		if status, _ := get(t, ts.URL+tt.path); status != tt.want {
			t.Errorf("GET %s: expected %d, got %d", tt.path, tt.want, status)
		}
	}
}

func TestClassifyUpdatesAndRedirects(t *testing.T) {
	s := seededStore(t)
	ts := newTestServer(t, s, &fakeRefresher{})

	form := url.Values{"category": {"economy"}, "bias": {"Left"}}
	resp, err := noRedirect().PostForm(ts.URL+"/classify/5", form)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/" {
		t.Fatalf("expected 303 to /, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}

	a, ok, err := s.GetArticle(context.Background(), 5)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if a.Category != "Economy" || a.Bias != "Left" {
		t.Errorf("expected Economy/Left, got %q/%q", a.Category, a.Bias)
	}
	if a.Headline != "Today story 04" {
		t.Errorf("expected headline untouched, got %q", a.Headline)
	}
}

func TestClassifyUnknownIDIsNoop(t *testing.T) {
	ts := newTestServer(t, seededStore(t), &fakeRefresher{})

	resp, err := noRedirect().PostForm(ts.URL+"/classify/9999", url.Values{"category": {"World"}})
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Errorf("expected 303 for unknown id, got %d", resp.StatusCode)
	}
}

func TestClassifyBadID(t *testing.T) {
	ts := newTestServer(t, seededStore(t), &fakeRefresher{})

	resp, err := noRedirect().PostForm(ts.URL+"/classify/abc", url.Values{})
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestClassifyRequiresPost(t *testing.T) {
	ts := newTestServer(t, seededStore(t), &fakeRefresher{})
	if status, _ := get(t, ts.URL+"/classify/1"); status != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for GET, got %d", status)
	}
}

func TestRefresh(t *testing.T) {
	ref := &fakeRefresher{}
	ts := newTestServer(t, seededStore(t), ref)

	resp, err := noRedirect().Get(ts.URL + "/refresh")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/" {
		t.Errorf("expected 303 to /, got %d", resp.StatusCode)
	}
	if ref.calls != 1 {
		t.Errorf("expected one ingestion run, got %d", ref.calls)
	}
}

func TestStoreFailuresSurfaceAs500(t *testing.T) {
	ts := newTestServer(t, brokenArticles{}, &fakeRefresher{err: errors.New("store unavailable")})

	if status, _ := get(t, ts.URL+"/"); status != http.StatusInternalServerError {
		t.Errorf("dashboard: expected 500, got %d", status)
	}

	resp, err := noRedirect().PostForm(ts.URL+"/classify/1", url.Values{})
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("classify: expected 500, got %d", resp.StatusCode)
	}

	resp, err = noRedirect().Get(ts.URL + "/refresh")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("refresh: expected 500, got %d", resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, seededStore(t), &fakeRefresher{})
	status, body := get(t, ts.URL+"/healthz")
	if status != http.StatusOK || strings.TrimSpace(body) != "ok" {
		t.Errorf("unexpected healthz response %d %q", status, body)
	}
}

func TestHeadlinesAreEscaped(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "xss.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	if _, err := s.InsertArticle(context.Background(), store.Article{
		Headline:  "<script>alert(1)</script>",
		Source:    "https://evil.test/1",
		Timestamp: fixedNow,
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	ts := newTestServer(t, s, &fakeRefresher{})

	_, body := get(t, ts.URL+"/")
	if strings.Contains(body, "<script>alert(1)</script>") {
		t.Error("headline rendered unescaped")
	}
}

func TestRequestsAreLoggedAtInfo(t *testing.T) {
	prevL := logger.L
	t.Cleanup(func() { logger.L = prevL })
	core, logs := observer.New(zapcore.InfoLevel)
	logger.L = zap.New(core).Sugar()

	ts := newTestServer(t, seededStore(t), &fakeRefresher{})
	get(t, ts.URL+"/healthz")
	get(t, ts.URL+"/page/0")

	entries := logs.FilterMessage("http request").AllUntimed()
	if len(entries) != 2 {
		t.Fatalf("expected 2 request log entries at info, got %d", len(entries))
	}
	fields := entries[1].ContextMap()
	if fields["path"] != "/page/0" || fields["status"] != int64(http.StatusNotFound) {
		t.Errorf("unexpected fields %v", fields)
	}
}
