// Package web serves the article dashboard.
package web

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/matheuskafuri/newsdesk/internal/classify"
	"github.com/matheuskafuri/newsdesk/internal/feed"
	"github.com/matheuskafuri/newsdesk/internal/logger"
	"github.com/matheuskafuri/newsdesk/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

// allDates is the date query value that disables the day filter.
const allDates = "all"

var errBadRequest = errors.New("bad request")

type Articles interface {
	ListArticles(ctx context.Context, opts store.ListOpts) (store.Page, error)
	UpdateClassification(ctx context.Context, id int64, category, bias string) error
}

type Refresher interface {
	FetchAndStore(ctx context.Context) (feed.Report, error)
}

type Server struct {
	articles  Articles
	refresher Refresher
	pageSize  int
	tmpl      *template.Template
	now       func() time.Time
}

func New(articles Articles, refresher Refresher, pageSize int) (*Server, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	if pageSize <= 0 {
		pageSize = 10
	}
	return &Server{
		articles:  articles,
		refresher: refresher,
		pageSize:  pageSize,
		tmpl:      tmpl,
		now:       time.Now,
	}, nil
}

// Handler returns the dashboard routes wrapped in request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleDashboard)
	mux.HandleFunc("GET /page/{n}", s.handleDashboard)
	mux.HandleFunc("POST /classify/{id}", s.handleClassify)
	mux.HandleFunc("GET /refresh", s.handleRefresh)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintln(w, "ok")
	})
	return logRequests(mux)
}

type option struct {
	Value    string
	Label    string
	Selected bool
}

type articleView struct {
	store.Article
	Time          string
	CategoryLabel string
	BiasLabel     string
	Categories    []option
	Biases        []option
}

type dashboardView struct {
	Articles []articleView
	Page     Pagination
	Date     string
	Dates    []option
	PrevURL  string
	NextURL  string
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	page := 1
	if raw := r.PathValue("n"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || !InRange(n, s.pageSize) {
			http.NotFound(w, r)
			return
		}
		page = n
	}

	today := s.now().Format(store.DateLayout)
	dateParam, filter, err := resolveDate(r.URL.Query().Get("date"), today)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	p := Paginate(page, s.pageSize, 0)
	result, err := s.articles.ListArticles(r.Context(), store.ListOpts{
		Limit:  p.PageSize,
		Offset: p.Offset(),
		Date:   filter,
	})
	if err != nil {
		s.serverError(w, "listing articles", err)
		return
	}
	p = Paginate(page, s.pageSize, result.Total)
	if page > p.TotalPages {
		http.NotFound(w, r)
		return
	}

	view := dashboardView{
		Page:  p,
		Date:  dateParam,
		Dates: dateOptions(result.Dates, today, dateParam),
	}
	if p.HasPrev() {
		view.PrevURL = pageURL(p.Page-1, dateParam)
	}
	if p.HasNext() {
		view.NextURL = pageURL(p.Page+1, dateParam)
	}
	for _, a := range result.Articles {
		view.Articles = append(view.Articles, newArticleView(a))
	}

	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, "dashboard.html", view); err != nil {
		s.serverError(w, "rendering dashboard", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		http.Error(w, "invalid article id", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	category := classify.Normalize(r.PostForm.Get("category"))
	bias := classify.Normalize(r.PostForm.Get("bias"))
	if err := s.articles.UpdateClassification(r.Context(), id, category, bias); err != nil {
		s.serverError(w, "classifying article", err)
		return
	}
	logger.Infow("article classified", "id", id, "category", category, "bias", bias)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	// The run finishes even if the browser gives up waiting.
	ctx := context.WithoutCancel(r.Context())
	report, err := s.refresher.FetchAndStore(ctx)
	if err != nil {
		s.serverError(w, "refreshing feeds", err)
		return
	}
	logger.Infow("manual refresh complete", "run", report.RunID, "stored", report.StoredCount())
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) serverError(w http.ResponseWriter, op string, err error) {
	logger.Errorw("request failed", "op", op, "error", err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// resolveDate turns the date query value into the value to echo back in
// links and the day to filter on. Empty means today; "all" means no filter.
func resolveDate(raw, today string) (param, filter string, err error) {
	raw = strings.TrimSpace(raw)
	switch raw {
	case "":
		return today, today, nil
	case allDates:
		return allDates, "", nil
	}
	if _, err := time.Parse(store.DateLayout, raw); err != nil {
		return "", "", fmt.Errorf("%w: date must be YYYY-MM-DD or %q", errBadRequest, allDates)
	}
	return raw, raw, nil
}

func pageURL(page int, date string) string {
	path := "/"
	if page > 1 {
		path = "/page/" + strconv.Itoa(page)
	}
	return path + "?" + url.Values{"date": {date}}.Encode()
}

func dateOptions(dates []string, today, selected string) []option {
	opts := []option{{Value: allDates, Label: "All dates", Selected: selected == allDates}}
	seen := map[string]bool{}
	add := func(d string) {
		if seen[d] {
			return
		}
		seen[d] = true
		opts = append(opts, option{Value: d, Label: d, Selected: d == selected})
	}
	// Today and the selected day are always offered, even before any row exists for them.
	add(today)
	if selected != allDates {
		add(selected)
	}
	for _, d := range dates {
		add(d)
	}
	return opts
}

func newArticleView(a store.Article) articleView {
	v := articleView{
		Article:       a,
		CategoryLabel: classify.Label(a.Category),
		BiasLabel:     classify.Label(a.Bias),
	}
	if !a.Timestamp.IsZero() {
		v.Time = a.Timestamp.Format(store.TimestampLayout)
	}

	cats := make([]string, 0, len(classify.AllCategories()))
	for _, c := range classify.AllCategories() {
		cats = append(cats, string(c))
	}
	v.Categories = labelOptions(cats, a.Category)
	v.Biases = labelOptions(classify.Biases(), a.Bias)
	return v
}

// labelOptions lists the unclassified sentinel, the known labels and, when the
// stored value is a free-text label outside the taxonomy, that value too.
func labelOptions(known []string, current string) []option {
	opts := []option{{Value: "", Label: classify.Unclassified, Selected: current == ""}}
	found := current == ""
	for _, k := range known {
		sel := k == current
		found = found || sel
		opts = append(opts, option{Value: k, Label: k, Selected: sel})
	}
	if !found {
		opts = append(opts, option{Value: current, Label: current, Selected: true})
	}
	return opts
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Infow("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}
