package store

import "time"

// Article is one row of the news table. Empty Category or Bias means the
// column is NULL.
type Article struct {
	ID        int64
	Headline  string
	Source    string
	Timestamp time.Time
	Category  string
	Bias      string
}

// Date returns the calendar day the article was ingested on.
func (a Article) Date() string {
	return a.Timestamp.Format(DateLayout)
}

type ListOpts struct {
	Limit  int
	Offset int
	// Date restricts rows to one calendar day (YYYY-MM-DD). Empty means all days.
	Date string
}

// Page is one slice of the table plus what a dashboard needs around it.
type Page struct {
	Articles []Article
	// Total counts rows matching the date filter, ignoring Limit and Offset.
	Total int
	// Dates lists every distinct ingestion day in the table, newest first.
	Dates []string
}
