package update

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const releasesURL = "https://api.github.com/repos/matheuskafuri/newsdesk/releases/latest"

// Result holds the outcome of a version check.
type Result struct {
	LatestVersion string
}

type ghRelease struct {
	TagName string `json:"tag_name"`
}

// Checker asks a GitHub-compatible releases endpoint for the latest tag.
type Checker struct {
	client *resty.Client
	url    string
}

func NewChecker() *Checker {
	return &Checker{client: resty.New().SetTimeout(5 * time.Second), url: releasesURL}
}

// Check reports a newer release, or nil when up to date or on any error.
func (c *Checker) Check(ctx context.Context, currentVersion string) *Result {
	var release ghRelease
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/vnd.github+json").
		SetResult(&release).
		Get(c.url)
	if err != nil || resp.IsError() {
		return nil
	}

	latest := strings.TrimPrefix(release.TagName, "v")
	current := strings.TrimPrefix(currentVersion, "v")

	if latest == "" || latest == current || current == "dev" {
		return nil
	}

	return &Result{LatestVersion: latest}
}
