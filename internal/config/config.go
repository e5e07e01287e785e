package config

import (
	"embed"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

//go:embed default_config.yaml
var defaultConfigFS embed.FS

const (
	EnvListenAddr = "NEWSDESK_ADDR"
	EnvDatabase   = "NEWSDESK_DB"
)

// Feed is one syndication source and the category its articles start with.
type Feed struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	Category string `yaml:"category"`
	Enabled  bool   `yaml:"enabled"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file,omitempty"`
	MaxSize    int    `yaml:"max_size,omitempty"`
	MaxBackups int    `yaml:"max_backups,omitempty"`
	MaxAge     int    `yaml:"max_age,omitempty"`
}

type Config struct {
	RefreshInterval string    `yaml:"refresh_interval"`
	FetchTimeout    string    `yaml:"fetch_timeout"`
	EntriesPerFeed  int       `yaml:"entries_per_feed,omitempty"`
	PageSize        int       `yaml:"page_size,omitempty"`
	Listen          string    `yaml:"listen_addr,omitempty"`
	Database        string    `yaml:"database,omitempty"`
	Log             LogConfig `yaml:"log"`
	Feeds           []Feed    `yaml:"feeds"`
}

func (c *Config) RefreshDuration() time.Duration {
	d, err := time.ParseDuration(c.RefreshInterval)
	if err != nil || d <= 0 {
		return 10 * time.Minute
	}
	return d
}

func (c *Config) FetchTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.FetchTimeout)
	if err != nil || d <= 0 {
		return 15 * time.Second
	}
	return d
}

// GetEntriesPerFeed returns how many entries of each feed are considered per run, defaulting to 5.
func (c *Config) GetEntriesPerFeed() int {
	if c.EntriesPerFeed <= 0 {
		return 5
	}
	return c.EntriesPerFeed
}

// GetPageSize returns the dashboard page size, defaulting to 10.
func (c *Config) GetPageSize() int {
	if c.PageSize <= 0 {
		return 10
	}
	return c.PageSize
}

// ListenAddr resolves the dashboard address. NEWSDESK_ADDR wins over the file.
func (c *Config) ListenAddr() string {
	if v := os.Getenv(EnvListenAddr); v != "" {
		return v
	}
	if c.Listen != "" {
		return c.Listen
	}
	return ":5000"
}

// DatabasePath resolves the SQLite file. NEWSDESK_DB wins over the file.
func (c *Config) DatabasePath() string {
	if v := os.Getenv(EnvDatabase); v != "" {
		return v
	}
	if c.Database != "" {
		return c.Database
	}
	return DefaultDatabasePath()
}

func (c *Config) EnabledFeeds() []Feed {
	var out []Feed
	for _, f := range c.Feeds {
		if f.Enabled {
			out = append(out, f)
		}
	}
	return out
}

// FeedNames lists the enabled feeds in configuration order.
func (c *Config) FeedNames() []string {
	var names []string
	for _, f := range c.EnabledFeeds() {
		names = append(names, f.Name)
	}
	return names
}

func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "newsdesk", "config.yaml")
}

func DefaultDatabasePath() string {
	return filepath.Join(xdg.DataHome, "newsdesk", "newsdesk.db")
}

func loadDefaults() (*Config, error) {
	data, err := defaultConfigFS.ReadFile("default_config.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading embedded config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded config: %w", err)
	}
	return &cfg, nil
}

func Load(path string) (*Config, error) {
	defaults, err := loadDefaults()
	if err != nil {
		return nil, err
	}

	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Non-fatal: the embedded defaults still apply.
			_ = writeDefaults(path)
			return defaults, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	mergeDefaultFeeds(&cfg, defaults)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// mergeDefaultFeeds refreshes feeds the user already has (matched by name)
// and appends default feeds the user file does not know about yet. The
// user's enabled flag and category are kept.
func mergeDefaultFeeds(cfg, defaults *Config) {
	index := make(map[string]int, len(cfg.Feeds))
	for i, f := range cfg.Feeds {
		index[f.Name] = i
	}
	for _, d := range defaults.Feeds {
		if i, ok := index[d.Name]; ok {
			cfg.Feeds[i].URL = d.URL
			if cfg.Feeds[i].Category == "" {
				cfg.Feeds[i].Category = d.Category
			}
			continue
		}
		cfg.Feeds = append(cfg.Feeds, d)
	}
}

func writeDefaults(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, _ := defaultConfigFS.ReadFile("default_config.yaml")
	return os.WriteFile(path, data, 0o644)
}

func validate(cfg *Config) error {
	seen := make(map[string]bool, len(cfg.Feeds))
	for i, f := range cfg.Feeds {
		if f.Name == "" {
			return fmt.Errorf("feed %d: name is required", i)
		}
		if f.URL == "" {
			return fmt.Errorf("feed %q: url is required", f.Name)
		}
		u, err := url.Parse(f.URL)
		if err != nil {
			return fmt.Errorf("feed %q: invalid url: %w", f.Name, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("feed %q: url scheme must be http or https, got %q", f.Name, u.Scheme)
		}
		if seen[f.URL] {
			return fmt.Errorf("feed %q: duplicate url %s", f.Name, f.URL)
		}
		seen[f.URL] = true
	}
	if cfg.RefreshInterval != "" {
		if _, err := time.ParseDuration(cfg.RefreshInterval); err != nil {
			return fmt.Errorf("refresh_interval: %w", err)
		}
	}
	if cfg.FetchTimeout != "" {
		if _, err := time.ParseDuration(cfg.FetchTimeout); err != nil {
			return fmt.Errorf("fetch_timeout: %w", err)
		}
	}
	return nil
}
