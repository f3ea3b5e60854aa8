package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the full configuration for scraping, enumeration, and
// analysis commands.
type Config struct {
	DB        SQLConfig       `yaml:"db"`
	HTTP      HTTPConfig      `yaml:"http"`
	Scraper   ScraperConfig   `yaml:"scraper"`
	Subdomain SubdomainConfig `yaml:"subdomain"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Robots    RobotsConfig    `yaml:"robots"`
	Rendering RenderingConfig `yaml:"rendering"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// SQLConfig describes the relational database holding extracted records.
type SQLConfig struct {
	Driver          string   `yaml:"driver"`
	DSN             string   `yaml:"dsn"`
	MaxOpenConns    int      `yaml:"max_open_conns"`
	MaxIdleConns    int      `yaml:"max_idle_conns"`
	ConnMaxLifetime Duration `yaml:"conn_max_lifetime"`
	CreateIfMissing bool     `yaml:"create_if_missing"`
	AutoMigrate     bool     `yaml:"auto_migrate"`
}

// HTTPConfig controls the fetch client and its retry policy.
type HTTPConfig struct {
	UserAgent      string            `yaml:"user_agent"`
	Headers        map[string]string `yaml:"headers"`
	RequestTimeout Duration          `yaml:"request_timeout"`
	MaxRetries     int               `yaml:"max_retries"`
	RetryBackoff   Duration          `yaml:"retry_backoff"`
	MaxBodyBytes   int64             `yaml:"max_body_bytes"`
	ProxyURL       string            `yaml:"proxy_url"`
}

// ScraperConfig controls the crawl frontier and politeness pacing.
type ScraperConfig struct {
	MaxPages         int             `yaml:"max_pages"`
	MinDelay         Duration        `yaml:"min_delay"`
	MaxDelay         Duration        `yaml:"max_delay"`
	AssetExtensions  []string        `yaml:"asset_extensions"`
	RateLimitPerHost RateLimitConfig `yaml:"rate_limit_per_host"`
}

// RateLimitConfig applies a token bucket per host.
type RateLimitConfig struct {
	Requests int      `yaml:"requests"`
	Window   Duration `yaml:"window"`
}

// Enabled reports whether per-host rate limiting is active.
func (r RateLimitConfig) Enabled() bool {
	return r.Requests > 0 && !r.Window.IsZero()
}

// SubdomainConfig controls wordlist-driven enumeration.
type SubdomainConfig struct {
	WordlistPath      string `yaml:"wordlist_path"`
	IncludeUnresolved bool   `yaml:"include_unresolved"`
	Concurrency       int    `yaml:"concurrency"`
}

// AnalysisConfig tunes content grouping.
type AnalysisConfig struct {
	SimilarityThreshold int `yaml:"similarity_threshold"`
}

// RobotsConfig configures robots.txt handling.
type RobotsConfig struct {
	Respect   bool     `yaml:"respect"`
	Overrides []string `yaml:"overrides"`
	UserAgent string   `yaml:"user_agent"`
	CacheTTL  Duration `yaml:"cache_ttl"`
}

// RenderingConfig controls optional JavaScript rendering.
type RenderingConfig struct {
	Enabled            bool     `yaml:"enabled"`
	Engine             string   `yaml:"engine"`
	Timeout            Duration `yaml:"timeout"`
	WaitForSelector    string   `yaml:"wait_for_selector"`
	ConcurrentSessions int      `yaml:"concurrent_sessions"`
	DisableHeadless    bool     `yaml:"disable_headless"`
}

// LoggingConfig selects log verbosity and format.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Structured bool   `yaml:"structured"`
}

// Default returns a Config populated with sensible defaults.
func Default() Config {
	return Config{
		DB: SQLConfig{
			Driver:      "postgres",
			AutoMigrate: true,
		},
		HTTP: HTTPConfig{
			UserAgent:      "domaintools-bot/1.0",
			Headers:        map[string]string{},
			RequestTimeout: DurationFrom(10 * time.Second),
			MaxRetries:     3,
			RetryBackoff:   DurationFrom(0),
			MaxBodyBytes:   6 * 1024 * 1024,
		},
		Scraper: ScraperConfig{
			MaxPages: 50,
			MinDelay: DurationFrom(1 * time.Second),
			MaxDelay: DurationFrom(3 * time.Second),
			AssetExtensions: []string{
				".jpg", ".jpeg", ".png", ".gif", ".webp", ".svg",
				".ico", ".pdf", ".zip", ".gz", ".mp3", ".mp4",
			},
		},
		Subdomain: SubdomainConfig{
			Concurrency: 8,
		},
		Analysis: AnalysisConfig{
			SimilarityThreshold: 85,
		},
		Robots: RobotsConfig{
			Respect:   true,
			Overrides: []string{},
			UserAgent: "domaintools-bot/1.0",
			CacheTTL:  DurationFrom(6 * time.Hour),
		},
		Rendering: RenderingConfig{
			Enabled:            false,
			Engine:             "chromedp",
			Timeout:            DurationFrom(15 * time.Second),
			ConcurrentSessions: 2,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Structured: false,
		},
	}
}

// Load reads, merges, and validates configuration from a YAML file.
func Load(path string) (*Config, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer fh.Close()
	return LoadFromReader(fh)
}

// LoadFromReader decodes configuration from an arbitrary reader.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalise()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces required invariants for the configuration.
func (c Config) Validate() error {
	if strings.TrimSpace(c.HTTP.UserAgent) == "" {
		return errors.New("http.user_agent must be set")
	}
	if c.HTTP.MaxRetries <= 0 {
		return fmt.Errorf("http.max_retries must be > 0 (got %d)", c.HTTP.MaxRetries)
	}
	if c.HTTP.RetryBackoff.Duration < 0 {
		return errors.New("http.retry_backoff must not be negative")
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		return fmt.Errorf("http.max_body_bytes must be > 0 (got %d)", c.HTTP.MaxBodyBytes)
	}
	if c.Scraper.MaxPages <= 0 {
		return fmt.Errorf("scraper.max_pages must be > 0 (got %d)", c.Scraper.MaxPages)
	}
	if c.Scraper.MinDelay.Duration < 0 || c.Scraper.MaxDelay.Duration < 0 {
		return errors.New("scraper delays must not be negative")
	}
	if c.Scraper.MinDelay.Duration > c.Scraper.MaxDelay.Duration {
		return fmt.Errorf("scraper.min_delay %s exceeds scraper.max_delay %s",
			c.Scraper.MinDelay, c.Scraper.MaxDelay)
	}
	if rl := c.Scraper.RateLimitPerHost; rl.Requests < 0 {
		return fmt.Errorf("scraper.rate_limit_per_host.requests must be >= 0 (got %d)", rl.Requests)
	}
	if c.Subdomain.Concurrency <= 0 {
		return fmt.Errorf("subdomain.concurrency must be > 0 (got %d)", c.Subdomain.Concurrency)
	}
	if t := c.Analysis.SimilarityThreshold; t < 0 || t > 100 {
		return fmt.Errorf("analysis.similarity_threshold must be within [0,100] (got %d)", t)
	}
	if c.Robots.Respect && strings.TrimSpace(c.Robots.UserAgent) == "" {
		return errors.New("robots.user_agent must be set")
	}
	return nil
}

func (c *Config) normalise() {
	c.HTTP.UserAgent = strings.TrimSpace(c.HTTP.UserAgent)
	c.Robots.UserAgent = strings.TrimSpace(c.Robots.UserAgent)
	c.Subdomain.WordlistPath = strings.TrimSpace(c.Subdomain.WordlistPath)

	if len(c.Robots.Overrides) > 0 {
		c.Robots.Overrides = dedupeLower(c.Robots.Overrides)
	}

	if len(c.Scraper.AssetExtensions) > 0 {
		exts := make([]string, 0, len(c.Scraper.AssetExtensions))
		for _, ext := range c.Scraper.AssetExtensions {
			ext = strings.ToLower(strings.TrimSpace(ext))
			if ext == "" {
				continue
			}
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			exts = append(exts, ext)
		}
		c.Scraper.AssetExtensions = dedupeSorted(exts)
	}
}

func dedupeLower(values []string) []string {
	cleaned := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		cleaned = append(cleaned, v)
	}
	return dedupeSorted(cleaned)
}

func dedupeSorted(values []string) []string {
	unique := make(map[string]struct{}, len(values))
	cleaned := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := unique[v]; ok {
			continue
		}
		unique[v] = struct{}{}
		cleaned = append(cleaned, v)
	}
	sort.Strings(cleaned)
	return cleaned
}
