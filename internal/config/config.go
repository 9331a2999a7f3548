// Package config provides configuration management for the news crawler and merger.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file and default values.
const (
	EnvConfigPath = "NEWSQUARTER_CONFIG"
	EnvResultPath = "NEWSQUARTER_RESULT_PATH"
	EnvLogLevel   = "NEWSQUARTER_LOG_LEVEL"
	EnvUserAgent  = "NEWSQUARTER_USER_AGENT"
)

// Configuration validation errors.
var (
	ErrMissingBaseURL        = errors.New("crawler.search.base_url is required")
	ErrInvalidResultsPerPage = errors.New("crawler.search.results_per_page must be at least 1")
	ErrInvalidSort           = errors.New("crawler.search.sort must be 0, 1 or 2")
	ErrInvalidLinkPattern    = errors.New("crawler.search.article_link_pattern is invalid regex")
	ErrInvalidTimeout        = errors.New("crawler.http.timeout_sec must be at least 1")
	ErrInvalidDelay          = errors.New("crawler delays must be non-negative")
	ErrInvalidJitterRange    = errors.New("crawler.pacing.page_delay_min_ms cannot exceed page_delay_max_ms")
	ErrInvalidMaxBody        = errors.New("crawler.http.max_body_kb must be at least 1")
	ErrMissingSelector       = errors.New("selector is required")
	ErrMissingOutputPath     = errors.New("output.result_path is required")
	ErrInvalidLogLevel       = errors.New("output.log_level must be one of: debug, info, warn, error")
)

// Config represents the complete crawler configuration.
type Config struct {
	Crawler CrawlerConfig `yaml:"crawler"`
	Output  OutputConfig  `yaml:"output"`
}

// CrawlerConfig contains crawler-specific settings.
type CrawlerConfig struct {
	Search    SearchConfig    `yaml:"search"`
	HTTP      HTTPConfig      `yaml:"http"`
	Pacing    PacingConfig    `yaml:"pacing"`
	Selectors SelectorsConfig `yaml:"selectors"`
}

// SearchConfig describes the search portal.
type SearchConfig struct {
	BaseURL            string `yaml:"base_url"`
	ArticleLinkPattern string `yaml:"article_link_pattern"`
	Sort               int    `yaml:"sort"`
	ResultsPerPage     int    `yaml:"results_per_page"`
}

// HTTPConfig defines request behaviour.
type HTTPConfig struct {
	Headers          map[string]string `yaml:"headers"`
	UserAgent        string            `yaml:"user_agent"`
	TimeoutSec       int               `yaml:"timeout_sec"`
	RequestDelayMs   int               `yaml:"request_delay_ms"`
	ForbiddenRetryMs int               `yaml:"forbidden_retry_ms"`
	MaxBodyKb        int               `yaml:"max_body_kb"`
}

// PacingConfig defines the delays between pages and between keywords.
type PacingConfig struct {
	PageDelayMinMs  int     `yaml:"page_delay_min_ms"`
	PageDelayMaxMs  int     `yaml:"page_delay_max_ms"`
	KeywordDelaySec float64 `yaml:"keyword_delay_sec"`
}

// SelectorsConfig is the declarative field-extraction table for result and article pages.
type SelectorsConfig struct {
	Card        string   `yaml:"card"`
	Title       string   `yaml:"title"`
	Link        string   `yaml:"link"`
	Source      string   `yaml:"source"`
	Date        string   `yaml:"date"`
	ReadMore    string   `yaml:"read_more"`
	ArticleBody string   `yaml:"article_body"`
	Boilerplate []string `yaml:"boilerplate"`
	DateIndex   int      `yaml:"date_index"`
	// CleanArticleBody removes Boilerplate from article bodies too. Off by
	// default: the selectors also match definition lists inside real articles.
	CleanArticleBody bool `yaml:"clean_article_body"`
}

// OutputConfig defines where tables are written.
type OutputConfig struct {
	ResultPath string `yaml:"result_path"`
	MergePath  string `yaml:"merge_path"`
	LogLevel   string `yaml:"log_level"`
}

// Default returns the built-in configuration for the Naver news search portal.
func Default() *Config {
	return &Config{
		Crawler: CrawlerConfig{
			Search: SearchConfig{
				BaseURL:            "https://search.naver.com/search.naver",
				ArticleLinkPattern: `^https?://(?:n\.)?news\.naver\.com/`,
				Sort:               1,
				ResultsPerPage:     10,
			},
			HTTP: HTTPConfig{
				UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/138.0.0.0 Safari/537.36",
				Headers: map[string]string{
					"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.7",
					"Accept-Language": "ko-KR,ko;q=0.9,en;q=0.8",
					"Accept-Encoding": "gzip, deflate, br",
					"DNT":             "1",
					"Connection":      "keep-alive",
				},
				TimeoutSec:       10,
				RequestDelayMs:   200,
				ForbiddenRetryMs: 5000,
				MaxBodyKb:        8192,
			},
			Pacing: PacingConfig{
				PageDelayMinMs:  2000,
				PageDelayMaxMs:  5000,
				KeywordDelaySec: 5.0,
			},
			Selectors: SelectorsConfig{
				Card:        "div.sds-comps-full-layout",
				Title:       "span.sds-comps-text-type-headline1",
				Link:        "a:has(span.sds-comps-text-type-headline1)",
				Source:      "span.sds-comps-profile-info-title-text a",
				Date:        "span.sds-comps-profile-info-subtext .sds-comps-text",
				DateIndex:   1,
				ReadMore:    "a.DJwZySR1gWTQoLm3xvvD",
				ArticleBody: "div.newsct_article._article_body",
				Boilerplate: []string{"dl > dt", "dl > dd:first-of-type:has(a)", "ul.relation_lst"},
			},
		},
		Output: OutputConfig{
			ResultPath: "out/",
			MergePath:  "out/naver_news_crawling_result/",
			LogLevel:   "info",
		},
	}
}

// LoadConfig loads configuration from a YAML file layered over Default.
// An empty path skips the file. Environment overrides are applied last.
func LoadConfig(filepath string) (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, err
	}

	if filepath == "" {
		filepath = os.Getenv(EnvConfigPath)
	}

	cfg := Default()

	if filepath != "" {
		data, err := os.ReadFile(filepath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadEnvFiles loads .env.local then .env; missing files are ignored.
func loadEnvFiles() error {
	for _, name := range []string{".env.local", ".env"} {
		if err := godotenv.Load(name); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", name, err)
		}
	}

	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(EnvResultPath); v != "" {
		c.Output.ResultPath = v
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Output.LogLevel = strings.ToLower(v)
	}

	if v := os.Getenv(EnvUserAgent); v != "" {
		c.Crawler.HTTP.UserAgent = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	search := c.Crawler.Search
	if search.BaseURL == "" {
		return ErrMissingBaseURL
	}

	if search.ResultsPerPage < 1 {
		return ErrInvalidResultsPerPage
	}

	if search.Sort < 0 || search.Sort > 2 {
		return fmt.Errorf("%w: %d", ErrInvalidSort, search.Sort)
	}

	if _, err := regexp.Compile(search.ArticleLinkPattern); err != nil || search.ArticleLinkPattern == "" {
		return ErrInvalidLinkPattern
	}

	h := c.Crawler.HTTP
	if h.TimeoutSec < 1 {
		return ErrInvalidTimeout
	}

	if h.MaxBodyKb < 1 {
		return ErrInvalidMaxBody
	}

	p := c.Crawler.Pacing
	if h.RequestDelayMs < 0 || h.ForbiddenRetryMs < 0 || p.PageDelayMinMs < 0 || p.KeywordDelaySec < 0 {
		return ErrInvalidDelay
	}

	if p.PageDelayMinMs > p.PageDelayMaxMs {
		return ErrInvalidJitterRange
	}

	// Validate selectors
	sel := c.Crawler.Selectors
	required := map[string]string{
		"card":         sel.Card,
		"title":        sel.Title,
		"date":         sel.Date,
		"article_body": sel.ArticleBody,
	}

	for name, value := range required {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%w: crawler.selectors.%s", ErrMissingSelector, name)
		}
	}

	if c.Output.ResultPath == "" {
		return ErrMissingOutputPath
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Output.LogLevel] {
		return ErrInvalidLogLevel
	}

	return nil
}

// GetTimeout returns the per-request timeout.
func (h *HTTPConfig) GetTimeout() time.Duration {
	return time.Duration(h.TimeoutSec) * time.Second
}

// GetRequestDelay returns the politeness delay applied before every request.
func (h *HTTPConfig) GetRequestDelay() time.Duration {
	return time.Duration(h.RequestDelayMs) * time.Millisecond
}

// GetForbiddenRetryDelay returns the wait before retrying a 403 response.
func (h *HTTPConfig) GetForbiddenRetryDelay() time.Duration {
	return time.Duration(h.ForbiddenRetryMs) * time.Millisecond
}

// GetPageDelayRange returns the inter-page jitter bounds.
func (p *PacingConfig) GetPageDelayRange() (time.Duration, time.Duration) {
	return time.Duration(p.PageDelayMinMs) * time.Millisecond, time.Duration(p.PageDelayMaxMs) * time.Millisecond
}

// GetKeywordDelay returns the pause between keywords.
func (p *PacingConfig) GetKeywordDelay() time.Duration {
	return time.Duration(p.KeywordDelaySec * float64(time.Second))
}

// String returns a string representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Search: %s, Timeout: %ds, Output: %s}",
		c.Crawler.Search.BaseURL,
		c.Crawler.HTTP.TimeoutSec,
		c.Output.ResultPath,
	)
}
