package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "bilicrawl"

	// DefaultKeyword is searched when no --keyword is given.
	DefaultKeyword = "石宇奇 比赛 录像"

	// DefaultMaxPages is the last result page requested per keyword.
	// With 50 results per page this covers the newest 2000 videos.
	DefaultMaxPages = 40

	// DefaultDelay is the requested pause between pages. The crawler never
	// waits less than 1.2 seconds regardless of this value.
	DefaultDelay = 1300 * time.Millisecond

	// DefaultTimeout is the per-request HTTP timeout.
	DefaultTimeout = 10 * time.Second

	// DefaultOutputFile is the CSV written when --output is not given.
	DefaultOutputFile = "shiyuqi_matches.csv"

	// DefaultBatchSize runs keywords one after another. Parallel crawls
	// multiply the request rate and trigger rate limiting quickly.
	DefaultBatchSize = 1

	// DefaultPageSize is the number of results requested per page.
	DefaultPageSize = 50

	// DefaultOrder sorts results by publish date.
	DefaultOrder = "pubdate"
)

// Config holds all options of one crawl invocation. It is populated from
// CLI flags and passed down explicitly rather than kept in global state.
type Config struct {
	// Keywords are the search phrases, crawled in order.
	Keywords []string

	// MaxPages is the last page requested per keyword.
	MaxPages int

	// Delay is the pause between pages.
	Delay time.Duration

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration

	// Cookie is sent with every request. A logged-in browser cookie makes
	// rate limiting much less likely.
	Cookie string

	// MatchFilter requires a topic hint in the title or tags.
	MatchFilter bool

	// Subject overrides the subject string records must mention.
	Subject string

	// PageSize and Order are passed to the search endpoint.
	PageSize int
	Order    string

	// ProxyAddress is an optional SOCKS5 proxy in host:port form.
	ProxyAddress string

	// BatchSize is the number of keywords crawled concurrently.
	BatchSize int

	// OutputFile is where the records are written. With several keywords
	// the file receives the union of all results.
	OutputFile string

	// JSONOutput and MarkdownOutput switch the export format from CSV.
	// They are mutually exclusive.
	JSONOutput     bool
	MarkdownOutput bool

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is the path to the configuration file. If empty,
	// .bilicrawl is searched in the current and home directories.
	ConfigFilePath string

	// Profiles holds per-keyword settings loaded from the config file.
	Profiles *File

	// SaveHistory stores every run in the history database under DBDir.
	SaveHistory bool
	DBDir       string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Keywords:    []string{DefaultKeyword},
		MaxPages:    DefaultMaxPages,
		Delay:       DefaultDelay,
		Timeout:     DefaultTimeout,
		MatchFilter: true,
		PageSize:    DefaultPageSize,
		Order:       DefaultOrder,
		BatchSize:   DefaultBatchSize,
		OutputFile:  DefaultOutputFile,
		SaveHistory: true,
		DBDir:       XDGDataDir(),
		Profiles:    NewFile(),
	}
}

// XDGDataDir returns the XDG data directory for bilicrawl, where the
// history database lives.
// On Linux: ~/.local/share/bilicrawl
// On macOS: ~/Library/Application Support/bilicrawl
// On Windows: %LOCALAPPDATA%\bilicrawl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for bilicrawl.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid and returns the first
// problem found.
func (c *Config) Validate() error {
	if len(c.Keywords) == 0 {
		return ErrNoKeyword
	}
	for _, kw := range c.Keywords {
		if kw == "" {
			return ErrEmptyKeyword
		}
	}

	if c.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}

	if c.Delay < 0 {
		return ErrInvalidDelay
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.PageSize <= 0 {
		return ErrInvalidPageSize
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.JSONOutput && c.MarkdownOutput {
		return ErrConflictingOutputFormats
	}

	if c.OutputFile == "" {
		return ErrNoOutputFile
	}

	return nil
}

// ProfileFor returns the settings for keyword: the config file's defaults
// and keyword profile merged, then overlaid on the command-line values.
// Values set in the file win over built-in defaults but not over flags the
// user passed explicitly; explicit reports which flag-backed fields those
// are, keyed by flag name.
func (c *Config) ProfileFor(keyword string, explicit map[string]bool) Settings {
	s := Settings{
		Keyword:     keyword,
		Cookie:      c.Cookie,
		Delay:       c.Delay,
		MaxPages:    c.MaxPages,
		Subject:     c.Subject,
		MatchFilter: c.MatchFilter,
	}

	if c.Profiles == nil {
		return s
	}
	p := c.Profiles.GetProfile(keyword)

	if p.Cookie != "" && !explicit["cookie"] {
		s.Cookie = p.Cookie
	}
	if len(p.Headers) > 0 {
		s.Headers = p.Headers
	}
	if p.Delay > 0 && !explicit["delay"] {
		s.Delay = p.DelayDuration()
	}
	if p.MaxPages > 0 && !explicit["max-pages"] {
		s.MaxPages = p.MaxPages
	}
	if p.Subject != "" && !explicit["subject"] {
		s.Subject = p.Subject
	}
	if len(p.TopicHints) > 0 {
		s.TopicHints = p.TopicHints
	}
	if p.MatchFilter != nil && !explicit["no-match-filter"] {
		s.MatchFilter = *p.MatchFilter
	}

	return s
}

// Settings are the effective options for crawling one keyword.
type Settings struct {
	Keyword     string
	Cookie      string
	Headers     map[string]string
	Delay       time.Duration
	MaxPages    int
	Subject     string
	TopicHints  []string
	MatchFilter bool
}
