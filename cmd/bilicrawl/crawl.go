package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nao1215/bilicrawl/internal/config"
	"github.com/nao1215/bilicrawl/internal/crawler"
	"github.com/nao1215/bilicrawl/internal/database"
	"github.com/nao1215/bilicrawl/internal/export"
	"github.com/nao1215/bilicrawl/internal/filter"
	"github.com/nao1215/bilicrawl/internal/log"
	"github.com/nao1215/bilicrawl/internal/model"
	"github.com/nao1215/bilicrawl/internal/search"
	"github.com/spf13/cobra"
)

// profileFlags are the flags a config file profile may override unless the
// user passed them explicitly.
var profileFlags = []string{"cookie", "delay", "max-pages", "subject", "no-match-filter"}

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Search Bilibili and export the matching videos",
		Long: `Crawl pages through the Bilibili video search API for each keyword and
writes the videos that mention the subject to a file.

A video is kept when its title, tags, author or description mention the
subject (default 石宇奇). With the match filter on (the default) its title
or tags must also contain a topic hint such as 比赛, 决赛 or 录像.

Crawling stops at the first empty page, at --max-pages, or when the API
refuses the request. Whatever was collected up to that point is written.

Examples:
  # Crawl the default keyword into shiyuqi_matches.csv
  bilicrawl crawl

  # Several keywords, merged into one file
  bilicrawl crawl -k "石宇奇 比赛 录像" -k "石宇奇 决赛" -o matches.csv

  # Use a logged-in browser cookie to avoid rate limiting
  bilicrawl crawl --cookie "SESSDATA=...; buvid3=..."

  # Keep every video that mentions the subject
  bilicrawl crawl --no-match-filter --json -o all.json

Configuration file (.bilicrawl) example:
  defaults:
    delay: 2
  keywords:
    "石宇奇 比赛 录像":
      cookie: "SESSDATA=abc123"
      maxPages: 20`,
		Args: cobra.NoArgs,
		RunE: runCrawlCmd,
	}

	// Search flags
	cmd.Flags().StringSliceP("keyword", "k", []string{config.DefaultKeyword},
		"Search keyword (repeatable)")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Last result page to request per keyword")
	cmd.Flags().Float64P("delay", "d", config.DefaultDelay.Seconds(),
		"Seconds to wait between pages (never less than 1.2)")
	cmd.Flags().Duration("timeout", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().String("cookie", "",
		"Cookie header copied from a logged-in browser session")
	cmd.Flags().String("proxy", "",
		"SOCKS5 proxy address (e.g., 127.0.0.1:1080)")

	// Filter flags
	cmd.Flags().Bool("no-match-filter", false,
		"Keep every video that mentions the subject, without requiring a topic hint")
	cmd.Flags().String("subject", "",
		"Name the videos must mention (default "+filter.DefaultSubject+")")

	// Batch flags
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of keywords crawled concurrently")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .bilicrawl in current or home directory, then ~/.config/bilicrawl/config.yaml)")

	// Output flags
	cmd.Flags().StringP("output", "o", config.DefaultOutputFile,
		"Output file path; .json and .md select the format (creates directories if needed)")
	cmd.Flags().BoolP("json", "j", false,
		"Write JSON regardless of the output extension (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Write Markdown regardless of the output extension (mutually exclusive with --json)")
	cmd.Flags().Bool("no-history", false,
		"Do not record this run in the history database")

	cmd.Flags().String("endpoint", search.DefaultEndpoint, "Search API endpoint")
	_ = cmd.Flags().MarkHidden("endpoint") //nolint:errcheck // Flag is defined above

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	endpoint, err := cmd.Flags().GetString("endpoint")
	if err != nil {
		return err
	}

	logger := log.NewSecureLogger(cmd.ErrOrStderr(), cfg.Verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("received shutdown signal, writing collected records...")
			cancel()
		case <-ctx.Done():
		}
	}()

	run := &crawlRun{
		cfg:      cfg,
		explicit: explicitFlags(cmd),
		endpoint: endpoint,
		out:      cmd.OutOrStdout(),
		logger:   logger,
	}
	return run.execute(ctx)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// explicitFlags reports which profile-overridable flags were set on the
// command line.
func explicitFlags(cmd *cobra.Command) map[string]bool {
	explicit := make(map[string]bool, len(profileFlags))
	for _, name := range profileFlags {
		if cmd.Flags().Changed(name) {
			explicit[name] = true
		}
	}
	return explicit
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error

	cfg.Keywords, err = cmd.Flags().GetStringSlice("keyword")
	if err != nil {
		return nil, err
	}

	cfg.MaxPages, err = cmd.Flags().GetInt("max-pages")
	if err != nil {
		return nil, err
	}

	delay, err := cmd.Flags().GetFloat64("delay")
	if err != nil {
		return nil, err
	}
	cfg.Delay = time.Duration(delay * float64(time.Second))

	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.Cookie, err = cmd.Flags().GetString("cookie")
	if err != nil {
		return nil, err
	}

	cfg.ProxyAddress, err = cmd.Flags().GetString("proxy")
	if err != nil {
		return nil, err
	}

	noMatchFilter, err := cmd.Flags().GetBool("no-match-filter")
	if err != nil {
		return nil, err
	}
	cfg.MatchFilter = !noMatchFilter

	cfg.Subject, err = cmd.Flags().GetString("subject")
	if err != nil {
		return nil, err
	}

	cfg.BatchSize, err = cmd.Flags().GetInt("batch")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// If the user named a config file it must exist; otherwise a missing
	// file just means no profiles.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	if configPath != "" {
		cfg.Profiles, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if cfg.ConfigFilePath != "" {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	cfg.OutputFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	cfg.JSONOutput, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownOutput, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	noHistory, err := cmd.Flags().GetBool("no-history")
	if err != nil {
		return nil, err
	}
	cfg.SaveHistory = !noHistory

	cfg.Verbose = getVerboseFlag(cmd)

	return cfg, nil
}

// crawlRun holds everything one invocation of the crawl command needs.
type crawlRun struct {
	cfg      *config.Config
	explicit map[string]bool
	endpoint string
	out      io.Writer
	logger   *slog.Logger

	// crawlerOpts are appended to every crawler the run builds.
	crawlerOpts []crawler.Option
}

// execute crawls every keyword, writes the merged records once, records
// the runs in the history database and prints a summary.
func (r *crawlRun) execute(ctx context.Context) error {
	cfg := r.cfg

	r.logger.Info("starting crawl",
		"keywords", cfg.Keywords,
		"max_pages", cfg.MaxPages,
		"batch_size", cfg.BatchSize,
		"match_filter", cfg.MatchFilter,
	)

	runner := crawler.NewBatchRunner(
		r.newCrawlerFactory(),
		crawler.WithConcurrency(cfg.BatchSize),
		crawler.WithBatchLogger(r.logger),
		crawler.WithResultHandler(func(i int, result *model.CrawlResult) {
			r.logger.Info("keyword finished",
				"index", i+1,
				"of", len(cfg.Keywords),
				"keyword", result.Keyword,
				"stop_reason", result.StopReason,
				"records", len(result.Records),
			)
		}),
	)

	startTime := time.Now()
	results, runErr := runner.Run(ctx, cfg.Keywords)

	records := mergeRecords(results)
	format := outputFormat(cfg)

	var mdOpts []export.MarkdownWriterOption
	if len(results) == 1 {
		mdOpts = append(mdOpts, export.WithCrawlResult(results[0]))
	}
	if err := export.WriteFile(cfg.OutputFile, format, records, mdOpts...); err != nil {
		return fmt.Errorf("failed to write %s: %w", cfg.OutputFile, err)
	}

	r.saveHistory(results)

	summary := export.NewSummaryWriter(r.out, export.WithVerbose(cfg.Verbose))
	if _, err := summary.WriteResults(results); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Saved %d records to %s (%s) in %s\n",
		len(records), cfg.OutputFile, format, time.Since(startTime).Round(time.Millisecond))

	if runErr == nil {
		runErr = ctx.Err()
	}
	if runErr != nil {
		return fmt.Errorf("crawl interrupted: %w", runErr)
	}
	return nil
}

// newCrawlerFactory returns a factory that builds a crawler with its own
// HTTP session for each keyword, using that keyword's profile.
func (r *crawlRun) newCrawlerFactory() crawler.Factory {
	cfg := r.cfg
	return func(keyword string) (*crawler.Crawler, error) {
		s := cfg.ProfileFor(keyword, r.explicit)
		logger := r.logger.With("keyword", keyword)

		client, err := search.NewClient(
			search.WithTimeout(cfg.Timeout),
			search.WithCookie(s.Cookie),
			search.WithHeaders(s.Headers),
			search.WithProxy(cfg.ProxyAddress),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create client: %w", err)
		}

		fetcher := search.NewFetcher(client,
			search.WithEndpoint(r.endpoint),
			search.WithPageSize(cfg.PageSize),
			search.WithOrder(cfg.Order),
			search.WithFetcherLogger(logger),
		)

		f := filter.New(
			filter.WithSubject(s.Subject),
			filter.WithTopicHints(s.TopicHints),
			filter.WithRequireTopic(s.MatchFilter),
		)

		opts := []crawler.Option{
			crawler.WithMaxPages(s.MaxPages),
			crawler.WithDelay(s.Delay),
			crawler.WithLogger(logger),
		}
		return crawler.New(fetcher, f, append(opts, r.crawlerOpts...)...), nil
	}
}

// saveHistory records every result in the history database. Failures are
// logged; the export has already been written at this point.
func (r *crawlRun) saveHistory(results []*model.CrawlResult) {
	if !r.cfg.SaveHistory {
		return
	}

	db, err := database.Open(r.cfg.DBDir, database.DefaultOptions())
	if err != nil {
		r.logger.Warn("history disabled for this run", "error", err)
		return
	}
	defer db.Close()

	// The crawl context may already be cancelled; the save should still
	// complete.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, result := range results {
		id, err := db.SaveRun(ctx, result)
		if err != nil {
			r.logger.Error("failed to save run", "keyword", result.Keyword, "error", err)
			continue
		}
		r.logger.Info("run saved to history", "keyword", result.Keyword, "run_id", id, "db", db.Path())
	}
}

// mergeRecords combines the records of all results into one deduplicated
// list. Results are merged in keyword order; a video found by a later
// keyword replaces the earlier copy without moving it.
func mergeRecords(results []*model.CrawlResult) []model.SearchRecord {
	set := model.NewRecordSet()
	for _, result := range results {
		for _, rec := range result.Records {
			set.Add(rec)
		}
	}
	return set.Records()
}

// outputFormat returns the format forced by --json or --markdown, or the
// one implied by the output file extension.
func outputFormat(cfg *config.Config) export.Format {
	switch {
	case cfg.JSONOutput:
		return export.FormatJSON
	case cfg.MarkdownOutput:
		return export.FormatMarkdown
	default:
		return export.FormatFromPath(cfg.OutputFile)
	}
}
