// Package main provides the crawler command-line tool for collecting news search results per quarter.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"newsquarter/internal/config"
	"newsquarter/internal/crawler"
	"newsquarter/internal/logger"
	"newsquarter/internal/models"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

type options struct {
	configFile   string
	keywords     []string
	keywordAlias []string
	maxPages     int
	startDate    string
	endDate      string
	year         int
	quarter      int
	resultPath   string
	sleepBetween float64
	sort         int
	logLevel     string
}

func main() {
	os.Exit(run())
}

func run() int {
	flags := flag.NewFlagSet("crawler", flag.ContinueOnError)
	opts := &options{}

	flags.StringVar(&opts.configFile, "config", "", "Path to YAML configuration file (default $NEWSQUARTER_CONFIG)")
	flags.StringArrayVar(&opts.keywords, "keywords", nil, "Search keywords; comma separated, repeatable")
	flags.StringArrayVar(&opts.keywordAlias, "keyword", nil, "Alias of --keywords")
	flags.IntVar(&opts.maxPages, "maxpage", 200, "Number of result pages per keyword (10 results per page)")
	flags.StringVar(&opts.startDate, "start-date", "", "Start date in YYYY.MM.DD format")
	flags.StringVar(&opts.endDate, "end-date", "", "End date in YYYY.MM.DD format")
	flags.IntVar(&opts.year, "year", 0, "Year for quarter selection (e.g. 2024)")
	flags.IntVar(&opts.quarter, "quarter", 0, "Quarter number (1-4)")
	flags.StringVar(&opts.resultPath, "result-path", "out/", "Directory for result tables")
	flags.Float64Var(&opts.sleepBetween, "sleep-between", 5.0, "Seconds to wait between keywords")
	flags.IntVar(&opts.sort, "sort", models.SortLatest, "Sort order: 0 relevance, 1 latest, 2 oldest")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}

		return exitUsage
	}

	// "--keywords a b" leaves "b" as a positional argument
	rawKeywords := append(append(append([]string{}, opts.keywords...), opts.keywordAlias...), flags.Args()...)

	keywords := models.NormalizeKeywords(rawKeywords)
	if len(keywords) == 0 {
		return usageError(flags, models.ErrNoKeywords)
	}

	if opts.year != 0 && (opts.quarter < 1 || opts.quarter > 4) {
		return usageError(flags, fmt.Errorf("%w: %d", models.ErrInvalidQuarter, opts.quarter))
	}

	period, err := models.ResolvePeriod(opts.startDate, opts.endDate, opts.year, opts.quarter)
	if err != nil {
		return usageError(flags, err)
	}

	if opts.maxPages < 1 {
		return usageError(flags, fmt.Errorf("%w: %d", models.ErrInvalidMaxPages, opts.maxPages))
	}

	cfg, err := config.LoadConfig(opts.configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to load config: %v\n", err)

		return exitError
	}

	applyFlagOverrides(flags, opts, cfg)

	if opts.sort < models.SortRelevance || opts.sort > models.SortOldest {
		return usageError(flags, fmt.Errorf("%w: %d", models.ErrInvalidSort, opts.sort))
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Invalid configuration: %v\n", err)

		return exitUsage
	}

	log := logger.NewLogger(cfg.Output.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	printCrawlerHeader(cfg, keywords, period, opts)

	scraper := crawler.NewScraperWithConfig(&cfg.Crawler.HTTP, log).WithProgress(os.Stdout)

	session, err := crawler.NewSession(cfg, scraper, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to create crawl session: %v\n", err)

		return exitError
	}

	session.WithProgress(os.Stdout)

	return crawlAll(ctx, session, scraper, log, cfg, keywords, []models.Period{period}, opts)
}

// crawlAll runs one session per period and keyword, in that order.
func crawlAll(ctx context.Context, session *crawler.Session, scraper *crawler.Scraper, log *logger.Logger,
	cfg *config.Config, keywords []string, periods []models.Period, opts *options,
) int {
	failures := 0
	total := len(periods) * len(keywords)
	done := 0

	for _, p := range periods {
		fmt.Printf("\n%s\n", strings.Repeat("#", 60))
		fmt.Printf("Processing: %s ~ %s\n", p.Start, p.End)
		fmt.Printf("%s\n", strings.Repeat("#", 60))

		for _, keyword := range keywords {
			fmt.Printf("\n%s\n", strings.Repeat("=", 50))
			fmt.Printf("Processing keyword: %s\n", keyword)
			fmt.Printf("%s\n", strings.Repeat("=", 50))

			req := models.CrawlRequest{
				Keyword:   keyword,
				StartDate: p.Start,
				EndDate:   p.End,
				MaxPages:  opts.maxPages,
				Sort:      opts.sort,
			}

			fmt.Printf("Encoded query: %s\n", req.EncodedQuery())

			scraper.Attempts().Reset()

			path, err := session.Run(ctx, req)

			scraper.Attempts().LogAttemptSummary(log.With("keyword", keyword))

			if ctx.Err() != nil {
				fmt.Println("\n⚠️  Interrupted, no results written for the current keyword")

				return exitError
			}

			if err != nil {
				fmt.Printf("❌ Crawl failed for %s: %v\n", keyword, err)

				failures++
			} else {
				fmt.Printf("Results saved to: %s\n", path)
			}

			done++
			if done == total {
				continue
			}

			if err := sleep(ctx, cfg.Crawler.Pacing.GetKeywordDelay()); err != nil {
				fmt.Println("\n⚠️  Interrupted")

				return exitError
			}
		}
	}

	if failures > 0 {
		fmt.Printf("\n⚠️  Crawling finished with %d failed keyword(s)\n", failures)

		return exitError
	}

	fmt.Println("\n✨ Crawling complete!")

	return exitOK
}

// applyFlagOverrides lets explicitly set flags win over the config file.
func applyFlagOverrides(flags *flag.FlagSet, opts *options, cfg *config.Config) {
	if flags.Changed("result-path") {
		cfg.Output.ResultPath = opts.resultPath
	}

	if flags.Changed("sleep-between") {
		cfg.Crawler.Pacing.KeywordDelaySec = opts.sleepBetween
	}

	if flags.Changed("log-level") {
		cfg.Output.LogLevel = opts.logLevel
	}

	if !flags.Changed("sort") {
		opts.sort = cfg.Crawler.Search.Sort
	}
}

func usageError(flags *flag.FlagSet, err error) int {
	fmt.Fprintf(os.Stderr, "❌ %v\n\n", err)
	fmt.Fprintln(os.Stderr, "Usage: crawler --keywords <kw>[,<kw>...] (--start-date YYYY.MM.DD --end-date YYYY.MM.DD | --year YYYY --quarter N) [flags]")
	flags.PrintDefaults()

	return exitUsage
}

func printCrawlerHeader(cfg *config.Config, keywords []string, period models.Period, opts *options) {
	fmt.Println("🕷️  Naver News Quarter Crawler")
	fmt.Printf("Keywords: %s\n", strings.Join(keywords, ", "))
	fmt.Printf("Period: %s ~ %s\n", period.Start, period.End)
	fmt.Printf("Max pages: %d, sort: %d\n", opts.maxPages, opts.sort)
	fmt.Printf("Output: %s\n", cfg.Output.ResultPath)
	fmt.Printf("⚙️  %s\n", cfg)
	fmt.Println()
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
