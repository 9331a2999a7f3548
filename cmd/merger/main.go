// Package main provides the merger command-line tool for consolidating crawl results per quarter.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	flag "github.com/spf13/pflag"

	"newsquarter/internal/config"
	"newsquarter/internal/formatter"
	"newsquarter/internal/logger"
	"newsquarter/internal/merger"
	"newsquarter/internal/models"
	"newsquarter/internal/storage"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// previewCellWidth bounds each preview cell so long article bodies stay readable.
const previewCellWidth = 40

func main() {
	os.Exit(run())
}

func run() int {
	flags := flag.NewFlagSet("merger", flag.ContinueOnError)

	configFile := flags.String("config", "", "Path to YAML configuration file (default $NEWSQUARTER_CONFIG)")
	startDate := flags.String("start-date", "", "Start date as used in the file names (e.g. 22.01.01)")
	endDate := flags.String("end-date", "", "End date as used in the file names (e.g. 22.03.31)")
	year := flags.Int("year", 0, "Year for quarter selection (e.g. 2024)")
	quarter := flags.Int("quarter", 0, "Quarter number (1-4)")
	resultPath := flags.String("result-path", "out/naver_news_crawling_result/", "Directory containing the CSV files")
	output := flags.String("output", "", "Custom output filename")
	list := flags.Bool("list", false, "List available quarters and exit")
	writeXLSX := flags.Bool("xlsx", false, "Also write the merged rows to an .xlsx workbook")
	preview := flags.Int("preview", 0, "Print the first N merged rows")
	logLevel := flags.String("log-level", "", "Log level: debug, info, warn, error")

	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}

		return exitUsage
	}

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to load config: %v\n", err)

		return exitError
	}

	if !flags.Changed("result-path") {
		*resultPath = cfg.Output.MergePath
	}

	if flags.Changed("log-level") {
		cfg.Output.LogLevel = *logLevel
	}

	log := logger.NewLogger(cfg.Output.LogLevel)

	if *list {
		return listQuarters(*resultPath)
	}

	hasRange := *startDate != "" && *endDate != ""
	hasQuarter := *year != 0 && *quarter != 0

	if hasRange && hasQuarter {
		return usageError(flags, models.ErrAmbiguousPeriod)
	}

	m := merger.NewMerger(*resultPath, log).WithProgress(os.Stdout)

	var res *merger.Result

	switch {
	case hasRange:
		fmt.Printf("Merging CSV files for period: %s to %s\n", *startDate, *endDate)

		res, err = m.MergeByDateRange(*startDate, *endDate, *output)
	case hasQuarter:
		if *quarter < 1 || *quarter > 4 {
			return usageError(flags, fmt.Errorf("%w: %d", models.ErrInvalidQuarter, *quarter))
		}

		fmt.Printf("Merging CSV files for %d Q%d\n", *year, *quarter)

		res, err = m.MergeByQuarter(*year, *quarter, *output)
	default:
		fmt.Println("Please provide either --start-date and --end-date, or --year and --quarter")
		fmt.Println("Use --help for more information")

		return exitUsage
	}

	if err != nil {
		log.Error("merge failed", "error", err)
		fmt.Println("\nMerge failed!")

		return exitError
	}

	fmt.Println("\nMerge completed successfully!")
	fmt.Printf("Output file: %s\n", res.OutputPath)

	if *writeXLSX {
		xlsxPath := strings.TrimSuffix(res.OutputPath, filepath.Ext(res.OutputPath)) + ".xlsx"
		if err := storage.WriteXLSX(xlsxPath, res.Records); err != nil {
			fmt.Printf("❌ Failed to write workbook: %v\n", err)

			return exitError
		}

		fmt.Printf("Workbook saved to: %s\n", xlsxPath)
	}

	if *preview > 0 {
		rows := res.Records
		if len(rows) > *preview {
			rows = rows[:*preview]
		}

		fmt.Println()
		fmt.Println(formatter.RenderRecords(rows, models.Columns, previewCellWidth))
	}

	return exitOK
}

func listQuarters(resultPath string) int {
	quarters, err := merger.ListQuarters(resultPath)

	switch {
	case errors.Is(err, fs.ErrNotExist):
		fmt.Printf("Result path does not exist: %s\n", resultPath)

		return exitError
	case errors.Is(err, merger.ErrNoSourceFiles):
		fmt.Println("No CSV files found")

		return exitOK
	case err != nil:
		fmt.Printf("❌ Failed to list quarters: %v\n", err)

		return exitError
	}

	if len(quarters) == 0 {
		fmt.Println("No quarters could be extracted from filenames")

		return exitOK
	}

	fmt.Println("Available quarters:")

	for _, q := range quarters {
		fmt.Printf("  %s\n", q)
	}

	return exitOK
}

func usageError(flags *flag.FlagSet, err error) int {
	fmt.Fprintf(os.Stderr, "❌ %v\n\n", err)
	fmt.Fprintln(os.Stderr, "Usage: merger (--start-date S --end-date E | --year YYYY --quarter N | --list) [flags]")
	flags.PrintDefaults()

	return exitUsage
}
