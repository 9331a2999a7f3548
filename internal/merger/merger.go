// Package merger consolidates per-run record tables into quarter-level tables.
package merger

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"newsquarter/internal/logger"
	"newsquarter/internal/models"
	"newsquarter/internal/storage"
)

// Merge errors. A merge that ends with one of these writes no file.
var (
	ErrNoSourceFiles = errors.New("no source files found")
	ErrNoDataLoaded  = errors.New("no data could be loaded from source files")
	ErrInvalidRange  = errors.New("start and end dates are required")
)

var quarterTagPattern = regexp.MustCompile(`(\d{2})Q(\d)`)

// Result summarizes a completed merge.
type Result struct {
	OutputPath        string
	Files             []string
	SkippedFiles      []string
	CombinedRows      int
	DuplicatesRemoved int
	Records           []models.Record
}

// Merger merges the tables found in one result directory.
type Merger struct {
	resultPath string
	log        *logger.Logger
	progress   io.Writer
}

// NewMerger creates a merger for resultPath.
func NewMerger(resultPath string, log *logger.Logger) *Merger {
	if log == nil {
		log = logger.Discard()
	}

	return &Merger{resultPath: resultPath, log: log, progress: io.Discard}
}

// WithProgress makes the merger narrate its steps to w.
func (m *Merger) WithProgress(w io.Writer) *Merger {
	if w == nil {
		w = io.Discard
	}

	m.progress = w

	return m
}

// MergeByDateRange merges files named {start}_{end}_*.csv, with the dots of
// both dates replaced by underscores. The default output name is
// merged_{start}_{end}_quarter.csv.
func (m *Merger) MergeByDateRange(startDate, endDate, outputName string) (*Result, error) {
	if startDate == "" || endDate == "" {
		return nil, ErrInvalidRange
	}

	pattern := fmt.Sprintf("%s_%s_*.csv",
		strings.ReplaceAll(startDate, ".", "_"),
		strings.ReplaceAll(endDate, ".", "_"),
	)

	if outputName == "" {
		outputName = fmt.Sprintf("merged_%s_%s_quarter.csv", startDate, endDate)
	}

	return m.merge(pattern, outputName, fmt.Sprintf("%s to %s", startDate, endDate))
}

// MergeByQuarter merges files named {YY}Q{n}_*.csv. The default output name
// is merged_{YY}Q{n}_quarter.csv.
func (m *Merger) MergeByQuarter(year, quarter int, outputName string) (*Result, error) {
	if quarter < 1 || quarter > 4 {
		return nil, fmt.Errorf("%w: %d", models.ErrInvalidQuarter, quarter)
	}

	q := models.Quarter{Year: year, Number: quarter}
	pattern := q.Tag() + "_*.csv"

	if outputName == "" {
		outputName = fmt.Sprintf("merged_%s_quarter.csv", q.Tag())
	}

	return m.merge(pattern, outputName, fmt.Sprintf("%dQ%d", year, quarter))
}

func (m *Merger) merge(pattern, outputName, label string) (*Result, error) {
	if err := os.MkdirAll(m.resultPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create result path: %w", err)
	}

	fullPattern := filepath.Join(m.resultPath, pattern)

	files, err := filepath.Glob(fullPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid file pattern %s: %w", fullPattern, err)
	}

	if len(files) == 0 {
		fmt.Fprintf(m.progress, "No CSV files found for quarter %s\n", label)
		fmt.Fprintf(m.progress, "Pattern searched: %s\n", fullPattern)

		return nil, fmt.Errorf("%w: %s", ErrNoSourceFiles, fullPattern)
	}

	fmt.Fprintf(m.progress, "Found %d CSV files to merge:\n", len(files))

	for _, f := range files {
		fmt.Fprintf(m.progress, "  - %s\n", filepath.Base(f))
	}

	res := &Result{}

	var combined []models.Record

	for _, f := range files {
		records, err := storage.ReadCSV(f)
		if err != nil {
			fmt.Fprintf(m.progress, "  Error reading %s: %v\n", f, err)
			m.log.Warn("skipping unreadable table", "file", f, "error", err)
			res.SkippedFiles = append(res.SkippedFiles, f)

			continue
		}

		fmt.Fprintf(m.progress, "  Loaded %d rows from %s\n", len(records), filepath.Base(f))

		res.Files = append(res.Files, f)
		combined = append(combined, records...)
	}

	if len(res.Files) == 0 {
		fmt.Fprintln(m.progress, "No data could be loaded from CSV files")

		return nil, ErrNoDataLoaded
	}

	res.CombinedRows = len(combined)
	fmt.Fprintf(m.progress, "Combined data: %d rows\n", res.CombinedRows)

	deduped := DedupByLink(combined)
	res.DuplicatesRemoved = len(combined) - len(deduped)

	fmt.Fprintf(m.progress, "Duplicates removed: %d rows\n", res.DuplicatesRemoved)
	fmt.Fprintf(m.progress, "Final data: %d rows\n", len(deduped))
	fmt.Fprintln(m.progress, "Sorting data by date...")

	res.Records = SortByDateDesc(deduped)
	res.OutputPath = filepath.Join(m.resultPath, outputName)

	if err := storage.WriteCSV(res.OutputPath, res.Records); err != nil {
		return nil, err
	}

	fmt.Fprintf(m.progress, "Merged data saved to: %s\n", res.OutputPath)
	m.log.Info("merge finished", "output", res.OutputPath, "files", len(res.Files), "rows", len(res.Records))

	return res, nil
}

// DedupByLink keeps the first record seen for each link.
func DedupByLink(records []models.Record) []models.Record {
	seen := make(map[string]bool, len(records))
	out := make([]models.Record, 0, len(records))

	for _, r := range records {
		if seen[r.Link] {
			continue
		}

		seen[r.Link] = true
		out = append(out, r)
	}

	return out
}

// ParseRecordDate parses YYYY.MM.DD with an optional trailing dot.
func ParseRecordDate(s string) (time.Time, bool) {
	s = strings.TrimSuffix(strings.TrimSpace(s), ".")
	if s == "" {
		return time.Time{}, false
	}

	t, err := time.Parse("2006.1.2", s)
	if err != nil {
		return time.Time{}, false
	}

	return t, true
}

// SortByDateDesc orders records newest first; records whose date does not
// parse keep their relative order at the end. Parsed dates are re-rendered as
// YYYY.MM.DD. and unparsed ones are left as they were.
func SortByDateDesc(records []models.Record) []models.Record {
	type keyed struct {
		rec    models.Record
		date   time.Time
		parsed bool
	}

	items := make([]keyed, len(records))
	for i, r := range records {
		t, ok := ParseRecordDate(r.Date)
		items[i] = keyed{rec: r, date: t, parsed: ok}
	}

	slices.SortStableFunc(items, func(a, b keyed) int {
		switch {
		case a.parsed && !b.parsed:
			return -1
		case !a.parsed && b.parsed:
			return 1
		case !a.parsed && !b.parsed:
			return 0
		}

		return b.date.Compare(a.date)
	})

	out := make([]models.Record, len(items))
	for i, it := range items {
		out[i] = it.rec
		if it.parsed {
			out[i].Date = it.date.Format("2006.01.02.")
		}
	}

	return out
}

// ListQuarters returns the distinct quarters tagged YYQn in the names of the
// CSV files under resultPath, oldest first. A directory without CSV files
// yields ErrNoSourceFiles.
func ListQuarters(resultPath string) ([]models.Quarter, error) {
	if _, err := os.Stat(resultPath); err != nil {
		return nil, fmt.Errorf("result path does not exist: %s: %w", resultPath, err)
	}

	files, err := filepath.Glob(filepath.Join(resultPath, "*.csv"))
	if err != nil {
		return nil, err
	}

	if len(files) == 0 {
		return nil, ErrNoSourceFiles
	}

	seen := make(map[models.Quarter]bool)

	var quarters []models.Quarter

	for _, f := range files {
		m := quarterTagPattern.FindStringSubmatch(filepath.Base(f))
		if m == nil {
			continue
		}

		yy, _ := strconv.Atoi(m[1])
		n, _ := strconv.Atoi(m[2])

		q := models.Quarter{Year: 2000 + yy, Number: n}
		if seen[q] {
			continue
		}

		seen[q] = true
		quarters = append(quarters, q)
	}

	slices.SortFunc(quarters, func(a, b models.Quarter) int {
		switch {
		case a.Before(b):
			return -1
		case b.Before(a):
			return 1
		}

		return 0
	})

	return quarters, nil
}
