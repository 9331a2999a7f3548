package models

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// DateLayout is the YYYY.MM.DD layout used on the command line and in search URLs.
const DateLayout = "2006.01.02"

// Request validation errors.
var (
	ErrInvalidDate     = errors.New("date must be in YYYY.MM.DD format")
	ErrInvalidQuarter  = errors.New("quarter must be 1-4")
	ErrNoPeriod        = errors.New("either --start-date/--end-date or --year/--quarter is required")
	ErrAmbiguousPeriod = errors.New("--start-date/--end-date and --year/--quarter are mutually exclusive")
	ErrNoKeywords      = errors.New("at least one keyword is required")
	ErrInvalidMaxPages = errors.New("max pages must be at least 1")
	ErrInvertedPeriod  = errors.New("start date is after end date")
	ErrInvalidSort     = errors.New("sort must be 0 (relevance), 1 (latest) or 2 (oldest)")
)

// Sort orders understood by the search portal.
const (
	SortRelevance = 0
	SortLatest    = 1
	SortOldest    = 2
)

// CrawlRequest is the immutable input of one crawl session.
type CrawlRequest struct {
	Keyword   string
	StartDate string
	EndDate   string
	MaxPages  int
	Sort      int
}

// Period is an inclusive YYYY.MM.DD date range.
type Period struct {
	Start string
	End   string
}

// Validate checks the request before any network activity.
func (r CrawlRequest) Validate() error {
	if strings.TrimSpace(r.Keyword) == "" {
		return ErrNoKeywords
	}

	if r.MaxPages < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxPages, r.MaxPages)
	}

	if r.Sort < SortRelevance || r.Sort > SortOldest {
		return fmt.Errorf("%w: %d", ErrInvalidSort, r.Sort)
	}

	start, err := ParseDate(r.StartDate)
	if err != nil {
		return err
	}

	end, err := ParseDate(r.EndDate)
	if err != nil {
		return err
	}

	if start.After(end) {
		return fmt.Errorf("%w: %s > %s", ErrInvertedPeriod, r.StartDate, r.EndDate)
	}

	return nil
}

// EncodedQuery percent-encodes the keyword the way the portal expects (spaces as %20).
func (r CrawlRequest) EncodedQuery() string {
	return strings.ReplaceAll(url.QueryEscape(r.Keyword), "+", "%20")
}

// pathSeparators keep a keyword from turning into a subdirectory.
var pathSeparators = strings.NewReplacer("/", "_", "\\", "_")

// OutputFileName returns {YY}Q{n}_{keyword}.csv for the request's start date.
func (r CrawlRequest) OutputFileName() (string, error) {
	start, err := ParseDate(r.StartDate)
	if err != nil {
		return "", err
	}

	q := QuarterOf(start)

	return fmt.Sprintf("%sQ%d_%s.csv", q.YearShort(), q.Number, pathSeparators.Replace(DecodeKeyword(r.EncodedQuery()))), nil
}

// DecodeKeyword reverses EncodedQuery and NFC-normalizes the result so that
// file names built from it are stable across platforms. Undecodable input is
// returned as-is.
func DecodeKeyword(encoded string) string {
	decoded, err := url.PathUnescape(encoded)
	if err != nil {
		decoded = encoded
	}

	return norm.NFC.String(decoded)
}

// ParseDate parses a YYYY.MM.DD date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}

	return t, nil
}

// CompactDate strips the separators from a YYYY.MM.DD date.
func CompactDate(s string) string {
	return strings.ReplaceAll(s, ".", "")
}

// ResolvePeriod picks exactly one of the two date selection modes.
// Year and quarter are treated as unset when zero.
func ResolvePeriod(startDate, endDate string, year, quarter int) (Period, error) {
	hasRange := startDate != "" && endDate != ""
	hasQuarter := year != 0 && quarter != 0

	switch {
	case hasRange && hasQuarter:
		return Period{}, ErrAmbiguousPeriod
	case hasRange:
		if _, err := ParseDate(startDate); err != nil {
			return Period{}, err
		}

		if _, err := ParseDate(endDate); err != nil {
			return Period{}, err
		}

		return Period{Start: startDate, End: endDate}, nil
	case hasQuarter:
		start, end, err := QuarterDates(year, quarter)
		if err != nil {
			return Period{}, err
		}

		return Period{Start: start, End: end}, nil
	}

	return Period{}, ErrNoPeriod
}

// NormalizeKeywords splits comma separated values, strips blanks and quotes
// and removes duplicates while keeping the first occurrence order.
func NormalizeKeywords(args []string) []string {
	var out []string

	seen := make(map[string]bool)

	for _, part := range args {
		for _, s := range strings.Split(part, ",") {
			s = strings.Trim(strings.TrimSpace(s), `"'`)
			if s == "" || seen[s] {
				continue
			}

			seen[s] = true
			out = append(out, s)
		}
	}

	return out
}
