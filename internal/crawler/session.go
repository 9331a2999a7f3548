package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"newsquarter/internal/config"
	"newsquarter/internal/logger"
	"newsquarter/internal/models"
	"newsquarter/internal/storage"
)

// ErrInvalidRequest is returned for requests rejected before any network activity.
var ErrInvalidRequest = errors.New("invalid crawl request")

// Session runs paginated crawls and writes one table per request.
type Session struct {
	query      *QueryBuilder
	fetcher    Fetcher
	parser     *Parser
	log        *logger.Logger
	progress   io.Writer
	resultPath string
	perPage    int
	delayMin   time.Duration
	delayMax   time.Duration
}

// NewSession wires a session from the config. The fetcher serves both result
// and article pages.
func NewSession(cfg *config.Config, fetcher Fetcher, log *logger.Logger) (*Session, error) {
	if log == nil {
		log = logger.Discard()
	}

	parser, err := NewParser(cfg.Crawler.Selectors, cfg.Crawler.Search.ArticleLinkPattern, fetcher, log)
	if err != nil {
		return nil, err
	}

	delayMin, delayMax := cfg.Crawler.Pacing.GetPageDelayRange()

	return &Session{
		query:      NewQueryBuilder(cfg.Crawler.Search),
		fetcher:    fetcher,
		parser:     parser,
		log:        log,
		progress:   io.Discard,
		resultPath: cfg.Output.ResultPath,
		perPage:    cfg.Crawler.Search.ResultsPerPage,
		delayMin:   delayMin,
		delayMax:   delayMax,
	}, nil
}

// WithProgress makes the session narrate accumulated counts to w.
func (s *Session) WithProgress(w io.Writer) *Session {
	if w == nil {
		w = io.Discard
	}

	s.progress = w

	return s
}

// Crawl fetches result pages in increasing offset order until a page yields
// no records or the page budget is spent. Records are de-duplicated by link
// across pages, first occurrence wins.
func (s *Session) Crawl(ctx context.Context, req models.CrawlRequest) ([]models.Record, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	log := s.log.With("run_id", uuid.NewString(), "keyword", req.Keyword)
	query := s.query.WithSort(req.Sort)

	encoded := req.EncodedQuery()
	fromCompact := models.CompactDate(req.StartDate)
	toCompact := models.CompactDate(req.EndDate)
	lastStart := (req.MaxPages-1)*s.perPage + 1

	var records []models.Record

	seen := make(map[string]bool)
	pages := 0

	for pageStart := 1; pageStart <= lastStart; {
		url := query.BuildResultsURL(pageStart, encoded, req.StartDate, req.EndDate, fromCompact, toCompact)

		body, err := s.fetcher.Fetch(ctx, url)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		if err != nil {
			log.Warn("results page fetch failed", "start", pageStart, "error", err)
		}

		pageRecords := s.parser.ExtractResults(ctx, body)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		pages++

		for _, rec := range pageRecords {
			if seen[rec.Link] {
				continue
			}

			seen[rec.Link] = true
			records = append(records, rec)
		}

		fmt.Fprintln(s.progress, "accumulated rows:", len(records))
		log.Debug("page extracted", "start", pageStart, "page_records", len(pageRecords), "total", len(records))

		pageStart += s.perPage

		if len(pageRecords) == 0 || pageStart > lastStart {
			break
		}

		if err := sleepContext(ctx, s.pageDelay()); err != nil {
			return nil, err
		}
	}

	log.Info("crawl finished", "pages", pages, "records", len(records))

	return records, nil
}

// Run crawls req and writes the records to {YY}Q{n}_{keyword}.csv under the
// result path, returning the file path. Nothing is written when the crawl is
// cancelled.
func (s *Session) Run(ctx context.Context, req models.CrawlRequest) (string, error) {
	name, err := req.OutputFileName()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	records, err := s.Crawl(ctx, req)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.resultPath, 0755); err != nil {
		return "", fmt.Errorf("failed to create result path: %w", err)
	}

	outputPath := filepath.Join(s.resultPath, name)
	if err := storage.WriteCSV(outputPath, records); err != nil {
		return "", err
	}

	fmt.Fprintf(s.progress, "(%d, %d)\n", len(records), len(models.Columns))

	return outputPath, nil
}

// pageDelay draws the jitter between two result page fetches.
func (s *Session) pageDelay() time.Duration {
	if s.delayMax <= s.delayMin {
		return s.delayMin
	}

	return s.delayMin + time.Duration(rand.Int63n(int64(s.delayMax-s.delayMin)))
}
