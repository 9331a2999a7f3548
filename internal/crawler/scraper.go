package crawler

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"

	"newsquarter/internal/config"
	"newsquarter/internal/logger"
)

// Fetch errors.
var (
	// ErrFetchFailed marks a request that produced no usable body.
	ErrFetchFailed          = errors.New("fetch failed")
	ErrUnexpectedStatusCode = errors.New("unexpected status code")
	ErrBodyTooLarge         = errors.New("response body too large")
)

// Fetcher retrieves a page body. Any error means "no content".
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Scraper is a polite HTTP fetcher: it waits before every request and
// retries a 403 response exactly once after a longer pause.
type Scraper struct {
	client         *http.Client
	headers        map[string]string
	userAgent      string
	requestDelay   time.Duration
	forbiddenDelay time.Duration
	maxBodyBytes   int64
	attempts       *AttemptLog
	log            *logger.Logger
	progress       io.Writer
}

// NewScraperWithConfig creates a scraper from the HTTP section of the config.
func NewScraperWithConfig(cfg *config.HTTPConfig, log *logger.Logger) *Scraper {
	headers := make(map[string]string, len(cfg.Headers))
	for k, v := range cfg.Headers {
		headers[k] = v
	}

	return &Scraper{
		client: &http.Client{
			Timeout: cfg.GetTimeout(),
		},
		headers:        headers,
		userAgent:      cfg.UserAgent,
		requestDelay:   cfg.GetRequestDelay(),
		forbiddenDelay: cfg.GetForbiddenRetryDelay(),
		maxBodyBytes:   int64(cfg.MaxBodyKb) * 1024,
		attempts:       NewAttemptLog(),
		log:            log,
		progress:       io.Discard,
	}
}

// WithProgress makes the scraper narrate requests and status codes to w.
func (s *Scraper) WithProgress(w io.Writer) *Scraper {
	if w == nil {
		w = io.Discard
	}

	s.progress = w

	return s
}

// Attempts returns the log of every request made by this scraper.
func (s *Scraper) Attempts() *AttemptLog {
	return s.attempts
}

// Fetch GETs url and returns its body. Errors wrap ErrFetchFailed unless the
// context was cancelled, in which case the context error is returned.
func (s *Scraper) Fetch(ctx context.Context, url string) (string, error) {
	if err := sleepContext(ctx, s.requestDelay); err != nil {
		return "", err
	}

	fmt.Fprintln(s.progress, "GET", url)

	body, status, err := s.do(ctx, url, 1)
	if status == http.StatusForbidden {
		fmt.Fprintf(s.progress, "Received 403 Forbidden. Retrying after %v...\n", s.forbiddenDelay)

		if sleepErr := sleepContext(ctx, s.forbiddenDelay); sleepErr != nil {
			return "", sleepErr
		}

		body, status, err = s.do(ctx, url, 2)
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}

	if err != nil {
		s.log.Debug("fetch failed", "url", url, "error", err)

		return "", fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	if status < 200 || status > 299 {
		return "", fmt.Errorf("%w: %w: %d", ErrFetchFailed, ErrUnexpectedStatusCode, status)
	}

	return body, nil
}

func (s *Scraper) do(ctx context.Context, url string, attempt int) (string, int, error) {
	start := time.Now()

	body, status, err := s.get(ctx, url)
	s.attempts.RecordAttempt(url, attempt, status, err, time.Since(start))

	if err == nil {
		fmt.Fprintln(s.progress, "status", status)
	}

	return body, status, err
}

func (s *Scraper) get(ctx context.Context, url string) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create request: %w", err)
	}

	// The portal rejects clients that do not look like a browser
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("request failed: %w", err)
	}

	body, err := s.readBody(resp)
	if err != nil {
		return "", resp.StatusCode, err
	}

	return string(body), resp.StatusCode, nil
}

// readBody decodes the response body. Setting Accept-Encoding by hand turns
// off the transport's transparent gzip handling, so decoding happens here.
func (s *Scraper) readBody(resp *http.Response) ([]byte, error) {
	reader := io.Reader(resp.Body)
	closers := []io.Closer{resp.Body}

	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			_ = resp.Body.Close()

			return nil, fmt.Errorf("gzip decode: %w", err)
		}

		reader = gz
		closers = append(closers, gz)
	case "br":
		reader = brotli.NewReader(resp.Body)
	case "deflate":
		fl := flate.NewReader(resp.Body)
		reader = fl
		closers = append(closers, fl)
	}

	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i].Close()
		}
	}()

	body, err := io.ReadAll(io.LimitReader(reader, s.maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if int64(len(body)) > s.maxBodyBytes {
		return nil, fmt.Errorf("%w: limit %d bytes", ErrBodyTooLarge, s.maxBodyBytes)
	}

	return body, nil
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
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
