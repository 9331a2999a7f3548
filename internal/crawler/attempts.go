package crawler

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"newsquarter/internal/logger"
)

// AttemptResult records the result of one HTTP request.
type AttemptResult struct {
	Timestamp  time.Time
	URL        string
	Error      string
	Attempt    int
	Duration   time.Duration
	StatusCode int
	Success    bool
}

// AttemptLog collects fetch attempts in request order.
type AttemptLog struct {
	results []AttemptResult
	mu      sync.Mutex
}

// NewAttemptLog creates an empty attempt log.
func NewAttemptLog() *AttemptLog {
	return &AttemptLog{}
}

// RecordAttempt records the result of a fetch attempt.
func (al *AttemptLog) RecordAttempt(url string, attempt int, statusCode int, err error, duration time.Duration) {
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}

	al.mu.Lock()
	defer al.mu.Unlock()

	al.results = append(al.results, AttemptResult{
		URL:        url,
		Attempt:    attempt,
		Success:    err == nil && statusCode == http.StatusOK,
		Error:      errMsg,
		Timestamp:  time.Now(),
		Duration:   duration,
		StatusCode: statusCode,
	})
}

// Results returns a copy of all recorded attempts.
func (al *AttemptLog) Results() []AttemptResult {
	al.mu.Lock()
	defer al.mu.Unlock()

	out := make([]AttemptResult, len(al.results))
	copy(out, al.results)

	return out
}

// GetAttemptStats returns statistics about fetch attempts.
func (al *AttemptLog) GetAttemptStats() AttemptStats {
	al.mu.Lock()
	defer al.mu.Unlock()

	stats := AttemptStats{}
	urlSuccess := make(map[string]bool)

	for _, result := range al.results {
		stats.TotalAttempts++

		if _, ok := urlSuccess[result.URL]; !ok {
			urlSuccess[result.URL] = false
		}

		if result.Success {
			stats.SuccessfulAttempts++
			urlSuccess[result.URL] = true
		} else {
			stats.FailedAttempts++
		}

		if result.StatusCode == http.StatusForbidden {
			stats.Forbidden++
		}
	}

	stats.TotalURLs = len(urlSuccess)

	for _, ok := range urlSuccess {
		if ok {
			stats.SuccessfulURLs++
		} else {
			stats.FailedURLs++
		}
	}

	return stats
}

// AttemptStats contains statistics about fetch attempts.
type AttemptStats struct {
	TotalURLs          int
	SuccessfulURLs     int
	FailedURLs         int
	TotalAttempts      int
	SuccessfulAttempts int
	FailedAttempts     int
	Forbidden          int
}

// String returns a string representation of attempt stats.
func (s AttemptStats) String() string {
	return fmt.Sprintf(
		"URLs: %d total, %d success, %d failed | Attempts: %d total, %d success, %d failed, %d forbidden",
		s.TotalURLs,
		s.SuccessfulURLs,
		s.FailedURLs,
		s.TotalAttempts,
		s.SuccessfulAttempts,
		s.FailedAttempts,
		s.Forbidden,
	)
}

// LogAttemptSummary logs failed attempts and the overall stats.
func (al *AttemptLog) LogAttemptSummary(l *logger.Logger) {
	for _, result := range al.Results() {
		if result.Success {
			continue
		}

		l.Warn("fetch attempt failed",
			"url", result.URL,
			"attempt", result.Attempt,
			"status", result.StatusCode,
			"error", result.Error,
			"duration", result.Duration,
		)
	}

	l.Info(fmt.Sprintf("Overall: %s", al.GetAttemptStats()))
}

// Reset clears the log.
func (al *AttemptLog) Reset() {
	al.mu.Lock()
	defer al.mu.Unlock()

	al.results = nil
}
