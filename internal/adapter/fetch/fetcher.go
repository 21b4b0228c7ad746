// Package fetch retrieves quiz pages and data sources over HTTP with
// bounded response sizes and retry on transient failures.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	llmhttp "quizsolver/internal/adapter/llm/http"
	"quizsolver/internal/usecase/solve"
)

// DefaultMaxBodyBytes caps response bodies when no limit is configured.
const DefaultMaxBodyBytes = 4 << 20

// DefaultUserAgent identifies the solver to quiz servers.
const DefaultUserAgent = "quizd/1.0"

// scriptedMarkers hint that a page renders its content with JavaScript
// and the static HTML carries nothing useful.
var scriptedMarkers = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<div\s+id="(?:root|app)">\s*</div>`),
	regexp.MustCompile(`(?i)document\.(?:write|createElement)`),
	regexp.MustCompile(`(?i)window\.__INITIAL_STATE__`),
}

// Options configures a Fetcher.
type Options struct {
	Timeout      time.Duration
	MaxBodyBytes int64
	UserAgent    string
	Retry        llmhttp.RetryConfig
}

// Fetcher implements the solve.Fetcher port over net/http.
type Fetcher struct {
	client       *http.Client
	maxBodyBytes int64
	userAgent    string
	retry        llmhttp.RetryConfig
	logger       llmhttp.Logger
}

// New constructs a Fetcher.
func New(opts Options) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Retry.MaxRetries == 0 && opts.Retry.InitialBackoff == 0 {
		opts.Retry = llmhttp.RetryConfig{
			MaxRetries:     2,
			InitialBackoff: 500 * time.Millisecond,
			MaxBackoff:     4 * time.Second,
			Multiplier:     2.0,
		}
	}
	return &Fetcher{
		client:       &http.Client{Timeout: opts.Timeout},
		maxBodyBytes: opts.MaxBodyBytes,
		userAgent:    opts.UserAgent,
		retry:        opts.Retry,
	}
}

// SetLogger attaches a logger for fetch diagnostics.
func (f *Fetcher) SetLogger(logger llmhttp.Logger) {
	f.logger = logger
}

// Fetch retrieves rawURL, following redirects, and returns the bounded
// body. Server errors and timeouts are retried with backoff.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (solve.Page, error) {
	var page solve.Page

	operation := func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return llmhttp.NewInvalidRequestError("fetch", fmt.Sprintf("build request: %v", err))
		}
		req.Header.Set("User-Agent", f.userAgent)

		resp, err := f.client.Do(req)
		if err != nil {
			// Connection failures and timeouts may be transient.
			return llmhttp.NewTimeoutError("fetch", err.Error())
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode >= 500 {
			return llmhttp.NewServiceUnavailableError("fetch", fmt.Sprintf("status %d from %s", resp.StatusCode, llmhttp.RedactURLSecrets(rawURL)))
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return llmhttp.NewRateLimitError("fetch", fmt.Sprintf("status 429 from %s", llmhttp.RedactURLSecrets(rawURL)))
		}
		if resp.StatusCode >= 400 {
			return llmhttp.NewInvalidRequestError("fetch", fmt.Sprintf("status %d from %s", resp.StatusCode, llmhttp.RedactURLSecrets(rawURL)))
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes))
		if err != nil {
			return llmhttp.NewTimeoutError("fetch", fmt.Sprintf("read body: %v", err))
		}

		page = solve.Page{
			URL:         resp.Request.URL.String(),
			Body:        body,
			ContentType: resp.Header.Get("Content-Type"),
			Scripted:    looksScripted(body, resp.Header.Get("Content-Type")),
		}
		return nil
	}

	if err := llmhttp.RetryWithBackoff(ctx, operation, f.retry); err != nil {
		if f.logger != nil {
			f.logger.LogWarning(ctx, "fetch failed", map[string]interface{}{
				"url":   llmhttp.RedactURLSecrets(rawURL),
				"error": err.Error(),
			})
		}
		return solve.Page{}, err
	}
	return page, nil
}

// looksScripted reports whether an HTML page appears to need script
// execution before it shows any content.
func looksScripted(body []byte, contentType string) bool {
	if !strings.Contains(contentType, "html") {
		return false
	}
	text := string(body)
	if !strings.Contains(strings.ToLower(text), "<script") {
		return false
	}
	for _, m := range scriptedMarkers {
		if m.MatchString(text) {
			return true
		}
	}
	return false
}

var _ solve.Fetcher = (*Fetcher)(nil)
