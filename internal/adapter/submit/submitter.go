// Package submit posts quiz answers to grader endpoints and decodes
// the verdict.
package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	llmhttp "quizsolver/internal/adapter/llm/http"
	"quizsolver/internal/domain"
	"quizsolver/internal/usecase/solve"
)

const maxResponseBytes = 1 << 20

// Options configures a Submitter.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	Retry     llmhttp.RetryConfig
}

// Submitter implements the solve.Submitter port over net/http.
type Submitter struct {
	client    *http.Client
	userAgent string
	retry     llmhttp.RetryConfig
}

// New constructs a Submitter.
func New(opts Options) *Submitter {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "quizd/1.0"
	}
	if opts.Retry.MaxRetries == 0 && opts.Retry.InitialBackoff == 0 {
		opts.Retry = llmhttp.RetryConfig{
			MaxRetries:     2,
			InitialBackoff: 500 * time.Millisecond,
			MaxBackoff:     4 * time.Second,
			Multiplier:     2.0,
		}
	}
	return &Submitter{
		client:    &http.Client{Timeout: opts.Timeout},
		userAgent: opts.UserAgent,
		retry:     opts.Retry,
	}
}

// graderResponse tolerates the field spellings graders use.
type graderResponse struct {
	Correct bool   `json:"correct"`
	Reason  string `json:"reason"`
	URL     string `json:"url"`
	NextURL string `json:"nextUrl"`
}

// Submit posts the answer payload and decodes the grader's verdict.
// Server errors are retried; the submission payload is identical on
// every attempt so resubmission is safe.
func (s *Submitter) Submit(ctx context.Context, submitURL string, sub domain.Submission) (domain.SubmissionResult, error) {
	payload, err := json.Marshal(sub)
	if err != nil {
		return domain.SubmissionResult{}, fmt.Errorf("marshal submission: %w", err)
	}

	var result domain.SubmissionResult

	operation := func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, submitURL, bytes.NewReader(payload))
		if err != nil {
			return llmhttp.NewInvalidRequestError("submit", fmt.Sprintf("build request: %v", err))
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", s.userAgent)

		resp, err := s.client.Do(req)
		if err != nil {
			return llmhttp.NewTimeoutError("submit", err.Error())
		}
		defer func() { _ = resp.Body.Close() }()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return llmhttp.NewTimeoutError("submit", fmt.Sprintf("read body: %v", err))
		}

		if resp.StatusCode >= 500 {
			return llmhttp.NewServiceUnavailableError("submit", fmt.Sprintf("status %d: %s", resp.StatusCode, llmhttp.SafeLogResponse(string(body))))
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return llmhttp.NewRateLimitError("submit", "status 429")
		}
		if resp.StatusCode >= 400 {
			return llmhttp.NewInvalidRequestError("submit", fmt.Sprintf("status %d: %s", resp.StatusCode, llmhttp.SafeLogResponse(string(body))))
		}

		var graded graderResponse
		if err := json.Unmarshal(body, &graded); err != nil {
			return llmhttp.NewInvalidRequestError("submit", fmt.Sprintf("decode verdict: %v", err))
		}

		next := graded.NextURL
		if next == "" {
			next = graded.URL
		}
		result = domain.SubmissionResult{
			Correct: graded.Correct,
			Reason:  graded.Reason,
			NextURL: next,
		}
		return nil
	}

	if err := llmhttp.RetryWithBackoff(ctx, operation, s.retry); err != nil {
		return domain.SubmissionResult{}, err
	}
	return result, nil
}

var _ solve.Submitter = (*Submitter)(nil)
