package solve

import (
	"context"
	"time"

	"quizsolver/internal/domain"
	"quizsolver/internal/store"
)

// ChainOptions bounds a walk down a chain of linked quiz questions.
type ChainOptions struct {
	// MaxQuestions caps how many questions one chain run may answer.
	MaxQuestions int

	// QuestionTimeout bounds each individual question solve.
	QuestionTimeout time.Duration

	// Delay is the pause between consecutive questions.
	Delay time.Duration
}

// DefaultChainOptions match the limits the service applies when the
// configuration leaves them unset.
func DefaultChainOptions() ChainOptions {
	return ChainOptions{
		MaxQuestions:    10,
		QuestionTimeout: 30 * time.Second,
		Delay:           500 * time.Millisecond,
	}
}

func (o ChainOptions) withDefaults() ChainOptions {
	d := DefaultChainOptions()
	if o.MaxQuestions <= 0 {
		o.MaxQuestions = d.MaxQuestions
	}
	if o.QuestionTimeout <= 0 {
		o.QuestionTimeout = d.QuestionTimeout
	}
	if o.Delay < 0 {
		o.Delay = d.Delay
	}
	return o
}

// SolveChain answers questions starting at req.URL and following each
// submission's next URL until the chain ends, a limit is hit, or a URL
// repeats. Events go to sink as the run progresses; a nil sink is fine.
func (s *Solver) SolveChain(ctx context.Context, req domain.QuizRequest, opts ChainOptions, sink EventSink) (domain.ChainResult, error) {
	if err := s.validateDependencies(); err != nil {
		return domain.ChainResult{}, err
	}
	if req.URL == "" {
		return domain.ChainResult{}, domain.ErrMissingFields
	}
	if err := s.Authenticate(ctx, req.Email, req.Secret); err != nil {
		return domain.ChainResult{}, err
	}

	s.deps.Guard.Protect(req.Secret)

	opts = opts.withDefaults()
	if sink == nil {
		sink = func(domain.ChainEvent) {}
	}

	runID := store.GenerateRunID(time.Now(), req.Email, req.URL)
	result := domain.ChainResult{StartURL: req.URL}
	visited := make(map[string]bool)
	current := req.URL

	for current != "" && len(result.Attempts) < opts.MaxQuestions {
		if visited[current] {
			s.logWarning(ctx, "chain revisited a url, stopping", map[string]interface{}{
				"url": current,
			})
			break
		}
		visited[current] = true

		number := len(result.Attempts) + 1
		sink(domain.ChainEvent{Type: "question", URL: current, Number: number})

		qctx, cancel := context.WithTimeout(ctx, opts.QuestionTimeout)
		qreq := req
		qreq.URL = current
		attempt, err := s.solveOne(qctx, qreq, runID)
		cancel()

		s.record(ctx, attempt)
		result.Attempts = append(result.Attempts, attempt)
		result.TotalQuestions++
		if attempt.Correct {
			result.CorrectAnswers++
		}

		event := domain.ChainEvent{
			Type:    "answered",
			URL:     current,
			Number:  number,
			Correct: attempt.Correct,
			Attempt: &attempt,
		}
		if err != nil {
			event.Error = err.Error()
		}
		sink(event)

		if ctx.Err() != nil {
			break
		}

		// A failed question without a next URL ends the chain. An
		// incorrect answer may still carry one; keep going if so.
		current = attempt.NextURL
		if current == "" {
			result.Completed = err == nil
			break
		}

		if opts.Delay > 0 {
			select {
			case <-time.After(opts.Delay):
			case <-ctx.Done():
				current = ""
			}
		}
	}

	sink(domain.ChainEvent{Type: "done", Number: result.TotalQuestions})
	return result, ctx.Err()
}
