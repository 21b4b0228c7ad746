// Package solve implements the quiz-solving use case: authenticate the
// caller, fetch and parse the quiz page, screen its text through the
// input guard, produce an answer, and submit it.
package solve

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"quizsolver/internal/domain"
	"quizsolver/internal/store"
)

// ParseFunc turns quiz page HTML into structured instructions.
type ParseFunc func(htmlContent string) domain.Instructions

// Deps captures the solver's outbound dependencies.
type Deps struct {
	Fetcher     Fetcher
	Parse       ParseFunc
	Guard       Inspector
	Providers   []Provider // tried in order until one answers
	Submitter   Submitter
	Credentials CredentialStore
	Store       AttemptStore // optional
	Logger      Logger       // optional
	Seed        SeedFunc
	Prompt      *PromptBuilder
}

// Solver runs single-question and chain quiz solves.
type Solver struct {
	deps Deps
}

// NewSolver wires the solver dependencies. A missing prompt builder
// gets a default one.
func NewSolver(deps Deps) *Solver {
	if deps.Prompt == nil {
		deps.Prompt = NewPromptBuilder(nil, 0)
	}
	return &Solver{deps: deps}
}

func (s *Solver) validateDependencies() error {
	if s.deps.Fetcher == nil {
		return errors.New("fetcher is required")
	}
	if s.deps.Parse == nil {
		return errors.New("parser is required")
	}
	if s.deps.Guard == nil {
		return errors.New("input guard is required")
	}
	if len(s.deps.Providers) == 0 {
		return errors.New("at least one provider is required")
	}
	if s.deps.Submitter == nil {
		return errors.New("submitter is required")
	}
	if s.deps.Credentials == nil {
		return errors.New("credential store is required")
	}
	if s.deps.Seed == nil {
		return errors.New("seed generator is required")
	}
	// Store and Logger are optional
	return nil
}

// Authenticate verifies that the email is registered and the secret
// matches. Comparison is constant-time.
func (s *Solver) Authenticate(ctx context.Context, email, secret string) error {
	if email == "" || secret == "" {
		return domain.ErrMissingFields
	}

	stored, err := s.deps.Credentials.Lookup(ctx, email)
	if err != nil {
		return err
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(secret)) != 1 {
		return domain.ErrInvalidSecret
	}
	return nil
}

// SolveQuiz handles one quiz request end to end and returns the
// recorded attempt. Failed attempts are returned alongside the error
// so callers can report partial progress.
func (s *Solver) SolveQuiz(ctx context.Context, req domain.QuizRequest) (domain.Attempt, error) {
	if err := s.validateDependencies(); err != nil {
		return domain.Attempt{}, err
	}
	if req.URL == "" {
		return domain.Attempt{}, domain.ErrMissingFields
	}

	if err := s.Authenticate(ctx, req.Email, req.Secret); err != nil {
		return domain.Attempt{}, err
	}

	// The caller's secret must never appear in prompts or logs.
	s.deps.Guard.Protect(req.Secret)

	attempt, err := s.solveOne(ctx, req, store.GenerateRunID(time.Now(), req.Email, req.URL))
	s.record(ctx, attempt)
	return attempt, err
}

// solveOne fetches, answers, and submits a single quiz question.
func (s *Solver) solveOne(ctx context.Context, req domain.QuizRequest, runID string) (domain.Attempt, error) {
	started := time.Now()
	attempt := domain.Attempt{
		ID:        newAttemptID(),
		RunID:     runID,
		URL:       req.URL,
		CreatedAt: started,
	}

	fail := func(err error) (domain.Attempt, error) {
		attempt.Error = err.Error()
		attempt.Duration = time.Since(started)
		return attempt, err
	}

	page, err := s.deps.Fetcher.Fetch(ctx, req.URL)
	if err != nil {
		return fail(fmt.Errorf("%w: fetch quiz page: %v", domain.ErrUpstream, err))
	}
	if page.Scripted {
		s.logWarning(ctx, "quiz page appears script-rendered, parsing static content", map[string]interface{}{
			"url": req.URL,
		})
	}

	inst := s.deps.Parse(string(page.Body))
	attempt.TaskType = inst.TaskType

	answer, cost, err := s.answer(ctx, req, page, inst)
	if err != nil {
		return fail(err)
	}
	attempt.Answer = answer
	attempt.CostUSD = cost

	if inst.SubmitURL == "" {
		return fail(domain.ErrNoSubmitURL)
	}
	submitURL := resolveURL(page.URL, inst.SubmitURL)

	result, err := s.deps.Submitter.Submit(ctx, submitURL, domain.Submission{
		Email:  req.Email,
		Secret: req.Secret,
		URL:    req.URL,
		Answer: answer.Value,
	})
	if err != nil {
		return fail(fmt.Errorf("%w: submit answer: %v", domain.ErrUpstream, err))
	}

	attempt.Submitted = true
	attempt.Correct = result.Correct
	attempt.NextURL = result.NextURL
	attempt.Duration = time.Since(started)

	s.logInfo(ctx, "quiz attempt finished", map[string]interface{}{
		"url":      req.URL,
		"taskType": string(inst.TaskType),
		"method":   answer.Method,
		"correct":  result.Correct,
	})
	return attempt, nil
}

// answer produces a value for the question, preferring deterministic
// processors and falling back to an LLM provider.
func (s *Solver) answer(ctx context.Context, req domain.QuizRequest, page Page, inst domain.Instructions) (*domain.Answer, float64, error) {
	if a := s.tryDeterministic(ctx, page, inst); a != nil {
		return a, 0, nil
	}
	return s.askProvider(ctx, req, page, inst)
}

// tryDeterministic runs the task-specific processors. A nil return
// means no processor was confident.
func (s *Solver) tryDeterministic(ctx context.Context, page Page, inst domain.Instructions) *domain.Answer {
	switch inst.TaskType {
	case domain.TaskCalculation, domain.TaskExtraction:
		if inst.DataSource == "" {
			return nil
		}
		data, err := s.deps.Fetcher.Fetch(ctx, resolveURL(page.URL, inst.DataSource))
		if err != nil {
			s.logWarning(ctx, "data source fetch failed, falling back to provider", map[string]interface{}{
				"dataSource": inst.DataSource, "error": err.Error(),
			})
			return nil
		}
		if !strings.Contains(strings.ToLower(inst.DataSource), ".csv") &&
			!strings.Contains(data.ContentType, "csv") {
			return nil
		}
		sum, count := sumNumbers(data.Body)
		if count == 0 {
			return nil
		}
		return numericAnswer(sum, "csv-sum", fmt.Sprintf("summed %d numbers", count))

	case domain.TaskScrape:
		target := page
		if inst.DataSource != "" {
			fetched, err := s.deps.Fetcher.Fetch(ctx, resolveURL(page.URL, inst.DataSource))
			if err != nil {
				return nil
			}
			target = fetched
		}
		if code, ok := extractSecretCode(string(target.Body)); ok {
			return &domain.Answer{Value: code, Method: "scrape"}
		}
		if inst.CodeHint != "" {
			return &domain.Answer{Value: strings.TrimRight(inst.CodeHint, ".,;"), Method: "scrape"}
		}
		return nil

	default:
		return nil
	}
}

// askProvider screens the question through the input guard, builds a
// bounded prompt, and tries each provider in order.
func (s *Solver) askProvider(ctx context.Context, req domain.QuizRequest, page Page, inst domain.Instructions) (*domain.Answer, float64, error) {
	contextText := inst.VisibleText

	// API tasks feed the endpoint's response to the provider.
	if inst.TaskType == domain.TaskAPICall && inst.DataSource != "" {
		data, err := s.deps.Fetcher.Fetch(ctx, resolveURL(page.URL, inst.DataSource))
		if err == nil {
			contextText = contextText + "\n\nEndpoint response:\n" + string(data.Body)
		}
	}

	verdict := s.deps.Guard.Inspect(contextText)
	if !verdict.Allowed {
		return nil, 0, fmt.Errorf("%w: rule %s: %s", domain.ErrGuardRejected, verdict.Rule, verdict.Reason)
	}

	// The question line is untrusted page text and gets the same
	// screening as the page context.
	if inst.Question != "" {
		qVerdict := s.deps.Guard.Inspect(inst.Question)
		if !qVerdict.Allowed {
			return nil, 0, fmt.Errorf("%w: rule %s: %s", domain.ErrGuardRejected, qVerdict.Rule, qVerdict.Reason)
		}
		inst.Question = qVerdict.Sanitized
	}

	preq := ProviderRequest{
		Prompt:    s.deps.Prompt.Build(inst, verdict.Sanitized),
		Seed:      s.deps.Seed(req.Email, req.URL),
		MaxTokens: 1024,
	}

	var lastErr error
	for _, p := range s.deps.Providers {
		resp, err := p.Solve(ctx, preq)
		if err != nil {
			lastErr = err
			s.logWarning(ctx, "provider failed, trying next", map[string]interface{}{
				"error": err.Error(),
			})
			continue
		}
		if strings.TrimSpace(resp.Text) == "" {
			lastErr = domain.ErrNoAnswer
			continue
		}
		return &domain.Answer{
			Value:  coerceAnswer(resp.Text, inst.AnswerFormat),
			Method: "llm:" + resp.ProviderName,
			Notes:  resp.ModelName,
		}, resp.CostUSD, nil
	}

	if lastErr == nil {
		lastErr = domain.ErrNoAnswer
	}
	return nil, 0, fmt.Errorf("all providers failed: %w", lastErr)
}

func (s *Solver) record(ctx context.Context, attempt domain.Attempt) {
	if s.deps.Store == nil || attempt.ID == "" {
		return
	}
	if err := s.deps.Store.SaveAttempt(ctx, attempt); err != nil {
		s.logWarning(ctx, "failed to persist attempt", map[string]interface{}{
			"attemptId": attempt.ID, "error": err.Error(),
		})
	}
}

func (s *Solver) logInfo(ctx context.Context, msg string, fields map[string]interface{}) {
	if s.deps.Logger != nil {
		s.deps.Logger.LogInfo(ctx, msg, fields)
	}
}

func (s *Solver) logWarning(ctx context.Context, msg string, fields map[string]interface{}) {
	if s.deps.Logger != nil {
		s.deps.Logger.LogWarning(ctx, msg, fields)
	}
}

// resolveURL resolves ref against base, returning ref unchanged when it
// is already absolute or base does not parse.
func resolveURL(base, ref string) string {
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if refURL.IsAbs() {
		return ref
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}

func numericAnswer(v float64, method, notes string) *domain.Answer {
	var value any = v
	if v == float64(int64(v)) {
		value = int64(v)
	}
	return &domain.Answer{Value: value, Method: method, Notes: notes}
}

func newAttemptID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}
