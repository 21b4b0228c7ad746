package solve

import (
	"context"

	"quizsolver/internal/domain"
)

// Provider defines the outbound port for LLM-backed answers.
type Provider interface {
	Solve(ctx context.Context, req ProviderRequest) (ProviderAnswer, error)
}

// ProviderRequest describes the payload the LLM provider expects.
type ProviderRequest struct {
	Prompt    string
	Seed      uint64
	MaxTokens int
}

// ProviderAnswer is the provider's response plus attribution.
type ProviderAnswer struct {
	ProviderName string
	ModelName    string
	Text         string
	CostUSD      float64
}

// Fetcher retrieves quiz pages and data sources over HTTP.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (Page, error)
}

// Page is a fetched resource.
type Page struct {
	URL         string // final URL after redirects
	Body        []byte
	ContentType string
	Scripted    bool // page appears to require script execution to render
}

// Submitter posts answers to a quiz's submit endpoint.
type Submitter interface {
	Submit(ctx context.Context, submitURL string, sub domain.Submission) (domain.SubmissionResult, error)
}

// CredentialStore resolves a registered email to its secret.
// Lookup returns domain.ErrUnknownEmail when the email is not registered.
type CredentialStore interface {
	Lookup(ctx context.Context, email string) (string, error)
}

// AttemptStore persists solved attempts. Optional.
type AttemptStore interface {
	SaveAttempt(ctx context.Context, attempt domain.Attempt) error
}

// Inspector screens untrusted quiz text before it reaches a provider.
type Inspector interface {
	Inspect(text string) domain.GuardVerdict
	Protect(values ...string)
}

// Logger provides structured logging for the solve use case.
type Logger interface {
	LogWarning(ctx context.Context, message string, fields map[string]interface{})
	LogInfo(ctx context.Context, message string, fields map[string]interface{})
}

// SeedFunc generates deterministic seeds per solve scope, so repeated
// runs over the same quiz produce reproducible provider sampling.
type SeedFunc func(email, url string) uint64

// TokenEstimator counts tokens in text, used to enforce prompt budgets.
type TokenEstimator func(text string) int

// EventSink receives progress events while a chain solve runs.
type EventSink func(event domain.ChainEvent)
