package static

import (
	"context"

	"quizsolver/internal/usecase/solve"
)

const providerName = "static"

// Provider implements the usecase Provider port with a canned answer.
// It keeps the service runnable with no API keys and backs the tests.
type Provider struct {
	model  string
	answer string
}

// NewProvider constructs a static Provider.
func NewProvider(model string) *Provider {
	return &Provider{
		model:  model,
		answer: "42",
	}
}

// WithAnswer overrides the canned answer.
func (p *Provider) WithAnswer(answer string) *Provider {
	p.answer = answer
	return p
}

// Solve returns the canned answer.
func (p *Provider) Solve(ctx context.Context, req solve.ProviderRequest) (solve.ProviderAnswer, error) {
	return solve.ProviderAnswer{
		ProviderName: providerName,
		ModelName:    p.model,
		Text:         p.answer,
	}, nil
}
