package ollama

import (
	"context"
	"fmt"

	"quizsolver/internal/usecase/solve"
)

const providerName = "ollama"

// Client abstracts the Ollama HTTP client behaviour we need.
type Client interface {
	SolveQuestion(ctx context.Context, req Request) (Response, error)
}

// Request represents the outbound payload for the Ollama provider.
type Request struct {
	Model     string
	Prompt    string
	Seed      uint64
	MaxTokens int
}

// Response captures the result returned by the LLM.
type Response struct {
	Model   string
	Answer  string
	CostUSD float64
}

// Provider implements the usecase Provider port.
type Provider struct {
	model  string
	client Client
}

// NewProvider constructs a Provider for the supplied model.
func NewProvider(model string, client Client) *Provider {
	return &Provider{
		model:  model,
		client: client,
	}
}

// Solve sends the prompt to the local Ollama daemon and translates the response.
func (p *Provider) Solve(ctx context.Context, req solve.ProviderRequest) (solve.ProviderAnswer, error) {
	if p.client == nil {
		return solve.ProviderAnswer{}, fmt.Errorf("ollama client missing")
	}

	response, err := p.client.SolveQuestion(ctx, Request{
		Model:     p.model,
		Prompt:    req.Prompt,
		Seed:      req.Seed,
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		return solve.ProviderAnswer{}, err
	}

	model := response.Model
	if model == "" {
		model = p.model
	}

	return solve.ProviderAnswer{
		ProviderName: providerName,
		ModelName:    model,
		Text:         response.Answer,
	}, nil
}
