package openai

import (
	"context"
	"fmt"

	"quizsolver/internal/usecase/solve"
)

const providerName = "openai"

// Client abstracts the OpenAI HTTP client behaviour we need.
type Client interface {
	SolveQuestion(ctx context.Context, req Request) (Response, error)
}

// Request represents the outbound payload for the OpenAI provider.
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

// Solve sends the prompt to OpenAI and translates the response.
func (p *Provider) Solve(ctx context.Context, req solve.ProviderRequest) (solve.ProviderAnswer, error) {
	if p.client == nil {
		return solve.ProviderAnswer{}, fmt.Errorf("openai client missing")
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

	return solve.ProviderAnswer{
		ProviderName: providerName,
		ModelName:    response.Model,
		Text:         response.Answer,
		CostUSD:      response.CostUSD,
	}, nil
}
