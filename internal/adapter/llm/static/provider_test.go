package static_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizsolver/internal/adapter/llm/static"
	"quizsolver/internal/usecase/solve"
)

func TestProvider_Solve(t *testing.T) {
	provider := static.NewProvider("static-model")

	answer, err := provider.Solve(context.Background(), solve.ProviderRequest{
		Prompt: "What is the answer to everything?",
	})

	require.NoError(t, err)
	assert.Equal(t, "static", answer.ProviderName)
	assert.Equal(t, "static-model", answer.ModelName)
	assert.Equal(t, "42", answer.Text)
	assert.Equal(t, 0.0, answer.CostUSD)
}

func TestProvider_WithAnswer(t *testing.T) {
	provider := static.NewProvider("static-model").WithAnswer("no idea")

	answer, err := provider.Solve(context.Background(), solve.ProviderRequest{Prompt: "q"})

	require.NoError(t, err)
	assert.Equal(t, "no idea", answer.Text)
}
