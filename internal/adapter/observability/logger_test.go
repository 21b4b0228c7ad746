package observability_test

import (
	"bytes"
	"context"
	"log"
	"os"
	"testing"

	llmhttp "quizsolver/internal/adapter/llm/http"
	"quizsolver/internal/adapter/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSolveLogger(t *testing.T) {
	llmLogger := llmhttp.NewDefaultLogger(llmhttp.LogLevelInfo, llmhttp.LogFormatHuman, true)
	solveLogger := observability.NewSolveLogger(llmLogger)

	require.NotNil(t, solveLogger)
}

func TestSolveLogger_LogWarning(t *testing.T) {
	// Capture log output
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	llmLogger := llmhttp.NewDefaultLogger(llmhttp.LogLevelInfo, llmhttp.LogFormatHuman, true)
	solveLogger := observability.NewSolveLogger(llmLogger)

	ctx := context.Background()
	solveLogger.LogWarning(ctx, "failed to save attempt", map[string]interface{}{
		"runID":    "run-123",
		"provider": "openai",
		"error":    "database connection failed",
	})

	output := buf.String()
	assert.Contains(t, output, "[WARN]")
	assert.Contains(t, output, "failed to save attempt")
	assert.Contains(t, output, "runID:run-123")
	assert.Contains(t, output, "provider:openai")
	assert.Contains(t, output, "error:database connection failed")
}

func TestSolveLogger_LogInfo(t *testing.T) {
	// Capture log output
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	llmLogger := llmhttp.NewDefaultLogger(llmhttp.LogLevelInfo, llmhttp.LogFormatHuman, true)
	solveLogger := observability.NewSolveLogger(llmLogger)

	ctx := context.Background()
	solveLogger.LogInfo(ctx, "quiz answered", map[string]interface{}{
		"runID":     "run-456",
		"provider":  "anthropic",
		"totalCost": 0.05,
	})

	output := buf.String()
	assert.Contains(t, output, "[INFO]")
	assert.Contains(t, output, "quiz answered")
	assert.Contains(t, output, "runID:run-456")
	assert.Contains(t, output, "provider:anthropic")
	assert.Contains(t, output, "totalCost:0.05")
}
