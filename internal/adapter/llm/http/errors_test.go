package http_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	llmhttp "quizsolver/internal/adapter/llm/http"
)

func TestError_Error(t *testing.T) {
	err := &llmhttp.Error{
		Type:       llmhttp.ErrTypeAuthentication,
		Message:    "invalid API key",
		StatusCode: 401,
		Provider:   "openai",
	}

	expected := "openai: authentication error: invalid API key (status: 401)"
	assert.Equal(t, expected, err.Error())
}

func TestError_Is(t *testing.T) {
	err1 := &llmhttp.Error{Type: llmhttp.ErrTypeRateLimit, Message: "rate limited"}
	err2 := &llmhttp.Error{Type: llmhttp.ErrTypeRateLimit, Message: "different message"}
	err3 := &llmhttp.Error{Type: llmhttp.ErrTypeAuthentication, Message: "auth failed"}

	// Same type should match
	assert.True(t, errors.Is(err1, err2))

	// Different type should not match
	assert.False(t, errors.Is(err1, err3))
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name       string
		err        *llmhttp.Error
		errType    llmhttp.ErrorType
		statusCode int
		retryable  bool
	}{
		{
			name:       "authentication",
			err:        llmhttp.NewAuthenticationError("openai", "bad key"),
			errType:    llmhttp.ErrTypeAuthentication,
			statusCode: 401,
			retryable:  false,
		},
		{
			name:       "rate limit",
			err:        llmhttp.NewRateLimitError("anthropic", "slow down"),
			errType:    llmhttp.ErrTypeRateLimit,
			statusCode: 429,
			retryable:  true,
		},
		{
			name:       "service unavailable",
			err:        llmhttp.NewServiceUnavailableError("ollama", "overloaded"),
			errType:    llmhttp.ErrTypeServiceUnavailable,
			statusCode: 503,
			retryable:  true,
		},
		{
			name:       "invalid request",
			err:        llmhttp.NewInvalidRequestError("openai", "bad payload"),
			errType:    llmhttp.ErrTypeInvalidRequest,
			statusCode: 400,
			retryable:  false,
		},
		{
			name:      "timeout",
			err:       llmhttp.NewTimeoutError("quiz-page", "deadline exceeded"),
			errType:   llmhttp.ErrTypeTimeout,
			retryable: true,
		},
		{
			name:       "model not found",
			err:        llmhttp.NewModelNotFoundError("ollama", "no such model"),
			errType:    llmhttp.ErrTypeModelNotFound,
			statusCode: 404,
			retryable:  false,
		},
		{
			name:       "content filtered",
			err:        llmhttp.NewContentFilteredError("anthropic", "filtered"),
			errType:    llmhttp.ErrTypeContentFiltered,
			statusCode: 400,
			retryable:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.errType, tt.err.Type)
			assert.Equal(t, tt.statusCode, tt.err.StatusCode)
			assert.Equal(t, tt.retryable, tt.err.IsRetryable())
		})
	}
}

func TestErrorType_String(t *testing.T) {
	assert.Equal(t, "authentication error", llmhttp.ErrTypeAuthentication.String())
	assert.Equal(t, "rate limit exceeded", llmhttp.ErrTypeRateLimit.String())
	assert.Equal(t, "service unavailable", llmhttp.ErrTypeServiceUnavailable.String())
	assert.Equal(t, "invalid request", llmhttp.ErrTypeInvalidRequest.String())
	assert.Equal(t, "timeout", llmhttp.ErrTypeTimeout.String())
	assert.Equal(t, "model not found", llmhttp.ErrTypeModelNotFound.String())
	assert.Equal(t, "content filtered", llmhttp.ErrTypeContentFiltered.String())
	assert.Equal(t, "unknown error", llmhttp.ErrTypeUnknown.String())
}
