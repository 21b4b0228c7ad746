package http_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	llmhttp "quizsolver/internal/adapter/llm/http"
)

func TestDefaultRetryConfig(t *testing.T) {
	config := llmhttp.DefaultRetryConfig()

	assert.Equal(t, 5, config.MaxRetries)
	assert.Equal(t, 2*time.Second, config.InitialBackoff)
	assert.Equal(t, 32*time.Second, config.MaxBackoff)
	assert.Equal(t, 2.0, config.Multiplier)
}

func TestExponentialBackoff(t *testing.T) {
	config := llmhttp.RetryConfig{
		MaxRetries:     5,
		InitialBackoff: 2 * time.Second,
		MaxBackoff:     32 * time.Second,
		Multiplier:     2.0,
	}

	tests := []struct {
		name    string
		attempt int
		minWait time.Duration
		maxWait time.Duration
	}{
		{"attempt 0", 0, 1500 * time.Millisecond, 2500 * time.Millisecond}, // 2s ± 25%
		{"attempt 1", 1, 3 * time.Second, 5 * time.Second},                 // 4s ± 25%
		{"attempt 2", 2, 6 * time.Second, 10 * time.Second},                // 8s ± 25%
		{"attempt 3", 3, 12 * time.Second, 20 * time.Second},               // 16s ± 25%
		{"attempt 4", 4, 24 * time.Second, 32 * time.Second},               // 32s (capped)
		{"attempt 5", 5, 24 * time.Second, 32 * time.Second},               // 32s (capped)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Run multiple times to verify jitter works
			for i := 0; i < 10; i++ {
				backoff := llmhttp.ExponentialBackoff(tt.attempt, config)
				assert.GreaterOrEqual(t, backoff, tt.minWait, "backoff too short")
				assert.LessOrEqual(t, backoff, tt.maxWait, "backoff too long")
			}
		})
	}
}

func TestShouldRetry(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "rate limit error should retry",
			err:  llmhttp.NewRateLimitError("openai", "too many requests"),
			want: true,
		},
		{
			name: "service unavailable should retry",
			err:  llmhttp.NewServiceUnavailableError("anthropic", "overloaded"),
			want: true,
		},
		{
			name: "timeout should retry",
			err:  llmhttp.NewTimeoutError("quiz-page", "timed out"),
			want: true,
		},
		{
			name: "authentication error should not retry",
			err:  llmhttp.NewAuthenticationError("openai", "invalid key"),
			want: false,
		},
		{
			name: "invalid request should not retry",
			err:  llmhttp.NewInvalidRequestError("grader", "malformed payload"),
			want: false,
		},
		{
			name: "generic error should not retry",
			err:  errors.New("something broke"),
			want: false,
		},
		{
			name: "nil error should not retry",
			err:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, llmhttp.ShouldRetry(tt.err))
		})
	}
}

func fastConfig() llmhttp.RetryConfig {
	return llmhttp.RetryConfig{
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2.0,
	}
}

func TestRetryWithBackoff_SucceedsFirstTry(t *testing.T) {
	calls := 0
	err := llmhttp.RetryWithBackoff(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	}, fastConfig())

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryWithBackoff_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := llmhttp.RetryWithBackoff(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return llmhttp.NewServiceUnavailableError("grader", "not yet")
		}
		return nil
	}, fastConfig())

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryWithBackoff_StopsOnNonRetryable(t *testing.T) {
	calls := 0
	err := llmhttp.RetryWithBackoff(context.Background(), func(ctx context.Context) error {
		calls++
		return llmhttp.NewAuthenticationError("openai", "bad key")
	}, fastConfig())

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryWithBackoff_ExhaustsRetries(t *testing.T) {
	calls := 0
	err := llmhttp.RetryWithBackoff(context.Background(), func(ctx context.Context) error {
		calls++
		return llmhttp.NewRateLimitError("openai", "still limited")
	}, fastConfig())

	require.Error(t, err)
	assert.Equal(t, 4, calls) // initial attempt + 3 retries

	var httpErr *llmhttp.Error
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, llmhttp.ErrTypeRateLimit, httpErr.Type)
}

func TestRetryWithBackoff_RespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := llmhttp.RetryWithBackoff(ctx, func(ctx context.Context) error {
		t.Fatal("operation should not run after cancellation")
		return nil
	}, fastConfig())

	assert.ErrorIs(t, err, context.Canceled)
}
