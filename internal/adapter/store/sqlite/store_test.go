package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizsolver/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleAttempt(id, runID string) store.AttemptRecord {
	return store.AttemptRecord{
		AttemptID:  id,
		RunID:      runID,
		URL:        "https://quiz.example.com/q/1",
		TaskType:   "calculation",
		AnswerJSON: "21",
		Method:     "csv-sum",
		Correct:    true,
		Submitted:  true,
		Duration:   1500 * time.Millisecond,
		CostUSD:    0.002,
		CreatedAt:  time.Now().UTC().Truncate(time.Second),
	}
}

func TestSaveAndGetAttempt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	saved := sampleAttempt("a1", "run-1")
	require.NoError(t, s.SaveAttempt(ctx, saved))

	got, err := s.GetAttempt(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, saved.AttemptID, got.AttemptID)
	assert.Equal(t, saved.RunID, got.RunID)
	assert.Equal(t, saved.URL, got.URL)
	assert.Equal(t, saved.AnswerJSON, got.AnswerJSON)
	assert.Equal(t, saved.Method, got.Method)
	assert.True(t, got.Correct)
	assert.True(t, got.Submitted)
	assert.Equal(t, saved.Duration, got.Duration)
	assert.Equal(t, saved.CostUSD, got.CostUSD)
	assert.Equal(t, saved.CreatedAt, got.CreatedAt)
}

func TestGetAttemptNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetAttempt(context.Background(), "missing")
	assert.ErrorContains(t, err, "attempt not found")
}

func TestListAttempts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	for i, id := range []string{"a1", "a2", "a3"} {
		attempt := sampleAttempt(id, "run-1")
		attempt.CreatedAt = base.Add(time.Duration(i) * time.Second)
		require.NoError(t, s.SaveAttempt(ctx, attempt))
	}

	t.Run("newest first", func(t *testing.T) {
		attempts, err := s.ListAttempts(ctx, 10)
		require.NoError(t, err)
		require.Len(t, attempts, 3)
		assert.Equal(t, "a3", attempts[0].AttemptID)
		assert.Equal(t, "a1", attempts[2].AttemptID)
	})

	t.Run("respects the limit", func(t *testing.T) {
		attempts, err := s.ListAttempts(ctx, 2)
		require.NoError(t, err)
		assert.Len(t, attempts, 2)
	})
}

func TestListAttemptsByRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	first := sampleAttempt("a1", "run-1")
	first.CreatedAt = base
	second := sampleAttempt("a2", "run-1")
	second.CreatedAt = base.Add(time.Second)
	other := sampleAttempt("b1", "run-2")

	require.NoError(t, s.SaveAttempt(ctx, first))
	require.NoError(t, s.SaveAttempt(ctx, second))
	require.NoError(t, s.SaveAttempt(ctx, other))

	attempts, err := s.ListAttemptsByRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.Equal(t, "a1", attempts[0].AttemptID)
	assert.Equal(t, "a2", attempts[1].AttemptID)
}

func TestSummary(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	correct := sampleAttempt("a1", "run-1")
	require.NoError(t, s.SaveAttempt(ctx, correct))

	failed := sampleAttempt("a2", "run-1")
	failed.TaskType = "scrape"
	failed.Correct = false
	failed.Submitted = false
	failed.Error = "fetch failed"
	failed.CostUSD = 0
	require.NoError(t, s.SaveAttempt(ctx, failed))

	summary, err := s.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalAttempts)
	assert.Equal(t, 1, summary.Submitted)
	assert.Equal(t, 1, summary.Correct)
	assert.Equal(t, 0.002, summary.TotalCostUSD)
	assert.Equal(t, map[string]store.TaskTypeStats{
		"calculation": {Attempts: 1, Correct: 1},
		"scrape":      {Attempts: 1, Correct: 0},
	}, summary.ByTaskType)
}

func TestSummaryEmpty(t *testing.T) {
	s := newTestStore(t)

	summary, err := s.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.TotalAttempts)
	assert.Empty(t, summary.ByTaskType)
}
