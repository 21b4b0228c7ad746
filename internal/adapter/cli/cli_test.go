package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizsolver/internal/domain"
	storepkg "quizsolver/internal/store"
	"quizsolver/internal/usecase/solve"
)

type stubSolver struct {
	attempt domain.Attempt
	chain   domain.ChainResult
	events  []domain.ChainEvent
	err     error
	lastReq domain.QuizRequest
}

func (s *stubSolver) SolveQuiz(ctx context.Context, req domain.QuizRequest) (domain.Attempt, error) {
	s.lastReq = req
	return s.attempt, s.err
}

func (s *stubSolver) SolveChain(ctx context.Context, req domain.QuizRequest, opts solve.ChainOptions, sink solve.EventSink) (domain.ChainResult, error) {
	s.lastReq = req
	if sink != nil {
		for _, e := range s.events {
			sink(e)
		}
	}
	return s.chain, s.err
}

type stubHistory struct {
	storepkg.Store
	attempts []storepkg.AttemptRecord
	summary  storepkg.Summary
}

func (s *stubHistory) ListAttempts(ctx context.Context, limit int) ([]storepkg.AttemptRecord, error) {
	return s.attempts, nil
}

func (s *stubHistory) ListAttemptsByRun(ctx context.Context, runID string) ([]storepkg.AttemptRecord, error) {
	return s.attempts, nil
}

func (s *stubHistory) Summary(ctx context.Context) (storepkg.Summary, error) {
	return s.summary, nil
}

func runCommand(t *testing.T, deps Dependencies, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	deps.Args = Arguments{OutWriter: &out, ErrWriter: &errOut}
	root := NewRootCommand(deps)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestVersionFlag(t *testing.T) {
	out, _, err := runCommand(t, Dependencies{Version: "v1.2.3"}, "--version")

	assert.ErrorIs(t, err, ErrVersionRequested)
	assert.Contains(t, out, "v1.2.3")
}

func TestSolveCommand(t *testing.T) {
	t.Run("prints the attempt as json", func(t *testing.T) {
		solver := &stubSolver{attempt: domain.Attempt{ID: "a1", Correct: true}}
		out, _, err := runCommand(t, Dependencies{Solver: solver},
			"solve", "https://quiz.example.com/q/1", "--email", "user@example.com", "--secret", "s3cret")

		require.NoError(t, err)
		assert.Contains(t, out, `"id": "a1"`)
		assert.Equal(t, "user@example.com", solver.lastReq.Email)
		assert.Equal(t, "https://quiz.example.com/q/1", solver.lastReq.URL)
	})

	t.Run("requires email and secret", func(t *testing.T) {
		_, _, err := runCommand(t, Dependencies{Solver: &stubSolver{}},
			"solve", "https://quiz.example.com/q/1")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "--email and --secret")
	})

	t.Run("chain mode reports progress", func(t *testing.T) {
		solver := &stubSolver{
			chain: domain.ChainResult{Completed: true, TotalQuestions: 2},
			events: []domain.ChainEvent{
				{Type: "question", Number: 1, URL: "https://quiz.example.com/q/1"},
				{Type: "answered", Number: 1, Correct: true},
				{Type: "question", Number: 2, URL: "https://quiz.example.com/q/2"},
				{Type: "answered", Number: 2, Correct: false},
			},
		}
		out, _, err := runCommand(t, Dependencies{Solver: solver},
			"solve", "https://quiz.example.com/q/1", "--chain", "--email", "u@example.com", "--secret", "s")

		require.NoError(t, err)
		assert.Contains(t, out, "[1] correct")
		assert.Contains(t, out, "[2] wrong")
		assert.Contains(t, out, `"completed": true`)
	})

	t.Run("propagates solver errors", func(t *testing.T) {
		solver := &stubSolver{err: errors.New("upstream request failed")}
		_, _, err := runCommand(t, Dependencies{Solver: solver},
			"solve", "https://quiz.example.com/q/1", "--email", "u@example.com", "--secret", "s")

		assert.ErrorContains(t, err, "upstream request failed")
	})
}

func TestProgressCommand(t *testing.T) {
	t.Run("lists attempts and the summary line", func(t *testing.T) {
		history := &stubHistory{
			attempts: []storepkg.AttemptRecord{
				{AttemptID: "a1", TaskType: "calculation", URL: "https://quiz.example.com/q/1", AnswerJSON: "21", Correct: true, Submitted: true},
				{AttemptID: "a2", TaskType: "scrape", URL: "https://quiz.example.com/q/2", AnswerJSON: `"48291"`, Submitted: true},
			},
			summary: storepkg.Summary{
				TotalAttempts: 2, Submitted: 2, Correct: 1, TotalCostUSD: 0.0123,
				ByTaskType: map[string]storepkg.TaskTypeStats{
					"calculation": {Attempts: 1, Correct: 1},
					"scrape":      {Attempts: 1, Correct: 0},
				},
			},
		}
		out, _, err := runCommand(t, Dependencies{History: history}, "progress")

		require.NoError(t, err)
		assert.Contains(t, out, "calculation")
		assert.Contains(t, out, "48291")
		assert.NotContains(t, out, `"48291"`, "stored answers are decoded before printing")
		assert.Contains(t, out, "1/1 correct (100%)")
		assert.Contains(t, out, "0/1 correct (0%)")
		assert.Contains(t, out, "2 attempts, 2 submitted, 1 correct, $0.0123 spent")
	})

	t.Run("fails without a configured store", func(t *testing.T) {
		_, _, err := runCommand(t, Dependencies{}, "progress")

		assert.ErrorContains(t, err, "attempt store is not configured")
	})
}
