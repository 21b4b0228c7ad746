package store

import (
	"context"

	"quizsolver/internal/domain"
	"quizsolver/internal/store"
	"quizsolver/internal/usecase/solve"
)

// Bridge adapts store.Store to the solve.AttemptStore port.
// This avoids circular dependencies between packages.
type Bridge struct {
	store store.Store
}

// NewBridge creates a new store adapter.
func NewBridge(s store.Store) *Bridge {
	return &Bridge{store: s}
}

// SaveAttempt converts and saves an attempt record.
func (b *Bridge) SaveAttempt(ctx context.Context, attempt domain.Attempt) error {
	record := store.AttemptRecord{
		AttemptID: attempt.ID,
		RunID:     attempt.RunID,
		URL:       attempt.URL,
		TaskType:  string(attempt.TaskType),
		Correct:   attempt.Correct,
		Submitted: attempt.Submitted,
		Error:     attempt.Error,
		NextURL:   attempt.NextURL,
		Duration:  attempt.Duration,
		CostUSD:   attempt.CostUSD,
		CreatedAt: attempt.CreatedAt,
	}
	if attempt.Answer != nil {
		record.AnswerJSON = store.EncodeAnswer(attempt.Answer.Value)
		record.Method = attempt.Answer.Method
	}
	return b.store.SaveAttempt(ctx, record)
}

var _ solve.AttemptStore = (*Bridge)(nil)
