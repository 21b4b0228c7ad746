package store

import (
	"context"
	"time"
)

// Store defines the persistence layer interface for attempt history.
type Store interface {
	// Attempt persistence
	SaveAttempt(ctx context.Context, attempt AttemptRecord) error
	GetAttempt(ctx context.Context, attemptID string) (AttemptRecord, error)
	ListAttempts(ctx context.Context, limit int) ([]AttemptRecord, error)
	ListAttemptsByRun(ctx context.Context, runID string) ([]AttemptRecord, error)

	// Aggregates
	Summary(ctx context.Context) (Summary, error)

	// Utility
	Close() error
}

// AttemptRecord stores one solved (or failed) quiz question.
type AttemptRecord struct {
	AttemptID  string
	RunID      string
	URL        string
	TaskType   string
	AnswerJSON string
	Method     string
	Correct    bool
	Submitted  bool
	Error      string
	NextURL    string
	Duration   time.Duration
	CostUSD    float64
	CreatedAt  time.Time
}

// Summary aggregates attempt history for reporting.
type Summary struct {
	TotalAttempts int
	Submitted     int
	Correct       int
	TotalCostUSD  float64
	ByTaskType    map[string]TaskTypeStats
}

// TaskTypeStats counts attempts and correct answers for one task type.
type TaskTypeStats struct {
	Attempts int
	Correct  int
}
