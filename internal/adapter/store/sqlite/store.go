package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"quizsolver/internal/store"
)

// Store implements the store.Store interface using SQLite.
type Store struct {
	db *sql.DB
}

// NewStore creates a new SQLite store at the given path.
// Use ":memory:" for in-memory database (useful for testing).
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}

	if err := s.createSchema(); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return s, nil
}

// createSchema creates all tables and indexes if they don't exist.
func (s *Store) createSchema() error {
	schema := `
	-- One row per solved (or failed) quiz question
	CREATE TABLE IF NOT EXISTS attempts (
		attempt_id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		url TEXT NOT NULL,
		task_type TEXT NOT NULL,
		answer_json TEXT,
		method TEXT,
		correct INTEGER DEFAULT 0,
		submitted INTEGER DEFAULT 0,
		error TEXT,
		next_url TEXT,
		duration_ms INTEGER DEFAULT 0,
		cost_usd REAL DEFAULT 0.0,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_attempts_run ON attempts(run_id);
	CREATE INDEX IF NOT EXISTS idx_attempts_created ON attempts(created_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveAttempt stores one attempt record.
func (s *Store) SaveAttempt(ctx context.Context, attempt store.AttemptRecord) error {
	query := `
		INSERT INTO attempts (attempt_id, run_id, url, task_type, answer_json, method,
			correct, submitted, error, next_url, duration_ms, cost_usd, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		attempt.AttemptID,
		attempt.RunID,
		attempt.URL,
		attempt.TaskType,
		attempt.AnswerJSON,
		attempt.Method,
		boolToInt(attempt.Correct),
		boolToInt(attempt.Submitted),
		attempt.Error,
		attempt.NextURL,
		attempt.Duration.Milliseconds(),
		attempt.CostUSD,
		attempt.CreatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to save attempt: %w", err)
	}

	return nil
}

// GetAttempt retrieves an attempt by ID.
func (s *Store) GetAttempt(ctx context.Context, attemptID string) (store.AttemptRecord, error) {
	query := selectAttempts + ` WHERE attempt_id = ?`

	row := s.db.QueryRowContext(ctx, query, attemptID)
	attempt, err := scanAttempt(row)
	if err == sql.ErrNoRows {
		return store.AttemptRecord{}, fmt.Errorf("attempt not found: %s", attemptID)
	}
	if err != nil {
		return store.AttemptRecord{}, fmt.Errorf("failed to get attempt: %w", err)
	}
	return attempt, nil
}

// ListAttempts retrieves the most recent attempts, newest first.
func (s *Store) ListAttempts(ctx context.Context, limit int) ([]store.AttemptRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	query := selectAttempts + ` ORDER BY created_at DESC, attempt_id LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectAttempts(rows)
}

// ListAttemptsByRun retrieves all attempts for a run, oldest first.
func (s *Store) ListAttemptsByRun(ctx context.Context, runID string) ([]store.AttemptRecord, error) {
	query := selectAttempts + ` WHERE run_id = ? ORDER BY created_at, attempt_id`

	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts for run: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectAttempts(rows)
}

// Summary aggregates the full attempt history.
func (s *Store) Summary(ctx context.Context) (store.Summary, error) {
	summary := store.Summary{ByTaskType: make(map[string]store.TaskTypeStats)}

	query := `
		SELECT COUNT(*), COALESCE(SUM(submitted), 0), COALESCE(SUM(correct), 0), COALESCE(SUM(cost_usd), 0.0)
		FROM attempts
	`
	err := s.db.QueryRowContext(ctx, query).Scan(
		&summary.TotalAttempts,
		&summary.Submitted,
		&summary.Correct,
		&summary.TotalCostUSD,
	)
	if err != nil {
		return store.Summary{}, fmt.Errorf("failed to summarize attempts: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT task_type, COUNT(*), COALESCE(SUM(correct), 0)
		FROM attempts GROUP BY task_type
	`)
	if err != nil {
		return store.Summary{}, fmt.Errorf("failed to summarize task types: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var taskType string
		var stats store.TaskTypeStats
		if err := rows.Scan(&taskType, &stats.Attempts, &stats.Correct); err != nil {
			return store.Summary{}, fmt.Errorf("failed to scan task type row: %w", err)
		}
		summary.ByTaskType[taskType] = stats
	}
	if err := rows.Err(); err != nil {
		return store.Summary{}, fmt.Errorf("failed to iterate task type rows: %w", err)
	}

	return summary, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

const selectAttempts = `
	SELECT attempt_id, run_id, url, task_type, answer_json, method,
		correct, submitted, error, next_url, duration_ms, cost_usd, created_at
	FROM attempts
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row rowScanner) (store.AttemptRecord, error) {
	var attempt store.AttemptRecord
	var correct, submitted int
	var durationMS, createdAt int64
	var answerJSON, method, errText, nextURL sql.NullString

	err := row.Scan(
		&attempt.AttemptID,
		&attempt.RunID,
		&attempt.URL,
		&attempt.TaskType,
		&answerJSON,
		&method,
		&correct,
		&submitted,
		&errText,
		&nextURL,
		&durationMS,
		&attempt.CostUSD,
		&createdAt,
	)
	if err != nil {
		return store.AttemptRecord{}, err
	}

	attempt.AnswerJSON = answerJSON.String
	attempt.Method = method.String
	attempt.Error = errText.String
	attempt.NextURL = nextURL.String
	attempt.Correct = correct != 0
	attempt.Submitted = submitted != 0
	attempt.Duration = time.Duration(durationMS) * time.Millisecond
	attempt.CreatedAt = time.Unix(createdAt, 0).UTC()

	return attempt, nil
}

func collectAttempts(rows *sql.Rows) ([]store.AttemptRecord, error) {
	var attempts []store.AttemptRecord
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		attempts = append(attempts, attempt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attempts: %w", err)
	}
	return attempts, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ store.Store = (*Store)(nil)
