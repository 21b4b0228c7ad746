package domain

import "time"

// TaskType classifies what a quiz question asks the solver to do.
type TaskType string

const (
	TaskScrape      TaskType = "scrape"
	TaskExtraction  TaskType = "extraction"
	TaskCalculation TaskType = "calculation"
	TaskAPICall     TaskType = "api_call"
	TaskGeneral     TaskType = "general"
)

// AnswerFormat is the shape the grader expects the answer in.
type AnswerFormat string

const (
	FormatNumber  AnswerFormat = "number"
	FormatString  AnswerFormat = "string"
	FormatBoolean AnswerFormat = "boolean"
	FormatJSON    AnswerFormat = "json"
	FormatUnknown AnswerFormat = "unknown"
)

// QuizRequest is the inbound request to solve a quiz page.
type QuizRequest struct {
	Email  string `json:"email"`
	Secret string `json:"secret"`
	URL    string `json:"url"`
}

// Instructions is the structured reading of a quiz page.
type Instructions struct {
	Question     string       `json:"question,omitempty"`
	DataSource   string       `json:"dataSource,omitempty"`
	SubmitURL    string       `json:"submitUrl,omitempty"`
	TaskType     TaskType     `json:"taskType"`
	AnswerFormat AnswerFormat `json:"answerFormat"`
	CodeHint     string       `json:"codeHint,omitempty"`
	VisibleText  string       `json:"-"`
}

// Answer is a solved value plus how it was produced.
type Answer struct {
	Value  any    `json:"value"`
	Method string `json:"method"`
	Notes  string `json:"notes,omitempty"`
}

// Submission is the payload POSTed to a quiz's submit endpoint.
type Submission struct {
	Email  string `json:"email"`
	Secret string `json:"secret"`
	URL    string `json:"url"`
	Answer any    `json:"answer"`
}

// SubmissionResult is the grader's verdict for one submission.
type SubmissionResult struct {
	Correct bool   `json:"correct"`
	Reason  string `json:"reason,omitempty"`
	NextURL string `json:"nextUrl,omitempty"`
}

// Attempt records one solved (or failed) quiz question.
type Attempt struct {
	ID        string        `json:"id"`
	RunID     string        `json:"runId"`
	URL       string        `json:"url"`
	TaskType  TaskType      `json:"taskType"`
	Answer    *Answer       `json:"answer,omitempty"`
	Correct   bool          `json:"correct"`
	Submitted bool          `json:"submitted"`
	Error     string        `json:"error,omitempty"`
	NextURL   string        `json:"nextUrl,omitempty"`
	Duration  time.Duration `json:"duration"`
	CostUSD   float64       `json:"costUsd"`
	CreatedAt time.Time     `json:"createdAt"`
}

// ChainResult summarizes a walk down a chain of quiz questions.
type ChainResult struct {
	StartURL       string    `json:"startUrl"`
	Completed      bool      `json:"completed"`
	TotalQuestions int       `json:"totalQuestions"`
	CorrectAnswers int       `json:"correctAnswers"`
	Attempts       []Attempt `json:"attempts"`
}

// ChainEvent is a progress notification emitted while a chain solve runs.
type ChainEvent struct {
	Type    string   `json:"type"` // "question", "answered", "done"
	URL     string   `json:"url,omitempty"`
	Number  int      `json:"number,omitempty"`
	Correct bool     `json:"correct,omitempty"`
	Error   string   `json:"error,omitempty"`
	Attempt *Attempt `json:"attempt,omitempty"`
}

// GuardVerdict is the Input Guard's decision about untrusted text.
type GuardVerdict struct {
	Allowed   bool   `json:"allowed"`
	Sanitized string `json:"-"`
	Reason    string `json:"reason,omitempty"`
	Rule      string `json:"rule,omitempty"`
}
