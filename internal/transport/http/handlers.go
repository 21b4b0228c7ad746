// Package http exposes the quiz solver over HTTP and WebSocket.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	llmhttp "quizsolver/internal/adapter/llm/http"
	"quizsolver/internal/domain"
	"quizsolver/internal/store"
	"quizsolver/internal/usecase/solve"
)

// Solver is the inbound port the transport drives.
type Solver interface {
	SolveQuiz(ctx context.Context, req domain.QuizRequest) (domain.Attempt, error)
	SolveChain(ctx context.Context, req domain.QuizRequest, opts solve.ChainOptions, sink solve.EventSink) (domain.ChainResult, error)
}

// Handler serves the solver API.
type Handler struct {
	solver    Solver
	chainOpts solve.ChainOptions
	metrics   llmhttp.Metrics // optional
	history   store.Store     // optional
	version   string
}

// NewHandler constructs a Handler.
func NewHandler(solver Solver, chainOpts solve.ChainOptions, version string) *Handler {
	return &Handler{
		solver:    solver,
		chainOpts: chainOpts,
		version:   version,
	}
}

// SetMetrics attaches provider metrics for /api/stats.
func (h *Handler) SetMetrics(metrics llmhttp.Metrics) {
	h.metrics = metrics
}

// SetHistory attaches the attempt store for /api/stats.
func (h *Handler) SetHistory(history store.Store) {
	h.history = history
}

// Routes registers all endpoints on a mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", h.handleRoot)
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.HandleFunc("/api/quiz", h.handleQuiz)
	mux.HandleFunc("/api/quiz/chain", h.handleChain)
	mux.HandleFunc("/api/quiz/chain/ws", h.handleChainWS)
	mux.HandleFunc("/api/stats", h.handleStats)
	return mux
}

func (h *Handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "quizd",
		"version": h.version,
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) handleQuiz(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeQuizRequest(w, r)
	if !ok {
		return
	}

	attempt, err := h.solver.SolveQuiz(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, attempt)
}

func (h *Handler) handleChain(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeQuizRequest(w, r)
	if !ok {
		return
	}

	result, err := h.solver.SolveChain(r.Context(), req, h.chainOpts, nil)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// statsResponse combines provider metrics with attempt history.
type statsResponse struct {
	Providers llmhttp.Stats  `json:"providers"`
	History   *store.Summary `json:"history,omitempty"`
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var resp statsResponse
	if h.metrics != nil {
		resp.Providers = h.metrics.GetStats()
	}
	if h.history != nil {
		summary, err := h.history.Summary(r.Context())
		if err == nil {
			resp.History = &summary
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) decodeQuizRequest(w http.ResponseWriter, r *http.Request) (domain.QuizRequest, bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return domain.QuizRequest{}, false
	}

	var req domain.QuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return domain.QuizRequest{}, false
	}
	if req.Email == "" || req.Secret == "" || req.URL == "" {
		writeJSON(w, http.StatusBadRequest, errorBody(domain.ErrMissingFields.Error()))
		return domain.QuizRequest{}, false
	}
	return req, true
}

// writeError maps domain errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrMissingFields):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrUnknownEmail), errors.Is(err, domain.ErrInvalidSecret):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrGuardRejected), errors.Is(err, domain.ErrNoSubmitURL):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrUpstream):
		status = http.StatusBadGateway
	}
	writeJSON(w, status, errorBody(err.Error()))
}

func errorBody(message string) map[string]string {
	return map[string]string{"error": message}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
