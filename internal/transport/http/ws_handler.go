package http

import (
	"net/http"

	"github.com/gorilla/websocket"

	"quizsolver/internal/domain"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// handleChainWS streams chain progress over a WebSocket. The client
// sends one quiz request as its first message; events flow back until
// the chain finishes, followed by the final result.
func (h *Handler) handleChainWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	var req domain.QuizRequest
	if err := conn.ReadJSON(&req); err != nil {
		_ = conn.WriteJSON(outboundMessage{Type: "error", Payload: errorPayload{Message: "invalid request message"}})
		return
	}
	if req.Email == "" || req.Secret == "" || req.URL == "" {
		_ = conn.WriteJSON(outboundMessage{Type: "error", Payload: errorPayload{Message: domain.ErrMissingFields.Error()}})
		return
	}

	// A single writer goroutine serializes all frames; gorilla
	// connections do not allow concurrent writes.
	send := make(chan outboundMessage, 16)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}
	}()

	// The writer exits on the first failed write. Every later send must
	// select against writerDone or a disconnected client would block the
	// chain solve forever.
	post := func(msg outboundMessage) {
		select {
		case send <- msg:
		case <-writerDone:
		}
	}

	sink := func(event domain.ChainEvent) {
		post(outboundMessage{Type: event.Type, Payload: event})
	}

	result, err := h.solver.SolveChain(r.Context(), req, h.chainOpts, sink)
	if err != nil {
		post(outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}})
	} else {
		post(outboundMessage{Type: "result", Payload: result})
	}

	close(send)
	<-writerDone
}
