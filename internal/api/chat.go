package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/parley-ml/parley/internal/store"
)

// ChatFunc is the pure user-text-in, response-text-out function the demo
// endpoint binds. No state is retained across calls.
type ChatFunc func(ctx context.Context, text string) (string, error)

// ChatServer extends the base server with the demo chat endpoint.
type ChatServer struct {
	*Server
	chat   ChatFunc
	store  *store.Store // optional: chat-log audit rows
	logger *slog.Logger
}

// ChatRequest is the demo endpoint's request payload.
type ChatRequest struct {
	Text string `json:"text"`
}

// ChatResponse is the demo endpoint's response payload.
type ChatResponse struct {
	Response string `json:"response"`
}

// NewChatServer creates a server with the chat endpoint bound to fn.
func NewChatServer(port int, apiToken, modelURL string, pairs int, fn ChatFunc, db *store.Store, logger *slog.Logger) *ChatServer {
	base := NewServer(port, apiToken, modelURL, pairs)
	cs := &ChatServer{
		Server: base,
		chat:   fn,
		store:  db,
		logger: logger,
	}

	base.router.Group(func(r chi.Router) {
		r.Use(BearerAuthMiddleware(apiToken))
		r.Post("/api/v1/chat", cs.handleChat)
	})

	return cs
}

func (cs *ChatServer) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf(`{"error":"invalid JSON: %v"}`, err), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		http.Error(w, `{"error":"text is required"}`, http.StatusBadRequest)
		return
	}

	start := time.Now()
	response, err := cs.chat(r.Context(), req.Text)
	if err != nil {
		cs.logger.Error("chat generation failed", "error", err)
		http.Error(w, fmt.Sprintf(`{"error":"generation failed: %v"}`, err), http.StatusBadGateway)
		return
	}

	if cs.store != nil {
		if err := cs.store.WriteChatLog(r.Context(), req.Text, response, time.Since(start)); err != nil {
			cs.logger.Warn("failed to write chat log", "error", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ChatResponse{Response: response})
}
