package mcptools

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/exp/jsonrpc2"
)

// maxMessageBytes bounds a single JSON-RPC message posted to /mcp.
const maxMessageBytes = 1 << 20

// NewHTTPHandler exposes the session over HTTP. Each POST /mcp body carries
// one JSON-RPC message; requests get the JSON-RPC response back and
// notifications get 202 Accepted. GET /health reports liveness.
func NewHTTPHandler(s *Session) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  slog.NewLogLogger(s.logger.Handler(), slog.LevelDebug),
		NoColor: true,
	}))
	r.Use(middleware.Recoverer)

	r.Get("/health", handleHealth)
	r.Post("/mcp", s.handleHTTPMessage)
	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Session) handleHTTPMessage(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxMessageBytes))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	msg, err := jsonrpc2.DecodeMessage(body)
	if err != nil {
		s.logger.Warn("Invalid JSON-RPC message", "error", err)
		http.Error(w, fmt.Sprintf("invalid JSON-RPC message: %v", err), http.StatusBadRequest)
		return
	}
	req, ok := msg.(*jsonrpc2.Request)
	if !ok {
		http.Error(w, "expected a JSON-RPC request", http.StatusBadRequest)
		return
	}

	result, rerr := s.Handle(r.Context(), req)
	if !req.ID.IsValid() {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	if errors.Is(rerr, jsonrpc2.ErrNotHandled) {
		rerr = jsonrpc2.ErrMethodNotFound
	}

	resp, err := jsonrpc2.NewResponse(req.ID, result, rerr)
	if err != nil {
		s.logger.Error("Failed to build response", "method", req.Method, "error", err)
		http.Error(w, "failed to encode result", http.StatusInternalServerError)
		return
	}
	data, err := jsonrpc2.EncodeMessage(resp)
	if err != nil {
		s.logger.Error("Failed to encode response", "method", req.Method, "error", err)
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}
