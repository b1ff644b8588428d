package ingress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/rs/cors"

	"github.com/anforahq/anfora/internal/config"
	"github.com/anforahq/anfora/internal/logger"
	"github.com/anforahq/anfora/internal/model/contract"
	"github.com/anforahq/anfora/internal/tool"
)

// ChatRunner is the slice of the agent loop the HTTP layer needs.
type ChatRunner interface {
	Run(ctx context.Context, history []contract.Message, userMessage string) (string, []tool.InvocationRecord, error)
}

// HTTPServer exposes the chat endpoint and a health probe.
type HTTPServer struct {
	runner ChatRunner
	server *http.Server
}

// NewHTTPServer creates the chat API server with CORS for the frontend.
// Read, write, and idle timeouts come from the server config; the write
// timeout has to outlast a full agent run, so it defaults much higher
// than the read timeout.
func NewHTTPServer(serverCfg config.ServerConfig, corsCfg config.CORSConfig, runner ChatRunner) (*HTTPServer, error) {
	readTimeout, err := config.DurationOrDefault(serverCfg.ReadTimeout, config.DefaultServerReadTimeout)
	if err != nil {
		return nil, fmt.Errorf("server read timeout: %w", err)
	}
	writeTimeout, err := config.DurationOrDefault(serverCfg.WriteTimeout, config.DefaultServerWriteTimeout)
	if err != nil {
		return nil, fmt.Errorf("server write timeout: %w", err)
	}
	idleTimeout, err := config.DurationOrDefault(serverCfg.IdleTimeout, config.DefaultServerIdleTimeout)
	if err != nil {
		return nil, fmt.Errorf("server idle timeout: %w", err)
	}

	mux := http.NewServeMux()
	s := &HTTPServer{runner: runner}

	mux.HandleFunc("/chat", s.handleChat)
	mux.HandleFunc("/", s.handleHealth)

	handler := cors.New(cors.Options{
		AllowedOrigins: corsCfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(mux)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", serverCfg.Port),
		Handler:      handler,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
	return s, nil
}

// Start starts the HTTP server in a goroutine.
func (s *HTTPServer) Start() {
	go func() {
		slog.Info("Starting chat API server", "addr", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", "error", err)
		}
	}()
}

// Stop stops the HTTP server gracefully.
func (s *HTTPServer) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler exposes the configured handler for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

type historyMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Message string           `json:"message"`
	History []historyMessage `json:"history"`
}

type chatResponse struct {
	Response  string                  `json:"response"`
	ToolCalls []tool.InvocationRecord `json:"tool_calls"`
}

func (s *HTTPServer) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		http.Error(w, "Missing required field: message", http.StatusBadRequest)
		return
	}

	history := make([]contract.Message, 0, len(req.History))
	for _, m := range req.History {
		if !contract.ValidHistoryRole(m.Role) {
			http.Error(w, fmt.Sprintf("Invalid history role: %q", m.Role), http.StatusBadRequest)
			return
		}
		history = append(history, contract.Message{Role: m.Role, Content: m.Content})
	}

	requestID := ulid.Make().String()
	ctx := logger.WithRequestID(r.Context(), requestID)
	slog.Info("Chat request received", "request_id", requestID, "history_len", len(history))

	answer, trace, err := s.runner.Run(ctx, history, req.Message)
	if err != nil {
		slog.Error("Chat request failed", "request_id", requestID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if trace == nil {
		trace = []tool.InvocationRecord{}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(chatResponse{Response: answer, ToolCalls: trace}); err != nil {
		slog.Error("Failed to encode chat response", "request_id", requestID, "error", err)
	}
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok","service":"anfora"}`))
}
