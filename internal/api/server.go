// Package api exposes the HTTP surface: the platform webhook, the
// operator log endpoints, and the liveness root.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/finchdesk/finch/internal/chatlog"
)

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger      *slog.Logger
	Agent       Responder      // Required
	Sender      Sender         // Required
	Logs        *chatlog.Store // Required
	BotUserID   string         // Required: bot-authored webhooks are skipped
	Version     string         // Reported by GET /
	CORSOrigins []string       // Allowed origins for the operator dashboard
}

// Server is the JSON API HTTP server.
type Server struct {
	mux   *http.ServeMux
	sends *sync.WaitGroup
}

// NewServer creates a server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Agent == nil {
		return nil, errors.New("agent is required")
	}
	if cfg.Sender == nil {
		return nil, errors.New("platform sender is required")
	}
	if cfg.Logs == nil {
		return nil, errors.New("chat log store is required")
	}
	if cfg.BotUserID == "" {
		return nil, errors.New("bot user ID is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	sends := &sync.WaitGroup{}

	wh := &webhookHandler{
		agent:     cfg.Agent,
		sender:    cfg.Sender,
		logs:      cfg.Logs,
		botUserID: cfg.BotUserID,
		logger:    logger,
		sends:     sends,
	}
	lh := &logsHandler{store: cfg.Logs, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhook", wh.receive)
	mux.HandleFunc("GET /api/logs", lh.list)
	mux.HandleFunc("PUT /api/logs/{id}/feedback", lh.feedback)

	// Build middleware stack (outermost first):
	//   Recovery → Logging → CORS → Routes
	var handler http.Handler = mux
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = recoveryMiddleware(logger)(handler)

	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w)
		handler.ServeHTTP(w, r)
	})

	// Top-level mux keeps the liveness root outside the middleware stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /{$}", status(cfg.Version))
	topMux.Handle("/", final)

	return &Server{mux: topMux, sends: sends}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Drain blocks until all in-flight outbound replies finish. Call after
// the HTTP listener has shut down.
func (s *Server) Drain() {
	s.sends.Wait()
}
