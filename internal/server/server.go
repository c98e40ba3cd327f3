package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/pagewright/pagewright/internal/auth"
	"github.com/pagewright/pagewright/internal/github"
	"github.com/pagewright/pagewright/internal/logging"
)

// GitHub webhook delivery headers.
const (
	headerEvent     = "X-GitHub-Event"
	headerSignature = "X-Hub-Signature-256"
	headerDelivery  = "X-GitHub-Delivery"
)

// maxBodyBytes caps webhook payload size. Push payloads are a few KB;
// anything near this limit is not a webhook we want.
const maxBodyBytes = 1 << 20

// Dispatcher receives verified, decoded webhook events. Implementations
// run the generation pipeline; the server invokes them asynchronously.
type Dispatcher interface {
	HandlePush(ctx context.Context, event github.PushEvent)
	HandleComment(ctx context.Context, event github.IssueCommentEvent)
}

// Config holds server configuration options.
type Config struct {
	// Addr is the listen address, e.g. ":8466".
	Addr string
	// Secret is the shared webhook secret. Empty disables signature
	// verification.
	Secret string
}

// Server is the webhook HTTP server.
type Server struct {
	addr       string
	secret     []byte
	dispatcher Dispatcher
	log        *logging.Logger

	mu       sync.RWMutex
	server   *http.Server
	listener net.Listener
	baseCtx  context.Context
	started  bool
}

// NewServer creates a new Server instance.
func NewServer(cfg *Config, dispatcher Dispatcher) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if cfg.Addr == "" {
		return nil, errors.New("listen address is required")
	}
	if dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}

	return &Server{
		addr:       cfg.Addr,
		secret:     []byte(cfg.Secret),
		dispatcher: dispatcher,
		log:        logging.Default().With("component", "server"),
	}, nil
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.addr
}

// Start starts the HTTP server.
// The server runs until Stop is called. Events dispatched to the
// Dispatcher carry ctx, so cancelling it aborts in-flight runs.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("server already started")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = listener

	mux := http.NewServeMux()
	s.setupRoutes(mux)

	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	s.baseCtx = ctx
	s.started = true
	s.mu.Unlock()

	if len(s.secret) == 0 {
		s.log.Warn("webhook secret not configured, signature verification disabled")
	}
	s.log.Info("listening", "addr", listener.Addr().String())

	// Run server (blocks until error or server closed)
	err = s.server.Serve(listener)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started || s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	s.started = false
	return nil
}

// ListenAddr returns the actual address the server is listening on.
// Useful when port 0 is used to get an available port.
// Returns empty string if not started.
func (s *Server) ListenAddr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// setupRoutes configures the HTTP routes.
func (s *Server) setupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/webhook", s.handleWebhook)
}

// dispatchCtx is the context handed to dispatched events. The request
// context dies when the delivery is acknowledged, so handlers get the
// server's lifetime context instead.
func (s *Server) dispatchCtx() context.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.baseCtx != nil {
		return s.baseCtx
	}
	return context.Background()
}

// handleHealth handles GET /healthz.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok"}`)
}

// handleWebhook handles POST /webhook. Deliveries with a bad signature
// are rejected; well-formed events the pipeline cares about are
// dispatched and acknowledged with 202.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	if len(s.secret) > 0 {
		ok, err := auth.Verify(s.secret, r.Header.Get(headerSignature), body)
		if err != nil || !ok {
			s.log.Warn("webhook rejected", "reason", "invalid signature",
				"delivery", r.Header.Get(headerDelivery), "error", err)
			http.Error(w, "invalid signature", http.StatusUnauthorized)
			return
		}
	}

	event := r.Header.Get(headerEvent)
	s.log.Info("webhook received", "event", event,
		"delivery", r.Header.Get(headerDelivery))

	switch event {
	case "ping":
		respondJSON(w, http.StatusOK, "pong")

	case "push":
		push, err := github.ParsePushEvent(bytes.NewReader(body))
		if err != nil {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}
		go s.dispatcher.HandlePush(s.dispatchCtx(), *push)
		respondJSON(w, http.StatusAccepted, "accepted")

	case "issue_comment":
		comment, err := github.ParseIssueCommentEvent(bytes.NewReader(body))
		if err != nil {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}
		if comment.Action != "created" {
			respondJSON(w, http.StatusOK, "ignored")
			return
		}
		go s.dispatcher.HandleComment(s.dispatchCtx(), *comment)
		respondJSON(w, http.StatusAccepted, "accepted")

	default:
		respondJSON(w, http.StatusOK, "ignored")
	}
}

func respondJSON(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	fmt.Fprintf(w, `{"status":%q}`, status)
}
