// Package gateway exposes the webhook HTTP surface: inbound message intake,
// health, and metrics.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jarbasai/jarbas/internal/debounce"
	"github.com/jarbasai/jarbas/internal/media"
	"github.com/jarbasai/jarbas/internal/observability"
)

const maxWebhookBody = 1 << 20 // 1 MiB

// Normalizer converts a webhook envelope into an inbound event.
type Normalizer interface {
	Normalize(ctx context.Context, env media.Envelope) (media.Inbound, error)
}

// Authorizer decides whether a sender may use the assistant.
type Authorizer interface {
	Permit(ctx context.Context, senderID string) bool
}

// Enqueuer buffers a normalized fragment for debouncing.
type Enqueuer interface {
	Enqueue(ctx context.Context, userKey, fragment string) error
}

// Options configures the gateway server.
type Options struct {
	ListenAddr string
	Normalizer Normalizer
	Authorizer Authorizer
	Enqueuer   Enqueuer

	// Gatherer backs the /metrics endpoint. Defaults to the global registry.
	Gatherer prometheus.Gatherer

	Metrics *observability.Metrics
	Logger  *slog.Logger
}

// Server is the webhook HTTP server.
type Server struct {
	httpServer *http.Server
	normalizer Normalizer
	authorizer Authorizer
	enqueuer   Enqueuer
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// New creates the gateway server and its routes.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		normalizer: opts.Normalizer,
		authorizer: opts.Authorizer,
		enqueuer:   opts.Enqueuer,
		metrics:    opts.Metrics,
		logger:     logger.With("component", "gateway"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhook/evolution", s.handleWebhook)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	s.httpServer = &http.Server{
		Addr:              opts.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the server's HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe blocks serving HTTP until Shutdown or a listener error.
func (s *Server) ListenAndServe() error {
	s.logger.Info("gateway listening", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests until the context expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		s.respond(w, http.StatusBadRequest, "error", "unreadable body")
		return
	}

	env, err := media.ParseEnvelope(body)
	if err != nil {
		s.count("unknown", "error")
		s.respond(w, http.StatusBadRequest, "error", "malformed envelope")
		return
	}

	inbound, err := s.normalizer.Normalize(r.Context(), env)
	if err != nil {
		s.logger.Error("normalization failed", "user_key", inbound.UserKey, "kind", inbound.Kind, "error", err)
		s.count(string(inbound.Kind), "error")
		s.respond(w, http.StatusInternalServerError, "error", "normalization failed")
		return
	}

	if inbound.Kind == media.KindIgnore {
		s.count(string(inbound.Kind), "ignored")
		s.respond(w, http.StatusOK, "ignored", "")
		return
	}

	if !s.authorizer.Permit(r.Context(), inbound.AuthID) {
		s.logger.Info("sender denied", "auth_id", inbound.AuthID, "user_key", inbound.UserKey)
		s.count(string(inbound.Kind), "denied")
		s.respond(w, http.StatusForbidden, "denied", "sender not authorized")
		return
	}

	if err := s.enqueuer.Enqueue(r.Context(), inbound.UserKey, inbound.Utterance); err != nil {
		if errors.Is(err, debounce.ErrShuttingDown) {
			// The provider will redeliver; acknowledging avoids a retry storm
			// against a process that is going away.
			s.count(string(inbound.Kind), "ignored")
			s.respond(w, http.StatusOK, "ignored", "shutting down")
			return
		}
		s.logger.Error("enqueue failed", "user_key", inbound.UserKey, "error", err)
		s.count(string(inbound.Kind), "error")
		s.respond(w, http.StatusInternalServerError, "error", "enqueue failed")
		return
	}

	s.count(string(inbound.Kind), "queued")
	s.respond(w, http.StatusOK, "queued", "")
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respond(w, http.StatusOK, "ok", "")
}

func (s *Server) respond(w http.ResponseWriter, code int, status, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	payload := map[string]string{"status": status}
	if detail != "" {
		payload["detail"] = detail
	}
	json.NewEncoder(w).Encode(payload)
}

func (s *Server) count(kind, outcome string) {
	if s.metrics != nil {
		s.metrics.InboundEvents.WithLabelValues(kind, outcome).Inc()
	}
}
