// Package server exposes the webhook ingress: a liveness route and the
// Telegram webhook endpoint that validates, deduplicates and hands off
// deliveries without blocking on their processing.
package server

import (
	"context"
	"crypto/hmac"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"picommander/pkg/bus"
	"picommander/pkg/dedup"
)

// secretHeader is echoed by Telegram on every webhook delivery when a
// secret token was supplied at registration time.
const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

const maxBodyBytes = 1 << 20

// Dispatcher accepts a parsed update for asynchronous processing.
type Dispatcher interface {
	Publish(u bus.InboundUpdate) bool
}

// Options configure the ingress.
type Options struct {
	// Addr is the listen address, e.g. ":5000".
	Addr string

	// SecretToken, when non-empty, must match the secret header on every
	// webhook delivery.
	SecretToken string

	// ShutdownGrace bounds how long in-flight requests may run after stop.
	ShutdownGrace time.Duration
}

// Server is the HTTP ingress. Start and Stop own the listener lifecycle;
// Stop is safe to call even when Start failed.
type Server struct {
	opts   Options
	window *dedup.Window
	bridge Dispatcher
	log    *slog.Logger

	router chi.Router
	http   *http.Server
	ln     net.Listener
}

// New builds the ingress around an already-constructed dedup window and
// dispatcher. Nothing is shared implicitly.
func New(opts Options, window *dedup.Window, bridge Dispatcher, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	if opts.ShutdownGrace <= 0 {
		opts.ShutdownGrace = 5 * time.Second
	}

	s := &Server{
		opts:   opts,
		window: window,
		bridge: bridge,
		log:    log,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/", s.handleHealth)
	r.Post("/webhook", s.handleWebhook)
	s.router = r

	s.http = &http.Server{
		Addr:              opts.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start binds the listener and serves in the background. Returns once the
// port is bound so callers know webhook traffic can arrive.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.log.Info("http ingress listening", "addr", ln.Addr().String())

	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http server terminated", "error", err)
		}
	}()
	return nil
}

// Stop closes the listener to new connections and gives in-flight requests
// the configured grace period before force-closing them.
func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownGrace)
	defer cancel()

	if err := s.http.Shutdown(ctx); err != nil {
		s.log.Warn("graceful shutdown exceeded grace period, closing connections", "error", err)
		_ = s.http.Close()
	}
}

// handleHealth answers before any dependent subsystem is consulted.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondOK(w)
}

// handleWebhook validates one delivery, short-circuiting at the first
// failure: content type, shared secret, JSON shape, deduplication. The 200
// goes out as soon as the update is queued; processing never holds up the
// response.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if !isJSONContent(r.Header.Get("Content-Type")) {
		http.Error(w, "Unsupported Media Type", http.StatusUnsupportedMediaType)
		return
	}

	if s.opts.SecretToken != "" {
		provided := r.Header.Get(secretHeader)
		if !hmac.Equal([]byte(provided), []byte(s.opts.SecretToken)) {
			s.log.Warn("webhook rejected: secret token mismatch")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	// Stage one: the payload must be a JSON object.
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil || payload == nil {
		s.log.Debug("webhook rejected: body is not a JSON object", "error", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	// Stage two: extract update_id when present and numeric. Payloads
	// without one are never deduplicated and go straight to dispatch.
	var updateID int64
	hasID := false
	if raw, ok := payload["update_id"]; ok {
		if err := json.Unmarshal(raw, &updateID); err == nil {
			hasID = true
		}
	}

	if hasID && !s.window.CheckAndRecord(updateID) {
		s.log.Debug("duplicate update ignored", "update_id", updateID)
		s.respondOK(w)
		return
	}

	var upd tgbotapi.Update
	if err := json.Unmarshal(body, &upd); err != nil {
		// Deliveries we cannot type are acknowledged and forgotten; the
		// platform would just redeliver otherwise.
		s.log.Debug("update payload not parseable, acknowledged without dispatch", "error", err)
		s.respondOK(w)
		return
	}

	s.bridge.Publish(bus.InboundUpdate{
		TraceID:    traceID(r),
		UpdateID:   updateID,
		Update:     upd,
		ReceivedAt: time.Now(),
	})
	s.respondOK(w)
}

func (s *Server) respondOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func isJSONContent(ct string) bool {
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

func traceID(r *http.Request) string {
	if id := middleware.GetReqID(r.Context()); id != "" {
		return id
	}
	return uuid.NewString()
}
