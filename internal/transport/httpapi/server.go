// Package httpapi serves the simulator over HTTP.
//
// Endpoints:
//
//	POST /v1/simulate      simulate request document in, response document out
//	POST /v1/connections   connections request document in, response out
//	GET  /v1/stream        websocket; one request in, one message per diff out
//	GET  /v1/runs          journaled runs, most recent first (journal only)
//	GET  /v1/runs/{id}     one journaled run with its diff log (journal only)
//	GET  /healthz          liveness
//
// Every failure is answered with the protocol error document. Requests are
// independent: each runs on its own engine with no shared mutable state.
package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/roach88/redstonesim/internal/api"
	"github.com/roach88/redstonesim/internal/protocol"
	"github.com/roach88/redstonesim/internal/recorder"
	"github.com/roach88/redstonesim/internal/simerr"
	"github.com/roach88/redstonesim/internal/store"
)

// DefaultMaxBodyBytes bounds request documents.
const DefaultMaxBodyBytes = 8 << 20

// RunIDHeader carries the journal ID of a simulate call.
const RunIDHeader = "X-Run-Id"

// Config configures a Server.
type Config struct {
	// Service runs the facade operations. Nil selects the embedded rulesets.
	Service *api.Service

	// Journal records every successful simulate call when set.
	Journal *store.Store

	// Logger receives one line per request. Nil selects slog.Default().
	Logger *slog.Logger

	// MaxBodyBytes bounds request bodies and stream requests. Zero selects
	// DefaultMaxBodyBytes.
	MaxBodyBytes int64
}

// Server is the HTTP front end.
type Server struct {
	svc      *api.Service
	journal  *store.Store
	logger   *slog.Logger
	maxBody  int64
	upgrader websocket.Upgrader
}

// New creates a server.
func New(cfg Config) *Server {
	s := &Server{
		svc:     cfg.Service,
		journal: cfg.Journal,
		logger:  cfg.Logger,
		maxBody: cfg.MaxBodyBytes,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	if s.svc == nil {
		s.svc = api.New(nil)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.maxBody <= 0 {
		s.maxBody = DefaultMaxBodyBytes
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/simulate", s.handleSimulate)
	mux.HandleFunc("POST /v1/connections", s.handleConnections)
	mux.HandleFunc("GET /v1/stream", s.handleStream)
	mux.HandleFunc("GET /v1/runs", s.handleListRuns)
	mux.HandleFunc("GET /v1/runs/{id}", s.handleGetRun)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok"))
	})
	return s.logRequests(mux)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	s.logger.Info("serving", "addr", ln.Addr().String())

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	raw, ok := s.readBody(w, r)
	if !ok {
		return
	}

	req, res, err := s.svc.Run(r.Context(), raw)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if s.journal != nil {
		id, err := s.journal.WriteRun(r.Context(), req, res)
		if err != nil {
			s.logger.Error("journal write failed", "error", err)
			s.writeError(w, err)
			return
		}
		w.Header().Set(RunIDHeader, id)
	}
	writeJSON(w, http.StatusOK, protocol.NewSimulateResponse(res))
}

func (s *Server) handleConnections(w http.ResponseWriter, r *http.Request) {
	raw, ok := s.readBody(w, r)
	if !ok {
		return
	}
	out, err := s.svc.Connections(raw)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

// runDetail is a journaled run with its diff log.
type runDetail struct {
	store.Run
	Diffs []recorder.Diff `json:"diffs"`
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeJSON(w, http.StatusNotFound, errorBody("NOT_FOUND", "no run journal configured"))
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorBody(string(simerr.CodeValidation), "limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	runs, err := s.journal.ListRuns(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeJSON(w, http.StatusNotFound, errorBody("NOT_FOUND", "no run journal configured"))
		return
	}
	id := r.PathValue("id")
	run, err := s.journal.ReadRun(r.Context(), id)
	if errors.Is(err, store.ErrRunNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody("NOT_FOUND", err.Error()))
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	diffs, err := s.journal.ReadDiffs(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, runDetail{Run: run, Diffs: diffs})
}

// readBody reads a bounded request body. On failure the response has been
// written.
func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err == nil {
		return raw, true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeJSON(w, http.StatusRequestEntityTooLarge,
			errorBody(string(simerr.CodeParse), fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit)))
		return nil, false
	}
	s.writeError(w, simerr.Parse(err, "failed to read request body"))
	return nil, false
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, protocol.NewErrorResponse(err))
}

// statusFor maps an error to an HTTP status.
func statusFor(err error) int {
	switch simerr.CodeOf(err) {
	case simerr.CodeParse, simerr.CodeValidation, simerr.CodeUnsupportedEdition:
		return http.StatusBadRequest
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func errorBody(code, message string) protocol.ErrorResponse {
	return protocol.ErrorResponse{Error: protocol.ErrorBody{Code: code, Message: message}}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to encode", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// statusRecorder captures the status code for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets websocket upgrades take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"elapsed", time.Since(start),
		)
	})
}
