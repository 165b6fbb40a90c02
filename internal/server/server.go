// Package server exposes searches over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lepinkainen/catalink/internal/search"
)

// RequestIDHeader carries the per-request id in both directions.
const RequestIDHeader = "X-Request-ID"

type ctxKey struct{}

// Searcher runs one search strategy.
type Searcher interface {
	Search(ctx context.Context, req search.Request) (*search.Response, error)
}

// Server routes HTTP requests to the configured searchers.
type Server struct {
	searchers map[search.Strategy]Searcher
	metrics   http.Handler
	mux       *http.ServeMux
}

// New builds the router. metrics may be nil to disable /metrics.
func New(searchers map[search.Strategy]Searcher, metrics http.Handler) *Server {
	s := &Server{
		searchers: searchers,
		metrics:   metrics,
		mux:       http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /search", s.handleSearch)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	if metrics != nil {
		s.mux.Handle("GET /metrics", metrics)
	}
	return s
}

// ServeHTTP tags the request with an id and dispatches it.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get(RequestIDHeader)
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}
	w.Header().Set(RequestIDHeader, id)

	start := time.Now()
	s.mux.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	slog.Debug("HTTP request", "id", id, "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
}

// RequestID returns the id ServeHTTP attached to ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	strategy, err := search.ParseStrategy(q.Get("strategy"))
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	searcher, ok := s.searchers[strategy]
	if !ok {
		s.writeError(w, r, http.StatusNotFound, errors.New("strategy not configured: "+strategy.String()))
		return
	}
	query := strings.TrimSpace(q.Get("q"))
	if query == "" {
		s.writeError(w, r, http.StatusBadRequest, errors.New("missing q parameter"))
		return
	}

	start, err := intParam(q.Get("start"), 0)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	perPage, err := intParam(q.Get("per_page"), 0)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	resp, err := searcher.Search(r.Context(), search.Request{Query: query, Start: start, PerPage: perPage})
	if err != nil {
		slog.Warn("Search failed", "id", RequestID(r.Context()), "strategy", strategy, "error", err)
		s.writeError(w, r, http.StatusBadGateway, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	writeJSON(w, status, errorBody{Error: err.Error(), RequestID: RequestID(r.Context())})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to write response", "error", err)
	}
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New("invalid integer parameter: " + raw)
	}
	return n, nil
}
