// Package http serves a filter over HTTP.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/fwojciec/cdbf"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	// MaxBatchSize is the largest number of keys accepted by one batch insert.
	MaxBatchSize = 10000

	// MaxBatchBytes is the largest batch request body accepted.
	MaxBatchBytes = 4 << 20
)

// Server exposes membership checks and inserts on a filter. The filter
// must be safe for concurrent use.
type Server struct {
	filter  cdbf.Filter
	logger  *slog.Logger
	router  chi.Router
	started time.Time
}

// NewServer returns a server for filter.
func NewServer(filter cdbf.Filter, logger *slog.Logger) *Server {
	s := &Server{
		filter:  filter,
		logger:  logger,
		started: time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(escapedRoutePath)

	r.Get("/health", s.handleHealth)
	r.Get("/stats", s.handleStats)

	r.Route("/keys", func(r chi.Router) {
		r.Post("/", s.handleInsertBatch)
		r.Get("/{key}", s.handleContains)
		r.Put("/{key}", s.handleInsert)
	})

	s.router = r
}

// KeyResult reports the membership of one key.
type KeyResult struct {
	Key  string `json:"key"`
	Seen bool   `json:"seen"`
}

// Stats describes the served filter.
type Stats struct {
	Count    uint    `json:"count"`
	Capacity uint    `json:"capacity"`
	Uptime   float64 `json:"uptime"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Stats{
		Count:    s.filter.Count(),
		Capacity: s.filter.Capacity(),
		Uptime:   time.Since(s.started).Seconds(),
	})
}

func (s *Server) handleContains(w http.ResponseWriter, r *http.Request) {
	key, err := keyParam(r)
	if err != nil {
		s.error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, KeyResult{Key: key, Seen: s.filter.Contains([]byte(key))})
}

func (s *Server) handleInsert(w http.ResponseWriter, r *http.Request) {
	key, err := keyParam(r)
	if err != nil {
		s.error(w, r, err)
		return
	}
	seen, err := s.filter.Insert([]byte(key))
	if err != nil {
		s.error(w, r, err)
		return
	}
	status := http.StatusCreated
	if seen {
		status = http.StatusOK
	}
	writeJSON(w, status, KeyResult{Key: key, Seen: seen})
}

func (s *Server) handleInsertBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Keys []string `json:"keys"`
	}
	r.Body = http.MaxBytesReader(w, r.Body, MaxBatchBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "request body too large"})
			return
		}
		s.error(w, r, cdbf.Errorf(cdbf.EINVALID, "invalid json"))
		return
	}
	if len(req.Keys) > MaxBatchSize {
		s.error(w, r, cdbf.Errorf(cdbf.EINVALID, "batch of %d keys exceeds maximum %d", len(req.Keys), MaxBatchSize))
		return
	}

	results := make([]KeyResult, 0, len(req.Keys))
	for _, key := range req.Keys {
		seen, err := s.filter.Insert([]byte(key))
		if err != nil {
			s.error(w, r, err)
			return
		}
		results = append(results, KeyResult{Key: key, Seen: seen})
	}
	writeJSON(w, http.StatusOK, map[string][]KeyResult{"results": results})
}

// error writes err as a JSON error response. Internal errors are logged
// and their message is hidden from the client.
func (s *Server) error(w http.ResponseWriter, r *http.Request, err error) {
	code := cdbf.ErrorCode(err)
	if code == cdbf.EINTERNAL {
		s.logger.Error("http error", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	writeJSON(w, errorStatus(code), map[string]string{"error": cdbf.ErrorMessage(err)})
}

// errorStatus maps application error codes to HTTP status codes.
func errorStatus(code string) int {
	switch code {
	case cdbf.EINVALID:
		return http.StatusBadRequest
	case cdbf.ENOTFOUND:
		return http.StatusNotFound
	case cdbf.ECAPACITY:
		return http.StatusInsufficientStorage
	}
	return http.StatusInternalServerError
}

// escapedRoutePath routes on the escaped path so that keys containing
// slashes or percent signs reach handlers intact.
func escapedRoutePath(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			rctx.RoutePath = r.URL.EscapedPath()
		}
		next.ServeHTTP(w, r)
	})
}

func keyParam(r *http.Request) (string, error) {
	key, err := url.PathUnescape(chi.URLParam(r, "key"))
	if err != nil || key == "" {
		return "", cdbf.Errorf(cdbf.EINVALID, "invalid key")
	}
	return key, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
