package server

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cyp0633/schedcore/server/auth"
	"github.com/cyp0633/schedcore/server/schedule"
)

const (
	// HTTP headers
	headerContentType = "Content-Type"
	headerETag        = "ETag"

	// MIME types
	mimeTypeJSON     = "application/json"
	mimeTypeCalendar = "text/calendar; charset=utf-8"
	mimeTypeXCal     = "application/calendar+xml; charset=utf-8"

	maxBodyBytes = 1 << 20
)

// Options configures a Server.
type Options struct {
	// Logger receives request and error logs. Nil discards them.
	Logger *slog.Logger
	// Auth controls owner resolution. /health is always public.
	Auth auth.Config
	// Now stamps exports. Nil uses time.Now.
	Now func() time.Time
}

// Server exposes a schedule.Service over HTTP.
type Server struct {
	service *schedule.Service
	logger  *slog.Logger
	now     func() time.Time
	handler http.Handler
}

// New creates the HTTP front end for service.
func New(service *schedule.Service, opts Options) (*Server, error) {
	if service == nil {
		return nil, fmt.Errorf("service is required")
	}

	s := &Server{
		service: service,
		logger:  opts.Logger,
		now:     opts.Now,
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if s.now == nil {
		s.now = time.Now
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /events", s.handleList)
	mux.HandleFunc("POST /events", s.handleCreate)
	mux.HandleFunc("POST /events/conflicts", s.handleConflicts)
	mux.HandleFunc("GET /events/{id}", s.handleGet)
	mux.HandleFunc("GET /events/{id}/ics", s.handleICS)
	mux.HandleFunc("GET /events/{id}/xcal", s.handleXCal)
	mux.HandleFunc("PUT /events/{id}", s.handleUpdate)
	mux.HandleFunc("DELETE /events/{id}", s.handleDelete)

	authCfg := opts.Auth
	authCfg.Public = append(authCfg.Public, "/health")
	if authCfg.Logger == nil {
		authCfg.Logger = s.logger
	}
	s.handler = s.logRequests(auth.Middleware(authCfg)(mux))
	return s, nil
}

// ServeHTTP implements http.Handler interface
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// statusRecorder remembers the status code written through it.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}
