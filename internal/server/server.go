// Package server exposes a cleaning session over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dbsmedya/phoneclean/internal/cleaner"
	"github.com/dbsmedya/phoneclean/internal/config"
	"github.com/dbsmedya/phoneclean/internal/logger"
)

// multipartMemory is how much of an upload is held in memory before the
// rest spills to temporary files.
const multipartMemory = 32 << 20

// Cleaner is the part of cleaner.Session the handlers use.
type Cleaner interface {
	Clean(ctx context.Context, in cleaner.Input, req cleaner.Request) (*cleaner.RunResult, error)
	Preview(ctx context.Context, in cleaner.Input, req cleaner.Request, maxRows int) (*cleaner.PreviewResult, error)
	Inspect(ctx context.Context, in cleaner.Input) (*cleaner.Inspection, error)
	State() cleaner.State
}

// Server is the HTTP host of a cleaning session.
type Server struct {
	cleaner   Cleaner
	cfg       config.ServerConfig
	maxUpload int64
	logger    *logger.Logger
	router    *chi.Mux
	server    *http.Server
}

// NewServer creates a server for svc.
func NewServer(svc Cleaner, cfg *config.Config, log *logger.Logger) *Server {
	if log == nil {
		log = logger.NewDefault()
	}
	s := &Server{
		cleaner:   svc,
		cfg:       cfg.Server,
		maxUpload: cfg.Limits.MaxFileSize,
		logger:    log,
		router:    chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.router,
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Post("/clean", s.handleClean)
		r.Post("/preview", s.handlePreview)
		r.Post("/inspect", s.handleInspect)
	})
}

// Router returns the router, for tests and embedding.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start listens on the configured address until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Infof("Listening on %s", s.cfg.Addr())
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for active ones. Start
// returns nil once Shutdown has been called.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// requestLogger logs one line per request with the chi request ID.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.logger.Infow("HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// respondError logs err and replies with its user message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	msg := cleaner.UserMessage(err)
	status := statusFor(msg.Code)

	s.logger.Warnw("Request failed",
		"path", r.URL.Path,
		"status", status,
		"code", msg.Code,
		"error", err.Error(),
		"request_id", middleware.GetReqID(r.Context()),
	)
	writeJSON(w, status, ErrorResponse{Error: msg.Text, Code: msg.Code})
}

func statusFor(code string) int {
	switch code {
	case cleaner.CodeBusy:
		return http.StatusConflict
	case cleaner.CodeTooLarge:
		return http.StatusRequestEntityTooLarge
	case cleaner.CodeFormat:
		return http.StatusUnsupportedMediaType
	case cleaner.CodeCorrupt, cleaner.CodeEncrypted, cleaner.CodeEmptySheet,
		cleaner.CodeEmptySelection, cleaner.CodeColumn:
		return http.StatusUnprocessableEntity
	case cleaner.CodeCancelled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
