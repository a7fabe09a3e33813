package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"panelsmith/internal/config"
	"panelsmith/internal/job"
	"panelsmith/internal/logging"
	"panelsmith/internal/services"
	"panelsmith/internal/session"
	"panelsmith/internal/workflow"
)

// maxRequestBody caps JSON request bodies. Story submissions dominate and
// ten megabytes of prose is far beyond anything the pipeline can render.
const maxRequestBody = 10 << 20

// Server owns the HTTP listener and routes requests to the stores and the
// workflow manager.
type Server struct {
	cfg      *config.Config
	logger   *slog.Logger
	sessions *session.Store
	jobs     *job.Store
	workflow *workflow.Manager
	router   chi.Router

	listener net.Listener
	httpSrv  *http.Server
}

// NewServer wires the router. Start must be called before the server
// accepts connections.
func NewServer(cfg *config.Config, sessions *session.Store, jobs *job.Store, manager *workflow.Manager, logger *slog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "api"),
		sessions: sessions,
		jobs:     jobs,
		workflow: manager,
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	router.Use(s.requestContext)

	router.Route("/api/v1", func(r chi.Router) {
		r.Post("/sessions", s.handleCreateSession)
		r.Post("/sessions/{token}/credentials", s.handleAttachCredentials)

		r.Route("/jobs", func(r chi.Router) {
			r.Post("/", s.handleSubmitJob)
			r.Get("/", s.handleListJobs)
			r.Get("/{token}", s.handleJobStatus)
			r.Get("/{token}/artifact", s.handleArtifact)
			r.Post("/{token}/cancel", s.handleCancelJob)
		})

		r.Get("/health", s.handleHealth)
	})

	s.router = router
	s.httpSrv = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Router exposes the handler tree for tests and embedding.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start binds the configured address and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	bind := strings.TrimSpace(s.cfg.API.Bind)
	listener, err := net.Listen("tcp", bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound address, or empty before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down, draining in-flight requests briefly.
func (s *Server) Stop() {
	if s.httpSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// requestContext threads the chi request ID into the service context so
// handler logs correlate with the middleware's header.
func (s *Server) requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if id := middleware.GetReqID(ctx); id != "" {
			ctx = services.WithRequestID(ctx, id)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

// writeError emits a structured rejection with an explicit code.
func (s *Server) writeError(ctx context.Context, w http.ResponseWriter, code, message string) {
	logging.WithContext(ctx, s.logger).Debug("request rejected",
		logging.String("code", code),
		logging.String("reason", message))
	s.writeJSON(w, statusForCode(code), ErrorResponse{Error: ErrorBody{Code: code, Message: message}})
}

// writeServiceError classifies err by its sentinel marker and emits it.
func (s *Server) writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	s.writeError(ctx, w, classify(err), err.Error())
}

// decodeJSON parses a request body into dst. Errors are validation
// failures; the body size cap guards the daemon against runaway posts.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(dst); err != nil {
		return services.Wrap(services.ErrValidation, "api", "decode request", "invalid JSON body", err)
	}
	return nil
}
