package web

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/kozaktomas/face-attendance/internal/metrics"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
)

// Deps are the stores and services the dashboard reads and writes
type Deps struct {
	Employees  database.EmployeeWriter
	Attendance database.AttendanceStore
	Users      database.UserStore
	Sessions   database.SessionStore // optional, sessions are memory-only without it
	Corpus     *database.Corpus
	Matcher    *facematch.Matcher
	Schedule   *attendance.Schedule
	Metrics    *metrics.Recorder // optional
}

// Server represents the web server
type Server struct {
	config         *config.Config
	deps           Deps
	router         *chi.Mux
	httpServer     *http.Server
	sessionManager *middleware.SessionManager
}

// NewServer creates the dashboard server
func NewServer(cfg *config.Config, port int, host string, deps Deps) (*Server, error) {
	if deps.Employees == nil || deps.Attendance == nil || deps.Users == nil {
		return nil, errors.New("employees, attendance and users stores are required")
	}
	if deps.Corpus == nil {
		deps.Corpus = database.NewCorpus(cfg.Corpus.Path)
	}
	if deps.Matcher == nil {
		m, err := facematch.NewMatcher(cfg.Matching.Metric, cfg.Matching.Threshold)
		if err != nil {
			return nil, err
		}
		deps.Matcher = m
	}
	if deps.Schedule == nil {
		s, err := attendance.NewSchedule(cfg.Schedule)
		if err != nil {
			return nil, fmt.Errorf("invalid schedule: %w", err)
		}
		deps.Schedule = s
	}

	r := chi.NewRouter()
	s := &Server{
		config:         cfg,
		deps:           deps,
		router:         r,
		sessionManager: middleware.NewSessionManager(cfg.Dashboard.SessionSecret, deps.Sessions),
	}

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))
	r.Use(middleware.CORS(middleware.ParseOrigins(cfg.Dashboard.AllowedOrigins)))
	r.Use(middleware.SecurityHeaders())
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
	}

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Printf("Starting dashboard on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down dashboard...")

	s.sessionManager.Stop()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Sessions returns the session manager
func (s *Server) Sessions() *middleware.SessionManager {
	return s.sessionManager
}
