// Package api exposes the matching engine over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/clinic-matching-server/internal/domain"
	"github.com/clinic-matching-server/internal/history"
)

// Server represents the HTTP server.
type Server struct {
	cfg     *domain.Config
	logger  *logrus.Logger
	matcher domain.Matcher
	tests   domain.TestReader
	history history.Store
	health  func(ctx context.Context) error
	router  *gin.Engine
	server  *http.Server
}

// NewServer creates a new HTTP server instance. historyStore may be nil
// when the run history is disabled; healthCheck may be nil.
func NewServer(
	cfg *domain.Config,
	logger *logrus.Logger,
	matcher domain.Matcher,
	tests domain.TestReader,
	historyStore history.Store,
	healthCheck func(ctx context.Context) error,
) *Server {
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(requestIDMiddleware())
	router.Use(rateLimitMiddleware(cfg.Server.RateLimit, cfg.Server.RateBurst))

	server := &Server{
		cfg:     cfg,
		logger:  logger,
		matcher: matcher,
		tests:   tests,
		history: historyStore,
		health:  healthCheck,
		router:  router,
	}
	server.setupRoutes()

	return server
}

// Router exposes the gin engine for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.cfg.Server
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes.
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/patients/:id/matching", s.handlePatientMatching)
		v1.GET("/patients/:id/matching/history", s.handleMatchingHistory)
		v1.GET("/tests/:code/questions", s.handleTestQuestions)
	}
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(c *gin.Context) {
	status := "healthy"
	code := http.StatusOK
	if s.health != nil {
		if err := s.health(c.Request.Context()); err != nil {
			status = "unhealthy"
			code = http.StatusServiceUnavailable
			s.logger.WithError(err).Warn("Health check failed")
		}
	}

	c.JSON(code, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC(),
	})
}

// handlePatientMatching returns the ranked psychologist list for a
// patient.
func (s *Server) handlePatientMatching(c *gin.Context) {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid patient id"})
		return
	}

	results, err := s.matcher.ComputeMatching(c.Request.Context(), patientID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "patient not found"})
		case errors.Is(err, domain.ErrInvalidRole):
			c.JSON(http.StatusBadRequest, gin.H{"error": "user is not a patient"})
		default:
			s.logger.WithError(err).WithField("patient_id", patientID).Error("Matching computation failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "matching computation failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"patient_id": patientID,
		"results":    results,
	})
}

// handleMatchingHistory returns past match runs for a patient, newest
// first.
func (s *Server) handleMatchingHistory(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "match history is disabled"})
		return
	}

	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid patient id"})
		return
	}

	limit := parseQueryInt(c, "limit", 20)
	offset := parseQueryInt(c, "offset", 0)
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	runs, err := s.history.ListByPatient(c.Request.Context(), patientID.String(), limit, offset)
	if err != nil {
		s.logger.WithError(err).WithField("patient_id", patientID).Error("Failed to list match history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list match history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"patient_id": patientID,
		"runs":       runs,
	})
}

// handleTestQuestions returns a questionnaire's question definitions.
func (s *Server) handleTestQuestions(c *gin.Context) {
	code := domain.TestCode(c.Param("code"))

	questions, err := s.tests.ListQuestionsByCode(c.Request.Context(), code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "test not found"})
			return
		}
		s.logger.WithError(err).WithField("test_code", code).Error("Failed to list test questions")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list test questions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"test_code": code,
		"questions": questions,
	})
}

func parseQueryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
