// Package api exposes the workflow operations over a thin gin HTTP surface.
// Routes map 1:1 onto service operations; no business logic lives here.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pa-workflow-server/internal/domain"
	"github.com/pa-workflow-server/internal/middleware"
	"github.com/pa-workflow-server/internal/service"
)

// Server represents the HTTP server
type Server struct {
	cfg          *domain.Config
	coverage     *service.CoverageService
	retriever    *service.PolicyRetriever
	eligibility  *service.EligibilityService
	forms        *service.FormService
	orchestrator *service.Orchestrator
	log          *logrus.Logger
	router       *gin.Engine
	server       *http.Server
}

// NewServer creates a new HTTP server instance
func NewServer(
	cfg *domain.Config,
	coverage *service.CoverageService,
	retriever *service.PolicyRetriever,
	eligibility *service.EligibilityService,
	forms *service.FormService,
	orchestrator *service.Orchestrator,
	logger *logrus.Logger,
) *Server {
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.AuditLogger())
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RateLimit(50, 100))

	server := &Server{
		cfg:          cfg,
		coverage:     coverage,
		retriever:    retriever,
		eligibility:  eligibility,
		forms:        forms,
		orchestrator: orchestrator,
		log:          logger,
		router:       router,
	}

	server.setupRoutes()

	return server
}

// Start starts the HTTP server and blocks until the context is cancelled,
// then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	v1.Use(middleware.APIKeyAuth(s.cfg.Auth.APIKey))
	{
		v1.POST("/coverage/check", s.handleCheckCoverage)
		v1.POST("/coverage/check-plan", s.handleCheckCoverageByPlan)
		v1.GET("/coverage/plans", s.handleListPlans)
		v1.GET("/coverage/plans/:plan/drugs", s.handleListDrugs)
		v1.GET("/coverage/plans/:plan/alternatives", s.handleListAlternatives)
		v1.GET("/patients/:id/insurance", s.handleInsuranceInfo)

		v1.GET("/policies/search", s.handlePolicySearch)
		v1.GET("/policies/stats", s.handlePolicyStats)
		v1.POST("/policies/documents", s.handleIndexPolicyDocument)

		v1.POST("/eligibility/check", s.handleCheckEligibility)
		v1.POST("/pa-form/generate", s.handleGeneratePAForm)

		v1.POST("/workflow/process", s.handleProcessPrescription)
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	stats, err := s.retriever.Stats(c.Request.Context())

	payload := gin.H{
		"status":    "healthy",
		"timestamp": time.Now(),
		"version":   "1.0.0",
	}
	if err == nil {
		payload["policy_index"] = stats
	}

	c.JSON(http.StatusOK, payload)
}
