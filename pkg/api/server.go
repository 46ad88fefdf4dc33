package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/impactguard/impactguard/pkg/assessment"
	"github.com/impactguard/impactguard/pkg/catalog"
	"github.com/impactguard/impactguard/pkg/citation"
	"github.com/impactguard/impactguard/pkg/config"
	"github.com/impactguard/impactguard/pkg/metrics"
	"github.com/impactguard/impactguard/pkg/session"
)

const sessionHeader = "X-Session-ID"

// Server is the web dashboard: session-scoped state, the assessment runner
// and all analysis tooling behind a JSON API.
type Server struct {
	config    config.Config
	router    *gin.Engine
	logger    *logrus.Logger
	sessions  *session.Store
	catalog   *catalog.Catalog
	runner    *assessment.Runner
	citations *citation.Client
	metrics   *metrics.Metrics
}

// NewServer creates a dashboard server from the given configuration.
func NewServer(cfg config.Config, logger *logrus.Logger) (*Server, error) {
	if logger == nil {
		logger = logrus.New()
	}
	if cfg.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	cat, err := catalog.New(cfg)
	if err != nil {
		return nil, err
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	opts := assessment.OptionsFromConfig(cfg)
	opts.Logger = logger

	s := &Server{
		config:    cfg,
		router:    router,
		logger:    logger,
		sessions:  session.NewStore(logger),
		catalog:   cat,
		runner:    assessment.NewRunner(opts),
		citations: citation.NewClient(cfg, logger),
		metrics:   metrics.New(),
	}

	s.setupRoutes()
	return s, nil
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.metrics.Middleware())

	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	api := s.router.Group("/api")
	api.Use(s.sessionMiddleware())
	{
		api.GET("/vectors", s.handleListVectors)

		api.GET("/targets", s.handleListTargets)
		api.POST("/targets", s.handleAddTarget)
		api.DELETE("/targets/:name", s.handleDeleteTarget)

		api.POST("/assessment/start", s.handleStartAssessment)
		api.POST("/assessment/stop", s.handleStopAssessment)
		api.GET("/assessment/status", s.handleAssessmentStatus)
		api.GET("/assessment/result", s.handleAssessmentResult)

		api.POST("/import", s.handleImportFile)
		api.POST("/insights/import", s.handleImportInsights)
		api.GET("/insights", s.handleListInsights)

		api.POST("/bias/analyze", s.handleAnalyzeBias)
		api.GET("/bias/:dataset", s.handleGetBias)

		api.POST("/carbon/start", s.handleCarbonStart)
		api.POST("/carbon/stop", s.handleCarbonStop)
		api.GET("/carbon/report", s.handleCarbonReport)

		api.GET("/citations/search", s.handleCitationSearch)
		api.POST("/citations/validate", s.handleCitationValidate)
		api.POST("/citations/bibliography", s.handleAddCitation)
		api.GET("/citations/bibliography", s.handleBibliography)

		api.POST("/reports", s.handleGenerateReport)
		api.GET("/reports", s.handleListReports)
		api.GET("/reports/:id", s.handleGetReport)

		api.GET("/errors", s.handleGetError)
		api.DELETE("/errors", s.handleDismissError)

		if s.config.EnableExports {
			api.GET("/export/report/:id", s.handleExportReport)
			api.GET("/export/bibliography", s.handleExportBibliography)
			api.GET("/export/insights", s.handleExportInsights)
		}
	}
}

// sessionMiddleware resolves the caller's session, minting an ID when absent.
// The session ID is echoed back so clients can stick to it.
func (s *Server) sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(sessionHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(sessionHeader, id)
		c.Set("session", s.sessions.Get(id))
		c.Next()
	}
}

func (s *Server) session(c *gin.Context) *session.Session {
	return c.MustGet("session").(*session.Session)
}

// Start starts the dashboard server and the session janitor.
func (s *Server) Start() error {
	go s.purgeLoop(context.Background())
	s.logger.Infof("Starting dashboard server on port %s", s.config.DashboardPort)
	return s.router.Run(":" + s.config.DashboardPort)
}

// Router exposes the underlying handler, used by tests and embedding callers.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) purgeLoop(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sessions.Purge(s.config.SessionMaxIdle)
		}
	}
}
