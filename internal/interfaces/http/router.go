// Package http assembles the gin route tree and the HTTP server lifecycle
// around it.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/verilex/policyaudit/internal/config"
	"github.com/verilex/policyaudit/internal/infrastructure/monitoring/logging"
	"github.com/verilex/policyaudit/internal/interfaces/http/handlers"
	"github.com/verilex/policyaudit/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handler and infrastructure dependencies of the
// route tree.  Nil handlers leave their routes unregistered.
type RouterConfig struct {
	AnalysisHandler *handlers.AnalysisHandler
	CorpusHandler   *handlers.CorpusHandler
	HealthHandler   *handlers.HealthHandler

	// MetricsHandler, when non-nil, is mounted at MetricsPath.
	MetricsHandler http.Handler
	MetricsPath    string

	Mode   string
	Logger logging.Logger
}

// NewRouter constructs the complete route tree.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.AccessLog(logger))
	r.Use(middleware.Recovery(logger))

	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.Liveness)
		r.GET("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.MetricsHandler != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(cfg.MetricsHandler))
	}

	api := r.Group("/api/v1")
	if cfg.AnalysisHandler != nil {
		api.POST("/analyze", cfg.AnalysisHandler.Analyze)
		api.POST("/diagnose", cfg.AnalysisHandler.Diagnose)
	}
	if cfg.CorpusHandler != nil {
		api.GET("/articles", cfg.CorpusHandler.List)
		api.GET("/articles/:number", cfg.CorpusHandler.Get)
		api.POST("/corpus/reload", cfg.CorpusHandler.Reload)
	}

	return r
}

// routerMode maps the server mode setting to a gin mode string.
func routerMode(cfg config.ServerConfig) string {
	switch cfg.Mode {
	case "debug":
		return gin.DebugMode
	case "test":
		return gin.TestMode
	default:
		return gin.ReleaseMode
	}
}
