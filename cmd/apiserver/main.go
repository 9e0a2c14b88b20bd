// The apiserver binary runs the policyaudit HTTP service: corpus loading and
// hot reload, hybrid retrieval, coverage scoring, and the analysis API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/verilex/policyaudit/internal/config"
	"github.com/verilex/policyaudit/internal/infrastructure/monitoring/logging"
	httpserver "github.com/verilex/policyaudit/internal/interfaces/http"
	"github.com/verilex/policyaudit/internal/interfaces/http/handlers"
	"github.com/verilex/policyaudit/pkg/errors"
)

// version is injected via ldflags.
var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to YAML config file (default: environment only)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(logging.LogConfig{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logging:", err)
		os.Exit(1)
	}
	logger.Info("starting policyaudit api server",
		logging.String("version", version),
		logging.Int("port", cfg.Server.Port))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build application", logging.Err(err))
		os.Exit(1)
	}
	defer app.close()

	rc := httpserver.RouterConfig{
		AnalysisHandler: handlers.NewAnalysisHandler(app.service),
		CorpusHandler:   handlers.NewCorpusHandler(app.corpus),
		HealthHandler: handlers.NewHealthHandler(version, map[string]handlers.ReadinessCheck{
			"corpus": func() error {
				if app.corpus.Snapshot().Len() == 0 {
					return errors.New(errors.ErrCodeCorpusEmpty, "article corpus is empty")
				}
				return nil
			},
		}),
	}
	if app.metrics != nil {
		rc.MetricsHandler = app.metrics.Handler()
		rc.MetricsPath = cfg.Metrics.Path
	}

	srv := httpserver.NewServer(cfg.Server, rc, logger)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("shutdown signal received", logging.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("http server failed", logging.Err(err))
			os.Exit(1)
		}
		return
	}

	if err := srv.Stop(context.Background()); err != nil {
		logger.Error("shutdown error", logging.Err(err))
	}
	logger.Info("server stopped")
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.LoadFromEnv()
	}
	return config.Load(path)
}
