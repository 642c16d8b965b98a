package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rt0111/onayformukontrol/internal/api"
	"github.com/rt0111/onayformukontrol/internal/api/handler"
	"github.com/rt0111/onayformukontrol/internal/config"
	"github.com/rt0111/onayformukontrol/internal/database"
	"github.com/rt0111/onayformukontrol/internal/jobs"
	"github.com/rt0111/onayformukontrol/internal/metrics"
	"github.com/rt0111/onayformukontrol/internal/report"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP analysis service",
	Long: `Run the HTTP analysis service.

Uploaded PDFs are analyzed asynchronously by a worker pool. Job records live
in Redis when redis.url is set, otherwise in memory, and expire after
server.job_ttl.

Endpoints:
  GET  /api/v1/health
  POST /api/v1/analyze              multipart field "file"
  POST /api/v1/analyze/text         {"name": "...", "text": "..."}
  GET  /api/v1/jobs/{id}
  GET  /api/v1/jobs/{id}/result
  GET  /api/v1/jobs/{id}/report     ?format=text|json|yaml&only=risks|summary
  GET  /metrics

Examples:
  ONAY_REDIS_URL=redis://localhost:6379/0 onaykontrol serve --addr :9090`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
}


func newJobStore(cfg *config.Config) (jobs.Store, func(), error) {
	if cfg.Redis.URL == "" {
		return jobs.NewMemoryStore(cfg.Server.JobTTL), func() {}, nil
	}
	store, err := jobs.NewRedisStore(cfg.Redis.URL, cfg.Server.JobTTL)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { store.Close() }, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	a, err := newApp(ctx, false, m)
	if err != nil {
		return err
	}
	defer a.logger.Sync()

	cfg := a.cfg
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	store, closeStore, err := newJobStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	checks := map[string]handler.Pinger{"jobs": store}
	if cfg.Rules.Source == config.RulesPostgres {
		db, err := database.NewDB(ctx, cfg.Database.URL, cfg.Database.MaxConns)
		if err != nil {
			return err
		}
		defer db.Close()
		checks["postgres"] = db
	}

	runner := jobs.NewRunner(store, a.analyzer.AnalyzeBytes, cfg.Server.Workers, cfg.Server.QueueSize, a.logger, m)
	runner.Start(context.WithoutCancel(ctx))

	router := api.NewRouter(api.Dependencies{
		Logger:             a.logger.Named("http"),
		HealthHandler:      handler.NewHealthHandler(a.ruleset.PhraseCount(), checks),
		AnalyzeHandler:     handler.NewAnalyzeHandler(runner, cfg.Server.MaxUploadMB<<20),
		AnalyzeTextHandler: handler.NewAnalyzeTextHandler(a.analyzer, cfg.Server.MaxUploadMB<<20),
		JobStatusHandler:   handler.NewJobStatusHandler(store),
		JobResultHandler:   handler.NewJobResultHandler(store),
		JobReportHandler:   handler.NewJobReportHandler(store, report.NewRenderer(a.ruleset)),
		MetricsHandler:     promhttp.Handler(),
	})

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info(ctx, "Server listening",
			zap.String("addr", cfg.Server.Addr),
			zap.Bool("redis", cfg.Redis.URL != ""),
			zap.Int("workers", cfg.Server.Workers),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			runner.Stop()
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	a.logger.Info(context.Background(), "Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn(shutdownCtx, "Graceful shutdown failed", zap.Error(err))
	}
	runner.Stop()

	return nil
}
