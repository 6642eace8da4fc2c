package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/SafalBhandari12/sysMonitoring/internal/config"
	"github.com/SafalBhandari12/sysMonitoring/internal/httpapi"
	"github.com/SafalBhandari12/sysMonitoring/internal/httpapi/middleware"
	"github.com/SafalBhandari12/sysMonitoring/internal/logging"
	"github.com/SafalBhandari12/sysMonitoring/internal/probe"
	"github.com/SafalBhandari12/sysMonitoring/internal/repo"
	"github.com/SafalBhandari12/sysMonitoring/internal/repo/memory"
	"github.com/SafalBhandari12/sysMonitoring/internal/repo/postgres"
	"github.com/SafalBhandari12/sysMonitoring/internal/scheduler"
	"github.com/SafalBhandari12/sysMonitoring/internal/stats"
	"github.com/SafalBhandari12/sysMonitoring/internal/verify"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	logger, err := logging.NewLogger(cfg.LogDir)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		domains   repo.DomainStore
		endpoints repo.EndpointStore
		results   repo.ResultStore
	)
	if cfg.DatabaseURL != "" {
		pg, err := postgres.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			logger.Fatal("postgres_connect", zap.Error(err))
		}
		defer pg.Close()
		domains, endpoints, results = pg, pg, pg
		logger.Info("store", zap.String("kind", "postgres"))
	} else {
		mem := memory.New()
		domains, endpoints, results = mem, mem, mem
		logger.Info("store", zap.String("kind", "memory"))
	}

	verifier := verify.NewVerifier(
		logger,
		domains,
		verify.NewResolver(cfg.DNSServer),
		verify.LinearBackoff(cfg.VerifyBaseDelay),
		cfg.VerifyMaxTries,
	)
	sweeper := verify.NewSweeper(logger, domains, verifier, cfg.VerifyInterval, cfg.VerifySweepCap, cfg.VerifyBatch)
	prober := scheduler.NewProber(
		logger,
		endpoints,
		results,
		probe.New(cfg.ProbeTimeout),
		cfg.ProbeInterval,
		cfg.ProbeCycleCap,
		cfg.ProbeBatch,
		cfg.ProbeLeaseTTL,
	)
	aggregator := stats.NewAggregator(logger, endpoints, results, cfg.AggregateInterval)

	go prober.Run(ctx)
	go sweeper.Run(ctx)
	go aggregator.Run(ctx)

	api := &httpapi.Server{
		Logger:         logger,
		Domains:        domains,
		Endpoints:      endpoints,
		Results:        results,
		Verifier:       verifier,
		ProbeSweep:     prober.RunOnce,
		VerifySweep:    sweeper.RunOnce,
		AggregateSweep: aggregator.RunOnce,
		Keys: middleware.Keys{
			Public: cfg.PublicAPIKeys,
			Admin:  cfg.AdminAPIKeys,
		},
		PublicRPM:      cfg.PublicRPM,
		PublicBurst:    cfg.PublicBurst,
		AllowedOrigins: cfg.AllowedOrigins,
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown", zap.Error(err))
		}
	}()

	logger.Info("api_listen", zap.String("addr", cfg.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("listen", zap.Error(err))
	}
	logger.Info("api_stopped")
}
