package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"custodia/internal/jwtauth"
	orghandler "custodia/internal/org/handler"
	orgmetrics "custodia/internal/org/metrics"
	"custodia/internal/org/service"
	"custodia/internal/org/store"
	"custodia/internal/org/store/audit"
	"custodia/internal/org/store/backup"
	"custodia/internal/org/store/device"
	"custodia/internal/org/store/organization"
	"custodia/internal/platform/config"
	"custodia/internal/platform/httpserver"
	"custodia/internal/platform/logger"
	"custodia/internal/platform/metrics"
	"custodia/internal/platform/postgres"
	platformredis "custodia/internal/platform/redis"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	auditDB, err := postgres.OpenAudit(ctx, cfg.Postgres)
	if err != nil {
		log.Error("audit database connection failed", "error", err)
		os.Exit(1)
	}
	defer auditDB.Close()

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}

	orgs := organization.NewPostgres(pool)
	devices := device.NewPostgres(pool)
	backups := backup.NewPostgres(pool)
	auditStore := audit.NewPostgres(auditDB)

	opts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(orgmetrics.New()),
		service.WithAuditStore(auditStore),
	}
	if redisClient != nil {
		defer redisClient.Close()
		opts = append(opts, service.WithAccessCache(
			service.NewRedisAccessCache(redisClient.Client), cfg.AccessCacheTTL))
	}
	svc := service.New(orgs, devices, backups, store.NewPgxTx(pool), opts...)

	jwtService := jwtauth.NewJWTService(cfg.JWTSigningKey, "custodia", "custodia-api")
	httpMetrics := metrics.New()

	router := chi.NewRouter()
	orghandler.New(svc, log, httpMetrics, jwtauth.NewMiddlewareAdapter(jwtService)).Register(router)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting custodia", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
