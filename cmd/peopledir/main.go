package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/peopledir/internal/config"
	dbMongo "github.com/kailas-cloud/peopledir/internal/db/mongo"
	dbRedis "github.com/kailas-cloud/peopledir/internal/db/redis"
	logpkg "github.com/kailas-cloud/peopledir/internal/logger"
	"github.com/kailas-cloud/peopledir/internal/metrics"
	"github.com/kailas-cloud/peopledir/internal/repository/aggcache"
	personrepo "github.com/kailas-cloud/peopledir/internal/repository/person"
	chiTransport "github.com/kailas-cloud/peopledir/internal/transport/chi"
	batchuc "github.com/kailas-cloud/peopledir/internal/usecase/batch"
	healthuc "github.com/kailas-cloud/peopledir/internal/usecase/health"
	personuc "github.com/kailas-cloud/peopledir/internal/usecase/person"
)

// Build metadata, set via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting peopledir API server",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("database", cfg.Database.Name),
		zap.Bool("transactions", cfg.Database.Transactions),
		zap.Bool("cache", cfg.Cache.Enabled()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := dbMongo.NewStore(ctx, dbMongo.Config{
		URI:              cfg.Database.URI,
		Database:         cfg.Database.Name,
		AppName:          "peopledir",
		Transactions:     cfg.Database.Transactions,
		OperationTimeout: time.Duration(cfg.Database.OperationTimeoutSec) * time.Second,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			logger.Warn("Failed to close database store", zap.Error(err))
		}
	}()

	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.Register()

	repo := personrepo.New(store, personrepo.WithCollections(personrepo.Collections{
		Persons:   cfg.Database.PersonsCollection,
		Countries: cfg.Database.CountriesCollection,
	}))
	personSvc := personuc.New(repo)
	batchSvc := batchuc.New(store, repo).WithMaxBatchSize(cfg.Batch.MaxSize)

	// Pass nil interface (not typed nil pointer) when the cache is off.
	var cachePinger healthuc.Pinger
	if cfg.Cache.Enabled() {
		cache, err := dbRedis.NewStore(dbRedis.Config{Addrs: cfg.Cache.Addrs, Password: cfg.Cache.Password})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		defer cache.Close()

		if err := cache.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeout)*time.Second); err != nil {
			logger.Warn("Cache not ready, aggregates are served from the database until it recovers", zap.Error(err))
		}

		agg := aggcache.New(repo, cache, cfg.Cache.TTL(), metrics.AggregateCacheTotal, logger)
		personSvc = personSvc.WithAggregateReader(agg)
		batchSvc = batchSvc.WithInvalidator(agg)
		cachePinger = cache
	}

	healthSvc := healthuc.New(store, cachePinger)
	server := chiTransport.NewServer(personSvc, batchSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits one log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
