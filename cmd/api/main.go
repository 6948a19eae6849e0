// Package main is the entry point for the Rainparade API server.
//
// It loads configuration, builds the forecast pipeline (model gateway,
// seasonal simulator, assembler), wires the geocoding service with its cache
// backend, mounts the HTTP chassis, and serves until a shutdown signal
// arrives.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"

	"rainparade/internal/api/handlers"
	"rainparade/internal/config"
	"rainparade/internal/core"
	"rainparade/internal/db"
	"rainparade/internal/forecast"
	"rainparade/internal/geo"
	"rainparade/internal/metrics"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on
// error.
func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("rainparade API starting",
		"environment", cfg.Environment,
		"port", cfg.Server.Port,
		"artifact_path", cfg.Model.ArtifactPath,
	)

	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	// Forecast pipeline. The gateway resolves the artifact lazily; the first
	// prediction decides provenance for the process lifetime.
	gateway := forecast.NewGateway(cfg.Model.ArtifactPath, logger)
	simulator := forecast.NewSeasonalSimulator()
	assembler := forecast.NewAssembler(gateway, simulator, logger)

	// Geocode cache backend: PostgreSQL when configured, in-memory otherwise.
	var geoCache geo.Cache
	var cachePurger geocodeCachePurger
	if cfg.Database.URL.Unmask() != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		pool, poolErr := db.NewPool(ctx, cfg.Database)
		cancel()
		if poolErr != nil {
			return fmt.Errorf("connecting to database: %w", poolErr)
		}
		srv.RegisterCloser(func() error {
			pool.Close()
			return nil
		})
		srv.HealthProbes = append(srv.HealthProbes, &databaseProbe{pool: pool})
		repo := db.NewGeocodeRepository(pool)
		geoCache = repo
		cachePurger = repo
		logger.Info("geocode cache backed by postgres")
	} else {
		memCache := geo.NewMemoryCache()
		geoCache = memCache
		cachePurger = memCache
		logger.Info("no DATABASE_URL configured, geocode cache is in-memory")
	}

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	srv.RegisterCloser(func() error {
		stopSweep()
		return nil
	})
	go runGeocodeCacheSweep(sweepCtx, cachePurger, logger)

	geoClient := geo.NewClient(
		&http.Client{Timeout: cfg.Geocode.Timeout},
		cfg.Geocode.BaseURL,
		cfg.Geocode.UserAgent,
		cfg.Geocode.UpstreamRPS,
	)
	geoService := geo.NewService(geoCache, geoClient, cfg.Geocode.CacheTTL, logger)

	// CloudWatch telemetry is opt-in.
	var forecastMetrics handlers.ForecastMetrics
	if cfg.Metrics.Enabled {
		awsCfg, awsErr := awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(cfg.Metrics.AWSRegion),
		)
		if awsErr != nil {
			return fmt.Errorf("loading AWS configuration: %w", awsErr)
		}
		collector := metrics.NewCloudWatchCollector(
			cloudwatch.NewFromConfig(awsCfg),
			cfg.Metrics.Namespace,
			logger,
		)
		srv.Metrics = collector
		forecastMetrics = collector
	}

	srv.HealthProbes = append(srv.HealthProbes, &modelProbe{
		path:    cfg.Model.ArtifactPath,
		gateway: gateway,
	})

	climateHandler := handlers.NewClimateHandler(assembler, gateway, srv.Validator, forecastMetrics, logger)
	geoHandler := handlers.NewGeoHandler(geoService, logger)
	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars,
		climateHandler.RegisterRoutes,
		geoHandler.RegisterRoutes,
	)

	srv.MountRoutes()

	return runHTTPServer(srv, cfg, logger)
}

// runHTTPServer starts the server in standard HTTP mode with graceful
// shutdown.
func runHTTPServer(srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)

	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server resource shutdown error", "error", err)
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// newLogger creates a structured slog.Logger configured for the given log
// level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: lvl,
	})
	return slog.New(handler)
}

// geocodeCachePurger is the maintenance surface shared by the postgres
// repository and the in-memory cache.
type geocodeCachePurger interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// geocodeCacheSweepInterval is how often expired geocode entries are purged.
const geocodeCacheSweepInterval = time.Hour

// runGeocodeCacheSweep periodically drops expired geocode cache entries
// until ctx is cancelled. Get filters on expiry, so the sweep only bounds
// storage growth.
func runGeocodeCacheSweep(ctx context.Context, purger geocodeCachePurger, logger *slog.Logger) {
	ticker := time.NewTicker(geocodeCacheSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := purger.DeleteExpired(ctx)
			if err != nil {
				logger.Warn("geocode cache sweep failed", "error", err.Error())
				continue
			}
			if deleted > 0 {
				logger.Info("purged expired geocode cache entries", "deleted", deleted)
			}
			if sized, ok := purger.(interface{ Len() int }); ok {
				logger.Debug("geocode cache size", "entries", sized.Len())
			}
		}
	}
}

// modelProbe reports the model artifact's state for the health endpoint.
// Running on the seasonal fallback is a supported mode, so an absent
// artifact is healthy. The probe fails only when an artifact file exists on
// disk but cannot be used; that is a deployment problem worth paging on.
type modelProbe struct {
	path    string
	gateway *forecast.Gateway
}

func (p *modelProbe) Name() string { return "model" }

func (p *modelProbe) Check(_ context.Context) error {
	if p.path == "" {
		return nil
	}
	if _, err := os.Stat(p.path); err != nil {
		return nil
	}
	if load := p.gateway.Load(); !load.Available {
		return fmt.Errorf("artifact present but unusable: %s", load.Reason)
	}
	return nil
}

// databaseProbe verifies geocode cache connectivity.
type databaseProbe struct {
	pool interface {
		Ping(ctx context.Context) error
	}
}

func (p *databaseProbe) Name() string { return "database" }

func (p *databaseProbe) Check(ctx context.Context) error {
	return p.pool.Ping(ctx)
}
