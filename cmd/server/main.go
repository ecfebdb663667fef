package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	apihttp "torrentstream/internal/api/http"
	"torrentstream/internal/config"
	"torrentstream/internal/domain/ports"
	"torrentstream/internal/engine"
	"torrentstream/internal/metrics"
	"torrentstream/internal/session/anacrolix"
	"torrentstream/internal/telemetry"
	"torrentstream/internal/watchhistory"
	watchhistorymongo "torrentstream/internal/watchhistory/mongo"

	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
)

const buildVersion = "dev"

func main() {
	cfg := config.Load()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(context.Background(), "torrent-engine")
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	logger.Info("configuration loaded",
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("logFormat", cfg.LogFormat),
		slog.String("dataDir", cfg.TorrentDataDir),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	adapter := anacrolix.New(cfg.TorrentDataDir, logger)
	eng := engine.New(adapter, cfg.TorrentDataDir, logger)
	if err := eng.Start(); err != nil {
		logger.Error("engine start failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	history, mongoClient := buildWatchHistory(rootCtx, cfg, logger)

	srvOpts := []apihttp.ServerOption{
		apihttp.WithLogger(logger),
		apihttp.WithVersion(buildVersion),
	}
	if history != nil {
		srvOpts = append(srvOpts, apihttp.WithWatchHistory(history))
	}
	handler := apihttp.NewServer(eng, srvOpts...)
	eng.SetBroadcaster(handler)

	go runMaintenance(rootCtx, eng, cfg.IdleMaxAge, logger)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      0,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("server started", slog.String("addr", cfg.HTTPAddr))

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown error", slog.String("error", err.Error()))
	}
	if err := eng.Close(); err != nil {
		logger.Warn("engine close error", slog.String("error", err.Error()))
	}
	if mongoClient != nil {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			logger.Warn("mongo disconnect error", slog.String("error", err.Error()))
		}
	}

	logger.Info("server stopped")
}

// buildWatchHistory wires a Mongo-backed watch-history store when MONGO_URI
// is configured, falling back to the in-memory store otherwise.
func buildWatchHistory(ctx context.Context, cfg config.Config, logger *slog.Logger) (ports.WatchHistoryRepository, interface {
	Disconnect(context.Context) error
}) {
	if strings.TrimSpace(cfg.MongoURI) == "" {
		return watchhistory.NewMemory(), nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	mongoOpts := otelmongo.NewMonitor()
	client, err := watchhistorymongo.Connect(connectCtx, cfg.MongoURI, options.Client().SetMonitor(mongoOpts))
	if err != nil {
		logger.Warn("mongo connect failed, falling back to in-memory watch history", slog.String("error", err.Error()))
		return watchhistory.NewMemory(), nil
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		logger.Warn("mongo ping failed, falling back to in-memory watch history", slog.String("error", err.Error()))
		return watchhistory.NewMemory(), nil
	}

	return watchhistorymongo.NewRepository(client, cfg.MongoDatabase), client
}

// runMaintenance invokes cleanup_idle hourly.
func runMaintenance(ctx context.Context, eng *engine.Engine, maxAge time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			logger.Debug("running idle cleanup")
			eng.CleanupIdle(maxAge)
		}
	}
}

func newLogger(levelRaw, formatRaw string) *slog.Logger {
	level := parseLogLevel(levelRaw)
	opts := &slog.HandlerOptions{Level: level}
	format := strings.ToLower(strings.TrimSpace(formatRaw))
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
