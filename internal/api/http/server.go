// Package apihttp implements the Control API: a loopback HTTP server
// exposing the Torrent Engine's operations as HTTP routes.
package apihttp

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"torrentstream/internal/domain"
	"torrentstream/internal/domain/ports"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// metadataWaitDeadline bounds how long a proxy request waits for a torrent
// to reach metadata_ready or error before answering 503.
const metadataWaitDeadline = 60 * time.Second

const metadataPollInterval = 200 * time.Millisecond

type Server struct {
	engine  ports.Engine
	history ports.WatchHistoryRepository
	logger  *slog.Logger
	version string
	wsHub   *wsHub

	handler http.Handler
}

type ServerOption func(*Server)

func WithWatchHistory(repo ports.WatchHistoryRepository) ServerOption {
	return func(s *Server) {
		s.history = repo
	}
}

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

func WithVersion(version string) ServerOption {
	return func(s *Server) {
		s.version = version
	}
}

func NewServer(engine ports.Engine, opts ...ServerOption) *Server {
	s := &Server{engine: engine, version: "dev"}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	s.wsHub = newWSHub(s.logger)
	go s.wsHub.run()

	mux := http.NewServeMux()
	mux.HandleFunc("/status/check", s.handleStatusCheck)
	mux.HandleFunc("/start/", s.handleStart)
	mux.HandleFunc("/status/", s.handleStatus)
	mux.HandleFunc("/pause/", s.handlePause)
	mux.HandleFunc("/stop/", s.handleStop)
	mux.HandleFunc("/network/metered", s.handleMetered)
	mux.HandleFunc("/proxy/", s.handleProxy)
	mux.HandleFunc("/history/", s.handleHistory)
	mux.HandleFunc("/ws", s.handleWS)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/", s.handleNotFound)

	traced := otelhttp.NewHandler(loggingMiddleware(s.logger, mux), "torrent-engine",
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/metrics"
		}),
	)
	s.handler = recoveryMiddleware(s.logger, metricsMiddleware(corsMiddleware(traced)))
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// BroadcastStatus pushes a live status snapshot to every connected /ws
// client. Safe to call from the Engine's event pump; never blocks.
func (s *Server) BroadcastStatus(hash domain.InfoHash, status domain.LiveStatus) {
	s.wsHub.Broadcast("status", map[string]interface{}{
		"hash":   hash,
		"status": status,
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusNotFound, "Not found")
}

func (s *Server) handleStatusCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"platform": "torrentstream",
		"version":  s.version,
	})
}

// hashFromPath extracts and validates the <hex> path segment after the
// given route prefix, e.g. "/start/" -> "deadbeef...".
func hashFromPath(r *http.Request, prefix string) (domain.InfoHash, error) {
	raw := strings.TrimPrefix(r.URL.Path, prefix)
	raw = strings.Trim(raw, "/")
	return domain.ParseInfoHash(raw)
}

// waitForMetadata polls the Engine for metadata_ready or error, per
// returning the final snapshot or a domain error mapped by
// the caller to the matching HTTP status.
func waitForMetadata(ctx context.Context, eng ports.Engine, hash domain.InfoHash) (domain.Torrent, error) {
	deadline := time.Now().Add(metadataWaitDeadline)
	ticker := time.NewTicker(metadataPollInterval)
	defer ticker.Stop()

	for {
		t, ok := eng.GetState(hash)
		if !ok {
			return domain.Torrent{}, domain.ErrUnknownTorrent
		}
		if t.Status == domain.StatusError {
			return t, domain.ErrTorrentError
		}
		if t.MetadataReady {
			return t, nil
		}
		if time.Now().After(deadline) {
			return t, domain.ErrNotReady
		}
		select {
		case <-ctx.Done():
			return t, ctx.Err()
		case <-ticker.C:
		}
	}
}
