// Package metrics registers the Prometheus gauges and counters the Control
// API and Torrent Engine emit.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "engine",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "engine",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 30},
	}, []string{"method", "path"})

	ActiveTorrents = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "engine",
		Name:      "active_torrents",
		Help:      "Number of currently tracked torrents.",
	})

	DownloadSpeedBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "engine",
		Name:      "download_speed_bytes",
		Help:      "Current aggregate download speed in bytes per second.",
	})

	PeersConnected = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "engine",
		Name:      "peers_connected",
		Help:      "Total number of peers connected across all torrents.",
	})

	PieceWaitDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "engine",
		Name:      "piece_wait_duration_seconds",
		Help:      "Time spent in ensure_piece waiting for a piece to become available.",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	})

	PieceTimeoutsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "engine",
		Name:      "piece_timeouts_total",
		Help:      "Total number of piece waits that exceeded the deadline.",
	})

	MeteredMode = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "engine",
		Name:      "metered_mode",
		Help:      "1 if metered mode is currently enabled, 0 otherwise.",
	})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ActiveTorrents,
		DownloadSpeedBytes,
		PeersConnected,
		PieceWaitDuration,
		PieceTimeoutsTotal,
		MeteredMode,
	)
}
