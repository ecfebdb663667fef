package ports

import (
	"context"
	"time"

	"torrentstream/internal/domain"
)

// Engine is the Torrent Engine's public operation set, consumed by the
// Control API. It never blocks on swarm I/O; StartTorrent in particular
// must return promptly.
type Engine interface {
	StartTorrent(hash domain.InfoHash, fileIdx, season, episode *int) (domain.Torrent, error)
	GetState(hash domain.InfoHash) (domain.Torrent, bool)
	GetStatus(hash domain.InfoHash) (domain.LiveStatus, bool)
	PauseTorrent(hash domain.InfoHash) error
	ResumeTorrent(hash domain.InfoHash) error
	RemoveTorrent(hash domain.InfoHash) error
	SetMeteredMode(on bool)
	CleanupIdle(maxAge time.Duration)

	// OpenFile returns the storage path, size and offset/piece metadata
	// needed by the Streaming Proxy for the Torrent's selected file.
	OpenFile(hash domain.InfoHash) (domain.Torrent, string, error)

	// HavePiece reports whether the given piece is already locally complete.
	HavePiece(hash domain.InfoHash, piece int) bool

	// EnsurePiece blocks, bounded by a 60s internal deadline or ctx, until the
	// given piece of hash's selected file becomes locally available. It
	// pre-warms the near horizon and periodically force-reannounces while
	// waiting, and returns promptly if ctx is cancelled.
	EnsurePiece(ctx context.Context, hash domain.InfoHash, piece int) error
}
