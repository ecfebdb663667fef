package ports

import (
	"time"

	"torrentstream/internal/domain"
)

// Handle is an opaque per-torrent reference returned by SessionAdapter.AddMagnet.
// It carries no behavior of its own; every operation is dispatched through
// the SessionAdapter that issued it.
type Handle interface {
	InfoHash() domain.InfoHash
}

// FileStorage is the file list and layout metadata of a torrent, available
// once the swarm has delivered metadata.
type FileStorage struct {
	Files       []domain.File
	PieceLength int64
	NumPieces   int
}

// SessionAdapter encapsulates the underlying BitTorrent library so Engine
// code stays library-agnostic and single-threaded-callable. All methods are
// safe to call from the Engine's serialized executor; none block on the
// network beyond a bounded add-magnet timeout.
type SessionAdapter interface {
	// Start initializes the global session. Idempotent. Begins dispatching
	// library alerts onto the channel returned by Events.
	Start() error
	// Stop releases the session and closes the event channel.
	Stop() error

	// AddMagnet builds a magnet URI from hash plus the fixed tracker list,
	// attaches the torrent with default flags under saveDir, and returns its
	// handle. Returns ErrEngineStopped if called before Start.
	AddMagnet(hash domain.InfoHash, saveDir string) (Handle, error)
	Find(hash domain.InfoHash) (Handle, bool)

	FileStorage(h Handle) (FileStorage, bool)
	PrioritizeFiles(h Handle, defaultFileIndex int)
	SetSequentialRange(h Handle, first, last int)
	SetSequentialFlag(h Handle, on bool)
	SetPieceDeadline(h Handle, piece int, d time.Duration)
	HavePiece(h Handle, piece int) bool

	Pause(h Handle) error
	Resume(h Handle) error
	Remove(h Handle) error
	ForceReannounce(h Handle)

	Status(h Handle) domain.LiveStatus

	// Events returns the channel of dispatched alerts. Valid after Start.
	Events() <-chan Event
}

// EventKind distinguishes the handful of alert kinds the Engine reacts to.
// Unknown library alert kinds never reach this channel at all.
type EventKind int

const (
	EventMetadataReceived EventKind = iota
	EventFinished
	EventError
)

type Event struct {
	Kind     EventKind
	InfoHash domain.InfoHash
	Message  string
}
