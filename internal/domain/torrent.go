package domain

import "time"

// Torrent is one tracked info-hash. All mutation is serialized by the Engine
// that owns the table this Torrent lives in; Torrent itself holds no lock.
type Torrent struct {
	InfoHash      InfoHash
	Status        TorrentStatus
	MetadataReady bool

	SelectedFileIndex int // -1 until resolved
	SelectedFileName  string
	SelectedFileSize  int64
	TotalFiles        int

	RequestedFileIndex *int
	RequestedSeason    *int
	RequestedEpisode   *int

	LastAccessed time.Time

	// Derived once the selected file is known.
	FileOffsetInTorrent int64
	PieceLength         int64
	FirstPiece          int
	LastPiece           int

	// PausedByUser distinguishes an explicit pause from one induced by
	// metered mode, so metered mode can restore prior state correctly.
	PausedByUser bool
}

// NewTorrent creates a fresh Torrent record in the loading state.
func NewTorrent(hash InfoHash) *Torrent {
	return &Torrent{
		InfoHash:          hash,
		Status:            StatusLoading,
		SelectedFileIndex: -1,
		LastAccessed:      time.Now(),
	}
}

// Clone returns a value copy safe to hand to callers outside the Engine's lock.
func (t *Torrent) Clone() Torrent {
	return *t
}

// Touch refreshes LastAccessed, used by CleanupIdle to find stale torrents.
func (t *Torrent) Touch() {
	t.LastAccessed = time.Now()
}
