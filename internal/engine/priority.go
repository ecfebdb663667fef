package engine

import (
	"time"

	"torrentstream/internal/domain"
	"torrentstream/internal/domain/ports"
)

// maxDeadlineBoost caps how many pieces get an initial deadline boost.
const maxDeadlineBoost = 40

// applyStreamingPrioritization sets up sequential mode
// over the selected file's piece range, plus a tightening deadline ramp over
// its first pieces so early playback does not wait on rarest-first ordering.
func applyStreamingPrioritization(adapter ports.SessionAdapter, h ports.Handle, t *domain.Torrent) {
	adapter.SetSequentialRange(h, t.FirstPiece, t.LastPiece)
	adapter.SetSequentialFlag(h, true)

	boost := t.LastPiece - t.FirstPiece + 1
	if boost > maxDeadlineBoost {
		boost = maxDeadlineBoost
	}
	for i := 0; i < boost; i++ {
		deadline := 300*time.Millisecond + time.Duration(i)*120*time.Millisecond
		adapter.SetPieceDeadline(h, t.FirstPiece+i, deadline)
	}
}
