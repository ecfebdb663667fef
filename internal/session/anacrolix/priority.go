package anacrolix

import (
	"time"

	"github.com/anacrolix/torrent/types"
)

// deadlinePriority maps a requested deadline duration onto the library's
// discrete piece-priority levels; anacrolix/torrent has no literal
// millisecond-deadline API, only an ordered priority enum, so a tighter
// deadline maps to a more urgent tier.
func deadlinePriority(d time.Duration) types.PiecePriority {
	switch {
	case d <= 700*time.Millisecond:
		return types.PiecePriorityNow
	case d <= 2*time.Second:
		return types.PiecePriorityNext
	case d <= 4*time.Second:
		return types.PiecePriorityHigh
	default:
		return types.PiecePriorityReadahead
	}
}
