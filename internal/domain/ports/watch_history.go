package ports

import (
	"context"

	"torrentstream/internal/domain"
)

// WatchHistoryRepository backs the supplemental watch-position bookmark
// feature. Implementations must tolerate being unavailable (e.g. Mongo
// unreachable) without affecting the core streaming path.
type WatchHistoryRepository interface {
	Get(ctx context.Context, hash domain.InfoHash) (domain.WatchPosition, bool, error)
	Save(ctx context.Context, pos domain.WatchPosition) error
}
