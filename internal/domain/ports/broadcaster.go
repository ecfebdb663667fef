package ports

import "torrentstream/internal/domain"

// StatusBroadcaster pushes a live status snapshot to interested observers,
// e.g. the Control API's /ws hub. The Torrent Engine holds one optionally;
// with none set, status transitions are simply not broadcast anywhere.
type StatusBroadcaster interface {
	BroadcastStatus(hash domain.InfoHash, status domain.LiveStatus)
}
