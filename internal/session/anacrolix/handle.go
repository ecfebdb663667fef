package anacrolix

import (
	"github.com/anacrolix/torrent"

	"torrentstream/internal/domain"
)

// handle wraps a *torrent.Torrent as the opaque ports.Handle the Engine
// holds; it carries no state beyond the library reference and its info-hash.
type handle struct {
	t    *torrent.Torrent
	hash domain.InfoHash
}

func (h *handle) InfoHash() domain.InfoHash { return h.hash }
