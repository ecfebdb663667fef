// Package streaming implements the Range-Aware Streaming Proxy: a
// piece-aware byte reader over a torrent's selected file.
package streaming

import (
	"context"
	"io"
	"os"

	"torrentstream/internal/domain"
	"torrentstream/internal/domain/ports"
)

// Handle is a forward-only, piece-waiting reader over one torrent's selected
// file in the half-open-inclusive range [start, end]. It does not own the
// Torrent: every operation looks it up by hash through engine, per
// a weak back-reference, not ownership, of the Torrent Engine.
type Handle struct {
	ctx    context.Context
	engine ports.Engine
	hash   domain.InfoHash

	file        *os.File
	pieceLength int64
	fileOffset  int64

	start int64
	end   int64
	pos   int64

	fileSize int64
}

// Open implements open_stream(info_hash, start, end). It returns a domain
// error (ErrUnknownTorrent, ErrNotReady, ErrTorrentError) if preconditions
// are not met; the API layer maps these to 404/503/500 respectively. ctx
// governs every piece wait performed by subsequent Read calls, so a
// cancelled request (client disconnect) unblocks them promptly.
func Open(ctx context.Context, eng ports.Engine, hash domain.InfoHash, start, end int64) (*Handle, error) {
	snap, path, err := eng.OpenFile(hash)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, domain.ErrNotReady
	}

	return &Handle{
		ctx:         ctx,
		engine:      eng,
		hash:        hash,
		file:        f,
		pieceLength: snap.PieceLength,
		fileOffset:  snap.FileOffsetInTorrent,
		start:       start,
		end:         end,
		pos:         start,
		fileSize:    snap.SelectedFileSize,
	}, nil
}

func (h *Handle) FileSize() int64      { return h.fileSize }
func (h *Handle) ContentLength() int64 { return h.end - h.start + 1 }

// Read waits for the
// covering piece to be locally available, then satisfy the read from disk.
func (h *Handle) Read(buf []byte) (int, error) {
	if h.pos > h.end {
		return 0, io.EOF
	}

	if h.pieceLength > 0 {
		absolute := h.fileOffset + h.pos
		piece := int(absolute / h.pieceLength)
		if !h.engine.HavePiece(h.hash, piece) {
			if err := h.engine.EnsurePiece(h.ctx, h.hash, piece); err != nil {
				return 0, err
			}
		}
	}

	want := int64(len(buf))
	if remaining := h.end - h.pos + 1; want > remaining {
		want = remaining
	}
	if want <= 0 {
		return 0, io.EOF
	}

	n, err := h.file.ReadAt(buf[:want], h.pos)
	h.pos += int64(n)
	if err == io.EOF && n > 0 {
		err = nil
	}
	return n, err
}

// Close releases the backing file descriptor. Safe to call from a cancelled
// request; any in-flight EnsurePiece wait observes no further reads after.
func (h *Handle) Close() error {
	return h.file.Close()
}
