package domain

import "errors"

// Error kinds surfaced by the Engine and Session Adapter, mapped to HTTP
// status codes by the Control API.
var (
	ErrEngineStopped  = errors.New("engine stopped")
	ErrUnknownTorrent = errors.New("unknown torrent")
	ErrNotReady       = errors.New("torrent not ready")
	ErrPieceTimeout   = errors.New("piece timeout")
	ErrBadRange       = errors.New("bad range")
	ErrTorrentError   = errors.New("torrent error")
	ErrInvalidInput   = errors.New("invalid input")
)
