package domain

// TorrentStatus is the externally visible lifecycle state of a Torrent.
// "removed" is not a status value: a removed Torrent has no entry at all.
type TorrentStatus string

const (
	StatusLoading TorrentStatus = "loading"
	StatusReady   TorrentStatus = "ready"
	StatusPaused  TorrentStatus = "paused"
	StatusError   TorrentStatus = "error"
)
