// Package engine implements the Torrent Engine: the per-info-hash state
// machine, file selection, streaming prioritization, metered mode and idle
// eviction.
package engine

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"torrentstream/internal/domain"
	"torrentstream/internal/domain/ports"
	"torrentstream/internal/metrics"
)

// defaultIdleMaxAge is the default argument to CleanupIdle when the caller
// does not override it via the periodic maintenance task.
const defaultIdleMaxAge = 72 * time.Hour

// metricsSampleInterval is how often the Prometheus gauges are refreshed
// from the torrent table and live adapter status.
const metricsSampleInterval = 5 * time.Second

type Engine struct {
	adapter ports.SessionAdapter
	logger  *slog.Logger
	dataDir string

	mu          sync.RWMutex
	started     bool
	torrents    map[domain.InfoHash]*domain.Torrent
	handles     map[domain.InfoHash]ports.Handle
	metered     bool
	broadcaster ports.StatusBroadcaster

	stopEvents chan struct{}
}

// SetBroadcaster wires a status broadcaster (the Control API's /ws hub, in
// practice) that is notified on every transition the event pump observes.
// Optional; with none set, transitions are simply not broadcast anywhere.
func (e *Engine) SetBroadcaster(b ports.StatusBroadcaster) {
	e.mu.Lock()
	e.broadcaster = b
	e.mu.Unlock()
}

// broadcast notifies the configured StatusBroadcaster, if any, of hash's
// current live status. A missing handle still produces a best-effort
// broadcast of the zero LiveStatus, so error/finished transitions after the
// handle has been torn down are still observed.
func (e *Engine) broadcast(hash domain.InfoHash) {
	e.mu.RLock()
	b := e.broadcaster
	e.mu.RUnlock()
	if b == nil {
		return
	}
	status, _ := e.GetStatus(hash)
	b.BroadcastStatus(hash, status)
}

func New(adapter ports.SessionAdapter, dataDir string, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		adapter:  adapter,
		logger:   logger,
		dataDir:  dataDir,
		torrents: make(map[domain.InfoHash]*domain.Torrent),
		handles:  make(map[domain.InfoHash]ports.Handle),
	}
}

// Start brings up the Session Adapter and begins consuming its event stream.
// Idempotent.
func (e *Engine) Start() error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return nil
	}
	if err := e.adapter.Start(); err != nil {
		e.mu.Unlock()
		return err
	}
	e.started = true
	e.stopEvents = make(chan struct{})
	e.mu.Unlock()

	go e.pumpEvents()
	go e.sampleMetricsLoop()
	return nil
}

func (e *Engine) sampleMetricsLoop() {
	ticker := time.NewTicker(metricsSampleInterval)
	defer ticker.Stop()
	for {
		select {
		case <-e.stopEvents:
			return
		case <-ticker.C:
			e.SampleMetrics()
		}
	}
}

// SampleMetrics refreshes the engine's gauges from the current torrent
// table and live adapter status. Exported so tests and the maintenance
// loop can both trigger a sample without waiting for the ticker.
func (e *Engine) SampleMetrics() {
	e.mu.RLock()
	active := len(e.torrents)
	metered := e.metered
	handles := make([]ports.Handle, 0, len(e.handles))
	for _, h := range e.handles {
		handles = append(handles, h)
	}
	e.mu.RUnlock()

	var totalSpeed int64
	var totalPeers int
	for _, h := range handles {
		live := e.adapter.Status(h)
		totalSpeed += live.DownloadRateBps
		totalPeers += live.Peers
	}

	metrics.ActiveTorrents.Set(float64(active))
	metrics.DownloadSpeedBytes.Set(float64(totalSpeed))
	metrics.PeersConnected.Set(float64(totalPeers))
	if metered {
		metrics.MeteredMode.Set(1)
	} else {
		metrics.MeteredMode.Set(0)
	}
}

func (e *Engine) Close() error {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return nil
	}
	e.started = false
	close(e.stopEvents)
	e.mu.Unlock()
	return e.adapter.Stop()
}

func (e *Engine) pumpEvents() {
	for {
		select {
		case <-e.stopEvents:
			return
		case ev, ok := <-e.adapter.Events():
			if !ok {
				return
			}
			e.handleEvent(ev)
		}
	}
}

func (e *Engine) handleEvent(ev ports.Event) {
	switch ev.Kind {
	case ports.EventMetadataReceived:
		e.onMetadataReceived(ev.InfoHash)
		e.broadcast(ev.InfoHash)
	case ports.EventError:
		e.mu.Lock()
		if t, ok := e.torrents[ev.InfoHash]; ok {
			t.Status = domain.StatusError
		}
		e.mu.Unlock()
		e.logger.Warn("torrent error", "hash", ev.InfoHash, "message", ev.Message)
		e.broadcast(ev.InfoHash)
	case ports.EventFinished:
		e.logger.Info("torrent finished", "hash", ev.InfoHash)
		e.broadcast(ev.InfoHash)
	}
}

// onMetadataReceived runs file selection exactly once per torrent; redeliveries
// of the event (some libraries redeliver it) are no-ops once MetadataReady.
func (e *Engine) onMetadataReceived(hash domain.InfoHash) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, ok := e.torrents[hash]
	if !ok || t.MetadataReady {
		return
	}
	h, ok := e.handles[hash]
	if !ok {
		return
	}
	e.runSelectionLocked(t, h)
}

// StartTorrent starts a torrent, or updates an already-running one's
// requested selection.
func (e *Engine) StartTorrent(hash domain.InfoHash, fileIdx, season, episode *int) (domain.Torrent, error) {
	e.mu.Lock()

	if !e.started {
		e.mu.Unlock()
		return domain.Torrent{}, domain.ErrEngineStopped
	}

	if t, ok := e.torrents[hash]; ok {
		t.Touch()
		if episodeChanged(t, season, episode) && t.MetadataReady {
			t.RequestedSeason = season
			t.RequestedEpisode = episode
			if h, ok := e.handles[hash]; ok {
				e.runSelectionLocked(t, h)
			}
		}
		out := t.Clone()
		e.mu.Unlock()
		return out, nil
	}

	saveDir := hash.SaveDir(e.dataDir)
	t := domain.NewTorrent(hash)
	t.RequestedFileIndex = fileIdx
	t.RequestedSeason = season
	t.RequestedEpisode = episode
	e.torrents[hash] = t
	e.mu.Unlock()

	h, err := e.adapter.AddMagnet(hash, saveDir)
	if err != nil {
		e.mu.Lock()
		delete(e.torrents, hash)
		e.mu.Unlock()
		return domain.Torrent{}, fmt.Errorf("add magnet: %w", err)
	}

	e.mu.Lock()
	e.handles[hash] = h
	if fs, ready := e.adapter.FileStorage(h); ready {
		_ = fs
		e.runSelectionLocked(t, h)
	}
	out := t.Clone()
	e.mu.Unlock()

	return out, nil
}

func episodeChanged(t *domain.Torrent, season, episode *int) bool {
	return !intPtrEqual(t.RequestedSeason, season) || !intPtrEqual(t.RequestedEpisode, episode)
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// runSelectionLocked must be called with e.mu held. It implements
// file selection and streaming prioritization.
func (e *Engine) runSelectionLocked(t *domain.Torrent, h ports.Handle) {
	fs, ok := e.adapter.FileStorage(h)
	if !ok {
		return
	}

	idx := selectFile(fs.Files, t.RequestedSeason, t.RequestedEpisode, t.RequestedFileIndex)
	if idx < 0 {
		t.Status = domain.StatusError
		return
	}

	f := fs.Files[idx]
	t.SelectedFileIndex = idx
	t.SelectedFileName = f.Path
	t.SelectedFileSize = f.Size
	t.TotalFiles = len(fs.Files)
	t.FileOffsetInTorrent = f.Offset
	t.PieceLength = fs.PieceLength
	if fs.PieceLength > 0 {
		t.FirstPiece = int(f.Offset / fs.PieceLength)
		t.LastPiece = int((f.Offset + f.Size - 1) / fs.PieceLength)
	}

	e.adapter.PrioritizeFiles(h, idx)
	applyStreamingPrioritization(e.adapter, h, t)

	t.MetadataReady = true
	t.Status = domain.StatusReady
}

func (e *Engine) GetState(hash domain.InfoHash) (domain.Torrent, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	t, ok := e.torrents[hash]
	if !ok {
		return domain.Torrent{}, false
	}
	return t.Clone(), true
}

func (e *Engine) GetStatus(hash domain.InfoHash) (domain.LiveStatus, bool) {
	e.mu.RLock()
	h, ok := e.handles[hash]
	e.mu.RUnlock()
	if !ok {
		return domain.LiveStatus{}, false
	}
	return e.adapter.Status(h), true
}

func (e *Engine) PauseTorrent(hash domain.InfoHash) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.torrents[hash]
	if !ok {
		return nil // silent if unknown
	}
	h, ok := e.handles[hash]
	if !ok {
		return nil
	}
	t.Status = domain.StatusPaused
	t.PausedByUser = true
	return e.adapter.Pause(h)
}

// ResumeTorrent is ignored while metered mode is on.
func (e *Engine) ResumeTorrent(hash domain.InfoHash) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.metered {
		return nil
	}
	t, ok := e.torrents[hash]
	if !ok {
		return nil
	}
	h, ok := e.handles[hash]
	if !ok {
		return nil
	}
	t.PausedByUser = false
	if t.MetadataReady {
		t.Status = domain.StatusReady
	} else {
		t.Status = domain.StatusLoading
	}
	return e.adapter.Resume(h)
}

func (e *Engine) RemoveTorrent(hash domain.InfoHash) error {
	e.mu.Lock()
	t, ok := e.torrents[hash]
	h, hasHandle := e.handles[hash]
	if !ok {
		e.mu.Unlock()
		return nil
	}
	delete(e.torrents, hash)
	delete(e.handles, hash)
	e.mu.Unlock()

	if hasHandle {
		_ = e.adapter.Remove(h)
	}

	saveDir := hash.SaveDir(e.dataDir)
	if err := os.RemoveAll(saveDir); err != nil {
		e.logger.Warn("remove torrent files", "hash", hash, "dir", saveDir, "error", err)
	}
	_ = t
	return nil
}

// SetMeteredMode pauses every running torrent when turned on, and resumes
// every torrent not paused by the user when turned off. Torrents in the error
// state are left as they are either way.
func (e *Engine) SetMeteredMode(on bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.metered == on {
		return
	}
	e.metered = on

	var changed []domain.InfoHash
	for hash, t := range e.torrents {
		h, ok := e.handles[hash]
		if !ok {
			continue
		}
		if on {
			if t.Status != domain.StatusPaused && t.Status != domain.StatusError {
				t.Status = domain.StatusPaused
				_ = e.adapter.Pause(h)
				changed = append(changed, hash)
			}
		} else {
			if !t.PausedByUser && t.Status != domain.StatusError {
				if t.MetadataReady {
					t.Status = domain.StatusReady
				} else {
					t.Status = domain.StatusLoading
				}
				_ = e.adapter.Resume(h)
				changed = append(changed, hash)
			}
		}
	}

	if e.broadcaster != nil {
		for _, hash := range changed {
			go e.broadcast(hash)
		}
	}
}

// CleanupIdle removes every torrent whose last access predates maxAge.
func (e *Engine) CleanupIdle(maxAge time.Duration) {
	if maxAge <= 0 {
		maxAge = defaultIdleMaxAge
	}
	now := time.Now()

	e.mu.RLock()
	var stale []domain.InfoHash
	for hash, t := range e.torrents {
		if now.Sub(t.LastAccessed) > maxAge {
			stale = append(stale, hash)
		}
	}
	e.mu.RUnlock()

	for _, hash := range stale {
		_ = e.RemoveTorrent(hash)
	}
}

// OpenFile returns the Torrent snapshot and the on-disk path of its selected
// file, for the Streaming Proxy to open directly.
func (e *Engine) OpenFile(hash domain.InfoHash) (domain.Torrent, string, error) {
	e.mu.Lock()
	t, ok := e.torrents[hash]
	if !ok {
		e.mu.Unlock()
		return domain.Torrent{}, "", domain.ErrUnknownTorrent
	}
	t.Touch()
	snap := t.Clone()
	e.mu.Unlock()

	if snap.Status == domain.StatusError {
		return snap, "", domain.ErrTorrentError
	}
	if !snap.MetadataReady {
		return snap, "", domain.ErrNotReady
	}

	path := filepath.Join(hash.SaveDir(e.dataDir), snap.SelectedFileName)
	if _, err := os.Stat(path); err != nil {
		return snap, "", domain.ErrNotReady
	}
	return snap, path, nil
}

func (e *Engine) HavePiece(hash domain.InfoHash, piece int) bool {
	e.mu.RLock()
	h, ok := e.handles[hash]
	e.mu.RUnlock()
	if !ok {
		return false
	}
	return e.adapter.HavePiece(h, piece)
}
