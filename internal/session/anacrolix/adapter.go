// Package anacrolix implements the Session Adapter on top of
// github.com/anacrolix/torrent, the only place in this module that imports
// that library.
package anacrolix

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/anacrolix/torrent"
	"github.com/anacrolix/torrent/storage"
	"github.com/anacrolix/torrent/types"

	"torrentstream/internal/domain"
	"torrentstream/internal/domain/ports"
)

// defaultMaxConns is restored when a paused torrent resumes.
const defaultMaxConns = 35

const addMagnetTimeout = 10 * time.Second

var errNotStarted = errors.New("session adapter not started")

type sequentialRange struct{ first, last int }

// speedSample is the previous Stats() observation for a torrent, used to
// derive a download rate from the delta between two calls to Status.
type speedSample struct {
	at        time.Time
	bytesRead int64
}

// Adapter is the Session Adapter: a thin, library-agnostic facade over a
// single process-wide *torrent.Client: a global singleton in practice, one
// per running engine.
type Adapter struct {
	logger *slog.Logger
	dataDir string

	mu       sync.RWMutex
	client   *torrent.Client
	handles  map[domain.InfoHash]*handle
	seqRange map[domain.InfoHash]sequentialRange
	events   chan ports.Event

	speedMu sync.Mutex
	speeds  map[domain.InfoHash]speedSample
}

func New(dataDir string, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		logger:   logger,
		dataDir:  dataDir,
		handles:  make(map[domain.InfoHash]*handle),
		seqRange: make(map[domain.InfoHash]sequentialRange),
		speeds:   make(map[domain.InfoHash]speedSample),
	}
}

// Start is idempotent: calling it twice reuses the existing client.
func (a *Adapter) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.client != nil {
		return nil
	}

	cfg := torrent.NewDefaultClientConfig()
	if a.dataDir != "" {
		cfg.DataDir = a.dataDir
	}

	client, err := torrent.NewClient(cfg)
	if err != nil {
		return err
	}

	a.client = client
	a.events = make(chan ports.Event, 64)
	return nil
}

func (a *Adapter) Stop() error {
	a.mu.Lock()
	client := a.client
	a.client = nil
	events := a.events
	a.events = nil
	a.mu.Unlock()

	if client == nil {
		return nil
	}
	errs := client.Close()
	if events != nil {
		close(events)
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

func (a *Adapter) Events() <-chan ports.Event {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.events
}

type addMagnetResult struct {
	t   *torrent.Torrent
	err error
}

// AddMagnet builds the magnet URI and attaches the torrent. The underlying
// library call can block on an internal client mutex under swarm pressure,
// so it runs in a goroutine bounded by addMagnetTimeout; a late-arriving
// result after timeout is dropped from the session immediately.
func (a *Adapter) AddMagnet(hash domain.InfoHash, saveDir string) (ports.Handle, error) {
	a.mu.RLock()
	client := a.client
	a.mu.RUnlock()
	if client == nil {
		return nil, domain.ErrEngineStopped
	}

	if h, ok := a.Find(hash); ok {
		return h, nil
	}

	uri := buildMagnet(hash)

	resultCh := make(chan addMagnetResult, 1)
	go func() {
		spec, err := torrent.TorrentSpecFromMagnetUri(uri)
		if err != nil {
			resultCh <- addMagnetResult{err: err}
			return
		}
		if saveDir != "" {
			spec.Storage = storage.NewFile(saveDir)
		}
		t, _, err := client.AddTorrentSpec(spec)
		resultCh <- addMagnetResult{t: t, err: err}
	}()

	select {
	case res := <-resultCh:
		if res.err != nil {
			return nil, res.err
		}
		return a.registerHandle(hash, res.t), nil
	case <-time.After(addMagnetTimeout):
		go func() {
			res := <-resultCh
			if res.t != nil {
				res.t.Drop()
			}
		}()
		return nil, context.DeadlineExceeded
	}
}

func (a *Adapter) registerHandle(hash domain.InfoHash, t *torrent.Torrent) *handle {
	h := &handle{t: t, hash: hash}
	a.mu.Lock()
	a.handles[hash] = h
	a.mu.Unlock()
	go a.watchMetadata(h)
	return h
}

// watchMetadata dispatches a single MetadataReceived event once the torrent's
// info arrives. anacrolix's GotInfo channel fires once per torrent lifetime,
// but the Engine treats MetadataReceived as idempotent regardless per
// redeliveries of MetadataReceived are harmless.
func (a *Adapter) watchMetadata(h *handle) {
	select {
	case <-h.t.GotInfo():
		a.emit(ports.Event{Kind: ports.EventMetadataReceived, InfoHash: h.hash})
	case <-h.t.Closed():
	}
}

func (a *Adapter) emit(ev ports.Event) {
	a.mu.RLock()
	ch := a.events
	a.mu.RUnlock()
	if ch == nil {
		return
	}
	select {
	case ch <- ev:
	default:
		a.logger.Warn("session adapter event dropped, channel full", "kind", ev.Kind, "hash", ev.InfoHash)
	}
}

func (a *Adapter) Find(hash domain.InfoHash) (ports.Handle, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	h, ok := a.handles[hash]
	if !ok {
		return nil, false
	}
	return h, true
}

func (a *Adapter) FileStorage(h ports.Handle) (ports.FileStorage, bool) {
	hh, ok := h.(*handle)
	if !ok || hh.t == nil {
		return ports.FileStorage{}, false
	}
	select {
	case <-hh.t.GotInfo():
	default:
		return ports.FileStorage{}, false
	}

	files := hh.t.Files()
	out := make([]domain.File, len(files))
	for i, f := range files {
		out[i] = domain.File{Index: i, Path: f.Path(), Size: f.Length(), Offset: f.Offset()}
	}
	return ports.FileStorage{
		Files:       out,
		PieceLength: hh.t.Info().PieceLength,
		NumPieces:   hh.t.NumPieces(),
	}, true
}

func (a *Adapter) PrioritizeFiles(h ports.Handle, defaultFileIndex int) {
	hh, ok := h.(*handle)
	if !ok || hh.t == nil {
		return
	}
	files := hh.t.Files()
	for i, f := range files {
		if i == defaultFileIndex {
			f.SetPriority(types.PiecePriorityNormal)
		} else {
			f.SetPriority(types.PiecePriorityNone)
		}
	}
}

func (a *Adapter) SetSequentialRange(h ports.Handle, first, last int) {
	hh, ok := h.(*handle)
	if !ok || hh.t == nil {
		return
	}
	a.mu.Lock()
	a.seqRange[hh.hash] = sequentialRange{first: first, last: last}
	a.mu.Unlock()
	a.biasRange(hh.t, first, last, types.PiecePriorityReadahead)
}

// SetSequentialFlag toggles the readahead bias over the last-recorded
// sequential range. anacrolix/torrent has no boolean "sequential mode", so
// this is expressed purely as a swarm-facing piece-priority bias, independent
// of the Streaming Proxy, which reads the selected file from disk directly.
func (a *Adapter) SetSequentialFlag(h ports.Handle, on bool) {
	hh, ok := h.(*handle)
	if !ok || hh.t == nil {
		return
	}
	a.mu.RLock()
	r, have := a.seqRange[hh.hash]
	a.mu.RUnlock()
	if !have {
		return
	}
	if on {
		a.biasRange(hh.t, r.first, r.last, types.PiecePriorityReadahead)
	} else {
		a.biasRange(hh.t, r.first, r.last, types.PiecePriorityNormal)
	}
}

func (a *Adapter) biasRange(t *torrent.Torrent, first, last int, prio types.PiecePriority) {
	numPieces := t.NumPieces()
	if first < 0 {
		first = 0
	}
	if last >= numPieces {
		last = numPieces - 1
	}
	for i := first; i <= last; i++ {
		t.Piece(i).SetPriority(prio)
	}
}

func (a *Adapter) SetPieceDeadline(h ports.Handle, piece int, d time.Duration) {
	hh, ok := h.(*handle)
	if !ok || hh.t == nil {
		return
	}
	if piece < 0 || piece >= hh.t.NumPieces() {
		return
	}
	hh.t.Piece(piece).SetPriority(deadlinePriority(d))
}

func (a *Adapter) HavePiece(h ports.Handle, piece int) bool {
	hh, ok := h.(*handle)
	if !ok || hh.t == nil {
		return false
	}
	if piece < 0 || piece >= hh.t.NumPieces() {
		return false
	}
	return hh.t.PieceState(piece).Complete
}

func (a *Adapter) Pause(h ports.Handle) error {
	hh, ok := h.(*handle)
	if !ok || hh.t == nil {
		return errNotStarted
	}
	hh.t.DisallowDataDownload()
	hh.t.SetMaxEstablishedConns(0)
	return nil
}

func (a *Adapter) Resume(h ports.Handle) error {
	hh, ok := h.(*handle)
	if !ok || hh.t == nil {
		return errNotStarted
	}
	hh.t.AllowDataDownload()
	hh.t.SetMaxEstablishedConns(defaultMaxConns)
	return nil
}

func (a *Adapter) Remove(h ports.Handle) error {
	hh, ok := h.(*handle)
	if !ok || hh.t == nil {
		return errNotStarted
	}
	hh.t.Drop()
	a.mu.Lock()
	delete(a.handles, hh.hash)
	delete(a.seqRange, hh.hash)
	a.mu.Unlock()
	a.forgetSpeed(hh.hash)
	return nil
}

// forgetSpeed drops the speed sample kept for hash, so a later AddMagnet of
// the same hash doesn't see a stale previous sample from a prior session.
func (a *Adapter) forgetSpeed(hash domain.InfoHash) {
	a.speedMu.Lock()
	delete(a.speeds, hash)
	a.speedMu.Unlock()
}

// sampleSpeed derives a download rate in bytes/sec from the delta in
// BytesReadUsefulData between this call and the previous one for hash. The
// first call for a hash has no prior sample and reports zero.
func (a *Adapter) sampleSpeed(hash domain.InfoHash, bytesRead int64, now time.Time) int64 {
	a.speedMu.Lock()
	defer a.speedMu.Unlock()

	prev, ok := a.speeds[hash]
	a.speeds[hash] = speedSample{at: now, bytesRead: bytesRead}
	if !ok {
		return 0
	}

	dt := now.Sub(prev.at).Seconds()
	if dt <= 0 {
		return 0
	}
	delta := bytesRead - prev.bytesRead
	if delta < 0 {
		delta = 0
	}
	return int64(float64(delta) / dt)
}

// ForceReannounce nudges the library to re-contact trackers. anacrolix has
// no dedicated reannounce call; re-adding the fixed tracker list triggers
// the library's own announce-to-new-tracker path immediately.
func (a *Adapter) ForceReannounce(h ports.Handle) {
	hh, ok := h.(*handle)
	if !ok || hh.t == nil {
		return
	}
	hh.t.AddTrackers([][]string{trackers})
}

func (a *Adapter) Status(h ports.Handle) domain.LiveStatus {
	hh, ok := h.(*handle)
	if !ok || hh.t == nil {
		return domain.LiveStatus{}
	}

	hasMetadata := false
	select {
	case <-hh.t.GotInfo():
		hasMetadata = true
	default:
	}

	stats := hh.t.Stats()
	rate := a.sampleSpeed(hh.hash, stats.BytesReadUsefulData.Int64(), time.Now())
	status := domain.LiveStatus{
		Peers:           stats.ActivePeers,
		Seeds:           stats.ConnectedSeeders,
		DownloadRateBps: rate,
		HasMetadata:     hasMetadata,
	}
	if hasMetadata {
		length := hh.t.Length()
		if length > 0 {
			status.Progress = float64(hh.t.BytesCompleted()) / float64(length)
		}
	}
	return status
}
