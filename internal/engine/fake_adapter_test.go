package engine

import (
	"sync"
	"time"

	"torrentstream/internal/domain"
	"torrentstream/internal/domain/ports"
)

// fakeHandle is the Handle a fakeAdapter hands back from AddMagnet.
type fakeHandle struct {
	hash domain.InfoHash
}

func (h fakeHandle) InfoHash() domain.InfoHash { return h.hash }

// fakeAdapter is a scriptable ports.SessionAdapter for exercising the Engine
// without a real torrent session.
type fakeAdapter struct {
	mu sync.Mutex

	started bool
	events  chan ports.Event

	addMagnetErr error
	fileStorage  map[domain.InfoHash]ports.FileStorage
	metadataReady map[domain.InfoHash]bool

	havePieces map[domain.InfoHash]map[int]bool
	reannounceCount int
	pauseCalls      int
	resumeCalls     int
	removeCalls     int

	sequentialRanges map[domain.InfoHash][2]int
	deadlines        map[domain.InfoHash]map[int]time.Duration
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{
		events:           make(chan ports.Event, 16),
		fileStorage:      make(map[domain.InfoHash]ports.FileStorage),
		metadataReady:    make(map[domain.InfoHash]bool),
		havePieces:       make(map[domain.InfoHash]map[int]bool),
		sequentialRanges: make(map[domain.InfoHash][2]int),
		deadlines:        make(map[domain.InfoHash]map[int]time.Duration),
	}
}

func (a *fakeAdapter) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.started = true
	return nil
}

func (a *fakeAdapter) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started {
		close(a.events)
		a.started = false
	}
	return nil
}

func (a *fakeAdapter) AddMagnet(hash domain.InfoHash, saveDir string) (ports.Handle, error) {
	if a.addMagnetErr != nil {
		return nil, a.addMagnetErr
	}
	return fakeHandle{hash: hash}, nil
}

func (a *fakeAdapter) Find(hash domain.InfoHash) (ports.Handle, bool) {
	return fakeHandle{hash: hash}, true
}

func (a *fakeAdapter) setFileStorage(hash domain.InfoHash, fs ports.FileStorage) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.fileStorage[hash] = fs
	a.metadataReady[hash] = true
}

func (a *fakeAdapter) FileStorage(h ports.Handle) (ports.FileStorage, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fs, ok := a.fileStorage[h.InfoHash()]
	return fs, ok
}

func (a *fakeAdapter) PrioritizeFiles(h ports.Handle, defaultFileIndex int) {}

func (a *fakeAdapter) SetSequentialRange(h ports.Handle, first, last int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sequentialRanges[h.InfoHash()] = [2]int{first, last}
}

func (a *fakeAdapter) SetSequentialFlag(h ports.Handle, on bool) {}

func (a *fakeAdapter) SetPieceDeadline(h ports.Handle, piece int, d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	m, ok := a.deadlines[h.InfoHash()]
	if !ok {
		m = make(map[int]time.Duration)
		a.deadlines[h.InfoHash()] = m
	}
	m[piece] = d
}

func (a *fakeAdapter) HavePiece(h ports.Handle, piece int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	pieces, ok := a.havePieces[h.InfoHash()]
	if !ok {
		return false
	}
	return pieces[piece]
}

func (a *fakeAdapter) setHavePiece(hash domain.InfoHash, piece int, have bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	pieces, ok := a.havePieces[hash]
	if !ok {
		pieces = make(map[int]bool)
		a.havePieces[hash] = pieces
	}
	pieces[piece] = have
}

func (a *fakeAdapter) Pause(h ports.Handle) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pauseCalls++
	return nil
}

func (a *fakeAdapter) Resume(h ports.Handle) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.resumeCalls++
	return nil
}

func (a *fakeAdapter) Remove(h ports.Handle) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.removeCalls++
	return nil
}

func (a *fakeAdapter) ForceReannounce(h ports.Handle) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reannounceCount++
}

func (a *fakeAdapter) Status(h ports.Handle) domain.LiveStatus {
	return domain.LiveStatus{}
}

func (a *fakeAdapter) Events() <-chan ports.Event {
	return a.events
}

func (a *fakeAdapter) emit(ev ports.Event) {
	a.events <- ev
}
