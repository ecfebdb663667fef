package streaming

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"torrentstream/internal/domain"
)

// fakeEngine is a minimal ports.Engine stand-in exercising only what Handle
// needs: OpenFile, HavePiece and EnsurePiece.
type fakeEngine struct {
	snap        domain.Torrent
	path        string
	openErr     error
	havePieces  map[int]bool
	ensureCalls []int
	ensureErr   error
	ensureBlock chan struct{}
}

func (f *fakeEngine) StartTorrent(domain.InfoHash, *int, *int, *int) (domain.Torrent, error) {
	return domain.Torrent{}, nil
}
func (f *fakeEngine) GetState(domain.InfoHash) (domain.Torrent, bool)   { return domain.Torrent{}, false }
func (f *fakeEngine) GetStatus(domain.InfoHash) (domain.LiveStatus, bool) {
	return domain.LiveStatus{}, false
}
func (f *fakeEngine) PauseTorrent(domain.InfoHash) error  { return nil }
func (f *fakeEngine) ResumeTorrent(domain.InfoHash) error { return nil }
func (f *fakeEngine) RemoveTorrent(domain.InfoHash) error { return nil }
func (f *fakeEngine) SetMeteredMode(bool)                 {}
func (f *fakeEngine) CleanupIdle(time.Duration)           {}

func (f *fakeEngine) OpenFile(domain.InfoHash) (domain.Torrent, string, error) {
	if f.openErr != nil {
		return domain.Torrent{}, "", f.openErr
	}
	return f.snap, f.path, nil
}

func (f *fakeEngine) HavePiece(hash domain.InfoHash, piece int) bool {
	if f.havePieces == nil {
		return true
	}
	return f.havePieces[piece]
}

func (f *fakeEngine) EnsurePiece(ctx context.Context, hash domain.InfoHash, piece int) error {
	f.ensureCalls = append(f.ensureCalls, piece)
	if f.ensureBlock != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.ensureBlock:
		}
	}
	if f.ensureErr != nil {
		return f.ensureErr
	}
	if f.havePieces != nil {
		f.havePieces[piece] = true
	}
	return nil
}

func writeTempFile(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "file.bin")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestOpen_PropagatesEngineError(t *testing.T) {
	eng := &fakeEngine{openErr: domain.ErrNotReady}
	_, err := Open(context.Background(), eng, domain.InfoHash("deadbeef"), 0, 10)
	if !errors.Is(err, domain.ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
}

func TestHandle_ReadFullRange(t *testing.T) {
	content := []byte("0123456789")
	path := writeTempFile(t, content)
	eng := &fakeEngine{snap: domain.Torrent{SelectedFileSize: int64(len(content))}, path: path}

	h, err := Open(context.Background(), eng, domain.InfoHash("deadbeef"), 0, int64(len(content)-1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer h.Close()

	got, err := io.ReadAll(h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("got %q, want %q", got, content)
	}
}

func TestHandle_ReadRangeSlice(t *testing.T) {
	content := []byte("0123456789abcdef")
	path := writeTempFile(t, content)
	eng := &fakeEngine{snap: domain.Torrent{SelectedFileSize: int64(len(content))}, path: path}

	h, err := Open(context.Background(), eng, domain.InfoHash("deadbeef"), 4, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer h.Close()

	buf := make([]byte, 64)
	n, err := h.Read(buf)
	if err != nil && err != io.EOF {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(buf[:n]) != "4567" {
		t.Errorf("got %q, want %q", buf[:n], "4567")
	}
	if h.ContentLength() != 4 {
		t.Errorf("ContentLength = %d, want 4", h.ContentLength())
	}
}

func TestHandle_WaitsForMissingPiece(t *testing.T) {
	content := make([]byte, 1024)
	path := writeTempFile(t, content)
	eng := &fakeEngine{
		snap: domain.Torrent{SelectedFileSize: int64(len(content)), PieceLength: 256},
		path: path,
		havePieces: map[int]bool{0: false},
	}

	h, err := Open(context.Background(), eng, domain.InfoHash("deadbeef"), 0, 255)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer h.Close()

	buf := make([]byte, 256)
	_, err = h.Read(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(eng.ensureCalls) != 1 || eng.ensureCalls[0] != 0 {
		t.Errorf("expected EnsurePiece(0) called once, got %v", eng.ensureCalls)
	}
}

func TestHandle_PropagatesEnsurePieceError(t *testing.T) {
	content := make([]byte, 1024)
	path := writeTempFile(t, content)
	eng := &fakeEngine{
		snap:       domain.Torrent{SelectedFileSize: int64(len(content)), PieceLength: 256},
		path:       path,
		havePieces: map[int]bool{0: false},
		ensureErr:  domain.ErrPieceTimeout,
	}

	h, err := Open(context.Background(), eng, domain.InfoHash("deadbeef"), 0, 255)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer h.Close()

	_, err = h.Read(make([]byte, 256))
	if !errors.Is(err, domain.ErrPieceTimeout) {
		t.Fatalf("expected ErrPieceTimeout, got %v", err)
	}
}

func TestHandle_ReadStopsPromptlyOnContextCancellation(t *testing.T) {
	content := make([]byte, 1024)
	path := writeTempFile(t, content)
	eng := &fakeEngine{
		snap:        domain.Torrent{SelectedFileSize: int64(len(content)), PieceLength: 256},
		path:        path,
		havePieces:  map[int]bool{0: false},
		ensureBlock: make(chan struct{}),
	}

	ctx, cancel := context.WithCancel(context.Background())
	h, err := Open(ctx, eng, domain.InfoHash("deadbeef"), 0, 255)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer h.Close()

	done := make(chan error, 1)
	go func() {
		_, err := h.Read(make([]byte, 256))
		done <- err
	}()

	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Read did not return promptly after context cancellation")
	}
}
