package engine

import (
	"context"
	"time"

	"torrentstream/internal/domain"
	"torrentstream/internal/metrics"
)

const (
	pieceWaitDeadline  = 60 * time.Second
	piecePollInterval  = 500 * time.Millisecond
	reannounceInterval = 5 * time.Second
	prewarmHorizon     = 12
)

// EnsurePiece pre-warms the near
// horizon, poll for completion, and periodically force-reannounce while
// waiting, failing with ErrPieceTimeout after 60 seconds or returning
// ctx.Err() promptly if ctx is cancelled first.
func (e *Engine) EnsurePiece(ctx context.Context, hash domain.InfoHash, piece int) error {
	e.mu.RLock()
	h, ok := e.handles[hash]
	e.mu.RUnlock()
	if !ok {
		return domain.ErrUnknownTorrent
	}

	if e.adapter.HavePiece(h, piece) {
		return nil
	}

	waitStart := time.Now()
	defer func() {
		metrics.PieceWaitDuration.Observe(time.Since(waitStart).Seconds())
	}()

	for i := 0; i <= prewarmHorizon; i++ {
		deadline := 1000*time.Millisecond + time.Duration(i)*250*time.Millisecond
		e.adapter.SetPieceDeadline(h, piece+i, deadline)
	}

	deadlineAt := time.Now().Add(pieceWaitDeadline)
	lastReannounce := time.Now()

	ticker := time.NewTicker(piecePollInterval)
	defer ticker.Stop()

	for {
		if e.adapter.HavePiece(h, piece) {
			return nil
		}
		if time.Now().After(deadlineAt) {
			metrics.PieceTimeoutsTotal.Inc()
			return domain.ErrPieceTimeout
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if time.Since(lastReannounce) >= reannounceInterval {
			e.adapter.ForceReannounce(h)
			lastReannounce = time.Now()
		}
	}
}
