package anacrolix

import (
	"testing"
	"time"

	"github.com/anacrolix/torrent/types"
)

func TestDeadlinePriority_Tiers(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		want types.PiecePriority
	}{
		{"immediate", 300 * time.Millisecond, types.PiecePriorityNow},
		{"at now boundary", 700 * time.Millisecond, types.PiecePriorityNow},
		{"just past now boundary", 701 * time.Millisecond, types.PiecePriorityNext},
		{"at next boundary", 2 * time.Second, types.PiecePriorityNext},
		{"at high boundary", 4 * time.Second, types.PiecePriorityHigh},
		{"past high boundary", 5 * time.Second, types.PiecePriorityReadahead},
		{"very long", time.Minute, types.PiecePriorityReadahead},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := deadlinePriority(tc.d)
			if got != tc.want {
				t.Errorf("deadlinePriority(%v) = %v, want %v", tc.d, got, tc.want)
			}
		})
	}
}
