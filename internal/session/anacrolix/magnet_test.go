package anacrolix

import (
	"strings"
	"testing"

	"torrentstream/internal/domain"
)

func TestBuildMagnet_IncludesInfoHash(t *testing.T) {
	uri := buildMagnet(domain.InfoHash("deadbeefcafebabe"))
	if !strings.HasPrefix(uri, "magnet:?xt=urn:btih:deadbeefcafebabe") {
		t.Errorf("unexpected magnet prefix: %s", uri)
	}
}

func TestBuildMagnet_IncludesAllTrackersInOrder(t *testing.T) {
	uri := buildMagnet(domain.InfoHash("deadbeef"))

	lastIdx := -1
	for _, tr := range trackers {
		idx := strings.Index(uri, "&tr="+tr)
		if idx < 0 {
			t.Fatalf("tracker %q missing from magnet URI", tr)
		}
		if idx < lastIdx {
			t.Fatalf("tracker %q appears out of order", tr)
		}
		lastIdx = idx
	}
}

func TestBuildMagnet_DifferentHashesProduceDifferentURIs(t *testing.T) {
	a := buildMagnet(domain.InfoHash("aaaa"))
	b := buildMagnet(domain.InfoHash("bbbb"))
	if a == b {
		t.Error("expected different magnet URIs for different hashes")
	}
}
