package apihttp

import (
	"errors"
	"testing"
)

func TestParseByteRange_StartOnly(t *testing.T) {
	start, end, err := parseByteRange("bytes=10-", 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start != 10 || end != 99 {
		t.Errorf("got (%d,%d), want (10,99)", start, end)
	}
}

func TestParseByteRange_StartAndEnd(t *testing.T) {
	start, end, err := parseByteRange("bytes=10-20", 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start != 10 || end != 20 {
		t.Errorf("got (%d,%d), want (10,20)", start, end)
	}
}

func TestParseByteRange_EndClampedToSize(t *testing.T) {
	start, end, err := parseByteRange("bytes=10-1000", 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start != 10 || end != 99 {
		t.Errorf("got (%d,%d), want (10,99) with end clamped", start, end)
	}
}

func TestParseByteRange_SuffixRange(t *testing.T) {
	start, end, err := parseByteRange("bytes=-10", 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start != 90 || end != 99 {
		t.Errorf("got (%d,%d), want (90,99)", start, end)
	}
}

func TestParseByteRange_SuffixLargerThanSize(t *testing.T) {
	start, end, err := parseByteRange("bytes=-1000", 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start != 0 || end != 99 {
		t.Errorf("got (%d,%d), want (0,99)", start, end)
	}
}

func TestParseByteRange_CaseInsensitivePrefix(t *testing.T) {
	_, _, err := parseByteRange("BYTES=0-10", 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseByteRange_InvalidCases(t *testing.T) {
	tests := []struct {
		name  string
		value string
		size  int64
	}{
		{"missing prefix", "0-10", 100},
		{"multi-range rejected", "bytes=0-10,20-30", 100},
		{"empty spec", "bytes=", 100},
		{"non-numeric start", "bytes=a-10", 100},
		{"non-numeric end", "bytes=0-a", 100},
		{"end before start", "bytes=20-10", 100},
		{"both empty", "bytes=-", 100},
		{"zero suffix", "bytes=-0", 100},
		{"zero size resource", "bytes=0-10", 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := parseByteRange(tc.value, tc.size)
			if err == nil {
				t.Errorf("parseByteRange(%q, %d) expected error, got nil", tc.value, tc.size)
			}
		})
	}
}

func TestParseByteRange_StartBeyondSizeIsNotSatisfiable(t *testing.T) {
	_, _, err := parseByteRange("bytes=200-300", 100)
	if !errors.Is(err, errRangeNotSatisfiable) {
		t.Errorf("expected errRangeNotSatisfiable, got %v", err)
	}
}

func TestContentTypeFor_MkvSpecialCased(t *testing.T) {
	if got := contentTypeFor(".mkv"); got != "video/x-matroska" {
		t.Errorf("contentTypeFor(.mkv) = %q, want video/x-matroska", got)
	}
	if got := contentTypeFor(".MKV"); got != "video/x-matroska" {
		t.Errorf("contentTypeFor(.MKV) = %q, want video/x-matroska (case-insensitive)", got)
	}
}

func TestContentTypeFor_UnknownExtensionDefaultsToMP4(t *testing.T) {
	if got := contentTypeFor(".nonexistentext"); got != "video/mp4" {
		t.Errorf("contentTypeFor(.nonexistentext) = %q, want video/mp4", got)
	}
}

func TestFallbackContentType_KnownExtensions(t *testing.T) {
	tests := map[string]string{
		".mp4":  "video/mp4",
		".mkv":  "video/x-matroska",
		".webm": "video/webm",
		".avi":  "video/x-msvideo",
		".mov":  "video/quicktime",
		".m4v":  "video/x-m4v",
		".mp3":  "audio/mpeg",
		".flac": "audio/flac",
		".ogg":  "audio/ogg",
		".xyz":  "video/mp4",
	}
	for ext, want := range tests {
		if got := fallbackContentType(ext); got != want {
			t.Errorf("fallbackContentType(%q) = %q, want %q", ext, got, want)
		}
	}
}
