package domain

import "testing"

func TestFile_IsVideo(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"movie.mkv", true},
		{"movie.MP4", true},
		{"show.avi", true},
		{"clip.webm", true},
		{"readme.txt", false},
		{"subtitle.srt", false},
		{"noext", false},
		{"trailing.", false},
		{"archive.tar.gz", false},
	}
	for _, tc := range tests {
		got := File{Path: tc.path}.IsVideo()
		if got != tc.want {
			t.Errorf("File{Path: %q}.IsVideo() = %v, want %v", tc.path, got, tc.want)
		}
	}
}
