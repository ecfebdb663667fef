package domain

import "time"

// WatchPosition is a supplemental, additive record of where playback of one
// file within a torrent last stopped. It is UI convenience state, not
// download-resume state: losing it never affects streaming or selection.
type WatchPosition struct {
	InfoHash  InfoHash  `json:"infoHash" bson:"infoHash"`
	FileIndex int       `json:"fileIndex" bson:"fileIndex"`
	Position  float64   `json:"position" bson:"position"` // seconds
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}
