// Package track provides the Track domain entity.
package track

// Source identifies the metadata provider a track came from.
type Source string

const (
	SourceITunes   Source = "iTunes"
	SourceSpotify  Source = "Spotify"
	SourcePlaylist Source = "Playlist"
)

// Track represents a playable track entity.
// Immutable once created, except for VideoID which is resolved lazily
// the first time the track is played.
type Track struct {
	ID              string  `json:"id"`                        // Provider-specific track ID
	Title           string  `json:"title"`                     // Track title
	Artist          string  `json:"artist"`                    // Primary artist name
	Album           string  `json:"album,omitempty"`           // Album name
	CoverURL        string  `json:"coverUrl,omitempty"`        // Album art URL
	DurationSeconds float64 `json:"durationSeconds,omitempty"` // Track duration in seconds
	VideoID         string  `json:"videoId,omitempty"`         // Resolved external video ID
	Source          Source  `json:"source"`                    // Metadata provider
}

// IsZero reports whether the track carries no identity.
func (t Track) IsZero() bool {
	return t.ID == ""
}

// WithVideoID returns a copy of the track with the resolved video ID attached.
func (t Track) WithVideoID(videoID string) Track {
	t.VideoID = videoID
	return t
}
