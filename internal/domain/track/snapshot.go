package track

// RepeatMode represents the queue repeat behavior.
type RepeatMode string

const (
	RepeatNone RepeatMode = "none" // Stop at the end of the queue
	RepeatAll  RepeatMode = "all"  // Wrap to the start of the queue
	RepeatOne  RepeatMode = "one"  // Replay the current track
)

// Valid reports whether the mode is one of the known values.
func (m RepeatMode) Valid() bool {
	switch m {
	case RepeatNone, RepeatAll, RepeatOne:
		return true
	}
	return false
}

// PlayerSnapshot is the persisted slice of session state.
// Transient fields (playback state, cursor position) are deliberately
// absent: a restored session always comes back idle at time zero.
type PlayerSnapshot struct {
	Queue        []Track    `json:"queue"`
	CurrentIndex int        `json:"currentIndex"`
	Volume       float64    `json:"volume"`
	Shuffle      bool       `json:"shuffle"`
	Repeat       RepeatMode `json:"repeat"`
	IsFullScreen bool       `json:"isFullScreen"`
}
