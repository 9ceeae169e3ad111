package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrack_WithVideoID(t *testing.T) {
	orig := Track{ID: "123", Title: "Test", Artist: "Artist", Source: SourceITunes}

	resolved := orig.WithVideoID("abc123")

	assert.Equal(t, "abc123", resolved.VideoID)
	assert.Empty(t, orig.VideoID, "original track should not be mutated")
	assert.Equal(t, orig.ID, resolved.ID)
}

func TestRepeatMode_Valid(t *testing.T) {
	tests := []struct {
		mode  RepeatMode
		valid bool
	}{
		{RepeatNone, true},
		{RepeatAll, true},
		{RepeatOne, true},
		{RepeatMode("shuffle"), false},
		{RepeatMode(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.mode.Valid())
		})
	}
}
