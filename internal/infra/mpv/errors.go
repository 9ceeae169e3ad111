package mpv

import (
	"strings"

	"github.com/vibefm/vibefm/internal/app/player"
)

// Load failures surface as free-text yt-dlp or demuxer messages.
// Marker lists map the common ones onto stable error codes.
var (
	restrictionMarkers = []string{
		"not available in your country",
		"not made this video available",
		"blocked it in your country",
		"age-restricted",
		"sign in to confirm",
		"embedding disabled",
	}
	notFoundMarkers = []string{
		"video unavailable",
		"private video",
		"has been removed",
		"does not exist",
	}
	invalidMarkers = []string{
		"is not a valid url",
		"incomplete youtube id",
		"unsupported url",
	}
)

// classifyFailure maps an mpv end-file error message to a typed
// player error.
func classifyFailure(msg string) *player.AdapterError {
	lower := strings.ToLower(msg)

	code := player.CodePlayerFailure
	switch {
	case containsAny(lower, restrictionMarkers):
		code = player.CodeEmbeddingRestricted
	case containsAny(lower, notFoundMarkers):
		code = player.CodeNotFound
	case containsAny(lower, invalidMarkers):
		code = player.CodeInvalidVideo
	case msg == "":
		code = player.CodeUnknown
		msg = "playback failed without a reason"
	}

	return &player.AdapterError{Code: code, Message: msg}
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
