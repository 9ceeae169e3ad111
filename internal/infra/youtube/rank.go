package youtube

import (
	"sort"
	"strings"

	"github.com/xrash/smetrics"
)

// rankedVideo pairs a video with its relevance score.
type rankedVideo struct {
	video Video
	score float64
}

// channel suffixes and title markers that usually indicate an official
// audio upload rather than a fan edit.
var officialMarkers = []string{"official audio", "official video", "official music video", "lyric video", "audio"}

// title markers for altered versions that sound nothing like the
// original recording.
var alteredMarkers = []string{"sped up", "slowed", "nightcore", "8d audio", "reverb", "live at", "reaction"}

// Rank orders search results by how well they match the query.
// Textual similarity dominates; upload heuristics nudge official audio
// above fan edits and drop implausibly long videos to the bottom.
func Rank(query string, videos []Video, maxDurationSec int) []Video {
	ranked := make([]rankedVideo, 0, len(videos))
	for _, v := range videos {
		ranked = append(ranked, rankedVideo{video: v, score: score(query, v, maxDurationSec)})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	out := make([]Video, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, r.video)
	}
	return out
}

func score(query string, v Video, maxDurationSec int) float64 {
	q := normalize(query)
	title := normalize(v.Title)
	channel := normalize(v.Channel)

	s := smetrics.JaroWinkler(q, title, 0.7, 4)

	// Auto-generated artist channels host the canonical recording
	if strings.HasSuffix(v.Channel, "- Topic") {
		s += 0.15
	}
	for _, m := range officialMarkers {
		if strings.Contains(title, m) || strings.Contains(channel, m) {
			s += 0.05
			break
		}
	}
	for _, m := range alteredMarkers {
		if strings.Contains(title, m) {
			s -= 0.3
			break
		}
	}
	if maxDurationSec > 0 && v.DurationSec > maxDurationSec {
		s -= 0.5
	}
	if !v.Embeddable {
		s -= 1.0
	}

	return s
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
