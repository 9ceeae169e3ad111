// Package resolve turns a track's title and artist into a playable
// external video ID.
package resolve

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/vibefm/vibefm/internal/app/player"
	"github.com/vibefm/vibefm/internal/domain/track"
)

// ErrNoMatch is returned when every query variant is exhausted without
// an embeddable candidate.
var ErrNoMatch = errors.New("no embeddable match across all query variants")

// Candidate is a single video search result.
type Candidate struct {
	VideoID     string
	Title       string
	Channel     string
	DurationSec int
}

// Searcher is the external video search capability. A nil candidate
// with a nil error means the search returned nothing for the query.
type Searcher interface {
	Search(ctx context.Context, query string) (*Candidate, error)
}

// Resolver implements player.Resolver. For each query variant it asks
// the searcher for a candidate and probes it through the adapter: a
// search often returns a video the provider disallows embedding, and
// probing cheaply before committing avoids silent playback failure.
type Resolver struct {
	searcher Searcher
}

// New creates a resolver over the given search capability.
func New(searcher Searcher) *Resolver {
	return &Resolver{searcher: searcher}
}

// Resolve tries each query variant in order until a probe accepts a
// candidate. Every variant tried is recorded as one attempt.
func (r *Resolver) Resolve(ctx context.Context, t track.Track, probe player.ProbeFunc) (player.Resolution, error) {
	variants := QueryVariants(t)
	if len(variants) == 0 {
		return player.Resolution{}, errors.Newf("track %q has no searchable title or artist", t.ID)
	}

	attempts := make([]player.Attempt, 0, len(variants))

	for _, q := range variants {
		if err := ctx.Err(); err != nil {
			return player.Resolution{Attempts: attempts}, err
		}

		cand, err := r.searcher.Search(ctx, q)
		if err != nil {
			attempts = append(attempts, player.Attempt{Query: q, Reason: "search failed: " + err.Error()})
			zlog.Debug().Msgf("resolve: search failed: query=%q error=%v", q, err)
			continue
		}
		if cand == nil || cand.VideoID == "" {
			attempts = append(attempts, player.Attempt{Query: q, Reason: "no result"})
			continue
		}

		if err := probe(ctx, cand.VideoID); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return player.Resolution{Attempts: attempts}, err
			}
			attempts = append(attempts, player.Attempt{Query: q, VideoID: cand.VideoID, Reason: err.Error()})
			zlog.Debug().Msgf("resolve: candidate rejected: query=%q video=%s reason=%v", q, cand.VideoID, err)
			continue
		}

		attempts = append(attempts, player.Attempt{Query: q, VideoID: cand.VideoID})
		zlog.Info().Msgf("resolve: candidate accepted: query=%q video=%s attempts=%d", q, cand.VideoID, len(attempts))

		return player.Resolution{
			VideoID:      cand.VideoID,
			MatchedQuery: q,
			Attempts:     attempts,
		}, nil
	}

	zlog.Warn().Msgf("resolve: exhausted all variants: track=%q artist=%q attempts=%d", t.Title, t.Artist, len(attempts))
	return player.Resolution{Attempts: attempts}, errors.Wrapf(ErrNoMatch, "%d variants tried", len(attempts))
}

// QueryVariants builds the ordered list of search queries for a track,
// deduplicated with empty strings removed. Later variants deliberately
// drift away from the original recording (covers, karaoke, live cuts)
// because those uploads are far more often embeddable.
func QueryVariants(t track.Track) []string {
	artist := clean(t.Artist)
	title := clean(t.Title)

	raw := []string{
		join(artist, title),
		title,
		join(title, artist),
	}

	// Suffix variants are meaningless without a title.
	if title != "" {
		raw = append(raw,
			title+" official",
			title+" cover",
			title+" karaoke",
			title+" instrumental",
			join(artist, title)+" live",
			title+" remix",
		)
	}

	return lo.Uniq(lo.Filter(raw, func(q string, _ int) bool { return q != "" }))
}

// clean normalizes whitespace.
func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// join concatenates non-empty parts with single spaces.
func join(parts ...string) string {
	fields := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			fields = append(fields, p)
		}
	}
	return strings.Join(fields, " ")
}
