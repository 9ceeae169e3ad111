package resolve

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/vibefm/vibefm/internal/infra/youtube"
)

// VideoClient defines the search operations needed from the YouTube client.
type VideoClient interface {
	SearchVideos(ctx context.Context, query string) ([]youtube.Video, error)
}

// VideoSearcher adapts the YouTube client to the Searcher interface,
// returning the highest ranked embeddable result for a query.
type VideoSearcher struct {
	client         VideoClient
	maxDurationSec int
}

// NewVideoSearcher creates a searcher over the given client. Videos
// longer than maxDurationSec are deprioritized, not excluded; zero
// disables the limit.
func NewVideoSearcher(client VideoClient, maxDurationSec int) (*VideoSearcher, error) {
	if client == nil {
		return nil, errors.New("video client is required")
	}
	return &VideoSearcher{client: client, maxDurationSec: maxDurationSec}, nil
}

// Search returns the best candidate for the query, or nil when the
// search comes back empty or nothing is embeddable.
func (s *VideoSearcher) Search(ctx context.Context, query string) (*Candidate, error) {
	videos, err := s.client.SearchVideos(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(videos) == 0 {
		return nil, nil
	}

	ranked := youtube.Rank(query, videos, s.maxDurationSec)
	best := ranked[0]
	if !best.Embeddable {
		return nil, nil
	}

	return &Candidate{
		VideoID:     best.ID,
		Title:       best.Title,
		Channel:     best.Channel,
		DurationSec: best.DurationSec,
	}, nil
}
