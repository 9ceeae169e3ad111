package resolve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibefm/vibefm/internal/app/player"
	"github.com/vibefm/vibefm/internal/domain/track"
)

// fakeSearcher returns a candidate derived from the query, or nothing
// for queries in the empty set.
type fakeSearcher struct {
	empty map[string]bool
	err   error
	calls []string
}

func (f *fakeSearcher) Search(_ context.Context, query string) (*Candidate, error) {
	f.calls = append(f.calls, query)
	if f.err != nil {
		return nil, f.err
	}
	if f.empty[query] {
		return nil, nil
	}
	return &Candidate{VideoID: "vid:" + query, Title: query}, nil
}

func restrictedProbe(accept map[string]bool) player.ProbeFunc {
	return func(_ context.Context, videoID string) error {
		if accept[videoID] {
			return nil
		}
		return &player.AdapterError{Code: player.CodeEmbeddingRestricted, Message: "Video owner does not allow embedding"}
	}
}

func TestQueryVariants_OrderAndDedup(t *testing.T) {
	got := QueryVariants(track.Track{Title: "Test", Artist: "Artist"})

	assert.Equal(t, []string{
		"Artist Test",
		"Test",
		"Test Artist",
		"Test official",
		"Test cover",
		"Test karaoke",
		"Test instrumental",
		"Artist Test live",
		"Test remix",
	}, got)
}

func TestQueryVariants_TitleOnly(t *testing.T) {
	got := QueryVariants(track.Track{Title: "Solo"})

	// "artist title" and "title artist" collapse into the bare title.
	assert.Equal(t, []string{
		"Solo",
		"Solo official",
		"Solo cover",
		"Solo karaoke",
		"Solo instrumental",
		"Solo live",
		"Solo remix",
	}, got)
}

func TestQueryVariants_WhitespaceNormalized(t *testing.T) {
	got := QueryVariants(track.Track{Title: "  Two   Words ", Artist: " The  Band "})
	assert.Equal(t, "The Band Two Words", got[0])
}

func TestQueryVariants_Empty(t *testing.T) {
	assert.Empty(t, QueryVariants(track.Track{}))
}

func TestResolve_FourthVariantAccepted(t *testing.T) {
	searcher := &fakeSearcher{}
	r := New(searcher)

	// Only the "Test official" candidate survives the embed probe.
	probe := restrictedProbe(map[string]bool{"vid:Test official": true})

	res, err := r.Resolve(context.Background(), track.Track{Title: "Test", Artist: "Artist"}, probe)
	require.NoError(t, err)

	assert.Equal(t, "Test official", res.MatchedQuery)
	assert.Equal(t, "vid:Test official", res.VideoID)
	assert.Len(t, res.Attempts, 4, "exactly four probe attempts should be recorded")
	for _, a := range res.Attempts[:3] {
		assert.NotEmpty(t, a.Reason)
	}
	assert.Empty(t, res.Attempts[3].Reason)
}

func TestResolve_FirstVariantAccepted(t *testing.T) {
	searcher := &fakeSearcher{}
	r := New(searcher)

	probe := func(context.Context, string) error { return nil }

	res, err := r.Resolve(context.Background(), track.Track{Title: "Song", Artist: "Band"}, probe)
	require.NoError(t, err)

	assert.Equal(t, "Band Song", res.MatchedQuery)
	assert.Len(t, searcher.calls, 1, "no further searches after acceptance")
}

func TestResolve_AllVariantsExhausted(t *testing.T) {
	searcher := &fakeSearcher{}
	r := New(searcher)

	probe := restrictedProbe(nil)

	res, err := r.Resolve(context.Background(), track.Track{Title: "Test", Artist: "Artist"}, probe)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoMatch)
	assert.Len(t, res.Attempts, 9, "every variant should be recorded")
}

func TestResolve_SearchMissesAreRecorded(t *testing.T) {
	searcher := &fakeSearcher{empty: map[string]bool{"Artist Test": true, "Test": true}}
	r := New(searcher)

	probe := func(context.Context, string) error { return nil }

	res, err := r.Resolve(context.Background(), track.Track{Title: "Test", Artist: "Artist"}, probe)
	require.NoError(t, err)

	assert.Equal(t, "Test Artist", res.MatchedQuery)
	require.Len(t, res.Attempts, 3)
	assert.Equal(t, "no result", res.Attempts[0].Reason)
	assert.Equal(t, "no result", res.Attempts[1].Reason)
}

func TestResolve_ContextCancelAborts(t *testing.T) {
	searcher := &fakeSearcher{}
	r := New(searcher)

	ctx, cancel := context.WithCancel(context.Background())
	probe := func(context.Context, string) error {
		cancel()
		return context.Canceled
	}

	_, err := r.Resolve(ctx, track.Track{Title: "Test", Artist: "Artist"}, probe)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, searcher.calls, 1, "cancellation should stop the variant loop")
}

func TestResolve_NoSearchableText(t *testing.T) {
	r := New(&fakeSearcher{})
	_, err := r.Resolve(context.Background(), track.Track{ID: "x"}, func(context.Context, string) error { return nil })
	assert.Error(t, err)
}
