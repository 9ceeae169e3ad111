package storage

import (
	"fmt"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibefm/vibefm/internal/domain/track"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(afero.NewMemMapFs(), "/data")
	require.NoError(t, err)
	return s
}

func testTrack(id string) track.Track {
	return track.Track{ID: id, Title: "Title " + id, Artist: "Artist"}
}

func TestStore_ToggleLiked(t *testing.T) {
	s := newTestStore(t)

	liked, err := s.ToggleLiked(testTrack("a"))
	require.NoError(t, err)
	assert.True(t, liked)

	isLiked, err := s.IsLiked("a")
	require.NoError(t, err)
	assert.True(t, isLiked)

	liked, err = s.ToggleLiked(testTrack("a"))
	require.NoError(t, err)
	assert.False(t, liked)

	isLiked, err = s.IsLiked("a")
	require.NoError(t, err)
	assert.False(t, isLiked)
}

func TestStore_LikedTracks_NewestFirst(t *testing.T) {
	s := newTestStore(t)

	for _, id := range []string{"a", "b", "c"} {
		_, err := s.ToggleLiked(testTrack(id))
		require.NoError(t, err)
	}

	tracks, err := s.LikedTracks()
	require.NoError(t, err)
	require.Len(t, tracks, 3)
	assert.Equal(t, "c", tracks[0].ID)
	assert.Equal(t, "a", tracks[2].ID)
}

func TestStore_RecordRecent_MovesDuplicateToFront(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.RecordRecent(testTrack("a")))
	require.NoError(t, s.RecordRecent(testTrack("b")))
	require.NoError(t, s.RecordRecent(testTrack("a")))

	recent, err := s.RecentTracks()
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "a", recent[0].ID)
	assert.Equal(t, "b", recent[1].ID)
}

func TestStore_RecordRecent_CapsAtLimit(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < RecentLimit+10; i++ {
		require.NoError(t, s.RecordRecent(testTrack(fmt.Sprintf("t%03d", i))))
	}

	recent, err := s.RecentTracks()
	require.NoError(t, err)
	require.Len(t, recent, RecentLimit)
	assert.Equal(t, fmt.Sprintf("t%03d", RecentLimit+9), recent[0].ID)
	assert.Equal(t, "t010", recent[RecentLimit-1].ID)
}

func TestStore_Snapshot_RoundTrip(t *testing.T) {
	s := newTestStore(t)

	snap := track.PlayerSnapshot{
		Queue:        []track.Track{testTrack("a"), testTrack("b")},
		CurrentIndex: 1,
		Volume:       0.4,
		Shuffle:      true,
		Repeat:       track.RepeatAll,
	}
	require.NoError(t, s.SaveSnapshot(snap))

	got, err := s.LoadSnapshot()
	require.NoError(t, err)
	assert.Equal(t, snap, got)
}

func TestStore_LoadSnapshot_Missing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.LoadSnapshot()
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestStore_CorruptListRecovers(t *testing.T) {
	fs := afero.NewMemMapFs()
	s, err := New(fs, "/data")
	require.NoError(t, err)

	require.NoError(t, afero.WriteFile(fs, "/data/recent.json", []byte("{not json"), 0644))

	recent, err := s.RecentTracks()
	require.NoError(t, err)
	assert.Empty(t, recent)

	require.NoError(t, s.RecordRecent(testTrack("a")))
	recent, err = s.RecentTracks()
	require.NoError(t, err)
	require.Len(t, recent, 1)
}

func TestStore_EmptyLists(t *testing.T) {
	s := newTestStore(t)

	liked, err := s.LikedTracks()
	require.NoError(t, err)
	assert.Empty(t, liked)

	recent, err := s.RecentTracks()
	require.NoError(t, err)
	assert.Empty(t, recent)
}
