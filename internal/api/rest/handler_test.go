package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibefm/vibefm/internal/app/player"
	"github.com/vibefm/vibefm/internal/app/resolve"
	"github.com/vibefm/vibefm/internal/domain/track"
)

// fakeSession records calls and serves canned state.
type fakeSession struct {
	calls   []string
	playErr error
	track   *track.Track
	queue   []track.Track
	index   int
	seeks   []float64
	volumes []float64
	removed []int
	rmErr   error
}

func (f *fakeSession) PlayTrack(_ context.Context, t track.Track, q []track.Track, startIndex int) error {
	f.calls = append(f.calls, "play:"+t.ID)
	if f.playErr != nil {
		return f.playErr
	}
	f.track = &t
	f.queue = q
	f.index = startIndex
	return nil
}

func (f *fakeSession) TogglePlayPause()                  { f.calls = append(f.calls, "toggle") }
func (f *fakeSession) PlayNext(context.Context) error    { f.calls = append(f.calls, "next"); return nil }
func (f *fakeSession) PlayPrevious(context.Context) error { f.calls = append(f.calls, "prev"); return nil }
func (f *fakeSession) SeekTo(s float64)                  { f.seeks = append(f.seeks, s) }
func (f *fakeSession) SetVolume(v float64)               { f.volumes = append(f.volumes, v) }
func (f *fakeSession) ToggleShuffle() bool               { return true }
func (f *fakeSession) ToggleRepeat() track.RepeatMode    { return track.RepeatAll }
func (f *fakeSession) ToggleFullScreen() bool            { return true }
func (f *fakeSession) AddToQueue(t track.Track)          { f.queue = append(f.queue, t) }
func (f *fakeSession) RemoveFromQueue(i int) error {
	f.removed = append(f.removed, i)
	return f.rmErr
}
func (f *fakeSession) State() player.State { return player.StatePlaying }
func (f *fakeSession) CurrentTrack() (track.Track, bool) {
	if f.track == nil {
		return track.Track{}, false
	}
	return *f.track, true
}
func (f *fakeSession) Queue() ([]track.Track, int) { return f.queue, f.index }
func (f *fakeSession) IsPlaying() bool             { return true }
func (f *fakeSession) IsBuffering() bool           { return false }
func (f *fakeSession) Volume() float64             { return 0.7 }
func (f *fakeSession) CurrentTime() float64        { return 12.5 }
func (f *fakeSession) Duration() float64           { return 180 }
func (f *fakeSession) LastError() string           { return "" }
func (f *fakeSession) Shuffle() bool               { return false }
func (f *fakeSession) Repeat() track.RepeatMode    { return track.RepeatNone }

type fakeLibrary struct {
	liked  []track.Track
	recent []track.Track
	err    error
}

func (f *fakeLibrary) ToggleLiked(t track.Track) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.liked = append([]track.Track{t}, f.liked...)
	return true, nil
}
func (f *fakeLibrary) IsLiked(id string) (bool, error) {
	for _, t := range f.liked {
		if t.ID == id {
			return true, nil
		}
	}
	return false, f.err
}
func (f *fakeLibrary) LikedTracks() ([]track.Track, error)  { return f.liked, f.err }
func (f *fakeLibrary) RecentTracks() ([]track.Track, error) { return f.recent, f.err }

type fakeRestSearcher struct {
	candidate *resolve.Candidate
	err       error
}

func (f *fakeRestSearcher) Search(context.Context, string) (*resolve.Candidate, error) {
	return f.candidate, f.err
}

func newTestServer(t *testing.T, s *fakeSession, lib *fakeLibrary, search *fakeRestSearcher) *httptest.Server {
	t.Helper()
	if s == nil {
		s = &fakeSession{}
	}
	if lib == nil {
		lib = &fakeLibrary{}
	}
	if search == nil {
		search = &fakeRestSearcher{}
	}
	mux := http.NewServeMux()
	New(s, lib, search).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func TestHandleState(t *testing.T) {
	s := &fakeSession{
		track: &track.Track{ID: "a", Title: "Song"},
		queue: []track.Track{{ID: "a"}, {ID: "b"}},
		index: 0,
	}
	srv := newTestServer(t, s, nil, nil)

	resp, body := doJSON(t, "GET", srv.URL+"/api/player/state", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "playing", body["state"])
	assert.Equal(t, 12.5, body["currentTime"])
	assert.Equal(t, 180.0, body["duration"])
	assert.Len(t, body["queue"], 2)
}

func TestHandleState_EmptyQueueIsList(t *testing.T) {
	srv := newTestServer(t, nil, nil, nil)

	resp, body := doJSON(t, "GET", srv.URL+"/api/player/state", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	queue, ok := body["queue"].([]any)
	require.True(t, ok, "queue must serialize as a JSON array")
	assert.Empty(t, queue)
	assert.NotContains(t, body, "track")
}

func TestHandlePlay(t *testing.T) {
	s := &fakeSession{}
	srv := newTestServer(t, s, nil, nil)

	resp, _ := doJSON(t, "POST", srv.URL+"/api/player/play",
		`{"track":{"id":"a","title":"Song"},"queue":[{"id":"a"},{"id":"b"}],"startIndex":0}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"play:a"}, s.calls)
}

func TestHandlePlay_StartIndex(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{
			name: "absent index means locate the track",
			body: `{"track":{"id":"c"},"queue":[{"id":"a"},{"id":"b"},{"id":"c"}]}`,
			want: -1,
		},
		{
			name: "explicit zero is honored",
			body: `{"track":{"id":"a"},"queue":[{"id":"a"},{"id":"b"}],"startIndex":0}`,
			want: 0,
		},
		{
			name: "explicit index passes through",
			body: `{"track":{"id":"b"},"queue":[{"id":"a"},{"id":"b"}],"startIndex":1}`,
			want: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &fakeSession{}
			srv := newTestServer(t, s, nil, nil)

			resp, _ := doJSON(t, "POST", srv.URL+"/api/player/play", tt.body)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, tt.want, s.index)
		})
	}
}

func TestHandlePlay_MissingTrackID(t *testing.T) {
	srv := newTestServer(t, nil, nil, nil)

	resp, body := doJSON(t, "POST", srv.URL+"/api/player/play", `{"track":{}}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "track id")
}

func TestHandlePlay_ResolutionFailure(t *testing.T) {
	s := &fakeSession{playErr: player.ErrNoResolution}
	srv := newTestServer(t, s, nil, nil)

	resp, body := doJSON(t, "POST", srv.URL+"/api/player/play", `{"track":{"id":"a"}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.NotEmpty(t, body["error"])
}

func TestHandleSeekAndVolume(t *testing.T) {
	s := &fakeSession{}
	srv := newTestServer(t, s, nil, nil)

	resp, _ := doJSON(t, "POST", srv.URL+"/api/player/seek", `{"seconds":42.5}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, "POST", srv.URL+"/api/player/volume", `{"volume":0.3}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, []float64{42.5}, s.seeks)
	assert.Equal(t, []float64{0.3}, s.volumes)
}

func TestHandleTransportCommands(t *testing.T) {
	s := &fakeSession{}
	srv := newTestServer(t, s, nil, nil)

	for _, path := range []string{"toggle", "next", "previous"} {
		resp, _ := doJSON(t, "POST", srv.URL+"/api/player/"+path, "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}
	assert.Equal(t, []string{"toggle", "next", "prev"}, s.calls)
}

func TestHandleModeToggles(t *testing.T) {
	srv := newTestServer(t, nil, nil, nil)

	resp, body := doJSON(t, "POST", srv.URL+"/api/player/shuffle", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["shuffle"])

	resp, body = doJSON(t, "POST", srv.URL+"/api/player/repeat", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "all", body["repeat"])

	resp, body = doJSON(t, "POST", srv.URL+"/api/player/fullscreen", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["isFullScreen"])
}

func TestHandleQueueRemove(t *testing.T) {
	s := &fakeSession{queue: []track.Track{{ID: "a"}, {ID: "b"}}}
	srv := newTestServer(t, s, nil, nil)

	resp, _ := doJSON(t, "DELETE", srv.URL+"/api/player/queue/1", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []int{1}, s.removed)

	resp, body := doJSON(t, "DELETE", srv.URL+"/api/player/queue/x", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "integer")
}

func TestHandleYouTube(t *testing.T) {
	search := &fakeRestSearcher{candidate: &resolve.Candidate{
		VideoID: "vid1", Title: "Song", Channel: "Artist - Topic", DurationSec: 200,
	}}
	srv := newTestServer(t, nil, nil, search)

	resp, body := doJSON(t, "GET", srv.URL+"/api/youtube?q=song", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "vid1", body["id"])
	assert.Equal(t, 200.0, body["durationSec"])
}

func TestHandleYouTube_NoMatchIsEmptyObject(t *testing.T) {
	srv := newTestServer(t, nil, nil, &fakeRestSearcher{})

	resp, body := doJSON(t, "GET", srv.URL+"/api/youtube?q=song", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body)
}

func TestHandleYouTube_MissingQuery(t *testing.T) {
	srv := newTestServer(t, nil, nil, nil)

	resp, body := doJSON(t, "GET", srv.URL+"/api/youtube", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "q parameter")
}

func TestHandleLiked(t *testing.T) {
	lib := &fakeLibrary{}
	srv := newTestServer(t, nil, lib, nil)

	resp, body := doJSON(t, "POST", srv.URL+"/api/liked/toggle", `{"track":{"id":"a","title":"Song"}}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["liked"])

	resp, body = doJSON(t, "GET", srv.URL+"/api/liked/a", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["liked"])

	req, err := http.NewRequest("GET", srv.URL+"/api/liked", nil)
	require.NoError(t, err)
	listResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer listResp.Body.Close()
	var tracks []track.Track
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&tracks))
	require.Len(t, tracks, 1)
	assert.Equal(t, "a", tracks[0].ID)
}

func TestHandleRecent_ErrorShape(t *testing.T) {
	lib := &fakeLibrary{err: assert.AnError}
	srv := newTestServer(t, nil, lib, nil)

	resp, body := doJSON(t, "GET", srv.URL+"/api/recent", "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.NotEmpty(t, body["error"])
}
