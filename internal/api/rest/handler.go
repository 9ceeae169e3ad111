// Package rest exposes the playback session and library over plain
// JSON HTTP endpoints.
package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/vibefm/vibefm/internal/app/player"
	"github.com/vibefm/vibefm/internal/app/resolve"
	"github.com/vibefm/vibefm/internal/domain/track"
)

// PlayerService defines the session operations the API drives.
type PlayerService interface {
	PlayTrack(ctx context.Context, t track.Track, q []track.Track, startIndex int) error
	TogglePlayPause()
	PlayNext(ctx context.Context) error
	PlayPrevious(ctx context.Context) error
	SeekTo(seconds float64)
	SetVolume(v float64)
	ToggleShuffle() bool
	ToggleRepeat() track.RepeatMode
	ToggleFullScreen() bool
	AddToQueue(t track.Track)
	RemoveFromQueue(index int) error
	State() player.State
	CurrentTrack() (track.Track, bool)
	Queue() ([]track.Track, int)
	IsPlaying() bool
	IsBuffering() bool
	Volume() float64
	CurrentTime() float64
	Duration() float64
	LastError() string
	Shuffle() bool
	Repeat() track.RepeatMode
}

// Library defines the persisted library operations the API exposes.
type Library interface {
	ToggleLiked(t track.Track) (bool, error)
	IsLiked(trackID string) (bool, error)
	LikedTracks() ([]track.Track, error)
	RecentTracks() ([]track.Track, error)
}

// Searcher finds the best video candidate for a free-form query.
type Searcher interface {
	Search(ctx context.Context, query string) (*resolve.Candidate, error)
}

// Handler serves the REST control surface.
type Handler struct {
	session  PlayerService
	library  Library
	searcher Searcher
}

// New creates a REST handler over the given collaborators.
func New(session PlayerService, library Library, searcher Searcher) *Handler {
	return &Handler{session: session, library: library, searcher: searcher}
}

// Register attaches all routes to the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/player/state", h.handleState)
	mux.HandleFunc("POST /api/player/play", h.handlePlay)
	mux.HandleFunc("POST /api/player/toggle", h.handleToggle)
	mux.HandleFunc("POST /api/player/next", h.handleNext)
	mux.HandleFunc("POST /api/player/previous", h.handlePrevious)
	mux.HandleFunc("POST /api/player/seek", h.handleSeek)
	mux.HandleFunc("POST /api/player/volume", h.handleVolume)
	mux.HandleFunc("POST /api/player/shuffle", h.handleShuffle)
	mux.HandleFunc("POST /api/player/repeat", h.handleRepeat)
	mux.HandleFunc("POST /api/player/fullscreen", h.handleFullScreen)
	mux.HandleFunc("POST /api/player/queue", h.handleQueueAdd)
	mux.HandleFunc("DELETE /api/player/queue/{index}", h.handleQueueRemove)
	mux.HandleFunc("GET /api/youtube", h.handleYouTube)
	mux.HandleFunc("GET /api/liked", h.handleLikedList)
	mux.HandleFunc("POST /api/liked/toggle", h.handleLikedToggle)
	mux.HandleFunc("GET /api/liked/{id}", h.handleLikedCheck)
	mux.HandleFunc("GET /api/recent", h.handleRecent)
}

// stateResponse is the full player state document.
type stateResponse struct {
	State        string           `json:"state"`
	Track        *track.Track     `json:"track,omitempty"`
	Queue        []track.Track    `json:"queue"`
	CurrentIndex int              `json:"currentIndex"`
	IsPlaying    bool             `json:"isPlaying"`
	IsBuffering  bool             `json:"isBuffering"`
	CurrentTime  float64          `json:"currentTime"`
	Duration     float64          `json:"duration"`
	Volume       float64          `json:"volume"`
	Shuffle      bool             `json:"shuffle"`
	Repeat       track.RepeatMode `json:"repeat"`
	LastError    string           `json:"lastError,omitempty"`
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	queue, idx := h.session.Queue()
	resp := stateResponse{
		State:        h.session.State().String(),
		Queue:        emptyAsList(queue),
		CurrentIndex: idx,
		IsPlaying:    h.session.IsPlaying(),
		IsBuffering:  h.session.IsBuffering(),
		CurrentTime:  h.session.CurrentTime(),
		Duration:     h.session.Duration(),
		Volume:       h.session.Volume(),
		Shuffle:      h.session.Shuffle(),
		Repeat:       h.session.Repeat(),
		LastError:    h.session.LastError(),
	}
	if t, ok := h.session.CurrentTrack(); ok {
		resp.Track = &t
	}
	writeJSON(w, http.StatusOK, resp)
}

type playRequest struct {
	Track track.Track   `json:"track"`
	Queue []track.Track `json:"queue"`
	// A pointer distinguishes an absent startIndex from an explicit 0;
	// absent means "locate the track in the queue".
	StartIndex *int `json:"startIndex"`
}

func (h *Handler) handlePlay(w http.ResponseWriter, r *http.Request) {
	var req playRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Track.ID == "" {
		writeError(w, http.StatusBadRequest, errors.New("track id is required"))
		return
	}

	startIndex := -1
	if req.StartIndex != nil {
		startIndex = *req.StartIndex
	}
	if err := h.session.PlayTrack(r.Context(), req.Track, req.Queue, startIndex); err != nil {
		if errors.Is(err, player.ErrNoResolution) {
			writeError(w, http.StatusUnprocessableEntity, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.handleState(w, r)
}

func (h *Handler) handleToggle(w http.ResponseWriter, r *http.Request) {
	h.session.TogglePlayPause()
	h.handleState(w, r)
}

func (h *Handler) handleNext(w http.ResponseWriter, r *http.Request) {
	if err := h.session.PlayNext(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.handleState(w, r)
}

func (h *Handler) handlePrevious(w http.ResponseWriter, r *http.Request) {
	if err := h.session.PlayPrevious(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.handleState(w, r)
}

func (h *Handler) handleSeek(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Seconds float64 `json:"seconds"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	h.session.SeekTo(req.Seconds)
	h.handleState(w, r)
}

func (h *Handler) handleVolume(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Volume float64 `json:"volume"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	h.session.SetVolume(req.Volume)
	h.handleState(w, r)
}

func (h *Handler) handleShuffle(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"shuffle": h.session.ToggleShuffle()})
}

func (h *Handler) handleRepeat(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]track.RepeatMode{"repeat": h.session.ToggleRepeat()})
}

func (h *Handler) handleFullScreen(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"isFullScreen": h.session.ToggleFullScreen()})
}

func (h *Handler) handleQueueAdd(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Track track.Track `json:"track"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Track.ID == "" {
		writeError(w, http.StatusBadRequest, errors.New("track id is required"))
		return
	}
	h.session.AddToQueue(req.Track)
	h.handleState(w, r)
}

func (h *Handler) handleQueueRemove(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("index must be an integer"))
		return
	}
	if err := h.session.RemoveFromQueue(index); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	h.handleState(w, r)
}

// youtubeResponse mirrors the search contract: a matched video or an
// empty object when nothing was found.
type youtubeResponse struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title,omitempty"`
	Channel     string `json:"channel,omitempty"`
	DurationSec int    `json:"durationSec,omitempty"`
}

func (h *Handler) handleYouTube(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, errors.New("q parameter is required"))
		return
	}

	c, err := h.searcher.Search(r.Context(), query)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	if c == nil {
		writeJSON(w, http.StatusOK, youtubeResponse{})
		return
	}
	writeJSON(w, http.StatusOK, youtubeResponse{
		ID:          c.VideoID,
		Title:       c.Title,
		Channel:     c.Channel,
		DurationSec: c.DurationSec,
	})
}

func (h *Handler) handleLikedList(w http.ResponseWriter, r *http.Request) {
	tracks, err := h.library.LikedTracks()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyAsList(tracks))
}

func (h *Handler) handleLikedToggle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Track track.Track `json:"track"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Track.ID == "" {
		writeError(w, http.StatusBadRequest, errors.New("track id is required"))
		return
	}

	liked, err := h.library.ToggleLiked(req.Track)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"liked": liked})
}

func (h *Handler) handleLikedCheck(w http.ResponseWriter, r *http.Request) {
	liked, err := h.library.IsLiked(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"liked": liked})
}

func (h *Handler) handleRecent(w http.ResponseWriter, r *http.Request) {
	tracks, err := h.library.RecentTracks()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, emptyAsList(tracks))
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Wrap(err, "invalid request body")
	}
	return nil
}

// emptyAsList keeps empty collections serializing as [] instead of null.
func emptyAsList(tracks []track.Track) []track.Track {
	if tracks == nil {
		return []track.Track{}
	}
	return tracks
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zlog.Error().Msgf("failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	zlog.Warn().Msgf("request failed status=%d: %v", status, err)
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
