package player

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/vibefm/vibefm/internal/app/queue"
	"github.com/vibefm/vibefm/internal/domain/track"
)

// ErrNoResolution wraps every resolution failure surfaced by PlayTrack.
var ErrNoResolution = errors.New("no embeddable video found")

// State represents the playback session state.
type State int

const (
	StateIdle      State = iota // Nothing loaded or playback stopped
	StateLoading                // Resolving and loading a track
	StatePlaying                // Track is playing
	StatePaused                 // Track is paused
	StateBuffering              // Playback stalled pending data
	StateEnded                  // Current track finished
	StateError                  // Last operation failed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateBuffering:
		return "buffering"
	case StateEnded:
		return "ended"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Attempt records the outcome of one resolution query variant.
// Attempts are ephemeral: they exist only for the duration of a single
// play request.
type Attempt struct {
	Query   string // The query variant tried
	VideoID string // Candidate video ID, if the search returned one
	Reason  string // Rejection reason, empty for the accepted attempt
}

// Resolution is the successful outcome of resolving a track to a
// playable video.
type Resolution struct {
	VideoID      string
	MatchedQuery string
	Attempts     []Attempt
}

// ProbeFunc loads a candidate video and reports whether it is playable.
// A nil return accepts the candidate; an embedding-restriction error
// rejects it and moves the resolver to the next query variant.
type ProbeFunc func(ctx context.Context, videoID string) error

// Resolver turns a track's title/artist into a playable video ID.
type Resolver interface {
	Resolve(ctx context.Context, t track.Track, probe ProbeFunc) (Resolution, error)
}

// Config holds session configuration.
type Config struct {
	ProbeTimeout     time.Duration // Wait for embedding errors during a probe (default 1s)
	ProgressInterval time.Duration // Progress poll interval (default 500ms)
	SeekGrace        time.Duration // Re-check window after an optimistic seek buffer (default 250ms)
	InitialVolume    float64       // Starting volume in [0, 1] (default 0.7)

	// RecordRecent, when set, is invoked with the previously playing
	// track each time the session switches to a different track.
	RecordRecent func(track.Track)
}

func (c *Config) applyDefaults() {
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = time.Second
	}
	if c.ProgressInterval <= 0 {
		c.ProgressInterval = 500 * time.Millisecond
	}
	if c.SeekGrace <= 0 {
		c.SeekGrace = 250 * time.Millisecond
	}
	if c.InitialVolume <= 0 || c.InitialVolume > 1 {
		c.InitialVolume = 0.7
	}
}

// Session owns the single logical "now playing" context: queue, index,
// mode flags and current playback status. It exclusively owns its
// Adapter; no other component issues commands to it.
type Session struct {
	mu sync.RWMutex

	adapter  Adapter
	resolver Resolver
	config   Config

	// Queue state
	tracks       []track.Track
	currentIndex int
	current      *track.Track

	// Playback state
	state         State
	playing       bool
	buffering     bool
	shuffle       bool
	repeat        track.RepeatMode
	volume        float64
	isFullScreen  bool
	lastKnownTime float64
	lastError     string

	// Stale-request guard: a resolution result is applied only if its
	// token still matches the latest one.
	requestToken uint64

	// Probe watcher: while a probe is in flight, error events are
	// forwarded here as well as being handled normally.
	probeErrCh chan *AdapterError

	graceCancel func()

	// Subscribers
	progress  *ProgressPublisher
	playHub   *flagHub
	bufferHub *flagHub

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSession creates a session owning the given adapter and starts its
// event dispatch loop.
func NewSession(adapter Adapter, resolver Resolver, cfg Config) *Session {
	cfg.applyDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	s := &Session{
		adapter:      adapter,
		resolver:     resolver,
		config:       cfg,
		tracks:       make([]track.Track, 0),
		currentIndex: queue.NoIndex,
		state:        StateIdle,
		repeat:       track.RepeatNone,
		volume:       cfg.InitialVolume,
		progress:     NewProgressPublisher(adapter, cfg.ProgressInterval),
		playHub:      newFlagHub(),
		bufferHub:    newFlagHub(),
		ctx:          ctx,
		cancel:       cancel,
		done:         make(chan struct{}),
	}

	// Track the playback cursor from published progress samples.
	s.progress.Subscribe(func(currentTime, _ float64) {
		s.mu.Lock()
		s.lastKnownTime = currentTime
		s.mu.Unlock()
	})

	go s.eventLoop()

	return s
}

// PlayTrack resolves t to a playable video and starts playback.
// When t is already the current track this degenerates to
// TogglePlayPause and the adapter is not reloaded. q replaces the
// session queue when non-nil; startIndex < 0 means "locate t in q".
func (s *Session) PlayTrack(ctx context.Context, t track.Track, q []track.Track, startIndex int) error {
	s.mu.Lock()
	if s.current != nil && s.current.ID == t.ID {
		s.mu.Unlock()
		s.TogglePlayPause()
		return nil
	}

	s.requestToken++
	token := s.requestToken
	s.state = StateLoading
	s.buffering = true
	s.clearGraceLocked()
	s.mu.Unlock()

	s.bufferHub.Set(true)

	res, err := s.resolver.Resolve(ctx, t, s.probe)

	s.mu.Lock()
	if s.requestToken != token {
		s.mu.Unlock()
		zlog.Debug().Msgf("player: discarding stale resolution: track=%s token=%d", t.Title, token)
		return nil
	}

	if err != nil {
		// No partial mutation: previous track and queue stay intact.
		s.lastError = err.Error()
		s.playing = false
		s.buffering = false
		s.state = StateIdle
		s.mu.Unlock()

		s.playHub.Set(false)
		s.bufferHub.Set(false)
		zlog.Warn().Msgf("player: resolution failed: track=%s artist=%s error=%v", t.Title, t.Artist, err)
		return errors.Wrapf(ErrNoResolution, "track %q by %q: %v", t.Title, t.Artist, err)
	}

	prev := s.current
	resolved := t.WithVideoID(res.VideoID)
	if q != nil {
		s.tracks = append([]track.Track(nil), q...)
	} else {
		s.tracks = []track.Track{resolved}
	}
	if startIndex >= 0 && startIndex < len(s.tracks) {
		s.currentIndex = startIndex
	} else {
		s.currentIndex = indexOf(s.tracks, t.ID)
	}
	if s.currentIndex != queue.NoIndex {
		// Keep the queue entry consistent with the cached current track.
		s.tracks[s.currentIndex] = resolved
	}
	s.current = &resolved
	s.lastKnownTime = 0
	s.lastError = ""
	record := s.config.RecordRecent
	s.mu.Unlock()

	zlog.Info().Msgf("player: now loading: track=%s artist=%s video=%s query=%q",
		t.Title, t.Artist, res.VideoID, res.MatchedQuery)

	if record != nil && prev != nil {
		record(*prev)
	}

	// The accepted probe load is the playback load; the adapter's
	// playing/buffering events finalize the state from here.
	s.adapter.SetVolume(int(math.Round(s.Volume() * 100)))
	return nil
}

// probe loads a candidate into the adapter and waits for an
// embedding-restriction error. The wait window is a heuristic, not a
// guarantee: a slow restriction error can still slip past it.
func (s *Session) probe(ctx context.Context, videoID string) error {
	ch := make(chan *AdapterError, 1)
	s.mu.Lock()
	s.probeErrCh = ch
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		// A newer probe may have registered its own channel while this
		// one was in flight; only clear the registration we still own.
		if s.probeErrCh == ch {
			s.probeErrCh = nil
		}
		s.mu.Unlock()
	}()

	if err := s.adapter.Load(ctx, videoID); err != nil {
		return err
	}

	timer := time.NewTimer(s.config.ProbeTimeout)
	defer timer.Stop()

	select {
	case aerr := <-ch:
		if aerr.Restricted() {
			return aerr
		}
		// Non-restriction errors within the window do not reject the
		// candidate; the session error handling deals with them.
		return nil
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TogglePlayPause flips the playing flag. The flag and subscribers are
// updated before the adapter command is issued so the UI reflects
// intent immediately; the adapter's event feed is the final authority
// and corrects the flag if the command fails.
func (s *Session) TogglePlayPause() {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return
	}
	target := !s.playing
	s.playing = target
	if target {
		s.state = StatePlaying
	} else {
		s.state = StatePaused
	}
	s.mu.Unlock()

	s.playHub.Set(target)
	if target {
		s.adapter.Play()
	} else {
		s.adapter.Pause()
	}
}

// PlayNext advances to the next track according to the shuffle and
// repeat modes. Repeat-one restarts the current track from zero without
// changing the index. At the end of the queue without repeat the
// session stops and keeps the index unchanged.
func (s *Session) PlayNext(ctx context.Context) error {
	s.mu.RLock()
	length := len(s.tracks)
	current := s.currentIndex
	shuffle := s.shuffle
	repeat := s.repeat
	s.mu.RUnlock()

	if length == 0 {
		return nil
	}

	if repeat == track.RepeatOne {
		s.adapter.SeekTo(0)
		s.adapter.Play()
		return nil
	}

	next := queue.NextIndex(length, current, shuffle, repeat)
	if next == queue.NoIndex {
		s.mu.Lock()
		s.playing = false
		s.buffering = false
		s.state = StateIdle
		s.mu.Unlock()

		s.progress.Stop()
		s.playHub.Set(false)
		s.bufferHub.Set(false)
		return nil
	}

	s.mu.RLock()
	t := s.tracks[next]
	q := append([]track.Track(nil), s.tracks...)
	s.mu.RUnlock()

	return s.PlayTrack(ctx, t, q, next)
}

// PlayPrevious steps back to the previous track in queue order.
// No-op at the start of the queue.
func (s *Session) PlayPrevious(ctx context.Context) error {
	s.mu.RLock()
	length := len(s.tracks)
	current := s.currentIndex
	s.mu.RUnlock()

	prev := queue.PreviousIndex(length, current)
	if prev == queue.NoIndex {
		return nil
	}

	s.mu.RLock()
	t := s.tracks[prev]
	q := append([]track.Track(nil), s.tracks...)
	s.mu.RUnlock()

	return s.PlayTrack(ctx, t, q, prev)
}

// SeekTo seeks to the given position, clamped to [0, duration], and
// republishes the new time immediately rather than waiting for the
// adapter's own lagging time updates. Most seeks briefly rebuffer, so
// buffering is set optimistically and re-checked after a grace window.
func (s *Session) SeekTo(seconds float64) {
	dur := s.adapter.Duration()
	if dur < 0 || math.IsNaN(dur) {
		dur = 0
	}
	clamped := math.Max(0, math.Min(seconds, dur))

	s.adapter.SeekTo(clamped)

	s.mu.Lock()
	s.lastKnownTime = clamped
	s.buffering = true
	if s.state == StatePlaying || s.state == StatePaused {
		s.state = StateBuffering
	}
	s.clearGraceLocked()
	s.graceCancel = s.afterGrace()
	s.mu.Unlock()

	s.progress.Publish(clamped, dur)
	s.bufferHub.Set(true)
}

// afterGrace schedules the post-seek state re-check. Returns the cancel
// function; caller holds the lock.
func (s *Session) afterGrace() func() {
	timer := time.AfterFunc(s.config.SeekGrace, func() {
		if s.adapter.State() == AdapterStateBuffering {
			return // the adapter's buffering event will take it from here
		}
		s.mu.Lock()
		s.buffering = false
		if s.state == StateBuffering {
			if s.playing {
				s.state = StatePlaying
			} else {
				s.state = StatePaused
			}
		}
		s.mu.Unlock()
		s.bufferHub.Set(false)
	})
	return func() { timer.Stop() }
}

// SetVolume sets the volume, clamped to [0, 1].
func (s *Session) SetVolume(v float64) {
	v = math.Max(0, math.Min(v, 1))
	s.adapter.SetVolume(int(math.Round(v * 100)))

	s.mu.Lock()
	s.volume = v
	s.mu.Unlock()
}

// ToggleShuffle flips shuffle mode and returns the new value.
func (s *Session) ToggleShuffle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shuffle = !s.shuffle
	return s.shuffle
}

// ToggleRepeat cycles the repeat mode none -> all -> one -> none and
// returns the new mode.
func (s *Session) ToggleRepeat() track.RepeatMode {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.repeat {
	case track.RepeatNone:
		s.repeat = track.RepeatAll
	case track.RepeatAll:
		s.repeat = track.RepeatOne
	default:
		s.repeat = track.RepeatNone
	}
	return s.repeat
}

// ToggleFullScreen flips the persisted full-screen flag.
func (s *Session) ToggleFullScreen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isFullScreen = !s.isFullScreen
	return s.isFullScreen
}

// AddToQueue appends a track to the end of the queue.
func (s *Session) AddToQueue(t track.Track) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracks = append(s.tracks, t)
}

// RemoveFromQueue removes the track at the given index. Removing a
// track before the current one shifts the index down; removing the
// current one resets it.
func (s *Session) RemoveFromQueue(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.tracks) {
		return errors.Newf("queue index %d out of range", index)
	}

	s.tracks = append(s.tracks[:index], s.tracks[index+1:]...)
	switch {
	case index < s.currentIndex:
		s.currentIndex--
	case index == s.currentIndex:
		s.currentIndex = queue.NoIndex
	}
	return nil
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// CurrentTrack returns the current track.
func (s *Session) CurrentTrack() (track.Track, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return track.Track{}, false
	}
	return *s.current, true
}

// Queue returns a copy of the queue and the current index.
func (s *Session) Queue() ([]track.Track, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]track.Track(nil), s.tracks...), s.currentIndex
}

// IsPlaying returns the playing flag.
func (s *Session) IsPlaying() bool {
	return s.playHub.Value()
}

// IsBuffering returns the buffering flag.
func (s *Session) IsBuffering() bool {
	return s.bufferHub.Value()
}

// Volume returns the current volume in [0, 1].
func (s *Session) Volume() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.volume
}

// CurrentTime returns the best-effort playback cursor in seconds.
func (s *Session) CurrentTime() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastKnownTime
}

// Duration returns the adapter's best-effort media duration in seconds.
func (s *Session) Duration() float64 {
	return s.adapter.Duration()
}

// LastError returns the diagnostic for the most recent failure, empty
// when the last operation succeeded.
func (s *Session) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

// Shuffle returns the shuffle flag.
func (s *Session) Shuffle() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.shuffle
}

// Repeat returns the repeat mode.
func (s *Session) Repeat() track.RepeatMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.repeat
}

// SubscribeProgress attaches a progress listener.
func (s *Session) SubscribeProgress(fn ProgressFunc) func() {
	return s.progress.Subscribe(fn)
}

// SubscribePlayState attaches a play-state listener. The listener is
// invoked synchronously with the current value.
func (s *Session) SubscribePlayState(fn func(bool)) func() {
	return s.playHub.Subscribe(fn)
}

// SubscribeBuffering attaches a buffering-state listener. The listener
// is invoked synchronously with the current value.
func (s *Session) SubscribeBuffering(fn func(bool)) func() {
	return s.bufferHub.Subscribe(fn)
}

// Snapshot captures the persistable slice of session state. Transient
// fields (playback state, cursor) are excluded.
func (s *Session) Snapshot() track.PlayerSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return track.PlayerSnapshot{
		Queue:        append([]track.Track(nil), s.tracks...),
		CurrentIndex: s.currentIndex,
		Volume:       s.volume,
		Shuffle:      s.shuffle,
		Repeat:       s.repeat,
		IsFullScreen: s.isFullScreen,
	}
}

// Restore applies a persisted snapshot. The session always comes back
// idle at time zero; nothing is loaded into the adapter until the next
// PlayTrack.
func (s *Session) Restore(snap track.PlayerSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tracks = append([]track.Track(nil), snap.Queue...)
	if snap.CurrentIndex >= 0 && snap.CurrentIndex < len(s.tracks) {
		s.currentIndex = snap.CurrentIndex
	} else {
		s.currentIndex = queue.NoIndex
	}
	if snap.Volume > 0 && snap.Volume <= 1 {
		s.volume = snap.Volume
	}
	s.shuffle = snap.Shuffle
	if snap.Repeat.Valid() {
		s.repeat = snap.Repeat
	}
	s.isFullScreen = snap.IsFullScreen
	s.state = StateIdle
	s.playing = false
	s.buffering = false
	s.lastKnownTime = 0
	s.current = nil
}

// Close shuts down the session and its adapter.
func (s *Session) Close() error {
	s.cancel()
	s.progress.Stop()

	s.mu.Lock()
	s.clearGraceLocked()
	s.mu.Unlock()

	<-s.done
	return s.adapter.Close()
}

func (s *Session) eventLoop() {
	defer close(s.done)

	for {
		select {
		case <-s.ctx.Done():
			return
		case ev, ok := <-s.adapter.Events():
			if !ok {
				return
			}
			s.handleEvent(ev)
		}
	}
}

func (s *Session) handleEvent(ev Event) {
	switch ev.Type {
	case EventReady:
		zlog.Debug().Msg("player: adapter ready")

	case EventPlaying:
		s.mu.Lock()
		s.playing = true
		s.buffering = false
		s.state = StatePlaying
		s.lastError = ""
		s.clearGraceLocked()
		s.mu.Unlock()

		s.playHub.Set(true)
		s.bufferHub.Set(false)
		s.progress.Start()

	case EventPaused:
		s.mu.Lock()
		s.playing = false
		s.buffering = false
		s.state = StatePaused
		s.clearGraceLocked()
		s.mu.Unlock()

		s.playHub.Set(false)
		s.bufferHub.Set(false)
		s.progress.Stop()

	case EventBuffering:
		s.mu.Lock()
		s.buffering = true
		s.state = StateBuffering
		s.mu.Unlock()

		s.bufferHub.Set(true)
		// Stop progress while buffering to prevent desync.
		s.progress.Stop()

	case EventEnded:
		s.mu.Lock()
		s.playing = false
		s.buffering = false
		s.state = StateEnded
		s.clearGraceLocked()
		s.mu.Unlock()

		s.playHub.Set(false)
		s.bufferHub.Set(false)
		s.progress.Stop()

		// Auto-advance is unconditional. Run outside the event loop so
		// the in-flight resolution can still observe adapter events.
		go func() {
			if err := s.PlayNext(s.ctx); err != nil {
				zlog.Warn().Msgf("player: auto-advance failed: %v", err)
			}
		}()

	case EventCued, EventUnstarted:
		s.mu.Lock()
		s.buffering = false
		if s.state == StateBuffering {
			if s.playing {
				s.state = StatePlaying
			} else {
				s.state = StatePaused
			}
		}
		s.mu.Unlock()

		s.bufferHub.Set(false)

	case EventError:
		s.mu.Lock()
		if s.probeErrCh != nil && ev.Err != nil {
			select {
			case s.probeErrCh <- ev.Err:
			default:
			}
		}
		s.playing = false
		s.buffering = false
		s.state = StateError
		if ev.Err != nil {
			s.lastError = ev.Err.Message
		}
		s.clearGraceLocked()
		s.mu.Unlock()

		s.playHub.Set(false)
		s.bufferHub.Set(false)
		s.progress.Stop()
		if ev.Err != nil {
			zlog.Warn().Msgf("player: adapter error: code=%d message=%s", ev.Err.Code, ev.Err.Message)
		}
	}
}

// clearGraceLocked cancels the pending seek grace timer.
// Must be called with the lock held.
func (s *Session) clearGraceLocked() {
	if s.graceCancel != nil {
		s.graceCancel()
		s.graceCancel = nil
	}
}

func indexOf(tracks []track.Track, id string) int {
	for i, t := range tracks {
		if t.ID == id {
			return i
		}
	}
	return queue.NoIndex
}
