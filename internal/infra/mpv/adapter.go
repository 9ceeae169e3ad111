// Package mpv drives playback through a headless mpv process over its
// JSON IPC socket.
package mpv

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/vibefm/vibefm/internal/app/player"
)

// Settings configures the mpv backend.
type Settings struct {
	Binary         string `yaml:"binary" mapstructure:"binary" default:"mpv"`
	SocketPath     string `yaml:"socket_path" mapstructure:"socket_path"`
	StartTimeoutMs int    `yaml:"start_timeout_ms" mapstructure:"start_timeout_ms" default:"5000" validate:"gte=100"`
	AudioOnly      bool   `yaml:"audio_only" mapstructure:"audio_only" default:"true"`
}

// Adapter implements player.Adapter over a spawned mpv instance.
type Adapter struct {
	conn *ipcConn
	cmd  *exec.Cmd

	events    chan player.Event
	closeOnce sync.Once
	done      chan struct{}

	mu       sync.RWMutex
	timePos  float64
	duration float64
	paused   bool
	cached   bool // paused-for-cache
	loaded   bool
	state    player.AdapterState
}

// property observation IDs, echoed back in property-change events.
const (
	obsTimePos = iota + 1
	obsDuration
	obsPause
	obsPausedForCache
)

// New spawns an mpv process with the given settings and attaches to
// its IPC socket.
func New(settings map[string]any) (*Adapter, error) {
	var cfg Settings
	if err := mapstructure.Decode(settings, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}
	if cfg.SocketPath == "" {
		cfg.SocketPath = fmt.Sprintf("%s/vibefm-mpv-%d.sock", os.TempDir(), os.Getpid())
	}

	args := []string{
		"--idle=yes",
		"--no-terminal",
		"--input-ipc-server=" + cfg.SocketPath,
		"--ytdl-format=bestaudio/best",
	}
	if cfg.AudioOnly {
		args = append(args, "--no-video")
	}

	cmd := exec.Command(cfg.Binary, args...)
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "failed to start %s", cfg.Binary)
	}

	conn, err := dialIPC(cfg.SocketPath, time.Duration(cfg.StartTimeoutMs)*time.Millisecond)
	if err != nil {
		_ = cmd.Process.Kill()
		return nil, err
	}

	a := newWithConn(conn)
	a.cmd = cmd
	if err := a.observeProperties(); err != nil {
		_ = a.Close()
		return nil, err
	}

	zlog.Info().Msgf("mpv started pid=%d socket=%s", cmd.Process.Pid, cfg.SocketPath)
	return a, nil
}

// newWithConn attaches to an existing IPC connection. Split from New
// so tests can drive the adapter without a real mpv process.
func newWithConn(conn *ipcConn) *Adapter {
	a := &Adapter{
		conn:   conn,
		events: make(chan player.Event, 16),
		done:   make(chan struct{}),
		state:  player.AdapterStateUnstarted,
	}
	go a.eventLoop()
	return a
}

func (a *Adapter) observeProperties() error {
	for id, name := range map[int]string{
		obsTimePos:        "time-pos",
		obsDuration:       "duration",
		obsPause:          "pause",
		obsPausedForCache: "paused-for-cache",
	} {
		if _, err := a.conn.command("observe_property", id, name); err != nil {
			return errors.Wrapf(err, "failed to observe %s", name)
		}
	}
	return nil
}

// Load starts playback of the given video.
func (a *Adapter) Load(ctx context.Context, videoID string) error {
	if videoID == "" {
		return player.ErrEmptyVideoID
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.Lock()
	a.loaded = false
	a.timePos = 0
	a.duration = 0
	a.setStateLocked(player.AdapterStateBuffering, player.Event{Type: player.EventBuffering})
	a.mu.Unlock()

	url := "https://www.youtube.com/watch?v=" + videoID
	if _, err := a.conn.command("loadfile", url, "replace"); err != nil {
		return errors.Wrapf(err, "failed to load video %s", videoID)
	}
	if _, err := a.conn.command("set_property", "pause", false); err != nil {
		return errors.Wrap(err, "failed to unpause")
	}
	return nil
}

// Play resumes playback.
func (a *Adapter) Play() {
	if _, err := a.conn.command("set_property", "pause", false); err != nil {
		zlog.Warn().Msgf("mpv play failed: %v", err)
	}
}

// Pause pauses playback.
func (a *Adapter) Pause() {
	if _, err := a.conn.command("set_property", "pause", true); err != nil {
		zlog.Warn().Msgf("mpv pause failed: %v", err)
	}
}

// SeekTo jumps to an absolute position in seconds.
func (a *Adapter) SeekTo(seconds float64) {
	if _, err := a.conn.command("seek", seconds, "absolute"); err != nil {
		zlog.Warn().Msgf("mpv seek failed: %v", err)
		return
	}
	a.mu.Lock()
	a.timePos = seconds
	a.mu.Unlock()
}

// SetVolume sets the output volume as a 0-100 percentage.
func (a *Adapter) SetVolume(percent int) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	if _, err := a.conn.command("set_property", "volume", float64(percent)); err != nil {
		zlog.Warn().Msgf("mpv set volume failed: %v", err)
	}
}

// CurrentTime returns the last observed playback position.
func (a *Adapter) CurrentTime() float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.timePos
}

// Duration returns the last observed media duration.
func (a *Adapter) Duration() float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.duration
}

// State returns the current adapter state.
func (a *Adapter) State() player.AdapterState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// Events returns the adapter event stream.
func (a *Adapter) Events() <-chan player.Event {
	return a.events
}

// Close shuts down the IPC connection and the mpv process.
func (a *Adapter) Close() error {
	a.closeOnce.Do(func() {
		_, _ = a.conn.command("quit")
		a.conn.close()
		if a.cmd != nil {
			done := make(chan struct{})
			go func() {
				_ = a.cmd.Wait()
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(2 * time.Second):
				_ = a.cmd.Process.Kill()
				<-done
			}
		}
		<-a.done
		close(a.events)
	})
	return nil
}

func (a *Adapter) eventLoop() {
	defer close(a.done)
	for {
		select {
		case <-a.conn.closed:
			return
		case resp := <-a.conn.events:
			a.handleIPCEvent(resp)
		}
	}
}

func (a *Adapter) handleIPCEvent(resp response) {
	switch resp.Event {
	case "property-change":
		a.handlePropertyChange(resp)
	case "file-loaded":
		a.mu.Lock()
		a.loaded = true
		a.recomputeLocked()
		a.mu.Unlock()
	case "end-file":
		a.handleEndFile(resp)
	case "seek":
		// A seek flushes the cache, playback resumes via playback-restart
		a.mu.Lock()
		if a.loaded {
			a.setStateLocked(player.AdapterStateBuffering, player.Event{Type: player.EventBuffering})
		}
		a.mu.Unlock()
	case "playback-restart":
		a.mu.Lock()
		a.recomputeLocked()
		a.mu.Unlock()
	}
}

func (a *Adapter) handlePropertyChange(resp response) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch resp.Name {
	case "time-pos":
		var v *float64
		if err := json.Unmarshal(resp.Data, &v); err == nil && v != nil {
			a.timePos = *v
		}
	case "duration":
		var v *float64
		if err := json.Unmarshal(resp.Data, &v); err == nil && v != nil {
			a.duration = *v
		}
	case "pause":
		var v bool
		if err := json.Unmarshal(resp.Data, &v); err == nil {
			a.paused = v
			a.recomputeLocked()
		}
	case "paused-for-cache":
		var v bool
		if err := json.Unmarshal(resp.Data, &v); err == nil {
			a.cached = v
			a.recomputeLocked()
		}
	}
}

func (a *Adapter) handleEndFile(resp response) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.loaded = false

	switch resp.Reason {
	case "eof":
		a.setStateLocked(player.AdapterStateEnded, player.Event{Type: player.EventEnded})
	case "error":
		perr := classifyFailure(resp.FileError)
		a.setStateLocked(player.AdapterStateUnstarted, player.Event{Type: player.EventError, Err: perr})
	case "stop", "quit":
		a.setStateLocked(player.AdapterStateUnstarted, player.Event{Type: player.EventUnstarted})
	}
}

// recomputeLocked derives the adapter state from observed flags and
// emits a transition event when it changes.
func (a *Adapter) recomputeLocked() {
	if !a.loaded {
		return
	}
	switch {
	case a.cached:
		a.setStateLocked(player.AdapterStateBuffering, player.Event{Type: player.EventBuffering})
	case a.paused:
		a.setStateLocked(player.AdapterStatePaused, player.Event{Type: player.EventPaused})
	default:
		a.setStateLocked(player.AdapterStatePlaying, player.Event{Type: player.EventPlaying})
	}
}

func (a *Adapter) setStateLocked(s player.AdapterState, ev player.Event) {
	if a.state == s {
		return
	}
	a.state = s
	select {
	case a.events <- ev:
	default:
		zlog.Warn().Msgf("event buffer full, dropping %s", ev.Type)
	}
}
