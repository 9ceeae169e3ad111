// Package player provides playback session control over an external
// embedded player.
package player

import (
	"context"

	"github.com/cockroachdb/errors"
)

// ErrEmptyVideoID is returned by Load when no video ID is provided.
var ErrEmptyVideoID = errors.New("no video ID provided")

// AdapterState represents the underlying player's reported state.
type AdapterState int

const (
	AdapterStateUnknown   AdapterState = iota // Player not ready or state unavailable
	AdapterStateUnstarted                     // Video loaded but not started
	AdapterStatePlaying                       // Video is playing
	AdapterStatePaused                        // Video is paused
	AdapterStateBuffering                     // Playback stalled pending data
	AdapterStateEnded                         // Video finished
	AdapterStateCued                          // Video cued, waiting for play
)

// String returns the string representation of the adapter state.
func (s AdapterState) String() string {
	switch s {
	case AdapterStateUnstarted:
		return "unstarted"
	case AdapterStatePlaying:
		return "playing"
	case AdapterStatePaused:
		return "paused"
	case AdapterStateBuffering:
		return "buffering"
	case AdapterStateEnded:
		return "ended"
	case AdapterStateCued:
		return "cued"
	default:
		return "unknown"
	}
}

// EventType represents an adapter lifecycle event type.
type EventType int

const (
	EventReady     EventType = iota // Player became ready for commands
	EventPlaying                    // Playback started or resumed
	EventPaused                     // Playback paused
	EventBuffering                  // Playback stalled pending data
	EventEnded                      // Current video finished
	EventCued                       // Video loaded but not playing
	EventUnstarted                  // Video has not started yet
	EventError                      // Player reported an error
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventReady:
		return "ready"
	case EventPlaying:
		return "playing"
	case EventPaused:
		return "paused"
	case EventBuffering:
		return "buffering"
	case EventEnded:
		return "ended"
	case EventCued:
		return "cued"
	case EventUnstarted:
		return "unstarted"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// ErrorCode classifies adapter errors.
type ErrorCode int

const (
	CodeUnknown             ErrorCode = iota // Unclassified player error
	CodeInvalidVideo                         // Malformed or rejected video ID
	CodePlayerFailure                        // Internal player failure
	CodeNotFound                             // Video not found or private
	CodeEmbeddingRestricted                  // Owner disallows embedded playback
)

// AdapterError represents a classified error reported by the player.
type AdapterError struct {
	Code    ErrorCode
	Message string
}

// Error implements the error interface.
func (e *AdapterError) Error() string {
	return e.Message
}

// Restricted reports whether the error is an embedding restriction.
// Restriction errors trigger resolver fallback rather than surfacing
// to the user.
func (e *AdapterError) Restricted() bool {
	return e.Code == CodeEmbeddingRestricted
}

// IsEmbeddingRestricted reports whether err carries an embedding
// restriction code.
func IsEmbeddingRestricted(err error) bool {
	var ae *AdapterError
	return errors.As(err, &ae) && ae.Restricted()
}

// Event represents a single adapter lifecycle transition.
// Err is set only for EventError.
type Event struct {
	Type EventType
	Err  *AdapterError
}

// Adapter wraps a third-party embedded player. Implementations surface
// player failures as error events, never as panics; transport commands
// are fire-and-forget no-ops until the player is ready.
type Adapter interface {
	// Load loads a video and begins playback. Fails fast when videoID
	// is empty or the player rejects it before any ready signal.
	Load(ctx context.Context, videoID string) error

	Play()
	Pause()
	SeekTo(seconds float64)
	// SetVolume accepts a percentage in [0, 100].
	SetVolume(percent int)

	// Best-effort cached values: zero / AdapterStateUnknown before
	// the player is ready.
	CurrentTime() float64
	Duration() float64
	State() AdapterState

	// Events returns the adapter's event stream. The channel is closed
	// when the adapter shuts down.
	Events() <-chan Event

	Close() error
}
