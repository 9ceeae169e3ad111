// Package queue provides pure index navigation over a playback queue.
package queue

import (
	"math/rand"

	"github.com/vibefm/vibefm/internal/domain/track"
)

// NoIndex signals that navigation has no next or previous position.
const NoIndex = -1

// NextIndex computes the index of the track to play after currentIndex.
// Returns NoIndex when playback should stop (end of queue without repeat,
// or a shuffle pool with nothing to pick from).
//
// Repeat-one always returns currentIndex unchanged; the caller is expected
// to restart the same track rather than reload it.
func NextIndex(length, currentIndex int, shuffle bool, repeat track.RepeatMode) int {
	if length == 0 {
		return NoIndex
	}

	if repeat == track.RepeatOne {
		return currentIndex
	}

	if shuffle {
		return shuffleIndex(length, currentIndex)
	}

	next := currentIndex + 1
	if next >= length {
		if repeat == track.RepeatAll {
			return 0
		}
		return NoIndex
	}
	return next
}

// PreviousIndex computes the index of the track before currentIndex.
// Only sequential decrement is supported: shuffle has no meaningful
// "previous". Returns NoIndex at the start of the queue.
func PreviousIndex(length, currentIndex int) int {
	if length == 0 || currentIndex <= 0 {
		return NoIndex
	}
	return currentIndex - 1
}

// shuffleIndex picks a uniformly random index excluding currentIndex.
func shuffleIndex(length, currentIndex int) int {
	if currentIndex < 0 || currentIndex >= length {
		// Nothing to exclude.
		return rand.Intn(length)
	}
	if length <= 1 {
		return NoIndex
	}

	// Pick from [0, length-1) and shift past the excluded slot.
	n := rand.Intn(length - 1)
	if n >= currentIndex {
		n++
	}
	return n
}
