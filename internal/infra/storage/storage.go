// Package storage persists library state as JSON files on an afero
// filesystem, swappable for an in-memory one in tests.
package storage

import (
	"encoding/json"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"github.com/spf13/afero"
	zlog "github.com/rs/zerolog/log"

	"github.com/vibefm/vibefm/internal/domain/track"
)

// RecentLimit caps the recently played list.
const RecentLimit = 50

const (
	likedFile    = "liked.json"
	recentFile   = "recent.json"
	snapshotFile = "snapshot.json"
)

// ErrNoSnapshot is returned when no player snapshot has been saved yet.
var ErrNoSnapshot = errors.New("no snapshot saved")

// Store persists liked tracks, playback history and the player
// snapshot under a single directory.
type Store struct {
	fs  afero.Afero
	dir string
	mu  sync.Mutex
}

// New creates a store rooted at dir, creating it if needed.
func New(fs afero.Fs, dir string) (*Store, error) {
	a := afero.Afero{Fs: fs}
	if err := a.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "failed to create storage dir %s", dir)
	}
	return &Store{fs: a, dir: dir}, nil
}

// ToggleLiked flips a track's liked status and reports the new value.
func (s *Store) ToggleLiked(t track.Track) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	liked, err := s.readTracks(likedFile)
	if err != nil {
		return false, err
	}

	if _, idx, ok := lo.FindIndexOf(liked, func(x track.Track) bool { return x.ID == t.ID }); ok {
		liked = append(liked[:idx], liked[idx+1:]...)
		return false, s.writeJSON(likedFile, liked)
	}

	// Newest first
	liked = append([]track.Track{t}, liked...)
	return true, s.writeJSON(likedFile, liked)
}

// IsLiked reports whether the track is in the liked list.
func (s *Store) IsLiked(trackID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	liked, err := s.readTracks(likedFile)
	if err != nil {
		return false, err
	}
	return lo.ContainsBy(liked, func(x track.Track) bool { return x.ID == trackID }), nil
}

// LikedTracks returns all liked tracks, most recently liked first.
func (s *Store) LikedTracks() ([]track.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readTracks(likedFile)
}

// RecordRecent pushes a track to the front of the recently played
// list, deduplicating by ID and trimming to RecentLimit.
func (s *Store) RecordRecent(t track.Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recent, err := s.readTracks(recentFile)
	if err != nil {
		return err
	}

	recent = lo.Reject(recent, func(x track.Track, _ int) bool { return x.ID == t.ID })
	recent = append([]track.Track{t}, recent...)
	if len(recent) > RecentLimit {
		recent = recent[:RecentLimit]
	}

	return s.writeJSON(recentFile, recent)
}

// RecentTracks returns the recently played list, most recent first.
func (s *Store) RecentTracks() ([]track.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readTracks(recentFile)
}

// SaveSnapshot persists the player snapshot.
func (s *Store) SaveSnapshot(snap track.PlayerSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeJSON(snapshotFile, snap)
}

// LoadSnapshot returns the last saved player snapshot.
func (s *Store) LoadSnapshot() (track.PlayerSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var snap track.PlayerSnapshot
	path := filepath.Join(s.dir, snapshotFile)

	exists, err := s.fs.Exists(path)
	if err != nil {
		return snap, errors.Wrap(err, "failed to stat snapshot")
	}
	if !exists {
		return snap, ErrNoSnapshot
	}

	data, err := s.fs.ReadFile(path)
	if err != nil {
		return snap, errors.Wrap(err, "failed to read snapshot")
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, errors.Wrap(err, "failed to parse snapshot")
	}
	return snap, nil
}

func (s *Store) readTracks(name string) ([]track.Track, error) {
	path := filepath.Join(s.dir, name)

	exists, err := s.fs.Exists(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to stat %s", name)
	}
	if !exists {
		return nil, nil
	}

	data, err := s.fs.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", name)
	}

	var tracks []track.Track
	if err := json.Unmarshal(data, &tracks); err != nil {
		// Corrupt lists are discarded and rebuilt, not treated as fatal
		zlog.Warn().Msgf("discarding corrupt %s: %v", name, err)
		return nil, nil
	}
	return tracks, nil
}

func (s *Store) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "failed to encode %s", name)
	}
	if err := s.fs.WriteFile(filepath.Join(s.dir, name), data, 0644); err != nil {
		return errors.Wrapf(err, "failed to write %s", name)
	}
	return nil
}
