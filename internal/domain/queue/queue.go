// Package queue provides the ordered song queue with bump-aware insertion.
package queue

import (
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/torigoya/requestq/internal/domain/song"
)

// Errors
var (
	ErrDuplicateSong = errors.New("song already in queue")
	ErrSongNotFound  = errors.New("song not found")
	ErrEmpty         = errors.New("queue is empty")
)

// Queue is an ordered sequence of songs. Bumped entries form a contiguous
// band at the front; within the band insertion order is preserved. Song
// identifiers are unique within the queue.
type Queue struct {
	mu    sync.Mutex
	songs []song.Song
}

// New creates an empty queue.
func New() *Queue {
	return &Queue{
		songs: make([]song.Song, 0),
	}
}

// Restore creates a queue from a previously saved ordered state.
func Restore(songs []song.Song) *Queue {
	q := New()
	q.songs = append(q.songs, songs...)
	return q
}

// Enqueue appends the song to the tail. If bumped is true, the song is
// instead inserted immediately after the last bumped entry, so bumped
// entries stay grouped at the front in bump order.
// Returns the resulting zero-based position.
func (q *Queue) Enqueue(s song.Song, bumped bool) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.indexOfLocked(s.ID) >= 0 {
		return 0, errors.Wrapf(ErrDuplicateSong, "id=%s", s.ID)
	}

	s.Status = song.StatusQueued
	s.Bumped = bumped

	if !bumped {
		q.songs = append(q.songs, s)
		return len(q.songs) - 1, nil
	}

	pos := q.bumpBandEndLocked()
	q.songs = append(q.songs, song.Song{})
	copy(q.songs[pos+1:], q.songs[pos:])
	q.songs[pos] = s
	return pos, nil
}

// Remove removes the entry with the given ID regardless of position.
func (q *Queue) Remove(songID string) (song.Song, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	i := q.indexOfLocked(songID)
	if i < 0 {
		return song.Song{}, errors.Wrapf(ErrSongNotFound, "id=%s", songID)
	}

	removed := q.songs[i]
	removed.Status = song.StatusRemoved
	q.songs = append(q.songs[:i], q.songs[i+1:]...)
	return removed, nil
}

// MoveTo relocates the entry to the given zero-based index, clamped to
// [0, length-1]. Used for manual moderator reordering; does not consume
// a bump. Returns the effective position.
func (q *Queue) MoveTo(songID string, newPosition int) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	i := q.indexOfLocked(songID)
	if i < 0 {
		return 0, errors.Wrapf(ErrSongNotFound, "id=%s", songID)
	}

	if newPosition < 0 {
		newPosition = 0
	}
	if newPosition > len(q.songs)-1 {
		newPosition = len(q.songs) - 1
	}
	if newPosition == i {
		return i, nil
	}

	moved := q.songs[i]
	q.songs = append(q.songs[:i], q.songs[i+1:]...)
	q.songs = append(q.songs, song.Song{})
	copy(q.songs[newPosition+1:], q.songs[newPosition:])
	q.songs[newPosition] = moved
	return newPosition, nil
}

// PeekNext returns the head entry without mutation.
func (q *Queue) PeekNext() (song.Song, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.songs) == 0 {
		return song.Song{}, ErrEmpty
	}
	return q.songs[0], nil
}

// Advance dequeues the head, marks it played, and returns it for hand-off
// to history.
func (q *Queue) Advance() (song.Song, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.songs) == 0 {
		return song.Song{}, ErrEmpty
	}

	head := q.songs[0]
	head.Status = song.StatusPlayed
	q.songs = q.songs[1:]
	return head, nil
}

// ToOrderedList returns a read-only copy of the current ordered sequence.
func (q *Queue) ToOrderedList() []song.Song {
	q.mu.Lock()
	defer q.mu.Unlock()

	result := make([]song.Song, len(q.songs))
	copy(result, q.songs)
	return result
}

// Snapshots returns the broadcast representation of the queue in order.
func (q *Queue) Snapshots() []song.Snapshot {
	q.mu.Lock()
	defer q.mu.Unlock()

	result := make([]song.Snapshot, len(q.songs))
	for i := range q.songs {
		result[i] = q.songs[i].Snapshot()
	}
	return result
}

// CountByRequester returns the number of queued entries for the given user.
func (q *Queue) CountByRequester(userID string) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := 0
	for i := range q.songs {
		if q.songs[i].Requester.ID == userID {
			n++
		}
	}
	return n
}

// Len returns the number of queued entries.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.songs)
}

// Clear removes all entries. Called at stream-start boundaries.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.songs = make([]song.Song, 0)
}

// indexOfLocked returns the index of the song with the given ID, or -1.
// Must be called with lock held.
func (q *Queue) indexOfLocked(songID string) int {
	for i := range q.songs {
		if q.songs[i].ID == songID {
			return i
		}
	}
	return -1
}

// bumpBandEndLocked returns the index one past the last bumped entry.
// Must be called with lock held.
func (q *Queue) bumpBandEndLocked() int {
	end := 0
	for i := range q.songs {
		if !q.songs[i].Bumped {
			break
		}
		end = i + 1
	}
	return end
}
