// Package song provides the Song domain entity.
package song

import "time"

// Status represents a song's lifecycle status.
// Transitions are forward only: queued -> playing -> played, or queued -> removed.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusPlaying Status = "playing"
	StatusPlayed  Status = "played"
	StatusRemoved Status = "removed"
)

// Requester represents the viewer who requested the song.
type Requester struct {
	ID   string // Platform user ID
	Name string // Display name
}

// Song represents a single requested song.
type Song struct {
	ID          string        // Stable song identifier, the resolved video ID
	VideoID     string        // Source media identifier
	Title       string        // Resolved title
	Duration    time.Duration // Resolved duration
	Requester   Requester     // Requester info
	Status      Status        // Lifecycle status
	Bumped      bool          // True if a bump was spent on this entry
	RequestedAt time.Time     // Time the request was accepted
}

// Snapshot is the serialized queue-entry shape sent to clients.
type Snapshot struct {
	SongID      string `json:"songId"`
	Title       string `json:"title"`
	RequestedBy string `json:"requestedBy"`
	Duration    int    `json:"duration"`
	Status      string `json:"status"`
}

// Snapshot returns the broadcast representation of the song.
func (s *Song) Snapshot() Snapshot {
	return Snapshot{
		SongID:      s.ID,
		Title:       s.Title,
		RequestedBy: s.Requester.Name,
		Duration:    int(s.Duration.Seconds()),
		Status:      string(s.Status),
	}
}
