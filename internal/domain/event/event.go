// Package event provides the versioned domain-event envelope and vocabulary.
package event

import (
	"encoding/json"
	"time"
)

// Type tags an event within the closed internal vocabulary.
type Type string

// Platform events (produced by the anti-corruption translator).
const (
	TypeViewerSubscribed          Type = "viewer-subscribed"
	TypeViewerGiftedSubscription  Type = "viewer-gifted-subscription"
	TypeViewerSubscriptionMessage Type = "viewer-subscription-message"
	TypeViewerCheered             Type = "viewer-cheered"
	TypeCustomRewardRedeemed      Type = "custom-reward-redeemed"
	TypeStreamWentOnline          Type = "stream-went-online"
	TypeStreamWentOffline         Type = "stream-went-offline"
	TypeViewerRaided              Type = "viewer-raided"
)

// Queue, ledger and shuffle events (produced by the stream manager).
const (
	TypeSongQueued     Type = "song-queued"
	TypeSongRemoved    Type = "song-removed"
	TypeSongMoved      Type = "song-moved"
	TypeNowPlaying     Type = "now-playing"
	TypeQueueUpdated   Type = "queue-updated"
	TypeBumpsGranted   Type = "bumps-granted"
	TypeBumpUsed       Type = "bump-used"
	TypeShuffleOpened  Type = "shuffle-opened"
	TypeShuffleClosed  Type = "shuffle-closed"
	TypeShuffleEntered Type = "shuffle-entered"
	TypeShuffleDrawn   Type = "shuffle-drawn"
)

// Source tags the originating subsystem.
type Source string

const (
	SourcePlatform Source = "platform"
	SourceQueue    Source = "queue"
	SourceLedger   Source = "ledger"
	SourceShuffle  Source = "shuffle"
)

// Payload is implemented by every event payload type. The event type is
// derived from the payload, so a payload can never be wrapped under the
// wrong tag.
type Payload interface {
	EventType() Type
}

// Event is an immutable, versioned fact record. Once constructed it is
// never mutated; it is consumed by zero or more handlers.
type Event struct {
	Type       Type
	Source     Source
	Version    int
	OccurredAt time.Time
	Payload    Payload
}

// payloadVersions maps each type to its payload schema version.
// Unlisted types are version 1.
var payloadVersions = map[Type]int{}

// New constructs an event envelope with the type derived from the
// payload, the schema version from the version table, and OccurredAt
// stamped in UTC at construction time.
func New(source Source, p Payload) Event {
	t := p.EventType()
	version := payloadVersions[t]
	if version == 0 {
		version = 1
	}
	return Event{
		Type:       t,
		Source:     source,
		Version:    version,
		OccurredAt: time.Now().UTC(),
		Payload:    p,
	}
}

// PlatformTypes returns every type produced by the translator.
func PlatformTypes() []Type {
	return []Type{
		TypeViewerSubscribed,
		TypeViewerGiftedSubscription,
		TypeViewerSubscriptionMessage,
		TypeViewerCheered,
		TypeCustomRewardRedeemed,
		TypeStreamWentOnline,
		TypeStreamWentOffline,
		TypeViewerRaided,
	}
}

// QueueTypes returns every type produced by the stream manager.
func QueueTypes() []Type {
	return []Type{
		TypeSongQueued,
		TypeSongRemoved,
		TypeSongMoved,
		TypeNowPlaying,
		TypeQueueUpdated,
		TypeBumpsGranted,
		TypeBumpUsed,
		TypeShuffleOpened,
		TypeShuffleClosed,
		TypeShuffleEntered,
		TypeShuffleDrawn,
	}
}

// MarshalJSON serializes the envelope in the broadcast wire shape.
func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type       Type      `json:"type"`
		Source     Source    `json:"source"`
		Version    int       `json:"version"`
		OccurredAt time.Time `json:"occurredAt"`
		Payload    Payload   `json:"payload"`
	}{
		Type:       e.Type,
		Source:     e.Source,
		Version:    e.Version,
		OccurredAt: e.OccurredAt,
		Payload:    e.Payload,
	})
}
