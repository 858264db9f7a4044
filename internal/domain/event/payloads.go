package event

import (
	"time"

	"github.com/torigoya/requestq/internal/domain/song"
)

// ViewerSubscribed is emitted when a viewer subscribes.
type ViewerSubscribed struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Tier     string `json:"tier"`
	IsGift   bool   `json:"isGift"`
}

func (ViewerSubscribed) EventType() Type { return TypeViewerSubscribed }

// ViewerGiftedSubscription is emitted when a viewer gifts subscriptions.
type ViewerGiftedSubscription struct {
	GifterID       string `json:"gifterId"`
	GifterUsername string `json:"gifterUsername"`
	Total          int    `json:"total"`
	Tier           string `json:"tier"`
}

func (ViewerGiftedSubscription) EventType() Type { return TypeViewerGiftedSubscription }

// ViewerSubscriptionMessage is emitted when a viewer shares a resub message.
type ViewerSubscriptionMessage struct {
	UserID           string `json:"userId"`
	Username         string `json:"username"`
	CumulativeMonths int    `json:"cumulativeMonths"`
	Message          string `json:"message"`
}

func (ViewerSubscriptionMessage) EventType() Type { return TypeViewerSubscriptionMessage }

// ViewerCheered is emitted when a viewer cheers bits.
type ViewerCheered struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Bits     int    `json:"bits"`
}

func (ViewerCheered) EventType() Type { return TypeViewerCheered }

// CustomRewardRedeemed is emitted when a viewer redeems a channel reward.
type CustomRewardRedeemed struct {
	UserID      string `json:"userId"`
	Username    string `json:"username"`
	RewardID    string `json:"rewardId"`
	RewardTitle string `json:"rewardTitle"`
	Input       string `json:"input"`
}

func (CustomRewardRedeemed) EventType() Type { return TypeCustomRewardRedeemed }

// StreamWentOnline is emitted when the stream goes live.
type StreamWentOnline struct {
	StartedAt time.Time `json:"startedAt"`
}

func (StreamWentOnline) EventType() Type { return TypeStreamWentOnline }

// StreamWentOffline is emitted when the stream ends. Empty payload.
type StreamWentOffline struct{}

func (StreamWentOffline) EventType() Type { return TypeStreamWentOffline }

// ViewerRaided is emitted when another streamer raids the channel.
type ViewerRaided struct {
	FromStreamerID   string `json:"fromStreamerId"`
	FromStreamerName string `json:"fromStreamerName"`
	ViewerCount      int    `json:"viewerCount"`
}

func (ViewerRaided) EventType() Type { return TypeViewerRaided }

// SongQueued is emitted when a request is accepted into the queue.
type SongQueued struct {
	Song     song.Snapshot `json:"song"`
	Position int           `json:"position"`
	Bumped   bool          `json:"bumped"`
}

func (SongQueued) EventType() Type { return TypeSongQueued }

// SongRemoved is emitted when an entry leaves the queue without playing.
type SongRemoved struct {
	SongID string `json:"songId"`
}

func (SongRemoved) EventType() Type { return TypeSongRemoved }

// SongMoved is emitted on manual moderator reordering.
type SongMoved struct {
	SongID   string `json:"songId"`
	Position int    `json:"position"`
}

func (SongMoved) EventType() Type { return TypeSongMoved }

// NowPlaying is emitted when the head of the queue is advanced.
type NowPlaying struct {
	Song song.Snapshot `json:"song"`
}

func (NowPlaying) EventType() Type { return TypeNowPlaying }

// QueueUpdated carries the full ordered snapshot after any mutation.
type QueueUpdated struct {
	Songs []song.Snapshot `json:"songs"`
}

func (QueueUpdated) EventType() Type { return TypeQueueUpdated }

// BumpsGranted is emitted when a user receives bump tokens.
type BumpsGranted struct {
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	Count     int    `json:"count"`
	Remaining int    `json:"remaining"`
}

func (BumpsGranted) EventType() Type { return TypeBumpsGranted }

// BumpUsed is emitted when a user spends a bump token.
type BumpUsed struct {
	UserID    string `json:"userId"`
	Remaining int    `json:"remaining"`
}

func (BumpUsed) EventType() Type { return TypeBumpUsed }

// ShuffleOpened is emitted when the admission window opens.
type ShuffleOpened struct{}

func (ShuffleOpened) EventType() Type { return TypeShuffleOpened }

// ShuffleClosed is emitted when the admission window closes.
type ShuffleClosed struct{}

func (ShuffleClosed) EventType() Type { return TypeShuffleClosed }

// ShuffleEntered is emitted when a viewer joins the draw pool.
type ShuffleEntered struct {
	UserID   string `json:"userId"`
	Position int    `json:"position"`
}

func (ShuffleEntered) EventType() Type { return TypeShuffleEntered }

// ShuffleDrawn is emitted when a winner is selected.
type ShuffleDrawn struct {
	WinnerID     string `json:"winnerId"`
	EntrantCount int    `json:"entrantCount"`
}

func (ShuffleDrawn) EventType() Type { return TypeShuffleDrawn }
