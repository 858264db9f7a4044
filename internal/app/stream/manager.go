// Package stream provides the manager that owns the live queue, bump
// ledger and shuffle session for the active stream.
package stream

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/torigoya/requestq/internal/app/dispatch"
	"github.com/torigoya/requestq/internal/app/filter"
	"github.com/torigoya/requestq/internal/domain/bump"
	"github.com/torigoya/requestq/internal/domain/event"
	"github.com/torigoya/requestq/internal/domain/queue"
	"github.com/torigoya/requestq/internal/domain/shuffle"
	"github.com/torigoya/requestq/internal/domain/song"
	"github.com/torigoya/requestq/internal/infra/config"
	"github.com/torigoya/requestq/internal/infra/video"
)

// Repository persists the per-stream state. Failures surface to the
// caller; the manager never retries internally.
type Repository interface {
	SaveQueueState(ctx context.Context, songs []song.Song) error
	LoadQueueState(ctx context.Context) ([]song.Song, error)
	SaveBumpLedger(ctx context.Context, counts map[string]int) error
	LoadBumpLedger(ctx context.Context) (map[string]int, error)
	SaveShuffleState(ctx context.Context, state shuffle.State) error
	LoadShuffleState(ctx context.Context) (shuffle.State, bool, error)
	AppendHistory(ctx context.Context, played song.Song) error
}

// Broadcaster fans a message out to connected clients. Best-effort from
// the manager's perspective.
type Broadcaster interface {
	Publish(message any) error
}

// MetadataResolver looks up title and duration for requested media.
type MetadataResolver interface {
	Resolve(ctx context.Context, idOrURL string) (video.Info, error)
}

// RequestInput represents an inbound song request.
type RequestInput struct {
	UserID   string
	Username string
	Video    string // video ID or URL
	UseBump  bool
}

// RequestResult is the outcome of a song request. Rejections carry a
// message code resolved against config; they are expected outcomes, not
// errors.
type RequestResult struct {
	Success bool
	Code    string
	Song    song.Song
}

// Manager owns the mutable per-stream state. One manager per active
// stream; every public mutating operation is atomic end-to-end.
type Manager struct {
	mu sync.Mutex

	config      *config.Config
	queue       *queue.Queue
	ledger      *bump.Ledger
	shuffle     *shuffle.Session
	repo        Repository
	broadcaster Broadcaster
	dispatcher  *dispatch.Dispatcher
	resolver    MetadataResolver
	filterChain *filter.Chain
}

// NewManager creates a stream manager with fresh state.
func NewManager(
	cfg *config.Config,
	repo Repository,
	broadcaster Broadcaster,
	dispatcher *dispatch.Dispatcher,
	resolver MetadataResolver,
) *Manager {
	m := &Manager{
		config:      cfg,
		queue:       queue.New(),
		ledger:      bump.NewLedger(),
		shuffle:     shuffle.NewSession(cfg.Shuffle.Enabled),
		repo:        repo,
		broadcaster: broadcaster,
		dispatcher:  dispatcher,
		resolver:    resolver,
		filterChain: filter.NewChain(),
	}
	m.setupFilters()
	return m
}

// setupFilters initializes the admission filter chain from config.
func (m *Manager) setupFilters() {
	cfg := m.config

	if cfg.IsFilterEnabled("duration_limit_filter") {
		f := filter.NewDurationLimitFilter()
		if err := f.ValidateConfig(cfg.FilterSettings("duration_limit_filter")); err != nil {
			zlog.Error().Err(err).Msg("invalid duration limit filter config")
		} else {
			m.filterChain.Add(f)
		}
	}

	if cfg.IsFilterEnabled("pending_limit_filter") {
		f := filter.NewPendingLimitFilter(m.queue)
		if err := f.ValidateConfig(cfg.FilterSettings("pending_limit_filter")); err != nil {
			zlog.Error().Err(err).Msg("invalid pending limit filter config")
		} else {
			m.filterChain.Add(f)
		}
	}

	if cfg.IsFilterEnabled("blocked_user_filter") {
		f := filter.NewBlockedUserFilter()
		if err := f.ValidateConfig(cfg.FilterSettings("blocked_user_filter")); err != nil {
			zlog.Error().Err(err).Msg("invalid blocked user filter config")
		} else {
			m.filterChain.Add(f)
		}
	}
}

// Load restores persisted state from the repository. Called once at
// startup before any operation.
func (m *Manager) Load(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	songs, err := m.repo.LoadQueueState(ctx)
	if err != nil {
		return errors.Wrap(err, "loading queue state")
	}
	restored := queue.Restore(songs)

	counts, err := m.repo.LoadBumpLedger(ctx)
	if err != nil {
		return errors.Wrap(err, "loading bump ledger")
	}

	state, ok, err := m.repo.LoadShuffleState(ctx)
	if err != nil {
		return errors.Wrap(err, "loading shuffle state")
	}

	m.queue = restored
	m.ledger = bump.Restore(counts)
	if ok {
		state.Enabled = m.config.Shuffle.Enabled
		m.shuffle = shuffle.RestoreSession(state)
	}

	// The pending-limit filter holds a reference to the live queue.
	m.filterChain = filter.NewChain()
	m.setupFilters()

	zlog.Info().Msgf("stream state restored: queued=%d ledger_users=%d", restored.Len(), len(counts))
	return nil
}

// RequestSong validates, resolves and enqueues a song request. A bump is
// spent only when requested and available; running out of bumps degrades
// the request to a normal tail insert with a "no_bumps" code.
func (m *Manager) RequestSong(ctx context.Context, in RequestInput) (RequestResult, error) {
	requester := song.Requester{ID: in.UserID, Name: in.Username}

	info, err := m.resolver.Resolve(ctx, in.Video)
	if err != nil {
		if errors.Is(err, video.ErrVideoNotFound) || errors.Is(err, video.ErrNoDuration) {
			return RequestResult{Code: "video_not_found"}, nil
		}
		return RequestResult{}, errors.Wrap(err, "resolving video")
	}

	req := filter.Request{
		Requester:     requester,
		Duration:      info.Duration,
		UseBump:       in.UseBump,
		FromModerator: m.config.IsModerator(in.UserID),
	}
	if result := m.filterChain.Execute(ctx, req); !result.Accepted {
		return RequestResult{Code: result.Code}, nil
	}

	m.mu.Lock()

	bumped := in.UseBump && m.ledger.Remaining(in.UserID) > 0

	entry := song.Song{
		ID:          info.VideoID,
		VideoID:     info.VideoID,
		Title:       info.Title,
		Duration:    info.Duration,
		Requester:   requester,
		RequestedAt: time.Now().UTC(),
	}
	position, err := m.queue.Enqueue(entry, bumped)
	if err != nil {
		m.mu.Unlock()
		if errors.Is(err, queue.ErrDuplicateSong) {
			return RequestResult{Code: "duplicate_song"}, nil
		}
		return RequestResult{}, err
	}
	entry.Status = song.StatusQueued
	entry.Bumped = bumped

	var remaining int
	if bumped {
		m.ledger.UseBump(in.UserID)
		remaining = m.ledger.Remaining(in.UserID)
	}

	if err := m.persistLocked(ctx, bumped); err != nil {
		m.mu.Unlock()
		return RequestResult{}, err
	}
	snapshots := m.queue.Snapshots()
	m.mu.Unlock()

	m.emit(ctx, event.New(event.SourceQueue, event.SongQueued{
		Song:     entry.Snapshot(),
		Position: position,
		Bumped:   bumped,
	}))
	if bumped {
		m.emit(ctx, event.New(event.SourceLedger, event.BumpUsed{
			UserID:    in.UserID,
			Remaining: remaining,
		}))
	}
	m.emit(ctx, event.New(event.SourceQueue, event.QueueUpdated{Songs: snapshots}))

	code := "success"
	if in.UseBump && !bumped {
		code = "no_bumps"
	}
	return RequestResult{Success: true, Code: code, Song: entry}, nil
}

// RemoveSong removes an entry regardless of position.
func (m *Manager) RemoveSong(ctx context.Context, songID string) error {
	m.mu.Lock()
	removed, err := m.queue.Remove(songID)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	if err := m.persistQueueLocked(ctx); err != nil {
		m.mu.Unlock()
		return err
	}
	snapshots := m.queue.Snapshots()
	m.mu.Unlock()

	m.emit(ctx, event.New(event.SourceQueue, event.SongRemoved{SongID: removed.ID}))
	m.emit(ctx, event.New(event.SourceQueue, event.QueueUpdated{Songs: snapshots}))
	return nil
}

// MoveSong relocates an entry to the given position (clamped).
func (m *Manager) MoveSong(ctx context.Context, songID string, position int) error {
	m.mu.Lock()
	effective, err := m.queue.MoveTo(songID, position)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	if err := m.persistQueueLocked(ctx); err != nil {
		m.mu.Unlock()
		return err
	}
	snapshots := m.queue.Snapshots()
	m.mu.Unlock()

	m.emit(ctx, event.New(event.SourceQueue, event.SongMoved{SongID: songID, Position: effective}))
	m.emit(ctx, event.New(event.SourceQueue, event.QueueUpdated{Songs: snapshots}))
	return nil
}

// PlayNext advances the queue head and hands the played song to history.
func (m *Manager) PlayNext(ctx context.Context) (song.Song, error) {
	m.mu.Lock()
	played, err := m.queue.Advance()
	if err != nil {
		m.mu.Unlock()
		return song.Song{}, err
	}
	if err := m.repo.AppendHistory(ctx, played); err != nil {
		m.mu.Unlock()
		return song.Song{}, err
	}
	if err := m.persistQueueLocked(ctx); err != nil {
		m.mu.Unlock()
		return song.Song{}, err
	}
	snapshots := m.queue.Snapshots()
	m.mu.Unlock()

	m.emit(ctx, event.New(event.SourceQueue, event.NowPlaying{Song: played.Snapshot()}))
	m.emit(ctx, event.New(event.SourceQueue, event.QueueUpdated{Songs: snapshots}))
	return played, nil
}

// Snapshot returns the current ordered queue for serialization.
func (m *Manager) Snapshot() []song.Snapshot {
	m.mu.Lock()
	q := m.queue
	m.mu.Unlock()
	return q.Snapshots()
}

// RemainingBumps returns the user's remaining bump count.
func (m *Manager) RemainingBumps(userID string) int {
	m.mu.Lock()
	l := m.ledger
	m.mu.Unlock()
	return l.Remaining(userID)
}

// GrantBumps grants bump tokens to a user.
func (m *Manager) GrantBumps(ctx context.Context, userID, username string, count int) error {
	m.mu.Lock()
	if err := m.ledger.Grant(userID, count); err != nil {
		m.mu.Unlock()
		return err
	}
	remaining := m.ledger.Remaining(userID)
	if err := m.persistLedgerLocked(ctx); err != nil {
		m.mu.Unlock()
		return err
	}
	m.mu.Unlock()

	m.emit(ctx, event.New(event.SourceLedger, event.BumpsGranted{
		UserID:    userID,
		Username:  username,
		Count:     count,
		Remaining: remaining,
	}))
	return nil
}

// OpenShuffle opens the admission window.
func (m *Manager) OpenShuffle(ctx context.Context) error {
	m.mu.Lock()
	if err := m.shuffle.Open(); err != nil {
		m.mu.Unlock()
		return err
	}
	if err := m.persistShuffleLocked(ctx); err != nil {
		m.mu.Unlock()
		return err
	}
	m.mu.Unlock()

	m.emit(ctx, event.New(event.SourceShuffle, event.ShuffleOpened{}))
	return nil
}

// CloseShuffle closes the admission window. Pending entrants stay
// drawable.
func (m *Manager) CloseShuffle(ctx context.Context) error {
	m.mu.Lock()
	m.shuffle.Close()
	if err := m.persistShuffleLocked(ctx); err != nil {
		m.mu.Unlock()
		return err
	}
	m.mu.Unlock()

	m.emit(ctx, event.New(event.SourceShuffle, event.ShuffleClosed{}))
	return nil
}

// EnterShuffle adds a user to the draw pool.
func (m *Manager) EnterShuffle(ctx context.Context, userID string) error {
	m.mu.Lock()
	if err := m.shuffle.Enter(userID); err != nil {
		m.mu.Unlock()
		return err
	}
	position := len(m.shuffle.Entrants()) - 1
	if err := m.persistShuffleLocked(ctx); err != nil {
		m.mu.Unlock()
		return err
	}
	m.mu.Unlock()

	m.emit(ctx, event.New(event.SourceShuffle, event.ShuffleEntered{
		UserID:   userID,
		Position: position,
	}))
	return nil
}

// DrawShuffle selects a winner and moves all entrants to cooldown.
func (m *Manager) DrawShuffle(ctx context.Context) (string, error) {
	m.mu.Lock()
	entrants := len(m.shuffle.Entrants())
	winner, err := m.shuffle.Draw()
	if err != nil {
		m.mu.Unlock()
		return "", err
	}
	if err := m.persistShuffleLocked(ctx); err != nil {
		m.mu.Unlock()
		return "", err
	}
	m.mu.Unlock()

	m.emit(ctx, event.New(event.SourceShuffle, event.ShuffleDrawn{
		WinnerID:     winner,
		EntrantCount: entrants,
	}))
	return winner, nil
}

// ClearShuffleCooldown empties the cooldown set.
func (m *Manager) ClearShuffleCooldown(ctx context.Context) error {
	m.mu.Lock()
	m.shuffle.ClearCooldown()
	err := m.persistShuffleLocked(ctx)
	m.mu.Unlock()
	return err
}

// ShuffleState returns the persistable shuffle state for API reads.
func (m *Manager) ShuffleState() shuffle.State {
	m.mu.Lock()
	s := m.shuffle
	m.mu.Unlock()
	return s.State()
}

// emit dispatches a follow-on event. Called without the manager lock so
// handlers may re-enter public operations.
func (m *Manager) emit(ctx context.Context, e event.Event) {
	m.dispatcher.Dispatch(ctx, e)
}

// persistLocked saves queue and optionally ledger state. Must be called
// with lock held.
func (m *Manager) persistLocked(ctx context.Context, withLedger bool) error {
	if err := m.persistQueueLocked(ctx); err != nil {
		return err
	}
	if withLedger {
		return m.persistLedgerLocked(ctx)
	}
	return nil
}

func (m *Manager) persistQueueLocked(ctx context.Context) error {
	return m.repo.SaveQueueState(ctx, m.queue.ToOrderedList())
}

func (m *Manager) persistLedgerLocked(ctx context.Context) error {
	return m.repo.SaveBumpLedger(ctx, m.ledger.State())
}

func (m *Manager) persistShuffleLocked(ctx context.Context) error {
	return m.repo.SaveShuffleState(ctx, m.shuffle.State())
}
