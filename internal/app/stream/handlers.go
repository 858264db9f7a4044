package stream

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/torigoya/requestq/internal/domain/event"
	"github.com/torigoya/requestq/internal/domain/shuffle"
)

// RegisterHandlers wires the reaction rules onto the dispatcher. The
// cascade is shallow: a platform event may trigger one mutation, whose
// follow-on events only reach the broadcast handler.
func (m *Manager) RegisterHandlers() {
	m.dispatcher.Register(event.TypeCustomRewardRedeemed, "reward-redemption", m.handleRewardRedeemed)
	m.dispatcher.Register(event.TypeStreamWentOnline, "stream-online-reset", m.handleStreamOnline)
	m.dispatcher.Register(event.TypeStreamWentOffline, "stream-offline", m.handleStreamOffline)

	for _, t := range event.PlatformTypes() {
		m.dispatcher.Register(t, "broadcast", m.handleBroadcast)
	}
	for _, t := range event.QueueTypes() {
		m.dispatcher.Register(t, "broadcast", m.handleBroadcast)
	}
}

// handleBroadcast forwards the event envelope to connected clients.
// Broadcast is best-effort notification; the state change it announces
// is already committed.
func (m *Manager) handleBroadcast(ctx context.Context, e event.Event) error {
	if err := m.broadcaster.Publish(e); err != nil {
		zlog.Warn().Err(err).Msgf("broadcast failed: type=%s", e.Type)
	}
	return nil
}

// handleRewardRedeemed maps configured channel rewards to queue actions.
func (m *Manager) handleRewardRedeemed(ctx context.Context, e event.Event) error {
	p, ok := e.Payload.(event.CustomRewardRedeemed)
	if !ok {
		return errors.Newf("unexpected payload %T for %s", e.Payload, e.Type)
	}

	switch p.RewardID {
	case "":
		return nil
	case m.config.Rewards.BumpRewardID:
		zlog.Info().Msgf("bump reward redeemed: user=%s reward=%s", p.Username, p.RewardTitle)
		return m.GrantBumps(ctx, p.UserID, p.Username, m.config.Rewards.BumpsPerRedemption)
	case m.config.Rewards.ShuffleRewardID:
		zlog.Info().Msgf("shuffle reward redeemed: user=%s reward=%s", p.Username, p.RewardTitle)
		err := m.EnterShuffle(ctx, p.UserID)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, shuffle.ErrNotOpen),
			errors.Is(err, shuffle.ErrOnCooldown),
			errors.Is(err, shuffle.ErrAlreadyEntered):
			// Expected admission rejections; the redemption itself
			// already happened on the platform side.
			zlog.Info().Msgf("shuffle entry rejected: user=%s reason=%v", p.Username, err)
			return nil
		default:
			return err
		}
	default:
		// Rewards the bot does not manage.
		return nil
	}
}

// handleStreamOnline resets per-stream state: empty queue, zeroed
// ledger, fresh shuffle session with a cleared cooldown set.
func (m *Manager) handleStreamOnline(ctx context.Context, e event.Event) error {
	m.mu.Lock()
	m.queue.Clear()
	m.ledger.ResetAll()
	m.shuffle = shuffle.NewSession(m.config.Shuffle.Enabled)

	if err := m.persistQueueLocked(ctx); err != nil {
		m.mu.Unlock()
		return err
	}
	if err := m.persistLedgerLocked(ctx); err != nil {
		m.mu.Unlock()
		return err
	}
	if err := m.persistShuffleLocked(ctx); err != nil {
		m.mu.Unlock()
		return err
	}
	snapshots := m.queue.Snapshots()
	m.mu.Unlock()

	zlog.Info().Msg("stream went online, per-stream state reset")
	m.emit(ctx, event.New(event.SourceQueue, event.QueueUpdated{Songs: snapshots}))
	return nil
}

// handleStreamOffline closes the shuffle window. Queue contents are kept
// so a crash-recovered stream resumes where it stopped.
func (m *Manager) handleStreamOffline(ctx context.Context, e event.Event) error {
	m.mu.Lock()
	m.shuffle.Close()
	err := m.persistShuffleLocked(ctx)
	m.mu.Unlock()
	if err != nil {
		return err
	}

	zlog.Info().Msg("stream went offline, shuffle window closed")
	return nil
}
