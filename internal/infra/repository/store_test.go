package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/torigoya/requestq/internal/domain/shuffle"
	"github.com/torigoya/requestq/internal/domain/song"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testSong(id string) song.Song {
	return song.Song{
		ID:          id,
		VideoID:     id,
		Title:       "title " + id,
		Duration:    3 * time.Minute,
		Requester:   song.Requester{ID: "user1", Name: "alice"},
		Status:      song.StatusQueued,
		RequestedAt: time.Date(2024, 11, 5, 19, 0, 0, 0, time.UTC),
	}
}

func TestStore_QueueStateRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	songs := []song.Song{testSong("a"), testSong("b")}
	require.NoError(t, s.SaveQueueState(ctx, songs))

	loaded, err := s.LoadQueueState(ctx)
	require.NoError(t, err)
	assert.Equal(t, songs, loaded)
}

func TestStore_LoadQueueStateMissingKey(t *testing.T) {
	s := openTestStore(t)

	loaded, err := s.LoadQueueState(context.Background())
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestStore_BumpLedgerRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	counts := map[string]int{"user1": 2, "user2": 1}
	require.NoError(t, s.SaveBumpLedger(ctx, counts))

	loaded, err := s.LoadBumpLedger(ctx)
	require.NoError(t, err)
	assert.Equal(t, counts, loaded)
}

func TestStore_LoadBumpLedgerMissingKey(t *testing.T) {
	s := openTestStore(t)

	loaded, err := s.LoadBumpLedger(context.Background())
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestStore_ShuffleStateRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, ok, err := s.LoadShuffleState(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "nothing saved yet")

	state := shuffle.State{
		Enabled:  true,
		Open:     true,
		Entrants: []string{"user1", "user2"},
		Cooldown: []string{"user3"},
	}
	require.NoError(t, s.SaveShuffleState(ctx, state))

	loaded, ok, err := s.LoadShuffleState(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, state, loaded)
}

func TestStore_HistoryKeepsPlayOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"first", "second", "third"} {
		require.NoError(t, s.AppendHistory(ctx, testSong(id)))
	}

	history, err := s.History(ctx, 0)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "first", history[0].ID)
	assert.Equal(t, "second", history[1].ID)
	assert.Equal(t, "third", history[2].ID)
}

func TestStore_HistoryLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.AppendHistory(ctx, testSong(id)))
	}

	history, err := s.History(ctx, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "a", history[0].ID)
	assert.Equal(t, "b", history[1].ID)
}

func TestStore_OverwriteQueueState(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveQueueState(ctx, []song.Song{testSong("a")}))
	require.NoError(t, s.SaveQueueState(ctx, []song.Song{}))

	loaded, err := s.LoadQueueState(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}
