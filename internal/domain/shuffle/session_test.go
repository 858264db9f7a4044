package shuffle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_OpenClose(t *testing.T) {
	s := NewSession(true)
	assert.False(t, s.IsOpen())

	require.NoError(t, s.Open())
	assert.True(t, s.IsOpen())

	assert.ErrorIs(t, s.Open(), ErrAlreadyOpen)

	s.Close()
	assert.False(t, s.IsOpen())

	// Reopening a closed window is fine
	require.NoError(t, s.Open())
}

func TestSession_EnterRequiresOpen(t *testing.T) {
	s := NewSession(true)

	assert.ErrorIs(t, s.Enter("user1"), ErrNotOpen)

	require.NoError(t, s.Open())
	require.NoError(t, s.Enter("user1"))
	assert.ErrorIs(t, s.Enter("user1"), ErrAlreadyEntered)
}

func TestSession_EntrantsKeepArrivalOrder(t *testing.T) {
	s := NewSession(true)
	require.NoError(t, s.Open())

	for _, user := range []string{"c", "a", "b"} {
		require.NoError(t, s.Enter(user))
	}
	assert.Equal(t, []string{"c", "a", "b"}, s.Entrants())
}

func TestSession_DrawMovesEntrantsToCooldown(t *testing.T) {
	s := NewSession(true)
	require.NoError(t, s.Open())
	require.NoError(t, s.Enter("user1"))
	require.NoError(t, s.Enter("user2"))

	winner, err := s.Draw()
	require.NoError(t, err)
	assert.Contains(t, []string{"user1", "user2"}, winner)
	assert.Empty(t, s.Entrants())

	// All entrants, winner included, are on cooldown
	assert.ErrorIs(t, s.Enter("user1"), ErrOnCooldown)
	assert.ErrorIs(t, s.Enter("user2"), ErrOnCooldown)

	// A brand-new user can still enter while open
	require.NoError(t, s.Enter("user3"))
}

func TestSession_DrawWithNoEntrants(t *testing.T) {
	s := NewSession(true)
	require.NoError(t, s.Open())
	require.NoError(t, s.Enter("user1"))
	_, err := s.Draw()
	require.NoError(t, err)

	_, err = s.Draw()
	assert.ErrorIs(t, err, ErrNoEntrants)
	assert.Empty(t, s.Entrants())
	assert.True(t, s.OnCooldown("user1"), "failed draw leaves cooldown unchanged")
}

func TestSession_DrawAfterClose(t *testing.T) {
	// Pending entrants remain drawable after the window closes
	s := NewSession(true)
	require.NoError(t, s.Open())
	require.NoError(t, s.Enter("user1"))
	s.Close()

	winner, err := s.Draw()
	require.NoError(t, err)
	assert.Equal(t, "user1", winner)
}

func TestSession_SingleEntrantDraw(t *testing.T) {
	s := NewSession(true)
	require.NoError(t, s.Open())
	require.NoError(t, s.Enter("only"))

	winner, err := s.Draw()
	require.NoError(t, err)
	assert.Equal(t, "only", winner)
}

func TestSession_ClearCooldown(t *testing.T) {
	s := NewSession(true)
	require.NoError(t, s.Open())
	require.NoError(t, s.Enter("user1"))
	_, err := s.Draw()
	require.NoError(t, err)

	s.ClearCooldown()
	assert.False(t, s.OnCooldown("user1"))
	require.NoError(t, s.Enter("user1"))
}

func TestSession_StateRoundTrip(t *testing.T) {
	s := NewSession(true)
	require.NoError(t, s.Open())
	require.NoError(t, s.Enter("user1"))
	require.NoError(t, s.Enter("user2"))
	_, err := s.Draw()
	require.NoError(t, err)
	require.NoError(t, s.Enter("user3"))

	restored := RestoreSession(s.State())
	assert.True(t, restored.IsOpen())
	assert.Equal(t, []string{"user3"}, restored.Entrants())
	assert.True(t, restored.OnCooldown("user1"))
	assert.True(t, restored.OnCooldown("user2"))
	assert.ErrorIs(t, restored.Enter("user1"), ErrOnCooldown)
}
