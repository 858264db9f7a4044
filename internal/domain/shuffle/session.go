// Package shuffle provides the shuffle admission-window state machine.
package shuffle

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"sync"

	"github.com/cockroachdb/errors"
)

// Errors
var (
	ErrAlreadyOpen    = errors.New("shuffle window already open")
	ErrNotOpen        = errors.New("shuffle window not open")
	ErrOnCooldown     = errors.New("user is on cooldown")
	ErrAlreadyEntered = errors.New("user already entered")
	ErrNoEntrants     = errors.New("no entrants to draw from")
)

// State is the persistable representation of a session.
type State struct {
	Enabled  bool     `json:"enabled"`
	Open     bool     `json:"open"`
	Entrants []string `json:"entrants"`
	Cooldown []string `json:"cooldown"`
}

// Session represents one shuffle admission window. Entrants keep arrival
// order; after a draw all entrants move to the cooldown set. An identity
// never appears in entrants and cooldown at the same time.
type Session struct {
	mu       sync.Mutex
	enabled  bool
	open     bool
	entrants []string
	cooldown map[string]struct{}
	rng      *rand.Rand
}

// NewSession creates a closed session with an empty cooldown set.
func NewSession(enabled bool) *Session {
	return &Session{
		enabled:  enabled,
		entrants: make([]string, 0),
		cooldown: make(map[string]struct{}),
		rng:      rand.New(rand.NewSource(randomSeed())),
	}
}

// RestoreSession creates a session from a previously saved state.
func RestoreSession(state State) *Session {
	s := NewSession(state.Enabled)
	s.open = state.Open
	s.entrants = append(s.entrants, state.Entrants...)
	for _, user := range state.Cooldown {
		s.cooldown[user] = struct{}{}
	}
	return s
}

// Enabled reports whether the shuffle feature is enabled for this stream.
func (s *Session) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// IsOpen reports whether the admission window is accepting entrants.
func (s *Session) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// Open transitions Closed -> Open.
func (s *Session) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.open {
		return ErrAlreadyOpen
	}
	s.open = true
	return nil
}

// Close transitions Open -> Closed. Pending entrants are kept and remain
// drawable until the next Draw.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = false
}

// Enter appends the user to the entrant list, preserving arrival order.
func (s *Session) Enter(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return ErrNotOpen
	}
	if _, ok := s.cooldown[userID]; ok {
		return errors.Wrapf(ErrOnCooldown, "user=%s", userID)
	}
	for _, entrant := range s.entrants {
		if entrant == userID {
			return errors.Wrapf(ErrAlreadyEntered, "user=%s", userID)
		}
	}

	s.entrants = append(s.entrants, userID)
	return nil
}

// Entrants returns a copy of the entrant list in arrival order.
func (s *Session) Entrants() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]string, len(s.entrants))
	copy(result, s.entrants)
	return result
}

// Draw selects one entrant uniformly at random, moves all entrants to the
// cooldown set, clears the entrant list, and returns the winner. Valid
// while Open, or Closed with pending entrants.
func (s *Session) Draw() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entrants) == 0 {
		return "", ErrNoEntrants
	}

	winner := s.entrants[s.rng.Intn(len(s.entrants))]
	for _, entrant := range s.entrants {
		s.cooldown[entrant] = struct{}{}
	}
	s.entrants = make([]string, 0)
	return winner, nil
}

// ClearCooldown empties the cooldown set. Clearing schedule is an
// external decision (typically the stream-start reset).
func (s *Session) ClearCooldown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cooldown = make(map[string]struct{})
}

// OnCooldown reports whether the user is ineligible to re-enter.
func (s *Session) OnCooldown(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.cooldown[userID]
	return ok
}

// State returns the persistable representation of the session.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := State{
		Enabled:  s.enabled,
		Open:     s.open,
		Entrants: make([]string, len(s.entrants)),
		Cooldown: make([]string, 0, len(s.cooldown)),
	}
	copy(state.Entrants, s.entrants)
	for user := range s.cooldown {
		state.Cooldown = append(state.Cooldown, user)
	}
	return state
}

// randomSeed returns a crypto-sourced seed for the draw RNG.
func randomSeed() int64 {
	var b [8]byte
	if _, err := cryptoRand.Read(b[:]); err != nil {
		return 1
	}
	return int64(binary.LittleEndian.Uint64(b[:]))
}
