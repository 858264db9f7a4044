// Package dispatch provides the domain-event dispatcher.
package dispatch

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/torigoya/requestq/internal/domain/event"
)

// HandlerFunc reacts to a dispatched event. Returning an error marks the
// handler as failed but never prevents subsequent handlers from running.
type HandlerFunc func(ctx context.Context, e event.Event) error

// registration pairs a handler with a name used in failure logs.
type registration struct {
	name    string
	handler HandlerFunc
}

// Dispatcher routes events to their registered handlers in registration
// order. A handler failure or panic is logged and isolated so unrelated
// side effects still run.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[event.Type][]registration
}

// New creates an empty dispatcher.
func New() *Dispatcher {
	return &Dispatcher{
		handlers: make(map[event.Type][]registration),
	}
}

// Register appends a handler for the given event type.
func (d *Dispatcher) Register(t event.Type, name string, h HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[t] = append(d.handlers[t], registration{name: name, handler: h})
}

// Dispatch runs every handler registered for the event's type. Handlers
// may emit follow-on events through this dispatcher; the reaction rules
// keep that cascade shallow.
func (d *Dispatcher) Dispatch(ctx context.Context, e event.Event) {
	d.mu.RLock()
	regs := d.handlers[e.Type]
	d.mu.RUnlock()

	if len(regs) == 0 {
		zlog.Debug().Msgf("dispatch: no handlers for event: type=%s", e.Type)
		return
	}

	for _, reg := range regs {
		if err := d.invoke(ctx, reg, e); err != nil {
			zlog.Error().Err(err).Msgf("dispatch: handler failed: handler=%s type=%s", reg.name, e.Type)
		}
	}
}

// invoke runs one handler, converting a panic into an error.
func (d *Dispatcher) invoke(ctx context.Context, reg registration, e event.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("handler panic: %v", r)
		}
	}()
	return reg.handler(ctx, e)
}

// HandlerCount returns the number of handlers for the given type.
func (d *Dispatcher) HandlerCount(t event.Type) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.handlers[t])
}
