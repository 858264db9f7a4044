// Package broadcast provides the hub that fans out state changes to
// connected clients. Delivery is best-effort: a failed or slow client
// never affects delivery to others, and never rolls back the state
// mutation that triggered the broadcast.
package broadcast

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// Client receives serialized frames. Implemented by websocket
// connections and by test doubles.
type Client interface {
	Send(data []byte) error
}

// subscription represents one connected client.
type subscription struct {
	id     string
	client Client
}

// Hub manages client subscriptions and broadcasting.
type Hub struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription
	sequenceNo    uint64
	sendTimeout   time.Duration
}

// NewHub creates a new hub.
func NewHub() *Hub {
	return &Hub{
		subscriptions: make(map[string]*subscription),
		sendTimeout:   500 * time.Millisecond,
	}
}

// Subscribe adds a client and returns its subscription ID.
func (h *Hub) Subscribe(c Client) string {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := uuid.New().String()
	h.subscriptions[id] = &subscription{id: id, client: c}
	return id
}

// Unsubscribe removes a subscription.
func (h *Hub) Unsubscribe(subscriptionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subscriptions, subscriptionID)
}

// SubscriberCount returns the number of connected clients.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscriptions)
}

// frame is the outbound wire shape.
type frame struct {
	SequenceNo uint64          `json:"sequenceNo"`
	Message    json.RawMessage `json:"message"`
}

// Publish marshals the message once and sends it to all subscribers
// concurrently, each with a timeout. Per-client failures are independent
// and do not surface beyond the hub.
func (h *Hub) Publish(message any) error {
	raw, err := json.Marshal(message)
	if err != nil {
		return errors.Wrap(err, "marshaling broadcast message")
	}

	h.mu.Lock()
	h.sequenceNo++
	data, err := json.Marshal(frame{SequenceNo: h.sequenceNo, Message: raw})
	if err != nil {
		h.mu.Unlock()
		return errors.Wrap(err, "marshaling broadcast frame")
	}
	subs := make([]*subscription, 0, len(h.subscriptions))
	for _, sub := range h.subscriptions {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(s *subscription) {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), h.sendTimeout)
			defer cancel()

			done := make(chan error, 1)
			go func() {
				done <- s.client.Send(data)
			}()

			select {
			case err := <-done:
				if err != nil {
					// Failed client is dropped; it reconnects on its own.
					h.Unsubscribe(s.id)
				}
			case <-ctx.Done():
				h.Unsubscribe(s.id)
			}
		}(sub)
	}
	wg.Wait()
	return nil
}
