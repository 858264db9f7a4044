// Package webhook provides the inbound HTTP endpoint for platform
// event notifications.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/torigoya/requestq/internal/app/dispatch"
	"github.com/torigoya/requestq/internal/app/translate"
)

// Platform notification headers.
const (
	headerMessageID        = "Twitch-Eventsub-Message-Id"
	headerMessageTimestamp = "Twitch-Eventsub-Message-Timestamp"
	headerMessageSignature = "Twitch-Eventsub-Message-Signature"
	headerMessageType      = "Twitch-Eventsub-Message-Type"

	messageTypeNotification = "notification"
	messageTypeVerification = "webhook_callback_verification"
	messageTypeRevocation   = "revocation"

	signaturePrefix = "sha256="
	maxBodySize     = 1 << 20
	maxMessageAge   = 10 * time.Minute
)

// Handler verifies, deduplicates, translates and dispatches inbound
// notifications.
type Handler struct {
	secret     []byte
	dispatcher *dispatch.Dispatcher
	seen       *seenCache
}

// NewHandler creates a webhook handler with the shared HMAC secret.
func NewHandler(secret string, d *dispatch.Dispatcher) *Handler {
	return &Handler{
		secret:     []byte(secret),
		dispatcher: d,
		seen:       newSeenCache(128),
	}
}

// ServeHTTP handles one delivery. The platform retries on non-2xx, so
// processing failures after verification still return 2xx; only
// malformed or unauthenticated requests are rejected.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	messageID := r.Header.Get(headerMessageID)
	timestamp := r.Header.Get(headerMessageTimestamp)
	if !h.verifySignature(messageID, timestamp, body, r.Header.Get(headerMessageSignature)) {
		zlog.Warn().Msgf("webhook: signature verification failed: message_id=%s", messageID)
		http.Error(w, "invalid signature", http.StatusForbidden)
		return
	}
	if stale(timestamp) {
		zlog.Warn().Msgf("webhook: stale message rejected: message_id=%s timestamp=%s", messageID, timestamp)
		http.Error(w, "stale message", http.StatusForbidden)
		return
	}

	switch r.Header.Get(headerMessageType) {
	case messageTypeVerification:
		h.handleVerification(w, body)
	case messageTypeRevocation:
		zlog.Warn().Msgf("webhook: subscription revoked: message_id=%s", messageID)
		w.WriteHeader(http.StatusNoContent)
	case messageTypeNotification:
		h.handleNotification(w, messageID, body)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// verifySignature checks the HMAC-SHA256 over id+timestamp+body.
func (h *Handler) verifySignature(messageID, timestamp string, body []byte, signature string) bool {
	mac := hmac.New(sha256.New, h.secret)
	mac.Write([]byte(messageID))
	mac.Write([]byte(timestamp))
	mac.Write(body)
	expected := signaturePrefix + hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// handleVerification responds to the subscription handshake with the
// challenge string.
func (h *Handler) handleVerification(w http.ResponseWriter, body []byte) {
	var payload struct {
		Challenge string `json:"challenge"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Challenge == "" {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(payload.Challenge))
}

// handleNotification translates and dispatches one event delivery.
func (h *Handler) handleNotification(w http.ResponseWriter, messageID string, body []byte) {
	if h.seen.contains(messageID) {
		zlog.Debug().Msgf("webhook: duplicate delivery ignored: message_id=%s", messageID)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h.seen.add(messageID)

	var n translate.Notification
	if err := json.Unmarshal(body, &n); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	e, ok, err := translate.Translate(n)
	if err != nil {
		// Recognized type with a malformed payload. Acknowledge so the
		// platform stops retrying a delivery that will never parse.
		zlog.Error().Err(err).Msgf("webhook: translation failed: type=%s", n.Subscription.Type)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if !ok {
		zlog.Debug().Msgf("webhook: unrecognized event type dropped: type=%s", n.Subscription.Type)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	// Detached from the request context: the platform only needs the
	// acknowledgment, and a dropped connection must not abort handlers.
	h.dispatcher.Dispatch(context.Background(), e)
	w.WriteHeader(http.StatusNoContent)
}

// stale reports whether the delivery timestamp is outside the accepted
// window. An unparseable timestamp is treated as stale.
func stale(timestamp string) bool {
	t, err := time.Parse(time.RFC3339Nano, timestamp)
	if err != nil {
		return true
	}
	return time.Since(t) > maxMessageAge
}
