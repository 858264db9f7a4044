// Package httpapi provides the JSON HTTP API for viewers and moderators.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/torigoya/requestq/internal/app/stream"
	"github.com/torigoya/requestq/internal/domain/queue"
	"github.com/torigoya/requestq/internal/domain/shuffle"
	"github.com/torigoya/requestq/internal/infra/config"
)

// Handler serves the queue API.
type Handler struct {
	manager *stream.Manager
	config  *config.Config
}

// NewHandler creates the API handler.
func NewHandler(manager *stream.Manager, cfg *config.Config) *Handler {
	return &Handler{manager: manager, config: cfg}
}

// RegisterRoutes mounts all API routes on the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/queue", h.getQueue)
	mux.HandleFunc("POST /api/request", h.postRequest)
	mux.HandleFunc("GET /api/bumps", h.getBumps)
	mux.HandleFunc("GET /api/shuffle", h.getShuffle)

	mux.Handle("POST /api/queue/remove", h.requireAdmin(h.postRemove))
	mux.Handle("POST /api/queue/move", h.requireAdmin(h.postMove))
	mux.Handle("POST /api/queue/next", h.requireAdmin(h.postNext))
	mux.Handle("POST /api/bumps/grant", h.requireAdmin(h.postGrantBumps))
	mux.Handle("POST /api/shuffle/open", h.requireAdmin(h.postShuffleOpen))
	mux.Handle("POST /api/shuffle/close", h.requireAdmin(h.postShuffleClose))
	mux.Handle("POST /api/shuffle/draw", h.requireAdmin(h.postShuffleDraw))
	mux.Handle("POST /api/shuffle/clear-cooldown", h.requireAdmin(h.postShuffleClearCooldown))
}

// AdminTokenHeader is the header name for the moderator token.
const AdminTokenHeader = "X-Admin-Token"

// requireAdmin rejects requests without a valid moderator token.
func (h *Handler) requireAdmin(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get(AdminTokenHeader)
		if token == "" || token != h.config.Admin.Token {
			writeError(w, http.StatusUnauthorized, "invalid admin token")
			return
		}
		next(w, r)
	})
}

func (h *Handler) getQueue(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"songs": h.manager.Snapshot()})
}

func (h *Handler) postRequest(w http.ResponseWriter, r *http.Request) {
	var in struct {
		UserID   string `json:"userId"`
		Username string `json:"username"`
		Video    string `json:"video"`
		UseBump  bool   `json:"useBump"`
	}
	if !decodeBody(w, r, &in) {
		return
	}
	if in.UserID == "" || in.Video == "" {
		writeError(w, http.StatusBadRequest, "userId and video are required")
		return
	}

	result, err := h.manager.RequestSong(r.Context(), stream.RequestInput{
		UserID:   in.UserID,
		Username: in.Username,
		Video:    in.Video,
		UseBump:  in.UseBump,
	})
	if err != nil {
		zlog.Error().Err(err).Msg("api: song request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": result.Success,
		"code":    result.Code,
		"message": h.config.GetMessage(result.Code),
		"song":    result.Song.Snapshot(),
	})
}

func (h *Handler) getBumps(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"userId":    userID,
		"remaining": h.manager.RemainingBumps(userID),
	})
}

func (h *Handler) getShuffle(w http.ResponseWriter, r *http.Request) {
	state := h.manager.ShuffleState()
	writeJSON(w, http.StatusOK, map[string]any{
		"enabled":  state.Enabled,
		"open":     state.Open,
		"entrants": len(state.Entrants),
	})
}

func (h *Handler) postRemove(w http.ResponseWriter, r *http.Request) {
	var in struct {
		SongID string `json:"songId"`
	}
	if !decodeBody(w, r, &in) {
		return
	}

	err := h.manager.RemoveSong(r.Context(), in.SongID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	case errors.Is(err, queue.ErrSongNotFound):
		writeError(w, http.StatusNotFound, h.config.GetMessage("song_not_found"))
	default:
		zlog.Error().Err(err).Msg("api: remove failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) postMove(w http.ResponseWriter, r *http.Request) {
	var in struct {
		SongID   string `json:"songId"`
		Position int    `json:"position"`
	}
	if !decodeBody(w, r, &in) {
		return
	}

	err := h.manager.MoveSong(r.Context(), in.SongID, in.Position)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	case errors.Is(err, queue.ErrSongNotFound):
		writeError(w, http.StatusNotFound, h.config.GetMessage("song_not_found"))
	default:
		zlog.Error().Err(err).Msg("api: move failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) postNext(w http.ResponseWriter, r *http.Request) {
	played, err := h.manager.PlayNext(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "song": played.Snapshot()})
	case errors.Is(err, queue.ErrEmpty):
		writeError(w, http.StatusConflict, h.config.GetMessage("queue_empty"))
	default:
		zlog.Error().Err(err).Msg("api: advance failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) postGrantBumps(w http.ResponseWriter, r *http.Request) {
	var in struct {
		UserID   string `json:"userId"`
		Username string `json:"username"`
		Count    int    `json:"count"`
	}
	if !decodeBody(w, r, &in) {
		return
	}

	if err := h.manager.GrantBumps(r.Context(), in.UserID, in.Username, in.Count); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) postShuffleOpen(w http.ResponseWriter, r *http.Request) {
	err := h.manager.OpenShuffle(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	case errors.Is(err, shuffle.ErrAlreadyOpen):
		writeError(w, http.StatusConflict, "shuffle window already open")
	default:
		zlog.Error().Err(err).Msg("api: shuffle open failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) postShuffleClose(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.CloseShuffle(r.Context()); err != nil {
		zlog.Error().Err(err).Msg("api: shuffle close failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) postShuffleDraw(w http.ResponseWriter, r *http.Request) {
	winner, err := h.manager.DrawShuffle(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "winnerId": winner})
	case errors.Is(err, shuffle.ErrNoEntrants):
		writeError(w, http.StatusConflict, "no entrants to draw from")
	default:
		zlog.Error().Err(err).Msg("api: shuffle draw failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) postShuffleClearCooldown(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.ClearShuffleCooldown(r.Context()); err != nil {
		zlog.Error().Err(err).Msg("api: cooldown clear failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// decodeBody decodes the JSON request body, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": false, "message": message})
}
