package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/torigoya/requestq/internal/app/dispatch"
	"github.com/torigoya/requestq/internal/app/stream"
	"github.com/torigoya/requestq/internal/infra/config"
	"github.com/torigoya/requestq/internal/infra/repository"
	"github.com/torigoya/requestq/internal/infra/video"
)

const adminToken = "admin-token"

type staticResolver struct {
	videos map[string]video.Info
}

func (r *staticResolver) Resolve(ctx context.Context, idOrURL string) (video.Info, error) {
	info, ok := r.videos[idOrURL]
	if !ok {
		return video.Info{}, video.ErrVideoNotFound
	}
	return info, nil
}

type noopBroadcaster struct{}

func (noopBroadcaster) Publish(message any) error { return nil }

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	store, err := repository.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cfg := &config.Config{
		Rewards: config.RewardsConfig{BumpsPerRedemption: 1},
		Shuffle: config.ShuffleConfig{Enabled: true},
		Admin:   config.AdminConfig{Token: adminToken},
		Messages: config.MessagesConfig{
			SongNotFound: "no such song",
			QueueEmpty:   "nothing queued",
		},
	}

	resolver := &staticResolver{videos: map[string]video.Info{
		"vid-a": {VideoID: "vid-a", Title: "Song A", Duration: 3 * time.Minute},
		"vid-b": {VideoID: "vid-b", Title: "Song B", Duration: 4 * time.Minute},
	}}

	manager := stream.NewManager(cfg, store, noopBroadcaster{}, dispatch.New(), resolver)

	mux := http.NewServeMux()
	NewHandler(manager, cfg).RegisterRoutes(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, srv *httptest.Server, method, path, token, body string) (*http.Response, map[string]any) {
	t.Helper()

	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(AdminTokenHeader, token)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func TestAPI_RequestAndGetQueue(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doJSON(t, srv, http.MethodPost, "/api/request", "",
		`{"userId": "user1", "username": "alice", "video": "vid-a"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "success", body["code"])

	resp, body = doJSON(t, srv, http.MethodGet, "/api/queue", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	songs, ok := body["songs"].([]any)
	require.True(t, ok)
	require.Len(t, songs, 1)
	first := songs[0].(map[string]any)
	assert.Equal(t, "vid-a", first["songId"])
}

func TestAPI_RequestMissingFields(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, srv, http.MethodPost, "/api/request", "", `{"username": "alice"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_AdminRoutesRequireToken(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, srv, http.MethodPost, "/api/queue/next", "", `{}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, srv, http.MethodPost, "/api/queue/next", "wrong-token", `{}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPI_PlayNext(t *testing.T) {
	srv := newTestServer(t)

	doJSON(t, srv, http.MethodPost, "/api/request", "",
		`{"userId": "user1", "username": "alice", "video": "vid-a"}`)

	resp, body := doJSON(t, srv, http.MethodPost, "/api/queue/next", adminToken, `{}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	song := body["song"].(map[string]any)
	assert.Equal(t, "vid-a", song["songId"])

	resp, _ = doJSON(t, srv, http.MethodPost, "/api/queue/next", adminToken, `{}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "empty queue")
}

func TestAPI_RemoveSong(t *testing.T) {
	srv := newTestServer(t)

	doJSON(t, srv, http.MethodPost, "/api/request", "",
		`{"userId": "user1", "username": "alice", "video": "vid-a"}`)

	resp, _ := doJSON(t, srv, http.MethodPost, "/api/queue/remove", adminToken, `{"songId": "vid-a"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, srv, http.MethodPost, "/api/queue/remove", adminToken, `{"songId": "vid-a"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_MoveSong(t *testing.T) {
	srv := newTestServer(t)

	doJSON(t, srv, http.MethodPost, "/api/request", "",
		`{"userId": "user1", "username": "alice", "video": "vid-a"}`)
	doJSON(t, srv, http.MethodPost, "/api/request", "",
		`{"userId": "user2", "username": "bob", "video": "vid-b"}`)

	resp, _ := doJSON(t, srv, http.MethodPost, "/api/queue/move", adminToken,
		`{"songId": "vid-b", "position": 0}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	_, body := doJSON(t, srv, http.MethodGet, "/api/queue", "", "")
	songs := body["songs"].([]any)
	assert.Equal(t, "vid-b", songs[0].(map[string]any)["songId"])
}

func TestAPI_BumpGrantAndQuery(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, srv, http.MethodPost, "/api/bumps/grant", adminToken,
		`{"userId": "user1", "username": "alice", "count": 2}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, srv, http.MethodGet, "/api/bumps?userId=user1", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), body["remaining"])

	resp, _ = doJSON(t, srv, http.MethodGet, "/api/bumps", "", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_GrantNegativeBumps(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, srv, http.MethodPost, "/api/bumps/grant", adminToken,
		`{"userId": "user1", "username": "alice", "count": -1}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_ShuffleLifecycle(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, srv, http.MethodPost, "/api/shuffle/draw", adminToken, `{}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "nothing to draw yet")

	resp, _ = doJSON(t, srv, http.MethodPost, "/api/shuffle/open", adminToken, `{}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, srv, http.MethodPost, "/api/shuffle/open", adminToken, `{}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "already open")

	_, body := doJSON(t, srv, http.MethodGet, "/api/shuffle", "", "")
	assert.Equal(t, true, body["open"])

	resp, _ = doJSON(t, srv, http.MethodPost, "/api/shuffle/close", adminToken, `{}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, srv, http.MethodPost, "/api/shuffle/clear-cooldown", adminToken, `{}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
