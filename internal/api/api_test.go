package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memspace/memspace/internal/auth"
	"github.com/memspace/memspace/internal/model"
	"github.com/memspace/memspace/internal/outbox"
	"github.com/memspace/memspace/internal/services"
	"github.com/memspace/memspace/internal/store/storetest"
)

type stubEmbedder struct{}

func (stubEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *storetest.Fake) {
	t.Helper()
	f := storetest.New()

	_, err := f.Users().Create(context.Background(), &model.User{
		ID: "u-dev", Name: "Dev", Email: "dev@example.test", Role: model.RoleUser, Active: true,
	})
	require.NoError(t, err)

	sessions, err := auth.NewDevSessionVerifier(false)
	require.NoError(t, err)

	log := zerolog.Nop()
	resolver := auth.NewResolver(f, sessions, log)
	az := auth.NewAuthorizer(f)

	srv := httptest.NewServer(NewRouter(Deps{
		Resolver: resolver,
		Memories: services.NewMemoryService(f, az, stubEmbedder{}, outbox.NoopEnqueuer{}, time.Second, log),
		Spaces:   services.NewSpaceService(f, az),
		ApiKeys:  services.NewApiKeyService(f, az),
		Users:    services.NewUserService(f),
		Invites:  services.NewInviteService(f, time.Hour),
	}))
	t.Cleanup(srv.Close)
	return srv, f
}

// do issues a request as the dev session user and decodes the JSON response.
func do(t *testing.T, srv *httptest.Server, method, path string, body interface{}, out interface{}) *http.Response {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, srv.URL+path, rdr)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(auth.DevSessionHeader, "u-dev")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestRouter_RejectsUnauthenticatedRequests(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/v1/memories")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestMemoryLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	var space model.Space
	resp := do(t, srv, http.MethodPost, "/v1/spaces", map[string]interface{}{"name": "notes"}, &space)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NotEmpty(t, space.ID)

	var created model.Memory
	resp = do(t, srv, http.MethodPost, "/v1/memories", map[string]interface{}{
		"content":  "remember the milk",
		"spaceIds": []string{space.ID},
		"metadata": map[string]interface{}{"kind": "todo"},
	}, &created)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NotEmpty(t, created.ID)
	assert.Len(t, created.Spaces, 1)

	var got model.Memory
	resp = do(t, srv, http.MethodGet, "/v1/memories/"+created.ID, nil, &got)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "remember the milk", got.Content)

	var listed struct {
		Data []model.Memory `json:"data"`
		model.Pagination
	}
	resp = do(t, srv, http.MethodGet, "/v1/memories", nil, &listed)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, listed.Total)

	var hits struct {
		Data []model.SearchResult `json:"data"`
		model.Pagination
	}
	resp = do(t, srv, http.MethodPost, "/v1/search", map[string]interface{}{"query": "milk"}, &hits)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, hits.Data, 1)
	assert.InDelta(t, 1.0, hits.Data[0].Similarity, 1e-6)

	resp = do(t, srv, http.MethodDelete, "/v1/memories/"+created.ID, nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, srv, http.MethodGet, "/v1/memories/"+created.ID, nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateMemory_UnknownSpaceIsForbidden(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, srv, http.MethodPost, "/v1/memories", map[string]interface{}{
		"content":  "orphan",
		"spaceIds": []string{"no-such-space"},
	}, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestCreateMemory_MissingContentIsRejected(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, srv, http.MethodPost, "/v1/memories", map[string]interface{}{}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListMemories_RejectsBadOrder(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, srv, http.MethodGet, "/v1/memories?order=sideways", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestValidateToken(t *testing.T) {
	srv, _ := newTestServer(t)

	var space model.Space
	resp := do(t, srv, http.MethodPost, "/v1/spaces", map[string]interface{}{"name": "ci"}, &space)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var key struct {
		ID  string `json:"id"`
		Key string `json:"key"`
	}
	resp = do(t, srv, http.MethodPost, "/v1/api-keys", map[string]interface{}{
		"name":     "ci-key",
		"spaceIds": []string{space.ID},
	}, &key)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Len(t, key.Key, 64)

	// validate-token is public; no dev header needed.
	body, _ := json.Marshal(map[string]string{"token": key.Key})
	httpResp, err := http.Post(srv.URL+"/v1/auth/validate-token", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer func() { _ = httpResp.Body.Close() }()

	var verdict struct {
		Valid  bool   `json:"valid"`
		UserID string `json:"userId"`
	}
	require.NoError(t, json.NewDecoder(httpResp.Body).Decode(&verdict))
	assert.True(t, verdict.Valid)
	assert.Equal(t, "u-dev", verdict.UserID)

	// Unknown tokens report invalid with a 200, never an auth error.
	body, _ = json.Marshal(map[string]string{"token": "bogus"})
	httpResp, err = http.Post(srv.URL+"/v1/auth/validate-token", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer func() { _ = httpResp.Body.Close() }()
	assert.Equal(t, http.StatusOK, httpResp.StatusCode)
	verdict = struct {
		Valid  bool   `json:"valid"`
		UserID string `json:"userId"`
	}{}
	require.NoError(t, json.NewDecoder(httpResp.Body).Decode(&verdict))
	assert.False(t, verdict.Valid)
}

func TestApiKeyBearerAuth(t *testing.T) {
	srv, _ := newTestServer(t)

	var space model.Space
	resp := do(t, srv, http.MethodPost, "/v1/spaces", map[string]interface{}{"name": "agents"}, &space)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var key struct {
		Key string `json:"key"`
	}
	resp = do(t, srv, http.MethodPost, "/v1/api-keys", map[string]interface{}{
		"name":     "agent-key",
		"spaceIds": []string{space.ID},
	}, &key)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/v1/memories", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+key.Key)
	httpResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = httpResp.Body.Close() }()
	assert.Equal(t, http.StatusOK, httpResp.StatusCode)

	// Keys cannot mint keys.
	body, _ := json.Marshal(map[string]interface{}{"name": "escalation", "spaceIds": []string{space.ID}})
	req, err = http.NewRequest(http.MethodPost, srv.URL+"/v1/api-keys", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+key.Key)
	httpResp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = httpResp.Body.Close() }()
	assert.Equal(t, http.StatusForbidden, httpResp.StatusCode)
}
