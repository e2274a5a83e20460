package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/quipdeck/quipdeck/internal/catalog"
	"github.com/quipdeck/quipdeck/internal/config"
	"github.com/quipdeck/quipdeck/internal/engine"
	"github.com/quipdeck/quipdeck/internal/testutil"
)

type sessionResponse struct {
	PlayerID string       `json:"player_id"`
	Session  *sessionView `json:"session"`
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	sel := &catalog.Selection{}
	for i := 0; i < 10; i++ {
		sel.Prompts = append(sel.Prompts, catalog.PromptCard{
			ID: fmt.Sprintf("p%d", i), Text: fmt.Sprintf("prompt %d", i), Pick: 1,
		})
	}
	for i := 0; i < 40; i++ {
		sel.Responses = append(sel.Responses, catalog.ResponseCard{
			ID: fmt.Sprintf("r%d", i), Text: fmt.Sprintf("response %d", i),
		})
	}
	cat := &catalog.MockCatalog{}
	cat.On("Select", mock.Anything).Return(sel, nil)

	eng := engine.New(testutil.NewMemoryStore(), cat)
	return New(eng, config.Default().Game, zerolog.Nop())
}

// do performs a JSON request as the given player and decodes the body.
func do(t *testing.T, s *Server, method, path, asPlayer string, body any, out any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if asPlayer != "" {
		req.Header.Set(playerHeader, asPlayer)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if out != nil && w.Code < 300 && w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
	}
	return w
}

func createSession(t *testing.T, s *Server) *sessionResponse {
	t.Helper()
	var resp sessionResponse
	w := do(t, s, http.MethodPost, "/api/sessions", "", payload{"name": "Alice"}, &resp)
	require.Equal(t, http.StatusCreated, w.Code)
	require.NotEmpty(t, resp.PlayerID)
	require.NotNil(t, resp.Session)
	return &resp
}

func join(t *testing.T, s *Server, sessionID, name string) *sessionResponse {
	t.Helper()
	var resp sessionResponse
	w := do(t, s, http.MethodPost, "/api/sessions/"+sessionID+"/join", "", payload{"name": name}, &resp)
	require.Equal(t, http.StatusOK, w.Code)
	return &resp
}

type payload = map[string]any

func TestCreateAndJoin(t *testing.T) {
	s := newTestServer(t)

	created := createSession(t, s)
	assert.Equal(t, "waiting", string(created.Session.State))
	assert.Len(t, created.Session.Players, 1)

	joined := join(t, s, created.Session.ID, "Bob")
	assert.Len(t, joined.Session.Players, 2)
	assert.NotEqual(t, created.PlayerID, joined.PlayerID)
}

func TestStateRequiresPlayerHeader(t *testing.T) {
	s := newTestServer(t)
	created := createSession(t, s)

	w := do(t, s, http.MethodGet, "/api/sessions/"+created.Session.ID, "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestStatePollingNotModified(t *testing.T) {
	s := newTestServer(t)
	created := createSession(t, s)

	url := fmt.Sprintf("/api/sessions/%s?since=%d", created.Session.ID, created.Session.Version)
	w := do(t, s, http.MethodGet, url, created.PlayerID, nil, nil)
	assert.Equal(t, http.StatusNotModified, w.Code)

	// After a join the same marker sees the fresh document.
	join(t, s, created.Session.ID, "Bob")
	var resp sessionResponse
	w = do(t, s, http.MethodGet, url, created.PlayerID, nil, &resp)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Greater(t, resp.Session.Version, created.Session.Version)
}

func TestUnknownSessionIs404(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodGet, "/api/sessions/NOSUCH", "someone", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStartErrorMapping(t *testing.T) {
	s := newTestServer(t)
	created := createSession(t, s)
	joined := join(t, s, created.Session.ID, "Bob")
	join(t, s, created.Session.ID, "Carol")

	// Only the host may start.
	w := do(t, s, http.MethodPost, "/api/sessions/"+created.Session.ID+"/start", joined.PlayerID, nil, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	var resp sessionResponse
	w = do(t, s, http.MethodPost, "/api/sessions/"+created.Session.ID+"/start", created.PlayerID, nil, &resp)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "playing", string(resp.Session.State))
}

func TestHandsAreRedacted(t *testing.T) {
	s := newTestServer(t)
	created := createSession(t, s)
	joined := join(t, s, created.Session.ID, "Bob")
	join(t, s, created.Session.ID, "Carol")

	w := do(t, s, http.MethodPost, "/api/sessions/"+created.Session.ID+"/start", created.PlayerID, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp sessionResponse
	w = do(t, s, http.MethodGet, "/api/sessions/"+created.Session.ID, joined.PlayerID, nil, &resp)
	require.Equal(t, http.StatusOK, w.Code)

	// The viewer gets their own cards, everyone else only counts.
	assert.NotEmpty(t, resp.Session.Hand)
	for _, p := range resp.Session.Players {
		assert.Positive(t, p.HandCount)
	}
}

func TestSubmittedCardsHiddenWhileCollecting(t *testing.T) {
	s := newTestServer(t)
	created := createSession(t, s)
	bob := join(t, s, created.Session.ID, "Bob")
	join(t, s, created.Session.ID, "Carol")

	w := do(t, s, http.MethodPost, "/api/sessions/"+created.Session.ID+"/start", created.PlayerID, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var state sessionResponse
	w = do(t, s, http.MethodGet, "/api/sessions/"+created.Session.ID, bob.PlayerID, nil, &state)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, state.Session.Hand)

	var resp sessionResponse
	w = do(t, s, http.MethodPost, "/api/sessions/"+created.Session.ID+"/submit", bob.PlayerID,
		payload{"card_ids": state.Session.Hand[:1]}, &resp)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, []string{bob.PlayerID}, resp.Session.SubmittedPlayers)
	assert.Empty(t, resp.Session.Submissions)
}

func TestLateJoinerListedWithID(t *testing.T) {
	s := newTestServer(t)

	var created sessionResponse
	w := do(t, s, http.MethodPost, "/api/sessions", "",
		payload{"name": "Alice", "settings": payload{"allow_late_join": true}}, &created)
	require.Equal(t, http.StatusCreated, w.Code)

	join(t, s, created.Session.ID, "Bob")
	join(t, s, created.Session.ID, "Carol")
	w = do(t, s, http.MethodPost, "/api/sessions/"+created.Session.ID+"/start", created.PlayerID, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// The host needs the skipped player's id to place them, so the view must
	// carry ids alongside the display names.
	dave := join(t, s, created.Session.ID, "Dave")
	assert.Equal(t, []string{dave.PlayerID}, dave.Session.Skipped.IDs)
	assert.Equal(t, []string{"Dave"}, dave.Session.Skipped.Names)
	assert.False(t, dave.Session.OrderLocked)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodGet, "/health", "", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
