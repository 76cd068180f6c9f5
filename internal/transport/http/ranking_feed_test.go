package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizmaster-service/internal/domain"
)

func TestRankingFeed(t *testing.T) {
	env := newTestEnv(t)
	created := createCapitals(t, env)

	u := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/api/quizzes/" + created.ShareCode + "/ranking/ws"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Expect the current (empty) ranking first.
	typ, entries := readFeed(t, conn)
	require.Equal(t, "ranking", typ)
	assert.Empty(t, entries)

	resp, body := env.do(t, http.MethodPost, "/api/quizzes/"+created.ShareCode+"/submit", map[string]any{
		"player_name": "Ana",
		"answers":     []any{},
	}, false)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	typ, entries = readFeed(t, conn)
	require.Equal(t, "ranking", typ)
	require.Len(t, entries, 1)
	assert.Equal(t, "Ana", entries[0].PlayerName)

	resp, _ = env.do(t, http.MethodDelete, "/api/quizzes/"+created.ShareCode, nil, true)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	typ, _ = readFeed(t, conn)
	assert.Equal(t, "closed", typ)
}

func TestRankingFeedUnknownQuiz(t *testing.T) {
	env := newTestEnv(t)

	u := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/api/quizzes/ZZZZZZ/ranking/ws"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func readFeed(t *testing.T, conn *websocket.Conn) (string, []domain.Submission) {
	t.Helper()
	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	require.NoError(t, conn.ReadJSON(&msg))

	var entries []domain.Submission
	if len(msg.Payload) > 0 && string(msg.Payload) != "null" {
		require.NoError(t, json.Unmarshal(msg.Payload, &entries))
	}
	return msg.Type, entries
}
