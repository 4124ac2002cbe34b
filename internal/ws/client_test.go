package ws_test

import (
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calebwray/interest-radar/internal/domain"
	"github.com/calebwray/interest-radar/internal/ws"
)

type wireFrame struct {
	Event string              `json:"event"`
	Data  domain.Notification `json:"data"`
}

func startServer(t *testing.T) (*domain.Registry, string) {
	t.Helper()
	registry := domain.NewRegistry()
	handler := ws.NewHandler(registry, "*", slog.New(slog.DiscardHandler))
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return registry, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dialAndJoin(t *testing.T, url, userID string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, conn.WriteJSON(map[string]string{"action": "join", "userId": userID}))
	return conn
}

func TestJoinThenDeliver(t *testing.T) {
	registry, url := startServer(t)
	conn := dialAndJoin(t, url, "alice")

	require.Eventually(t, func() bool {
		return len(registry.ConnectionsFor("alice")) == 1
	}, 2*time.Second, 10*time.Millisecond, "join frame should register the connection")

	target := registry.ConnectionsFor("alice")[0]
	require.NoError(t, target.Deliver(&domain.Notification{
		Title:       "casual chess in the park",
		Description: "bring your own board",
		Tags:        []string{"chess"},
		CreatedBy:   "The Author",
	}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame wireFrame
	require.NoError(t, conn.ReadJSON(&frame))

	assert.Equal(t, "new-interest", frame.Event)
	assert.Equal(t, "casual chess in the park", frame.Data.Title)
	assert.Equal(t, "The Author", frame.Data.CreatedBy)
	assert.Equal(t, []string{"chess"}, frame.Data.Tags)
}

func TestDisconnectUnregisters(t *testing.T) {
	registry, url := startServer(t)
	conn := dialAndJoin(t, url, "alice")

	require.Eventually(t, func() bool {
		return len(registry.ConnectionsFor("alice")) == 1
	}, 2*time.Second, 10*time.Millisecond)

	conn.Close()

	require.Eventually(t, func() bool {
		return len(registry.ConnectionsFor("alice")) == 0
	}, 2*time.Second, 10*time.Millisecond, "close should unregister the connection")
	assert.Equal(t, 0, registry.Len())
}

func TestTwoSessionsForOneUser(t *testing.T) {
	registry, url := startServer(t)
	first := dialAndJoin(t, url, "alice")
	second := dialAndJoin(t, url, "alice")

	require.Eventually(t, func() bool {
		return len(registry.ConnectionsFor("alice")) == 2
	}, 2*time.Second, 10*time.Millisecond)

	for _, target := range registry.ConnectionsFor("alice") {
		require.NoError(t, target.Deliver(&domain.Notification{Title: "hello"}))
	}

	for _, conn := range []*websocket.Conn{first, second} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var frame wireFrame
		require.NoError(t, conn.ReadJSON(&frame))
		assert.Equal(t, "hello", frame.Data.Title)
	}
}

func TestAnonymousSessionIsNotRegistered(t *testing.T) {
	registry, url := startServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	// A second session that does join proves the server is processing
	// frames; the anonymous one must still be absent.
	dialAndJoin(t, url, "bob")
	require.Eventually(t, func() bool {
		return len(registry.ConnectionsFor("bob")) == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 1, registry.Len())
}
