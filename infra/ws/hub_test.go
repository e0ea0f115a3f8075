package ws

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetops/core/model"
	"github.com/kilianp07/fleetops/core/playback"
	"github.com/kilianp07/fleetops/infra/logger"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) playback.Frame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var f playback.Frame
	require.NoError(t, json.Unmarshal(data, &f))
	return f
}

func waitClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Clients() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, got %d", n, h.Clients())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub(logger.NopLogger{})
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	a, b := dial(t, srv), dial(t, srv)
	waitClients(t, hub, 2)

	frame := playback.Frame{Session: "s1", Index: 4, Positions: []playback.Position{
		{Key: model.TrackKey{VehicleID: 1, RouteID: 2}, Label: "A111AA", Lat: 55.75, Lon: 37.61},
	}}
	require.NoError(t, hub.PublishFrame(frame))

	for _, c := range []*websocket.Conn{a, b} {
		got := readFrame(t, c)
		assert.Equal(t, 4, got.Index)
		require.Len(t, got.Positions, 1)
		assert.Equal(t, "A111AA", got.Positions[0].Label)
	}
}

func TestHubReplaysLastFrame(t *testing.T) {
	hub := NewHub(logger.NopLogger{})
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	require.NoError(t, hub.PublishFrame(playback.Frame{Session: "s1", Index: 1}))
	require.NoError(t, hub.PublishFrame(playback.Frame{Session: "s1", Index: 2}))

	c := dial(t, srv)
	got := readFrame(t, c)
	if got.Index != 2 {
		t.Fatalf("expected last frame index 2, got %d", got.Index)
	}
}

func TestHubClientLeaves(t *testing.T) {
	hub := NewHub(logger.NopLogger{})
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	c := dial(t, srv)
	waitClients(t, hub, 1)
	_ = c.Close()
	waitClients(t, hub, 0)
	require.NoError(t, hub.PublishFrame(playback.Frame{Index: 1}))
}
