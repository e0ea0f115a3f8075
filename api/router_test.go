package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetops/core/monitoring"
	"github.com/kilianp07/fleetops/core/playback"
	"github.com/kilianp07/fleetops/core/track"
	"github.com/kilianp07/fleetops/core/vehiclestatus"
	"github.com/kilianp07/fleetops/infra/logger"
	"github.com/kilianp07/fleetops/infra/store/memstore"
	"github.com/kilianp07/fleetops/infra/ws"
)

type panicMonitor struct {
	monitoring.NopMonitor
	mu   sync.Mutex
	tags map[string]string
}

func (m *panicMonitor) CapturePanic(_ any, tags map[string]string) {
	m.mu.Lock()
	m.tags = tags
	m.mu.Unlock()
}

func newRouter(t *testing.T, hub http.Handler) http.Handler {
	t.Helper()
	s := memstore.New()
	sched, err := playback.NewScheduler(playback.Config{}, playback.NopSink{}, logger.NopLogger{})
	require.NoError(t, err)
	t.Cleanup(sched.Close)
	return NewRouter(context.Background(), Deps{
		Store:     s,
		Synth:     track.New(s, s, nil, track.Config{}, logger.NopLogger{}),
		Playback:  sched,
		WebSocket: hub,
		Statuses:  vehiclestatus.NewMemoryStore(),
		Log:       logger.NopLogger{},
	})
}

func TestHealthz(t *testing.T) {
	rr := httptest.NewRecorder()
	newRouter(t, nil).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestRoutesMounted(t *testing.T) {
	r := newRouter(t, nil)
	for _, tc := range []struct {
		method, url string
		code        int
	}{
		{http.MethodGet, "/api/analytics/vehicles/1/cost", http.StatusOK},
		{http.MethodGet, "/api/tracks", http.StatusOK},
		{http.MethodGet, "/api/playback", http.StatusOK},
		{http.MethodGet, "/api/vehicles/status", http.StatusOK},
		{http.MethodPost, "/api/playback/play", http.StatusUnprocessableEntity},
		{http.MethodGet, "/api/unknown", http.StatusNotFound},
	} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(tc.method, tc.url, nil))
		assert.Equal(t, tc.code, rr.Code, tc.url)
	}
}

func TestRecovererReportsPanic(t *testing.T) {
	mon := &panicMonitor{}
	monitoring.Init(mon)
	t.Cleanup(func() { monitoring.Init(monitoring.NopMonitor{}) })

	h := recoverer(logger.NopLogger{})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/tracks", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, rr.Body.String())
	mon.mu.Lock()
	defer mon.mu.Unlock()
	assert.Equal(t, map[string]string{"module": "api", "path": "/api/tracks"}, mon.tags)
}

func TestWebSocketThroughRouter(t *testing.T) {
	hub := ws.NewHub(logger.NopLogger{})
	defer hub.Close()
	srv := httptest.NewServer(newRouter(t, hub))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/playback"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, hub.PublishFrame(playback.Frame{Session: "s1", Index: 4}))
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"session":"s1"`)
}
