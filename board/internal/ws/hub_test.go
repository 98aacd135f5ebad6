package ws_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pulsestack/pulsestack/board/internal/dashboard"
	"github.com/pulsestack/pulsestack/board/internal/datasource"
	"github.com/pulsestack/pulsestack/board/internal/store"
	wsHub "github.com/pulsestack/pulsestack/board/internal/ws"
	"github.com/pulsestack/pulsestack/pkg/types"
)

const testInterval = 20 * time.Millisecond

// --- helpers ----------------------------------------------------------------

// collectorStub answers range queries with one constant series after
// delay, letting tests stretch the render window.
func collectorStub(t *testing.T, delay time.Duration) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/query_range", func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(delay)
		json.NewEncoder(w).Encode(types.QueryResponse{ //nolint:errcheck
			Status: types.StatusSuccess,
			Data: types.QueryData{Result: []types.Series{{
				Metric:  types.Labels{types.MetricNameLabel: "up"},
				Samples: []types.Sample{{T: 1700000000000, V: 1}},
			}}},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// newRenderer builds a renderer over a real store seeded with one data
// source (pointing at the stub) and one single-panel dashboard.
func newRenderer(t *testing.T) (r *dashboard.Renderer, dashID int64) {
	return newSlowRenderer(t, 0)
}

// newSlowRenderer is newRenderer with a render latency injected at the stub.
func newSlowRenderer(t *testing.T, delay time.Duration) (r *dashboard.Renderer, dashID int64) {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "board.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { st.Close() }) //nolint:errcheck

	stub := collectorStub(t, delay)
	dsID, err := st.CreateDataSource(store.DataSource{
		Name: "collector", Type: datasource.TypePulse, URL: stub.URL,
	})
	if err != nil {
		t.Fatalf("CreateDataSource: %v", err)
	}

	dashSvc := dashboard.NewService(st)
	dashID, err = dashSvc.Save(dashboard.Dashboard{
		Name: "overview",
		Panels: []dashboard.Panel{
			{Title: "up", DataSourceID: dsID, Query: "up"},
		},
	})
	if err != nil {
		t.Fatalf("Save dashboard: %v", err)
	}

	return dashboard.NewRenderer(dashSvc, datasource.New(st)), dashID
}

// startHub starts a test HTTP server with the hub as its handler.
// The hub's Run loop is started with a cancellable context.
func startHub(t *testing.T, r *dashboard.Renderer) (baseURL string, hub *wsHub.Hub, cancel func()) {
	t.Helper()

	hub = wsHub.New(r, testInterval)
	ctx, cancelFn := context.WithCancel(context.Background())

	srv := httptest.NewServer(hub)
	go hub.Run(ctx)

	t.Cleanup(func() {
		cancelFn()
		srv.Close()
	})

	return srv.URL, hub, cancelFn
}

// wsPath builds the ws:// URL for a dashboard subscription.
func wsPath(baseURL string, dashID int64) string {
	return "ws" + strings.TrimPrefix(baseURL, "http") + "/ws/dashboards/" + strconv.FormatInt(dashID, 10)
}

// dial connects a WebSocket client and returns the connection.
func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readMessage reads one text message from conn with a short deadline.
func readMessage(t *testing.T, conn *websocket.Conn) []byte {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	return msg
}

// --- tests ------------------------------------------------------------------

func TestHub_Connect_ReceivesImmediateRender(t *testing.T) {
	r, dashID := newRenderer(t)
	baseURL, _, _ := startHub(t, r)

	conn := dial(t, wsPath(baseURL, dashID))
	msg := readMessage(t, conn)

	var m wsHub.Message
	if err := json.Unmarshal(msg, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.Event != "dashboard" {
		t.Errorf("event: got %q, want dashboard", m.Event)
	}
	if m.Data == nil || m.Data.ID != dashID {
		t.Fatalf("data: got %+v", m.Data)
	}
	if len(m.Data.Panels) != 1 {
		t.Fatalf("panels: got %d, want 1", len(m.Data.Panels))
	}
	if m.Data.Panels[0].Error != "" {
		t.Errorf("panel error: %q", m.Data.Panels[0].Error)
	}
}

func TestHub_ReceivesBroadcastOnTick(t *testing.T) {
	r, dashID := newRenderer(t)
	baseURL, _, _ := startHub(t, r)

	conn := dial(t, wsPath(baseURL, dashID))
	readMessage(t, conn) // consume the immediate render

	// The next message arrives from the tick loop.
	msg := readMessage(t, conn)
	var m wsHub.Message
	if err := json.Unmarshal(msg, &m); err != nil {
		t.Fatalf("unmarshal tick message: %v", err)
	}
	if m.Data == nil || m.Data.ID != dashID {
		t.Errorf("tick data: got %+v", m.Data)
	}
}

func TestHub_CountClients(t *testing.T) {
	r, dashID := newRenderer(t)
	baseURL, hub, _ := startHub(t, r)

	for i := 0; i < 3; i++ {
		conn := dial(t, wsPath(baseURL, dashID))
		readMessage(t, conn)
	}

	time.Sleep(10 * time.Millisecond)
	if n := hub.Count(); n != 3 {
		t.Errorf("Count: got %d, want 3", n)
	}
}

func TestHub_CountDecreasesOnDisconnect(t *testing.T) {
	r, dashID := newRenderer(t)
	baseURL, hub, _ := startHub(t, r)

	conn := dial(t, wsPath(baseURL, dashID))
	readMessage(t, conn)
	time.Sleep(10 * time.Millisecond)

	if n := hub.Count(); n != 1 {
		t.Errorf("Count before disconnect: got %d, want 1", n)
	}

	conn.Close()
	time.Sleep(50 * time.Millisecond) // let readPump detect the close

	if n := hub.Count(); n != 0 {
		t.Errorf("Count after disconnect: got %d, want 0", n)
	}
}

func TestHub_CancelContextClosesConnections(t *testing.T) {
	r, dashID := newRenderer(t)
	baseURL, hub, cancel := startHub(t, r)

	conn := dial(t, wsPath(baseURL, dashID))
	readMessage(t, conn)
	time.Sleep(10 * time.Millisecond)

	cancel()

	time.Sleep(50 * time.Millisecond)
	if n := hub.Count(); n != 0 {
		t.Errorf("Count after cancel: got %d, want 0", n)
	}
}

func TestHub_DisconnectDuringRenderSurvives(t *testing.T) {
	// Slow renders widen the gap between the hub snapshotting its
	// subscribers and delivering to them; clients that disconnect inside
	// that gap must be skipped, not written to.
	r, dashID := newSlowRenderer(t, 2*time.Millisecond)

	hub := wsHub.New(r, time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv := httptest.NewServer(hub)
	defer srv.Close()

	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		hub.Run(ctx)
	}()

	url := wsPath(srv.URL, dashID)
	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		conns := make([]*websocket.Conn, 0, 8)
		for i := 0; i < 8; i++ {
			conn, _, err := websocket.DefaultDialer.Dial(url, nil)
			if err != nil {
				t.Fatalf("dial: %v", err)
			}
			conns = append(conns, conn)
		}
		time.Sleep(3 * time.Millisecond) // land mid-render
		for _, conn := range conns {
			conn.Close()
		}
	}

	// The broadcast loop must still be alive after all that churn.
	select {
	case <-runDone:
		t.Fatal("hub Run loop exited while clients were churning")
	default:
	}

	cancel()
	select {
	case <-runDone:
	case <-time.After(2 * time.Second):
		t.Fatal("hub Run loop did not exit after cancel")
	}
}

func TestHub_InvalidDashboardID_Returns400(t *testing.T) {
	r, _ := newRenderer(t)
	baseURL, _, _ := startHub(t, r)

	resp, err := http.Get(baseURL + "/ws/dashboards/not-a-number")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", resp.StatusCode)
	}
}

func TestHub_NonWebSocketRequest_Returns400(t *testing.T) {
	r, dashID := newRenderer(t)
	baseURL, _, _ := startHub(t, r)

	// Plain GET without upgrade headers.
	resp, err := http.Get(baseURL + "/ws/dashboards/" + strconv.FormatInt(dashID, 10))
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", resp.StatusCode)
	}
}
