package wsclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simbridge/pkg/surface"
)

// fakeSurface accepts one connection, records what the plugin writes and
// sends scripted messages after the pair arrives.
type fakeSurface struct {
	script []string

	mu       sync.Mutex
	received []map[string]any
	conn     *websocket.Conn
}

func (f *fakeSurface) handler(t *testing.T) http.HandlerFunc {
	upgrader := websocket.Upgrader{}
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		f.mu.Lock()
		f.conn = conn
		f.mu.Unlock()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var m map[string]any
			_ = json.Unmarshal(data, &m)
			f.mu.Lock()
			f.received = append(f.received, m)
			f.mu.Unlock()
			if m["type"] == TypePair {
				for _, s := range f.script {
					_ = conn.WriteMessage(websocket.TextMessage, []byte(s))
				}
			}
		}
	}
}

func (f *fakeSurface) messages() []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]any(nil), f.received...)
}

type recordingHandler struct {
	mu         sync.Mutex
	actions    []surface.ActionEvent
	connectors []surface.ConnectorEvent
	shortIDs   []string
	settings   []surface.Settings
	closed     int
}

func (h *recordingHandler) OnAction(ev surface.ActionEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.actions = append(h.actions, ev)
}

func (h *recordingHandler) OnConnector(ev surface.ConnectorEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connectors = append(h.connectors, ev)
}

func (h *recordingHandler) OnShortID(id string, data []string, shortID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.shortIDs = append(h.shortIDs, id+"|"+strings.Join(data, ",")+"->"+shortID)
}

func (h *recordingHandler) OnSettings(s surface.Settings) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.settings = append(h.settings, s)
}

func (h *recordingHandler) OnClose() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed++
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestClient_RoutesInbound(t *testing.T) {
	fs := &fakeSurface{script: []string{
		`{"type":"info","tpVersionString":"4.3","sdkVersion":6,"settings":[{"Poll Interval (ms)":"250"},{"Auto Reconnect":"On"}]}`,
		`{"type":"action","actionId":"AutoPilot.Heading","data":[{"id":"Action","value":"Increase"}]}`,
		`{"type":"down","actionId":"AutoPilot.Heading","instanceId":"btn-1","data":[{"id":"Action","value":"Decrease"}]}`,
		`{"type":"up","actionId":"AutoPilot.Heading","instanceId":"btn-1","data":[{"id":"Action","value":"Decrease"}]}`,
		`not json`,
		`{"type":"connectorChange","connectorId":"Flight.Throttle","value":42,"data":[{"id":"Engine","value":"1"}]}`,
		`{"type":"connectorChange","connectorId":"Flight.Throttle","value":"43","data":[]}`,
		`{"type":"shortConnectorIdNotification","connectorId":"pc_simbridge_Flight.Throttle|Engine=1","shortId":"sc1"}`,
		`{"type":"settings","values":[{"Held Action Rate (ms)":"80"}]}`,
		`{"type":"closePlugin","pluginId":"simbridge"}`,
	}}
	srv := httptest.NewServer(fs.handler(t))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := Dial(ctx, wsURL(srv), "simbridge")
	require.NoError(t, err)
	defer c.Close()

	h := &recordingHandler{}
	require.NoError(t, c.Run(ctx, h))

	require.Len(t, h.actions, 3)
	assert.Equal(t, surface.Tap, h.actions[0].Press)
	assert.Equal(t, []string{"Increase"}, h.actions[0].Data)
	assert.Equal(t, surface.Down, h.actions[1].Press)
	assert.Equal(t, "btn-1", h.actions[1].InstanceID)
	assert.Equal(t, surface.Up, h.actions[2].Press)

	require.Len(t, h.connectors, 2)
	assert.Equal(t, 42, h.connectors[0].Value)
	assert.Equal(t, []string{"1"}, h.connectors[0].Data)
	assert.Equal(t, 43, h.connectors[1].Value)

	assert.Equal(t, []string{"pc_simbridge_Flight.Throttle|1->sc1"}, h.shortIDs)

	require.Len(t, h.settings, 2)
	assert.Equal(t, "250", h.settings[0]["Poll Interval (ms)"])
	assert.Equal(t, "On", h.settings[0]["Auto Reconnect"])
	assert.Equal(t, "80", h.settings[1]["Held Action Rate (ms)"])

	assert.Equal(t, 1, h.closed)

	msgs := fs.messages()
	require.NotEmpty(t, msgs)
	assert.Equal(t, TypePair, msgs[0]["type"])
	assert.Equal(t, "simbridge", msgs[0]["id"])
	assert.Equal(t, c.Session(), msgs[0]["session"])
}

func TestClient_Push(t *testing.T) {
	fs := &fakeSurface{}
	srv := httptest.NewServer(fs.handler(t))
	defer srv.Close()

	ctx := context.Background()
	c, err := Dial(ctx, wsURL(srv), "simbridge")
	require.NoError(t, err)

	require.NoError(t, c.PushState("simbridge.Plugin.State.Connected", "true"))
	require.NoError(t, c.PushSettingUpdate("Poll Interval (ms)", "250"))
	require.NoError(t, c.PushConnectorUpdate("sc1", 55))

	require.Eventually(t, func() bool { return len(fs.messages()) == 4 }, 2*time.Second, 10*time.Millisecond)
	msgs := fs.messages()
	assert.Equal(t, map[string]any{"type": TypeStateUpdate, "id": "simbridge.Plugin.State.Connected", "value": "true"}, msgs[1])
	assert.Equal(t, map[string]any{"type": TypeSettingUpdate, "name": "Poll Interval (ms)", "value": "250"}, msgs[2])
	assert.Equal(t, map[string]any{"type": TypeConnectorUpdate, "shortId": "sc1", "value": float64(55)}, msgs[3])

	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.PushState("x", "y"), ErrClosed)
}

func TestClient_RunStopsOnCancel(t *testing.T) {
	fs := &fakeSurface{}
	srv := httptest.NewServer(fs.handler(t))
	defer srv.Close()

	c, err := Dial(context.Background(), wsURL(srv), "simbridge")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, &recordingHandler{}) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestParseLongConnectorID(t *testing.T) {
	tests := []struct {
		in       string
		wantID   string
		wantData []string
	}{
		{"pc_p_Flight.Throttle", "pc_p_Flight.Throttle", []string{}},
		{"pc_p_Engine.Mixture|Engine=2|Mode=Lean", "pc_p_Engine.Mixture", []string{"2", "Lean"}},
		{"pc_p_X|bare", "pc_p_X", []string{"bare"}},
	}
	for _, tt := range tests {
		id, data := parseLongConnectorID(tt.in)
		assert.Equal(t, tt.wantID, id)
		assert.Equal(t, tt.wantData, data)
	}
}
