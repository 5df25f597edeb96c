package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// dialHub connects a WebSocket client to srv and subscribes it to channels.
func dialHub(t *testing.T, srv *httptest.Server, channels ...string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })

	if err := conn.WriteJSON(WSMessage{
		Type:    WSTypeSubscribe,
		ID:      "sub-1",
		Payload: WSSubscribePayload{Channels: channels},
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	msg := readMessage(t, conn)
	if msg.Type != WSTypeResponse || msg.ID != "sub-1" {
		t.Fatalf("subscribe response = %+v", msg)
	}
	return conn
}

type wireMessage struct {
	Type      string          `json:"type"`
	ID        string          `json:"id"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
}

func readMessage(t *testing.T, conn *websocket.Conn) wireMessage {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
		t.Fatal(err)
	}
	var msg wireMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

// waitEvent reads until an event on channel arrives.
func waitEvent(t *testing.T, conn *websocket.Conn, channel string) wireMessage {
	t.Helper()
	for {
		msg := readMessage(t, conn)
		if msg.Type == WSTypeEvent && msg.EventType == channel {
			return msg
		}
	}
}

func TestWebSocket_InventoryAndStatusEvents(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	conn := dialHub(t, srv, ChannelInventory, ChannelDeviceStatus)

	d := env.createDevice(t, "printer", "10.0.0.7")
	msg := waitEvent(t, conn, ChannelInventory)
	var inv InventoryPayload
	if err := json.Unmarshal(msg.Payload, &inv); err != nil {
		t.Fatal(err)
	}
	if inv.Entity != "device" || inv.Action != "create" || inv.ID != d.ID {
		t.Errorf("inventory payload = %+v", inv)
	}

	env.prober.online["10.0.0.7"] = true
	rec := env.do(t, http.MethodPost, "/api/v1/devices/"+d.ID+"/check-status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("check-status = %d", rec.Code)
	}
	msg = waitEvent(t, conn, ChannelDeviceStatus)
	var st StatusChangedPayload
	if err := json.Unmarshal(msg.Payload, &st); err != nil {
		t.Fatal(err)
	}
	if st.DeviceID != d.ID || !st.IsOnline || st.Hostname != "printer" {
		t.Errorf("status payload = %+v", st)
	}
}

func TestWebSocket_DiscoveryCompleted(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	conn := dialHub(t, srv, ChannelDiscoveryCompleted)
	env.pinger.up["10.0.0.2"] = true

	rec := env.do(t, http.MethodPost, "/api/v1/discovery/scan", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("scan = %d", rec.Code)
	}
	msg := waitEvent(t, conn, ChannelDiscoveryCompleted)
	var body scanBody
	if err := json.Unmarshal(msg.Payload, &body); err != nil {
		t.Fatal(err)
	}
	if body.Count != 1 || body.Subnet != "10.0.0.0/29" {
		t.Errorf("discovery payload = %+v", body)
	}
}

func TestWebSocket_UnknownMessage(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	conn := dialHub(t, srv)
	if err := conn.WriteJSON(WSMessage{Type: "bogus", ID: "x"}); err != nil {
		t.Fatal(err)
	}
	msg := readMessage(t, conn)
	if msg.Type != WSTypeError || msg.ID != "x" {
		t.Errorf("reply = %+v", msg)
	}

	if err := conn.WriteJSON(WSMessage{Type: WSTypePing, ID: "p"}); err != nil {
		t.Fatal(err)
	}
	if msg := readMessage(t, conn); msg.Type != WSTypePong {
		t.Errorf("ping reply = %+v", msg)
	}
}
