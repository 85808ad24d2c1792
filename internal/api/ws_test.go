package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/maxischmaxi/code-preview-server/internal/models"
)

type wireFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func startWSServer(t *testing.T) (*fixture, string) {
	t.Helper()
	f := newFixture(t, "")
	ctx, cancel := context.WithCancel(context.Background())
	go f.router.Run(ctx)
	server := httptest.NewServer(f.mux)
	t.Cleanup(func() {
		server.Close()
		cancel()
	})
	return f, "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func sendFrame(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	if err := conn.WriteJSON(models.WSFrame{Type: event, Data: data}); err != nil {
		t.Fatalf("write %s: %v", event, err)
	}
}

func readUntil(t *testing.T, conn *websocket.Conn, event string) wireFrame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var frame wireFrame
		if err := conn.ReadJSON(&frame); err != nil {
			t.Fatalf("waiting for %s: %v", event, err)
		}
		if frame.Type == event {
			return frame
		}
	}
}

func members(t *testing.T, frame wireFrame) []string {
	t.Helper()
	var list []models.Participant
	if err := json.Unmarshal(frame.Data, &list); err != nil {
		t.Fatalf("decode members: %v", err)
	}
	out := make([]string, 0, len(list))
	for _, p := range list {
		out = append(out, p.UserID)
	}
	return out
}

func TestCollabWSTextInputReachesPeerOnly(t *testing.T) {
	f, url := startWSServer(t)
	s, err := f.handlers.sessions.Create(context.Background(), "alice")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	a := dial(t, url+"?userId=alice&nickname=Al")
	sendFrame(t, a, models.EventJoinSession, models.JoinSessionRequest{SessionID: s.ID, UserID: "alice"})
	if got := members(t, readUntil(t, a, models.EventJoinSession)); len(got) != 1 || got[0] != "alice" {
		t.Fatalf("unexpected members after first join: %v", got)
	}

	b := dial(t, url)
	sendFrame(t, b, models.EventJoin, models.IdentifyRequest{UserID: "bob"})
	sendFrame(t, b, models.EventJoinSession, models.JoinSessionRequest{SessionID: s.ID, UserID: "bob"})
	want := "alice,bob"
	if got := strings.Join(members(t, readUntil(t, b, models.EventJoinSession)), ","); got != want {
		t.Fatalf("bob sees %s, want %s", got, want)
	}
	if got := strings.Join(members(t, readUntil(t, a, models.EventJoinSession)), ","); got != want {
		t.Fatalf("alice sees %s, want %s", got, want)
	}

	sendFrame(t, a, models.EventTextInput, models.TextInputRequest{SessionID: s.ID, Text: "x=1"})
	var text models.TextInputBroadcast
	if err := json.Unmarshal(readUntil(t, b, models.EventTextInput).Data, &text); err != nil {
		t.Fatalf("decode text-input: %v", err)
	}
	if text.Text != "x=1" {
		t.Fatalf("unexpected text %q", text.Text)
	}

	_ = a.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	for {
		var frame wireFrame
		if err := a.ReadJSON(&frame); err != nil {
			break
		}
		if frame.Type == models.EventTextInput {
			t.Fatalf("sender received its own text-input")
		}
	}
}

func TestCollabWSDisconnectNotifiesRoom(t *testing.T) {
	f, url := startWSServer(t)
	s, err := f.handlers.sessions.Create(context.Background(), "alice")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	a := dial(t, url+"?userId=alice")
	sendFrame(t, a, models.EventJoinSession, models.JoinSessionRequest{SessionID: s.ID})
	readUntil(t, a, models.EventJoinSession)

	b := dial(t, url+"?userId=bob")
	sendFrame(t, b, models.EventJoinSession, models.JoinSessionRequest{SessionID: s.ID})
	readUntil(t, b, models.EventJoinSession)

	_ = b.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = b.Close()

	frame := readUntil(t, a, models.EventLeaveSession)
	if got := members(t, frame); len(got) != 1 || got[0] != "alice" {
		t.Fatalf("expected only alice to remain, got %v", got)
	}
}

func TestCollabWSInvalidFrameKeepsConnection(t *testing.T) {
	_, url := startWSServer(t)
	conn := dial(t, url)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	readUntil(t, conn, models.EventError)

	sendFrame(t, conn, "no-such-event", map[string]string{})
	readUntil(t, conn, models.EventError)
}

func TestCollabWSRejectsForeignOrigin(t *testing.T) {
	_, url := startWSServer(t)
	header := http.Header{}
	header.Set("Origin", "http://evil.example")
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err == nil {
		t.Fatalf("expected handshake to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %#v", resp)
	}
}
