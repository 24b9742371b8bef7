package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/shareyt/backend/internal/relay"
)

type stubValidator struct {
	uid string
}

func (v stubValidator) Validate(_ context.Context, token string) (string, error) {
	if token != "valid-token" {
		return "", errors.New("unknown token")
	}
	return v.uid, nil
}

type stubSnapshots struct {
	snap relay.Snapshot
	ok   bool
}

func (s stubSnapshots) Snapshot(string) (relay.Snapshot, bool) {
	return s.snap, s.ok
}

func dialTestServer(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "?token=valid-token"
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var event Event
	if err := wsjson.Read(ctx, conn, &event); err != nil {
		t.Fatalf("read event: %v", err)
	}
	return event
}

func TestServeWSRejectsBadTokens(t *testing.T) {
	hub := NewHub(nil)
	handler := ServeWS(hub, stubValidator{uid: "alice"}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sync", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/sync?token=bogus", nil)
	rec = httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bogus token got %d", rec.Code)
	}
}

func TestServeWSPushesSnapshotOnConnect(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()

	snapshots := stubSnapshots{ok: true}
	server := httptest.NewServer(ServeWS(hub, stubValidator{uid: "alice"}, snapshots))
	defer server.Close()

	conn := dialTestServer(t, server)

	event := readEvent(t, conn)
	if event.Type != EventTypeSnapshot {
		t.Fatalf("expected snapshot event first got %q", event.Type)
	}
}

func TestPusherDeliversSectionsAndNotifications(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()

	server := httptest.NewServer(ServeWS(hub, stubValidator{uid: "alice"}, nil))
	defer server.Close()

	conn := dialTestServer(t, server)
	pusher := NewPusher(hub, nil)

	// SendToUser fans out through the hub loop; the client registered during
	// the upgrade, so a short settle keeps this deterministic.
	time.Sleep(50 * time.Millisecond)

	pusher.Push("alice", relay.SectionFriends, []string{})
	event := readEvent(t, conn)
	if event.Type != EventTypeSection {
		t.Fatalf("expected section event got %q", event.Type)
	}
	var section SectionPayload
	if err := json.Unmarshal(event.Payload, &section); err != nil {
		t.Fatalf("decode section payload: %v", err)
	}
	if section.Section != relay.SectionFriends {
		t.Fatalf("expected friends section got %q", section.Section)
	}

	pusher.NotifyVideoSuggested("alice", "", "A video", "abc123")
	event = readEvent(t, conn)
	if event.Type != EventTypeNotification {
		t.Fatalf("expected notification event got %q", event.Type)
	}
	var note NotificationPayload
	if err := json.Unmarshal(event.Payload, &note); err != nil {
		t.Fatalf("decode notification payload: %v", err)
	}
	if note.Title != "Someone just sent you a video!" {
		t.Fatalf("expected anonymous sender fallback got %q", note.Title)
	}
	if note.VideoID != "abc123" {
		t.Fatalf("expected video id forwarded got %q", note.VideoID)
	}
}

func TestNotifyTruncatesLongTitles(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()

	server := httptest.NewServer(ServeWS(hub, stubValidator{uid: "alice"}, nil))
	defer server.Close()

	conn := dialTestServer(t, server)
	time.Sleep(50 * time.Millisecond)

	long := strings.Repeat("x", 200)
	NewPusher(hub, nil).NotifyVideoSuggested("alice", "Bob", long, "abc123")

	event := readEvent(t, conn)
	var note NotificationPayload
	if err := json.Unmarshal(event.Payload, &note); err != nil {
		t.Fatalf("decode notification payload: %v", err)
	}
	if !strings.HasSuffix(note.Message, `..."`) {
		t.Fatalf("expected truncated title got %q", note.Message)
	}
	if len(note.Message) > notificationTitleMax+20 {
		t.Fatalf("expected message capped, got %d chars", len(note.Message))
	}
}

func TestNotifyTruncatesOnRuneBoundaries(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()

	server := httptest.NewServer(ServeWS(hub, stubValidator{uid: "alice"}, nil))
	defer server.Close()

	conn := dialTestServer(t, server)
	time.Sleep(50 * time.Millisecond)

	long := strings.Repeat("é", 200)
	NewPusher(hub, nil).NotifyVideoSuggested("alice", "Bob", long, "abc123")

	event := readEvent(t, conn)
	var note NotificationPayload
	if err := json.Unmarshal(event.Payload, &note); err != nil {
		t.Fatalf("decode notification payload: %v", err)
	}
	if strings.ContainsRune(note.Message, utf8.RuneError) {
		t.Fatalf("expected truncation to keep runes intact, got %q", note.Message)
	}
	if !strings.HasSuffix(note.Message, `é..."`) {
		t.Fatalf("expected last rune preserved before ellipsis, got %q", note.Message)
	}
}

func TestClientPingPong(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()

	server := httptest.NewServer(ServeWS(hub, stubValidator{uid: "alice"}, nil))
	defer server.Close()

	conn := dialTestServer(t, server)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := wsjson.Write(ctx, conn, Event{Type: EventTypePing}); err != nil {
		t.Fatalf("write ping: %v", err)
	}

	event := readEvent(t, conn)
	if event.Type != EventTypePong {
		t.Fatalf("expected pong got %q", event.Type)
	}
	if event.Timestamp == 0 {
		t.Fatal("expected pong to carry a timestamp")
	}

	if err := wsjson.Write(ctx, conn, Event{Type: "mystery"}); err != nil {
		t.Fatalf("write unknown event: %v", err)
	}
	event = readEvent(t, conn)
	if event.Type != EventTypeError {
		t.Fatalf("expected error event got %q", event.Type)
	}
}
