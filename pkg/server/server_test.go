package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"picommander/pkg/bus"
	"picommander/pkg/dedup"
)

type recordingBridge struct {
	mu        sync.Mutex
	published []bus.InboundUpdate
}

func (b *recordingBridge) Publish(u bus.InboundUpdate) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, u)
	return true
}

func (b *recordingBridge) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.published)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(secret string) (*Server, *recordingBridge) {
	bridge := &recordingBridge{}
	srv := New(Options{Addr: ":0", SecretToken: secret}, dedup.NewWindow(32), bridge, discardLogger())
	return srv, bridge
}

func postWebhook(srv *Server, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer("")
	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if w.Body.String() != "OK" {
		t.Errorf("body = %q, want OK", w.Body.String())
	}
}

func TestWebhook_NonJSONContentType(t *testing.T) {
	srv, bridge := newTestServer("")
	req := httptest.NewRequest("POST", "/webhook", strings.NewReader("update_id=1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusUnsupportedMediaType {
		t.Errorf("status = %d, want 415", w.Code)
	}
	if bridge.count() != 0 {
		t.Error("rejected delivery must not reach the bridge")
	}
}

func TestWebhook_SecretRequired(t *testing.T) {
	srv, bridge := newTestServer("abc")

	// The secret check runs before any JSON parsing, so even a garbage
	// body yields 403 when the header is wrong.
	for name, headers := range map[string]map[string]string{
		"missing":  nil,
		"mismatch": {"X-Telegram-Bot-Api-Secret-Token": "wrong"},
	} {
		w := postWebhook(srv, "{not json", headers)
		if w.Code != http.StatusForbidden {
			t.Errorf("%s secret: status = %d, want 403", name, w.Code)
		}
	}
	if bridge.count() != 0 {
		t.Error("unauthenticated delivery must not reach the bridge")
	}
}

func TestWebhook_SecretMatch(t *testing.T) {
	srv, bridge := newTestServer("abc")
	w := postWebhook(srv, `{"update_id": 1}`, map[string]string{
		"X-Telegram-Bot-Api-Secret-Token": "abc",
	})
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if bridge.count() != 1 {
		t.Errorf("bridge received %d updates, want 1", bridge.count())
	}
}

func TestWebhook_MalformedBody(t *testing.T) {
	srv, bridge := newTestServer("")
	for _, body := range []string{"{not json", `[1, 2, 3]`, `"a string"`, `null`} {
		w := postWebhook(srv, body, nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, w.Code)
		}
	}
	if bridge.count() != 0 {
		t.Error("malformed delivery must not reach the bridge")
	}
}

func TestWebhook_DuplicateDeliveryIsIdempotent(t *testing.T) {
	srv, bridge := newTestServer("")
	body := `{"update_id": 42, "message": {"message_id": 1, "chat": {"id": 7}, "text": "/statusfail2ban"}}`

	first := postWebhook(srv, body, nil)
	second := postWebhook(srv, body, nil)

	if first.Code != http.StatusOK || second.Code != http.StatusOK {
		t.Errorf("statuses = %d, %d, want 200 for both", first.Code, second.Code)
	}
	if bridge.count() != 1 {
		t.Errorf("bridge received %d updates, want exactly 1", bridge.count())
	}
}

func TestWebhook_DispatchedUpdateCarriesPayload(t *testing.T) {
	srv, bridge := newTestServer("")
	body := `{"update_id": 42, "message": {"message_id": 1, "chat": {"id": 7}, "text": "/statusfail2ban", "entities": [{"type": "bot_command", "offset": 0, "length": 15}]}}`

	w := postWebhook(srv, body, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	bridge.mu.Lock()
	defer bridge.mu.Unlock()
	u := bridge.published[0]
	if u.UpdateID != 42 {
		t.Errorf("UpdateID = %d, want 42", u.UpdateID)
	}
	if u.TraceID == "" {
		t.Error("dispatched update should carry a trace id")
	}
	msg := u.Update.Message
	if msg == nil || msg.Command() != "statusfail2ban" {
		t.Errorf("dispatched message = %+v, want /statusfail2ban command", msg)
	}
	if msg.Chat.ID != 7 {
		t.Errorf("chat id = %d, want 7", msg.Chat.ID)
	}
}

func TestWebhook_MissingUpdateIDNeverDeduplicated(t *testing.T) {
	srv, bridge := newTestServer("")
	body := `{"message": {"message_id": 1, "chat": {"id": 7}, "text": "hi"}}`

	postWebhook(srv, body, nil)
	postWebhook(srv, body, nil)

	if bridge.count() != 2 {
		t.Errorf("bridge received %d updates, want 2: no id means no dedup", bridge.count())
	}
}

func TestWebhook_NonNumericUpdateIDDispatchedAnyway(t *testing.T) {
	srv, bridge := newTestServer("")
	body := `{"update_id": "abc", "message": {"message_id": 1, "chat": {"id": 7}, "text": "hi"}}`

	w := postWebhook(srv, body, nil)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	// The typed parse cannot represent a string update_id; the delivery is
	// acknowledged either way and never treated as an error.
	_ = bridge
}

// With a real bus and no consumer draining it, deliveries beyond the buffer
// are dropped instead of stalling the HTTP response.
func TestWebhook_ResponseDoesNotWaitOnProcessing(t *testing.T) {
	b := bus.NewUpdateBus(1, discardLogger())
	srv := New(Options{Addr: ":0"}, dedup.NewWindow(32), b, discardLogger())

	for i := 1; i <= 3; i++ {
		body := `{"update_id": ` + strings.Repeat("1", i) + `}`
		w := postWebhook(srv, body, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("delivery %d: status = %d, want 200 even with a full buffer", i, w.Code)
		}
	}
}
