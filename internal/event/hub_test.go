package event

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

func TestHub_ServeHTTP(t *testing.T) {
	h := NewHub()
	defer h.Close()

	srv := httptest.NewServer(h)
	defer srv.Close()

	conn, _, err := websocket.Dial(t.Context(), "ws"+srv.URL[len("http"):], nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	// The subscription is registered inside the handler goroutine; wait for
	// it to show up before publishing.
	deadline := time.Now().Add(2 * time.Second)
	for {
		h.mu.Lock()
		n := len(h.subscribers)
		h.mu.Unlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("handler never subscribed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	want := New(TypeQuestionSaved, "user-1", "eti-1", map[string]any{"questionId": "eti-1-q1"})
	if err := h.Publish(t.Context(), want); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	var got Event
	if err := wsjson.Read(t.Context(), conn, &got); err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got.ID != want.ID || got.Type != want.Type || got.UserID != want.UserID {
		t.Errorf("received %+v, want %+v", got, want)
	}
}
