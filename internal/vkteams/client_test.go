package vkteams

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFetchEventsDecodesUnion(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/events/get" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("token") != "secret" {
			t.Errorf("token = %q, want %q", q.Get("token"), "secret")
		}
		if q.Get("lastEventId") != "41" {
			t.Errorf("lastEventId = %q, want %q", q.Get("lastEventId"), "41")
		}
		if q.Get("pollTime") != "25" {
			t.Errorf("pollTime = %q, want %q", q.Get("pollTime"), "25")
		}

		_, _ = w.Write([]byte(`{
			"ok": true,
			"events": [
				{"eventId": 42, "type": "newMessage", "payload": {
					"chat": {"chatId": "alice@corp"},
					"from": {"userId": "alice@corp", "firstName": "Alice", "lastName": "Smith"},
					"text": "hello",
					"parts": [{"type": "file", "payload": {"fileId": "f123", "caption": "spec.pdf"}}]
				}},
				{"eventId": 43, "type": "callbackQuery", "payload": {
					"queryId": "q1",
					"from": {"userId": "bob@corp"},
					"message": {"chat": {"chatId": "bob@corp"}},
					"callbackData": "approve_7"
				}},
				{"eventId": 44, "type": "editedMessage", "payload": {}}
			]
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", nil)
	events, err := c.FetchEvents(context.Background(), 41, 25*time.Second)
	if err != nil {
		t.Fatalf("FetchEvents() error = %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}

	msg := events[0]
	if msg.Type != EventNewMessage || msg.Message == nil {
		t.Fatalf("event 0 not decoded as newMessage: %+v", msg)
	}
	if msg.ID != 42 || msg.Message.ChatID != "alice@corp" || msg.Message.Text != "hello" {
		t.Errorf("message fields wrong: %+v", msg.Message)
	}
	if msg.Message.FileID != "f123" || msg.Message.FileCaption != "spec.pdf" {
		t.Errorf("file part not captured: %+v", msg.Message)
	}
	if msg.Message.From.FirstName != "Alice" {
		t.Errorf("sender not captured: %+v", msg.Message.From)
	}

	cb := events[1]
	if cb.Type != EventCallbackQuery || cb.Callback == nil {
		t.Fatalf("event 1 not decoded as callbackQuery: %+v", cb)
	}
	if cb.Callback.QueryID != "q1" || cb.Callback.ChatID != "bob@corp" || cb.Callback.Data != "approve_7" {
		t.Errorf("callback fields wrong: %+v", cb.Callback)
	}

	other := events[2]
	if other.ID != 44 || other.Message != nil || other.Callback != nil {
		t.Errorf("unrecognized event should carry only its id and type: %+v", other)
	}
}

func TestSendTextWithKeyboard(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want POST", r.Method)
		}
		if r.URL.Path != "/messages/sendText" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm() error = %v", err)
		}
		if r.PostForm.Get("chatId") != "alice@corp" {
			t.Errorf("chatId = %q", r.PostForm.Get("chatId"))
		}
		if r.PostForm.Get("text") != "pick one" {
			t.Errorf("text = %q", r.PostForm.Get("text"))
		}

		var kb Keyboard
		if err := json.Unmarshal([]byte(r.PostForm.Get("inlineKeyboardMarkup")), &kb); err != nil {
			t.Fatalf("inlineKeyboardMarkup not valid JSON: %v", err)
		}
		if len(kb) != 1 || len(kb[0]) != 2 || kb[0][1].CallbackData != "reject_5" {
			t.Errorf("keyboard wrong: %+v", kb)
		}

		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", nil)
	err := c.SendText(context.Background(), "alice@corp", "pick one", Keyboard{
		{{Text: "Approve", CallbackData: "approve_5"}, {Text: "Reject", CallbackData: "reject_5"}},
	})
	if err != nil {
		t.Fatalf("SendText() error = %v", err)
	}
}

func TestAPIRejectionSurfacesAsError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"ok": false, "description": "invalid token"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "bad", nil)
	if err := c.SendText(context.Background(), "a@b", "hi", nil); err == nil {
		t.Fatal("expected error for ok=false response")
	}
}

func TestSelfGet(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/self/get" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"ok": true, "userId": "750000", "nick": "taskbot", "firstName": "Taskmate"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", nil)
	info, err := c.SelfGet(context.Background())
	if err != nil {
		t.Fatalf("SelfGet() error = %v", err)
	}
	if info.UserID != "750000" || info.Nick != "taskbot" {
		t.Errorf("bot info wrong: %+v", info)
	}
}

func TestAnswerCallbackQuery(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages/answerCallbackQuery" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.URL.Query().Get("queryId") != "q99" {
			t.Errorf("queryId = %q", r.URL.Query().Get("queryId"))
		}
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", nil)
	if err := c.AnswerCallbackQuery(context.Background(), "q99", ""); err != nil {
		t.Fatalf("AnswerCallbackQuery() error = %v", err)
	}
}
