package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSendMessageReturnsMessageID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bot/sendMessage" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("X-Bot-Token") != "tok" {
			t.Errorf("missing bot token header")
		}
		_ = json.NewEncoder(w).Encode(sendMessageResponse{MessageID: 77})
	}))
	defer srv.Close()

	c := NewChatClient(srv.URL, "tok", 0)
	id, err := c.SendMessage(context.Background(), 42, "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 77 {
		t.Fatalf("expected message id 77, got %d", id)
	}
}

func TestEditMessageTextPostsAllFields(t *testing.T) {
	var got editMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bot/editMessageText" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewChatClient(srv.URL, "tok", 0)
	if err := c.EditMessageText(context.Background(), 42, 77, "updated"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ChatID != 42 || got.MessageID != 77 || got.Text != "updated" {
		t.Fatalf("unexpected request body: %+v", got)
	}
}

func TestNotifyOperatorNoOpWithoutChatID(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewChatClient(srv.URL, "tok", 0)
	c.NotifyOperator(context.Background(), "something broke")
	if calls != 0 {
		t.Fatalf("expected no gateway calls, got %d", calls)
	}
}

func TestNotifyOperatorSwallowsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewChatClient(srv.URL, "tok", 99)
	// Must not panic or propagate anything
	c.NotifyOperator(context.Background(), "something broke")
}
