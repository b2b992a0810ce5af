package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/finchdesk/finch/internal/chatlog"
	"github.com/finchdesk/finch/internal/log"
)

// stubResponder returns a canned answer or error.
type stubResponder struct {
	mu      sync.Mutex
	answer  string
	err     error
	calls   int
	gotID   string
	gotText string
}

func (s *stubResponder) Answer(_ context.Context, sessionID, question string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.gotID = sessionID
	s.gotText = question
	return s.answer, s.err
}

// stubSender records sent messages.
type stubSender struct {
	mu      sync.Mutex
	err     error
	sent    []string
	channel string
}

func (s *stubSender) SendMessage(_ context.Context, channelURL, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channel = channelURL
	s.sent = append(s.sent, text)
	return s.err
}

func (s *stubSender) sentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

type testServer struct {
	srv       *Server
	responder *stubResponder
	sender    *stubSender
	logs      *chatlog.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	responder := &stubResponder{answer: "your keyboard arrives tomorrow"}
	sender := &stubSender{}
	logs := chatlog.NewStore(nil)

	srv, err := NewServer(ServerConfig{
		Logger:    log.NewNop(),
		Agent:     responder,
		Sender:    sender,
		Logs:      logs,
		BotUserID: "ai_agent_bot",
		Version:   "test",
	})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	t.Cleanup(srv.Drain)

	return &testServer{srv: srv, responder: responder, sender: sender, logs: logs}
}

func webhookBody(category, senderID, message, channel string) string {
	b, _ := json.Marshal(map[string]any{
		"category": category,
		"sender":   map[string]string{"user_id": senderID},
		"payload":  map[string]string{"message": message},
		"channel":  map[string]string{"channel_url": channel},
	})
	return string(b)
}

func postWebhook(t *testing.T, ts *testServer, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)
	return rec
}

// waitForSends drains the in-flight outbound goroutines before asserting.
func waitForSends(ts *testServer) {
	ts.srv.Drain()
}

func TestWebhook_HumanMessage(t *testing.T) {
	ts := newTestServer(t)

	rec := postWebhook(t, ts, webhookBody(
		"group_channel:message_send", "customer-7", "where is my order A101?", "channel-1"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ts.responder.calls != 1 {
		t.Fatalf("agent calls = %d, want 1", ts.responder.calls)
	}
	if ts.responder.gotID != "customer-7" {
		t.Errorf("session id = %q, want sender user id", ts.responder.gotID)
	}

	if n := ts.logs.Len(); n != 1 {
		t.Fatalf("log entries = %d, want 1", n)
	}
	entries, _ := ts.logs.List()
	if entries[0].Question != "where is my order A101?" {
		t.Errorf("logged question = %q", entries[0].Question)
	}
	if entries[0].Answer != "your keyboard arrives tomorrow" {
		t.Errorf("logged answer = %q", entries[0].Answer)
	}

	waitForSends(ts)
	if ts.sender.sentCount() != 1 {
		t.Fatalf("sent = %d, want 1 outbound reply", ts.sender.sentCount())
	}
	if ts.sender.channel != "channel-1" {
		t.Errorf("channel = %q, want channel-1", ts.sender.channel)
	}
}

func TestWebhook_SkipsNonMessageEvents(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "foreign category",
			body: webhookBody("group_channel:join", "customer-7", "hi", "channel-1"),
		},
		{
			name: "bot sender",
			body: webhookBody("group_channel:message_send", "ai_agent_bot", "echo", "channel-1"),
		},
		{
			name: "empty message",
			body: webhookBody("group_channel:message_send", "customer-7", "", "channel-1"),
		},
		{
			name: "undecodable body",
			body: "{not json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)

			rec := postWebhook(t, ts, tt.body)

			if rec.Code != http.StatusOK {
				t.Errorf("status = %d, want 200 ack even when skipping", rec.Code)
			}
			if ts.responder.calls != 0 {
				t.Errorf("agent calls = %d, want 0", ts.responder.calls)
			}
			if ts.logs.Len() != 0 {
				t.Errorf("log entries = %d, want 0", ts.logs.Len())
			}
		})
	}
}

func TestWebhook_AgentFailureStillAcknowledged(t *testing.T) {
	ts := newTestServer(t)
	ts.responder.answer = "I'm sorry, something went wrong."
	ts.responder.err = errors.New("model unavailable")

	rec := postWebhook(t, ts, webhookBody(
		"group_channel:message_send", "customer-7", "help", "channel-1"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 despite agent failure", rec.Code)
	}

	// The fallback text is still logged and delivered.
	entries, total := ts.logs.List()
	if total != 1 || entries[0].Answer != "I'm sorry, something went wrong." {
		t.Errorf("logs = %+v, want one entry with the fallback answer", entries)
	}

	waitForSends(ts)
	if ts.sender.sentCount() != 1 {
		t.Errorf("sent = %d, want the fallback delivered", ts.sender.sentCount())
	}
}

func TestWebhook_SendFailureIsDropped(t *testing.T) {
	ts := newTestServer(t)
	ts.sender.err = errors.New("platform 502")

	rec := postWebhook(t, ts, webhookBody(
		"group_channel:message_send", "customer-7", "hello", "channel-1"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	waitForSends(ts)
	// The turn is still logged; the failed delivery is not retried.
	if ts.logs.Len() != 1 {
		t.Errorf("log entries = %d, want 1", ts.logs.Len())
	}
	if ts.sender.sentCount() != 1 {
		t.Errorf("send attempts = %d, want exactly 1 (no retry)", ts.sender.sentCount())
	}
}

func TestWebhook_LatencyRecorded(t *testing.T) {
	ts := newTestServer(t)

	postWebhook(t, ts, webhookBody(
		"group_channel:message_send", "customer-7", "hi", "channel-1"))

	entries, _ := ts.logs.List()
	if len(entries) != 1 {
		t.Fatalf("log entries = %d, want 1", len(entries))
	}
	if entries[0].Latency < 0 || entries[0].Latency > time.Minute {
		t.Errorf("latency = %v, want a sane measured duration", entries[0].Latency)
	}
	waitForSends(ts)
}
