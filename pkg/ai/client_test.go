package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCompleteForwardsConversation(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Fatalf("authorization header: %q", got)
		}
		var req struct {
			Model    string    `json:"model"`
			Messages []Message `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode upstream request: %v", err)
		}
		if req.Model != "gpt-4" || len(req.Messages) != 2 {
			t.Fatalf("unexpected request: %+v", req)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hello"}}]}`))
	}))
	defer upstream.Close()

	client := NewClient(upstream.URL+"/v1", "test-key", "gpt-4")
	raw, err := client.Complete(context.Background(), []Message{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "hi"},
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !strings.Contains(string(raw), `"content":"hello"`) {
		t.Fatalf("raw response not relayed: %s", raw)
	}
}

func TestCompleteUpstreamError(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit"}}`))
	}))
	defer upstream.Close()

	client := NewClient(upstream.URL+"/v1", "", "gpt-4")
	_, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}})
	if err == nil || !strings.Contains(err.Error(), "rate limited") {
		t.Fatalf("expected upstream error message, got %v", err)
	}
}

func TestCompleteRejectsEmptyBatch(t *testing.T) {
	client := NewClient("http://localhost:9/v1", "", "gpt-4")
	if _, err := client.Complete(context.Background(), nil); err == nil {
		t.Fatalf("expected error for empty messages")
	}
}
