package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCreateMessageParsesToolUseResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-api-key"); got != "test-key" {
			t.Errorf("expected x-api-key header, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]any{
				{"type": "tool_use", "id": "toolu_1", "name": "createStickyNote", "input": map[string]any{"x": 10}},
			},
			"stop_reason": "tool_use",
			"usage":       map[string]any{"input_tokens": 100, "output_tokens": 20},
		})
	}))
	defer server.Close()

	client := NewClient("test-key", "claude-sonnet-4-5", server.URL)
	resp, err := client.CreateMessage(context.Background(), "system prompt", []Message{
		{Role: "user", Content: []ContentBlock{{Type: "text", Text: "draw a note"}}},
	}, nil)
	if err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}
	if resp.StopReason != StopReasonToolUse {
		t.Fatalf("expected tool_use stop reason, got %s", resp.StopReason)
	}
	if len(resp.Content) != 1 || resp.Content[0].Name != "createStickyNote" {
		t.Fatalf("unexpected content: %+v", resp.Content)
	}
	if resp.Usage.InputTokens != 100 || resp.Usage.OutputTokens != 20 {
		t.Fatalf("unexpected usage: %+v", resp.Usage)
	}
}

func TestCreateMessagePropagatesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"type": "rate_limit_error", "message": "slow down"},
		})
	}))
	defer server.Close()

	client := NewClient("test-key", "claude-sonnet-4-5", server.URL)
	_, err := client.CreateMessage(context.Background(), "", nil, nil)
	if err == nil {
		t.Fatalf("expected error")
	}
}
