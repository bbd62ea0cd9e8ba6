package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/semiekhin/sofia-bot/llm"
)

func TestChatCompletions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header: %q", got)
		}
		var req chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Messages) == 0 || req.Messages[0].Role != "system" {
			t.Errorf("instructions should be prepended as system message, got %#v", req.Messages)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "Здравствуйте!"}},
			},
			"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "test-key")
	res, err := c.Chat(context.Background(), llm.Request{
		Model:        "gpt-4o",
		Instructions: "persona",
		Messages:     []llm.Message{{Role: "user", Content: "привет"}},
	})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if res.Text != "Здравствуйте!" {
		t.Fatalf("unexpected text: %q", res.Text)
	}
	if res.Usage.TotalTokens != 15 {
		t.Fatalf("unexpected usage: %+v", res.Usage)
	}
}

func TestResponsesAPI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/responses" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var req responsesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Instructions != "persona" {
			t.Errorf("missing instructions: %#v", req)
		}
		if req.Reasoning == nil || req.Reasoning.Effort != "xhigh" {
			t.Errorf("missing reasoning effort: %#v", req.Reasoning)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"output": []map[string]any{
				{
					"type": "message",
					"content": []map[string]any{
						{"type": "output_text", "text": "Когда вам удобно?"},
					},
				},
			},
			"usage": map[string]any{"input_tokens": 20, "output_tokens": 8, "total_tokens": 28},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "k")
	res, err := c.Chat(context.Background(), llm.Request{
		Model:           "gpt-5.2",
		Instructions:    "persona",
		Messages:        []llm.Message{{Role: "user", Content: "привет"}},
		ReasoningEffort: "xhigh",
		UseResponsesAPI: true,
	})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if res.Text != "Когда вам удобно?" {
		t.Fatalf("unexpected text: %q", res.Text)
	}
}

func TestChatErrorSurfacesAPIMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "rate limit", "type": "quota"},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "k")
	_, err := c.Chat(context.Background(), llm.Request{Model: "gpt-4o"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if got := err.Error(); got != "openai http 429: rate limit" {
		t.Fatalf("unexpected error: %q", got)
	}
}
