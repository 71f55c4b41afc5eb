package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(Config{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Timeout: 2 * time.Second,
	})
	return c, srv
}

func TestGetAdvice_OK(t *testing.T) {
	var gotAuth string
	var gotReq completionRequest
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "### Advice\n**Give probiotics** twice a day."}},
			},
			"usage": map[string]int{"total_tokens": 42},
		})
	})

	answer, err := c.GetAdvice(context.Background(), "my cat has diarrhea", "Alice")
	if err != nil {
		t.Fatalf("GetAdvice: %v", err)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("auth = %q", gotAuth)
	}
	if strings.Contains(answer, "###") || strings.Contains(answer, "**") {
		t.Errorf("markdown not stripped: %q", answer)
	}
	if !strings.Contains(answer, "Give probiotics") {
		t.Errorf("answer = %q", answer)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" {
		t.Errorf("messages = %+v", gotReq.Messages)
	}
	if !strings.Contains(gotReq.Messages[1].Content, "Alice") {
		t.Errorf("display name missing from prompt: %q", gotReq.Messages[1].Content)
	}
}

func TestGetAdvice_UpstreamError(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	})
	if _, err := c.GetAdvice(context.Background(), "q", "u"); err == nil {
		t.Fatal("expected error on 429")
	}
}

func TestGetAdvice_EmptyChoices(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})
	if _, err := c.GetAdvice(context.Background(), "q", "u"); err != ErrNoAnswer {
		t.Fatalf("err = %v, want ErrNoAnswer", err)
	}
}

func TestGetAdvice_ContextCancelled(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := c.GetAdvice(ctx, "q", "u"); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(Config{})
	if c.cfg.Model != "deepseek-chat" {
		t.Errorf("model = %q", c.cfg.Model)
	}
	if c.cfg.Timeout != 30*time.Second {
		t.Errorf("timeout = %v", c.cfg.Timeout)
	}
	if c.cfg.MaxTokens != 1500 || c.cfg.Temperature != 0.7 {
		t.Errorf("cfg = %+v", c.cfg)
	}
}
