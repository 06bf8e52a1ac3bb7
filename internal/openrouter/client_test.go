package openrouter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testClient(srv *httptest.Server) *Client {
	return &Client{
		APIKey:  "test-key",
		Model:   "test-model",
		HTTP:    srv.Client(),
		baseURL: srv.URL,
	}
}

func TestChatCompletionWithTools_Non200SurfacesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// A gateway error page, not JSON.
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("<html>not found</html>"))
	}))
	defer srv.Close()

	c := testClient(srv)
	_, _, err := c.ChatCompletionWithTools(context.Background(), []Message{{Role: "user", Content: "hi"}}, nil)
	if err == nil {
		t.Fatal("expected error for non-200 response")
	}
	if !strings.Contains(err.Error(), "HTTP 404") {
		t.Errorf("error should carry the HTTP status, got %q", err)
	}
	if strings.Contains(err.Error(), "decode") {
		t.Errorf("non-200 body should not reach the decoder, got %q", err)
	}
}

func TestChatCompletionWithTools_ParsesToolCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":null,"tool_calls":[{"id":"call_1","type":"function","function":{"name":"lookup_order","arguments":"{\"order_id\":\"O001\"}"}}]}}]}`))
	}))
	defer srv.Close()

	c := testClient(srv)
	content, calls, err := c.ChatCompletionWithTools(context.Background(), []Message{{Role: "user", Content: "where is my order"}}, nil)
	if err != nil {
		t.Fatalf("ChatCompletionWithTools: %v", err)
	}
	if content != "" {
		t.Errorf("content = %q, want empty when the model calls a tool", content)
	}
	if len(calls) != 1 {
		t.Fatalf("got %d tool calls, want 1", len(calls))
	}
	if calls[0].Function.Name != "lookup_order" {
		t.Errorf("tool name = %q, want lookup_order", calls[0].Function.Name)
	}
	if !strings.Contains(calls[0].Function.Arguments, "O001") {
		t.Errorf("arguments = %q, want to contain O001", calls[0].Function.Arguments)
	}
}
