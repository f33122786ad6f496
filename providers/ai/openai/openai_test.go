package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/SiLeader/composite-llm/providers/ai"
)

func testBackend(serverURL string) *Backend {
	config := goopenai.DefaultConfig("test-key")
	config.BaseURL = serverURL + "/v1"
	return NewWithConfig(config)
}

const completionFixture = `{
	"id": "chatcmpl-123",
	"object": "chat.completion",
	"created": 1700000000,
	"model": "gpt-4o",
	"choices": [
		{"index": 0, "message": {"role": "assistant", "content": "Hi there"}, "finish_reason": "stop"}
	],
	"usage": {"prompt_tokens": 9, "completion_tokens": 3, "total_tokens": 12}
}`

// TestBackend_Complete_PassesRequestThrough verifies that the request reaches
// the chat-completions endpoint unchanged and the native response is returned
// as-is.
func TestBackend_Complete_PassesRequestThrough(t *testing.T) {
	var capturedPath string
	var capturedAuth string
	var capturedRequest goopenai.ChatCompletionRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedPath = r.URL.Path
		capturedAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&capturedRequest); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completionFixture)
	}))
	defer server.Close()

	backend := testBackend(server.URL)
	response, err := backend.Complete(context.Background(), goopenai.ChatCompletionRequest{
		Model: "gpt-4o",
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: "Be helpful."},
			{Role: goopenai.ChatMessageRoleUser, Content: "Hello"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if capturedPath != "/v1/chat/completions" {
		t.Errorf("expected path /v1/chat/completions, got %q", capturedPath)
	}
	if capturedAuth != "Bearer test-key" {
		t.Errorf("expected bearer auth, got %q", capturedAuth)
	}
	if capturedRequest.Model != "gpt-4o" {
		t.Errorf("expected model to pass through, got %q", capturedRequest.Model)
	}
	if len(capturedRequest.Messages) != 2 || capturedRequest.Messages[0].Content != "Be helpful." {
		t.Errorf("expected messages to pass through, got %+v", capturedRequest.Messages)
	}

	if response.ID != "chatcmpl-123" {
		t.Errorf("expected response ID to pass through, got %q", response.ID)
	}
	if response.Choices[0].Message.Content != "Hi there" {
		t.Errorf("expected content to pass through, got %q", response.Choices[0].Message.Content)
	}
	if response.Usage.TotalTokens != 12 {
		t.Errorf("expected usage to pass through, got %+v", response.Usage)
	}
}

// TestBackend_Complete_ToolsPassThrough verifies that tool definitions and
// tool-choice survive the boundary byte-for-byte.
func TestBackend_Complete_ToolsPassThrough(t *testing.T) {
	var capturedRequest goopenai.ChatCompletionRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&capturedRequest); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completionFixture)
	}))
	defer server.Close()

	schema := json.RawMessage(`{"type":"object","properties":{"location":{"type":"string"}}}`)
	backend := testBackend(server.URL)
	_, err := backend.Complete(context.Background(), goopenai.ChatCompletionRequest{
		Model:    "gpt-4o",
		Messages: []goopenai.ChatCompletionMessage{{Role: goopenai.ChatMessageRoleUser, Content: "weather?"}},
		Tools: []goopenai.Tool{{
			Type: goopenai.ToolTypeFunction,
			Function: &goopenai.FunctionDefinition{
				Name:        "get_weather",
				Description: "Get current weather",
				Parameters:  schema,
			},
		}},
		ToolChoice: "auto",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(capturedRequest.Tools) != 1 {
		t.Fatalf("expected 1 tool, got %d", len(capturedRequest.Tools))
	}
	if capturedRequest.Tools[0].Function.Name != "get_weather" {
		t.Errorf("expected tool name to pass through, got %q", capturedRequest.Tools[0].Function.Name)
	}
	if capturedRequest.ToolChoice != "auto" {
		t.Errorf("expected tool choice to pass through, got %v", capturedRequest.ToolChoice)
	}
}

// TestBackend_Complete_APIError_MapsToProviderError verifies that a non-2xx
// response becomes an ai.ProviderError carrying the HTTP status code and the
// provider's own message.
func TestBackend_Complete_APIError_MapsToProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error": {"message": "Rate limit reached", "type": "tokens"}}`)
	}))
	defer server.Close()

	backend := testBackend(server.URL)
	_, err := backend.Complete(context.Background(), goopenai.ChatCompletionRequest{
		Model:    "gpt-4o",
		Messages: []goopenai.ChatCompletionMessage{{Role: goopenai.ChatMessageRoleUser, Content: "Hello"}},
	})
	if err == nil {
		t.Fatal("expected error for 429 response, got nil")
	}

	var providerErr *ai.ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("expected *ai.ProviderError, got %T: %v", err, err)
	}
	if providerErr.Provider != "openai" {
		t.Errorf("expected provider openai, got %q", providerErr.Provider)
	}
	if providerErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", providerErr.StatusCode)
	}
	if providerErr.Message != "Rate limit reached" {
		t.Errorf("expected provider message, got %q", providerErr.Message)
	}
}

// TestBackend_Stream_YieldsChunksUnchanged verifies that streamed chunks keep
// the provider's IDs and deltas, and that Collect reassembles content, finish
// reason and usage.
func TestBackend_Stream_YieldsChunksUnchanged(t *testing.T) {
	writeSSE := func(writer http.ResponseWriter, data string) {
		fmt.Fprintf(writer, "data: %s\n\n", data)
		if flusher, ok := writer.(http.Flusher); ok {
			flusher.Flush()
		}
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		writeSSE(w, `{"id":"chatcmpl-xyz","object":"chat.completion.chunk","created":1700000000,"model":"gpt-4o","choices":[{"index":0,"delta":{"role":"assistant","content":"Hello"},"finish_reason":null}]}`)
		writeSSE(w, `{"id":"chatcmpl-xyz","object":"chat.completion.chunk","created":1700000000,"model":"gpt-4o","choices":[{"index":0,"delta":{"content":" world"},"finish_reason":null}]}`)
		writeSSE(w, `{"id":"chatcmpl-xyz","object":"chat.completion.chunk","created":1700000000,"model":"gpt-4o","choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`)
		writeSSE(w, `{"id":"chatcmpl-xyz","object":"chat.completion.chunk","created":1700000000,"model":"gpt-4o","choices":[],"usage":{"prompt_tokens":5,"completion_tokens":2,"total_tokens":7}}`)
		writeSSE(w, `[DONE]`)
	}))
	defer server.Close()

	backend := testBackend(server.URL)
	stream, err := backend.Stream(context.Background(), goopenai.ChatCompletionRequest{
		Model:    "gpt-4o",
		Messages: []goopenai.ChatCompletionMessage{{Role: goopenai.ChatMessageRoleUser, Content: "Hello"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	response, err := stream.Collect()
	if err != nil {
		t.Fatalf("unexpected stream error: %v", err)
	}

	if response.ID != "chatcmpl-xyz" {
		t.Errorf("expected provider stream ID, got %q", response.ID)
	}
	if response.Choices[0].Message.Content != "Hello world" {
		t.Errorf("expected accumulated content, got %q", response.Choices[0].Message.Content)
	}
	if response.Choices[0].FinishReason != goopenai.FinishReasonStop {
		t.Errorf("expected finish reason stop, got %q", response.Choices[0].FinishReason)
	}
	if response.Usage.TotalTokens != 7 {
		t.Errorf("expected usage total 7, got %d", response.Usage.TotalTokens)
	}
}

// TestBackend_Stream_PreStreamError verifies that a non-2xx response at
// stream start is returned as a normal error, not through the iterator.
func TestBackend_Stream_PreStreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error": {"message": "Invalid API key", "type": "invalid_request_error"}}`)
	}))
	defer server.Close()

	backend := testBackend(server.URL)
	_, err := backend.Stream(context.Background(), goopenai.ChatCompletionRequest{
		Model:    "gpt-4o",
		Messages: []goopenai.ChatCompletionMessage{{Role: goopenai.ChatMessageRoleUser, Content: "Hello"}},
	})
	if err == nil {
		t.Fatal("expected error for 401 response, got nil")
	}

	var providerErr *ai.ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("expected *ai.ProviderError, got %T: %v", err, err)
	}
	if providerErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", providerErr.StatusCode)
	}
}

// TestNewAzure_UsesDeploymentPathAndAPIKeyHeader verifies the Azure transport
// shape: api-key header auth, deployment-scoped URL and api-version query.
func TestNewAzure_UsesDeploymentPathAndAPIKeyHeader(t *testing.T) {
	var capturedPath string
	var capturedAPIKey string
	var capturedAPIVersion string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedPath = r.URL.Path
		capturedAPIKey = r.Header.Get("Api-Key")
		capturedAPIVersion = r.URL.Query().Get("api-version")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completionFixture)
	}))
	defer server.Close()

	backend := NewAzure("azure-key", server.URL)
	_, err := backend.Complete(context.Background(), goopenai.ChatCompletionRequest{
		Model:    "gpt-4o",
		Messages: []goopenai.ChatCompletionMessage{{Role: goopenai.ChatMessageRoleUser, Content: "Hello"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(capturedPath, "/openai/deployments/gpt-4o/chat/completions") {
		t.Errorf("expected deployment-scoped path, got %q", capturedPath)
	}
	if capturedAPIKey != "azure-key" {
		t.Errorf("expected api-key header, got %q", capturedAPIKey)
	}
	if capturedAPIVersion == "" {
		t.Error("expected api-version query parameter to be set")
	}
}

// TestBackend_WithDeployment_PinsDeploymentName verifies that WithDeployment
// overrides the model-to-deployment mapping for every request.
func TestBackend_WithDeployment_PinsDeploymentName(t *testing.T) {
	var capturedPath string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completionFixture)
	}))
	defer server.Close()

	backend := NewAzure("azure-key", server.URL).WithDeployment("prod-gpt4")
	_, err := backend.Complete(context.Background(), goopenai.ChatCompletionRequest{
		Model:    "gpt-4o",
		Messages: []goopenai.ChatCompletionMessage{{Role: goopenai.ChatMessageRoleUser, Content: "Hello"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(capturedPath, "/openai/deployments/prod-gpt4/") {
		t.Errorf("expected pinned deployment in path, got %q", capturedPath)
	}
}
