package bedrock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/SiLeader/composite-llm/internal/utils"
	"github.com/SiLeader/composite-llm/providers/ai"
)

// TestComplete verifies the non-streaming path end to end against a fake
// runtime: the configured model ID addresses the invocation while the
// request's own model name is echoed in the response.
func TestComplete(t *testing.T) {
	runtime := &fakeRuntime{response: &ConverseResponse{
		Output: ConverseOutput{Message: Message{
			Role:    "assistant",
			Content: []ContentBlock{{Text: "Hi there."}},
		}},
		StopReason: "end_turn",
		Usage:      Usage{InputTokens: 8, OutputTokens: 3},
	}}
	backend := New(runtime, "anthropic.claude-3-haiku")

	response, err := backend.Complete(context.Background(), openai.ChatCompletionRequest{
		Model: "my-alias",
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: "Hello"},
		},
	})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}

	if runtime.lastModel != "anthropic.claude-3-haiku" {
		t.Errorf("invoked model: got %q, want the configured model ID", runtime.lastModel)
	}
	if len(runtime.lastReq.Messages) != 1 || runtime.lastReq.Messages[0].Content[0].Text != "Hello" {
		t.Errorf("converted request: %+v", runtime.lastReq)
	}
	if response.Model != "my-alias" {
		t.Errorf("response model: got %q, want the request's model echoed", response.Model)
	}
	if response.Choices[0].Message.Content != "Hi there." {
		t.Errorf("Content: got %q", response.Choices[0].Message.Content)
	}
	if response.Usage.TotalTokens != 11 {
		t.Errorf("TotalTokens: got %d, want 11", response.Usage.TotalTokens)
	}
}

// TestComplete_HTTPError verifies that a non-2xx transport failure becomes a
// ProviderError carrying the status code and raw body.
func TestComplete_HTTPError(t *testing.T) {
	runtime := &fakeRuntime{err: fmt.Errorf("invoking model: %w", &utils.StatusError{
		Code: 429,
		Body: `{"message":"Too many requests"}`,
	})}
	backend := New(runtime, "model-id")

	_, err := backend.Complete(context.Background(), openai.ChatCompletionRequest{Model: "m"})

	var providerErr *ai.ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("expected *ai.ProviderError, got %T: %v", err, err)
	}
	if providerErr.Provider != "bedrock" {
		t.Errorf("Provider: got %q", providerErr.Provider)
	}
	if providerErr.StatusCode != 429 {
		t.Errorf("StatusCode: got %d, want 429", providerErr.StatusCode)
	}
	if !strings.Contains(providerErr.Message, "HTTP 429") || !strings.Contains(providerErr.Message, "Too many requests") {
		t.Errorf("Message should carry status and body, got %q", providerErr.Message)
	}
}

// TestWrapRuntimeError_PassThrough verifies that errors already belonging to
// the shared taxonomy are not wrapped a second time.
func TestWrapRuntimeError_PassThrough(t *testing.T) {
	var providerErr error = &ai.ProviderError{Provider: "bedrock", Message: "already wrapped"}
	if got := wrapRuntimeError(providerErr); got != providerErr {
		t.Errorf("ProviderError was rewrapped: %v", got)
	}

	var serializationErr error = &ai.SerializationError{Err: errors.New("bad payload")}
	if got := wrapRuntimeError(serializationErr); got != serializationErr {
		t.Errorf("SerializationError was rewrapped: %v", got)
	}
}

// TestNewFromEnv verifies runtime construction from the environment,
// including the region default.
func TestNewFromEnv(t *testing.T) {
	t.Setenv("AWS_REGION", "eu-west-1")
	t.Setenv("AWS_BEARER_TOKEN_BEDROCK", "token-123")

	backend := NewFromEnv("model-id")

	runtime, ok := backend.runtime.(*HTTPRuntime)
	if !ok {
		t.Fatalf("expected *HTTPRuntime, got %T", backend.runtime)
	}
	if runtime.region != "eu-west-1" {
		t.Errorf("region: got %q", runtime.region)
	}
	if runtime.token != "token-123" {
		t.Errorf("token: got %q", runtime.token)
	}
	if backend.modelID != "model-id" {
		t.Errorf("modelID: got %q", backend.modelID)
	}
}

// TestNewFromEnv_DefaultRegion verifies that an unset AWS_REGION falls back
// to us-east-1.
func TestNewFromEnv_DefaultRegion(t *testing.T) {
	t.Setenv("AWS_REGION", "")
	t.Setenv("AWS_BEARER_TOKEN_BEDROCK", "token-123")

	backend := NewFromEnv("model-id")

	runtime := backend.runtime.(*HTTPRuntime)
	if runtime.region != defaultRegion {
		t.Errorf("region: got %q, want %q", runtime.region, defaultRegion)
	}
}
