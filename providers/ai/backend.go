package ai

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
)

// Backend is the core interface that every provider implementation must
// satisfy. It covers the full lifecycle of a single request against one
// provider, from request conversion through dispatch to response
// interpretation.
// Requests and responses use the OpenAI chat-completions schema regardless
// of the underlying provider; each implementation converts between that
// schema and its own wire format.
type Backend interface {
	// Complete sends a chat request and returns the completed response.
	// Returns an error if the provider call fails or the response cannot
	// be decoded; context cancellation surfaces as a failed call.
	Complete(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)

	// Stream sends a chat request and returns a ChatStream that yields
	// incremental chunks as they arrive from the provider. Pre-stream
	// errors (auth, bad request, network) are returned as a normal error.
	// Mid-stream errors are yielded through the iterator exactly once;
	// iteration stops immediately afterwards.
	Stream(ctx context.Context, request openai.ChatCompletionRequest) (*ChatStream, error)
}
