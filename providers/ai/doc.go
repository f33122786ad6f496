// Package ai defines the shared, provider-agnostic types and interfaces used
// across all backend implementations (OpenAI, Azure OpenAI, Amazon Bedrock,
// Vertex AI). The unified request/response schema is the OpenAI
// chat-completions schema from github.com/sashabaranov/go-openai; each
// backend's conversion layer maps it to its own wire format, keeping callers
// decoupled from provider-specific details.
//
// The central interface is [Backend], with synchronous completion via
// [Backend.Complete] and streaming via [Backend.Stream]. Streaming responses
// flow through [ChatStream] as native chat-completion chunks, with
// [ChatStream.Collect] available to accumulate a full response. Failures use
// the shared taxonomy [ProviderError], [SerializationError] and
// [UnsupportedError].
package ai
