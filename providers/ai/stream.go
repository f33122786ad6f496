package ai

import (
	"iter"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// ChatStream wraps a streaming iterator over chat-completion chunks and
// provides automatic accumulation of deltas into a final response. It
// supports both range-based iteration for real-time token processing and a
// convenience Collect() method for callers who want the complete response.
//
// Important: callers must consume the stream, either by iterating with Iter()
// (including breaking out of the loop early) or by calling Collect(). The
// underlying provider may hold open resources (such as an HTTP response body)
// that are only released when the iterator completes or is abandoned via a
// loop break. Constructing a ChatStream and never iterating it will leak
// those resources.
type ChatStream struct {
	iterator iter.Seq2[openai.ChatCompletionStreamResponse, error]
}

// NewChatStream creates a ChatStream from a raw streaming iterator.
// The iterator is expected to yield chunk values (with nil error) for normal
// deltas, and may yield a non-nil error to signal a mid-stream failure. The
// caller is responsible for consuming the returned ChatStream (see ChatStream
// documentation for resource management details).
func NewChatStream(iterator iter.Seq2[openai.ChatCompletionStreamResponse, error]) *ChatStream {
	return &ChatStream{iterator: iterator}
}

// Iter returns the underlying iterator for use with range-over-func loops.
//
// Example:
//
//	for chunk, err := range stream.Iter() {
//	    if err != nil { handle error }
//	    if len(chunk.Choices) > 0 {
//	        fmt.Print(chunk.Choices[0].Delta.Content)
//	    }
//	}
func (stream *ChatStream) Iter() iter.Seq2[openai.ChatCompletionStreamResponse, error] {
	return stream.iterator
}

// Collect consumes the entire stream and returns the accumulated response.
// This is a convenience method for callers who want the complete response but
// still benefit from streaming transport (lower time-to-first-byte).
// Any mid-stream error terminates collection and returns the partial response
// with the error.
//
// Collect accumulates the first choice of every chunk. Providers in this
// module emit a single choice per chunk; additional choices are ignored.
func (stream *ChatStream) Collect() (openai.ChatCompletionResponse, error) {
	accumulated := openai.ChatCompletionResponse{
		Object: "chat.completion",
	}
	var content strings.Builder
	var role string
	var finishReason openai.FinishReason
	var usage openai.Usage
	var toolCallBuilders []*toolCallBuilder

	for chunk, err := range stream.iterator {
		if err != nil {
			accumulated.Choices = finalizeChoice(role, content.String(), toolCallBuilders, finishReason)
			accumulated.Usage = usage
			return accumulated, err
		}

		if accumulated.ID == "" {
			accumulated.ID = chunk.ID
		}
		if accumulated.Model == "" {
			accumulated.Model = chunk.Model
		}
		if accumulated.Created == 0 {
			accumulated.Created = chunk.Created
		}
		if chunk.Usage != nil {
			usage = *chunk.Usage
		}

		if len(chunk.Choices) == 0 {
			continue
		}
		choice := chunk.Choices[0]

		if choice.Delta.Role != "" {
			role = choice.Delta.Role
		}
		content.WriteString(choice.Delta.Content)
		for _, delta := range choice.Delta.ToolCalls {
			toolCallBuilders = accumulateToolCallDelta(toolCallBuilders, delta)
		}
		if choice.FinishReason != "" {
			finishReason = choice.FinishReason
		}
	}

	accumulated.Choices = finalizeChoice(role, content.String(), toolCallBuilders, finishReason)
	accumulated.Usage = usage
	return accumulated, nil
}

// finalizeChoice assembles the single accumulated choice from the collected
// deltas.
func finalizeChoice(role, content string, builders []*toolCallBuilder, finishReason openai.FinishReason) []openai.ChatCompletionChoice {
	if role == "" {
		role = openai.ChatMessageRoleAssistant
	}

	message := openai.ChatCompletionMessage{
		Role:    role,
		Content: content,
	}
	for _, builder := range builders {
		message.ToolCalls = append(message.ToolCalls, openai.ToolCall{
			ID:   builder.id,
			Type: openai.ToolTypeFunction,
			Function: openai.FunctionCall{
				Name:      builder.name,
				Arguments: builder.arguments.String(),
			},
		})
	}

	return []openai.ChatCompletionChoice{{
		Index:        0,
		Message:      message,
		FinishReason: finishReason,
	}}
}

// toolCallBuilder accumulates incremental tool call deltas into a complete
// tool call. Builders are held by pointer so the arguments Builder keeps a
// stable address while the slice grows.
type toolCallBuilder struct {
	id        string
	name      string
	arguments strings.Builder
}

// accumulateToolCallDelta merges a streamed tool-call delta into the running
// list of builders. It grows the slice as needed when new indices appear.
// Deltas without an index target index zero.
func accumulateToolCallDelta(builders []*toolCallBuilder, delta openai.ToolCall) []*toolCallBuilder {
	index := 0
	if delta.Index != nil {
		index = *delta.Index
	}

	for len(builders) <= index {
		builders = append(builders, &toolCallBuilder{})
	}

	builder := builders[index]
	if delta.ID != "" {
		builder.id = delta.ID
	}
	if delta.Function.Name != "" {
		builder.name = delta.Function.Name
	}
	if delta.Function.Arguments != "" {
		builder.arguments.WriteString(delta.Function.Arguments)
	}

	return builders
}
