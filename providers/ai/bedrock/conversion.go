package bedrock

import (
	"encoding/json"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/SiLeader/composite-llm/internal/utils"
	"github.com/SiLeader/composite-llm/providers/ai"
)

// defaultToolSchema is sent when a tool defines no parameters. Converse
// requires an input schema on every tool spec.
var defaultToolSchema = json.RawMessage(`{"type":"object","properties":{}}`)

// requestToConverse converts a unified chat request into a ConverseRequest.
//
// System and developer messages are hoisted into the top-level system list,
// one block per message, wherever they appear in the conversation. User and
// tool messages become "user" turns, assistant messages become "assistant"
// turns with tool-use blocks for their tool calls. Roles outside this set
// are silently dropped.
func requestToConverse(request openai.ChatCompletionRequest) ConverseRequest {
	req := ConverseRequest{}

	for _, message := range request.Messages {
		switch message.Role {
		case openai.ChatMessageRoleSystem, openai.ChatMessageRoleDeveloper:
			req.System = append(req.System, SystemContentBlock{Text: messageText(message)})

		case openai.ChatMessageRoleUser:
			req.Messages = append(req.Messages, Message{
				Role:    "user",
				Content: []ContentBlock{{Text: messageText(message)}},
			})

		case openai.ChatMessageRoleAssistant:
			turn := Message{Role: "assistant"}
			if text := messageText(message); text != "" {
				turn.Content = append(turn.Content, ContentBlock{Text: text})
			}
			for _, toolCall := range message.ToolCalls {
				if toolCall.Type != openai.ToolTypeFunction {
					continue
				}
				turn.Content = append(turn.Content, ContentBlock{ToolUse: &ToolUseBlock{
					ToolUseID: toolCall.ID,
					Name:      toolCall.Function.Name,
					Input:     parseArguments(toolCall.Function.Arguments),
				}})
			}
			if len(turn.Content) > 0 {
				req.Messages = append(req.Messages, turn)
			}

		case openai.ChatMessageRoleTool:
			req.Messages = append(req.Messages, Message{
				Role: "user",
				Content: []ContentBlock{{ToolResult: &ToolResultBlock{
					ToolUseID: message.ToolCallID,
					Content:   []ToolResultContent{{Text: messageText(message)}},
				}}},
			})

		default:
			// Converse only models user/assistant turns plus the system
			// list; other roles are dropped.
		}
	}

	req.InferenceConfig = buildInferenceConfig(request)
	req.ToolConfig = buildToolConfig(request.Tools)

	return req
}

// messageText flattens a message's content into a single string. Multi-part
// content keeps only the text parts, joined with newlines; image and audio
// parts are dropped because these turns carry plain text blocks.
func messageText(message openai.ChatCompletionMessage) string {
	if len(message.MultiContent) == 0 {
		return message.Content
	}

	var parts []string
	for _, part := range message.MultiContent {
		if part.Type == openai.ChatMessagePartTypeText {
			parts = append(parts, part.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// parseArguments decodes a tool-call argument string into a raw JSON value.
// Malformed argument JSON degrades to an empty object rather than failing
// the whole request.
func parseArguments(arguments string) json.RawMessage {
	trimmed := strings.TrimSpace(arguments)
	if trimmed == "" || !json.Valid([]byte(trimmed)) {
		return json.RawMessage(`{}`)
	}
	return json.RawMessage(trimmed)
}

// buildInferenceConfig maps sampling parameters onto Converse's inference
// configuration. The block is omitted entirely when no parameter is set, so
// the provider's server-side defaults apply.
func buildInferenceConfig(request openai.ChatCompletionRequest) *InferenceConfig {
	maxTokens := request.MaxCompletionTokens
	if maxTokens == 0 {
		maxTokens = request.MaxTokens
	}

	if request.Temperature == 0 && request.TopP == 0 && maxTokens == 0 && len(request.Stop) == 0 {
		return nil
	}

	config := &InferenceConfig{StopSequences: request.Stop}
	if request.Temperature != 0 {
		config.Temperature = utils.Ptr(request.Temperature)
	}
	if request.TopP != 0 {
		config.TopP = utils.Ptr(request.TopP)
	}
	if maxTokens != 0 {
		config.MaxTokens = utils.Ptr(maxTokens)
	}
	return config
}

// buildToolConfig advertises function tools to the model. Non-function tool
// types are skipped. Returns nil when no usable tool remains so the field is
// omitted, which Converse requires when the tool list would be empty.
func buildToolConfig(tools []openai.Tool) *ToolConfig {
	var entries []Tool
	for _, tool := range tools {
		if tool.Type != openai.ToolTypeFunction || tool.Function == nil {
			continue
		}
		entries = append(entries, Tool{ToolSpec: ToolSpec{
			Name:        tool.Function.Name,
			Description: tool.Function.Description,
			InputSchema: ToolInputSchema{JSON: marshalSchema(tool.Function.Parameters)},
		}})
	}
	if len(entries) == 0 {
		return nil
	}
	return &ToolConfig{Tools: entries}
}

// marshalSchema serializes a tool's parameter schema, defaulting to the
// empty object schema when none is provided.
func marshalSchema(parameters any) json.RawMessage {
	if parameters == nil {
		return defaultToolSchema
	}
	schema, err := json.Marshal(parameters)
	if err != nil {
		return defaultToolSchema
	}
	return schema
}

// converseToResponse converts a Converse response into a unified chat
// completion with a single choice.
//
// Text blocks are concatenated in order; tool-use blocks become tool calls
// with their IDs and names preserved verbatim. Unknown block types are
// silently skipped. The completion ID is freshly generated because the
// protocol has none of its own.
func converseToResponse(response *ConverseResponse, model string) openai.ChatCompletionResponse {
	message := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant}

	var text strings.Builder
	for _, block := range response.Output.Message.Content {
		switch {
		case block.ToolUse != nil:
			message.ToolCalls = append(message.ToolCalls, openai.ToolCall{
				ID:   block.ToolUse.ToolUseID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      block.ToolUse.Name,
					Arguments: inputToArguments(block.ToolUse.Input),
				},
			})
		case block.ToolResult != nil:
			// Tool results never appear in model output; skip.
		default:
			text.WriteString(block.Text)
		}
	}
	message.Content = text.String()

	return openai.ChatCompletionResponse{
		ID:      ai.NewCompletionID(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []openai.ChatCompletionChoice{{
			Index:        0,
			Message:      message,
			FinishReason: mapStopReason(response.StopReason),
		}},
		Usage: openai.Usage{
			PromptTokens:     response.Usage.InputTokens,
			CompletionTokens: response.Usage.OutputTokens,
			TotalTokens:      response.Usage.InputTokens + response.Usage.OutputTokens,
		},
	}
}

// inputToArguments turns a tool-use input value back into the argument
// string form. Invalid input degrades to an empty object string.
func inputToArguments(input json.RawMessage) string {
	if len(input) == 0 || !json.Valid(input) {
		return "{}"
	}
	return string(input)
}

// mapStopReason converts a Converse stopReason value to the canonical
// finish_reason constant. Unrecognized values map to stop.
func mapStopReason(stopReason string) openai.FinishReason {
	switch stopReason {
	case "end_turn", "stop_sequence":
		return openai.FinishReasonStop
	case "max_tokens":
		return openai.FinishReasonLength
	case "tool_use":
		return openai.FinishReasonToolCalls
	default:
		return openai.FinishReasonStop
	}
}

// streamEventToChunk converts one stream event into a chat-completion chunk.
// Returns nil for events that produce nothing: message and block boundaries,
// tool-use argument fragments, and metadata without usage. All chunks of a
// stream share the same generated stream ID.
func streamEventToChunk(event StreamEvent, streamID, model string) *openai.ChatCompletionStreamResponse {
	switch {
	case event.ContentBlockDelta != nil:
		if event.ContentBlockDelta.Delta.Text == "" {
			return nil
		}
		return &openai.ChatCompletionStreamResponse{
			ID:      streamID,
			Object:  "chat.completion.chunk",
			Created: time.Now().Unix(),
			Model:   model,
			Choices: []openai.ChatCompletionStreamChoice{{
				Index: 0,
				Delta: openai.ChatCompletionStreamChoiceDelta{
					Content: event.ContentBlockDelta.Delta.Text,
				},
			}},
		}

	case event.MessageStop != nil:
		return &openai.ChatCompletionStreamResponse{
			ID:      streamID,
			Object:  "chat.completion.chunk",
			Created: time.Now().Unix(),
			Model:   model,
			Choices: []openai.ChatCompletionStreamChoice{{
				Index:        0,
				Delta:        openai.ChatCompletionStreamChoiceDelta{},
				FinishReason: mapStopReason(event.MessageStop.StopReason),
			}},
		}

	case event.Metadata != nil:
		if event.Metadata.Usage == nil {
			return nil
		}
		return &openai.ChatCompletionStreamResponse{
			ID:      streamID,
			Object:  "chat.completion.chunk",
			Created: time.Now().Unix(),
			Model:   model,
			Choices: []openai.ChatCompletionStreamChoice{},
			Usage: &openai.Usage{
				PromptTokens:     event.Metadata.Usage.InputTokens,
				CompletionTokens: event.Metadata.Usage.OutputTokens,
				TotalTokens:      event.Metadata.Usage.InputTokens + event.Metadata.Usage.OutputTokens,
			},
		}

	default:
		return nil
	}
}
