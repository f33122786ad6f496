package vertex

import (
	"encoding/json"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/SiLeader/composite-llm/internal/utils"
	"github.com/SiLeader/composite-llm/providers/ai"
)

// requestToVertex converts a unified chat request to a Vertex
// generateContentRequest.
//
// System and developer messages are gathered into a single systemInstruction
// content, one text part per message, wherever they appear. User messages
// become "user" contents, assistant messages become "model" contents with
// functionCall parts for their tool calls, and tool messages become "user"
// contents carrying a functionResponse correlated by tool-call ID (the
// protocol matches function responses by name, so the call ID travels in the
// name field). Roles outside this set are silently dropped.
func requestToVertex(request openai.ChatCompletionRequest) generateContentRequest {
	req := generateContentRequest{}

	for _, message := range request.Messages {
		switch message.Role {
		case openai.ChatMessageRoleSystem, openai.ChatMessageRoleDeveloper:
			if req.SystemInstruction == nil {
				req.SystemInstruction = &content{Role: "user"}
			}
			req.SystemInstruction.Parts = append(req.SystemInstruction.Parts, part{Text: messageText(message)})

		case openai.ChatMessageRoleUser:
			req.Contents = append(req.Contents, content{
				Role:  "user",
				Parts: []part{{Text: messageText(message)}},
			})

		case openai.ChatMessageRoleAssistant:
			c := content{Role: "model"}
			if text := messageText(message); text != "" {
				c.Parts = append(c.Parts, part{Text: text})
			}
			for _, toolCall := range message.ToolCalls {
				if toolCall.Type != openai.ToolTypeFunction {
					continue
				}
				c.Parts = append(c.Parts, part{FunctionCall: &functionCall{
					Name: toolCall.Function.Name,
					Args: parseArguments(toolCall.Function.Arguments),
				}})
			}
			if len(c.Parts) > 0 {
				req.Contents = append(req.Contents, c)
			}

		case openai.ChatMessageRoleTool:
			req.Contents = append(req.Contents, content{
				Role: "user",
				Parts: []part{{FunctionResponse: &functionResponse{
					Name:     message.ToolCallID,
					Response: toolResponseJSON(messageText(message)),
				}}},
			})

		default:
			// The generative API only models user/model contents plus the
			// system instruction; other roles are dropped.
		}
	}

	req.GenerationConfig = buildGenerationConfig(request)
	req.Tools = buildTools(request.Tools)
	req.ToolConfig = buildToolConfig(request.ToolChoice)

	return req
}

// messageText flattens a message's content into a single string. Multi-part
// content keeps only the text parts, joined with newlines.
func messageText(message openai.ChatCompletionMessage) string {
	if len(message.MultiContent) == 0 {
		return message.Content
	}

	var parts []string
	for _, p := range message.MultiContent {
		if p.Type == openai.ChatMessagePartTypeText {
			parts = append(parts, p.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// parseArguments decodes a tool-call argument string into a raw JSON value.
// Malformed argument JSON degrades to an empty object.
func parseArguments(arguments string) json.RawMessage {
	trimmed := strings.TrimSpace(arguments)
	if trimmed == "" || !json.Valid([]byte(trimmed)) {
		return json.RawMessage(`{}`)
	}
	return json.RawMessage(trimmed)
}

// toolResponseJSON turns a tool message's content into the JSON value the
// functionResponse field requires. Content that is not valid JSON is wrapped
// as {"result": ...} instead of being forwarded broken.
func toolResponseJSON(text string) json.RawMessage {
	trimmed := strings.TrimSpace(text)
	if json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed)
	}
	wrapped, _ := json.Marshal(map[string]string{"result": text})
	return wrapped
}

// buildGenerationConfig maps sampling parameters and the response format
// onto the generation configuration. Returns nil when nothing is set so the
// field is omitted and server-side defaults apply.
func buildGenerationConfig(request openai.ChatCompletionRequest) *generationConfig {
	maxTokens := request.MaxCompletionTokens
	if maxTokens == 0 {
		maxTokens = request.MaxTokens
	}

	wantsJSON := false
	if request.ResponseFormat != nil {
		switch request.ResponseFormat.Type {
		case openai.ChatCompletionResponseFormatTypeJSONObject, openai.ChatCompletionResponseFormatTypeJSONSchema:
			wantsJSON = true
		}
	}

	if request.Temperature == 0 && request.TopP == 0 && maxTokens == 0 && len(request.Stop) == 0 && !wantsJSON {
		return nil
	}

	config := &generationConfig{StopSequences: request.Stop}
	if request.Temperature != 0 {
		config.Temperature = utils.Ptr(request.Temperature)
	}
	if request.TopP != 0 {
		config.TopP = utils.Ptr(request.TopP)
	}
	if maxTokens != 0 {
		config.MaxOutputTokens = utils.Ptr(maxTokens)
	}
	if wantsJSON {
		config.ResponseMimeType = "application/json"
		if schema := request.ResponseFormat.JSONSchema; schema != nil && schema.Schema != nil {
			if schemaBytes, err := json.Marshal(schema.Schema); err == nil {
				config.ResponseSchema = schemaBytes
			}
		}
	}
	return config
}

// buildTools groups function tools into a single tool entry holding all
// function declarations. Non-function tool types are skipped; returns nil
// when no usable tool remains.
func buildTools(tools []openai.Tool) []tool {
	var declarations []functionDeclaration
	for _, t := range tools {
		if t.Type != openai.ToolTypeFunction || t.Function == nil {
			continue
		}
		declaration := functionDeclaration{
			Name:        t.Function.Name,
			Description: t.Function.Description,
		}
		if t.Function.Parameters != nil {
			if parameters, err := json.Marshal(t.Function.Parameters); err == nil {
				declaration.Parameters = parameters
			}
		}
		declarations = append(declarations, declaration)
	}
	if len(declarations) == 0 {
		return nil
	}
	return []tool{{FunctionDeclarations: declarations}}
}

// buildToolConfig maps the tool choice onto a function calling mode:
// "none" forbids calls, "auto" leaves the decision to the model, "required"
// forces one, and a named function forces that specific function. Unknown
// shapes fall back to AUTO. Returns nil when no tool choice is set.
func buildToolConfig(toolChoice any) *toolConfig {
	if toolChoice == nil {
		return nil
	}

	config := &functionCallingConfig{}
	switch choice := toolChoice.(type) {
	case string:
		switch choice {
		case "none":
			config.Mode = "NONE"
		case "auto":
			config.Mode = "AUTO"
		case "required":
			config.Mode = "ANY"
		default:
			config.Mode = "AUTO"
		}
	case openai.ToolChoice:
		config.Mode = "ANY"
		if choice.Function.Name != "" {
			config.AllowedFunctionNames = []string{choice.Function.Name}
		}
	case *openai.ToolChoice:
		config.Mode = "ANY"
		if choice != nil && choice.Function.Name != "" {
			config.AllowedFunctionNames = []string{choice.Function.Name}
		}
	default:
		config.Mode = "AUTO"
	}

	return &toolConfig{FunctionCallingConfig: config}
}

// vertexToResponse converts a generateContentResponse to a unified chat
// completion. Each candidate becomes one choice at its position; text parts
// are concatenated and functionCall parts become tool calls with freshly
// generated call IDs, since the protocol has none of its own.
func vertexToResponse(response *generateContentResponse, model string) openai.ChatCompletionResponse {
	result := openai.ChatCompletionResponse{
		ID:      ai.NewCompletionID(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   model,
	}

	for i, cand := range response.Candidates {
		message := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant}

		if cand.Content != nil {
			var text strings.Builder
			for _, p := range cand.Content.Parts {
				text.WriteString(p.Text)
				if p.FunctionCall != nil {
					message.ToolCalls = append(message.ToolCalls, openai.ToolCall{
						ID:   ai.NewToolCallID(),
						Type: openai.ToolTypeFunction,
						Function: openai.FunctionCall{
							Name:      p.FunctionCall.Name,
							Arguments: argsToString(p.FunctionCall.Args),
						},
					})
				}
			}
			message.Content = text.String()
		}

		result.Choices = append(result.Choices, openai.ChatCompletionChoice{
			Index:        i,
			Message:      message,
			FinishReason: mapFinishReason(cand.FinishReason),
		})
	}

	if response.UsageMetadata != nil {
		result.Usage = openai.Usage{
			PromptTokens:     response.UsageMetadata.PromptTokenCount,
			CompletionTokens: response.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      response.UsageMetadata.TotalTokenCount,
		}
	}

	return result
}

// argsToString turns a functionCall's args back into the argument string
// form. Missing or invalid args degrade to an empty object string.
func argsToString(args json.RawMessage) string {
	if len(args) == 0 || !json.Valid(args) {
		return "{}"
	}
	return string(args)
}

// mapFinishReason converts a generative-API finish reason to the canonical
// finish_reason constant. Unrecognized values map to stop.
func mapFinishReason(finishReason string) openai.FinishReason {
	switch finishReason {
	case "STOP":
		return openai.FinishReasonStop
	case "MAX_TOKENS":
		return openai.FinishReasonLength
	case "SAFETY", "RECITATION":
		return openai.FinishReasonContentFilter
	default:
		return openai.FinishReasonStop
	}
}

// responseToChunk converts one streamed generateContentResponse into a
// chat-completion chunk. Only the first candidate is considered; a response
// without candidates produces nothing. Streamed function calls are dropped:
// chunks carry text deltas, the finish reason and usage. All chunks of one
// stream share the same generated stream ID and carry the assistant role.
func responseToChunk(response generateContentResponse, streamID, model string) *openai.ChatCompletionStreamResponse {
	if len(response.Candidates) == 0 {
		return nil
	}

	cand := response.Candidates[0]
	delta := openai.ChatCompletionStreamChoiceDelta{Role: openai.ChatMessageRoleAssistant}

	if cand.Content != nil {
		var text strings.Builder
		for _, p := range cand.Content.Parts {
			text.WriteString(p.Text)
		}
		delta.Content = text.String()
	}

	choice := openai.ChatCompletionStreamChoice{Index: 0, Delta: delta}
	if cand.FinishReason != "" {
		choice.FinishReason = mapFinishReason(cand.FinishReason)
	}

	chunk := &openai.ChatCompletionStreamResponse{
		ID:      streamID,
		Object:  "chat.completion.chunk",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []openai.ChatCompletionStreamChoice{choice},
	}
	if response.UsageMetadata != nil {
		chunk.Usage = &openai.Usage{
			PromptTokens:     response.UsageMetadata.PromptTokenCount,
			CompletionTokens: response.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      response.UsageMetadata.TotalTokenCount,
		}
	}
	return chunk
}
