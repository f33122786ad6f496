package bedrock

import "encoding/json"

/*
	AMAZON BEDROCK CONVERSE API - REQUEST TYPES

	These types are exported because they form the Runtime interface's
	contract: custom Runtime implementations (for example one backed by the
	AWS SDK with SigV4 signing) receive and return them. Field names follow
	the Converse REST wire format.
*/

// ConverseRequest represents the request body for the Converse and
// ConverseStream endpoints. The model is addressed through the URL path,
// not the body.
type ConverseRequest struct {
	System          []SystemContentBlock `json:"system,omitempty"`
	Messages        []Message            `json:"messages"`
	InferenceConfig *InferenceConfig     `json:"inferenceConfig,omitempty"`
	ToolConfig      *ToolConfig          `json:"toolConfig,omitempty"`
}

// SystemContentBlock carries one system prompt entry.
type SystemContentBlock struct {
	Text string `json:"text"`
}

// Message represents a single conversation turn.
type Message struct {
	Role    string         `json:"role"` // "user" or "assistant"
	Content []ContentBlock `json:"content"`
}

// ContentBlock is a union: exactly one of Text, ToolUse or ToolResult is
// populated.
type ContentBlock struct {
	Text       string           `json:"text,omitempty"`
	ToolUse    *ToolUseBlock    `json:"toolUse,omitempty"`
	ToolResult *ToolResultBlock `json:"toolResult,omitempty"`
}

// ToolUseBlock is an assistant-issued tool invocation.
type ToolUseBlock struct {
	ToolUseID string          `json:"toolUseId"`
	Name      string          `json:"name"`
	Input     json.RawMessage `json:"input"`
}

// ToolResultBlock carries the result of a prior tool invocation back to the
// model, correlated by the tool-use ID.
type ToolResultBlock struct {
	ToolUseID string              `json:"toolUseId"`
	Content   []ToolResultContent `json:"content"`
}

// ToolResultContent is one piece of tool result content.
type ToolResultContent struct {
	Text string `json:"text,omitempty"`
}

// InferenceConfig mirrors the sampling-parameter subset Converse accepts.
type InferenceConfig struct {
	Temperature   *float32 `json:"temperature,omitempty"`
	TopP          *float32 `json:"topP,omitempty"`
	MaxTokens     *int     `json:"maxTokens,omitempty"`
	StopSequences []string `json:"stopSequences,omitempty"`
}

// ToolConfig advertises the tools available to the model.
type ToolConfig struct {
	Tools []Tool `json:"tools"`
}

// Tool wraps a tool specification.
type Tool struct {
	ToolSpec ToolSpec `json:"toolSpec"`
}

// ToolSpec describes one callable function.
type ToolSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema ToolInputSchema `json:"inputSchema"`
}

// ToolInputSchema wraps the JSON Schema under the API's "json" key.
type ToolInputSchema struct {
	JSON json.RawMessage `json:"json"`
}

/*
	RESPONSE TYPES
*/

// ConverseResponse represents a non-streaming Converse response.
type ConverseResponse struct {
	Output     ConverseOutput `json:"output"`
	StopReason string         `json:"stopReason"`
	Usage      Usage          `json:"usage"`
}

// ConverseOutput holds the assistant message of a completed response.
type ConverseOutput struct {
	Message Message `json:"message"`
}

// Usage carries token counts.
type Usage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
	TotalTokens  int `json:"totalTokens"`
}

/*
	STREAM EVENT TYPES
*/

// StreamEvent is the union of ConverseStream event payloads. Exactly one
// field is set per event, matching the :event-type header of the frame that
// carried it. Events with no field set (unknown event types) are skipped by
// the streaming bridge.
type StreamEvent struct {
	MessageStart      *MessageStartEvent      `json:"messageStart,omitempty"`
	ContentBlockStart *ContentBlockStartEvent `json:"contentBlockStart,omitempty"`
	ContentBlockDelta *ContentBlockDeltaEvent `json:"contentBlockDelta,omitempty"`
	ContentBlockStop  *ContentBlockStopEvent  `json:"contentBlockStop,omitempty"`
	MessageStop       *MessageStopEvent       `json:"messageStop,omitempty"`
	Metadata          *MetadataEvent          `json:"metadata,omitempty"`
}

// MessageStartEvent opens the assistant message.
type MessageStartEvent struct {
	Role string `json:"role"`
}

// ContentBlockStartEvent opens a content block. For tool use it carries the
// invocation identity; text blocks start implicitly with their first delta.
type ContentBlockStartEvent struct {
	ContentBlockIndex int         `json:"contentBlockIndex"`
	Start             *BlockStart `json:"start,omitempty"`
}

// BlockStart identifies the kind of block being opened.
type BlockStart struct {
	ToolUse *ToolUseStart `json:"toolUse,omitempty"`
}

// ToolUseStart carries the identity of a streamed tool invocation.
type ToolUseStart struct {
	ToolUseID string `json:"toolUseId"`
	Name      string `json:"name"`
}

// ContentBlockDeltaEvent carries an incremental piece of a content block.
type ContentBlockDeltaEvent struct {
	ContentBlockIndex int        `json:"contentBlockIndex"`
	Delta             BlockDelta `json:"delta"`
}

// BlockDelta is a union: Text for text deltas, ToolUse for tool-argument
// fragments.
type BlockDelta struct {
	Text    string        `json:"text,omitempty"`
	ToolUse *ToolUseDelta `json:"toolUse,omitempty"`
}

// ToolUseDelta is a fragment of a tool invocation's input JSON.
type ToolUseDelta struct {
	Input string `json:"input"`
}

// ContentBlockStopEvent closes a content block.
type ContentBlockStopEvent struct {
	ContentBlockIndex int `json:"contentBlockIndex"`
}

// MessageStopEvent closes the assistant message with its stop reason.
type MessageStopEvent struct {
	StopReason string `json:"stopReason"`
}

// MetadataEvent carries usage counters at the end of the stream.
type MetadataEvent struct {
	Usage *Usage `json:"usage,omitempty"`
}
