package ai

import (
	"fmt"

	"github.com/google/uuid"
)

// NewCompletionID returns a fresh chat-completion identifier in the
// "chatcmpl-<32 hex digits>" format. Backends that synthesize responses from
// non-OpenAI protocols generate one ID per response, and one per stream that
// is shared by every chunk of that stream.
func NewCompletionID() string {
	u := uuid.New()
	return fmt.Sprintf("chatcmpl-%x", u[:])
}

// NewToolCallID returns a fresh tool-call identifier in the
// "call_<32 hex digits>" format. Used when the provider protocol does not
// carry tool-call IDs of its own, so the unified response still satisfies
// callers that correlate tool results by ID.
func NewToolCallID() string {
	u := uuid.New()
	return fmt.Sprintf("call_%x", u[:])
}
