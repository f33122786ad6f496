package bedrock

import (
	"context"
	"errors"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"github.com/SiLeader/composite-llm/internal/utils"
	"github.com/SiLeader/composite-llm/providers/ai"
)

const defaultRegion = "us-east-1"

// Backend implements ai.Backend on Amazon Bedrock's Converse protocol. Every
// request is sent to a single Bedrock model, fixed at construction; the
// request's own model field is echoed back in converted responses.
type Backend struct {
	runtime Runtime
	modelID string
}

// New creates a Backend that invokes the given Bedrock model through the
// provided runtime.
func New(runtime Runtime, modelID string) *Backend {
	return &Backend{runtime: runtime, modelID: modelID}
}

// NewFromEnv creates a Backend with an HTTP runtime configured from the
// environment: AWS_REGION (defaulting to us-east-1) and
// AWS_BEARER_TOKEN_BEDROCK for bearer authentication.
func NewFromEnv(modelID string) *Backend {
	return New(NewHTTPRuntime(os.Getenv("AWS_REGION"), os.Getenv("AWS_BEARER_TOKEN_BEDROCK")), modelID)
}

// Complete implements ai.Backend.
func (b *Backend) Complete(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	converseReq := requestToConverse(request)

	converseRes, err := b.runtime.Converse(ctx, b.modelID, &converseReq)
	if err != nil {
		return openai.ChatCompletionResponse{}, wrapRuntimeError(err)
	}

	return converseToResponse(converseRes, request.Model), nil
}

// wrapRuntimeError lifts transport failures into the shared taxonomy,
// preserving the HTTP status code and raw response body when present.
// Errors already belonging to the taxonomy pass through unchanged.
func wrapRuntimeError(err error) error {
	var providerErr *ai.ProviderError
	if errors.As(err, &providerErr) {
		return err
	}
	var serializationErr *ai.SerializationError
	if errors.As(err, &serializationErr) {
		return err
	}

	var statusErr *utils.StatusError
	if errors.As(err, &statusErr) {
		return &ai.ProviderError{
			Provider:   "bedrock",
			StatusCode: statusErr.Code,
			Message:    fmt.Sprintf("HTTP %d: %s", statusErr.Code, statusErr.Body),
			Err:        err,
		}
	}

	return &ai.ProviderError{Provider: "bedrock", Message: err.Error(), Err: err}
}
