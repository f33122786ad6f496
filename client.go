package compositellm

import (
	"context"

	openai "github.com/sashabaranov/go-openai"

	"github.com/SiLeader/composite-llm/providers/ai"
	"github.com/SiLeader/composite-llm/providers/ai/bedrock"
	aiopenai "github.com/SiLeader/composite-llm/providers/ai/openai"
	"github.com/SiLeader/composite-llm/providers/ai/vertex"
)

// CompositeClient exposes one chat-completion API over interchangeable
// backends. The backend is fixed at construction and every call forwards to
// it; requests and responses use the go-openai types regardless of which
// provider serves them.
type CompositeClient struct {
	backend ai.Backend
}

// New creates a client over any backend implementation.
func New(backend ai.Backend) *CompositeClient {
	return &CompositeClient{backend: backend}
}

// NewOpenAI creates a client backed by the OpenAI API, configured from
// OPENAI_API_KEY and OPENAI_BASE_URL.
func NewOpenAI() *CompositeClient {
	return New(aiopenai.New())
}

// NewOpenAIWithConfig creates a client backed by an OpenAI-compatible
// endpoint with an explicit client configuration.
func NewOpenAIWithConfig(config openai.ClientConfig) *CompositeClient {
	return New(aiopenai.NewWithConfig(config))
}

// NewAzure creates a client backed by an Azure OpenAI resource.
func NewAzure(apiKey, endpoint string) *CompositeClient {
	return New(aiopenai.NewAzure(apiKey, endpoint))
}

// NewBedrock creates a client backed by Amazon Bedrock through the given
// runtime.
func NewBedrock(runtime bedrock.Runtime, modelID string) *CompositeClient {
	return New(bedrock.New(runtime, modelID))
}

// NewBedrockFromEnv creates a client backed by Amazon Bedrock, configured
// from AWS_REGION and AWS_BEARER_TOKEN_BEDROCK.
func NewBedrockFromEnv(modelID string) *CompositeClient {
	return New(bedrock.NewFromEnv(modelID))
}

// NewVertex creates a client backed by Vertex AI, authenticated through
// application default credentials.
func NewVertex(ctx context.Context, projectID, location, modelID string) (*CompositeClient, error) {
	backend, err := vertex.New(ctx, projectID, location, modelID)
	if err != nil {
		return nil, err
	}
	return New(backend), nil
}

// ChatCompletion sends a chat-completion request to the configured backend
// and waits for the full response.
func (c *CompositeClient) ChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return c.backend.Complete(ctx, request)
}

// ChatCompletionStream starts a streaming chat completion on the configured
// backend. The returned stream yields chunks as the provider produces them.
func (c *CompositeClient) ChatCompletionStream(ctx context.Context, request openai.ChatCompletionRequest) (*ai.ChatStream, error) {
	return c.backend.Stream(ctx, request)
}
