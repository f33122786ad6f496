package openai

import (
	"context"
	"errors"
	"net/http"
	"os"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/SiLeader/composite-llm/providers/ai"
)

// Backend implements ai.Backend for the OpenAI chat-completions API and for
// Azure OpenAI deployments. Because the unified schema is the OpenAI schema,
// this backend is a pass-through: requests and responses cross the boundary
// unchanged.
type Backend struct {
	client *goopenai.Client
	config goopenai.ClientConfig
}

// New creates a Backend configured from the environment: OPENAI_API_KEY for
// authentication and OPENAI_BASE_URL to override the default endpoint
// (useful for OpenAI-compatible servers).
func New() *Backend {
	config := goopenai.DefaultConfig(os.Getenv("OPENAI_API_KEY"))
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		config.BaseURL = baseURL
	}
	return NewWithConfig(config)
}

// NewWithConfig creates a Backend from an explicit client configuration.
func NewWithConfig(config goopenai.ClientConfig) *Backend {
	return &Backend{
		client: goopenai.NewClientWithConfig(config),
		config: config,
	}
}

// NewAzure creates a Backend for an Azure OpenAI resource. endpoint is the
// resource endpoint, e.g. https://myresource.openai.azure.com. The model
// field of each request selects the deployment; use WithDeployment to pin a
// fixed deployment name instead.
func NewAzure(apiKey, endpoint string) *Backend {
	return NewWithConfig(goopenai.DefaultAzureConfig(apiKey, endpoint))
}

// WithAPIKey replaces the API key, preserving the rest of the configuration.
func (b *Backend) WithAPIKey(apiKey string) *Backend {
	var config goopenai.ClientConfig
	if b.isAzure() {
		config = goopenai.DefaultAzureConfig(apiKey, b.config.BaseURL)
		config.APIVersion = b.config.APIVersion
		config.AzureModelMapperFunc = b.config.AzureModelMapperFunc
	} else {
		config = goopenai.DefaultConfig(apiKey)
		config.BaseURL = b.config.BaseURL
	}
	config.OrgID = b.config.OrgID
	if b.config.HTTPClient != nil {
		config.HTTPClient = b.config.HTTPClient
	}
	return b.apply(config)
}

// WithBaseURL overrides the endpoint base URL.
func (b *Backend) WithBaseURL(baseURL string) *Backend {
	config := b.config
	config.BaseURL = baseURL
	return b.apply(config)
}

// WithHTTPClient sets the HTTP client used for outbound requests.
func (b *Backend) WithHTTPClient(httpClient *http.Client) *Backend {
	config := b.config
	config.HTTPClient = httpClient
	return b.apply(config)
}

// WithAPIVersion sets the api-version query parameter for Azure requests.
func (b *Backend) WithAPIVersion(version string) *Backend {
	config := b.config
	config.APIVersion = version
	return b.apply(config)
}

// WithDeployment maps every request to a fixed Azure deployment name,
// regardless of the request's model field.
func (b *Backend) WithDeployment(deployment string) *Backend {
	config := b.config
	config.AzureModelMapperFunc = func(string) string { return deployment }
	return b.apply(config)
}

func (b *Backend) apply(config goopenai.ClientConfig) *Backend {
	b.config = config
	b.client = goopenai.NewClientWithConfig(config)
	return b
}

func (b *Backend) isAzure() bool {
	return b.config.APIType == goopenai.APITypeAzure || b.config.APIType == goopenai.APITypeAzureAD
}

func (b *Backend) providerName() string {
	if b.isAzure() {
		return "azure"
	}
	return "openai"
}

// Complete implements ai.Backend. The request is forwarded unchanged and the
// native response is returned as-is.
func (b *Backend) Complete(ctx context.Context, request goopenai.ChatCompletionRequest) (goopenai.ChatCompletionResponse, error) {
	response, err := b.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return goopenai.ChatCompletionResponse{}, b.wrapError(err)
	}
	return response, nil
}

// wrapError converts client failures into the shared taxonomy. API errors
// keep their HTTP status code and provider message; everything else is
// wrapped as a transport-level provider error.
func (b *Backend) wrapError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return &ai.ProviderError{
			Provider:   b.providerName(),
			StatusCode: apiErr.HTTPStatusCode,
			Message:    apiErr.Message,
			Err:        err,
		}
	}
	var requestErr *goopenai.RequestError
	if errors.As(err, &requestErr) {
		return &ai.ProviderError{
			Provider:   b.providerName(),
			StatusCode: requestErr.HTTPStatusCode,
			Message:    requestErr.Error(),
			Err:        err,
		}
	}
	return &ai.ProviderError{
		Provider: b.providerName(),
		Message:  err.Error(),
		Err:      err,
	}
}
