package vertex

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	openai "github.com/sashabaranov/go-openai"

	"github.com/SiLeader/composite-llm/internal/utils"
	"github.com/SiLeader/composite-llm/providers/ai"
)

const (
	// cloudPlatformScope is the OAuth2 scope the Vertex AI API requires.
	cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

	defaultLocation = "us-central1"
)

// TokenProvider supplies OAuth2 access tokens for outbound requests.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticTokenProvider returns a fixed token, useful for tests and for
// short-lived tokens minted elsewhere.
type StaticTokenProvider string

// Token implements TokenProvider.
func (p StaticTokenProvider) Token(context.Context) (string, error) {
	return string(p), nil
}

// googleTokenProvider adapts an oauth2 token source, typically built from
// application default credentials. The source caches and refreshes tokens
// internally.
type googleTokenProvider struct {
	source oauth2.TokenSource
}

func (p *googleTokenProvider) Token(context.Context) (string, error) {
	token, err := p.source.Token()
	if err != nil {
		return "", fmt.Errorf("fetching access token: %w", err)
	}
	return token.AccessToken, nil
}

// Backend implements ai.Backend on the Vertex AI generative API. Every
// request targets a single publisher model, fixed at construction; the
// request's own model field is echoed back in converted responses.
type Backend struct {
	tokenProvider TokenProvider
	client        *http.Client
	projectID     string
	location      string
	modelID       string
	baseURL       string
}

// New creates a Backend authenticated through application default
// credentials (gcloud auth application-default login, workload identity, or
// a service account key via GOOGLE_APPLICATION_CREDENTIALS).
func New(ctx context.Context, projectID, location, modelID string) (*Backend, error) {
	source, err := google.DefaultTokenSource(ctx, cloudPlatformScope)
	if err != nil {
		return nil, fmt.Errorf("loading application default credentials: %w", err)
	}
	return NewWithTokenProvider(projectID, location, modelID, &googleTokenProvider{source: source}), nil
}

// NewFromEnv creates a Backend from GOOGLE_CLOUD_PROJECT and
// GOOGLE_CLOUD_LOCATION (defaulting to us-central1), authenticated through
// application default credentials.
func NewFromEnv(ctx context.Context, modelID string) (*Backend, error) {
	return New(ctx, os.Getenv("GOOGLE_CLOUD_PROJECT"), os.Getenv("GOOGLE_CLOUD_LOCATION"), modelID)
}

// NewWithTokenProvider creates a Backend with a custom token provider.
// An empty location falls back to us-central1.
func NewWithTokenProvider(projectID, location, modelID string, provider TokenProvider) *Backend {
	if location == "" {
		location = defaultLocation
	}
	return &Backend{
		tokenProvider: provider,
		client:        &http.Client{},
		projectID:     projectID,
		location:      location,
		modelID:       modelID,
	}
}

// WithBaseURL overrides the endpoint URL, replacing the regional default.
func (b *Backend) WithBaseURL(baseURL string) *Backend {
	b.baseURL = baseURL
	return b
}

// WithHTTPClient sets the HTTP client used for outbound requests.
func (b *Backend) WithHTTPClient(client *http.Client) *Backend {
	b.client = client
	return b
}

// WithTokenProvider sets the token provider.
func (b *Backend) WithTokenProvider(provider TokenProvider) *Backend {
	b.tokenProvider = provider
	return b
}

// endpoint returns the model resource URL without the method suffix.
func (b *Backend) endpoint() string {
	base := b.baseURL
	if base == "" {
		base = fmt.Sprintf("https://%s-aiplatform.googleapis.com", b.location)
	}
	return fmt.Sprintf("%s/v1/projects/%s/locations/%s/publishers/google/models/%s",
		base, b.projectID, b.location, b.modelID)
}

// Complete implements ai.Backend.
func (b *Backend) Complete(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	token, err := b.tokenProvider.Token(ctx)
	if err != nil {
		return openai.ChatCompletionResponse{}, wrapError(err)
	}

	vertexReq := requestToVertex(request)

	_, response, err := utils.DoPostSync[generateContentResponse](ctx, b.client, b.endpoint()+":generateContent", token, vertexReq)
	if err != nil {
		return openai.ChatCompletionResponse{}, wrapError(err)
	}

	return vertexToResponse(response, request.Model), nil
}

// wrapError lifts transport and credential failures into the shared
// taxonomy, preserving the HTTP status code and raw response body when
// present. Errors already belonging to the taxonomy pass through unchanged.
func wrapError(err error) error {
	var providerErr *ai.ProviderError
	if errors.As(err, &providerErr) {
		return err
	}

	var statusErr *utils.StatusError
	if errors.As(err, &statusErr) {
		return &ai.ProviderError{
			Provider:   "vertex",
			StatusCode: statusErr.Code,
			Message:    fmt.Sprintf("HTTP %d: %s", statusErr.Code, statusErr.Body),
			Err:        err,
		}
	}

	return &ai.ProviderError{Provider: "vertex", Message: err.Error(), Err: err}
}
