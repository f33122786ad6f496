package bedrock

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/SiLeader/composite-llm/internal/utils"
)

// Runtime abstracts the Bedrock runtime transport. The default
// implementation is [HTTPRuntime]; deployments that require SigV4 request
// signing or private endpoints supply their own, for example one backed by
// the AWS SDK.
type Runtime interface {
	// Converse performs a synchronous model invocation.
	Converse(ctx context.Context, modelID string, request *ConverseRequest) (*ConverseResponse, error)

	// ConverseStream starts a streaming invocation. The returned receiver
	// yields one event per Recv call until io.EOF.
	ConverseStream(ctx context.Context, modelID string, request *ConverseRequest) (EventReceiver, error)
}

// EventReceiver delivers ConverseStream events one at a time.
type EventReceiver interface {
	// Recv blocks until the next event arrives, the stream ends (io.EOF),
	// or the transport fails.
	Recv() (StreamEvent, error)

	// Close releases the underlying connection. It is safe to call Close
	// while another goroutine is blocked in Recv; that Recv returns with an
	// error.
	Close() error
}

// eventStreamAccept is the content type of ConverseStream response bodies.
const eventStreamAccept = "application/vnd.amazon.eventstream"

// HTTPRuntime talks to the Bedrock runtime REST API using bearer-token
// authentication (Bedrock API keys, AWS_BEARER_TOKEN_BEDROCK).
type HTTPRuntime struct {
	region  string
	token   string
	baseURL string
	client  *http.Client
}

// NewHTTPRuntime creates a runtime for the given region and bearer token.
// An empty region falls back to us-east-1.
func NewHTTPRuntime(region, token string) *HTTPRuntime {
	if region == "" {
		region = defaultRegion
	}
	return &HTTPRuntime{
		region: region,
		token:  token,
		client: &http.Client{},
	}
}

// WithBaseURL overrides the endpoint URL, replacing the regional default.
func (r *HTTPRuntime) WithBaseURL(baseURL string) *HTTPRuntime {
	r.baseURL = baseURL
	return r
}

// WithHTTPClient sets the HTTP client used for outbound requests.
func (r *HTTPRuntime) WithHTTPClient(client *http.Client) *HTTPRuntime {
	r.client = client
	return r
}

func (r *HTTPRuntime) endpoint(modelID, action string) string {
	base := r.baseURL
	if base == "" {
		base = fmt.Sprintf("https://bedrock-runtime.%s.amazonaws.com", r.region)
	}
	return fmt.Sprintf("%s/model/%s/%s", base, url.PathEscape(modelID), action)
}

// Converse implements Runtime.
func (r *HTTPRuntime) Converse(ctx context.Context, modelID string, request *ConverseRequest) (*ConverseResponse, error) {
	_, response, err := utils.DoPostSync[ConverseResponse](ctx, r.client, r.endpoint(modelID, "converse"), r.token, request)
	if err != nil {
		return nil, err
	}
	return response, nil
}

// ConverseStream implements Runtime. The response body carries binary
// event-stream frames; the returned receiver decodes them into typed
// events.
func (r *HTTPRuntime) ConverseStream(ctx context.Context, modelID string, request *ConverseRequest) (EventReceiver, error) {
	response, err := utils.DoPostStream(ctx, r.client, r.endpoint(modelID, "converse-stream"), r.token, request,
		utils.HeaderOption{Key: "Accept", Value: eventStreamAccept})
	if err != nil {
		return nil, err
	}
	return newHTTPEventReceiver(response.Body), nil
}
