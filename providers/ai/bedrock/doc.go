// Package bedrock implements the [ai.Backend] interface for Amazon Bedrock's
// model-agnostic Converse API.
//
// It handles request conversion from the OpenAI chat completion format to
// Bedrock's Converse wire format, response mapping back (with fresh
// "chatcmpl-" identifiers, since Bedrock responses carry none), and streaming
// via the binary vnd.amazon.eventstream framing used by the ConverseStream
// endpoint.
//
// Transport is abstracted behind the [Runtime] interface. The built-in
// [HTTPRuntime] speaks plain HTTPS with bearer-token authentication
// (AWS_BEARER_TOKEN_BEDROCK); callers that need SigV4 request signing or an
// AWS SDK client can supply their own Runtime to [New]. [NewFromEnv] wires
// the HTTP runtime from AWS_REGION and AWS_BEARER_TOKEN_BEDROCK.
package bedrock
