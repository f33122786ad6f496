// Package openai implements the ai.Backend interface for the OpenAI
// chat-completions API and for Azure OpenAI deployments, built on
// github.com/sashabaranov/go-openai.
//
// No conversion happens here: the unified schema is the OpenAI schema, so
// requests and responses pass through unchanged and streaming chunks are
// re-yielded exactly as received. Azure requests differ only in transport
// details (api-key header, deployment-scoped URLs, api-version query
// parameter), all handled by the client configuration.
package openai
