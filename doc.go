// Package compositellm provides a single chat-completion client over
// multiple LLM providers: OpenAI, Azure OpenAI, Amazon Bedrock and Vertex
// AI. Callers write against the go-openai request and response types once;
// the chosen backend translates to and from its own wire protocol.
//
// The primary entry point is [New], which wraps any [ai.Backend], and the
// per-provider constructors [NewOpenAI], [NewAzure], [NewBedrockFromEnv] and
// [NewVertex], which build the backend from environment variables or
// ambient credentials. Synchronous calls go through
// [CompositeClient.ChatCompletion]; streaming goes through
// [CompositeClient.ChatCompletionStream], which yields native
// chat-completion chunks whatever the provider's own stream format.
package compositellm
