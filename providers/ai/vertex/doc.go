// Package vertex implements the [ai.Backend] interface for Google's Vertex
// AI generative API.
//
// It handles request conversion from the OpenAI chat completion format to
// the generateContent wire format, response mapping back (with fresh
// "chatcmpl-" completion IDs and "call_" tool-call IDs, since the protocol
// carries neither), and SSE-based streaming via the streamGenerateContent
// endpoint with alt=sse. The SSE framer tolerates arbitrary fragmentation of
// the byte stream: transport chunk boundaries never imply event boundaries.
//
// The primary entry point is [New], which authenticates through application
// default credentials; [NewFromEnv] additionally reads GOOGLE_CLOUD_PROJECT
// and GOOGLE_CLOUD_LOCATION. Use [NewWithTokenProvider] with a
// [StaticTokenProvider] or a custom [TokenProvider] to control
// authentication directly.
package vertex
