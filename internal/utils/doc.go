// Package utils provides shared low-level helpers used throughout the
// composite-llm internals. It covers HTTP request helpers for both
// synchronous and streaming communication with provider APIs, generic
// pointer and string utilities, and a simple elapsed-time timer.
//
// Key entry points: [DoPostSync] for synchronous JSON round-trips,
// [DoPostStream] for responses consumed incrementally (SSE or binary event
// streams), [Ptr] for converting values to pointers, and [Timer] for
// measuring latency.
package utils
