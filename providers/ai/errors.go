package ai

import "fmt"

// ProviderError reports a failure surfaced by a provider API call. For
// non-2xx HTTP responses StatusCode carries the numeric status and Message
// carries the raw response body text, so callers never lose the provider's
// own diagnostics. Err, when set, is the underlying transport or client
// error and is reachable via errors.Unwrap.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s error: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// SerializationError reports a JSON encode or decode failure while building
// a provider request or interpreting a provider response.
type SerializationError struct {
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialization error: %v", e.Err)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

// UnsupportedError reports that a requested feature is not supported by the
// selected backend. The converters themselves stay lenient (unknown message
// kinds and content parts are dropped rather than rejected); this error is
// for surfaces where silently ignoring the request would mislead the caller,
// such as an unknown backend kind in configuration.
type UnsupportedError struct {
	Feature string
}

func (e *UnsupportedError) Error() string {
	return "unsupported: " + e.Feature
}
