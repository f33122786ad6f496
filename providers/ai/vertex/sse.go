package vertex

import (
	"bytes"
	"encoding/json"
)

// eventBoundary separates SSE events.
var eventBoundary = []byte("\n\n")

// dataPrefix marks SSE payload lines.
var dataPrefix = []byte("data: ")

// sseFramer reassembles SSE events from arbitrarily fragmented byte chunks.
// A transport chunk boundary never implies an event boundary, so the framer
// accumulates bytes and only parses up to the last complete event delimiter;
// the tail is carried over to the next feed. The zero value is ready to use.
type sseFramer struct {
	buffer []byte
}

// feed appends a byte chunk and returns the responses of every event
// completed by it, in order. Bytes after the last event boundary stay
// buffered.
func (f *sseFramer) feed(chunk []byte) []generateContentResponse {
	f.buffer = append(f.buffer, chunk...)

	boundary := bytes.LastIndex(f.buffer, eventBoundary)
	if boundary < 0 {
		return nil
	}

	responses := parseEvents(f.buffer[:boundary])
	f.buffer = append([]byte(nil), f.buffer[boundary+len(eventBoundary):]...)
	return responses
}

// drain parses whatever is still buffered once the transport has signaled
// end of stream. A trailing event is parsed even without its final
// delimiter.
func (f *sseFramer) drain() []generateContentResponse {
	remaining := f.buffer
	f.buffer = nil
	return parseEvents(remaining)
}

// parseEvents scans complete event data line by line. Lines without the
// "data: " prefix and payloads that fail to parse are silently skipped.
func parseEvents(data []byte) []generateContentResponse {
	var responses []generateContentResponse
	for _, line := range bytes.Split(data, []byte("\n")) {
		payload, ok := bytes.CutPrefix(bytes.TrimSpace(line), dataPrefix)
		if !ok {
			continue
		}
		var response generateContentResponse
		if err := json.Unmarshal(payload, &response); err != nil {
			continue
		}
		responses = append(responses, response)
	}
	return responses
}
