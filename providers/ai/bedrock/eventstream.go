package bedrock

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/SiLeader/composite-llm/providers/ai"
)

/*
	AWS EVENT-STREAM FRAMING

	ConverseStream responses are delivered as application/vnd.amazon.eventstream:
	binary frames, each laid out as

		total length   uint32 (big endian)
		headers length uint32 (big endian)
		prelude CRC    uint32 (CRC32-IEEE of the first 8 bytes)
		headers        (headers length bytes of typed name/value pairs)
		payload        (JSON)
		message CRC    uint32 (CRC32-IEEE of everything before it)

	The headers of interest are all strings: ":message-type" ("event" or
	"exception"), ":event-type" and ":exception-type".
*/

const (
	framePreludeSize = 12
	// maxFrameSize caps a single frame to keep a corrupt length field from
	// triggering a huge allocation.
	maxFrameSize = 16 * 1024 * 1024
)

// Header value types defined by the event-stream encoding.
const (
	headerTypeBoolTrue  = 0
	headerTypeBoolFalse = 1
	headerTypeByte      = 2
	headerTypeInt16     = 3
	headerTypeInt32     = 4
	headerTypeInt64     = 5
	headerTypeByteArray = 6
	headerTypeString    = 7
	headerTypeTimestamp = 8
	headerTypeUUID      = 9
)

var errMalformedHeaders = errors.New("event stream headers malformed")

// frame is one decoded event-stream message.
type frame struct {
	headers map[string]string
	payload []byte
}

// frameDecoder reads event-stream frames from a byte stream, validating both
// CRCs of every frame.
type frameDecoder struct {
	reader io.Reader
}

// next reads and validates one frame. Returns io.EOF when the stream ends
// cleanly at a frame boundary.
func (d *frameDecoder) next() (*frame, error) {
	var prelude [framePreludeSize]byte
	if _, err := io.ReadFull(d.reader, prelude[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("event stream truncated: %w", err)
	}

	totalLength := binary.BigEndian.Uint32(prelude[0:4])
	headersLength := binary.BigEndian.Uint32(prelude[4:8])
	preludeCRC := binary.BigEndian.Uint32(prelude[8:12])

	if crc32.ChecksumIEEE(prelude[0:8]) != preludeCRC {
		return nil, errors.New("event stream prelude CRC mismatch")
	}
	if totalLength < framePreludeSize+4 || totalLength > maxFrameSize {
		return nil, fmt.Errorf("event stream frame length %d out of range", totalLength)
	}
	if headersLength > totalLength-framePreludeSize-4 {
		return nil, fmt.Errorf("event stream header length %d exceeds frame", headersLength)
	}

	rest := make([]byte, totalLength-framePreludeSize)
	if _, err := io.ReadFull(d.reader, rest); err != nil {
		return nil, fmt.Errorf("event stream truncated: %w", err)
	}

	messageCRC := binary.BigEndian.Uint32(rest[len(rest)-4:])
	crc := crc32.NewIEEE()
	crc.Write(prelude[:])
	crc.Write(rest[:len(rest)-4])
	if crc.Sum32() != messageCRC {
		return nil, errors.New("event stream message CRC mismatch")
	}

	headers, err := parseHeaders(rest[:headersLength])
	if err != nil {
		return nil, err
	}

	return &frame{headers: headers, payload: rest[headersLength : len(rest)-4]}, nil
}

// parseHeaders decodes the header block into a name-to-value map. Only
// string values are retained (every header of interest is a string); other
// types are skipped over for framing correctness.
func parseHeaders(data []byte) (map[string]string, error) {
	headers := make(map[string]string)
	offset := 0

	for offset < len(data) {
		nameLength := int(data[offset])
		offset++
		if offset+nameLength+1 > len(data) {
			return nil, errMalformedHeaders
		}
		name := string(data[offset : offset+nameLength])
		offset += nameLength

		valueType := data[offset]
		offset++

		switch valueType {
		case headerTypeBoolTrue, headerTypeBoolFalse:
			// No value payload.
		case headerTypeByte:
			offset++
		case headerTypeInt16:
			offset += 2
		case headerTypeInt32:
			offset += 4
		case headerTypeInt64, headerTypeTimestamp:
			offset += 8
		case headerTypeUUID:
			offset += 16
		case headerTypeByteArray, headerTypeString:
			if offset+2 > len(data) {
				return nil, errMalformedHeaders
			}
			valueLength := int(binary.BigEndian.Uint16(data[offset : offset+2]))
			offset += 2
			if offset+valueLength > len(data) {
				return nil, errMalformedHeaders
			}
			if valueType == headerTypeString {
				headers[name] = string(data[offset : offset+valueLength])
			}
			offset += valueLength
		default:
			return nil, fmt.Errorf("event stream header type %d unknown", valueType)
		}

		if offset > len(data) {
			return nil, errMalformedHeaders
		}
	}

	return headers, nil
}

// httpEventReceiver adapts an HTTP response body's event-stream frames into
// typed ConverseStream events.
type httpEventReceiver struct {
	body    io.ReadCloser
	decoder frameDecoder
}

func newHTTPEventReceiver(body io.ReadCloser) *httpEventReceiver {
	return &httpEventReceiver{
		body:    body,
		decoder: frameDecoder{reader: body},
	}
}

// Recv implements EventReceiver. Exception frames surface as errors carrying
// the exception type and payload; io.EOF reports normal end of stream.
func (r *httpEventReceiver) Recv() (StreamEvent, error) {
	f, err := r.decoder.next()
	if err != nil {
		return StreamEvent{}, err
	}

	switch messageType := f.headers[":message-type"]; messageType {
	case "event":
		return decodeStreamEvent(f.headers[":event-type"], f.payload)
	case "exception":
		exceptionType := f.headers[":exception-type"]
		if exceptionType == "" {
			exceptionType = "unknown"
		}
		return StreamEvent{}, fmt.Errorf("stream exception %s: %s", exceptionType, f.payload)
	default:
		return StreamEvent{}, fmt.Errorf("stream message type %q: %s", messageType, f.payload)
	}
}

// Close implements EventReceiver.
func (r *httpEventReceiver) Close() error {
	return r.body.Close()
}

// decodeStreamEvent unmarshals a frame payload according to its event type.
// Unknown event types decode to an empty event, which the streaming bridge
// skips.
func decodeStreamEvent(eventType string, payload []byte) (StreamEvent, error) {
	var event StreamEvent
	var err error

	switch eventType {
	case "messageStart":
		event.MessageStart = &MessageStartEvent{}
		err = json.Unmarshal(payload, event.MessageStart)
	case "contentBlockStart":
		event.ContentBlockStart = &ContentBlockStartEvent{}
		err = json.Unmarshal(payload, event.ContentBlockStart)
	case "contentBlockDelta":
		event.ContentBlockDelta = &ContentBlockDeltaEvent{}
		err = json.Unmarshal(payload, event.ContentBlockDelta)
	case "contentBlockStop":
		event.ContentBlockStop = &ContentBlockStopEvent{}
		err = json.Unmarshal(payload, event.ContentBlockStop)
	case "messageStop":
		event.MessageStop = &MessageStopEvent{}
		err = json.Unmarshal(payload, event.MessageStop)
	case "metadata":
		event.Metadata = &MetadataEvent{}
		err = json.Unmarshal(payload, event.Metadata)
	}

	if err != nil {
		return StreamEvent{}, &ai.SerializationError{Err: err}
	}
	return event, nil
}
