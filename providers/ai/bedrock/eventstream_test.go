package bedrock

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"hash/crc32"
	"io"
	"strings"
	"testing"

	"github.com/SiLeader/composite-llm/providers/ai"
)

// encodeRawFrame assembles a frame around pre-encoded header bytes,
// computing both CRCs the way the wire format defines them.
func encodeRawFrame(headerBytes, payload []byte) []byte {
	totalLength := framePreludeSize + len(headerBytes) + len(payload) + 4

	var buf bytes.Buffer
	var u32 [4]byte
	binary.BigEndian.PutUint32(u32[:], uint32(totalLength))
	buf.Write(u32[:])
	binary.BigEndian.PutUint32(u32[:], uint32(len(headerBytes)))
	buf.Write(u32[:])
	binary.BigEndian.PutUint32(u32[:], crc32.ChecksumIEEE(buf.Bytes()))
	buf.Write(u32[:])
	buf.Write(headerBytes)
	buf.Write(payload)
	binary.BigEndian.PutUint32(u32[:], crc32.ChecksumIEEE(buf.Bytes()))
	buf.Write(u32[:])
	return buf.Bytes()
}

func encodeStringHeader(buf *bytes.Buffer, name, value string) {
	buf.WriteByte(byte(len(name)))
	buf.WriteString(name)
	buf.WriteByte(headerTypeString)
	var u16 [2]byte
	binary.BigEndian.PutUint16(u16[:], uint16(len(value)))
	buf.Write(u16[:])
	buf.WriteString(value)
}

// encodeFrame builds a complete frame with string headers.
func encodeFrame(headers [][2]string, payload []byte) []byte {
	var headerBuf bytes.Buffer
	for _, header := range headers {
		encodeStringHeader(&headerBuf, header[0], header[1])
	}
	return encodeRawFrame(headerBuf.Bytes(), payload)
}

// eventFrame builds an event frame the way Bedrock emits them.
func eventFrame(t *testing.T, eventType string, payload any) []byte {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return encodeFrame([][2]string{
		{":message-type", "event"},
		{":event-type", eventType},
		{":content-type", "application/json"},
	}, body)
}

// ---- frame decoder tests ----

// TestFrameDecoder_SingleFrame verifies headers, payload and the clean EOF
// after the last frame.
func TestFrameDecoder_SingleFrame(t *testing.T) {
	data := encodeFrame([][2]string{
		{":message-type", "event"},
		{":event-type", "messageStart"},
	}, []byte(`{"role":"assistant"}`))

	decoder := frameDecoder{reader: bytes.NewReader(data)}

	f, err := decoder.next()
	if err != nil {
		t.Fatalf("next returned error: %v", err)
	}
	if f.headers[":message-type"] != "event" || f.headers[":event-type"] != "messageStart" {
		t.Errorf("headers: got %v", f.headers)
	}
	if string(f.payload) != `{"role":"assistant"}` {
		t.Errorf("payload: got %s", f.payload)
	}

	if _, err := decoder.next(); !errors.Is(err, io.EOF) {
		t.Errorf("after last frame: got %v, want io.EOF", err)
	}
}

// TestFrameDecoder_MultipleFrames verifies that concatenated frames decode
// in order.
func TestFrameDecoder_MultipleFrames(t *testing.T) {
	var data []byte
	for _, payload := range []string{`{"a":1}`, `{"b":2}`, `{"c":3}`} {
		data = append(data, encodeFrame([][2]string{{":message-type", "event"}}, []byte(payload))...)
	}

	decoder := frameDecoder{reader: bytes.NewReader(data)}

	for _, want := range []string{`{"a":1}`, `{"b":2}`, `{"c":3}`} {
		f, err := decoder.next()
		if err != nil {
			t.Fatalf("next returned error: %v", err)
		}
		if string(f.payload) != want {
			t.Errorf("payload: got %s, want %s", f.payload, want)
		}
	}
	if _, err := decoder.next(); !errors.Is(err, io.EOF) {
		t.Errorf("after last frame: got %v, want io.EOF", err)
	}
}

// TestFrameDecoder_PreludeCRCMismatch verifies that a corrupted prelude CRC
// is rejected before the frame body is trusted.
func TestFrameDecoder_PreludeCRCMismatch(t *testing.T) {
	data := encodeFrame([][2]string{{":message-type", "event"}}, []byte(`{}`))
	data[8] ^= 0xFF

	decoder := frameDecoder{reader: bytes.NewReader(data)}

	_, err := decoder.next()
	if err == nil || !strings.Contains(err.Error(), "prelude CRC") {
		t.Errorf("got %v, want prelude CRC mismatch", err)
	}
}

// TestFrameDecoder_MessageCRCMismatch verifies that payload corruption is
// caught by the trailing CRC.
func TestFrameDecoder_MessageCRCMismatch(t *testing.T) {
	data := encodeFrame([][2]string{{":message-type", "event"}}, []byte(`{"x":1}`))
	data[len(data)-5] ^= 0xFF

	decoder := frameDecoder{reader: bytes.NewReader(data)}

	_, err := decoder.next()
	if err == nil || !strings.Contains(err.Error(), "message CRC") {
		t.Errorf("got %v, want message CRC mismatch", err)
	}
}

// TestFrameDecoder_Truncated verifies that a stream cut mid-frame reports
// truncation rather than a clean EOF.
func TestFrameDecoder_Truncated(t *testing.T) {
	data := encodeFrame([][2]string{{":message-type", "event"}}, []byte(`{"x":1}`))

	decoder := frameDecoder{reader: bytes.NewReader(data[:len(data)-6])}

	_, err := decoder.next()
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("got %v, want io.ErrUnexpectedEOF", err)
	}
	if !strings.Contains(err.Error(), "truncated") {
		t.Errorf("got %v, want truncation error", err)
	}
}

// TestFrameDecoder_NonStringHeaders verifies that non-string header values
// are skipped over correctly so the frame still parses.
func TestFrameDecoder_NonStringHeaders(t *testing.T) {
	var headerBuf bytes.Buffer

	headerBuf.WriteByte(4)
	headerBuf.WriteString("flag")
	headerBuf.WriteByte(headerTypeBoolTrue)

	headerBuf.WriteByte(5)
	headerBuf.WriteString("count")
	headerBuf.WriteByte(headerTypeInt32)
	headerBuf.Write([]byte{0, 0, 0, 42})

	encodeStringHeader(&headerBuf, ":message-type", "event")

	data := encodeRawFrame(headerBuf.Bytes(), []byte(`{}`))
	decoder := frameDecoder{reader: bytes.NewReader(data)}

	f, err := decoder.next()
	if err != nil {
		t.Fatalf("next returned error: %v", err)
	}
	if f.headers[":message-type"] != "event" {
		t.Errorf("string header lost: %v", f.headers)
	}
	if _, ok := f.headers["flag"]; ok {
		t.Error("bool header should not be retained")
	}
	if _, ok := f.headers["count"]; ok {
		t.Error("int32 header should not be retained")
	}
}

// ---- event receiver tests ----

// TestHTTPEventReceiver_DecodesEvents verifies the frame-to-event mapping
// for a realistic event sequence.
func TestHTTPEventReceiver_DecodesEvents(t *testing.T) {
	var body bytes.Buffer
	body.Write(eventFrame(t, "messageStart", MessageStartEvent{Role: "assistant"}))
	body.Write(eventFrame(t, "contentBlockDelta", ContentBlockDeltaEvent{Delta: BlockDelta{Text: "Hello"}}))
	body.Write(eventFrame(t, "messageStop", MessageStopEvent{StopReason: "end_turn"}))
	body.Write(eventFrame(t, "metadata", MetadataEvent{Usage: &Usage{InputTokens: 5, OutputTokens: 2}}))

	receiver := newHTTPEventReceiver(io.NopCloser(&body))

	event, err := receiver.Recv()
	if err != nil || event.MessageStart == nil || event.MessageStart.Role != "assistant" {
		t.Fatalf("messageStart: event %+v, err %v", event, err)
	}

	event, err = receiver.Recv()
	if err != nil || event.ContentBlockDelta == nil || event.ContentBlockDelta.Delta.Text != "Hello" {
		t.Fatalf("contentBlockDelta: event %+v, err %v", event, err)
	}

	event, err = receiver.Recv()
	if err != nil || event.MessageStop == nil || event.MessageStop.StopReason != "end_turn" {
		t.Fatalf("messageStop: event %+v, err %v", event, err)
	}

	event, err = receiver.Recv()
	if err != nil || event.Metadata == nil || event.Metadata.Usage.InputTokens != 5 {
		t.Fatalf("metadata: event %+v, err %v", event, err)
	}

	if _, err := receiver.Recv(); !errors.Is(err, io.EOF) {
		t.Errorf("after last event: got %v, want io.EOF", err)
	}
}

// TestHTTPEventReceiver_Exception verifies that an exception frame surfaces
// as an error naming the exception type.
func TestHTTPEventReceiver_Exception(t *testing.T) {
	data := encodeFrame([][2]string{
		{":message-type", "exception"},
		{":exception-type", "throttlingException"},
	}, []byte(`{"message":"Too many requests"}`))

	receiver := newHTTPEventReceiver(io.NopCloser(bytes.NewReader(data)))

	_, err := receiver.Recv()
	if err == nil {
		t.Fatal("expected an error for the exception frame")
	}
	if !strings.Contains(err.Error(), "throttlingException") || !strings.Contains(err.Error(), "Too many requests") {
		t.Errorf("error should name the exception type and payload, got %v", err)
	}
}

// TestHTTPEventReceiver_UnknownEventType verifies forward compatibility:
// unrecognized event types decode to an empty event instead of failing.
func TestHTTPEventReceiver_UnknownEventType(t *testing.T) {
	data := encodeFrame([][2]string{
		{":message-type", "event"},
		{":event-type", "somethingNew"},
	}, []byte(`{"field":"value"}`))

	receiver := newHTTPEventReceiver(io.NopCloser(bytes.NewReader(data)))

	event, err := receiver.Recv()
	if err != nil {
		t.Fatalf("Recv returned error: %v", err)
	}
	if event != (StreamEvent{}) {
		t.Errorf("expected an empty event, got %+v", event)
	}
}

// TestHTTPEventReceiver_MalformedPayload verifies that a payload that does
// not match its event type surfaces as a SerializationError.
func TestHTTPEventReceiver_MalformedPayload(t *testing.T) {
	data := encodeFrame([][2]string{
		{":message-type", "event"},
		{":event-type", "contentBlockDelta"},
	}, []byte(`{"delta":`))

	receiver := newHTTPEventReceiver(io.NopCloser(bytes.NewReader(data)))

	_, err := receiver.Recv()
	var serializationErr *ai.SerializationError
	if !errors.As(err, &serializationErr) {
		t.Errorf("expected *ai.SerializationError, got %T: %v", err, err)
	}
}
