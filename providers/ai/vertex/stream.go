package vertex

import (
	"context"
	"errors"
	"io"

	openai "github.com/sashabaranov/go-openai"

	"github.com/SiLeader/composite-llm/internal/utils"
	"github.com/SiLeader/composite-llm/providers/ai"
)

// readChunkSize is the transport read size for streaming responses.
const readChunkSize = 4096

// sseStream pulls byte chunks from the response body, runs them through the
// framer, and queues the converted chunks. All state that survives across
// polls lives here: the framer's buffer, the pending queue and the done
// flag.
type sseStream struct {
	body    io.ReadCloser
	framer  sseFramer
	buf     []byte
	id      string
	model   string
	pending []openai.ChatCompletionStreamResponse
	done    bool
}

func newSSEStream(body io.ReadCloser, streamID, model string) *sseStream {
	return &sseStream{
		body:  body,
		buf:   make([]byte, readChunkSize),
		id:    streamID,
		model: model,
	}
}

// next returns the next converted chunk. It drains the pending queue first,
// then reads more bytes from the transport. Returns io.EOF once the stream
// has ended and the queue is empty; a transport failure is returned exactly
// once, after which the stream reports io.EOF.
func (s *sseStream) next() (openai.ChatCompletionStreamResponse, error) {
	for {
		if len(s.pending) > 0 {
			chunk := s.pending[0]
			s.pending = s.pending[1:]
			return chunk, nil
		}
		if s.done {
			return openai.ChatCompletionStreamResponse{}, io.EOF
		}

		n, err := s.body.Read(s.buf)
		if n > 0 {
			s.enqueue(s.framer.feed(s.buf[:n]))
		}
		if errors.Is(err, io.EOF) {
			s.done = true
			s.enqueue(s.framer.drain())
			continue
		}
		if err != nil {
			s.done = true
			return openai.ChatCompletionStreamResponse{}, wrapError(err)
		}
	}
}

func (s *sseStream) enqueue(responses []generateContentResponse) {
	for _, response := range responses {
		if chunk := responseToChunk(response, s.id, s.model); chunk != nil {
			s.pending = append(s.pending, *chunk)
		}
	}
}

// Stream implements ai.Backend. It uses the streamGenerateContent endpoint
// with alt=sse and reframes the SSE byte stream into chat-completion chunks.
func (b *Backend) Stream(ctx context.Context, request openai.ChatCompletionRequest) (*ai.ChatStream, error) {
	token, err := b.tokenProvider.Token(ctx)
	if err != nil {
		return nil, wrapError(err)
	}

	vertexReq := requestToVertex(request)

	response, err := utils.DoPostStream(ctx, b.client, b.endpoint()+":streamGenerateContent?alt=sse", token, vertexReq)
	if err != nil {
		return nil, wrapError(err)
	}

	stream := newSSEStream(response.Body, ai.NewCompletionID(), request.Model)

	iterator := func(yield func(openai.ChatCompletionStreamResponse, error) bool) {
		defer utils.CloseWithLog(response.Body)

		for {
			if ctx.Err() != nil {
				yield(openai.ChatCompletionStreamResponse{}, ctx.Err())
				return
			}

			chunk, nextErr := stream.next()
			if errors.Is(nextErr, io.EOF) {
				return
			}
			if nextErr != nil {
				yield(openai.ChatCompletionStreamResponse{}, nextErr)
				return
			}
			if !yield(chunk, nil) {
				return
			}
		}
	}

	return ai.NewChatStream(iterator), nil
}
