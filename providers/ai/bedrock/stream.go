package bedrock

import (
	"context"
	"errors"
	"io"

	openai "github.com/sashabaranov/go-openai"

	"github.com/SiLeader/composite-llm/internal/utils"
	"github.com/SiLeader/composite-llm/providers/ai"
)

// streamQueueSize bounds how many converted chunks may pile up between the
// event receiver and the consumer before the producer blocks.
const streamQueueSize = 32

type streamItem struct {
	chunk openai.ChatCompletionStreamResponse
	err   error
}

// Stream implements ai.Backend. Events received from the runtime are
// converted to chunks on a producer goroutine and handed to the iterator
// through a bounded queue. When the consumer stops early the done channel is
// closed and the receiver is closed with it, so the producer never stays
// blocked on a full queue or on a pending Recv.
func (b *Backend) Stream(ctx context.Context, request openai.ChatCompletionRequest) (*ai.ChatStream, error) {
	converseReq := requestToConverse(request)

	receiver, err := b.runtime.ConverseStream(ctx, b.modelID, &converseReq)
	if err != nil {
		return nil, wrapRuntimeError(err)
	}

	streamID := ai.NewCompletionID()
	model := request.Model

	items := make(chan streamItem, streamQueueSize)
	done := make(chan struct{})

	go func() {
		defer close(items)
		for {
			event, recvErr := receiver.Recv()
			if errors.Is(recvErr, io.EOF) {
				return
			}
			if recvErr != nil {
				select {
				case items <- streamItem{err: wrapRuntimeError(recvErr)}:
				case <-done:
				}
				return
			}

			chunk := streamEventToChunk(event, streamID, model)
			if chunk == nil {
				continue
			}
			select {
			case items <- streamItem{chunk: *chunk}:
			case <-done:
				return
			}
		}
	}()

	iterator := func(yield func(openai.ChatCompletionStreamResponse, error) bool) {
		defer close(done)
		defer utils.CloseWithLog(receiver)

		for next := range items {
			if next.err != nil {
				yield(openai.ChatCompletionStreamResponse{}, next.err)
				return
			}
			if !yield(next.chunk, nil) {
				return
			}
		}
	}

	return ai.NewChatStream(iterator), nil
}
