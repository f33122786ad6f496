package openai

import (
	"context"
	"errors"
	"io"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/SiLeader/composite-llm/internal/utils"
	"github.com/SiLeader/composite-llm/providers/ai"
)

// Stream implements ai.Backend. The native stream is pumped with Recv and
// each chunk is re-yielded unchanged; chunk IDs, choices and usage come
// straight from the provider. The underlying connection is closed when the
// iterator completes or the consumer breaks out of the loop.
func (b *Backend) Stream(ctx context.Context, request goopenai.ChatCompletionRequest) (*ai.ChatStream, error) {
	nativeStream, err := b.client.CreateChatCompletionStream(ctx, request)
	if err != nil {
		return nil, b.wrapError(err)
	}

	iterator := func(yield func(goopenai.ChatCompletionStreamResponse, error) bool) {
		defer utils.CloseWithLog(nativeStream)

		for {
			if ctx.Err() != nil {
				yield(goopenai.ChatCompletionStreamResponse{}, ctx.Err())
				return
			}

			chunk, recvErr := nativeStream.Recv()
			if errors.Is(recvErr, io.EOF) {
				return
			}
			if recvErr != nil {
				yield(goopenai.ChatCompletionStreamResponse{}, b.wrapError(recvErr))
				return
			}

			if !yield(chunk, nil) {
				return
			}
		}
	}

	return ai.NewChatStream(iterator), nil
}
