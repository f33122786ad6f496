// Command composite-chat sends one prompt to a configured backend and
// prints the response, either complete or streamed. The backend, model and
// credentials come from a YAML configuration file; credentials left out of
// the file are read from the environment, with .env files loaded
// automatically.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	_ "github.com/joho/godotenv/autoload"

	openai "github.com/sashabaranov/go-openai"

	compositellm "github.com/SiLeader/composite-llm"
	"github.com/SiLeader/composite-llm/internal/config"
	"github.com/SiLeader/composite-llm/internal/utils"
	"github.com/SiLeader/composite-llm/providers/ai"
	"github.com/SiLeader/composite-llm/providers/ai/bedrock"
)

func main() {
	configPath := flag.String("config", "composite-llm.yaml", "path to the configuration file")
	prompt := flag.String("prompt", "", "prompt to send; read from stdin when empty")
	model := flag.String("model", "", "override the configured model")
	stream := flag.Bool("stream", false, "print the response as it is produced")
	flag.Parse()

	if err := run(context.Background(), *configPath, *prompt, *model, *stream); err != nil {
		slog.Error("composite-chat failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, prompt, modelOverride string, stream bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	model := cfg.Model
	if modelOverride != "" {
		model = modelOverride
	}

	if prompt == "" {
		input, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading prompt from stdin: %w", err)
		}
		prompt = strings.TrimSpace(string(input))
	}
	if prompt == "" {
		return errors.New("no prompt given")
	}

	client, err := buildClient(ctx, cfg, model)
	if err != nil {
		return err
	}

	request := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	timer := utils.NewTimer()
	if stream {
		err = streamCompletion(ctx, client, request)
	} else {
		err = printCompletion(ctx, client, request)
	}
	if err != nil {
		return err
	}

	timer.Stop()
	slog.Info("completion finished", "backend", cfg.Backend, "model", model, "duration", timer.GetDuration())
	return nil
}

// buildClient constructs the client for the configured backend kind.
func buildClient(ctx context.Context, cfg *config.Config, model string) (*compositellm.CompositeClient, error) {
	switch cfg.Backend {
	case config.BackendOpenAI:
		clientConfig := openai.DefaultConfig(cfg.OpenAI.APIKey)
		if cfg.OpenAI.BaseURL != "" {
			clientConfig.BaseURL = cfg.OpenAI.BaseURL
		}
		return compositellm.NewOpenAIWithConfig(clientConfig), nil

	case config.BackendAzure:
		return compositellm.NewAzure(cfg.Azure.APIKey, cfg.Azure.Endpoint), nil

	case config.BackendBedrock:
		runtime := bedrock.NewHTTPRuntime(cfg.Bedrock.Region, cfg.Bedrock.BearerToken)
		return compositellm.NewBedrock(runtime, model), nil

	case config.BackendVertex:
		return compositellm.NewVertex(ctx, cfg.Vertex.Project, cfg.Vertex.Location, model)

	default:
		return nil, &ai.UnsupportedError{Feature: "backend kind " + strconv.Quote(cfg.Backend)}
	}
}

func printCompletion(ctx context.Context, client *compositellm.CompositeClient, request openai.ChatCompletionRequest) error {
	response, err := client.ChatCompletion(ctx, request)
	if err != nil {
		return err
	}
	slog.Debug("response received", "payload", utils.TruncateStringDefault(utils.JSONToString(response)))
	if len(response.Choices) == 0 {
		return errors.New("response carried no choices")
	}

	fmt.Println(response.Choices[0].Message.Content)
	slog.Info("usage",
		"prompt_tokens", response.Usage.PromptTokens,
		"completion_tokens", response.Usage.CompletionTokens,
		"total_tokens", response.Usage.TotalTokens)
	return nil
}

func streamCompletion(ctx context.Context, client *compositellm.CompositeClient, request openai.ChatCompletionRequest) error {
	stream, err := client.ChatCompletionStream(ctx, request)
	if err != nil {
		return err
	}

	for chunk, chunkErr := range stream.Iter() {
		if chunkErr != nil {
			return chunkErr
		}
		if len(chunk.Choices) > 0 {
			fmt.Print(chunk.Choices[0].Delta.Content)
		}
	}
	fmt.Println()
	return nil
}
