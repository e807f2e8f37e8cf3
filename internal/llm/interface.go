package llm

import (
	"context"

	"github.com/sashabaranov/go-openai"
)

// Client is the subset of openai.Client used by the OpenAI provider; it is easy to mock in tests.
type Client interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	CreateTranscription(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error)
	ListModels(ctx context.Context) (openai.ModelsList, error)
}

// Request is one round trip to the remote model. When AudioPath is set the
// referenced recording is sent along with the prompt.
type Request struct {
	Model     string
	Prompt    string
	AudioPath string
	// Language is an optional ISO 639-1 hint for the spoken language.
	Language string
}

// Provider is the remote text generation service used by the gateway.
type Provider interface {
	Generate(ctx context.Context, req Request) (string, error)
	ListModels(ctx context.Context) ([]string, error)
}
