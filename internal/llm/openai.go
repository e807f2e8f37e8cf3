package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/comigor/meditranslate-go/internal/logger"
)

// OpenAI talks to any OpenAI-compatible endpoint. Recordings are transcribed
// first and the transcript is handed to the chat model with the prompt.
type OpenAI struct {
	client             Client
	transcriptionModel string
}

// NewOpenAI wraps client. An empty transcriptionModel selects whisper-1.
func NewOpenAI(client Client, transcriptionModel string) *OpenAI {
	if transcriptionModel == "" {
		transcriptionModel = openai.Whisper1
	}
	return &OpenAI{client: client, transcriptionModel: transcriptionModel}
}

// Generate implements Provider.
func (o *OpenAI) Generate(ctx context.Context, req Request) (string, error) {
	prompt := req.Prompt
	if req.AudioPath != "" {
		tr, err := o.client.CreateTranscription(ctx, openai.AudioRequest{
			Model:    o.transcriptionModel,
			FilePath: req.AudioPath,
			Language: req.Language,
		})
		if err != nil {
			return "", err
		}
		logger.FromContext(ctx).Debug("audio transcribed", "chars", len(tr.Text))
		prompt += "\n\nAudio transcript:\n" + tr.Text
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", errors.New("empty response from openai-compatible api")
	}
	return resp.Choices[0].Message.Content, nil
}

// ListModels implements Provider.
func (o *OpenAI) ListModels(ctx context.Context) ([]string, error) {
	list, err := o.client.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		out = append(out, m.ID)
	}
	return out, nil
}
