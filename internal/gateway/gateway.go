// Package gateway is the translation layer: each operation is one blocking
// round trip to the remote model. Nothing is retried or cached.
package gateway

import (
	"context"
	"strings"

	"github.com/comigor/meditranslate-go/internal/llm"
	"github.com/comigor/meditranslate-go/internal/logger"
)

// NothingToSummarize is returned by Summarize for blank history without a remote call.
const NothingToSummarize = "No conversation history to summarize."

// Gateway wraps a Provider with the translation, transcription and summary prompts.
type Gateway struct {
	provider     llm.Provider
	model        string
	summaryModel string
}

// New returns a gateway using model for translation and transcription, and
// summaryModel (falling back to model) for summaries.
func New(provider llm.Provider, model, summaryModel string) *Gateway {
	if summaryModel == "" {
		summaryModel = model
	}
	return &Gateway{provider: provider, model: model, summaryModel: summaryModel}
}

// Translate renders text into targetLanguage. Blank text is still sent.
func (g *Gateway) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	out, err := g.provider.Generate(ctx, llm.Request{
		Model:  g.model,
		Prompt: translatePrompt(text, targetLanguage),
	})
	if err != nil {
		logger.FromContext(ctx).Error("translate failed", "target", targetLanguage, "error", err)
		return "", classify("translate", err)
	}
	return strings.TrimSpace(out), nil
}

// TranscribeAndTranslate sends the recording at audioPath and parses the
// marker delimited answer. spoken is an optional ISO 639-1 hint for the
// language of the recording.
func (g *Gateway) TranscribeAndTranslate(ctx context.Context, audioPath, targetLanguage, spoken string) (Transcription, error) {
	out, err := g.provider.Generate(ctx, llm.Request{
		Model:     g.model,
		Prompt:    transcribePrompt(targetLanguage),
		AudioPath: audioPath,
		Language:  spoken,
	})
	if err != nil {
		logger.FromContext(ctx).Error("transcribe failed", "audio", audioPath, "target", targetLanguage, "error", err)
		return Transcription{}, classify("transcribe", err)
	}
	return ParseTranscription(out), nil
}

// Summarize produces a structured clinical summary of historyText and returns
// the model's answer verbatim.
func (g *Gateway) Summarize(ctx context.Context, historyText string) (string, error) {
	if strings.TrimSpace(historyText) == "" {
		return NothingToSummarize, nil
	}
	out, err := g.provider.Generate(ctx, llm.Request{
		Model:  g.summaryModel,
		Prompt: summaryPrompt(historyText),
	})
	if err != nil {
		logger.FromContext(ctx).Error("summarize failed", "error", err)
		return "", classify("summarize", err)
	}
	return out, nil
}

// Models lists the models the configured provider can generate with.
func (g *Gateway) Models(ctx context.Context) ([]string, error) {
	models, err := g.provider.ListModels(ctx)
	if err != nil {
		return nil, classify("list models", err)
	}
	return models, nil
}
