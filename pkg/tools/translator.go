package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/comigor/meditranslate-go/internal/gateway"
	"github.com/comigor/meditranslate-go/internal/history"
	"github.com/comigor/meditranslate-go/internal/lang"
)

// DefaultSessionID is used when a tool call names no session.
const DefaultSessionID = "mcp"

// Conversation is the subset of the session orchestrator the tools drive.
type Conversation interface {
	SendText(ctx context.Context, sessionID string, role history.Role, text, target string) (history.Message, error)
	History(ctx context.Context, query string) ([]history.Message, error)
	Summarize(ctx context.Context, sessionID string) (string, error)
}

// Register adds every conversation tool to m.
func Register(m *ToolManager, conv Conversation) {
	m.RegisterTool(&TranslateMessage{conv: conv})
	m.RegisterTool(&SearchHistory{conv: conv})
	m.RegisterTool(&SummarizeConversation{conv: conv})
	m.RegisterTool(&ListLanguages{})
}

func decode(args json.RawMessage, v any) error {
	if len(args) == 0 {
		return nil
	}
	if err := sonic.Unmarshal(args, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

func sessionOr(id string) string {
	if strings.TrimSpace(id) == "" {
		return DefaultSessionID
	}
	return id
}

// gatewayFailure turns a remote model failure into its display message so the
// caller sees the same text a chat user would.
func gatewayFailure(err error) error {
	var gerr *gateway.Error
	if errors.As(err, &gerr) {
		return errors.New(gateway.UserMessage(err))
	}
	return err
}

// TranslateMessage translates and records one turn.
type TranslateMessage struct{ conv Conversation }

func (t *TranslateMessage) Name() string { return "translate_message" }

func (t *TranslateMessage) Description() string {
	return "Translate a doctor or patient utterance and add it to the conversation history."
}

func (t *TranslateMessage) Params() []Param {
	return []Param{
		{Name: "role", Description: "Speaker: Doctor or Patient", Required: true},
		{Name: "text", Description: "What the speaker said", Required: true},
		{Name: "target_language", Description: "Language to translate into; defaults per role"},
		{Name: "session_id", Description: "Conversation session"},
	}
}

func (t *TranslateMessage) Run(ctx context.Context, args json.RawMessage) (string, error) {
	var in struct {
		Role           string `json:"role"`
		Text           string `json:"text"`
		TargetLanguage string `json:"target_language"`
		SessionID      string `json:"session_id"`
	}
	if err := decode(args, &in); err != nil {
		return "", err
	}
	role, err := history.ParseRole(in.Role)
	if err != nil {
		return "", err
	}
	m, err := t.conv.SendText(ctx, sessionOr(in.SessionID), role, in.Text, in.TargetLanguage)
	if err != nil {
		return "", gatewayFailure(err)
	}
	return m.TranslatedText, nil
}

// SearchHistory finds messages containing a keyword.
type SearchHistory struct{ conv Conversation }

func (t *SearchHistory) Name() string { return "search_history" }

func (t *SearchHistory) Description() string {
	return "Search the conversation history for a keyword in either the original or the translated text. Returns JSON."
}

func (t *SearchHistory) Params() []Param {
	return []Param{{Name: "query", Description: "Keyword; empty returns the whole history"}}
}

func (t *SearchHistory) Run(ctx context.Context, args json.RawMessage) (string, error) {
	var in struct {
		Query string `json:"query"`
	}
	if err := decode(args, &in); err != nil {
		return "", err
	}
	messages, err := t.conv.History(ctx, in.Query)
	if err != nil {
		return "", err
	}
	if messages == nil {
		messages = []history.Message{}
	}
	out, err := sonic.MarshalString(messages)
	if err != nil {
		return "", err
	}
	return out, nil
}

// SummarizeConversation produces the clinical summary.
type SummarizeConversation struct{ conv Conversation }

func (t *SummarizeConversation) Name() string { return "summarize_conversation" }

func (t *SummarizeConversation) Description() string {
	return "Summarize the conversation under clinical headings: concerns, observations, impression, medications, follow-up."
}

func (t *SummarizeConversation) Params() []Param {
	return []Param{{Name: "session_id", Description: "Conversation session"}}
}

func (t *SummarizeConversation) Run(ctx context.Context, args json.RawMessage) (string, error) {
	var in struct {
		SessionID string `json:"session_id"`
	}
	if err := decode(args, &in); err != nil {
		return "", err
	}
	out, err := t.conv.Summarize(ctx, sessionOr(in.SessionID))
	if err != nil {
		return "", gatewayFailure(err)
	}
	return out, nil
}

// ListLanguages reports the target languages a role may pick.
type ListLanguages struct{}

func (t *ListLanguages) Name() string { return "list_languages" }

func (t *ListLanguages) Description() string {
	return "List the languages a Doctor or Patient can translate into, and the default."
}

func (t *ListLanguages) Params() []Param {
	return []Param{{Name: "role", Description: "Doctor or Patient", Required: true}}
}

func (t *ListLanguages) Run(_ context.Context, args json.RawMessage) (string, error) {
	var in struct {
		Role string `json:"role"`
	}
	if err := decode(args, &in); err != nil {
		return "", err
	}
	role, err := history.ParseRole(in.Role)
	if err != nil {
		return "", err
	}
	out := struct {
		Targets []lang.Language `json:"targets"`
		Default lang.Language   `json:"default"`
	}{Targets: lang.Targets(role), Default: lang.Default(role)}
	return sonic.MarshalString(out)
}
