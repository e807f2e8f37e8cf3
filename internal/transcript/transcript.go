// Package transcript turns the message log into text for the summarizer,
// Markdown for export, and styled output for terminals.
package transcript

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/comigor/meditranslate-go/internal/history"
)

const timeLayout = "2006-01-02 15:04:05"

// HistoryText is the conversation as "<role>: <original text>" lines.
func HistoryText(messages []history.Message) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		lines = append(lines, string(m.Role)+": "+m.OriginalText)
	}
	return strings.Join(lines, "\n")
}

// Markdown renders messages as a Markdown document. When query is not empty
// its occurrences are emphasised, ignoring case.
func Markdown(messages []history.Message, query string) string {
	var sb strings.Builder
	sb.WriteString("# Doctor-Patient Conversation\n\n")
	if len(messages) == 0 {
		sb.WriteString("_No messages yet._\n")
		return sb.String()
	}

	var match *regexp.Regexp
	if query != "" {
		match = regexp.MustCompile("(?i)" + regexp.QuoteMeta(query))
	}
	mark := func(s string) string {
		if match == nil {
			return s
		}
		return match.ReplaceAllStringFunc(s, func(hit string) string { return "**" + hit + "**" })
	}

	for _, m := range messages {
		sb.WriteString("### " + string(m.Role) + " · " + m.Timestamp.UTC().Format(timeLayout) + "\n\n")
		sb.WriteString(mark(m.OriginalText) + "\n\n")
		sb.WriteString("> For " + string(m.Role.Counterpart()) + ": " + mark(m.TranslatedText) + "\n\n")
		if m.HasAudio() {
			sb.WriteString("🎤 `" + filepath.Base(m.AudioPath) + "`\n\n")
		}
	}
	return sb.String()
}

// Render styles Markdown for a terminal of the given width.
func Render(markdown string, width int) (string, error) {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	return r.Render(markdown)
}
