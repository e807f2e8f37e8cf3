package gateway

import "strings"

const (
	originalMarker   = "Original:"
	translatedMarker = "| Translated:"

	// AudioPlaceholder stands in for the transcript when the response has no markers.
	AudioPlaceholder = "[Audio Message]"
)

// Transcription is the outcome of transcribe-and-translate.
type Transcription struct {
	Original   string `json:"original"`
	Translated string `json:"translated"`
	// Raw is the trimmed model response before marker parsing.
	Raw string `json:"raw"`
}

// ParseTranscription splits "Original: <transcript> | Translated: <translation>".
// Both markers must appear. The split happens at the first "| Translated:" and
// the whole remainder is the translation. Without both markers the full
// response is the translation and the original is AudioPlaceholder.
func ParseTranscription(raw string) Transcription {
	raw = strings.TrimSpace(raw)
	out := Transcription{Original: AudioPlaceholder, Translated: raw, Raw: raw}
	if !strings.Contains(raw, originalMarker) || !strings.Contains(raw, translatedMarker) {
		return out
	}
	before, after, _ := strings.Cut(raw, translatedMarker)
	out.Original = strings.TrimSpace(strings.ReplaceAll(before, originalMarker, ""))
	out.Translated = strings.TrimSpace(after)
	return out
}
