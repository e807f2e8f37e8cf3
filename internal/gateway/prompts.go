package gateway

import "fmt"

func translatePrompt(text, targetLanguage string) string {
	return fmt.Sprintf("You are a professional medical translator. Translate the following message into %s. "+
		"Maintain clinical accuracy. Return ONLY the translated text.\n\n"+
		"Message: %s", targetLanguage, text)
}

func transcribePrompt(targetLanguage string) string {
	return fmt.Sprintf("1. Transcribe the audio accurately. "+
		"2. Translate the transcription into %s. "+
		"Return: 'Original: <transcript> | Translated: <translation>'", targetLanguage)
}

func summaryPrompt(historyText string) string {
	return `
You are a specialized medical scribe. Analyze the following conversation.
Generate a concise, professional medical summary.

Structure:
- **Patient Concerns & Symptoms**
- **Clinical Observations**
- **Diagnosis/Impression**
- **Prescribed Medications & Treatments**
- **Follow-up Plan**

Conversation History:
` + historyText + "\n"
}
