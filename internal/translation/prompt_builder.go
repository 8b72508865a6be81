package translation

import (
	"fmt"
	"strings"
)

// PromptBuilder constructs the prompts sent to the Gemini backend.
type PromptBuilder struct {
	from, to string
}

// NewPromptBuilder creates a builder for translations from language from to language to.
func NewPromptBuilder(from, to string) *PromptBuilder {
	return &PromptBuilder{from: from, to: to}
}

const systemPromptTemplate = `You are a professional software localizer translating the text of UI mockups (buttons, labels, menus, notes).

Rules:
1. Translate from %s to %s.
2. Preserve ALL placeholders like {{var_1}}, {{var_2}}, etc. Copy them exactly as-is into your translation.
3. Keep translations short enough to fit the same widget; use the usual UI wording of the target language.
4. Keep line breaks where the original has them.
5. Output ONLY the translations, nothing else. Do NOT add explanations or notes.`

// SystemPrompt returns the system instruction.
func (pb *PromptBuilder) SystemPrompt() string {
	from := pb.from
	if from == "" || from == "auto" {
		from = "the detected source language"
	}
	return fmt.Sprintf(systemPromptTemplate, from, pb.to)
}

// BatchUserPrompt numbers texts and asks for answers separated by the batch delimiter.
func (pb *PromptBuilder) BatchUserPrompt(texts []string) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Translate each text below. Return ONLY the %d translations, separated by %s, in the same order.\n\n", len(texts), batchDelimiter))
	for i, t := range texts {
		sb.WriteString(fmt.Sprintf("[%d] %s\n", i+1, t))
	}

	return sb.String()
}
