package rag

import (
	"github.com/tmc/langchaingo/prompts"

	"pdf-qa/internal/models"
)

// Prompt is the question-answering template with context and question slots.
type Prompt struct {
	template prompts.PromptTemplate
}

func NewPrompt() Prompt {
	return Prompt{template: prompts.PromptTemplate{
		Template:       models.QAPromptTemplate,
		InputVariables: []string{"context", "question"},
		TemplateFormat: prompts.TemplateFormatFString,
	}}
}

func (p Prompt) Render(context, question string) (string, error) {
	return p.template.Format(map[string]any{
		"context":  context,
		"question": question,
	})
}
