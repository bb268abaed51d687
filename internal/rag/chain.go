package rag

import (
	"context"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"

	"pdf-qa/internal/llmservice"
	"pdf-qa/internal/models"
)

// Chain answers questions about one indexed document: retrieve, stuff the
// chunks into the prompt, generate.
type Chain struct {
	index  *Index
	prompt Prompt
	llm    llms.Model
	model  string
}

func NewChain(index *Index, prompt Prompt, llm llms.Model, model string) *Chain {
	return &Chain{index: index, prompt: prompt, llm: llm, model: model}
}

// Answer streams the reply to sink while it is generated and returns it in
// full. Failures are *models.GenerationError.
func (c *Chain) Answer(ctx context.Context, query string, sink io.Writer) (string, error) {
	chunks, err := c.index.Retrieve(ctx, query, 0)
	if err != nil {
		return "", &models.GenerationError{Model: c.model, Err: err}
	}

	texts := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		texts = append(texts, chunk.Content)
	}
	prompt, err := c.prompt.Render(strings.Join(texts, models.ContextSeparator), query)
	if err != nil {
		return "", &models.GenerationError{Model: c.model, Err: err}
	}

	log.Debug().Int("chunks", len(chunks)).Str("model", c.model).Msg("Generating answer")
	answer, err := llmservice.GenerateContent(ctx, c.llm, prompt, sink)
	if err != nil {
		return "", &models.GenerationError{Model: c.model, Err: err}
	}
	return answer, nil
}

func (c *Chain) Close() error {
	return c.index.Close()
}
