package llmservice

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"

	"pdf-qa/internal/config"
	"pdf-qa/internal/models"
)

// NewOllamaLLM creates a client for models.InferenceModel on the Ollama
// instance at llmConfig.BaseURL.
func NewOllamaLLM(llmConfig *config.LLMConfig) (*ollama.LLM, error) {
	log.Debug().Interface("config", map[string]string{
		"base_url":        llmConfig.BaseURL,
		"inference_model": models.InferenceModel,
	}).Msg("Creating inference client")

	llm, err := ollama.New(
		ollama.WithServerURL(llmConfig.BaseURL),
		ollama.WithModel(models.InferenceModel),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize inference model: %w", err)
	}
	return llm, nil
}

// GenerateContent sends prompt as a single user message and returns the full
// reply. When sink is not nil every token is also written to it as soon as it
// arrives, followed by a newline once generation is done. The sink is a side
// channel: write failures are logged and never abort generation.
func GenerateContent(ctx context.Context, llm llms.Model, prompt string, sink io.Writer) (string, error) {
	log.Debug().Int("prompt_chars", len(prompt)).Bool("streaming", sink != nil).Msg("Generating content")

	var options []llms.CallOption
	if sink != nil {
		sinkFailed := false
		options = append(options, llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			if sinkFailed {
				return nil
			}
			if _, err := sink.Write(chunk); err != nil {
				sinkFailed = true
				log.Warn().Err(err).Msg("Error streaming answer, continuing without stream")
			}
			return nil
		}))
	}

	answer, err := llms.GenerateFromSinglePrompt(ctx, llm, prompt, options...)
	if err != nil {
		return "", err
	}

	if sink != nil {
		_, _ = io.WriteString(sink, "\n")
	}
	return answer, nil
}
