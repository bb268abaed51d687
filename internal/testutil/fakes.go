package testutil

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"
	"unicode"

	"github.com/tmc/langchaingo/llms"
)

const embeddingDims = 64

// Embedder is a bag-of-words hashing embedder. Texts sharing words get
// similar vectors, and the same text always gets the same vector.
type Embedder struct {
	mu    sync.Mutex
	Err   error
	calls int
}

func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		v, err := e.EmbedQuery(ctx, text)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (e *Embedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.Err != nil {
		return nil, e.Err
	}
	return Vector(text), nil
}

// Calls reports how many texts have been embedded.
func (e *Embedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// Vector is the embedding Embedder returns for text.
func Vector(text string) []float32 {
	v := make([]float32, embeddingDims)
	// keeps empty or stopword-only texts away from the zero vector
	v[embeddingDims-1] = 0.01
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		v[h.Sum32()%(embeddingDims-1)]++
	}
	return v
}

// ErrUnreachable mimics a model service that is not running.
var ErrUnreachable = errors.New("dial tcp 127.0.0.1:11434: connect: connection refused")

// LLM is an llms.Model whose reply is computed from the prompt. The reply is
// streamed word by word through the streaming func when one is set.
type LLM struct {
	mu      sync.Mutex
	Reply   func(prompt string) string
	Err     error
	prompts []string
}

func (l *LLM) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	var prompt strings.Builder
	for _, m := range messages {
		for _, part := range m.Parts {
			if text, ok := part.(llms.TextContent); ok {
				prompt.WriteString(text.Text)
			}
		}
	}

	l.mu.Lock()
	l.prompts = append(l.prompts, prompt.String())
	l.mu.Unlock()

	if l.Err != nil {
		return nil, l.Err
	}

	reply := "I don't know."
	if l.Reply != nil {
		reply = l.Reply(prompt.String())
	}

	opts := llms.CallOptions{}
	for _, opt := range options {
		opt(&opts)
	}
	if opts.StreamingFunc != nil {
		for _, word := range strings.SplitAfter(reply, " ") {
			if word == "" {
				continue
			}
			if err := opts.StreamingFunc(ctx, []byte(word)); err != nil {
				return nil, err
			}
		}
	}

	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: reply}}}, nil
}

func (l *LLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, l, prompt, options...)
}

// Prompts returns every prompt the model has received.
func (l *LLM) Prompts() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.prompts...)
}

// ContextOf extracts the context block from a rendered QA prompt.
func ContextOf(prompt string) string {
	const (
		head = "as concise as possible.\n"
		tail = "\nQuestion:"
	)
	start := strings.Index(prompt, head)
	end := strings.LastIndex(prompt, tail)
	if start < 0 || end < start+len(head) {
		return ""
	}
	return prompt[start+len(head) : end]
}
