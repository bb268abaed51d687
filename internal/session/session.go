// Package session owns the state of the single user session: what has been
// uploaded, whether it has been indexed, and the questions asked so far.
package session

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"pdf-qa/internal/models"
	"pdf-qa/internal/rag"
)

type Phase int

const (
	Idle Phase = iota
	Processing
	Ready
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Processing:
		return "processing"
	case Ready:
		return "ready"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Chain answers questions about the processed document.
type Chain interface {
	Answer(ctx context.Context, query string, sink io.Writer) (string, error)
	Close() error
}

// Builder turns the uploaded file into a Chain.
type Builder interface {
	Build(ctx context.Context, path string) (Chain, error)
}

type BuilderFunc func(ctx context.Context, path string) (Chain, error)

func (f BuilderFunc) Build(ctx context.Context, path string) (Chain, error) { return f(ctx, path) }

// FromPipeline adapts a rag pipeline to Builder.
func FromPipeline(p *rag.Pipeline) Builder {
	return BuilderFunc(func(ctx context.Context, path string) (Chain, error) {
		chain, err := p.Build(ctx, path)
		if err != nil {
			// a nil *rag.Chain must not become a non-nil Chain
			return nil, err
		}
		return chain, nil
	})
}

// State is everything the session knows. Only the Controller mutates it.
type State struct {
	Phase      Phase
	Chain      Chain
	Transcript []models.QAPair
	FileName   string
	Uploaded   bool
}

// Snapshot is a copy of the renderable part of State.
type Snapshot struct {
	Phase      Phase           `json:"phase"`
	Transcript []models.QAPair `json:"transcript"`
	FileName   string          `json:"file_name,omitempty"`
	Uploaded   bool            `json:"uploaded"`
}

// Controller runs one action at a time against the session state. Snapshot
// can be taken while an action is running.
type Controller struct {
	builder    Builder
	uploadPath string
	sink       io.Writer

	actionMu sync.Mutex
	stateMu  sync.RWMutex
	state    State
}

// New creates an idle session. Uploads are stored at uploadPath and answers
// are streamed to sink when it is not nil.
func New(builder Builder, uploadPath string, sink io.Writer) *Controller {
	return &Controller{
		builder:    builder,
		uploadPath: uploadPath,
		sink:       sink,
		state:      State{Phase: Idle, Transcript: []models.QAPair{}},
	}
}

// Upload stores r as the current PDF, replacing any previous upload. The
// phase and the current chain are not affected until Process is called.
func (c *Controller) Upload(ctx context.Context, filename string, r io.Reader) error {
	c.actionMu.Lock()
	defer c.actionMu.Unlock()

	name := filepath.Base(filename)
	if filename == "" || !strings.EqualFold(filepath.Ext(name), ".pdf") {
		return &models.ValidationError{Field: "file", Message: "only PDF files are accepted"}
	}

	if err := writeAtomic(c.uploadPath, r); err != nil {
		return fmt.Errorf("failed to store upload: %w", err)
	}

	c.stateMu.Lock()
	c.state.FileName = name
	c.state.Uploaded = true
	c.stateMu.Unlock()

	log.Info().Str("file", name).Str("path", c.uploadPath).Msg("File uploaded")
	return nil
}

// Process builds a new chain from the uploaded file. On success the session
// is Ready with an empty transcript and the previous chain is closed. On
// failure the previous phase, chain and transcript are kept.
func (c *Controller) Process(ctx context.Context) error {
	c.actionMu.Lock()
	defer c.actionMu.Unlock()

	c.stateMu.Lock()
	if !c.state.Uploaded {
		c.stateMu.Unlock()
		return &models.ValidationError{Field: "file", Message: "upload a PDF before processing"}
	}
	previous := c.state.Phase
	c.state.Phase = Processing
	c.stateMu.Unlock()

	log.Info().Str("path", c.uploadPath).Msg("Processing PDF")
	chain, err := c.builder.Build(ctx, c.uploadPath)
	if err != nil {
		c.stateMu.Lock()
		c.state.Phase = previous
		c.stateMu.Unlock()
		log.Error().Err(err).Msg("Error processing PDF")
		return err
	}

	c.stateMu.Lock()
	old := c.state.Chain
	c.state.Chain = chain
	c.state.Transcript = []models.QAPair{}
	c.state.Phase = Ready
	c.stateMu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			log.Warn().Err(err).Msg("Error closing previous chain")
		}
	}
	log.Info().Msg("PDF processed and vector store created")
	return nil
}

// Ask answers query with the current chain and records the pair. A blank
// query, or asking before processing, is a *models.ValidationError and never
// reaches the model.
func (c *Controller) Ask(ctx context.Context, query string) (string, error) {
	c.actionMu.Lock()
	defer c.actionMu.Unlock()

	if strings.TrimSpace(query) == "" {
		return "", &models.ValidationError{Field: "query", Message: "query must not be empty"}
	}

	c.stateMu.RLock()
	chain := c.state.Chain
	c.stateMu.RUnlock()
	if chain == nil {
		return "", &models.ValidationError{Field: "query", Message: "process a PDF before asking questions"}
	}

	answer, err := chain.Answer(ctx, query, c.sink)
	if err != nil {
		log.Error().Err(err).Msg("Error answering query")
		return "", err
	}

	c.stateMu.Lock()
	c.state.Transcript = append(c.state.Transcript, models.QAPair{Query: query, Answer: answer})
	c.stateMu.Unlock()
	return answer, nil
}

func (c *Controller) Snapshot() Snapshot {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return Snapshot{
		Phase:      c.state.Phase,
		Transcript: append([]models.QAPair{}, c.state.Transcript...),
		FileName:   c.state.FileName,
		Uploaded:   c.state.Uploaded,
	}
}

// Close releases the current chain.
func (c *Controller) Close() error {
	c.actionMu.Lock()
	defer c.actionMu.Unlock()

	c.stateMu.Lock()
	chain := c.state.Chain
	c.state = State{Phase: Idle, Transcript: []models.QAPair{}}
	c.stateMu.Unlock()

	if chain == nil {
		return nil
	}
	return chain.Close()
}

func writeAtomic(path string, r io.Reader) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".upload-*.pdf")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
