package models

import "fmt"

// Document is the extracted text of one PDF page.
type Document struct {
	Content    string
	Source     string
	PageNumber int
}

// Chunk represents a parsed chunk with metadata
type Chunk struct {
	Content    string
	Source     string
	PageNumber int
	ChunkID    int
	StartIndex int
}

// Key identifies the chunk within one indexed document.
func (c Chunk) Key() string {
	return fmt.Sprintf("p%d-c%d", c.PageNumber, c.ChunkID)
}

type ChunkEmbedding struct {
	Chunk
	Embedding []float32
}

// QAPair is one transcript entry.
type QAPair struct {
	Query  string `json:"query"`
	Answer string `json:"answer"`
}
