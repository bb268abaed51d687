package models

import "fmt"

// LoadError is returned when a PDF cannot be read or parsed.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// IndexError is returned when embedding or inserting chunks fails. ChunkID is
// empty when the failure is not tied to a single chunk.
type IndexError struct {
	ChunkID string
	Err     error
}

func (e *IndexError) Error() string {
	if e.ChunkID == "" {
		return fmt.Sprintf("failed to build index: %v", e.Err)
	}
	return fmt.Sprintf("failed to index chunk %s: %v", e.ChunkID, e.Err)
}

func (e *IndexError) Unwrap() error { return e.Err }

// GenerationError is returned when answering a query fails, either while
// retrieving context or while the model generates.
type GenerationError struct {
	Model string
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation with %s failed: %v", e.Model, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// ValidationError represents a rejected user action.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field %s: %s", e.Field, e.Message)
}
