package helper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateUUID(t *testing.T) {
	a, err := GenerateUUID()
	require.NoError(t, err)
	b, err := GenerateUUID()
	require.NoError(t, err)

	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}

func TestUniqueName(t *testing.T) {
	name, err := UniqueName("pdf_chunks")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(name, "pdf_chunks_"))
	assert.NotContains(t, name, "-")
	assert.Len(t, name, len("pdf_chunks_")+32)
}

func TestSuppressOutput_RestoresStreams(t *testing.T) {
	stdout, stderr := os.Stdout, os.Stderr

	err := SuppressOutput(context.Background(), func(ctx context.Context) error {
		assert.NotSame(t, stdout, os.Stdout)
		assert.NotSame(t, stderr, os.Stderr)
		fmt.Println("this goes nowhere")
		return nil
	})
	require.NoError(t, err)

	assert.Same(t, stdout, os.Stdout)
	assert.Same(t, stderr, os.Stderr)
}

func TestSuppressOutput_PropagatesError(t *testing.T) {
	stdout := os.Stdout
	want := errors.New("embedding failed")

	err := SuppressOutput(context.Background(), func(ctx context.Context) error {
		return want
	})

	assert.ErrorIs(t, err, want)
	assert.Same(t, stdout, os.Stdout)
}

func TestSuppressOutput_RestoresOnPanic(t *testing.T) {
	stdout, stderr := os.Stdout, os.Stderr

	assert.Panics(t, func() {
		_ = SuppressOutput(context.Background(), func(ctx context.Context) error {
			panic("index exploded")
		})
	})

	assert.Same(t, stdout, os.Stdout)
	assert.Same(t, stderr, os.Stderr)
}

func TestSuppressOutput_DisablesContextLogger(t *testing.T) {
	var buf bytes.Buffer
	ctx := zerolog.New(&buf).WithContext(context.Background())

	err := SuppressOutput(ctx, func(ctx context.Context) error {
		zerolog.Ctx(ctx).Info().Msg("progress")
		return nil
	})
	require.NoError(t, err)
	assert.Empty(t, buf.String())

	zerolog.Ctx(ctx).Info().Msg("visible")
	assert.Contains(t, buf.String(), "visible")
}
