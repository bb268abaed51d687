package parser

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-qa/internal/models"
	"pdf-qa/internal/testutil"
)

func TestLoadPDF(t *testing.T) {
	path := testutil.WritePDF(t, "two-pages.pdf",
		"Bananas are rich in potassium.",
		"The sky on Mars is butterscotch.",
	)

	docs, err := LoadPDF(path)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, 1, docs[0].PageNumber)
	assert.Equal(t, 2, docs[1].PageNumber)
	assert.Equal(t, path, docs[0].Source)
	assert.Contains(t, docs[0].Content, "Bananas are rich in potassium.")
	assert.Contains(t, docs[1].Content, "The sky on Mars is butterscotch.")
}

func TestLoadPDF_EscapedCharacters(t *testing.T) {
	path := testutil.WritePDF(t, "escaped.pdf", `Costs (net) are 5\6 of revenue.`)

	docs, err := LoadPDF(path)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Contains(t, docs[0].Content, `Costs (net) are 5\6 of revenue.`)
}

func TestLoadPDF_Deterministic(t *testing.T) {
	path := testutil.WritePDF(t, "same.pdf", "first page", "second page")

	first, err := LoadPDF(path)
	require.NoError(t, err)
	second, err := LoadPDF(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestLoadPDF_Errors(t *testing.T) {
	dir := t.TempDir()

	notPDF := filepath.Join(dir, "notes.pdf")
	require.NoError(t, os.WriteFile(notPDF, []byte("just some text, not a pdf"), 0o644))

	truncated := filepath.Join(dir, "truncated.pdf")
	full := testutil.PDF("page")
	require.NoError(t, os.WriteFile(truncated, full[:len(full)/2], 0o644))

	tests := []struct {
		name    string
		path    string
		isCause error
	}{
		{name: "missing file", path: filepath.Join(dir, "missing.pdf"), isCause: fs.ErrNotExist},
		{name: "not a pdf", path: notPDF},
		{name: "truncated pdf", path: truncated},
		{name: "wrong extension", path: filepath.Join(dir, "report.docx")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, err := LoadPDF(tt.path)
			assert.Nil(t, docs)

			var loadErr *models.LoadError
			require.True(t, errors.As(err, &loadErr), "got %v", err)
			assert.Equal(t, tt.path, loadErr.Path)
			if tt.isCause != nil {
				assert.ErrorIs(t, err, tt.isCause)
			}
		})
	}
}

func TestPDFLoader(t *testing.T) {
	path := testutil.WritePDF(t, "loader.pdf", "via the interface")

	docs, err := PDFLoader.Load(path)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.True(t, strings.Contains(docs[0].Content, "via the interface"))
}
