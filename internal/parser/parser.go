package parser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"

	"pdf-qa/internal/models"
)

// Loader produces the ordered page documents of one file.
type Loader interface {
	Load(filePath string) ([]models.Document, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(filePath string) ([]models.Document, error)

func (f LoaderFunc) Load(filePath string) ([]models.Document, error) { return f(filePath) }

// PDFLoader loads PDFs with LoadPDF.
var PDFLoader Loader = LoaderFunc(LoadPDF)

// LoadPDF returns one document per page, in page order. Every failure is a
// *models.LoadError.
func LoadPDF(filePath string) (docs []models.Document, err error) {
	if ext := strings.ToLower(filepath.Ext(filePath)); ext != ".pdf" {
		return nil, &models.LoadError{Path: filePath, Err: fmt.Errorf("unsupported file format: %s", ext)}
	}

	// the pdf package panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			docs = nil
			err = &models.LoadError{Path: filePath, Err: fmt.Errorf("malformed pdf: %v", r)}
		}
	}()

	f, err := os.Open(filePath)
	if err != nil {
		return nil, &models.LoadError{Path: filePath, Err: err}
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, &models.LoadError{Path: filePath, Err: err}
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return nil, &models.LoadError{Path: filePath, Err: err}
	}

	numPages := reader.NumPage()
	if numPages == 0 {
		return nil, &models.LoadError{Path: filePath, Err: errors.New("document has no pages")}
	}

	docs = make([]models.Document, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		var pageText string
		if !page.V.IsNull() {
			pageText, err = page.GetPlainText(nil)
			if err != nil {
				return nil, &models.LoadError{Path: filePath, Err: fmt.Errorf("page %d: %w", i, err)}
			}
		}
		docs = append(docs, models.Document{
			Content:    pageText,
			Source:     filePath,
			PageNumber: i,
		})
	}

	log.Debug().Str("file", filePath).Int("pages", len(docs)).Msg("Loaded PDF")
	return docs, nil
}
