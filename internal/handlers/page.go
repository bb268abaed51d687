package handlers

//go:generate mockgen -source=page.go -destination=mocks/mock_session.go -package=mocks

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"io"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/yuin/goldmark"

	"pdf-qa/internal/models"
	"pdf-qa/internal/session"
)

const (
	pageTitle = "PDF Question Answering System"

	noticeUploaded  = "File uploaded successfully!"
	noticeProcessed = "PDF processed and vector store created!"
)

//go:embed templates/index.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// Session is the part of the session controller the web UI drives.
type Session interface {
	Upload(ctx context.Context, filename string, r io.Reader) error
	Process(ctx context.Context) error
	Ask(ctx context.Context, query string) (string, error)
	Snapshot() session.Snapshot
}

// PageHandler serves the single page UI and its form actions.
type PageHandler struct {
	session        Session
	maxUploadBytes int64
	markdown       goldmark.Markdown
}

func NewPageHandler(s Session, maxUploadBytes int64) *PageHandler {
	return &PageHandler{
		session:        s,
		maxUploadBytes: maxUploadBytes,
		markdown:       goldmark.New(),
	}
}

type pageData struct {
	Title      string
	Notice     string
	Error      string
	FileName   string
	Uploaded   bool
	Processing bool
	Ready      bool
	Transcript []transcriptEntry
}

type transcriptEntry struct {
	Query  string
	Answer template.HTML
}

func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "", nil)
}

func (h *PageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.render(w, r, http.StatusRequestEntityTooLarge, "", errors.New("the file is too large"))
			return
		}
		h.render(w, r, http.StatusBadRequest, "", &models.ValidationError{Field: "file", Message: "choose a PDF file to upload"})
		return
	}
	defer file.Close()

	if err := h.session.Upload(r.Context(), header.Filename, file); err != nil {
		h.render(w, r, statusFor(err), "", err)
		return
	}
	h.render(w, r, http.StatusOK, noticeUploaded, nil)
}

func (h *PageHandler) Process(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Process(detach(r.Context())); err != nil {
		h.render(w, r, statusFor(err), "", err)
		return
	}
	h.render(w, r, http.StatusOK, noticeProcessed, nil)
}

func (h *PageHandler) Query(w http.ResponseWriter, r *http.Request) {
	if _, err := h.session.Ask(detach(r.Context()), r.FormValue("query")); err != nil {
		h.render(w, r, statusFor(err), "", err)
		return
	}
	h.render(w, r, http.StatusOK, "", nil)
}

func (h *PageHandler) render(w http.ResponseWriter, r *http.Request, status int, notice string, err error) {
	logger := zerolog.Ctx(r.Context())
	snap := h.session.Snapshot()

	data := pageData{
		Title:      pageTitle,
		Notice:     notice,
		FileName:   snap.FileName,
		Uploaded:   snap.Uploaded,
		Processing: snap.Phase == session.Processing,
		Ready:      snap.Phase == session.Ready,
	}
	if err != nil {
		data.Error = userMessage(err)
		logger.Warn().Err(err).Int("status", status).Msg("Request failed")
	}
	for _, pair := range snap.Transcript {
		data.Transcript = append(data.Transcript, transcriptEntry{
			Query:  pair.Query,
			Answer: h.renderMarkdown(r.Context(), pair.Answer),
		})
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		logger.Error().Err(err).Msg("Error rendering page")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// renderMarkdown converts an answer to HTML. goldmark drops raw HTML unless
// configured otherwise, so the result is safe to embed.
func (h *PageHandler) renderMarkdown(ctx context.Context, source string) template.HTML {
	var buf bytes.Buffer
	if err := h.markdown.Convert([]byte(source), &buf); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("Error rendering markdown")
		return template.HTML(template.HTMLEscapeString(source))
	}
	return template.HTML(buf.String())
}

// detach keeps the request logger but lets processing and generation run to
// completion when the client goes away.
func detach(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

func statusFor(err error) int {
	var (
		validationErr *models.ValidationError
		loadErr       *models.LoadError
		indexErr      *models.IndexError
		generationErr *models.GenerationError
	)
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &loadErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &indexErr), errors.As(err, &generationErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func userMessage(err error) string {
	var validationErr *models.ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Message
	}
	return err.Error()
}
