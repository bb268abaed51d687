package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"pdf-qa/internal/handlers/mocks"
	"pdf-qa/internal/models"
	"pdf-qa/internal/session"
)

func multipartBody(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = io.WriteString(fw, content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func formRequest(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestPageHandler_Index(t *testing.T) {
	tests := []struct {
		name        string
		snapshot    session.Snapshot
		contains    []string
		notContains []string
	}{
		{
			name:     "idle",
			snapshot: session.Snapshot{Phase: session.Idle},
			contains: []string{
				"<title>PDF Question Answering System</title>",
				`accept=".pdf"`,
				`name="query" disabled`,
				`<button type="submit" disabled>Submit Query</button>`,
			},
			notContains: []string{"Process PDF", "Previous Queries and Answers:"},
		},
		{
			name:     "uploaded",
			snapshot: session.Snapshot{Phase: session.Idle, Uploaded: true, FileName: "report.pdf"},
			contains: []string{"Current file: report.pdf", "Process PDF"},
		},
		{
			name: "ready with transcript",
			snapshot: session.Snapshot{
				Phase:    session.Ready,
				Uploaded: true,
				Transcript: []models.QAPair{
					{Query: "What is **bold**?", Answer: "It is **strong**."},
					{Query: "<script>", Answer: "<b>raw</b> html"},
				},
			},
			contains: []string{
				"Previous Queries and Answers:",
				"<strong>Query:</strong> What is **bold**?",
				"It is <strong>strong</strong>.",
				"&lt;script&gt;",
				"<hr>",
				`<button type="submit">Submit Query</button>`,
			},
			notContains: []string{"<b>raw</b>", `name="query" disabled`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			mockSession := mocks.NewMockSession(ctrl)
			mockSession.EXPECT().Snapshot().Return(tt.snapshot)

			w := httptest.NewRecorder()
			NewPageHandler(mockSession, 1<<20).Index(w, httptest.NewRequest(http.MethodGet, "/", nil))

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
			for _, s := range tt.contains {
				assert.Contains(t, w.Body.String(), s)
			}
			for _, s := range tt.notContains {
				assert.NotContains(t, w.Body.String(), s)
			}
			assert.Equal(t, len(tt.snapshot.Transcript), strings.Count(w.Body.String(), "<hr>"))
		})
	}
}

func TestPageHandler_Upload(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockSession := mocks.NewMockSession(ctrl)

	var stored string
	mockSession.EXPECT().Upload(gomock.Any(), "report.pdf", gomock.Any()).
		DoAndReturn(func(_ any, _ string, r io.Reader) error {
			data, err := io.ReadAll(r)
			stored = string(data)
			return err
		})
	mockSession.EXPECT().Snapshot().Return(session.Snapshot{Uploaded: true, FileName: "report.pdf"})

	body, contentType := multipartBody(t, "report.pdf", "%PDF-1.4 body")
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	NewPageHandler(mockSession, 1<<20).Upload(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "File uploaded successfully!")
	assert.Equal(t, "%PDF-1.4 body", stored)
}

func TestPageHandler_Upload_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockSession := mocks.NewMockSession(ctrl)
		mockSession.EXPECT().Snapshot().Return(session.Snapshot{})

		body, contentType := multipartBody(t, "", "")
		req := httptest.NewRequest(http.MethodPost, "/upload", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()

		NewPageHandler(mockSession, 1<<20).Upload(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejected by session", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockSession := mocks.NewMockSession(ctrl)
		mockSession.EXPECT().Upload(gomock.Any(), "notes.txt", gomock.Any()).
			Return(&models.ValidationError{Field: "file", Message: "only PDF files are accepted"})
		mockSession.EXPECT().Snapshot().Return(session.Snapshot{})

		body, contentType := multipartBody(t, "notes.txt", "hello")
		req := httptest.NewRequest(http.MethodPost, "/upload", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()

		NewPageHandler(mockSession, 1<<20).Upload(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "only PDF files are accepted")
		assert.NotContains(t, w.Body.String(), "File uploaded successfully!")
	})

	t.Run("too large", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockSession := mocks.NewMockSession(ctrl)
		mockSession.EXPECT().Snapshot().Return(session.Snapshot{})

		body, contentType := multipartBody(t, "big.pdf", strings.Repeat("x", 4096))
		req := httptest.NewRequest(http.MethodPost, "/upload", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()

		NewPageHandler(mockSession, 1024).Upload(w, req)
		assert.Contains(t, []int{http.StatusRequestEntityTooLarge, http.StatusBadRequest}, w.Code)
	})
}

func TestPageHandler_Process(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		want       string
	}{
		{name: "success", wantStatus: http.StatusOK, want: "PDF processed and vector store created!"},
		{name: "nothing uploaded", err: &models.ValidationError{Field: "file", Message: "upload a PDF before processing"}, wantStatus: http.StatusBadRequest, want: "upload a PDF before processing"},
		{name: "unreadable pdf", err: &models.LoadError{Path: "uploaded_file.pdf", Err: errors.New("malformed pdf")}, wantStatus: http.StatusUnprocessableEntity, want: "malformed pdf"},
		{name: "embedding failed", err: &models.IndexError{Err: errors.New("model missing")}, wantStatus: http.StatusBadGateway, want: "model missing"},
		{name: "unexpected", err: errors.New("disk on fire"), wantStatus: http.StatusInternalServerError, want: "disk on fire"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			mockSession := mocks.NewMockSession(ctrl)
			mockSession.EXPECT().Process(gomock.Any()).Return(tt.err)
			mockSession.EXPECT().Snapshot().Return(session.Snapshot{Phase: session.Ready})

			w := httptest.NewRecorder()
			NewPageHandler(mockSession, 1<<20).Process(w, httptest.NewRequest(http.MethodPost, "/process", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.want)
		})
	}
}

func TestPageHandler_Query(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockSession := mocks.NewMockSession(ctrl)
	gomock.InOrder(
		mockSession.EXPECT().Ask(gomock.Any(), "Who wrote it?").Return("Ada.", nil),
		mockSession.EXPECT().Snapshot().Return(session.Snapshot{
			Phase:      session.Ready,
			Transcript: []models.QAPair{{Query: "Who wrote it?", Answer: "Ada."}},
		}),
	)

	w := httptest.NewRecorder()
	NewPageHandler(mockSession, 1<<20).Query(w, formRequest("/query", url.Values{"query": {"Who wrote it?"}}))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Who wrote it?")
	assert.Contains(t, w.Body.String(), "<p>Ada.</p>")
}

func TestPageHandler_Query_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "empty", err: &models.ValidationError{Field: "query", Message: "query must not be empty"}, wantStatus: http.StatusBadRequest},
		{name: "model down", err: &models.GenerationError{Model: models.InferenceModel, Err: errors.New("connection refused")}, wantStatus: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			mockSession := mocks.NewMockSession(ctrl)
			mockSession.EXPECT().Ask(gomock.Any(), gomock.Any()).Return("", tt.err)
			mockSession.EXPECT().Snapshot().Return(session.Snapshot{Phase: session.Ready})

			w := httptest.NewRecorder()
			NewPageHandler(mockSession, 1<<20).Query(w, formRequest("/query", url.Values{"query": {""}}))

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.NotContains(t, w.Body.String(), "Previous Queries and Answers:")
		})
	}
}

func TestHealthHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockSession := mocks.NewMockSession(ctrl)
	mockSession.EXPECT().Snapshot().Return(session.Snapshot{
		Phase:      session.Ready,
		FileName:   "report.pdf",
		Transcript: []models.QAPair{{Query: "q", Answer: "a"}},
	})

	w := httptest.NewRecorder()
	NewHealthHandler(mockSession).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "ready", resp.Phase)
	assert.Equal(t, "report.pdf", resp.FileName)
	assert.Equal(t, 1, resp.TranscriptSize)
}

func TestStatusFor(t *testing.T) {
	wrapped := errors.Join(errors.New("context"), &models.LoadError{Path: "x", Err: errors.New("y")})
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(wrapped))
	assert.Equal(t, http.StatusBadGateway, statusFor(&models.GenerationError{Err: errors.New("x")}))
}
