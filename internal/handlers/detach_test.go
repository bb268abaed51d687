package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-qa/internal/session"
)

// slowChain answers after a delay unless its context is cancelled first.
type slowChain struct{ delay time.Duration }

func (c slowChain) Answer(ctx context.Context, query string, _ io.Writer) (string, error) {
	select {
	case <-time.After(c.delay):
		return "answer to " + query, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (slowChain) Close() error { return nil }

func readySession(t *testing.T, chain session.Chain) *session.Controller {
	t.Helper()
	builder := session.BuilderFunc(func(context.Context, string) (session.Chain, error) { return chain, nil })
	c := session.New(builder, filepath.Join(t.TempDir(), "uploaded_file.pdf"), nil)
	require.NoError(t, c.Upload(context.Background(), "doc.pdf", strings.NewReader("%PDF-1.4")))
	require.NoError(t, c.Process(context.Background()))
	return c
}

func TestPageHandler_Query_SurvivesClientDisconnect(t *testing.T) {
	controller := readySession(t, slowChain{delay: 50 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)
	req := formRequest("/query", url.Values{"query": {"still there?"}}).WithContext(ctx)
	w := httptest.NewRecorder()

	NewPageHandler(controller, 1<<20).Query(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	transcript := controller.Snapshot().Transcript
	require.Len(t, transcript, 1)
	assert.Equal(t, "answer to still there?", transcript[0].Answer)
}

func TestPageHandler_Process_SurvivesClientDisconnect(t *testing.T) {
	builder := session.BuilderFunc(func(ctx context.Context, _ string) (session.Chain, error) {
		select {
		case <-time.After(50 * time.Millisecond):
			return slowChain{}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
	controller := session.New(builder, filepath.Join(t.TempDir(), "uploaded_file.pdf"), nil)
	require.NoError(t, controller.Upload(context.Background(), "doc.pdf", strings.NewReader("%PDF-1.4")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/process", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	NewPageHandler(controller, 1<<20).Process(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, session.Ready, controller.Snapshot().Phase)
}
