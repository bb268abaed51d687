package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status         string `json:"status"`
	Timestamp      string `json:"timestamp"`
	Phase          string `json:"phase"`
	FileName       string `json:"file_name,omitempty"`
	TranscriptSize int    `json:"transcript_size"`
}

// HealthHandler reports the session phase. It never blocks on a running
// upload, process or query.
type HealthHandler struct {
	session Session
}

func NewHealthHandler(s Session) *HealthHandler {
	return &HealthHandler{session: s}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	snap := h.session.Snapshot()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	err := json.NewEncoder(w).Encode(HealthResponse{
		Status:         "ok",
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
		Phase:          snap.Phase.String(),
		FileName:       snap.FileName,
		TranscriptSize: len(snap.Transcript),
	})
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to encode health response")
	}
}
