package api

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/bitnetlabs/bitnet/internal/domain"
	"github.com/bitnetlabs/bitnet/internal/infra/metrics"
	"github.com/bitnetlabs/bitnet/internal/infra/sqlite"
)

// ─── Inference (/inference, /inference/stream) ──────────────────────────────

// inferenceRequest is the request body for both inference endpoints.
// Omitted numeric fields fall back to the stock generation defaults.
type inferenceRequest struct {
	Model        string   `json:"model"`
	Prompt       string   `json:"prompt"`
	NPredict     *int     `json:"n_predict,omitempty"`
	Threads      *int     `json:"threads,omitempty"`
	CtxSize      *int     `json:"ctx_size,omitempty"`
	Temperature  *float64 `json:"temperature,omitempty"`
	Conversation bool     `json:"conversation,omitempty"`
}

func (req *inferenceRequest) params() domain.GenerationParams {
	p := domain.DefaultParams()
	if req.NPredict != nil {
		p.NPredict = *req.NPredict
	}
	if req.Threads != nil {
		p.Threads = *req.Threads
	}
	if req.CtxSize != nil {
		p.CtxSize = *req.CtxSize
	}
	if req.Temperature != nil {
		p.Temperature = *req.Temperature
	}
	p.Conversation = req.Conversation
	return p
}

// --- /inference ---

func (s *Server) handleInference(w http.ResponseWriter, r *http.Request) {
	var req inferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Model == "" {
		writeError(w, http.StatusBadRequest, "model is required")
		return
	}

	modelPath, ok := s.models.ModelPath(req.Model)
	if !ok {
		writeError(w, http.StatusNotFound, "Model "+req.Model+" not found")
		return
	}

	start := time.Now()
	out, err := s.runner.RunOnce(r.Context(), modelPath, req.Prompt, req.params())
	metrics.InferenceLatency.WithLabelValues("generate").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.InferenceRequests.WithLabelValues("generate", "failed").Inc()
		s.record(sqlite.OpGenerate, req.Model, sqlite.StatusFailed, err.Error())
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	metrics.InferenceRequests.WithLabelValues("generate", "ok").Inc()
	s.record(sqlite.OpGenerate, req.Model, sqlite.StatusOK, "")
	writeJSON(w, http.StatusOK, map[string]string{"response": out})
}

// --- /inference/stream ---

// The stream is server-sent events: one data line per raw output chunk,
// an error envelope if the run fails midway, then "data: [DONE]".
func (s *Server) handleInferenceStream(w http.ResponseWriter, r *http.Request) {
	var req inferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Model == "" {
		writeError(w, http.StatusBadRequest, "model is required")
		return
	}

	modelPath, ok := s.models.ModelPath(req.Model)
	if !ok {
		writeError(w, http.StatusNotFound, "Model "+req.Model+" not found")
		return
	}

	start := time.Now()
	ch, err := s.runner.RunStream(r.Context(), modelPath, req.Prompt, req.params())
	if err != nil {
		metrics.InferenceRequests.WithLabelValues("generate", "failed").Inc()
		s.record(sqlite.OpGenerate, req.Model, sqlite.StatusFailed, err.Error())
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Headers are committed: failures from here on travel in-band.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	writer := bufio.NewWriter(w)

	status, detail := sqlite.StatusOK, ""
	for chunk := range ch {
		if chunk.Err != nil {
			status, detail = sqlite.StatusFailed, chunk.Err.Error()
			writeSSE(writer, flusher, map[string]interface{}{
				"error": map[string]interface{}{
					"message": chunk.Err.Error(),
					"type":    "error",
				},
			})
			continue
		}
		metrics.StreamChunks.Inc()
		writeSSE(writer, flusher, map[string]string{"response": chunk.Text})
	}

	fmt.Fprintf(writer, "data: [DONE]\n\n")
	writer.Flush()
	if flusher != nil {
		flusher.Flush()
	}

	metrics.InferenceLatency.WithLabelValues("generate").Observe(time.Since(start).Seconds())
	metrics.InferenceRequests.WithLabelValues("generate", status).Inc()
	s.record(sqlite.OpGenerate, req.Model, status, detail)
}

// writeSSE emits one JSON payload as a server-sent event and flushes it.
func writeSSE(w *bufio.Writer, flusher http.Flusher, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
	w.Flush()
	if flusher != nil {
		flusher.Flush()
	}
}

// record writes an operation row when a journal is attached. Journal
// trouble is log-only; it never fails the request it describes.
func (s *Server) record(kind, model, status, detail string) {
	if s.journal == nil {
		return
	}
	op := sqlite.Operation{
		ID:        uuid.New().String(),
		Kind:      kind,
		Model:     model,
		Status:    status,
		Detail:    detail,
		CreatedAt: time.Now(),
	}
	if err := s.journal.InsertOperation(op); err != nil {
		s.log.Warn().Err(err).Msg("record operation")
	}
}
