package api

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/bitnetlabs/bitnet/internal/app/chat"
	"github.com/bitnetlabs/bitnet/internal/domain"
	"github.com/bitnetlabs/bitnet/internal/infra/metrics"
	"github.com/bitnetlabs/bitnet/internal/infra/sqlite"
)

// ─── Chat Completions (/chat/completions) ───────────────────────────────────
// OpenAI-shaped endpoint: the conversation is flattened to the binary's
// prompt template, and the echoed prompt is stripped back out of the reply.

// chatCompletionRequest is the chat completions request body.
type chatCompletionRequest struct {
	Model       string               `json:"model"`
	Messages    []domain.ChatMessage `json:"messages"`
	NPredict    *int                 `json:"n_predict,omitempty"`
	Threads     *int                 `json:"threads,omitempty"`
	CtxSize     *int                 `json:"ctx_size,omitempty"`
	Temperature *float64             `json:"temperature,omitempty"`
	Stream      bool                 `json:"stream"`
}

func (req *chatCompletionRequest) params() domain.GenerationParams {
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
	p.Conversation = true
	return p
}

func (s *Server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req chatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Model == "" {
		writeError(w, http.StatusBadRequest, "model is required")
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "messages is required")
		return
	}

	modelPath, ok := s.models.ModelPath(req.Model)
	if !ok {
		writeError(w, http.StatusNotFound, "Model "+req.Model+" not found")
		return
	}

	prompt := chat.FormatPrompt(req.Messages)

	if req.Stream {
		s.streamChatCompletion(w, r, req, modelPath, prompt)
	} else {
		s.chatCompletion(w, r, req, modelPath, prompt)
	}
}

func (s *Server) chatCompletion(w http.ResponseWriter, r *http.Request, req chatCompletionRequest, modelPath, prompt string) {
	start := time.Now()
	out, err := s.runner.RunOnce(r.Context(), modelPath, prompt, req.params())
	metrics.InferenceLatency.WithLabelValues("chat").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.InferenceRequests.WithLabelValues("chat", "failed").Inc()
		s.record(sqlite.OpChat, req.Model, sqlite.StatusFailed, err.Error())
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	metrics.InferenceRequests.WithLabelValues("chat", "ok").Inc()
	s.record(sqlite.OpChat, req.Model, sqlite.StatusOK, "")
	writeJSON(w, http.StatusOK, chat.ParseCompletion(out, req.Model))
}

func (s *Server) streamChatCompletion(w http.ResponseWriter, r *http.Request, req chatCompletionRequest, modelPath, prompt string) {
	start := time.Now()
	ch, err := s.runner.RunStream(r.Context(), modelPath, prompt, req.params())
	if err != nil {
		metrics.InferenceRequests.WithLabelValues("chat", "failed").Inc()
		s.record(sqlite.OpChat, req.Model, sqlite.StatusFailed, err.Error())
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	writer := bufio.NewWriter(w)

	filter := chat.NewStreamFilter(req.Model)
	status, detail := sqlite.StatusOK, ""
	for raw := range ch {
		if raw.Err != nil {
			status, detail = sqlite.StatusFailed, raw.Err.Error()
			writeSSE(writer, flusher, map[string]interface{}{
				"error": map[string]interface{}{
					"message": raw.Err.Error(),
					"type":    "error",
				},
			})
			continue
		}
		chunk, ok := filter.Feed(raw.Text)
		if !ok {
			continue
		}
		metrics.StreamChunks.Inc()
		writeSSE(writer, flusher, chunk)
	}

	// Final chunk with finish_reason, then the end-of-stream sentinel
	writeSSE(writer, flusher, filter.Finish())
	fmt.Fprintf(writer, "data: [DONE]\n\n")
	writer.Flush()
	if flusher != nil {
		flusher.Flush()
	}

	metrics.InferenceLatency.WithLabelValues("chat").Observe(time.Since(start).Seconds())
	metrics.InferenceRequests.WithLabelValues("chat", status).Inc()
	s.record(sqlite.OpChat, req.Model, status, detail)
}
