package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bitnetlabs/bitnet/internal/infra/catalog"
)

// ─── Model Management (/models/*) ───────────────────────────────────────────

// --- /models/available ---

func (s *Server) handleListAvailable(w http.ResponseWriter, r *http.Request) {
	entries := s.models.ListAvailable()

	// Keyed by HuggingFace id, mirroring the catalog
	out := make(map[string]map[string]string, len(entries))
	for _, e := range entries {
		out[e.ModelID] = map[string]string{
			"model_name":  e.ModelName,
			"description": e.Description,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// --- /models/installed ---

func (s *Server) handleListInstalled(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.models.ListInstalled())
}

// --- /models/download ---

type downloadRequest struct {
	ModelID   string `json:"model_id"`
	QuantType string `json:"quant_type,omitempty"`
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	var req downloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.ModelID == "" {
		writeError(w, http.StatusBadRequest, "model_id is required")
		return
	}
	if catalog.Lookup(req.ModelID) == nil {
		writeError(w, http.StatusNotFound, "model "+req.ModelID+" is not supported")
		return
	}

	// The fetch outlives this request, so it gets its own context.
	go s.models.Download(context.Background(), req.ModelID, req.QuantType)

	writeJSON(w, http.StatusAccepted, map[string]string{
		"message": "Started downloading model " + req.ModelID + ". Check /models/installed to see when it's ready.",
	})
}

// --- /models/{name} ---

func (s *Server) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	info, ok := s.models.ModelInfo(name)
	if !ok {
		writeError(w, http.StatusNotFound, "Model "+name+" not found")
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleRemoveModel(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !s.models.Remove(name) {
		writeError(w, http.StatusNotFound, "Model "+name+" not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Model " + name + " removed successfully",
	})
}
