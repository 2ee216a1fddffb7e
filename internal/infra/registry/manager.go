package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bitnetlabs/bitnet/internal/domain"
	"github.com/bitnetlabs/bitnet/internal/infra/catalog"
	"github.com/bitnetlabs/bitnet/internal/infra/metrics"
	"github.com/bitnetlabs/bitnet/internal/infra/sqlite"
)

// placeholderGGUF stands in for the converted weight file until a real
// GGUF conversion step runs. Its presence keeps every registry record
// pointing at an existing file.
const placeholderGGUF = "# Placeholder GGUF file"

// Manager tracks installed models and performs download/remove operations.
// Mutating operations answer with booleans — the caller gets yes or no,
// the log gets the reason — and the registry document is rewritten only
// after the filesystem already reflects the change.
type Manager struct {
	modelsDir string
	logsDir   string
	store     *Store
	fetcher   domain.Fetcher
	journal   *sqlite.DB // optional; nil disables operation records
	log       zerolog.Logger

	mu       sync.Mutex
	registry domain.Registry

	arch     string             // normalized local architecture
	removeFn func(string) error // os.RemoveAll; swapped in tests
}

// NewManager creates the models and logs directories, loads the registry
// document under modelsDir, and returns a ready manager. journal may be
// nil.
func NewManager(modelsDir, logsDir string, fetcher domain.Fetcher, journal *sqlite.DB, log zerolog.Logger) (*Manager, error) {
	if err := os.MkdirAll(modelsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create models dir: %w", err)
	}
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create logs dir: %w", err)
	}

	store := NewStore(filepath.Join(modelsDir, "registry.json"), log)
	reg := store.Load()
	metrics.InstalledModels.Set(float64(len(reg.Models)))
	return &Manager{
		modelsDir: modelsDir,
		logsDir:   logsDir,
		store:     store,
		fetcher:   fetcher,
		journal:   journal,
		log:       log,
		registry:  reg,
		arch:      catalog.LocalArch(),
		removeFn:  os.RemoveAll,
	}, nil
}

// Store exposes the underlying document store, mainly so the daemon can
// watch its warning channel.
func (m *Manager) Store() *Store { return m.store }

// ListAvailable returns the catalog of downloadable models.
func (m *Manager) ListAvailable() []catalog.Entry {
	return catalog.Catalog
}

// ListInstalled returns a copy of the installed-model records keyed by
// model name.
func (m *Manager) ListInstalled() map[string]domain.InstalledModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.registry.Clone().Models
}

// Download fetches a model's artifacts and registers it. Validation
// failures reject the request before any side effect; from the fetch
// onward, failures may leave a partially populated model directory behind
// (retry or remove both recover). Returns false on any failure.
func (m *Manager) Download(ctx context.Context, modelID, quantType string) bool {
	entry := catalog.Lookup(modelID)
	if entry == nil {
		m.log.Error().Str("model_id", modelID).Msg("model is not supported")
		return false
	}

	if quantType == "" {
		quantType = catalog.DefaultQuant(m.arch)
	}
	if !catalog.SupportsQuant(m.arch, quantType) {
		m.log.Error().
			Str("quant_type", quantType).
			Str("arch", m.arch).
			Msg("quantization type not supported on this architecture")
		return false
	}

	modelDir := filepath.Join(m.modelsDir, entry.ModelName)
	if err := os.MkdirAll(modelDir, 0o755); err != nil {
		m.log.Error().Err(err).Str("dir", modelDir).Msg("create model directory")
		return false
	}

	m.log.Info().Str("model_id", modelID).Str("dir", modelDir).Msg("downloading model")
	logPath := filepath.Join(m.logsDir, "download_model_"+entry.ModelName+".log")
	if err := m.fetcher.Fetch(ctx, modelID, modelDir, logPath); err != nil {
		m.log.Error().Err(err).Str("model_id", modelID).Msg("model download failed")
		m.record(sqlite.OpDownload, entry.ModelName, sqlite.StatusFailed, err.Error())
		return false
	}

	ggufPath := filepath.Join(modelDir, "ggml-model-"+quantType+".gguf")
	if _, err := os.Stat(ggufPath); os.IsNotExist(err) {
		if err := os.WriteFile(ggufPath, []byte(placeholderGGUF), 0o644); err != nil {
			m.log.Error().Err(err).Str("path", ggufPath).Msg("write placeholder weight file")
			m.record(sqlite.OpDownload, entry.ModelName, sqlite.StatusFailed, err.Error())
			return false
		}
		m.log.Info().Str("path", ggufPath).Msg("created placeholder GGUF file")
	}

	m.mu.Lock()
	m.registry.Models[entry.ModelName] = domain.InstalledModel{
		ModelID:     modelID,
		ModelName:   entry.ModelName,
		QuantType:   quantType,
		Path:        modelDir,
		GGUFPath:    ggufPath,
		Description: entry.Description,
	}
	err := m.store.Save(m.registry)
	installed := len(m.registry.Models)
	m.mu.Unlock()
	if err != nil {
		m.log.Error().Err(err).Msg("save registry")
		m.record(sqlite.OpDownload, entry.ModelName, sqlite.StatusFailed, err.Error())
		return false
	}

	metrics.InstalledModels.Set(float64(installed))
	m.log.Info().Str("model", entry.ModelName).Msg("model downloaded and registered")
	m.record(sqlite.OpDownload, entry.ModelName, sqlite.StatusOK, "")
	return true
}

// Remove deletes a model's directory tree and drops its record. The
// filesystem goes first: if deletion fails the record stays, still
// pointing at whatever exists on disk, and the call is retry-safe.
func (m *Manager) Remove(modelName string) bool {
	m.mu.Lock()
	rec, ok := m.registry.Models[modelName]
	m.mu.Unlock()
	if !ok {
		m.log.Error().Str("model", modelName).Msg("model is not installed")
		return false
	}

	if err := m.removeFn(rec.Path); err != nil {
		m.log.Error().Err(err).Str("dir", rec.Path).Msg("remove model directory")
		m.record(sqlite.OpRemove, modelName, sqlite.StatusFailed, err.Error())
		return false
	}

	m.mu.Lock()
	delete(m.registry.Models, modelName)
	err := m.store.Save(m.registry)
	installed := len(m.registry.Models)
	m.mu.Unlock()
	if err != nil {
		m.log.Error().Err(err).Msg("save registry")
		m.record(sqlite.OpRemove, modelName, sqlite.StatusFailed, err.Error())
		return false
	}

	metrics.InstalledModels.Set(float64(installed))
	m.log.Info().Str("model", modelName).Msg("model removed")
	m.record(sqlite.OpRemove, modelName, sqlite.StatusOK, "")
	return true
}

// ModelPath returns the weight-file path for an installed model.
func (m *Manager) ModelPath(modelName string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.registry.Models[modelName]
	if !ok {
		return "", false
	}
	return rec.GGUFPath, true
}

// ModelInfo returns the full registry record for an installed model.
func (m *Manager) ModelInfo(modelName string) (domain.InstalledModel, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.registry.Models[modelName]
	return rec, ok
}

// record writes an operation row when a journal is attached. Journal
// trouble is log-only; it never fails the operation it describes.
func (m *Manager) record(kind, model, status, detail string) {
	switch kind {
	case sqlite.OpDownload:
		metrics.Downloads.WithLabelValues(status).Inc()
	case sqlite.OpRemove:
		metrics.Removals.WithLabelValues(status).Inc()
	}
	if m.journal == nil {
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
	if err := m.journal.InsertOperation(op); err != nil {
		m.log.Warn().Err(err).Msg("record operation")
	}
}
