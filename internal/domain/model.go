// Package domain holds the core types shared across the runtime: installed
// model records, generation parameters, chat messages, and the streaming
// chunk contract between the inference process and its consumers.
package domain

// InstalledModel is one registry record: a model whose weight file was
// materialized on disk. ModelName is the unique key within the registry.
type InstalledModel struct {
	ModelID     string `json:"model_id"`
	ModelName   string `json:"model_name"`
	QuantType   string `json:"quant_type"`
	Path        string `json:"path"`
	GGUFPath    string `json:"gguf_path"`
	Description string `json:"description"`
}

// Registry is the persisted aggregate: every installed model keyed by name.
// It is loaded whole into memory and rewritten whole on every mutation.
type Registry struct {
	Models map[string]InstalledModel `json:"models"`
}

// NewRegistry returns an empty registry ready for inserts.
func NewRegistry() Registry {
	return Registry{Models: make(map[string]InstalledModel)}
}

// Clone returns a deep copy so callers can read without aliasing the
// manager's working state.
func (r Registry) Clone() Registry {
	out := NewRegistry()
	for name, m := range r.Models {
		out.Models[name] = m
	}
	return out
}

// GenerationParams control a single inference run.
type GenerationParams struct {
	NPredict     int
	Threads      int
	CtxSize      int
	Temperature  float64
	Conversation bool
}

// DefaultParams returns the stock generation settings.
func DefaultParams() GenerationParams {
	return GenerationParams{
		NPredict:    128,
		Threads:     4,
		CtxSize:     2048,
		Temperature: 0.8,
	}
}

// Chunk is one unit of streamed process output. The stream channel closes
// after the final chunk; a non-nil Err on that chunk reports a run that
// produced partial output and then failed.
type Chunk struct {
	Text string
	Err  error
}
