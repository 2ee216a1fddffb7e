package domain

import "context"

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; application layer depends on them.

// Runner executes the external inference binary against a local weight
// file. The daemon selects one implementation at startup (real subprocess
// or mock) and every caller goes through it; nothing re-probes per call.
type Runner interface {
	// RunOnce blocks until the process exits and returns its full stdout.
	// A non-zero exit surfaces as *ExitError with captured stderr.
	RunOnce(ctx context.Context, modelPath, prompt string, params GenerationParams) (string, error)

	// RunStream spawns the process and returns a channel of output chunks
	// in write order. The channel closes after end-of-stream AND process
	// exit are both observed; a failed run delivers its error as the final
	// chunk. Cancelling ctx terminates the process.
	RunStream(ctx context.Context, modelPath, prompt string, params GenerationParams) (<-chan Chunk, error)

	// Name identifies the strategy ("subprocess" or "mock") for logs.
	Name() string
}

// Fetcher downloads a model's artifacts into a local directory, writing
// combined tool output to logPath. Implemented by the fetch-tool wrapper;
// tests inject a fake.
type Fetcher interface {
	Fetch(ctx context.Context, modelID, destDir, logPath string) error
}
