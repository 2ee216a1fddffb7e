package domain

import (
	"errors"
	"fmt"
)

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency.

var (
	// Model resolution errors
	ErrModelNotFound    = errors.New("model not found")
	ErrUnknownModel     = errors.New("model not in catalog")
	ErrUnsupportedQuant = errors.New("unsupported quantization type")

	// Process errors
	ErrBinaryNotFound = errors.New("inference binary not found")
	ErrSpawnFailed    = errors.New("inference process failed to start")

	// Registry errors
	ErrRegistryCorrupt = errors.New("registry file is malformed")
)

// ExitError reports an inference process that exited non-zero. Stderr
// carries the captured diagnostic tail verbatim so callers can surface the
// real failure instead of a bare exit code.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("inference process exited with status %d", e.Code)
	}
	return fmt.Sprintf("inference process exited with status %d: %s", e.Code, e.Stderr)
}
