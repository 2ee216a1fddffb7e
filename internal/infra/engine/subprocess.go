// Package engine runs the external inference binary. Each request spawns
// one llama-cli process — no pooling, no warm server, no state shared
// between requests. The daemon picks the real subprocess runner or the
// mock at startup and hands it to every caller as a domain.Runner.
package engine

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/bitnetlabs/bitnet/internal/domain"
	"github.com/bitnetlabs/bitnet/internal/infra/metrics"
)

// ─── Subprocess Runner ──────────────────────────────────────────────────────
// Spawns llama-cli (from bitnet.cpp) once per request. Stdout is the
// generated text; stderr is kept in a bounded ring buffer so a failing run
// can report its real diagnostics.

// SubprocessRunner executes the inference binary as a child process.
type SubprocessRunner struct {
	binPath   string
	extraArgs []string // operator-supplied flags, appended after the stock vector
	log       zerolog.Logger
}

// NewSubprocessRunner creates a runner for the binary at binPath, or
// searches the home bin directory and PATH when binPath is empty.
func NewSubprocessRunner(binPath, home string, extraArgs []string, log zerolog.Logger) (*SubprocessRunner, error) {
	if binPath == "" {
		found, err := FindBinary(home)
		if err != nil {
			return nil, err
		}
		binPath = found
	} else if _, err := os.Stat(binPath); err != nil {
		return nil, fmt.Errorf("inference binary %s: %w", binPath, domain.ErrBinaryNotFound)
	}
	return &SubprocessRunner{binPath: binPath, extraArgs: extraArgs, log: log}, nil
}

// Name implements domain.Runner.
func (r *SubprocessRunner) Name() string { return "subprocess" }

// BinaryPath returns the resolved inference binary.
func (r *SubprocessRunner) BinaryPath() string { return r.binPath }

// FindBinary searches for the llama-cli binary.
func FindBinary(home string) (string, error) {
	exe := "llama-cli"
	if runtime.GOOS == "windows" {
		exe = "llama-cli.exe"
	}

	// 1. Check <home>/bin/ and <home>/build/bin/ (source builds land there)
	for _, dir := range []string{filepath.Join(home, "bin"), filepath.Join(home, "build", "bin")} {
		binPath := filepath.Join(dir, exe)
		if _, err := os.Stat(binPath); err == nil {
			return binPath, nil
		}
	}

	// 2. Check PATH
	if path, err := exec.LookPath(exe); err == nil {
		return path, nil
	}

	// 3. Also check the plain "llama" variant
	altExe := "llama"
	if runtime.GOOS == "windows" {
		altExe = "llama.exe"
	}
	altPath := filepath.Join(home, "bin", altExe)
	if _, err := os.Stat(altPath); err == nil {
		return altPath, nil
	}
	if path, err := exec.LookPath(altExe); err == nil {
		return path, nil
	}

	return "", fmt.Errorf(`%w

bitnet needs llama-cli (built from bitnet.cpp) to run models.

Install it:
  1. Build bitnet.cpp:
     → git clone --recursive https://github.com/microsoft/BitNet.git
     → follow its README to build llama-cli with the ternary kernels

  2. Place the binary in one of:
     → %s
     → Or any folder in your system PATH

  3. Then run: bitnet run <model>

Without it the daemon falls back to the mock engine
(BITNET_MOCK_MODE=1 forces the same).`, domain.ErrBinaryNotFound, filepath.Join(home, "bin"))
}

// buildArgs assembles the llama-cli argument vector. -ngl 0 is always
// forced: inference stays on CPU even when a build has GPU support.
func buildArgs(modelPath, prompt string, params domain.GenerationParams, extra []string) []string {
	args := []string{
		"-m", modelPath,
		"-n", strconv.Itoa(params.NPredict),
		"-t", strconv.Itoa(params.Threads),
		"-p", prompt,
		"-ngl", "0",
		"-c", strconv.Itoa(params.CtxSize),
		"--temp", strconv.FormatFloat(params.Temperature, 'g', -1, 64),
		"-b", "1",
	}
	if params.Conversation {
		args = append(args, "-cnv")
	}
	return append(args, extra...)
}

// RunOnce blocks until the process exits and returns its full stdout.
func (r *SubprocessRunner) RunOnce(ctx context.Context, modelPath, prompt string, params domain.GenerationParams) (string, error) {
	args := buildArgs(modelPath, prompt, params, r.extraArgs)
	r.log.Debug().Str("bin", r.binPath).Str("model", modelPath).Msg("spawning inference process")

	var stdout bytes.Buffer
	stderr := &limitedBuffer{max: 8192}

	cmd := exec.CommandContext(ctx, r.binPath, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = stderr
	configureProcess(cmd)

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrSpawnFailed, err)
	}
	metrics.ActiveProcesses.Inc()
	defer metrics.ActiveProcesses.Dec()

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", exitError(err, stderr)
	}
	return stdout.String(), nil
}

// RunStream spawns the process and streams stdout in newline-delimited
// chunks. One goroutine owns the pipe: chunk order on the channel is the
// child's write order, channel close is end-of-stream, and a failed run
// delivers its error as the final chunk after any partial output.
func (r *SubprocessRunner) RunStream(ctx context.Context, modelPath, prompt string, params domain.GenerationParams) (<-chan domain.Chunk, error) {
	args := buildArgs(modelPath, prompt, params, r.extraArgs)
	r.log.Debug().Str("bin", r.binPath).Str("model", modelPath).Msg("spawning streaming inference process")

	stderr := &limitedBuffer{max: 8192}
	cmd := exec.CommandContext(ctx, r.binPath, args...)
	cmd.Stderr = stderr
	configureProcess(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSpawnFailed, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSpawnFailed, err)
	}
	metrics.ActiveProcesses.Inc()

	ch := make(chan domain.Chunk, 64)
	go func() {
		defer close(ch)
		defer metrics.ActiveProcesses.Dec()

		reader := bufio.NewReader(stdout)
	read:
		for {
			line, readErr := reader.ReadString('\n')
			if line != "" {
				select {
				case <-ctx.Done():
					break read
				case ch <- domain.Chunk{Text: line}:
				}
			}
			if readErr != nil {
				break
			}
		}

		// End-of-stream observed; now observe process exit. Cancellation
		// kills the child, so Wait cannot block indefinitely.
		waitErr := cmd.Wait()
		switch {
		case ctx.Err() != nil:
			ch <- domain.Chunk{Err: ctx.Err()}
		case waitErr != nil:
			ch <- domain.Chunk{Err: exitError(waitErr, stderr)}
		}
	}()

	return ch, nil
}

// exitError converts a Wait failure into *domain.ExitError carrying the
// captured stderr tail.
func exitError(err error, stderr *limitedBuffer) error {
	code := -1
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		code = ee.ExitCode()
	}
	return &domain.ExitError{Code: code, Stderr: strings.TrimSpace(stderr.String())}
}

// limitedBuffer is a thread-safe buffer that keeps only the last N bytes.
// Used to capture process stderr without unbounded memory usage.
type limitedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
	max int
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, err := b.buf.Write(p)
	// Trim to keep only the last `max` bytes
	if b.buf.Len() > b.max {
		data := b.buf.Bytes()
		b.buf.Reset()
		b.buf.Write(data[len(data)-b.max:])
	}
	return n, err
}

func (b *limitedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

var _ domain.Runner = (*SubprocessRunner)(nil)
