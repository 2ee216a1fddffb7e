// Package health runs periodic checks over the pieces the daemon depends
// on: registry document, models directory, operation journal, fetch tool,
// and the inference binary.
package health

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/bitnetlabs/bitnet/internal/domain"
	"github.com/bitnetlabs/bitnet/internal/infra/metrics"
	"github.com/bitnetlabs/bitnet/internal/infra/registry"
	"github.com/bitnetlabs/bitnet/internal/infra/sqlite"
)

// Check is a single named probe.
type Check struct {
	Name    string
	CheckFn func(ctx context.Context) error
}

// Status represents the result of a health check.
type Status struct {
	Name      string    `json:"name"`
	Healthy   bool      `json:"healthy"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Checker runs periodic health checks.
type Checker struct {
	mu       sync.RWMutex
	checks   []Check
	statuses []Status
	interval time.Duration
}

// binaryPather is satisfied by runners that execute an external binary.
// The mock runner does not, and is healthy by construction.
type binaryPather interface {
	BinaryPath() string
}

// NewChecker creates a checker with the standard probes. db may be nil
// when no journal is attached.
func NewChecker(store *registry.Store, db *sqlite.DB, modelsDir, fetchCommand string, runner domain.Runner) *Checker {
	checks := []Check{
		{
			Name: "registry",
			CheckFn: func(ctx context.Context) error {
				_, err := store.LoadStrict()
				return err
			},
		},
		{
			Name: "models_dir",
			CheckFn: func(ctx context.Context) error {
				return checkDir(modelsDir)
			},
		},
		{
			Name: "fetch_tool",
			CheckFn: func(ctx context.Context) error {
				_, err := exec.LookPath(fetchCommand)
				return err
			},
		},
		{
			Name: "inference_binary",
			CheckFn: func(ctx context.Context) error {
				bp, ok := runner.(binaryPather)
				if !ok {
					return nil // mock runner needs no binary
				}
				_, err := os.Stat(bp.BinaryPath())
				return err
			},
		},
	}
	if db != nil {
		checks = append(checks, Check{
			Name: "journal",
			CheckFn: func(ctx context.Context) error {
				return db.Ping()
			},
		})
	}
	return &Checker{interval: 60 * time.Second, checks: checks}
}

// Run starts the health check loop. Call in a goroutine.
func (c *Checker) Run(ctx context.Context) {
	// Run immediately on start
	c.runAll(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.runAll(ctx)
		}
	}
}

func (c *Checker) runAll(ctx context.Context) {
	statuses := make([]Status, len(c.checks))
	for i, check := range c.checks {
		s := Status{
			Name:      check.Name,
			CheckedAt: time.Now(),
		}
		if err := check.CheckFn(ctx); err != nil {
			s.Healthy = false
			s.Error = err.Error()
			metrics.HealthCheckStatus.WithLabelValues(check.Name).Set(0)
		} else {
			s.Healthy = true
			metrics.HealthCheckStatus.WithLabelValues(check.Name).Set(1)
		}
		statuses[i] = s
	}

	c.mu.Lock()
	c.statuses = statuses
	c.mu.Unlock()
}

// Statuses returns the latest health check results.
func (c *Checker) Statuses() []Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]Status, len(c.statuses))
	copy(result, c.statuses)
	return result
}

// IsHealthy returns true if all checks pass.
func (c *Checker) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.statuses {
		if !s.Healthy {
			return false
		}
	}
	return true
}

func checkDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // not created yet, nothing to check
		}
		return fmt.Errorf("check dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}
