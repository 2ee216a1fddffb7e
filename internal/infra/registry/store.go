// Package registry tracks installed models: a single JSON document on disk
// plus the download/remove operations that mutate it. The document is owned
// by one Manager per process — there is no cross-process locking.
package registry

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/moby/sys/atomicwriter"
	"github.com/rs/zerolog"

	"github.com/bitnetlabs/bitnet/internal/domain"
	"github.com/bitnetlabs/bitnet/internal/infra/metrics"
)

// Warning reports a registry document that could not be read or parsed.
// Load recovers to an empty registry either way; the warning is how an
// observer tells "corrupt" apart from "nothing installed yet".
type Warning struct {
	Path   string
	Reason string
}

// Store owns the registry document on disk.
type Store struct {
	path     string
	log      zerolog.Logger
	warnings chan Warning
}

// NewStore creates a store for the document at path.
func NewStore(path string, log zerolog.Logger) *Store {
	return &Store{
		path:     path,
		log:      log,
		warnings: make(chan Warning, 8),
	}
}

// Path returns the document location.
func (s *Store) Path() string { return s.path }

// Warnings exposes load warnings. The channel is buffered and sends never
// block; once full, further warnings are log-only.
func (s *Store) Warnings() <-chan Warning { return s.warnings }

// Load reads the registry document. It fails open: a missing file or a
// malformed document yields an empty registry, keeping a damaged
// installation usable. Anything other than "file does not exist" emits a
// Warning alongside the recovery.
func (s *Store) Load() domain.Registry {
	reg, err := s.LoadStrict()
	if err != nil {
		s.warn(err)
		return domain.NewRegistry()
	}
	return reg
}

// LoadStrict is Load without the fail-open recovery, for probes that need
// to see corruption as an error. A missing file is still an empty
// registry, not an error.
func (s *Store) LoadStrict() (domain.Registry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.NewRegistry(), nil
		}
		return domain.Registry{}, fmt.Errorf("read registry: %w", err)
	}

	var reg domain.Registry
	if err := json.Unmarshal(data, &reg); err != nil {
		return domain.Registry{}, fmt.Errorf("%w: %v", domain.ErrRegistryCorrupt, err)
	}
	if reg.Models == nil {
		reg.Models = make(map[string]domain.InstalledModel)
	}
	return reg, nil
}

// Save rewrites the whole document atomically (temp file + rename), so a
// crash mid-write never corrupts the previous durable state.
func (s *Store) Save(reg domain.Registry) error {
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode registry: %w", err)
	}
	if err := atomicwriter.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write registry: %w", err)
	}
	return nil
}

func (s *Store) warn(err error) {
	metrics.RegistryLoadWarnings.Inc()
	s.log.Warn().Str("path", s.path).Err(err).Msg("registry unreadable, starting empty")
	select {
	case s.warnings <- Warning{Path: s.path, Reason: err.Error()}:
	default:
	}
}
