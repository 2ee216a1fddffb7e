package daemon

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	shellwords "github.com/mattn/go-shellwords"
	"github.com/rs/zerolog"

	"github.com/bitnetlabs/bitnet/internal/api"
	"github.com/bitnetlabs/bitnet/internal/domain"
	"github.com/bitnetlabs/bitnet/internal/health"
	"github.com/bitnetlabs/bitnet/internal/infra/engine"
	_ "github.com/bitnetlabs/bitnet/internal/infra/metrics" // Register Prometheus metrics
	"github.com/bitnetlabs/bitnet/internal/infra/registry"
	"github.com/bitnetlabs/bitnet/internal/infra/sqlite"
)

// Daemon is the core BitNet runtime. It wires together the model manager,
// the inference runner, the operation journal, and the HTTP API.
type Daemon struct {
	Config  Config
	Log     zerolog.Logger
	Journal *sqlite.DB
	Models  *registry.Manager
	Runner  domain.Runner
	Server  *api.Server
	Health  *health.Checker

	logFile *os.File
	cancel  context.CancelFunc
}

// New creates and initializes a Daemon from the on-disk configuration.
func New() (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return NewWithConfig(cfg)
}

// NewWithConfig creates a Daemon with all services wired.
func NewWithConfig(cfg Config) (*Daemon, error) {
	log, logFile, err := openLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}

	// Operation journal. Absence is tolerated: every consumer accepts a
	// nil DB and simply skips recording.
	db, err := sqlite.Open(bitnetHome())
	if err != nil {
		log.Warn().Err(err).Msg("operation journal unavailable")
		db = nil
	}

	modelsDir := cfg.Models.Dir
	if modelsDir == "" {
		modelsDir = filepath.Join(bitnetHome(), "models")
	}
	logsDir := cfg.Models.LogsDir
	if logsDir == "" {
		logsDir = filepath.Join(bitnetHome(), "logs")
	}

	mgr, err := registry.NewManager(modelsDir, logsDir, registry.ExecFetcher{}, db,
		log.With().Str("component", "registry").Logger())
	if err != nil {
		return nil, fmt.Errorf("initialize model manager: %w", err)
	}

	runner, err := selectRunner(cfg.Inference, log)
	if err != nil {
		return nil, err
	}

	checker := health.NewChecker(mgr.Store(), db, modelsDir, registry.DefaultFetchCommand, runner)

	srv := api.NewServer(mgr, runner, log.With().Str("component", "api").Logger())
	srv.SetJournal(db)
	srv.SetChecker(checker)
	srv.SetCORSOrigins(cfg.API.CORSOrigins)
	if cfg.Telemetry.Prometheus {
		srv.EnableMetrics()
	}

	return &Daemon{
		Config:  cfg,
		Log:     log,
		Journal: db,
		Models:  mgr,
		Runner:  runner,
		Server:  srv,
		Health:  checker,
		logFile: logFile,
	}, nil
}

// selectRunner picks the inference engine once at startup: the real
// subprocess runner when the binary can be found, the mock otherwise.
func selectRunner(cfg InferenceConfig, log zerolog.Logger) (domain.Runner, error) {
	if cfg.Mock {
		log.Info().Msg("mock engine forced by configuration")
		return engine.NewMockRunner(), nil
	}

	extraArgs, err := shellwords.Parse(cfg.ExtraArgs)
	if err != nil {
		return nil, fmt.Errorf("parse inference.extra_args: %w", err)
	}

	runner, err := engine.NewSubprocessRunner(cfg.Binary, bitnetHome(), extraArgs,
		log.With().Str("component", "engine").Logger())
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: llama-cli not found, using mock engine (no real inference)\n")
		fmt.Fprintf(os.Stderr, "  Build bitnet.cpp and put llama-cli on PATH for real model output.\n")
		log.Warn().Err(err).Msg("falling back to mock engine")
		return engine.NewMockRunner(), nil
	}

	return runner, nil
}

// openLogger builds the root logger from the logging config. An empty file
// routes to stderr; the returned file handle is nil in that case.
func openLogger(cfg LoggingConfig) (zerolog.Logger, *os.File, error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		parsed, err := zerolog.ParseLevel(cfg.Level)
		if err != nil {
			return zerolog.Logger{}, nil, fmt.Errorf("parse log level %q: %w", cfg.Level, err)
		}
		level = parsed
	}

	var w io.Writer = os.Stderr
	var f *os.File
	if cfg.File != "" {
		var err error
		f, err = os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return zerolog.Logger{}, nil, fmt.Errorf("open log file: %w", err)
		}
		w = f
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger(), f, nil
}

// Serve starts the HTTP server and blocks until shutdown.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	// Periodic health probes
	go d.Health.Run(ctx)

	addr := fmt.Sprintf("%s:%d", d.Config.API.Host, d.Config.API.Port)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      d.Server.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // Long for streaming
		IdleTimeout:  2 * time.Minute,
	}

	// Graceful shutdown on signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		_ = httpServer.Shutdown(shutdownCtx)
	}()

	fmt.Printf("BitNet serving on http://%s\n", addr)
	fmt.Printf("  Engine: %s\n", d.Runner.Name())
	if d.Config.Telemetry.Prometheus {
		fmt.Printf("  Metrics: http://%s/metrics\n", addr)
	}
	d.Log.Info().Str("addr", addr).Str("engine", d.Runner.Name()).Msg("api server starting")

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close shuts down all daemon resources.
func (d *Daemon) Close() {
	if d.cancel != nil {
		d.cancel()
	}
	if d.Journal != nil {
		_ = d.Journal.Close()
	}
	if d.logFile != nil {
		_ = d.logFile.Close()
	}
}
