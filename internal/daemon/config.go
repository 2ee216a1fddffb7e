// Package daemon manages the BitNet runtime lifecycle and configuration.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/bitnetlabs/bitnet/internal/domain"
	"github.com/bitnetlabs/bitnet/internal/infra/catalog"
)

// Config holds the full runtime configuration.
type Config struct {
	API       APIConfig       `toml:"api"`
	Models    ModelsConfig    `toml:"models"`
	Inference InferenceConfig `toml:"inference"`
	Logging   LoggingConfig   `toml:"logging"`
	Telemetry TelemetryConfig `toml:"telemetry"`
}

// APIConfig controls the HTTP API server.
type APIConfig struct {
	Host        string   `toml:"host"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// ModelsConfig controls model storage.
type ModelsConfig struct {
	Dir     string `toml:"dir"`
	LogsDir string `toml:"logs_dir"`
	Default string `toml:"default"`
}

// InferenceConfig controls the inference subprocess.
type InferenceConfig struct {
	Binary      string  `toml:"binary"` // explicit llama-cli path; probed when empty
	Mock        bool    `toml:"mock"`
	NPredict    int     `toml:"n_predict"`
	Threads     int     `toml:"threads"`
	CtxSize     int     `toml:"ctx_size"`
	Temperature float64 `toml:"temperature"`
	ExtraArgs   string  `toml:"extra_args"` // appended to every invocation, shell-style quoting
}

// Params maps the configured generation settings onto the stock defaults.
// Unset or non-positive values keep the defaults.
func (c InferenceConfig) Params() domain.GenerationParams {
	p := domain.DefaultParams()
	if c.NPredict > 0 {
		p.NPredict = c.NPredict
	}
	if c.Threads > 0 {
		p.Threads = c.Threads
	}
	if c.CtxSize > 0 {
		p.CtxSize = c.CtxSize
	}
	if c.Temperature > 0 {
		p.Temperature = c.Temperature
	}
	return p
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"` // empty → stderr
}

// TelemetryConfig controls the optional observability surface.
type TelemetryConfig struct {
	Prometheus bool `toml:"prometheus"`
}

// DefaultConfig returns the stock configuration rooted at the BitNet home.
func DefaultConfig() Config {
	home := bitnetHome()
	return Config{
		API: APIConfig{
			Host:        "127.0.0.1",
			Port:        8000,
			CORSOrigins: []string{"*"},
		},
		Models: ModelsConfig{
			Dir:     filepath.Join(home, "models"),
			LogsDir: filepath.Join(home, "logs"),
			Default: catalog.DefaultModelID,
		},
		Inference: InferenceConfig{
			NPredict:    128,
			Threads:     4,
			CtxSize:     2048,
			Temperature: 0.8,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig reads config from ~/.bitnet/config.toml, falling back to defaults.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	path := filepath.Join(bitnetHome(), "config.toml")

	if _, err := os.Stat(path); os.IsNotExist(err) {
		applyEnv(&cfg)
		return cfg, nil // No config file yet — use defaults
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	applyEnv(&cfg)
	return cfg, nil
}

// applyEnv folds environment overrides into cfg. The environment wins over
// the config file.
func applyEnv(cfg *Config) {
	if os.Getenv("BITNET_MOCK_MODE") == "1" {
		cfg.Inference.Mock = true
	}
}

// SaveConfig writes the config to ~/.bitnet/config.toml.
func SaveConfig(cfg Config) error {
	path := filepath.Join(bitnetHome(), "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

// bitnetHome returns the BitNet data directory.
func bitnetHome() string {
	if env := os.Getenv("BITNET_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".bitnet")
}

// BitnetHome is exported for use by other packages.
func BitnetHome() string {
	return bitnetHome()
}
