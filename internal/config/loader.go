package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are replaced by WithDefaults.
type Config struct {
	Addr       string `json:"addr" yaml:"addr" toml:"addr"`
	BackendURL string `json:"backend_url" yaml:"backend_url" toml:"backend_url"`

	// Model bindings per role. An empty ModelVision leaves the vision role
	// unbound; requests routed to it fail with a configuration error.
	ModelGeneral string `json:"model_general" yaml:"model_general" toml:"model_general"`
	ModelCoding  string `json:"model_coding" yaml:"model_coding" toml:"model_coding"`
	ModelVision  string `json:"model_vision" yaml:"model_vision" toml:"model_vision"`

	// Per-request deadline for a whole backend call, including time to first
	// chunk. 0 means use the default.
	RequestTimeoutSeconds int `json:"request_timeout_seconds" yaml:"request_timeout_seconds" toml:"request_timeout_seconds"`

	// GPUMonitor enables nvidia-smi probing for /status. nil means enabled.
	GPUMonitor *bool `json:"gpu_monitor" yaml:"gpu_monitor" toml:"gpu_monitor"`

	MaxBodyBytes int64  `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	LogLevel     string `json:"log_level" yaml:"log_level" toml:"log_level"`

	CORSEnabled        bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSAllowedOrigins []string `json:"cors_allowed_origins" yaml:"cors_allowed_origins" toml:"cors_allowed_origins"`
}

// Defaults applied by WithDefaults for unspecified fields. Model names match
// the stock local setup.
const (
	DefaultAddr           = ":8090"
	DefaultBackendURL     = "http://127.0.0.1:11434"
	DefaultModelGeneral   = "llama3.2:3b"
	DefaultModelCoding    = "qwen2.5-coder:3b"
	DefaultModelVision    = "llava-phi3"
	DefaultTimeoutSeconds = 120
	DefaultMaxBodyBytes   = 8 << 20 // images travel inline as base64
	DefaultLogLevel       = "info"
)

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// ApplyEnv overrides cfg fields from MODELVAULT_* environment variables.
// Environment values win over file values.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv("MODELVAULT_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("MODELVAULT_BACKEND_URL"); v != "" {
		cfg.BackendURL = v
	}
	if v := os.Getenv("MODELVAULT_MODEL_GENERAL"); v != "" {
		cfg.ModelGeneral = v
	}
	if v := os.Getenv("MODELVAULT_MODEL_CODING"); v != "" {
		cfg.ModelCoding = v
	}
	if v := os.Getenv("MODELVAULT_MODEL_VISION"); v != "" {
		cfg.ModelVision = v
	}
	if v := os.Getenv("MODELVAULT_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RequestTimeoutSeconds = n
		}
	}
	if v := os.Getenv("MODELVAULT_GPU_MONITOR"); v != "" {
		b := v == "1" || strings.EqualFold(v, "true")
		cfg.GPUMonitor = &b
	}
	if v := os.Getenv("MODELVAULT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}

// WithDefaults returns cfg with unspecified fields filled in.
func (c Config) WithDefaults() Config {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.BackendURL == "" {
		c.BackendURL = DefaultBackendURL
	}
	if c.ModelGeneral == "" {
		c.ModelGeneral = DefaultModelGeneral
	}
	if c.ModelCoding == "" {
		c.ModelCoding = DefaultModelCoding
	}
	// ModelVision is deliberately not defaulted: a config that leaves it
	// empty keeps the vision role unbound. Default() binds the stock model
	// for the no-config case.
	if c.RequestTimeoutSeconds <= 0 {
		c.RequestTimeoutSeconds = DefaultTimeoutSeconds
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	return c
}

// Default returns the stock configuration used when no file is given.
func Default() Config {
	c := Config{ModelVision: DefaultModelVision}
	return c.WithDefaults()
}

// GPUMonitorEnabled reports whether GPU probing is enabled (default on).
func (c Config) GPUMonitorEnabled() bool {
	return c.GPUMonitor == nil || *c.GPUMonitor
}
