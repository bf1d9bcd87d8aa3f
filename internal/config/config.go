// Package config provides a unified configuration system for cascade
// pipelines: batch tuning, logging, and feature flags, loaded from YAML
// with environment-variable overrides and hot-reload support. Adapted
// from graft's internal/config, whose engine/vault/AWS knobs are replaced
// by cascade's batched-updater and step-graph knobs.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete cascade configuration.
type Config struct {
	// Engine configuration
	Engine EngineConfig `yaml:"engine" json:"engine"`

	// Performance configuration
	Performance PerformanceConfig `yaml:"performance" json:"performance"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Feature flags
	Features map[string]bool `yaml:"features" json:"features"`

	// Metadata
	Version string `yaml:"version" json:"version"`
	Profile string `yaml:"profile" json:"profile"`
}

// EngineConfig contains core step-graph engine settings.
type EngineConfig struct {
	// BatchThreshold is the number of enqueued transforms that triggers an
	// immediate flush (§4.8).
	BatchThreshold int `yaml:"batch_threshold" json:"batch_threshold" default:"100"`

	// FlushInterval is the maximum time a transform may sit in the
	// batched updater's queue before a timer-driven flush (§4.8).
	FlushInterval time.Duration `yaml:"flush_interval" json:"flush_interval" default:"10ms"`

	// OutputFormat controls how cmd/cascade renders the materialized
	// tree: "yaml" or "json".
	OutputFormat string `yaml:"output_format" json:"output_format" default:"yaml"`
	ColorOutput  bool   `yaml:"color_output" json:"color_output" default:"true"`

	// StrictMode is loaded, merged and reported by IsStrict, but the engine
	// does not read it: pkg/cascade warns about and skips a missing-parent
	// operation (§4.8) whatever its value.
	StrictMode bool `yaml:"strict_mode" json:"strict_mode" default:"false"`
}

// PerformanceConfig contains performance tuning settings.
type PerformanceConfig struct {
	Cache       CacheConfig       `yaml:"cache" json:"cache"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" json:"concurrency"`
}

// CacheConfig holds path-hash cache settings (internal/cache), §SPEC_FULL C.3.
// GroupByStep builds its cache from cache.DefaultPathHashCacheConfig and does
// not read these values.
type CacheConfig struct {
	PathHashCacheSize int           `yaml:"path_hash_cache_size" json:"path_hash_cache_size" default:"10000"`
	TTL               time.Duration `yaml:"ttl" json:"ttl" default:"5m"`
}

// ConcurrencyConfig controls the bounded worker pool cmd/cascade uses when
// draining several fixture files concurrently (SPEC_FULL §B).
type ConcurrencyConfig struct {
	MaxWorkers int `yaml:"max_workers" json:"max_workers" default:"0"` // 0 = auto
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level       string `yaml:"level" json:"level" default:"info" env:"CASCADE_LOG_LEVEL"`
	EnableColor bool   `yaml:"enable_color" json:"enable_color" default:"true"`
}

// Manager manages configuration loading, validation, and hot-reloading.
type Manager struct {
	config      *Config
	configPath  string
	mu          sync.RWMutex
	changeHooks []func(*Config)
}

// NewManager creates a new configuration manager with defaults loaded.
func NewManager() *Manager {
	return &Manager{
		config:      DefaultConfig(),
		changeHooks: make([]func(*Config), 0),
	}
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			BatchThreshold: 100,
			FlushInterval:  10 * time.Millisecond,
			OutputFormat:   "yaml",
			ColorOutput:    true,
			StrictMode:     false,
		},
		Performance: PerformanceConfig{
			Cache: CacheConfig{
				PathHashCacheSize: 10000,
				TTL:               5 * time.Minute,
			},
			Concurrency: ConcurrencyConfig{
				MaxWorkers: 0,
			},
		},
		Logging: LoggingConfig{
			Level:       "info",
			EnableColor: true,
		},
		Features: make(map[string]bool),
		Version:  "1.0",
		Profile:  "default",
	}
}

// Load loads configuration from a YAML file, applies environment
// overrides, validates it, and notifies change hooks.
func (m *Manager) Load(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	expandedPath, err := expandPath(path)
	if err != nil {
		return fmt.Errorf("expanding config path: %w", err)
	}

	data, err := os.ReadFile(expandedPath)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	if err := NewLoader().LoadFromEnvironment(config); err != nil {
		return fmt.Errorf("applying environment overrides: %w", err)
	}

	if err := Validate(config); err != nil {
		return fmt.Errorf("validating configuration: %w", err)
	}

	m.config = config
	m.configPath = expandedPath
	m.notifyChangeHooks(config)

	return nil
}

// LoadProfile loads a named configuration profile from profileDir.
func (m *Manager) LoadProfile(profileDir, profileName string) error {
	return m.Load(filepath.Join(profileDir, profileName+".yaml"))
}

// Get returns a copy of the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	configCopy := *m.config
	return &configCopy
}

// Update applies updateFunc to a copy of the configuration, validates it,
// and swaps it in if valid.
func (m *Manager) Update(updateFunc func(*Config)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	configCopy := *m.config
	updateFunc(&configCopy)

	if err := Validate(&configCopy); err != nil {
		return fmt.Errorf("validating updated configuration: %w", err)
	}

	m.config = &configCopy
	m.notifyChangeHooks(&configCopy)

	return nil
}

// OnChange registers a callback invoked (in its own goroutine) whenever
// the configuration changes.
func (m *Manager) OnChange(hook func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.changeHooks = append(m.changeHooks, hook)
}

func (m *Manager) notifyChangeHooks(config *Config) {
	for _, hook := range m.changeHooks {
		go hook(config)
	}
}

// expandPath expands ~ and environment variables in paths.
func expandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, path[1:])
	}
	return os.ExpandEnv(path), nil
}
