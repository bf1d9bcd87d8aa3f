package config

import (
	"os"
	"testing"
	"time"
)

func TestNewLoader(t *testing.T) {
	loader := NewLoader()
	if loader == nil {
		t.Error("Expected loader to be created")
	}
	if loader.envPrefix != "CASCADE_" {
		t.Errorf("Expected env prefix 'CASCADE_', got '%s'", loader.envPrefix)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	os.Setenv("CASCADE_LOG_LEVEL", "debug")
	os.Setenv("CASCADE_ENGINE_OUTPUT_FORMAT", "json")
	os.Setenv("CASCADE_FEATURES_TEST_FEATURE", "true")
	os.Setenv("CASCADE_FEATURES_ANOTHER_FEATURE", "false")

	defer func() {
		os.Unsetenv("CASCADE_LOG_LEVEL")
		os.Unsetenv("CASCADE_ENGINE_OUTPUT_FORMAT")
		os.Unsetenv("CASCADE_FEATURES_TEST_FEATURE")
		os.Unsetenv("CASCADE_FEATURES_ANOTHER_FEATURE")
	}()

	cfg := DefaultConfig()
	loader := NewLoader()

	err := loader.LoadFromEnvironment(cfg)
	if err != nil {
		t.Fatalf("Unexpected error loading from environment: %v", err)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("Expected log level 'debug', got '%s'", cfg.Logging.Level)
	}

	if cfg.Engine.OutputFormat != "json" {
		t.Errorf("Expected output format 'json', got '%s'", cfg.Engine.OutputFormat)
	}

	if !cfg.Features["test_feature"] {
		t.Error("Expected test_feature to be true")
	}

	if cfg.Features["another_feature"] {
		t.Error("Expected another_feature to be false")
	}
}

func TestMergeConfigs(t *testing.T) {
	base := DefaultConfig()
	base.Engine.OutputFormat = "yaml"
	base.Performance.Cache.PathHashCacheSize = 1000
	base.Features = map[string]bool{"feature1": true}

	overlay1 := &Config{
		Engine: EngineConfig{
			OutputFormat: "json",
		},
		Performance: PerformanceConfig{
			Cache: CacheConfig{
				PathHashCacheSize: 2000,
			},
		},
		Features: map[string]bool{"feature2": true},
	}

	overlay2 := &Config{
		Performance: PerformanceConfig{
			Concurrency: ConcurrencyConfig{
				MaxWorkers: 8,
			},
		},
		Features: map[string]bool{"feature1": false},
		Version:  "2.0",
	}

	result := MergeConfigs(base, overlay1, overlay2)

	if result.Engine.OutputFormat != "json" {
		t.Errorf("Expected output format 'json', got '%s'", result.Engine.OutputFormat)
	}

	if result.Performance.Cache.PathHashCacheSize != 2000 {
		t.Errorf("Expected path hash cache size 2000, got %d", result.Performance.Cache.PathHashCacheSize)
	}

	if result.Performance.Concurrency.MaxWorkers != 8 {
		t.Errorf("Expected max workers 8, got %d", result.Performance.Concurrency.MaxWorkers)
	}

	if result.Version != "2.0" {
		t.Errorf("Expected version '2.0', got '%s'", result.Version)
	}

	if result.Features["feature1"] {
		t.Error("Expected feature1 to be false (overridden)")
	}

	if !result.Features["feature2"] {
		t.Error("Expected feature2 to be true")
	}
}

func TestMergeConfigsWithNil(t *testing.T) {
	base := DefaultConfig()
	base.Engine.OutputFormat = "yaml"

	result := MergeConfigs(base, nil, nil)

	if result.Engine.OutputFormat != base.Engine.OutputFormat {
		t.Error("Output format should be preserved when merging with nil")
	}

	if result.Version != base.Version {
		t.Error("Version should be preserved when merging with nil")
	}
}

func TestMergeCache(t *testing.T) {
	base := &CacheConfig{
		PathHashCacheSize: 1000,
		TTL:               5 * time.Minute,
	}

	overlay := &CacheConfig{
		PathHashCacheSize: 2000,
		TTL:               10 * time.Minute,
	}

	mergeCache(base, overlay)

	if base.PathHashCacheSize != 2000 {
		t.Errorf("Expected path hash cache size 2000, got %d", base.PathHashCacheSize)
	}

	if base.TTL != 10*time.Minute {
		t.Errorf("Expected TTL 10m, got %v", base.TTL)
	}
}

func TestMergeConcurrency(t *testing.T) {
	base := &ConcurrencyConfig{
		MaxWorkers: 4,
	}

	overlay := &ConcurrencyConfig{
		MaxWorkers: 8,
	}

	mergeConcurrency(base, overlay)

	if base.MaxWorkers != 8 {
		t.Errorf("Expected max workers 8, got %d", base.MaxWorkers)
	}
}

func TestMergeLogging(t *testing.T) {
	base := &LoggingConfig{
		Level:       "info",
		EnableColor: false,
	}

	overlay := &LoggingConfig{
		Level:       "debug",
		EnableColor: true,
	}

	mergeLogging(base, overlay)

	if base.Level != "debug" {
		t.Errorf("Expected log level 'debug', got '%s'", base.Level)
	}

	if !base.EnableColor {
		t.Error("Expected EnableColor to be true")
	}
}
