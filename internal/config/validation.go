package config

import (
	"fmt"
	"runtime"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation error: field '%s' with value '%v': %s", e.Field, e.Value, e.Message)
}

// ValidationErrors represents multiple validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}

	var messages []string
	for _, err := range e {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// Validate validates the entire configuration.
func Validate(cfg *Config) error {
	var errors ValidationErrors

	if errs := validateEngine(&cfg.Engine); len(errs) > 0 {
		errors = append(errors, errs...)
	}

	if errs := validatePerformance(&cfg.Performance); len(errs) > 0 {
		errors = append(errors, errs...)
	}

	if errs := validateLogging(&cfg.Logging); len(errs) > 0 {
		errors = append(errors, errs...)
	}

	if cfg.Version == "" {
		errors = append(errors, ValidationError{
			Field:   "version",
			Value:   cfg.Version,
			Message: "version cannot be empty",
		})
	}

	if len(errors) > 0 {
		return errors
	}
	return nil
}

// validateEngine validates the step-graph engine section: batch threshold,
// flush interval, and output format (§4.8, §SPEC_FULL A).
func validateEngine(cfg *EngineConfig) ValidationErrors {
	var errors ValidationErrors

	if cfg.BatchThreshold <= 0 {
		errors = append(errors, ValidationError{
			Field:   "engine.batch_threshold",
			Value:   cfg.BatchThreshold,
			Message: "must be greater than 0",
		})
	}

	if cfg.FlushInterval <= 0 {
		errors = append(errors, ValidationError{
			Field:   "engine.flush_interval",
			Value:   cfg.FlushInterval,
			Message: "must be greater than 0",
		})
	}

	validFormats := []string{"yaml", "json"}
	if !contains(validFormats, cfg.OutputFormat) {
		errors = append(errors, ValidationError{
			Field:   "engine.output_format",
			Value:   cfg.OutputFormat,
			Message: fmt.Sprintf("must be one of: %v", validFormats),
		})
	}

	return errors
}

// validatePerformance validates the cache and concurrency sections.
func validatePerformance(cfg *PerformanceConfig) ValidationErrors {
	var errors ValidationErrors

	if errs := validateCache(&cfg.Cache); len(errs) > 0 {
		errors = append(errors, errs...)
	}

	if errs := validateConcurrency(&cfg.Concurrency); len(errs) > 0 {
		errors = append(errors, errs...)
	}

	return errors
}

// validateCache validates the path-hash cache section.
func validateCache(cfg *CacheConfig) ValidationErrors {
	var errors ValidationErrors

	if cfg.PathHashCacheSize < 0 {
		errors = append(errors, ValidationError{
			Field:   "performance.cache.path_hash_cache_size",
			Value:   cfg.PathHashCacheSize,
			Message: "cannot be negative",
		})
	}

	if cfg.TTL < 0 {
		errors = append(errors, ValidationError{
			Field:   "performance.cache.ttl",
			Value:   cfg.TTL,
			Message: "cannot be negative",
		})
	}

	return errors
}

// validateConcurrency validates the worker pool section, auto-detecting
// CPU count when MaxWorkers is left at 0.
func validateConcurrency(cfg *ConcurrencyConfig) ValidationErrors {
	var errors ValidationErrors

	if cfg.MaxWorkers < 0 {
		errors = append(errors, ValidationError{
			Field:   "performance.concurrency.max_workers",
			Value:   cfg.MaxWorkers,
			Message: "cannot be negative",
		})
	}

	if cfg.MaxWorkers == 0 {
		cfg.MaxWorkers = runtime.NumCPU()
	}

	if cfg.MaxWorkers > runtime.NumCPU()*4 {
		errors = append(errors, ValidationError{
			Field:   "performance.concurrency.max_workers",
			Value:   cfg.MaxWorkers,
			Message: fmt.Sprintf("warning: very high worker count (%d) for %d CPUs", cfg.MaxWorkers, runtime.NumCPU()),
		})
	}

	return errors
}

// validateLogging validates the logging section.
func validateLogging(cfg *LoggingConfig) ValidationErrors {
	var errors ValidationErrors

	validLevels := []string{"trace", "debug", "info", "warn", "error", "fatal"}
	if !contains(validLevels, strings.ToLower(cfg.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   cfg.Level,
			Message: fmt.Sprintf("must be one of: %v", validLevels),
		})
	}

	return errors
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
