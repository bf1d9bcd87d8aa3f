package config

import (
	"testing"
	"time"
)

func TestValidateValidConfig(t *testing.T) {
	cfg := DefaultConfig()
	err := Validate(cfg)
	if err != nil {
		t.Errorf("Valid config should not have validation errors: %v", err)
	}
}

func TestValidateEmptyVersion(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Version = ""

	err := Validate(cfg)
	if err == nil {
		t.Error("Expected validation error for empty version")
	}

	if !containsError(err, "version cannot be empty") {
		t.Errorf("Expected 'version cannot be empty' error, got: %v", err)
	}
}

func TestValidateInvalidOutputFormat(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Engine.OutputFormat = "invalid"

	err := Validate(cfg)
	if err == nil {
		t.Error("Expected validation error for invalid output format")
	}

	if !containsError(err, "must be one of") {
		t.Errorf("Expected 'must be one of' error, got: %v", err)
	}
}

func TestValidateZeroBatchThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Engine.BatchThreshold = 0

	err := Validate(cfg)
	if err == nil {
		t.Error("Expected validation error for zero batch threshold")
	}

	if !containsError(err, "must be greater than 0") {
		t.Errorf("Expected 'must be greater than 0' error, got: %v", err)
	}
}

func TestValidateZeroFlushInterval(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Engine.FlushInterval = 0

	err := Validate(cfg)
	if err == nil {
		t.Error("Expected validation error for zero flush interval")
	}

	if !containsError(err, "must be greater than 0") {
		t.Errorf("Expected 'must be greater than 0' error, got: %v", err)
	}
}

func TestValidateNegativeCacheSize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Performance.Cache.PathHashCacheSize = -1

	err := Validate(cfg)
	if err == nil {
		t.Error("Expected validation error for negative cache size")
	}

	if !containsError(err, "cannot be negative") {
		t.Errorf("Expected 'cannot be negative' error, got: %v", err)
	}
}

func TestValidateNegativeTTL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Performance.Cache.TTL = -1 * time.Second

	err := Validate(cfg)
	if err == nil {
		t.Error("Expected validation error for negative TTL")
	}

	if !containsError(err, "cannot be negative") {
		t.Errorf("Expected 'cannot be negative' error, got: %v", err)
	}
}

func TestValidateNegativeMaxWorkers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Performance.Concurrency.MaxWorkers = -1

	err := Validate(cfg)
	if err == nil {
		t.Error("Expected validation error for negative max workers")
	}

	if !containsError(err, "cannot be negative") {
		t.Errorf("Expected 'cannot be negative' error, got: %v", err)
	}
}

func TestValidateInvalidLogLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Level = "invalid"

	err := Validate(cfg)
	if err == nil {
		t.Error("Expected validation error for invalid log level")
	}

	if !containsError(err, "must be one of") {
		t.Errorf("Expected 'must be one of' error, got: %v", err)
	}
}

func TestValidationErrors(t *testing.T) {
	var errors ValidationErrors
	errors = append(errors, ValidationError{
		Field:   "test1",
		Value:   "value1",
		Message: "error1",
	})
	errors = append(errors, ValidationError{
		Field:   "test2",
		Value:   "value2",
		Message: "error2",
	})

	errorStr := errors.Error()
	if !containsSubstring(errorStr, "test1") {
		t.Error("Error string should contain test1")
	}
	if !containsSubstring(errorStr, "error1") {
		t.Error("Error string should contain error1")
	}
	if !containsSubstring(errorStr, "test2") {
		t.Error("Error string should contain test2")
	}
	if !containsSubstring(errorStr, "error2") {
		t.Error("Error string should contain error2")
	}

	var emptyErrors ValidationErrors
	if emptyErrors.Error() != "" {
		t.Error("Empty validation errors should return empty string")
	}
}

// Helper functions

func containsError(err error, substr string) bool {
	if err == nil {
		return false
	}
	return containsSubstring(err.Error(), substr)
}

func containsSubstring(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
