package config

import "runtime"

// GetFeature returns whether a feature is enabled.
func (c *Config) GetFeature(name string) bool {
	if c.Features == nil {
		return false
	}
	return c.Features[name]
}

// SetFeature sets a feature flag.
func (c *Config) SetFeature(name string, enabled bool) {
	if c.Features == nil {
		c.Features = make(map[string]bool)
	}
	c.Features[name] = enabled
}

// IsStrict reports Engine.StrictMode. Nothing in the engine calls it (see
// StrictMode).
func (c *Config) IsStrict() bool {
	return c.Engine.StrictMode
}

// GetEffectiveWorkers returns the configured worker count, or
// runtime.NumCPU() when left at its 0 "auto" default.
func (c *Config) GetEffectiveWorkers() int {
	if c.Performance.Concurrency.MaxWorkers <= 0 {
		return runtime.NumCPU()
	}
	return c.Performance.Concurrency.MaxWorkers
}
