package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Loader handles configuration loading from various sources.
type Loader struct {
	envPrefix string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		envPrefix: "CASCADE_",
	}
}

// LoadFromEnvironment loads configuration from environment variables.
func (l *Loader) LoadFromEnvironment(cfg *Config) error {
	return l.applyEnvOverrides(reflect.ValueOf(cfg).Elem(), "")
}

// applyEnvOverrides recursively applies environment variable overrides.
func (l *Loader) applyEnvOverrides(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		// Skip unexported fields
		if !field.CanSet() {
			continue
		}

		// Get the env tag
		envTag := fieldType.Tag.Get("env")

		// Build the environment variable name
		var envName string
		if envTag != "" {
			envName = envTag
		} else {
			// Auto-generate env name from field path, preferring the YAML
			// key (output_format -> OUTPUT_FORMAT) over the Go field name
			fieldName := strings.ToUpper(fieldType.Name)
			if yamlKey := strings.Split(fieldType.Tag.Get("yaml"), ",")[0]; yamlKey != "" && yamlKey != "-" {
				fieldName = strings.ToUpper(yamlKey)
			}
			if prefix != "" {
				envName = l.envPrefix + prefix + "_" + fieldName
			} else {
				envName = l.envPrefix + fieldName
			}
		}

		// Handle different field types
		switch field.Kind() {
		case reflect.Struct:
			// Recursively process nested structs
			newPrefix := prefix
			if newPrefix != "" {
				newPrefix += "_"
			}
			newPrefix += strings.ToUpper(fieldType.Name)
			if err := l.applyEnvOverrides(field, newPrefix); err != nil {
				return err
			}

		case reflect.String:
			if value := os.Getenv(envName); value != "" {
				field.SetString(value)
			}

		case reflect.Bool:
			if value := os.Getenv(envName); value != "" {
				boolVal, err := strconv.ParseBool(value)
				if err != nil {
					return fmt.Errorf("parsing bool from %s: %w", envName, err)
				}
				field.SetBool(boolVal)
			}

		case reflect.Int, reflect.Int64:
			if value := os.Getenv(envName); value != "" {
				// time.Duration has Kind Int64; parse it as a duration string
				if field.Type() == reflect.TypeOf(time.Duration(0)) {
					duration, err := time.ParseDuration(value)
					if err != nil {
						return fmt.Errorf("parsing duration from %s: %w", envName, err)
					}
					field.Set(reflect.ValueOf(duration))
					continue
				}
				intVal, err := strconv.ParseInt(value, 10, 64)
				if err != nil {
					return fmt.Errorf("parsing int from %s: %w", envName, err)
				}
				field.SetInt(intVal)
			}

		case reflect.Float64:
			if value := os.Getenv(envName); value != "" {
				floatVal, err := strconv.ParseFloat(value, 64)
				if err != nil {
					return fmt.Errorf("parsing float from %s: %w", envName, err)
				}
				field.SetFloat(floatVal)
			}

		case reflect.Map:
			// Handle map[string]bool for feature flags
			if fieldType.Name == "Features" {
				l.loadFeaturesFromEnv(field, envName)
			}
		}
	}

	return nil
}

// loadFeaturesFromEnv loads feature flags from environment variables, e.g.
// CASCADE_FEATURES_STRICTORDER=true.
func (l *Loader) loadFeaturesFromEnv(field reflect.Value, prefix string) {
	environ := os.Environ()
	featurePrefix := prefix + "_"

	if field.IsNil() {
		field.Set(reflect.MakeMap(field.Type()))
	}

	for _, env := range environ {
		if strings.HasPrefix(env, featurePrefix) {
			parts := strings.SplitN(env, "=", 2)
			if len(parts) == 2 {
				featureName := strings.ToLower(strings.TrimPrefix(parts[0], featurePrefix))
				if value, err := strconv.ParseBool(parts[1]); err == nil {
					field.SetMapIndex(reflect.ValueOf(featureName), reflect.ValueOf(value))
				}
			}
		}
	}
}

// MergeConfigs merges multiple configurations, with later configs taking
// precedence over earlier ones.
func MergeConfigs(base *Config, overlays ...*Config) *Config {
	result := *base // Start with a copy of base

	for _, overlay := range overlays {
		if overlay == nil {
			continue
		}

		mergeEngine(&result.Engine, &overlay.Engine)
		mergePerformance(&result.Performance, &overlay.Performance)
		mergeLogging(&result.Logging, &overlay.Logging)

		if overlay.Features != nil {
			if result.Features == nil {
				result.Features = make(map[string]bool)
			}
			for k, v := range overlay.Features {
				result.Features[k] = v
			}
		}

		if overlay.Version != "" {
			result.Version = overlay.Version
		}
		if overlay.Profile != "" {
			result.Profile = overlay.Profile
		}
	}

	return &result
}

func mergeEngine(base, overlay *EngineConfig) {
	if overlay.OutputFormat != "" {
		base.OutputFormat = overlay.OutputFormat
	}
	if overlay.BatchThreshold > 0 {
		base.BatchThreshold = overlay.BatchThreshold
	}
	if overlay.FlushInterval > 0 {
		base.FlushInterval = overlay.FlushInterval
	}
	base.ColorOutput = overlay.ColorOutput
	base.StrictMode = overlay.StrictMode
}

func mergePerformance(base, overlay *PerformanceConfig) {
	mergeCache(&base.Cache, &overlay.Cache)
	mergeConcurrency(&base.Concurrency, &overlay.Concurrency)
}

func mergeCache(base, overlay *CacheConfig) {
	if overlay.PathHashCacheSize > 0 {
		base.PathHashCacheSize = overlay.PathHashCacheSize
	}
	if overlay.TTL > 0 {
		base.TTL = overlay.TTL
	}
}

func mergeConcurrency(base, overlay *ConcurrencyConfig) {
	if overlay.MaxWorkers > 0 {
		base.MaxWorkers = overlay.MaxWorkers
	}
}

func mergeLogging(base, overlay *LoggingConfig) {
	if overlay.Level != "" {
		base.Level = overlay.Level
	}
	base.EnableColor = overlay.EnableColor
}
