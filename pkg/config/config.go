// Package config handles cypherfn configuration from environment variables
// and YAML files.
//
// Configuration starts from DefaultConfig(), is optionally overlaid with a
// YAML file, and finally with CYPHERFN_* environment variables, so the
// environment always wins. This keeps Docker/K8s deployments simple while
// still allowing a checked-in config file.
//
// Example Usage:
//
//	cfg, err := config.Load("./cypherfn.yaml")
//	if err != nil {
//		log.Fatalf("Invalid config: %v", err)
//	}
//	reg := functions.DefaultRegistry()
//	if err := reg.ApplyOverrides(cfg.Functions.Enabled); err != nil {
//		log.Fatal(err)
//	}
//
// Environment Variables:
//
//	CYPHERFN_DATA_DIR                     - Property store directory (default: ./data)
//	CYPHERFN_STORAGE_IN_MEMORY            - Use an in-memory store (default: false)
//	CYPHERFN_STORAGE_SYNC_WRITES          - fsync every write (default: false)
//	CYPHERFN_STORAGE_LOW_MEMORY           - Smaller Badger caches (default: true)
//	CYPHERFN_BATCH_WORKERS                - Parallel calls during batch coercion (default: 8)
//	CYPHERFN_BATCH_FUNCTION               - Default batch function (default: toIntegerOrNull)
//	CYPHERFN_BATCH_WRITE                  - Write converted values back (default: false)
//	CYPHERFN_LOG_LEVEL                    - DEBUG, INFO, WARN, ERROR (default: INFO)
//	CYPHERFN_FUNCTION_<NAME>_ENABLED      - Enable/disable one function, e.g.
//	                                        CYPHERFN_FUNCTION_TOINTEGERLIST_ENABLED=false
//
// YAML:
//
//	functions:
//	  enabled:
//	    toIntegerList: false
//	storage:
//	  data_dir: /var/lib/cypherfn
//	batch:
//	  workers: 16
//	logging:
//	  level: DEBUG
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("config: invalid configuration")

const (
	envPrefix         = "CYPHERFN_"
	envFunctionPrefix = "CYPHERFN_FUNCTION_"
	envFunctionSuffix = "_ENABLED"
)

// Config holds all cypherfn configuration.
//
// Sections:
//   - Functions: per-function enable/disable overrides
//   - Storage: property store settings
//   - Batch: batch coercion settings
//   - Logging: log level
type Config struct {
	Functions FunctionsConfig `yaml:"functions"`
	Storage   StorageConfig   `yaml:"storage"`
	Batch     BatchConfig     `yaml:"batch"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// FunctionsConfig controls which registered functions may be invoked.
type FunctionsConfig struct {
	// Enabled maps function names (case-insensitive) to on/off.
	// Functions not listed keep their registry default.
	Enabled map[string]bool `yaml:"enabled"`
}

// StorageConfig holds property store settings.
type StorageConfig struct {
	// DataDir is the Badger directory
	DataDir string `yaml:"data_dir"`
	// InMemory selects the in-memory engine instead of Badger
	InMemory bool `yaml:"in_memory"`
	// SyncWrites forces fsync after each write
	SyncWrites bool `yaml:"sync_writes"`
	// LowMemory shrinks Badger memtables and caches
	LowMemory bool `yaml:"low_memory"`
}

// BatchConfig holds batch coercion settings.
type BatchConfig struct {
	// Workers bounds concurrent function calls
	Workers int `yaml:"workers"`
	// Function is the default function applied by `cypherfn coerce`
	Function string `yaml:"function"`
	// Write stores converted values back instead of only reporting
	Write bool `yaml:"write"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level (DEBUG, INFO, WARN, ERROR)
	Level string `yaml:"level"`
}

var logLevels = map[string]int{
	"DEBUG": 0,
	"INFO":  1,
	"WARN":  2,
	"ERROR": 3,
}

// Enabled reports whether messages at level should be logged.
//
//	LoggingConfig{Level: "WARN"}.Enabled("INFO")  // false
//	LoggingConfig{Level: "WARN"}.Enabled("ERROR") // true
func (l LoggingConfig) Enabled(level string) bool {
	current, ok := logLevels[strings.ToUpper(l.Level)]
	if !ok {
		current = logLevels["INFO"]
	}
	want, ok := logLevels[strings.ToUpper(level)]
	if !ok {
		return false
	}
	return want >= current
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Functions: FunctionsConfig{Enabled: map[string]bool{}},
		Storage: StorageConfig{
			DataDir:   "./data",
			LowMemory: true,
		},
		Batch: BatchConfig{
			Workers:  8,
			Function: "toIntegerOrNull",
		},
		Logging: LoggingConfig{Level: "INFO"},
	}
}

// LoadFromEnv returns DefaultConfig overlaid with CYPHERFN_* variables.
//
// Example:
//
//	os.Setenv("CYPHERFN_BATCH_WORKERS", "32")
//	cfg := config.LoadFromEnv()
//	// cfg.Batch.Workers == 32
func LoadFromEnv() *Config {
	cfg := DefaultConfig()
	cfg.applyEnv()
	return cfg
}

// LoadConfig reads a YAML file over DefaultConfig. The environment is not
// consulted; use Load for the full precedence chain.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if cfg.Functions.Enabled == nil {
		cfg.Functions.Enabled = map[string]bool{}
	}
	return cfg, nil
}

// Load builds the effective configuration: defaults, then the YAML file at
// path (skipped when path is empty), then the environment. The result is
// validated.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		fileCfg, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Storage.DataDir = getEnv(envPrefix+"DATA_DIR", c.Storage.DataDir)
	c.Storage.InMemory = getEnvBool(envPrefix+"STORAGE_IN_MEMORY", c.Storage.InMemory)
	c.Storage.SyncWrites = getEnvBool(envPrefix+"STORAGE_SYNC_WRITES", c.Storage.SyncWrites)
	c.Storage.LowMemory = getEnvBool(envPrefix+"STORAGE_LOW_MEMORY", c.Storage.LowMemory)

	c.Batch.Workers = getEnvInt(envPrefix+"BATCH_WORKERS", c.Batch.Workers)
	c.Batch.Function = getEnv(envPrefix+"BATCH_FUNCTION", c.Batch.Function)
	c.Batch.Write = getEnvBool(envPrefix+"BATCH_WRITE", c.Batch.Write)

	c.Logging.Level = strings.ToUpper(getEnv(envPrefix+"LOG_LEVEL", c.Logging.Level))

	if c.Functions.Enabled == nil {
		c.Functions.Enabled = map[string]bool{}
	}
	for _, kv := range os.Environ() {
		key, val, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, envFunctionPrefix) || !strings.HasSuffix(key, envFunctionSuffix) {
			continue
		}
		name := strings.TrimSuffix(strings.TrimPrefix(key, envFunctionPrefix), envFunctionSuffix)
		if name == "" {
			continue
		}
		c.Functions.Enabled[strings.ToLower(name)] = parseBool(val, true)
	}
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if !c.Storage.InMemory && c.Storage.DataDir == "" {
		return fmt.Errorf("%w: data directory required unless storage is in-memory", ErrInvalidConfig)
	}
	if c.Batch.Workers <= 0 {
		return fmt.Errorf("%w: batch workers must be positive, got %d", ErrInvalidConfig, c.Batch.Workers)
	}
	if c.Batch.Function == "" {
		return fmt.Errorf("%w: batch function must be set", ErrInvalidConfig)
	}
	if _, ok := logLevels[strings.ToUpper(c.Logging.Level)]; !ok {
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, c.Logging.Level)
	}
	return nil
}

// String returns a one-line summary suitable for logging.
func (c *Config) String() string {
	storage := c.Storage.DataDir
	if c.Storage.InMemory {
		storage = "memory"
	}
	return fmt.Sprintf(
		"Config{Storage: %s, Workers: %d, Function: %s, Write: %v, Log: %s, Overrides: %d}",
		storage, c.Batch.Workers, c.Batch.Function, c.Batch.Write, c.Logging.Level, len(c.Functions.Enabled),
	)
}

// Helper functions for environment variable parsing

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return parseBool(val, defaultVal)
	}
	return defaultVal
}

// parseBool parses a boolean from string with a default value.
func parseBool(s string, defaultVal bool) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return defaultVal
	}
}
