package pager

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds simulator configuration
type Config struct {
	// Memory Configuration
	NumFrames uint32 `json:"num_frames"` // Physical frames available to the trace
	Policy    string `json:"policy"`     // Replacement policy (nru)

	// Sweeper Configuration
	SweepEnabled    bool   `json:"sweep_enabled"`     // Run the reference-bit sweeper
	SweepIntervalUs uint32 `json:"sweep_interval_us"` // Sweeper period in microseconds

	// Engine Configuration
	PacingBatch   uint32 `json:"pacing_batch"`    // References between voluntary pauses
	PacingPauseUs uint32 `json:"pacing_pause_us"` // Pause length in microseconds (0 = yield)

	// Observability Configuration
	EnableMetrics bool   `json:"enable_metrics"` // Log metrics after each run
	LogLevel      string `json:"log_level"`      // Log level (debug, info, warn, error)
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		NumFrames:       4,
		Policy:          "nru",
		SweepEnabled:    true,
		SweepIntervalUs: 1000, // 1ms, one clock interrupt
		PacingBatch:     10000,
		PacingPauseUs:   1000,
		EnableMetrics:   true,
		LogLevel:        "info",
	}
}

// SweepInterval returns the sweeper period
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalUs) * time.Microsecond
}

// PacingPause returns the engine pause length
func (c *Config) PacingPause() time.Duration {
	return time.Duration(c.PacingPauseUs) * time.Microsecond
}

// LoadConfigFromFile loads configuration from a JSON file
func LoadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	err = json.Unmarshal(data, config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// LoadDotEnv loads variables from .env style files into the process
// environment. Missing files are ignored; variables already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}

	for _, p := range paths {
		err := godotenv.Load(p)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}

	return nil
}

// LoadConfigFromEnv loads configuration from environment variables
// Falls back to default values if environment variables are not set
func LoadConfigFromEnv() *Config {
	return ApplyEnv(DefaultConfig())
}

// ApplyEnv overrides fields of config from HEXPAGER_* environment variables
func ApplyEnv(config *Config) *Config {
	// Memory
	if val := os.Getenv("HEXPAGER_NUM_FRAMES"); val != "" {
		if n, err := strconv.ParseUint(val, 10, 32); err == nil {
			config.NumFrames = uint32(n)
		}
	}

	if val := os.Getenv("HEXPAGER_POLICY"); val != "" {
		config.Policy = val
	}

	// Sweeper
	if val := os.Getenv("HEXPAGER_SWEEP_ENABLED"); val != "" {
		config.SweepEnabled = val == "true" || val == "1"
	}

	if val := os.Getenv("HEXPAGER_SWEEP_INTERVAL_US"); val != "" {
		if n, err := strconv.ParseUint(val, 10, 32); err == nil {
			config.SweepIntervalUs = uint32(n)
		}
	}

	// Engine
	if val := os.Getenv("HEXPAGER_PACING_BATCH"); val != "" {
		if n, err := strconv.ParseUint(val, 10, 32); err == nil {
			config.PacingBatch = uint32(n)
		}
	}

	if val := os.Getenv("HEXPAGER_PACING_PAUSE_US"); val != "" {
		if n, err := strconv.ParseUint(val, 10, 32); err == nil {
			config.PacingPauseUs = uint32(n)
		}
	}

	// Observability
	if val := os.Getenv("HEXPAGER_ENABLE_METRICS"); val != "" {
		config.EnableMetrics = val == "true" || val == "1"
	}

	if val := os.Getenv("HEXPAGER_LOG_LEVEL"); val != "" {
		config.LogLevel = val
	}

	return config
}

// SaveToFile saves the configuration to a JSON file
func (c *Config) SaveToFile(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	err = os.WriteFile(path, data, 0644)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.NumFrames == 0 {
		return ErrInvalidConfig("Validate", "number of frames must be greater than 0")
	}

	if _, err := NewReplacementPolicy(c.Policy); err != nil {
		return err
	}

	if c.SweepEnabled && c.SweepIntervalUs == 0 {
		return ErrInvalidConfig("Validate", "sweep interval must be greater than 0 when the sweeper is enabled")
	}

	if c.PacingBatch == 0 {
		return ErrInvalidConfig("Validate", "pacing batch must be greater than 0")
	}

	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return ErrInvalidConfig("Validate", err.Error())
	}

	return nil
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}
