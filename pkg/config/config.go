package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultWorkers matches the five children of a classic round.
	DefaultWorkers = 5
	// DefaultSamples is the number of prices each worker averages.
	DefaultSamples = 10
	// DefaultLeadTime must exceed worker spawn latency.
	DefaultLeadTime = 3 * time.Second
	// DefaultSampleInterval is the fixed cadence between two samples.
	DefaultSampleInterval = time.Second
	// DefaultSymbol is the pair sampled when none is configured.
	DefaultSymbol = "BTCUSDT"
	// DefaultSamplerType is the sampler used when none is configured.
	DefaultSamplerType = "binance_ws"
)

// Load loads configuration from an optional YAML file, then applies
// ORACLE_* environment overrides. An empty path skips the file. Defaults are
// set first, so a value given explicitly, zero included, is kept and left
// for Validate to judge.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		cleanPath := filepath.Clean(path)
		absPath, err := filepath.Abs(cleanPath)
		if err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}

		data, err := os.ReadFile(absPath) // #nosec G304 -- Path sanitized with filepath.Clean and filepath.Abs
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		// Expand environment variables in YAML
		expanded := os.ExpandEnv(string(data))

		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	applyDerivedDefaults(&cfg)

	return &cfg, nil
}

// defaultConfig returns the configuration used when nothing is set.
func defaultConfig() Config {
	return Config{
		Aggregation: AggregationConfig{
			Workers:        DefaultWorkers,
			Samples:        DefaultSamples,
			LeadTime:       Duration(DefaultLeadTime),
			SampleInterval: Duration(DefaultSampleInterval),
		},
		Sampler: SamplerConfig{
			Type:   DefaultSamplerType,
			Symbol: DefaultSymbol,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyDerivedDefaults fills values that depend on other settings.
func applyDerivedDefaults(cfg *Config) {
	if cfg.Sampler.Config == nil {
		cfg.Sampler.Config = make(map[string]interface{})
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9091"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

// GetString retrieves a string value from the sampler configuration.
func (sc *SamplerConfig) GetString(key, defaultValue string) string {
	if val, ok := sc.Config[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return defaultValue
}

// GetFloat retrieves a number from sampler config. YAML may decode it as int.
func (sc *SamplerConfig) GetFloat(key string, defaultValue float64) float64 {
	switch v := sc.Config[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return defaultValue
}

// GetDuration retrieves a duration string such as "10s" from sampler config.
func (sc *SamplerConfig) GetDuration(key string, defaultValue time.Duration) time.Duration {
	if str, ok := sc.Config[key].(string); ok {
		if d, err := time.ParseDuration(str); err == nil {
			return d
		}
	}
	return defaultValue
}

// Options flattens the sampler section into the map handed to sampler factories.
func (sc *SamplerConfig) Options() map[string]interface{} {
	opts := make(map[string]interface{}, len(sc.Config)+1)
	for k, v := range sc.Config {
		opts[k] = v
	}
	opts["symbol"] = sc.Symbol
	return opts
}
