package config

import (
	"fmt"
	"time"
)

// Config is the root configuration structure
type Config struct {
	Aggregation AggregationConfig `yaml:"aggregation"`
	Sampler     SamplerConfig     `yaml:"sampler"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// AggregationConfig configures one attested sampling round
type AggregationConfig struct {
	Workers        int      `yaml:"workers" env:"ORACLE_WORKERS"`
	Samples        int      `yaml:"samples" env:"ORACLE_SAMPLES"`                 // Samples per worker
	LeadTime       Duration `yaml:"lead_time" env:"ORACLE_LEAD_TIME"`             // Kickoff offset from now
	SampleInterval Duration `yaml:"sample_interval" env:"ORACLE_SAMPLE_INTERVAL"` // Pause between two samples
	WorkerTimeout  Duration `yaml:"worker_timeout" env:"ORACLE_WORKER_TIMEOUT"`   // 0 waits forever
	WorkerBinary   string   `yaml:"worker_binary" env:"ORACLE_WORKER_BINARY"`     // Defaults to the running executable
}

// SamplerConfig selects the price feed every worker samples
type SamplerConfig struct {
	Type   string                 `yaml:"type" env:"ORACLE_SAMPLER_TYPE"`
	Symbol string                 `yaml:"symbol" env:"ORACLE_SYMBOL"`
	Config map[string]interface{} `yaml:"config"`
}

// MetricsConfig configures Prometheus metrics
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled" env:"ORACLE_METRICS_ENABLED"`
	Addr     string `yaml:"addr" env:"ORACLE_METRICS_ADDR"`
	Textfile string `yaml:"textfile" env:"ORACLE_METRICS_TEXTFILE"` // Written once the run ends
}

// LoggingConfig configures logging
type LoggingConfig struct {
	Level  string `yaml:"level" env:"ORACLE_LOG_LEVEL"`
	Format string `yaml:"format" env:"ORACLE_LOG_FORMAT"`
	Output string `yaml:"output" env:"ORACLE_LOG_OUTPUT"`
}

// Duration is a wrapper around time.Duration for YAML and env parsing
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(s))
}

// UnmarshalText implements encoding.TextUnmarshaler, used by env parsing
func (d *Duration) UnmarshalText(text []byte) error {
	td, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = Duration(td)
	return nil
}

// ToDuration converts Duration to time.Duration
func (d Duration) ToDuration() time.Duration {
	return time.Duration(d)
}
