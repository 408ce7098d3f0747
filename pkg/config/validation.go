package config

import (
	"fmt"
	"strings"
)

// Validate checks configuration for errors
func Validate(cfg *Config) error {
	if err := validateAggregationConfig(&cfg.Aggregation); err != nil {
		return fmt.Errorf("aggregation config: %w", err)
	}

	if err := validateSamplerConfig(&cfg.Sampler); err != nil {
		return fmt.Errorf("sampler config: %w", err)
	}

	if err := validateLoggingConfig(&cfg.Logging); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

func validateAggregationConfig(cfg *AggregationConfig) error {
	// Both counts are divisors later on
	if cfg.Workers < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidWorkers, cfg.Workers)
	}
	if cfg.Samples < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidSamples, cfg.Samples)
	}

	durations := map[string]Duration{
		"lead_time":       cfg.LeadTime,
		"sample_interval": cfg.SampleInterval,
		"worker_timeout":  cfg.WorkerTimeout,
	}
	for name, d := range durations {
		if d < 0 {
			return fmt.Errorf("%s: %w", name, ErrNegativeDuration)
		}
	}

	return nil
}

func validateSamplerConfig(cfg *SamplerConfig) error {
	if cfg.Type == "" {
		return ErrSamplerTypeRequired
	}

	validTypes := []string{"binance_ws", "binance_rest", "static"}
	typeValid := false
	for _, t := range validTypes {
		if strings.ToLower(cfg.Type) == t {
			typeValid = true
			break
		}
	}
	if !typeValid {
		return fmt.Errorf("%w: %s (must be one of: %s)", ErrInvalidSamplerType, cfg.Type, strings.Join(validTypes, ", "))
	}

	if cfg.Symbol == "" {
		return ErrSymbolRequired
	}

	return nil
}

func validateLoggingConfig(cfg *LoggingConfig) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	levelValid := false
	for _, l := range validLevels {
		if strings.ToLower(cfg.Level) == l {
			levelValid = true
			break
		}
	}
	if !levelValid {
		return fmt.Errorf("%w: %s (must be one of: %s)", ErrInvalidLogLevel, cfg.Level, strings.Join(validLevels, ", "))
	}

	format := strings.ToLower(cfg.Format)
	if format != "json" && format != "text" {
		return fmt.Errorf("%w: %s (must be 'json' or 'text')", ErrInvalidLogFormat, cfg.Format)
	}

	return nil
}
