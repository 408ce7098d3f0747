// Package config provides configuration loading and validation for oracle-attest.
package config

import "errors"

var (
	// ErrInvalidWorkers indicates that the worker count is below one.
	ErrInvalidWorkers = errors.New("aggregation.workers must be >= 1")
	// ErrInvalidSamples indicates that the per-worker sample count is below one.
	ErrInvalidSamples = errors.New("aggregation.samples must be >= 1")
	// ErrNegativeDuration indicates that a duration setting is negative.
	ErrNegativeDuration = errors.New("duration must be >= 0")
	// ErrSamplerTypeRequired indicates that sampler.type is missing.
	ErrSamplerTypeRequired = errors.New("sampler.type must be specified")
	// ErrInvalidSamplerType indicates that the sampler type is unknown.
	ErrInvalidSamplerType = errors.New("invalid sampler.type")
	// ErrSymbolRequired indicates that sampler.symbol is missing.
	ErrSymbolRequired = errors.New("sampler.symbol must be specified")
	// ErrInvalidLogLevel indicates that the log level is invalid.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidLogFormat indicates that the log format is invalid.
	ErrInvalidLogFormat = errors.New("invalid log format")
)
