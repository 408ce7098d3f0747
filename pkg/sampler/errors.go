// Package sampler provides the price feed interface workers sample from.
package sampler

import "errors"

var (
	// ErrSamplerUnavailable indicates that no observation could be obtained.
	ErrSamplerUnavailable = errors.New("sampler unavailable")
	// ErrUnknownSampler indicates that no factory is registered for the type.
	ErrUnknownSampler = errors.New("unknown sampler")
	// ErrInvalidConfig indicates that the sampler configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrInvalidPrice indicates a price that is not a finite decimal.
	ErrInvalidPrice = errors.New("invalid price")
	// ErrUnexpectedStatus indicates an unexpected HTTP or API status code.
	ErrUnexpectedStatus = errors.New("unexpected status code")
	// ErrSymbolMismatch indicates a response for a different symbol.
	ErrSymbolMismatch = errors.New("response symbol mismatch")
	// ErrSamplerClosed indicates use after Close.
	ErrSamplerClosed = errors.New("sampler closed")
)
