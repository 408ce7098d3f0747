package sampler

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/StrathCole/oracle-attest/pkg/logging"
)

// Base provides common functionality for all samplers
type Base struct {
	name     string
	symbol   string
	last     Observation
	lastMu   sync.RWMutex
	healthy  bool
	healthMu sync.RWMutex
	logger   *logging.Logger
}

// NewBase creates a new base sampler for one symbol
func NewBase(name, symbol string, logger *logging.Logger) *Base {
	if logger == nil {
		logger = logging.NewNoopLogger()
	}
	return &Base{
		name:   name,
		symbol: symbol,
		logger: logger.With("sampler", name, "symbol", symbol),
	}
}

// Name returns the sampler name
func (b *Base) Name() string {
	return b.name
}

// Symbol returns the sampled symbol
func (b *Base) Symbol() string {
	return b.symbol
}

// IsHealthy reports whether the last sample succeeded
func (b *Base) IsHealthy() bool {
	b.healthMu.RLock()
	defer b.healthMu.RUnlock()
	return b.healthy
}

// SetHealthy sets the health status
func (b *Base) SetHealthy(healthy bool) {
	b.healthMu.Lock()
	defer b.healthMu.Unlock()
	b.healthy = healthy
}

// Record stores a successful observation and returns it
func (b *Base) Record(price decimal.Decimal, timestamp time.Time) Observation {
	obs := Observation{
		Symbol:    b.symbol,
		Price:     price,
		Timestamp: timestamp,
		Source:    b.name,
	}

	b.lastMu.Lock()
	b.last = obs
	b.lastMu.Unlock()

	b.SetHealthy(true)
	return obs
}

// Last returns the most recent observation, if any
func (b *Base) Last() (Observation, bool) {
	b.lastMu.RLock()
	defer b.lastMu.RUnlock()
	return b.last, !b.last.Timestamp.IsZero()
}

// Logger returns the logger
func (b *Base) Logger() *logging.Logger {
	return b.logger
}
