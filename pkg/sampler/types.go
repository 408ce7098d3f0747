package sampler

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Observation is one price taken from a feed
type Observation struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
	Source    string          `json:"source"`
}

// Sampler is the price feed a worker polls. Implementations are opaque to
// the worker: one call, one finite price, or an error.
type Sampler interface {
	// Sample requests a single observation
	Sample(ctx context.Context) (Observation, error)

	// Name returns the unique name of this sampler
	Name() string

	// Close releases connections held by the sampler
	Close() error
}

// Factory is a function that creates a new Sampler instance
type Factory func(config map[string]interface{}) (Sampler, error)
