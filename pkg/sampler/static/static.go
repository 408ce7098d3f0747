// Package static provides a fixed-price sampler for dry runs and tests.
package static

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/StrathCole/oracle-attest/pkg/sampler"
)

// Sampler returns configured prices, cycling through "prices" when given
// or repeating "price" forever.
type Sampler struct {
	*sampler.Base
	prices []decimal.Decimal
	next   int
	mu     sync.Mutex
	closed bool
}

func init() {
	sampler.Register("static", New)
}

// New creates a static sampler from config keys "price" or "prices"
func New(config map[string]interface{}) (sampler.Sampler, error) {
	symbol, err := sampler.GetSymbolFromConfig(config)
	if err != nil {
		return nil, err
	}

	var prices []decimal.Decimal
	if raw, ok := config["prices"]; ok {
		list, ok := raw.([]interface{})
		if !ok || len(list) == 0 {
			return nil, fmt.Errorf("%w: prices must be a non-empty list", sampler.ErrInvalidConfig)
		}
		for i, item := range list {
			p, err := toDecimal(item)
			if err != nil {
				return nil, fmt.Errorf("prices[%d]: %w", i, err)
			}
			prices = append(prices, p)
		}
	} else if raw, ok := config["price"]; ok {
		p, err := toDecimal(raw)
		if err != nil {
			return nil, fmt.Errorf("price: %w", err)
		}
		prices = []decimal.Decimal{p}
	} else {
		return nil, fmt.Errorf("%w: price or prices is required", sampler.ErrInvalidConfig)
	}

	return &Sampler{
		Base:   sampler.NewBase("static", symbol, sampler.GetLoggerFromConfig(config)),
		prices: prices,
	}, nil
}

func toDecimal(v interface{}) (decimal.Decimal, error) {
	switch p := v.(type) {
	case float64:
		return sampler.PriceFromFloat(p)
	case int:
		return decimal.NewFromInt(int64(p)), nil
	case string:
		return sampler.ParsePrice(p)
	default:
		return decimal.Zero, fmt.Errorf("%w: unsupported type %T", sampler.ErrInvalidPrice, v)
	}
}

// Sample returns the next configured price
func (s *Sampler) Sample(ctx context.Context) (sampler.Observation, error) {
	if err := ctx.Err(); err != nil {
		return sampler.Observation{}, fmt.Errorf("%w: %w", sampler.ErrSamplerUnavailable, err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return sampler.Observation{}, fmt.Errorf("%w: %w", sampler.ErrSamplerUnavailable, sampler.ErrSamplerClosed)
	}
	price := s.prices[s.next%len(s.prices)]
	s.next++
	s.mu.Unlock()

	return s.Record(price, time.Now()), nil
}

// Close marks the sampler closed
func (s *Sampler) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
