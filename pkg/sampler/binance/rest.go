package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/StrathCole/oracle-attest/pkg/sampler"
	"github.com/StrathCole/oracle-attest/pkg/version"
)

const (
	binanceBaseURL = "https://api.binance.com"
	binanceTimeout = 10 * time.Second
)

// RESTSampler polls the Binance /api/v3/ticker/price endpoint
type RESTSampler struct {
	*sampler.Base
	apiURL string
	client *http.Client
}

// PriceTicker represents the /ticker/price response for one symbol
type PriceTicker struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// NewRESTSampler creates a Binance REST sampler
func NewRESTSampler(config map[string]interface{}) (sampler.Sampler, error) {
	logger := sampler.GetLoggerFromConfig(config)

	symbol, err := sampler.GetSymbolFromConfig(config)
	if err != nil {
		return nil, err
	}

	timeout, err := sampler.GetDuration(config, "timeout", binanceTimeout)
	if err != nil {
		return nil, err
	}

	return &RESTSampler{
		Base:   sampler.NewBase("binance_rest", symbol, logger),
		apiURL: sampler.GetString(config, "api_url", binanceBaseURL),
		client: &http.Client{Timeout: timeout},
	}, nil
}

// Sample fetches the current ticker price
func (s *RESTSampler) Sample(ctx context.Context) (sampler.Observation, error) {
	obs, err := s.fetchPrice(ctx)
	if err != nil {
		s.SetHealthy(false)
		return sampler.Observation{}, fmt.Errorf("%w: %w", sampler.ErrSamplerUnavailable, err)
	}
	return obs, nil
}

func (s *RESTSampler) fetchPrice(ctx context.Context) (sampler.Observation, error) {
	endpoint := s.apiURL + "/api/v3/ticker/price?symbol=" + url.QueryEscape(s.Symbol())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return sampler.Observation{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", version.AgentString())

	resp, err := s.client.Do(req)
	if err != nil {
		return sampler.Observation{}, fmt.Errorf("failed to fetch price: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return sampler.Observation{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return sampler.Observation{}, fmt.Errorf("%w: %d: %s", sampler.ErrUnexpectedStatus, resp.StatusCode, string(body))
	}

	var ticker PriceTicker
	if err := json.Unmarshal(body, &ticker); err != nil {
		return sampler.Observation{}, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if ticker.Symbol != "" && ticker.Symbol != s.Symbol() {
		return sampler.Observation{}, fmt.Errorf("%w: want %s, got %s", sampler.ErrSymbolMismatch, s.Symbol(), ticker.Symbol)
	}

	price, err := sampler.ParsePrice(ticker.Price)
	if err != nil {
		return sampler.Observation{}, err
	}

	return s.Record(price, time.Now()), nil
}

// Close releases idle HTTP connections
func (s *RESTSampler) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
