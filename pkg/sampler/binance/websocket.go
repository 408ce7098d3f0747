package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/StrathCole/oracle-attest/pkg/sampler"
	ws "github.com/StrathCole/oracle-attest/pkg/sampler/websocket"
)

const (
	binanceWSAPIURL  = "wss://ws-api.binance.com:443/ws-api/v3"
	binanceWSTimeout = 10 * time.Second
)

// WSSampler queries the Binance WebSocket API ticker.price method, one
// request per sample over a single long-lived connection.
type WSSampler struct {
	*sampler.Base
	url    string
	client *ws.Client
}

// wsRequest is a Binance WebSocket API request frame
type wsRequest struct {
	ID     string            `json:"id"`
	Method string            `json:"method"`
	Params map[string]string `json:"params"`
}

// wsResponse is a Binance WebSocket API response frame
type wsResponse struct {
	ID     string `json:"id"`
	Status int    `json:"status"`
	Result *struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	} `json:"result"`
	Error *struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	} `json:"error"`
}

// NewWSSampler creates a Binance WebSocket API sampler
func NewWSSampler(config map[string]interface{}) (sampler.Sampler, error) {
	logger := sampler.GetLoggerFromConfig(config)

	symbol, err := sampler.GetSymbolFromConfig(config)
	if err != nil {
		return nil, err
	}

	timeout, err := sampler.GetDuration(config, "timeout", binanceWSTimeout)
	if err != nil {
		return nil, err
	}

	base := sampler.NewBase("binance_ws", symbol, logger)
	url := sampler.GetString(config, "url", binanceWSAPIURL)

	return &WSSampler{
		Base: base,
		url:  url,
		client: ws.NewClient(ws.Config{
			URL:        url,
			MaxRetries: sampler.GetInt(config, "max_retries", 3),
			ReadWait:   timeout,
			WriteWait:  timeout,
			Logger:     base.Logger().ZerologLogger(),
		}),
	}, nil
}

// Sample sends one ticker.price request and parses the reply
func (s *WSSampler) Sample(ctx context.Context) (sampler.Observation, error) {
	if !s.client.IsConnected() {
		if err := s.client.ConnectWithRetry(ctx); err != nil {
			s.SetHealthy(false)
			return sampler.Observation{}, fmt.Errorf("%w: connect %s: %w", sampler.ErrSamplerUnavailable, s.url, err)
		}
	}

	req := wsRequest{
		ID:     uuid.NewString(),
		Method: "ticker.price",
		Params: map[string]string{"symbol": s.Symbol()},
	}

	raw, err := s.client.Call(ctx, req, func(msg []byte) bool {
		var probe struct {
			ID string `json:"id"`
		}
		return json.Unmarshal(msg, &probe) == nil && probe.ID == req.ID
	})
	if err != nil {
		s.SetHealthy(false)
		return sampler.Observation{}, fmt.Errorf("%w: %w", sampler.ErrSamplerUnavailable, err)
	}

	obs, err := s.parseResponse(raw)
	if err != nil {
		s.SetHealthy(false)
		return sampler.Observation{}, fmt.Errorf("%w: %w", sampler.ErrSamplerUnavailable, err)
	}
	return obs, nil
}

func (s *WSSampler) parseResponse(raw []byte) (sampler.Observation, error) {
	var resp wsResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return sampler.Observation{}, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if resp.Error != nil {
		return sampler.Observation{}, fmt.Errorf("%w: %d: code %d: %s", sampler.ErrUnexpectedStatus, resp.Status, resp.Error.Code, resp.Error.Msg)
	}
	if resp.Status != 200 || resp.Result == nil {
		return sampler.Observation{}, fmt.Errorf("%w: %d", sampler.ErrUnexpectedStatus, resp.Status)
	}
	if resp.Result.Symbol != "" && resp.Result.Symbol != s.Symbol() {
		return sampler.Observation{}, fmt.Errorf("%w: want %s, got %s", sampler.ErrSymbolMismatch, s.Symbol(), resp.Result.Symbol)
	}

	price, err := sampler.ParsePrice(resp.Result.Price)
	if err != nil {
		return sampler.Observation{}, err
	}

	return s.Record(price, time.Now()), nil
}

// Close closes the WebSocket connection
func (s *WSSampler) Close() error {
	return s.client.Close()
}
