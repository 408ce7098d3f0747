// Package binance provides samplers for the Binance WebSocket and REST APIs.
package binance

import (
	"github.com/StrathCole/oracle-attest/pkg/sampler"
)

func init() {
	sampler.Register("binance_ws", NewWSSampler)
	sampler.Register("binance_rest", NewRESTSampler)
}
