package sampler

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/StrathCole/oracle-attest/pkg/logging"
)

// GetLoggerFromConfig extracts logger from config map or returns a noop logger.
func GetLoggerFromConfig(config map[string]interface{}) *logging.Logger {
	if loggerInterface, ok := config["logger"]; ok {
		if logger, ok := loggerInterface.(*logging.Logger); ok {
			return logger
		}
	}
	return logging.NewNoopLogger()
}

// GetSymbolFromConfig returns the configured symbol in upper case.
func GetSymbolFromConfig(config map[string]interface{}) (string, error) {
	symbol, _ := config["symbol"].(string)
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return "", fmt.Errorf("%w: symbol is required", ErrInvalidConfig)
	}
	return symbol, nil
}

// GetString returns config[key] as a string, or defaultValue.
func GetString(config map[string]interface{}, key, defaultValue string) string {
	if s, ok := config[key].(string); ok && s != "" {
		return s
	}
	return defaultValue
}

// GetInt returns config[key] as an int, or defaultValue.
func GetInt(config map[string]interface{}, key string, defaultValue int) int {
	switch v := config[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return defaultValue
}

// GetDuration parses config[key] as a duration string, or returns defaultValue.
func GetDuration(config map[string]interface{}, key string, defaultValue time.Duration) (time.Duration, error) {
	raw, ok := config[key]
	if !ok {
		return defaultValue, nil
	}
	s, ok := raw.(string)
	if !ok {
		return 0, fmt.Errorf("%w: %s must be a duration string", ErrInvalidConfig, key)
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, key, err)
	}
	return d, nil
}

// ParsePrice parses a feed's decimal price string. Feeds quote prices as
// strings, so parsing straight into a decimal keeps every digit.
func ParsePrice(s string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q: %w", ErrInvalidPrice, s, err)
	}
	return price, nil
}

// PriceFromFloat converts a float price, rejecting NaN and infinities.
func PriceFromFloat(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, fmt.Errorf("%w: %v is not finite", ErrInvalidPrice, f)
	}
	return decimal.NewFromFloat(f), nil
}
