package main

import (
	"fmt"

	"github.com/StrathCole/oracle-attest/pkg/config"
	"github.com/StrathCole/oracle-attest/pkg/logging"
)

// loadConfig loads and validates configuration, applying the global
// flag overrides.
func loadConfig(flags *globalFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// initLogging initializes the global logger. Workers own stdout for their
// payload, so their logs are moved to stderr unless a file is configured.
func initLogging(cfg config.LoggingConfig, isWorker bool) (*logging.Logger, error) {
	output := cfg.Output
	if isWorker && (output == "" || output == "stdout") {
		output = "stderr"
	}

	logger, err := logging.Init(cfg.Level, cfg.Format, output)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logging.SetGlobal(logger)
	return logger, nil
}
