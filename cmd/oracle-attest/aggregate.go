package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/StrathCole/oracle-attest/pkg/config"
	"github.com/StrathCole/oracle-attest/pkg/coordinator"
	"github.com/StrathCole/oracle-attest/pkg/logging"
	"github.com/StrathCole/oracle-attest/pkg/metrics"
)

func newAggregateCmd(flags *globalFlags) *cobra.Command {
	var (
		workers int
		times   int
		lead    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Spawn workers and print the verified consensus price",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("workers") {
				cfg.Aggregation.Workers = workers
			}
			if cmd.Flags().Changed("times") {
				cfg.Aggregation.Samples = times
			}
			if cmd.Flags().Changed("lead") {
				cfg.Aggregation.LeadTime = config.Duration(lead)
			}

			logger, err := initLogging(cfg.Logging, false)
			if err != nil {
				return err
			}
			logger.Info("Starting oracle-attest",
				"version", cmd.Root().Version,
				"symbol", cfg.Sampler.Symbol,
				"sampler", cfg.Sampler.Type,
			)

			if cfg.Metrics.Enabled {
				metrics.Init()
				if cfg.Metrics.Addr != "" {
					go func() {
						logger.Info("Starting metrics server", "addr", cfg.Metrics.Addr)
						if err := metrics.ServeHTTP(cfg.Metrics.Addr); err != nil {
							logger.Error("Metrics server failed", "error", err)
						}
					}()
				}
			}

			factory, err := workerCommand(cfg, flags)
			if err != nil {
				return err
			}

			coord, err := coordinator.New(coordinator.Config{
				Symbol:        cfg.Sampler.Symbol,
				LeadTime:      cfg.Aggregation.LeadTime.ToDuration(),
				WorkerTimeout: cfg.Aggregation.WorkerTimeout.ToDuration(),
				Command:       factory,
				Stderr:        os.Stderr,
				Logger:        logger,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			run, runErr := coord.RunAggregation(ctx, cfg.Aggregation.Workers, cfg.Aggregation.Samples)
			if run != nil {
				reportOutcomes(logger, run)
			}

			if cfg.Metrics.Enabled && cfg.Metrics.Textfile != "" {
				if err := metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
					logger.Warn("Failed to write metrics textfile", "path", cfg.Metrics.Textfile, "error", err)
				}
			}

			if runErr != nil {
				return runErr
			}

			line, _ := run.PriceLine()
			fmt.Fprintln(cmd.OutOrStdout(), line)
			return nil
		},
	}

	cmd.Flags().IntVar(&workers, "workers", config.DefaultWorkers, "Number of worker processes")
	cmd.Flags().IntVar(&times, "times", config.DefaultSamples, "Samples per worker")
	cmd.Flags().DurationVar(&lead, "lead", config.DefaultLeadTime, "Delay between spawning workers and kickoff")

	return cmd
}

// workerCommand builds the worker factory, re-invoking this binary unless
// another one is configured, and forwarding the global flags.
func workerCommand(cfg *config.Config, flags *globalFlags) (coordinator.CommandFactory, error) {
	binary := cfg.Aggregation.WorkerBinary
	if binary == "" {
		self, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("failed to locate worker binary: %w", err)
		}
		binary = self
	}

	var args []string
	if flags.configFile != "" {
		args = append(args, "--config", flags.configFile)
	}
	if flags.logLevel != "" {
		args = append(args, "--log-level", flags.logLevel)
	}

	return coordinator.WorkerCommand(binary, args...), nil
}

func reportOutcomes(logger *logging.Logger, run *coordinator.AggregationRun) {
	for _, o := range run.Outcomes {
		status := string(o.Status)
		if o.Status == coordinator.OutcomePending {
			status = "pending"
		}
		logger.Info("Worker outcome",
			"run", run.ID,
			"worker", o.Worker,
			"status", status,
			"address", o.Address,
			"mean", o.Mean,
			"reason", o.Reason,
		)
	}
}
