package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/StrathCole/oracle-attest/pkg/kickoff"
	"github.com/StrathCole/oracle-attest/pkg/metrics"
	"github.com/StrathCole/oracle-attest/pkg/sampler"
	"github.com/StrathCole/oracle-attest/pkg/worker"
)

func newWorkerCmd(flags *globalFlags) *cobra.Command {
	var (
		ts    uint64
		times int
		id    int
	)

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run a single attested sampling round",
		Long: `Wait for the kickoff, sample the configured feed, and write the
signed mean to stdout as public key, signature and decimal text. Normally
spawned by aggregate.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}

			logger, err := initLogging(cfg.Logging, true)
			if err != nil {
				return err
			}
			logger = logger.With("worker", id)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			opts := cfg.Sampler.Options()
			opts["logger"] = logger
			s, err := sampler.Create(cfg.Sampler.Type, opts)
			if err != nil {
				logger.Error("Failed to create sampler", "type", cfg.Sampler.Type, "error", err)
				return err
			}
			defer s.Close()

			w := worker.New(s, worker.Config{
				Interval: cfg.Aggregation.SampleInterval.ToDuration(),
				Logger:   logger,
			})

			_, runErr := w.Execute(ctx, cmd.OutOrStdout(), kickoff.Timestamp(ts), times)

			if cfg.Metrics.Enabled && cfg.Metrics.Textfile != "" {
				path := metrics.WorkerTextfilePath(cfg.Metrics.Textfile, id)
				if err := metrics.WriteWorkerTextfile(path, id); err != nil {
					logger.Warn("Failed to write metrics textfile", "path", path, "error", err)
				}
			}

			if runErr != nil {
				logger.Error("Worker failed", "error", runErr)
				return runErr
			}
			return nil
		},
	}

	cmd.Flags().Uint64Var(&ts, "kickoff", 0, "Kickoff time in seconds since the Unix epoch")
	cmd.Flags().IntVar(&times, "times", 0, "Number of samples to average")
	cmd.Flags().IntVar(&id, "id", 0, "Worker index, for logs only")
	_ = cmd.MarkFlagRequired("kickoff")
	_ = cmd.MarkFlagRequired("times")

	return cmd
}
