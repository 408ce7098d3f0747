package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/StrathCole/oracle-attest/pkg/version"

	// Import samplers to register them
	_ "github.com/StrathCole/oracle-attest/pkg/sampler/binance"
	_ "github.com/StrathCole/oracle-attest/pkg/sampler/static"
)

// globalFlags are shared by every subcommand and forwarded to workers
type globalFlags struct {
	configFile string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "oracle-attest",
		Short: "Attested multi-worker price aggregation",
		Long: `oracle-attest samples a price feed from several independent worker
processes. Each worker signs its average with an ephemeral key; the
coordinator verifies every signature before averaging the averages.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&flags.configFile, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Override the configured log level")

	rootCmd.AddCommand(
		newAggregateCmd(flags),
		newWorkerCmd(flags),
		newVersionCmd(),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("oracle-attest version %s\n", version.Version)
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
