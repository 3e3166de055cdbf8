// Command warehouse extracts, transforms, and loads Libra/0L archive data
// into a graph datawarehouse.
package main

import (
	"fmt"
	"os"

	"github.com/0lnetwork/graphwarehouse/internal/config"
	"github.com/0lnetwork/graphwarehouse/internal/logging"
	"github.com/0lnetwork/graphwarehouse/internal/metrics"
	"github.com/spf13/cobra"
)

// globalFlags holds the top-level flags shared by every subcommand.
type globalFlags struct {
	dbURI      string
	dbUsername string
	dbPassword string
	clearQueue bool
	threads    int
	logLevel   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "warehouse",
		Short:         "Extract, transform, and load data into a graph datawarehouse",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Init(flags.logLevel)
		},
	}

	root.PersistentFlags().StringVarP(&flags.dbURI, "db-uri", "r", "", "URI of graphDB e.g. neo4j+s://localhost:7687")
	root.PersistentFlags().StringVarP(&flags.dbUsername, "db-username", "u", "", "username of db")
	root.PersistentFlags().StringVarP(&flags.dbPassword, "db-password", "p", "", "db password")
	root.PersistentFlags().BoolVarP(&flags.clearQueue, "clear-queue", "q", false, "force clear queue")
	root.PersistentFlags().IntVarP(&flags.threads, "threads", "t", 0, "max tasks to run in parallel")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(
		newIngestAllCmd(flags),
		newLoadOneCmd(flags),
		newCheckCmd(flags),
		newEnrichExchangeCmd(flags),
		newEnrichExchangeOnrampCmd(flags),
		newEnrichWhitepagesCmd(flags),
		newVersionFiveTxCmd(flags),
		newAnalyticsCmd(flags),
	)
	return root
}

// resolveConfig builds a complete Config from the global flags and
// environment, applying defaults for anything left unset.
func (f *globalFlags) resolveConfig() (config.Config, error) {
	creds, err := config.ResolveCredentials(f.dbURI, f.dbUsername, f.dbPassword)
	if err != nil {
		return config.Config{}, err
	}
	cfg := config.Config{
		Credentials: creds,
		Threads:     f.threads,
		ClearQueue:  f.clearQueue,
		Logging:     config.LoggingConfig{Level: f.logLevel},
		Metrics:     metrics.Config{Enabled: false},
	}
	cfg.ApplyDefaults()
	return cfg, nil
}
