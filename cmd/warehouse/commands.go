package main

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/0lnetwork/graphwarehouse/internal/config"
	"github.com/0lnetwork/graphwarehouse/internal/exchange"
	"github.com/0lnetwork/graphwarehouse/internal/graph"
	"github.com/0lnetwork/graphwarehouse/internal/logging"
	"github.com/0lnetwork/graphwarehouse/internal/onramp"
	"github.com/0lnetwork/graphwarehouse/internal/pipeline"
	"github.com/0lnetwork/graphwarehouse/internal/queue"
	"github.com/0lnetwork/graphwarehouse/internal/rescue"
	"github.com/0lnetwork/graphwarehouse/internal/whitepages"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const defaultBatchSize = 250

func effectiveBatchSize(n int) int {
	if n <= 0 {
		return defaultBatchSize
	}
	return n
}

// connectStore resolves credentials, opens a graph connection, and
// ensures the warehouse's uniqueness constraints exist before any command
// touches the store.
func connectStore(ctx context.Context, cfg config.Config) (*graph.Store, error) {
	store, err := graph.Connect(ctx, graph.Credentials{
		URI:      cfg.Credentials.URI,
		Username: cfg.Credentials.Username,
		Password: cfg.Credentials.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to graph store: %w", err)
	}
	if err := store.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}
	return store, nil
}

func newIngestAllCmd(flags *globalFlags) *cobra.Command {
	var startPath string
	var archiveContent string
	var batchSize int

	cmd := &cobra.Command{
		Use:   "ingest-all",
		Short: "scans sub directories for archive bundles",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.resolveConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			store, err := connectStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close(ctx)

			q := queue.New(store)
			orch := pipeline.NewOrchestrator(pipeline.NewDefaultScanner(), store, q)
			results, err := orch.IngestAll(ctx, startPath, effectiveBatchSize(batchSize), cfg.ClearQueue)
			if err != nil {
				return err
			}
			logging.L().Info("ingest-all complete", zap.Int("archives", len(results)))
			fmt.Printf("SUCCESS: %d archives processed\n", len(results))
			return nil
		},
	}
	cmd.Flags().StringVarP(&startPath, "start-path", "d", "", "path to start crawling from")
	cmd.Flags().StringVarP(&archiveContent, "archive-content", "c", "", "type of content to load (informational; content kind is auto-detected per manifest)")
	cmd.Flags().IntVarP(&batchSize, "batch-size", "b", 0, "size of each batch to load")
	cmd.MarkFlagRequired("start-path")
	return cmd
}

func newLoadOneCmd(flags *globalFlags) *cobra.Command {
	var archiveDir string
	var batchSize int

	cmd := &cobra.Command{
		Use:   "load-one",
		Short: "process and load a single archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.resolveConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			store, err := connectStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close(ctx)

			q := queue.New(store)
			orch := pipeline.NewOrchestrator(pipeline.NewDefaultScanner(), store, q)
			c, err := orch.LoadOne(ctx, archiveDir, effectiveBatchSize(batchSize))
			if err != nil {
				return err
			}
			fmt.Printf("SUCCESS: loaded %s (%s)\n", c.ArchiveID, c.Kind)
			return nil
		},
	}
	cmd.Flags().StringVarP(&archiveDir, "archive-dir", "d", "", "location of archive")
	cmd.Flags().IntVarP(&batchSize, "batch-size", "b", 0, "size of each batch to load")
	cmd.MarkFlagRequired("archive-dir")
	return cmd
}

func newCheckCmd(flags *globalFlags) *cobra.Command {
	var archiveDir string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "check archive is valid and can be decoded",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.resolveConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			store, err := connectStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close(ctx)

			q := queue.New(store)
			orch := pipeline.NewOrchestrator(pipeline.NewDefaultScanner(), store, q)
			info, err := orch.Check(ctx, archiveDir)
			if err != nil {
				return err
			}
			fmt.Printf("SUCCESS: %s decodes as %s (%s)\n", info.ArchiveID, info.Kind, info.FrameworkVersion)
			return nil
		},
	}
	cmd.Flags().StringVarP(&archiveDir, "archive-dir", "d", "", "location of archive")
	cmd.MarkFlagRequired("archive-dir")
	return cmd
}

func newEnrichExchangeCmd(flags *globalFlags) *cobra.Command {
	var exchangeJSON string
	var batchSize int

	cmd := &cobra.Command{
		Use:   "enrich-exchange",
		Short: "add supporting data in addition to chain records",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.resolveConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			store, err := connectStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close(ctx)

			orders, err := exchange.ParseOrdersFile(exchangeJSON)
			if err != nil {
				return err
			}
			loader := exchange.NewLoader(store)
			counters, err := loader.LoadOrders(ctx, orders, effectiveBatchSize(batchSize))
			if err != nil {
				return err
			}
			fmt.Printf("SUCCESS: %d swaps merged, %d ignored\n", counters.MergedTxCount, counters.IgnoredTxCount)
			return nil
		},
	}
	cmd.Flags().StringVar(&exchangeJSON, "exchange-json", "", "file with swap records")
	cmd.Flags().IntVarP(&batchSize, "batch-size", "b", 0, "size of each batch to load")
	cmd.MarkFlagRequired("exchange-json")
	return cmd
}

func newEnrichExchangeOnrampCmd(flags *globalFlags) *cobra.Command {
	var onboardingJSON string

	cmd := &cobra.Command{
		Use:   "enrich-exchange-onramp",
		Short: "link an onboarding address to an exchange ID",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.resolveConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			store, err := connectStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close(ctx)

			entries, err := onramp.ParseFile(onboardingJSON)
			if err != nil {
				return err
			}
			merged, err := onramp.NewLoader(store).Load(ctx, entries)
			if err != nil {
				return err
			}
			fmt.Printf("SUCCESS: %d exchange onramp accounts linked\n", merged)
			return nil
		},
	}
	cmd.Flags().StringVar(&onboardingJSON, "onboarding-json", "", "file with onboarding accounts")
	cmd.MarkFlagRequired("onboarding-json")
	return cmd
}

func newEnrichWhitepagesCmd(flags *globalFlags) *cobra.Command {
	var ownerJSON string

	cmd := &cobra.Command{
		Use:   "enrich-whitepages",
		Short: "map owners of accounts from json file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.resolveConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			store, err := connectStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close(ctx)

			entries, err := whitepages.ParseFile(ownerJSON)
			if err != nil {
				return err
			}
			merged, err := whitepages.NewLoader(store).Load(ctx, entries)
			if err != nil {
				return err
			}
			fmt.Printf("SUCCESS: %d owner accounts linked\n", merged)
			return nil
		},
	}
	cmd.Flags().StringVar(&ownerJSON, "owner-json", "", "file with owner map")
	cmd.MarkFlagRequired("owner-json")
	return cmd
}

func newVersionFiveTxCmd(flags *globalFlags) *cobra.Command {
	var archiveDir string

	cmd := &cobra.Command{
		Use:   "version-five-tx",
		Short: "rescue legacy V5 JSON transaction archives",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.resolveConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			store, err := connectStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close(ctx)

			q := queue.New(store)
			orch := pipeline.NewOrchestrator(pipeline.NewDefaultScanner(), store, q)

			rescueCfg := rescue.PipelineConfig{}
			rescueCfg.ApplyDefaults(runtime.NumCPU())
			if cfg.Threads > 0 {
				rescueCfg.ParseLimit = int64(cfg.Threads)
			}

			total, err := orch.VersionFiveTx(ctx, archiveDir, rescueCfg, defaultBatchSize)
			if err != nil {
				return err
			}
			fmt.Printf("SUCCESS: %d V5 transactions processed\n", total)
			return nil
		},
	}
	cmd.Flags().StringVarP(&archiveDir, "archive-dir", "d", "", "starting path for v5 .tgz files")
	cmd.MarkFlagRequired("archive-dir")
	return cmd
}

func newAnalyticsCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "run offline analytics against the warehouse",
	}
	cmd.AddCommand(newAnalyticsExchangeRMSCmd(flags))
	return cmd
}

func newAnalyticsExchangeRMSCmd(flags *globalFlags) *cobra.Command {
	var commit bool

	cmd := &cobra.Command{
		Use:   "exchange-rms",
		Short: "recompute RMS price statistics across all recorded swaps",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.resolveConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			store, err := connectStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close(ctx)

			logging.L().Info("exchange rms", zap.Bool("commit", commit))
			results, err := exchange.ExchangeStats(ctx, store, cfg.Threads)
			if err != nil {
				return err
			}
			b, err := json.MarshalIndent(results, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal rms results: %w", err)
			}
			fmt.Println(string(b))
			return nil
		},
	}
	cmd.Flags().BoolVar(&commit, "commit", false, "commits the analytics to the db")
	return cmd
}
