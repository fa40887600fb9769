package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"agentgw/costgate/pkg/config"
	"agentgw/costgate/pkg/gateway"
	"agentgw/costgate/pkg/identity"
	"agentgw/costgate/pkg/limits"
	"agentgw/costgate/pkg/limits/enforcement"
	"agentgw/costgate/pkg/limits/ratelimit"
	limitsstorage "agentgw/costgate/pkg/limits/storage"
	"agentgw/costgate/pkg/pricing"
	"agentgw/costgate/pkg/report"
	"agentgw/costgate/pkg/telemetry/health"
	"agentgw/costgate/pkg/telemetry/logging"
	"agentgw/costgate/pkg/telemetry/metrics"
	"agentgw/costgate/pkg/usage"
	"agentgw/costgate/pkg/usage/recorder"
	usagestorage "agentgw/costgate/pkg/usage/storage"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the costgate gateway",
	Long: `Start the costgate gateway with the specified configuration.

The gateway listens on the configured address and runs every completion
request through rate limiting, budget reservation, the provider call, and
usage recording.

Examples:
  # Start with default config
  costgate run

  # Start with custom config
  costgate run --config /etc/costgate/config.yaml

  # Override listen address
  costgate run --listen 0.0.0.0:8080

  # Validate config without starting the gateway
  costgate run --dry-run`,
	RunE: runGateway,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the gateway")
}

func runGateway(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	if _, err := logging.Setup(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.AddSource,
	}); err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}

	if runFlags.dryRun {
		fmt.Println("Configuration valid")
		return nil
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Pricing table and hot-reloadable resolver.
	table, err := cfg.PricingTable()
	if err != nil {
		return fmt.Errorf("failed to load pricing: %w", err)
	}
	resolver := pricing.NewResolver(table)
	slog.Info("pricing loaded", "entries", table.Len())

	m := metrics.New()

	// Limits: limiter + ledger + snapshot persistence + scheduled reset.
	var rateLimitCfg *ratelimit.Config
	if cfg.RateLimit.Enabled == nil || *cfg.RateLimit.Enabled {
		rateLimitCfg = &ratelimit.Config{
			Capacity:       cfg.RateLimit.MaxTokens,
			RefillAmount:   cfg.RateLimit.TokensPerFill,
			RefillInterval: cfg.RateLimit.FillInterval,
			IdleTTL:        cfg.RateLimit.IdleTTL,
		}
	}

	var budgetBackend limitsstorage.Backend
	if cfg.Budget.SnapshotPath != "" {
		backend, err := limitsstorage.NewSQLiteBackend(cfg.Budget.SnapshotPath)
		if err != nil {
			return fmt.Errorf("failed to open budget snapshot store: %w", err)
		}
		budgetBackend = backend
	}

	manager, err := limits.NewManager(ctx, limits.ManagerConfig{
		RateLimit:        rateLimitCfg,
		Ledger:           cfg.BudgetLedgerConfig(),
		Backend:          budgetBackend,
		ResetSchedule:    cfg.Budget.ResetSchedule,
		SnapshotInterval: cfg.Budget.SnapshotInterval,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize limits: %w", err)
	}
	defer func() {
		if err := manager.Close(context.Background()); err != nil {
			slog.Error("limits shutdown error", "error", err)
		}
	}()

	// Usage storage and the async recorder.
	var store usage.Storage
	switch cfg.Usage.Backend {
	case "memory":
		store = usagestorage.NewMemoryStorage()
	default:
		sqliteStore, err := usagestorage.NewSQLiteStorage(&usagestorage.SQLiteConfig{
			Path: cfg.Usage.SQLitePath,
		})
		if err != nil {
			return fmt.Errorf("failed to open usage store: %w", err)
		}
		store = sqliteStore
	}
	defer store.Close()

	rec := recorder.New(store, &recorder.Config{
		AsyncBuffer:  cfg.Usage.AsyncBuffer,
		WriteTimeout: cfg.Usage.WriteTimeout,
		MaxRetries:   cfg.Usage.MaxRetries,
		RetryBackoff: cfg.Usage.RetryBackoff,
	})
	defer rec.Close()

	// Recorder gauges are sampled rather than pushed from the hot path.
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		var lastDropped int64
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.SetRecorderQueueDepth(rec.QueueDepth())
				dropped := rec.Dropped()
				m.AddRecorderDropped(dropped - lastDropped)
				lastDropped = dropped
			}
		}
	}()

	// Bundled simulated providers; real deployments implement
	// gateway.Provider against their upstreams.
	providers, err := buildProviders()
	if err != nil {
		return err
	}

	pipeline, err := gateway.NewPipeline(gateway.PipelineConfig{
		Limiter:   manager.Limiter(),
		Scope:     cfg.RateLimit.Scope,
		Ledger:    manager.Ledger(),
		Resolver:  resolver,
		Enforcer:  enforcement.NewEnforcer(enforcement.Mode(cfg.Enforcement.Mode)),
		Estimator: gateway.NewEstimator(cfg.Estimation.BytesPerToken, cfg.Estimation.MaxOutputTokens),
		Providers: providers,
		Metrics:   m,
		Record:    rec.Record,
	})
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}

	checker := health.New(0)
	checker.RegisterCheck("usage-storage", func(ctx context.Context) error {
		_, err := store.Count(ctx, &usage.Query{Limit: 1})
		return err
	})
	if budgetBackend != nil {
		checker.RegisterCheck("budget-storage", func(ctx context.Context) error {
			_, err := budgetBackend.LoadAccounts(ctx)
			return err
		})
	}

	handler := gateway.NewHandler(gateway.HandlerConfig{
		Pipeline:   pipeline,
		Identities: identity.NewResolver(cfg.Identity.DefaultUser, cfg.Identity.DefaultTeam),
		Aggregator: report.NewAggregator(store),
		Ledger:     manager.Ledger(),
		Enforcer:   enforcement.NewEnforcer(enforcement.Mode(cfg.Enforcement.Mode)),
		Health:     checker,
	})

	// Hot reload of the pricing file.
	if cfg.Pricing.Watch {
		watcher, err := config.NewPricingWatcher(config.PricingWatcherConfig{
			Path: cfg.Pricing.File,
		}, slog.Default())
		if err != nil {
			return fmt.Errorf("failed to create pricing watcher: %w", err)
		}
		go func() {
			err := watcher.Watch(ctx, func() error {
				reloaded, err := config.LoadPricingFile(cfg.Pricing.File)
				if err != nil {
					return err
				}
				resolver.Replace(reloaded)
				slog.Info("pricing reloaded", "entries", reloaded.Len())
				return nil
			})
			if err != nil {
				slog.Error("pricing watcher exited", "error", err)
			}
		}()
		defer watcher.Stop()
	}

	server := gateway.NewServer(cfg.Server, handler.Routes())
	return server.Start(ctx)
}

// buildProviders assembles the bundled simulated providers.
func buildProviders() (map[string]gateway.Provider, error) {
	providers := make(map[string]gateway.Provider, 2)
	for _, name := range []string{"anthropic", "openai"} {
		sim, err := gateway.NewSimulator(gateway.SimulatorConfig{Name: name})
		if err != nil {
			return nil, fmt.Errorf("failed to build provider %q: %w", name, err)
		}
		providers[name] = sim
	}
	return providers, nil
}
