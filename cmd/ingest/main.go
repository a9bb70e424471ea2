// Command ingest runs lens-driven entity ingestion from the command line.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/LarjGit/edinburgh-finds-sub000/internal/config"
	"github.com/LarjGit/edinburgh-finds-sub000/internal/connector"
	"github.com/LarjGit/edinburgh-finds-sub000/internal/core"
	"github.com/LarjGit/edinburgh-finds-sub000/internal/lens"
	"github.com/LarjGit/edinburgh-finds-sub000/internal/orchestrator"
	"github.com/LarjGit/edinburgh-finds-sub000/internal/persist"
	"github.com/LarjGit/edinburgh-finds-sub000/internal/planner"
	"github.com/LarjGit/edinburgh-finds-sub000/internal/queryfeat"
	"github.com/LarjGit/edinburgh-finds-sub000/internal/usage"
	_ "github.com/LarjGit/edinburgh-finds-sub000/pkg/connectors"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ingest",
		Short:         "Lens-driven entity ingestion",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd())
	return root
}

type runFlags struct {
	lensID          string
	mode            string
	connectorName   string
	persistResults  bool
	allowDevLens    bool
	budgetUSD       float64
	minConfidence   float64
	targetEntities  int
	verbose         bool
}

func newRunCmd() *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run <query>",
		Short: "Run one ingestion request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngestion(cmd.Context(), args[0], flags)
		},
	}

	cmd.Flags().StringVar(&flags.lensID, "lens", "", "lens id (overrides LENS_ID)")
	cmd.Flags().StringVar(&flags.mode, "mode", string(core.ModeDiscoverMany), "discover_many or resolve_one")
	cmd.Flags().StringVar(&flags.connectorName, "connector", "", "run a single named connector (diagnostic)")
	cmd.Flags().BoolVar(&flags.persistResults, "persist", false, "persist accepted entities")
	cmd.Flags().BoolVar(&flags.allowDevLens, "allow-default-lens", false, "allow the dev/test fallback lens")
	cmd.Flags().Float64Var(&flags.budgetUSD, "budget", 0, "budget in USD (0 = unbounded)")
	cmd.Flags().Float64Var(&flags.minConfidence, "min-confidence", 0.7, "resolve_one early-stop confidence")
	cmd.Flags().IntVar(&flags.targetEntities, "target", 0, "discover_many early-stop entity count")
	cmd.Flags().BoolVar(&flags.verbose, "verbose", false, "debug logging")
	return cmd
}

func runIngestion(ctx context.Context, query string, flags *runFlags) error {
	cfg := config.Load()
	logger := newLogger(flags.verbose)
	defer logger.Sync()

	mode := core.Mode(flags.mode)
	if mode != core.ModeDiscoverMany && mode != core.ModeResolveOne {
		return core.ConfigError("invalid mode %q", flags.mode)
	}

	registry := connector.DefaultRegistry()

	lensID, err := lens.Resolve(lens.ResolveInput{
		Flag:             flags.lensID,
		Env:              cfg.LensID,
		ConfigDefault:    cfg.DefaultLens,
		AllowDevFallback: flags.allowDevLens,
	}, os.Stderr)
	if err != nil {
		return err
	}

	contract, lensHash, err := lens.Load(cfg.LensRoot, lensID, registry.List())
	if err != nil {
		return err
	}
	execCtx := &core.ExecutionContext{LensID: lensID, Lens: contract, LensHash: lensHash}

	req := &core.IngestionRequest{
		Query:             query,
		LensID:            lensID,
		Mode:              mode,
		BudgetUSD:         flags.budgetUSD,
		MinConfidence:     flags.minConfidence,
		TargetEntityCount: flags.targetEntities,
		Persist:           flags.persistResults,
		Connector:         flags.connectorName,
	}

	warnMissingKeys(req, contract, registry)

	usageStore, pool := newUsageStore(ctx, cfg, logger)
	if pool != nil {
		defer pool.Close()
	}

	started := time.Now()
	o := orchestrator.New(registry, usageStore, logger)
	state, err := o.Run(ctx, req, execCtx)
	if err != nil {
		return err
	}

	if req.Persist {
		if err := persistRun(ctx, cfg, state, execCtx, registry, logger, started); err != nil {
			return err
		}
	}

	return printReport(state.Report)
}

// warnMissingKeys surfaces missing API keys for planned connectors upfront.
func warnMissingKeys(req *core.IngestionRequest, contract *lens.Contract, registry *connector.Registry) {
	features := queryfeat.Extract(req.Query, req, contract.Keywords)
	plan := planner.Select(req, features, contract, registry)
	for _, spec := range plan.Adapters {
		env := spec.Metadata.RequiredEnv
		if env != "" && os.Getenv(env) == "" {
			fmt.Fprintf(os.Stderr, "warning: connector %s needs %s, which is not set\n", spec.Name, env)
		}
	}
}

// newUsageStore prefers the database-backed counter so daily limits survive
// restarts; without DATABASE_URL it degrades to per-process counting.
func newUsageStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (usage.Store, *pgxpool.Pool) {
	if cfg.DatabaseURL == "" {
		return usage.NewMemory(), nil
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Warn("usage counters fall back to memory", zap.Error(err))
		return usage.NewMemory(), nil
	}
	return persist.NewPgxUsageStore(pool), pool
}

// persistRun wires the persistence pipeline against Postgres.
func persistRun(ctx context.Context, cfg *config.Config, state *core.State, execCtx *core.ExecutionContext, registry *connector.Registry, logger *zap.Logger, started time.Time) error {
	if cfg.DatabaseURL == "" {
		return core.ConfigError("--persist requires DATABASE_URL")
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return core.ConfigError("open database: %v", err)
	}
	defer db.Close()

	store, err := persist.NewPostgresStore(db)
	if err != nil {
		return core.ConfigError("prepare database: %v", err)
	}

	var sink persist.PayloadSink
	if cfg.MinioEndpoint != "" {
		objectSink, err := persist.NewObjectSink(ctx, persist.ObjectSinkConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			logger.Warn("object sink disabled", zap.Error(err))
		} else {
			sink = objectSink
		}
	}

	pipe := persist.NewPipeline(store, persist.NewRawStore(cfg.DataRoot, sink, logger), logger,
		persist.WithTrust(func(source string) int {
			if reg, ok := registry.Get(source); ok {
				return reg.Metadata.TrustLevel
			}
			return 0
		}))
	return pipe.Persist(ctx, state, execCtx, started)
}

// printReport pretty-prints the run report to stdout.
func printReport(report *core.Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func newLogger(verbose bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.OutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
