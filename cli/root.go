// ABOUTME: Root cobra command, global flags and per-invocation wiring
// ABOUTME: Loads config, builds the zap logger and opens the selected store on demand
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/harperreed/dealdesk/config"
	"github.com/harperreed/dealdesk/crm"
	"github.com/harperreed/dealdesk/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// app carries flag values and the lazily opened store for one invocation.
type app struct {
	version string

	configPath string
	backend    string
	dbPath     string
	seed       bool
	verbose    bool

	logger *zap.Logger
	cfg    *config.Config
	store  store.Store
	svc    *crm.Service
}

// NewRootCommand builds the dealdesk command tree.
func NewRootCommand(version string) *cobra.Command {
	return newRootCommand(&app{version: version})
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "dealdesk",
		Short: "A small CRM for companies, contacts and a deal pipeline",
		Long: `dealdesk tracks companies, the people who work there and the deals
you are running with them. Deals move through lead, negotiation and
closed-won or closed-lost.

Use it from the terminal, serve it over HTTP, open the interactive board
or plug it into an assistant as an MCP server.`,
		Version:       a.version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.teardown()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Config file (default: $XDG_CONFIG_HOME/dealdesk/config.yaml)")
	flags.StringVar(&a.backend, "backend", "", "Storage backend: memory, sqlite, postgres or charm")
	flags.StringVar(&a.dbPath, "db", "", "SQLite database path")
	flags.BoolVar(&a.seed, "seed", false, "Load the demo companies, contacts and deals")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging")

	root.AddCommand(
		newCompanyCmd(a),
		newContactCmd(a),
		newDealCmd(a),
		newPipelineCmd(a),
		newDashboardCmd(a),
		newSearchCmd(a),
		newSeedCmd(a),
		newServeCmd(a),
		newMCPCmd(a),
		newTUICmd(a),
		newVizCmd(a),
		newSyncCmd(a),
	)
	return root
}

// Execute runs the command tree against os.Args.
// The store is closed even when a command fails.
func Execute(version string) {
	a := &app{version: version}
	err := newRootCommand(a).Execute()
	a.teardown()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func (a *app) setup(cmd *cobra.Command) error {
	zcfg := zap.NewProductionConfig()
	if a.verbose {
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := zcfg.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.logger = logger

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.backend != "" {
		cfg.Backend = a.backend
	}
	if a.dbPath != "" {
		cfg.DBPath = a.dbPath
	}
	if a.seed {
		cfg.Seed = true
	}
	if a.verbose {
		cfg.Verbose = true
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	a.cfg = cfg
	return nil
}

func (a *app) teardown() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("failed to close store", zap.Error(err))
		}
		a.store = nil
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// service opens the configured store on first use.
func (a *app) service(ctx context.Context, opts ...crm.Option) (*crm.Service, error) {
	if a.svc != nil {
		return a.svc, nil
	}
	st, err := openStore(ctx, a.cfg, a.logger)
	if err != nil {
		return nil, err
	}
	a.store = st
	a.svc = crm.New(st, append([]crm.Option{crm.WithLogger(a.logger)}, opts...)...)
	return a.svc, nil
}

func out(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}
