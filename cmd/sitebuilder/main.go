package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/espython/website-builder/internal/platform/config"
	"github.com/espython/website-builder/internal/platform/observability"
	"github.com/espython/website-builder/internal/services"
)

// Populated through -ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
)

const closeTimeout = 15 * time.Second

type rootOptions struct {
	envFile    string
	backend    string
	sqlitePath string
	verbose    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "sitebuilder",
		Short:         "Section based website builder",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file with SITEBUILDER_ overrides")
	root.PersistentFlags().StringVar(&opts.backend, "backend", "", "state backend: memory, sqlite or firestore")
	root.PersistentFlags().StringVar(&opts.sqlitePath, "sqlite-path", "", "SQLite database path for the sqlite backend")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log to stderr from one-shot commands")

	root.AddCommand(
		newServeCmd(opts),
		newProjectsCmd(opts),
		newExportCmd(opts),
		newImportCmd(opts),
		newRenderCmd(opts),
		newTemplatesCmd(opts),
	)
	return root
}

func (o *rootOptions) loadConfig(ctx context.Context) (config.Config, error) {
	overrides := map[string]string{}
	if backend := strings.TrimSpace(o.backend); backend != "" {
		overrides["SITEBUILDER_STORAGE_BACKEND"] = backend
	}
	if path := strings.TrimSpace(o.sqlitePath); path != "" {
		overrides["SITEBUILDER_STORAGE_SQLITE_PATH"] = path
	}
	return config.Load(ctx, config.WithEnvFile(o.envFile), config.WithEnvMap(overrides))
}

// open builds the application. Servers log through the configured logger;
// one-shot commands stay quiet unless verbose so their stdout remains usable.
func (o *rootOptions) open(ctx context.Context, server bool) (*app, error) {
	cfg, err := o.loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	logger := zap.NewNop()
	switch {
	case server:
		logger, err = observability.NewLogger(cfg.Log)
	case o.verbose:
		logCfg := cfg.Log
		logCfg.Development = true
		logger, err = observability.NewLogger(logCfg)
	}
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	logger = logger.Named("sitebuilder")

	build := services.BuildInfo{
		Version:     version,
		CommitSHA:   commit,
		Environment: cfg.Security.Environment,
		StartedAt:   time.Now().UTC(),
	}
	return newApp(ctx, cfg, logger, build)
}

// withApp runs fn against a freshly opened app and always releases it.
func (o *rootOptions) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := o.open(ctx, false)
	if err != nil {
		return err
	}
	runErr := fn(ctx, a)

	closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	closeErr := a.close(closeCtx)
	_ = a.logger.Sync()
	if runErr != nil {
		return runErr
	}
	return closeErr
}
