package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/halim/toolgate/internal/config"
	"github.com/halim/toolgate/internal/logger"
	"github.com/halim/toolgate/internal/metrics"
	"github.com/halim/toolgate/internal/store"
	"github.com/halim/toolgate/pkg/engine"
	"github.com/halim/toolgate/pkg/gateway"
	"github.com/halim/toolgate/pkg/invoke"
	"github.com/halim/toolgate/pkg/registry"
	"github.com/halim/toolgate/pkg/security"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the toolgate server",
	Long: `Start the toolgate HTTP server. Loads tool definitions from the
tools directory, keeps them in sync as files change, and serves the
invocation API until interrupted.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	log, err := logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		Console:   cfg.Logging.Console,
		Pretty:    cfg.Logging.Pretty,
		Redaction: cfg.Logging.Redaction,
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Close()
	zl := log.Zerolog()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := store.Open(cfg.DBPath, zl)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer db.Close()

	retention, err := store.NewRetention(db, store.RetentionConfig{
		MaxAge:   cfg.Retention.MaxAge(),
		Schedule: cfg.Retention.Schedule,
	}, zl)
	if err != nil {
		return fmt.Errorf("failed to create retention job: %w", err)
	}
	if err := retention.Start(); err != nil {
		return fmt.Errorf("failed to start retention job: %w", err)
	}
	defer retention.Stop()

	m := metrics.New()

	reg := registry.New(db, cfg.ToolsDir, m, zl)
	if err := reg.Sync(cmd.Context()); err != nil {
		return fmt.Errorf("initial tool sync failed: %w", err)
	}
	watcher, err := registry.NewWatcher(reg, zl)
	if err != nil {
		zl.Warn().Err(err).Msg("Tool directory watching disabled")
	} else {
		defer watcher.Stop()
	}

	eng, err := engine.New(engine.Options{
		Tools:      db,
		Executions: db,
		Links:      db,
		Resolver:   security.NewResolver(db, nil, zl),
		Invoker:    invoke.NewInvoker(cfg.Upstream.Timeout(), zl),
		Observer:   m,
		Logger:     zl,
	})
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}

	server, err := gateway.NewServer(gateway.ServerOptions{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	}, eng, db, db, m.Handler(), zl)
	if err != nil {
		return fmt.Errorf("failed to create gateway server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		zl.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
		return server.Stop()
	case err := <-errCh:
		return err
	}
}
