package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/halim/toolgate/internal/config"
	"github.com/halim/toolgate/internal/logger"
	"github.com/halim/toolgate/internal/store"
	"github.com/halim/toolgate/pkg/registry"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Load tool definitions into the store",
	Long: `Load every tool definition file from the tools directory into the
store without starting the server. Invalid definitions are skipped
and logged.`,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, db, log, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()
	defer log.Close()

	reg := registry.New(db, cfg.ToolsDir, nil, log.Zerolog())
	if err := reg.Sync(cmd.Context()); err != nil {
		return fmt.Errorf("tool sync failed: %w", err)
	}

	return nil
}

// openStore loads the config and opens the database with a console-only
// logger, shared by the one-shot commands.
func openStore() (*config.Config, *store.Store, *logger.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	log, err := logger.New(logger.Config{
		Level:     level,
		Console:   true,
		Pretty:    true,
		Redaction: cfg.Logging.Redaction,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	db, err := store.Open(cfg.DBPath, log.Zerolog())
	if err != nil {
		log.Close()
		return nil, nil, nil, fmt.Errorf("failed to open store: %w", err)
	}

	return cfg, db, log, nil
}
