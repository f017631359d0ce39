package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/alphalat/alphalat/internal/config"
	"github.com/alphalat/alphalat/internal/logging"
)

// skipConfig marks commands that run on the default configuration instead of
// loading the config file.
const skipConfig = "skip-config"

// app carries the global flags and the state PersistentPreRunE builds from them.
type app struct {
	configPath string
	dbPath     string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "alat",
		Short: "Alpha-band lateralization for N2pc EEG epochs",
		Long: `alat measures posterior alpha power (8-12 Hz) in each N2pc search
condition and tabulates it by hemisphere relative to the target.

Import or epoch a subject's data, run the analysis, then inspect or export
the resulting table.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	// Global flags
	root.PersistentFlags().StringVar(&a.configPath, "config", getEnvOrDefault("ALAT_CONFIG", config.DefaultPath), "config file path")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "database path (overrides config)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newImportCmd(a),
		newEpochCmd(a),
		newListCmd(a),
		newAnalyzeCmd(a),
		newResultsCmd(a),
		newExportCmd(a),
		newServeCmd(a),
		newTokenCmd(a),
		newConfigCmd(a),
	)
	return root
}

// Execute runs the CLI until completion or an interrupt.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return newRootCmd().ExecuteContext(ctx)
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	if cmd.Annotations[skipConfig] == "true" {
		a.cfg = config.DefaultConfig()
	} else {
		cfg, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		a.cfg = cfg
	}

	if a.dbPath != "" {
		a.cfg.Database.Path = a.dbPath
	}
	if a.verbose {
		a.cfg.Logging.Level = "debug"
	}

	logger, err := logging.New(a.cfg.Logging.Level, a.cfg.Logging.Format)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	a.logger = logger
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
