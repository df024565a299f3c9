package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cesargomez89/dofusdb-explorer/internal/config"
	"github.com/cesargomez89/dofusdb-explorer/internal/logger"
)

var (
	cfg       *config.Config
	appLogger *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:           "dofusdb",
	Short:         "dofusdb imports the DofusDB item and recipe catalog and queries it.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		if target, _ := cmd.Flags().GetString("target"); target != "" {
			cfg.DBDriver = target
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		appLogger = logger.New(logger.Config{
			Output: os.Stderr,
			Level:  cfg.LogLevel,
			Format: cfg.LogFormat,
		})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("target", "", "Store to use: sqlite or postgres (defaults to DB_DRIVER)")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
