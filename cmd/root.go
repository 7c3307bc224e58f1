package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/andre-martiini/diretoria-adm-bsf/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "diretoria",
	Short: "Annual procurement plan reconciliation",
	Long:  "Reconciles the published annual procurement plan (PCA) with local case links, manual items and execution records, and serves the result.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
