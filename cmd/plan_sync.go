package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/andre-martiini/diretoria-adm-bsf/internal/plan"
)

var planSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch the plan from the registry and reconcile it",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		year := yearOrDefault(planYear)

		env, err := initPlan(ctx, false)
		if err != nil {
			return err
		}
		defer env.Close()

		entry := env.Service.Load(ctx, year, plan.LoadOptions{
			Force: true,
			OnProgress: func(p int) {
				zap.L().Debug("sync progress", zap.String("year", year), zap.Int("percent", p))
			},
		})

		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d items (%s, %s)\n", year, len(entry.Items), entry.Source, entry.LastSyncLabel)
		return nil
	},
}

func init() {
	planCmd.AddCommand(planSyncCmd)
}
