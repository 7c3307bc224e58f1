package main

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/andre-martiini/diretoria-adm-bsf/internal/export"
	"github.com/andre-martiini/diretoria-adm-bsf/internal/plan"
)

var (
	snapshotDir string
	exportOut   string
)

var planSnapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Write the local snapshot files of a year",
	Long:  "Syncs the plan from the registry and writes it, with every execution record, to the snapshot directory.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		year := yearOrDefault(planYear)

		env, err := initPlan(ctx, false)
		if err != nil {
			return err
		}
		defer env.Close()

		dir := snapshotDir
		if dir == "" {
			dir = cfg.Plan.SnapshotSource
		}
		if err := env.Service.Snapshot(ctx, year, dir); err != nil {
			return eris.Wrap(err, "plan snapshot")
		}
		zap.L().Info("snapshot written", zap.String("year", year), zap.String("dir", dir))
		return nil
	},
}

var planExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the reconciled plan as a spreadsheet",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		year := yearOrDefault(planYear)

		env, err := initPlan(ctx, false)
		if err != nil {
			return err
		}
		defer env.Close()

		entry := env.Service.Load(ctx, year, plan.LoadOptions{})

		out := exportOut
		if out == "" {
			out = "pca_" + year + ".xlsx"
		}
		f, err := os.Create(out)
		if err != nil {
			return eris.Wrap(err, "plan export: create file")
		}
		defer f.Close() //nolint:errcheck

		if err := export.WritePlan(f, entry, time.Now()); err != nil {
			return err
		}
		zap.L().Info("plan exported", zap.String("year", year), zap.String("file", out), zap.Int("items", len(entry.Items)))
		return nil
	},
}

func init() {
	planSnapshotCmd.Flags().StringVar(&snapshotDir, "dir", "", "output directory (default from config)")
	planExportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default pca_<year>.xlsx)")
	planCmd.AddCommand(planSnapshotCmd, planExportCmd)
}
