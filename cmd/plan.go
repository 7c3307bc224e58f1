package main

import (
	"github.com/spf13/cobra"
)

var planYear string

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Reconciled procurement plans",
	Long:  "Syncs, shows, edits and exports the reconciled annual procurement plan of a year.",
}

func init() {
	planCmd.PersistentFlags().StringVar(&planYear, "year", "", "plan year (default from config)")
	rootCmd.AddCommand(planCmd)
}
