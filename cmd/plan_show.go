package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/andre-martiini/diretoria-adm-bsf/internal/model"
	"github.com/andre-martiini/diretoria-adm-bsf/internal/plan"
	"github.com/andre-martiini/diretoria-adm-bsf/internal/snapshot"
	"github.com/andre-martiini/diretoria-adm-bsf/internal/status"
)

var (
	showFormat       string
	showSkipSync     bool
	showSnapshotOnly bool
)

var planShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the reconciled plan of a year",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		year := yearOrDefault(planYear)

		if showSnapshotOnly {
			loader := snapshot.NewLoader(cfg.Plan.SnapshotSource, newFetcher(cfg.Plan))
			return writeEntry(cmd.OutOrStdout(), showFormat, snapshotEntry(ctx, loader, year), time.Now())
		}

		env, err := initPlan(ctx, false)
		if err != nil {
			return err
		}
		defer env.Close()

		entry := env.Service.Load(ctx, year, plan.LoadOptions{SkipSync: showSkipSync})
		return writeEntry(cmd.OutOrStdout(), showFormat, entry, time.Now())
	},
}

func init() {
	planShowCmd.Flags().StringVar(&showFormat, "format", "table", "output format: table, json or yaml")
	planShowCmd.Flags().BoolVar(&showSkipSync, "skip-sync", false, "never contact the registry")
	planShowCmd.Flags().BoolVar(&showSnapshotOnly, "snapshot-only", false, "print the published snapshot without local overrides")
	planCmd.AddCommand(planShowCmd)
}

// snapshotEntry builds an entry from the snapshot alone. No store is opened.
func snapshotEntry(ctx context.Context, loader *snapshot.Loader, year string) *model.CacheEntry {
	return &model.CacheEntry{
		Year:          year,
		Items:         loader.LoadItems(ctx, year),
		LastSyncLabel: "Snapshot Local",
		Source:        model.SourceSnapshot,
	}
}

// shownItem is an item with its annotation flattened in, for json and yaml output.
type shownItem struct {
	model.PlanItem `yaml:",inline"`
	Annotation     status.Annotation `json:"annotation" yaml:"annotation"`
}

type shownPlan struct {
	Year     string              `json:"year" yaml:"year"`
	Source   model.Source        `json:"source" yaml:"source"`
	LastSync string              `json:"last_sync" yaml:"last_sync"`
	Metadata *model.PlanMetadata `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Items    []shownItem         `json:"items" yaml:"items"`
}

func writeEntry(out io.Writer, format string, entry *model.CacheEntry, now time.Time) error {
	switch format {
	case "table", "":
		formatPlanTable(out, entry, now)
		return nil
	case "json", "yaml":
	default:
		return eris.Errorf("unknown format %q", format)
	}

	doc := shownPlan{
		Year:     entry.Year,
		Source:   entry.Source,
		LastSync: entry.LastSyncLabel,
		Metadata: entry.Metadata,
		Items:    make([]shownItem, len(entry.Items)),
	}
	for i, it := range entry.Items {
		doc.Items[i] = shownItem{PlanItem: it, Annotation: status.Annotate(it, now)}
	}

	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(doc), "encode json")
	}
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return eris.Wrap(err, "encode yaml")
	}
	return eris.Wrap(enc.Close(), "encode yaml")
}

// formatPlanTable writes a tabular summary of entry to out.
func formatPlanTable(out io.Writer, entry *model.CacheEntry, now time.Time) {
	_, _ = fmt.Fprintf(out, "PCA %s | %s | %d items\n\n", entry.Year, entry.LastSyncLabel, len(entry.Items))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTITLE\tCATEGORY\tESTIMATED\tCOMMITTED\tSTART\tPROTOCOL\tSTATUS\tHEALTH")
	_, _ = fmt.Fprintln(w, "--\t-----\t--------\t---------\t---------\t-----\t--------\t------\t------")

	for _, it := range entry.Items {
		a := status.Annotate(it, now)
		health := "-"
		if a.Health != nil {
			health = fmt.Sprintf("%d", a.Health.Score)
		}
		protocol := it.CaseProtocol
		if protocol == "" {
			protocol = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			it.ID,
			truncate(it.Title, 48),
			it.Category,
			it.EstimatedValue.StringFixed(2),
			it.CommittedValue.StringFixed(2),
			it.DesiredStartDate,
			protocol,
			a.Status,
			health,
		)
	}
	_ = w.Flush()
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
