package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"agentgw/costgate/pkg/config"
	"agentgw/costgate/pkg/report"
	"agentgw/costgate/pkg/report/export"
	usagestorage "agentgw/costgate/pkg/usage/storage"
)

var reportFlags struct {
	start  string
	end    string
	format string
	output string
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render the chargeback report from recorded usage",
	Long: `Build the per-user and per-team chargeback report from the usage
database and render it as a table, CSV, or JSON.

Examples:
  # Full history as a table
  costgate report --format table

  # November, as CSV for billing ingest
  costgate report --start 2026-11-01T00:00:00Z --end 2026-12-01T00:00:00Z --format csv

  # JSON to a file
  costgate report --format json --output november.json`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVar(&reportFlags.start, "start", "", "window start (RFC 3339, inclusive)")
	reportCmd.Flags().StringVar(&reportFlags.end, "end", "", "window end (RFC 3339, inclusive)")
	reportCmd.Flags().StringVar(&reportFlags.format, "format", "table", "output format (table, csv, json)")
	reportCmd.Flags().StringVarP(&reportFlags.output, "output", "o", "", "write to file instead of stdout")
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Usage.Backend != "sqlite" {
		return fmt.Errorf("report requires the sqlite usage backend, configured backend is %q", cfg.Usage.Backend)
	}

	var window report.Window
	if reportFlags.start != "" {
		t, err := time.Parse(time.RFC3339, reportFlags.start)
		if err != nil {
			return fmt.Errorf("invalid --start: %w", err)
		}
		window.Start = &t
	}
	if reportFlags.end != "" {
		t, err := time.Parse(time.RFC3339, reportFlags.end)
		if err != nil {
			return fmt.Errorf("invalid --end: %w", err)
		}
		window.End = &t
	}

	store, err := usagestorage.NewSQLiteStorage(&usagestorage.SQLiteConfig{Path: cfg.Usage.SQLitePath})
	if err != nil {
		return fmt.Errorf("failed to open usage store: %w", err)
	}
	defer store.Close()

	rep, err := report.NewAggregator(store).Build(cmd.Context(), window)
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}

	out := os.Stdout
	if reportFlags.output != "" {
		f, err := os.Create(reportFlags.output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	switch reportFlags.format {
	case "table":
		return export.NewTableExporter().Export(cmd.Context(), rep, out)
	case "csv":
		return export.NewCSVExporter(true).Export(cmd.Context(), rep, out)
	case "json":
		return export.NewJSONExporter(true).Export(cmd.Context(), rep, out)
	default:
		return fmt.Errorf("unknown format %q (want table, csv, or json)", reportFlags.format)
	}
}
