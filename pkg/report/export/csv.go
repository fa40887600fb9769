package export

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"

	"agentgw/costgate/pkg/report"
	"agentgw/costgate/pkg/usage"
)

// CSVExporter writes a chargeback report as flat CSV rows.
// Each row carries a scope column (user, team, total) so one file holds
// both groupings and the totals.
type CSVExporter struct {
	// IncludeHeader includes a header row with column names.
	IncludeHeader bool
}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{IncludeHeader: includeHeader}
}

// Export writes the report to w in CSV format.
func (e *CSVExporter) Export(_ context.Context, r *report.Report, w io.Writer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	rowCount := len(r.PerUser) + len(r.PerTeam) + 1

	if e.IncludeHeader {
		header := []string{"scope", "key", "requests", "input_tokens", "output_tokens", "cost_usd"}
		if err := writer.Write(header); err != nil {
			return usage.NewExportError("csv", rowCount, err)
		}
	}

	write := func(scope string, row report.Row) error {
		return writer.Write([]string{
			scope,
			row.Key,
			strconv.FormatInt(row.Requests, 10),
			strconv.FormatInt(row.InputTokens, 10),
			strconv.FormatInt(row.OutputTokens, 10),
			strconv.FormatFloat(row.Cost.USD(), 'f', 6, 64),
		})
	}

	for _, row := range r.PerUser {
		if err := write("user", row); err != nil {
			return usage.NewExportError("csv", rowCount, err)
		}
	}
	for _, row := range r.PerTeam {
		if err := write("team", row); err != nil {
			return usage.NewExportError("csv", rowCount, err)
		}
	}
	if err := write("total", r.Totals); err != nil {
		return usage.NewExportError("csv", rowCount, err)
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return usage.NewExportError("csv", rowCount, err)
	}
	return nil
}
