package export

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"agentgw/costgate/pkg/report"
	"agentgw/costgate/pkg/usage"
)

// TableExporter renders a chargeback report as aligned text tables for
// terminal output.
type TableExporter struct{}

// NewTableExporter creates a new table exporter.
func NewTableExporter() *TableExporter {
	return &TableExporter{}
}

// Export writes per-user and per-team tables followed by a blocked-traffic
// summary.
func (e *TableExporter) Export(_ context.Context, r *report.Report, w io.Writer) error {
	if err := e.writeSection(w, "BY USER", r.PerUser, r.Totals); err != nil {
		return err
	}
	if err := e.writeSection(w, "BY TEAM", r.PerTeam, r.Totals); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "Blocked: %d rate limited, %d over budget, %d provider failures\n",
		r.Blocked.RateLimited, r.Blocked.BudgetDenied, r.Blocked.ProviderFailed)
	if err != nil {
		return usage.NewExportError("table", len(r.PerUser)+len(r.PerTeam), err)
	}
	return nil
}

func (e *TableExporter) writeSection(w io.Writer, title string, rows []report.Row, totals report.Row) error {
	if _, err := fmt.Fprintf(w, "%s\n", title); err != nil {
		return usage.NewExportError("table", len(rows), err)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tREQUESTS\tINPUT TOK\tOUTPUT TOK\tCOST")
	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\n",
			row.Key, row.Requests, row.InputTokens, row.OutputTokens, row.Cost)
	}
	fmt.Fprintf(tw, "TOTAL\t%d\t%d\t%d\t%s\n",
		totals.Requests, totals.InputTokens, totals.OutputTokens, totals.Cost)
	if err := tw.Flush(); err != nil {
		return usage.NewExportError("table", len(rows), err)
	}

	_, err := fmt.Fprintln(w)
	if err != nil {
		return usage.NewExportError("table", len(rows), err)
	}
	return nil
}
