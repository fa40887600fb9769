package export

import (
	"context"
	"encoding/json"
	"io"

	"agentgw/costgate/pkg/report"
	"agentgw/costgate/pkg/usage"
)

// JSONExporter writes a chargeback report as a single JSON document.
type JSONExporter struct {
	// Pretty enables indented output.
	Pretty bool
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(pretty bool) *JSONExporter {
	return &JSONExporter{Pretty: pretty}
}

// Export writes the report to w as JSON.
func (e *JSONExporter) Export(_ context.Context, r *report.Report, w io.Writer) error {
	encoder := json.NewEncoder(w)
	if e.Pretty {
		encoder.SetIndent("", "  ")
	}
	if err := encoder.Encode(r); err != nil {
		return usage.NewExportError("json", len(r.PerUser)+len(r.PerTeam), err)
	}
	return nil
}
