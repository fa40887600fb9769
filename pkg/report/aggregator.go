package report

import (
	"context"
	"log/slog"
	"sort"

	"agentgw/costgate/pkg/usage"
)

// Aggregator builds chargeback reports from a usage storage backend.
type Aggregator struct {
	storage usage.Storage
	logger  *slog.Logger
}

// NewAggregator creates an aggregator reading from the given backend.
func NewAggregator(storage usage.Storage) *Aggregator {
	return &Aggregator{
		storage: storage,
		logger:  slog.Default().With("component", "report"),
	}
}

// Build derives the chargeback report for a window. Both groupings and the
// totals are computed from the same record set in a single pass.
func (a *Aggregator) Build(ctx context.Context, window Window) (*Report, error) {
	records, err := a.storage.Query(ctx, &usage.Query{
		StartTime: window.Start,
		EndTime:   window.End,
	})
	if err != nil {
		return nil, err
	}

	report := &Report{
		Window:  window,
		Totals:  Row{Key: "total"},
		PerUser: []Row{},
		PerTeam: []Row{},
	}

	byUser := make(map[string]*Row)
	byTeam := make(map[string]*Row)

	for _, r := range records {
		switch r.Outcome {
		case usage.OutcomeRateLimited:
			report.Blocked.RateLimited++
			continue
		case usage.OutcomeBudgetDenied:
			report.Blocked.BudgetDenied++
			continue
		case usage.OutcomeProviderFailed:
			report.Blocked.ProviderFailed++
			continue
		}

		accumulate(byUser, r.Identity.UserID, r)
		accumulate(byTeam, r.Identity.TeamID, r)

		report.Totals.Requests++
		report.Totals.InputTokens += r.InputTokens
		report.Totals.OutputTokens += r.OutputTokens
		report.Totals.Cost += r.Cost
	}

	report.PerUser = sortRows(byUser)
	report.PerTeam = sortRows(byTeam)

	a.logger.Debug("Chargeback report built",
		"records", len(records),
		"users", len(report.PerUser),
		"teams", len(report.PerTeam),
		"blocked", report.Blocked.Total())

	return report, nil
}

func accumulate(rows map[string]*Row, key string, r *usage.Record) {
	row, ok := rows[key]
	if !ok {
		row = &Row{Key: key}
		rows[key] = row
	}
	row.Requests++
	row.InputTokens += r.InputTokens
	row.OutputTokens += r.OutputTokens
	row.Cost += r.Cost
}

// sortRows orders rows by descending cost, ties broken by ascending key.
func sortRows(rows map[string]*Row) []Row {
	sorted := make([]Row, 0, len(rows))
	for _, row := range rows {
		sorted = append(sorted, *row)
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Cost != sorted[j].Cost {
			return sorted[i].Cost > sorted[j].Cost
		}
		return sorted[i].Key < sorted[j].Key
	})
	return sorted
}
