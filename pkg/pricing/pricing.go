package pricing

import (
	"fmt"
	"math"
	"sync/atomic"
)

// MicroUSD is a monetary amount in micro-dollars (1e-6 USD).
// All cost arithmetic in the governance layer uses this fixed-point type.
type MicroUSD int64

// USD converts the amount to a float dollar value for display.
// Never use the result for arithmetic; aggregate in MicroUSD.
func (m MicroUSD) USD() float64 {
	return float64(m) / 1e6
}

// String formats the amount as a dollar string with micro precision.
func (m MicroUSD) String() string {
	return fmt.Sprintf("$%.6f", m.USD())
}

// FromUSD converts a dollar amount to micro-USD, rounding to the nearest micro.
// This is used at configuration load time only; runtime cost paths stay integer.
func FromUSD(usd float64) MicroUSD {
	return MicroUSD(math.Round(usd * 1e6))
}

// Rate is the pricing for one (provider, model) pair, in micro-USD per
// million tokens. A $0.80/MTok input rate is InputPerMTok=800000.
type Rate struct {
	InputPerMTok  MicroUSD
	OutputPerMTok MicroUSD
}

// Cost computes the exact cost of a request in micro-USD.
//
//	cost = inputTokens * InputPerMTok / 1e6 + outputTokens * OutputPerMTok / 1e6
//
// Each term is rounded to the nearest micro-USD independently, so the result
// is deterministic regardless of aggregation order.
func Cost(inputTokens, outputTokens int64, rate Rate) MicroUSD {
	return perTokenCost(inputTokens, rate.InputPerMTok) + perTokenCost(outputTokens, rate.OutputPerMTok)
}

// perTokenCost computes tokens*ratePerMTok/1e6 with round-half-up.
func perTokenCost(tokens int64, ratePerMTok MicroUSD) MicroUSD {
	if tokens <= 0 || ratePerMTok <= 0 {
		return 0
	}
	return MicroUSD((tokens*int64(ratePerMTok) + 500_000) / 1_000_000)
}

// UnknownModelError reports a lookup for a (provider, model) pair that has
// no configured pricing. This is a configuration error: the caller must fail
// the request rather than default to zero cost.
type UnknownModelError struct {
	Provider string
	Model    string
}

// Error implements the error interface.
func (e *UnknownModelError) Error() string {
	return fmt.Sprintf("no pricing configured for model %q of provider %q", e.Model, e.Provider)
}

// Table is an immutable set of pricing entries keyed by provider then model.
// Build one with NewTable; never mutate the maps after construction.
type Table struct {
	entries map[string]map[string]Rate
}

// NewTable builds a pricing table from per-provider model rates.
// The input maps are copied so later mutation by the caller cannot leak in.
func NewTable(entries map[string]map[string]Rate) (*Table, error) {
	t := &Table{entries: make(map[string]map[string]Rate, len(entries))}
	for provider, models := range entries {
		if provider == "" {
			return nil, fmt.Errorf("pricing table: empty provider name")
		}
		copied := make(map[string]Rate, len(models))
		for model, rate := range models {
			if model == "" {
				return nil, fmt.Errorf("pricing table: empty model name for provider %q", provider)
			}
			if rate.InputPerMTok < 0 || rate.OutputPerMTok < 0 {
				return nil, fmt.Errorf("pricing table: negative rate for %s/%s", provider, model)
			}
			copied[model] = rate
		}
		t.entries[provider] = copied
	}
	return t, nil
}

// Rate looks up the pricing for a (provider, model) pair.
func (t *Table) Rate(provider, model string) (Rate, error) {
	if models, ok := t.entries[provider]; ok {
		if rate, ok := models[model]; ok {
			return rate, nil
		}
	}
	return Rate{}, &UnknownModelError{Provider: provider, Model: model}
}

// Len returns the total number of (provider, model) entries.
func (t *Table) Len() int {
	n := 0
	for _, models := range t.entries {
		n += len(models)
	}
	return n
}

// Resolver provides concurrent read access to the active pricing table and
// supports atomic replacement of the whole table on configuration reload.
type Resolver struct {
	table atomic.Pointer[Table]
}

// NewResolver creates a resolver serving the given table.
func NewResolver(table *Table) *Resolver {
	r := &Resolver{}
	r.table.Store(table)
	return r
}

// Rate resolves the active rate for a (provider, model) pair.
func (r *Resolver) Rate(provider, model string) (Rate, error) {
	return r.table.Load().Rate(provider, model)
}

// Replace atomically swaps in a new pricing table. In-flight lookups finish
// against whichever table they started with.
func (r *Resolver) Replace(table *Table) {
	r.table.Store(table)
}

// Cost resolves the rate and computes the request cost in one step.
func (r *Resolver) Cost(provider, model string, inputTokens, outputTokens int64) (MicroUSD, error) {
	rate, err := r.Rate(provider, model)
	if err != nil {
		return 0, err
	}
	return Cost(inputTokens, outputTokens, rate), nil
}
