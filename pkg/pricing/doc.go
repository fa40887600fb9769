// Package pricing resolves per-model token rates and computes request costs.
//
// # Overview
//
// Pricing is loaded once at startup from configuration and is immutable for
// the lifetime of the table. Hot reload replaces the whole table atomically;
// readers never observe a partially updated table.
//
// All monetary values are fixed-point integers in micro-USD (one millionth
// of a dollar). Rates are expressed in micro-USD per million tokens, which
// makes per-token costs exact for the rate magnitudes providers publish
// (e.g. $0.80 per million input tokens = 800000 micro-USD per MTok).
// Integer arithmetic guarantees that repeated aggregation over usage records
// is exact and reproducible.
//
// # Usage
//
//	table, err := pricing.NewTable(map[string]map[string]pricing.Rate{
//	    "anthropic": {"claude-haiku": {InputPerMTok: 800000, OutputPerMTok: 4000000}},
//	})
//	resolver := pricing.NewResolver(table)
//
//	rate, err := resolver.Rate("anthropic", "claude-haiku")
//	if err != nil {
//	    // unknown (provider, model) is a configuration error, never a zero cost
//	}
//	cost := pricing.Cost(inputTokens, outputTokens, rate)
package pricing
