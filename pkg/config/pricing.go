package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"agentgw/costgate/pkg/pricing"
)

// pricingFile is the schema of a dedicated pricing YAML file.
type pricingFile struct {
	Models map[string]map[string]ModelRate `yaml:"models"`
}

// PricingTable builds the immutable pricing table from the configuration,
// reading the dedicated pricing file when one is configured.
func (c *Config) PricingTable() (*pricing.Table, error) {
	if c.Pricing.File != "" {
		return LoadPricingFile(c.Pricing.File)
	}
	return buildTable(c.Pricing.Models)
}

// LoadPricingFile parses a dedicated pricing YAML file into a pricing
// table.
func LoadPricingFile(path string) (*pricing.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pricing file %q: %w", path, err)
	}

	var pf pricingFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("failed to parse pricing file %q: %w", path, err)
	}
	if len(pf.Models) == 0 {
		return nil, fmt.Errorf("pricing file %q contains no models", path)
	}

	return buildTable(pf.Models)
}

// buildTable converts USD-per-MTok config rates to the micro-USD table.
func buildTable(models map[string]map[string]ModelRate) (*pricing.Table, error) {
	entries := make(map[string]map[string]pricing.Rate, len(models))
	for provider, rates := range models {
		converted := make(map[string]pricing.Rate, len(rates))
		for model, rate := range rates {
			converted[model] = pricing.Rate{
				InputPerMTok:  pricing.FromUSD(rate.InputPerMTokUSD),
				OutputPerMTok: pricing.FromUSD(rate.OutputPerMTokUSD),
			}
		}
		entries[provider] = converted
	}
	return pricing.NewTable(entries)
}
