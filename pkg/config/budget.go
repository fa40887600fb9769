package config

import (
	"agentgw/costgate/pkg/limits/budget"
	"agentgw/costgate/pkg/pricing"
)

// BudgetLedgerConfig converts the YAML USD limits to the micro-USD ledger
// configuration.
func (c *Config) BudgetLedgerConfig() budget.Config {
	cfg := budget.Config{
		DefaultLimit: pricing.FromUSD(c.Budget.DefaultLimitUSD),
	}
	if len(c.Budget.UserLimitsUSD) > 0 {
		cfg.UserLimits = make(map[string]pricing.MicroUSD, len(c.Budget.UserLimitsUSD))
		for user, usd := range c.Budget.UserLimitsUSD {
			cfg.UserLimits[user] = pricing.FromUSD(usd)
		}
	}
	return cfg
}
