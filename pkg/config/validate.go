package config

import (
	"fmt"

	"github.com/robfig/cron/v3"
)

// Validate checks the configuration for inconsistencies. It assumes
// ApplyDefaults has run.
func Validate(cfg *Config) error {
	if cfg.Server.ListenAddress == "" {
		return fmt.Errorf("server: listen_address cannot be empty")
	}

	switch cfg.RateLimit.Scope {
	case ScopeGlobal, ScopePerUser, ScopePerTeam:
	default:
		return fmt.Errorf("rate_limit: unknown scope %q", cfg.RateLimit.Scope)
	}
	if cfg.RateLimit.MaxTokens <= 0 {
		return fmt.Errorf("rate_limit: max_tokens must be positive, got %d", cfg.RateLimit.MaxTokens)
	}
	if cfg.RateLimit.TokensPerFill <= 0 {
		return fmt.Errorf("rate_limit: tokens_per_fill must be positive, got %d", cfg.RateLimit.TokensPerFill)
	}
	if cfg.RateLimit.FillInterval <= 0 {
		return fmt.Errorf("rate_limit: fill_interval must be positive, got %v", cfg.RateLimit.FillInterval)
	}
	if cfg.RateLimit.IdleTTL < 0 {
		return fmt.Errorf("rate_limit: idle_ttl must not be negative, got %v", cfg.RateLimit.IdleTTL)
	}

	if cfg.Budget.DefaultLimitUSD < 0 {
		return fmt.Errorf("budget: default_limit_usd must not be negative, got %v", cfg.Budget.DefaultLimitUSD)
	}
	for user, limit := range cfg.Budget.UserLimitsUSD {
		if user == "" {
			return fmt.Errorf("budget: user_limits_usd contains an empty user id")
		}
		if limit < 0 {
			return fmt.Errorf("budget: limit for user %q must not be negative, got %v", user, limit)
		}
	}
	if cfg.Budget.ResetSchedule != "" {
		if _, err := cron.ParseStandard(cfg.Budget.ResetSchedule); err != nil {
			return fmt.Errorf("budget: invalid reset_schedule %q: %w", cfg.Budget.ResetSchedule, err)
		}
	}

	if cfg.Pricing.File == "" && len(cfg.Pricing.Models) == 0 {
		return fmt.Errorf("pricing: either models or file must be configured")
	}
	if cfg.Pricing.Watch && cfg.Pricing.File == "" {
		return fmt.Errorf("pricing: watch requires file")
	}
	for provider, models := range cfg.Pricing.Models {
		if provider == "" {
			return fmt.Errorf("pricing: empty provider name")
		}
		for model, rate := range models {
			if model == "" {
				return fmt.Errorf("pricing: empty model name for provider %q", provider)
			}
			if rate.InputPerMTokUSD < 0 || rate.OutputPerMTokUSD < 0 {
				return fmt.Errorf("pricing: negative rate for %s/%s", provider, model)
			}
		}
	}

	switch cfg.Usage.Backend {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("usage: unknown backend %q", cfg.Usage.Backend)
	}
	if cfg.Usage.Backend == "sqlite" && cfg.Usage.SQLitePath == "" {
		return fmt.Errorf("usage: sqlite_path cannot be empty for the sqlite backend")
	}

	switch cfg.Enforcement.Mode {
	case "enforce", "shadow":
	default:
		return fmt.Errorf("enforcement: unknown mode %q", cfg.Enforcement.Mode)
	}

	if cfg.Estimation.BytesPerToken <= 0 {
		return fmt.Errorf("estimation: bytes_per_token must be positive, got %d", cfg.Estimation.BytesPerToken)
	}
	if cfg.Estimation.MaxOutputTokens < 0 {
		return fmt.Errorf("estimation: max_output_tokens must not be negative, got %d", cfg.Estimation.MaxOutputTokens)
	}

	return nil
}
