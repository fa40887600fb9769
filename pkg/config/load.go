package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file, applies defaults, and
// validates. Environment variables are not consulted; use
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and
// applies environment variable overrides. Variables follow the naming
// convention COSTGATE_SECTION_FIELD (e.g. COSTGATE_SERVER_LISTEN_ADDRESS)
// and always take precedence over file values.
//
// The loading sequence is:
//
//  1. Load YAML from file
//  2. Apply default values
//  3. Apply environment variable overrides
//  4. Validate the final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies COSTGATE_SECTION_FIELD environment overrides.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	if val := os.Getenv("COSTGATE_SERVER_LISTEN_ADDRESS"); val != "" {
		cfg.Server.ListenAddress = val
	}
	if val := os.Getenv("COSTGATE_SERVER_READ_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if val := os.Getenv("COSTGATE_SERVER_WRITE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}
	if val := os.Getenv("COSTGATE_SERVER_SHUTDOWN_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.ShutdownTimeout = d
		}
	}

	// Logging overrides
	if val := os.Getenv("COSTGATE_LOGGING_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv("COSTGATE_LOGGING_FORMAT"); val != "" {
		cfg.Logging.Format = val
	}

	// Identity overrides
	if val := os.Getenv("COSTGATE_IDENTITY_DEFAULT_USER"); val != "" {
		cfg.Identity.DefaultUser = val
	}
	if val := os.Getenv("COSTGATE_IDENTITY_DEFAULT_TEAM"); val != "" {
		cfg.Identity.DefaultTeam = val
	}

	// Rate limit overrides
	if val := os.Getenv("COSTGATE_RATE_LIMIT_SCOPE"); val != "" {
		cfg.RateLimit.Scope = RateLimitScope(val)
	}
	if val := os.Getenv("COSTGATE_RATE_LIMIT_MAX_TOKENS"); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.RateLimit.MaxTokens = i
		}
	}
	if val := os.Getenv("COSTGATE_RATE_LIMIT_TOKENS_PER_FILL"); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.RateLimit.TokensPerFill = i
		}
	}
	if val := os.Getenv("COSTGATE_RATE_LIMIT_FILL_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.RateLimit.FillInterval = d
		}
	}

	// Budget overrides
	if val := os.Getenv("COSTGATE_BUDGET_DEFAULT_LIMIT_USD"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Budget.DefaultLimitUSD = f
		}
	}
	if val := os.Getenv("COSTGATE_BUDGET_RESET_SCHEDULE"); val != "" {
		cfg.Budget.ResetSchedule = val
	}
	if val := os.Getenv("COSTGATE_BUDGET_SNAPSHOT_PATH"); val != "" {
		cfg.Budget.SnapshotPath = val
	}

	// Pricing overrides
	if val := os.Getenv("COSTGATE_PRICING_FILE"); val != "" {
		cfg.Pricing.File = val
	}
	if val := os.Getenv("COSTGATE_PRICING_WATCH"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Pricing.Watch = b
		}
	}

	// Usage overrides
	if val := os.Getenv("COSTGATE_USAGE_BACKEND"); val != "" {
		cfg.Usage.Backend = val
	}
	if val := os.Getenv("COSTGATE_USAGE_SQLITE_PATH"); val != "" {
		cfg.Usage.SQLitePath = val
	}

	// Enforcement overrides
	if val := os.Getenv("COSTGATE_ENFORCEMENT_MODE"); val != "" {
		cfg.Enforcement.Mode = val
	}
}
