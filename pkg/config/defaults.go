package config

import "time"

// Default configuration values. Grouped here so defaults are visible in
// one place.
const (
	DefaultListenAddress   = ":8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 120 * time.Second
	DefaultIdleTimeout     = 90 * time.Second
	DefaultShutdownTimeout = 15 * time.Second
	DefaultMaxHeaderBytes  = 1 << 20 // 1 MiB

	DefaultRateLimitMaxTokens     = 10
	DefaultRateLimitTokensPerFill = 10
	DefaultRateLimitFillInterval  = time.Minute
	DefaultRateLimitIdleTTL       = time.Hour

	DefaultUsageBackend      = "sqlite"
	DefaultUsageSQLitePath   = "data/usage.db"
	DefaultUsageAsyncBuffer  = 1000
	DefaultUsageWriteTimeout = 5 * time.Second
	DefaultUsageMaxRetries   = 3
	DefaultUsageRetryBackoff = 100 * time.Millisecond

	DefaultBudgetSnapshotInterval = time.Minute

	DefaultEstimationBytesPerToken   = 4
	DefaultEstimationMaxOutputTokens = 1024
)

// ApplyDefaults fills zero-valued fields with defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}

	if cfg.RateLimit.Enabled == nil {
		enabled := true
		cfg.RateLimit.Enabled = &enabled
	}
	if cfg.RateLimit.Scope == "" {
		cfg.RateLimit.Scope = ScopePerUser
	}
	if cfg.RateLimit.MaxTokens == 0 {
		cfg.RateLimit.MaxTokens = DefaultRateLimitMaxTokens
	}
	if cfg.RateLimit.TokensPerFill == 0 {
		cfg.RateLimit.TokensPerFill = DefaultRateLimitTokensPerFill
	}
	if cfg.RateLimit.FillInterval == 0 {
		cfg.RateLimit.FillInterval = DefaultRateLimitFillInterval
	}
	if cfg.RateLimit.IdleTTL == 0 {
		cfg.RateLimit.IdleTTL = DefaultRateLimitIdleTTL
	}

	if cfg.Budget.SnapshotInterval == 0 {
		cfg.Budget.SnapshotInterval = DefaultBudgetSnapshotInterval
	}

	if cfg.Usage.Backend == "" {
		cfg.Usage.Backend = DefaultUsageBackend
	}
	if cfg.Usage.SQLitePath == "" {
		cfg.Usage.SQLitePath = DefaultUsageSQLitePath
	}
	if cfg.Usage.AsyncBuffer == 0 {
		cfg.Usage.AsyncBuffer = DefaultUsageAsyncBuffer
	}
	if cfg.Usage.WriteTimeout == 0 {
		cfg.Usage.WriteTimeout = DefaultUsageWriteTimeout
	}
	if cfg.Usage.MaxRetries == 0 {
		cfg.Usage.MaxRetries = DefaultUsageMaxRetries
	}
	if cfg.Usage.RetryBackoff == 0 {
		cfg.Usage.RetryBackoff = DefaultUsageRetryBackoff
	}

	if cfg.Enforcement.Mode == "" {
		cfg.Enforcement.Mode = "enforce"
	}

	if cfg.Estimation.BytesPerToken == 0 {
		cfg.Estimation.BytesPerToken = DefaultEstimationBytesPerToken
	}
	if cfg.Estimation.MaxOutputTokens == 0 {
		cfg.Estimation.MaxOutputTokens = DefaultEstimationMaxOutputTokens
	}
}
