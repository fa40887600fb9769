package config

import (
	"time"
)

// Config is the root configuration for the costgate gateway.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Logging     LoggingConfig     `yaml:"logging"`
	Identity    IdentityConfig    `yaml:"identity"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
	Budget      BudgetConfig      `yaml:"budget"`
	Pricing     PricingConfig     `yaml:"pricing"`
	Usage       UsageConfig       `yaml:"usage"`
	Enforcement EnforcementConfig `yaml:"enforcement"`
	Estimation  EstimationConfig  `yaml:"estimation"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	ListenAddress   string        `yaml:"listen_address"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	AddSource bool   `yaml:"add_source"`
}

// IdentityConfig configures attribution defaults for requests without
// identity headers.
type IdentityConfig struct {
	DefaultUser string `yaml:"default_user"`
	DefaultTeam string `yaml:"default_team"`
}

// RateLimitScope selects the key the limiter buckets on.
type RateLimitScope string

const (
	ScopeGlobal  RateLimitScope = "global"
	ScopePerUser RateLimitScope = "per_user"
	ScopePerTeam RateLimitScope = "per_team"
)

// RateLimitConfig configures the token-bucket limiter.
type RateLimitConfig struct {
	// Enabled turns the limiter on. Default: true.
	Enabled *bool `yaml:"enabled"`

	// Scope selects the bucket key: global, per_user, or per_team.
	Scope RateLimitScope `yaml:"scope"`

	// MaxTokens is the bucket capacity.
	MaxTokens int64 `yaml:"max_tokens"`

	// TokensPerFill is the refill credit per interval.
	TokensPerFill int64 `yaml:"tokens_per_fill"`

	// FillInterval is the refill quantum.
	FillInterval time.Duration `yaml:"fill_interval"`

	// IdleTTL evicts buckets unused for this long. Zero disables.
	IdleTTL time.Duration `yaml:"idle_ttl"`
}

// BudgetConfig configures per-user spending limits. Limits are written in
// USD in YAML and converted to micro-USD at load time.
type BudgetConfig struct {
	// DefaultLimitUSD applies to users without an explicit entry.
	// Zero means unlimited.
	DefaultLimitUSD float64 `yaml:"default_limit_usd"`

	// UserLimitsUSD maps user IDs to per-user limits in USD.
	UserLimitsUSD map[string]float64 `yaml:"user_limits_usd"`

	// ResetSchedule is a cron expression marking budget period starts.
	// Empty disables scheduled resets.
	ResetSchedule string `yaml:"reset_schedule"`

	// SnapshotPath is the SQLite file budget accounts are persisted to.
	// Empty keeps budgets in memory only.
	SnapshotPath string `yaml:"snapshot_path"`

	// SnapshotInterval is how often accounts are snapshotted.
	SnapshotInterval time.Duration `yaml:"snapshot_interval"`
}

// ModelRate is the configured pricing for one model, in USD per million
// tokens.
type ModelRate struct {
	InputPerMTokUSD  float64 `yaml:"input_per_mtok_usd"`
	OutputPerMTokUSD float64 `yaml:"output_per_mtok_usd"`
}

// PricingConfig configures the pricing table.
type PricingConfig struct {
	// Models holds inline pricing: provider → model → rates.
	Models map[string]map[string]ModelRate `yaml:"models"`

	// File, when set, is a dedicated pricing YAML file that overrides
	// Models.
	File string `yaml:"file"`

	// Watch reloads File on change. Requires File.
	Watch bool `yaml:"watch"`
}

// UsageConfig configures usage recording and storage.
type UsageConfig struct {
	// Backend selects the storage backend: sqlite or memory.
	Backend string `yaml:"backend"`

	// SQLitePath is the usage database path for the sqlite backend.
	SQLitePath string `yaml:"sqlite_path"`

	// AsyncBuffer is the recorder channel capacity.
	AsyncBuffer int `yaml:"async_buffer"`

	// WriteTimeout bounds one storage write.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// MaxRetries is how often a failed write is retried.
	MaxRetries int `yaml:"max_retries"`

	// RetryBackoff is the initial retry delay.
	RetryBackoff time.Duration `yaml:"retry_backoff"`
}

// EnforcementConfig configures how denials are applied.
type EnforcementConfig struct {
	// Mode is enforce or shadow.
	Mode string `yaml:"mode"`
}

// EstimationConfig configures the pre-flight cost estimate used for
// budget reservations.
type EstimationConfig struct {
	// BytesPerToken approximates input tokens from payload size.
	BytesPerToken int `yaml:"bytes_per_token"`

	// MaxOutputTokens is the assumed worst-case completion length.
	MaxOutputTokens int64 `yaml:"max_output_tokens"`
}
