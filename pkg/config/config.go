package config

import (
	"encoding/json"
	"time"
)

// Config represents the complete configuration for the groupops service.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Runtime    RuntimeConfig    `koanf:"runtime"`
	Telegram   TelegramConfig   `koanf:"telegram"`
	Gateway    GatewayConfig    `koanf:"gateway"`
	Redis      RedisConfig      `koanf:"redis"`
	Wizard     WizardConfig     `koanf:"wizard"`
	Batch      BatchConfig      `koanf:"batch"`
	RateLimit  RateLimitConfig  `koanf:"ratelimit"`
	Monitoring MonitoringConfig `koanf:"monitoring"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"host"             validate:"required"        env:"SERVER_HOST"`
	Port            int           `koanf:"port"             validate:"min=1,max=65535" env:"SERVER_PORT"`
	Timeout         time.Duration `koanf:"timeout"                                     env:"SERVER_TIMEOUT"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"                            env:"SERVER_SHUTDOWN_TIMEOUT"`
}

// RuntimeConfig contains process-wide behavior.
type RuntimeConfig struct {
	Environment string `koanf:"environment" validate:"oneof=development staging production"   env:"RUNTIME_ENVIRONMENT"`
	LogLevel    string `koanf:"log_level"   validate:"oneof=debug info warn error disabled" env:"RUNTIME_LOG_LEVEL"`
	LogJSON     bool   `koanf:"log_json"                                                      env:"RUNTIME_LOG_JSON"`
}

// TelegramConfig configures the bot API used as the conversation surface.
type TelegramConfig struct {
	Token            SensitiveString `koanf:"token"             env:"TELEGRAM_TOKEN"          sensitive:"true"`
	BaseURL          string          `koanf:"base_url"          env:"TELEGRAM_BASE_URL"       validate:"omitempty,url"`
	WebhookSecret    SensitiveString `koanf:"webhook_secret"    env:"TELEGRAM_WEBHOOK_SECRET" sensitive:"true"`
	AllowedOperators []int64         `koanf:"allowed_operators" env:"TELEGRAM_ALLOWED_OPERATORS"`
	RequestsPerSec   float64         `koanf:"requests_per_sec"  env:"TELEGRAM_REQUESTS_PER_SEC" validate:"gt=0"`
	Timeout          time.Duration   `koanf:"timeout"           env:"TELEGRAM_TIMEOUT"`
}

// GatewayConfig configures the group-management gateway client.
type GatewayConfig struct {
	BaseURL string          `koanf:"base_url" env:"GATEWAY_BASE_URL" validate:"omitempty,url"`
	APIKey  SensitiveString `koanf:"api_key"  env:"GATEWAY_API_KEY"  sensitive:"true"`
	Timeout time.Duration   `koanf:"timeout"  env:"GATEWAY_TIMEOUT"`
}

// RedisConfig is optional; when URL is empty in-process locks and dedupe are used.
type RedisConfig struct {
	URL            string        `koanf:"url"             env:"REDIS_URL"`
	Prefix         string        `koanf:"prefix"          env:"REDIS_PREFIX"`
	JobLockTTL     time.Duration `koanf:"job_lock_ttl"    env:"REDIS_JOB_LOCK_TTL"`
	DedupeTTL      time.Duration `koanf:"dedupe_ttl"      env:"REDIS_DEDUPE_TTL"`
	PingTimeout    time.Duration `koanf:"ping_timeout"    env:"REDIS_PING_TIMEOUT"`
	DedupeCapacity int           `koanf:"dedupe_capacity" env:"REDIS_DEDUPE_CAPACITY" validate:"min=1"`
}

// WizardConfig controls the selection menus.
type WizardConfig struct {
	PageSize int `koanf:"page_size" env:"WIZARD_PAGE_SIZE" validate:"min=1,max=50"`
}

// BatchConfig holds the pacing policy of the batch executor.
type BatchConfig struct {
	SettleDelay         time.Duration `koanf:"settle_delay"          env:"BATCH_SETTLE_DELAY"`
	VisibilityDelay     time.Duration `koanf:"visibility_delay"      env:"BATCH_VISIBILITY_DELAY"`
	MaxVisibilityChecks int           `koanf:"max_visibility_checks" env:"BATCH_MAX_VISIBILITY_CHECKS" validate:"min=1"`
	PromoteAttempts     int           `koanf:"promote_attempts"      env:"BATCH_PROMOTE_ATTEMPTS"      validate:"min=1"`
	PromoteBackoffStep  time.Duration `koanf:"promote_backoff_step"  env:"BATCH_PROMOTE_BACKOFF_STEP"`
	InterOpDelay        time.Duration `koanf:"inter_op_delay"        env:"BATCH_INTER_OP_DELAY"`
	AddPromoteCooldown  time.Duration `koanf:"add_promote_cooldown"  env:"BATCH_ADD_PROMOTE_COOLDOWN"`
	DemoteTargetDelay   time.Duration `koanf:"demote_target_delay"   env:"BATCH_DEMOTE_TARGET_DELAY"`
	DemoteGroupDelay    time.Duration `koanf:"demote_group_delay"    env:"BATCH_DEMOTE_GROUP_DELAY"`
	DemoteCooldown      time.Duration `koanf:"demote_cooldown"       env:"BATCH_DEMOTE_COOLDOWN"`
}

// RateLimitConfig guards the webhook endpoint. Rate uses the ulule
// limiter format, e.g. "60-S" or "1000-M".
type RateLimitConfig struct {
	Enabled bool   `koanf:"enabled" env:"RATELIMIT_ENABLED"`
	Rate    string `koanf:"rate"    env:"RATELIMIT_RATE"`
}

// MonitoringConfig controls the prometheus exporter.
type MonitoringConfig struct {
	Enabled bool   `koanf:"enabled" env:"MONITORING_ENABLED"`
	Path    string `koanf:"path"    env:"MONITORING_PATH"    validate:"startswith=/"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Runtime: RuntimeConfig{
			Environment: "development",
			LogLevel:    "info",
		},
		Telegram: TelegramConfig{
			BaseURL:        "https://api.telegram.org",
			RequestsPerSec: 25,
			Timeout:        15 * time.Second,
		},
		Gateway: GatewayConfig{
			BaseURL: "http://localhost:3000",
			Timeout: 30 * time.Second,
		},
		Redis: RedisConfig{
			Prefix:         "groupops:",
			JobLockTTL:     6 * time.Hour,
			DedupeTTL:      10 * time.Minute,
			PingTimeout:    5 * time.Second,
			DedupeCapacity: 4096,
		},
		Wizard: WizardConfig{
			PageSize: 8,
		},
		Batch: BatchConfig{
			SettleDelay:         15 * time.Second,
			VisibilityDelay:     10 * time.Second,
			MaxVisibilityChecks: 5,
			PromoteAttempts:     5,
			PromoteBackoffStep:  5 * time.Second,
			InterOpDelay:        5 * time.Second,
			AddPromoteCooldown:  30 * time.Second,
			DemoteTargetDelay:   2 * time.Second,
			DemoteGroupDelay:    3 * time.Second,
			DemoteCooldown:      10 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			Rate:    "60-S",
		},
		Monitoring: MonitoringConfig{
			Enabled: false,
			Path:    "/metrics",
		},
	}
}

// SensitiveString hides its value when printed or serialized.
type SensitiveString string

const redacted = "[REDACTED]"

func (s SensitiveString) String() string {
	if s == "" {
		return ""
	}
	return redacted
}

// Value returns the raw secret.
func (s SensitiveString) Value() string {
	return string(s)
}

func (s SensitiveString) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}
