package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	DBMaxConns         int32
	RedisURL           string
	JWTSecret          string
	JWTIssuer          string
	JWTAudience        string
	CORSAllowedOrigins []string

	TenantHeader     string
	TenantRootDomain string
	TenantDefault    string

	IdempotencyTTL   time.Duration
	RateLimitBackend string
	RateLimitWindow  time.Duration
	RateLimitMax     int

	Voucher VoucherConfig

	StudioSettingsCacheTTL time.Duration

	NotifyEmailEnabled bool
	NotifyEmailFrom    string
	SMTPHost           string
	SMTPPort           int
	SMTPUsername       string
	SMTPPassword       string
	NotifyQueue        string
	NotifyMaxRetry     int
	WorkerConcurrency  int
	LockTTL            time.Duration

	AuditEnabled      bool
	AuditSamplingRate float64

	LogFormat        string
	LogLevel         string
	MetricsNamespace string
	MetricsBuckets   string
	TraceExporter    string
	TraceEndpoint    string
	TraceSampling    float64
	PprofUser        string
	PprofPassword    string
}

// VoucherConfig carries the default studio policy and code generation knobs.
type VoucherConfig struct {
	OnlineMin        decimal.Decimal
	OnlineMax        decimal.Decimal
	AdminMin         decimal.Decimal
	AdminMax         decimal.Decimal
	ValidityMonths   int
	CodeAttempts     int
	MutationAttempts int
	AdminCodePrefix  string
	OnlineCodePrefix string
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	var errs []error
	money := func(key, fallback string) decimal.Decimal {
		raw := valueOrDefault(k.String(key), fallback)
		d, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil || d.IsNegative() {
			errs = append(errs, fmt.Errorf("%s: invalid amount %q", key, raw))
			return decimal.Zero
		}
		return d
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		DBMaxConns:         int32(parseInt(k.String("DB_MAX_CONNS"), 10)),
		RedisURL:           k.String("REDIS_URL"),
		JWTSecret:          k.String("JWT_SECRET"),
		JWTIssuer:          strings.TrimSpace(k.String("JWT_ISSUER")),
		JWTAudience:        strings.TrimSpace(k.String("JWT_AUDIENCE")),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		TenantHeader:     strings.TrimSpace(k.String("TENANT_HEADER")),
		TenantRootDomain: strings.TrimSpace(k.String("TENANT_ROOT_DOMAIN")),
		TenantDefault:    strings.TrimSpace(k.String("TENANT_DEFAULT")),

		IdempotencyTTL:   parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		RateLimitBackend: strings.ToLower(valueOrDefault(k.String("RATE_LIMIT_BACKEND"), "sliding")),
		RateLimitWindow:  parseDuration(k.String("RATE_LIMIT_WINDOW"), "1m"),
		RateLimitMax:     parseInt(k.String("RATE_LIMIT_MAX"), 30),

		Voucher: VoucherConfig{
			OnlineMin:        money("VOUCHER_ONLINE_MIN", "25"),
			OnlineMax:        money("VOUCHER_ONLINE_MAX", "0"),
			AdminMin:         money("VOUCHER_ADMIN_MIN", "10"),
			AdminMax:         money("VOUCHER_ADMIN_MAX", "1000"),
			ValidityMonths:   parseInt(k.String("VOUCHER_VALIDITY_MONTHS"), 12),
			CodeAttempts:     parseInt(k.String("VOUCHER_CODE_ATTEMPTS"), 5),
			MutationAttempts: parseInt(k.String("VOUCHER_MUTATION_ATTEMPTS"), 3),
			AdminCodePrefix:  strings.TrimSpace(k.String("VOUCHER_ADMIN_CODE_PREFIX")),
			OnlineCodePrefix: strings.TrimSpace(k.String("VOUCHER_ONLINE_CODE_PREFIX")),
		},

		StudioSettingsCacheTTL: parseDuration(k.String("STUDIO_SETTINGS_CACHE_TTL"), "5m"),

		NotifyEmailEnabled: parseBool(k.String("NOTIFY_EMAIL_ENABLED")),
		NotifyEmailFrom:    strings.TrimSpace(k.String("NOTIFY_EMAIL_FROM")),
		SMTPHost:           strings.TrimSpace(k.String("SMTP_HOST")),
		SMTPPort:           parseInt(k.String("SMTP_PORT"), 587),
		SMTPUsername:       k.String("SMTP_USERNAME"),
		SMTPPassword:       k.String("SMTP_PASSWORD"),
		NotifyQueue:        valueOrDefault(k.String("NOTIFY_QUEUE"), "notifications"),
		NotifyMaxRetry:     parseInt(k.String("NOTIFY_MAX_RETRY"), 8),
		WorkerConcurrency:  parseInt(k.String("WORKER_CONCURRENCY"), 5),
		LockTTL:            parseDuration(k.String("LOCK_TTL"), "30s"),

		AuditEnabled:      parseBoolDefault(k.String("AUDIT_ENABLED"), true),
		AuditSamplingRate: parseFloat(k.String("AUDIT_SAMPLING_RATE"), 1),

		LogFormat:        valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
		LogLevel:         valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
		MetricsNamespace: valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "vouchers"),
		MetricsBuckets:   k.String("OBS_METRICS_BUCKETS_MS"),
		TraceExporter:    valueOrDefault(k.String("OTEL_TRACES_EXPORTER"), "none"),
		TraceEndpoint:    strings.TrimSpace(k.String("OTEL_EXPORTER_OTLP_ENDPOINT")),
		TraceSampling:    parseFloat(k.String("OTEL_TRACES_SAMPLER_RATIO"), 1),
		PprofUser:        k.String("PPROF_USER"),
		PprofPassword:    k.String("PPROF_PASSWORD"),
	}

	if cfg.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if cfg.RedisURL == "" {
		errs = append(errs, errors.New("REDIS_URL is required"))
	}
	if cfg.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	switch cfg.RateLimitBackend {
	case "sliding", "ulule":
	default:
		errs = append(errs, fmt.Errorf("RATE_LIMIT_BACKEND: unsupported backend %q", cfg.RateLimitBackend))
	}
	if cfg.Voucher.AdminMin.GreaterThan(cfg.Voucher.AdminMax) {
		errs = append(errs, errors.New("VOUCHER_ADMIN_MIN must not exceed VOUCHER_ADMIN_MAX"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// IsProduction reports whether APP_ENV names a production deployment.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.AppEnv), "production")
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func parseFloat(value string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || f < 0 || f > 1 {
		return fallback
	}
	return f
}

func parseBool(value string) bool {
	return parseBoolDefault(value, false)
}

func parseBoolDefault(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
