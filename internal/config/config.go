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
)

// Config holds storefront configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	RedisURL           string
	UpstreamBaseURL    string
	JWTSecret          string
	JWTIssuer          string
	JWTAudience        string
	AccessCookieName   string
	CORSAllowedOrigins []string

	Upstream Upstream
	Circuit  Circuit

	ViewCacheTTL   time.Duration
	DraftTTL       time.Duration
	DraftLockTTL   time.Duration
	IdempotencyTTL time.Duration

	PriceLocale    string
	CurrencySuffix string
	PageWindow     int
	PageSize       int

	RateLimitWindow time.Duration
	RateLimitMax    int
	RateLimitDriver string

	BodyLimitBytes         int64
	SecurityHeadersEnabled bool
	CSRFEnabled            bool
	HealthTimeout          time.Duration
	ShutdownTimeout        time.Duration

	Audit Audit
	Obs   Obs
}

// Upstream tunes the shop backend client.
type Upstream struct {
	Timeout     time.Duration
	MaxAttempts int
	RetryBase   time.Duration
	RetryJitter time.Duration
}

// Circuit tunes the breaker guarding the shop backend.
type Circuit struct {
	MinRequests  int
	FailureRatio float64
	OpenFor      time.Duration
}

// Audit controls the trail of destructive actions.
type Audit struct {
	Enabled      bool
	SamplingRate float64
	MaxLen       int64
}

// Obs holds the OBS_* observability toggles.
type Obs struct {
	LogFormat        string
	LogLevel         string
	MetricsNamespace string
	MetricsBuckets   string
	EnablePrometheus bool
	EnableTracing    bool
	EnablePprof      bool
	TracingExporter  string
	OTLPEndpoint     string
	OTLPHeaders      string
	SamplingRatio    float64
	PprofUser        string
	PprofPass        string
}

// Rate limit drivers.
const (
	DriverSliding = "sliding"
	DriverFixed   = "fixed"
)

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}
	get := func(key, fallback string) string { return valueOrDefault(k.String(key), fallback) }

	cfg := &Config{
		AppEnv:             get("APP_ENV", "development"),
		Port:               get("PORT", "8080"),
		RedisURL:           strings.TrimSpace(k.String("REDIS_URL")),
		UpstreamBaseURL:    strings.TrimRight(strings.TrimSpace(k.String("UPSTREAM_BASE_URL")), "/"),
		JWTSecret:          k.String("JWT_SECRET"),
		JWTIssuer:          strings.TrimSpace(k.String("JWT_ISSUER")),
		JWTAudience:        strings.TrimSpace(k.String("JWT_AUDIENCE")),
		AccessCookieName:   get("ACCESS_COOKIE_NAME", "accessToken"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		Upstream: Upstream{
			Timeout:     parseDuration(k.String("UPSTREAM_TIMEOUT"), "3s"),
			MaxAttempts: parseInt(k.String("UPSTREAM_MAX_ATTEMPTS"), 3),
			RetryBase:   parseDuration(k.String("UPSTREAM_RETRY_BASE"), "100ms"),
			RetryJitter: parseDuration(k.String("UPSTREAM_RETRY_JITTER"), "50ms"),
		},
		Circuit: Circuit{
			MinRequests:  parseInt(k.String("CIRCUIT_MIN_REQUESTS"), 10),
			FailureRatio: parseFloat(k.String("CIRCUIT_FAILURE_RATIO"), 0.5),
			OpenFor:      parseDuration(k.String("CIRCUIT_OPEN_FOR"), "30s"),
		},
		ViewCacheTTL:           parseDuration(k.String("VIEW_CACHE_TTL"), "60s"),
		DraftTTL:               parseDuration(k.String("DRAFT_TTL"), "30m"),
		DraftLockTTL:           parseDuration(k.String("DRAFT_LOCK_TTL"), "5s"),
		IdempotencyTTL:         parseDuration(k.String("IDEMPOTENCY_TTL"), "10m"),
		PriceLocale:            get("PRICE_LOCALE", "ko-KR"),
		CurrencySuffix:         get("CURRENCY_SUFFIX", "원"),
		PageWindow:             parseInt(k.String("PAGE_WINDOW"), 10),
		PageSize:               parseInt(k.String("PAGE_SIZE"), 10),
		RateLimitWindow:        parseDuration(k.String("RATE_LIMIT_WINDOW"), "1m"),
		RateLimitMax:           parseInt(k.String("RATE_LIMIT_MAX"), 30),
		RateLimitDriver:        strings.ToLower(get("RATE_LIMIT_DRIVER", DriverSliding)),
		BodyLimitBytes:         int64(parseInt(k.String("BODY_LIMIT_BYTES"), 64<<10)),
		SecurityHeadersEnabled: parseBool(k.String("SECURITY_HEADERS_ENABLED"), true),
		CSRFEnabled:            parseBool(k.String("CSRF_ENABLED"), true),
		HealthTimeout:          parseDuration(k.String("HEALTH_READY_TIMEOUT"), "500ms"),
		ShutdownTimeout:        parseDuration(k.String("SHUTDOWN_TIMEOUT"), "15s"),
		Audit: Audit{
			Enabled:      parseBool(k.String("AUDIT_ENABLED"), true),
			SamplingRate: parseFloat(k.String("AUDIT_SAMPLING_RATE"), 1),
			MaxLen:       int64(parseInt(k.String("AUDIT_MAX_LEN"), 10000)),
		},
		Obs: Obs{
			LogFormat:        get("OBS_LOG_FORMAT", "json"),
			LogLevel:         get("OBS_LOG_LEVEL", "info"),
			MetricsNamespace: get("OBS_METRICS_NAMESPACE", "storefront"),
			MetricsBuckets:   k.String("OBS_METRICS_BUCKETS_MS"),
			EnablePrometheus: parseBool(k.String("OBS_ENABLE_PROMETHEUS"), true),
			EnableTracing:    parseBool(k.String("OBS_ENABLE_TRACING"), true),
			EnablePprof:      parseBool(k.String("OBS_ENABLE_PPROF"), false),
			TracingExporter:  get("OBS_TRACING_EXPORTER", "otlp"),
			OTLPEndpoint:     strings.TrimSpace(k.String("OBS_OTLP_ENDPOINT")),
			OTLPHeaders:      k.String("OBS_OTLP_HEADERS"),
			SamplingRatio:    parseFloat(k.String("OBS_TRACING_SAMPLING_RATIO"), 1),
			PprofUser:        strings.TrimSpace(k.String("SECURE_PPROF_BASIC_AUTH_USER")),
			PprofPass:        strings.TrimSpace(k.String("SECURE_PPROF_BASIC_AUTH_PASS")),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.RedisURL == "" {
		errs = append(errs, errors.New("REDIS_URL is required"))
	}
	if c.UpstreamBaseURL == "" {
		errs = append(errs, errors.New("UPSTREAM_BASE_URL is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	switch c.RateLimitDriver {
	case DriverSliding, DriverFixed:
	default:
		errs = append(errs, fmt.Errorf("RATE_LIMIT_DRIVER %q must be %s or %s", c.RateLimitDriver, DriverSliding, DriverFixed))
	}
	if c.PageWindow < 1 {
		errs = append(errs, errors.New("PAGE_WINDOW must be positive"))
	}
	if c.PageSize < 1 {
		errs = append(errs, errors.New("PAGE_SIZE must be positive"))
	}
	return errors.Join(errs...)
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
	switch strings.ToLower(c.AppEnv) {
	case "prod", "production":
		return true
	}
	return false
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
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return v
}

func parseFloat(value string, fallback float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return v
}

func parseBool(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "t", "true", "yes", "on":
		return true
	case "0", "f", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// MustLoad behaves like Load but panics on error.
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
