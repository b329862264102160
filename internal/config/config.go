// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server settings,
// logging, database paths, the dialogue/ordering business constants
// (confidence tiers, tax rate, resolution-policy ceilings), collaborator
// resilience budgets, rate limiting, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-dinebot-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// ConfidenceConfig groups the classifier/resolver confidence tiers.
// The tier ordering and comparison operators are fixed in code; only the
// numeric boundaries are tunable here.
type ConfidenceConfig struct {
	AutoAccept  float64 // resolver matches at or above this are added directly
	Suggest     float64 // matches in [Suggest, AutoAccept) become "did you mean" prompts
	Escalation  float64 // classifier results below this feed the unclear ladder
	PartialHint float64 // above this, a low-confidence guess still tailors the clarification
}

// SessionConfig governs conversation session lifecycle and memory.
type SessionConfig struct {
	TTL            time.Duration // session validity from creation/renewal
	HistoryLimit   int           // max retained turns (oldest kept, middle pruned)
	MaxMessageLen  int           // stored turns are truncated beyond this
	RecentTurns    int           // history window handed to the intent classifier
}

// OrderConfig holds cart arithmetic and submission constants.
type OrderConfig struct {
	TaxRate         float64       // e.g. 0.15
	DeliveryFee     float64       // flat fee added to every total
	MaxQuantity     int           // per-line quantity clamp
	BrandPrefix     string        // order number prefix, e.g. "BRG"
	ReadyOffset     time.Duration // estimated-ready offset applied at submission
	FulfillmentType string        // recorded on committed orders
	RemoveCues      []string      // lexical cues marking a removal phrase
	AddCues         []string      // lexical cues marking an addition phrase
}

// PolicyConfig holds the issue-resolution business constants. Comparison
// logic (strict ceilings, percentage credit) lives in the policy engine.
type PolicyConfig struct {
	MaxAutoRefund     float64       // missing-item full-refund ceiling
	WrongOrderCeiling float64       // wrong-order full-refund ceiling
	QualityCeiling    float64       // quality half-refund ceiling
	LateDelayMinimum  time.Duration // delay beyond which late credit applies
	LateCreditPct     float64       // fraction of total credited for late delivery
	LateCreditCap     float64       // absolute cap on the late credit
}

// NLUConfig bounds the external classifier and matcher calls.
type NLUConfig struct {
	ClassifyTimeout  time.Duration // classification is the cheaper, faster call
	MatchTimeout     time.Duration
	MaxRetries       int           // bounded retry budget per call
	BreakerThreshold int           // consecutive failures before short-circuit
	BreakerCooldown  time.Duration // open-state duration before a probe
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// App
	DBPath          string        // SQLite path
	MenuCacheTTL    time.Duration // in-process menu read-model cache
	JanitorInterval time.Duration // ready-order promotion sweep; 0 disables

	// Dialogue / ordering domain
	Confidence ConfidenceConfig
	Session    SessionConfig
	Order      OrderConfig
	Policy     PolicyConfig
	NLU        NLUConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// App
		DBPath:          getenv("DB_PATH", "app.db"),
		MenuCacheTTL:    getdur("MENU_CACHE_TTL", 5*time.Minute),
		JanitorInterval: getdur("JANITOR_INTERVAL", 30*time.Second),

		Confidence: ConfidenceConfig{
			AutoAccept:  getfloat("CONFIDENCE_AUTO_ACCEPT", 0.85),
			Suggest:     getfloat("CONFIDENCE_SUGGEST", 0.60),
			Escalation:  getfloat("ESCALATION_THRESHOLD", 0.60),
			PartialHint: getfloat("PARTIAL_HINT_THRESHOLD", 0.30),
		},
		Session: SessionConfig{
			TTL:           getdur("SESSION_TTL", 2*time.Hour),
			HistoryLimit:  getint("SESSION_HISTORY_LIMIT", 20),
			MaxMessageLen: getint("SESSION_MAX_MESSAGE_LEN", 2000),
			RecentTurns:   getint("SESSION_RECENT_TURNS", 4),
		},
		Order: OrderConfig{
			TaxRate:         getfloat("ORDER_TAX_RATE", 0.15),
			DeliveryFee:     getfloat("ORDER_DELIVERY_FEE", 0.0),
			MaxQuantity:     getint("ORDER_MAX_QUANTITY", 50),
			BrandPrefix:     getenv("ORDER_BRAND_PREFIX", "BRG"),
			ReadyOffset:     getdur("ORDER_READY_OFFSET", 15*time.Minute),
			FulfillmentType: getenv("ORDER_FULFILLMENT_TYPE", "drive-thru"),
			RemoveCues:      splitCSV(getenv("ORDER_REMOVE_CUES", "remove,delete,احذف,حذف,شيل,ازالة")),
			AddCues:         splitCSV(getenv("ORDER_ADD_CUES", "add,want,أضف,اضف,أريد,بدي,عايز,واضف")),
		},
		Policy: PolicyConfig{
			MaxAutoRefund:     getfloat("POLICY_MAX_AUTO_REFUND", 50.0),
			WrongOrderCeiling: getfloat("POLICY_WRONG_ORDER_CEILING", 75.0),
			QualityCeiling:    getfloat("POLICY_QUALITY_CEILING", 30.0),
			LateDelayMinimum:  getdur("POLICY_LATE_DELAY_MINIMUM", 30*time.Minute),
			LateCreditPct:     getfloat("POLICY_LATE_CREDIT_PCT", 0.20),
			LateCreditCap:     getfloat("POLICY_LATE_CREDIT_CAP", 25.0),
		},
		NLU: NLUConfig{
			ClassifyTimeout:  getdur("NLU_CLASSIFY_TIMEOUT", 5*time.Second),
			MatchTimeout:     getdur("NLU_MATCH_TIMEOUT", 10*time.Second),
			MaxRetries:       getint("NLU_MAX_RETRIES", 1),
			BreakerThreshold: getint("NLU_BREAKER_THRESHOLD", 5),
			BreakerCooldown:  getdur("NLU_BREAKER_COOLDOWN", 30*time.Second),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-dinebot-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if err := validateUnit(cfg.Confidence.AutoAccept, "CONFIDENCE_AUTO_ACCEPT"); err != nil {
		return cfg, err
	}
	if err := validateUnit(cfg.Confidence.Suggest, "CONFIDENCE_SUGGEST"); err != nil {
		return cfg, err
	}
	if err := validateUnit(cfg.Confidence.Escalation, "ESCALATION_THRESHOLD"); err != nil {
		return cfg, err
	}
	if cfg.Confidence.Suggest > cfg.Confidence.AutoAccept {
		return cfg, errors.New("CONFIDENCE_SUGGEST must not exceed CONFIDENCE_AUTO_ACCEPT")
	}
	if cfg.Session.TTL <= 0 {
		return cfg, errors.New("SESSION_TTL must be > 0")
	}
	if cfg.Session.HistoryLimit < 2 {
		return cfg, errors.New("SESSION_HISTORY_LIMIT must be >= 2")
	}
	if cfg.Order.TaxRate < 0 || cfg.Order.TaxRate >= 1 {
		return cfg, errors.New("ORDER_TAX_RATE must be in [0,1)")
	}
	if cfg.Order.DeliveryFee < 0 {
		return cfg, errors.New("ORDER_DELIVERY_FEE must be >= 0")
	}
	if cfg.Order.MaxQuantity < 1 {
		return cfg, errors.New("ORDER_MAX_QUANTITY must be >= 1")
	}
	if strings.TrimSpace(cfg.Order.BrandPrefix) == "" {
		return cfg, errors.New("ORDER_BRAND_PREFIX must not be empty")
	}
	if cfg.Policy.MaxAutoRefund < 0 || cfg.Policy.WrongOrderCeiling < 0 || cfg.Policy.QualityCeiling < 0 {
		return cfg, errors.New("policy ceilings must be >= 0")
	}
	if cfg.Policy.LateCreditPct < 0 || cfg.Policy.LateCreditPct > 1 {
		return cfg, errors.New("POLICY_LATE_CREDIT_PCT must be in [0,1]")
	}
	if cfg.NLU.ClassifyTimeout <= 0 || cfg.NLU.MatchTimeout <= 0 {
		return cfg, errors.New("NLU timeouts must be positive durations")
	}
	if cfg.NLU.MaxRetries < 0 {
		return cfg, errors.New("NLU_MAX_RETRIES must be >= 0")
	}
	if cfg.NLU.BreakerThreshold < 1 {
		return cfg, errors.New("NLU_BREAKER_THRESHOLD must be >= 1")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func validateUnit(v float64, name string) error {
	if v < 0 || v > 1 {
		return errors.New(name + " must be between 0 and 1")
	}
	return nil
}

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
