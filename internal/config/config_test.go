package config

import (
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"PORT", "READ_TIMEOUT", "READ_HEADER_TIMEOUT", "WRITE_TIMEOUT", "IDLE_TIMEOUT",
		"MAX_HEADER_BYTES", "GIN_MODE", "LOG_LEVEL", "LOG_PRETTY", "SWAGGER_ENABLED",
		"API_BASE_PATH", "DB_PATH", "MENU_CACHE_TTL", "JANITOR_INTERVAL",
		"CONFIDENCE_AUTO_ACCEPT", "CONFIDENCE_SUGGEST", "ESCALATION_THRESHOLD",
		"PARTIAL_HINT_THRESHOLD", "SESSION_TTL", "SESSION_HISTORY_LIMIT",
		"SESSION_MAX_MESSAGE_LEN", "SESSION_RECENT_TURNS", "ORDER_TAX_RATE",
		"ORDER_DELIVERY_FEE", "ORDER_MAX_QUANTITY", "ORDER_BRAND_PREFIX",
		"ORDER_READY_OFFSET", "ORDER_FULFILLMENT_TYPE", "ORDER_REMOVE_CUES",
		"ORDER_ADD_CUES", "POLICY_MAX_AUTO_REFUND", "POLICY_WRONG_ORDER_CEILING",
		"POLICY_QUALITY_CEILING", "POLICY_LATE_DELAY_MINIMUM", "POLICY_LATE_CREDIT_PCT",
		"POLICY_LATE_CREDIT_CAP", "NLU_CLASSIFY_TIMEOUT", "NLU_MATCH_TIMEOUT",
		"NLU_MAX_RETRIES", "NLU_BREAKER_THRESHOLD", "NLU_BREAKER_COOLDOWN",
		"RATE_RPS", "RATE_BURST", "CORS_ALLOWED_ORIGINS", "ENABLE_HSTS",
		"HSTS_MAX_AGE", "OTEL_ENABLED", "OTEL_EXPORTER_OTLP_ENDPOINT",
		"OTEL_EXPORTER_OTLP_INSECURE", "OTEL_SERVICE_NAME", "OTEL_TRACES_SAMPLER_ARG",
	}
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q; want 8080", cfg.Port)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q; want info", cfg.LogLevel)
	}
	if cfg.Confidence.AutoAccept != 0.85 || cfg.Confidence.Suggest != 0.60 {
		t.Errorf("confidence tiers = %+v", cfg.Confidence)
	}
	if cfg.Confidence.Escalation != 0.60 || cfg.Confidence.PartialHint != 0.30 {
		t.Errorf("escalation tiers = %+v", cfg.Confidence)
	}
	if cfg.Session.TTL != 2*time.Hour || cfg.Session.HistoryLimit != 20 {
		t.Errorf("session = %+v", cfg.Session)
	}
	if cfg.Session.MaxMessageLen != 2000 {
		t.Errorf("MaxMessageLen = %d; want 2000", cfg.Session.MaxMessageLen)
	}
	if cfg.Order.TaxRate != 0.15 || cfg.Order.DeliveryFee != 0 {
		t.Errorf("order money = %+v", cfg.Order)
	}
	if cfg.Order.MaxQuantity != 50 || cfg.Order.BrandPrefix != "BRG" {
		t.Errorf("order limits = %+v", cfg.Order)
	}
	if len(cfg.Order.RemoveCues) == 0 || len(cfg.Order.AddCues) == 0 {
		t.Error("expected default compound-message cue lists")
	}
	if cfg.Policy.MaxAutoRefund != 50 || cfg.Policy.WrongOrderCeiling != 75 || cfg.Policy.QualityCeiling != 30 {
		t.Errorf("policy ceilings = %+v", cfg.Policy)
	}
	if cfg.Policy.LateDelayMinimum != 30*time.Minute || cfg.Policy.LateCreditPct != 0.20 || cfg.Policy.LateCreditCap != 25 {
		t.Errorf("late-delivery policy = %+v", cfg.Policy)
	}
	if cfg.MenuCacheTTL != 5*time.Minute {
		t.Errorf("MenuCacheTTL = %v; want 5m", cfg.MenuCacheTTL)
	}
	if cfg.APIBasePath != "/api/v1" {
		t.Errorf("APIBasePath = %q", cfg.APIBasePath)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "warning") // normalized to warn
	t.Setenv("ORDER_TAX_RATE", "0.05")
	t.Setenv("SESSION_TTL", "45m")
	t.Setenv("ORDER_REMOVE_CUES", "drop , strike")
	t.Setenv("API_BASE_PATH", "v2/")
	t.Setenv("GIN_MODE", "weird")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q; want warn", cfg.LogLevel)
	}
	if cfg.Order.TaxRate != 0.05 {
		t.Errorf("TaxRate = %v", cfg.Order.TaxRate)
	}
	if cfg.Session.TTL != 45*time.Minute {
		t.Errorf("TTL = %v", cfg.Session.TTL)
	}
	if len(cfg.Order.RemoveCues) != 2 || cfg.Order.RemoveCues[0] != "drop" || cfg.Order.RemoveCues[1] != "strike" {
		t.Errorf("RemoveCues = %v", cfg.Order.RemoveCues)
	}
	if cfg.APIBasePath != "/v2" {
		t.Errorf("APIBasePath = %q; want /v2", cfg.APIBasePath)
	}
	if cfg.GinMode != "release" {
		t.Errorf("GinMode = %q; want release fallback", cfg.GinMode)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"bad log level", map[string]string{"LOG_LEVEL": "verbose"}, "LOG_LEVEL"},
		{"auto accept out of range", map[string]string{"CONFIDENCE_AUTO_ACCEPT": "1.5"}, "CONFIDENCE_AUTO_ACCEPT"},
		{"suggest above accept", map[string]string{"CONFIDENCE_SUGGEST": "0.9"}, "CONFIDENCE_SUGGEST"},
		{"tax rate too high", map[string]string{"ORDER_TAX_RATE": "1.0"}, "ORDER_TAX_RATE"},
		{"history limit too small", map[string]string{"SESSION_HISTORY_LIMIT": "1"}, "SESSION_HISTORY_LIMIT"},
		{"zero max quantity", map[string]string{"ORDER_MAX_QUANTITY": "0"}, "ORDER_MAX_QUANTITY"},
		{"negative credit pct", map[string]string{"POLICY_LATE_CREDIT_PCT": "-0.1"}, "POLICY_LATE_CREDIT_PCT"},
		{"breaker threshold zero", map[string]string{"NLU_BREAKER_THRESHOLD": "0"}, "NLU_BREAKER_THRESHOLD"},
		{"sampler out of range", map[string]string{"OTEL_TRACES_SAMPLER_ARG": "2"}, "OTEL_TRACES_SAMPLER_ARG"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestMustLoad_PanicsOnInvalid(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOG_LEVEL", "nope")
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	MustLoad()
}

func TestHelperParsers(t *testing.T) {
	t.Setenv("X_BOOL", "YES")
	if !getbool("X_BOOL", false) {
		t.Error("YES should parse true")
	}
	t.Setenv("X_BOOL", "off")
	if getbool("X_BOOL", true) {
		t.Error("off should parse false")
	}
	t.Setenv("X_DUR", "not-a-duration")
	if getdur("X_DUR", time.Second) != time.Second {
		t.Error("bad duration should fall back to default")
	}
	t.Setenv("X_INT", "12x")
	if getint("X_INT", 7) != 7 {
		t.Error("bad int should fall back to default")
	}
	if got := splitCSV(" a, ,b ,"); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("splitCSV = %v", got)
	}
	if normalizeBasePath("") != "/" {
		t.Error("empty base path should normalize to /")
	}
}
