package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	RedisAddr   string
	RedisDB     int
	JWTSecret   string
	GeoIPDBPath string

	GoogleClientID string
	GoogleIssuer   string

	// Stripe credentials come in pairs; the billing credential resolver picks
	// the pair matching the persisted test-mode flag.
	StripeTestSecretKey     string
	StripeLiveSecretKey     string
	StripeTestWebhookSecret string
	StripeLiveWebhookSecret string
	StripeTestPrices        map[string]string
	StripeLivePrices        map[string]string
	StripeBaseURL           string

	OpenAIAPIKey       string
	OpenAIModel        string
	OpenAIPremiumModel string
	OpenAIBaseURL      string

	CORSAllowedOrigins []string
	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
	RateLimitPerMin    int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:     getEnvInt("REDIS_DB", 0),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		GeoIPDBPath: os.Getenv("GEOIP_DB_PATH"),

		GoogleClientID: os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleIssuer:   getEnv("GOOGLE_ISSUER", "https://accounts.google.com"),

		StripeTestSecretKey:     os.Getenv("STRIPE_TEST_SECRET_KEY"),
		StripeLiveSecretKey:     os.Getenv("STRIPE_LIVE_SECRET_KEY"),
		StripeTestWebhookSecret: os.Getenv("STRIPE_TEST_WEBHOOK_SECRET"),
		StripeLiveWebhookSecret: os.Getenv("STRIPE_LIVE_WEBHOOK_SECRET"),
		StripeTestPrices:        priceTable("STRIPE_TEST"),
		StripeLivePrices:        priceTable("STRIPE_LIVE"),
		StripeBaseURL:           getEnv("STRIPE_BASE_URL", "https://api.stripe.com/v1"),

		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:        getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIPremiumModel: getEnv("OPENAI_PREMIUM_MODEL", "gpt-4o"),
		OpenAIBaseURL:      getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),

		CORSAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173")),
		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:    getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if cfg.StripeTestSecretKey == "" {
		return nil, fmt.Errorf("STRIPE_TEST_SECRET_KEY is required")
	}

	return cfg, nil
}

// priceTable reads the four plan/interval price IDs for one credential set.
// Keys are "<plan>_<interval>", e.g. "pro_monthly".
func priceTable(prefix string) map[string]string {
	table := make(map[string]string, 4)
	for _, plan := range []string{"pro", "elite"} {
		for _, interval := range []string{"monthly", "annual"} {
			env := fmt.Sprintf("%s_PRICE_%s_%s", prefix, strings.ToUpper(plan), strings.ToUpper(interval))
			if v := strings.TrimSpace(os.Getenv(env)); v != "" {
				table[plan+"_"+interval] = v
			}
		}
	}
	return table
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
