package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultMaxPeriods = 60
	MinMaxPeriods     = 14
	MaxMaxPeriods     = 90
)

type Config struct {
	Port           string
	LogLevel       string
	LogFormat      string
	Timezone       string
	SnapshotDir    string
	TokenSecret    string
	AllowedOrigins []string
	LiveInterval   time.Duration
	Lightspeed     LightspeedConfig
	Tripletex      TripletexConfig
	Redis          RedisConfig
}

// LightspeedConfig holds the POS (Gastrofix) API settings.
type LightspeedConfig struct {
	BaseURL          string
	Token            string
	BusinessID       string
	Operator         string
	PeriodsPath      string
	TransactionsPath string
	Timeout          time.Duration
	RatePerSecond    float64
	MaxPeriods       int
	Concurrency      int
}

// TripletexConfig holds the accounting ledger API settings.
type TripletexConfig struct {
	BaseURL        string
	SessionToken   string
	ConsumerToken  string
	EmployeeToken  string
	Timeout        time.Duration
	BeerAccountID  int64
	SalesAccountLo int
	SalesAccountHi int
}

type RedisConfig struct {
	Address  string
	BatchTTL time.Duration
}

// Load reads configuration from the environment. Call godotenv.Load first
// if a .env file should be honoured.
func Load() *Config {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8081")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("REPORT_TIMEZONE", "Europe/Oslo")
	v.SetDefault("SNAPSHOT_DIR", "data/lightspeed")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("LIVE_INTERVAL_SECONDS", 60)

	v.SetDefault("LIGHTSPEED_GASTROFIX_BASE_URL", "https://no.gastrofix.com/api/")
	v.SetDefault("LIGHTSPEED_PERIODS_PATH", "transaction/v3.0/business_periods")
	v.SetDefault("LIGHTSPEED_TRANSACTIONS_PATH", "transaction/v3.0/transactions")
	v.SetDefault("LIGHTSPEED_TIMEOUT_SECONDS", 5)
	v.SetDefault("LIGHTSPEED_RATE_PER_SECOND", 10)
	v.SetDefault("LIGHTSPEED_MAX_PERIODS", DefaultMaxPeriods)
	v.SetDefault("LIGHTSPEED_CONCURRENCY", 6)

	v.SetDefault("TRIPLETEX_BASE_URL", "https://tripletex.no/v2")
	v.SetDefault("TRIPLETEX_TIMEOUT_SECONDS", 5)
	v.SetDefault("TRIPLETEX_BEER_ACCOUNT_ID", 289896744)

	v.SetDefault("REDIS_BATCH_TTL_HOURS", 24)

	concurrency := v.GetInt("LIGHTSPEED_CONCURRENCY")
	if concurrency < 1 {
		concurrency = 1
	}

	return &Config{
		Port:           v.GetString("PORT"),
		LogLevel:       v.GetString("LOG_LEVEL"),
		LogFormat:      v.GetString("LOG_FORMAT"),
		Timezone:       v.GetString("REPORT_TIMEZONE"),
		SnapshotDir:    v.GetString("SNAPSHOT_DIR"),
		TokenSecret:    v.GetString("DASHBOARD_TOKEN_SECRET"),
		AllowedOrigins: splitAndTrim(v.GetString("CORS_ALLOWED_ORIGINS")),
		LiveInterval:   time.Duration(v.GetInt("LIVE_INTERVAL_SECONDS")) * time.Second,
		Lightspeed: LightspeedConfig{
			BaseURL:          normalizeBaseURL(v.GetString("LIGHTSPEED_GASTROFIX_BASE_URL")),
			Token:            strings.TrimSpace(v.GetString("LIGHTSPEED_X_TOKEN")),
			BusinessID:       strings.TrimSpace(v.GetString("LIGHTSPEED_BUSINESS_ID")),
			Operator:         strings.TrimSpace(v.GetString("LIGHTSPEED_OPERATOR")),
			PeriodsPath:      strings.Trim(v.GetString("LIGHTSPEED_PERIODS_PATH"), "/"),
			TransactionsPath: strings.Trim(v.GetString("LIGHTSPEED_TRANSACTIONS_PATH"), "/"),
			Timeout:          time.Duration(v.GetInt("LIGHTSPEED_TIMEOUT_SECONDS")) * time.Second,
			RatePerSecond:    v.GetFloat64("LIGHTSPEED_RATE_PER_SECOND"),
			MaxPeriods:       ClampMaxPeriods(v.GetInt("LIGHTSPEED_MAX_PERIODS")),
			Concurrency:      concurrency,
		},
		Tripletex: TripletexConfig{
			BaseURL:        strings.TrimRight(v.GetString("TRIPLETEX_BASE_URL"), "/"),
			SessionToken:   strings.TrimSpace(v.GetString("TRIPLETEX_SESSION_TOKEN")),
			ConsumerToken:  strings.TrimSpace(v.GetString("TRIPLETEX_CONSUMER_TOKEN")),
			EmployeeToken:  strings.TrimSpace(v.GetString("TRIPLETEX_EMPLOYEE_TOKEN")),
			Timeout:        time.Duration(v.GetInt("TRIPLETEX_TIMEOUT_SECONDS")) * time.Second,
			BeerAccountID:  v.GetInt64("TRIPLETEX_BEER_ACCOUNT_ID"),
			SalesAccountLo: 3000,
			SalesAccountHi: 3999,
		},
		Redis: RedisConfig{
			Address:  strings.TrimSpace(v.GetString("REDIS_ADDRESS")),
			BatchTTL: time.Duration(v.GetInt("REDIS_BATCH_TTL_HOURS")) * time.Hour,
		},
	}
}

// HasLightspeedCredentials reports whether the live POS path can be attempted.
func (c *Config) HasLightspeedCredentials() bool {
	return c.Lightspeed.Token != "" && c.Lightspeed.BusinessID != ""
}

// HasTripletexCredentials reports whether a ledger session can be obtained.
func (c *Config) HasTripletexCredentials() bool {
	t := c.Tripletex
	return t.SessionToken != "" || (t.ConsumerToken != "" && t.EmployeeToken != "")
}

// ClampMaxPeriods bounds the business-period fan-out. Zero or negative means default.
func ClampMaxPeriods(n int) int {
	if n <= 0 {
		return DefaultMaxPeriods
	}
	if n < MinMaxPeriods {
		return MinMaxPeriods
	}
	if n > MaxMaxPeriods {
		return MaxMaxPeriods
	}
	return n
}

func normalizeBaseURL(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		s = "https://no.gastrofix.com/api/"
	}
	return strings.TrimRight(s, "/") + "/"
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
