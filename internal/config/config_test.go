package config

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("LIGHTSPEED_X_TOKEN", "")
	t.Setenv("LIGHTSPEED_BUSINESS_ID", "")
	t.Setenv("LIGHTSPEED_MAX_PERIODS", "")

	cfg := Load()

	if cfg.Port != "8081" {
		t.Errorf("Port: got %q, want 8081", cfg.Port)
	}
	if cfg.Lightspeed.BaseURL != "https://no.gastrofix.com/api/" {
		t.Errorf("BaseURL: got %q", cfg.Lightspeed.BaseURL)
	}
	if cfg.Lightspeed.MaxPeriods != DefaultMaxPeriods {
		t.Errorf("MaxPeriods: got %d, want %d", cfg.Lightspeed.MaxPeriods, DefaultMaxPeriods)
	}
	if cfg.Lightspeed.Concurrency != 6 {
		t.Errorf("Concurrency: got %d, want 6", cfg.Lightspeed.Concurrency)
	}
	if cfg.Lightspeed.Timeout != 5*time.Second {
		t.Errorf("Timeout: got %v, want 5s", cfg.Lightspeed.Timeout)
	}
	if cfg.HasLightspeedCredentials() {
		t.Error("expected no credentials")
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("LIGHTSPEED_GASTROFIX_BASE_URL", "https://pos.example.com/api///")
	t.Setenv("LIGHTSPEED_X_TOKEN", " tok ")
	t.Setenv("LIGHTSPEED_BUSINESS_ID", "4711")
	t.Setenv("LIGHTSPEED_MAX_PERIODS", "500")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("TRIPLETEX_SESSION_TOKEN", "sess")

	cfg := Load()

	if cfg.Lightspeed.BaseURL != "https://pos.example.com/api/" {
		t.Errorf("BaseURL: got %q", cfg.Lightspeed.BaseURL)
	}
	if cfg.Lightspeed.Token != "tok" {
		t.Errorf("Token: got %q", cfg.Lightspeed.Token)
	}
	if !cfg.HasLightspeedCredentials() {
		t.Error("expected credentials")
	}
	if cfg.Lightspeed.MaxPeriods != MaxMaxPeriods {
		t.Errorf("MaxPeriods: got %d, want %d", cfg.Lightspeed.MaxPeriods, MaxMaxPeriods)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("AllowedOrigins: got %v", cfg.AllowedOrigins)
	}
	if !cfg.HasTripletexCredentials() {
		t.Error("expected tripletex credentials")
	}
}

func TestClampMaxPeriods(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{0, 60},
		{-3, 60},
		{1, 14},
		{14, 14},
		{45, 45},
		{90, 90},
		{91, 90},
	}
	for _, tt := range tests {
		if got := ClampMaxPeriods(tt.in); got != tt.want {
			t.Errorf("ClampMaxPeriods(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "warn", "json")

	logger.Info("hidden")
	LogError(logger, "config", "TestNewLogger", map[string]int{"n": 1}, errors.New("boom"))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info message should be filtered at warn level")
	}
	if !strings.Contains(out, `"msg":"boom"`) || !strings.Contains(out, `"module":"config"`) {
		t.Errorf("unexpected log output: %s", out)
	}
	if logger.GetLevel() != logrus.WarnLevel {
		t.Errorf("level: got %v", logger.GetLevel())
	}
}

func TestReportLocation_Fallback(t *testing.T) {
	loc := ReportLocation("Not/AZone")
	_, offset := time.Date(2025, 1, 1, 12, 0, 0, 0, loc).Zone()
	if offset != 3600 {
		t.Errorf("fallback offset: got %d, want 3600", offset)
	}
}
