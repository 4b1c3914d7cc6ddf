package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		JWTSecret:          "admin-secret-1234567890",
		JWTAlgorithm:       "HS256",
		CSRFSecret:         strings.Repeat("c", 32),
		SessionTTLMinutes:  60,
		AIProvider:         "mock",
		PolicyCorpusSource: "embedded",
	}
}

func TestValidateAcceptsMockProviderWithEmbeddedCorpus(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidateRejectsInsecureSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.JWTSecret = "change-me-in-production"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected insecure JWT secret to fail")
	}

	cfg = validConfig()
	cfg.CSRFSecret = "short"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "CSRF_SECRET") {
		t.Fatalf("expected short CSRF secret to fail, got %v", err)
	}
}

func TestValidateProviderRequiresKey(t *testing.T) {
	cfg := validConfig()
	cfg.AIProvider = "openai"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "OPENAI_API_KEY") {
		t.Fatalf("expected missing OpenAI key to fail, got %v", err)
	}
	cfg.OpenAIAPIKey = "sk-test"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected openai config to pass, got %v", err)
	}

	cfg = validConfig()
	cfg.AIProvider = "watson"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected unsupported provider to fail")
	}
}

func TestValidateCorpusSource(t *testing.T) {
	cfg := validConfig()
	cfg.PolicyCorpusSource = "postgres"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Fatalf("expected postgres corpus without DATABASE_URL to fail, got %v", err)
	}

	cfg = validConfig()
	cfg.PolicyCorpusSource = "file"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected file corpus without path to fail")
	}
}

func TestRateLimitsFallBackToDefaults(t *testing.T) {
	limits := Config{AIRateMax: 7}.RateLimits()
	if limits.FormStep.MaxRequests != 30 || limits.FormStep.Window != time.Minute {
		t.Fatalf("unexpected form budget: %+v", limits.FormStep)
	}
	if limits.Generate.MaxRequests != 7 || limits.Generate.Window != 15*time.Minute {
		t.Fatalf("unexpected generate budget: %+v", limits.Generate)
	}
	if limits.Retry.MaxRequests != 3 {
		t.Fatalf("unexpected retry budget: %+v", limits.Retry)
	}
}

func TestGetEnvCSVTrimsAndFallsBack(t *testing.T) {
	t.Setenv("POLICYPULSE_TEST_CSV", " a , ,b ")
	got := getEnvCSV("POLICYPULSE_TEST_CSV", []string{"x"})
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected csv parse: %v", got)
	}

	t.Setenv("POLICYPULSE_TEST_CSV", " , ")
	got = getEnvCSV("POLICYPULSE_TEST_CSV", []string{"x"})
	if len(got) != 1 || got[0] != "x" {
		t.Fatalf("expected fallback, got %v", got)
	}
}
