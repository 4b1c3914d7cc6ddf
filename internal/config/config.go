package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv             string
	AppName            string
	APIPrefix          string
	AppPort            string
	LogMode            string
	DatabaseURL        string
	RedisURL           string
	JWTSecret          string
	JWTAlgorithm       string
	JWTAudience        string
	JWTIssuer          string
	CORSAllowOrigins   []string
	CSRFSecret         string
	CSRFMaxAgeMinutes  int
	CookieSecure       bool
	SessionTTLMinutes  int
	AIProvider         string
	OpenAIAPIKey       string
	OpenAIModel        string
	OpenAIBaseURL      string
	GeminiAPIKey       string
	GeminiModel        string
	AIMaxOutputTokens  int
	AITimeoutSeconds   int
	PolicyCorpusSource string
	PolicyCorpusPath   string
	PolicyCorpusYear   int
	FormRateMax        int
	FormRateWindowSec  int
	AIRateMax          int
	AIRateWindowSec    int
	RetryRateMax       int
	RetryRateWindowSec int
	OTelEnabled        bool
}

// RateBudget is one call site's fixed-window quota.
type RateBudget struct {
	Window      time.Duration
	MaxRequests int
}

type RateBudgets struct {
	FormStep RateBudget
	Generate RateBudget
	Retry    RateBudget
}

func Load() Config {
	_ = godotenv.Load(".env")

	return Config{
		AppEnv:       getEnv("APP_ENV", "local"),
		AppName:      getEnv("APP_NAME", "PolicyPulse API"),
		APIPrefix:    getEnv("API_PREFIX", "/api/v1"),
		AppPort:      getEnv("APP_PORT", "8000"),
		LogMode:      getEnv("LOG_MODE", "dev"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		RedisURL:     getEnv("REDIS_URL", ""),
		JWTSecret:    getEnv("JWT_SECRET", ""),
		JWTAlgorithm: getEnv("JWT_ALGORITHM", "HS256"),
		JWTAudience:  getEnv("JWT_AUDIENCE", ""),
		JWTIssuer:    getEnv("JWT_ISSUER", ""),
		CORSAllowOrigins: getEnvCSV(
			"CORS_ALLOW_ORIGINS",
			[]string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:3000"},
		),
		CSRFSecret:         getEnv("CSRF_SECRET", ""),
		CSRFMaxAgeMinutes:  getEnvInt("CSRF_MAX_AGE_MINUTES", 60),
		CookieSecure:       getEnvBool("COOKIE_SECURE", false),
		SessionTTLMinutes:  getEnvInt("SESSION_TTL_MINUTES", 60),
		AIProvider:         strings.ToLower(getEnv("AI_PROVIDER", "mock")),
		OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:        getEnv("OPENAI_MODEL", "gpt-5-mini"),
		OpenAIBaseURL:      getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		GeminiAPIKey:       getEnv("GEMINI_API_KEY", ""),
		GeminiModel:        getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		AIMaxOutputTokens:  getEnvInt("AI_MAX_OUTPUT_TOKENS", 2400),
		AITimeoutSeconds:   getEnvInt("AI_TIMEOUT_SECONDS", 30),
		PolicyCorpusSource: strings.ToLower(getEnv("POLICY_CORPUS_SOURCE", "embedded")),
		PolicyCorpusPath:   getEnv("POLICY_CORPUS_PATH", ""),
		PolicyCorpusYear:   getEnvInt("POLICY_CORPUS_YEAR", 2025),
		FormRateMax:        getEnvInt("RATE_LIMIT_FORM_MAX", 30),
		FormRateWindowSec:  getEnvInt("RATE_LIMIT_FORM_WINDOW_SECONDS", 60),
		AIRateMax:          getEnvInt("RATE_LIMIT_AI_MAX", 5),
		AIRateWindowSec:    getEnvInt("RATE_LIMIT_AI_WINDOW_SECONDS", 900),
		RetryRateMax:       getEnvInt("RATE_LIMIT_RETRY_MAX", 3),
		RetryRateWindowSec: getEnvInt("RATE_LIMIT_RETRY_WINDOW_SECONDS", 900),
		OTelEnabled:        getEnvBool("OTEL_ENABLED", false),
	}
}

func (c Config) Validate() error {
	secret := strings.TrimSpace(c.JWTSecret)
	if secret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if secret == "change-me-in-production" {
		return errors.New("JWT_SECRET must not use insecure default value")
	}
	if len(secret) < 16 {
		return errors.New("JWT_SECRET is too short; use at least 16 characters")
	}
	if strings.TrimSpace(c.JWTAlgorithm) == "" {
		return errors.New("JWT_ALGORITHM is required")
	}
	if len(strings.TrimSpace(c.CSRFSecret)) < 32 {
		return errors.New("CSRF_SECRET is too short; use at least 32 characters")
	}
	if c.SessionTTLMinutes <= 0 {
		return errors.New("SESSION_TTL_MINUTES must be positive")
	}

	switch c.AIProvider {
	case "mock":
	case "openai":
		if strings.TrimSpace(c.OpenAIAPIKey) == "" {
			return errors.New("OPENAI_API_KEY is required when AI_PROVIDER=openai")
		}
	case "gemini":
		if strings.TrimSpace(c.GeminiAPIKey) == "" {
			return errors.New("GEMINI_API_KEY is required when AI_PROVIDER=gemini")
		}
	default:
		return fmt.Errorf("AI_PROVIDER %q is not supported", c.AIProvider)
	}

	switch c.PolicyCorpusSource {
	case "embedded":
	case "file":
		if strings.TrimSpace(c.PolicyCorpusPath) == "" {
			return errors.New("POLICY_CORPUS_PATH is required when POLICY_CORPUS_SOURCE=file")
		}
	case "postgres":
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return errors.New("DATABASE_URL is required when POLICY_CORPUS_SOURCE=postgres")
		}
	default:
		return fmt.Errorf("POLICY_CORPUS_SOURCE %q is not supported", c.PolicyCorpusSource)
	}
	return nil
}

func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

func (c Config) CSRFMaxAge() time.Duration {
	return time.Duration(c.CSRFMaxAgeMinutes) * time.Minute
}

func (c Config) AITimeout() time.Duration {
	seconds := c.AITimeoutSeconds
	if seconds <= 0 {
		seconds = 30
	}
	return time.Duration(seconds) * time.Second
}

func (c Config) RateLimits() RateBudgets {
	return RateBudgets{
		FormStep: budget(c.FormRateMax, c.FormRateWindowSec, 30, 60),
		Generate: budget(c.AIRateMax, c.AIRateWindowSec, 5, 900),
		Retry:    budget(c.RetryRateMax, c.RetryRateWindowSec, 3, 900),
	}
}

func budget(max, windowSec, fallbackMax, fallbackWindowSec int) RateBudget {
	if max <= 0 {
		max = fallbackMax
	}
	if windowSec <= 0 {
		windowSec = fallbackWindowSec
	}
	return RateBudget{
		Window:      time.Duration(windowSec) * time.Second,
		MaxRequests: max,
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvCSV(key string, fallback []string) []string {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, item := range parts {
		trimmed := strings.TrimSpace(item)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return fallback
	}
	return result
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}
