package summary

import (
	"context"
	"errors"
	"strings"
)

type ErrorKind string

const (
	KindNetwork       ErrorKind = "network"
	KindRateLimit     ErrorKind = "rate_limit"
	KindAuth          ErrorKind = "auth"
	KindInvalidOutput ErrorKind = "invalid_output"
	KindGeneric       ErrorKind = "generic"
)

var userMessages = map[ErrorKind]string{
	KindNetwork:       "The AI service is temporarily unavailable. Please try again in a moment.",
	KindRateLimit:     "The AI service is busy right now. Please wait a few minutes and try again.",
	KindAuth:          "The AI service is not configured correctly. Please contact support.",
	KindInvalidOutput: "We could not produce a valid summary. Please try again.",
	KindGeneric:       "Failed to generate your personalized summary. Please try again.",
}

func UserMessage(kind ErrorKind) string {
	if msg, ok := userMessages[kind]; ok {
		return msg
	}
	return userMessages[KindGeneric]
}

// GenerationError is what callers of the service see. Error() returns the
// fixed user-facing sentence; the provider error stays reachable through
// Unwrap for logging.
type GenerationError struct {
	Kind ErrorKind
	Err  error
}

func (e *GenerationError) Error() string { return UserMessage(e.Kind) }
func (e *GenerationError) Unwrap() error { return e.Err }

// Classify maps a provider or pipeline error to a kind by type first and
// then by message text.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindGeneric
	}
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return genErr.Kind
	}
	if errors.Is(err, ErrInvalidOutput) {
		return KindInvalidOutput
	}
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return KindAuth
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindNetwork
	}

	lowered := strings.ToLower(err.Error())
	switch {
	case containsAny(lowered, "rate limit", "rate_limit", "too many requests", "(429)", "quota", "resource_exhausted"):
		return KindRateLimit
	case containsAny(lowered, "timeout", "timed out", "deadline", "network", "connection", "no such host", "eof", "(502)", "(503)", "(504)", "unavailable"):
		return KindNetwork
	case containsAny(lowered, "api key", "api_key", "unauthorized", "authentication", "(401)", "(403)", "permission", "not configured", "invalid_api_key"):
		return KindAuth
	}
	return KindGeneric
}

func containsAny(haystack string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
