package server

import (
	"net/http"
	"testing"
	"time"

	"policypulse/backend/internal/actions"
	"policypulse/backend/internal/config"
)

func TestClaimHasAudience(t *testing.T) {
	if !claimHasAudience("expected", "expected") {
		t.Fatalf("expected string audience to match")
	}
	if claimHasAudience("other", "expected") {
		t.Fatalf("expected mismatched string audience to fail")
	}
	if !claimHasAudience([]any{"x", "expected", "y"}, "expected") {
		t.Fatalf("expected []any audience to match")
	}
	if !claimHasAudience([]string{"x", "expected", "y"}, "expected") {
		t.Fatalf("expected []string audience to match")
	}
	if claimHasAudience(nil, "expected") {
		t.Fatalf("expected nil audience to fail")
	}
}

func TestStatusForKind(t *testing.T) {
	cases := map[actions.Kind]int{
		actions.KindValidation:  http.StatusBadRequest,
		actions.KindRateLimited: http.StatusTooManyRequests,
		actions.KindCSRF:        http.StatusForbidden,
		actions.KindSession:     http.StatusNotFound,
		actions.KindAI:          http.StatusServiceUnavailable,
		actions.KindOutput:      http.StatusBadGateway,
		actions.KindInternal:    http.StatusInternalServerError,
		actions.Kind("bogus"):   http.StatusInternalServerError,
	}
	for kind, want := range cases {
		if got := statusForKind(kind); got != want {
			t.Fatalf("kind %q: expected %d, got %d", kind, want, got)
		}
	}
}

func TestBudgetForKey(t *testing.T) {
	budgets := config.RateBudgets{
		FormStep: config.RateBudget{Window: time.Minute, MaxRequests: 30},
		Generate: config.RateBudget{Window: 15 * time.Minute, MaxRequests: 5},
		Retry:    config.RateBudget{Window: 15 * time.Minute, MaxRequests: 3},
	}
	if got := budgetForKey(budgets, "ai_client-1"); got != budgets.Generate {
		t.Fatalf("expected generate budget, got %+v", got)
	}
	if got := budgetForKey(budgets, "retry_client-1"); got != budgets.Retry {
		t.Fatalf("expected retry budget, got %+v", got)
	}
	if got := budgetForKey(budgets, "client-1"); got != budgets.FormStep {
		t.Fatalf("expected form budget, got %+v", got)
	}
}

func TestPopString(t *testing.T) {
	fields := map[string]any{"sessionId": "  abc ", "age": 3.0, "language": 7}
	if got := popString(fields, "sessionId"); got != "abc" {
		t.Fatalf("expected trimmed value, got %q", got)
	}
	if _, ok := fields["sessionId"]; ok {
		t.Fatalf("expected key removed from fields")
	}
	if got := popString(fields, "language"); got != "" {
		t.Fatalf("expected non-string to read as empty, got %q", got)
	}
	if got := popString(fields, "missing"); got != "" {
		t.Fatalf("expected missing key to read as empty, got %q", got)
	}
	if len(fields) != 1 {
		t.Fatalf("expected only age left, got %v", fields)
	}
}
