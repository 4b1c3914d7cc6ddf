package server

import (
	"bytes"
	"net/http"
	"strings"
	"testing"

	"policypulse/backend/internal/csrf"
)

func TestHealth(t *testing.T) {
	ts := newTestServer(t, baseTestConfig)
	rec := performRequest(t, ts.router, http.MethodGet, "/health", "", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := decodeJSONMap(t, rec)["service"]; got != "policypulse-api" {
		t.Fatalf("unexpected service %v", got)
	}
	if rec.Header().Get(headerRequestID) == "" {
		t.Fatalf("expected request id header")
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	ts := newTestServer(t, baseTestConfig)
	rec := performRequest(t, ts.router, http.MethodGet, "/health", "", nil, map[string]string{headerRequestID: "req-123"})
	if got := rec.Header().Get(headerRequestID); got != "req-123" {
		t.Fatalf("expected inbound request id echoed, got %q", got)
	}
}

func TestIssueCSRFTokenSetsCookie(t *testing.T) {
	ts := newTestServer(t, baseTestConfig)
	rec := performRequest(t, ts.router, http.MethodGet, "/api/v1/csrf?clientId=client-7", "", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeJSONMap(t, rec)
	token, _ := body["csrfToken"].(string)
	if !csrf.ValidFormat(token) {
		t.Fatalf("expected 64-char hex token, got %q", token)
	}

	cookie := rec.Header().Get("Set-Cookie")
	if !strings.Contains(cookie, csrf.CookieName+"="+token) {
		t.Fatalf("expected cookie to carry the token, got %q", cookie)
	}
	if !strings.Contains(cookie, "HttpOnly") || !strings.Contains(cookie, "SameSite=Strict") {
		t.Fatalf("expected HttpOnly strict cookie, got %q", cookie)
	}

	signed, _ := body["signedToken"].(string)
	if err := ts.signer.Verify("client-7", signed); err != nil {
		t.Fatalf("expected signed token for client-7 to verify: %v", err)
	}
	if err := ts.signer.Verify("client-8", signed); err == nil {
		t.Fatalf("expected signed token to be bound to its client")
	}
}

func TestAssessmentFlowOverHTTP(t *testing.T) {
	ts := newTestServer(t, baseTestConfig)
	sessionID := completeAssessment(t, ts, "client-1")

	rec := performRequest(t, ts.router, http.MethodPost, "/api/v1/summary/generate", "", formBody("client-1", map[string]any{
		"sessionId": sessionID,
	}), csrfHeaders())
	if rec.Code != http.StatusOK {
		t.Fatalf("generate: expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	body := decodeJSONMap(t, rec)
	generated, ok := body["summary"].(map[string]any)
	if !ok {
		t.Fatalf("expected summary object, got %T", body["summary"])
	}
	score, _ := generated["overallScore"].(float64)
	if score < 70 || score > 100 {
		t.Fatalf("expected overall score in [70, 100], got %v", score)
	}

	rec = performRequest(t, ts.router, http.MethodGet, "/api/v1/summary/"+sessionID, "", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("read summary: expected 200, got %d", rec.Code)
	}
	if got := decodeJSONMap(t, rec)["sessionId"]; got != sessionID {
		t.Fatalf("expected session %s, got %v", sessionID, got)
	}
	if calls := ts.provider.Calls(); calls != 1 {
		t.Fatalf("expected one provider call, got %d", calls)
	}
}

func TestCompleteAssessmentRedirects(t *testing.T) {
	ts := newTestServer(t, baseTestConfig)
	sessionID := completeAssessment(t, ts, "client-1")

	rec := performRequest(t, ts.router, http.MethodPost, "/api/v1/assessment/complete", "", formBody("client-1", map[string]any{
		"sessionId": sessionID,
	}), csrfHeaders())
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d body=%s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Location"); got != "/summary?session="+sessionID {
		t.Fatalf("unexpected redirect location %q", got)
	}
}

func TestActionFailuresMapToStatus(t *testing.T) {
	ts := newTestServer(t, baseTestConfig)

	rec := performRequest(t, ts.router, http.MethodPost, "/api/v1/assessment/steps/personal", "", map[string]any{
		"csrfToken": testCSRFToken,
		"age":       "30",
	}, csrfHeaders())
	if rec.Code != http.StatusBadRequest || responseKind(t, rec) != "validation" {
		t.Fatalf("missing clientId: expected 400 validation, got %d %s", rec.Code, rec.Body.String())
	}
	if got := decodeJSONMap(t, rec)["error"]; got != "Missing required fields" {
		t.Fatalf("unexpected message %v", got)
	}

	otherToken := strings.Repeat("f", csrf.TokenLength)
	rec = performRequest(t, ts.router, http.MethodPost, "/api/v1/assessment/steps/personal", "", formBody("client-1", map[string]any{
		"age": "30", "gender": "female",
	}), map[string]string{"Cookie": csrf.CookieName + "=" + otherToken})
	if rec.Code != http.StatusForbidden || responseKind(t, rec) != "csrf" {
		t.Fatalf("cookie mismatch: expected 403 csrf, got %d %s", rec.Code, rec.Body.String())
	}
	if got := decodeJSONMap(t, rec)["error"]; got != "Invalid token" {
		t.Fatalf("unexpected message %v", got)
	}

	rec = performRequest(t, ts.router, http.MethodPost, "/api/v1/summary/generate", "", formBody("client-1", map[string]any{
		"sessionId": "no-such-session",
	}), csrfHeaders())
	if rec.Code != http.StatusNotFound || responseKind(t, rec) != "session" {
		t.Fatalf("unknown session: expected 404 session, got %d %s", rec.Code, rec.Body.String())
	}
	if calls := ts.provider.Calls(); calls != 0 {
		t.Fatalf("expected provider untouched, got %d calls", calls)
	}

	rec = performRequest(t, ts.router, http.MethodPost, "/api/v1/assessment/steps/personal", "", nil, csrfHeaders())
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty body: expected 400, got %d", rec.Code)
	}
}

func TestCSRFHeaderFallback(t *testing.T) {
	ts := newTestServer(t, baseTestConfig)
	headers := csrfHeaders()
	headers[headerCSRFToken] = testCSRFToken

	rec := performRequest(t, ts.router, http.MethodPost, "/api/v1/assessment/steps/personal", "", map[string]any{
		"clientId": "client-1",
		"age":      30,
		"gender":   "other",
	}, headers)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with header token, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestRateLimitedStepReturnsRetryAfter(t *testing.T) {
	cfg := newTestConfig()
	cfg.FormRateMax = 2
	ts := newTestServer(t, cfg)

	body := formBody("client-9", stepBodies[0].fields)
	for i := 0; i < 2; i++ {
		rec := performRequest(t, ts.router, http.MethodPost, "/api/v1/assessment/steps/personal", "", body, csrfHeaders())
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}
	rec := performRequest(t, ts.router, http.MethodPost, "/api/v1/assessment/steps/personal", "", body, csrfHeaders())
	if rec.Code != http.StatusTooManyRequests || responseKind(t, rec) != "rate_limited" {
		t.Fatalf("expected 429 rate_limited, got %d %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
	if secs, _ := decodeJSONMap(t, rec)["retryAfter"].(float64); secs <= 0 || secs > 60 {
		t.Fatalf("expected retryAfter within the window, got %v", secs)
	}

	other := performRequest(t, ts.router, http.MethodPost, "/api/v1/assessment/steps/personal", "", formBody("client-10", stepBodies[0].fields), csrfHeaders())
	if other.Code != http.StatusOK {
		t.Fatalf("expected other client unaffected, got %d", other.Code)
	}
}

func TestReadSummaryBeforeGeneration(t *testing.T) {
	ts := newTestServer(t, baseTestConfig)
	sessionID := completeAssessment(t, ts, "client-1")

	rec := performRequest(t, ts.router, http.MethodGet, "/api/v1/summary/"+sessionID, "", nil, nil)
	if rec.Code != http.StatusNotFound || responseKind(t, rec) != "session" {
		t.Fatalf("expected 404 session, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestDownloadReport(t *testing.T) {
	ts := newTestServer(t, baseTestConfig)
	sessionID := completeAssessment(t, ts, "client-1")
	rec := performRequest(t, ts.router, http.MethodPost, "/api/v1/summary/generate", "", formBody("client-1", map[string]any{
		"sessionId": sessionID,
	}), csrfHeaders())
	if rec.Code != http.StatusOK {
		t.Fatalf("generate: expected 200, got %d", rec.Code)
	}

	rec = performRequest(t, ts.router, http.MethodGet, "/api/v1/reports/"+sessionID+"?format=txt", "", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("txt report: expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	disposition := rec.Header().Get("Content-Disposition")
	if !strings.HasPrefix(disposition, `attachment; filename="policy-summary-`) || !strings.HasSuffix(disposition, `.txt"`) {
		t.Fatalf("unexpected Content-Disposition %q", disposition)
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain") {
		t.Fatalf("unexpected content type %q", rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Body.String(), "Overall relevance:") {
		t.Fatalf("expected text report body, got %q", rec.Body.String())
	}

	rec = performRequest(t, ts.router, http.MethodGet, "/api/v1/reports/"+sessionID, "", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("pdf report: expected 200, got %d", rec.Code)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")) {
		t.Fatalf("expected PDF body")
	}
	if !strings.HasSuffix(rec.Header().Get("Content-Disposition"), `.pdf"`) {
		t.Fatalf("unexpected Content-Disposition %q", rec.Header().Get("Content-Disposition"))
	}

	rec = performRequest(t, ts.router, http.MethodGet, "/api/v1/reports/"+sessionID+"?format=docx", "", nil, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown format: expected 400, got %d", rec.Code)
	}

	rec = performRequest(t, ts.router, http.MethodGet, "/api/v1/reports/missing?format=txt", "", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown session: expected 404, got %d", rec.Code)
	}
}

func TestRetryOverHTTPReplacesSummary(t *testing.T) {
	ts := newTestServer(t, baseTestConfig)
	sessionID := completeAssessment(t, ts, "client-1")
	body := formBody("client-1", map[string]any{"sessionId": sessionID})

	rec := performRequest(t, ts.router, http.MethodPost, "/api/v1/summary/generate", "", body, csrfHeaders())
	if rec.Code != http.StatusOK {
		t.Fatalf("generate: expected 200, got %d", rec.Code)
	}
	rec = performRequest(t, ts.router, http.MethodPost, "/api/v1/summary/retry", "", body, csrfHeaders())
	if rec.Code != http.StatusOK {
		t.Fatalf("retry: expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	if calls := ts.provider.Calls(); calls != 2 {
		t.Fatalf("expected retry to call the provider again, got %d calls", calls)
	}
}
