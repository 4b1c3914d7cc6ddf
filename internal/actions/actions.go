package actions

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"policypulse/backend/internal/config"
	"policypulse/backend/internal/csrf"
	"policypulse/backend/internal/logger"
	"policypulse/backend/internal/profile"
	"policypulse/backend/internal/ratelimit"
	"policypulse/backend/internal/sanitize"
	"policypulse/backend/internal/session"
	"policypulse/backend/internal/summary"
)

// Meta carries the fields every action requires. CookieToken is the copy of
// the CSRF token held in the csrf_token cookie, when the transport has one.
type Meta struct {
	ClientID    string
	CSRFToken   string
	CookieToken string
}

// MetaFromPayload pulls clientId and csrfToken out of a form payload and
// returns the remaining fields.
func MetaFromPayload(payload map[string]any) (Meta, map[string]any) {
	fields := make(map[string]any, len(payload))
	var meta Meta
	for key, value := range payload {
		switch key {
		case "clientId":
			meta.ClientID, _ = value.(string)
		case "csrfToken":
			meta.CSRFToken, _ = value.(string)
		default:
			fields[key] = value
		}
	}
	return meta, fields
}

type StepResult struct {
	SessionID string `json:"sessionId"`
	NextStep  string `json:"nextStep,omitempty"`
}

type SummaryResult struct {
	SessionID string                      `json:"sessionId"`
	Summary   summary.PersonalizedSummary `json:"summary"`
}

type Deps struct {
	Sessions  session.Store
	Limiter   *ratelimit.Limiter
	Summaries *summary.Service
	Budgets   config.RateBudgets
	// Signer, when set, also accepts tokens signed for the client id.
	Signer *csrf.Signer
	// RequireCookie rejects unsigned tokens that arrive without a cookie copy.
	RequireCookie bool
	Logger        *logger.Logger
}

// Actions implements the form, generation and retry operations. Every call
// checks required fields, then the rate limit, then the CSRF token, before
// touching a session.
type Actions struct {
	sessions      session.Store
	limiter       *ratelimit.Limiter
	summaries     *summary.Service
	budgets       config.RateBudgets
	signer        *csrf.Signer
	requireCookie bool
	log           *logger.Logger
}

func New(d Deps) *Actions {
	log := d.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Actions{
		sessions:      d.Sessions,
		limiter:       d.Limiter,
		summaries:     d.Summaries,
		budgets:       d.Budgets,
		signer:        d.Signer,
		requireCookie: d.RequireCookie,
		log:           log.With("component", "actions"),
	}
}

// ProcessFormStep validates one step and merges it into the session,
// creating the session when sessionID is empty.
func (a *Actions) ProcessFormStep(ctx context.Context, meta Meta, stepID string, payload map[string]any, sessionID string) (StepResult, error) {
	if _, err := a.guard(ctx, meta, ratelimit.FormKey, a.budgets.FormStep); err != nil {
		return StepResult{}, err
	}

	stepID = sanitize.Input(stepID)
	update, err := profile.ParseStep(stepID, cleanFields(payload))
	if err != nil {
		return StepResult{}, validationError(err)
	}

	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		created, err := a.sessions.Create(ctx)
		if err != nil {
			return StepResult{}, a.internal("create session", err)
		}
		sessionID = created.ID
	}
	updated, err := a.sessions.UpdateProfile(ctx, sessionID, update)
	if err != nil {
		return StepResult{}, a.sessionFailure("update session", err, msgExpired)
	}

	return StepResult{SessionID: updated.ID, NextStep: profile.NextStep(stepID)}, nil
}

// CompleteAssessment applies the final step and, when the profile is
// complete, redirects to the summary page.
func (a *Actions) CompleteAssessment(ctx context.Context, meta Meta, sessionID string, payload map[string]any) (Redirect, error) {
	if _, err := a.guard(ctx, meta, ratelimit.FormKey, a.budgets.FormStep); err != nil {
		return Redirect{}, err
	}

	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return Redirect{}, newError(KindSession, msgExpired)
	}
	update, err := profile.ParseStep(profile.LastStep(), cleanFields(payload))
	if err != nil {
		return Redirect{}, validationError(err)
	}
	updated, err := a.sessions.UpdateProfile(ctx, sessionID, update)
	if err != nil {
		return Redirect{}, a.sessionFailure("complete assessment", err, msgExpired)
	}
	if err := updated.Profile.Complete(); err != nil {
		a.log.Info("assessment incomplete", "session_id", updated.ID, "reason", err.Error())
		return Redirect{}, newError(KindValidation, msgIncomplete)
	}

	a.log.Info("assessment completed", "session_id", updated.ID)
	return Redirect{Location: "/summary?session=" + url.QueryEscape(updated.ID)}, nil
}

// GenerateSummary returns the stored summary when there is one and
// generates it otherwise. An unknown session never reaches the provider.
func (a *Actions) GenerateSummary(ctx context.Context, meta Meta, sessionID string, opts summary.Options) (SummaryResult, error) {
	if _, err := a.guard(ctx, meta, ratelimit.GenerateKey, a.budgets.Generate); err != nil {
		return SummaryResult{}, err
	}
	current, err := a.loadForGeneration(ctx, sessionID)
	if err != nil {
		return SummaryResult{}, err
	}
	if current.Summary != nil {
		return SummaryResult{SessionID: current.ID, Summary: *current.Summary}, nil
	}
	return a.generate(ctx, current, opts)
}

// RetryGeneration discards the stored summary and generates a fresh one. A
// failed retry leaves the session without a summary.
func (a *Actions) RetryGeneration(ctx context.Context, meta Meta, sessionID string, opts summary.Options) (SummaryResult, error) {
	meta, err := a.guard(ctx, meta, ratelimit.RetryKey, a.budgets.Retry)
	if err != nil {
		return SummaryResult{}, err
	}
	current, err := a.loadForGeneration(ctx, sessionID)
	if err != nil {
		return SummaryResult{}, err
	}
	a.log.Info("summary retry requested", "session_id", current.ID, "client_id", meta.ClientID)
	cleared, err := a.sessions.ClearSummary(ctx, current.ID)
	if err != nil {
		return SummaryResult{}, a.sessionFailure("clear summary", err, msgInvalidSession)
	}
	return a.generate(ctx, cleared, opts)
}

// Summary reads the stored summary of a session.
func (a *Actions) Summary(ctx context.Context, sessionID string) (session.Session, error) {
	current, err := a.sessions.Get(ctx, strings.TrimSpace(sessionID))
	if err != nil {
		return session.Session{}, a.sessionFailure("read summary", err, msgInvalidSession)
	}
	if current.Summary == nil {
		return session.Session{}, newError(KindSession, "No summary has been generated for this session yet.")
	}
	return current, nil
}

func (a *Actions) loadForGeneration(ctx context.Context, sessionID string) (session.Session, error) {
	current, err := a.sessions.Get(ctx, strings.TrimSpace(sessionID))
	if err != nil {
		return session.Session{}, a.sessionFailure("load session", err, msgInvalidSession)
	}
	if err := current.Profile.Complete(); err != nil {
		return session.Session{}, newError(KindValidation, msgIncomplete)
	}
	return current, nil
}

func (a *Actions) generate(ctx context.Context, current session.Session, opts summary.Options) (SummaryResult, error) {
	result, err := a.summaries.Generate(ctx, current.ID, current.Profile, opts)
	if err != nil {
		return SummaryResult{}, generationError(err)
	}

	committed, err := a.sessions.CommitSummary(ctx, current.ID, current.Generation, result)
	switch {
	case err == nil:
		return SummaryResult{SessionID: committed.ID, Summary: *committed.Summary}, nil
	case errors.Is(err, session.ErrStaleGeneration):
		// Another generation finished first or the profile changed meanwhile.
		latest, getErr := a.sessions.Get(ctx, current.ID)
		if getErr != nil {
			return SummaryResult{}, a.sessionFailure("reload session", getErr, msgInvalidSession)
		}
		a.log.Info("discarded stale summary", "session_id", current.ID, "generation", current.Generation)
		if latest.Summary == nil {
			return SummaryResult{}, newError(KindSession, "Your answers changed while the summary was being prepared. Please try again.")
		}
		return SummaryResult{SessionID: latest.ID, Summary: *latest.Summary}, nil
	default:
		return SummaryResult{}, a.sessionFailure("store summary", err, msgInvalidSession)
	}
}

// guard runs the checks shared by every action and returns the sanitized
// meta fields.
func (a *Actions) guard(ctx context.Context, meta Meta, key func(string) string, budget config.RateBudget) (Meta, error) {
	meta.ClientID = sanitize.Input(meta.ClientID)
	meta.CSRFToken = strings.TrimSpace(meta.CSRFToken)
	meta.CookieToken = strings.TrimSpace(meta.CookieToken)
	if meta.ClientID == "" || meta.CSRFToken == "" {
		return meta, newError(KindValidation, msgMissingFields)
	}

	res, err := a.limiter.Allow(ctx, key(meta.ClientID), ratelimit.Options{
		Window:      budget.Window,
		MaxRequests: budget.MaxRequests,
	})
	if err != nil {
		return meta, a.internal("rate limit", err)
	}
	if !res.Allowed {
		a.log.Warn("rate limit exceeded", "client_id", meta.ClientID, "reset_time", res.ResetTime)
		return meta, rateLimited(res.RetryAfter(a.limiter.Now()))
	}

	if err := a.checkCSRF(meta); err != nil {
		return meta, newError(KindCSRF, msgInvalidToken)
	}
	return meta, nil
}

func (a *Actions) checkCSRF(meta Meta) error {
	if a.signer != nil && !csrf.ValidFormat(meta.CSRFToken) {
		return a.signer.Verify(meta.ClientID, meta.CSRFToken)
	}
	if meta.CookieToken != "" {
		return csrf.ValidateCookie(meta.CSRFToken, meta.CookieToken)
	}
	if a.requireCookie || !csrf.ValidFormat(meta.CSRFToken) {
		return csrf.ErrInvalidToken
	}
	return nil
}

func (a *Actions) sessionFailure(op string, err error, message string) error {
	if errors.Is(err, session.ErrNotFound) {
		return newError(KindSession, message)
	}
	return a.internal(op, err)
}

func (a *Actions) internal(op string, err error) error {
	a.log.Error("action failed", "op", op, "error", sanitize.ErrorMessage(err.Error()))
	return newError(KindInternal, msgInternal)
}

func cleanFields(payload map[string]any) map[string]any {
	cleaned, _ := sanitize.Object(payload).(map[string]any)
	if cleaned == nil {
		return map[string]any{}
	}
	return cleaned
}
