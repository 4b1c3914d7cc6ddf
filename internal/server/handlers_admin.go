package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"policypulse/backend/internal/config"
	"policypulse/backend/internal/ratelimit"
	"policypulse/backend/internal/sanitize"
	"policypulse/backend/internal/session"
)

// budgetForKey picks the quota a stored key is counted against from its
// prefix.
func budgetForKey(budgets config.RateBudgets, key string) config.RateBudget {
	switch {
	case strings.HasPrefix(key, ratelimit.GenerateKey("")):
		return budgets.Generate
	case strings.HasPrefix(key, ratelimit.RetryKey("")):
		return budgets.Retry
	}
	return budgets.FormStep
}

func (a *App) rateLimitStatus(c *gin.Context) {
	key := sanitize.Input(c.Param("key"))
	if key == "" {
		writeError(c, http.StatusBadRequest, "Rate limit key required")
		return
	}
	budget := budgetForKey(a.cfg.RateLimits(), key)

	res, err := a.limiter.Status(c.Request.Context(), key, ratelimit.Options{
		Window:      budget.Window,
		MaxRequests: budget.MaxRequests,
	})
	if err != nil {
		a.log.Error("rate limit status failed", "key", key, "error", err.Error())
		writeError(c, http.StatusInternalServerError, "Rate limit status unavailable")
		return
	}

	body := gin.H{
		"key":         key,
		"allowed":     res.Allowed,
		"remaining":   res.Remaining,
		"maxRequests": budget.MaxRequests,
		"windowMs":    budget.Window.Milliseconds(),
	}
	if !res.ResetTime.IsZero() {
		body["resetTime"] = res.ResetTime.UTC()
	}
	c.JSON(http.StatusOK, body)
}

func (a *App) resetRateLimit(c *gin.Context) {
	key := sanitize.Input(c.Param("key"))
	if key == "" {
		writeError(c, http.StatusBadRequest, "Rate limit key required")
		return
	}
	if err := a.limiter.Reset(c.Request.Context(), key); err != nil {
		a.log.Error("rate limit reset failed", "key", key, "error", err.Error())
		writeError(c, http.StatusInternalServerError, "Rate limit reset failed")
		return
	}
	admin, _ := adminUserFromContext(c)
	a.log.Info("rate limit reset", "key", key, "admin", admin.Subject)
	c.Status(http.StatusNoContent)
}

// inspectSession shows the stored profile and generation state. The summary
// body itself is left to the public summary route.
func (a *App) inspectSession(c *gin.Context) {
	stored, err := a.sessions.Get(c.Request.Context(), sanitize.Input(c.Param("sessionId")))
	if errors.Is(err, session.ErrNotFound) {
		writeError(c, http.StatusNotFound, "Session not found")
		return
	}
	if err != nil {
		a.log.Error("session inspect failed", "error", err.Error())
		writeError(c, http.StatusInternalServerError, "Session lookup failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":         stored.ID,
		"profile":    stored.Profile,
		"complete":   stored.Profile.Complete() == nil,
		"hasSummary": stored.Summary != nil,
		"generation": stored.Generation,
		"createdAt":  stored.CreatedAt,
		"expiresAt":  stored.ExpiresAt,
	})
}

func (a *App) deleteSession(c *gin.Context) {
	sessionID := sanitize.Input(c.Param("sessionId"))
	if err := a.sessions.Delete(c.Request.Context(), sessionID); err != nil {
		a.log.Error("session delete failed", "error", err.Error())
		writeError(c, http.StatusInternalServerError, "Session delete failed")
		return
	}
	admin, _ := adminUserFromContext(c)
	a.log.Info("session deleted", "session_id", sessionID, "admin", admin.Subject)
	c.Status(http.StatusNoContent)
}
