package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"policypulse/backend/internal/actions"
	"policypulse/backend/internal/csrf"
	"policypulse/backend/internal/report"
	"policypulse/backend/internal/summary"
)

// actionPayload binds the flat form body and splits off the action meta.
// The cookie copy of the CSRF token and the X-CSRF-Token header are picked
// up here so the actions package stays transport agnostic.
func actionPayload(c *gin.Context) (actions.Meta, map[string]any, bool) {
	var payload map[string]any
	if !mustJSON(c, &payload) {
		return actions.Meta{}, nil, false
	}
	meta, fields := actions.MetaFromPayload(payload)
	if strings.TrimSpace(meta.CSRFToken) == "" {
		meta.CSRFToken = c.GetHeader(headerCSRFToken)
	}
	if cookie, err := c.Cookie(csrf.CookieName); err == nil {
		meta.CookieToken = cookie
	}
	return meta, fields, true
}

func popString(fields map[string]any, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	delete(fields, key)
	s, _ := raw.(string)
	return strings.TrimSpace(s)
}

func generationOptions(fields map[string]any) summary.Options {
	return summary.Options{
		Language:    popString(fields, "language"),
		DetailLevel: popString(fields, "detailLevel"),
	}
}

func (a *App) processFormStep(c *gin.Context) {
	meta, fields, ok := actionPayload(c)
	if !ok {
		return
	}
	sessionID := popString(fields, "sessionId")

	result, err := a.actions.ProcessFormStep(c.Request.Context(), meta, c.Param("stepId"), fields, sessionID)
	if err != nil {
		writeActionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"sessionId": result.SessionID,
		"nextStep":  result.NextStep,
	})
}

func (a *App) completeAssessment(c *gin.Context) {
	meta, fields, ok := actionPayload(c)
	if !ok {
		return
	}
	sessionID := popString(fields, "sessionId")

	redirect, err := a.actions.CompleteAssessment(c.Request.Context(), meta, sessionID, fields)
	if err != nil {
		writeActionError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, redirect.Location)
}

func (a *App) generateSummary(c *gin.Context) {
	meta, fields, ok := actionPayload(c)
	if !ok {
		return
	}
	sessionID := popString(fields, "sessionId")

	result, err := a.actions.GenerateSummary(c.Request.Context(), meta, sessionID, generationOptions(fields))
	if err != nil {
		writeActionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"sessionId": result.SessionID,
		"summary":   result.Summary,
	})
}

func (a *App) retryGeneration(c *gin.Context) {
	meta, fields, ok := actionPayload(c)
	if !ok {
		return
	}
	sessionID := popString(fields, "sessionId")

	result, err := a.actions.RetryGeneration(c.Request.Context(), meta, sessionID, generationOptions(fields))
	if err != nil {
		writeActionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"sessionId": result.SessionID,
		"summary":   result.Summary,
	})
}

func (a *App) getSummary(c *gin.Context) {
	stored, err := a.actions.Summary(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		writeActionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"sessionId": stored.ID,
		"summary":   stored.Summary,
		"expiresAt": stored.ExpiresAt,
	})
}

func (a *App) downloadReport(c *gin.Context) {
	format, err := report.ParseFormat(c.Query("format"))
	if err != nil {
		writeError(c, http.StatusBadRequest, "Unsupported report format")
		return
	}
	stored, err := a.actions.Summary(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		writeActionError(c, err)
		return
	}

	artifact, err := report.Render(*stored.Summary, report.NewReportID(), format)
	if err != nil {
		a.log.Error("report render failed", "session_id", stored.ID, "format", string(format), "error", err.Error())
		writeError(c, http.StatusInternalServerError, "Report could not be generated")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", artifact.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, artifact.ContentType, artifact.Data)
}
