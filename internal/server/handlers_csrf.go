package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"policypulse/backend/internal/csrf"
	"policypulse/backend/internal/sanitize"
)

// issueCSRFToken sets a fresh csrf_token cookie and returns the same token
// for the form body. With ?clientId= and a configured signer it also returns
// a timestamped token bound to that client.
func (a *App) issueCSRFToken(c *gin.Context) {
	token, err := csrf.GenerateToken()
	if err != nil {
		a.log.Error("csrf token generation failed", "error", err.Error())
		writeError(c, http.StatusInternalServerError, "Token could not be issued")
		return
	}

	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(csrf.CookieName, token, int(a.cfg.CSRFMaxAge().Seconds()), "/", "", a.cfg.CookieSecure, true)
	c.Header("Cache-Control", "no-store")

	body := gin.H{"csrfToken": token}
	if clientID := sanitize.Input(c.Query("clientId")); clientID != "" && a.signer != nil {
		body["signedToken"] = a.signer.Sign(clientID, true)
	}
	c.JSON(http.StatusOK, body)
}
