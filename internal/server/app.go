package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"policypulse/backend/internal/actions"
	"policypulse/backend/internal/config"
	"policypulse/backend/internal/csrf"
	"policypulse/backend/internal/logger"
	"policypulse/backend/internal/ratelimit"
	"policypulse/backend/internal/session"
)

const (
	serviceName = "policypulse-api"
	roleAdmin   = "admin"
)

type Deps struct {
	Actions  *actions.Actions
	Sessions session.Store
	Limiter  *ratelimit.Limiter
	Signer   *csrf.Signer
	Logger   *logger.Logger
}

type App struct {
	cfg      config.Config
	actions  *actions.Actions
	sessions session.Store
	limiter  *ratelimit.Limiter
	signer   *csrf.Signer
	log      *logger.Logger
}

type AdminUser struct {
	Subject string
	Role    string
}

func New(cfg config.Config, d Deps) *App {
	log := d.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &App{
		cfg:      cfg,
		actions:  d.Actions,
		sessions: d.Sessions,
		limiter:  d.Limiter,
		signer:   d.Signer,
		log:      log.With("component", "http"),
	}
}

func (a *App) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), otelgin.Middleware(serviceName), requestContext(), requestLogger(a.log))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     a.cfg.CORSAllowOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", headerRequestID, headerCSRFToken},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", headerRequestID, "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", a.health)

	api := router.Group(a.cfg.APIPrefix)
	api.GET("/csrf", a.issueCSRFToken)
	api.POST("/assessment/steps/:stepId", a.processFormStep)
	api.POST("/assessment/complete", a.completeAssessment)
	api.POST("/summary/generate", a.generateSummary)
	api.POST("/summary/retry", a.retryGeneration)
	api.GET("/summary/:sessionId", a.getSummary)
	api.GET("/reports/:sessionId", a.downloadReport)

	admin := api.Group("/admin")
	admin.Use(a.authMiddleware())
	admin.GET("/rate-limits/:key", a.rateLimitStatus)
	admin.DELETE("/rate-limits/:key", a.resetRateLimit)
	admin.GET("/sessions/:sessionId", a.inspectSession)
	admin.DELETE("/sessions/:sessionId", a.deleteSession)

	return router
}

func (a *App) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": serviceName,
	})
}

// authMiddleware admits bearer tokens signed with the configured secret that
// carry role=admin.
func (a *App) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
			writeError(c, http.StatusUnauthorized, "Bearer token required")
			return
		}
		tokenString := strings.TrimSpace(authHeader[len("Bearer "):])
		if tokenString == "" {
			writeError(c, http.StatusUnauthorized, "Bearer token required")
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
			if token.Method == nil || token.Method.Alg() != a.cfg.JWTAlgorithm {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(a.cfg.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			writeError(c, http.StatusUnauthorized, "Invalid bearer token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			writeError(c, http.StatusUnauthorized, "Invalid token payload")
			return
		}
		if a.cfg.JWTAudience != "" && !claimHasAudience(claims["aud"], a.cfg.JWTAudience) {
			writeError(c, http.StatusUnauthorized, "Invalid token audience")
			return
		}
		if a.cfg.JWTIssuer != "" {
			issuer, _ := claims["iss"].(string)
			if issuer != a.cfg.JWTIssuer {
				writeError(c, http.StatusUnauthorized, "Invalid token issuer")
				return
			}
		}
		sub, _ := claims["sub"].(string)
		sub = strings.TrimSpace(sub)
		if sub == "" {
			writeError(c, http.StatusUnauthorized, "Token subject missing")
			return
		}
		role, _ := claims["role"].(string)
		if strings.ToLower(strings.TrimSpace(role)) != roleAdmin {
			writeError(c, http.StatusForbidden, "Insufficient role for this action")
			return
		}

		c.Set("adminUser", AdminUser{Subject: sub, Role: roleAdmin})
		c.Next()
	}
}

func claimHasAudience(value any, audience string) bool {
	switch v := value.(type) {
	case string:
		return v == audience
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && s == audience {
				return true
			}
		}
	case []string:
		for _, item := range v {
			if item == audience {
				return true
			}
		}
	}
	return false
}

func adminUserFromContext(c *gin.Context) (AdminUser, bool) {
	raw, ok := c.Get("adminUser")
	if !ok {
		return AdminUser{}, false
	}
	user, ok := raw.(AdminUser)
	return user, ok
}

func writeError(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}

// writeActionError maps an action failure onto its HTTP status. Anything
// that is not an *actions.Error is reported as an internal failure.
func writeActionError(c *gin.Context, err error) {
	var actionErr *actions.Error
	if !errors.As(err, &actionErr) {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Something went wrong. Please try again.",
			"kind":    string(actions.KindInternal),
		})
		return
	}
	body := gin.H{
		"success": false,
		"error":   actionErr.Message,
		"kind":    string(actionErr.Kind),
	}
	if secs := actionErr.RetryAfterSeconds(); secs > 0 {
		c.Header("Retry-After", fmt.Sprintf("%d", secs))
		body["retryAfter"] = secs
	}
	c.AbortWithStatusJSON(statusForKind(actionErr.Kind), body)
}

func statusForKind(kind actions.Kind) int {
	switch kind {
	case actions.KindValidation:
		return http.StatusBadRequest
	case actions.KindRateLimited:
		return http.StatusTooManyRequests
	case actions.KindCSRF:
		return http.StatusForbidden
	case actions.KindSession:
		return http.StatusNotFound
	case actions.KindAI:
		return http.StatusServiceUnavailable
	case actions.KindOutput:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func mustJSON(c *gin.Context, payload any) bool {
	if err := c.ShouldBindJSON(payload); err != nil {
		writeError(c, http.StatusBadRequest, "Invalid request payload")
		return false
	}
	return true
}
