package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"ambulance/models"
	"ambulance/services/auth"
	"ambulance/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	sessionKey = "session"
	actorKey   = "actor"
)

// SessionResolver turns a bearer token into a live session.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*auth.Session, error)
}

// SessionAuthMiddleware requires a valid session token and stores the session
// and its actor on the context.
func SessionAuthMiddleware(sessions SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"message": "Insufficient authorization",
			})
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"message": "Insufficient authorization",
			})
			return
		}

		session, err := sessions.Resolve(c.Request.Context(), token)
		if errors.Is(err, models.ErrStoreUnavailable) {
			zap.L().Error("session lookup failed", zap.String("ip", getClientIP(c)), zap.Error(err))
			utils.JSONError(c, http.StatusServiceUnavailable, "Service temporarily unavailable", "Please try again later.")
			return
		}
		if err != nil {
			zap.L().Debug("session rejected", zap.String("ip", getClientIP(c)), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"message": "Session expired or invalid. Please sign in again.",
			})
			return
		}

		c.Set(sessionKey, session)
		c.Set(actorKey, session.Actor)
		c.Next()
	}
}

// AdminOnlyMiddleware rejects actors without the admin role. It must run after
// SessionAuthMiddleware.
func AdminOnlyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := auth.RequireAdmin(ActorFrom(c)); err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"message": "Admin access required",
			})
			return
		}
		c.Next()
	}
}

// ActorFrom returns the signed-in actor, or the zero Actor.
func ActorFrom(c *gin.Context) models.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(models.Actor); ok {
			return actor
		}
	}
	return models.Actor{}
}

// SessionFrom returns the resolved session, or nil.
func SessionFrom(c *gin.Context) *auth.Session {
	if v, ok := c.Get(sessionKey); ok {
		if s, ok := v.(*auth.Session); ok {
			return s
		}
	}
	return nil
}
