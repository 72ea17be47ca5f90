package handlers

import (
	"context"
	"net/http"

	"ambulance/middleware"
	"ambulance/services/auth"

	"github.com/gin-gonic/gin"
)

// SessionService is what the session endpoints need from auth.SessionManager.
type SessionService interface {
	SignIn(ctx context.Context, idToken string) (*auth.Session, error)
	SignOut(ctx context.Context, session *auth.Session) error
}

type SessionHandler struct {
	sessions SessionService
}

func NewSessionHandler(sessions SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// SignInHandler exchanges a Firebase ID token for a session token.
func (h *SessionHandler) SignInHandler(c *gin.Context) {
	var req struct {
		IDToken string `json:"idToken" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	session, err := h.sessions.SignIn(c.Request.Context(), req.IDToken)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session": session,
		"role":    session.Actor.Role,
	})
}

// SignOutHandler ends the caller's session.
func (h *SessionHandler) SignOutHandler(c *gin.Context) {
	if err := h.sessions.SignOut(c.Request.Context(), middleware.SessionFrom(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Signed out"})
}
