package handlers

import (
	"net/http"

	"ambulance/middleware"
	"ambulance/models"
	"ambulance/services/user"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type UserHandler struct {
	users user.UserService
}

func NewUserHandler(users user.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// RegisterUserHandler creates an account and its profile.
func (h *UserHandler) RegisterUserHandler(c *gin.Context) {
	var req models.UserRegistration
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	u, err := h.users.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

// PasswordResetHandler mails a password-reset link.
func (h *UserHandler) PasswordResetHandler(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	if err := h.users.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password reset link sent to your email!"})
}

// GetProfileHandler returns the signed-in user's profile.
func (h *UserHandler) GetProfileHandler(c *gin.Context) {
	u, err := h.users.GetProfile(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// DeleteAccountHandler removes the signed-in user's account and bookings.
func (h *UserHandler) DeleteAccountHandler(c *gin.Context) {
	actor := middleware.ActorFrom(c)
	n, err := h.users.DeleteAccount(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	getLogger(c).Info("account removed", zap.String("userID", actor.ID))
	c.JSON(http.StatusOK, gin.H{"message": "Account deleted", "deletedBookings": n})
}
