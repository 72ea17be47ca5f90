package handlers

import (
	"fmt"
	"net/http"

	"ambulance/middleware"
	"ambulance/services/admin"
	"ambulance/services/user"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AdminHandler struct {
	users       user.UserService
	maintenance admin.MaintenanceService
}

func NewAdminHandler(users user.UserService, maintenance admin.MaintenanceService) *AdminHandler {
	return &AdminHandler{users: users, maintenance: maintenance}
}

// ListUsersHandler lists users with booking counts, filtered by ?q=.
func (h *AdminHandler) ListUsersHandler(c *gin.Context) {
	users, err := h.users.ListUsers(c.Request.Context(), middleware.ActorFrom(c), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// ListAdminsHandler lists the admin accounts.
func (h *AdminHandler) ListAdminsHandler(c *gin.Context) {
	admins, err := h.users.ListAdmins(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"admins": admins})
}

// DeleteUserHandler removes a user and all of their bookings.
func (h *AdminHandler) DeleteUserHandler(c *gin.Context) {
	n, err := h.users.DeleteUser(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":         "User and all associated bookings deleted successfully",
		"deletedBookings": n,
	})
}

// PromoteUserHandler grants the admin role by e-mail.
func (h *AdminHandler) PromoteUserHandler(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	promoted, err := h.users.PromoteByEmail(c.Request.Context(), middleware.ActorFrom(c), req.Email)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("%s is now an admin", promoted.Email),
		"user":    promoted,
	})
}

// ExportDataHandler downloads every booking and user as JSON.
func (h *AdminHandler) ExportDataHandler(c *gin.Context) {
	export, filename, err := h.maintenance.Export(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.IndentedJSON(http.StatusOK, export)
}

// BackupDataHandler stores an export in the backup bucket.
func (h *AdminHandler) BackupDataHandler(c *gin.Context) {
	res, err := h.maintenance.Backup(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	getLogger(c).Info("backup requested", zap.String("path", res.Path))
	c.JSON(http.StatusOK, res)
}
