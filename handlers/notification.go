package handlers

import (
	"net/http"

	"ambulance/middleware"
	"ambulance/services/notification"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notifications notification.NotificationService
}

func NewNotificationHandler(notifications notification.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// ListNotificationsHandler returns the newest admin inbox entries.
func (h *NotificationHandler) ListNotificationsHandler(c *gin.Context) {
	list, err := h.notifications.ListInbox(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	unread := 0
	for _, n := range list {
		if !n.Read {
			unread++
		}
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list, "unread": unread})
}

// MarkNotificationRead flags one inbox entry as read.
func (h *NotificationHandler) MarkNotificationRead(c *gin.Context) {
	if err := h.notifications.MarkRead(c.Request.Context(), middleware.ActorFrom(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}

// RegisterDeviceHandler subscribes an admin device to new-booking pushes.
func (h *NotificationHandler) RegisterDeviceHandler(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if err := h.notifications.RegisterAdminDevice(c.Request.Context(), middleware.ActorFrom(c), req.Token); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Device registered for admin alerts"})
}
