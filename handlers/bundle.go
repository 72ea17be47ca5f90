package handlers

import (
	"ambulance/middleware"

	"github.com/gin-gonic/gin"
)

// HandlerBundle groups all endpoint handlers into one struct.
type HandlerBundle struct {
	Sessions middleware.SessionResolver
	// MaxRequestsPerMin bounds each client IP; zero uses the default.
	MaxRequestsPerMin int

	// Health
	HealthHandler gin.HandlerFunc

	// Session endpoints
	SignInHandler  gin.HandlerFunc
	SignOutHandler gin.HandlerFunc

	// User endpoints
	RegisterUserHandler  gin.HandlerFunc
	PasswordResetHandler gin.HandlerFunc
	GetProfileHandler    gin.HandlerFunc
	DeleteAccountHandler gin.HandlerFunc

	// Booking endpoints
	CreateBookingHandler    gin.HandlerFunc
	MyBookingsHandler       gin.HandlerFunc
	MyBookingsLiveHandler   gin.HandlerFunc
	TrackBookingHandler     gin.HandlerFunc
	TrackingQRHandler       gin.HandlerFunc
	BookingSlipHandler      gin.HandlerFunc
	AdminBookingsHandler    gin.HandlerFunc
	AdminBookingsLive       gin.HandlerFunc
	UpdateStatusHandler     gin.HandlerFunc
	DashboardStatsHandler   gin.HandlerFunc
	BookingAnalyticsHandler gin.HandlerFunc

	// Admin endpoints
	ListUsersHandler   gin.HandlerFunc
	ListAdminsHandler  gin.HandlerFunc
	DeleteUserHandler  gin.HandlerFunc
	PromoteUserHandler gin.HandlerFunc
	ExportDataHandler  gin.HandlerFunc
	BackupDataHandler  gin.HandlerFunc

	// Notification endpoints
	ListNotificationsHandler gin.HandlerFunc
	MarkNotificationRead     gin.HandlerFunc
	RegisterDeviceHandler    gin.HandlerFunc
}
