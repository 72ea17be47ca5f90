package routes

import (
	"time"

	"ambulance/handlers"
	"ambulance/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterHealthRoute registers the health-check endpoint.
func RegisterHealthRoute(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.GET("/health", hb.HealthHandler)
}

// RegisterSessionRoutes registers sign-in and sign-out.
func RegisterSessionRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/session")
	{
		api.POST("", hb.SignInHandler)
		api.DELETE("", middleware.SessionAuthMiddleware(hb.Sessions), hb.SignOutHandler)
	}
}

// RegisterUserRoutes registers user endpoints.
func RegisterUserRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/users")
	{
		api.POST("/register", hb.RegisterUserHandler)
		api.POST("/password-reset", hb.PasswordResetHandler)

		// Protected routes (Require Authentication)
		me := api.Group("/me")
		me.Use(middleware.SessionAuthMiddleware(hb.Sessions))
		me.GET("", hb.GetProfileHandler)
		me.DELETE("", hb.DeleteAccountHandler)
	}
}

// RegisterAdminRoutes sets up endpoints for admin operations.
func RegisterAdminRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	adminGroup := r.Group("/api/admin")
	{
		adminGroup.Use(middleware.SessionAuthMiddleware(hb.Sessions), middleware.AdminOnlyMiddleware())

		adminGroup.GET("/bookings", hb.AdminBookingsHandler)
		adminGroup.GET("/bookings/live", hb.AdminBookingsLive)
		adminGroup.PUT("/bookings/:id/status", hb.UpdateStatusHandler)
		adminGroup.GET("/stats", hb.DashboardStatsHandler)
		adminGroup.GET("/analytics", hb.BookingAnalyticsHandler)

		adminGroup.GET("/users", hb.ListUsersHandler)
		adminGroup.DELETE("/users/:id", hb.DeleteUserHandler)
		adminGroup.GET("/admins", hb.ListAdminsHandler)
		adminGroup.POST("/promote", hb.PromoteUserHandler)

		adminGroup.GET("/notifications", hb.ListNotificationsHandler)
		adminGroup.PUT("/notifications/:id/read", hb.MarkNotificationRead)
		adminGroup.POST("/devices", hb.RegisterDeviceHandler)

		adminGroup.GET("/export", hb.ExportDataHandler)
		adminGroup.POST("/backup", hb.BackupDataHandler)
	}
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders: []string{"Content-Length", "Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}))
	r.Use(middleware.RateLimitMiddleware(hb.MaxRequestsPerMin))

	RegisterHealthRoute(r, hb)
	RegisterSessionRoutes(r, hb)
	RegisterUserRoutes(r, hb)
	RegisterBookingRoutes(r, hb)
	RegisterAdminRoutes(r, hb)
}
