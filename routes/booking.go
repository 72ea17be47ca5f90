package routes

import (
	"ambulance/handlers"
	"ambulance/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterBookingRoutes registers requester and public tracking endpoints.
func RegisterBookingRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	bookings := r.Group("/api/bookings")
	{
		// Public tracking by booking code.
		bookings.GET("/track/:code", hb.TrackBookingHandler)
		bookings.GET("/track/:code/qr", hb.TrackingQRHandler)
		bookings.GET("/track/:code/slip", hb.BookingSlipHandler)

		protected := bookings.Group("")
		protected.Use(middleware.SessionAuthMiddleware(hb.Sessions))
		protected.POST("", hb.CreateBookingHandler)
		protected.GET("/mine", hb.MyBookingsHandler)
		protected.GET("/mine/live", hb.MyBookingsLiveHandler)
	}
}
