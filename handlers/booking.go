package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"ambulance/middleware"
	"ambulance/models"
	"ambulance/services/booking"
	"ambulance/services/feed"

	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	bookings booking.BookingService
	feeds    *feed.Registry
}

func NewBookingHandler(bookings booking.BookingService, feeds *feed.Registry) *BookingHandler {
	return &BookingHandler{bookings: bookings, feeds: feeds}
}

// CreateBookingHandler submits a booking request.
func (h *BookingHandler) CreateBookingHandler(c *gin.Context) {
	var draft models.BookingDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		bindError(c, err)
		return
	}

	created, err := h.bookings.CreateBooking(c.Request.Context(), middleware.ActorFrom(c), draft)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// MyBookingsHandler lists the caller's bookings, newest first.
func (h *BookingHandler) MyBookingsHandler(c *gin.Context) {
	list, err := h.bookings.ListMyBookings(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": list})
}

// TrackBookingHandler looks a booking up by its public code.
func (h *BookingHandler) TrackBookingHandler(c *gin.Context) {
	b, err := h.bookings.TrackBooking(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"booking":    b,
		"statusText": models.StatusText(b.Status),
	})
}

// TrackingQRHandler serves the tracking-link QR code as a PNG.
func (h *BookingHandler) TrackingQRHandler(c *gin.Context) {
	png, err := h.bookings.TrackingQR(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// BookingSlipHandler serves the printable booking slip.
func (h *BookingHandler) BookingSlipHandler(c *gin.Context) {
	pdf, err := h.bookings.BookingSlip(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	code := strings.ToUpper(strings.TrimSpace(c.Param("code")))
	c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="booking-%s.pdf"`, code))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// AdminBookingsHandler lists every booking, optionally filtered by ?status=.
func (h *BookingHandler) AdminBookingsHandler(c *gin.Context) {
	status := models.BookingStatus(strings.ToLower(strings.TrimSpace(c.Query("status"))))
	if status == "all" {
		status = ""
	}
	list, err := h.bookings.ListBookings(c.Request.Context(), middleware.ActorFrom(c), status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": list})
}

// UpdateStatusHandler moves a booking to a new status.
func (h *BookingHandler) UpdateStatusHandler(c *gin.Context) {
	var req struct {
		Status models.BookingStatus `json:"status" binding:"required"`
		Notes  string               `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	updated, err := h.bookings.UpdateStatus(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), req.Status, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, struct {
		*models.Booking
		NextStates []models.BookingStatus `json:"nextStates"`
	}{updated, h.bookings.NextStates(updated.Status)})
}

// DashboardStatsHandler returns the dashboard headline numbers.
func (h *BookingHandler) DashboardStatsHandler(c *gin.Context) {
	stats, err := h.bookings.DashboardStats(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// BookingAnalyticsHandler returns per-status and per-type counts.
func (h *BookingHandler) BookingAnalyticsHandler(c *gin.Context) {
	analytics, err := h.bookings.Analytics(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, analytics)
}
