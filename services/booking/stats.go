package booking

import (
	"context"
	"time"

	"ambulance/models"
	"ambulance/services/auth"
)

// recentLimit is how many bookings the dashboard shows.
const recentLimit = 5

// DashboardStats summarises bookings and users for the admin dashboard.
// Completed-today counts bookings created today, in the configured timezone,
// whose status is completed.
func (s *DefaultBookingService) DashboardStats(ctx context.Context, actor models.Actor) (*models.DashboardStats, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}
	bookings, err := s.Repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	users, err := s.Users.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return summarize(bookings, len(users), s.now(), s.Settings.Location), nil
}

func summarize(bookings []models.Booking, totalUsers int, now time.Time, loc *time.Location) *models.DashboardStats {
	stats := &models.DashboardStats{
		TotalBookings: len(bookings),
		TotalUsers:    totalUsers,
		Recent:        []models.Booking{},
	}
	y, m, d := now.In(loc).Date()
	for _, b := range bookings {
		if b.Status.IsPending() {
			stats.PendingBookings++
		}
		if b.Status == models.StatusCompleted {
			by, bm, bd := b.CreatedAt.In(loc).Date()
			if by == y && bm == m && bd == d {
				stats.CompletedToday++
			}
		}
	}
	if len(bookings) > recentLimit {
		stats.Recent = append(stats.Recent, bookings[:recentLimit]...)
	} else {
		stats.Recent = append(stats.Recent, bookings...)
	}
	return stats
}

// Analytics counts bookings per status and per emergency type. Legacy
// pending records count as booked.
func (s *DefaultBookingService) Analytics(ctx context.Context, actor models.Actor) (*models.Analytics, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}
	bookings, err := s.Repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return analyze(bookings), nil
}

func analyze(bookings []models.Booking) *models.Analytics {
	a := &models.Analytics{
		StatusCounts:   make(map[models.BookingStatus]int, len(models.AllStatuses)),
		EmergencyTypes: make(map[string]int),
	}
	for _, st := range models.AllStatuses {
		a.StatusCounts[st] = 0
	}
	for _, b := range bookings {
		st := b.Status
		if st == models.StatusPending {
			st = models.StatusBooked
		}
		a.StatusCounts[st]++
		if b.EmergencyType != "" {
			a.EmergencyTypes[b.EmergencyType]++
		}
	}
	return a
}
