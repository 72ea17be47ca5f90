package booking

import (
	"context"
	"time"

	bookingRepo "ambulance/database/repository/booking"
	userRepo "ambulance/database/repository/user"
	"ambulance/models"
)

// BookingService defines the booking operations exposed to handlers.
type BookingService interface {
	CreateBooking(ctx context.Context, actor models.Actor, draft models.BookingDraft) (*CreatedBooking, error)
	TrackBooking(ctx context.Context, code string) (*models.Booking, error)
	ListMyBookings(ctx context.Context, actor models.Actor) ([]models.Booking, error)
	ListBookings(ctx context.Context, actor models.Actor, status models.BookingStatus) ([]models.Booking, error)
	UpdateStatus(ctx context.Context, actor models.Actor, id string, status models.BookingStatus, notes string) (*models.Booking, error)
	DashboardStats(ctx context.Context, actor models.Actor) (*models.DashboardStats, error)
	Analytics(ctx context.Context, actor models.Actor) (*models.Analytics, error)
	SubscribeAll(ctx context.Context, actor models.Actor, onChange func(models.BookingSnapshot)) (bookingRepo.Subscription, error)
	SubscribeMine(ctx context.Context, actor models.Actor, onChange func(models.BookingSnapshot)) (bookingRepo.Subscription, error)
	BookingSlip(ctx context.Context, code string) ([]byte, error)
	TrackingQR(ctx context.Context, code string) ([]byte, error)
	NextStates(current models.BookingStatus) []models.BookingStatus
}

// Notifier fans a new booking out to staff and tells requesters about
// status changes.
type Notifier interface {
	NotifyNewBooking(ctx context.Context, b models.Booking) error
	NotifyStatusChange(ctx context.Context, b models.Booking) error
}

// CreatedBooking is the result of a successful booking request.
type CreatedBooking struct {
	Booking      models.Booking `json:"booking"`
	TrackingURL  string         `json:"trackingUrl"`
	WhatsAppLink string         `json:"whatsappLink"`
	Confirmation string         `json:"confirmation"`
}

// Settings carries the branding and locale used by the booking service.
type Settings struct {
	ServiceName      string
	WhatsAppNumber   string
	EmergencyContact string
	TrackingBaseURL  string
	Location         *time.Location
}

// DefaultBookingService implements BookingService.
type DefaultBookingService struct {
	Repo      bookingRepo.BookingRepository
	Users     userRepo.UserRepository
	Lifecycle *Lifecycle
	Notifier  Notifier
	Settings  Settings
	Messages  Messages

	now func() time.Time
}

// NextStates lists the statuses an admin may move a booking to from current.
func (s *DefaultBookingService) NextStates(current models.BookingStatus) []models.BookingStatus {
	return s.Lifecycle.NextStates(current)
}

// NewBookingService wires a DefaultBookingService. A nil notifier disables
// staff notification.
func NewBookingService(
	repo bookingRepo.BookingRepository,
	users userRepo.UserRepository,
	lifecycle *Lifecycle,
	notifier Notifier,
	settings Settings,
) *DefaultBookingService {
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	if lifecycle == nil {
		lifecycle = NewLifecycle(Permissive, nil)
	}
	return &DefaultBookingService{
		Repo:      repo,
		Users:     users,
		Lifecycle: lifecycle,
		Notifier:  notifier,
		Settings:  settings,
		Messages: Messages{
			ServiceName:      settings.ServiceName,
			EmergencyContact: settings.EmergencyContact,
			Location:         settings.Location,
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}
