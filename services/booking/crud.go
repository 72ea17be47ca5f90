package booking

import (
	"context"
	"fmt"
	"strings"

	bookingRepo "ambulance/database/repository/booking"
	"ambulance/models"
	"ambulance/services/auth"
	"ambulance/utils"

	"go.uber.org/zap"
)

// CreateBooking validates and stores a booking request for the signed-in
// actor, then alerts staff. A failed alert is logged and does not fail the
// booking.
func (s *DefaultBookingService) CreateBooking(ctx context.Context, actor models.Actor, draft models.BookingDraft) (*CreatedBooking, error) {
	if err := auth.RequireUser(actor); err != nil {
		return nil, err
	}
	draft = trimDraft(draft)
	if err := validateDraft(draft); err != nil {
		return nil, err
	}

	b := &models.Booking{
		PatientName:    draft.PatientName,
		ContactNumber:  draft.ContactNumber,
		PickupAddress:  draft.PickupAddress,
		EmergencyType:  draft.EmergencyType,
		Destination:    draft.Destination,
		AdditionalInfo: draft.AdditionalInfo,
		RequesterID:    actor.ID,
		RequesterEmail: actor.Email,
	}
	if err := s.Repo.Create(ctx, b); err != nil {
		return nil, err
	}

	logger := utils.GetLogger()
	logger.Info("booking created",
		zap.String("bookingId", b.BookingCode),
		zap.String("userID", actor.ID),
		zap.String("emergencyType", b.EmergencyType))

	if s.Notifier != nil {
		if err := s.Notifier.NotifyNewBooking(ctx, *b); err != nil {
			logger.Warn("failed to notify staff of new booking",
				zap.String("bookingId", b.BookingCode), zap.Error(err))
		}
	}

	return &CreatedBooking{
		Booking:      *b,
		TrackingURL:  TrackingURL(s.Settings.TrackingBaseURL, b.BookingCode),
		WhatsAppLink: WhatsAppLink(s.Settings.WhatsAppNumber, s.Messages.RequestText(*b, b.CreatedAt)),
		Confirmation: s.Messages.ConfirmationWhatsApp(*b),
	}, nil
}

func trimDraft(d models.BookingDraft) models.BookingDraft {
	d.PatientName = strings.TrimSpace(d.PatientName)
	d.ContactNumber = strings.TrimSpace(d.ContactNumber)
	d.PickupAddress = strings.TrimSpace(d.PickupAddress)
	d.EmergencyType = strings.TrimSpace(d.EmergencyType)
	d.Destination = strings.TrimSpace(d.Destination)
	d.AdditionalInfo = strings.TrimSpace(d.AdditionalInfo)
	return d
}

func validateDraft(d models.BookingDraft) error {
	switch {
	case d.PatientName == "":
		return models.Invalid("patient name is required")
	case d.ContactNumber == "":
		return models.Invalid("contact number is required")
	case d.PickupAddress == "":
		return models.Invalid("pickup address is required")
	case d.EmergencyType == "":
		return models.Invalid("emergency type is required")
	}
	return nil
}

// TrackBooking looks a booking up by its public code. No sign-in is needed.
func (s *DefaultBookingService) TrackBooking(ctx context.Context, code string) (*models.Booking, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, models.Invalid("booking code is required")
	}
	return s.Repo.GetByCode(ctx, code)
}

// ListMyBookings returns the actor's own bookings, newest first.
func (s *DefaultBookingService) ListMyBookings(ctx context.Context, actor models.Actor) ([]models.Booking, error) {
	if err := auth.RequireUser(actor); err != nil {
		return nil, err
	}
	return s.Repo.ListByOwner(ctx, actor.ID)
}

// ListBookings returns every booking, newest first, optionally narrowed to
// one status. Filtering on booked also matches legacy pending records.
func (s *DefaultBookingService) ListBookings(ctx context.Context, actor models.Actor, status models.BookingStatus) ([]models.Booking, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}
	bookings, err := s.Repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	if status == "" {
		return bookings, nil
	}
	filtered := make([]models.Booking, 0, len(bookings))
	for _, b := range bookings {
		if b.Status == status || (status == models.StatusBooked && b.Status == models.StatusPending) {
			filtered = append(filtered, b)
		}
	}
	return filtered, nil
}

// UpdateStatus applies an admin status change and returns the updated booking.
func (s *DefaultBookingService) UpdateStatus(ctx context.Context, actor models.Actor, id string, status models.BookingStatus, notes string) (*models.Booking, error) {
	if err := auth.RequireUser(actor); err != nil {
		return nil, err
	}
	if !status.IsKnown() {
		return nil, fmt.Errorf("%w: unknown status %q", models.ErrInvalidTransition, status)
	}
	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}
	current, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	tr, err := s.Lifecycle.ApplyTransition(current.Status, status, actor)
	if err != nil {
		return nil, err
	}
	update := models.StatusUpdate{Status: tr.To, Notes: notes, At: tr.At}
	if err := s.Repo.UpdateStatus(ctx, id, update); err != nil {
		return nil, err
	}

	utils.GetLogger().Info("booking status updated",
		zap.String("bookingId", current.BookingCode),
		zap.String("from", string(tr.From)),
		zap.String("to", string(tr.To)),
		zap.String("by", actor.ID))

	updated := *current
	updated.Status = tr.To
	at := tr.At
	updated.UpdatedAt = &at
	if trimmed := strings.TrimSpace(notes); trimmed != "" {
		updated.AdditionalNotes = trimmed
	}

	if s.Notifier != nil && tr.From != tr.To {
		if err := s.Notifier.NotifyStatusChange(ctx, updated); err != nil {
			utils.GetLogger().Warn("failed to notify requester of status change",
				zap.String("bookingId", updated.BookingCode), zap.Error(err))
		}
	}
	return &updated, nil
}

// SubscribeAll streams every booking to an admin.
func (s *DefaultBookingService) SubscribeAll(ctx context.Context, actor models.Actor, onChange func(models.BookingSnapshot)) (bookingRepo.Subscription, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}
	return s.Repo.Subscribe(ctx, models.BookingFilter{}, onChange)
}

// SubscribeMine streams the actor's own bookings.
func (s *DefaultBookingService) SubscribeMine(ctx context.Context, actor models.Actor, onChange func(models.BookingSnapshot)) (bookingRepo.Subscription, error) {
	if err := auth.RequireUser(actor); err != nil {
		return nil, err
	}
	return s.Repo.Subscribe(ctx, models.BookingFilter{RequesterID: actor.ID}, onChange)
}

// BookingSlip renders the printable slip for a tracked booking.
func (s *DefaultBookingService) BookingSlip(ctx context.Context, code string) ([]byte, error) {
	b, err := s.TrackBooking(ctx, code)
	if err != nil {
		return nil, err
	}
	return BookingSlipPDF(*b, SlipOptions{
		ServiceName:      s.Settings.ServiceName,
		EmergencyContact: s.Settings.EmergencyContact,
		TrackingBaseURL:  s.Settings.TrackingBaseURL,
		Location:         s.Settings.Location,
	})
}

// TrackingQR returns a QR PNG for the tracking link of an existing booking.
func (s *DefaultBookingService) TrackingQR(ctx context.Context, code string) ([]byte, error) {
	b, err := s.TrackBooking(ctx, code)
	if err != nil {
		return nil, err
	}
	return TrackingQR(s.Settings.TrackingBaseURL, b.BookingCode, 256)
}
