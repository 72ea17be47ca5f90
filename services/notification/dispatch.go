package notification

import (
	"context"
	"errors"
	"fmt"

	"ambulance/models"
	"ambulance/services/booking"
	"ambulance/utils"

	"go.uber.org/zap"
)

const priorityHigh = "high"

// NotifyNewBooking records the booking in the admin inbox, pushes and e-mails
// the admin alert, and mails the requester a confirmation. Every channel is
// attempted; the joined error lists the ones that failed. Channels that
// succeeded are recorded on the inbox entry, so a retry for the same booking
// reuses the entry and only repeats the failed channels.
func (d *Dispatcher) NotifyNewBooking(ctx context.Context, b models.Booking) error {
	logger := utils.GetLogger()
	var errs []error

	n := &models.Notification{
		ID:          models.NewBookingNotificationID(b.BookingCode),
		Type:        models.NotificationNewBooking,
		BookingCode: b.BookingCode,
		Message:     booking.InboxMessage(b),
		Priority:    priorityHigh,
	}
	if err := d.Inbox.Create(ctx, n); err != nil {
		errs = append(errs, fmt.Errorf("inbox: %w", err))
		n = nil
	}

	deliver := func(channel string, send func() error) {
		if n != nil && n.DeliveredOn(channel) {
			return
		}
		if err := send(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", channel, err))
			return
		}
		if n == nil {
			return
		}
		if err := d.Inbox.MarkDelivered(ctx, n.ID, channel); err != nil {
			logger.Warn("failed to record notification delivery",
				zap.String("bookingId", b.BookingCode), zap.String("channel", channel), zap.Error(err))
		}
	}

	alert := d.Messages.AdminAlert(b)
	if d.Push != nil && d.Topic != "" {
		deliver(models.ChannelPush, func() error {
			data := map[string]string{
				"type":      models.NotificationNewBooking,
				"bookingId": b.BookingCode,
			}
			return d.Push.SendToTopic(ctx, d.Topic, "New Ambulance Booking", alert, data)
		})
	}
	if d.Mail != nil && d.AdminEmail != "" {
		deliver(models.ChannelAdminMail, func() error {
			return d.Mail.Send(d.AdminEmail, fmt.Sprintf("New booking %s", b.BookingCode), alert)
		})
	}
	if d.Mail != nil && b.RequesterEmail != "" {
		deliver(models.ChannelRequesterMail, func() error {
			return d.Mail.Send(b.RequesterEmail, fmt.Sprintf("Booking confirmed: %s", b.BookingCode), d.Messages.ConfirmationSMS(b))
		})
	}

	if err := errors.Join(errs...); err != nil {
		logger.Warn("new booking notification incomplete",
			zap.String("bookingId", b.BookingCode), zap.Error(err))
		return err
	}
	logger.Debug("new booking notification sent", zap.String("bookingId", b.BookingCode))
	return nil
}

// NotifyStatusChange mails the requester the booking's new status. Bookings
// without a requester e-mail, or a dispatcher without mail, are skipped.
func (d *Dispatcher) NotifyStatusChange(ctx context.Context, b models.Booking) error {
	if d.Mail == nil || b.RequesterEmail == "" {
		return nil
	}
	subject := fmt.Sprintf("Booking %s is now %s", b.BookingCode, models.StatusText(b.Status))
	if err := d.Mail.Send(b.RequesterEmail, subject, d.Messages.StatusUpdateText(b)); err != nil {
		return fmt.Errorf("status mail: %w", err)
	}
	utils.GetLogger().Debug("status update mailed",
		zap.String("bookingId", b.BookingCode), zap.String("status", string(b.Status)))
	return nil
}
