package notification

import (
	"context"
	"fmt"
	"strings"

	notificationRepo "ambulance/database/repository/notification"
	"ambulance/models"
	"ambulance/services/auth"
	"ambulance/services/booking"
)

// inboxLimit caps how many inbox entries an admin listing returns.
const inboxLimit = 50

// NotificationService covers the admin inbox and device registration.
type NotificationService interface {
	NotifyNewBooking(ctx context.Context, b models.Booking) error
	ListInbox(ctx context.Context, actor models.Actor) ([]models.Notification, error)
	MarkRead(ctx context.Context, actor models.Actor, id string) error
	RegisterAdminDevice(ctx context.Context, actor models.Actor, token string) error
}

// Pusher delivers push messages to a topic and manages topic membership.
type Pusher interface {
	SendToTopic(ctx context.Context, topic, title, body string, data map[string]string) error
	SubscribeToTopic(ctx context.Context, tokens []string, topic string) error
}

// Mailer sends a plain-text e-mail.
type Mailer interface {
	Send(to, subject, body string) error
}

// Dispatcher writes the inbox record for a new booking and alerts admins by
// push and e-mail. Push and Mail may be nil.
type Dispatcher struct {
	Inbox      notificationRepo.NotificationRepository
	Push       Pusher
	Mail       Mailer
	Topic      string
	AdminEmail string
	Messages   booking.Messages
}

var (
	_ booking.Notifier    = (*Dispatcher)(nil)
	_ NotificationService = (*Dispatcher)(nil)
)

// NewDispatcher wires a Dispatcher.
func NewDispatcher(inbox notificationRepo.NotificationRepository, push Pusher, mail Mailer, topic, adminEmail string, messages booking.Messages) (*Dispatcher, error) {
	if inbox == nil {
		return nil, fmt.Errorf("notification service initialization error: inbox repository is nil")
	}
	return &Dispatcher{
		Inbox:      inbox,
		Push:       push,
		Mail:       mail,
		Topic:      topic,
		AdminEmail: strings.TrimSpace(adminEmail),
		Messages:   messages,
	}, nil
}

// ListInbox returns the newest inbox entries.
func (d *Dispatcher) ListInbox(ctx context.Context, actor models.Actor) ([]models.Notification, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}
	return d.Inbox.List(ctx, inboxLimit)
}

// MarkRead flags one inbox entry as read.
func (d *Dispatcher) MarkRead(ctx context.Context, actor models.Actor, id string) error {
	if err := auth.RequireAdmin(actor); err != nil {
		return err
	}
	return d.Inbox.MarkRead(ctx, id)
}

// RegisterAdminDevice subscribes an admin's FCM token to the admin topic.
func (d *Dispatcher) RegisterAdminDevice(ctx context.Context, actor models.Actor, token string) error {
	if err := auth.RequireAdmin(actor); err != nil {
		return err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return models.Invalid("device token is required")
	}
	if d.Push == nil {
		return fmt.Errorf("RegisterAdminDevice: push messaging is not configured")
	}
	return d.Push.SubscribeToTopic(ctx, []string{token}, d.Topic)
}
