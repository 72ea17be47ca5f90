package models

import (
	"slices"
	"time"
)

const NotificationNewBooking = "new_booking"

// Delivery channels recorded on a notification once they succeed.
const (
	ChannelPush          = "push"
	ChannelAdminMail     = "admin_mail"
	ChannelRequesterMail = "requester_mail"
)

// Notification is one entry in the admin inbox.
type Notification struct {
	ID          string    `bson:"id" json:"id" firestore:"-"`
	Type        string    `bson:"type" json:"type" firestore:"type"`
	BookingCode string    `bson:"bookingId" json:"bookingId" firestore:"bookingId"`
	Message     string    `bson:"message" json:"message" firestore:"message"`
	Priority    string    `bson:"priority" json:"priority" firestore:"priority"`
	Read        bool      `bson:"read" json:"read" firestore:"read"`
	Delivered   []string  `bson:"delivered" json:"delivered" firestore:"delivered"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt" firestore:"createdAt,serverTimestamp"`
}

// NewBookingNotificationID is the inbox id for a booking's new-booking entry.
// One booking maps to one entry however often delivery is retried.
func NewBookingNotificationID(bookingCode string) string {
	return NotificationNewBooking + ":" + bookingCode
}

// DeliveredOn reports whether channel has already been delivered.
func (n *Notification) DeliveredOn(channel string) bool {
	return slices.Contains(n.Delivered, channel)
}
