package models

import (
	"strings"
	"time"
)

// BookingStatus is the lifecycle state of a booking, stored as its lowercase
// wire value.
type BookingStatus string

const (
	StatusBooked     BookingStatus = "booked"
	StatusConfirmed  BookingStatus = "confirmed"
	StatusDispatched BookingStatus = "dispatched"
	StatusCompleted  BookingStatus = "completed"
	StatusCancelled  BookingStatus = "cancelled"

	// StatusPending only appears on historical records and counts as booked.
	StatusPending BookingStatus = "pending"
)

// AllStatuses lists the recognized lifecycle states in lifecycle order.
var AllStatuses = []BookingStatus{
	StatusBooked,
	StatusConfirmed,
	StatusDispatched,
	StatusCompleted,
	StatusCancelled,
}

var statusLabels = map[BookingStatus]string{
	StatusBooked:     "BOOKED",
	StatusConfirmed:  "CONFIRMED",
	StatusDispatched: "DISPATCHED",
	StatusCompleted:  "COMPLETED",
	StatusCancelled:  "CANCELLED",
}

// IsKnown reports whether s is one of the five lifecycle states.
func (s BookingStatus) IsKnown() bool {
	_, ok := statusLabels[s]
	return ok
}

// IsPending reports whether s counts towards the pending statistic.
func (s BookingStatus) IsPending() bool {
	return s == StatusBooked || s == StatusPending
}

// StatusText renders a status for display. Unknown values are upper-cased
// rather than rejected.
func StatusText(s BookingStatus) string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return strings.ToUpper(string(s))
}

// Booking represents one ambulance request.
type Booking struct {
	ID              string        `bson:"id" json:"id" firestore:"-"`
	BookingCode     string        `bson:"bookingId" json:"bookingId" firestore:"bookingId"`
	PatientName     string        `bson:"patientName" json:"patientName" firestore:"patientName"`
	ContactNumber   string        `bson:"contactNumber" json:"contactNumber" firestore:"contactNumber"`
	PickupAddress   string        `bson:"pickupAddress" json:"pickupAddress" firestore:"pickupAddress"`
	EmergencyType   string        `bson:"emergencyType" json:"emergencyType" firestore:"emergencyType"`
	Destination     string        `bson:"destination,omitempty" json:"destination,omitempty" firestore:"destination,omitempty"`
	AdditionalInfo  string        `bson:"additionalInfo,omitempty" json:"additionalInfo,omitempty" firestore:"additionalInfo,omitempty"`
	AdditionalNotes string        `bson:"additionalNotes,omitempty" json:"additionalNotes,omitempty" firestore:"additionalNotes,omitempty"`
	Status          BookingStatus `bson:"status" json:"status" firestore:"status"`
	RequesterID     string        `bson:"userId" json:"userId" firestore:"userId"`
	RequesterEmail  string        `bson:"userEmail" json:"userEmail" firestore:"userEmail"`
	CreatedAt       time.Time     `bson:"createdAt" json:"createdAt" firestore:"createdAt,serverTimestamp"`
	UpdatedAt       *time.Time    `bson:"updatedAt,omitempty" json:"updatedAt,omitempty" firestore:"updatedAt,omitempty"`
}

// BookingDraft is what a requester submits.
type BookingDraft struct {
	PatientName    string `json:"patientName" binding:"required"`
	ContactNumber  string `json:"contactNumber" binding:"required"`
	PickupAddress  string `json:"pickupAddress" binding:"required"`
	EmergencyType  string `json:"emergencyType" binding:"required"`
	Destination    string `json:"destination"`
	AdditionalInfo string `json:"additionalInfo"`
}

// StatusUpdate is an admin mutation of a booking.
type StatusUpdate struct {
	Status BookingStatus
	// Notes replaces additionalNotes only when non-blank.
	Notes string
	At    time.Time
}

// BookingFilter selects the bookings a listing or subscription covers. The
// zero value matches every booking.
type BookingFilter struct {
	RequesterID string
}

// Matches reports whether b falls under the filter.
func (f BookingFilter) Matches(b Booking) bool {
	return f.RequesterID == "" || b.RequesterID == f.RequesterID
}

// BookingSnapshot is one delivery of a live listing: the full current listing,
// newest first, plus whatever was added since the previous delivery.
type BookingSnapshot struct {
	Bookings []Booking `json:"bookings"`
	Added    []Booking `json:"added,omitempty"`
}

// MergeSnapshots folds an undelivered snapshot into a newer one. The newer
// listing wins; the added bookings of both are kept, older first.
func MergeSnapshots(older, newer BookingSnapshot) BookingSnapshot {
	if len(older.Added) == 0 {
		return newer
	}
	added := make([]Booking, 0, len(older.Added)+len(newer.Added))
	added = append(added, older.Added...)
	newer.Added = append(added, newer.Added...)
	return newer
}
