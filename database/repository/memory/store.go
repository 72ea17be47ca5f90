// Package memoryRepo keeps bookings, users and notifications in process memory.
// It backs STORE_BACKEND=memory and the service tests.
package memoryRepo

import (
	"sort"
	"sync"
	"time"

	"ambulance/models"
)

// Store holds every collection behind one mutex so a cascade delete is a
// single critical section.
type Store struct {
	mu  sync.Mutex
	now func() time.Time
	seq int64

	newCode      func(time.Time) string
	cascadeFault func(userID string) error

	bookings      map[string]*bookingEntry
	users         map[string]*userEntry
	notifications map[string]*notificationEntry

	subs    map[int]*subscription
	nextSub int
}

type bookingEntry struct {
	seq     int64
	booking models.Booking
}

type userEntry struct {
	seq  int64
	user models.User
}

type notificationEntry struct {
	seq          int64
	notification models.Notification
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces the wall clock used for createdAt stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithCodeGenerator replaces the booking code generator.
func WithCodeGenerator(gen func(time.Time) string) Option {
	return func(s *Store) { s.newCode = gen }
}

// WithCascadeFault installs a hook that runs after a cascade delete has staged
// the user's bookings and before anything is removed. A non-nil error aborts
// the cascade with nothing deleted.
func WithCascadeFault(fault func(userID string) error) Option {
	return func(s *Store) { s.cascadeFault = fault }
}

// NewStore returns an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		now:           func() time.Time { return time.Now().UTC() },
		newCode:       func(t time.Time) string { return models.NewBookingCode(t, nil) },
		bookings:      make(map[string]*bookingEntry),
		users:         make(map[string]*userEntry),
		notifications: make(map[string]*notificationEntry),
		subs:          make(map[int]*subscription),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Bookings returns the booking view of the store.
func (s *Store) Bookings() *BookingStore { return &BookingStore{s: s} }

// Users returns the user view of the store.
func (s *Store) Users() *UserStore { return &UserStore{s: s} }

// Notifications returns the notification inbox view of the store.
func (s *Store) Notifications() *NotificationStore { return &NotificationStore{s: s} }

// nextSeq must be called with s.mu held.
func (s *Store) nextSeq() int64 {
	s.seq++
	return s.seq
}

// listBookings must be called with s.mu held.
func (s *Store) listBookings(filter models.BookingFilter) []models.Booking {
	entries := make([]*bookingEntry, 0, len(s.bookings))
	for _, e := range s.bookings {
		if filter.Matches(e.booking) {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.booking.CreatedAt.Equal(b.booking.CreatedAt) {
			return a.booking.CreatedAt.After(b.booking.CreatedAt)
		}
		return a.seq > b.seq
	})
	out := make([]models.Booking, len(entries))
	for i, e := range entries {
		out[i] = e.booking
	}
	return out
}

// publish pushes the current listing to every subscription. added holds
// bookings created by the triggering change. Must be called with s.mu held.
func (s *Store) publish(added ...models.Booking) {
	for _, sub := range s.subs {
		var mine []models.Booking
		for _, b := range added {
			if sub.filter.Matches(b) {
				mine = append(mine, b)
			}
		}
		sub.push(models.BookingSnapshot{Bookings: s.listBookings(sub.filter), Added: mine})
	}
}
