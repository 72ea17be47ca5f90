package bookingRepo

import (
	"context"
	"sync"
	"time"

	"ambulance/models"
)

// maxCodeAttempts bounds booking code regeneration when a code collides.
const maxCodeAttempts = 5

// BookingRepository defines methods for booking data access.
type BookingRepository interface {
	// Create assigns the id, booking code, status and createdAt of b and
	// persists it. Requester and patient fields must already be set.
	Create(ctx context.Context, b *models.Booking) error
	// GetByID retrieves a booking by its storage key.
	GetByID(ctx context.Context, id string) (*models.Booking, error)
	// GetByCode retrieves a booking by its tracking code.
	GetByCode(ctx context.Context, code string) (*models.Booking, error)
	// ListAll returns every booking, newest first.
	ListAll(ctx context.Context) ([]models.Booking, error)
	// ListByOwner returns the bookings of one requester, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]models.Booking, error)
	// UpdateStatus sets the status, stamps updatedAt and replaces the notes
	// when they are non-blank.
	UpdateStatus(ctx context.Context, id string, update models.StatusUpdate) error
	// DeleteAllByOwner removes every booking of one requester. It joins the
	// caller's transaction when ctx carries one.
	DeleteAllByOwner(ctx context.Context, ownerID string) (int, error)
	// Subscribe delivers the full current listing on every change until the
	// returned subscription is cancelled.
	Subscribe(ctx context.Context, filter models.BookingFilter, onChange func(models.BookingSnapshot)) (Subscription, error)
}

// Subscription is a live feed handle.
type Subscription interface {
	// Cancel stops further deliveries. A delivery already in progress may
	// still complete once.
	Cancel()
}

// feedHandle is the Subscription shared by the store-backed feeds.
type feedHandle struct {
	mu      sync.Mutex
	stopped bool
	cancel  context.CancelFunc
}

func newFeedHandle(cancel context.CancelFunc) *feedHandle {
	return &feedHandle{cancel: cancel}
}

func (h *feedHandle) Cancel() {
	h.mu.Lock()
	h.stopped = true
	h.mu.Unlock()
	h.cancel()
}

// deliver invokes fn unless the handle was cancelled.
func (h *feedHandle) deliver(fn func(models.BookingSnapshot), snap models.BookingSnapshot) {
	h.mu.Lock()
	stopped := h.stopped
	h.mu.Unlock()
	if !stopped {
		fn(snap)
	}
}

// newContext creates a context with the given timeout.
func newContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, timeout)
}

// prepare stamps the store-assigned fields of a new booking.
func prepare(b *models.Booking, id string, now time.Time) {
	b.ID = id
	b.BookingCode = models.NewBookingCode(now, nil)
	b.Status = models.StatusBooked
	b.CreatedAt = now
	b.UpdatedAt = nil
	b.AdditionalNotes = ""
}
