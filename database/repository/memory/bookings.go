package memoryRepo

import (
	"context"
	"fmt"
	"strings"

	bookingRepo "ambulance/database/repository/booking"
	"ambulance/models"

	"github.com/google/uuid"
)

const maxCodeAttempts = 5

// BookingStore implements bookingRepo.BookingRepository.
type BookingStore struct {
	s *Store
}

var _ bookingRepo.BookingRepository = (*BookingStore)(nil)

func (r *BookingStore) Create(_ context.Context, b *models.Booking) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	code := ""
	for attempt := 0; attempt < maxCodeAttempts && code == ""; attempt++ {
		candidate := s.newCode(now)
		if !s.codeTaken(candidate) {
			code = candidate
		}
	}
	if code == "" {
		return models.Unavailable("create booking", fmt.Errorf("booking code still colliding after %d attempts", maxCodeAttempts))
	}

	b.ID = uuid.New().String()
	b.BookingCode = code
	b.Status = models.StatusBooked
	b.CreatedAt = now
	b.UpdatedAt = nil
	b.AdditionalNotes = ""

	s.bookings[b.ID] = &bookingEntry{seq: s.nextSeq(), booking: *b}
	s.publish(*b)
	return nil
}

// codeTaken must be called with s.mu held.
func (s *Store) codeTaken(code string) bool {
	for _, e := range s.bookings {
		if e.booking.BookingCode == code {
			return true
		}
	}
	return false
}

func (r *BookingStore) GetByID(_ context.Context, id string) (*models.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.bookings[id]
	if !ok {
		return nil, models.NotFound("booking", id)
	}
	b := e.booking
	return &b, nil
}

func (r *BookingStore) GetByCode(_ context.Context, code string) (*models.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, e := range r.s.bookings {
		if e.booking.BookingCode == code {
			b := e.booking
			return &b, nil
		}
	}
	return nil, models.NotFound("booking code", code)
}

func (r *BookingStore) ListAll(_ context.Context) ([]models.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.listBookings(models.BookingFilter{}), nil
}

func (r *BookingStore) ListByOwner(_ context.Context, ownerID string) ([]models.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.listBookings(models.BookingFilter{RequesterID: ownerID}), nil
}

func (r *BookingStore) UpdateStatus(_ context.Context, id string, update models.StatusUpdate) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.bookings[id]
	if !ok {
		return models.NotFound("booking", id)
	}
	at := update.At
	e.booking.Status = update.Status
	e.booking.UpdatedAt = &at
	if notes := strings.TrimSpace(update.Notes); notes != "" {
		e.booking.AdditionalNotes = notes
	}
	s.publish()
	return nil
}

func (r *BookingStore) DeleteAllByOwner(_ context.Context, ownerID string) (int, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.deleteOwned(ownerID)
	if n > 0 {
		s.publish()
	}
	return n, nil
}

// deleteOwned must be called with s.mu held.
func (s *Store) deleteOwned(ownerID string) int {
	n := 0
	for id, e := range s.bookings {
		if e.booking.RequesterID == ownerID {
			delete(s.bookings, id)
			n++
		}
	}
	return n
}

// Subscribe delivers the current listing immediately and again after every
// change, each on the subscription's own goroutine.
func (r *BookingStore) Subscribe(_ context.Context, filter models.BookingFilter, onChange func(models.BookingSnapshot)) (bookingRepo.Subscription, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	sub := newSubscription(filter, onChange, func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	})
	s.subs[id] = sub
	sub.push(models.BookingSnapshot{Bookings: s.listBookings(filter)})
	return sub, nil
}
