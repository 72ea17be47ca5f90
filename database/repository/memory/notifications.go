package memoryRepo

import (
	"context"
	"fmt"
	"slices"
	"sort"

	notificationRepo "ambulance/database/repository/notification"
	"ambulance/models"

	"github.com/google/uuid"
)

// NotificationStore implements notificationRepo.NotificationRepository.
type NotificationStore struct {
	s *Store
}

var _ notificationRepo.NotificationRepository = (*NotificationStore)(nil)

func (r *NotificationStore) Create(_ context.Context, n *models.Notification) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if e, ok := s.notifications[n.ID]; ok {
		*n = e.notification
		n.Delivered = slices.Clone(e.notification.Delivered)
		return nil
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now()
	}
	stored := *n
	stored.Delivered = slices.Clone(n.Delivered)
	s.notifications[n.ID] = &notificationEntry{seq: s.nextSeq(), notification: stored}
	return nil
}

func (r *NotificationStore) List(_ context.Context, limit int) ([]models.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	entries := make([]*notificationEntry, 0, len(r.s.notifications))
	for _, e := range r.s.notifications {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.notification.CreatedAt.Equal(b.notification.CreatedAt) {
			return a.notification.CreatedAt.After(b.notification.CreatedAt)
		}
		return a.seq > b.seq
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]models.Notification, len(entries))
	for i, e := range entries {
		out[i] = e.notification
		out[i].Delivered = slices.Clone(e.notification.Delivered)
	}
	return out, nil
}

func (r *NotificationStore) MarkRead(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.notifications[id]
	if !ok {
		return models.NotFound("notification", id)
	}
	e.notification.Read = true
	return nil
}

func (r *NotificationStore) MarkDelivered(_ context.Context, id, channel string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.notifications[id]
	if !ok {
		return models.NotFound("notification", id)
	}
	if !e.notification.DeliveredOn(channel) {
		e.notification.Delivered = append(e.notification.Delivered, channel)
	}
	return nil
}

func errDuplicateUser(id string) error {
	return fmt.Errorf("user %s already exists", id)
}
