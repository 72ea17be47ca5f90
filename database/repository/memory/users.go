package memoryRepo

import (
	"context"
	"sort"
	"strings"
	"time"

	userRepo "ambulance/database/repository/user"
	"ambulance/models"
)

// UserStore implements userRepo.UserRepository.
type UserStore struct {
	s *Store
}

var _ userRepo.UserRepository = (*UserStore)(nil)

func (r *UserStore) Create(_ context.Context, user *models.User) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[user.ID]; exists {
		return models.Unavailable("create user", errDuplicateUser(user.ID))
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now()
	}
	s.users[user.ID] = &userEntry{seq: s.nextSeq(), user: *user}
	return nil
}

func (r *UserStore) GetByID(_ context.Context, id string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.users[id]
	if !ok {
		return nil, models.NotFound("user", id)
	}
	u := e.user
	return &u, nil
}

func (r *UserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, e := range r.s.users {
		if strings.EqualFold(e.user.Email, email) {
			u := e.user
			return &u, nil
		}
	}
	return nil, models.NotFound("user with email", email)
}

func (r *UserStore) GetAll(_ context.Context) ([]models.User, error) {
	return r.list(func(models.User) bool { return true }), nil
}

func (r *UserStore) GetAdmins(_ context.Context) ([]models.User, error) {
	return r.list(func(u models.User) bool { return u.Role == models.RoleAdmin }), nil
}

func (r *UserStore) list(keep func(models.User) bool) []models.User {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	entries := make([]*userEntry, 0, len(r.s.users))
	for _, e := range r.s.users {
		if keep(e.user) {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.user.CreatedAt.Equal(b.user.CreatedAt) {
			return a.user.CreatedAt.After(b.user.CreatedAt)
		}
		return a.seq > b.seq
	})
	users := make([]models.User, len(entries))
	for i, e := range entries {
		users[i] = e.user
	}
	return users
}

func (r *UserStore) Promote(_ context.Context, id string, at time.Time) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.users[id]
	if !ok {
		return nil, models.NotFound("user", id)
	}
	if e.user.Role == models.RoleAdmin {
		return nil, models.ErrAlreadyAdmin
	}
	e.user.Role = models.RoleAdmin
	e.user.PromotedAt = &at
	u := e.user
	return &u, nil
}

// DeleteCascade stages the owned bookings, runs the fault hook, then removes
// bookings and user together. Nothing is removed when the hook fails.
func (r *UserStore) DeleteCascade(_ context.Context, id string) (int, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return 0, models.NotFound("user", id)
	}
	staged := 0
	for _, e := range s.bookings {
		if e.booking.RequesterID == id {
			staged++
		}
	}
	if s.cascadeFault != nil {
		if err := s.cascadeFault(id); err != nil {
			return 0, models.Unavailable("delete user cascade", err)
		}
	}

	deleted := s.deleteOwned(id)
	delete(s.users, id)
	if staged > 0 {
		s.publish()
	}
	return deleted, nil
}
