package userRepo

import (
	"context"
	"time"

	"ambulance/models"
)

// UserRepository defines methods for user data access.
type UserRepository interface {
	// Create inserts a new user record. The role defaults to user.
	Create(ctx context.Context, user *models.User) error
	// GetByID retrieves a user by its identity-provider id.
	GetByID(ctx context.Context, id string) (*models.User, error)
	// GetByEmail retrieves a user by its email address, ignoring case.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// GetAll retrieves all users, newest first.
	GetAll(ctx context.Context) ([]models.User, error)
	// GetAdmins retrieves the users holding the admin role, newest first.
	GetAdmins(ctx context.Context) ([]models.User, error)
	// Promote grants the admin role and stamps promotedAt. It fails with
	// models.ErrAlreadyAdmin and changes nothing when the user is an admin.
	Promote(ctx context.Context, id string, at time.Time) (*models.User, error)
	// DeleteCascade removes the user and every booking it owns atomically and
	// returns the number of bookings removed.
	DeleteCascade(ctx context.Context, id string) (int, error)
}

// OwnedBookings is the part of the booking store a cascade delete needs.
type OwnedBookings interface {
	DeleteAllByOwner(ctx context.Context, ownerID string) (int, error)
}

// newContext creates a context with the given timeout.
func newContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, timeout)
}

func withDefaults(user *models.User, now time.Time) {
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
}
