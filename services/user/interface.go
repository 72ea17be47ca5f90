package user

import (
	"context"
	"time"

	bookingRepo "ambulance/database/repository/booking"
	userRepo "ambulance/database/repository/user"
	"ambulance/models"
	"ambulance/services/auth"
)

// minPasswordLength is the shortest password accepted at registration.
const minPasswordLength = 6

type UserService interface {
	// Registration
	Register(ctx context.Context, reg models.UserRegistration) (*models.User, error)
	RequestPasswordReset(ctx context.Context, email string) error

	// Profile
	GetProfile(ctx context.Context, actor models.Actor) (*models.User, error)
	DeleteAccount(ctx context.Context, actor models.Actor) (int, error)

	// Admin
	ListUsers(ctx context.Context, actor models.Actor, query string) ([]models.UserSummary, error)
	ListAdmins(ctx context.Context, actor models.Actor) ([]models.User, error)
	PromoteByEmail(ctx context.Context, actor models.Actor, email string) (*models.User, error)
	DeleteUser(ctx context.Context, actor models.Actor, userID string) (int, error)
}

// SessionRevoker ends a user's sessions after their role or account changes.
type SessionRevoker interface {
	RevokeUser(ctx context.Context, userID string) error
}

// Mailer sends a plain-text e-mail.
type Mailer interface {
	Send(to, subject, body string) error
}

// DefaultUserService is the production implementation.
type DefaultUserService struct {
	Repo     userRepo.UserRepository
	Bookings bookingRepo.BookingRepository
	Identity auth.IdentityProvider
	Sessions SessionRevoker
	Mail     Mailer

	now func() time.Time
}

// NewUserService wires a DefaultUserService. sessions and mail may be nil.
func NewUserService(repo userRepo.UserRepository, bookings bookingRepo.BookingRepository, identity auth.IdentityProvider, sessions SessionRevoker, mail Mailer) *DefaultUserService {
	return &DefaultUserService{
		Repo:     repo,
		Bookings: bookings,
		Identity: identity,
		Sessions: sessions,
		Mail:     mail,
		now:      func() time.Time { return time.Now().UTC() },
	}
}
