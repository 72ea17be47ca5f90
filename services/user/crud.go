package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ambulance/models"
	"ambulance/services/auth"
	"ambulance/utils"

	"go.uber.org/zap"
)

// Register creates the identity account and then the profile. If the profile
// cannot be written the identity account is removed again.
func (s *DefaultUserService) Register(ctx context.Context, reg models.UserRegistration) (*models.User, error) {
	reg.Name = strings.TrimSpace(reg.Name)
	reg.Email = normalizeEmail(reg.Email)
	reg.Phone = strings.TrimSpace(reg.Phone)
	reg.Address = strings.TrimSpace(reg.Address)

	switch {
	case reg.Name == "":
		return nil, models.Invalid("name is required")
	case reg.Email == "" || !strings.Contains(reg.Email, "@"):
		return nil, models.Invalid("a valid email is required")
	case reg.Phone == "":
		return nil, models.Invalid("phone is required")
	case len(reg.Password) < minPasswordLength:
		return nil, models.Invalid(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	uid, err := s.Identity.CreateAccount(ctx, reg.Email, reg.Password, reg.Name)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:        uid,
		Name:      reg.Name,
		Email:     reg.Email,
		Phone:     reg.Phone,
		Address:   reg.Address,
		Role:      models.RoleUser,
		CreatedAt: s.now(),
	}
	logger := utils.GetLogger()
	if err := s.Repo.Create(ctx, user); err != nil {
		if delErr := s.Identity.DeleteAccount(ctx, uid); delErr != nil {
			logger.Error("failed to roll back identity account",
				zap.String("userID", uid), zap.Error(delErr))
		}
		return nil, err
	}

	logger.Info("user registered", zap.String("userID", uid))
	return user, nil
}

// RequestPasswordReset mails a password-reset link to the account registered
// under email.
func (s *DefaultUserService) RequestPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return models.Invalid("Invalid email format.")
	}
	if s.Mail == nil {
		return fmt.Errorf("RequestPasswordReset: mail is not configured")
	}

	link, err := s.Identity.PasswordResetLink(ctx, email)
	if err != nil {
		return err
	}
	body := fmt.Sprintf(passwordResetBody, link)
	if err := s.Mail.Send(email, "Reset your password", body); err != nil {
		return fmt.Errorf("RequestPasswordReset: %w", err)
	}
	utils.GetLogger().Info("password reset link sent")
	return nil
}

const passwordResetBody = `We received a request to reset your password.

Open this link to choose a new one:
%s

If you did not ask for this, you can ignore this e-mail.`

// GetProfile returns the actor's own profile.
func (s *DefaultUserService) GetProfile(ctx context.Context, actor models.Actor) (*models.User, error) {
	if err := auth.RequireUser(actor); err != nil {
		return nil, err
	}
	return s.Repo.GetByID(ctx, actor.ID)
}

// ListUsers returns every user with their booking count, newest first. A
// non-empty query keeps users whose name or email contains it
// case-insensitively, or whose phone contains it.
func (s *DefaultUserService) ListUsers(ctx context.Context, actor models.Actor, query string) ([]models.UserSummary, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}
	users, err := s.Repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	bookings, err := s.Bookings.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(users))
	for _, b := range bookings {
		counts[b.RequesterID]++
	}

	query = strings.TrimSpace(query)
	lowered := strings.ToLower(query)
	summaries := make([]models.UserSummary, 0, len(users))
	for _, u := range users {
		if query != "" &&
			!strings.Contains(strings.ToLower(u.Name), lowered) &&
			!strings.Contains(strings.ToLower(u.Email), lowered) &&
			!strings.Contains(u.Phone, query) {
			continue
		}
		summaries = append(summaries, models.UserSummary{User: u, BookingCount: counts[u.ID]})
	}
	return summaries, nil
}

// ListAdmins returns the users holding the admin role.
func (s *DefaultUserService) ListAdmins(ctx context.Context, actor models.Actor) ([]models.User, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}
	return s.Repo.GetAdmins(ctx)
}

// PromoteByEmail grants the admin role to the account registered under email.
func (s *DefaultUserService) PromoteByEmail(ctx context.Context, actor models.Actor, email string) (*models.User, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}
	email = normalizeEmail(email)
	if email == "" {
		return nil, models.Invalid("email is required")
	}

	target, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("%w: User not found with this email", models.ErrNotFound)
		}
		return nil, err
	}
	promoted, err := s.Repo.Promote(ctx, target.ID, s.now())
	if err != nil {
		return nil, err
	}

	logger := utils.GetLogger()
	logger.Info("user promoted", zap.String("userID", promoted.ID), zap.String("by", actor.ID))
	if err := s.Identity.SetRole(ctx, promoted.ID, models.RoleAdmin); err != nil {
		logger.Warn("failed to mirror role claim", zap.String("userID", promoted.ID), zap.Error(err))
	}
	s.revoke(ctx, promoted.ID)
	return promoted, nil
}

// DeleteUser removes a user and their bookings on an admin's behalf and
// returns how many bookings went with them.
func (s *DefaultUserService) DeleteUser(ctx context.Context, actor models.Actor, userID string) (int, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return 0, err
	}
	if userID == actor.ID {
		return 0, models.Invalid("use account deletion to remove your own account")
	}
	n, err := s.Repo.DeleteCascade(ctx, userID)
	if err != nil {
		return 0, err
	}
	utils.GetLogger().Info("user deleted",
		zap.String("userID", userID), zap.Int("bookings", n), zap.String("by", actor.ID))
	s.revoke(ctx, userID)
	return n, nil
}

// DeleteAccount removes the actor's own profile, bookings and identity
// account.
func (s *DefaultUserService) DeleteAccount(ctx context.Context, actor models.Actor) (int, error) {
	if err := auth.RequireUser(actor); err != nil {
		return 0, err
	}
	n, err := s.Repo.DeleteCascade(ctx, actor.ID)
	if err != nil {
		return 0, err
	}
	logger := utils.GetLogger()
	if err := s.Identity.DeleteAccount(ctx, actor.ID); err != nil {
		logger.Error("failed to delete identity account", zap.String("userID", actor.ID), zap.Error(err))
	}
	logger.Info("account deleted", zap.String("userID", actor.ID), zap.Int("bookings", n))
	s.revoke(ctx, actor.ID)
	return n, nil
}

func (s *DefaultUserService) revoke(ctx context.Context, userID string) {
	if s.Sessions == nil {
		return
	}
	if err := s.Sessions.RevokeUser(ctx, userID); err != nil {
		utils.GetLogger().Warn("failed to revoke sessions", zap.String("userID", userID), zap.Error(err))
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
