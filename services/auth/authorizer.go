package auth

import (
	"fmt"

	"ambulance/models"
)

// RequireUser allows any signed-in actor.
func RequireUser(actor models.Actor) error {
	if actor.ID == "" {
		return models.ErrUnauthenticated
	}
	return nil
}

// RequireAdmin allows signed-in actors holding the admin role. The role is the
// one loaded at sign-in; storage is not consulted again.
func RequireAdmin(actor models.Actor) error {
	if err := RequireUser(actor); err != nil {
		return err
	}
	if !actor.IsAdmin() {
		return fmt.Errorf("%w: admin access required", models.ErrForbidden)
	}
	return nil
}
