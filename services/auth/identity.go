package auth

import (
	"context"
	"fmt"

	"ambulance/models"

	firebaseAuth "firebase.google.com/go/v4/auth"
)

// Identity is a verified identity-provider subject.
type Identity struct {
	UID   string
	Email string
}

// IdentityProvider is the external account system.
type IdentityProvider interface {
	VerifyIDToken(ctx context.Context, idToken string) (*Identity, error)
	CreateAccount(ctx context.Context, email, password, displayName string) (string, error)
	DeleteAccount(ctx context.Context, uid string) error
	SetRole(ctx context.Context, uid string, role models.Role) error
	PasswordResetLink(ctx context.Context, email string) (string, error)
}

// FirebaseIdentity implements IdentityProvider with Firebase Authentication.
type FirebaseIdentity struct {
	client *firebaseAuth.Client
}

func NewFirebaseIdentity(client *firebaseAuth.Client) *FirebaseIdentity {
	return &FirebaseIdentity{client: client}
}

func (f *FirebaseIdentity) VerifyIDToken(ctx context.Context, idToken string) (*Identity, error) {
	token, err := f.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUnauthenticated, err)
	}
	email, _ := token.Claims["email"].(string)
	return &Identity{UID: token.UID, Email: email}, nil
}

func (f *FirebaseIdentity) CreateAccount(ctx context.Context, email, password, displayName string) (string, error) {
	params := (&firebaseAuth.UserToCreate{}).
		Email(email).
		Password(password).
		DisplayName(displayName)
	record, err := f.client.CreateUser(ctx, params)
	if err != nil {
		if firebaseAuth.IsEmailAlreadyExists(err) {
			return "", models.Invalid("an account with this email already exists")
		}
		return "", models.Unavailable("create account", err)
	}
	return record.UID, nil
}

func (f *FirebaseIdentity) DeleteAccount(ctx context.Context, uid string) error {
	if err := f.client.DeleteUser(ctx, uid); err != nil {
		if firebaseAuth.IsUserNotFound(err) {
			return nil
		}
		return models.Unavailable("delete account", err)
	}
	return nil
}

// SetRole mirrors the role into the account's custom claims.
func (f *FirebaseIdentity) SetRole(ctx context.Context, uid string, role models.Role) error {
	if err := f.client.SetCustomUserClaims(ctx, uid, map[string]interface{}{"role": string(role)}); err != nil {
		return models.Unavailable("set role claim", err)
	}
	return nil
}

// PasswordResetLink generates the account's password-reset link.
func (f *FirebaseIdentity) PasswordResetLink(ctx context.Context, email string) (string, error) {
	link, err := f.client.PasswordResetLink(ctx, email)
	if err != nil {
		if firebaseAuth.IsEmailNotFound(err) || firebaseAuth.IsUserNotFound(err) {
			return "", fmt.Errorf("%w: No account found with this email.", models.ErrNotFound)
		}
		return "", models.Unavailable("password reset link", err)
	}
	return link, nil
}
