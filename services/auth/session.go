package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	userRepo "ambulance/database/repository/user"
	"ambulance/models"
	"ambulance/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Session is one signed-in client. It is created by SignIn and ends with
// SignOut, expiry or revocation.
type Session struct {
	ID        string       `json:"sessionId"`
	Token     string       `json:"token,omitempty"`
	Actor     models.Actor `json:"-"`
	User      *models.User `json:"user,omitempty"`
	IssuedAt  time.Time    `json:"issuedAt"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

// ViewCloser tears down the live views a session opened.
type ViewCloser interface {
	CloseSession(sessionID string)
}

// SessionManager issues and resolves sessions.
type SessionManager struct {
	identity IdentityProvider
	users    userRepo.UserRepository
	store    SessionStore
	views    ViewCloser
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionManager wires a SessionManager. views may be nil.
func NewSessionManager(identity IdentityProvider, users userRepo.UserRepository, store SessionStore, views ViewCloser, secret []byte, ttl time.Duration) *SessionManager {
	return &SessionManager{
		identity: identity,
		users:    users,
		store:    store,
		views:    views,
		secret:   secret,
		ttl:      ttl,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SignIn exchanges an identity-provider token for a session. The user's role
// is read once here and carried by the session.
func (m *SessionManager) SignIn(ctx context.Context, idToken string) (*Session, error) {
	if idToken == "" {
		return nil, models.ErrUnauthenticated
	}
	identity, err := m.identity.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, err
	}
	user, err := m.users.GetByID(ctx, identity.UID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("%w: no profile for this account", models.ErrUnauthenticated)
		}
		return nil, err
	}

	now := m.now()
	sessionID := uuid.New().String()
	token, err := utils.GenerateToken(m.secret, user.ID, sessionID, user.Email, now, m.ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session token: %w", err)
	}
	rec := SessionRecord{
		SessionID: sessionID,
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
		TokenHash: utils.HashToken(token),
		IssuedAt:  now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.store.Save(ctx, rec, m.ttl); err != nil {
		return nil, err
	}

	utils.GetLogger().Info("session started",
		zap.String("userID", user.ID),
		zap.String("sessionID", sessionID),
		zap.String("role", string(user.Role)))

	return &Session{
		ID:        sessionID,
		Token:     token,
		Actor:     models.Actor{ID: user.ID, Email: user.Email, Role: user.Role},
		User:      user,
		IssuedAt:  now,
		ExpiresAt: rec.ExpiresAt,
	}, nil
}

// Resolve returns the live session a bearer token belongs to.
func (m *SessionManager) Resolve(ctx context.Context, token string) (*Session, error) {
	claims, err := utils.ValidateToken(m.secret, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUnauthenticated, err)
	}
	rec, err := m.store.Get(ctx, claims.SessionID)
	if err != nil {
		return nil, err
	}
	if rec.UserID != claims.Subject || subtle.ConstantTimeCompare([]byte(rec.TokenHash), []byte(utils.HashToken(token))) != 1 {
		return nil, models.ErrUnauthenticated
	}
	return &Session{
		ID:        rec.SessionID,
		Actor:     models.Actor{ID: rec.UserID, Email: rec.Email, Role: rec.Role},
		IssuedAt:  rec.IssuedAt,
		ExpiresAt: rec.ExpiresAt,
	}, nil
}

// SignOut ends a session and closes its live views.
func (m *SessionManager) SignOut(ctx context.Context, session *Session) error {
	if session == nil {
		return nil
	}
	if err := m.store.Delete(ctx, session.ID); err != nil {
		return err
	}
	if m.views != nil {
		m.views.CloseSession(session.ID)
	}
	return nil
}

// RevokeUser ends every session of a user, used after a role change or an
// account deletion so the next request signs in with fresh state.
func (m *SessionManager) RevokeUser(ctx context.Context, userID string) error {
	ids, err := m.store.DeleteUser(ctx, userID)
	if err != nil {
		return err
	}
	if m.views != nil {
		for _, id := range ids {
			m.views.CloseSession(id)
		}
	}
	return nil
}
