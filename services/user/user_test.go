package user

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	memoryRepo "ambulance/database/repository/memory"
	"ambulance/models"
	"ambulance/services/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIdentity struct {
	mu        sync.Mutex
	accounts  map[string]string
	deleted   []string
	roles     map[string]models.Role
	createErr error
	seq       int
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{accounts: map[string]string{}, roles: map[string]models.Role{}}
}

func (f *fakeIdentity) VerifyIDToken(context.Context, string) (*auth.Identity, error) {
	return nil, models.ErrUnauthenticated
}

func (f *fakeIdentity) CreateAccount(_ context.Context, email, _, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	f.seq++
	uid := fmt.Sprintf("uid-%d", f.seq)
	f.accounts[uid] = email
	return uid, nil
}

func (f *fakeIdentity) DeleteAccount(_ context.Context, uid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.accounts, uid)
	f.deleted = append(f.deleted, uid)
	return nil
}

func (f *fakeIdentity) SetRole(_ context.Context, uid string, role models.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roles[uid] = role
	return nil
}

func (f *fakeIdentity) PasswordResetLink(_ context.Context, email string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for uid, e := range f.accounts {
		if e == email {
			return "https://auth.example/reset?uid=" + uid, nil
		}
	}
	return "", fmt.Errorf("%w: No account found with this email.", models.ErrNotFound)
}

type sentMail struct{ to, subject, body string }

type recordingMailer struct {
	sent []sentMail
	err  error
}

func (m *recordingMailer) Send(to, subject, body string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to, subject, body})
	return nil
}

type recordingRevoker struct {
	revoked []string
}

func (r *recordingRevoker) RevokeUser(_ context.Context, userID string) error {
	r.revoked = append(r.revoked, userID)
	return nil
}

var (
	admin    = models.Actor{ID: "a1", Email: "admin@x.com", Role: models.RoleAdmin}
	customer = models.Actor{ID: "u1", Email: "asha@x.com", Role: models.RoleUser}
)

type fixture struct {
	svc      *DefaultUserService
	store    *memoryRepo.Store
	identity *fakeIdentity
	revoker  *recordingRevoker
	mailer   *recordingMailer
}

func newFixture(t *testing.T, opts ...memoryRepo.Option) *fixture {
	t.Helper()
	store := memoryRepo.NewStore(opts...)
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Users().Create(ctx, &models.User{
		ID: "a1", Name: "Admin", Email: "admin@x.com", Phone: "8084527516",
		Role: models.RoleAdmin, CreatedAt: base,
	}))
	require.NoError(t, store.Users().Create(ctx, &models.User{
		ID: "u1", Name: "Asha Devi", Email: "asha@x.com", Phone: "9876500001",
		CreatedAt: base.Add(time.Hour),
	}))
	require.NoError(t, store.Users().Create(ctx, &models.User{
		ID: "u2", Name: "Ravi Kumar", Email: "ravi@x.com", Phone: "9123400002",
		CreatedAt: base.Add(2 * time.Hour),
	}))

	identity := newFakeIdentity()
	revoker := &recordingRevoker{}
	mailer := &recordingMailer{}
	svc := NewUserService(store.Users(), store.Bookings(), identity, revoker, mailer)
	return &fixture{svc: svc, store: store, identity: identity, revoker: revoker, mailer: mailer}
}

func (f *fixture) book(t *testing.T, owner string) {
	t.Helper()
	require.NoError(t, f.store.Bookings().Create(context.Background(), &models.Booking{
		PatientName:   "Patient",
		ContactNumber: "9000000000",
		PickupAddress: "Patna",
		EmergencyType: "Accident",
		RequesterID:   owner,
	}))
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.svc.Register(ctx, models.UserRegistration{
		Name: " Meena ", Email: " Meena@X.com ", Phone: "9000011111", Password: "secret1",
	})
	require.NoError(t, err)
	assert.Equal(t, "Meena", u.Name)
	assert.Equal(t, "meena@x.com", u.Email)
	assert.Equal(t, models.RoleUser, u.Role)

	stored, err := f.store.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "meena@x.com", stored.Email)
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, models.UserRegistration{
		Name: "Meena", Email: "meena@x.com", Phone: "9000011111", Password: "12345",
	})
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = f.svc.Register(ctx, models.UserRegistration{
		Name: "Meena", Email: "not-an-email", Phone: "9000011111", Password: "123456",
	})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	assert.Empty(t, f.identity.accounts)
}

func TestRegisterRollsBackIdentityOnProfileFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// The first identity uid collides with an existing profile.
	require.NoError(t, f.store.Users().Create(ctx, &models.User{ID: "uid-1", Email: "taken@x.com"}))

	_, err := f.svc.Register(ctx, models.UserRegistration{
		Name: "Meena", Email: "meena@x.com", Phone: "9000011111", Password: "secret1",
	})
	require.Error(t, err)
	assert.Equal(t, []string{"uid-1"}, f.identity.deleted)
	assert.Empty(t, f.identity.accounts)
}

func TestRegisterIdentityFailure(t *testing.T) {
	f := newFixture(t)
	f.identity.createErr = models.Invalid("email already registered")

	_, err := f.svc.Register(context.Background(), models.UserRegistration{
		Name: "Meena", Email: "asha@x.com", Phone: "9000011111", Password: "secret1",
	})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestRequestPasswordReset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, models.UserRegistration{
		Name: "Meena", Email: "meena@x.com", Phone: "9000000003", Password: "secret1",
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.RequestPasswordReset(ctx, " Meena@X.com "))
	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, "meena@x.com", f.mailer.sent[0].to)
	assert.Equal(t, "Reset your password", f.mailer.sent[0].subject)
	assert.Contains(t, f.mailer.sent[0].body, "https://auth.example/reset?uid=uid-1")

	err = f.svc.RequestPasswordReset(ctx, "ghost@x.com")
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.ErrorIs(t, f.svc.RequestPasswordReset(ctx, "not-an-email"), models.ErrInvalidInput)
	assert.Len(t, f.mailer.sent, 1)

	f.mailer.err = errors.New("smtp down")
	assert.Error(t, f.svc.RequestPasswordReset(ctx, "meena@x.com"))
}

func TestGetProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.svc.GetProfile(ctx, customer)
	require.NoError(t, err)
	assert.Equal(t, "Asha Devi", u.Name)

	_, err = f.svc.GetProfile(ctx, models.Actor{})
	assert.ErrorIs(t, err, models.ErrUnauthenticated)
}

func TestListUsersCountsAndSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.book(t, "u1")
	f.book(t, "u1")
	f.book(t, "u2")

	all, err := f.svc.ListUsers(ctx, admin, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "u2", all[0].ID)
	assert.Equal(t, 1, all[0].BookingCount)
	assert.Equal(t, "u1", all[1].ID)
	assert.Equal(t, 2, all[1].BookingCount)
	assert.Equal(t, 0, all[2].BookingCount)

	byName, err := f.svc.ListUsers(ctx, admin, "ASHA")
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "u1", byName[0].ID)

	byPhone, err := f.svc.ListUsers(ctx, admin, "91234")
	require.NoError(t, err)
	require.Len(t, byPhone, 1)
	assert.Equal(t, "u2", byPhone[0].ID)

	_, err = f.svc.ListUsers(ctx, customer, "")
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestPromoteByEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.svc.PromoteByEmail(ctx, admin, " Ravi@X.com ")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, u.Role)
	require.NotNil(t, u.PromotedAt)
	assert.Equal(t, models.RoleAdmin, f.identity.roles["u2"])
	assert.Equal(t, []string{"u2"}, f.revoker.revoked)

	admins, err := f.svc.ListAdmins(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, admins, 2)

	_, err = f.svc.PromoteByEmail(ctx, admin, "ravi@x.com")
	assert.ErrorIs(t, err, models.ErrAlreadyAdmin)

	_, err = f.svc.PromoteByEmail(ctx, admin, "nobody@x.com")
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Contains(t, err.Error(), "User not found with this email")

	_, err = f.svc.PromoteByEmail(ctx, customer, "ravi@x.com")
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestPromoteByEmailMatchesMixedCaseProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Users().Create(ctx, &models.User{
		ID: "u3", Name: "Legacy", Email: "Legacy.User@Example.com", Phone: "9000000009",
		CreatedAt: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
	}))

	u, err := f.svc.PromoteByEmail(ctx, admin, "legacy.user@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u3", u.ID)
	assert.Equal(t, models.RoleAdmin, u.Role)
}

func TestDeleteUserCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.book(t, "u1")
	f.book(t, "u1")
	f.book(t, "u2")

	n, err := f.svc.DeleteUser(ctx, admin, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"u1"}, f.revoker.revoked)

	_, err = f.store.Users().GetByID(ctx, "u1")
	assert.ErrorIs(t, err, models.ErrNotFound)
	left, err := f.store.Bookings().ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, left, 1)

	_, err = f.svc.DeleteUser(ctx, admin, "u1")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = f.svc.DeleteUser(ctx, admin, "a1")
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = f.svc.DeleteUser(ctx, customer, "u2")
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestDeleteUserFailureKeepsEverything(t *testing.T) {
	f := newFixture(t, memoryRepo.WithCascadeFault(func(string) error {
		return errors.New("connection reset")
	}))
	ctx := context.Background()
	f.book(t, "u1")

	_, err := f.svc.DeleteUser(ctx, admin, "u1")
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)
	assert.Empty(t, f.revoker.revoked)

	_, err = f.store.Users().GetByID(ctx, "u1")
	assert.NoError(t, err)
	mine, err := f.store.Bookings().ListByOwner(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestDeleteAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.book(t, "u1")

	n, err := f.svc.DeleteAccount(ctx, customer)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"u1"}, f.identity.deleted)
	assert.Equal(t, []string{"u1"}, f.revoker.revoked)

	_, err = f.svc.DeleteAccount(ctx, models.Actor{})
	assert.ErrorIs(t, err, models.ErrUnauthenticated)
}
