package routes

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	memoryRepo "ambulance/database/repository/memory"
	"ambulance/handlers"
	"ambulance/models"
	"ambulance/services/admin"
	"ambulance/services/auth"
	"ambulance/services/booking"
	"ambulance/services/feed"
	"ambulance/services/notification"
	"ambulance/services/storage"
	"ambulance/services/user"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeIdentity accepts "token:<email>" for every account it created or was
// seeded with.
type fakeIdentity struct {
	mu       sync.Mutex
	accounts map[string]string // email -> uid
	seq      int
}

func (f *fakeIdentity) VerifyIDToken(_ context.Context, idToken string) (*auth.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email, ok := strings.CutPrefix(idToken, "token:")
	if !ok {
		return nil, models.ErrUnauthenticated
	}
	uid, ok := f.accounts[email]
	if !ok {
		return nil, models.ErrUnauthenticated
	}
	return &auth.Identity{UID: uid, Email: email}, nil
}

func (f *fakeIdentity) CreateAccount(_ context.Context, email, _, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, taken := f.accounts[email]; taken {
		return "", models.Invalid("email already registered")
	}
	f.seq++
	uid := fmt.Sprintf("uid-%d", f.seq)
	f.accounts[email] = uid
	return uid, nil
}

func (f *fakeIdentity) DeleteAccount(_ context.Context, uid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for email, id := range f.accounts {
		if id == uid {
			delete(f.accounts, email)
		}
	}
	return nil
}

func (f *fakeIdentity) SetRole(context.Context, string, models.Role) error { return nil }

func (f *fakeIdentity) PasswordResetLink(_ context.Context, email string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.accounts[email]; !ok {
		return "", fmt.Errorf("%w: No account found with this email.", models.ErrNotFound)
	}
	return "https://auth.example/reset?email=" + email, nil
}

type outbox struct {
	mu   sync.Mutex
	sent map[string][]string // recipient -> subjects
}

func (o *outbox) Send(to, subject, _ string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent[to] = append(o.sent[to], subject)
	return nil
}

func (o *outbox) subjects(to string) []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.sent[to]...)
}

type testApp struct {
	router *gin.Engine
	store  *memoryRepo.Store
	mail   *outbox
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memoryRepo.NewStore()
	ctx := context.Background()
	require.NoError(t, store.Users().Create(ctx, &models.User{
		ID: "admin-1", Name: "Dispatcher", Email: "admin@x.com", Role: models.RoleAdmin,
	}))
	identity := &fakeIdentity{accounts: map[string]string{"admin@x.com": "admin-1"}}

	feeds := feed.NewRegistry()
	sessions := auth.NewSessionManager(identity, store.Users(), auth.NewMemorySessionStore(nil), feeds, []byte("test-secret"), time.Hour)

	messages := booking.Messages{ServiceName: "Om Ambulance Service", EmergencyContact: "8084527516"}
	mail := &outbox{sent: map[string][]string{}}
	dispatcher, err := notification.NewDispatcher(store.Notifications(), nil, mail, "", "", messages)
	require.NoError(t, err)

	bookingSvc := booking.NewBookingService(store.Bookings(), store.Users(), booking.NewLifecycle(booking.Permissive, nil), dispatcher, booking.Settings{
		ServiceName:      "Om Ambulance Service",
		WhatsAppNumber:   "917260871851",
		EmergencyContact: "8084527516",
		TrackingBaseURL:  "https://example.test/track",
	})
	userSvc := user.NewUserService(store.Users(), store.Bookings(), identity, sessions, mail)
	maintenance := admin.NewMaintenanceService(store.Bookings(), store.Users(), storage.NewMemoryObjectStore())

	sh := handlers.NewSessionHandler(sessions)
	uh := handlers.NewUserHandler(userSvc)
	bh := handlers.NewBookingHandler(bookingSvc, feeds)
	ah := handlers.NewAdminHandler(userSvc, maintenance)
	nh := handlers.NewNotificationHandler(dispatcher)

	hb := &handlers.HandlerBundle{
		Sessions:                 sessions,
		HealthHandler:            handlers.HealthHandler(nil),
		SignInHandler:            sh.SignInHandler,
		SignOutHandler:           sh.SignOutHandler,
		RegisterUserHandler:      uh.RegisterUserHandler,
		PasswordResetHandler:     uh.PasswordResetHandler,
		GetProfileHandler:        uh.GetProfileHandler,
		DeleteAccountHandler:     uh.DeleteAccountHandler,
		CreateBookingHandler:     bh.CreateBookingHandler,
		MyBookingsHandler:        bh.MyBookingsHandler,
		MyBookingsLiveHandler:    bh.MyBookingsLiveHandler,
		TrackBookingHandler:      bh.TrackBookingHandler,
		TrackingQRHandler:        bh.TrackingQRHandler,
		BookingSlipHandler:       bh.BookingSlipHandler,
		AdminBookingsHandler:     bh.AdminBookingsHandler,
		AdminBookingsLive:        bh.AdminBookingsLive,
		UpdateStatusHandler:      bh.UpdateStatusHandler,
		DashboardStatsHandler:    bh.DashboardStatsHandler,
		BookingAnalyticsHandler:  bh.BookingAnalyticsHandler,
		ListUsersHandler:         ah.ListUsersHandler,
		ListAdminsHandler:        ah.ListAdminsHandler,
		DeleteUserHandler:        ah.DeleteUserHandler,
		PromoteUserHandler:       ah.PromoteUserHandler,
		ExportDataHandler:        ah.ExportDataHandler,
		BackupDataHandler:        ah.BackupDataHandler,
		ListNotificationsHandler: nh.ListNotificationsHandler,
		MarkNotificationRead:     nh.MarkNotificationRead,
		RegisterDeviceHandler:    nh.RegisterDeviceHandler,
	}

	r := gin.New()
	RegisterRoutes(r, hb)
	return &testApp{router: r, store: store, mail: mail}
}

func (a *testApp) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (a *testApp) signIn(t *testing.T, email string) string {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/session", "", gin.H{"idToken": "token:" + email})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[struct {
		Session struct {
			Token string `json:"token"`
		} `json:"session"`
	}](t, w)
	require.NotEmpty(t, resp.Session.Token)
	return resp.Session.Token
}

func (a *testApp) register(t *testing.T, name, email string) string {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/users/register", "", gin.H{
		"name": name, "email": email, "phone": "9876543210", "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return a.signIn(t, email)
}

func bookingRequest() gin.H {
	return gin.H{
		"patientName":   "Ravi Kumar",
		"contactNumber": "9876543210",
		"pickupAddress": "Boring Road, Patna",
		"emergencyType": "Cardiac",
	}
}

func (a *testApp) book(t *testing.T, token string) models.Booking {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/bookings", token, bookingRequest())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[booking.CreatedBooking](t, w).Booking
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)
	w := app.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestRegisterAndProfile(t *testing.T) {
	app := newTestApp(t)
	token := app.register(t, "Asha Devi", "asha@x.com")

	w := app.do(t, http.MethodGet, "/api/users/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[models.User](t, w)
	assert.Equal(t, "asha@x.com", me.Email)
	assert.Equal(t, models.RoleUser, me.Role)

	short := app.do(t, http.MethodPost, "/api/users/register", "", gin.H{
		"name": "Bad", "email": "bad@x.com", "phone": "1", "password": "123",
	})
	assert.Equal(t, http.StatusBadRequest, short.Code)

	assert.Equal(t, http.StatusUnauthorized, app.do(t, http.MethodGet, "/api/users/me", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, app.do(t, http.MethodPost, "/api/session", "", gin.H{"idToken": "token:nobody@x.com"}).Code)
}

func TestPasswordReset(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "Asha Devi", "asha@x.com")

	w := app.do(t, http.MethodPost, "/api/users/password-reset", "", gin.H{"email": "Asha@x.com"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "Password reset link sent")
	assert.Equal(t, []string{"Reset your password"}, app.mail.subjects("asha@x.com"))

	unknown := app.do(t, http.MethodPost, "/api/users/password-reset", "", gin.H{"email": "ghost@x.com"})
	assert.Equal(t, http.StatusNotFound, unknown.Code)
	assert.Equal(t, http.StatusBadRequest, app.do(t, http.MethodPost, "/api/users/password-reset", "", gin.H{}).Code)
}

func TestBookingFlow(t *testing.T) {
	app := newTestApp(t)
	token := app.register(t, "Asha Devi", "asha@x.com")

	w := app.do(t, http.MethodPost, "/api/bookings", token, bookingRequest())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[booking.CreatedBooking](t, w)
	b := created.Booking
	assert.Regexp(t, `^AMB\d{6}[0-9A-Z]{5}$`, b.BookingCode)
	assert.Equal(t, models.StatusBooked, b.Status)
	assert.True(t, strings.HasPrefix(created.WhatsAppLink, "https://wa.me/917260871851?text="))

	missing := app.do(t, http.MethodPost, "/api/bookings", token, gin.H{"patientName": "x"})
	assert.Equal(t, http.StatusBadRequest, missing.Code)
	assert.Equal(t, http.StatusUnauthorized, app.do(t, http.MethodPost, "/api/bookings", "", bookingRequest()).Code)

	mine := app.do(t, http.MethodGet, "/api/bookings/mine", token, nil)
	require.Equal(t, http.StatusOK, mine.Code)
	list := decode[struct {
		Bookings []models.Booking `json:"bookings"`
	}](t, mine)
	require.Len(t, list.Bookings, 1)
	assert.Equal(t, b.BookingCode, list.Bookings[0].BookingCode)

	track := app.do(t, http.MethodGet, "/api/bookings/track/"+strings.ToLower(b.BookingCode), "", nil)
	require.Equal(t, http.StatusOK, track.Code)
	assert.Contains(t, track.Body.String(), b.BookingCode)
	assert.Equal(t, http.StatusNotFound, app.do(t, http.MethodGet, "/api/bookings/track/AMB000000XXXXX", "", nil).Code)

	qr := app.do(t, http.MethodGet, "/api/bookings/track/"+b.BookingCode+"/qr", "", nil)
	require.Equal(t, http.StatusOK, qr.Code)
	assert.Equal(t, "image/png", qr.Header().Get("Content-Type"))

	slip := app.do(t, http.MethodGet, "/api/bookings/track/"+b.BookingCode+"/slip", "", nil)
	require.Equal(t, http.StatusOK, slip.Code)
	assert.Equal(t, "application/pdf", slip.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(slip.Body.Bytes(), []byte("%PDF")))
}

func TestAdminBookingManagement(t *testing.T) {
	app := newTestApp(t)
	userToken := app.register(t, "Asha Devi", "asha@x.com")
	adminToken := app.signIn(t, "admin@x.com")
	b := app.book(t, userToken)

	assert.Equal(t, http.StatusForbidden, app.do(t, http.MethodGet, "/api/admin/stats", userToken, nil).Code)
	assert.Equal(t, http.StatusForbidden,
		app.do(t, http.MethodPut, "/api/admin/bookings/"+b.ID+"/status", userToken, gin.H{"status": "confirmed"}).Code)

	w := app.do(t, http.MethodPut, "/api/admin/bookings/"+b.ID+"/status", adminToken, gin.H{
		"status": "confirmed", "notes": "Driver Raju assigned",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[models.Booking](t, w)
	assert.Equal(t, models.StatusConfirmed, updated.Status)
	assert.Equal(t, "Driver Raju assigned", updated.AdditionalNotes)
	assert.NotNil(t, updated.UpdatedAt)
	assert.Contains(t, w.Body.String(), `"nextStates":["booked","confirmed","dispatched","completed","cancelled"]`)
	assert.Equal(t, []string{
		"Booking confirmed: " + b.BookingCode,
		"Booking " + b.BookingCode + " is now CONFIRMED",
	}, app.mail.subjects("asha@x.com"))

	bad := app.do(t, http.MethodPut, "/api/admin/bookings/"+b.ID+"/status", adminToken, gin.H{"status": "teleported"})
	assert.Equal(t, http.StatusUnprocessableEntity, bad.Code)
	gone := app.do(t, http.MethodPut, "/api/admin/bookings/nope/status", adminToken, gin.H{"status": "completed"})
	assert.Equal(t, http.StatusNotFound, gone.Code)

	filtered := app.do(t, http.MethodGet, "/api/admin/bookings?status=confirmed", adminToken, nil)
	require.Equal(t, http.StatusOK, filtered.Code)
	assert.Len(t, decode[struct {
		Bookings []models.Booking `json:"bookings"`
	}](t, filtered).Bookings, 1)

	stats := app.do(t, http.MethodGet, "/api/admin/stats", adminToken, nil)
	require.Equal(t, http.StatusOK, stats.Code)
	s := decode[models.DashboardStats](t, stats)
	assert.Equal(t, 1, s.TotalBookings)
	assert.Equal(t, 2, s.TotalUsers)
	assert.Equal(t, 0, s.PendingBookings)

	analytics := app.do(t, http.MethodGet, "/api/admin/analytics", adminToken, nil)
	require.Equal(t, http.StatusOK, analytics.Code)
	a := decode[models.Analytics](t, analytics)
	assert.Equal(t, 1, a.StatusCounts[models.StatusConfirmed])
	assert.Equal(t, 0, a.StatusCounts[models.StatusBooked])
	assert.Equal(t, 1, a.EmergencyTypes["Cardiac"])
}

func TestAdminUserManagement(t *testing.T) {
	app := newTestApp(t)
	userToken := app.register(t, "Asha Devi", "asha@x.com")
	adminToken := app.signIn(t, "admin@x.com")
	app.book(t, userToken)
	app.book(t, userToken)

	users := app.do(t, http.MethodGet, "/api/admin/users?q=asha", adminToken, nil)
	require.Equal(t, http.StatusOK, users.Code)
	list := decode[struct {
		Users []models.UserSummary `json:"users"`
	}](t, users)
	require.Len(t, list.Users, 1)
	assert.Equal(t, 2, list.Users[0].BookingCount)
	userID := list.Users[0].ID

	assert.Equal(t, http.StatusNotFound,
		app.do(t, http.MethodPost, "/api/admin/promote", adminToken, gin.H{"email": "ghost@x.com"}).Code)
	assert.Equal(t, http.StatusConflict,
		app.do(t, http.MethodPost, "/api/admin/promote", adminToken, gin.H{"email": "admin@x.com"}).Code)

	promoted := app.do(t, http.MethodPost, "/api/admin/promote", adminToken, gin.H{"email": "ASHA@x.com"})
	require.Equal(t, http.StatusOK, promoted.Code, promoted.Body.String())

	// Promotion revokes the old session; a fresh sign-in carries the new role.
	assert.Equal(t, http.StatusUnauthorized, app.do(t, http.MethodGet, "/api/users/me", userToken, nil).Code)
	newToken := app.signIn(t, "asha@x.com")
	assert.Equal(t, http.StatusOK, app.do(t, http.MethodGet, "/api/admin/stats", newToken, nil).Code)

	admins := app.do(t, http.MethodGet, "/api/admin/admins", adminToken, nil)
	require.Equal(t, http.StatusOK, admins.Code)
	assert.Len(t, decode[struct {
		Admins []models.User `json:"admins"`
	}](t, admins).Admins, 2)

	del := app.do(t, http.MethodDelete, "/api/admin/users/"+userID, adminToken, nil)
	require.Equal(t, http.StatusOK, del.Code)
	assert.Contains(t, del.Body.String(), `"deletedBookings":2`)
	assert.Equal(t, http.StatusNotFound, app.do(t, http.MethodDelete, "/api/admin/users/"+userID, adminToken, nil).Code)

	left, err := app.store.Bookings().ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestDeleteOwnAccount(t *testing.T) {
	app := newTestApp(t)
	token := app.register(t, "Asha Devi", "asha@x.com")
	app.book(t, token)

	w := app.do(t, http.MethodDelete, "/api/users/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"deletedBookings":1`)

	assert.Equal(t, http.StatusUnauthorized, app.do(t, http.MethodGet, "/api/users/me", token, nil).Code)
	assert.Equal(t, http.StatusUnauthorized,
		app.do(t, http.MethodPost, "/api/session", "", gin.H{"idToken": "token:asha@x.com"}).Code)
}

func TestSignOut(t *testing.T) {
	app := newTestApp(t)
	token := app.signIn(t, "admin@x.com")

	assert.Equal(t, http.StatusOK, app.do(t, http.MethodDelete, "/api/session", token, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, app.do(t, http.MethodGet, "/api/admin/stats", token, nil).Code)
}

func TestNotificationsAndExport(t *testing.T) {
	app := newTestApp(t)
	userToken := app.register(t, "Asha Devi", "asha@x.com")
	adminToken := app.signIn(t, "admin@x.com")
	b := app.book(t, userToken)

	inbox := app.do(t, http.MethodGet, "/api/admin/notifications", adminToken, nil)
	require.Equal(t, http.StatusOK, inbox.Code)
	resp := decode[struct {
		Notifications []models.Notification `json:"notifications"`
		Unread        int                   `json:"unread"`
	}](t, inbox)
	require.Len(t, resp.Notifications, 1)
	assert.Equal(t, 1, resp.Unread)
	assert.Equal(t, b.BookingCode, resp.Notifications[0].BookingCode)

	read := app.do(t, http.MethodPut, "/api/admin/notifications/"+resp.Notifications[0].ID+"/read", adminToken, nil)
	require.Equal(t, http.StatusOK, read.Code)
	inbox = app.do(t, http.MethodGet, "/api/admin/notifications", adminToken, nil)
	assert.Contains(t, inbox.Body.String(), `"unread":0`)

	// No push channel is configured in tests.
	device := app.do(t, http.MethodPost, "/api/admin/devices", adminToken, gin.H{"token": "fcm-1"})
	assert.Equal(t, http.StatusInternalServerError, device.Code)

	export := app.do(t, http.MethodGet, "/api/admin/export", adminToken, nil)
	require.Equal(t, http.StatusOK, export.Code)
	assert.Regexp(t, `attachment; filename="ambulance-data-\d{4}-\d{2}-\d{2}\.json"`, export.Header().Get("Content-Disposition"))
	doc := decode[models.DataExport](t, export)
	assert.Len(t, doc.Bookings, 1)
	assert.Len(t, doc.Users, 2)

	backup := app.do(t, http.MethodPost, "/api/admin/backup", adminToken, nil)
	require.Equal(t, http.StatusOK, backup.Code)
	assert.Contains(t, backup.Body.String(), `"path":"backups/ambulance-data-`)
}

// readEvent returns the name and data of the next server-sent event.
func readEvent(t *testing.T, sc *bufio.Scanner) (string, string) {
	t.Helper()
	var name, data string
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimPrefix(line, "event:")
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimPrefix(line, "data:")
		case line == "" && name != "":
			return name, data
		}
	}
	return "", ""
}

func openStream(t *testing.T, ctx context.Context, url, token string) *bufio.Scanner {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	t.Cleanup(func() { resp.Body.Close() })
	return bufio.NewScanner(resp.Body)
}

func TestLiveBookingsStream(t *testing.T) {
	app := newTestApp(t)
	token := app.register(t, "Asha Devi", "asha@x.com")
	b := app.book(t, token)

	srv := httptest.NewServer(app.router)
	defer srv.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	first := openStream(t, ctx, srv.URL+"/api/bookings/mine/live", token)
	name, data := readEvent(t, first)
	require.Equal(t, "bookings", name)
	var snap models.BookingSnapshot
	require.NoError(t, json.Unmarshal([]byte(data), &snap))
	require.Len(t, snap.Bookings, 1)
	assert.Equal(t, b.BookingCode, snap.Bookings[0].BookingCode)

	// Reopening the same view from the same session ends the first stream.
	second := openStream(t, ctx, srv.URL+"/api/bookings/mine/live", token)
	name, _ = readEvent(t, second)
	assert.Equal(t, "bookings", name)

	name, _ = readEvent(t, first)
	assert.Equal(t, "closed", name)
}
