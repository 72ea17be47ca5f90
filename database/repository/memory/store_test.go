package memoryRepo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ambulance/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stepClock returns t0, t0+1m, t0+2m, ... on successive calls.
func stepClock(t0 time.Time) func() time.Time {
	var mu sync.Mutex
	next := t0
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := next
		next = next.Add(time.Minute)
		return now
	}
}

func draft(owner, patient string) *models.Booking {
	return &models.Booking{
		PatientName:    patient,
		ContactNumber:  "9000000000",
		PickupAddress:  "Boring Road, Patna",
		EmergencyType:  "cardiac",
		RequesterID:    owner,
		RequesterEmail: owner + "@x.com",
	}
}

func patients(bookings []models.Booking) []string {
	out := make([]string, len(bookings))
	for i, b := range bookings {
		out[i] = b.PatientName
	}
	return out
}

func TestCreateAssignsStoreFields(t *testing.T) {
	store := NewStore()
	repo := store.Bookings()
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		b := draft("u1", "Ravi")
		b.Status = models.StatusCompleted
		b.AdditionalNotes = "should be cleared"
		require.NoError(t, repo.Create(ctx, b))

		assert.Equal(t, models.StatusBooked, b.Status)
		assert.True(t, models.ValidBookingCode(b.BookingCode), b.BookingCode)
		assert.NotEmpty(t, b.ID)
		assert.False(t, seen[b.ID], "duplicate id %s", b.ID)
		assert.Empty(t, b.AdditionalNotes)
		assert.Nil(t, b.UpdatedAt)
		seen[b.ID] = true
	}
}

func TestCreateRegeneratesCollidingCode(t *testing.T) {
	calls := 0
	gen := func(time.Time) string {
		calls++
		if calls <= 3 {
			return "AMB000001AAAAA"
		}
		return "AMB000001BBBBB"
	}
	repo := NewStore(WithCodeGenerator(gen)).Bookings()
	ctx := context.Background()

	first := draft("u1", "A")
	require.NoError(t, repo.Create(ctx, first))
	second := draft("u1", "B")
	require.NoError(t, repo.Create(ctx, second))

	assert.Equal(t, "AMB000001AAAAA", first.BookingCode)
	assert.Equal(t, "AMB000001BBBBB", second.BookingCode)
}

func TestCreateGivesUpAfterRepeatedCollisions(t *testing.T) {
	repo := NewStore(WithCodeGenerator(func(time.Time) string { return "AMB000001AAAAA" })).Bookings()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, draft("u1", "A")))
	err := repo.Create(ctx, draft("u1", "B"))
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)
}

func TestListingsAreNewestFirst(t *testing.T) {
	t0 := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	store := NewStore(WithClock(stepClock(t0)))
	repo := store.Bookings()
	ctx := context.Background()

	for _, name := range []string{"T1", "T2", "T3"} {
		require.NoError(t, repo.Create(ctx, draft("u1", name)))
	}

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"T3", "T2", "T1"}, patients(all))

	mine, err := repo.ListByOwner(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"T3", "T2", "T1"}, patients(mine))
}

func TestSubscribeDeliversOrderedSnapshots(t *testing.T) {
	t0 := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	store := NewStore(WithClock(stepClock(t0)))
	repo := store.Bookings()
	ctx := context.Background()

	var mu sync.Mutex
	var latest models.BookingSnapshot
	var added []string
	sub, err := repo.Subscribe(ctx, models.BookingFilter{}, func(snap models.BookingSnapshot) {
		mu.Lock()
		defer mu.Unlock()
		latest = snap
		added = append(added, patients(snap.Added)...)
	})
	require.NoError(t, err)
	defer sub.Cancel()

	for _, name := range []string{"T1", "T2", "T3"} {
		require.NoError(t, repo.Create(ctx, draft("u1", name)))
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(latest.Bookings) == 3
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"T3", "T2", "T1"}, patients(latest.Bookings))
	assert.ElementsMatch(t, []string{"T1", "T2", "T3"}, added)
}

func TestSubscribeRespectsOwnerFilter(t *testing.T) {
	store := NewStore()
	repo := store.Bookings()
	ctx := context.Background()

	got := make(chan models.BookingSnapshot, 16)
	sub, err := repo.Subscribe(ctx, models.BookingFilter{RequesterID: "u2"}, func(snap models.BookingSnapshot) {
		got <- snap
	})
	require.NoError(t, err)
	defer sub.Cancel()

	require.NoError(t, repo.Create(ctx, draft("u1", "other")))
	require.NoError(t, repo.Create(ctx, draft("u2", "mine")))

	require.Eventually(t, func() bool {
		for {
			select {
			case snap := <-got:
				if len(snap.Bookings) == 1 && snap.Bookings[0].PatientName == "mine" {
					return true
				}
			default:
				return false
			}
		}
	}, time.Second, 5*time.Millisecond)
}

func TestCancelStopsDeliveries(t *testing.T) {
	store := NewStore()
	repo := store.Bookings()
	ctx := context.Background()

	var mu sync.Mutex
	calls := 0
	sub, err := repo.Subscribe(ctx, models.BookingFilter{}, func(models.BookingSnapshot) {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls == 1
	}, time.Second, 5*time.Millisecond)

	sub.Cancel()
	sub.Cancel()
	require.NoError(t, repo.Create(ctx, draft("u1", "late")))
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
}

func TestUpdateStatusKeepsNotesWhenBlank(t *testing.T) {
	store := NewStore()
	repo := store.Bookings()
	ctx := context.Background()

	b := draft("u1", "Ravi")
	require.NoError(t, repo.Create(ctx, b))

	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpdateStatus(ctx, b.ID, models.StatusUpdate{Status: models.StatusConfirmed, Notes: "  driver on way ", At: at}))
	require.NoError(t, repo.UpdateStatus(ctx, b.ID, models.StatusUpdate{Status: models.StatusDispatched, Notes: "   ", At: at.Add(time.Minute)}))

	got, err := repo.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDispatched, got.Status)
	assert.Equal(t, "driver on way", got.AdditionalNotes)
	require.NotNil(t, got.UpdatedAt)
	assert.Equal(t, at.Add(time.Minute), *got.UpdatedAt)

	err = repo.UpdateStatus(ctx, "missing", models.StatusUpdate{Status: models.StatusConfirmed, At: at})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestGetByCode(t *testing.T) {
	repo := NewStore().Bookings()
	ctx := context.Background()

	b := draft("u1", "Ravi")
	require.NoError(t, repo.Create(ctx, b))

	got, err := repo.GetByCode(ctx, b.BookingCode)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	_, err = repo.GetByCode(ctx, "AMB000000ZZZZZ")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestDeleteCascadeRemovesUserAndBookings(t *testing.T) {
	store := NewStore()
	users, bookings := store.Users(), store.Bookings()
	ctx := context.Background()

	require.NoError(t, users.Create(ctx, &models.User{ID: "u1", Email: "a@x.com"}))
	require.NoError(t, users.Create(ctx, &models.User{ID: "u2", Email: "b@x.com"}))
	for i := 0; i < 3; i++ {
		require.NoError(t, bookings.Create(ctx, draft("u1", "mine")))
	}
	require.NoError(t, bookings.Create(ctx, draft("u2", "theirs")))

	n, err := users.DeleteCascade(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	mine, err := bookings.ListByOwner(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, mine)
	_, err = users.GetByID(ctx, "u1")
	assert.ErrorIs(t, err, models.ErrNotFound)

	theirs, err := bookings.ListByOwner(ctx, "u2")
	require.NoError(t, err)
	assert.Len(t, theirs, 1)

	_, err = users.DeleteCascade(ctx, "u1")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestDeleteCascadeIsAllOrNothing(t *testing.T) {
	fault := errors.New("connection reset")
	store := NewStore(WithCascadeFault(func(string) error { return fault }))
	users, bookings := store.Users(), store.Bookings()
	ctx := context.Background()

	require.NoError(t, users.Create(ctx, &models.User{ID: "u1", Email: "a@x.com"}))
	require.NoError(t, bookings.Create(ctx, draft("u1", "one")))
	require.NoError(t, bookings.Create(ctx, draft("u1", "two")))

	_, err := users.DeleteCascade(ctx, "u1")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)
	assert.ErrorIs(t, err, fault)

	remaining, err := bookings.ListByOwner(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, remaining, 2)
	_, err = users.GetByID(ctx, "u1")
	assert.NoError(t, err)
}

func TestPromoteAlreadyAdminKeepsPromotedAt(t *testing.T) {
	store := NewStore()
	users := store.Users()
	ctx := context.Background()

	promotedAt := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, users.Create(ctx, &models.User{
		ID: "a1", Email: "a@x.com", Role: models.RoleAdmin, PromotedAt: &promotedAt,
	}))

	target, err := users.GetByEmail(ctx, "A@X.com")
	require.NoError(t, err)
	_, err = users.Promote(ctx, target.ID, promotedAt.Add(48*time.Hour))
	assert.ErrorIs(t, err, models.ErrAlreadyAdmin)

	after, err := users.GetByID(ctx, "a1")
	require.NoError(t, err)
	require.NotNil(t, after.PromotedAt)
	assert.Equal(t, promotedAt, *after.PromotedAt)
}

func TestPromoteUser(t *testing.T) {
	store := NewStore()
	users := store.Users()
	ctx := context.Background()

	require.NoError(t, users.Create(ctx, &models.User{ID: "u1", Email: "u@x.com"}))
	at := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	promoted, err := users.Promote(ctx, "u1", at)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, promoted.Role)
	require.NotNil(t, promoted.PromotedAt)
	assert.Equal(t, at, *promoted.PromotedAt)

	admins, err := users.GetAdmins(ctx)
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, "u1", admins[0].ID)

	_, err = users.Promote(ctx, "ghost", at)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestNotificationInbox(t *testing.T) {
	t0 := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	inbox := NewStore(WithClock(stepClock(t0))).Notifications()
	ctx := context.Background()

	for _, code := range []string{"AMB000001AAAAA", "AMB000002AAAAA", "AMB000003AAAAA"} {
		require.NoError(t, inbox.Create(ctx, &models.Notification{Type: models.NotificationNewBooking, BookingCode: code}))
	}

	latest, err := inbox.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "AMB000003AAAAA", latest[0].BookingCode)

	require.NoError(t, inbox.MarkRead(ctx, latest[0].ID))
	all, err := inbox.List(ctx, 0)
	require.NoError(t, err)
	assert.True(t, all[0].Read)
	assert.False(t, all[1].Read)

	assert.ErrorIs(t, inbox.MarkRead(ctx, "nope"), models.ErrNotFound)
}

func TestNotificationCreateKeepsExistingEntry(t *testing.T) {
	inbox := NewStore().Notifications()
	ctx := context.Background()
	id := models.NewBookingNotificationID("AMB000001AAAAA")

	first := &models.Notification{ID: id, Type: models.NotificationNewBooking, Message: "first"}
	require.NoError(t, inbox.Create(ctx, first))
	require.NoError(t, inbox.MarkDelivered(ctx, id, models.ChannelPush))
	require.NoError(t, inbox.MarkDelivered(ctx, id, models.ChannelPush))

	again := &models.Notification{ID: id, Type: models.NotificationNewBooking, Message: "second"}
	require.NoError(t, inbox.Create(ctx, again))
	assert.Equal(t, "first", again.Message)
	assert.True(t, again.DeliveredOn(models.ChannelPush))
	assert.False(t, again.DeliveredOn(models.ChannelAdminMail))

	all, err := inbox.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, []string{models.ChannelPush}, all[0].Delivered)

	assert.ErrorIs(t, inbox.MarkDelivered(ctx, "nope", models.ChannelPush), models.ErrNotFound)
}
