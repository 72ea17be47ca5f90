package bookingRepo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ambulance/models"
	"ambulance/utils"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// errCodeTaken signals a booking code collision inside a create transaction.
var errCodeTaken = errors.New("booking code taken")

// FirestoreBookingRepo implements BookingRepository on Cloud Firestore. The
// document id is the booking's storage key.
type FirestoreBookingRepo struct {
	client *firestore.Client
	coll   *firestore.CollectionRef
	now    func() time.Time
}

// NewFirestoreBookingRepo creates a BookingRepository backed by the bookings
// collection.
func NewFirestoreBookingRepo(client *firestore.Client) *FirestoreBookingRepo {
	return &FirestoreBookingRepo{
		client: client,
		coll:   client.Collection("bookings"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Collection exposes the bookings collection to transactional callers.
func (r *FirestoreBookingRepo) Collection() *firestore.CollectionRef {
	return r.coll
}

func (r *FirestoreBookingRepo) Create(ctx context.Context, b *models.Booking) error {
	ctx, cancel := newContext(ctx, 10*time.Second)
	defer cancel()

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		ref := r.coll.NewDoc()
		prepare(b, ref.ID, r.now())
		err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
			taken, err := tx.Documents(r.coll.Where("bookingId", "==", b.BookingCode).Limit(1)).GetAll()
			if err != nil {
				return err
			}
			if len(taken) > 0 {
				return errCodeTaken
			}
			return tx.Create(ref, b)
		})
		if err == nil {
			return nil
		}
		if !errors.Is(err, errCodeTaken) {
			return models.Unavailable("create booking", err)
		}
	}
	return models.Unavailable("create booking", fmt.Errorf("booking code still colliding after %d attempts", maxCodeAttempts))
}

func (r *FirestoreBookingRepo) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	doc, err := r.coll.Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, models.NotFound("booking", id)
		}
		return nil, models.Unavailable("fetch booking", err)
	}
	return decodeBooking(doc)
}

func (r *FirestoreBookingRepo) GetByCode(ctx context.Context, code string) (*models.Booking, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	iter := r.coll.Where("bookingId", "==", code).Limit(1).Documents(ctx)
	defer iter.Stop()
	doc, err := iter.Next()
	if errors.Is(err, iterator.Done) {
		return nil, models.NotFound("booking code", code)
	}
	if err != nil {
		return nil, models.Unavailable("fetch booking", err)
	}
	return decodeBooking(doc)
}

func (r *FirestoreBookingRepo) ListAll(ctx context.Context) ([]models.Booking, error) {
	return r.list(ctx, r.query(models.BookingFilter{}))
}

func (r *FirestoreBookingRepo) ListByOwner(ctx context.Context, ownerID string) ([]models.Booking, error) {
	return r.list(ctx, r.query(models.BookingFilter{RequesterID: ownerID}))
}

func (r *FirestoreBookingRepo) query(filter models.BookingFilter) firestore.Query {
	q := r.coll.Query
	if filter.RequesterID != "" {
		q = q.Where("userId", "==", filter.RequesterID)
	}
	return q.OrderBy("createdAt", firestore.Desc)
}

func (r *FirestoreBookingRepo) list(ctx context.Context, q firestore.Query) ([]models.Booking, error) {
	ctx, cancel := newContext(ctx, 10*time.Second)
	defer cancel()

	docs, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, models.Unavailable("list bookings", err)
	}
	return decodeBookings(docs)
}

func (r *FirestoreBookingRepo) UpdateStatus(ctx context.Context, id string, update models.StatusUpdate) error {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	updates := []firestore.Update{
		{Path: "status", Value: string(update.Status)},
		{Path: "updatedAt", Value: update.At},
	}
	if notes := strings.TrimSpace(update.Notes); notes != "" {
		updates = append(updates, firestore.Update{Path: "additionalNotes", Value: notes})
	}
	if _, err := r.coll.Doc(id).Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return models.NotFound("booking", id)
		}
		return models.Unavailable("update booking status", err)
	}
	return nil
}

// DeleteAllByOwner removes the owner's bookings in one transaction.
func (r *FirestoreBookingRepo) DeleteAllByOwner(ctx context.Context, ownerID string) (int, error) {
	ctx, cancel := newContext(ctx, 10*time.Second)
	defer cancel()

	var deleted int
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		n, err := r.DeleteAllByOwnerTx(tx, ownerID)
		deleted = n
		return err
	})
	if err != nil {
		return 0, models.Unavailable("delete owner bookings", err)
	}
	return deleted, nil
}

// DeleteAllByOwnerTx stages the deletion of the owner's bookings in tx. Any
// reads the caller needs must happen before this call.
func (r *FirestoreBookingRepo) DeleteAllByOwnerTx(tx *firestore.Transaction, ownerID string) (int, error) {
	docs, err := tx.Documents(r.coll.Where("userId", "==", ownerID)).GetAll()
	if err != nil {
		return 0, err
	}
	for _, doc := range docs {
		if err := tx.Delete(doc.Ref); err != nil {
			return 0, err
		}
	}
	return len(docs), nil
}

// Subscribe listens to query snapshots. Documents added after the first
// snapshot are reported in Added.
func (r *FirestoreBookingRepo) Subscribe(ctx context.Context, filter models.BookingFilter, onChange func(models.BookingSnapshot)) (Subscription, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	watchCtx, cancel := context.WithCancel(ctx)
	snapshots := r.query(filter).Snapshots(watchCtx)
	handle := newFeedHandle(cancel)

	go func() {
		defer snapshots.Stop()
		logger := utils.GetLogger()
		first := true
		for {
			snap, err := snapshots.Next()
			if err != nil {
				if watchCtx.Err() == nil && status.Code(err) != codes.Canceled {
					logger.Error("booking snapshot listener stopped", zap.Error(err))
				}
				return
			}
			docs, err := snap.Documents.GetAll()
			if err != nil {
				logger.Warn("failed to read booking snapshot", zap.Error(err))
				continue
			}
			bookings, err := decodeBookings(docs)
			if err != nil {
				logger.Warn("failed to decode booking snapshot", zap.Error(err))
				continue
			}
			var added []models.Booking
			if !first {
				for _, change := range snap.Changes {
					if change.Kind != firestore.DocumentAdded {
						continue
					}
					if b, err := decodeBooking(change.Doc); err == nil {
						added = append(added, *b)
					}
				}
			}
			first = false
			handle.deliver(onChange, models.BookingSnapshot{Bookings: bookings, Added: added})
		}
	}()
	return handle, nil
}

func decodeBooking(doc *firestore.DocumentSnapshot) (*models.Booking, error) {
	var b models.Booking
	if err := doc.DataTo(&b); err != nil {
		return nil, fmt.Errorf("failed to decode booking %s: %w", doc.Ref.ID, err)
	}
	b.ID = doc.Ref.ID
	return &b, nil
}

func decodeBookings(docs []*firestore.DocumentSnapshot) ([]models.Booking, error) {
	bookings := make([]models.Booking, 0, len(docs))
	for _, doc := range docs {
		b, err := decodeBooking(doc)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, nil
}
