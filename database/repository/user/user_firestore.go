package userRepo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ambulance/models"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// TxBookings stages booking deletions inside a Firestore transaction.
type TxBookings interface {
	DeleteAllByOwnerTx(tx *firestore.Transaction, ownerID string) (int, error)
}

// FirestoreUserRepo implements UserRepository on Cloud Firestore, keyed by the
// identity-provider id.
type FirestoreUserRepo struct {
	client   *firestore.Client
	coll     *firestore.CollectionRef
	bookings TxBookings
	now      func() time.Time
}

// NewFirestoreUserRepo creates a UserRepository backed by the users collection.
func NewFirestoreUserRepo(client *firestore.Client, bookings TxBookings) *FirestoreUserRepo {
	return &FirestoreUserRepo{
		client:   client,
		coll:     client.Collection("users"),
		bookings: bookings,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (r *FirestoreUserRepo) Create(ctx context.Context, user *models.User) error {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	withDefaults(user, r.now())
	if _, err := r.coll.Doc(user.ID).Create(ctx, user); err != nil {
		return models.Unavailable("create user", err)
	}
	return nil
}

func (r *FirestoreUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	doc, err := r.coll.Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, models.NotFound("user", id)
		}
		return nil, models.Unavailable("fetch user", err)
	}
	return decodeUser(doc)
}

func (r *FirestoreUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	iter := r.coll.Where("email", "==", email).Limit(1).Documents(ctx)
	defer iter.Stop()
	doc, err := iter.Next()
	if err == nil {
		return decodeUser(doc)
	}
	if !errors.Is(err, iterator.Done) {
		return nil, models.Unavailable("fetch user", err)
	}

	// Firestore has no case-insensitive equality; profiles written by the
	// web client keep the address as typed.
	all := r.coll.Documents(ctx)
	defer all.Stop()
	for {
		doc, err := all.Next()
		if errors.Is(err, iterator.Done) {
			return nil, models.NotFound("user with email", email)
		}
		if err != nil {
			return nil, models.Unavailable("fetch user", err)
		}
		if stored, _ := doc.Data()["email"].(string); strings.EqualFold(stored, email) {
			return decodeUser(doc)
		}
	}
}

func (r *FirestoreUserRepo) GetAll(ctx context.Context) ([]models.User, error) {
	return r.list(ctx, r.coll.OrderBy("createdAt", firestore.Desc))
}

func (r *FirestoreUserRepo) GetAdmins(ctx context.Context) ([]models.User, error) {
	return r.list(ctx, r.coll.Where("role", "==", string(models.RoleAdmin)).OrderBy("createdAt", firestore.Desc))
}

func (r *FirestoreUserRepo) list(ctx context.Context, q firestore.Query) ([]models.User, error) {
	ctx, cancel := newContext(ctx, 10*time.Second)
	defer cancel()

	docs, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, models.Unavailable("list users", err)
	}
	users := make([]models.User, 0, len(docs))
	for _, doc := range docs {
		u, err := decodeUser(doc)
		if err != nil {
			return nil, models.Unavailable("decode users", err)
		}
		users = append(users, *u)
	}
	return users, nil
}

func (r *FirestoreUserRepo) Promote(ctx context.Context, id string, at time.Time) (*models.User, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	var promoted *models.User
	ref := r.coll.Doc(id)
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return models.NotFound("user", id)
			}
			return err
		}
		user, err := decodeUser(doc)
		if err != nil {
			return err
		}
		if user.Role == models.RoleAdmin {
			return models.ErrAlreadyAdmin
		}
		user.Role = models.RoleAdmin
		user.PromotedAt = &at
		promoted = user
		return tx.Update(ref, []firestore.Update{
			{Path: "role", Value: string(models.RoleAdmin)},
			{Path: "promotedAt", Value: at},
		})
	})
	if err != nil {
		return nil, models.Unavailable("promote user", err)
	}
	return promoted, nil
}

// DeleteCascade deletes the user's bookings and the user document in one
// transaction.
func (r *FirestoreUserRepo) DeleteCascade(ctx context.Context, id string) (int, error) {
	ctx, cancel := newContext(ctx, 10*time.Second)
	defer cancel()

	var deleted int
	ref := r.coll.Doc(id)
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(ref); err != nil {
			if status.Code(err) == codes.NotFound {
				return models.NotFound("user", id)
			}
			return err
		}
		n, err := r.bookings.DeleteAllByOwnerTx(tx, id)
		if err != nil {
			return err
		}
		deleted = n
		return tx.Delete(ref)
	})
	if err != nil {
		return 0, models.Unavailable("delete user cascade", err)
	}
	return deleted, nil
}

func decodeUser(doc *firestore.DocumentSnapshot) (*models.User, error) {
	var u models.User
	if err := doc.DataTo(&u); err != nil {
		return nil, fmt.Errorf("failed to decode user %s: %w", doc.Ref.ID, err)
	}
	u.ID = doc.Ref.ID
	return &u, nil
}
