package userRepo

import (
	"context"
	"errors"
	"time"

	"ambulance/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Create inserts a new user document.
func (r *MongoUserRepo) Create(ctx context.Context, user *models.User) error {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	withDefaults(user, r.now())
	if _, err := r.coll.InsertOne(ctx, user); err != nil {
		return models.Unavailable("create user", err)
	}
	return nil
}

// Promote flips the role only while it is not already admin, so an admin's
// promotedAt is never rewritten.
func (r *MongoUserRepo) Promote(ctx context.Context, id string, at time.Time) (*models.User, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"id": id, "role": bson.M{"$ne": models.RoleAdmin}}
	update := bson.M{"$set": bson.M{"role": models.RoleAdmin, "promotedAt": at}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var user models.User
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&user)
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.Unavailable("promote user", err)
	}

	existing, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.Role == models.RoleAdmin {
		return nil, models.ErrAlreadyAdmin
	}
	return nil, models.Unavailable("promote user", errors.New("role changed concurrently"))
}

// DeleteCascade removes the user's bookings and the user document in one
// session transaction.
func (r *MongoUserRepo) DeleteCascade(ctx context.Context, id string) (int, error) {
	client := r.coll.Database().Client()
	sess, err := client.StartSession()
	if err != nil {
		return 0, models.Unavailable("start session", err)
	}
	defer sess.EndSession(ctx)

	var deleted int
	txnFn := func(sc mongo.SessionContext) error {
		n, err := r.bookings.DeleteAllByOwner(sc, id)
		if err != nil {
			return err
		}
		res, err := r.coll.DeleteOne(sc, bson.M{"id": id})
		if err != nil {
			return err
		}
		if res.DeletedCount == 0 {
			return models.NotFound("user", id)
		}
		deleted = n
		return nil
	}

	if err := mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sc.StartTransaction(); err != nil {
			return err
		}
		if err := txnFn(sc); err != nil {
			_ = sc.AbortTransaction(sc)
			return err
		}
		return sc.CommitTransaction(sc)
	}); err != nil {
		return 0, models.Unavailable("delete user cascade", err)
	}
	return deleted, nil
}
