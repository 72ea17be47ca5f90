package userRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ambulance/models"
	"ambulance/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// emailCollation matches e-mail addresses case-insensitively.
var emailCollation = &options.Collation{Locale: "en", Strength: 2}

// MongoUserRepo implements UserRepository using MongoDB.
type MongoUserRepo struct {
	coll     *mongo.Collection
	bookings OwnedBookings
	now      func() time.Time
}

// NewMongoUserRepo creates a new instance of UserRepository using MongoDB.
// Cascade deletes remove bookings through the given booking store inside the
// same session transaction.
func NewMongoUserRepo(db *mongo.Database, bookings OwnedBookings) *MongoUserRepo {
	repo := &MongoUserRepo{
		coll:     db.Collection("users"),
		bookings: bookings,
		now:      func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
	if err := repo.ensureIndexes(); err != nil {
		utils.GetLogger().Error("failed to create user indexes", zap.Error(err))
	}
	return repo
}

// ensureIndexes creates indexes for fields frequently used in queries.
func (r *MongoUserRepo) ensureIndexes() error {
	ctx, cancel := newContext(nil, 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetName("email_ci").SetCollation(emailCollation)},
		{Keys: bson.D{{Key: "role", Value: 1}, {Key: "createdAt", Value: -1}}},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (r *MongoUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"id": id}, "user", id)
}

func (r *MongoUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email}, "user with email", email,
		options.FindOne().SetCollation(emailCollation))
}

func (r *MongoUserRepo) findOne(ctx context.Context, filter bson.M, what, key string, opts ...*options.FindOneOptions) (*models.User, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	var user models.User
	if err := r.coll.FindOne(ctx, filter, opts...).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.NotFound(what, key)
		}
		return nil, models.Unavailable("fetch user", err)
	}
	return &user, nil
}

func (r *MongoUserRepo) GetAll(ctx context.Context) ([]models.User, error) {
	return r.list(ctx, bson.M{})
}

func (r *MongoUserRepo) GetAdmins(ctx context.Context) ([]models.User, error) {
	return r.list(ctx, bson.M{"role": models.RoleAdmin})
}

func (r *MongoUserRepo) list(ctx context.Context, filter bson.M) ([]models.User, error) {
	ctx, cancel := newContext(ctx, 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, models.Unavailable("list users", err)
	}
	defer cursor.Close(ctx)

	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, models.Unavailable("decode users", err)
	}
	return users, nil
}
