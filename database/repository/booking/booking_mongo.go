package bookingRepo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ambulance/models"
	"ambulance/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// MongoBookingRepo implements BookingRepository using MongoDB.
type MongoBookingRepo struct {
	coll *mongo.Collection
	now  func() time.Time
}

// NewMongoBookingRepo creates a new instance of BookingRepository using MongoDB.
func NewMongoBookingRepo(db *mongo.Database) *MongoBookingRepo {
	repo := &MongoBookingRepo{
		coll: db.Collection("bookings"),
		now:  func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
	if err := repo.ensureIndexes(); err != nil {
		utils.GetLogger().Error("failed to create booking indexes", zap.Error(err))
	}
	return repo
}

// ensureIndexes creates indexes for fields frequently used in queries.
func (r *MongoBookingRepo) ensureIndexes() error {
	ctx, cancel := newContext(nil, 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "bookingId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (r *MongoBookingRepo) Create(ctx context.Context, b *models.Booking) error {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		prepare(b, uuid.New().String(), r.now())
		_, err := r.coll.InsertOne(ctx, b)
		if err == nil {
			return nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return models.Unavailable("create booking", err)
		}
	}
	return models.Unavailable("create booking", fmt.Errorf("booking code still colliding after %d attempts", maxCodeAttempts))
}

func (r *MongoBookingRepo) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	return r.findOne(ctx, bson.M{"id": id}, "booking", id)
}

func (r *MongoBookingRepo) GetByCode(ctx context.Context, code string) (*models.Booking, error) {
	return r.findOne(ctx, bson.M{"bookingId": code}, "booking code", code)
}

func (r *MongoBookingRepo) findOne(ctx context.Context, filter bson.M, what, key string) (*models.Booking, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	var booking models.Booking
	if err := r.coll.FindOne(ctx, filter).Decode(&booking); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.NotFound(what, key)
		}
		return nil, models.Unavailable("fetch booking", err)
	}
	return &booking, nil
}

func (r *MongoBookingRepo) ListAll(ctx context.Context) ([]models.Booking, error) {
	return r.list(ctx, bson.M{})
}

func (r *MongoBookingRepo) ListByOwner(ctx context.Context, ownerID string) ([]models.Booking, error) {
	return r.list(ctx, bson.M{"userId": ownerID})
}

func (r *MongoBookingRepo) list(ctx context.Context, filter bson.M) ([]models.Booking, error) {
	ctx, cancel := newContext(ctx, 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, models.Unavailable("list bookings", err)
	}
	defer cursor.Close(ctx)

	bookings := []models.Booking{}
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, models.Unavailable("decode bookings", err)
	}
	return bookings, nil
}

func (r *MongoBookingRepo) UpdateStatus(ctx context.Context, id string, update models.StatusUpdate) error {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	set := bson.M{"status": update.Status, "updatedAt": update.At}
	if notes := strings.TrimSpace(update.Notes); notes != "" {
		set["additionalNotes"] = notes
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": set})
	if err != nil {
		return models.Unavailable("update booking status", err)
	}
	if res.MatchedCount == 0 {
		return models.NotFound("booking", id)
	}
	return nil
}

func (r *MongoBookingRepo) DeleteAllByOwner(ctx context.Context, ownerID string) (int, error) {
	ctx, cancel := newContext(ctx, 10*time.Second)
	defer cancel()

	res, err := r.coll.DeleteMany(ctx, bson.M{"userId": ownerID})
	if err != nil {
		return 0, models.Unavailable("delete owner bookings", err)
	}
	return int(res.DeletedCount), nil
}
