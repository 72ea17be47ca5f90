package notificationRepo

import (
	"context"
	"fmt"
	"time"

	"ambulance/models"
	"ambulance/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// NotificationRepository stores the admin notification inbox.
type NotificationRepository interface {
	// Create stores n. When n.ID is set and already taken, the stored entry
	// is kept and copied into n.
	Create(ctx context.Context, n *models.Notification) error
	// List returns up to limit notifications, newest first. A non-positive
	// limit returns all of them.
	List(ctx context.Context, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id string) error
	// MarkDelivered records a successful delivery channel on an entry.
	MarkDelivered(ctx context.Context, id, channel string) error
}

type MongoNotificationRepo struct {
	coll *mongo.Collection
}

func NewMongoNotificationRepo(db *mongo.Database) *MongoNotificationRepo {
	repo := &MongoNotificationRepo{
		coll: db.Collection("notifications"),
	}
	if err := repo.ensureIndexes(); err != nil {
		utils.GetLogger().Error("failed to create notification indexes", zap.Error(err))
	}
	return repo
}

func (r *MongoNotificationRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (r *MongoNotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if n.Delivered == nil {
		n.Delivered = []string{}
	}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"id": n.ID}, bson.M{"$setOnInsert": n}, opts).Decode(n)
	if err != nil {
		return models.Unavailable("create notification", err)
	}
	return nil
}

func (r *MongoNotificationRepo) List(ctx context.Context, limit int) ([]models.Notification, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, models.Unavailable("list notifications", err)
	}
	defer cursor.Close(ctx)

	notifications := []models.Notification{}
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, models.Unavailable("decode notifications", err)
	}
	return notifications, nil
}

func (r *MongoNotificationRepo) MarkRead(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return models.Unavailable("mark notification read", err)
	}
	if res.MatchedCount == 0 {
		return models.NotFound("notification", id)
	}
	return nil
}

func (r *MongoNotificationRepo) MarkDelivered(ctx context.Context, id, channel string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$addToSet": bson.M{"delivered": channel}})
	if err != nil {
		return models.Unavailable("mark notification delivered", err)
	}
	if res.MatchedCount == 0 {
		return models.NotFound("notification", id)
	}
	return nil
}
