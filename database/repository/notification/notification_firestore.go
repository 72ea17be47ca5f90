package notificationRepo

import (
	"context"
	"time"

	"ambulance/models"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type FirestoreNotificationRepo struct {
	coll *firestore.CollectionRef
}

func NewFirestoreNotificationRepo(client *firestore.Client) *FirestoreNotificationRepo {
	return &FirestoreNotificationRepo{coll: client.Collection("notifications")}
}

func (r *FirestoreNotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	ref := r.coll.NewDoc()
	if n.ID != "" {
		ref = r.coll.Doc(n.ID)
	}
	n.ID = ref.ID
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if n.Delivered == nil {
		n.Delivered = []string{}
	}
	_, err := ref.Create(ctx, n)
	if err == nil {
		return nil
	}
	if status.Code(err) != codes.AlreadyExists {
		return models.Unavailable("create notification", err)
	}

	doc, err := ref.Get(ctx)
	if err != nil {
		return models.Unavailable("load notification", err)
	}
	var stored models.Notification
	if err := doc.DataTo(&stored); err != nil {
		return models.Unavailable("decode notification", err)
	}
	stored.ID = ref.ID
	*n = stored
	return nil
}

func (r *FirestoreNotificationRepo) List(ctx context.Context, limit int) ([]models.Notification, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	q := r.coll.OrderBy("createdAt", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}
	docs, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, models.Unavailable("list notifications", err)
	}
	notifications := make([]models.Notification, 0, len(docs))
	for _, doc := range docs {
		var n models.Notification
		if err := doc.DataTo(&n); err != nil {
			return nil, models.Unavailable("decode notifications", err)
		}
		n.ID = doc.Ref.ID
		notifications = append(notifications, n)
	}
	return notifications, nil
}

func (r *FirestoreNotificationRepo) MarkRead(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := r.coll.Doc(id).Update(ctx, []firestore.Update{{Path: "read", Value: true}}); err != nil {
		if status.Code(err) == codes.NotFound {
			return models.NotFound("notification", id)
		}
		return models.Unavailable("mark notification read", err)
	}
	return nil
}

func (r *FirestoreNotificationRepo) MarkDelivered(ctx context.Context, id, channel string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	update := []firestore.Update{{Path: "delivered", Value: firestore.ArrayUnion(channel)}}
	if _, err := r.coll.Doc(id).Update(ctx, update); err != nil {
		if status.Code(err) == codes.NotFound {
			return models.NotFound("notification", id)
		}
		return models.Unavailable("mark notification delivered", err)
	}
	return nil
}
