package bookingRepo

import (
	"context"
	"errors"

	"ambulance/models"
	"ambulance/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// changeEvent is the subset of a change stream document the feed reads.
type changeEvent struct {
	OperationType string          `bson:"operationType"`
	FullDocument  *models.Booking `bson:"fullDocument"`
}

// Subscribe opens a change stream on the bookings collection and re-reads the
// filtered listing after each change. The first delivery is the listing at
// subscription time with nothing marked as added.
func (r *MongoBookingRepo) Subscribe(ctx context.Context, filter models.BookingFilter, onChange func(models.BookingSnapshot)) (Subscription, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"operationType": bson.M{"$in": bson.A{"insert", "update", "replace", "delete"}}}}},
	}
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)

	watchCtx, cancel := context.WithCancel(ctx)
	stream, err := r.coll.Watch(watchCtx, pipeline, opts)
	if err != nil {
		cancel()
		return nil, models.Unavailable("watch bookings", err)
	}

	initial, err := r.snapshot(watchCtx, filter)
	if err != nil {
		cancel()
		_ = stream.Close(context.Background())
		return nil, err
	}

	handle := newFeedHandle(cancel)
	go func() {
		defer stream.Close(context.Background())
		logger := utils.GetLogger()

		handle.deliver(onChange, models.BookingSnapshot{Bookings: initial})
		for stream.Next(watchCtx) {
			var event changeEvent
			if err := stream.Decode(&event); err != nil {
				logger.Warn("failed to decode booking change", zap.Error(err))
				continue
			}
			var added []models.Booking
			if event.OperationType == "insert" && event.FullDocument != nil && filter.Matches(*event.FullDocument) {
				added = append(added, *event.FullDocument)
			} else if event.FullDocument != nil && !filter.Matches(*event.FullDocument) {
				continue
			}

			bookings, err := r.snapshot(watchCtx, filter)
			if err != nil {
				if watchCtx.Err() == nil {
					logger.Error("failed to refresh booking feed", zap.Error(err))
				}
				continue
			}
			handle.deliver(onChange, models.BookingSnapshot{Bookings: bookings, Added: added})
		}
		if err := stream.Err(); err != nil && !errors.Is(err, context.Canceled) && watchCtx.Err() == nil {
			logger.Error("booking change stream stopped", zap.Error(err))
		}
	}()
	return handle, nil
}

func (r *MongoBookingRepo) snapshot(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error) {
	if filter.RequesterID != "" {
		return r.ListByOwner(ctx, filter.RequesterID)
	}
	return r.ListAll(ctx)
}
