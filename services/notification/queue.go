package notification

import (
	"context"
	"errors"
	"fmt"

	"ambulance/models"
	"ambulance/services/booking"
	"ambulance/services/tasks"
	"ambulance/utils"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Enqueuer is the part of *asynq.Client the queue notifier needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueNotifier hands booking notifications to the worker.
type QueueNotifier struct {
	client Enqueuer
}

var _ booking.Notifier = (*QueueNotifier)(nil)

func NewQueueNotifier(client Enqueuer) *QueueNotifier {
	return &QueueNotifier{client: client}
}

func (q *QueueNotifier) NotifyNewBooking(ctx context.Context, b models.Booking) error {
	task, opts, err := tasks.NewBookingTask(b)
	if err != nil {
		return err
	}
	return q.enqueue(ctx, b, task, opts)
}

func (q *QueueNotifier) NotifyStatusChange(ctx context.Context, b models.Booking) error {
	task, opts, err := tasks.StatusChangeTask(b)
	if err != nil {
		return err
	}
	return q.enqueue(ctx, b, task, opts)
}

func (q *QueueNotifier) enqueue(ctx context.Context, b models.Booking, task *asynq.Task, opts []asynq.Option) error {
	info, err := q.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return nil
		}
		return fmt.Errorf("enqueue %s: %w", task.Type(), err)
	}
	utils.GetLogger().Debug("notification queued",
		zap.String("bookingId", b.BookingCode), zap.String("type", task.Type()), zap.String("taskId", info.ID))
	return nil
}
