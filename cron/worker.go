package cron

import (
	"context"
	"fmt"
	"time"

	"ambulance/config"
	"ambulance/models"
	"ambulance/services/booking"
	"ambulance/services/tasks"
	"ambulance/utils"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// RedisOpt is the asynq connection for the notification queue.
func RedisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}
}

// NotificationWorker processes queued booking notifications.
type NotificationWorker struct {
	srv    *asynq.Server
	mux    *asynq.ServeMux
	cancel context.CancelFunc
}

// NewNotificationWorker builds a worker that delivers through notifier.
func NewNotificationWorker(notifier booking.Notifier) *NotificationWorker {
	srv := asynq.NewServer(
		RedisOpt(),
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeNotifyNewBooking, HandleNewBookingTask(notifier))
	mux.HandleFunc(tasks.TypeNotifyStatusChange, HandleStatusChangeTask(notifier))

	return &NotificationWorker{srv: srv, mux: mux}
}

// Start runs the worker in the background, retrying start-up with backoff.
func (w *NotificationWorker) Start() {
	logger := utils.GetLogger()
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel

	go monitorRedisConnection(ctx)

	go func() {
		logger.Info("starting notification worker")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			err := w.srv.Start(w.mux)
			if err == nil {
				return
			}
			logger.Error("notification worker failed to start",
				zap.Int("attempt", attempts), zap.Int("maxAttempts", maxAttempts), zap.Error(err))
			if attempts == maxAttempts {
				logger.Error("notification worker gave up; queued notifications will wait")
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Duration(attempts*2) * time.Second):
			}
		}
	}()
}

// Shutdown stops the worker and the health monitor.
func (w *NotificationWorker) Shutdown() {
	if w.cancel != nil {
		w.cancel()
	}
	w.srv.Shutdown()
}

// HandleNewBookingTask delivers one queued new-booking notification. A
// delivery error makes asynq retry the task.
func HandleNewBookingTask(notifier booking.Notifier) asynq.HandlerFunc {
	return bookingTaskHandler(notifier.NotifyNewBooking)
}

// HandleStatusChangeTask delivers one queued status-change notification.
func HandleStatusChangeTask(notifier booking.Notifier) asynq.HandlerFunc {
	return bookingTaskHandler(notifier.NotifyStatusChange)
}

func bookingTaskHandler(deliver func(context.Context, models.Booking) error) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		logger := utils.GetLogger()
		b, err := tasks.ParseNewBookingTask(task)
		if err != nil {
			logger.Error("dropping notification task", zap.String("type", task.Type()), zap.Error(err))
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}

		logger.Info("delivering booking notification",
			zap.String("type", task.Type()), zap.String("bookingId", b.BookingCode))
		if err := deliver(ctx, b); err != nil {
			logger.Warn("booking notification failed",
				zap.String("type", task.Type()), zap.String("bookingId", b.BookingCode), zap.Error(err))
			return err
		}
		return nil
	}
}

// monitorRedisConnection pings the queue's Redis periodically to surface
// failures at runtime.
func monitorRedisConnection(ctx context.Context) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	})
	defer client.Close()

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := client.Ping(ctx).Err(); err != nil && ctx.Err() == nil {
				utils.GetLogger().Warn("queue redis connection lost", zap.Error(err))
			}
		}
	}
}
