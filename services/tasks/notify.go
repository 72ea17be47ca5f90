package tasks

import (
	"encoding/json"
	"fmt"

	"ambulance/models"

	"github.com/hibiken/asynq"
)

const (
	TypeNotifyNewBooking   = "booking:notify"
	TypeNotifyStatusChange = "booking:status"
)

// NewBookingPayload carries the booking a notification task reports on.
type NewBookingPayload struct {
	Booking models.Booking `json:"booking"`
}

// NewBookingTask builds the task that alerts admins about a booking.
func NewBookingTask(b models.Booking) (*asynq.Task, []asynq.Option, error) {
	payload, err := json.Marshal(NewBookingPayload{Booking: b})
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeNotifyNewBooking, payload)
	opts := []asynq.Option{asynq.MaxRetry(5), asynq.TaskID("notify:" + b.BookingCode)}

	return task, opts, nil
}

// StatusChangeTask builds the task that mails the requester a status change.
// The task id covers the booking, the status and the change time, so one
// change is queued once.
func StatusChangeTask(b models.Booking) (*asynq.Task, []asynq.Option, error) {
	payload, err := json.Marshal(NewBookingPayload{Booking: b})
	if err != nil {
		return nil, nil, err
	}
	var changedAt int64
	if b.UpdatedAt != nil {
		changedAt = b.UpdatedAt.UnixMilli()
	}
	task := asynq.NewTask(TypeNotifyStatusChange, payload)
	opts := []asynq.Option{
		asynq.MaxRetry(5),
		asynq.TaskID(fmt.Sprintf("status:%s:%s:%d", b.ID, b.Status, changedAt)),
	}

	return task, opts, nil
}

// ParseNewBookingTask decodes a task built by NewBookingTask or
// StatusChangeTask.
func ParseNewBookingTask(task *asynq.Task) (models.Booking, error) {
	var p NewBookingPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return models.Booking{}, fmt.Errorf("invalid %s payload: %w", task.Type(), err)
	}
	return p.Booking, nil
}
