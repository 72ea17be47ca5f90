package memoryRepo

import (
	"sync"

	"ambulance/models"
)

// subscription coalesces pending deliveries: a newer listing replaces an
// undelivered one while the added bookings accumulate.
type subscription struct {
	filter   models.BookingFilter
	onChange func(models.BookingSnapshot)
	detach   func()

	mu      sync.Mutex
	pending *models.BookingSnapshot
	stopped bool

	wake chan struct{}
	quit chan struct{}
	once sync.Once
}

func newSubscription(filter models.BookingFilter, onChange func(models.BookingSnapshot), detach func()) *subscription {
	sub := &subscription{
		filter:   filter,
		onChange: onChange,
		detach:   detach,
		wake:     make(chan struct{}, 1),
		quit:     make(chan struct{}),
	}
	go sub.run()
	return sub
}

func (sub *subscription) push(snap models.BookingSnapshot) {
	sub.mu.Lock()
	if sub.stopped {
		sub.mu.Unlock()
		return
	}
	if sub.pending != nil {
		snap = models.MergeSnapshots(*sub.pending, snap)
	}
	sub.pending = &snap
	sub.mu.Unlock()

	select {
	case sub.wake <- struct{}{}:
	default:
	}
}

func (sub *subscription) run() {
	for {
		select {
		case <-sub.quit:
			return
		case <-sub.wake:
		}
		sub.mu.Lock()
		snap := sub.pending
		sub.pending = nil
		stopped := sub.stopped
		sub.mu.Unlock()
		if stopped {
			return
		}
		if snap != nil {
			sub.onChange(*snap)
		}
	}
}

// Cancel stops deliveries. A callback already running finishes.
func (sub *subscription) Cancel() {
	sub.once.Do(func() {
		sub.mu.Lock()
		sub.stopped = true
		sub.pending = nil
		sub.mu.Unlock()
		close(sub.quit)
		sub.detach()
	})
}
