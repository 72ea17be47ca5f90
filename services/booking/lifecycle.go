package booking

import (
	"fmt"
	"strings"
	"time"

	"ambulance/models"
)

// TransitionMode selects how strictly status changes are checked.
type TransitionMode string

const (
	// Permissive lets an admin move a booking to any recognized status.
	Permissive TransitionMode = "permissive"
	// Strict only allows the forward path plus cancellation.
	Strict TransitionMode = "strict"
)

// ParseTransitionMode reads a TRANSITION_MODE value. Empty means Permissive.
func ParseTransitionMode(s string) (TransitionMode, error) {
	switch TransitionMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", Permissive:
		return Permissive, nil
	case Strict:
		return Strict, nil
	default:
		return "", fmt.Errorf("unknown transition mode: %s", s)
	}
}

var allowedTransitions = map[models.BookingStatus]map[models.BookingStatus]bool{
	models.StatusBooked:     {models.StatusConfirmed: true, models.StatusCancelled: true},
	models.StatusConfirmed:  {models.StatusDispatched: true, models.StatusCancelled: true},
	models.StatusDispatched: {models.StatusCompleted: true, models.StatusCancelled: true},
	models.StatusCompleted:  {},
	models.StatusCancelled:  {},
}

// Transition is an accepted status change. At is stamped as updatedAt.
type Transition struct {
	From models.BookingStatus
	To   models.BookingStatus
	At   time.Time
}

// Lifecycle decides which status changes an actor may apply.
type Lifecycle struct {
	mode TransitionMode
	now  func() time.Time
}

// NewLifecycle returns a Lifecycle in the given mode. A nil clock uses
// time.Now in UTC.
func NewLifecycle(mode TransitionMode, now func() time.Time) *Lifecycle {
	if mode == "" {
		mode = Permissive
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Lifecycle{mode: mode, now: now}
}

// Mode reports the configured transition mode.
func (l *Lifecycle) Mode() TransitionMode { return l.mode }

// InitialState is the status every new booking starts in.
func (l *Lifecycle) InitialState() models.BookingStatus {
	return models.StatusBooked
}

// IsTerminal reports whether no further progress is expected from s.
func IsTerminal(s models.BookingStatus) bool {
	return s == models.StatusCompleted || s == models.StatusCancelled
}

// IsTerminal reports whether no further progress is expected from s.
func (l *Lifecycle) IsTerminal(s models.BookingStatus) bool {
	return IsTerminal(s)
}

// ApplyTransition validates a requested status change. The requested value is
// checked before the actor, so an unrecognized status reports
// ErrInvalidTransition even for non-admins.
func (l *Lifecycle) ApplyTransition(current, requested models.BookingStatus, actor models.Actor) (Transition, error) {
	if !requested.IsKnown() {
		return Transition{}, fmt.Errorf("%w: unknown status %q", models.ErrInvalidTransition, requested)
	}
	if !actor.IsAdmin() {
		return Transition{}, fmt.Errorf("%w: only admins can change booking status", models.ErrForbidden)
	}
	if l.mode == Strict && !canTransition(current, requested) {
		return Transition{}, fmt.Errorf("%w: %s to %s", models.ErrInvalidTransition, current, requested)
	}
	return Transition{From: current, To: requested, At: l.now()}, nil
}

// NextStates lists the statuses an admin may pick from current.
func (l *Lifecycle) NextStates(current models.BookingStatus) []models.BookingStatus {
	var next []models.BookingStatus
	for _, s := range models.AllStatuses {
		if l.mode == Permissive || canTransition(current, s) {
			next = append(next, s)
		}
	}
	return next
}

func canTransition(from, to models.BookingStatus) bool {
	if from == models.StatusPending {
		from = models.StatusBooked
	}
	if from == to {
		return true
	}
	m, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	return m[to]
}
