package feed

import (
	"sync"
)

// Subscription is a cancellable live feed.
type Subscription interface {
	Cancel()
}

// View names a logical live listing a session can hold open.
type View string

const (
	ViewAllBookings View = "bookings:all"
	ViewMyBookings  View = "bookings:mine"
)

type key struct {
	session string
	view    View
}

// Registry enforces one live subscription per (session, view). Opening a view
// again cancels the previous subscription before the new one starts.
type Registry struct {
	mu     sync.Mutex
	leases map[key]*Lease
}

func NewRegistry() *Registry {
	return &Registry{leases: make(map[key]*Lease)}
}

// Lease is the registry's hold on one open subscription.
type Lease struct {
	registry *Registry
	key      key
	sub      Subscription
	done     chan struct{}
	once     sync.Once
}

// Done is closed once the lease ends, whether released, replaced or closed
// with its session.
func (l *Lease) Done() <-chan struct{} { return l.done }

// Release cancels the subscription and forgets it if it is still current.
func (l *Lease) Release() {
	l.registry.mu.Lock()
	if l.registry.leases[l.key] == l {
		delete(l.registry.leases, l.key)
	}
	l.registry.mu.Unlock()
	l.end()
}

func (l *Lease) end() {
	l.once.Do(func() {
		l.sub.Cancel()
		close(l.done)
	})
}

// Open cancels any subscription the session holds for view, then calls open
// and records the result.
func (r *Registry) Open(sessionID string, view View, open func() (Subscription, error)) (*Lease, error) {
	k := key{session: sessionID, view: view}

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.leases[k]; ok {
		delete(r.leases, k)
		prev.end()
	}
	sub, err := open()
	if err != nil {
		return nil, err
	}
	lease := &Lease{registry: r, key: k, sub: sub, done: make(chan struct{})}
	r.leases[k] = lease
	return lease, nil
}

// CloseSession cancels every view the session holds.
func (r *Registry) CloseSession(sessionID string) {
	r.mu.Lock()
	var ended []*Lease
	for k, lease := range r.leases {
		if k.session == sessionID {
			delete(r.leases, k)
			ended = append(ended, lease)
		}
	}
	r.mu.Unlock()

	for _, lease := range ended {
		lease.end()
	}
}

// Active reports how many views the session holds open.
func (r *Registry) Active(sessionID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for k := range r.leases {
		if k.session == sessionID {
			n++
		}
	}
	return n
}
