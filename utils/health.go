package utils

import (
	"context"
	"sync"
	"time"
)

// Pinger is any backing service that can report liveness.
type Pinger func(ctx context.Context) error

// HealthStatus represents current status of external services.
type HealthStatus struct {
	Services  map[string]bool `json:"services"`
	CheckedAt time.Time       `json:"checkedAt"`
}

// HealthMonitor keeps the latest health snapshot in memory.
type HealthMonitor struct {
	mu      sync.RWMutex
	current HealthStatus
	checks  map[string]Pinger
}

func NewHealthMonitor(checks map[string]Pinger) *HealthMonitor {
	return &HealthMonitor{checks: checks}
}

// Status returns latest stored health snapshot.
func (h *HealthMonitor) Status() HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Check pings every registered service once and stores the result.
func (h *HealthMonitor) Check(ctx context.Context) HealthStatus {
	results := make(map[string]bool, len(h.checks))
	for name, ping := range h.checks {
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		results[name] = ping(pctx) == nil
		cancel()
	}

	status := HealthStatus{Services: results, CheckedAt: time.Now()}
	h.mu.Lock()
	h.current = status
	h.mu.Unlock()
	return status
}

// Start performs periodic health checks until ctx is done.
func (h *HealthMonitor) Start(ctx context.Context, every time.Duration) {
	go func() {
		h.Check(ctx)
		ticker := time.NewTicker(every)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				h.Check(ctx)
			}
		}
	}()
}
