package database

import (
	"context"
	"database/sql"
	"sync"
	"time"
)

// HealthStatus is the outcome of one connectivity check
type HealthStatus struct {
	Healthy   bool          `json:"healthy"`
	Latency   time.Duration `json:"latency"`
	CheckedAt time.Time     `json:"checked_at"`
	Error     string        `json:"error,omitempty"`
}

// HealthChecker pings the database on demand and remembers the last result
type HealthChecker struct {
	db      *sql.DB
	timeout time.Duration

	mu   sync.RWMutex
	last HealthStatus
}

// NewHealthChecker creates a checker whose pings give up after timeout
func NewHealthChecker(db *sql.DB, timeout time.Duration) *HealthChecker {
	return &HealthChecker{
		db:      db,
		timeout: timeout,
	}
}

// Check pings the database and records the result
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	pingCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	err := h.db.PingContext(pingCtx)

	status := HealthStatus{
		Healthy:   err == nil,
		Latency:   time.Since(start),
		CheckedAt: start.UTC(),
	}
	if err != nil {
		status.Error = err.Error()
	}

	h.mu.Lock()
	h.last = status
	h.mu.Unlock()

	return status
}

// Last returns the most recent result, zero if Check never ran
func (h *HealthChecker) Last() HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.last
}

// IsHealthy reports the outcome of the most recent check
func (h *HealthChecker) IsHealthy() bool {
	return h.Last().Healthy
}
