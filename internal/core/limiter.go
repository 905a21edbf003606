package core

// limiter.go bounds how many migration jobs execute at once.
//
// The processor takes a slot without blocking before it starts a worker; a
// job that finds no free slot stays running in the store and is picked up on
// a later scan. WaitForDrain lets shutdown wait for workers that are still
// importing rows.

import (
	"context"
	"sync"
	"time"
)

// DefaultMaxWorkers is used when a non-positive limit is configured.
const DefaultMaxWorkers = 8

// WorkerLimiter is a counting semaphore over job workers.
type WorkerLimiter struct {
	slots chan struct{}

	mu     sync.RWMutex
	active int
}

// NewWorkerLimiter allows at most maxWorkers concurrent jobs.
func NewWorkerLimiter(maxWorkers int) *WorkerLimiter {
	if maxWorkers <= 0 {
		maxWorkers = DefaultMaxWorkers
	}
	return &WorkerLimiter{slots: make(chan struct{}, maxWorkers)}
}

// TryAcquire takes a slot if one is free.
func (l *WorkerLimiter) TryAcquire() bool {
	select {
	case l.slots <- struct{}{}:
		l.inc(1)
		return true
	default:
		return false
	}
}

// Release returns a slot taken by TryAcquire.
func (l *WorkerLimiter) Release() {
	l.inc(-1)
	<-l.slots
}

func (l *WorkerLimiter) inc(d int) {
	l.mu.Lock()
	l.active += d
	l.mu.Unlock()
}

// ActiveCount returns the number of jobs currently holding a slot.
func (l *WorkerLimiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// MaxWorkers returns the slot count.
func (l *WorkerLimiter) MaxWorkers() int {
	return cap(l.slots)
}

// WaitForDrain blocks until no slot is held or ctx is done.
func (l *WorkerLimiter) WaitForDrain(ctx context.Context) error {
	if l.ActiveCount() == 0 {
		return nil
	}
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if l.ActiveCount() == 0 {
				return nil
			}
		}
	}
}

// LimiterStatus is a snapshot for the processor status endpoint.
type LimiterStatus struct {
	Active     int `json:"active"`
	Available  int `json:"available"`
	MaxWorkers int `json:"max_workers"`
}

func (l *WorkerLimiter) Status() LimiterStatus {
	return LimiterStatus{
		Active:     l.ActiveCount(),
		Available:  cap(l.slots) - len(l.slots),
		MaxWorkers: cap(l.slots),
	}
}
