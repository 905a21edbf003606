package core

// processor.go runs the background loop that picks up migration jobs.
//
// Every PollInterval the loop lists jobs that are running in the store but
// have no worker in this process, admits each through the JobRegistry, takes
// a slot from the WorkerLimiter and starts a goroutine for it. Notify wakes
// the loop early after a job is created or started. Stopping the loop does
// not interrupt workers; Drain waits for them.

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/JonMunkholm/migrator/internal/logging"
)

// DefaultPollInterval is the scan period used when none is configured.
const DefaultPollInterval = 2 * time.Second

// ErrStopTimeout is returned by Stop when the loop does not exit in time.
var ErrStopTimeout = errors.New("migration processor did not stop in time")

// JobRunner executes a single job to completion.
type JobRunner interface {
	Run(ctx context.Context, jobID int64) error
}

// Processor owns the scan loop and its workers.
type Processor struct {
	store    JobStore
	runner   JobRunner
	registry *JobRegistry
	limiter  *WorkerLimiter
	interval time.Duration

	wake chan struct{}

	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	done     chan struct{}
	lastScan time.Time
}

func NewProcessor(store JobStore, runner JobRunner, registry *JobRegistry, limiter *WorkerLimiter, interval time.Duration) *Processor {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Processor{
		store:    store,
		runner:   runner,
		registry: registry,
		limiter:  limiter,
		interval: interval,
		wake:     make(chan struct{}, 1),
	}
}

// Start launches the scan loop and reports whether it did. Calling Start
// while the loop runs is a no-op. Workers inherit ctx's values but not its
// cancellation.
func (p *Processor) Start(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return false
	}
	loopCtx, cancel := context.WithCancel(ctx)
	p.running = true
	p.cancel = cancel
	p.done = make(chan struct{})

	go p.loop(loopCtx, context.WithoutCancel(ctx), p.done)
	return true
}

// Stop signals the loop and waits up to timeout for it to exit.
// In-flight workers keep running.
func (p *Processor) Stop(timeout time.Duration) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	cancel()
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return ErrStopTimeout
	}
}

// Drain waits until no worker holds a slot or ctx is done.
func (p *Processor) Drain(ctx context.Context) error {
	return p.limiter.WaitForDrain(ctx)
}

// Notify asks the loop to scan now instead of at the next tick.
func (p *Processor) Notify() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Running reports whether the scan loop is active.
func (p *Processor) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Processor) loop(ctx, workerCtx context.Context, done chan struct{}) {
	defer close(done)

	slog.Info("migration processor started", "interval", p.interval, "max_workers", p.limiter.MaxWorkers())
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.scan(ctx, workerCtx)
	for {
		select {
		case <-ctx.Done():
			slog.Info("migration processor stopped", "in_flight", p.registry.Len())
			return
		case <-ticker.C:
			p.scan(ctx, workerCtx)
		case <-p.wake:
			p.scan(ctx, workerCtx)
		}
	}
}

// scan runs one cycle. Errors are logged and the loop carries on.
func (p *Processor) scan(ctx, workerCtx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("migration scan panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()

	jobs, err := p.store.ListRunnable(ctx, p.registry.InFlight())
	if err != nil {
		if ctx.Err() == nil {
			slog.Error("list running migrations failed", "error", err)
		}
		return
	}

	dispatched := 0
	for _, job := range jobs {
		if p.dispatch(workerCtx, job) {
			dispatched++
		}
	}

	p.mu.Lock()
	p.lastScan = time.Now()
	p.mu.Unlock()

	if dispatched > 0 {
		slog.Debug("migration scan dispatched jobs", "found", len(jobs), "dispatched", dispatched)
	}
}

// dispatch starts a worker for job unless one already owns it or no slot
// is free. A job left behind is picked up by a later scan.
func (p *Processor) dispatch(ctx context.Context, job Job) bool {
	if !p.registry.TryAcquire(job.ID) {
		return false
	}
	if !p.limiter.TryAcquire() {
		p.registry.Release(job.ID)
		slog.Debug("no free migration worker, deferring", "job_id", job.ID)
		return false
	}

	go func() {
		defer p.limiter.Release()
		defer p.registry.Release(job.ID)

		logger := logging.ForJob(ctx, job.ID)
		defer func() {
			if r := recover(); r != nil {
				logger.Error("migration worker panicked", "panic", r, "stack", string(debug.Stack()))
			}
		}()

		logger.Info("migration dispatched", "name", job.Name, "kind", job.Kind, "file", job.FileName)
		start := time.Now()
		if err := p.runner.Run(ctx, job.ID); err != nil {
			logger.Error("migration worker failed", "error", err)
			return
		}
		logger.Info("migration worker finished", "duration_ms", time.Since(start).Milliseconds())
	}()
	return true
}

// ProcessorStatus is a snapshot of the processor for monitoring.
type ProcessorStatus struct {
	Running      bool          `json:"running"`
	PollInterval string        `json:"poll_interval"`
	InFlight     []int64       `json:"in_flight"`
	Workers      LimiterStatus `json:"workers"`
	LastScan     *time.Time    `json:"last_scan,omitempty"`
}

func (p *Processor) Status() ProcessorStatus {
	p.mu.Lock()
	st := ProcessorStatus{Running: p.running, PollInterval: p.interval.String()}
	if !p.lastScan.IsZero() {
		t := p.lastScan
		st.LastScan = &t
	}
	p.mu.Unlock()

	st.InFlight = p.registry.InFlight()
	st.Workers = p.limiter.Status()
	return st
}
