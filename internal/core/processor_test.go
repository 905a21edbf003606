package core_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/JonMunkholm/migrator/internal/core"
	"github.com/JonMunkholm/migrator/internal/core/memstore"
)

// stubRunner records each run and finishes the job once release is closed.
type stubRunner struct {
	store   *memstore.Store
	release chan struct{}

	mu   sync.Mutex
	runs map[int64]int
}

func newStubRunner(store *memstore.Store) *stubRunner {
	r := &stubRunner{store: store, release: make(chan struct{}), runs: map[int64]int{}}
	return r
}

func (r *stubRunner) Run(ctx context.Context, id int64) error {
	r.mu.Lock()
	r.runs[id]++
	r.mu.Unlock()

	<-r.release
	return r.store.FinishJob(ctx, id, core.Outcome{Status: core.StatusCompleted})
}

func (r *stubRunner) count(id int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs[id]
}

func (r *stubRunner) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.runs {
		n += c
	}
	return n
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func newTestProcessor(store *memstore.Store, runner core.JobRunner, workers int, interval time.Duration) *core.Processor {
	return core.NewProcessor(store, runner, core.NewJobRegistry(), core.NewWorkerLimiter(workers), interval)
}

func TestProcessor_StartStop(t *testing.T) {
	store := memstore.New()
	p := newTestProcessor(store, newStubRunner(store), 2, time.Hour)

	if !p.Start(context.Background()) {
		t.Fatal("first Start should launch the loop")
	}
	if p.Start(context.Background()) {
		t.Error("second Start should be a no-op")
	}
	if !p.Running() {
		t.Error("Running = false after Start")
	}

	if err := p.Stop(time.Second); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if p.Running() {
		t.Error("Running = true after Stop")
	}
	if err := p.Stop(time.Second); err != nil {
		t.Errorf("Stop on a stopped processor: %v", err)
	}
	if !p.Start(context.Background()) {
		t.Error("Start after Stop should relaunch")
	}
	p.Stop(time.Second)
}

func TestProcessor_ScansOnStart(t *testing.T) {
	store := memstore.New()
	runner := newStubRunner(store)
	close(runner.release)
	job, _ := store.CreateJob(context.Background(), core.NewJob{Name: "a", Kind: core.KindGeneric})

	p := newTestProcessor(store, runner, 2, time.Hour)
	p.Start(context.Background())
	defer p.Stop(time.Second)

	waitFor(t, "job completed", func() bool {
		j, _ := store.GetJob(context.Background(), job.ID)
		return j.Status == core.StatusCompleted
	})
	if err := p.Drain(context.Background()); err != nil {
		t.Fatal(err)
	}
	if n := runner.count(job.ID); n != 1 {
		t.Errorf("job ran %d times, want 1", n)
	}
}

func TestProcessor_NotifyAndSingleOwnership(t *testing.T) {
	store := memstore.New()
	runner := newStubRunner(store)

	p := newTestProcessor(store, runner, 4, time.Hour)
	p.Start(context.Background())
	defer p.Stop(time.Second)

	job, _ := store.CreateJob(context.Background(), core.NewJob{Name: "late", Kind: core.KindGeneric})
	p.Notify()
	waitFor(t, "job dispatched", func() bool { return runner.count(job.ID) == 1 })

	// The job is still running in the store; further scans must not start
	// a second worker for it.
	for i := 0; i < 5; i++ {
		p.Notify()
		time.Sleep(10 * time.Millisecond)
	}
	if st := p.Status(); len(st.InFlight) != 1 || st.InFlight[0] != job.ID {
		t.Errorf("InFlight = %v, want [%d]", st.InFlight, job.ID)
	}

	close(runner.release)
	waitFor(t, "worker released", func() bool { return len(p.Status().InFlight) == 0 })
	if n := runner.count(job.ID); n != 1 {
		t.Errorf("job ran %d times, want 1", n)
	}
}

func TestProcessor_WorkerLimit(t *testing.T) {
	store := memstore.New()
	runner := newStubRunner(store)
	for i := 0; i < 3; i++ {
		store.CreateJob(context.Background(), core.NewJob{Name: "j", Kind: core.KindGeneric})
	}

	p := newTestProcessor(store, runner, 1, 10*time.Millisecond)
	p.Start(context.Background())
	defer p.Stop(time.Second)

	waitFor(t, "first dispatch", func() bool { return runner.total() == 1 })
	time.Sleep(50 * time.Millisecond)
	if n := runner.total(); n != 1 {
		t.Fatalf("%d jobs running with one worker slot", n)
	}
	if st := p.Status(); st.Workers.Active != 1 || st.Workers.Available != 0 {
		t.Errorf("Workers = %+v", st.Workers)
	}

	close(runner.release)
	waitFor(t, "all jobs ran", func() bool { return runner.total() == 3 })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.Drain(ctx); err != nil {
		t.Errorf("Drain: %v", err)
	}
}

func TestProcessor_StopDoesNotWaitForWorkers(t *testing.T) {
	store := memstore.New()
	runner := newStubRunner(store)
	job, _ := store.CreateJob(context.Background(), core.NewJob{Name: "slow", Kind: core.KindGeneric})

	p := newTestProcessor(store, runner, 1, time.Hour)
	p.Start(context.Background())
	waitFor(t, "dispatch", func() bool { return runner.count(job.ID) == 1 })

	if err := p.Stop(time.Second); err != nil {
		t.Fatalf("Stop blocked on a running worker: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := p.Drain(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Drain with busy worker = %v, want deadline exceeded", err)
	}

	close(runner.release)
	if err := p.Drain(context.Background()); err != nil {
		t.Errorf("Drain: %v", err)
	}
	j, _ := store.GetJob(context.Background(), job.ID)
	if j.Status != core.StatusCompleted {
		t.Errorf("worker did not finish after Stop: %s", j.Status)
	}
}

func TestProcessor_ScanErrorKeepsLooping(t *testing.T) {
	store := memstore.New()
	store.ListErr = errors.New("connection reset")
	runner := newStubRunner(store)
	close(runner.release)

	p := newTestProcessor(store, runner, 1, 10*time.Millisecond)
	p.Start(context.Background())
	defer p.Stop(time.Second)

	time.Sleep(30 * time.Millisecond)
	if !p.Running() {
		t.Fatal("loop exited after a scan error")
	}
	if st := p.Status(); st.LastScan != nil {
		t.Errorf("LastScan set by failed scans: %v", st.LastScan)
	}
}
