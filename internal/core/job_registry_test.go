package core

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestJobRegistry_TryAcquireRelease(t *testing.T) {
	r := NewJobRegistry()

	if !r.TryAcquire(1) {
		t.Fatal("first TryAcquire(1) should succeed")
	}
	if r.TryAcquire(1) {
		t.Error("second TryAcquire(1) should fail while held")
	}
	if !r.TryAcquire(2) {
		t.Error("TryAcquire(2) should succeed independently")
	}

	if got := r.InFlight(); len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("InFlight = %v, want [1 2]", got)
	}

	r.Release(1)
	r.Release(99)
	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}
	if !r.TryAcquire(1) {
		t.Error("TryAcquire(1) should succeed after release")
	}
}

func TestJobRegistry_ConcurrentAcquireAdmitsOne(t *testing.T) {
	for round := 0; round < 50; round++ {
		r := NewJobRegistry()
		var (
			wins  atomic.Int32
			start = make(chan struct{})
			wg    sync.WaitGroup
		)
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				if r.TryAcquire(42) {
					wins.Add(1)
				}
			}()
		}
		close(start)
		wg.Wait()

		if got := wins.Load(); got != 1 {
			t.Fatalf("round %d: %d concurrent acquisitions succeeded, want 1", round, got)
		}
	}
}
