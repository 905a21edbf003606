package core

import (
	"sort"
	"sync"
)

// JobRegistry records which jobs have a worker in this process.
// A job id is admitted at most once until it is released.
type JobRegistry struct {
	mu       sync.Mutex
	inFlight map[int64]struct{}
}

func NewJobRegistry() *JobRegistry {
	return &JobRegistry{inFlight: make(map[int64]struct{})}
}

// TryAcquire admits id and reports true, or reports false if a worker
// already owns it. Check and insert happen under one lock.
func (r *JobRegistry) TryAcquire(id int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, busy := r.inFlight[id]; busy {
		return false
	}
	r.inFlight[id] = struct{}{}
	return true
}

// Release forgets id. Releasing an unknown id is a no-op.
func (r *JobRegistry) Release(id int64) {
	r.mu.Lock()
	delete(r.inFlight, id)
	r.mu.Unlock()
}

// InFlight returns the admitted ids in ascending order.
func (r *JobRegistry) InFlight() []int64 {
	r.mu.Lock()
	ids := make([]int64, 0, len(r.inFlight))
	for id := range r.inFlight {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Len is the number of admitted jobs.
func (r *JobRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.inFlight)
}
