// Package memstore is an in-memory core.Store for tests and local runs
// without PostgreSQL. It enforces the same state rules as the SQL store:
// terminal jobs never change and counters only move through running jobs.
package memstore

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/JonMunkholm/migrator/internal/core"
)

// Store holds jobs, logs and imported records in memory.
type Store struct {
	mu sync.Mutex

	nextID    int64
	jobs      map[int64]*core.Job
	logs      map[int64][]core.LogEntry
	products  []ProductRow
	variants  []VariantRow
	movements []core.StockMovement
	clients   []PartyRow
	suppliers []PartyRow

	// ListErr, when set, is returned by ListRunnable.
	ListErr error
	// AppendErr, when set, is returned by AppendLog after nothing is stored.
	AppendErr error
}

// ProductRow is a stored product with its id.
type ProductRow struct {
	ID int64
	core.Product
}

// VariantRow is a stored variant with its id.
type VariantRow struct {
	ID int64
	core.ProductVariant
}

// PartyRow is a stored client or supplier with its id.
type PartyRow struct {
	ID int64
	core.Party
}

var _ core.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		jobs: make(map[int64]*core.Job),
		logs: make(map[int64][]core.LogEntry),
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) CreateJob(_ context.Context, j core.NewJob) (core.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := core.StatusRunning
	if j.Hold {
		status = core.StatusPending
	}
	job := &core.Job{
		ID:          s.id(),
		Name:        j.Name,
		Kind:        j.Kind,
		Description: j.Description,
		FileName:    j.FileName,
		Status:      status,
		CreatedAt:   time.Now().UTC(),
	}
	s.jobs[job.ID] = job
	return *job, nil
}

func (s *Store) GetJob(_ context.Context, id int64) (core.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return core.Job{}, fmt.Errorf("%w: %d", core.ErrJobNotFound, id)
	}
	return *job, nil
}

func (s *Store) ListJobs(_ context.Context, f core.JobFilter) ([]core.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Job
	for _, j := range s.jobs {
		if f.Kind != "" && j.Kind != f.Kind {
			continue
		}
		if f.Status != "" && j.Status != f.Status {
			continue
		}
		out = append(out, *j)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID > out[b].ID })

	if f.Offset >= len(out) {
		return []core.Job{}, nil
	}
	out = out[f.Offset:]
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) ListRunnable(_ context.Context, exclude []int64) ([]core.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ListErr != nil {
		return nil, s.ListErr
	}
	var out []core.Job
	for _, j := range s.jobs {
		if j.Status == core.StatusRunning && !slices.Contains(exclude, j.ID) {
			out = append(out, *j)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out, nil
}

func (s *Store) StartJob(_ context.Context, id int64) (core.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return core.Job{}, fmt.Errorf("%w: %d", core.ErrJobNotFound, id)
	}
	switch job.Status {
	case core.StatusPending:
		job.Status = core.StatusRunning
	case core.StatusCompleted, core.StatusFailed:
		return core.Job{}, fmt.Errorf("%w: status is %s", core.ErrJobTerminal, job.Status)
	}
	return *job, nil
}

func (s *Store) AttachFile(_ context.Context, id int64, fileName string) (core.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return core.Job{}, fmt.Errorf("%w: %d", core.ErrJobNotFound, id)
	}
	if job.Status != core.StatusPending {
		return core.Job{}, fmt.Errorf("%w: status is %s", core.ErrJobStarted, job.Status)
	}
	job.FileName = fileName
	return *job, nil
}

func (s *Store) SaveProgress(_ context.Context, id int64, c core.Counters) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %d", core.ErrJobNotFound, id)
	}
	if job.Status != core.StatusRunning {
		return nil
	}
	job.Counters = c
	return nil
}

func (s *Store) FinishJob(_ context.Context, id int64, o core.Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %d", core.ErrJobNotFound, id)
	}
	if job.Status != core.StatusRunning {
		return fmt.Errorf("%w: status is %s", core.ErrJobTerminal, job.Status)
	}
	now := time.Now().UTC()
	job.Status = o.Status
	job.Counters = o.Counters
	job.ErrorMessage = o.ErrorMessage
	job.CompletedAt = &now
	return nil
}

func (s *Store) AppendLog(_ context.Context, e core.LogEntry) (core.LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.AppendErr != nil {
		return core.LogEntry{}, s.AppendErr
	}
	e.ID = s.id()
	s.logs[e.JobID] = append(s.logs[e.JobID], e)
	return e, nil
}

func (s *Store) ListLogs(_ context.Context, jobID int64) ([]core.LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.logs[jobID]), nil
}

func (s *Store) InsertProduct(_ context.Context, p core.Product) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.id()
	s.products = append(s.products, ProductRow{ID: id, Product: p})
	return id, nil
}

func (s *Store) InsertProductVariant(_ context.Context, v core.ProductVariant) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.id()
	s.variants = append(s.variants, VariantRow{ID: id, ProductVariant: v})
	return id, nil
}

func (s *Store) InsertStockMovement(_ context.Context, m core.StockMovement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.movements = append(s.movements, m)
	return nil
}

func (s *Store) InsertClient(_ context.Context, p core.Party) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.id()
	s.clients = append(s.clients, PartyRow{ID: id, Party: p})
	return id, nil
}

func (s *Store) InsertSupplier(_ context.Context, p core.Party) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.id()
	s.suppliers = append(s.suppliers, PartyRow{ID: id, Party: p})
	return id, nil
}

// WithTx runs fn against a buffer that is merged into the store only when
// fn succeeds.
func (s *Store) WithTx(ctx context.Context, fn func(core.RecordStore) error) error {
	tx := &txStore{parent: s}
	if err := fn(tx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = append(s.products, tx.products...)
	s.variants = append(s.variants, tx.variants...)
	s.movements = append(s.movements, tx.movements...)
	s.clients = append(s.clients, tx.clients...)
	s.suppliers = append(s.suppliers, tx.suppliers...)
	return nil
}

// Products returns a copy of the stored products.
func (s *Store) Products() []ProductRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.products)
}

func (s *Store) Variants() []VariantRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.variants)
}

func (s *Store) Movements() []core.StockMovement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.movements)
}

func (s *Store) Clients() []PartyRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.clients)
}

func (s *Store) Suppliers() []PartyRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.suppliers)
}

// txStore buffers record writes for WithTx.
type txStore struct {
	parent    *Store
	products  []ProductRow
	variants  []VariantRow
	movements []core.StockMovement
	clients   []PartyRow
	suppliers []PartyRow
}

func (t *txStore) nextID() int64 {
	t.parent.mu.Lock()
	defer t.parent.mu.Unlock()
	return t.parent.id()
}

func (t *txStore) InsertProduct(_ context.Context, p core.Product) (int64, error) {
	id := t.nextID()
	t.products = append(t.products, ProductRow{ID: id, Product: p})
	return id, nil
}

func (t *txStore) InsertProductVariant(_ context.Context, v core.ProductVariant) (int64, error) {
	id := t.nextID()
	t.variants = append(t.variants, VariantRow{ID: id, ProductVariant: v})
	return id, nil
}

func (t *txStore) InsertStockMovement(_ context.Context, m core.StockMovement) error {
	t.movements = append(t.movements, m)
	return nil
}

func (t *txStore) InsertClient(_ context.Context, p core.Party) (int64, error) {
	id := t.nextID()
	t.clients = append(t.clients, PartyRow{ID: id, Party: p})
	return id, nil
}

func (t *txStore) InsertSupplier(_ context.Context, p core.Party) (int64, error) {
	id := t.nextID()
	t.suppliers = append(t.suppliers, PartyRow{ID: id, Party: p})
	return id, nil
}

// WithTx nests by running fn in the same buffer.
func (t *txStore) WithTx(_ context.Context, fn func(core.RecordStore) error) error {
	return fn(t)
}
