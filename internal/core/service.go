package core

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/JonMunkholm/migrator/internal/logging"
)

// Options configures a Service. Zero values fall back to defaults.
type Options struct {
	UploadDir          string
	PollInterval       time.Duration
	StopTimeout        time.Duration
	MaxWorkers         int
	CheckpointEvery    int
	SimulationStep     time.Duration
	SpreadsheetEnabled bool
	MaxFileSize        int64

	// Cache mirrors each job's latest log entry. Nil disables mirroring.
	Cache        Cache
	CacheOptions CacheOptions
}

// Service is the entry point for request handlers: it creates and starts
// jobs, stores their files and exposes progress. Execution happens in the
// Processor it owns.
type Service struct {
	store       Store
	files       LocalFiles
	formats     *Formats
	progress    *ProgressLogger
	processor   *Processor
	cache       Cache
	maxFileSize int64
	stopTimeout time.Duration
}

// NewService wires the runner, processor and progress logger around store.
func NewService(store Store, opts Options) *Service {
	if opts.UploadDir == "" {
		opts.UploadDir = "uploads/migrations"
	}
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = 5 * time.Second
	}

	files := LocalFiles{Dir: opts.UploadDir}
	formats := NewFormats(opts.SpreadsheetEnabled)
	progress := NewProgressLogger(store, opts.Cache, opts.CacheOptions)
	runner := NewRunner(store, files, formats, progress, RunnerConfig{
		CheckpointEvery: opts.CheckpointEvery,
		SimulationStep:  opts.SimulationStep,
	})
	processor := NewProcessor(store, runner, NewJobRegistry(), NewWorkerLimiter(opts.MaxWorkers), opts.PollInterval)

	return &Service{
		store:       store,
		files:       files,
		formats:     formats,
		progress:    progress,
		processor:   processor,
		cache:       opts.Cache,
		maxFileSize: opts.MaxFileSize,
		stopTimeout: opts.StopTimeout,
	}
}

// Start begins background processing. It is safe to call more than once.
func (s *Service) Start(ctx context.Context) bool {
	return s.processor.Start(ctx)
}

// Stop halts the scan loop, waiting at most the configured stop timeout.
func (s *Service) Stop() error {
	return s.processor.Stop(s.stopTimeout)
}

// WaitForWorkers blocks until in-flight jobs finish or ctx is done.
func (s *Service) WaitForWorkers(ctx context.Context) error {
	return s.processor.Drain(ctx)
}

// ProcessorStatus reports the loop and worker state.
func (s *Service) ProcessorStatus() ProcessorStatus {
	return s.processor.Status()
}

// CreateJob validates and persists a new job. Only the name and target kind
// are checked; a bad file surfaces as a failed job once it runs. Unless j.Hold is set the job
// is created running and the processor is woken to pick it up.
func (s *Service) CreateJob(ctx context.Context, j NewJob) (Job, error) {
	j.Name = strings.TrimSpace(j.Name)
	j.Kind = TargetKind(strings.ToLower(strings.TrimSpace(string(j.Kind))))
	if j.Name == "" {
		return Job{}, fmt.Errorf("%w: name is required", ErrInvalidJob)
	}
	if !j.Kind.Valid() {
		return Job{}, fmt.Errorf("%w: %q", ErrUnknownTarget, j.Kind)
	}
	if _, ok := ImporterFor(j.Kind); !ok {
		return Job{}, fmt.Errorf("%w: no importer for %q", ErrUnknownTarget, j.Kind)
	}
	job, err := s.store.CreateJob(ctx, j)
	if err != nil {
		return Job{}, fmt.Errorf("create migration: %w", err)
	}
	logging.FromContext(ctx).Info("migration created",
		"job_id", job.ID, "kind", job.Kind, "status", job.Status, "file", job.FileName)

	if job.Status == StatusRunning {
		s.processor.Notify()
	}
	return job, nil
}

// StartJob moves a pending job to running. Starting a running job is a no-op;
// a finished job yields ErrJobTerminal.
func (s *Service) StartJob(ctx context.Context, id int64) (Job, error) {
	job, err := s.store.StartJob(ctx, id)
	if err != nil {
		return Job{}, err
	}
	s.processor.Notify()
	return job, nil
}

// AttachFile stores the upload and records it on a pending job. The stored
// name is unique per upload. The file's format is not checked here; the
// runner fails the job when it has no reader for it.
func (s *Service) AttachFile(ctx context.Context, id int64, fileName string, r io.Reader) (Job, error) {
	job, err := s.store.GetJob(ctx, id)
	if err != nil {
		return Job{}, err
	}
	if job.Status != StatusPending {
		return Job{}, fmt.Errorf("%w: status is %s", ErrJobStarted, job.Status)
	}

	stored, err := s.files.Save(fileName, r, s.maxFileSize)
	if err != nil {
		return Job{}, err
	}
	job, err = s.store.AttachFile(ctx, id, stored)
	if err != nil {
		return Job{}, err
	}
	s.progress.Logf(ctx, id, LevelInfo, "File uploaded: %s", fileName)
	return job, nil
}

// GetJob returns one job.
func (s *Service) GetJob(ctx context.Context, id int64) (Job, error) {
	return s.store.GetJob(ctx, id)
}

// ListJobs returns jobs newest first.
func (s *Service) ListJobs(ctx context.Context, f JobFilter) ([]Job, error) {
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return s.store.ListJobs(ctx, f)
}

// Logs returns a job's log entries oldest first.
func (s *Service) Logs(ctx context.Context, id int64) ([]LogEntry, error) {
	if _, err := s.store.GetJob(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListLogs(ctx, id)
}

// LatestLog returns the most recent log entry of a job.
func (s *Service) LatestLog(ctx context.Context, id int64) (LatestLog, bool, error) {
	if _, err := s.store.GetJob(ctx, id); err != nil {
		return LatestLog{}, false, err
	}
	return s.progress.Latest(ctx, id)
}

// SupportedFormats lists the accepted file suffixes.
func (s *Service) SupportedFormats() []string {
	return s.formats.Suffixes()
}

// Targets lists the registered import targets.
func (s *Service) Targets() []ImporterInfo {
	return Importers()
}

// Cache states reported by CacheStatus.
const (
	CacheDisabled    = "disabled"
	CacheOK          = "ok"
	CacheUnavailable = "unavailable"
)

// CacheStatus pings the progress cache when it supports it. A cache that
// cannot be pinged is reported as ok once configured.
func (s *Service) CacheStatus(ctx context.Context) string {
	if s.cache == nil {
		return CacheDisabled
	}
	p, ok := s.cache.(interface{ Ping(context.Context) error })
	if !ok {
		return CacheOK
	}
	if err := p.Ping(ctx); err != nil {
		logging.FromContext(ctx).Warn("progress cache ping failed", "error", err)
		return CacheUnavailable
	}
	return CacheOK
}
