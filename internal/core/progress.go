package core

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/JonMunkholm/migrator/internal/logging"
)

// Cache is a namespaced key/value store with expiry.
type Cache interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration, namespace string) error
	// Get decodes the value under key into dest and reports whether it existed.
	Get(ctx context.Context, key, namespace string, dest any) (bool, error)
}

// LatestLog is the cached copy of a job's most recent log entry.
type LatestLog struct {
	Message   string    `json:"last_log"`
	Level     Level     `json:"level"`
	Timestamp time.Time `json:"timestamp"`
}

// LatestLogKey is the cache key holding a job's latest log entry.
func LatestLogKey(jobID int64) string {
	return "migration_logs:" + strconv.FormatInt(jobID, 10)
}

// CacheOptions controls how the latest entry is mirrored.
type CacheOptions struct {
	TTL       time.Duration
	Namespace string
}

// DefaultCacheOptions mirrors entries for an hour in the "migration" namespace.
var DefaultCacheOptions = CacheOptions{TTL: time.Hour, Namespace: "migration"}

// ProgressLogger appends job log entries and mirrors the latest one to a
// cache. Neither a store nor a cache failure is returned: a job must never
// fail because its diagnostics could not be written.
type ProgressLogger struct {
	store LogStore
	cache Cache
	opts  CacheOptions
	now   func() time.Time
}

// NewProgressLogger builds a logger. cache may be nil.
func NewProgressLogger(store LogStore, cache Cache, opts CacheOptions) *ProgressLogger {
	if opts.TTL <= 0 {
		opts.TTL = DefaultCacheOptions.TTL
	}
	if opts.Namespace == "" {
		opts.Namespace = DefaultCacheOptions.Namespace
	}
	return &ProgressLogger{store: store, cache: cache, opts: opts, now: time.Now}
}

// Log records msg for jobID at level.
func (l *ProgressLogger) Log(ctx context.Context, jobID int64, level Level, msg string) {
	entry := LogEntry{
		JobID:     jobID,
		Level:     level,
		Message:   msg,
		Timestamp: l.now().UTC(),
	}

	logger := logging.ForJob(ctx, jobID)
	if _, err := l.store.AppendLog(ctx, entry); err != nil {
		logger.Error("append migration log failed", "level", level, "message", msg, "error", err)
	}

	if l.cache == nil {
		return
	}
	latest := LatestLog{Message: msg, Level: level, Timestamp: entry.Timestamp}
	if err := l.cache.Set(ctx, LatestLogKey(jobID), latest, l.opts.TTL, l.opts.Namespace); err != nil {
		logger.Warn("cache latest migration log failed", "error", err)
	}
}

// Logf formats and records a message.
func (l *ProgressLogger) Logf(ctx context.Context, jobID int64, level Level, format string, args ...any) {
	l.Log(ctx, jobID, level, fmt.Sprintf(format, args...))
}

// Latest returns the most recent entry for jobID, from the cache when
// possible and otherwise from the store.
func (l *ProgressLogger) Latest(ctx context.Context, jobID int64) (LatestLog, bool, error) {
	if l.cache != nil {
		var latest LatestLog
		ok, err := l.cache.Get(ctx, LatestLogKey(jobID), l.opts.Namespace, &latest)
		if err != nil {
			logging.ForJob(ctx, jobID).Warn("read cached migration log failed", "error", err)
		} else if ok {
			return latest, true, nil
		}
	}

	entries, err := l.store.ListLogs(ctx, jobID)
	if err != nil {
		return LatestLog{}, false, err
	}
	if len(entries) == 0 {
		return LatestLog{}, false, nil
	}
	last := entries[len(entries)-1]
	return LatestLog{Message: last.Message, Level: last.Level, Timestamp: last.Timestamp}, true, nil
}
