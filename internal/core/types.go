package core

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// TargetKind names the entity a migration job imports into.
type TargetKind string

const (
	KindProducts  TargetKind = "products"
	KindClients   TargetKind = "clients"
	KindSuppliers TargetKind = "suppliers"
	KindGeneric   TargetKind = "generic"
)

// Valid reports whether k is one of the known target kinds.
func (k TargetKind) Valid() bool {
	switch k {
	case KindProducts, KindClients, KindSuppliers, KindGeneric:
		return true
	}
	return false
}

// Status is the lifecycle state of a migration job.
//
// The runner only ever moves a job from running to one of the terminal
// states. Pending exists for the request layer: a job can be held while its
// file is uploaded and started afterwards.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether s is completed or failed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Level is the severity of a job log entry.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Job is a persisted migration job.
type Job struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Kind         TargetKind `json:"migration_type"`
	Description  string     `json:"description,omitempty"`
	FileName     string     `json:"file_name,omitempty"`
	Status       Status     `json:"status"`
	Counters
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// Counters are the row tallies of a job.
// Processed <= Total and Succeeded+Failed <= Processed at every checkpoint.
type Counters struct {
	Total     int `json:"total_records"`
	Processed int `json:"processed_records"`
	Succeeded int `json:"success_records"`
	Failed    int `json:"error_records"`
}

// Progress returns the processed percentage, 0 when the total is unknown.
func (c Counters) Progress() float64 {
	if c.Total <= 0 {
		return 0
	}
	return float64(c.Processed) / float64(c.Total) * 100
}

// LogEntry is one line of a job's diagnostic log.
type LogEntry struct {
	ID        int64     `json:"id"`
	JobID     int64     `json:"migration_id"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// NewJob holds the caller-supplied fields of a job.
type NewJob struct {
	Name        string
	Kind        TargetKind
	Description string
	FileName    string

	// Hold creates the job pending so a file can be attached before it runs.
	Hold bool
}

// JobFilter narrows ListJobs. Zero values mean no filter.
type JobFilter struct {
	Kind   TargetKind
	Status Status
	Offset int
	Limit  int
}

// Outcome is the terminal result written when a job finishes.
type Outcome struct {
	Status       Status
	Counters     Counters
	ErrorMessage string
}

// JobStore persists jobs.
type JobStore interface {
	CreateJob(ctx context.Context, j NewJob) (Job, error)
	GetJob(ctx context.Context, id int64) (Job, error)
	ListJobs(ctx context.Context, f JobFilter) ([]Job, error)
	// ListRunnable returns running jobs whose ids are not in exclude.
	ListRunnable(ctx context.Context, exclude []int64) ([]Job, error)
	StartJob(ctx context.Context, id int64) (Job, error)
	AttachFile(ctx context.Context, id int64, fileName string) (Job, error)
	SaveProgress(ctx context.Context, id int64, c Counters) error
	FinishJob(ctx context.Context, id int64, o Outcome) error
}

// LogStore persists job log entries, oldest first.
type LogStore interface {
	AppendLog(ctx context.Context, e LogEntry) (LogEntry, error)
	ListLogs(ctx context.Context, jobID int64) ([]LogEntry, error)
}

// RecordStore writes the domain records produced by importers.
type RecordStore interface {
	InsertProduct(ctx context.Context, p Product) (int64, error)
	InsertProductVariant(ctx context.Context, v ProductVariant) (int64, error)
	InsertStockMovement(ctx context.Context, m StockMovement) error
	InsertClient(ctx context.Context, p Party) (int64, error)
	InsertSupplier(ctx context.Context, p Party) (int64, error)

	// WithTx runs fn against a store bound to one transaction.
	WithTx(ctx context.Context, fn func(RecordStore) error) error
}

// Store is everything the processor needs from persistence.
type Store interface {
	JobStore
	LogStore
	RecordStore
}

// Product is a catalogue entry created by the products importer.
type Product struct {
	Name            string
	Description     pgtype.Text
	Price           decimal.Decimal
	PurchasePrice   decimal.Decimal
	Quantity        int64
	Category        pgtype.Text
	Brand           pgtype.Text
	Model           pgtype.Text
	Barcode         pgtype.Text
	Condition       string
	HasUniqueSerial bool
	EntryDate       time.Time
	Notes           pgtype.Text
}

// ProductVariant is a serialised unit of a product (one IMEI or serial).
type ProductVariant struct {
	ProductID  int64
	IMEISerial string
	Barcode    pgtype.Text
	Condition  string
}

// MovementType distinguishes stock entering from stock leaving.
type MovementType string

const (
	MovementIn  MovementType = "IN"
	MovementOut MovementType = "OUT"
)

// StockMovement records a quantity change on a product.
type StockMovement struct {
	ProductID     int64
	Quantity      int64
	Type          MovementType
	ReferenceType string
	Notes         string
	UnitPrice     decimal.Decimal
}

// Party is a client or supplier record.
type Party struct {
	Name    string
	Email   pgtype.Text
	Phone   pgtype.Text
	Address pgtype.Text
}
