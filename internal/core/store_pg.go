package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	db "github.com/JonMunkholm/migrator/internal/database"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PgStore is the PostgreSQL Store. State transitions are guarded in SQL, so
// a job that has reached a terminal status is never modified again no matter
// how many processes write to it.
type PgStore struct {
	pool *pgxpool.Pool
	pgRecords
}

var _ Store = (*PgStore)(nil)

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool, pgRecords: pgRecords{db: pool}}
}

func (s *PgStore) queries() *db.Queries {
	return db.New(s.pool)
}

func (s *PgStore) CreateJob(ctx context.Context, j NewJob) (Job, error) {
	status := StatusRunning
	if j.Hold {
		status = StatusPending
	}
	m, err := s.queries().CreateMigration(ctx, db.CreateMigrationParams{
		Name:          j.Name,
		MigrationType: string(j.Kind),
		Description:   j.Description,
		FileName:      NormalizeText(j.FileName),
		Status:        string(status),
	})
	if err != nil {
		return Job{}, err
	}
	return migrationToJob(m), nil
}

func (s *PgStore) GetJob(ctx context.Context, id int64) (Job, error) {
	m, err := s.queries().GetMigration(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return Job{}, fmt.Errorf("%w: %d", ErrJobNotFound, id)
	}
	if err != nil {
		return Job{}, err
	}
	return migrationToJob(m), nil
}

func (s *PgStore) ListJobs(ctx context.Context, f JobFilter) ([]Job, error) {
	rows, err := s.queries().ListMigrations(ctx, db.ListMigrationsParams{
		MigrationType: string(f.Kind),
		Status:        string(f.Status),
		Limit:         int32(f.Limit),
		Offset:        int32(f.Offset),
	})
	if err != nil {
		return nil, err
	}
	return migrationsToJobs(rows), nil
}

func (s *PgStore) ListRunnable(ctx context.Context, exclude []int64) ([]Job, error) {
	rows, err := s.queries().ListRunningMigrations(ctx, exclude)
	if err != nil {
		return nil, err
	}
	return migrationsToJobs(rows), nil
}

func (s *PgStore) StartJob(ctx context.Context, id int64) (Job, error) {
	m, err := s.queries().StartMigration(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return Job{}, s.transitionError(ctx, id, ErrJobTerminal)
	}
	if err != nil {
		return Job{}, err
	}
	return migrationToJob(m), nil
}

func (s *PgStore) AttachFile(ctx context.Context, id int64, fileName string) (Job, error) {
	m, err := s.queries().AttachMigrationFile(ctx, db.AttachMigrationFileParams{
		ID:       id,
		FileName: NormalizeText(fileName),
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return Job{}, s.transitionError(ctx, id, ErrJobStarted)
	}
	if err != nil {
		return Job{}, err
	}
	return migrationToJob(m), nil
}

// SaveProgress writes counters for a running job. A job that has already
// finished is left alone.
func (s *PgStore) SaveProgress(ctx context.Context, id int64, c Counters) error {
	_, err := s.queries().UpdateMigrationProgress(ctx, db.UpdateMigrationProgressParams{
		ID:               id,
		TotalRecords:     int32(c.Total),
		ProcessedRecords: int32(c.Processed),
		SuccessRecords:   int32(c.Succeeded),
		ErrorRecords:     int32(c.Failed),
	})
	return err
}

func (s *PgStore) FinishJob(ctx context.Context, id int64, o Outcome) error {
	n, err := s.queries().FinishMigration(ctx, db.FinishMigrationParams{
		ID:               id,
		Status:           string(o.Status),
		TotalRecords:     int32(o.Counters.Total),
		ProcessedRecords: int32(o.Counters.Processed),
		SuccessRecords:   int32(o.Counters.Succeeded),
		ErrorRecords:     int32(o.Counters.Failed),
		ErrorMessage:     NormalizeText(o.ErrorMessage),
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return s.transitionError(ctx, id, ErrJobTerminal)
	}
	return nil
}

// transitionError explains a guarded update that matched no row: either the
// job does not exist or its status forbids the change.
func (s *PgStore) transitionError(ctx context.Context, id int64, refused error) error {
	job, err := s.GetJob(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: status is %s", refused, job.Status)
}

func (s *PgStore) AppendLog(ctx context.Context, e LogEntry) (LogEntry, error) {
	row, err := s.queries().InsertMigrationLog(ctx, db.InsertMigrationLogParams{
		MigrationID: e.JobID,
		Level:       string(e.Level),
		Message:     e.Message,
		CreatedAt:   pgtype.Timestamptz{Time: e.Timestamp, Valid: !e.Timestamp.IsZero()},
	})
	if err != nil {
		return LogEntry{}, err
	}
	return logRowToEntry(row), nil
}

func (s *PgStore) ListLogs(ctx context.Context, jobID int64) ([]LogEntry, error) {
	rows, err := s.queries().ListMigrationLogs(ctx, jobID)
	if err != nil {
		return nil, err
	}
	out := make([]LogEntry, len(rows))
	for i, r := range rows {
		out[i] = logRowToEntry(r)
	}
	return out, nil
}

// ----------------------------------------------------------------------------
// Records
// ----------------------------------------------------------------------------

// pgRecords writes importer output through db, which is either the pool or
// an open transaction.
type pgRecords struct {
	db db.DBTX
}

// beginner is implemented by *pgxpool.Pool and pgx.Tx. On a pgx.Tx, Begin
// opens a savepoint.
type beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

func (r pgRecords) WithTx(ctx context.Context, fn func(RecordStore) error) error {
	b, ok := r.db.(beginner)
	if !ok {
		return fmt.Errorf("record store cannot begin a transaction on %T", r.db)
	}
	tx, err := b.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(pgRecords{db: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r pgRecords) InsertProduct(ctx context.Context, p Product) (int64, error) {
	return db.New(r.db).InsertProduct(ctx, db.InsertProductParams{
		Name:            p.Name,
		Description:     p.Description,
		Price:           toPgNumeric(p.Price),
		PurchasePrice:   toPgNumeric(p.PurchasePrice),
		Quantity:        p.Quantity,
		Category:        p.Category,
		Brand:           p.Brand,
		Model:           p.Model,
		Barcode:         p.Barcode,
		Condition:       p.Condition,
		HasUniqueSerial: p.HasUniqueSerial,
		EntryDate:       toPgTimestamptz(p.EntryDate),
		Notes:           p.Notes,
	})
}

func (r pgRecords) InsertProductVariant(ctx context.Context, v ProductVariant) (int64, error) {
	return db.New(r.db).InsertProductVariant(ctx, db.InsertProductVariantParams{
		ProductID:  v.ProductID,
		ImeiSerial: v.IMEISerial,
		Barcode:    v.Barcode,
		Condition:  v.Condition,
	})
}

func (r pgRecords) InsertStockMovement(ctx context.Context, m StockMovement) error {
	return db.New(r.db).InsertStockMovement(ctx, db.InsertStockMovementParams{
		ProductID:     m.ProductID,
		Quantity:      m.Quantity,
		MovementType:  string(m.Type),
		ReferenceType: m.ReferenceType,
		Notes:         m.Notes,
		UnitPrice:     toPgNumeric(m.UnitPrice),
	})
}

func (r pgRecords) InsertClient(ctx context.Context, p Party) (int64, error) {
	return db.New(r.db).InsertClient(ctx, db.InsertClientParams{
		Name:    p.Name,
		Email:   p.Email,
		Phone:   p.Phone,
		Address: p.Address,
	})
}

func (r pgRecords) InsertSupplier(ctx context.Context, p Party) (int64, error) {
	return db.New(r.db).InsertSupplier(ctx, db.InsertSupplierParams{
		Name:    p.Name,
		Email:   p.Email,
		Phone:   p.Phone,
		Address: p.Address,
	})
}

// ----------------------------------------------------------------------------
// Conversions
// ----------------------------------------------------------------------------

func migrationToJob(m db.Migration) Job {
	job := Job{
		ID:          m.ID,
		Name:        m.Name,
		Kind:        TargetKind(m.MigrationType),
		Description: m.Description,
		FileName:    m.FileName.String,
		Status:      Status(m.Status),
		Counters: Counters{
			Total:     int(m.TotalRecords),
			Processed: int(m.ProcessedRecords),
			Succeeded: int(m.SuccessRecords),
			Failed:    int(m.ErrorRecords),
		},
		ErrorMessage: m.ErrorMessage.String,
		CreatedAt:    m.CreatedAt.Time,
	}
	if m.CompletedAt.Valid {
		t := m.CompletedAt.Time
		job.CompletedAt = &t
	}
	return job
}

func migrationsToJobs(rows []db.Migration) []Job {
	out := make([]Job, len(rows))
	for i, m := range rows {
		out[i] = migrationToJob(m)
	}
	return out
}

func logRowToEntry(r db.MigrationLog) LogEntry {
	return LogEntry{
		ID:        r.ID,
		JobID:     r.MigrationID,
		Level:     Level(r.Level),
		Message:   r.Message,
		Timestamp: r.CreatedAt.Time,
	}
}

// toPgNumeric converts an exact decimal without going through float64.
func toPgNumeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

func toPgTimestamptz(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		t = time.Now()
	}
	return pgtype.Timestamptz{Time: t.UTC(), Valid: true}
}
