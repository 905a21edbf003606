package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const migrationColumns = `id, name, migration_type, description, file_name, status,
    total_records, processed_records, success_records, error_records,
    error_message, created_at, started_at, completed_at`

func scanMigration(row interface{ Scan(...any) error }) (Migration, error) {
	var i Migration
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.MigrationType,
		&i.Description,
		&i.FileName,
		&i.Status,
		&i.TotalRecords,
		&i.ProcessedRecords,
		&i.SuccessRecords,
		&i.ErrorRecords,
		&i.ErrorMessage,
		&i.CreatedAt,
		&i.StartedAt,
		&i.CompletedAt,
	)
	return i, err
}

const createMigration = `-- name: CreateMigration :one
INSERT INTO migrations (name, migration_type, description, file_name, status, started_at)
VALUES ($1, $2, $3, $4, $5, CASE WHEN $5::text = 'running' THEN NOW() END)
RETURNING ` + migrationColumns

type CreateMigrationParams struct {
	Name          string
	MigrationType string
	Description   string
	FileName      pgtype.Text
	Status        string
}

func (q *Queries) CreateMigration(ctx context.Context, arg CreateMigrationParams) (Migration, error) {
	row := q.db.QueryRow(ctx, createMigration,
		arg.Name,
		arg.MigrationType,
		arg.Description,
		arg.FileName,
		arg.Status,
	)
	return scanMigration(row)
}

const getMigration = `-- name: GetMigration :one
SELECT ` + migrationColumns + `
FROM migrations
WHERE id = $1`

func (q *Queries) GetMigration(ctx context.Context, id int64) (Migration, error) {
	row := q.db.QueryRow(ctx, getMigration, id)
	return scanMigration(row)
}

const listMigrations = `-- name: ListMigrations :many
SELECT ` + migrationColumns + `
FROM migrations
WHERE ($1::text = '' OR migration_type = $1)
  AND ($2::text = '' OR status = $2)
ORDER BY id DESC
LIMIT $3 OFFSET $4`

type ListMigrationsParams struct {
	MigrationType string
	Status        string
	Limit         int32
	Offset        int32
}

func (q *Queries) ListMigrations(ctx context.Context, arg ListMigrationsParams) ([]Migration, error) {
	rows, err := q.db.Query(ctx, listMigrations,
		arg.MigrationType,
		arg.Status,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Migration{}
	for rows.Next() {
		i, err := scanMigration(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listRunningMigrations = `-- name: ListRunningMigrations :many
SELECT ` + migrationColumns + `
FROM migrations
WHERE status = 'running'
  AND NOT (id = ANY($1::bigint[]))
ORDER BY id`

func (q *Queries) ListRunningMigrations(ctx context.Context, exclude []int64) ([]Migration, error) {
	if exclude == nil {
		exclude = []int64{}
	}
	rows, err := q.db.Query(ctx, listRunningMigrations, exclude)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Migration{}
	for rows.Next() {
		i, err := scanMigration(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const startMigration = `-- name: StartMigration :one
UPDATE migrations
SET status = 'running',
    started_at = COALESCE(started_at, NOW())
WHERE id = $1 AND status IN ('pending', 'running')
RETURNING ` + migrationColumns

func (q *Queries) StartMigration(ctx context.Context, id int64) (Migration, error) {
	row := q.db.QueryRow(ctx, startMigration, id)
	return scanMigration(row)
}

const attachMigrationFile = `-- name: AttachMigrationFile :one
UPDATE migrations
SET file_name = $2
WHERE id = $1 AND status = 'pending'
RETURNING ` + migrationColumns

type AttachMigrationFileParams struct {
	ID       int64
	FileName pgtype.Text
}

func (q *Queries) AttachMigrationFile(ctx context.Context, arg AttachMigrationFileParams) (Migration, error) {
	row := q.db.QueryRow(ctx, attachMigrationFile, arg.ID, arg.FileName)
	return scanMigration(row)
}

const updateMigrationProgress = `-- name: UpdateMigrationProgress :execrows
UPDATE migrations
SET total_records = $2,
    processed_records = $3,
    success_records = $4,
    error_records = $5
WHERE id = $1 AND status = 'running'`

type UpdateMigrationProgressParams struct {
	ID               int64
	TotalRecords     int32
	ProcessedRecords int32
	SuccessRecords   int32
	ErrorRecords     int32
}

func (q *Queries) UpdateMigrationProgress(ctx context.Context, arg UpdateMigrationProgressParams) (int64, error) {
	result, err := q.db.Exec(ctx, updateMigrationProgress,
		arg.ID,
		arg.TotalRecords,
		arg.ProcessedRecords,
		arg.SuccessRecords,
		arg.ErrorRecords,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const finishMigration = `-- name: FinishMigration :execrows
UPDATE migrations
SET status = $2,
    total_records = $3,
    processed_records = $4,
    success_records = $5,
    error_records = $6,
    error_message = $7,
    completed_at = NOW()
WHERE id = $1 AND status = 'running'`

type FinishMigrationParams struct {
	ID               int64
	Status           string
	TotalRecords     int32
	ProcessedRecords int32
	SuccessRecords   int32
	ErrorRecords     int32
	ErrorMessage     pgtype.Text
}

func (q *Queries) FinishMigration(ctx context.Context, arg FinishMigrationParams) (int64, error) {
	result, err := q.db.Exec(ctx, finishMigration,
		arg.ID,
		arg.Status,
		arg.TotalRecords,
		arg.ProcessedRecords,
		arg.SuccessRecords,
		arg.ErrorRecords,
		arg.ErrorMessage,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const insertMigrationLog = `-- name: InsertMigrationLog :one
INSERT INTO migration_logs (migration_id, level, message, created_at)
VALUES ($1, $2, $3, COALESCE($4, NOW()))
RETURNING id, migration_id, level, message, created_at`

type InsertMigrationLogParams struct {
	MigrationID int64
	Level       string
	Message     string
	CreatedAt   pgtype.Timestamptz
}

func (q *Queries) InsertMigrationLog(ctx context.Context, arg InsertMigrationLogParams) (MigrationLog, error) {
	row := q.db.QueryRow(ctx, insertMigrationLog,
		arg.MigrationID,
		arg.Level,
		arg.Message,
		arg.CreatedAt,
	)
	var i MigrationLog
	err := row.Scan(
		&i.ID,
		&i.MigrationID,
		&i.Level,
		&i.Message,
		&i.CreatedAt,
	)
	return i, err
}

const listMigrationLogs = `-- name: ListMigrationLogs :many
SELECT id, migration_id, level, message, created_at
FROM migration_logs
WHERE migration_id = $1
ORDER BY id`

func (q *Queries) ListMigrationLogs(ctx context.Context, migrationID int64) ([]MigrationLog, error) {
	rows, err := q.db.Query(ctx, listMigrationLogs, migrationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []MigrationLog{}
	for rows.Next() {
		var i MigrationLog
		if err := rows.Scan(
			&i.ID,
			&i.MigrationID,
			&i.Level,
			&i.Message,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
