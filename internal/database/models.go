package database

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type Migration struct {
	ID               int64
	Name             string
	MigrationType    string
	Description      string
	FileName         pgtype.Text
	Status           string
	TotalRecords     int32
	ProcessedRecords int32
	SuccessRecords   int32
	ErrorRecords     int32
	ErrorMessage     pgtype.Text
	CreatedAt        pgtype.Timestamptz
	StartedAt        pgtype.Timestamptz
	CompletedAt      pgtype.Timestamptz
}

type MigrationLog struct {
	ID          int64
	MigrationID int64
	Level       string
	Message     string
	CreatedAt   pgtype.Timestamptz
}
