package core

import "errors"

var (
	// ErrJobNotFound is returned when no job has the requested id.
	ErrJobNotFound = errors.New("migration not found")

	// ErrJobTerminal is returned when a completed or failed job is asked to
	// change state.
	ErrJobTerminal = errors.New("migration already finished")

	// ErrJobStarted is returned when a file is attached to a job that is no
	// longer pending.
	ErrJobStarted = errors.New("migration already started")

	// ErrInvalidJob covers request-layer validation failures such as a blank name.
	ErrInvalidJob = errors.New("invalid migration")

	// ErrUnknownTarget is returned for a target kind with no importer.
	ErrUnknownTarget = errors.New("unknown migration type")

	// ErrFileNotFound means the job's file is absent from the upload directory.
	ErrFileNotFound = errors.New("file not found")

	// ErrUnsupportedFormat means no reader handles the file's suffix.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrSpreadsheetUnavailable means spreadsheet parsing is not available,
	// either disabled by configuration or because the workbook is a legacy
	// binary .xls that the runtime cannot read.
	ErrSpreadsheetUnavailable = errors.New("spreadsheet support unavailable")

	// ErrMalformedShape means the file parsed but has the wrong top-level shape.
	ErrMalformedShape = errors.New("malformed file")

	// ErrRowDecode marks an error confined to a single row. The runner counts
	// it as a failed row instead of failing the job.
	ErrRowDecode = errors.New("row could not be decoded")

	// ErrMissingField is returned by importers when a required field is empty.
	ErrMissingField = errors.New("missing required field")
)
