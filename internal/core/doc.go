// Package core runs bulk data migrations into the store.
//
// A migration job names a target kind (products, clients, suppliers or
// generic) and optionally a file in the upload directory. The package has no
// knowledge of HTTP; handlers, the server binary and tests all drive it
// through [Service].
//
// # Lifecycle
//
// Jobs are created running, or pending when the caller wants to attach a
// file first. The [Processor] scans the store on a fixed interval (and on
// [Processor.Notify]) for running jobs that no worker in this process owns,
// claims each through the [JobRegistry], takes a slot from the
// [WorkerLimiter] and hands it to the [Runner]. A job only ever moves
// forward:
//
//	pending -> running -> completed | failed
//
// # Running a job
//
// The [Runner] picks a [FormatReader] by file suffix (.csv, .xlsx, .xls,
// .xlsm, .json), counts the rows, then feeds each [Row] to the [Importer]
// registered for the job's kind. Row failures are logged as warnings and
// counted; the job completes when no row failed or at least one succeeded.
// Progress is checkpointed every RunnerConfig.CheckpointEvery rows. Jobs
// without a file run a fixed simulation of 100 rows.
//
// # Column lookup
//
// Import files come from spreadsheets exported by hand, so importers never
// index a row by exact header. [Row.Lookup] tries a list of aliases and
// accepts an exact key, a key equal ignoring case and accents, or a key that
// contains the alias (or the reverse). Values go through [NormalizePrice],
// [NormalizeInteger] and [NormalizeText].
//
// # Progress log
//
// Every job writes an append-only log through [ProgressLogger]; the most
// recent entry is mirrored to a [Cache] when one is configured. Log writes
// never fail a job.
//
// # Error Handling
//
// Errors returned to callers wrap the sentinels in errors.go. [MapError]
// turns any error into a [UserMessage] with a support code:
//
//   - MIG001-MIG009: migration errors (file, format, job state)
//   - FILE001: upload too large
//   - VAL003: required field empty
//   - DB001-DB007: database constraint and connection errors
//   - REQ001-REQ003: request errors (no file, cancelled, timeout)
//   - RATE001: rate limiting
//   - ERR000: anything else; check the server log
package core
