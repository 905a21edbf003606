package core

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// sentinelMessage maps one of the package's error values to a user message.
type sentinelMessage struct {
	err error
	msg UserMessage
}

// sentinelMessages are checked with errors.Is before any text pattern, so a
// wrapped sentinel always gets its own code.
var sentinelMessages = []sentinelMessage{
	{ErrFileNotFound, UserMessage{
		Message: "The migration file could not be found",
		Action:  "Upload the file again before starting the migration",
		Code:    "MIG001",
	}},
	{ErrUnsupportedFormat, UserMessage{
		Message: "This file format is not supported",
		Action:  "Use a .csv, .xlsx or .json file",
		Code:    "MIG002",
	}},
	{ErrSpreadsheetUnavailable, UserMessage{
		Message: "Spreadsheet files cannot be read on this server",
		Action:  "Save the workbook as .xlsx or export it to CSV",
		Code:    "MIG003",
	}},
	{ErrMalformedShape, UserMessage{
		Message: "The file does not have the expected structure",
		Action:  "CSV and Excel files need a header row; JSON files must contain an array of objects",
		Code:    "MIG004",
	}},
	{ErrUnknownTarget, UserMessage{
		Message: "Unknown migration type",
		Action:  "Choose products, clients, suppliers or generic",
		Code:    "MIG005",
	}},
	{ErrJobNotFound, UserMessage{
		Message: "Migration not found",
		Action:  "Refresh the migration list",
		Code:    "MIG006",
	}},
	{ErrJobTerminal, UserMessage{
		Message: "This migration has already finished",
		Action:  "Create a new migration to import the file again",
		Code:    "MIG007",
	}},
	{ErrJobStarted, UserMessage{
		Message: "This migration has already started",
		Action:  "Files can only be attached before the migration starts",
		Code:    "MIG008",
	}},
	{ErrInvalidJob, UserMessage{
		Message: "The migration request is incomplete",
		Action:  "Give the migration a name and a type",
		Code:    "MIG009",
	}},
	{ErrFileTooLarge, UserMessage{
		Message: "File exceeds maximum size limit",
		Action:  "Split the file into smaller chunks",
		Code:    "FILE001",
	}},
	{ErrMissingField, UserMessage{
		Message: "Required field is empty",
		Action:  "Ensure every row has a name",
		Code:    "VAL003",
	}},
}

// pgCodeMessages maps PostgreSQL SQLSTATE codes reported by pgx. They are
// checked before text patterns because the server's message text is
// localized.
var pgCodeMessages = map[string]UserMessage{
	"23505": {Message: "A record with this value already exists", Action: "Remove duplicate rows from the file", Code: "DB001"},
	"23503": {Message: "Referenced record does not exist", Action: "Import the referenced records first", Code: "DB003"},
	"40P01": {Message: "Database was busy with conflicting operations", Action: "Please try again", Code: "DB007"},
	"23502": {Message: "A required column is empty", Action: "Fill in the missing values and import again", Code: "DB008"},
	"22003": {Message: "A number in the file is too large", Action: "Check prices and quantities for typing mistakes", Code: "DB009"},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error text (case-insensitive) to user messages
// for errors that come from drivers and the runtime rather than this package.
// The first matching pattern wins, so specific patterns come first.
var errorPatterns = []errorPattern{
	// =========================================================================
	// Database Constraint Errors (DB001-DB003)
	// =========================================================================
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A record with this value already exists",
			Action:  "Remove duplicate rows from the file",
			Code:    "DB001",
		},
	},
	{
		pattern: "violates unique",
		msg: UserMessage{
			Message: "A duplicate value was found",
			Action:  "Check barcodes and serial numbers for duplicates",
			Code:    "DB002",
		},
	},
	{
		pattern: "violates foreign key",
		msg: UserMessage{
			Message: "Referenced record does not exist",
			Action:  "Import the referenced records first",
			Code:    "DB003",
		},
	},

	// =========================================================================
	// Database Connection Errors (DB004-DB007)
	// =========================================================================
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},

	// =========================================================================
	// Request Errors (REQ001-REQ003)
	// =========================================================================
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Choose a file to upload",
			Code:    "REQ001",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "REQ002",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "REQ003",
		},
	},

	// =========================================================================
	// Rate Limiting (RATE001)
	// =========================================================================
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000). Support staff
// should check the server log for the original error.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
//
// Errors wrapping one of the package's sentinels map by identity, then
// PostgreSQL errors by SQLSTATE. Anything else is matched case-insensitively against known driver and runtime error
// text, falling back to ERR000.
//
// Example:
//
//	err := fmt.Errorf("open: %w", ErrFileNotFound)
//	msg := MapError(err)
//	// msg.Code == "MIG001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.err) {
			return sm.msg
		}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if msg, ok := pgCodeMessages[pgErr.Code]; ok {
			return msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}
