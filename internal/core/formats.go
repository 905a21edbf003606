package core

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// RowSource iterates the data rows of an opened import file.
//
// Total is known before the first call to Next. Next returns io.EOF after
// the last row; an error wrapping ErrRowDecode affects only that row and
// iteration may continue. Rewind restarts iteration from the first data row.
type RowSource interface {
	Total() int
	Next() (Row, error)
	Rewind() error
	Close() error
}

// FormatReader opens one file format.
type FormatReader interface {
	// Name is the label used in job logs, e.g. "CSV".
	Name() string
	Open(ctx context.Context, path string) (RowSource, error)
}

// Formats dispatches files to readers by suffix.
type Formats struct {
	bySuffix map[string]FormatReader
}

// NewFormats returns the standard reader set. With spreadsheets disabled,
// workbook files resolve to a reader that fails with ErrSpreadsheetUnavailable.
func NewFormats(spreadsheetEnabled bool) *Formats {
	sheet := SpreadsheetReader{Enabled: spreadsheetEnabled}
	return &Formats{bySuffix: map[string]FormatReader{
		".csv":  DelimitedReader{},
		".xlsx": sheet,
		".xlsm": sheet,
		".xls":  sheet,
		".json": StructuredReader{},
	}}
}

// ForFile picks the reader for name by its suffix, case-insensitively.
func (f *Formats) ForFile(name string) (FormatReader, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if r, ok := f.bySuffix[ext]; ok {
		return r, nil
	}
	if ext == "" {
		return nil, fmt.Errorf("%w: %q has no extension", ErrUnsupportedFormat, name)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
}

// Suffixes lists the registered suffixes.
func (f *Formats) Suffixes() []string {
	out := make([]string, 0, len(f.bySuffix))
	for s := range f.bySuffix {
		out = append(out, s)
	}
	return out
}
