package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// SpreadsheetReader reads the first worksheet of an Office Open XML workbook.
// Row 1 holds the headers, which are lower-cased and trimmed.
type SpreadsheetReader struct {
	Enabled bool
}

func (SpreadsheetReader) Name() string { return "Excel" }

func (r SpreadsheetReader) Open(ctx context.Context, path string) (RowSource, error) {
	if !r.Enabled {
		return nil, fmt.Errorf("%w: spreadsheet import is disabled", ErrSpreadsheetUnavailable)
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		if strings.EqualFold(filepath.Ext(path), ".xls") {
			return nil, fmt.Errorf("%w: legacy .xls workbooks cannot be read, save the file as .xlsx", ErrSpreadsheetUnavailable)
		}
		return nil, fmt.Errorf("open workbook: %w", err)
	}

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		f.Close()
		return nil, fmt.Errorf("%w: workbook has no worksheets", ErrMalformedShape)
	}

	src := &sheetSource{f: f, sheet: sheets[0]}
	if err := src.count(ctx); err != nil {
		src.Close()
		return nil, err
	}
	if err := src.Rewind(); err != nil {
		src.Close()
		return nil, err
	}
	return src, nil
}

type sheetSource struct {
	f       *excelize.File
	sheet   string
	rows    *excelize.Rows
	headers []string
	total   int
}

func (s *sheetSource) Total() int { return s.total }

// Sheet is the name of the worksheet being read.
func (s *sheetSource) Sheet() string { return s.sheet }

func (s *sheetSource) Rewind() error {
	if s.rows != nil {
		s.rows.Close()
	}
	rows, err := s.f.Rows(s.sheet)
	if err != nil {
		return fmt.Errorf("read sheet %q: %w", s.sheet, err)
	}
	s.rows = rows
	s.headers = nil

	if !rows.Next() {
		return rows.Error()
	}
	header, err := rows.Columns(excelize.Options{RawCellValue: true})
	if err != nil {
		return fmt.Errorf("%w: header row: %v", ErrMalformedShape, err)
	}
	s.headers = make([]string, len(header))
	for i, h := range header {
		s.headers[i] = strings.ToLower(strings.TrimSpace(h))
	}
	return nil
}

func (s *sheetSource) count(ctx context.Context) error {
	if err := s.Rewind(); err != nil {
		return err
	}
	total := 0
	for {
		cols, err := s.nextNonEmpty()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("count rows: %w", err)
		}
		if cols != nil {
			total++
		}
		if total%1000 == 0 && ctx.Err() != nil {
			return ctx.Err()
		}
	}
	s.total = total
	return nil
}

// nextNonEmpty advances to the next row holding at least one non-blank cell.
func (s *sheetSource) nextNonEmpty() ([]string, error) {
	for s.rows.Next() {
		cols, err := s.rows.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, err
		}
		for _, c := range cols {
			if strings.TrimSpace(c) != "" {
				return cols, nil
			}
		}
	}
	if err := s.rows.Error(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

func (s *sheetSource) Next() (Row, error) {
	cols, err := s.nextNonEmpty()
	if err != nil {
		return Row{}, err
	}
	row := NewRow(len(s.headers))
	for i, h := range s.headers {
		if h == "" {
			continue
		}
		v := ""
		if i < len(cols) {
			v = cols[i]
		}
		row.Set(h, v)
	}
	return row, nil
}

func (s *sheetSource) Close() error {
	if s.rows != nil {
		s.rows.Close()
	}
	return s.f.Close()
}
