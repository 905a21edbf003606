package core

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// sniffSize is how much of a delimited file is inspected to pick the delimiter.
const sniffSize = 1024

var delimiterCandidates = []rune{',', ';', '\t', '|'}

// DelimitedReader reads comma, semicolon, tab or pipe separated text with a
// header line.
type DelimitedReader struct{}

func (DelimitedReader) Name() string { return "CSV" }

func (DelimitedReader) Open(ctx context.Context, path string) (RowSource, error) {
	f, err := openImportFile(path)
	if err != nil {
		return nil, err
	}

	sample := make([]byte, sniffSize)
	n, err := io.ReadFull(f, sample)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		f.Close()
		return nil, fmt.Errorf("read sample: %w", err)
	}

	src := &delimitedSource{
		f:     f,
		comma: sniffDelimiter(sample[:n], n == sniffSize),
	}
	if err := src.count(ctx); err != nil {
		f.Close()
		return nil, err
	}
	if err := src.Rewind(); err != nil {
		f.Close()
		return nil, err
	}
	return src, nil
}

type delimitedSource struct {
	f       *os.File
	comma   rune
	r       *csv.Reader
	headers []string
	total   int
}

func (s *delimitedSource) Total() int { return s.total }

// Delimiter returns the sniffed field separator.
func (s *delimitedSource) Delimiter() rune { return s.comma }

func (s *delimitedSource) Rewind() error {
	if _, err := s.f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind: %w", err)
	}
	r := csv.NewReader(newTextReader(s.f))
	r.Comma = s.comma
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	switch {
	case errors.Is(err, io.EOF):
		header = nil
	case err != nil:
		return fmt.Errorf("%w: header line: %v", ErrMalformedShape, err)
	}

	s.headers = make([]string, len(header))
	for i, h := range header {
		s.headers[i] = CleanCell(h)
	}
	s.r = r
	return nil
}

func (s *delimitedSource) count(ctx context.Context) error {
	if err := s.Rewind(); err != nil {
		return err
	}
	total := 0
	for {
		_, err := s.r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if err != nil && !errors.As(err, &perr) {
			return fmt.Errorf("count rows: %w", err)
		}
		total++
		if total%1000 == 0 && ctx.Err() != nil {
			return ctx.Err()
		}
	}
	s.total = total
	return nil
}

func (s *delimitedSource) Next() (Row, error) {
	rec, err := s.r.Read()
	if err != nil {
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			return Row{}, fmt.Errorf("%w: %v", ErrRowDecode, perr)
		}
		return Row{}, err
	}

	row := NewRow(len(s.headers))
	for i, h := range s.headers {
		if h == "" {
			continue
		}
		v := ""
		if i < len(rec) {
			v = rec[i]
		}
		row.Set(h, v)
	}
	return row, nil
}

func (s *delimitedSource) Close() error {
	return s.f.Close()
}

// sniffDelimiter picks the candidate that splits every sampled line into the
// same non-zero number of fields, preferring the one that splits the most.
// If none is consistent, the candidate most frequent in the header wins.
// truncated drops the last sampled line, which may be cut mid-record.
func sniffDelimiter(sample []byte, truncated bool) rune {
	lines := strings.Split(strings.ReplaceAll(string(sample), "\r\n", "\n"), "\n")
	if truncated && len(lines) > 1 {
		lines = lines[:len(lines)-1]
	}

	var nonEmpty []string
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			nonEmpty = append(nonEmpty, l)
		}
	}
	if len(nonEmpty) == 0 {
		return ','
	}

	best, bestCount := rune(0), 0
	for _, c := range delimiterCandidates {
		first := countUnquoted(nonEmpty[0], c)
		if first == 0 {
			continue
		}
		consistent := true
		for _, l := range nonEmpty[1:] {
			if countUnquoted(l, c) != first {
				consistent = false
				break
			}
		}
		if consistent && first > bestCount {
			best, bestCount = c, first
		}
	}
	if best != 0 {
		return best
	}

	best, bestCount = ',', 0
	for _, c := range delimiterCandidates {
		if n := countUnquoted(nonEmpty[0], c); n > bestCount {
			best, bestCount = c, n
		}
	}
	return best
}

// countUnquoted counts c in line outside double-quoted sections.
func countUnquoted(line string, c rune) int {
	n := 0
	inQuotes := false
	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == c && !inQuotes:
			n++
		}
	}
	return n
}

// openImportFile opens path, mapping a missing file to ErrFileNotFound.
func openImportFile(path string) (*os.File, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}
