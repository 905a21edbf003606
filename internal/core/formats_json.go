package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// StructuredReader reads a JSON document whose top level is an array of
// objects. Elements are streamed one at a time.
type StructuredReader struct{}

func (StructuredReader) Name() string { return "JSON" }

func (StructuredReader) Open(ctx context.Context, path string) (RowSource, error) {
	f, err := openImportFile(path)
	if err != nil {
		return nil, err
	}
	src := &jsonSource{f: f}
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

type jsonSource struct {
	f     *os.File
	dec   *json.Decoder
	index int
	total int
}

func (s *jsonSource) Total() int { return s.total }

func (s *jsonSource) Rewind() error {
	if _, err := s.f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind: %w", err)
	}
	dec := json.NewDecoder(skipBOM(s.f))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%w: JSON file must contain a top-level array: %v", ErrMalformedShape, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return fmt.Errorf("%w: JSON file must contain a top-level array", ErrMalformedShape)
	}
	s.dec = dec
	s.index = 0
	return nil
}

func (s *jsonSource) count(ctx context.Context) error {
	if err := s.Rewind(); err != nil {
		return err
	}
	total := 0
	for s.dec.More() {
		var raw json.RawMessage
		if err := s.dec.Decode(&raw); err != nil {
			return fmt.Errorf("%w: element %d: %v", ErrMalformedShape, total+1, err)
		}
		total++
		if total%1000 == 0 && ctx.Err() != nil {
			return ctx.Err()
		}
	}
	if _, err := s.dec.Token(); err != nil {
		return fmt.Errorf("%w: unterminated array: %v", ErrMalformedShape, err)
	}
	s.total = total
	return nil
}

func (s *jsonSource) Next() (Row, error) {
	if !s.dec.More() {
		return Row{}, io.EOF
	}
	var raw json.RawMessage
	if err := s.dec.Decode(&raw); err != nil {
		return Row{}, fmt.Errorf("%w: element %d: %v", ErrMalformedShape, s.index+1, err)
	}
	s.index++
	return decodeObject(raw)
}

func (s *jsonSource) Close() error {
	return s.f.Close()
}

// decodeObject turns a JSON object into a Row, keeping key order.
func decodeObject(raw json.RawMessage) (Row, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return Row{}, fmt.Errorf("%w: %v", ErrRowDecode, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return Row{}, fmt.Errorf("%w: element is not an object", ErrRowDecode)
	}

	row := NewRow(8)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return Row{}, fmt.Errorf("%w: %v", ErrRowDecode, err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return Row{}, fmt.Errorf("%w: unexpected key %v", ErrRowDecode, keyTok)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return Row{}, fmt.Errorf("%w: field %q: %v", ErrRowDecode, key, err)
		}
		row.Set(key, v)
	}
	return row, nil
}
