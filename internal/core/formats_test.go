package core

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

// writeFile creates name under a temp dir with content and returns its path.
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// readAll drains src, returning decoded rows and the number of row errors.
func readAll(t *testing.T, src RowSource) ([]Row, int) {
	t.Helper()
	var rows []Row
	rowErrs := 0
	for {
		row, err := src.Next()
		if errors.Is(err, io.EOF) {
			return rows, rowErrs
		}
		if errors.Is(err, ErrRowDecode) {
			rowErrs++
			continue
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		rows = append(rows, row)
	}
}

// ----------------------------------------------------------------------------
// Dispatch
// ----------------------------------------------------------------------------

func TestFormats_ForFile(t *testing.T) {
	f := NewFormats(true)

	tests := []struct {
		file    string
		want    string
		wantErr error
	}{
		{file: "stock.csv", want: "CSV"},
		{file: "STOCK.CSV", want: "CSV"},
		{file: "stock.xlsx", want: "Excel"},
		{file: "stock.xls", want: "Excel"},
		{file: "stock.json", want: "JSON"},
		{file: "stock.txt", wantErr: ErrUnsupportedFormat},
		{file: "stock", wantErr: ErrUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			r, err := f.ForFile(tt.file)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ForFile(%q) err = %v, want %v", tt.file, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ForFile(%q): %v", tt.file, err)
			}
			if r.Name() != tt.want {
				t.Errorf("ForFile(%q) = %s, want %s", tt.file, r.Name(), tt.want)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// Delimited
// ----------------------------------------------------------------------------

func TestSniffDelimiter(t *testing.T) {
	tests := []struct {
		name      string
		sample    string
		truncated bool
		want      rune
	}{
		{name: "comma", sample: "a,b,c\n1,2,3\n", want: ','},
		{name: "semicolon", sample: "nom;prix;stock\nClé;1,5;3\n", want: ';'},
		{name: "tab", sample: "a\tb\n1\t2\n", want: '\t'},
		{name: "pipe", sample: "a|b|c\n1|2|3\n", want: '|'},
		{name: "quoted commas ignored", sample: "nom;desc\n\"a, b\";\"c, d, e\"\n", want: ';'},
		{name: "inconsistent falls back to header", sample: "a;b;c\n1;2\n", want: ';'},
		{name: "truncated last line dropped", sample: "a;b\n1;2\n3", truncated: true, want: ';'},
		{name: "single column", sample: "name\nx\n", want: ','},
		{name: "empty", sample: "", want: ','},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sniffDelimiter([]byte(tt.sample), tt.truncated); got != tt.want {
				t.Errorf("sniffDelimiter = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDelimitedReader_Semicolon(t *testing.T) {
	path := writeFile(t, "produits.csv", "\ufeffNom;Prix;Quantité\nClavier;12 500;3\nSouris;\"2,5\";1\n")

	src, err := DelimitedReader{}.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	if got := src.(*delimitedSource).Delimiter(); got != ';' {
		t.Errorf("Delimiter = %q, want ';'", got)
	}
	if src.Total() != 2 {
		t.Fatalf("Total = %d, want 2", src.Total())
	}

	rows, _ := readAll(t, src)
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if v, ok := rows[0].Get("Nom"); !ok || v != "Clavier" {
		t.Errorf("BOM not stripped from header: keys=%v", rows[0].Keys())
	}
	if got := rows[1].Price("prix").String(); got != "2.5" {
		t.Errorf("second row price = %s, want 2.5", got)
	}
}

func TestDelimitedReader_RaggedRows(t *testing.T) {
	path := writeFile(t, "ragged.csv", "name,price,stock\nA,1\nB,2,3,extra\n")

	src, err := DelimitedReader{}.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	rows, rowErrs := readAll(t, src)
	if rowErrs != 0 || len(rows) != 2 {
		t.Fatalf("rows=%d errs=%d, want 2 rows and no errors", len(rows), rowErrs)
	}
	if v, _ := rows[0].Get("stock"); v != "" {
		t.Errorf("missing trailing cell = %q, want empty", v)
	}
	if rows[1].Len() != 3 {
		t.Errorf("extra cells should be dropped, got keys %v", rows[1].Keys())
	}
}

func TestDelimitedReader_Rewind(t *testing.T) {
	path := writeFile(t, "r.csv", "name\na\nb\n")

	src, err := DelimitedReader{}.Open(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	first, _ := readAll(t, src)
	if err := src.Rewind(); err != nil {
		t.Fatalf("Rewind: %v", err)
	}
	second, _ := readAll(t, src)
	if len(first) != 2 || len(second) != 2 {
		t.Errorf("first pass %d rows, second pass %d rows, want 2 and 2", len(first), len(second))
	}
}

func TestDelimitedReader_EmptyFile(t *testing.T) {
	path := writeFile(t, "empty.csv", "")

	src, err := DelimitedReader{}.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	if src.Total() != 0 {
		t.Errorf("Total = %d, want 0", src.Total())
	}
	if _, err := src.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Next on empty file = %v, want io.EOF", err)
	}
}

func TestDelimitedReader_MissingFile(t *testing.T) {
	_, err := DelimitedReader{}.Open(context.Background(), filepath.Join(t.TempDir(), "gone.csv"))
	if !errors.Is(err, ErrFileNotFound) {
		t.Errorf("err = %v, want ErrFileNotFound", err)
	}
}

// ----------------------------------------------------------------------------
// Structured
// ----------------------------------------------------------------------------

func TestStructuredReader(t *testing.T) {
	path := writeFile(t, "clients.json", `[
		{"nom": "Awa", "telephone": "0700", "age": 31},
		{"nom": "Koffi", "tags": ["vip"]}
	]`)

	src, err := StructuredReader{}.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	if src.Total() != 2 {
		t.Fatalf("Total = %d, want 2", src.Total())
	}
	rows, rowErrs := readAll(t, src)
	if rowErrs != 0 || len(rows) != 2 {
		t.Fatalf("rows=%d errs=%d", len(rows), rowErrs)
	}

	keys := rows[0].Keys()
	if len(keys) != 3 || keys[0] != "nom" || keys[2] != "age" {
		t.Errorf("key order = %v, want [nom telephone age]", keys)
	}
	if got := rows[0].Int("age"); got != 31 {
		t.Errorf("age = %d, want 31", got)
	}
	if got := rows[1].Text("tags").String; got != `["vip"]` {
		t.Errorf("nested value = %q", got)
	}
}

func TestStructuredReader_Shapes(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{name: "object at top level", content: `{"nom": "x"}`, wantErr: ErrMalformedShape},
		{name: "not json", content: `nom,prix`, wantErr: ErrMalformedShape},
		{name: "unterminated", content: `[{"nom": "x"}`, wantErr: ErrMalformedShape},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := StructuredReader{}.Open(context.Background(), writeFile(t, "x.json", tt.content))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestStructuredReader_NonObjectElement(t *testing.T) {
	path := writeFile(t, "mixed.json", `[{"nom": "a"}, 42, {"nom": "b"}]`)

	src, err := StructuredReader{}.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	if src.Total() != 3 {
		t.Errorf("Total = %d, want 3", src.Total())
	}
	rows, rowErrs := readAll(t, src)
	if len(rows) != 2 || rowErrs != 1 {
		t.Errorf("rows=%d errs=%d, want 2 rows and 1 row error", len(rows), rowErrs)
	}
}

// ----------------------------------------------------------------------------
// Spreadsheet
// ----------------------------------------------------------------------------

func writeWorkbook(t *testing.T, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			t.Fatal(err)
		}
	}
	path := filepath.Join(t.TempDir(), "stock.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSpreadsheetReader(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		{" Nom ", "PRIX", "Quantité"},
		{"Clavier", 12500, 3},
		{"", "", ""},
		{"Souris", "2,5", 1},
	})

	src, err := SpreadsheetReader{Enabled: true}.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	if src.Total() != 2 {
		t.Fatalf("Total = %d, want 2 (blank rows skipped)", src.Total())
	}
	rows, _ := readAll(t, src)
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}

	keys := rows[0].Keys()
	if len(keys) != 3 || keys[0] != "nom" || keys[1] != "prix" || keys[2] != "quantité" {
		t.Errorf("headers = %v, want lower-cased and trimmed", keys)
	}
	if got := rows[0].Price("prix").IntPart(); got != 12500 {
		t.Errorf("price = %d, want 12500", got)
	}
	if got := rows[1].Int("quantite"); got != 1 {
		t.Errorf("quantity = %d, want 1", got)
	}
}

func TestSpreadsheetReader_Unavailable(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		path := writeWorkbook(t, [][]any{{"nom"}, {"x"}})
		_, err := SpreadsheetReader{Enabled: false}.Open(context.Background(), path)
		if !errors.Is(err, ErrSpreadsheetUnavailable) {
			t.Errorf("err = %v, want ErrSpreadsheetUnavailable", err)
		}
	})

	t.Run("legacy xls", func(t *testing.T) {
		path := writeFile(t, "old.xls", "\xd0\xcf\x11\xe0 not really a workbook")
		_, err := SpreadsheetReader{Enabled: true}.Open(context.Background(), path)
		if !errors.Is(err, ErrSpreadsheetUnavailable) {
			t.Errorf("err = %v, want ErrSpreadsheetUnavailable", err)
		}
	})

	t.Run("missing", func(t *testing.T) {
		_, err := SpreadsheetReader{Enabled: true}.Open(context.Background(), filepath.Join(t.TempDir(), "no.xlsx"))
		if !errors.Is(err, ErrFileNotFound) {
			t.Errorf("err = %v, want ErrFileNotFound", err)
		}
	})
}
