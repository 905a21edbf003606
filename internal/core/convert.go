package core

// convert.go coerces loosely typed cell values into the types importers
// write.
//
// Source files come from spreadsheets kept by hand, so prices arrive as
// "12 500 FCFA", "1,5" or "-". None of the functions here return errors or
// log: anything that cannot be read becomes zero (numbers) or an invalid
// pgtype.Text (text), and every function is idempotent on its own output.

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// FieldKind selects a normalization for Normalize.
type FieldKind int

const (
	FieldText FieldKind = iota
	FieldPrice
	FieldInteger
)

// nonNumericRegex matches everything a cleansed number may not contain.
var nonNumericRegex = regexp.MustCompile(`[^\d.-]`)

// currencyMarkers are stripped before numeric parsing. Longest first so
// "F CFA" is not left as "F ".
var currencyMarkers = []string{"F CFA", "FCFA", "CFA"}

// Normalize converts raw according to kind. It returns decimal.Decimal for
// FieldPrice, int64 for FieldInteger and pgtype.Text for FieldText.
func Normalize(raw any, kind FieldKind) any {
	switch kind {
	case FieldPrice:
		return NormalizePrice(raw)
	case FieldInteger:
		return NormalizeInteger(raw)
	default:
		return NormalizeText(raw)
	}
}

// NormalizePrice converts a price-like value to an exact decimal.
// Blank, "-" and unparseable values become zero.
func NormalizePrice(raw any) decimal.Decimal {
	switch v := raw.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return v
	case int:
		return decimal.NewFromInt(int64(v))
	case int64:
		return decimal.NewFromInt(v)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return decimal.Zero
		}
		return decimal.NewFromFloat(v)
	}

	s := cleanNumeric(CellString(raw))
	if s == "" || s == "-" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// NormalizeInteger converts a count-like value to an integer.
// The value is cleansed like a price, read as a float and truncated.
func NormalizeInteger(raw any) int64 {
	switch v := raw.(type) {
	case nil:
		return 0
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return truncateFloat(v)
	case decimal.Decimal:
		if i := v.Truncate(0).BigInt(); i.IsInt64() {
			return i.Int64()
		}
		return 0
	}

	s := cleanNumeric(CellString(raw))
	if s == "" || s == "-" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return truncateFloat(f)
}

// truncateFloat drops the fraction of f. Values outside the int64 range
// are unreadable and become zero.
func truncateFloat(f float64) int64 {
	if math.IsNaN(f) || math.Abs(f) >= 1<<63 {
		return 0
	}
	return int64(f)
}

// NormalizeText trims a value. Blank values are returned as an invalid
// pgtype.Text so they land as NULL.
func NormalizeText(raw any) pgtype.Text {
	if t, ok := raw.(pgtype.Text); ok {
		if !t.Valid {
			return t
		}
		raw = t.String
	}
	s := strings.TrimSpace(CellString(raw))
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

// cleanNumeric strips currency markers and separators, maps a decimal comma
// to a dot and drops every other non-numeric character.
func cleanNumeric(s string) string {
	for _, m := range currencyMarkers {
		s = strings.ReplaceAll(s, m, "")
	}
	s = strings.Join(strings.Fields(s), "")
	s = strings.ReplaceAll(s, ",", ".")
	return nonNumericRegex.ReplaceAllString(s, "")
}

// CellString renders an untyped cell as text. Nested JSON values are
// re-encoded so no information is silently dropped.
func CellString(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case decimal.Decimal:
		return v.String()
	case map[string]any, []any:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	default:
		return fmt.Sprint(v)
	}
}

// CleanCell removes spreadsheet export artifacts from a header or cell:
// surrounding whitespace, an Excel formula prefix (="...") and quotes.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	}
	return strings.TrimSpace(strings.Trim(s, `"'`))
}
