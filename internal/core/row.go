package core

import (
	"strings"
	"unicode"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Row is one record read from an import file: header names mapped to
// untyped cell values. Keys keep their file order so fuzzy lookups are
// deterministic.
type Row struct {
	keys   []string
	values map[string]any
}

// NewRow returns an empty row with room for n fields.
func NewRow(n int) Row {
	return Row{keys: make([]string, 0, n), values: make(map[string]any, n)}
}

// RowOf builds a row from alternating key, value pairs. Used by tests.
func RowOf(kv ...any) Row {
	r := NewRow(len(kv) / 2)
	for i := 0; i+1 < len(kv); i += 2 {
		k, _ := kv[i].(string)
		r.Set(k, kv[i+1])
	}
	return r
}

// Set stores v under key. Re-setting a key keeps its original position.
func (r *Row) Set(key string, v any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = v
}

// Get returns the value stored under exactly key.
func (r Row) Get(key string) (any, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Keys returns the header names in file order.
func (r Row) Keys() []string {
	return r.keys
}

// Len is the number of fields.
func (r Row) Len() int {
	return len(r.keys)
}

// Lookup resolves aliases to the first non-blank value.
//
// Matching runs in three passes over all aliases, in alias order: exact key,
// then a key equal ignoring case and accents, then a key that contains the
// alias or is contained by it. A looser pass only runs when every alias
// missed the stricter one, so "prix" matches its own column before "price"
// can fuzzily match "purchase_price". Blank matches are skipped.
func (r Row) Lookup(aliases ...string) (any, bool) {
	for _, alias := range aliases {
		if v, ok := r.values[alias]; ok && !blank(v) {
			return v, true
		}
	}

	folded := make([]string, 0, len(aliases))
	for _, alias := range aliases {
		if f := foldKey(alias); f != "" {
			folded = append(folded, f)
		}
	}
	keys := make([]string, len(r.keys))
	for i, k := range r.keys {
		keys[i] = foldKey(k)
	}

	for _, f := range folded {
		for i, k := range r.keys {
			if v := r.values[k]; keys[i] == f && !blank(v) {
				return v, true
			}
		}
	}
	for _, f := range folded {
		for i, k := range r.keys {
			fk := keys[i]
			if fk == "" {
				continue
			}
			if v := r.values[k]; !blank(v) && (strings.Contains(fk, f) || strings.Contains(f, fk)) {
				return v, true
			}
		}
	}
	return nil, false
}

// Text resolves aliases and normalizes the result as text.
func (r Row) Text(aliases ...string) pgtype.Text {
	v, _ := r.Lookup(aliases...)
	return NormalizeText(v)
}

// Price resolves aliases and normalizes the result as a price.
func (r Row) Price(aliases ...string) decimal.Decimal {
	v, _ := r.Lookup(aliases...)
	return NormalizePrice(v)
}

// Int resolves aliases and normalizes the result as an integer.
func (r Row) Int(aliases ...string) int64 {
	v, _ := r.Lookup(aliases...)
	return NormalizeInteger(v)
}

func blank(v any) bool {
	return strings.TrimSpace(CellString(v)) == ""
}

// foldKey lower-cases s, strips diacritics and trims surrounding space,
// so "Quantité" and "QUANTITE " compare equal.
func foldKey(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}
