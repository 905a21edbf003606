package core

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Importer maps one row to domain records for a target kind. A returned
// error fails only that row.
type Importer func(ctx context.Context, store RecordStore, row Row) error

// ImporterInfo describes a registered importer.
type ImporterInfo struct {
	Kind  TargetKind `json:"kind"`
	Label string     `json:"label"`
	// Fields lists the canonical column names the importer understands.
	Fields []string `json:"fields,omitempty"`
}

type importerEntry struct {
	info ImporterInfo
	fn   Importer
}

var (
	importers   = make(map[TargetKind]importerEntry)
	importersMu sync.RWMutex
)

// RegisterImporter adds the importer for a kind.
// Panics if the kind is already registered.
func RegisterImporter(info ImporterInfo, fn Importer) {
	importersMu.Lock()
	defer importersMu.Unlock()

	if _, exists := importers[info.Kind]; exists {
		panic(fmt.Sprintf("importer already registered: %s", info.Kind))
	}
	importers[info.Kind] = importerEntry{info: info, fn: fn}
}

// ImporterFor returns the importer for kind.
func ImporterFor(kind TargetKind) (Importer, bool) {
	importersMu.RLock()
	defer importersMu.RUnlock()

	e, ok := importers[kind]
	return e.fn, ok
}

// Importers lists registered importers sorted by kind.
func Importers() []ImporterInfo {
	importersMu.RLock()
	defer importersMu.RUnlock()

	out := make([]ImporterInfo, 0, len(importers))
	for _, e := range importers {
		out = append(out, e.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}
