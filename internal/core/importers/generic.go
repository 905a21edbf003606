package importers

import (
	"context"

	"github.com/JonMunkholm/migrator/internal/core"
)

func init() {
	core.RegisterImporter(core.ImporterInfo{Kind: core.KindGeneric, Label: "Generic"}, ImportGeneric)
}

// ImportGeneric accepts every row without writing anything. It lets a file
// be dry-run through the pipeline to check that it parses.
func ImportGeneric(context.Context, core.RecordStore, core.Row) error {
	return nil
}
