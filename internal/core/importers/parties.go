package importers

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/migrator/internal/core"
)

func init() {
	fields := []string{"name", "email", "phone", "address"}
	core.RegisterImporter(core.ImporterInfo{Kind: core.KindClients, Label: "Clients", Fields: fields}, ImportClient)
	core.RegisterImporter(core.ImporterInfo{Kind: core.KindSuppliers, Label: "Suppliers", Fields: fields}, ImportSupplier)
}

// ImportClient creates one client from row.
func ImportClient(ctx context.Context, store core.RecordStore, row core.Row) error {
	p, err := partyFromRow(row)
	if err != nil {
		return err
	}
	if _, err := store.InsertClient(ctx, p); err != nil {
		return fmt.Errorf("insert client %q: %w", p.Name, err)
	}
	return nil
}

// ImportSupplier creates one supplier from row.
func ImportSupplier(ctx context.Context, store core.RecordStore, row core.Row) error {
	p, err := partyFromRow(row)
	if err != nil {
		return err
	}
	if _, err := store.InsertSupplier(ctx, p); err != nil {
		return fmt.Errorf("insert supplier %q: %w", p.Name, err)
	}
	return nil
}

func partyFromRow(row core.Row) (core.Party, error) {
	name := row.Text(partyNameAliases...)
	if !name.Valid {
		return core.Party{}, fmt.Errorf("%w: name", core.ErrMissingField)
	}
	return core.Party{
		Name:    name.String,
		Email:   row.Text(emailAliases...),
		Phone:   row.Text(phoneAliases...),
		Address: row.Text(addressAliases...),
	}, nil
}
