package importers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/migrator/internal/core"
)

// DefaultCondition applies when a row has no condition column.
const DefaultCondition = "new"

// ReferenceImport tags stock movements created by an import.
const ReferenceImport = "IMPORT"

func init() {
	core.RegisterImporter(core.ImporterInfo{
		Kind:  core.KindProducts,
		Label: "Products",
		Fields: []string{
			"name", "description", "price", "purchase_price", "quantity", "category",
			"brand", "model", "barcode", "condition", "notes",
			"imei", "variant_barcode", "variant_condition",
		},
	}, ImportProduct)
}

// ImportProduct creates one product from row, together with its opening
// stock movement. A row carrying an IMEI or serial number becomes a
// serialised product with a single variant and a quantity of one.
func ImportProduct(ctx context.Context, store core.RecordStore, row core.Row) error {
	name := row.Text(nameAliases...)
	if !name.Valid {
		return fmt.Errorf("%w: name", core.ErrMissingField)
	}

	price := row.Price(priceAliases...)
	purchase := row.Price(purchasePriceAliases...)
	if purchase.IsZero() {
		purchase = price
	}

	condition := DefaultCondition
	if c := row.Text(conditionAliases...); c.Valid {
		condition = strings.ToLower(c.String)
	}

	p := core.Product{
		Name:          name.String,
		Description:   row.Text(descriptionAliases...),
		Price:         price,
		PurchasePrice: purchase,
		Quantity:      row.Int(quantityAliases...),
		Category:      row.Text(categoryAliases...),
		Brand:         row.Text(brandAliases...),
		Model:         row.Text(modelAliases...),
		Barcode:       row.Text(barcodeAliases...),
		Condition:     condition,
		EntryDate:     time.Now().UTC(),
		Notes:         row.Text(notesAliases...),
	}

	imei := row.Text(imeiAliases...)
	if !imei.Valid {
		return store.WithTx(ctx, func(tx core.RecordStore) error {
			return insertSimpleProduct(ctx, tx, p)
		})
	}

	variantCondition := condition
	if c := row.Text(variantCondAliases...); c.Valid {
		variantCondition = strings.ToLower(c.String)
	}
	v := core.ProductVariant{
		IMEISerial: imei.String,
		Barcode:    row.Text(variantBarcodeAliases...),
		Condition:  variantCondition,
	}
	return store.WithTx(ctx, func(tx core.RecordStore) error {
		return insertSerialisedProduct(ctx, tx, p, v)
	})
}

func insertSimpleProduct(ctx context.Context, tx core.RecordStore, p core.Product) error {
	id, err := tx.InsertProduct(ctx, p)
	if err != nil {
		return fmt.Errorf("insert product %q: %w", p.Name, err)
	}
	if p.Quantity <= 0 {
		return nil
	}
	err = tx.InsertStockMovement(ctx, core.StockMovement{
		ProductID:     id,
		Quantity:      p.Quantity,
		Type:          core.MovementIn,
		ReferenceType: ReferenceImport,
		Notes:         "Initial stock from import",
		UnitPrice:     p.Price,
	})
	if err != nil {
		return fmt.Errorf("insert stock movement for %q: %w", p.Name, err)
	}
	return nil
}

func insertSerialisedProduct(ctx context.Context, tx core.RecordStore, p core.Product, v core.ProductVariant) error {
	p.Quantity = 1
	p.HasUniqueSerial = true
	p.Barcode.Valid = false
	p.Barcode.String = ""

	id, err := tx.InsertProduct(ctx, p)
	if err != nil {
		return fmt.Errorf("insert product %q: %w", p.Name, err)
	}

	v.ProductID = id
	if _, err := tx.InsertProductVariant(ctx, v); err != nil {
		return fmt.Errorf("insert variant %s: %w", v.IMEISerial, err)
	}

	err = tx.InsertStockMovement(ctx, core.StockMovement{
		ProductID:     id,
		Quantity:      1,
		Type:          core.MovementIn,
		ReferenceType: ReferenceImport,
		Notes:         "Imported unit " + v.IMEISerial,
		UnitPrice:     p.Price,
	})
	if err != nil {
		return fmt.Errorf("insert stock movement for %s: %w", v.IMEISerial, err)
	}
	return nil
}
