package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const insertProduct = `-- name: InsertProduct :one
INSERT INTO products (
    name, description, price, purchase_price, quantity, category, brand,
    model, barcode, condition, has_unique_serial, entry_date, notes
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
RETURNING id`

type InsertProductParams struct {
	Name            string
	Description     pgtype.Text
	Price           pgtype.Numeric
	PurchasePrice   pgtype.Numeric
	Quantity        int64
	Category        pgtype.Text
	Brand           pgtype.Text
	Model           pgtype.Text
	Barcode         pgtype.Text
	Condition       string
	HasUniqueSerial bool
	EntryDate       pgtype.Timestamptz
	Notes           pgtype.Text
}

func (q *Queries) InsertProduct(ctx context.Context, arg InsertProductParams) (int64, error) {
	row := q.db.QueryRow(ctx, insertProduct,
		arg.Name,
		arg.Description,
		arg.Price,
		arg.PurchasePrice,
		arg.Quantity,
		arg.Category,
		arg.Brand,
		arg.Model,
		arg.Barcode,
		arg.Condition,
		arg.HasUniqueSerial,
		arg.EntryDate,
		arg.Notes,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const insertProductVariant = `-- name: InsertProductVariant :one
INSERT INTO product_variants (product_id, imei_serial, barcode, condition, is_sold)
VALUES ($1, $2, $3, $4, FALSE)
RETURNING id`

type InsertProductVariantParams struct {
	ProductID  int64
	ImeiSerial string
	Barcode    pgtype.Text
	Condition  string
}

func (q *Queries) InsertProductVariant(ctx context.Context, arg InsertProductVariantParams) (int64, error) {
	row := q.db.QueryRow(ctx, insertProductVariant,
		arg.ProductID,
		arg.ImeiSerial,
		arg.Barcode,
		arg.Condition,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const insertStockMovement = `-- name: InsertStockMovement :exec
INSERT INTO stock_movements (product_id, quantity, movement_type, reference_type, notes, unit_price)
VALUES ($1, $2, $3, $4, $5, $6)`

type InsertStockMovementParams struct {
	ProductID     int64
	Quantity      int64
	MovementType  string
	ReferenceType string
	Notes         string
	UnitPrice     pgtype.Numeric
}

func (q *Queries) InsertStockMovement(ctx context.Context, arg InsertStockMovementParams) error {
	_, err := q.db.Exec(ctx, insertStockMovement,
		arg.ProductID,
		arg.Quantity,
		arg.MovementType,
		arg.ReferenceType,
		arg.Notes,
		arg.UnitPrice,
	)
	return err
}

const insertClient = `-- name: InsertClient :one
INSERT INTO clients (name, email, phone, address)
VALUES ($1, $2, $3, $4)
RETURNING id`

type InsertClientParams struct {
	Name    string
	Email   pgtype.Text
	Phone   pgtype.Text
	Address pgtype.Text
}

func (q *Queries) InsertClient(ctx context.Context, arg InsertClientParams) (int64, error) {
	row := q.db.QueryRow(ctx, insertClient,
		arg.Name,
		arg.Email,
		arg.Phone,
		arg.Address,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const insertSupplier = `-- name: InsertSupplier :one
INSERT INTO suppliers (name, email, phone, address)
VALUES ($1, $2, $3, $4)
RETURNING id`

type InsertSupplierParams struct {
	Name    string
	Email   pgtype.Text
	Phone   pgtype.Text
	Address pgtype.Text
}

func (q *Queries) InsertSupplier(ctx context.Context, arg InsertSupplierParams) (int64, error) {
	row := q.db.QueryRow(ctx, insertSupplier,
		arg.Name,
		arg.Email,
		arg.Phone,
		arg.Address,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}
