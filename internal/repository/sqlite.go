package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/abhay1maurya/receipt-digitizer/internal/entity"
)

// sqliteSchema mirrors the postgres layout so both stores answer the same
// queries. Used by the CLI, which needs a local store without a server.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS bills (
	id TEXT PRIMARY KEY,
	profile_id TEXT NOT NULL,
	invoice_number TEXT NOT NULL DEFAULT '',
	vendor_name TEXT NOT NULL DEFAULT '',
	purchase_date TEXT NOT NULL DEFAULT '',
	purchase_time TEXT NOT NULL DEFAULT '',
	currency TEXT NOT NULL DEFAULT '',
	payment_method TEXT NOT NULL DEFAULT '',
	subtotal REAL NOT NULL DEFAULT 0,
	tax_amount REAL NOT NULL DEFAULT 0,
	total_amount REAL NOT NULL DEFAULT 0,
	original_currency TEXT,
	original_total_amount REAL,
	exchange_rate REAL,
	conversion_warning TEXT,
	created_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS bill_items (
	bill_id TEXT NOT NULL REFERENCES bills(id) ON DELETE CASCADE,
	s_no INTEGER NOT NULL,
	item_name TEXT NOT NULL DEFAULT '',
	quantity REAL NOT NULL DEFAULT 0,
	unit_price REAL NOT NULL DEFAULT 0,
	item_total REAL NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_bills_profile_vendor_date ON bills (profile_id, vendor_name, purchase_date);
`

type sqliteBillRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteBillRepository wraps an already-open database/sql handle. The
// caller registers the driver via a blank import.
func NewSQLiteBillRepository(db *sql.DB, logger *slog.Logger) BillRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &sqliteBillRepository{db: db, logger: logger}
}

// EnsureSchema creates the bill tables if they do not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, sqliteSchema)
	return err
}

func (r *sqliteBillRepository) Insert(ctx context.Context, profileID uuid.UUID, bill *entity.Bill) (*entity.StoredBill, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	stored := &entity.StoredBill{
		ID:        uuid.New(),
		ProfileID: profileID,
		Bill:      *bill,
		CreatedAt: time.Now().UTC(),
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO bills (id, profile_id, invoice_number, vendor_name, purchase_date, purchase_time,
			currency, payment_method, subtotal, tax_amount, total_amount,
			original_currency, original_total_amount, exchange_rate, conversion_warning, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		stored.ID.String(), profileID.String(), bill.InvoiceNumber, bill.VendorName, bill.PurchaseDate, bill.PurchaseTime,
		bill.Currency, bill.PaymentMethod, bill.Subtotal, bill.TaxAmount, bill.TotalAmount,
		nullString(bill.OriginalCurrency), bill.OriginalTotalAmount, bill.ExchangeRate,
		nullString(bill.ConversionWarning), stored.CreatedAt)
	if err != nil {
		r.logger.Error("failed to insert bill", "vendor", bill.VendorName, "error", err)
		return nil, err
	}

	for _, item := range bill.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO bill_items (bill_id, s_no, item_name, quantity, unit_price, item_total)
			VALUES (?, ?, ?, ?, ?, ?)`,
			stored.ID.String(), item.SNo, item.ItemName, math.Round(item.Quantity), item.UnitPrice, item.ItemTotal)
		if err != nil {
			r.logger.Error("failed to insert bill item", "bill_id", stored.ID, "s_no", item.SNo, "error", err)
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	r.logger.Info("bill saved", "bill_id", stored.ID, "vendor", bill.VendorName, "total", bill.TotalAmount)
	return stored, nil
}

func (r *sqliteBillRepository) FindSimilar(ctx context.Context, q SimilarQuery) ([]*entity.StoredBill, error) {
	query := `SELECT ` + billColumns + `
		FROM bills
		WHERE profile_id = ?
		  AND LOWER(vendor_name) = LOWER(?)
		  AND purchase_date = ?
		  AND ABS(total_amount - ?) <= ?`
	args := []any{q.ProfileID.String(), q.VendorName, q.PurchaseDate, q.TotalAmount, q.Tolerance}
	if q.InvoiceNumber != "" {
		query += ` AND invoice_number = ?`
		args = append(args, q.InvoiceNumber)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to query similar bills", "profile_id", q.ProfileID, "error", err)
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanSQLBills(rows)
}

func (r *sqliteBillRepository) ListBills(ctx context.Context, profileID uuid.UUID) ([]*entity.StoredBill, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+billColumns+`
		FROM bills WHERE profile_id = ? ORDER BY purchase_date, created_at`, profileID.String())
	if err != nil {
		r.logger.Error("failed to list bills", "profile_id", profileID, "error", err)
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	bills, err := scanSQLBills(rows)
	if err != nil {
		return nil, err
	}

	for _, b := range bills {
		items, err := r.listItems(ctx, b.ID)
		if err != nil {
			return nil, err
		}
		b.Items = items
	}
	return bills, nil
}

func (r *sqliteBillRepository) listItems(ctx context.Context, billID uuid.UUID) ([]entity.LineItem, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT s_no, item_name, quantity, unit_price, item_total
		FROM bill_items WHERE bill_id = ? ORDER BY s_no`, billID.String())
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	items := make([]entity.LineItem, 0, 8)
	for rows.Next() {
		var it entity.LineItem
		if err := rows.Scan(&it.SNo, &it.ItemName, &it.Quantity, &it.UnitPrice, &it.ItemTotal); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func scanSQLBills(rows *sql.Rows) ([]*entity.StoredBill, error) {
	var bills []*entity.StoredBill
	for rows.Next() {
		b, err := scanBill(rows.Scan)
		if err != nil {
			return nil, err
		}
		bills = append(bills, b)
	}
	return bills, rows.Err()
}
